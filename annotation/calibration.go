package annotation

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// LowIntersectFraction is the fraction below which the coordinate frames are
// considered misaligned.
const LowIntersectFraction = 0.25

// DefaultCalibrationNames are the point names used when none are configured.
var DefaultCalibrationNames = []string{"calib1", "calib2", "calib3"}

// FindCalibrationPoints collects the Point features carrying each requested
// name. Names without a match are absent from the result.
func FindCalibrationPoints(features []*Feature, names []string) map[string][]orb.Point {
	wanted := make(map[string]struct{}, len(names))
	for _, n := range names {
		wanted[n] = struct{}{}
	}
	found := make(map[string][]orb.Point)
	for _, f := range features {
		if f.Kind != KindPoint || !f.HasName {
			continue
		}
		if _, ok := wanted[f.Name]; !ok {
			continue
		}
		found[f.Name] = append(found[f.Name], f.Geometry().(orb.Point))
	}
	return found
}

// ResolveCalibrationPoints returns exactly one point per name, in name order.
func ResolveCalibrationPoints(features []*Feature, names []string) ([]orb.Point, error) {
	found := FindCalibrationPoints(features, names)
	points := make([]orb.Point, 0, len(names))
	for _, n := range names {
		switch pts := found[n]; len(pts) {
		case 0:
			return nil, fmt.Errorf("%w: %q", ErrMissingCalibrationPoint, n)
		case 1:
			points = append(points, pts[0])
		default:
			return nil, fmt.Errorf("%w: %q matches %d points", ErrDuplicateCalibrationPoint, n, len(pts))
		}
	}
	return points, nil
}

// CalibrationTriangle closes the three calibration points into a ring.
func CalibrationTriangle(points []orb.Point) (orb.Ring, error) {
	if len(points) != 3 {
		return nil, fmt.Errorf("calibration triangle needs 3 points, got %d", len(points))
	}
	return orb.Ring{points[0], points[1], points[2], points[0]}, nil
}

// IntersectFraction returns the share of Polygon and LineString features that
// touch the triangle. Other kinds count in neither term. With no eligible
// features the result is NaN.
func IntersectFraction(features []*Feature, triangle orb.Ring) float64 {
	total, hits := 0, 0
	for _, f := range features {
		if f.Kind != KindPolygon && f.Kind != KindLineString {
			continue
		}
		total++
		if Intersects(f.Geometry(), triangle) {
			hits++
		}
	}
	if total == 0 {
		return math.NaN()
	}
	return float64(hits) / float64(total)
}

// Intersects reports whether a Polygon or LineString shares any point with the ring.
func Intersects(g orb.Geometry, triangle orb.Ring) bool {
	if g == nil || len(triangle) < 4 {
		return false
	}
	if !g.Bound().Intersects(triangle.Bound()) {
		return false
	}
	var vertices []orb.Point
	var segments [][2]orb.Point
	switch geom := g.(type) {
	case orb.Polygon:
		for _, ring := range geom {
			vertices = append(vertices, ring...)
			segments = appendSegments(segments, ring)
		}
		for _, p := range triangle[:3] {
			if planar.PolygonContains(geom, p) {
				return true
			}
		}
	case orb.LineString:
		vertices = geom
		segments = appendSegments(segments, geom)
	default:
		return false
	}
	for _, p := range vertices {
		if planar.RingContains(triangle, p) {
			return true
		}
	}
	edges := appendSegments(nil, triangle)
	for _, s := range segments {
		for _, e := range edges {
			if segmentsIntersect(s[0], s[1], e[0], e[1]) {
				return true
			}
		}
	}
	return false
}

func appendSegments(dst [][2]orb.Point, pts []orb.Point) [][2]orb.Point {
	for i := 0; i+1 < len(pts); i++ {
		dst = append(dst, [2]orb.Point{pts[i], pts[i+1]})
	}
	return dst
}

func segmentsIntersect(p1, p2, q1, q2 orb.Point) bool {
	d1 := crossProduct(q1, q2, p1)
	d2 := crossProduct(q1, q2, p2)
	d3 := crossProduct(p1, p2, q1)
	d4 := crossProduct(p1, p2, q2)
	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) && ((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	return (d1 == 0 && onSegment(q1, q2, p1)) ||
		(d2 == 0 && onSegment(q1, q2, p2)) ||
		(d3 == 0 && onSegment(p1, p2, q1)) ||
		(d4 == 0 && onSegment(p1, p2, q2))
}

// crossProduct of (a-o) x (b-o).
func crossProduct(o, a, b orb.Point) float64 {
	return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
}

func onSegment(a, b, p orb.Point) bool {
	return math.Min(a[0], b[0]) <= p[0] && p[0] <= math.Max(a[0], b[0]) &&
		math.Min(a[1], b[1]) <= p[1] && p[1] <= math.Max(a[1], b[1])
}
