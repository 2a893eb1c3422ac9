package annotation

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/simplify"
)

// SimplifyTolerance is the Douglas-Peucker threshold applied before export, in coordinate units.
const SimplifyTolerance = 1.0

// ExtractCoordinates flattens a geometry into its ordered coordinates.
// Polygons yield their exterior ring, LineStrings their points.
func ExtractCoordinates(g orb.Geometry) ([]orb.Point, error) {
	switch geom := g.(type) {
	case orb.Polygon:
		if len(geom) == 0 {
			return nil, nil
		}
		return append([]orb.Point(nil), geom[0]...), nil
	case orb.LineString:
		return append([]orb.Point(nil), geom...), nil
	default:
		return nil, fmt.Errorf("%w: %s, convert the annotation to Polygon or LineString in QuPath",
			ErrUnsupportedGeometryKind, geometryKind(g))
	}
}

// SimplifyGeometry reduces the vertex count of Polygons and LineStrings.
// The input is not modified. A result that would no longer be a valid ring
// or line falls back to the original geometry.
func SimplifyGeometry(g orb.Geometry, tolerance float64) orb.Geometry {
	switch geom := g.(type) {
	case orb.Polygon:
		out := simplify.DouglasPeucker(tolerance).Simplify(orb.Clone(geom))
		poly, ok := out.(orb.Polygon)
		if !ok || len(poly) != len(geom) {
			return geom
		}
		for _, ring := range poly {
			if len(ring) < 4 {
				return geom
			}
		}
		return poly
	case orb.LineString:
		out := simplify.DouglasPeucker(tolerance).Simplify(orb.Clone(geom))
		line, ok := out.(orb.LineString)
		if !ok || len(line) < 2 {
			return geom
		}
		return line
	default:
		return g
	}
}

func geometryKind(g orb.Geometry) string {
	if g == nil {
		return KindNone
	}
	return g.GeoJSONType()
}
