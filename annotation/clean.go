package annotation

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/paulmach/orb"
)

// Shape is a cleaned annotation ready for export.
type Shape struct {
	Feature   *Feature
	ClassName string
	Coords    []orb.Point
}

// CheckResult is the outcome of loading and checking a GeoJSON file.
type CheckResult struct {
	KindCounts        map[string]int
	CalibrationNames  []string
	CalibrationFound  map[string][]orb.Point
	MissingCalibPts   []string
	IntersectFraction float64
	Removed           RemovedCounts
	Shapes            []Shape
	Report            *Report
}

// RemovedCounts tallies the features dropped while cleaning.
type RemovedCounts struct {
	Points          int
	Unclassified    int
	MultiPolygons   int
	MultiPolyLabels []string
}

// FractionDefined reports whether the intersect fraction could be computed.
func (r *CheckResult) FractionDefined() bool {
	return !math.IsNaN(r.IntersectFraction)
}

// Features returns the cleaned features in file order.
func (r *CheckResult) Features() []*Feature {
	out := make([]*Feature, len(r.Shapes))
	for i, s := range r.Shapes {
		out[i] = s.Feature
	}
	return out
}

// CheckGeoJSON validates and cleans a feature collection. Warnings and
// diagnostics are collected in the result report (mirrored to report's
// logger); fatal conditions are returned as errors.
func CheckGeoJSON(features []*Feature, calibNames []string, report *Report) (*CheckResult, error) {
	if report == nil {
		report = NewReport(nil)
	}
	res := &CheckResult{
		CalibrationNames:  append([]string(nil), calibNames...),
		IntersectFraction: math.NaN(),
		Report:            report,
	}
	report.Infof("GeoJSON loaded with %d features", len(features))

	if !anyNamed(features) {
		return nil, fmt.Errorf("%w: no annotation in QuPath was named, at least the calibration points must be", ErrMissingNameColumn)
	}

	res.KindCounts = CountKinds(features)
	report.Infof("Geometries: %s", formatKindCounts(res.KindCounts))

	res.CalibrationFound = FindCalibrationPoints(features, calibNames)
	for _, n := range calibNames {
		if len(res.CalibrationFound[n]) == 0 {
			res.MissingCalibPts = append(res.MissingCalibPts, n)
		}
	}
	if len(res.MissingCalibPts) > 0 {
		report.Errorf("calibration points %s are not present in the file", quoteJoin(res.MissingCalibPts))
		report.Errorf("calibration points requested: %s", quoteJoin(calibNames))
		report.Errorf("named points found in the file: %s", quoteJoin(pointNames(features)))
		report.Warnf("calibration triangle check skipped")
	} else {
		pts := make([]orb.Point, len(calibNames))
		for i, n := range calibNames {
			pts[i] = res.CalibrationFound[n][0]
		}
		triangle, err := CalibrationTriangle(pts)
		if err != nil {
			report.Warnf("calibration triangle check skipped: %v", err)
		} else {
			res.IntersectFraction = IntersectFraction(features, triangle)
			reportFraction(report, res.IntersectFraction)
		}
	}

	kept, removed, err := cleanFeatures(features)
	if err != nil {
		return nil, err
	}
	res.Removed = removed
	report.Infof("%d point geometries have been removed", removed.Points)
	if removed.Unclassified > 0 {
		report.Warnf("%d unclassified objects from QuPath will be ignored", removed.Unclassified)
	}
	if removed.MultiPolygons > 0 {
		report.Warnf("MultiPolygon objects are not supported and will be ignored, convert them to polygons in QuPath: %s",
			strings.Join(removed.MultiPolyLabels, "; "))
	}

	shapes, err := simplifyShapes(kept)
	if err != nil {
		return nil, err
	}
	res.Shapes = shapes
	report.Infof("GeoJSON check complete: %d shapes retained", len(shapes))
	return res, nil
}

// CleanFeatures drops Points, unclassified features and MultiPolygons and
// resolves every remaining classification name. Running it on its own output
// returns the same features.
func CleanFeatures(features []*Feature) ([]*Feature, error) {
	kept, _, err := cleanFeatures(features)
	return kept, err
}

func cleanFeatures(features []*Feature) ([]*Feature, RemovedCounts, error) {
	var removed RemovedCounts
	kept := make([]*Feature, 0, len(features))
	for _, f := range features {
		if f.Kind == KindPoint {
			removed.Points++
			continue
		}
		if !f.Classified() {
			removed.Unclassified++
			continue
		}
		kept = append(kept, f)
	}
	for _, f := range kept {
		if _, err := f.ClassificationName(); err != nil {
			return nil, removed, fmt.Errorf("feature %s: %w", f.displayName(), err)
		}
	}
	out := kept[:0]
	for _, f := range kept {
		if f.Kind == KindMultiPolygon {
			removed.MultiPolygons++
			removed.MultiPolyLabels = append(removed.MultiPolyLabels,
				fmt.Sprintf("%s / %s", f.displayName(), f.Classification.Name))
			continue
		}
		out = append(out, f)
	}
	return out, removed, nil
}

func simplifyShapes(features []*Feature) ([]Shape, error) {
	shapes := make([]Shape, 0, len(features))
	for _, f := range features {
		coords, err := ExtractCoordinates(SimplifyGeometry(f.Geometry(), SimplifyTolerance))
		if err != nil {
			return nil, fmt.Errorf("feature %s: %w", f.displayName(), err)
		}
		shapes = append(shapes, Shape{Feature: f, ClassName: f.Classification.Name, Coords: coords})
	}
	return shapes, nil
}

func reportFraction(report *Report, fraction float64) {
	if math.IsNaN(fraction) {
		report.Infof("calibration triangle intersection undefined: no Polygon or LineString annotations")
		return
	}
	report.Infof("%.2f%% of polygons are within the calibration triangle", fraction*100)
	if fraction < LowIntersectFraction {
		report.Warnf("less than 25%% of the objects intersect with the calibration triangle, polygons will most likely be warped, consider changing the calibration points")
	}
}

func anyNamed(features []*Feature) bool {
	for _, f := range features {
		if f.HasName {
			return true
		}
	}
	return false
}

func pointNames(features []*Feature) []string {
	var names []string
	for _, f := range features {
		if f.Kind == KindPoint && f.HasName {
			names = append(names, f.Name)
		}
	}
	return names
}

// formatKindCounts renders "3 Polygons, 3 Points", most frequent first.
func formatKindCounts(counts map[string]int) string {
	kinds := make([]string, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool {
		if counts[kinds[i]] == counts[kinds[j]] {
			return kinds[i] < kinds[j]
		}
		return counts[kinds[i]] > counts[kinds[j]]
	})
	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = fmt.Sprintf("%d %ss", counts[k], k)
	}
	return strings.Join(parts, ", ")
}
