package annotation

import (
	"bytes"
	"log"
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckGeoJSON(t *testing.T) {
	var logs bytes.Buffer
	report := NewReport(log.New(&logs, "", 0))
	res, err := CheckGeoJSON(mustParse(t, sampleGeoJSON), DefaultCalibrationNames, report)
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"Point": 3, "Polygon": 3, "LineString": 1, "MultiPolygon": 1}, res.KindCounts)
	assert.Empty(t, res.MissingCalibPts)
	assert.InDelta(t, 0.5, res.IntersectFraction, 1e-9)
	assert.True(t, res.FractionDefined())

	assert.Equal(t, 3, res.Removed.Points)
	assert.Equal(t, 1, res.Removed.Unclassified)
	assert.Equal(t, 1, res.Removed.MultiPolygons)
	assert.Equal(t, []string{"multi / c"}, res.Removed.MultiPolyLabels)

	require.Len(t, res.Shapes, 3)
	var classes []string
	for _, s := range res.Shapes {
		classes = append(classes, s.ClassName)
	}
	assert.Equal(t, []string{"a", "b", "a"}, classes)
	assert.Equal(t, []orb.Point{{-10, 50}, {60, 50}}, res.Shapes[2].Coords)

	assert.Contains(t, report.Infos, "Geometries: 3 Points, 3 Polygons, 1 LineStrings, 1 MultiPolygons")
	assert.Len(t, report.Warnings, 2)
	assert.Contains(t, logs.String(), "[WARN] 1 unclassified objects")
}

func TestCheckGeoJSONMissingNames(t *testing.T) {
	doc := `{"type":"FeatureCollection","features":[
	  {"type":"Feature","geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]},"properties":{"classification":{"name":"a"}}}
	]}`
	_, err := CheckGeoJSON(mustParse(t, doc), DefaultCalibrationNames, nil)
	require.ErrorIs(t, err, ErrMissingNameColumn)
}

func TestCheckGeoJSONMissingCalibrationIsSoft(t *testing.T) {
	report := NewReport(nil)
	res, err := CheckGeoJSON(mustParse(t, sampleGeoJSON), []string{"calib1", "calib2", "nope"}, report)
	require.NoError(t, err)
	assert.Equal(t, []string{"nope"}, res.MissingCalibPts)
	assert.False(t, res.FractionDefined())
	require.NotEmpty(t, report.Errors)
	assert.Contains(t, report.Errors[0], `"nope"`)
	assert.Len(t, res.Shapes, 3)
}

func TestCheckGeoJSONNoShapesLeavesFractionUndefined(t *testing.T) {
	doc := `{"type":"FeatureCollection","features":[
	  {"type":"Feature","geometry":{"type":"Point","coordinates":[0,0]},"properties":{"name":"calib1"}},
	  {"type":"Feature","geometry":{"type":"Point","coordinates":[1,0]},"properties":{"name":"calib2"}},
	  {"type":"Feature","geometry":{"type":"Point","coordinates":[0,1]},"properties":{"name":"calib3"}}
	]}`
	report := NewReport(nil)
	res, err := CheckGeoJSON(mustParse(t, doc), DefaultCalibrationNames, report)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(res.IntersectFraction))
	assert.Empty(t, report.Warnings)
	assert.Empty(t, res.Shapes)
}

func TestCheckGeoJSONLowFractionWarns(t *testing.T) {
	doc := `{"type":"FeatureCollection","features":[
	  {"type":"Feature","geometry":{"type":"Point","coordinates":[0,0]},"properties":{"name":"calib1"}},
	  {"type":"Feature","geometry":{"type":"Point","coordinates":[1,0]},"properties":{"name":"calib2"}},
	  {"type":"Feature","geometry":{"type":"Point","coordinates":[0,1]},"properties":{"name":"calib3"}},
	  {"type":"Feature","geometry":{"type":"Polygon","coordinates":[[[50,50],[60,50],[60,60],[50,50]]]},"properties":{"classification":{"name":"a"}}}
	]}`
	report := NewReport(nil)
	res, err := CheckGeoJSON(mustParse(t, doc), DefaultCalibrationNames, report)
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.IntersectFraction)
	require.Len(t, report.Warnings, 1)
	assert.Contains(t, report.Warnings[0], "less than 25%")
}

func TestCheckGeoJSONMalformedClassificationIsFatal(t *testing.T) {
	doc := `{"type":"FeatureCollection","features":[
	  {"type":"Feature","geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]},"properties":{"name":"x","classification":"{oops"}}
	]}`
	_, err := CheckGeoJSON(mustParse(t, doc), DefaultCalibrationNames, nil)
	require.ErrorIs(t, err, ErrMalformedClassification)
}

func TestCheckGeoJSONMalformedClassificationOnPointIgnored(t *testing.T) {
	doc := `{"type":"FeatureCollection","features":[
	  {"type":"Feature","geometry":{"type":"Point","coordinates":[0,0]},"properties":{"name":"calib1","classification":"{oops"}},
	  {"type":"Feature","geometry":{"type":"Polygon","coordinates":[[[0,0],[4,0],[4,4],[0,0]]]},"properties":{"classification":{"name":"a"}}}
	]}`
	res, err := CheckGeoJSON(mustParse(t, doc), DefaultCalibrationNames, nil)
	require.NoError(t, err)
	assert.Len(t, res.Shapes, 1)
}

func TestCheckGeoJSONUnsupportedRemainingKind(t *testing.T) {
	doc := `{"type":"FeatureCollection","features":[
	  {"type":"Feature","geometry":{"type":"MultiLineString","coordinates":[[[0,0],[1,1]]]},"properties":{"name":"m","classification":{"name":"a"}}}
	]}`
	_, err := CheckGeoJSON(mustParse(t, doc), DefaultCalibrationNames, nil)
	require.ErrorIs(t, err, ErrUnsupportedGeometryKind)
}

func TestCleanFeaturesIdempotent(t *testing.T) {
	once, err := CleanFeatures(mustParse(t, sampleGeoJSON))
	require.NoError(t, err)
	require.Len(t, once, 3)
	twice, err := CleanFeatures(append([]*Feature(nil), once...))
	require.NoError(t, err)
	assert.Equal(t, once, twice)
	for _, f := range twice {
		name, err := f.ClassificationName()
		require.NoError(t, err)
		assert.NotEmpty(t, name)
		assert.Contains(t, []string{KindPolygon, KindLineString}, f.Kind)
	}
}

func TestParseFeaturesVariants(t *testing.T) {
	single := `{"type":"Feature","geometry":{"type":"Point","coordinates":[1,2]},"properties":{"name":"calib1"}}`
	features := mustParse(t, single)
	require.Len(t, features, 1)
	assert.Equal(t, "calib1", features[0].Name)

	array := `[` + single + `,` + single + `]`
	assert.Len(t, mustParse(t, array), 2)

	_, err := ParseFeatures([]byte("  "))
	require.Error(t, err)
	_, err = ParseFeatures([]byte("{not json"))
	require.Error(t, err)
}
