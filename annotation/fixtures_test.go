package annotation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// sampleGeoJSON has three calibration points at (0,0), (100,0) and (0,100),
// two polygons and a line of class "a" and "b", a MultiPolygon, an
// unclassified polygon and a classification encoded as a Python literal.
const sampleGeoJSON = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "id": "p1", "geometry": {"type": "Point", "coordinates": [0, 0]}, "properties": {"name": "calib1"}},
    {"type": "Feature", "id": "p2", "geometry": {"type": "Point", "coordinates": [100, 0]}, "properties": {"name": "calib2"}},
    {"type": "Feature", "id": "p3", "geometry": {"type": "Point", "coordinates": [0, 100]}, "properties": {"name": "calib3"}},
    {"type": "Feature", "id": "f1",
     "geometry": {"type": "Polygon", "coordinates": [[[10, 10], [20, 10], [20, 20], [10, 20], [10, 10]]]},
     "properties": {"objectType": "annotation", "classification": {"name": "a", "color": [255, 0, 0]}}},
    {"type": "Feature", "id": "f2",
     "geometry": {"type": "Polygon", "coordinates": [[[500, 500], [510, 500], [510, 510], [500, 510], [500, 500]]]},
     "properties": {"objectType": "annotation", "classification": "{'name': 'b', 'color': (0, 255, 0)}"}},
    {"type": "Feature", "id": "f3",
     "geometry": {"type": "LineString", "coordinates": [[-10, 50], [60, 50]]},
     "properties": {"classification": {"name": "a"}}},
    {"type": "Feature", "id": "f4",
     "geometry": {"type": "MultiPolygon", "coordinates": [[[[1, 1], [2, 1], [2, 2], [1, 1]]]]},
     "properties": {"name": "multi", "classification": {"name": "c"}}},
    {"type": "Feature", "id": "f5",
     "geometry": {"type": "Polygon", "coordinates": [[[300, 300], [310, 300], [310, 310], [300, 300]]]},
     "properties": {"objectType": "annotation"}}
  ]
}`

func mustParse(t *testing.T, doc string) []*Feature {
	t.Helper()
	features, err := ParseFeatures([]byte(doc))
	require.NoError(t, err)
	return features
}
