package annotation

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const xyzGeoJSON = `{"type":"FeatureCollection","features":[
  {"type":"Feature","id":"u1","geometry":{"type":"Polygon","coordinates":[[[0,0],[4,0],[4,4],[0,0]]]},"properties":{"id":"u1","classification":{"name":"x"}}},
  {"type":"Feature","id":"u2","geometry":{"type":"Polygon","coordinates":[[[5,5],[9,5],[9,9],[5,5]]]},"properties":{"classification":{"name":"y"}}},
  {"type":"Feature","id":"u3","geometry":{"type":"LineString","coordinates":[[0,0],[3,3]]},"properties":{"name":"old","classification":"{'name': 'z'}"}},
  {"type":"Feature","geometry":{"type":"Point","coordinates":[1,1]},"properties":{"name":"calib1"}}
]}`

func cleanedXYZ(t *testing.T) []*Feature {
	t.Helper()
	features, err := CleanFeatures(mustParse(t, xyzGeoJSON))
	require.NoError(t, err)
	require.Len(t, features, 3)
	return features
}

func TestReadMetadataCSV(t *testing.T) {
	tests := map[string]string{
		"comma":     "class,status\nx,done\ny,todo\n",
		"semicolon": "class;status\nx;done\ny;todo\n",
		"tab":       "class\tstatus\nx\tdone\ny\ttodo\n",
		"bom":       "\ufeffclass,status\nx,done\ny,todo\n",
	}
	for name, text := range tests {
		t.Run(name, func(t *testing.T) {
			table, err := ReadMetadataCSV(strings.NewReader(text))
			require.NoError(t, err)
			assert.Equal(t, []string{"class", "status"}, table.Header)
			require.Len(t, table.Rows, 2)
			assert.Equal(t, []string{"x", "done"}, table.Rows[0])
		})
	}
}

func TestReadMetadataCSVErrors(t *testing.T) {
	_, err := ReadMetadataCSV(strings.NewReader(""))
	require.ErrorIs(t, err, ErrCSVParse)
	_, err = ReadMetadataCSV(strings.NewReader("a,b\n\"x,1\n"))
	require.ErrorIs(t, err, ErrCSVParse)

	table, err := ReadMetadataCSV(strings.NewReader("a,b\n1,2\n"))
	require.NoError(t, err)
	_, err = table.Column("missing")
	require.ErrorIs(t, err, ErrCSVParse)
}

func TestCheckIDs(t *testing.T) {
	table, err := ReadMetadataCSV(strings.NewReader("name,v\n x ,1\ny,2\nz,3\nw,4\n"))
	require.NoError(t, err)
	require.NoError(t, CheckIDs([]string{"x", "y", "z"}, table, "name"))

	partial, err := ReadMetadataCSV(strings.NewReader("name,v\nx,1\ny,2\n"))
	require.NoError(t, err)
	err = CheckIDs([]string{"x", "y", "z", "z"}, partial, "name")
	require.ErrorIs(t, err, ErrUnmatchedNames)
	var unmatched *UnmatchedNamesError
	require.True(t, errors.As(err, &unmatched))
	assert.Equal(t, []string{"z"}, unmatched.Unmatched)
	assert.Equal(t, []string{"x", "y"}, unmatched.Overlapping)
	assert.Contains(t, err.Error(), `"z"`)
}

func TestCategories(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, Categories([]string{"c", "a", " b", "a", ""}))
	assert.Equal(t, []string{"2", "10", "100"}, Categories([]string{"10", "2", "100", "2"}))
}

func TestCategoryColorsCycle(t *testing.T) {
	cats := []string{"c1", "c2", "c3", "c4", "c5", "c6", "c7"}
	colors := CategoryColors(cats)
	assert.Equal(t, colors["c1"], colors["c6"])
	assert.Equal(t, colors["c2"], colors["c7"])
	assert.NotEqual(t, colors["c1"], colors["c2"])
	assert.Equal(t, Palette[0], colors["c1"])
}

func TestLabelFeatures(t *testing.T) {
	features := cleanedXYZ(t)
	table, err := ReadMetadataCSV(strings.NewReader("Class name;Status\nx;collected\ny;pending\nz;collected\nw;pending\nx;pending\n"))
	require.NoError(t, err)
	report := NewReport(nil)
	labelled, err := LabelFeatures(features, table, "Class name", "Status", report)
	require.NoError(t, err)
	require.Len(t, labelled, 3)

	collected := []int{Palette[0][0], Palette[0][1], Palette[0][2]}
	pending := []int{Palette[1][0], Palette[1][1], Palette[1][2]}
	assert.Equal(t, &Classification{Name: "collected", Color: collected}, labelled[0].Classification)
	assert.Equal(t, &Classification{Name: "pending", Color: pending}, labelled[1].Classification)
	assert.Equal(t, "collected", labelled[2].Classification.Name)

	assert.Equal(t, "x", labelled[0].Raw.Properties["name"])
	assert.Equal(t, "z", labelled[2].Raw.Properties["name"])
	assert.NotContains(t, labelled[0].Raw.Properties, "id")
	assert.Nil(t, labelled[0].Raw.ID)

	require.Len(t, report.Warnings, 1)
	assert.Contains(t, report.Warnings[0], `"x"`)

	// the input keeps its original classification
	assert.Equal(t, "x", features[0].Classification.Name)
	assert.Contains(t, features[0].Raw.Properties, "id")
}

func TestLabelFeaturesUnmatched(t *testing.T) {
	table, err := ReadMetadataCSV(strings.NewReader("name,v\nx,1\ny,2\n"))
	require.NoError(t, err)
	_, err = LabelFeatures(cleanedXYZ(t), table, "name", "v", nil)
	unmatched, ok := IsUnmatched(err)
	require.True(t, ok)
	assert.Equal(t, []string{"z"}, unmatched.Unmatched)
}

func TestWriteLabelledFeatures(t *testing.T) {
	table, err := ReadMetadataCSV(strings.NewReader("name,v\nx,1\ny,2\nz,1\n"))
	require.NoError(t, err)
	labelled, err := LabelFeatures(cleanedXYZ(t), table, "name", "v", nil)
	require.NoError(t, err)

	dir := t.TempDir()
	path := LabelledPath(dir, "slide.geojson", "v")
	assert.Equal(t, filepath.Join(dir, "slide_v_labelled_shapes.geojson"), path)
	require.NoError(t, WriteFeatures(path, labelled))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc struct {
		Type     string `json:"type"`
		Features []struct {
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "FeatureCollection", doc.Type)
	require.Len(t, doc.Features, 3)
	cls := doc.Features[1].Properties["classification"].(map[string]any)
	assert.Equal(t, "2", cls["name"])
	assert.Equal(t, []any{255.0, 127.0, 14.0}, cls["color"])

	back := mustParse(t, string(data))
	require.Len(t, back, 3)
	assert.Equal(t, "y", back[1].Name)
}

func TestColumnChoices(t *testing.T) {
	table, err := ReadMetadataCSV(strings.NewReader("Class name,Status\n,\nx,a very long status value here\n"))
	require.NoError(t, err)
	choices := table.ColumnChoices()
	require.Len(t, choices, 2)
	assert.Equal(t, ColumnChoice{Index: 0, Name: "Class name", Label: "[1] Class name (e.g. x)"}, choices[0])
	assert.Equal(t, "[2] Status (e.g. a very long status v…)", choices[1].Label)
	assert.Equal(t, "Class name", table.DetectNameColumn())

	other, err := ReadMetadataCSV(strings.NewReader("id,value\n1,2\n"))
	require.NoError(t, err)
	assert.Equal(t, "", other.DetectNameColumn())
}
