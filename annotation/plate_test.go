package annotation

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPlateLayout(t *testing.T) {
	sw, err := ParseSampleWells(`{"a":"C3","b":"D10"}`)
	require.NoError(t, err)
	plate, err := NewPlateLayout(sw)
	require.NoError(t, err)

	var want PlateLayout
	want.Cells[2][2] = "a"
	want.Cells[3][9] = "b"
	if diff := cmp.Diff(want, *plate); diff != "" {
		t.Errorf("plate mismatch (-want +got):\n%s", diff)
	}

	empty := 0
	for _, row := range plate.Cells {
		for _, cell := range row {
			if cell == "" {
				empty++
			}
		}
	}
	assert.Equal(t, 382, empty)

	got, err := plate.At("D10")
	require.NoError(t, err)
	assert.Equal(t, "b", got)
}

func TestParseWell(t *testing.T) {
	row, col, err := ParseWell("P24")
	require.NoError(t, err)
	assert.Equal(t, 15, row)
	assert.Equal(t, 23, col)

	for _, label := range []string{"", "C", "c3", "Q1", "A0", "A25", "AB", "ZZ99", "3C", "A1.5"} {
		t.Run(label, func(t *testing.T) {
			_, _, err := ParseWell(label)
			require.ErrorIs(t, err, ErrInvalidWellLabel)
		})
	}
}

func TestNewPlateLayoutInvalidWell(t *testing.T) {
	sw, err := ParseSampleWells(`{"a":"C3","b":"ZZ99"}`)
	require.NoError(t, err)
	_, err = NewPlateLayout(sw)
	require.ErrorIs(t, err, ErrInvalidWellLabel)
	assert.Contains(t, err.Error(), `"b"`)
}

func TestPlateLayoutWriteCSV(t *testing.T) {
	sw, err := ParseSampleWells(`{"x":"A1","y":"P24"}`)
	require.NoError(t, err)
	plate, err := NewPlateLayout(sw)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, plate.WriteCSV(&buf))
	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, PlateRows+1)
	assert.Equal(t, "", records[0][0])
	assert.Equal(t, "1", records[0][1])
	assert.Equal(t, "24", records[0][24])
	assert.Equal(t, []string{"A", "x"}, records[1][:2])
	assert.Equal(t, "P", records[16][0])
	assert.Equal(t, "y", records[16][24])
	for _, r := range records {
		assert.Len(t, r, PlateColumns+1)
	}
}

func TestPlateLayoutSaveCSV(t *testing.T) {
	sw, err := ParseSampleWells(`{"x":"B2"}`)
	require.NoError(t, err)
	plate, err := NewPlateLayout(sw)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "plate.csv")
	require.NoError(t, plate.SaveCSV(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\nB,,x,")
}
