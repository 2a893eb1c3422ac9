package lmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStats(t *testing.T) {
	c, err := NewCollection(testCalibration)
	require.NoError(t, err)

	empty, err := c.Stats()
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Shapes)

	require.NoError(t, c.NewShape([]orb.Point{{0, 0}, {1, 1}}, "C5"))
	require.NoError(t, c.NewShape([]orb.Point{{0, 0}, {1, 1}, {2, 0}}, "C3"))
	require.NoError(t, c.NewShape([]orb.Point{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}, "C3"))
	require.NoError(t, c.NewShape([]orb.Point{{0, 0}, {4, 4}, {2, 0}}, ""))

	st, err := c.Stats()
	require.NoError(t, err)
	assert.Equal(t, 4, st.Shapes)
	assert.Equal(t, 13, st.TotalVertices)
	assert.InDelta(t, 3.25, st.MeanVertices, 1e-9)
	assert.InDelta(t, 3.0, st.MedianVertices, 1e-9)
	assert.Equal(t, 2.0, st.MinVertices)
	assert.Equal(t, 5.0, st.MaxVertices)
	assert.Equal(t, []string{"C3", "C5"}, st.Wells)
	assert.Equal(t, map[string]int{"C3": 2, "C5": 1}, st.ShapesPerWell)

	text := st.String()
	assert.Contains(t, text, "===== Collection Stats =====")
	assert.Contains(t, text, "Number of shapes: 4")
	assert.Contains(t, text, "  C3: 2 shapes")
}

func TestPlot(t *testing.T) {
	c, err := NewCollection(testCalibration)
	require.NoError(t, err)
	require.NoError(t, c.SetOrientationTransform(FlipY()))
	require.NoError(t, c.NewShape([]orb.Point{{0, 0}, {1, 0}, {1, 1}, {0, 0}}, "C3"))
	require.NoError(t, c.NewShape([]orb.Point{{2, 2}, {3, 3}}, ""))

	path := filepath.Join(t.TempDir(), "collection.png")
	require.NoError(t, c.Plot(path))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestWritePlotPNG(t *testing.T) {
	c, err := NewCollection(testCalibration)
	require.NoError(t, err)
	require.NoError(t, c.NewShape([]orb.Point{{0, 0}, {1, 1}}, "C3"))

	var buf bytes.Buffer
	require.NoError(t, c.WritePlot(&buf, "png"))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")))

	require.Error(t, c.WritePlot(&buf, "nope"))
}
