package lmd

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

var testCalibration = []orb.Point{{0, 0}, {1, 0}, {0, 1}}

func TestNewCollectionNeedsThreePoints(t *testing.T) {
	_, err := NewCollection(testCalibration[:2])
	require.ErrorIs(t, err, ErrCalibrationPoints)

	c, err := NewCollection(testCalibration)
	require.NoError(t, err)
	assert.Equal(t, DefaultScale, c.Scale())
	assert.True(t, mat.Equal(mat.NewDense(2, 2, []float64{1, 0, 0, 1}), c.OrientationTransform()))
}

func TestCollectionSetters(t *testing.T) {
	c, err := NewCollection(testCalibration)
	require.NoError(t, err)
	require.Error(t, c.SetScale(0))
	require.NoError(t, c.SetScale(20))
	assert.Equal(t, 20.0, c.Scale())

	require.Error(t, c.SetOrientationTransform(mat.NewDense(3, 3, nil)))
	require.NoError(t, c.SetOrientationTransform(FlipY()))
	assert.True(t, mat.Equal(FlipY(), c.OrientationTransform()))
}

func TestAddShapeCopiesPoints(t *testing.T) {
	c, err := NewCollection(testCalibration)
	require.NoError(t, err)
	require.ErrorIs(t, c.NewShape([]orb.Point{{1, 1}}, ""), ErrEmptyShape)

	pts := []orb.Point{{1, 1}, {2, 2}}
	require.NoError(t, c.NewShape(pts, "C3"))
	pts[0] = orb.Point{9, 9}
	shapes := c.Shapes()
	require.Len(t, shapes, 1)
	assert.Equal(t, orb.Point{1, 1}, shapes[0].Points[0])
	assert.Equal(t, "C3", shapes[0].Well)
}

func TestTransformPoints(t *testing.T) {
	c, err := NewCollection(testCalibration)
	require.NoError(t, err)
	require.NoError(t, c.SetOrientationTransform(FlipY()))
	got := c.transformPoints([]orb.Point{{1.5, 2.25}, {-0.5, -1}}, 2)
	assert.Equal(t, []orb.Point{{3, -4.5}, {-1, 2}}, got)
	assert.Nil(t, c.transformPoints(nil, 1))
}
