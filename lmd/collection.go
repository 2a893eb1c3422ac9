// Package lmd models a laser microdissection shape collection and writes it
// in the device XML format.
package lmd

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"gonum.org/v1/gonum/mat"
)

// DefaultScale converts coordinate units to device units.
const DefaultScale = 100.0

var (
	// ErrCalibrationPoints is returned when the collection does not get exactly three calibration points.
	ErrCalibrationPoints = errors.New("collection needs exactly 3 calibration points")
	// ErrEmptyShape is returned for shapes with fewer than two points.
	ErrEmptyShape = errors.New("shape needs at least 2 points")
)

// Shape is one contour to cut, optionally routed to a collection well.
type Shape struct {
	Points []orb.Point
	Well   string
	Name   string
}

// Collection is the export ready bundle of calibration points, orientation
// transform and shapes.
type Collection struct {
	calibration []orb.Point
	transform   *mat.Dense
	scale       float64
	shapes      []Shape
}

// NewCollection creates a collection with the identity orientation transform.
func NewCollection(calibration []orb.Point) (*Collection, error) {
	if len(calibration) != 3 {
		return nil, fmt.Errorf("%w: got %d", ErrCalibrationPoints, len(calibration))
	}
	return &Collection{
		calibration: append([]orb.Point(nil), calibration...),
		transform:   mat.NewDense(2, 2, []float64{1, 0, 0, 1}),
		scale:       DefaultScale,
	}, nil
}

// FlipY is the orientation transform between a top left image origin and the device frame.
func FlipY() *mat.Dense {
	return mat.NewDense(2, 2, []float64{1, 0, 0, -1})
}

// SetOrientationTransform replaces the 2x2 transform applied to every point.
func (c *Collection) SetOrientationTransform(t mat.Matrix) error {
	r, cols := t.Dims()
	if r != 2 || cols != 2 {
		return fmt.Errorf("orientation transform must be 2x2, got %dx%d", r, cols)
	}
	c.transform = mat.DenseCopyOf(t)
	return nil
}

// OrientationTransform returns a copy of the current transform.
func (c *Collection) OrientationTransform() *mat.Dense {
	return mat.DenseCopyOf(c.transform)
}

// SetScale sets the device units per coordinate unit.
func (c *Collection) SetScale(scale float64) error {
	if scale <= 0 {
		return fmt.Errorf("scale must be positive, got %v", scale)
	}
	c.scale = scale
	return nil
}

// Scale returns the device units per coordinate unit.
func (c *Collection) Scale() float64 { return c.scale }

// NewShape appends a contour routed to well ("" for none).
func (c *Collection) NewShape(points []orb.Point, well string) error {
	return c.AddShape(Shape{Points: points, Well: well})
}

// AddShape appends a shape, copying its points.
func (c *Collection) AddShape(s Shape) error {
	if len(s.Points) < 2 {
		return fmt.Errorf("%w: got %d", ErrEmptyShape, len(s.Points))
	}
	s.Points = append([]orb.Point(nil), s.Points...)
	c.shapes = append(c.shapes, s)
	return nil
}

// Shapes returns the registered shapes.
func (c *Collection) Shapes() []Shape {
	return append([]Shape(nil), c.shapes...)
}

// CalibrationPoints returns the calibration points in order.
func (c *Collection) CalibrationPoints() []orb.Point {
	return append([]orb.Point(nil), c.calibration...)
}

// transformPoints returns points · T, multiplied by factor.
func (c *Collection) transformPoints(points []orb.Point, factor float64) []orb.Point {
	if len(points) == 0 {
		return nil
	}
	data := make([]float64, 0, 2*len(points))
	for _, p := range points {
		data = append(data, p[0], p[1])
	}
	in := mat.NewDense(len(points), 2, data)
	var out mat.Dense
	out.Mul(in, c.transform)
	out.Scale(factor, &out)
	res := make([]orb.Point, len(points))
	for i := range res {
		res[i] = orb.Point{out.At(i, 0), out.At(i, 1)}
	}
	return res
}
