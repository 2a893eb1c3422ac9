package lmd

import (
	"fmt"
	"image/color"
	"io"
	"path/filepath"
	"strings"

	"github.com/paulmach/orb"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"opendvp/qupath2lmd/internal/atomicfile"
)

var wellColors = []color.Color{
	color.RGBA{R: 31, G: 119, B: 180, A: 255},
	color.RGBA{R: 255, G: 127, B: 14, A: 255},
	color.RGBA{R: 44, G: 160, B: 44, A: 255},
	color.RGBA{R: 214, G: 39, B: 40, A: 255},
	color.RGBA{R: 148, G: 103, B: 189, A: 255},
	color.RGBA{R: 140, G: 86, B: 75, A: 255},
	color.RGBA{R: 227, G: 119, B: 194, A: 255},
	color.RGBA{R: 127, G: 127, B: 127, A: 255},
}

// Plot renders the preview to path in the format named by its extension
// (png when there is none).
func (c *Collection) Plot(path string) error {
	format := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if format == "" {
		format = "png"
	}
	return atomicfile.Write(path, func(w io.Writer) error {
		return c.WritePlot(w, format)
	})
}

// WritePlot renders the transformed shapes, coloured per well, and the
// calibration points.
func (c *Collection) WritePlot(w io.Writer, format string) error {
	p := plot.New()
	p.Title.Text = "Collection"
	p.X.Label.Text = "x"
	p.Y.Label.Text = "y"

	wellIdx := make(map[string]int)
	for i, s := range c.shapes {
		line, err := plotter.NewLine(toXYs(c.transformPoints(s.Points, 1)))
		if err != nil {
			return fmt.Errorf("plot shape %d: %w", i+1, err)
		}
		idx, ok := wellIdx[s.Well]
		if !ok {
			idx = len(wellIdx)
			wellIdx[s.Well] = idx
			if s.Well != "" {
				p.Legend.Add(s.Well, line)
			}
		}
		line.Color = wellColors[idx%len(wellColors)]
		line.Width = vg.Points(1)
		p.Add(line)
	}

	calib, err := plotter.NewScatter(toXYs(c.transformPoints(c.calibration, 1)))
	if err != nil {
		return fmt.Errorf("plot calibration points: %w", err)
	}
	calib.GlyphStyle.Shape = draw.CrossGlyph{}
	calib.GlyphStyle.Radius = vg.Points(4)
	calib.GlyphStyle.Color = color.Black
	p.Add(calib)
	p.Legend.Add("calibration", calib)

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	wt, err := p.WriterTo(8*vg.Inch, 8*vg.Inch, format)
	if err != nil {
		return fmt.Errorf("render collection plot: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write collection plot: %w", err)
	}
	return nil
}

func toXYs(points []orb.Point) plotter.XYs {
	xys := make(plotter.XYs, len(points))
	for i, pt := range points {
		xys[i] = plotter.XY{X: pt[0], Y: pt[1]}
	}
	return xys
}
