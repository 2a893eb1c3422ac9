package app

import (
	"strings"
	"testing"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/test"
	"fyne.io/fyne/v2/widget"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opendvp/qupath2lmd/annotation"
	"opendvp/qupath2lmd/lmd"
)

func collect(obj fyne.CanvasObject, images *[]*canvas.Image, texts *[]string) {
	switch o := obj.(type) {
	case *fyne.Container:
		for _, child := range o.Objects {
			collect(child, images, texts)
		}
	case *container.Scroll:
		collect(o.Content, images, texts)
	case *canvas.Image:
		*images = append(*images, o)
	case *widget.Label:
		*texts = append(*texts, o.Text)
	}
}

func TestContourResultContent(t *testing.T) {
	test.NewTempApp(t)
	out := annotation.ContourOutputs{
		XML:   "/out/slide.xml",
		Plate: "/out/slide_384_wellplate.csv",
		Plot:  "/out/slide_collection.png",
		Stats: lmd.Stats{Shapes: 2, TotalVertices: 9, Wells: []string{"C3"}, ShapesPerWell: map[string]int{"C3": 2}},
	}
	report := annotation.NewReport(nil)
	report.Warnf("class %q has no well", "b")

	var images []*canvas.Image
	var texts []string
	collect(contourResultContent(out, report), &images, &texts)

	require.Len(t, images, 1)
	assert.Equal(t, out.Plot, images[0].File)
	all := strings.Join(texts, "\n")
	assert.Contains(t, all, "===== Collection Stats =====")
	assert.Contains(t, all, "Number of shapes: 2")
	assert.Contains(t, all, out.XML)
	assert.Contains(t, all, `class "b" has no well`)
}
