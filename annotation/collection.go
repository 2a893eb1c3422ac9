package annotation

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"opendvp/qupath2lmd/internal/atomicfile"
	"opendvp/qupath2lmd/lmd"
)

// ContourOutputs are the files written by BuildCollection.
type ContourOutputs struct {
	XML   string
	Plate string
	Plot  string
	Stats lmd.Stats
}

// ContourPaths derives the output file names from the input GeoJSON name.
func ContourPaths(outDir, inputName string) ContourOutputs {
	base := strings.TrimSuffix(filepath.Base(inputName), filepath.Ext(inputName))
	return ContourOutputs{
		XML:   filepath.Join(outDir, base+".xml"),
		Plate: filepath.Join(outDir, base+"_384_wellplate.csv"),
		Plot:  filepath.Join(outDir, base+"_collection.png"),
	}
}

// BuildCollection assembles the mapped shapes into an LMD collection with
// the Y axis flipped. Classes absent from the mapping are left out.
func BuildCollection(features []*Feature, calibNames []string, sw *SampleWells, scale float64, report *Report) (*lmd.Collection, error) {
	if report == nil {
		report = NewReport(nil)
	}
	calib, err := ResolveCalibrationPoints(features, calibNames)
	if err != nil {
		return nil, err
	}
	kept, err := CleanFeatures(features)
	if err != nil {
		return nil, err
	}
	shapes, err := simplifyShapes(kept)
	if err != nil {
		return nil, err
	}

	c, err := lmd.NewCollection(calib)
	if err != nil {
		return nil, err
	}
	if err := c.SetOrientationTransform(lmd.FlipY()); err != nil {
		return nil, err
	}
	if scale > 0 {
		if err := c.SetScale(scale); err != nil {
			return nil, err
		}
	}
	skipped := 0
	for _, s := range shapes {
		well, ok := sw.Lookup(s.ClassName)
		if !ok {
			skipped++
			continue
		}
		if err := c.AddShape(lmd.Shape{Points: s.Coords, Well: well, Name: s.ClassName}); err != nil {
			return nil, fmt.Errorf("feature %s: %w", s.Feature.displayName(), err)
		}
	}
	if skipped > 0 {
		report.Infof("%d shapes without a mapped class were not exported", skipped)
	}
	report.Infof("collection built with %d shapes", len(c.Shapes()))
	return c, nil
}

// WriteContours builds the collection and writes the XML, plate CSV and
// preview into outDir. The three files are committed together: on failure
// none of them is left behind.
func WriteContours(features []*Feature, calibNames []string, sw *SampleWells, scale float64, outDir, inputName string, report *Report) (ContourOutputs, error) {
	if report == nil {
		report = NewReport(nil)
	}
	out := ContourPaths(outDir, inputName)
	c, err := BuildCollection(features, calibNames, sw, scale, report)
	if err != nil {
		return out, err
	}
	plate, err := NewPlateLayout(sw)
	if err != nil {
		return out, err
	}
	st, err := c.Stats()
	if err != nil {
		return out, err
	}
	out.Stats = st
	report.Infof("%s", strings.TrimSpace(st.String()))

	var batch atomicfile.Batch
	err = batch.Add(out.Plot, func(w io.Writer) error { return c.WritePlot(w, "png") })
	if err == nil {
		err = batch.Add(out.XML, c.WriteXML)
	}
	if err == nil {
		err = batch.Add(out.Plate, plate.WriteCSV)
	}
	if err != nil {
		batch.Abort()
		return out, err
	}
	if err := batch.Commit(); err != nil {
		return out, err
	}
	report.Infof("contours written to %s", out.XML)
	return out, nil
}
