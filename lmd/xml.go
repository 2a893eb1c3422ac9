package lmd

import (
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"strconv"

	"opendvp/qupath2lmd/internal/atomicfile"
)

// WriteXML encodes the collection in the device format: an ImageData root
// holding calibration points and one Shape_i element per shape. Coordinates
// are transformed, scaled and floored to integers.
func (c *Collection) WriteXML(w io.Writer) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")

	root := xml.StartElement{Name: xml.Name{Local: "ImageData"}}
	if err := enc.EncodeToken(root); err != nil {
		return err
	}
	if err := encodeValue(enc, "GlobalCoordinates", "1"); err != nil {
		return err
	}
	for i, p := range c.transformPoints(c.calibration, c.scale) {
		id := strconv.Itoa(i + 1)
		if err := encodeValue(enc, "X_CalibrationPoint_"+id, floorString(p[0])); err != nil {
			return err
		}
		if err := encodeValue(enc, "Y_CalibrationPoint_"+id, floorString(p[1])); err != nil {
			return err
		}
	}
	if err := encodeValue(enc, "ShapeCount", strconv.Itoa(len(c.shapes))); err != nil {
		return err
	}
	for i, s := range c.shapes {
		if err := c.encodeShape(enc, i+1, s); err != nil {
			return fmt.Errorf("encode shape %d: %w", i+1, err)
		}
	}
	if err := enc.EncodeToken(root.End()); err != nil {
		return err
	}
	if err := enc.Flush(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func (c *Collection) encodeShape(enc *xml.Encoder, id int, s Shape) error {
	start := xml.StartElement{Name: xml.Name{Local: "Shape_" + strconv.Itoa(id)}}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	if err := encodeValue(enc, "PointCount", strconv.Itoa(len(s.Points))); err != nil {
		return err
	}
	if s.Well != "" {
		if err := encodeValue(enc, "CapID", s.Well); err != nil {
			return err
		}
	}
	for j, p := range c.transformPoints(s.Points, c.scale) {
		n := strconv.Itoa(j + 1)
		if err := encodeValue(enc, "X_"+n, floorString(p[0])); err != nil {
			return err
		}
		if err := encodeValue(enc, "Y_"+n, floorString(p[1])); err != nil {
			return err
		}
	}
	return enc.EncodeToken(start.End())
}

func encodeValue(enc *xml.Encoder, name, value string) error {
	return enc.EncodeElement(value, xml.StartElement{Name: xml.Name{Local: name}})
}

func floorString(v float64) string {
	return strconv.FormatInt(int64(math.Floor(v)), 10)
}

// Save writes the XML file to path, replacing any existing file.
func (c *Collection) Save(path string) error {
	return atomicfile.Write(path, c.WriteXML)
}
