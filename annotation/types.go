package annotation

import (
	"fmt"
	"log"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Geometry kinds as reported by GeoJSON.
const (
	KindPoint        = "Point"
	KindPolygon      = "Polygon"
	KindLineString   = "LineString"
	KindMultiPolygon = "MultiPolygon"
	KindNone         = "None"
)

// Classification is the canonical form of a QuPath class attached to an annotation.
type Classification struct {
	Name  string `json:"name"`
	Color []int  `json:"color,omitempty"`
}

// Feature is one annotation of a loaded GeoJSON feature collection.
type Feature struct {
	Raw     *geojson.Feature
	Name    string
	HasName bool
	Kind    string

	// Classification is nil when the feature is unclassified.
	Classification *Classification
	// classErr holds the resolution failure of a present but unreadable classification.
	classErr error
}

// Geometry returns the feature geometry (nil for null geometries).
func (f *Feature) Geometry() orb.Geometry {
	if f == nil || f.Raw == nil {
		return nil
	}
	return f.Raw.Geometry
}

// Classified reports whether the feature carries a classification value.
func (f *Feature) Classified() bool {
	return f.Classification != nil || f.classErr != nil
}

// ClassificationName returns the resolved class name or an error for unreadable classifications.
func (f *Feature) ClassificationName() (string, error) {
	if f.classErr != nil {
		return "", f.classErr
	}
	if f.Classification == nil {
		return "", nil
	}
	return f.Classification.Name, nil
}

func (c *Classification) clone() *Classification {
	if c == nil {
		return nil
	}
	return &Classification{Name: c.Name, Color: append([]int(nil), c.Color...)}
}

// clone copies the feature including its geometry and nested properties.
func (f *Feature) clone() *Feature {
	if f == nil {
		return nil
	}
	out := *f
	out.Classification = f.Classification.clone()
	if f.Raw != nil {
		raw := *f.Raw
		raw.BBox = append(geojson.BBox(nil), f.Raw.BBox...)
		if f.Raw.Geometry != nil {
			raw.Geometry = orb.Clone(f.Raw.Geometry)
		}
		raw.Properties = cloneProperties(f.Raw.Properties)
		out.Raw = &raw
	}
	return &out
}

func cloneProperties(p geojson.Properties) geojson.Properties {
	if p == nil {
		return nil
	}
	out := make(geojson.Properties, len(p))
	for k, v := range p {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[k] = cloneValue(e)
		}
		return m
	case geojson.Properties:
		return cloneProperties(t)
	case []any:
		s := make([]any, len(t))
		for i, e := range t {
			s[i] = cloneValue(e)
		}
		return s
	default:
		return v
	}
}

// displayName is used in user facing reports.
func (f *Feature) displayName() string {
	if f.HasName && f.Name != "" {
		return f.Name
	}
	if f.Raw != nil && f.Raw.ID != nil {
		return fmt.Sprint(f.Raw.ID)
	}
	return "(unnamed)"
}

// Report collects the user facing messages of one action.
type Report struct {
	Infos    []string
	Warnings []string
	Errors   []string

	logger *log.Logger
}

// NewReport creates a report that mirrors every entry to logger (which may be nil).
func NewReport(logger *log.Logger) *Report {
	return &Report{logger: logger}
}

// Infof records an informational message.
func (r *Report) Infof(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	r.Infos = append(r.Infos, msg)
	r.logf("[INFO] %s", msg)
}

// Warnf records a non-fatal warning.
func (r *Report) Warnf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	r.Warnings = append(r.Warnings, msg)
	r.logf("[WARN] %s", msg)
}

// Errorf records an error that does not abort the action.
func (r *Report) Errorf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	r.Errors = append(r.Errors, msg)
	r.logf("[ERROR] %s", msg)
}

func (r *Report) logf(format string, args ...any) {
	if r.logger != nil {
		r.logger.Printf(format, args...)
	}
}
