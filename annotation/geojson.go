package annotation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/paulmach/orb/geojson"
)

// LoadFeatureCollection reads GeoJSON from r.
func LoadFeatureCollection(r io.Reader) ([]*Feature, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read geojson: %w", err)
	}
	return ParseFeatures(data)
}

// LoadFeatureFile reads GeoJSON from a file on disk.
func LoadFeatureFile(path string) ([]*Feature, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read geojson: %w", err)
	}
	return ParseFeatures(data)
}

// ParseFeatures decodes a FeatureCollection, a bare array of features or a
// single feature. Names and classifications are resolved here; a malformed
// classification is kept on the feature and only reported when the
// classification name is needed.
func ParseFeatures(data []byte) ([]*Feature, error) {
	raw, err := decodeFeatures(data)
	if err != nil {
		return nil, err
	}
	out := make([]*Feature, 0, len(raw))
	for _, f := range raw {
		out = append(out, newFeature(f))
	}
	return out, nil
}

func decodeFeatures(data []byte) ([]*geojson.Feature, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("decode geojson: empty input")
	}
	if trimmed[0] == '[' {
		var features []*geojson.Feature
		if err := json.Unmarshal(trimmed, &features); err != nil {
			return nil, fmt.Errorf("decode geojson: %w", err)
		}
		return features, nil
	}
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(trimmed, &head); err != nil {
		return nil, fmt.Errorf("decode geojson: %w", err)
	}
	if head.Type == "Feature" {
		f, err := geojson.UnmarshalFeature(trimmed)
		if err != nil {
			return nil, fmt.Errorf("decode geojson: %w", err)
		}
		return []*geojson.Feature{f}, nil
	}
	fc, err := geojson.UnmarshalFeatureCollection(trimmed)
	if err != nil {
		return nil, fmt.Errorf("decode geojson: %w", err)
	}
	return fc.Features, nil
}

func newFeature(raw *geojson.Feature) *Feature {
	if raw.Properties == nil {
		raw.Properties = geojson.Properties{}
	}
	f := &Feature{Raw: raw, Kind: geometryKind(raw.Geometry)}
	if v, ok := raw.Properties["name"]; ok && v != nil {
		f.HasName = true
		if s, ok := v.(string); ok {
			f.Name = s
		} else {
			f.Name = fmt.Sprint(v)
		}
	}
	if v, ok := raw.Properties["classification"]; ok && v != nil {
		f.Classification, f.classErr = ResolveClassification(v)
	}
	return f
}

// MarshalFeatures encodes features as a FeatureCollection.
func MarshalFeatures(features []*Feature) ([]byte, error) {
	fc := geojson.NewFeatureCollection()
	for _, f := range features {
		fc.Append(f.Raw)
	}
	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode geojson: %w", err)
	}
	return data, nil
}

// CountKinds returns how many features carry each geometry kind.
func CountKinds(features []*Feature) map[string]int {
	counts := make(map[string]int)
	for _, f := range features {
		counts[f.Kind]++
	}
	return counts
}
