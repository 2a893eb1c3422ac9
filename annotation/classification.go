package annotation

import (
	"fmt"
	"math"
	"strings"
)

// ResolveClassification turns the polymorphic classification property into
// its canonical form. QuPath writes either an object or, after a round trip
// through other tools, the same object encoded as a string. A nil value means
// the annotation is unclassified and yields (nil, nil).
func ResolveClassification(value any) (*Classification, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return classificationFromMap(v)
	case string:
		text := strings.TrimSpace(v)
		if text == "" {
			return nil, fmt.Errorf("%w: empty string", ErrMalformedClassification)
		}
		var decoded map[string]any
		if err := decodeLiteral(text, &decoded); err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrMalformedClassification, v, err)
		}
		return classificationFromMap(decoded)
	default:
		return nil, fmt.Errorf("%w: unexpected %T", ErrMalformedClassification, value)
	}
}

func classificationFromMap(m map[string]any) (*Classification, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: not an object", ErrMalformedClassification)
	}
	name, ok := m["name"].(string)
	if !ok {
		return nil, fmt.Errorf("%w: missing name", ErrMalformedClassification)
	}
	c := &Classification{Name: name}
	if raw, ok := m["color"].([]any); ok {
		for _, ch := range raw {
			if f, ok := ch.(float64); ok {
				c.Color = append(c.Color, int(math.Round(f)))
			}
		}
	}
	return c, nil
}

// Map returns the classification as a GeoJSON property value.
func (c Classification) Map() map[string]any {
	m := map[string]any{"name": c.Name}
	if len(c.Color) > 0 {
		color := make([]any, len(c.Color))
		for i, ch := range c.Color {
			color[i] = ch
		}
		m["color"] = color
	}
	return m
}
