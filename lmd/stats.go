package lmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/montanaflynn/stats"
)

// Stats summarises a collection.
type Stats struct {
	Shapes         int
	TotalVertices  int
	MeanVertices   float64
	MedianVertices float64
	MinVertices    float64
	MaxVertices    float64
	Wells          []string
	ShapesPerWell  map[string]int
}

// Stats computes vertex and well statistics over the registered shapes.
func (c *Collection) Stats() (Stats, error) {
	st := Stats{Shapes: len(c.shapes), ShapesPerWell: make(map[string]int)}
	if len(c.shapes) == 0 {
		return st, nil
	}
	counts := make(stats.Float64Data, 0, len(c.shapes))
	for _, s := range c.shapes {
		counts = append(counts, float64(len(s.Points)))
		st.TotalVertices += len(s.Points)
		if s.Well != "" {
			st.ShapesPerWell[s.Well]++
		}
	}
	var err error
	if st.MeanVertices, err = stats.Mean(counts); err != nil {
		return st, fmt.Errorf("mean vertices: %w", err)
	}
	if st.MedianVertices, err = stats.Median(counts); err != nil {
		return st, fmt.Errorf("median vertices: %w", err)
	}
	if st.MinVertices, err = stats.Min(counts); err != nil {
		return st, fmt.Errorf("min vertices: %w", err)
	}
	if st.MaxVertices, err = stats.Max(counts); err != nil {
		return st, fmt.Errorf("max vertices: %w", err)
	}
	for w := range st.ShapesPerWell {
		st.Wells = append(st.Wells, w)
	}
	sort.Strings(st.Wells)
	return st, nil
}

func (s Stats) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "===== Collection Stats =====\n")
	fmt.Fprintf(&b, "Number of shapes: %d\n", s.Shapes)
	fmt.Fprintf(&b, "Number of vertices: %d\n", s.TotalVertices)
	fmt.Fprintf(&b, "Mean vertices: %.1f\n", s.MeanVertices)
	fmt.Fprintf(&b, "Median vertices: %.1f\n", s.MedianVertices)
	fmt.Fprintf(&b, "Min vertices: %.0f\n", s.MinVertices)
	fmt.Fprintf(&b, "Max vertices: %.0f\n", s.MaxVertices)
	fmt.Fprintf(&b, "Wells used: %d\n", len(s.Wells))
	for _, w := range s.Wells {
		fmt.Fprintf(&b, "  %s: %d shapes\n", w, s.ShapesPerWell[w])
	}
	return b.String()
}
