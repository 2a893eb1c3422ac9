package annotation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"opendvp/qupath2lmd/internal/atomicfile"
)

// ClassColors are the QuPath class colours as RGB, used in this order.
var ClassColors = []int{
	0xFF0000, // red
	0x00FF00, // green
	0x0000FF, // blue
	0xFF00FF, // magenta
	0x00FFFF, // cyan
	0xFFFF00, // yellow
}

// PathClass is one entry of a QuPath classes.json file.
type PathClass struct {
	Name  string `json:"name"`
	Color int32  `json:"color"`
}

// ClassList is the content of a QuPath classes.json file.
type ClassList struct {
	PathClasses []PathClass `json:"pathClasses"`
}

// JavaColor packs an RGB value with full alpha into a signed 32 bit integer.
func JavaColor(rgb int) int32 {
	return int32(-(0x1000000 - rgb))
}

// GenerateCombinations returns "a_b_i" for every a in first, b in second and
// i in 1..replicates, in that nesting order.
func GenerateCombinations(first, second []string, replicates int) ([]string, error) {
	if len(first) == 0 {
		return nil, errors.New("first categorical list is empty")
	}
	if len(second) == 0 {
		return nil, errors.New("second categorical list is empty")
	}
	if replicates <= 0 {
		return nil, fmt.Errorf("number of replicates must be positive, got %d", replicates)
	}
	out := make([]string, 0, len(first)*len(second)*replicates)
	for _, a := range first {
		for _, b := range second {
			for i := 1; i <= replicates; i++ {
				out = append(out, a+"_"+b+"_"+strconv.Itoa(i))
			}
		}
	}
	return out, nil
}

// BuildClassList assigns the class colours to names, cycling.
func BuildClassList(names []string) ClassList {
	list := ClassList{PathClasses: make([]PathClass, len(names))}
	for i, n := range names {
		list.PathClasses[i] = PathClass{Name: n, Color: JavaColor(ClassColors[i%len(ClassColors)])}
	}
	return list
}

// WriteClassList writes classes.json with two space indentation.
func WriteClassList(path string, list ClassList) error {
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("encode class list: %w", err)
	}
	return atomicfile.Write(path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// DefaultSampleWells places samples on every second acceptable well (C3, C5, ...).
func DefaultSampleWells(samples []string) (*SampleWells, error) {
	var spaced []string
	for i, w := range AcceptableWells() {
		if i%2 == 0 {
			spaced = append(spaced, w)
		}
	}
	if len(samples) > len(spaced) {
		return nil, fmt.Errorf("%d samples do not fit in %d default wells", len(samples), len(spaced))
	}
	sw := &SampleWells{index: make(map[string]int, len(samples))}
	for i, s := range samples {
		sw.Set(s, spaced[i])
	}
	return sw, nil
}

// SplitList parses comma separated input, trimming entries and dropping empty ones.
func SplitList(input string) []string {
	var out []string
	for _, part := range strings.Split(norm.NFKC.String(input), ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
