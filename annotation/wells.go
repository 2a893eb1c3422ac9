package annotation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/gocarina/gocsv"

	"opendvp/qupath2lmd/internal/atomicfile"
)

const (
	// MaxWellWarnings is the number of per-well warnings before a single summary is emitted.
	MaxWellWarnings = 10
)

// Assignment places one sample in one well.
type Assignment struct {
	Sample string `csv:"sample" json:"sample"`
	Well   string `csv:"well" json:"well"`
}

// SampleWells is an ordered sample to well mapping.
type SampleWells struct {
	entries []Assignment
	index   map[string]int
}

// NewSampleWells builds a mapping from assignments. A repeated sample keeps
// its first position and takes the last well.
func NewSampleWells(assignments []Assignment) *SampleWells {
	sw := &SampleWells{index: make(map[string]int, len(assignments))}
	for _, a := range assignments {
		sw.Set(a.Sample, a.Well)
	}
	return sw
}

// Set assigns well to sample.
func (sw *SampleWells) Set(sample, well string) {
	if sw.index == nil {
		sw.index = make(map[string]int)
	}
	if i, ok := sw.index[sample]; ok {
		sw.entries[i].Well = well
		return
	}
	sw.index[sample] = len(sw.entries)
	sw.entries = append(sw.entries, Assignment{Sample: sample, Well: well})
}

// Lookup returns the well assigned to sample.
func (sw *SampleWells) Lookup(sample string) (string, bool) {
	if sw == nil {
		return "", false
	}
	i, ok := sw.index[sample]
	if !ok {
		return "", false
	}
	return sw.entries[i].Well, true
}

// Has reports whether sample is mapped.
func (sw *SampleWells) Has(sample string) bool {
	_, ok := sw.Lookup(sample)
	return ok
}

// Len returns the number of samples.
func (sw *SampleWells) Len() int {
	if sw == nil {
		return 0
	}
	return len(sw.entries)
}

// Assignments returns a copy of the entries in order.
func (sw *SampleWells) Assignments() []Assignment {
	if sw == nil {
		return nil
	}
	return append([]Assignment(nil), sw.entries...)
}

// Samples returns the sample names in order.
func (sw *SampleWells) Samples() []string {
	out := make([]string, 0, sw.Len())
	for _, a := range sw.Assignments() {
		out = append(out, a.Sample)
	}
	return out
}

// MarshalJSON writes a flat object preserving insertion order.
func (sw *SampleWells) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, a := range sw.Assignments() {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(a.Sample)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(a.Well)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

var trailingComma = regexp.MustCompile(`,\s*}$`)

// ParseSampleWells parses the samples and wells text, e.g. {"sample_1":"C3"}.
// Whitespace is removed, single quotes are accepted in place of double
// quotes and a trailing comma is tolerated. The result must be a flat object
// of strings. Nothing in the text is evaluated.
func ParseSampleWells(text string) (*SampleWells, error) {
	compact := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, text)
	if compact == "" {
		return nil, fmt.Errorf("%w: empty input", ErrMalformedMapping)
	}
	compact = trailingComma.ReplaceAllString(compact, "}")
	normalized, err := normalizeLiteral(compact)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMapping, err)
	}
	dec := json.NewDecoder(strings.NewReader(normalized))
	tok, err := dec.Token()
	if err != nil || tok != json.Delim('{') {
		return nil, fmt.Errorf("%w: expected an object like {\"sample_1\":\"C3\"}", ErrMalformedMapping)
	}
	sw := &SampleWells{index: make(map[string]int)}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedMapping, err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("%w: keys must be strings", ErrMalformedMapping)
		}
		valTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedMapping, err)
		}
		val, ok := valTok.(string)
		if !ok {
			return nil, fmt.Errorf("%w: well for %q must be a string", ErrMalformedMapping, key)
		}
		sw.Set(key, val)
	}
	if tok, err := dec.Token(); err != nil || tok != json.Delim('}') {
		return nil, fmt.Errorf("%w: unterminated object", ErrMalformedMapping)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing content after object", ErrMalformedMapping)
	}
	return sw, nil
}

// ReadSampleWellsCSV reads a two column sample,well table.
func ReadSampleWellsCSV(r io.Reader) (*SampleWells, error) {
	var rows []*Assignment
	if err := gocsv.Unmarshal(utf8Reader(r), &rows); err != nil {
		return nil, fmt.Errorf("%w: samples and wells: %v", ErrCSVParse, err)
	}
	assignments := make([]Assignment, 0, len(rows))
	for _, row := range rows {
		sample := strings.TrimSpace(cleanCell(row.Sample))
		if sample == "" {
			continue
		}
		assignments = append(assignments, Assignment{Sample: sample, Well: strings.TrimSpace(row.Well)})
	}
	return NewSampleWells(assignments), nil
}

// WriteSampleWellsCSV writes the mapping as a sample,well table.
func WriteSampleWellsCSV(path string, sw *SampleWells) error {
	rows := make([]*Assignment, 0, sw.Len())
	for _, a := range sw.Assignments() {
		a := a
		rows = append(rows, &a)
	}
	return atomicfile.Write(path, func(w io.Writer) error {
		return gocsv.Marshal(rows, w)
	})
}

// WriteSampleWellsJSON writes the mapping as samples_and_wells.json (indent 4).
func WriteSampleWellsJSON(path string, sw *SampleWells) error {
	compact, err := sw.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode samples and wells: %w", err)
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, compact, "", "    "); err != nil {
		return fmt.Errorf("encode samples and wells: %w", err)
	}
	return atomicfile.Write(path, func(w io.Writer) error {
		_, err := w.Write(buf.Bytes())
		return err
	})
}

// AcceptableWells lists the wells reachable by the collection protocol:
// rows C to N and columns 3 to 21, row major.
func AcceptableWells() []string {
	wells := make([]string, 0, 12*19)
	for row := 'C'; row <= 'N'; row++ {
		for col := 3; col <= 21; col++ {
			wells = append(wells, string(row)+strconv.Itoa(col))
		}
	}
	return wells
}

// CheckSampleWells warns about wells outside the acceptable region and about
// classification names missing from the mapping.
func CheckSampleWells(sw *SampleWells, features []*Feature, report *Report) {
	acceptable := make(map[string]struct{})
	for _, w := range AcceptableWells() {
		acceptable[w] = struct{}{}
	}
	bad := 0
	for _, a := range sw.Assignments() {
		if _, ok := acceptable[a.Well]; ok {
			continue
		}
		bad++
		if bad <= MaxWellWarnings {
			report.Warnf("well %s (%s) is not in the list of acceptable wells for the 384 well plate, please correct it", a.Well, a.Sample)
		}
	}
	if bad > MaxWellWarnings {
		report.Warnf("%d wells are outside the acceptable region, further warnings suppressed", bad)
	}

	seen := make(map[string]struct{})
	for _, f := range features {
		name, err := f.ClassificationName()
		if err != nil || !f.Classified() {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		if !sw.Has(name) {
			report.Warnf("class %q is not in the samples and wells mapping. "+
				"Option A: change the class name in QuPath. "+
				"Option B: add it to the samples and wells mapping. "+
				"Option C: ignore this, and these annotations will not be exported", name)
		}
	}
	report.Infof("samples and wells check complete: %d samples", sw.Len())
}

func cleanCell(s string) string {
	return strings.TrimPrefix(s, "\ufeff")
}
