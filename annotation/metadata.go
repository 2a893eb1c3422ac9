package annotation

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/csimplestring/go-csv/detector"
	"github.com/paulmach/orb/geojson"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"opendvp/qupath2lmd/internal/atomicfile"
)

// Palette is the colour cycle assigned to metadata categories.
var Palette = [][3]int{
	{31, 119, 180},
	{255, 127, 14},
	{44, 160, 44},
	{214, 39, 40},
	{148, 103, 189},
}

// MetadataTable is a parsed metadata CSV.
type MetadataTable struct {
	Header []string
	Rows   [][]string
}

func utf8Reader(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
}

// DetectDelimiter returns the most likely field separator of a CSV sample.
func DetectDelimiter(sample []byte) rune {
	d := detector.New()
	delimiters := d.DetectDelimiter(bytes.NewReader(sample), '"')
	if len(delimiters) > 0 && delimiters[0] != "" {
		return rune(delimiters[0][0])
	}
	return ','
}

// ReadMetadataCSV reads a delimited table with a header row. The delimiter is
// sniffed and a UTF-8 byte order mark is ignored.
func ReadMetadataCSV(r io.Reader) (*MetadataTable, error) {
	data, err := io.ReadAll(utf8Reader(r))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCSVParse, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrCSVParse)
	}
	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = DetectDelimiter(data)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCSVParse, err)
	}
	header := make([]string, len(rows[0]))
	for i, cell := range rows[0] {
		header[i] = strings.TrimSpace(cleanCell(cell))
	}
	return &MetadataTable{Header: header, Rows: rows[1:]}, nil
}

// Column returns the index of a header name.
func (t *MetadataTable) Column(name string) (int, error) {
	for i, h := range t.Header {
		if h == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: column %q not found (columns: %s)", ErrCSVParse, name, quoteJoin(t.Header))
}

// Values returns a column, with missing cells as "".
func (t *MetadataTable) Values(col int) []string {
	out := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		if col < len(row) {
			out[i] = row[col]
		}
	}
	return out
}

// ColumnChoice describes a header for column pickers.
type ColumnChoice struct {
	Index int
	Name  string
	Label string
}

// ColumnChoices lists every header with its first non-empty value.
func (t *MetadataTable) ColumnChoices() []ColumnChoice {
	choices := make([]ColumnChoice, 0, len(t.Header))
	for col, h := range t.Header {
		label := fmt.Sprintf("[%d] %s", col+1, h)
		if sample := t.columnSample(col); sample != "" {
			label = fmt.Sprintf("%s (e.g. %s)", label, sample)
		}
		choices = append(choices, ColumnChoice{Index: col, Name: h, Label: label})
	}
	return choices
}

func (t *MetadataTable) columnSample(col int) string {
	for _, v := range t.Values(col) {
		if v = strings.TrimSpace(v); v != "" {
			return truncateSample(v, 20)
		}
	}
	return ""
}

func truncateSample(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "…"
}

var nameColumnCandidates = []string{"class", "class name", "classname", "classification", "name", "sample"}

// DetectNameColumn guesses which header holds the shape class names.
// Returns "" when nothing matches.
func (t *MetadataTable) DetectNameColumn() string {
	for _, c := range nameColumnCandidates {
		for _, h := range t.Header {
			if strings.EqualFold(strings.TrimSpace(h), c) {
				return h
			}
		}
	}
	return ""
}

// CheckIDs verifies that every classification name appears in the metadata
// name column (whitespace stripped).
func CheckIDs(classNames []string, table *MetadataTable, nameKey string) error {
	col, err := table.Column(nameKey)
	if err != nil {
		return err
	}
	known := make(map[string]struct{})
	for _, v := range table.Values(col) {
		known[strings.TrimSpace(v)] = struct{}{}
	}
	var unmatched, overlap []string
	seen := make(map[string]struct{})
	for _, n := range classNames {
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		if _, ok := known[n]; ok {
			overlap = append(overlap, n)
		} else {
			unmatched = append(unmatched, n)
		}
	}
	if len(unmatched) == 0 {
		return nil
	}
	sort.Strings(unmatched)
	sort.Strings(overlap)
	return &UnmatchedNamesError{Unmatched: unmatched, Overlapping: overlap}
}

// Categories returns the distinct non-empty values, sorted numerically when
// every value is a number and lexically otherwise.
func Categories(values []string) []string {
	seen := make(map[string]struct{})
	var cats []string
	numeric := true
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		cats = append(cats, v)
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			numeric = false
		}
	}
	if numeric {
		sort.SliceStable(cats, func(i, j int) bool {
			a, _ := strconv.ParseFloat(cats[i], 64)
			b, _ := strconv.ParseFloat(cats[j], 64)
			return a < b
		})
	} else {
		sort.Strings(cats)
	}
	return cats
}

// CategoryColors assigns palette colours to categories in order, cycling.
func CategoryColors(categories []string) map[string][3]int {
	colors := make(map[string][3]int, len(categories))
	for i, c := range categories {
		colors[c] = Palette[i%len(Palette)]
	}
	return colors
}

// LabelFeatures joins metadata onto cleaned features by classification name.
// Each returned feature is a copy whose classification becomes the metadata
// value with its category colour, whose name becomes the former class name
// and whose id is dropped. The input features are not modified.
func LabelFeatures(features []*Feature, table *MetadataTable, nameKey, valueKey string, report *Report) ([]*Feature, error) {
	if report == nil {
		report = NewReport(nil)
	}
	nameCol, err := table.Column(nameKey)
	if err != nil {
		return nil, err
	}
	valueCol, err := table.Column(valueKey)
	if err != nil {
		return nil, err
	}
	classNames := make([]string, 0, len(features))
	for _, f := range features {
		name, err := f.ClassificationName()
		if err != nil {
			return nil, fmt.Errorf("feature %s: %w", f.displayName(), err)
		}
		classNames = append(classNames, name)
	}
	if err := CheckIDs(classNames, table, nameKey); err != nil {
		return nil, err
	}
	report.Infof("all shape names are found in the metadata")

	names := table.Values(nameCol)
	values := table.Values(valueCol)
	mapping := make(map[string]string, len(names))
	for i, n := range names {
		n = strings.TrimSpace(n)
		v := strings.TrimSpace(values[i])
		if prev, ok := mapping[n]; ok {
			if prev != v {
				report.Warnf("metadata name %q appears more than once with different values, keeping %q", n, prev)
			}
			continue
		}
		mapping[n] = v
	}
	colors := CategoryColors(Categories(values))

	out := make([]*Feature, 0, len(features))
	for i, f := range features {
		value := mapping[classNames[i]]
		color, ok := colors[value]
		if !ok {
			return nil, fmt.Errorf("%w: class %q has no %s value", ErrCSVParse, classNames[i], valueKey)
		}
		cls := &Classification{Name: value, Color: []int{color[0], color[1], color[2]}}
		raw := &geojson.Feature{
			Type:       f.Raw.Type,
			BBox:       f.Raw.BBox,
			Geometry:   f.Raw.Geometry,
			Properties: f.Raw.Properties.Clone(),
		}
		delete(raw.Properties, "id")
		raw.Properties["classification"] = cls.Map()
		raw.Properties["name"] = classNames[i]
		out = append(out, &Feature{
			Raw:            raw,
			Name:           classNames[i],
			HasName:        true,
			Kind:           f.Kind,
			Classification: cls,
		})
	}
	return out, nil
}

// LabelledPath derives the output name for labelled shapes.
func LabelledPath(outDir, inputName, valueKey string) string {
	base := strings.TrimSuffix(filepath.Base(inputName), filepath.Ext(inputName))
	return filepath.Join(outDir, fmt.Sprintf("%s_%s_labelled_shapes.geojson", base, valueKey))
}

// WriteFeatures writes features as a GeoJSON FeatureCollection.
func WriteFeatures(path string, features []*Feature) error {
	data, err := MarshalFeatures(features)
	if err != nil {
		return err
	}
	return atomicfile.Write(path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// IsUnmatched extracts the unmatched names from err.
func IsUnmatched(err error) (*UnmatchedNamesError, bool) {
	var target *UnmatchedNamesError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}
