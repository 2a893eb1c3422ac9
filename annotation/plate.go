package annotation

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"opendvp/qupath2lmd/internal/atomicfile"
)

// Plate dimensions of a 384 well plate.
const (
	PlateRows    = 16
	PlateColumns = 24
)

// PlateLayout is the sample name placed in each well of a 384 well plate.
// Row 0 is A, column 0 is 1.
type PlateLayout struct {
	Cells [PlateRows][PlateColumns]string
}

// ParseWell splits a label like "C3" into zero based row and column indexes.
func ParseWell(label string) (row, col int, err error) {
	if len(label) < 2 || label[0] < 'A' || label[0] > 'A'+PlateRows-1 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidWellLabel, label)
	}
	n, err := strconv.Atoi(label[1:])
	if err != nil || n < 1 || n > PlateColumns {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidWellLabel, label)
	}
	return int(label[0] - 'A'), n - 1, nil
}

// NewPlateLayout places every mapped sample at its well.
func NewPlateLayout(sw *SampleWells) (*PlateLayout, error) {
	p := &PlateLayout{}
	for _, a := range sw.Assignments() {
		row, col, err := ParseWell(a.Well)
		if err != nil {
			return nil, fmt.Errorf("sample %q: %w", a.Sample, err)
		}
		p.Cells[row][col] = a.Sample
	}
	return p, nil
}

// At returns the sample at a well label, or "" when empty.
func (p *PlateLayout) At(well string) (string, error) {
	row, col, err := ParseWell(well)
	if err != nil {
		return "", err
	}
	return p.Cells[row][col], nil
}

// WriteCSV writes the grid with a ",1,...,24" header and one line per row letter.
func (p *PlateLayout) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	header := make([]string, PlateColumns+1)
	for c := 1; c <= PlateColumns; c++ {
		header[c] = strconv.Itoa(c)
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write plate header: %w", err)
	}
	for r := 0; r < PlateRows; r++ {
		record := make([]string, 0, PlateColumns+1)
		record = append(record, string(rune('A'+r)))
		record = append(record, p.Cells[r][:]...)
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write plate row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveCSV writes the grid to path.
func (p *PlateLayout) SaveCSV(path string) error {
	return atomicfile.Write(path, p.WriteCSV)
}
