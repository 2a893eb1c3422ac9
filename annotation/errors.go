package annotation

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnsupportedGeometryKind is returned for geometries other than Polygon and LineString.
	ErrUnsupportedGeometryKind = errors.New("unsupported geometry kind")
	// ErrMissingNameColumn is returned when no feature in the GeoJSON carries a name.
	ErrMissingNameColumn = errors.New("no name column found")
	// ErrMalformedClassification is returned when a classification cannot be resolved to a name.
	ErrMalformedClassification = errors.New("malformed classification")
	// ErrMalformedMapping is returned when the samples and wells text is not a flat string mapping.
	ErrMalformedMapping = errors.New("malformed samples and wells mapping")
	// ErrInvalidWellLabel is returned for well labels outside the 384 well plate grid.
	ErrInvalidWellLabel = errors.New("invalid well label")
	// ErrCSVParse is returned when a metadata table cannot be read.
	ErrCSVParse = errors.New("csv parse error")
	// ErrUnmatchedNames is returned when annotation classes are missing from the metadata table.
	ErrUnmatchedNames = errors.New("unmatched names")
	// ErrMissingCalibrationPoint is returned when a calibration point name does not resolve to a Point.
	ErrMissingCalibrationPoint = errors.New("missing calibration point")
	// ErrDuplicateCalibrationPoint is returned when a calibration point name resolves to several Points.
	ErrDuplicateCalibrationPoint = errors.New("duplicate calibration point")
)

// UnmatchedNamesError lists the classification names absent from the metadata.
type UnmatchedNamesError struct {
	Unmatched   []string
	Overlapping []string
}

func (e *UnmatchedNamesError) Error() string {
	return fmt.Sprintf("%v: %s were not found in the metadata (overlapping names: %s)",
		ErrUnmatchedNames, quoteJoin(e.Unmatched), quoteJoin(e.Overlapping))
}

// Is reports ErrUnmatchedNames so callers can match with errors.Is.
func (e *UnmatchedNamesError) Is(target error) bool {
	return target == ErrUnmatchedNames
}

func quoteJoin(values []string) string {
	if len(values) == 0 {
		return "none"
	}
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = fmt.Sprintf("%q", v)
	}
	return strings.Join(quoted, ", ")
}
