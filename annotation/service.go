package annotation

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// Output file names of the helper actions.
const (
	ClassListFile      = "classes.json"
	SampleWellsFile    = "samples_and_wells.json"
	SampleWellsCSVFile = "samples_and_wells.csv"
)

// Service runs the user actions against one session.
type Service struct {
	cfgMu sync.RWMutex
	cfg   Config

	session *Session
	logger  *log.Logger
}

// NewService constructs a service with a fresh session.
func NewService(cfg Config, logger *log.Logger) *Service {
	cfg.ApplyDefaults()
	return &Service{
		cfg:     cfg,
		session: NewSession(cfg.CacheTTL()),
		logger:  logger,
	}
}

// Config returns a copy of the current configuration.
func (s *Service) Config() Config {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.cfg.Clone()
}

// UpdateConfig replaces the configuration.
func (s *Service) UpdateConfig(cfg Config) {
	cfg.ApplyDefaults()
	s.cfgMu.Lock()
	s.cfg = cfg
	s.cfgMu.Unlock()
}

// Session returns the session owning the cache.
func (s *Service) Session() *Session { return s.session }

func (s *Service) newReport() *Report { return NewReport(s.logger) }

// CheckGeoJSON loads and checks a GeoJSON document. Results are cached per
// session by content and calibration names.
func (s *Service) CheckGeoJSON(data []byte) (*CheckResult, error) {
	cfg := s.Config()
	key := s.session.key(data, append([]string{"check"}, cfg.CalibrationNames...)...)
	if res, ok := s.session.getCheck(key); ok {
		s.logf("[INFO] using cached check result (%d shapes)", len(res.Shapes))
		return res, nil
	}
	features, err := ParseFeatures(data)
	if err != nil {
		return nil, err
	}
	res, err := CheckGeoJSON(features, cfg.CalibrationNames, s.newReport())
	if err != nil {
		s.logf("[ERROR] %v", err)
		return nil, err
	}
	s.session.putCheck(key, res)
	return res, nil
}

// CheckSampleWells parses the samples and wells text and checks it against
// the classes of the GeoJSON document.
func (s *Service) CheckSampleWells(geojsonData []byte, text string) (*SampleWells, *Report, error) {
	sw, err := ParseSampleWells(text)
	if err != nil {
		s.logf("[ERROR] %v", err)
		return nil, nil, err
	}
	features, err := ParseFeatures(geojsonData)
	if err != nil {
		return nil, nil, err
	}
	kept, err := CleanFeatures(features)
	if err != nil {
		s.logf("[ERROR] %v", err)
		return nil, nil, err
	}
	report := s.newReport()
	CheckSampleWells(sw, kept, report)
	return sw, report, nil
}

// CreateContours writes the XML, plate CSV and preview for the GeoJSON document.
func (s *Service) CreateContours(geojsonData []byte, inputName, text string) (ContourOutputs, *Report, error) {
	cfg := s.Config()
	sw, err := ParseSampleWells(text)
	if err != nil {
		s.logf("[ERROR] %v", err)
		return ContourOutputs{}, nil, err
	}
	features, err := ParseFeatures(geojsonData)
	if err != nil {
		return ContourOutputs{}, nil, err
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return ContourOutputs{}, nil, fmt.Errorf("create output dir: %w", err)
	}
	report := s.newReport()
	out, err := WriteContours(features, cfg.CalibrationNames, sw, cfg.Scale, cfg.OutputDir, inputName, report)
	if err != nil {
		s.logf("[ERROR] %v", err)
		return out, report, err
	}
	return out, report, nil
}

// CreateClassList writes classes.json for the combinations of two comma
// separated lists and returns its path and the class names.
func (s *Service) CreateClassList(first, second string, replicates int) (string, []string, error) {
	cfg := s.Config()
	names, err := GenerateCombinations(SplitList(first), SplitList(second), replicates)
	if err != nil {
		return "", nil, err
	}
	path := filepath.Join(cfg.OutputDir, ClassListFile)
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return "", nil, fmt.Errorf("create output dir: %w", err)
	}
	if err := WriteClassList(path, BuildClassList(names)); err != nil {
		return "", nil, err
	}
	s.logf("[INFO] wrote %d classes to %s", len(names), path)
	return path, names, nil
}

// SchemeOutputs are the files written by CreateDefaultScheme.
type SchemeOutputs struct {
	JSON   string
	CSV    string
	Scheme *SampleWells
}

// CreateDefaultScheme maps the combinations of two comma separated lists onto
// the default wells and writes the scheme as JSON and CSV.
func (s *Service) CreateDefaultScheme(first, second string, replicates int) (SchemeOutputs, error) {
	cfg := s.Config()
	names, err := GenerateCombinations(SplitList(first), SplitList(second), replicates)
	if err != nil {
		return SchemeOutputs{}, err
	}
	sw, err := DefaultSampleWells(names)
	if err != nil {
		return SchemeOutputs{}, err
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return SchemeOutputs{}, fmt.Errorf("create output dir: %w", err)
	}
	out := SchemeOutputs{
		JSON:   filepath.Join(cfg.OutputDir, SampleWellsFile),
		CSV:    filepath.Join(cfg.OutputDir, SampleWellsCSVFile),
		Scheme: sw,
	}
	if err := WriteSampleWellsJSON(out.JSON, sw); err != nil {
		return out, err
	}
	if err := WriteSampleWellsCSV(out.CSV, sw); err != nil {
		return out, err
	}
	s.logf("[INFO] wrote samples and wells scheme for %d samples to %s", sw.Len(), out.JSON)
	return out, nil
}

// ImportSampleWellsCSV reads a sample,well table and renders it as mapping text.
func (s *Service) ImportSampleWellsCSV(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()
	sw, err := ReadSampleWellsCSV(f)
	if err != nil {
		return "", err
	}
	if sw.Len() == 0 {
		return "", errors.New("no samples found in " + filepath.Base(path))
	}
	text, err := sw.MarshalJSON()
	if err != nil {
		return "", err
	}
	s.logf("[INFO] imported %d samples from %s", sw.Len(), filepath.Base(path))
	return FormatSampleWells(text), nil
}

// LabelShapes joins the metadata CSV onto the GeoJSON document and writes
// the labelled shapes.
func (s *Service) LabelShapes(geojsonData []byte, inputName string, csvData []byte, nameKey, valueKey string) (string, *Report, error) {
	cfg := s.Config()
	features, err := ParseFeatures(geojsonData)
	if err != nil {
		return "", nil, err
	}
	report := s.newReport()
	report.Infof("GeoJSON loaded with %d features for metadata colouring", len(features))
	kept, err := CleanFeatures(features)
	if err != nil {
		s.logf("[ERROR] %v", err)
		return "", report, err
	}
	table, err := ReadMetadataCSV(bytes.NewReader(csvData))
	if err != nil {
		s.logf("[ERROR] %v", err)
		return "", report, err
	}
	labelled, err := LabelFeatures(kept, table, strings.TrimSpace(nameKey), strings.TrimSpace(valueKey), report)
	if err != nil {
		s.logf("[ERROR] %v", err)
		return "", report, err
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return "", report, fmt.Errorf("create output dir: %w", err)
	}
	path := LabelledPath(cfg.OutputDir, inputName, strings.TrimSpace(valueKey))
	if err := WriteFeatures(path, labelled); err != nil {
		return "", report, err
	}
	report.Infof("wrote %d labelled shapes to %s", len(labelled), path)
	return path, report, nil
}

// FormatSampleWells puts one sample per line, as users type the mapping.
func FormatSampleWells(compact []byte) string {
	sw, err := ParseSampleWells(string(compact))
	if err != nil {
		return string(compact)
	}
	var b strings.Builder
	b.WriteString("{")
	for i, a := range sw.Assignments() {
		if i > 0 {
			b.WriteString(",\n ")
		}
		b.WriteString(strconv.Quote(a.Sample))
		b.WriteString(": ")
		b.WriteString(strconv.Quote(a.Well))
	}
	b.WriteString("}")
	return b.String()
}

func (s *Service) logf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}
