package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"opendvp/qupath2lmd/annotation"
)

const usage = `Usage: %s <command> [options]

Commands:
  check     load and check a geojson file
  wells     check a samples and wells scheme against a geojson file
  contours  create the LMD xml, plate scheme and preview
  classes   create classes.json for QuPath
  scheme    create a samples and wells scheme with default wells
  label     colour shapes with a metadata column

`

type cliOptions struct {
	command    string
	configPath string
	outputDir  string
	geojson    string
	calib      string
	wells      string
	wellsFile  string
	scale      float64
	first      string
	second     string
	replicates int
	metadata   string
	nameKey    string
	valueKey   string
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		log.Fatalf("qupath2lmd-cli: %v", err)
	}
	if err := run(opts, log.New(os.Stdout, "", log.LstdFlags)); err != nil {
		log.Fatalf("qupath2lmd-cli: %v", err)
	}
}

func parseFlags(args []string) (cliOptions, error) {
	var opts cliOptions
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		fmt.Fprintf(os.Stderr, usage, filepath.Base(os.Args[0]))
		return opts, errors.New("missing command")
	}
	opts.command = args[0]
	fs := flag.NewFlagSet(opts.command, flag.ContinueOnError)
	fs.StringVar(&opts.configPath, "config", "", "Path to config.json (default: ./config.json)")
	fs.StringVar(&opts.outputDir, "output-dir", "", "Directory for written files (default from config)")

	switch opts.command {
	case "check", "wells", "contours", "label":
		fs.StringVar(&opts.geojson, "geojson", "", "GeoJSON file exported from QuPath")
	}
	switch opts.command {
	case "check", "contours":
		fs.StringVar(&opts.calib, "calib", "", "Comma separated calibration point names (default from config)")
	}
	switch opts.command {
	case "wells", "contours":
		fs.StringVar(&opts.wells, "wells", "", `Samples and wells mapping, e.g. {"sample_1":"C3"}`)
		fs.StringVar(&opts.wellsFile, "wells-file", "", "File holding the mapping (.json/.txt) or a sample,well CSV")
	}
	switch opts.command {
	case "contours":
		fs.Float64Var(&opts.scale, "scale", 0, "Device units per coordinate unit (default from config)")
	case "classes", "scheme":
		fs.StringVar(&opts.first, "first", "", "First categorical (comma separated)")
		fs.StringVar(&opts.second, "second", "", "Second categorical (comma separated)")
		fs.IntVar(&opts.replicates, "replicates", 0, "Number of replicates (default from config)")
	case "label":
		fs.StringVar(&opts.metadata, "metadata", "", "CSV with class names and a categorical column")
		fs.StringVar(&opts.nameKey, "name-column", "", "Column header with shape class names")
		fs.StringVar(&opts.valueKey, "value-column", "", "Column header to colour shapes with")
	case "check", "wells":
	default:
		fmt.Fprintf(os.Stderr, usage, filepath.Base(os.Args[0]))
		return opts, fmt.Errorf("unknown command %q", opts.command)
	}
	if err := fs.Parse(args[1:]); err != nil {
		return opts, err
	}

	opts.geojson = strings.TrimSpace(opts.geojson)
	opts.metadata = strings.TrimSpace(opts.metadata)
	switch opts.command {
	case "check", "wells", "contours", "label":
		if opts.geojson == "" {
			fs.Usage()
			return opts, errors.New("missing required --geojson file")
		}
	}
	if (opts.command == "wells" || opts.command == "contours") && opts.wells == "" && opts.wellsFile == "" {
		fs.Usage()
		return opts, errors.New("missing --wells or --wells-file")
	}
	if opts.command == "label" && (opts.metadata == "" || opts.nameKey == "" || opts.valueKey == "") {
		fs.Usage()
		return opts, errors.New("label needs --metadata, --name-column and --value-column")
	}
	return opts, nil
}

func run(opts cliOptions, logger *log.Logger) error {
	cfg, err := annotation.LoadConfig(opts.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.outputDir != "" {
		cfg.OutputDir = opts.outputDir
	}
	if names := annotation.SplitList(opts.calib); len(names) > 0 {
		if len(names) != 3 {
			return fmt.Errorf("--calib needs 3 names, got %d", len(names))
		}
		cfg.CalibrationNames = names
	}
	if opts.scale > 0 {
		cfg.Scale = opts.scale
	}
	if opts.replicates <= 0 {
		opts.replicates = cfg.Replicates
	}
	svc := annotation.NewService(cfg, logger)

	switch opts.command {
	case "check":
		data, err := os.ReadFile(opts.geojson)
		if err != nil {
			return fmt.Errorf("read geojson: %w", err)
		}
		res, err := svc.CheckGeoJSON(data)
		if err != nil {
			return err
		}
		fmt.Printf("%d shapes passed the check (%d warnings)\n", len(res.Shapes), len(res.Report.Warnings))
	case "wells":
		data, text, err := readWellsInputs(opts, svc)
		if err != nil {
			return err
		}
		sw, report, err := svc.CheckSampleWells(data, text)
		if err != nil {
			return err
		}
		fmt.Printf("%d samples checked (%d warnings)\n", sw.Len(), len(report.Warnings))
	case "contours":
		data, text, err := readWellsInputs(opts, svc)
		if err != nil {
			return err
		}
		out, _, err := svc.CreateContours(data, filepath.Base(opts.geojson), text)
		if err != nil {
			return err
		}
		fmt.Print(out.Stats.String())
		fmt.Printf("Wrote %s, %s and %s\n", out.XML, out.Plate, out.Plot)
	case "classes":
		path, names, err := svc.CreateClassList(opts.first, opts.second, opts.replicates)
		if err != nil {
			return err
		}
		fmt.Printf("Wrote %d classes to %s\n", len(names), path)
	case "scheme":
		out, err := svc.CreateDefaultScheme(opts.first, opts.second, opts.replicates)
		if err != nil {
			return err
		}
		fmt.Printf("Wrote %d samples to %s and %s\n", out.Scheme.Len(), out.JSON, out.CSV)
	case "label":
		data, err := os.ReadFile(opts.geojson)
		if err != nil {
			return fmt.Errorf("read geojson: %w", err)
		}
		csvData, err := os.ReadFile(opts.metadata)
		if err != nil {
			return fmt.Errorf("read metadata: %w", err)
		}
		path, _, err := svc.LabelShapes(data, filepath.Base(opts.geojson), csvData, opts.nameKey, opts.valueKey)
		if err != nil {
			return err
		}
		fmt.Printf("Wrote labelled shapes to %s\n", path)
	}
	return nil
}

// readWellsInputs returns the geojson bytes and the mapping text, importing
// CSV mappings when --wells-file ends in .csv.
func readWellsInputs(opts cliOptions, svc *annotation.Service) ([]byte, string, error) {
	data, err := os.ReadFile(opts.geojson)
	if err != nil {
		return nil, "", fmt.Errorf("read geojson: %w", err)
	}
	if opts.wells != "" {
		return data, opts.wells, nil
	}
	if strings.EqualFold(filepath.Ext(opts.wellsFile), ".csv") {
		text, err := svc.ImportSampleWellsCSV(opts.wellsFile)
		return data, text, err
	}
	f, err := os.Open(opts.wellsFile)
	if err != nil {
		return nil, "", fmt.Errorf("open wells file: %w", err)
	}
	defer f.Close()
	text, err := io.ReadAll(f)
	if err != nil {
		return nil, "", fmt.Errorf("read wells file: %w", err)
	}
	return data, string(text), nil
}
