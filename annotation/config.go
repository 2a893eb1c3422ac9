package annotation

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"opendvp/qupath2lmd/lmd"
)

const defaultConfigFile = "config.json"

// MetadataColumns remembers the last used metadata column headers.
type MetadataColumns struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Config aggregates runtime settings persisted to config.json.
type Config struct {
	CalibrationNames []string        `json:"calibrationNames"`
	OutputDir        string          `json:"outputDir"`
	Scale            float64         `json:"scale"`
	CacheTTLMinutes  int             `json:"cacheTtlMinutes"`
	Replicates       int             `json:"replicates"`
	Metadata         MetadataColumns `json:"metadata"`
}

// Clone creates a deep copy of the configuration so callers can mutate safely.
func (c Config) Clone() Config {
	out := c
	out.CalibrationNames = append([]string(nil), c.CalibrationNames...)
	return out
}

// ApplyDefaults populates zero values with sensible defaults.
func (c *Config) ApplyDefaults() {
	if len(c.CalibrationNames) != 3 {
		c.CalibrationNames = append([]string(nil), DefaultCalibrationNames...)
	}
	if c.OutputDir == "" {
		c.OutputDir = "."
	}
	if c.Scale <= 0 {
		c.Scale = lmd.DefaultScale
	}
	if c.CacheTTLMinutes <= 0 {
		c.CacheTTLMinutes = 30
	}
	if c.Replicates <= 0 {
		c.Replicates = 2
	}
}

// CacheTTL returns the lifetime of cached check results.
func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLMinutes) * time.Minute
}

// LoadConfig loads configuration from the given path or the default config.json.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		path = defaultConfigFile
	}
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg.ApplyDefaults()
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// SaveConfig persists configuration to disk.
func SaveConfig(path string, cfg Config) error {
	if path == "" {
		path = defaultConfigFile
	}
	tmp := path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	cfg.ApplyDefaults()
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp config: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename config: %w", err)
	}
	return nil
}
