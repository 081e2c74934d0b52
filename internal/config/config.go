// Package config loads the classifier run configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

const maxFileSize = 1 * 1024 * 1024 // 1MB

// Config represents the root run configuration. Pointer fields are
// optional; the Get* methods supply defaults for anything omitted, so
// partial configs are safe.
type Config struct {
	// InputDirs are searched, non-recursively, for *.las files. The first
	// LAS file of the first directory is the output header template.
	InputDirs []string `json:"input_dirs" yaml:"input_dirs"`

	Store *StoreConfig `json:"store,omitempty" yaml:"store,omitempty"`

	// Output is a directory or an s3://bucket/prefix location.
	Output *string   `json:"output,omitempty" yaml:"output,omitempty"`
	S3     *S3Config `json:"s3,omitempty" yaml:"s3,omitempty"`

	// Classifier params
	HeightMaxM              *float64 `json:"height_max_m,omitempty" yaml:"height_max_m,omitempty"`
	GroundHeightThresholdM  *float64 `json:"ground_height_threshold_m,omitempty" yaml:"ground_height_threshold_m,omitempty"`
	GroundAngleThresholdDeg *float64 `json:"ground_angle_threshold_deg,omitempty" yaml:"ground_angle_threshold_deg,omitempty"`

	Workers   *int `json:"workers,omitempty" yaml:"workers,omitempty"` // 0 means one per CPU
	BatchSize *int `json:"batch_size,omitempty" yaml:"batch_size,omitempty"`

	MetricsTextfile *string `json:"metrics_textfile,omitempty" yaml:"metrics_textfile,omitempty"`
	ReportDir       *string `json:"report_dir,omitempty" yaml:"report_dir,omitempty"`
}

// StoreConfig selects and locates the point store.
type StoreConfig struct {
	Driver *string `json:"driver,omitempty" yaml:"driver,omitempty"`
	Path   *string `json:"path,omitempty" yaml:"path,omitempty"`
	DSN    *string `json:"dsn,omitempty" yaml:"dsn,omitempty"`
}

// S3Config configures the S3 output sink. Credentials come from the
// standard AWS environment.
type S3Config struct {
	Region    string `json:"region,omitempty" yaml:"region,omitempty"`
	Endpoint  string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	PathStyle bool   `json:"path_style,omitempty" yaml:"path_style,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// Load reads a Config from a .json, .yaml or .yml file no larger than 1MB
// and validates it.
func Load(path string) (*Config, error) {
	cfg, err := read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Overrides are command-line values that take precedence over the file.
type Overrides struct {
	InputDirs []string
	Output    string
}

// Resolve reads path (when set), applies o and validates the result. An
// empty path starts from defaults, so flags alone can configure a run.
func Resolve(path string, o Overrides) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		var err error
		if cfg, err = read(path); err != nil {
			return nil, err
		}
	}
	if len(o.InputDirs) > 0 {
		cfg.InputDirs = o.InputDirs
	}
	if o.Output != "" {
		cfg.Output = ptrString(o.Output)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func read(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(cleanPath))
	switch ext {
	case ".json", ".yaml", ".yml":
	default:
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if ext == ".json" {
		err = json.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", cleanPath, err)
	}
	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *Config) Validate() error {
	if len(c.InputDirs) == 0 {
		return fmt.Errorf("input_dirs must name at least one directory")
	}
	for i, d := range c.InputDirs {
		if strings.TrimSpace(d) == "" {
			return fmt.Errorf("input_dirs[%d] is empty", i)
		}
	}

	switch c.GetStoreDriver() {
	case DriverSQLite, DriverMemory:
	case DriverPostgres:
		if c.GetStoreDSN() == "" {
			return fmt.Errorf("store.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("store.driver must be sqlite, postgres or memory, got %q", c.GetStoreDriver())
	}

	if c.HeightMaxM != nil && *c.HeightMaxM <= 0 {
		return fmt.Errorf("height_max_m must be positive, got %f", *c.HeightMaxM)
	}
	if c.GroundHeightThresholdM != nil && *c.GroundHeightThresholdM <= 0 {
		return fmt.Errorf("ground_height_threshold_m must be positive, got %f", *c.GroundHeightThresholdM)
	}
	if c.GroundAngleThresholdDeg != nil {
		if v := *c.GroundAngleThresholdDeg; v <= 0 || v > 90 {
			return fmt.Errorf("ground_angle_threshold_deg must be in (0, 90], got %f", v)
		}
	}
	if c.Workers != nil && *c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", *c.Workers)
	}
	if c.BatchSize != nil && *c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive, got %d", *c.BatchSize)
	}
	return nil
}

// GetStoreDriver returns store.driver or the default (sqlite).
func (c *Config) GetStoreDriver() string {
	if c.Store == nil || c.Store.Driver == nil || *c.Store.Driver == "" {
		return DriverSQLite
	}
	return strings.ToLower(*c.Store.Driver)
}

// GetStorePath returns store.path or the default.
func (c *Config) GetStorePath() string {
	if c.Store == nil || c.Store.Path == nil || *c.Store.Path == "" {
		return "lidar-classify.db"
	}
	return *c.Store.Path
}

// GetStoreDSN returns store.dsn, which has no default.
func (c *Config) GetStoreDSN() string {
	if c.Store == nil || c.Store.DSN == nil {
		return ""
	}
	return *c.Store.DSN
}

// GetOutput returns the output location or the working directory.
func (c *Config) GetOutput() string {
	if c.Output == nil || *c.Output == "" {
		return "."
	}
	return *c.Output
}

// GetS3 returns the S3 settings, zero if unset.
func (c *Config) GetS3() S3Config {
	if c.S3 == nil {
		return S3Config{}
	}
	return *c.S3
}

// GetHeightMaxM returns height_max_m or the default.
func (c *Config) GetHeightMaxM() float64 {
	if c.HeightMaxM == nil {
		return 20
	}
	return *c.HeightMaxM
}

// GetGroundHeightThresholdM returns ground_height_threshold_m or the default.
func (c *Config) GetGroundHeightThresholdM() float64 {
	if c.GroundHeightThresholdM == nil {
		return 1.5
	}
	return *c.GroundHeightThresholdM
}

// GetGroundAngleThresholdDeg returns ground_angle_threshold_deg or the default.
func (c *Config) GetGroundAngleThresholdDeg() float64 {
	if c.GroundAngleThresholdDeg == nil {
		return 5.5
	}
	return *c.GroundAngleThresholdDeg
}

// GetWorkers returns the classifier worker count, one per CPU when unset
// or zero.
func (c *Config) GetWorkers() int {
	if c.Workers == nil || *c.Workers == 0 {
		return runtime.NumCPU()
	}
	return *c.Workers
}

// GetBatchSize returns batch_size or the default.
func (c *Config) GetBatchSize() int {
	if c.BatchSize == nil {
		return 10000
	}
	return *c.BatchSize
}

// GetMetricsTextfile returns metrics_textfile; empty disables export.
func (c *Config) GetMetricsTextfile() string {
	if c.MetricsTextfile == nil {
		return ""
	}
	return *c.MetricsTextfile
}

// GetReportDir returns report_dir; empty disables reports.
func (c *Config) GetReportDir() string {
	if c.ReportDir == nil {
		return ""
	}
	return *c.ReportDir
}
