package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kacperjurak/gosensorcore/pkg/filters"
)

// SensorList collects repeated or comma-separated sensor names from the command line
type SensorList []string

func (s *SensorList) String() string {
	return strings.Join(*s, ",")
}

func (s *SensorList) Set(value string) error {
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			*s = append(*s, v)
		}
	}
	return nil
}

// Config holds all configuration settings for one trial run
type Config struct {
	Dir            string
	Extension      string
	GridStepNs     int64
	Workers        int
	ExcludeSensors SensorList
	Spectrum       bool
	LowPassHz      float64
	HighPassHz     float64
	Integrate      string
	Delta          int
	Quiet          bool
	Benchmark      bool
	CPUProfile     string
	ConfigFile     string
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Extension:      "txt",
		GridStepNs:     int64(10 * time.Millisecond),
		Workers:        4,
		ExcludeSensors: SensorList{"wifi"},
		Spectrum:       true,
		Delta:          1,
	}
}

// Validate checks the settings that can be checked without touching the disk
func (c *Config) Validate() error {
	if c.Dir == "" {
		return fmt.Errorf("trial directory is required")
	}
	if c.GridStepNs <= 0 {
		return fmt.Errorf("grid step must be positive, got %d ns", c.GridStepNs)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if c.LowPassHz < 0 || c.HighPassHz < 0 {
		return fmt.Errorf("filter cutoffs must be non-negative, got lowpass %g highpass %g", c.LowPassHz, c.HighPassHz)
	}
	if c.Integrate != "" {
		if _, err := filters.ParseMethod(c.Integrate); err != nil {
			return err
		}
		if c.Delta < 1 {
			return fmt.Errorf("integration delta must be at least 1, got %d", c.Delta)
		}
	}
	return nil
}

// FileConfig is the JSON form of Config. Omitted fields leave the
// corresponding Config field untouched, so partial files are safe.
type FileConfig struct {
	Extension      *string  `json:"extension,omitempty"`
	GridStep       *string  `json:"grid_step,omitempty"` // duration string like "10ms"
	Workers        *int     `json:"workers,omitempty"`
	ExcludeSensors []string `json:"exclude_sensors,omitempty"`
	Spectrum       *bool    `json:"spectrum,omitempty"`
	LowPassHz      *float64 `json:"lowpass_hz,omitempty"`
	HighPassHz     *float64 `json:"highpass_hz,omitempty"`
	Integrate      *string  `json:"integrate,omitempty"`
	Delta          *int     `json:"delta,omitempty"`
}

// LoadTuningFile loads a FileConfig from a JSON file.
// The file must have a .json extension and be at most 1MB.
func LoadTuningFile(path string) (*FileConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	fc := &FileConfig{}
	if err := json.Unmarshal(data, fc); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := fc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return fc, nil
}

// Validate checks the fields that are set.
func (f *FileConfig) Validate() error {
	if f.GridStep != nil {
		d, err := time.ParseDuration(*f.GridStep)
		if err != nil {
			return fmt.Errorf("invalid grid_step '%s': %w", *f.GridStep, err)
		}
		if d <= 0 {
			return fmt.Errorf("grid_step must be positive, got %s", d)
		}
	}
	if f.Workers != nil && *f.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", *f.Workers)
	}
	if f.LowPassHz != nil && *f.LowPassHz < 0 {
		return fmt.Errorf("lowpass_hz must be non-negative, got %f", *f.LowPassHz)
	}
	if f.HighPassHz != nil && *f.HighPassHz < 0 {
		return fmt.Errorf("highpass_hz must be non-negative, got %f", *f.HighPassHz)
	}
	if f.Integrate != nil && *f.Integrate != "" {
		if _, err := filters.ParseMethod(*f.Integrate); err != nil {
			return err
		}
	}
	if f.Delta != nil && *f.Delta < 1 {
		return fmt.Errorf("delta must be at least 1, got %d", *f.Delta)
	}
	return nil
}

// ApplyTo overlays every set field onto c.
func (f *FileConfig) ApplyTo(c *Config) {
	if f.Extension != nil {
		c.Extension = *f.Extension
	}
	if f.GridStep != nil {
		// Validate has already parsed it.
		d, _ := time.ParseDuration(*f.GridStep)
		c.GridStepNs = int64(d)
	}
	if f.Workers != nil {
		c.Workers = *f.Workers
	}
	if f.ExcludeSensors != nil {
		c.ExcludeSensors = append(SensorList(nil), f.ExcludeSensors...)
	}
	if f.Spectrum != nil {
		c.Spectrum = *f.Spectrum
	}
	if f.LowPassHz != nil {
		c.LowPassHz = *f.LowPassHz
	}
	if f.HighPassHz != nil {
		c.HighPassHz = *f.HighPassHz
	}
	if f.Integrate != nil {
		c.Integrate = *f.Integrate
	}
	if f.Delta != nil {
		c.Delta = *f.Delta
	}
}
