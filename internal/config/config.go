package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/livestack/internal/camera"
)

// Config is the appliance configuration. Every field is optional; the Get*
// methods supply defaults for anything the file leaves out, so partial
// configs are safe.
type Config struct {
	// Camera driver
	Driver         *string `json:"driver,omitempty"`      // e.g. "asi" loads libols_driver_asi.so
	DriverPath     *string `json:"driver_path,omitempty"` // directory holding driver libraries
	DriverConfig   *string `json:"driver_config,omitempty"`
	CameraID       *int    `json:"camera_id,omitempty"` // registry id, 0 is the most recently loaded driver
	ExternalOption *int    `json:"external_option,omitempty"`
	StreamFormat   *string `json:"stream_format,omitempty"` // "raw16:1920x1080@30"

	// Storage
	DataDir     *string `json:"data_dir,omitempty"`
	JournalPath *string `json:"journal_path,omitempty"`

	// Pipeline
	PlateSolve    *bool   `json:"plate_solve,omitempty"`
	StatsInterval *string `json:"stats_interval,omitempty"` // duration string like "30s"
}

const maxFileSize = 1 * 1024 * 1024 // 1MB

// Load reads a Config from a JSON file. The file must have a .json
// extension and be at most 1MB.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
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
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *Config) Validate() error {
	if c.Driver != nil && *c.Driver == "" {
		return fmt.Errorf("driver must not be empty")
	}
	if c.CameraID != nil && *c.CameraID < 0 {
		return fmt.Errorf("camera_id must be non-negative, got %d", *c.CameraID)
	}
	if c.StreamFormat != nil && *c.StreamFormat != "" {
		if _, err := camera.ParseStreamFormat(*c.StreamFormat); err != nil {
			return fmt.Errorf("invalid stream_format '%s': %w", *c.StreamFormat, err)
		}
	}
	if c.StatsInterval != nil && *c.StatsInterval != "" {
		d, err := time.ParseDuration(*c.StatsInterval)
		if err != nil {
			return fmt.Errorf("invalid stats_interval '%s': %w", *c.StatsInterval, err)
		}
		if d < 0 {
			return fmt.Errorf("stats_interval must be non-negative, got %s", d)
		}
	}
	return nil
}

// GetDriver returns the driver name or the default.
func (c *Config) GetDriver() string {
	if c.Driver == nil {
		return "simulator"
	}
	return *c.Driver
}

// GetDriverPath returns the driver library directory. Empty means the
// platform loader search path.
func (c *Config) GetDriverPath() string {
	if c.DriverPath == nil {
		return ""
	}
	return *c.DriverPath
}

// GetDriverConfig returns the driver configuration string, or nil when the
// driver should not be configured.
func (c *Config) GetDriverConfig() *string {
	return c.DriverConfig
}

// GetCameraID returns the camera_id value or the default.
func (c *Config) GetCameraID() int {
	if c.CameraID == nil {
		return 0
	}
	return *c.CameraID
}

// GetExternalOption returns the external_option value or the default.
func (c *Config) GetExternalOption() int {
	if c.ExternalOption == nil {
		return 0
	}
	return *c.ExternalOption
}

// GetStreamFormat returns the requested stream format, and false when the
// camera's first advertised format should be used.
func (c *Config) GetStreamFormat() (camera.StreamFormat, bool) {
	if c.StreamFormat == nil || *c.StreamFormat == "" {
		return camera.StreamFormat{}, false
	}
	f, err := camera.ParseStreamFormat(*c.StreamFormat)
	if err != nil {
		return camera.StreamFormat{}, false
	}
	return f, true
}

// GetDataDir returns the data_dir value or the default.
func (c *Config) GetDataDir() string {
	if c.DataDir == nil || *c.DataDir == "" {
		return "data"
	}
	return *c.DataDir
}

// GetJournalPath returns the journal database path. It defaults to
// journal.db inside the data directory.
func (c *Config) GetJournalPath() string {
	if c.JournalPath == nil || *c.JournalPath == "" {
		return filepath.Join(c.GetDataDir(), "journal.db")
	}
	return *c.JournalPath
}

// GetPlateSolve returns the plate_solve value or the default.
func (c *Config) GetPlateSolve() bool {
	if c.PlateSolve == nil {
		return false // default: no plate solver attached
	}
	return *c.PlateSolve
}

// GetStatsInterval returns how often dispatch counters are logged. Zero
// disables the report.
func (c *Config) GetStatsInterval() time.Duration {
	if c.StatsInterval == nil || *c.StatsInterval == "" {
		return 60 * time.Second
	}
	d, err := time.ParseDuration(*c.StatsInterval)
	if err != nil {
		return 60 * time.Second // default on parse error
	}
	return d
}
