// Package config provides configuration loading for the console daemon and CLI.
//
// Values are resolved as defaults, then an optional YAML file, then CELERIX_*
// environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete console configuration
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Store         StoreConfig         `yaml:"store"`
	Admin         AdminConfig         `yaml:"admin"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Detector      DetectorConfig      `yaml:"detector"`
	Tracking      TrackingConfig      `yaml:"tracking"`
	Log           LogConfig           `yaml:"log"`
}

// ServerConfig configures the listeners
type ServerConfig struct {
	// HTTPPort serves the console API
	HTTPPort string `yaml:"http_port"`
	// StorePort serves the TCP store protocol; empty disables it
	StorePort string `yaml:"store_port"`
	// DisableTLS serves the store protocol in plain text
	DisableTLS bool `yaml:"disable_tls"`
}

// StoreConfig selects the collection store
type StoreConfig struct {
	// Driver is "file" (JSON files in DataDir) or "sqlite"
	Driver     string `yaml:"driver"`
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
	// RemoteAddr points at another console's store protocol instead of a local store
	RemoteAddr string `yaml:"remote_addr"`
}

// AdminConfig holds the operator credentials and session settings
type AdminConfig struct {
	Username   string        `yaml:"username"`
	Password   string        `yaml:"password"`
	SessionTTL time.Duration `yaml:"session_ttl"`
	// TokenKey is a hex-encoded 32-byte key; empty generates one per process
	TokenKey string `yaml:"token_key"`
}

// NotificationsConfig sets toast lifetimes
type NotificationsConfig struct {
	DefaultTTL  time.Duration `yaml:"default_ttl"`
	DetectorTTL time.Duration `yaml:"detector_ttl"`
}

// DetectorConfig sets the change detector cadence
type DetectorConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// TrackingConfig configures generated tracking codes
type TrackingConfig struct {
	CodePrefix string `yaml:"code_prefix"`
}

// LogConfig configures the slog handler
type LogConfig struct {
	// Level is debug, info, warn or error
	Level string `yaml:"level"`
	// Format is json or text
	Format string `yaml:"format"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:  "7002",
			StorePort: "7001",
		},
		Store: StoreConfig{
			Driver:  "file",
			DataDir: "./data",
		},
		Admin: AdminConfig{
			Username:   "admin",
			SessionTTL: 8 * time.Hour,
		},
		Notifications: NotificationsConfig{
			DefaultTTL:  5 * time.Second,
			DetectorTTL: 8 * time.Second,
		},
		Detector: DetectorConfig{
			Interval: 10 * time.Second,
		},
		Tracking: TrackingConfig{
			CodePrefix: "TRK",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Server.HTTPPort == "" {
		return fmt.Errorf("server.http_port is required")
	}
	switch c.Store.Driver {
	case "file", "sqlite":
	default:
		return fmt.Errorf("store.driver must be file or sqlite, got %q", c.Store.Driver)
	}
	if c.Store.Driver == "file" && c.Store.DataDir == "" && c.Store.RemoteAddr == "" {
		return fmt.Errorf("store.data_dir is required for the file driver")
	}
	if c.Admin.Username == "" {
		return fmt.Errorf("admin.username is required")
	}
	if c.Admin.SessionTTL <= 0 {
		return fmt.Errorf("admin.session_ttl must be positive")
	}
	if c.Admin.TokenKey != "" && len(c.Admin.TokenKey) != 64 {
		return fmt.Errorf("admin.token_key must be 64 hex characters")
	}
	if c.Notifications.DefaultTTL <= 0 || c.Notifications.DetectorTTL <= 0 {
		return fmt.Errorf("notification TTLs must be positive")
	}
	if c.Detector.Interval <= 0 {
		return fmt.Errorf("detector.interval must be positive")
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("log.format must be json or text, got %q", c.Log.Format)
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file on top of the defaults
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// ApplyEnv overrides fields from CELERIX_* variables found through lookup (usually os.LookupEnv).
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("CELERIX_DATA_DIR", &c.Store.DataDir)
	str("CELERIX_PORT", &c.Server.StorePort)
	str("CELERIX_HTTP_PORT", &c.Server.HTTPPort)
	str("CELERIX_STORE_ADDR", &c.Store.RemoteAddr)
	str("CELERIX_STORE_DRIVER", &c.Store.Driver)
	str("CELERIX_SQLITE_PATH", &c.Store.SQLitePath)
	str("CELERIX_ADMIN_USER", &c.Admin.Username)
	str("CELERIX_ADMIN_PASSWORD", &c.Admin.Password)
	str("CELERIX_TOKEN_KEY", &c.Admin.TokenKey)
	str("CELERIX_LOG_LEVEL", &c.Log.Level)
	str("CELERIX_LOG_FORMAT", &c.Log.Format)

	if v, ok := lookup("CELERIX_DISABLE_TLS"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("CELERIX_DISABLE_TLS: %w", err)
		}
		c.Server.DisableTLS = b
	}
	if v, ok := lookup("CELERIX_DETECTOR_INTERVAL"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("CELERIX_DETECTOR_INTERVAL: %w", err)
		}
		c.Detector.Interval = d
	}
	return nil
}

// Load resolves the configuration from path (optional) and the process environment.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		var err error
		if cfg, err = LoadFromFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
