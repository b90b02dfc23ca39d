// Package daemon manages the gisstore daemon lifecycle and configuration.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds all daemon configuration.
type Config struct {
	Store     StoreConfig     `toml:"store"`
	API       APIConfig       `toml:"api"`
	Logging   LoggingConfig   `toml:"logging"`
	Telemetry TelemetryConfig `toml:"telemetry"`
	Health    HealthConfig    `toml:"health"`
}

// StoreConfig controls where and how artifacts are written.
type StoreConfig struct {
	Dir         string `toml:"dir"`
	Synchronous string `toml:"synchronous"`
	Backend     string `toml:"backend"`
}

// APIConfig controls the HTTP API server.
type APIConfig struct {
	Host      string `toml:"host"`
	Port      int    `toml:"port"`
	MaxBodyMB int    `toml:"max_body_mb"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level string `toml:"level"`
}

// TelemetryConfig controls metric exposition.
type TelemetryConfig struct {
	Prometheus bool `toml:"prometheus"`
}

// HealthConfig controls the background health checker.
type HealthConfig struct {
	Interval   Duration `toml:"interval"`
	TempMaxAge Duration `toml:"temp_max_age"`
}

// Duration is a time.Duration that reads and writes as a TOML string ("30s").
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	homeDir := gisstoreHome()
	return Config{
		Store: StoreConfig{
			Dir:         filepath.Join(homeDir, "models"),
			Synchronous: "NORMAL",
			Backend:     "sqlite",
		},
		API: APIConfig{
			Host:      "127.0.0.1",
			Port:      7480,
			MaxBodyMB: 256,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Telemetry: TelemetryConfig{
			Prometheus: true,
		},
		Health: HealthConfig{
			Interval:   Duration{30 * time.Second},
			TempMaxAge: Duration{15 * time.Minute},
		},
	}
}

// ConfigPath returns the location of config.toml.
func ConfigPath() string {
	return filepath.Join(gisstoreHome(), "config.toml")
}

// LoadConfig reads config from $GISSTORE_HOME/config.toml, falling back to defaults.
func LoadConfig() (Config, error) {
	return LoadConfigFile(ConfigPath())
}

// LoadConfigFile reads config from path. A missing file yields the defaults.
func LoadConfigFile(path string) (Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return cfg, fmt.Errorf("parse config: unknown key %q", undecoded[0].String())
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate reports configuration values the daemon cannot run with.
func (c Config) Validate() error {
	if c.Store.Dir == "" {
		return fmt.Errorf("config: store.dir is empty")
	}
	if c.API.Port < 0 || c.API.Port > 65535 {
		return fmt.Errorf("config: api.port %d out of range", c.API.Port)
	}
	if c.API.MaxBodyMB <= 0 {
		return fmt.Errorf("config: api.max_body_mb must be positive")
	}
	if c.Health.Interval.Duration <= 0 {
		return fmt.Errorf("config: health.interval must be positive")
	}
	if c.Health.TempMaxAge.Duration <= 0 {
		return fmt.Errorf("config: health.temp_max_age must be positive")
	}
	return nil
}

// SaveConfig writes the config to $GISSTORE_HOME/config.toml.
func SaveConfig(cfg Config) error {
	path := ConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(cfg)
}

// gisstoreHome returns the gisstore data directory.
func gisstoreHome() string {
	if env := os.Getenv("GISSTORE_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".gisstore")
}

// Home is exported for use by other packages.
func Home() string {
	return gisstoreHome()
}
