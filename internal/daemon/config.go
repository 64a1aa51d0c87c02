// Package daemon manages the Pilot server lifecycle and configuration.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds all daemon configuration.
type Config struct {
	API       APIConfig       `toml:"api"`
	Storage   StorageConfig   `toml:"storage"`
	Game      GameConfig      `toml:"game"`
	Outbox    OutboxConfig    `toml:"outbox"`
	Schedule  ScheduleConfig  `toml:"schedule"`
	Logging   LoggingConfig   `toml:"logging"`
	Telemetry TelemetryConfig `toml:"telemetry"`
}

// APIConfig controls the HTTP API server.
type APIConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StorageConfig selects the GameStore backend.
type StorageConfig struct {
	Driver string `toml:"driver"` // sqlite | postgres | memory
	Dir    string `toml:"dir"`    // sqlite data directory
	DSN    string `toml:"dsn"`    // postgres connection string
}

// GameConfig holds game rules.
type GameConfig struct {
	Timezone        string `toml:"timezone"` // IANA name for day boundaries
	DailySuperLikes int    `toml:"daily_super_likes"`
	FeedPath        string `toml:"feed_path"`      // YAML deck; empty uses the built-in deck
	FeedURL         string `toml:"feed_url"`       // JSON deck endpoint; falls back to the local deck
	FeedTimeout     string `toml:"feed_timeout"`   // e.g. "10s"
	ScenariosPath   string `toml:"scenarios_path"` // YAML macro catalog; empty uses the built-in one
}

// OutboxConfig controls retry of deferred persistence writes.
type OutboxConfig struct {
	MaxRetries int    `toml:"max_retries"`
	BaseDelay  string `toml:"base_delay"`
	MaxDelay   string `toml:"max_delay"`
	MaxPending int    `toml:"max_pending"`
}

// ScheduleConfig holds cron specs (with seconds) for background jobs.
type ScheduleConfig struct {
	OutboxFlush string `toml:"outbox_flush"`
	Rollover    string `toml:"rollover"`
	HealthCheck string `toml:"health_check"` // duration between health checks
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "plain" or "text"; "text" adds file:line
}

// TelemetryConfig controls observability endpoints.
type TelemetryConfig struct {
	Prometheus bool `toml:"prometheus"`
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8787,
		},
		Storage: StorageConfig{
			Driver: DriverSQLite,
			Dir:    pilotHome(),
		},
		Game: GameConfig{
			Timezone:        "UTC",
			DailySuperLikes: 3,
			FeedTimeout:     "10s",
		},
		Outbox: OutboxConfig{
			MaxRetries: 8,
			BaseDelay:  "1s",
			MaxDelay:   "2m",
			MaxPending: 10000,
		},
		Schedule: ScheduleConfig{
			OutboxFlush: "*/15 * * * * *",
			Rollover:    "0 0 0 * * *",
			HealthCheck: "30s",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "plain",
		},
		Telemetry: TelemetryConfig{
			Prometheus: true,
		},
	}
}

// LoadConfig reads config from $PILOT_HOME/config.toml, falling back to
// defaults. PILOT_POSTGRES_DSN overrides storage.dsn.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	path := ConfigPath()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}
	if dsn := os.Getenv("PILOT_POSTGRES_DSN"); dsn != "" {
		cfg.Storage.DSN = dsn
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// SaveConfig writes the config to $PILOT_HOME/config.toml.
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

	return toml.NewEncoder(f).Encode(cfg)
}

// Validate checks values that would otherwise fail at first use.
func (c Config) Validate() error {
	if _, err := time.LoadLocation(c.Game.Timezone); err != nil {
		return fmt.Errorf("game.timezone %q: %w", c.Game.Timezone, err)
	}
	if c.Game.DailySuperLikes < 0 {
		return fmt.Errorf("game.daily_super_likes must not be negative")
	}
	switch c.Storage.Driver {
	case DriverSQLite, DriverMemory:
	case DriverPostgres:
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}
	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("api.port %d out of range", c.API.Port)
	}
	for name, v := range map[string]string{
		"game.feed_timeout":     c.Game.FeedTimeout,
		"outbox.base_delay":     c.Outbox.BaseDelay,
		"outbox.max_delay":      c.Outbox.MaxDelay,
		"schedule.health_check": c.Schedule.HealthCheck,
	} {
		if v == "" {
			continue
		}
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// Location returns the configured game timezone.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Game.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ConfigPath returns the config file location.
func ConfigPath() string {
	return filepath.Join(pilotHome(), "config.toml")
}

// pilotHome returns the Pilot data directory.
func pilotHome() string {
	if env := os.Getenv("PILOT_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".pilot")
}

// PilotHome is exported for use by other packages.
func PilotHome() string {
	return pilotHome()
}

// parseDuration parses a duration string, returning a fallback on error.
func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
