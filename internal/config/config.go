// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Feeds    FeedsConfig    `mapstructure:"feeds"`
	Fetch    FetchConfig    `mapstructure:"fetch"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
	DB       DBConfig       `mapstructure:"db"`
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// FeedsConfig lists the static feed source endpoints.
type FeedsConfig struct {
	URLs []string `mapstructure:"urls"`
}

// FetchConfig governs the bounded-retry fetch policy.
type FetchConfig struct {
	MaxAttempts       int `mapstructure:"max_attempts"`
	RetryDelaySeconds int `mapstructure:"retry_delay_seconds"`
}

// ScheduleConfig fixes the daily trigger and the weekday gate.
//
// TriggerTimezone and GateTimezone are deliberately separate: the
// trigger aligns to one region's morning while the gate follows
// another region's business week. Empty TriggerTimezone means the
// process-local zone.
type ScheduleConfig struct {
	At              string `mapstructure:"at"`
	TriggerTimezone string `mapstructure:"trigger_timezone"`
	GateTimezone    string `mapstructure:"gate_timezone"`
}

// DBConfig controls access to the Postgres item store.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// ServerConfig controls the HTTP browsing surface.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ARXIVD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("feeds.urls", []string{"https://rss.arxiv.org/rss/cs.CL"})
	v.SetDefault("fetch.max_attempts", 10)
	v.SetDefault("fetch.retry_delay_seconds", 60)
	v.SetDefault("schedule.at", "13:10")
	v.SetDefault("schedule.trigger_timezone", "")
	v.SetDefault("schedule.gate_timezone", "America/New_York")
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("db.min_conns", 1)
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if len(c.Feeds.URLs) == 0 {
		return fmt.Errorf("feeds.urls must list at least one source")
	}
	if c.Fetch.MaxAttempts <= 0 {
		return fmt.Errorf("fetch.max_attempts must be > 0")
	}
	if c.Fetch.RetryDelaySeconds < 0 {
		return fmt.Errorf("fetch.retry_delay_seconds must be >= 0")
	}
	if _, _, err := c.Schedule.TriggerTime(); err != nil {
		return err
	}
	if _, _, err := c.Schedule.Locations(); err != nil {
		return err
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	return nil
}

// RetryDelay converts the configured delay into a duration.
func (c FetchConfig) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelaySeconds) * time.Second
}

// TriggerTime parses the "HH:MM" trigger wall-clock time.
func (s ScheduleConfig) TriggerTime() (hour, minute int, err error) {
	parsed, err := time.Parse("15:04", s.At)
	if err != nil {
		return 0, 0, fmt.Errorf("schedule.at must be HH:MM: %w", err)
	}
	return parsed.Hour(), parsed.Minute(), nil
}

// Locations loads the trigger and gate timezones.
func (s ScheduleConfig) Locations() (trigger, gate *time.Location, err error) {
	trigger = time.Local
	if s.TriggerTimezone != "" {
		trigger, err = time.LoadLocation(s.TriggerTimezone)
		if err != nil {
			return nil, nil, fmt.Errorf("schedule.trigger_timezone: %w", err)
		}
	}
	gate = time.Local
	if s.GateTimezone != "" {
		gate, err = time.LoadLocation(s.GateTimezone)
		if err != nil {
			return nil, nil, fmt.Errorf("schedule.gate_timezone: %w", err)
		}
	}
	return trigger, gate, nil
}
