// Package config loads engine and server settings from a YAML file and
// TEAMROUTER_* environment variables via viper. Every field has a usable
// default so the binary runs without any configuration present.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the root configuration.
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Oracle OracleConfig `mapstructure:"oracle"`
	Limits LimitsConfig `mapstructure:"limits"`
	Store  StoreConfig  `mapstructure:"store"`
	Log    LogConfig    `mapstructure:"log"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr         string   `mapstructure:"addr"`
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// OracleConfig selects and tunes the reasoning provider.
type OracleConfig struct {
	// Provider is one of "openai" or "anthropic".
	Provider    string  `mapstructure:"provider"`
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
	// RetryAttempts wraps the provider with transient-error retries.
	RetryAttempts int `mapstructure:"retry_attempts"`
}

// LimitsConfig bounds run execution.
type LimitsConfig struct {
	MaxIterations int `mapstructure:"max_iterations"`
	MaxParallel   int `mapstructure:"max_parallel"`
	MaxTeams      int `mapstructure:"max_teams"`
	EventBuffer   int `mapstructure:"event_buffer"`
}

// StoreConfig selects thread persistence.
type StoreConfig struct {
	// Driver is "memory" or "sqlite".
	Driver string `mapstructure:"driver"`
	// DSN is the sqlite path; ":memory:" keeps threads in RAM.
	DSN string `mapstructure:"dsn"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:         ":8080",
			AllowOrigins: []string{"*"},
		},
		Oracle: OracleConfig{
			Provider:      "openai",
			Temperature:   0,
			RetryAttempts: 3,
		},
		Limits: LimitsConfig{
			MaxIterations: 8,
			MaxParallel:   4,
			MaxTeams:      3,
			EventBuffer:   64,
		},
		Store: StoreConfig{
			Driver: "sqlite",
			DSN:    "teamrouter.db",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration from the given file (optional) layered over the
// defaults, with TEAMROUTER_* environment variables taking precedence.
func Load(path string) (Config, error) {
	v := viper.New()

	def := Default()
	v.SetDefault("server.addr", def.Server.Addr)
	v.SetDefault("server.allow_origins", def.Server.AllowOrigins)
	v.SetDefault("oracle.provider", def.Oracle.Provider)
	v.SetDefault("oracle.model", def.Oracle.Model)
	v.SetDefault("oracle.temperature", def.Oracle.Temperature)
	v.SetDefault("oracle.retry_attempts", def.Oracle.RetryAttempts)
	v.SetDefault("limits.max_iterations", def.Limits.MaxIterations)
	v.SetDefault("limits.max_parallel", def.Limits.MaxParallel)
	v.SetDefault("limits.max_teams", def.Limits.MaxTeams)
	v.SetDefault("limits.event_buffer", def.Limits.EventBuffer)
	v.SetDefault("store.driver", def.Store.Driver)
	v.SetDefault("store.dsn", def.Store.DSN)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.format", def.Log.Format)

	v.SetEnvPrefix("TEAMROUTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch c.Oracle.Provider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("unknown oracle provider %q", c.Oracle.Provider)
	}
	switch c.Store.Driver {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.Limits.MaxIterations < 1 {
		return fmt.Errorf("limits.max_iterations must be at least 1")
	}
	if c.Limits.MaxTeams < 1 {
		return fmt.Errorf("limits.max_teams must be at least 1")
	}
	return nil
}
