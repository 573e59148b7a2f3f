// Package config holds the server's configuration, read from a TOML file
// with defaults for anything the file omits.
package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// ServerConfig configures the listener. MaxClients is decoded from the file,
// but the server does not enforce it.
type ServerConfig struct {
	Address    string `toml:"address"`
	MaxClients int    `toml:"max_clients"`
}

// ClockConfig configures the session clock service tick interval.
type ClockConfig struct {
	TickInterval Duration `toml:"tick_interval"`
}

// MatchmakerConfig configures the rating-banded queue.
type MatchmakerConfig struct {
	Interval    Duration `toml:"interval"`
	Band        int      `toml:"band"`
	RelaxAfter  Duration `toml:"relax_after"`
	BotFallback Duration `toml:"bot_fallback"`
}

// StoreConfig configures the persistence layer.
type StoreConfig struct {
	Dir string `toml:"dir"`
}

// AnalysisConfig configures the optional external UCI engine used only for
// analysis requests, never for gameplay.
type AnalysisConfig struct {
	Enabled    bool   `toml:"enabled"`
	EnginePath string `toml:"engine_path"`
}

// LogConfig holds the configured log level. cmd/mpchessd does not apply it to
// the logger.
type LogConfig struct {
	Level string `toml:"level"`
}

// Config is the top-level, file-backed configuration.
type Config struct {
	Server     ServerConfig     `toml:"server"`
	Clock      ClockConfig      `toml:"clock"`
	Matchmaker MatchmakerConfig `toml:"matchmaker"`
	Store      StoreConfig      `toml:"store"`
	Analysis   AnalysisConfig   `toml:"analysis"`
	Log        LogConfig        `toml:"log"`
}

// Duration wraps time.Duration so it can be decoded from a TOML string
// like "30s" rather than a raw integer count of nanoseconds.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", text, err)
	}
	d.Duration = parsed
	return nil
}

// Default returns the configuration used when no file is present or a file
// leaves a section out entirely.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Address:    ":5000",
			MaxClients: 1024,
		},
		Clock: ClockConfig{
			TickInterval: Duration{100 * time.Millisecond},
		},
		Matchmaker: MatchmakerConfig{
			Interval:    Duration{time.Second},
			Band:        200,
			RelaxAfter:  Duration{30 * time.Second},
			BotFallback: Duration{60 * time.Second},
		},
		Store: StoreConfig{
			Dir: "./mpchess-data",
		},
		Analysis: AnalysisConfig{
			Enabled: false,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads path and overlays it onto Default(). An empty path is not an
// error: the caller runs on defaults. A path naming a file that does not
// exist or cannot be decoded is an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode %q: %w", path, err)
	}
	return cfg, nil
}
