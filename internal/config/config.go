// Package config handles configuration file loading and parsing.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/jeertmans/jinglebox/internal/model"
)

// Default configuration values.
const (
	DefaultGameDuration  = 30 * time.Minute
	DefaultBreakDuration = 5 * time.Minute
	DefaultJingleVolume  = 99
	DefaultDuckApp       = "Spotify"
	DefaultDuckVolume    = 66
	DefaultDuckedVolume  = 33
	DefaultGrace         = 5 * time.Second
)

// Duration is a time.Duration that can be unmarshaled from human-readable
// strings. Supports formats like "90s", "5m", "1h30m", or bare integer
// seconds.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for TOML parsing.
func (d *Duration) UnmarshalText(text []byte) error {
	s := string(text)

	// Bare integers are seconds
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		*d = Duration(time.Duration(secs) * time.Second)
		return nil
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: must be like '90s', '5m', '1h30m' or seconds: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

// MarshalText implements encoding.TextMarshaler for TOML output.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// timeLayout matches the format the schedule sheet uses.
const timeLayout = "2006/01/02 15:04:05"

// Time parses either the sheet format ("2023/08/13 09:00:00", local time)
// or RFC 3339.
type Time time.Time

// UnmarshalText implements encoding.TextUnmarshaler for TOML parsing.
func (t *Time) UnmarshalText(text []byte) error {
	s := string(text)

	if parsed, err := time.ParseInLocation(timeLayout, s, time.Local); err == nil {
		*t = Time(parsed)
		return nil
	}

	parsed, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return fmt.Errorf("invalid time %q: must be like '2023/08/13 09:00:00' or RFC 3339", s)
	}
	*t = Time(parsed)
	return nil
}

// MarshalText implements encoding.TextMarshaler for TOML output.
func (t Time) MarshalText() ([]byte, error) {
	return []byte(time.Time(t).Format(timeLayout)), nil
}

// Time returns the underlying time.Time.
func (t Time) Time() time.Time {
	return time.Time(t)
}

// IsZero reports whether the time is unset.
func (t Time) IsZero() bool {
	return time.Time(t).IsZero()
}

// Config represents the jinglebox application configuration.
type Config struct {
	Tournament TournamentConfig `toml:"tournament"`
	Audio      AudioConfig      `toml:"audio"`
	Duck       DuckConfig       `toml:"duck"`
	Notify     NotifyConfig     `toml:"notify"`
	Scheduler  SchedulerConfig  `toml:"scheduler"`
}

// TournamentConfig describes the tournament game grid.
type TournamentConfig struct {
	FirstGame     Time     `toml:"first_game"`
	LastGame      Time     `toml:"last_game"`
	GameDuration  Duration `toml:"game_duration"`
	BreakDuration Duration `toml:"break_duration"`
}

// AudioConfig contains jingle playback settings.
type AudioConfig struct {
	Volume int `toml:"volume"` // 0-100
}

// DuckConfig contains volume-ducking settings for the music application.
type DuckConfig struct {
	Enabled      bool   `toml:"enabled"`
	App          string `toml:"app"`           // Matched against sink input names, case-insensitive
	Volume       int    `toml:"volume"`        // 0-100, applied when no jingle plays
	DuckedVolume int    `toml:"ducked_volume"` // 0-100, applied while a jingle plays
}

// NotifyConfig contains desktop notification settings.
type NotifyConfig struct {
	Enabled bool `toml:"enabled"`
}

// SchedulerConfig contains scheduler tuning.
type SchedulerConfig struct {
	Grace Duration `toml:"grace"` // Entries older than this on wake count as missed
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Tournament: TournamentConfig{
			GameDuration:  Duration(DefaultGameDuration),
			BreakDuration: Duration(DefaultBreakDuration),
		},
		Audio: AudioConfig{
			Volume: DefaultJingleVolume,
		},
		Duck: DuckConfig{
			Enabled:      true,
			App:          DefaultDuckApp,
			Volume:       DefaultDuckVolume,
			DuckedVolume: DefaultDuckedVolume,
		},
		Notify: NotifyConfig{
			Enabled: true,
		},
		Scheduler: SchedulerConfig{
			Grace: Duration(DefaultGrace),
		},
	}
}

// ConfigPath returns the path to the config file.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config.
func ConfigPath() string {
	return filepath.Join(configHome(), "jinglebox", "config.toml")
}

// JinglesPath returns the default path to the jingle definitions file.
func JinglesPath() string {
	return filepath.Join(configHome(), "jinglebox", "jingles.toml")
}

func configHome() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return configHome
}

// DataPath returns the path to the data directory.
// Uses XDG_DATA_HOME if set, otherwise ~/.local/share.
func DataPath() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "jinglebox")
}

// HistoryPath returns the path to the play history JSONL file.
func HistoryPath() string {
	return filepath.Join(DataPath(), "history.jsonl")
}

// LoadConfig loads configuration from the specified path.
// If path is empty, uses the default config path.
// Returns default config if the file doesn't exist.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the specified path.
// Creates parent directories if needed and writes atomically via a temp file.
func (c *Config) Save(path string) error {
	if path == "" {
		path = ConfigPath()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if !c.Tournament.FirstGame.IsZero() && !c.Tournament.LastGame.IsZero() {
		if c.Tournament.LastGame.Time().Before(c.Tournament.FirstGame.Time()) {
			return fmt.Errorf("last_game %s is before first_game %s: %w",
				c.Tournament.LastGame.Time().Format(timeLayout),
				c.Tournament.FirstGame.Time().Format(timeLayout),
				model.ErrGamesOutOfOrder)
		}
	}

	if c.Tournament.GameDuration.Duration() <= 0 {
		return fmt.Errorf("game_duration must be positive, got %s: %w",
			c.Tournament.GameDuration.Duration(), model.ErrZeroDuration)
	}
	if c.Tournament.BreakDuration.Duration() < 0 {
		return fmt.Errorf("break_duration cannot be negative, got %s", c.Tournament.BreakDuration.Duration())
	}

	for name, v := range map[string]int{
		"audio.volume":       c.Audio.Volume,
		"duck.volume":        c.Duck.Volume,
		"duck.ducked_volume": c.Duck.DuckedVolume,
	} {
		if v < 0 || v > 100 {
			return fmt.Errorf("%s must be between 0 and 100, got %d", name, v)
		}
	}

	if c.Duck.Enabled && c.Duck.App == "" {
		return errors.New("duck.app cannot be empty when ducking is enabled")
	}

	if c.Scheduler.Grace.Duration() < 0 {
		return fmt.Errorf("scheduler.grace cannot be negative, got %s", c.Scheduler.Grace.Duration())
	}

	return nil
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() error {
	path := DataPath()
	if path == "" {
		return errors.New("unable to determine data directory")
	}
	return os.MkdirAll(path, 0755)
}
