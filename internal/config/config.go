// Package config loads focusboard settings from a TOML file, a .env file,
// and the environment, in increasing order of precedence.
//
// The remote store is configured by supabase.url and supabase.key, which
// also read SUPABASE_URL and SUPABASE_ANON_KEY. Leaving them empty runs
// the board in local-only mode.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. FB_SERVER_ADDR.
const EnvPrefix = "FB"

// Config is the full application configuration.
type Config struct {
	Supabase SupabaseConfig `mapstructure:"supabase"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Server   ServerConfig   `mapstructure:"server"`
	Feed     FeedConfig     `mapstructure:"feed"`
	Weather  WeatherConfig  `mapstructure:"weather"`
	Inbox    InboxConfig    `mapstructure:"inbox"`
	Assist   AssistConfig   `mapstructure:"assist"`
	Log      LogConfig      `mapstructure:"log"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-"`
}

type SupabaseConfig struct {
	URL     string        `mapstructure:"url"`
	Key     string        `mapstructure:"key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type CacheConfig struct {
	Path string `mapstructure:"path"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// FeedConfig selects how remote changes are noticed: "realtime", "poll",
// or "off".
type FeedConfig struct {
	Mode         string        `mapstructure:"mode"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

type WeatherConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Latitude  float64       `mapstructure:"latitude"`
	Longitude float64       `mapstructure:"longitude"`
	Interval  time.Duration `mapstructure:"interval"`
}

type InboxConfig struct {
	Dir      string        `mapstructure:"dir"`
	Debounce time.Duration `mapstructure:"debounce"`
}

type AssistConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
	JSON  bool   `mapstructure:"json"`
}

// Feed modes.
const (
	FeedRealtime = "realtime"
	FeedPoll     = "poll"
	FeedOff      = "off"
)

// Dir returns the per-user configuration directory.
func Dir() string {
	if dir := os.Getenv(EnvPrefix + "_HOME"); dir != "" {
		return dir
	}
	base, err := os.UserConfigDir()
	if err != nil {
		base = "."
	}
	return filepath.Join(base, "focusboard")
}

// DefaultPath is the config file read when none is given.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.toml")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("supabase.url", "")
	v.SetDefault("supabase.key", "")
	v.SetDefault("supabase.timeout", 15*time.Second)
	v.SetDefault("cache.path", filepath.Join(Dir(), "cache.db"))
	v.SetDefault("server.addr", "127.0.0.1:8080")
	v.SetDefault("feed.mode", FeedRealtime)
	v.SetDefault("feed.poll_interval", 30*time.Second)
	v.SetDefault("weather.enabled", true)
	v.SetDefault("weather.latitude", 43.0014)
	v.SetDefault("weather.longitude", -84.5592)
	v.SetDefault("weather.interval", 30*time.Minute)
	v.SetDefault("inbox.dir", "")
	v.SetDefault("inbox.debounce", 250*time.Millisecond)
	v.SetDefault("assist.api_key", "")
	v.SetDefault("assist.model", "claude-sonnet-4-5")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.json", false)
}

// Options controls where Load looks.
type Options struct {
	// ConfigFile is an explicit config path. It must exist when set.
	ConfigFile string

	// EnvFile is a dotenv file loaded into the environment when present.
	// Variables already set in the environment win.
	EnvFile string
}

// Load reads the configuration.
func Load(opts Options) (*Config, error) {
	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", opts.EnvFile, err)
		}
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// The conventional Supabase and Anthropic names work without the prefix.
	bindings := map[string][]string{
		"supabase.url":   {"FB_SUPABASE_URL", "SUPABASE_URL"},
		"supabase.key":   {"FB_SUPABASE_KEY", "SUPABASE_ANON_KEY"},
		"assist.api_key": {"FB_ASSIST_API_KEY", "ANTHROPIC_API_KEY"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	v.SetConfigType("toml")
	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", opts.ConfigFile, err)
		}
	} else {
		v.SetConfigFile(DefaultPath())
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config %s: %w", DefaultPath(), err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if v.ConfigFileUsed() != "" {
		if _, err := os.Stat(v.ConfigFileUsed()); err == nil {
			cfg.File = v.ConfigFileUsed()
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail later and less clearly.
func (c *Config) Validate() error {
	switch c.Feed.Mode {
	case FeedRealtime, FeedPoll, FeedOff:
	default:
		return fmt.Errorf("feed.mode must be realtime, poll, or off (got %q)", c.Feed.Mode)
	}
	if c.Feed.PollInterval < time.Second {
		return fmt.Errorf("feed.poll_interval must be at least 1s (got %s)", c.Feed.PollInterval)
	}
	if c.Weather.Latitude < -90 || c.Weather.Latitude > 90 {
		return fmt.Errorf("weather.latitude out of range: %v", c.Weather.Latitude)
	}
	if c.Weather.Longitude < -180 || c.Weather.Longitude > 180 {
		return fmt.Errorf("weather.longitude out of range: %v", c.Weather.Longitude)
	}
	if c.Cache.Path == "" {
		return fmt.Errorf("cache.path cannot be empty")
	}
	return nil
}

// RemoteConfigured reports whether both remote settings are present.
// Placeholder values are rejected later by the remote client.
func (c *Config) RemoteConfigured() bool {
	return c.Supabase.URL != "" && c.Supabase.Key != ""
}

// starter is the file layout written by WriteStarter. Durations are
// written as strings such as "30s".
type starter struct {
	Supabase struct {
		URL     string `toml:"url"`
		Key     string `toml:"key"`
		Timeout string `toml:"timeout"`
	} `toml:"supabase"`
	Cache struct {
		Path string `toml:"path"`
	} `toml:"cache"`
	Server struct {
		Addr string `toml:"addr"`
	} `toml:"server"`
	Feed struct {
		Mode         string `toml:"mode"`
		PollInterval string `toml:"poll_interval"`
	} `toml:"feed"`
	Weather struct {
		Enabled   bool    `toml:"enabled"`
		Latitude  float64 `toml:"latitude"`
		Longitude float64 `toml:"longitude"`
		Interval  string  `toml:"interval"`
	} `toml:"weather"`
	Inbox struct {
		Dir      string `toml:"dir"`
		Debounce string `toml:"debounce"`
	} `toml:"inbox"`
	Assist struct {
		Model string `toml:"model"`
	} `toml:"assist"`
	Log struct {
		Level string `toml:"level"`
		File  string `toml:"file"`
		JSON  bool   `toml:"json"`
	} `toml:"log"`
}

func newStarter(c *Config) starter {
	var s starter
	s.Supabase.URL = c.Supabase.URL
	s.Supabase.Key = c.Supabase.Key
	s.Supabase.Timeout = c.Supabase.Timeout.String()
	s.Cache.Path = c.Cache.Path
	s.Server.Addr = c.Server.Addr
	s.Feed.Mode = c.Feed.Mode
	s.Feed.PollInterval = c.Feed.PollInterval.String()
	s.Weather.Enabled = c.Weather.Enabled
	s.Weather.Latitude = c.Weather.Latitude
	s.Weather.Longitude = c.Weather.Longitude
	s.Weather.Interval = c.Weather.Interval.String()
	s.Inbox.Dir = c.Inbox.Dir
	s.Inbox.Debounce = c.Inbox.Debounce.String()
	s.Assist.Model = c.Assist.Model
	s.Log.Level = c.Log.Level
	s.Log.File = c.Log.File
	s.Log.JSON = c.Log.JSON
	return s
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// Decoding built-in defaults cannot fail.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// WriteStarter writes a config file holding the defaults to path. An
// existing file is only replaced when force is set. API keys are never
// written.
func WriteStarter(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if _, err := fmt.Fprintln(f, "# focusboard configuration. Environment variables FB_<SECTION>_<KEY> override these values."); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := toml.NewEncoder(f).Encode(newStarter(Defaults())); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
