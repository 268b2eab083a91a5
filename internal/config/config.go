// Package config loads the plugin configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gogpu/framebridge"
	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

// Environment variables read by Load.
const (
	EnvConfig     = "FRAMEBRIDGE_CONFIG"
	EnvLogLevel   = "FRAMEBRIDGE_LOG_LEVEL"
	EnvPluginPath = "VLC_PLUGIN_PATH"
)

// Config is the plugin configuration.
type Config struct {
	// Backend forces a backend by name. Empty selects by priority.
	Backend string `yaml:"backend"`

	// ColorSpace is "gamma" or "linear".
	ColorSpace string `yaml:"color_space"`
	BitDepth   int    `yaml:"bit_depth"`

	ReleaseTimeoutMs int    `yaml:"release_timeout_ms"`
	MaxDimension     uint32 `yaml:"max_dimension"`

	// LogLevel is one of debug, info, warn, error or off.
	LogLevel string `yaml:"log_level"`

	// PluginPath is the decoder's plugin directory.
	PluginPath string `yaml:"plugin_path"`
	// LibraryPath is an explicit path to the decoder library.
	LibraryPath string `yaml:"library_path"`
}

// Defaults returns a Config with default values.
func Defaults() Config {
	return Config{
		ColorSpace:       "gamma",
		BitDepth:         8,
		ReleaseTimeoutMs: int(framebridge.DefaultReleaseTimeout / time.Millisecond),
		MaxDimension:     framebridge.DefaultMaxDimension,
		LogLevel:         "off",
	}
}

// LoadFromFile loads configuration from a YAML file on top of Defaults.
// Invalid fields are reset to their defaults and reported in the error;
// the other fields are kept. An unreadable file yields Defaults.
func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Defaults(), err
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Defaults(), fmt.Errorf("config: parse %s: %w", path, err)
	}

	return cfg, cfg.sanitize()
}

// Load reads the file named by FRAMEBRIDGE_CONFIG, if set, and applies
// environment overrides. Like LoadFromFile it returns a usable Config
// alongside any error.
func Load() (Config, error) {
	var result *multierror.Error
	cfg := Defaults()
	if path := os.Getenv(EnvConfig); path != "" {
		var err error
		cfg, err = LoadFromFile(path)
		result = multierror.Append(result, err)
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv(EnvPluginPath); v != "" {
		cfg.PluginPath = v
	}
	result = multierror.Append(result, cfg.sanitize())
	return cfg, result.ErrorOrNil()
}

// Validate checks enumerated fields and reports every invalid one.
func (c Config) Validate() error {
	var result *multierror.Error
	if _, err := c.colorSpace(); err != nil {
		result = multierror.Append(result, err)
	}
	if !framebridge.BitDepth(c.BitDepth).Valid() {
		result = multierror.Append(result, fmt.Errorf("config: unsupported bit_depth %d", c.BitDepth))
	}
	if _, _, err := c.level(); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

// sanitize resets invalid fields to their defaults and returns what
// Validate reported.
func (c *Config) sanitize() error {
	err := c.Validate()
	d := Defaults()
	if _, e := c.colorSpace(); e != nil {
		c.ColorSpace = d.ColorSpace
	}
	if !framebridge.BitDepth(c.BitDepth).Valid() {
		c.BitDepth = d.BitDepth
	}
	if _, _, e := c.level(); e != nil {
		c.LogLevel = d.LogLevel
	}
	return err
}

func (c Config) colorSpace() (framebridge.ColorSpace, error) {
	switch strings.ToLower(c.ColorSpace) {
	case "", "gamma":
		return framebridge.ColorSpaceGamma, nil
	case "linear":
		return framebridge.ColorSpaceLinear, nil
	default:
		return 0, fmt.Errorf("config: unknown color_space %q", c.ColorSpace)
	}
}

func (c Config) level() (slog.Level, bool, error) {
	switch strings.ToLower(c.LogLevel) {
	case "", "off", "none":
		return 0, false, nil
	case "debug":
		return slog.LevelDebug, true, nil
	case "info":
		return slog.LevelInfo, true, nil
	case "warn", "warning":
		return slog.LevelWarn, true, nil
	case "error":
		return slog.LevelError, true, nil
	default:
		return 0, false, fmt.Errorf("config: unknown log_level %q", c.LogLevel)
	}
}

// Logger returns a text logger on stderr at the configured level, or nil
// when logging is off.
func (c Config) Logger() *slog.Logger {
	lvl, on, err := c.level()
	if err != nil || !on {
		return nil
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// Options converts the configuration to bridge options. Invalid fields fall
// back to the defaults.
func (c Config) Options() []framebridge.Option {
	var opts []framebridge.Option
	if c.Backend != "" {
		opts = append(opts, framebridge.WithBackend(c.Backend))
	}
	if cs, err := c.colorSpace(); err == nil {
		opts = append(opts, framebridge.WithColorSpace(cs))
	}
	return append(opts,
		framebridge.WithBitDepth(framebridge.BitDepth(c.BitDepth)),
		framebridge.WithReleaseTimeout(time.Duration(c.ReleaseTimeoutMs)*time.Millisecond),
		framebridge.WithMaxDimension(c.MaxDimension),
	)
}
