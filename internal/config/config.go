// SPDX-License-Identifier: MPL-2.0

// Package config loads wheelmeta configuration from defaults, an
// optional TOML config file, and WHEELMETA_* environment variables —
// in that precedence order, lowest to highest.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"

	"wheelmeta/internal/issue"
)

const (
	// AppName is the application name, used for the config directory
	// and the environment variable prefix.
	AppName = "wheelmeta"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "toml"
)

type (
	// HTTPConfig controls the shared HTTP client used for range reads.
	HTTPConfig struct {
		// Timeout bounds each individual range request.
		Timeout time.Duration `mapstructure:"timeout"`
		// UserAgent is sent with every request.
		UserAgent string `mapstructure:"user_agent"`
	}

	// Config is the resolved wheelmeta configuration.
	Config struct {
		// LogLevel filters diagnostic output on stderr: debug, info,
		// warn, or error.
		LogLevel string `mapstructure:"log_level"`
		// HTTP configures remote storage backends.
		HTTP HTTPConfig `mapstructure:"http"`
		// ReadBufferSize is the read-ahead window, in bytes, layered
		// over ranged readers.
		ReadBufferSize int `mapstructure:"read_buffer_size"`
		// Concurrency bounds in-flight fetch tasks. Zero runs one task
		// per locator with no bound.
		Concurrency int `mapstructure:"concurrency"`
	}
)

// configFilePathOverride is set via the --config flag.
var configFilePathOverride string

// SetConfigFilePathOverride points Load at an explicit config file.
func SetConfigFilePathOverride(path string) {
	configFilePathOverride = path
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "warn",
		HTTP: HTTPConfig{
			Timeout:   30 * time.Second,
			UserAgent: AppName,
		},
		ReadBufferSize: 1 << 20,
		Concurrency:    0,
	}
}

// ConfigDir returns the wheelmeta configuration directory using
// platform conventions: %APPDATA% on Windows, ~/Library/Application
// Support on macOS, $XDG_CONFIG_HOME (default ~/.config) elsewhere.
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default:
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// Load resolves the configuration. A missing config file is not an
// error; an unreadable or malformed one is.
func Load() (*Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("http.timeout", defaults.HTTP.Timeout)
	v.SetDefault("http.user_agent", defaults.HTTP.UserAgent)
	v.SetDefault("read_buffer_size", defaults.ReadBufferSize)
	v.SetDefault("concurrency", defaults.Concurrency)

	v.SetEnvPrefix(strings.ToUpper(AppName))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFilePathOverride != "" {
		v.SetConfigFile(configFilePathOverride)
		if err := v.ReadInConfig(); err != nil {
			return nil, issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(configFilePathOverride).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Check the file is valid TOML").
				Wrap(err).
				Build()
		}
	} else if dir, err := ConfigDir(); err == nil {
		v.SetConfigName(ConfigFileName)
		v.SetConfigType(ConfigFileExt)
		v.AddConfigPath(dir)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, issue.NewErrorContext().
					WithOperation("load configuration").
					WithResource(filepath.Join(dir, ConfigFileName+"."+ConfigFileExt)).
					WithSuggestion("Check the file is valid TOML").
					Wrap(err).
					Build()
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, issue.WrapWithOperation(err, "parse configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values the rest of the program cannot work with.
func (c *Config) Validate() error {
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource("log_level").
			WithSuggestion("Use one of: debug, info, warn, error").
			Wrap(err).
			Build()
	}
	if c.HTTP.Timeout < 0 {
		return issue.NewActionableError("validate configuration: http.timeout must not be negative")
	}
	if c.ReadBufferSize < 0 {
		return issue.NewActionableError("validate configuration: read_buffer_size must not be negative")
	}
	if c.Concurrency < 0 {
		return issue.NewActionableError("validate configuration: concurrency must not be negative")
	}
	return nil
}

// Level returns the parsed charmbracelet log level. Validate has
// already rejected unparsable values by the time this is called.
func (c *Config) Level() log.Level {
	lvl, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.WarnLevel
	}
	return lvl
}
