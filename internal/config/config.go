// Package config provides configuration loading for gitwatch.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variable overrides, e.g.
// GITWATCH_WATCH_DEBOUNCE=1s.
const EnvPrefix = "GITWATCH"

// Config holds gitwatch configuration.
type Config struct {
	Watch   WatchConfig
	Journal JournalConfig
	Output  OutputConfig
	Log     LogConfig
	Ignore  IgnoreConfig
}

// WatchConfig holds watch session settings.
type WatchConfig struct {
	Debounce time.Duration
	Tick     time.Duration
	// ExclusionRoot overrides the default <root>/.git/ probe directory.
	ExclusionRoot string `mapstructure:"exclusion_root"`
}

// JournalConfig holds history journal settings.
type JournalConfig struct {
	Path    string
	Enabled bool
}

// OutputConfig holds batch output settings.
type OutputConfig struct {
	Format string // text or json
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string
	Format string // text or json
}

// IgnoreConfig holds repository filter settings.
type IgnoreConfig struct {
	Patterns  []string
	Gitignore bool
}

// Dir returns the gitwatch config directory, respecting XDG_CONFIG_HOME.
// Defaults to ~/.config/gitwatch if XDG_CONFIG_HOME is not set.
func Dir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "gitwatch"), nil
}

// DefaultJournalPath returns ~/.gitwatch/gitwatch.db.
func DefaultJournalPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".gitwatch", "gitwatch.db"), nil
}

// Load reads configuration from file and env. An explicit path, or
// $GITWATCH_CONFIG, must exist; the default {Dir}/config.toml is optional.
func Load(path string) (Config, error) {
	v := viper.New()

	v.SetDefault("watch.debounce", 500*time.Millisecond)
	v.SetDefault("watch.tick", 500*time.Millisecond)
	v.SetDefault("watch.exclusion_root", "")
	if journal, err := DefaultJournalPath(); err == nil {
		v.SetDefault("journal.path", journal)
	} else {
		v.SetDefault("journal.path", "")
	}
	v.SetDefault("journal.enabled", true)
	v.SetDefault("output.format", "text")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("ignore.patterns", []string{})
	v.SetDefault("ignore.gitignore", true)

	v.SetConfigType("toml")

	if path == "" {
		path = os.Getenv(EnvPrefix + "_CONFIG")
	}
	explicit := path != ""
	if explicit {
		v.SetConfigFile(path)
	} else if dir, err := Dir(); err == nil {
		v.AddConfigPath(dir)
		v.SetConfigName("config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks enumerated values and intervals.
func (c Config) Validate() error {
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("invalid watch.debounce %s: must not be negative", c.Watch.Debounce)
	}
	if c.Watch.Tick < 0 {
		return fmt.Errorf("invalid watch.tick %s: must not be negative", c.Watch.Tick)
	}
	if err := oneOf("output.format", c.Output.Format, "text", "json"); err != nil {
		return err
	}
	if err := oneOf("log.format", c.Log.Format, "text", "json"); err != nil {
		return err
	}
	return oneOf("log.level", strings.ToLower(c.Log.Level), "debug", "info", "warn", "error")
}

func oneOf(key, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("invalid %s %q: must be one of %s", key, value, strings.Join(allowed, ", "))
}
