package watcher

import (
	"io"
	"log/slog"
	"time"
)

const (
	DefaultDebounce = 500 * time.Millisecond
	DefaultTick     = 500 * time.Millisecond
)

// Config controls a Controller. Zero values select the defaults.
type Config struct {
	// Debounce is the quiet period after the last recorded change before a
	// batch is delivered.
	Debounce time.Duration

	// Tick bounds each blocking receive, and with it both cancellation latency
	// and flush latency.
	Tick time.Duration

	Logger *slog.Logger

	// NewSource builds the event source. Defaults to the fsnotify backend.
	NewSource func(logger *slog.Logger) Source

	// Now is the clock used for debouncing. Defaults to time.Now.
	Now func() time.Time
}

func (c Config) withDefaults() Config {
	if c.Debounce == 0 {
		c.Debounce = DefaultDebounce
	}
	if c.Tick == 0 {
		c.Tick = DefaultTick
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if c.NewSource == nil {
		c.NewSource = newFSSource
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

func (c Config) validate() *InitError {
	if c.Debounce < 0 {
		return invalidConfig("debounce interval must be positive, got %s", c.Debounce)
	}
	if c.Tick < 0 {
		return invalidConfig("tick interval must be positive, got %s", c.Tick)
	}
	return nil
}
