// Package config holds the metriclog configuration file format.
package config

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultPath is the metrics file written when none is configured.
	DefaultPath = "metrics.log"

	// DefaultInterval is the flush interval.
	DefaultInterval = time.Second

	// DefaultLogLevel is the diagnostic log level.
	DefaultLogLevel = "warn"

	// DefaultLogFormat is the diagnostic log format.
	DefaultLogFormat = "text"

	// DefaultDemoDuration is how long `metriclog run` feeds synthetic values.
	DefaultDemoDuration = 10 * time.Second

	// DefaultFeedInterval is the pause between two synthetic feeds.
	DefaultFeedInterval = 100 * time.Millisecond

	// DefaultSeed seeds the synthetic value generator.
	DefaultSeed = 42
)

// Duration is a TOML wrapper type for time.Duration.
type Duration time.Duration

func (d Duration) String() string {
	return time.Duration(d).String()
}

// UnmarshalText parses a TOML value into a duration value.
func (d *Duration) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		return nil
	}

	duration, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}

	*d = Duration(duration)
	return nil
}

// MarshalText converts a duration to a string for encoding toml.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Output configures the metrics file.
type Output struct {
	Path     string   `toml:"path"`
	Interval Duration `toml:"interval"`
}

// Log configures the diagnostic logger.
type Log struct {
	// Level is one of trace, debug, info, warn, error.
	Level string `toml:"level"`
	// Format is text or json.
	Format string `toml:"format"`
}

// Demo configures the synthetic drivers of `metriclog run`.
type Demo struct {
	Duration     Duration `toml:"duration"`
	FeedInterval Duration `toml:"feed-interval"`
	// LoadWorkers is the number of CPU burning goroutines. Negative means
	// one less than the number of logical cores.
	LoadWorkers int   `toml:"load-workers"`
	Seed        int64 `toml:"seed"`
}

// Debug configures developer tooling.
type Debug struct {
	// PprofAddr enables a pprof server when non-empty.
	PprofAddr string `toml:"pprof-addr"`
}

// Config is the top-level configuration.
type Config struct {
	Output Output `toml:"output"`
	Log    Log    `toml:"log"`
	Demo   Demo   `toml:"demo"`
	Debug  Debug  `toml:"debug"`
}

// NewConfig returns a Config with defaults.
func NewConfig() *Config {
	return &Config{
		Output: Output{
			Path:     DefaultPath,
			Interval: Duration(DefaultInterval),
		},
		Log: Log{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Demo: Demo{
			Duration:     Duration(DefaultDemoDuration),
			FeedInterval: Duration(DefaultFeedInterval),
			LoadWorkers:  -1,
			Seed:         DefaultSeed,
		},
	}
}

// Load reads a TOML file on top of the defaults.
func Load(path string) (*Config, error) {
	c := NewConfig()
	md, err := toml.DecodeFile(path, c)
	if err != nil {
		return nil, fmt.Errorf("parsing config %q: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config %q: unknown key %q", path, undecoded[0].String())
	}
	return c, nil
}

// Validate returns an error if the config is invalid.
func (c *Config) Validate() error {
	if c.Output.Path == "" {
		return errors.New("output.path must be set")
	}
	if c.Output.Interval <= 0 {
		return fmt.Errorf("output.interval must be positive, got %s", c.Output.Interval)
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	if c.Demo.Duration < 0 {
		return fmt.Errorf("demo.duration must not be negative, got %s", c.Demo.Duration)
	}
	if c.Demo.FeedInterval <= 0 {
		return fmt.Errorf("demo.feed-interval must be positive, got %s", c.Demo.FeedInterval)
	}
	return nil
}

// Write encodes the config as TOML.
func (c *Config) Write(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}
