// Package config loads the demo program's settings from the environment.
package config

import (
	"fmt"
	"io"

	"github.com/caarlos0/env/v11"
	"github.com/hashicorp/go-hclog"
)

// Config is the demo configuration.
type Config struct {
	// LogLevel is one of trace, debug, info, warn, error, off.
	LogLevel string `env:"STOPBUS_LOG_LEVEL" envDefault:"info"`
	LogJSON  bool   `env:"STOPBUS_LOG_JSON"`

	// Message is what the hello stop prints.
	Message string `env:"STOPBUS_MESSAGE" envDefault:"Hello, World!"`

	// ShowTrace logs the call trace after the event completes.
	ShowTrace bool `env:"STOPBUS_SHOW_TRACE" envDefault:"true"`
}

// Load reads Config from environment variables.
func Load() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if hclog.LevelFromString(c.LogLevel) == hclog.NoLevel {
		return Config{}, fmt.Errorf("parse env: unknown log level %q", c.LogLevel)
	}
	return c, nil
}

// Logger builds the logger described by c, writing to w.
func (c Config) Logger(name string, w io.Writer) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:       name,
		Level:      hclog.LevelFromString(c.LogLevel),
		JSONFormat: c.LogJSON,
		Output:     w,
	})
}
