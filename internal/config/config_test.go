package config

import (
	"bytes"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/hashicorp/go-hclog"
)

func TestLoadDefaults(t *testing.T) {
	c := qt.New(t)

	cfg, err := Load()
	c.Assert(err, qt.IsNil)
	c.Check(cfg, qt.DeepEquals, Config{
		LogLevel:  "info",
		Message:   "Hello, World!",
		ShowTrace: true,
	})
}

func TestLoadFromEnv(t *testing.T) {
	c := qt.New(t)
	t.Setenv("STOPBUS_LOG_LEVEL", "debug")
	t.Setenv("STOPBUS_LOG_JSON", "true")
	t.Setenv("STOPBUS_MESSAGE", "hi")
	t.Setenv("STOPBUS_SHOW_TRACE", "false")

	cfg, err := Load()
	c.Assert(err, qt.IsNil)
	c.Check(cfg, qt.DeepEquals, Config{
		LogLevel: "debug",
		LogJSON:  true,
		Message:  "hi",
	})

	var buf bytes.Buffer
	log := cfg.Logger("test", &buf)
	c.Check(log.GetLevel(), qt.Equals, hclog.Debug)
	log.Debug("visible")
	c.Check(buf.String(), qt.Contains, `"@message":"visible"`)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"bad level", "STOPBUS_LOG_LEVEL", "loud"},
		{"bad bool", "STOPBUS_SHOW_TRACE", "maybe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			qt.Assert(t, err, qt.ErrorMatches, `(?s)parse env: .*`)
		})
	}
}
