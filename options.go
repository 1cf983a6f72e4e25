package stopbus

import (
	"github.com/hashicorp/go-hclog"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Option configures a Bus.
type Option func(*config)

type config struct {
	// name identifies the bus in logs and metric labels.
	name string

	logger hclog.Logger

	// registerer receives the bus metrics. Nil keeps them unregistered.
	registerer prometheus.Registerer

	tracerProvider trace.TracerProvider
}

func defaultConfig() config {
	return config{
		name:           "default",
		logger:         hclog.NewNullLogger(),
		tracerProvider: noop.NewTracerProvider(),
	}
}

// WithName sets the bus name used in log lines and the "bus" metric label.
func WithName(name string) Option {
	return func(c *config) {
		if name != "" {
			c.name = name
		}
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l hclog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRegisterer registers the bus metrics with r.
func WithRegisterer(r prometheus.Registerer) Option {
	return func(c *config) {
		c.registerer = r
	}
}

// WithTracerProvider makes the bus emit one span per call. The default
// provider is a no-op.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *config) {
		if tp != nil {
			c.tracerProvider = tp
		}
	}
}
