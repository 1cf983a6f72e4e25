package stopbus

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsNamespace = "stopbus"

	eventKey      = "event"
	resolutionKey = "resolution"
)

type metrics struct {
	calls *prometheus.CounterVec
	depth prometheus.Histogram
	stops prometheus.Gauge
}

func newMetrics(name string, reg prometheus.Registerer) *metrics {
	labels := prometheus.Labels{"bus": name}
	m := &metrics{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   metricsNamespace,
			Name:        "calls_total",
			Help:        "Calls handled by the bus, by event and resolution.",
			ConstLabels: labels,
		}, []string{eventKey, resolutionKey}),
		depth: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   metricsNamespace,
			Name:        "fire_depth",
			Help:        "Deepest frame stack reached by one top-level fire.",
			ConstLabels: labels,
			Buckets:     []float64{1, 2, 3, 4, 6, 8, 16, 32},
		}),
		stops: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   metricsNamespace,
			Name:        "stops",
			Help:        "Stops registered with the bus.",
			ConstLabels: labels,
		}),
	}
	if reg != nil {
		reg.MustRegister(m.calls, m.depth, m.stops)
	}
	return m
}

func (m *metrics) resolved(node *CallEvent) {
	m.calls.WithLabelValues(node.Event, node.Resolution.Kind.String()).Inc()
}
