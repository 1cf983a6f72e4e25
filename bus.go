package stopbus

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"sync"

	"github.com/hashicorp/go-hclog"
	"go.opentelemetry.io/otel/trace"

	"github.com/lockp111/go-stopbus/dynvar"
)

// Bus holds registered stops and runs events against them.
//
// One top-level Fire runs at a time; concurrent callers wait for the
// previous call tree to finish. The lock is held while handlers run, so
// handlers must use their Interface and never the *Bus itself.
type Bus struct {
	cfg     config
	log     hclog.Logger
	tracer  trace.Tracer
	metrics *metrics

	mu    sync.Mutex
	stops []*stopSlot
}

// New returns a new Bus with no stops.
func New(opts ...Option) *Bus {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Bus{
		cfg:     cfg,
		log:     cfg.logger.Named(cfg.name),
		tracer:  cfg.tracerProvider.Tracer(instrumentationName),
		metrics: newMetrics(cfg.name, cfg.registerer),
	}
}

// Register adds stop to the bus.
func (b *Bus) Register(stop Stop) *Bus {
	slot := newStopSlot(stop)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.log.Info("registering stop", "stop", slot.name())
	if b.log.IsDebug() {
		b.log.Debug("stop handlers", "stop", slot.name(), "handlers", slot.table.labels())
	}
	b.stops = append(b.stops, slot)
	b.metrics.stops.Set(float64(len(b.stops)))
	return b
}

// Deregister removes every stop of concrete type S from b and returns
// them. There is no way to single out one instance.
func Deregister[S Stop](b *Bus) []S {
	t := reflect.TypeFor[S]()

	b.mu.Lock()
	defer b.mu.Unlock()
	var out []S
	b.stops = slices.DeleteFunc(b.stops, func(s *stopSlot) bool {
		if s.typ != t {
			return false
		}
		out = append(out, s.stop.(S))
		return true
	})
	b.log.Info("deregistered stops", "stop", t.String(), "count", len(out))
	b.metrics.stops.Set(float64(len(b.stops)))
	return out
}

// Clean removes all stops.
func (b *Bus) Clean() *Bus {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stops = nil
	b.metrics.stops.Set(0)
	return b
}

// StopCount returns the number of registered stops.
func (b *Bus) StopCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.stops)
}

// Handles reports whether a registered stop handles d.
func (b *Bus) Handles(d Descriptor) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range b.stops {
		if s.relevant(d.ID()) {
			return true
		}
	}
	return false
}

// Fire runs ev with args and returns the handler's result together with
// the trace of every call made on the way.
//
// On failure the value is the zero R and err is the returned trace, so
// errors.Is(err, ErrNoHandler) and friends work against its Source.
//
// Fire panics if more than one stop handles the same event, also when the
// event is fired from inside a handler. Before the panic leaves Fire, the
// handlers still in flight are unparked and their stops are returned to
// the pool, so a caller that recovers keeps a usable bus.
func Fire[A, R any](ctx context.Context, b *Bus, ev *Event[A, R], args A) (R, *CallTrace, error) {
	var zero R

	b.mu.Lock()
	defer b.mu.Unlock()

	b.log.Info("firing initial event", "event", ev.Name())
	tr := &CallTrace{Root: newCallEvent(ev, dynvar.Snapshot(args))}
	ret := b.run(ctx, ev, dynvar.New(args), tr.Root)
	if ret == nil {
		b.log.Debug("event failed", "event", ev.Name(), "error", tr.Error())
		return zero, tr, tr
	}
	v, err := dynvar.TryTo[R](ret)
	if err != nil {
		panic(fmt.Sprintf("stopbus: %s: %v", ev.Name(), err))
	}
	return v, tr, nil
}

// takeHandler removes the stop handling id from the pool and checks it
// out. It returns nil if no stop handles id.
func (b *Bus) takeHandler(id EventID) *stopSlot {
	var found []int
	for i, s := range b.stops {
		if s.relevant(id) {
			b.log.Trace("found match", "stop", s.name())
			found = append(found, i)
		} else {
			b.log.Trace("mismatch", "stop", s.name())
		}
	}
	switch len(found) {
	case 0:
		return nil
	case 1:
	default:
		labels := make([]string, 0, len(found))
		for _, i := range found {
			labels = append(labels, b.stops[i].lookup(id).label)
		}
		panic(&AmbiguousHandlersError{Event: id, Handlers: labels})
	}
	s := b.stops[found[0]]
	b.stops = slices.Delete(b.stops, found[0], found[0]+1)
	s.checkOut()
	return s
}

// putBack returns a checked out stop to the pool.
func (b *Bus) putBack(s *stopSlot) {
	s.checkIn()
	b.stops = append(b.stops, s)
}
