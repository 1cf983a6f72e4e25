package stopbus

import "context"

var defaultBus = New()

// Default returns the package-level bus.
func Default() *Bus {
	return defaultBus
}

// Register adds stop to the default bus.
func Register(stop Stop) *Bus {
	return defaultBus.Register(stop)
}

// Clean removes all stops from the default bus.
func Clean() *Bus {
	return defaultBus.Clean()
}

// FireDefault runs ev on the default bus.
func FireDefault[A, R any](ctx context.Context, ev *Event[A, R], args A) (R, *CallTrace, error) {
	return Fire(ctx, defaultBus, ev, args)
}
