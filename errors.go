package stopbus

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors carried by BusError resolutions.
var (
	// ErrNoHandler is recorded when no registered stop handles an event.
	ErrNoHandler = errors.New("no handler matches the event")

	// ErrRefused is recorded when a nested fire arrives after the top-level
	// context is done.
	ErrRefused = errors.New("nested fire refused")

	// ErrHandlerPanic is matched by every PanicError.
	ErrHandlerPanic = errors.New("handler panicked")

	// ErrHandlerExited is recorded when a handler goroutine ends without
	// returning, panicking or forwarding an error, as with runtime.Goexit.
	ErrHandlerExited = errors.New("handler exited without returning")
)

// PanicError wraps a value a handler panicked with.
type PanicError struct {
	// Event is the name of the event whose handler panicked.
	Event string

	// Value is the value passed to panic().
	Value any

	// Stack is the stack trace at the time of the panic.
	Stack string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("handler for %s panicked: %v", e.Event, e.Value)
}

// Is allows errors.Is to match PanicError with ErrHandlerPanic.
func (e *PanicError) Is(target error) bool {
	return target == ErrHandlerPanic
}

// AmbiguousHandlersError is the panic value used when more than one handler
// claims the same event. Routing must be unambiguous; this is never
// returned as an error.
type AmbiguousHandlersError struct {
	Event    EventID
	Handlers []string
}

func (e *AmbiguousHandlersError) Error() string {
	return fmt.Sprintf("only one handler per event is supported, %s has %d: %s",
		e.Event, len(e.Handlers), strings.Join(e.Handlers, "; "))
}
