package stopbus

import (
	"reflect"

	"github.com/google/uuid"
)

// EventID is the identity of one event declaration. It is drawn fresh for
// every NewEvent call and never reused.
type EventID uuid.UUID

func (id EventID) String() string {
	return uuid.UUID(id).String()
}

// Descriptor is the untyped view of an Event, used for logging and lookups.
type Descriptor interface {
	ID() EventID
	Name() string
	ArgType() reflect.Type
	ReturnType() reflect.Type
}

// Event describes an event taking an A and returning an R. Declare events as
// package-level variables:
//
//	var PrintEvent = stopbus.NewEvent[string, struct{}]("print")
//
// Two events with the same types and name are still distinct events.
type Event[A, R any] struct {
	id   EventID
	name string
}

// NewEvent declares a new event.
func NewEvent[A, R any](name string) *Event[A, R] {
	return &Event[A, R]{
		id:   EventID(uuid.New()),
		name: name,
	}
}

func (e *Event[A, R]) ID() EventID              { return e.id }
func (e *Event[A, R]) Name() string             { return e.name }
func (e *Event[A, R]) ArgType() reflect.Type    { return reflect.TypeFor[A]() }
func (e *Event[A, R]) ReturnType() reflect.Type { return reflect.TypeFor[R]() }

func (e *Event[A, R]) String() string {
	return e.name + "(" + e.ArgType().String() + ") " + e.ReturnType().String()
}
