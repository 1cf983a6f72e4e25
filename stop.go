package stopbus

import (
	"fmt"
	"reflect"
	"sync/atomic"

	"github.com/lockp111/go-stopbus/dynvar"
)

// Stop is a component that handles events. Handlers attaches the stop's
// handlers to r with On. It must be deterministic and free of side effects:
// the bus may call it more than once and caches its result per concrete
// type.
type Stop interface {
	Handlers(r *Registry) *Registry
}

// stopSlot wraps one registered stop. A slot is taken out of the bus pool
// for the whole of a call, so at most one execution is ever in flight;
// checkedOut turns a violation into a panic instead of a data race.
type stopSlot struct {
	stop       Stop
	typ        reflect.Type
	table      *handlerTable
	checkedOut atomic.Bool
}

func newStopSlot(s Stop) *stopSlot {
	return &stopSlot{
		stop:  s,
		typ:   reflect.TypeOf(s),
		table: tableFor(s),
	}
}

func (s *stopSlot) name() string {
	return s.typ.String()
}

// lookup returns the entry for id, or nil. Two entries for the same event
// on one stop is a programming error.
func (s *stopSlot) lookup(id EventID) *entry {
	m := s.table.matches(id)
	switch len(m) {
	case 0:
		return nil
	case 1:
		return m[0]
	}
	labels := make([]string, 0, len(m))
	for _, e := range m {
		labels = append(labels, e.label)
	}
	panic(&AmbiguousHandlersError{Event: id, Handlers: labels})
}

func (s *stopSlot) relevant(id EventID) bool {
	return s.lookup(id) != nil
}

func (s *stopSlot) checkOut() {
	if !s.checkedOut.CompareAndSwap(false, true) {
		panic(fmt.Sprintf("stopbus: stop %s is already executing", s.name()))
	}
}

func (s *stopSlot) checkIn() {
	if !s.checkedOut.CompareAndSwap(true, false) {
		panic(fmt.Sprintf("stopbus: stop %s returned twice", s.name()))
	}
}

// execute runs the handler for id. It is called on the handler goroutine
// while the slot is checked out.
func (s *stopSlot) execute(id EventID, args *dynvar.Var, i *Interface) *dynvar.Var {
	e := s.lookup(id)
	if e == nil {
		panic(fmt.Sprintf("stopbus: stop %s does not handle %s", s.name(), id))
	}
	ret, inst := e.call(dynvar.Of(s.stop), args, i)
	s.stop = inst
	return ret
}
