package stopbus

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/lockp111/go-stopbus/dynvar"
)

// request is a message from a running handler to the bus that owns it.
type request interface {
	isRequest()
}

// fireRequest asks the bus to run a nested call.
type fireRequest struct {
	event   Descriptor
	args    *dynvar.Var
	node    *CallEvent
	respond chan response
}

// forwardRequest tells the bus the handler gave up. Exactly one of trace
// and err is set. The handler blocks on release until the bus has taken
// over, then exits.
type forwardRequest struct {
	trace   *CallTrace
	err     error
	release chan struct{}
}

func (*fireRequest) isRequest()    {}
func (*forwardRequest) isRequest() {}

// response answers a fireRequest: a value on success, a trace otherwise.
type response struct {
	value *dynvar.Var
	trace *CallTrace
}

// Interface is the handle a running handler uses to talk to its bus. It is
// only valid for the duration of that one handler invocation.
//
// The bus is locked while a handler runs, so a handler must reach the bus
// only through its Interface. Calling Fire, Register, Deregister, Clean,
// StopCount or Handles on the same *Bus from a handler deadlocks.
type Interface struct {
	ctx      context.Context
	event    Descriptor
	requests chan<- request
	abort    <-chan struct{}

	// forwarded is set by ForwardError before the handler goroutine exits.
	forwarded bool
}

// Context returns the context of the current call. It carries the call's
// span and is cancelled once the call is over.
func (i *Interface) Context() context.Context {
	return i.ctx
}

// Event returns the event being handled.
func (i *Interface) Event() Descriptor {
	return i.event
}

// Call fires ev on the bus running the current handler and blocks until
// the nested call is over. On failure the error is a *CallTrace.
func Call[A, R any](i *Interface, ev *Event[A, R], args A) (R, error) {
	var zero R
	req := &fireRequest{
		event:   ev,
		args:    dynvar.New(args),
		node:    newCallEvent(ev, dynvar.Snapshot(args)),
		respond: make(chan response, 1),
	}
	i.requests <- req
	var resp response
	select {
	case resp = <-req.respond:
	case <-i.abort:
		runtime.Goexit()
	}
	if resp.trace != nil {
		return zero, resp.trace
	}
	v, err := dynvar.TryTo[R](resp.value)
	if err != nil {
		panic(fmt.Sprintf("stopbus: nested %s: %v", ev.Name(), err))
	}
	return v, nil
}

// ForwardError ends the current handler with a failure and never returns.
//
// If err is or wraps a *CallTrace from Call, the trace is forwarded and the
// current call is marked as a NestedCallError. Any other error becomes the
// current call's own BusError.
func (i *Interface) ForwardError(err error) {
	if err == nil {
		panic("stopbus: ForwardError(nil)")
	}
	req := &forwardRequest{release: make(chan struct{})}
	var tr *CallTrace
	if errors.As(err, &tr) && tr.Root != nil {
		req.trace = tr
	} else {
		req.err = err
	}
	i.forwarded = true
	i.requests <- req
	<-req.release
	runtime.Goexit()
}

// Check forwards err if it is not nil.
func (i *Interface) Check(err error) {
	if err != nil {
		i.ForwardError(err)
	}
}

// Unwrap returns v, or forwards err if it is not nil. It pairs with Call:
//
//	v, err := stopbus.Call(bus, ev, args)
//	v = stopbus.Unwrap(bus, v, err)
func Unwrap[R any](i *Interface, v R, err error) R {
	i.Check(err)
	return v
}

// Must is Unwrap in a form that takes Call's results directly:
//
//	v := stopbus.Must[int](bus)(stopbus.Call(bus, ev, args))
func Must[R any](i *Interface) func(R, error) R {
	return func(v R, err error) R {
		return Unwrap(i, v, err)
	}
}
