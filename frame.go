package stopbus

import (
	"context"
	"fmt"
	"runtime/debug"

	"go.opentelemetry.io/otel/trace"

	"github.com/lockp111/go-stopbus/dynvar"
)

// activeCall is one handler invocation in flight: a stop checked out of
// the pool and the goroutine running its handler.
type activeCall struct {
	event Descriptor
	node  *CallEvent
	slot  *stopSlot

	ctx    context.Context
	cancel context.CancelFunc
	span   trace.Span

	// requests carries at most one message from the handler at a time.
	requests chan request
	done     chan outcome
	exited   chan struct{}

	// abort is closed to unpark the handler when the call tree is torn
	// down by a panic in the engine.
	abort chan struct{}
}

// outcome is how a handler goroutine ended, unless it was abandoned.
type outcome struct {
	value *dynvar.Var
	err   error
}

// A frame is one entry of the explicit call stack. The stack's bottom
// frame is the top-level call; each frame above it is one nested call.
type frame interface {
	call() *activeCall
}

// readyToPoll is a call whose handler is running and may send requests.
type readyToPoll struct {
	*activeCall
}

// awaitingNestedCall is a call blocked on the nested call in the frame
// above it. responder delivers that call's result.
type awaitingNestedCall struct {
	*activeCall
	responder chan<- response
}

func (f readyToPoll) call() *activeCall        { return f.activeCall }
func (f awaitingNestedCall) call() *activeCall { return f.activeCall }

type stack []frame

func (s *stack) push(f frame) { *s = append(*s, f) }

func (s *stack) pop() frame {
	old := *s
	f := old[len(old)-1]
	old[len(old)-1] = nil
	*s = old[:len(old)-1]
	return f
}

// popAwaiting pops the caller of a finished nested call.
func (s *stack) popAwaiting() awaitingNestedCall {
	f, ok := s.pop().(awaitingNestedCall)
	if !ok {
		panic("stopbus: finished a nested call whose caller is not waiting for it")
	}
	return f
}

// run drives the call tree rooted at node to completion and returns the
// top-level result, or nil if the top-level call failed. Handlers run on
// their own goroutines, but only run touches the pool and the stack, and
// only one handler goroutine is ever unblocked at a time.
func (b *Bus) run(ctx context.Context, ev Descriptor, args *dynvar.Var, node *CallEvent) *dynvar.Var {
	first := b.startCall(ctx, ctx, ev, args, node)
	if first == nil {
		b.metrics.depth.Observe(0)
		return nil
	}

	var st stack
	var c *activeCall
	st.push(readyToPoll{first})
	maxDepth := 1
	defer func() { b.metrics.depth.Observe(float64(maxDepth)) }()
	defer func() {
		if r := recover(); r != nil {
			b.abandon(c, st)
			panic(r)
		}
	}()

	for {
		f, ok := st.pop().(readyToPoll)
		if !ok {
			panic("stopbus: polled a frame that is waiting on a nested call")
		}
		c = f.activeCall

		select {
		case out := <-c.done:
			if out.err != nil {
				b.log.Error("handler failed", "event", c.node.Event, "stop", c.slot.name(), "error", out.err)
				b.finish(c, Resolution{Kind: BusError, Err: out.err})
				if len(st) == 0 {
					return nil
				}
				b.fail(&st, c.node)
				continue
			}

			b.log.Debug("handler returned", "event", c.node.Event, "stop", c.slot.name())
			c.node.setReturn(out.value.Debug())
			b.finish(c, Resolution{Kind: Success})
			if len(st) == 0 {
				return out.value
			}
			parent := st.popAwaiting()
			parent.node.push(c.node)
			parent.responder <- response{value: out.value}
			st.push(readyToPoll{parent.activeCall})

		case req := <-c.requests:
			switch req := req.(type) {
			case *fireRequest:
				b.log.Debug("nested fire", "event", req.event.Name(), "caller", c.node.Event)
				nested := b.startCall(ctx, c.ctx, req.event, req.args, req.node)
				if nested == nil {
					req.respond <- response{trace: &CallTrace{Root: req.node}}
					st.push(readyToPoll{c})
					continue
				}
				st.push(awaitingNestedCall{activeCall: c, responder: req.respond})
				st.push(readyToPoll{nested})
				maxDepth = max(maxDepth, len(st))

			case *forwardRequest:
				b.log.Debug("handler forwarded an error", "event", c.node.Event, "stop", c.slot.name())
				// The handler is parked in ForwardError; let it exit
				// before its stop goes back to the pool.
				c.cancel()
				close(req.release)
				var res Resolution
				if req.trace != nil {
					res = Resolution{Kind: NestedCallError}
					c.node.push(req.trace.Root)
				} else {
					res = Resolution{Kind: BusError, Err: req.err}
				}
				b.finish(c, res)
				if len(st) == 0 {
					return nil
				}
				b.fail(&st, c.node)
			}
		}
	}
}

// fail delivers the failed call node to its waiting caller and resumes
// the caller. The node joins the caller's trace only if the caller
// forwards it.
func (b *Bus) fail(st *stack, node *CallEvent) {
	parent := st.popAwaiting()
	parent.responder <- response{trace: &CallTrace{Root: node}}
	st.push(readyToPoll{parent.activeCall})
}

// startCall resolves the handler for ev and starts it. If the call cannot
// start, node is resolved as a BusError and startCall returns nil.
//
// top is the context of the top-level Fire; parent is the caller's
// handler context, which carries the caller's span.
func (b *Bus) startCall(top, parent context.Context, ev Descriptor, args *dynvar.Var, node *CallEvent) *activeCall {
	ctx, span := b.startSpan(parent, node)

	if err := top.Err(); err != nil {
		b.log.Warn("refusing fire", "event", ev.Name(), "error", err)
		b.resolve(node, span, Resolution{Kind: BusError, Err: fmt.Errorf("%w: %w", ErrRefused, err)})
		return nil
	}

	slot := b.takeHandler(ev.ID())
	if slot == nil {
		b.log.Error("no handlers found", "event", ev.Name(), "id", ev.ID().String())
		b.resolve(node, span, Resolution{Kind: BusError, Err: ErrNoHandler})
		return nil
	}
	node.Handler = slot.lookup(ev.ID()).label

	ctx, cancel := context.WithCancel(ctx)
	c := &activeCall{
		event:    ev,
		node:     node,
		slot:     slot,
		ctx:      ctx,
		cancel:   cancel,
		span:     span,
		requests: make(chan request, 1),
		done:     make(chan outcome, 1),
		exited:   make(chan struct{}),
		abort:    make(chan struct{}),
	}
	iface := &Interface{
		ctx:      ctx,
		event:    ev,
		requests: c.requests,
		abort:    c.abort,
	}
	go c.execute(args, iface)
	return c
}

// execute runs the handler. If the handler calls ForwardError the
// goroutine exits without sending on done; any other exit sends exactly
// one outcome.
func (c *activeCall) execute(args *dynvar.Var, i *Interface) {
	defer close(c.exited)
	returned := false
	var ret *dynvar.Var
	defer func() {
		if r := recover(); r != nil {
			c.done <- outcome{err: &PanicError{
				Event: c.event.Name(),
				Value: r,
				Stack: string(debug.Stack()),
			}}
			return
		}
		switch {
		case returned:
			c.done <- outcome{value: ret}
		case !i.forwarded:
			// runtime.Goexit, including t.FailNow in tests.
			c.done <- outcome{err: fmt.Errorf("%w: %s", ErrHandlerExited, c.event.Name())}
		}
	}()
	ret = c.slot.execute(c.event.ID(), args, i)
	returned = true
}

// finish waits for the handler goroutine, returns the stop to the pool and
// resolves the call.
func (b *Bus) finish(c *activeCall, res Resolution) {
	<-c.exited
	c.cancel()
	b.putBack(c.slot)
	b.resolve(c.node, c.span, res)
}

func (b *Bus) resolve(node *CallEvent, span trace.Span, res Resolution) {
	node.resolve(res)
	endSpan(span, node)
	b.metrics.resolved(node)
}

// abandon tears down the calls still in flight when the engine panics:
// cur and every caller waiting below it. Their handlers are unparked and
// exit, and their stops go back to the pool. Their nodes stay unresolved.
func (b *Bus) abandon(cur *activeCall, st stack) {
	calls := make([]*activeCall, 0, len(st)+1)
	if cur != nil {
		calls = append(calls, cur)
	}
	for i := len(st) - 1; i >= 0; i-- {
		if c := st[i].call(); c != cur {
			calls = append(calls, c)
		}
	}
	for _, c := range calls {
		if !c.slot.checkedOut.Load() {
			continue
		}
		close(c.abort)
		<-c.exited
		c.cancel()
		c.span.End()
		b.putBack(c.slot)
	}
	b.log.Warn("abandoned call tree after a panic", "calls", len(calls))
}
