package stopbus

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ResolutionKind says how one call ended.
type ResolutionKind uint8

const (
	// Unresolved is the state of a call that has not finished yet.
	Unresolved ResolutionKind = iota
	// Success means the handler returned a value.
	Success
	// BusError means the call itself failed, see Resolution.Err.
	BusError
	// NestedCallError means a descendant call failed and this call
	// forwarded the failure. It is never a root cause.
	NestedCallError
)

func (k ResolutionKind) String() string {
	switch k {
	case Unresolved:
		return "unresolved"
	case Success:
		return "success"
	case BusError:
		return "bus error"
	case NestedCallError:
		return "nested call error"
	}
	return fmt.Sprintf("ResolutionKind(%d)", uint8(k))
}

// Resolution is the outcome of one call.
type Resolution struct {
	Kind ResolutionKind
	Err  error // only for BusError
}

func (r Resolution) String() string {
	if r.Kind == BusError && r.Err != nil {
		return r.Kind.String() + ": " + r.Err.Error()
	}
	return r.Kind.String()
}

// CallEvent is one node of a CallTrace: a single invocation of a handler.
type CallEvent struct {
	// ID correlates the node with log lines and spans.
	ID uuid.UUID

	// Event is the event name, Handler the label of the handler that ran
	// it (empty if none was found).
	Event   string
	Handler string

	ArgType string
	Args    string

	ReturnType string
	Return     string
	HasReturn  bool

	Children   []*CallEvent
	Resolution Resolution
}

func newCallEvent(d Descriptor, args string) *CallEvent {
	return &CallEvent{
		ID:         uuid.New(),
		Event:      d.Name(),
		ArgType:    d.ArgType().String(),
		Args:       args,
		ReturnType: d.ReturnType().String(),
	}
}

// resolve sets the outcome. A node is resolved exactly once.
func (e *CallEvent) resolve(r Resolution) {
	if e.Resolution.Kind != Unresolved {
		panic(fmt.Sprintf("stopbus: call %s (%s) resolved twice: %v, then %v", e.Event, e.ID, e.Resolution, r))
	}
	if r.Kind == Unresolved {
		panic("stopbus: resolve with Unresolved")
	}
	e.Resolution = r
}

func (e *CallEvent) setReturn(s string) {
	e.Return = s
	e.HasReturn = true
}

func (e *CallEvent) push(child *CallEvent) {
	e.Children = append(e.Children, child)
}

// Failed reports whether the call ended in a BusError or NestedCallError.
func (e *CallEvent) Failed() bool {
	return e.Resolution.Kind == BusError || e.Resolution.Kind == NestedCallError
}

// CallTrace is the tree of calls made by one top-level Fire. A failed
// CallTrace is also the error returned by Fire and Call.
type CallTrace struct {
	Root *CallEvent
}

// Source returns the node that actually failed, skipping nodes that only
// forwarded a nested failure. It returns nil for a trace without a BusError.
func (t *CallTrace) Source() *CallEvent {
	if t == nil {
		return nil
	}
	node := t.Root
	for node != nil {
		switch node.Resolution.Kind {
		case BusError:
			return node
		case NestedCallError:
			node = lastFailed(node.Children)
		default:
			return nil
		}
	}
	return nil
}

func lastFailed(children []*CallEvent) *CallEvent {
	for i := len(children) - 1; i >= 0; i-- {
		if children[i].Failed() {
			return children[i]
		}
	}
	return nil
}

func (t *CallTrace) Error() string {
	if t == nil || t.Root == nil {
		return "stopbus: empty call trace"
	}
	src := t.Source()
	if src == nil {
		return fmt.Sprintf("stopbus: %s: %v", t.Root.Event, t.Root.Resolution)
	}
	if src == t.Root {
		return fmt.Sprintf("stopbus: %s: %v", t.Root.Event, src.Resolution.Err)
	}
	return fmt.Sprintf("stopbus: %s: nested %s: %v", t.Root.Event, src.Event, src.Resolution.Err)
}

// Unwrap returns the error of the Source node.
func (t *CallTrace) Unwrap() error {
	if src := t.Source(); src != nil {
		return src.Resolution.Err
	}
	return nil
}

// Display renders the call tree as indented text.
func (t *CallTrace) Display() string {
	if t == nil || t.Root == nil {
		return "<empty trace>\n"
	}
	var sb strings.Builder
	t.Root.display(&sb, 0)
	return sb.String()
}

// Display renders e and its descendants as indented text.
func (e *CallEvent) Display() string {
	var sb strings.Builder
	e.display(&sb, 0)
	return sb.String()
}

func (e *CallEvent) display(sb *strings.Builder, depth int) {
	indent := strings.Repeat("  ", depth)
	handler := e.Handler
	if handler == "" {
		handler = "<no handler>"
	}
	fmt.Fprintf(sb, "%s%s (%s) -> %s [%s]: %v\n", indent, e.Event, e.ArgType, e.ReturnType, handler, e.Resolution)
	fmt.Fprintf(sb, "%s  args: %s\n", indent, e.Args)
	for _, c := range e.Children {
		c.display(sb, depth+1)
	}
	if e.HasReturn {
		fmt.Fprintf(sb, "%s  return: %s\n", indent, e.Return)
	}
}
