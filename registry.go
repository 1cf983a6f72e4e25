package stopbus

import (
	"fmt"
	"reflect"

	"github.com/lockp111/go-cmap"

	"github.com/lockp111/go-stopbus/dynvar"
)

// thunk runs one handler. The instance and arguments arrive erased and
// are recovered unchecked: the event identity that selected the entry
// already fixes both types.
type thunk func(inst, args *dynvar.Var, i *Interface) (*dynvar.Var, Stop)

type entry struct {
	event Descriptor
	call  thunk
	label string
}

// Registry collects the handlers of one stop type. Stops fill it in their
// Handlers method with On.
type Registry struct {
	stop    reflect.Type
	entries []entry
}

func newRegistry(stop reflect.Type) *Registry {
	return &Registry{stop: stop}
}

// On attaches fn as the handler of ev for stops of type S and returns r so
// calls can be chained:
//
//	func (p *Printer) Handlers(r *stopbus.Registry) *stopbus.Registry {
//		r = stopbus.On(r, PrintEvent, (*Printer).Print)
//		return stopbus.On(r, FlushEvent, (*Printer).Flush)
//	}
//
// fn receives the stop instance as its first argument and must not capture
// it. S must be the concrete type of the stop being registered; On panics
// otherwise, which surfaces at Register.
func On[S Stop, A, R any](r *Registry, ev *Event[A, R], fn func(S, A, *Interface) R) *Registry {
	st := reflect.TypeFor[S]()
	if st != r.stop {
		panic(fmt.Sprintf("stopbus: handler for %s takes %s, but the stop is %s", ev.Name(), st, r.stop))
	}
	label := fmt.Sprintf("handler: %s, name: %s, args: %s, return: %s",
		st, ev.Name(), ev.ArgType(), ev.ReturnType())
	r.entries = append(r.entries, entry{
		event: ev,
		label: label,
		call: func(inst, args *dynvar.Var, i *Interface) (*dynvar.Var, Stop) {
			s := dynvar.ToUnchecked[S](inst)
			ret := fn(s, dynvar.ToUnchecked[A](args), i)
			return dynvar.New(ret), s
		},
	})
	return r
}

// handlerTable is the cached result of one stop type's Handlers method.
type handlerTable struct {
	entries []entry
}

// matches returns every entry registered for id.
func (t *handlerTable) matches(id EventID) []*entry {
	var out []*entry
	for i := range t.entries {
		if t.entries[i].event.ID() == id {
			out = append(out, &t.entries[i])
		}
	}
	return out
}

func (t *handlerTable) labels() []string {
	out := make([]string, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, e.label)
	}
	return out
}

// tables caches handler tables per concrete stop type. Handlers is a pure
// function of the type, so it only has to run once.
var tables = cmap.New[*handlerTable]()

func buildTable(s Stop) *handlerTable {
	t := reflect.TypeOf(s)
	r := s.Handlers(newRegistry(t))
	if r == nil {
		r = newRegistry(t)
	}
	return &handlerTable{entries: r.entries}
}

func tableFor(s Stop) *handlerTable {
	key := typeKey(reflect.TypeOf(s))
	if t, ok := tables.Get(key); ok {
		return t
	}
	built := buildTable(s)
	tables.Upsert(key, func(old *handlerTable, exist bool) *handlerTable {
		if exist {
			built = old
			return old
		}
		return built
	})
	return built
}

// HandlerLabels describes the handlers a stop registers, one line each.
func HandlerLabels(s Stop) []string {
	return tableFor(s).labels()
}

// typeKey names t uniquely across packages.
func typeKey(t reflect.Type) string {
	switch {
	case t.Kind() == reflect.Pointer:
		return "*" + typeKey(t.Elem())
	case t.Name() != "" && t.PkgPath() != "":
		return t.PkgPath() + "." + t.Name()
	default:
		return t.String()
	}
}
