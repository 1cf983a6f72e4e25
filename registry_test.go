package stopbus

import (
	"reflect"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/lockp111/go-stopbus/dynvar"
)

type entryView struct {
	ID    EventID
	Label string
}

func viewOf(t *handlerTable) []entryView {
	var out []entryView
	for _, e := range t.entries {
		out = append(out, entryView{e.event.ID(), e.label})
	}
	return out
}

func TestBuildTableIsDeterministic(t *testing.T) {
	first := buildTable(&relay{})
	second := buildTable(&relay{})

	if diff := cmp.Diff(viewOf(first), viewOf(second)); diff != "" {
		t.Errorf("two builds differ (-first +second):\n%s", diff)
	}
	want := []EventID{relayEvent.ID(), outerEvent.ID()}
	var got []EventID
	for _, v := range viewOf(first) {
		got = append(got, v.ID)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("entry order (-want +got):\n%s", diff)
	}
}

func TestTableForIsCached(t *testing.T) {
	a := tableFor(&counter{})
	b := tableFor(&counter{calls: 3})
	if a != b {
		t.Error("tableFor built a second table for the same type")
	}
	if tableFor(&doubler{}) == a {
		t.Error("tableFor shared a table between types")
	}
}

func TestHandlerLabels(t *testing.T) {
	got := HandlerLabels(&troubled{})
	want := []string{
		"handler: *stopbus.troubled, name: panic, args: struct {}, return: int",
		"handler: *stopbus.troubled, name: fail, args: string, return: struct {}",
		"handler: *stopbus.troubled, name: soft, args: string, return: string",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("labels (-want +got):\n%s", diff)
	}
}

func TestEventIdentity(t *testing.T) {
	a := NewEvent[int, int]("same")
	b := NewEvent[int, int]("same")
	if a.ID() == b.ID() {
		t.Error("two declarations share an identity")
	}
	if a.ArgType() != reflect.TypeFor[int]() || a.ReturnType() != reflect.TypeFor[int]() {
		t.Errorf("types = %v, %v, want int, int", a.ArgType(), a.ReturnType())
	}
	if a.String() != "same(int) int" {
		t.Errorf("String() = %q", a.String())
	}
}

// doubled registers two handlers for inc.
type doubled struct{}

func (d *doubled) Handlers(r *Registry) *Registry {
	r = On(r, incEvent, func(_ *doubled, n int, _ *Interface) int { return n })
	return On(r, incEvent, func(_ *doubled, n int, _ *Interface) int { return -n })
}

func TestRelevantAmbiguous(t *testing.T) {
	s := newStopSlot(&doubled{})
	defer func() {
		if _, ok := recover().(*AmbiguousHandlersError); !ok {
			t.Error("relevant did not panic with *AmbiguousHandlersError")
		}
	}()
	s.relevant(incEvent.ID())
}

func TestStopSlot(t *testing.T) {
	c := &counter{}
	s := newStopSlot(c)

	if !s.relevant(incEvent.ID()) {
		t.Error("counter is not relevant for inc")
	}
	if s.relevant(twiceEvent.ID()) {
		t.Error("counter is relevant for twice")
	}

	s.checkOut()
	ret := s.execute(incEvent.ID(), dynvar.New(1), nil)
	s.checkIn()
	if got, err := dynvar.TryTo[int](ret); err != nil || got != 2 {
		t.Errorf("execute = %v, %v, want 2", got, err)
	}
	if c.calls != 1 {
		t.Errorf("calls = %d, want 1", c.calls)
	}
}

func TestStopSlotDoubleCheckOut(t *testing.T) {
	s := newStopSlot(&counter{})
	s.checkOut()
	defer func() {
		if recover() == nil {
			t.Error("second checkOut did not panic")
		}
	}()
	s.checkOut()
}
