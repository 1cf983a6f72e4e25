package dynvar

import (
	"errors"
	"reflect"
	"testing"

	qt "github.com/frankban/quicktest"
)

type point struct {
	X, Y int
}

type panicky struct{}

func (panicky) String() string { panic("boom") }

func TestTryTo(t *testing.T) {
	c := qt.New(t)

	v := New(point{1, 2})
	c.Assert(v.Type(), qt.Equals, reflect.TypeFor[point]())
	c.Assert(Is[point](v), qt.IsTrue)

	_, err := TryTo[string](v)
	var mismatch *MismatchError
	c.Assert(errors.As(err, &mismatch), qt.IsTrue)
	c.Assert(mismatch.Want, qt.Equals, reflect.TypeFor[string]())
	c.Assert(err, qt.ErrorMatches, "dynvar: have dynvar.point, want string")
	c.Assert(v.Empty(), qt.IsFalse)

	got, err := TryTo[point](v)
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.Equals, point{1, 2})
	c.Assert(v.Empty(), qt.IsTrue)

	_, err = TryTo[point](v)
	c.Assert(err, qt.ErrorIs, ErrConsumed)
	c.Assert(v.TypeName(), qt.Equals, "dynvar.point")
}

func TestToUnchecked(t *testing.T) {
	c := qt.New(t)

	v := New("hello")
	c.Assert(ToUnchecked[string](v), qt.Equals, "hello")
	c.Assert(v.Empty(), qt.IsTrue)

	w := New(42)
	c.Assert(func() { ToUnchecked[string](w) }, qt.PanicMatches, ".*")
}

func TestInterfaceTypes(t *testing.T) {
	c := qt.New(t)

	var err error = errors.New("x")
	v := New(err)
	c.Assert(v.Type(), qt.Equals, reflect.TypeFor[error]())
	c.Assert(Is[error](v), qt.IsTrue)
	c.Assert(Is[string](v), qt.IsFalse)

	var nilErr error
	n := New(nilErr)
	got, e := TryTo[error](n)
	c.Assert(e, qt.IsNil)
	c.Assert(got, qt.IsNil)
}

func TestPeek(t *testing.T) {
	c := qt.New(t)

	v := New([]int{1, 2})
	p, ok := Peek[[]int](v)
	c.Assert(ok, qt.IsTrue)
	*p = append(*p, 3)

	_, ok = Peek[string](v)
	c.Assert(ok, qt.IsFalse)

	got, err := TryTo[[]int](v)
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.DeepEquals, []int{1, 2, 3})

	_, ok = Peek[[]int](v)
	c.Assert(ok, qt.IsFalse)
}

func TestCloneAs(t *testing.T) {
	c := qt.New(t)

	v := New(point{3, 4})
	w, ok := CloneAs[point](v)
	c.Assert(ok, qt.IsTrue)
	c.Assert(ToUnchecked[point](w), qt.Equals, point{3, 4})
	c.Assert(v.Empty(), qt.IsFalse)

	_, ok = CloneAs[int](v)
	c.Assert(ok, qt.IsFalse)
}

func TestDebug(t *testing.T) {
	c := qt.New(t)

	c.Assert(New(point{1, 2}).Debug(), qt.Equals, "{X:1 Y:2}")
	c.Assert(New("s").Debug(), qt.Equals, "s")
	c.Assert(New(func() {}).Debug(), qt.Equals, "{opaque func()}")
	c.Assert(New(make(chan int)).Debug(), qt.Equals, "{opaque chan int}")
	c.Assert(New(panicky{}).Debug(), qt.Equals, "{opaque dynvar.panicky}")
	c.Assert(New(errors.New("bad")).Debug(), qt.Equals, "bad")

	v := New(1)
	ToUnchecked[int](v)
	c.Assert(v.Debug(), qt.Equals, "{consumed int}")
	c.Assert(Snapshot(nil), qt.Equals, "<nil>")
}

func TestOf(t *testing.T) {
	c := qt.New(t)

	var s any = point{1, 2}
	v := Of(s)
	c.Check(v.Type(), qt.Equals, reflect.TypeFor[point]())
	c.Check(Is[point](v), qt.IsTrue)
	got, err := TryTo[point](v)
	c.Assert(err, qt.IsNil)
	c.Check(got, qt.Equals, point{1, 2})

	c.Check(Of(nil).Empty(), qt.IsTrue)
}

func TestMismatchNilType(t *testing.T) {
	var v Var
	v.ptr = new(int)
	_, err := TryTo[string](&v)
	qt.Assert(t, err, qt.ErrorMatches, "dynvar: have <nil>, want string")
}
