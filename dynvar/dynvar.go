// Package dynvar provides Var, a container that owns one value of any type
// and remembers enough about it to recover the original type later.
//
// A Var is consumed exactly once: after a successful TryTo or ToUnchecked
// the container is empty and any further recovery fails with ErrConsumed.
package dynvar

import (
	"errors"
	"fmt"
	"reflect"
)

// ErrConsumed is returned when a value is recovered from an empty Var.
var ErrConsumed = errors.New("dynvar: value already consumed")

// MismatchError is returned by TryTo when the requested type differs from
// the stored one. The Var is left untouched.
type MismatchError struct {
	Have reflect.Type
	Want reflect.Type
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("dynvar: have %s, want %s", typeName(e.Have), typeName(e.Want))
}

// Var holds one owned value. The zero Var is empty.
type Var struct {
	ptr   any // always a *T for the stored T
	typ   reflect.Type
	taken bool
}

// New wraps x.
func New[T any](x T) *Var {
	p := new(T)
	*p = x
	return &Var{ptr: p, typ: reflect.TypeFor[T]()}
}

// Of wraps x under its dynamic type, for callers that only hold x as an
// interface. Of(nil) returns an empty Var.
func Of(x any) *Var {
	if x == nil {
		return &Var{taken: true}
	}
	rv := reflect.ValueOf(x)
	p := reflect.New(rv.Type())
	p.Elem().Set(rv)
	return &Var{ptr: p.Interface(), typ: rv.Type()}
}

// TryTo moves the value out of v if it holds a T. On a type mismatch v is
// returned to the caller unchanged, so it can be retried as another type.
func TryTo[T any](v *Var) (T, error) {
	var zero T
	if v.Empty() {
		return zero, ErrConsumed
	}
	p, ok := v.ptr.(*T)
	if !ok {
		return zero, &MismatchError{Have: v.typ, Want: reflect.TypeFor[T]()}
	}
	x := *p
	v.clear()
	return x, nil
}

// ToUnchecked moves the value out of v without checking the stored type.
// The caller must already know v holds a T, typically because the event
// identity it was routed by fixes the type. Breaking that precondition
// panics.
func ToUnchecked[T any](v *Var) T {
	x := *v.ptr.(*T)
	v.clear()
	return x
}

// Peek returns a pointer to the stored value without consuming it.
// The pointer is valid until the value is moved out.
func Peek[T any](v *Var) (*T, bool) {
	if v.Empty() {
		return nil, false
	}
	p, ok := v.ptr.(*T)
	return p, ok
}

// Is reports whether v currently holds a T.
func Is[T any](v *Var) bool {
	if v.Empty() {
		return false
	}
	_, ok := v.ptr.(*T)
	return ok
}

// CloneAs returns a new Var holding a shallow copy of the value in v, if v
// holds a T.
func CloneAs[T any](v *Var) (*Var, bool) {
	p, ok := Peek[T](v)
	if !ok {
		return nil, false
	}
	return New(*p), true
}

// Empty reports whether the value has been moved out (or v was never
// filled).
func (v *Var) Empty() bool {
	return v == nil || v.taken || v.ptr == nil
}

// Type returns the static type the value was wrapped as. It stays valid
// after the value is consumed.
func (v *Var) Type() reflect.Type {
	if v == nil {
		return nil
	}
	return v.typ
}

// TypeName returns a readable name for Type.
func (v *Var) TypeName() string {
	return typeName(v.Type())
}

// Debug returns a best-effort rendering of the stored value.
func (v *Var) Debug() string {
	if v.Empty() {
		return "{consumed " + v.TypeName() + "}"
	}
	return Snapshot(reflect.ValueOf(v.ptr).Elem().Interface())
}

func (v *Var) String() string {
	return "dynvar.Var{" + v.Debug() + "}"
}

func (v *Var) clear() {
	v.ptr = nil
	v.taken = true
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
