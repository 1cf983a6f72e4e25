package dynvar

import (
	"fmt"
	"reflect"
)

// Snapshot formats x for diagnostics. Values that cannot be rendered
// meaningfully (funcs, channels, unsafe pointers) and values whose String
// or Error method panics become "{opaque <type>}" instead.
func Snapshot(x any) (s string) {
	if x == nil {
		return "<nil>"
	}
	t := reflect.TypeOf(x)
	if opaque(t) {
		return placeholder(t)
	}
	defer func() {
		if recover() != nil {
			s = placeholder(t)
		}
	}()
	// fmt swallows panics from these methods, so call them directly.
	switch x := x.(type) {
	case error:
		return x.Error()
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprintf("%+v", x)
}

func opaque(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return true
	}
	return false
}

func placeholder(t reflect.Type) string {
	return "{opaque " + t.String() + "}"
}
