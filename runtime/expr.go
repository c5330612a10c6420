package runtime

import (
	"reflect"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// Get follows path through nested maps, returning nil when a segment is
// missing.
func Get(v any, path ...string) any {
	for _, p := range path {
		switch m := v.(type) {
		case map[string]any:
			v = m[p]
		default:
			return nil
		}
	}
	return v
}

// IsNull reports whether v is nil or a nil pointer, map or slice.
func IsNull(v any) bool {
	if v == nil {
		return true
	}
	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

// Exists reports whether v is set: not null and, for strings and
// collections, not empty.
func Exists(v any) bool {
	if IsNull(v) {
		return false
	}
	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.String, reflect.Map, reflect.Slice, reflect.Array:
		return rv.Len() > 0
	}
	return true
}

// Truthy reports whether v counts as true in a condition.
func Truthy(v any) bool {
	switch v := v.(type) {
	case bool:
		return v
	case string:
		return v != ""
	case time.Time:
		return !v.IsZero()
	}
	if !Exists(v) {
		return false
	}
	if f, err := cast.ToFloat64E(v); err == nil {
		return f != 0
	}
	return true
}

// Op applies a binary operator of the expression language.
func Op(op string, l, r any) any {
	switch op {
	case "and":
		return Truthy(l) && Truthy(r)
	case "or":
		return Truthy(l) || Truthy(r)
	case "==":
		return Equal(l, r)
	case "!=":
		return !Equal(l, r)
	case ">", ">=", "<", "<=":
		c, ok := compare(l, r)
		if !ok {
			return false
		}
		switch op {
		case ">":
			return c > 0
		case ">=":
			return c >= 0
		case "<":
			return c < 0
		default:
			return c <= 0
		}
	case "in":
		return in(l, r)
	case "notIn":
		return !in(l, r)
	case "+":
		if ls, ok := l.(string); ok {
			return ls + cast.ToString(r)
		}
		return arith(op, l, r)
	case "-", "*", "/":
		return arith(op, l, r)
	}
	return nil
}

// Equal compares two values, treating numbers of different Go types as
// equal when they hold the same value.
func Equal(l, r any) bool {
	if IsNull(l) || IsNull(r) {
		return IsNull(l) && IsNull(r)
	}
	if numeric(l) && numeric(r) {
		return cast.ToFloat64(l) == cast.ToFloat64(r)
	}
	if lt, ok := l.(time.Time); ok {
		rt, err := cast.ToTimeE(r)
		return err == nil && lt.Equal(rt)
	}
	return reflect.DeepEqual(l, r)
}

func compare(l, r any) (int, bool) {
	switch {
	case IsNull(l) || IsNull(r):
		return 0, false
	case numeric(l) && numeric(r):
		a, b := cast.ToFloat64(l), cast.ToFloat64(r)
		switch {
		case a < b:
			return -1, true
		case a > b:
			return 1, true
		}
		return 0, true
	}
	if lt, ok := l.(time.Time); ok {
		rt, err := cast.ToTimeE(r)
		if err != nil {
			return 0, false
		}
		return lt.Compare(rt), true
	}
	ls, lok := l.(string)
	rs, rok := r.(string)
	if lok && rok {
		return strings.Compare(ls, rs), true
	}
	return 0, false
}

func in(v, list any) bool {
	items, err := cast.ToSliceE(list)
	if err != nil {
		return false
	}
	for _, it := range items {
		if Equal(v, it) {
			return true
		}
	}
	return false
}

func arith(op string, l, r any) any {
	a, err := cast.ToFloat64E(l)
	if err != nil {
		return nil
	}
	b, err := cast.ToFloat64E(r)
	if err != nil {
		return nil
	}
	var out float64
	switch op {
	case "+":
		out = a + b
	case "-":
		out = a - b
	case "*":
		out = a * b
	case "/":
		if b == 0 {
			return nil
		}
		out = a / b
	}
	if integer(l) && integer(r) && op != "/" {
		return int64(out)
	}
	return out
}

func numeric(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return true
	}
	return false
}

func integer(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	}
	return false
}
