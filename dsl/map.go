// Package dsl holds the raw parse tree handed to the compiler by a front end.
//
// Every object node of the tree is an insertion-ordered *Map, arrays are
// []any and leaves are plain Go scalars (string, int, float64, bool or nil).
// Order matters: field declaration order drives generation order.
package dsl

import "slices"

// Map is an insertion-ordered string keyed map.
type Map struct {
	keys   []string
	values map[string]any
}

// NewMap returns an empty map.
func NewMap() *Map {
	return &Map{values: make(map[string]any)}
}

// MapOf builds a map from alternating key/value pairs.
func MapOf(kv ...any) *Map {
	m := NewMap()
	for i := 0; i+1 < len(kv); i += 2 {
		m.Set(kv[i].(string), kv[i+1])
	}
	return m
}

// Set stores v under k. A new key is appended, an existing key keeps its position.
func (m *Map) Set(k string, v any) {
	if _, ok := m.values[k]; !ok {
		m.keys = append(m.keys, k)
	}
	m.values[k] = v
}

// Get returns the value stored under k.
func (m *Map) Get(k string) (any, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m.values[k]
	return v, ok
}

// Has reports whether k is present.
func (m *Map) Has(k string) bool {
	_, ok := m.Get(k)
	return ok
}

// Delete removes k.
func (m *Map) Delete(k string) {
	if _, ok := m.values[k]; !ok {
		return
	}
	delete(m.values, k)
	m.keys = slices.DeleteFunc(m.keys, func(s string) bool { return s == k })
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	return slices.Clone(m.keys)
}

// Len returns the number of entries.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Range calls fn for every entry in order until fn returns false.
func (m *Map) Range(fn func(k string, v any) bool) {
	if m == nil {
		return
	}
	for _, k := range m.keys {
		if !fn(k, m.values[k]) {
			return
		}
	}
}

// Clone returns a shallow copy of m.
func (m *Map) Clone() *Map {
	c := NewMap()
	m.Range(func(k string, v any) bool {
		c.Set(k, v)
		return true
	})
	return c
}

// Merge returns a shallow copy of m overlaid with every entry of o
// except the keys listed in skip.
func (m *Map) Merge(o *Map, skip ...string) *Map {
	c := m.Clone()
	o.Range(func(k string, v any) bool {
		if !slices.Contains(skip, k) {
			c.Set(k, v)
		}
		return true
	})
	return c
}

// Plain converts the map recursively into map[string]any, dropping order.
// It is meant for decoders that work on unordered maps.
func (m *Map) Plain() map[string]any {
	out := make(map[string]any, m.Len())
	m.Range(func(k string, v any) bool {
		out[k] = Plain(v)
		return true
	})
	return out
}

// Plain converts any tree value into its unordered equivalent.
func Plain(v any) any {
	switch v := v.(type) {
	case *Map:
		return v.Plain()
	case []any:
		out := make([]any, len(v))
		for i := range v {
			out[i] = Plain(v[i])
		}
		return out
	default:
		return v
	}
}

// String returns the string stored under k.
func (m *Map) String(k string) string {
	v, _ := m.Get(k)
	s, _ := v.(string)
	return s
}

// Bool returns the boolean stored under k.
func (m *Map) Bool(k string) bool {
	v, _ := m.Get(k)
	b, _ := v.(bool)
	return b
}

// Map returns the nested map stored under k.
func (m *Map) Map(k string) *Map {
	v, _ := m.Get(k)
	n, _ := v.(*Map)
	return n
}

// List returns the value stored under k as a list. A scalar is wrapped
// into a one element list and a missing key yields nil.
func (m *Map) List(k string) []any {
	v, ok := m.Get(k)
	if !ok || v == nil {
		return nil
	}
	return AsList(v)
}

// AsList wraps a scalar into a list and returns lists unchanged.
func AsList(v any) []any {
	if l, ok := v.([]any); ok {
		return l
	}
	return []any{v}
}

// Strings converts a scalar or a list of scalars into a string slice.
func Strings(v any) []string {
	if v == nil {
		return nil
	}
	var out []string
	for _, e := range AsList(v) {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
