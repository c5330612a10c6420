package field

import (
	"slices"

	"github.com/cockroachdb/errors"
)

// List is an insertion-ordered set of fields.
type List struct {
	order  []*Field
	byName map[string]*Field
}

// NewList returns an empty list.
func NewList() *List {
	return &List{byName: make(map[string]*Field)}
}

// Add appends f. A field with the same name is an error.
func (l *List) Add(f *Field) error {
	if _, ok := l.byName[f.Name]; ok {
		return errors.Newf("field %q redeclared", f.Name)
	}
	l.order = append(l.order, f)
	l.byName[f.Name] = f
	return nil
}

// Prepend inserts f before every other field.
func (l *List) Prepend(f *Field) error {
	if _, ok := l.byName[f.Name]; ok {
		return errors.Newf("field %q redeclared", f.Name)
	}
	l.order = slices.Insert(l.order, 0, f)
	l.byName[f.Name] = f
	return nil
}

// Put adds f or replaces the field with the same name in place.
func (l *List) Put(f *Field) {
	if old, ok := l.byName[f.Name]; ok {
		l.order[slices.Index(l.order, old)] = f
	} else {
		l.order = append(l.order, f)
	}
	l.byName[f.Name] = f
}

// Get returns the named field.
func (l *List) Get(name string) (*Field, bool) {
	f, ok := l.byName[name]
	return f, ok
}

// All returns the fields in declaration order.
func (l *List) All() []*Field { return slices.Clone(l.order) }

// Names returns the field names in declaration order.
func (l *List) Names() []string {
	names := make([]string, len(l.order))
	for i, f := range l.order {
		names[i] = f.Name
	}
	return names
}

// Len returns the number of fields.
func (l *List) Len() int { return len(l.order) }

// Clone deep copies the list.
func (l *List) Clone() (*List, error) {
	c := NewList()
	for _, f := range l.order {
		cf, err := f.Clone()
		if err != nil {
			return nil, err
		}
		c.Put(cf)
	}
	return c, nil
}
