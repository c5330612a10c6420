package schema

import (
	"slices"

	"github.com/cockroachdb/errors"
	"github.com/mitchellh/copystructure"

	"github.com/oolong-dev/oolong/schema/expr"
	"github.com/oolong-dev/oolong/schema/field"
)

type (
	// Entity is a modeled record type.
	Entity struct {
		Name   string
		Module *Module
		// Base names the entity this one inherits from, if any.
		Base    string
		Comment string
		// Fields in declaration order; the order drives generation order.
		Fields *field.List
		// Key holds the primary key field names.
		Key        []string
		Indexes    []*Index
		Features   []*Feature
		Interfaces []*Interface
		// RelationshipEntity marks synthesized junction entities.
		RelationshipEntity bool
	}

	// Index is a plain or unique index over entity fields.
	Index struct {
		Name   string
		Fields []string
		Unique bool
	}

	// Feature is a named, parameterized rule applied to an entity.
	Feature struct {
		Name    string
		Options any
	}

	// Interface is a custom data access method of an entity.
	Interface struct {
		Name           string
		Accept         []*field.Field
		Implementation []*Operation
		Return         *Return
	}

	// Operation is an implementation step of an interface. The only kind
	// supported is "findOne", binding Name to the row of Model matching
	// Condition.
	Operation struct {
		Kind      string
		Name      string
		Model     string
		Condition []*Condition
	}

	// Condition compares Field with Value.
	Condition struct {
		Field string
		Value expr.Expr
	}

	// Return is the terminal clause of an interface.
	Return struct {
		Value      expr.Expr
		Exceptions []*Exception
	}

	// Exception raises Message when Test holds.
	Exception struct {
		Test    expr.Expr
		Message string
	}
)

// NewEntity returns an entity without fields.
func NewEntity(name string, m *Module) *Entity {
	return &Entity{Name: name, Module: m, Fields: field.NewList()}
}

// ID returns the module-qualified id of the entity.
func (e *Entity) ID() string { return EntityID(e.Name, e.Module) }

// EntityID formats the id of the named entity defined in m.
func EntityID(name string, m *Module) string {
	if m == nil {
		return name
	}
	return name + "@" + m.ID
}

// File returns the path of the defining unit.
func (e *Entity) File() string {
	if e.Module == nil {
		return ""
	}
	return e.Module.Path
}

// Field returns the named field.
func (e *Entity) Field(name string) (*field.Field, bool) { return e.Fields.Get(name) }

// KeyFields returns the key fields, or nil if any of them is missing.
func (e *Entity) KeyFields() []*field.Field {
	if len(e.Key) == 0 {
		return nil
	}
	fs := make([]*field.Field, 0, len(e.Key))
	for _, k := range e.Key {
		f, ok := e.Fields.Get(k)
		if !ok {
			return nil
		}
		fs = append(fs, f)
	}
	return fs
}

// HasCompositeKey reports whether the key spans several fields.
func (e *Entity) HasCompositeKey() bool { return len(e.Key) > 1 }

// Feature returns the named feature.
func (e *Entity) Feature(name string) (*Feature, bool) {
	for _, f := range e.Features {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

// HasFeature reports whether the named feature is attached.
func (e *Entity) HasFeature(name string) bool {
	_, ok := e.Feature(name)
	return ok
}

// AddFeature attaches a feature, replacing one with the same name.
func (e *Entity) AddFeature(name string, options any) {
	for _, f := range e.Features {
		if f.Name == name {
			f.Options = options
			return
		}
	}
	e.Features = append(e.Features, &Feature{Name: name, Options: options})
}

// AddIndex appends an index unless an identical one exists.
func (e *Entity) AddIndex(idx *Index) {
	for _, x := range e.Indexes {
		if x.Unique == idx.Unique && slices.Equal(x.Fields, idx.Fields) {
			return
		}
	}
	e.Indexes = append(e.Indexes, idx)
}

// UniqueKeys returns the key and every unique index as field lists.
func (e *Entity) UniqueKeys() [][]string {
	var keys [][]string
	if len(e.Key) > 0 {
		keys = append(keys, slices.Clone(e.Key))
	}
	for _, idx := range e.Indexes {
		if idx.Unique {
			keys = append(keys, slices.Clone(idx.Fields))
		}
	}
	return keys
}

// Clone returns a deep copy of the entity bound to the same module.
func (e *Entity) Clone() (*Entity, error) {
	c := *e
	fields, err := e.Fields.Clone()
	if err != nil {
		return nil, errors.Wrapf(err, "clone %s", e.Name)
	}
	c.Fields = fields
	c.Key = slices.Clone(e.Key)
	c.Indexes = make([]*Index, len(e.Indexes))
	for i, idx := range e.Indexes {
		x := *idx
		x.Fields = slices.Clone(idx.Fields)
		c.Indexes[i] = &x
	}
	c.Features = make([]*Feature, len(e.Features))
	for i, f := range e.Features {
		opts, err := copystructure.Copy(f.Options)
		if err != nil {
			return nil, errors.Wrapf(err, "clone %s: options of feature %s", e.Name, f.Name)
		}
		c.Features[i] = &Feature{Name: f.Name, Options: opts}
	}
	c.Interfaces = slices.Clone(e.Interfaces)
	return &c, nil
}
