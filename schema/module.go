package schema

import (
	"path/filepath"
	"strings"

	"github.com/oolong-dev/oolong/dsl"
)

// Module is a parsed DSL unit.
type Module struct {
	// ID is the path of the unit relative to the compilation root,
	// without extension.
	ID string
	// Path is the canonical path of the unit.
	Path string
	// Namespace is the expanded search path: canonical paths of the units
	// this module can refer to. Later entries shadow earlier ones.
	Namespace []string
	// Schema is the raw schema declaration, if any.
	Schema *dsl.Map
	// Entities maps entity names to their raw definition (*dsl.Map) until
	// the entity is materialized, after which the value is the *Entity.
	Entities *dsl.Map
	// Types maps type alias names to their raw definition.
	Types *dsl.Map
	// Relations holds the raw relation declarations of the unit.
	Relations []*dsl.Map
	// ResolvedTypes memoizes the resolved alias definitions.
	ResolvedTypes map[string]*dsl.Map
}

// NewModule returns an empty module.
func NewModule(id, path string) *Module {
	return &Module{
		ID:            id,
		Path:          path,
		Entities:      dsl.NewMap(),
		Types:         dsl.NewMap(),
		ResolvedTypes: make(map[string]*dsl.Map),
	}
}

// Name returns the base name of the unit, used to qualify references.
func (m *Module) Name() string {
	return strings.TrimSuffix(filepath.Base(m.Path), filepath.Ext(m.Path))
}

// Dir returns the directory of the unit.
func (m *Module) Dir() string { return filepath.Dir(m.Path) }

// HasEntity reports whether the unit defines the named entity.
func (m *Module) HasEntity(name string) bool { return m.Entities.Has(name) }

// HasType reports whether the unit defines the named type alias.
func (m *Module) HasType(name string) bool { return m.Types.Has(name) }

// Materialized returns the entity if it was already materialized.
func (m *Module) Materialized(name string) (*Entity, bool) {
	v, _ := m.Entities.Get(name)
	e, ok := v.(*Entity)
	return e, ok
}

// RawEntity returns the raw definition of a not yet materialized entity.
func (m *Module) RawEntity(name string) (*dsl.Map, bool) {
	v, _ := m.Entities.Get(name)
	r, ok := v.(*dsl.Map)
	return r, ok
}

// Replace swaps the raw definition of e for e itself.
func (m *Module) Replace(e *Entity) { m.Entities.Set(e.Name, e) }
