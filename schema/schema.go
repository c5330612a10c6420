package schema

import (
	"slices"

	oolong "github.com/oolong-dev/oolong"
)

// Schema is the set of entities and relations targeted by one compilation.
type Schema struct {
	Name string
	// Module is the unit declaring the schema.
	Module *Module
	// EntityIDMap maps entity ids to the instance name they are
	// registered under.
	EntityIDMap map[string]string
	Relations   []*Relation
	// Initialized is set once linking completed.
	Initialized bool

	names    []string
	entities map[string]*Entity
	relKeys  map[string]struct{}
}

// New returns an empty schema declared by m.
func New(name string, m *Module) *Schema {
	return &Schema{
		Name:        name,
		Module:      m,
		EntityIDMap: make(map[string]string),
		entities:    make(map[string]*Entity),
		relKeys:     make(map[string]struct{}),
	}
}

// AddEntity registers e under the instance name. Both the instance name
// and the entity id must be unused.
func (s *Schema) AddEntity(name string, e *Entity) error {
	if _, ok := s.entities[name]; ok {
		return oolong.DuplicateError("entity name", name, e.File())
	}
	if other, ok := s.EntityIDMap[e.ID()]; ok {
		return oolong.DuplicateError("entity id (already registered as "+other+")", e.ID(), e.File())
	}
	s.names = append(s.names, name)
	s.entities[name] = e
	s.EntityIDMap[e.ID()] = name
	return nil
}

// Entity returns the entity registered under the instance name.
func (s *Schema) Entity(name string) (*Entity, bool) {
	e, ok := s.entities[name]
	return e, ok
}

// NameOf returns the instance name of the entity with the given id.
func (s *Schema) NameOf(id string) (string, bool) {
	n, ok := s.EntityIDMap[id]
	return n, ok
}

// Names returns the instance names in registration order.
func (s *Schema) Names() []string { return slices.Clone(s.names) }

// Entities returns the entities in registration order.
func (s *Schema) Entities() []*Entity {
	es := make([]*Entity, len(s.names))
	for i, n := range s.names {
		es[i] = s.entities[n]
	}
	return es
}

// Len returns the number of registered entities.
func (s *Schema) Len() int { return len(s.names) }

// AddRelation records r unless an identical relation exists. It reports
// whether r was added.
func (s *Schema) AddRelation(r *Relation) bool {
	k := r.Key()
	if _, ok := s.relKeys[k]; ok {
		return false
	}
	s.relKeys[k] = struct{}{}
	s.Relations = append(s.Relations, r)
	return true
}

// Clone returns a copy of the schema whose relations point at the copied
// entities. The modules are shared.
func (s *Schema) Clone() (*Schema, error) {
	c := New(s.Name, s.Module)
	c.Initialized = s.Initialized
	arena := make(map[*Entity]*Entity, len(s.names))
	for _, n := range s.names {
		e := s.entities[n]
		ce, err := e.Clone()
		if err != nil {
			return nil, err
		}
		arena[e] = ce
		c.names = append(c.names, n)
		c.entities[n] = ce
	}
	for id, n := range s.EntityIDMap {
		c.EntityIDMap[id] = n
	}
	for _, r := range s.Relations {
		c.AddRelation(r.clone(arena))
	}
	return c, nil
}
