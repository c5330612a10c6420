// Package link builds a schema from its declaration and closes it over
// the relations declared by the loaded modules.
package link

import (
	"github.com/cockroachdb/errors"
	"github.com/hashicorp/go-set/v2"
	"go.uber.org/zap"

	oolong "github.com/oolong-dev/oolong"
	"github.com/oolong-dev/oolong/compiler/feature"
	"github.com/oolong-dev/oolong/compiler/load"
	"github.com/oolong-dev/oolong/dsl"
	"github.com/oolong-dev/oolong/schema"
)

// Linker links the schemas of a compilation context.
type Linker struct {
	ctx *load.Context
	log *zap.Logger
}

// New returns a linker working on ctx.
func New(ctx *load.Context) *Linker {
	return &Linker{ctx: ctx, log: ctx.Logger()}
}

// Load loads the unit at path, which must declare a schema named after
// the unit, and links it.
func (l *Linker) Load(path string) (*schema.Schema, error) {
	m, err := l.ctx.LoadModule(path)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, oolong.NotFoundError("schema file", path, path)
	}
	s, err := Declare(m)
	if err != nil {
		return nil, err
	}
	if err := l.Link(s); err != nil {
		return nil, err
	}
	return s, nil
}

// Declare returns the unlinked schema declared by m.
func Declare(m *schema.Module) (*schema.Schema, error) {
	if m.Schema == nil {
		return nil, oolong.NewLinkError(nil, "", m.Path, "no schema declared")
	}
	name := m.Schema.String("name")
	if name != m.Name() {
		return nil, oolong.NewLinkError(nil, name, m.Path, "schema name does not match the file name "+m.Name())
	}
	return schema.New(name, m), nil
}

// Link registers the declared entities of s and every entity reachable
// from them through relations. Linking an initialized schema is a no-op.
func (l *Linker) Link(s *schema.Schema) error {
	if s.Initialized {
		return nil
	}
	m := s.Module
	for i, v := range m.Schema.List("entities") {
		entity, alias, err := entry(v)
		if err != nil {
			return &oolong.LinkError{File: m.Path, Message: "invalid schema entry", Cause: errors.Wrapf(err, "#%d", i)}
		}
		e, err := l.ctx.LoadEntity(m, entity)
		if err != nil {
			return err
		}
		if alias == "" {
			alias = e.Name
		}
		if err := s.AddEntity(alias, e); err != nil {
			return err
		}
	}
	// relations may live in any unit of the search path
	for _, p := range m.Namespace {
		if _, err := l.ctx.LoadModule(p); err != nil {
			return err
		}
	}
	adj, err := l.adjacency()
	if err != nil {
		return err
	}
	if err := l.close(s, adj); err != nil {
		return err
	}
	for _, e := range s.Entities() {
		if err := l.ctx.Features().Apply(feature.AfterLink, e); err != nil {
			return err
		}
	}
	s.Initialized = true
	l.log.Debug("schema linked",
		zap.String("schema", s.Name),
		zap.Int("entities", s.Len()),
		zap.Int("relations", len(s.Relations)),
	)
	return nil
}

// entry decodes a schema entry: a bare entity name or {entity, alias}.
func entry(v any) (entity, alias string, err error) {
	switch v := v.(type) {
	case string:
		return v, "", nil
	case *dsl.Map:
		if entity = v.String("entity"); entity == "" {
			return "", "", errors.New("entry without entity")
		}
		return entity, v.String("alias"), nil
	default:
		return "", "", errors.Newf("unexpected entry %v", v)
	}
}

// close runs a breadth first walk from the declared entities, registering
// every relation found and every entity it reaches.
func (l *Linker) close(s *schema.Schema, adj map[string][]*edge) error {
	var queue []string
	for _, e := range s.Entities() {
		queue = append(queue, e.ID())
	}
	visited := set.New[string](len(queue))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if !visited.Insert(id) {
			continue
		}
		for _, ed := range adj[id] {
			for _, t := range ed.multi {
				if _, err := register(s, t); err != nil {
					return err
				}
			}
			left, err := register(s, ed.left)
			if err != nil {
				return err
			}
			right, err := register(s, ed.right)
			if err != nil {
				return err
			}
			s.AddRelation(&schema.Relation{
				Left:         left,
				Right:        right,
				LeftEntity:   ed.left,
				RightEntity:  ed.right,
				Relationship: ed.relationship,
				Multi:        ed.multiNames(s),
				Type:         ed.kind,
				Optional:     ed.optional,
			})
			if !visited.Contains(ed.right.ID()) {
				queue = append(queue, ed.right.ID())
			}
		}
	}
	return nil
}

// register returns the instance name of e, registering e under its bare
// name when it is not part of the schema yet.
func register(s *schema.Schema, e *schema.Entity) (string, error) {
	if name, ok := s.NameOf(e.ID()); ok {
		return name, nil
	}
	if err := s.AddEntity(e.Name, e); err != nil {
		return "", err
	}
	return e.Name, nil
}
