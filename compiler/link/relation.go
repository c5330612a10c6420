package link

import (
	"github.com/cockroachdb/errors"

	oolong "github.com/oolong-dev/oolong"
	"github.com/oolong-dev/oolong/dsl"
	"github.com/oolong-dev/oolong/schema"
)

// edge is one outgoing relation of an entity.
type edge struct {
	left, right  *schema.Entity
	relationship schema.Relationship
	// multi holds every target of a multi declaration.
	multi    []*schema.Entity
	kind     string
	optional bool
}

// multiNames returns the instance names of the multi targets, which are
// registered before the relation.
func (e *edge) multiNames(s *schema.Schema) []string {
	if len(e.multi) == 0 {
		return nil
	}
	names := make([]string, len(e.multi))
	for i, t := range e.multi {
		names[i], _ = s.NameOf(t.ID())
	}
	return names
}

// adjacency builds the outgoing edges of every entity over the relation
// declarations of all loaded modules. Declarations are read in module id
// order, then in declaration order.
func (l *Linker) adjacency() (map[string][]*edge, error) {
	adj := make(map[string][]*edge)
	for _, m := range l.ctx.Modules() {
		for i, decl := range m.Relations {
			edges, err := l.edges(m, decl)
			if err != nil {
				var le *oolong.LinkError
				if errors.As(err, &le) {
					return nil, err
				}
				return nil, &oolong.LinkError{File: m.Path, Message: "invalid relation", Cause: errors.Wrapf(err, "#%d", i)}
			}
			for _, ed := range edges {
				adj[ed.left.ID()] = append(adj[ed.left.ID()], ed)
			}
		}
	}
	return adj, nil
}

// edges expands one relation declaration:
//
//	{left: a, right: b, relationship: n:1}                  a → b
//	{left: a, right: {b: {relationship: n:1}, c: ...}, type: chain}  a → b → c
//	{left: a, multi: [b, c], relationship: n:1}             a → b, a → c
func (l *Linker) edges(m *schema.Module, decl *dsl.Map) ([]*edge, error) {
	leftName := decl.String("left")
	if leftName == "" {
		return nil, errors.New("relation without left side")
	}
	left, err := l.ctx.LoadEntity(m, leftName)
	if err != nil {
		return nil, err
	}
	var rel schema.Relationship
	if r := decl.String("relationship"); r != "" {
		if rel, err = schema.ParseRelationship(r); err != nil {
			return nil, err
		}
	}
	optional := decl.Bool("optional")
	switch {
	case decl.Has("multi"):
		if decl.Has("right") {
			return nil, errors.New("relation with both right and multi")
		}
		if rel == "" {
			return nil, errors.New("multi relation without relationship")
		}
		var targets []*schema.Entity
		for _, n := range dsl.Strings(decl.List("multi")) {
			t, err := l.ctx.LoadEntity(m, n)
			if err != nil {
				return nil, err
			}
			targets = append(targets, t)
		}
		if len(targets) < 2 {
			return nil, errors.New("multi relation requires two targets or more")
		}
		edges := make([]*edge, len(targets))
		for i, t := range targets {
			edges[i] = &edge{left: left, right: t, relationship: rel, multi: targets, optional: optional}
		}
		return edges, nil
	case decl.String("type") == schema.RelationChain:
		steps := decl.Map("right")
		if steps == nil || steps.Len() == 0 {
			return nil, errors.New("chain relation requires a map of targets")
		}
		var edges []*edge
		from := left
		for _, target := range steps.Keys() {
			t, err := l.ctx.LoadEntity(m, target)
			if err != nil {
				return nil, err
			}
			ed := &edge{left: from, right: t, relationship: rel, kind: schema.RelationChain, optional: optional}
			if opts := steps.Map(target); opts != nil {
				if r := opts.String("relationship"); r != "" {
					if ed.relationship, err = schema.ParseRelationship(r); err != nil {
						return nil, err
					}
				}
				if v, ok := opts.Get("optional"); ok {
					ed.optional, _ = v.(bool)
				}
			}
			if ed.relationship == "" {
				return nil, errors.Newf("chain step %s without relationship", target)
			}
			edges = append(edges, ed)
			from = t
		}
		return edges, nil
	default:
		rightName := decl.String("right")
		if rightName == "" {
			return nil, errors.New("relation without right side")
		}
		if rel == "" {
			return nil, errors.New("relation without relationship")
		}
		right, err := l.ctx.LoadEntity(m, rightName)
		if err != nil {
			return nil, err
		}
		return []*edge{{left: left, right: right, relationship: rel, optional: optional}}, nil
	}
}
