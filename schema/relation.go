package schema

import (
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
)

// Relationship is the cardinality of a relation.
type Relationship string

// Supported relationships.
const (
	OneToOne   Relationship = "1:1"
	OneToMany  Relationship = "1:n"
	ManyToOne  Relationship = "n:1"
	ManyToMany Relationship = "n:n"
)

// RelationChain marks a relation declared as a step of a chain.
const RelationChain = "chain"

// ParseRelationship validates a relationship string.
func ParseRelationship(s string) (Relationship, error) {
	switch r := Relationship(strings.ToLower(strings.TrimSpace(s))); r {
	case OneToOne, OneToMany, ManyToOne, ManyToMany:
		return r, nil
	default:
		return "", errors.Newf("unsupported relationship %q", s)
	}
}

// Reverse returns the relationship seen from the right side.
func (r Relationship) Reverse() Relationship {
	switch r {
	case OneToMany:
		return ManyToOne
	case ManyToOne:
		return OneToMany
	default:
		return r
	}
}

// Relation is an association between two schema entities.
type Relation struct {
	// Left and Right are the instance names of the endpoints.
	Left, Right             string
	LeftEntity, RightEntity *Entity
	Relationship            Relationship
	// Multi lists every target of a multi declaration; the relation
	// belongs to the group formed by its members.
	Multi []string
	// Type is "" or RelationChain.
	Type     string
	Optional bool
}

// Key returns the identity of the relation within a schema.
func (r *Relation) Key() string {
	return r.Left + "|" + r.Right + "|" + string(r.Relationship)
}

// IsLastOfMulti reports whether the relation targets the final member of
// its multi group.
func (r *Relation) IsLastOfMulti() bool {
	return len(r.Multi) > 0 && r.Multi[len(r.Multi)-1] == r.Right
}

// Remap renames the endpoints through the given instance name mapping.
func (r *Relation) Remap(names map[string]string) {
	if n, ok := names[r.Left]; ok {
		r.Left = n
	}
	if n, ok := names[r.Right]; ok {
		r.Right = n
	}
	for i, m := range r.Multi {
		if n, ok := names[m]; ok {
			r.Multi[i] = n
		}
	}
}

func (r *Relation) clone(arena map[*Entity]*Entity) *Relation {
	c := *r
	c.LeftEntity = arena[r.LeftEntity]
	c.RightEntity = arena[r.RightEntity]
	c.Multi = slices.Clone(r.Multi)
	return &c
}
