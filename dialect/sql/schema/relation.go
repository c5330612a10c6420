package schema

import (
	"strings"

	"go.uber.org/zap"

	"github.com/oolong-dev/oolong"
	"github.com/oolong-dev/oolong/compiler/feature"
	"github.com/oolong-dev/oolong/internal/naming"
	"github.com/oolong-dev/oolong/schema"
	"github.com/oolong-dev/oolong/schema/field"
)

// FKName returns the name of the field referencing key of entity.
// A key already prefixed by the entity name is used as is, so
// User/userId gives userId and User/id gives userId.
func FKName(entity, key string) string {
	prefix := naming.Camel(entity)
	if strings.HasPrefix(key, prefix) && len(key) > len(prefix) {
		return key
	}
	return prefix + naming.Pascal(key)
}

// JunctionName returns the name of the entity joining left and right.
func JunctionName(left, right string) string {
	return left + naming.Pascal(naming.Plural(naming.Camel(right)))
}

func (st *state) expand(r *schema.Relation) error {
	switch r.Relationship {
	case schema.ManyToOne, schema.OneToOne, schema.OneToMany:
		if err := st.reference(r.Left, r.Right, r, r.Relationship == schema.OneToOne); err != nil {
			return err
		}
	case schema.ManyToMany:
		return st.junction(r)
	}
	if r.IsLastOfMulti() {
		st.multiIndex(r)
	}
	return nil
}

// reference adds to holder the field referencing the key of target.
func (st *state) reference(holder, target string, r *schema.Relation, unique bool) error {
	he, _ := st.schema.Entity(holder)
	te, _ := st.schema.Entity(target)
	key, ok := st.singleKey(target, te, holder)
	if !ok {
		return nil
	}
	name := FKName(target, key.Name)
	fk := key.CopyType(name)
	fk.Optional = r.Optional
	if err := st.addReference(he, holder, fk, target, key.Name, false); err != nil {
		return err
	}
	if unique {
		he.AddIndex(&schema.Index{Fields: []string{name}, Unique: true})
	}
	st.fks[holder+"|"+target] = name
	return nil
}

func (st *state) addReference(he *schema.Entity, holder string, fk *field.Field, target, key string, junction bool) error {
	id := holder + "." + fk.Name
	if prev, ok := st.refs[id]; ok {
		return oolong.NewConflictError(id, "field already references %s.%s", prev.RefEntity, prev.RefField)
	}
	if err := he.Fields.Add(fk); err != nil {
		return oolong.NewConflictError(id, "foreign key of %s collides with a declared field", target)
	}
	ref := &Reference{Entity: holder, Field: fk.Name, RefEntity: target, RefField: key, Junction: junction}
	st.refs[id] = ref
	st.model.References = append(st.model.References, ref)
	st.log.Debug("added reference", zap.String("field", id), zap.String("target", target+"."+key))
	return nil
}

// singleKey returns the only key field of entity. Composite and missing
// keys are reported against the entity.
func (st *state) singleKey(name string, e *schema.Entity, from string) (*field.Field, bool) {
	keys := e.KeyFields()
	if len(keys) != 1 {
		st.report.Add(name, "referenced by %s without a single-field key", from)
		return nil, false
	}
	return keys[0], true
}

func (st *state) junction(r *schema.Relation) error {
	name := JunctionName(r.Left, r.Right)
	if _, ok := st.schema.Entity(name); ok {
		return oolong.NewConflictError(name, "junction of %s and %s collides with an entity", r.Left, r.Right)
	}
	lk, lok := st.singleKey(r.Left, r.LeftEntity, name)
	rk, rok := st.singleKey(r.Right, r.RightEntity, name)
	if !lok || !rok {
		return nil
	}
	lname, rname := FKName(r.Left, lk.Name), FKName(r.Right, rk.Name)
	if lname == rname {
		rname = "related" + naming.Pascal(rname)
	}
	j := schema.NewEntity(name, r.LeftEntity.Module)
	j.RelationshipEntity = true
	j.Key = []string{lname, rname}
	if err := st.addReference(j, name, lk.CopyType(lname), r.Left, lk.Name, true); err != nil {
		return err
	}
	if err := st.addReference(j, name, rk.CopyType(rname), r.Right, rk.Name, true); err != nil {
		return err
	}
	ts := &schema.Feature{Name: feature.CreateTimestamp}
	if err := feature.RuleCreateTimestamp.Apply(j, ts); err != nil {
		return err
	}
	j.Features = append(j.Features, ts)
	if err := st.schema.AddEntity(name, j); err != nil {
		return oolong.NewConflictError(name, "junction of %s and %s: %v", r.Left, r.Right, err)
	}
	st.log.Debug("added junction", zap.String("entity", name))
	return nil
}

// multiIndex enqueues an index over the foreign keys of every member of
// the multi group of r.
func (st *state) multiIndex(r *schema.Relation) {
	holder := r.Left
	if r.Relationship == schema.ManyToMany {
		return
	}
	cols := make([]string, 0, len(r.Multi))
	for _, target := range r.Multi {
		fk, ok := st.fks[holder+"|"+target]
		if !ok {
			return
		}
		cols = append(cols, fk)
	}
	st.queue.Push(&AddIndex{
		Table:   holder,
		Name:    strings.Join(cols, "_"),
		Columns: cols,
		Unique:  r.Relationship == schema.OneToOne,
	})
}
