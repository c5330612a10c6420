package load

import (
	"slices"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	oolong "github.com/oolong-dev/oolong"
	"github.com/oolong-dev/oolong/compiler/feature"
	"github.com/oolong-dev/oolong/dsl"
	"github.com/oolong-dev/oolong/schema"
	"github.com/oolong-dev/oolong/schema/expr"
	"github.com/oolong-dev/oolong/schema/field"
)

// Entity attributes.
const (
	attrBase       = "base"
	attrComment    = "comment"
	attrFeatures   = "features"
	attrFields     = "fields"
	attrKey        = "key"
	attrIndexes    = "indexes"
	attrInterfaces = "interfaces"
)

var entityAttrs = []string{attrBase, attrComment, attrFeatures, attrFields, attrKey, attrIndexes, attrInterfaces}

// materialize builds the entity name defined by m and replaces its raw
// definition in m.
func (c *Context) materialize(m *schema.Module, name string) (*schema.Entity, error) {
	id := schema.EntityID(name, m)
	c.mu.Lock()
	if e, ok := m.Materialized(name); ok {
		c.mu.Unlock()
		return e, nil
	}
	if c.pending[id] {
		c.mu.Unlock()
		return nil, oolong.NewLinkError(nil, name, m.Path, "entity inherits from itself")
	}
	raw, ok := m.RawEntity(name)
	c.pending[id] = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()
	if !ok {
		return nil, oolong.NewLinkError(nil, name, m.Path, "entity definition must be a mapping")
	}
	e, err := c.build(m, name, raw)
	if err != nil {
		var le *oolong.LinkError
		if errors.As(err, &le) {
			return nil, err
		}
		return nil, &oolong.LinkError{Ref: name, File: m.Path, Message: "invalid entity", Cause: err}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, ok := m.Materialized(name); ok {
		return prev, nil
	}
	m.Replace(e)
	c.log.Debug("entity materialized", zap.String("id", id), zap.Int("fields", e.Fields.Len()))
	return e, nil
}

func (c *Context) build(m *schema.Module, name string, raw *dsl.Map) (*schema.Entity, error) {
	for _, k := range raw.Keys() {
		if !slices.Contains(entityAttrs, k) {
			return nil, errors.Newf("unknown attribute %q", k)
		}
	}
	e := schema.NewEntity(name, m)
	e.Comment = raw.String(attrComment)
	var inherited []string
	if base := raw.String(attrBase); base != "" {
		b, err := c.LoadEntity(m, base)
		if err != nil {
			return nil, err
		}
		if err := inherit(e, b); err != nil {
			return nil, errors.Wrapf(err, "base %s", base)
		}
		inherited = e.Fields.Names()
	}
	var own []*schema.Feature
	for _, v := range raw.List(attrFeatures) {
		f, err := feature.Parse(v)
		if err != nil {
			return nil, err
		}
		if e.HasFeature(f.Name) {
			return nil, errors.Newf("feature %q declared twice", f.Name)
		}
		e.Features = append(e.Features, f)
		own = append(own, f)
	}
	if err := c.features.ApplyFeatures(feature.BeforeFields, e, own); err != nil {
		return nil, err
	}
	if fields := raw.Map(attrFields); fields != nil {
		for _, fname := range fields.Keys() {
			f, err := c.decodeField(m, fields, fname)
			if err != nil {
				return nil, err
			}
			if slices.Contains(inherited, fname) {
				e.Fields.Put(f)
				continue
			}
			if err := e.Fields.Add(f); err != nil {
				return nil, oolong.DuplicateError("field", fname, m.Path)
			}
		}
	}
	if err := c.features.ApplyFeatures(feature.AfterFields, e, own); err != nil {
		return nil, err
	}
	if v, ok := raw.Get(attrKey); ok {
		e.Key = dsl.Strings(v)
	}
	for _, k := range e.Key {
		if _, ok := e.Field(k); !ok {
			return nil, errors.Newf("key field %q not found", k)
		}
	}
	for i, v := range raw.List(attrIndexes) {
		idx, err := decodeIndex(e, v)
		if err != nil {
			return nil, errors.Wrapf(err, "index #%d", i)
		}
		e.AddIndex(idx)
	}
	if ifs := raw.Map(attrInterfaces); ifs != nil {
		for _, iname := range ifs.Keys() {
			it, err := c.decodeInterface(m, iname, ifs.Map(iname))
			if err != nil {
				return nil, errors.Wrapf(err, "interface %q", iname)
			}
			e.Interfaces = append(e.Interfaces, it)
		}
	}
	return e, nil
}

// inherit copies the members of base into e. The features of base were
// already applied to its fields and are not run again.
func inherit(e, base *schema.Entity) error {
	for _, f := range base.Fields.All() {
		cf, err := f.Clone()
		if err != nil {
			return err
		}
		e.Fields.Put(cf)
	}
	e.Key = slices.Clone(base.Key)
	for _, idx := range base.Indexes {
		e.AddIndex(&schema.Index{Name: idx.Name, Fields: slices.Clone(idx.Fields), Unique: idx.Unique})
	}
	for _, f := range base.Features {
		e.Features = append(e.Features, &schema.Feature{Name: f.Name, Options: f.Options})
	}
	e.Interfaces = append(e.Interfaces, base.Interfaces...)
	if e.Comment == "" {
		e.Comment = base.Comment
	}
	return nil
}

// decodeField resolves and decodes the field declared under name. A bare
// string declares a field of that type.
func (c *Context) decodeField(m *schema.Module, decls *dsl.Map, name string) (*field.Field, error) {
	decl, err := typeDecl(decls, name)
	if err != nil {
		return nil, err
	}
	resolved, err := c.TrackBackType(m, decl)
	if err != nil {
		return nil, err
	}
	f, err := field.Decode(name, resolved)
	if err != nil {
		return nil, &oolong.LinkError{Ref: name, File: m.Path, Message: "invalid field", Cause: err}
	}
	return f, nil
}

func decodeIndex(e *schema.Entity, v any) (*schema.Index, error) {
	idx := &schema.Index{}
	switch v := v.(type) {
	case string, []any:
		idx.Fields = dsl.Strings(v)
	case *dsl.Map:
		idx.Name = v.String("name")
		idx.Unique = v.Bool("unique")
		fs, _ := v.Get("fields")
		idx.Fields = dsl.Strings(fs)
	default:
		return nil, errors.Newf("invalid index %v", v)
	}
	if len(idx.Fields) == 0 {
		return nil, errors.New("index without fields")
	}
	for _, f := range idx.Fields {
		if _, ok := e.Field(f); !ok {
			return nil, errors.Newf("index field %q not found", f)
		}
	}
	return idx, nil
}

// decodeInterface decodes a custom data access method:
//
//	accept: [{name: email, type: text}]
//	implementation: [{op: findOne, name: user, model: user, condition: {email: "@email"}}]
//	return: {value: "@user", exceptions: [{test: ..., message: ...}]}
func (c *Context) decodeInterface(m *schema.Module, name string, raw *dsl.Map) (*schema.Interface, error) {
	if raw == nil {
		return nil, errors.New("interface must be a mapping")
	}
	it := &schema.Interface{Name: name}
	for i, v := range raw.List("accept") {
		decl, ok := v.(*dsl.Map)
		if !ok || decl.String("name") == "" {
			return nil, errors.Newf("parameter #%d must be a mapping with a name", i)
		}
		pname := decl.String("name")
		decl = decl.Clone()
		decl.Delete("name")
		resolved, err := c.TrackBackType(m, decl)
		if err != nil {
			return nil, err
		}
		p, err := field.Decode(pname, resolved)
		if err != nil {
			return nil, err
		}
		it.Accept = append(it.Accept, p)
	}
	for i, v := range raw.List("implementation") {
		op, err := decodeOperation(v)
		if err != nil {
			return nil, errors.Wrapf(err, "implementation #%d", i)
		}
		it.Implementation = append(it.Implementation, op)
	}
	if ret := raw.Map("return"); ret != nil {
		r := &schema.Return{}
		if v, ok := ret.Get("value"); ok {
			val, err := expr.Parse(v)
			if err != nil {
				return nil, errors.Wrap(err, "return value")
			}
			r.Value = val
		}
		for i, v := range ret.List("exceptions") {
			ex, ok := v.(*dsl.Map)
			if !ok {
				return nil, errors.Newf("exception #%d must be a mapping", i)
			}
			test, ok := ex.Get("test")
			if !ok {
				return nil, errors.Newf("exception #%d without test", i)
			}
			cond, err := expr.Parse(test)
			if err != nil {
				return nil, errors.Wrapf(err, "exception #%d", i)
			}
			r.Exceptions = append(r.Exceptions, &schema.Exception{Test: cond, Message: ex.String("message")})
		}
		it.Return = r
	}
	return it, nil
}

func decodeOperation(v any) (*schema.Operation, error) {
	raw, ok := v.(*dsl.Map)
	if !ok {
		return nil, errors.New("operation must be a mapping")
	}
	op := &schema.Operation{Kind: raw.String("op"), Name: raw.String("name"), Model: raw.String("model")}
	if op.Kind != "findOne" {
		return nil, errors.Newf("unsupported operation %q", op.Kind)
	}
	if op.Name == "" || op.Model == "" {
		return nil, errors.New("findOne requires name and model")
	}
	if cond := raw.Map("condition"); cond != nil {
		for _, k := range cond.Keys() {
			v, _ := cond.Get(k)
			val, err := expr.Parse(v)
			if err != nil {
				return nil, errors.Wrapf(err, "condition %q", k)
			}
			op.Condition = append(op.Condition, &schema.Condition{Field: k, Value: val})
		}
	}
	return op, nil
}
