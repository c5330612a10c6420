package load

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	oolong "github.com/oolong-dev/oolong"
	"github.com/oolong-dev/oolong/dsl"
	"github.com/oolong-dev/oolong/schema"
	"github.com/oolong-dev/oolong/schema/field"
)

// suggestThreshold is the minimum similarity of a "did you mean" hint.
const suggestThreshold = 0.75

// LoadEntity resolves the entity named name from module m and
// materializes it. A qualified name "mod.Entity" only considers the
// namespace entries whose base name is mod. Entries are scanned from the
// last declared to the first, so later entries shadow earlier ones.
func (c *Context) LoadEntity(m *schema.Module, name string) (*schema.Entity, error) {
	key := schema.EntityID(name, m)
	c.mu.Lock()
	e, ok := c.entities[key]
	c.mu.Unlock()
	if ok {
		return e, nil
	}
	def, local, err := c.lookup(m, name, (*schema.Module).HasEntity)
	if err != nil {
		return nil, err
	}
	if def == nil {
		return nil, c.notFound("entity", m, name, func(d *schema.Module) []string { return d.Entities.Keys() })
	}
	e, err = c.materialize(def, local)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, ok := c.entities[key]; ok {
		return prev, nil
	}
	c.entities[key] = e
	return e, nil
}

// LoadType resolves the type alias named name from module m. It returns
// the module defining the alias and the alias name within it.
func (c *Context) LoadType(m *schema.Module, name string) (*schema.Module, string, error) {
	key := schema.EntityID(name, m)
	c.mu.Lock()
	ref, ok := c.types[key]
	c.mu.Unlock()
	if ok {
		return ref.module, ref.name, nil
	}
	def, local, err := c.lookup(m, name, (*schema.Module).HasType)
	if err != nil {
		return nil, "", err
	}
	if def == nil {
		return nil, "", c.notFound("type", m, name, func(d *schema.Module) []string { return d.Types.Keys() })
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, ok := c.types[key]; ok {
		return prev.module, prev.name, nil
	}
	c.types[key] = &typeRef{name: local, module: def}
	return def, local, nil
}

// lookup scans the namespace of m for the module defining name.
func (c *Context) lookup(m *schema.Module, name string, has func(*schema.Module, string) bool) (*schema.Module, string, error) {
	qualifier, local, qualified := strings.Cut(name, ".")
	if !qualified {
		local = name
	}
	for _, p := range slices.Backward(m.Namespace) {
		if qualified && strings.TrimSuffix(filepath.Base(p), filepath.Ext(p)) != qualifier {
			continue
		}
		def, err := c.LoadModule(p)
		if err != nil {
			return nil, "", err
		}
		if def != nil && has(def, local) {
			c.log.Debug("reference resolved", zap.String("ref", name), zap.String("from", m.ID), zap.String("module", def.ID))
			return def, local, nil
		}
	}
	return nil, "", nil
}

func (c *Context) notFound(what string, m *schema.Module, name string, names func(*schema.Module) []string) error {
	err := oolong.NotFoundError(what, name, m.Path)
	var candidates []string
	for _, p := range m.Namespace {
		if d, _ := c.LoadModule(p); d != nil {
			candidates = append(candidates, names(d)...)
		}
	}
	if s := suggest(name, candidates); s != "" {
		err.Message += fmt.Sprintf(", did you mean %q?", s)
	}
	return err
}

// suggest returns the candidate most similar to name, if close enough.
func suggest(name string, candidates []string) string {
	metric := metrics.NewJaroWinkler()
	metric.CaseSensitive = false
	var (
		best  string
		score float64
	)
	_, local, ok := strings.Cut(name, ".")
	if !ok {
		local = name
	}
	for _, cand := range candidates {
		if s := strutil.Similarity(local, cand, metric); s > score {
			best, score = cand, s
		}
	}
	if score < suggestThreshold {
		return ""
	}
	return best
}

// TrackBackType resolves the type attributes of a declaration down to a
// builtin type. Own attributes override the ones of the aliases, and the
// walked aliases are recorded under "subClass".
func (c *Context) TrackBackType(m *schema.Module, info *dsl.Map) (*dsl.Map, error) {
	return c.trackBack(m, info, nil)
}

func (c *Context) trackBack(m *schema.Module, info *dsl.Map, stack []string) (*dsl.Map, error) {
	t := info.String("type")
	if t == "" {
		return nil, oolong.NewLinkError(nil, "", m.Path, "declaration without type")
	}
	if field.IsBuiltin(t) {
		return info, nil
	}
	def, local, err := c.LoadType(m, t)
	if err != nil {
		return nil, err
	}
	base, err := c.resolveAlias(def, local, stack)
	if err != nil {
		return nil, err
	}
	merged := base.Merge(info, "type", "subClass")
	var sub []any
	if v, ok := base.Get("subClass"); ok {
		sub = append(sub, dsl.AsList(v)...)
	}
	merged.Set("subClass", append(sub, t))
	return merged, nil
}

// resolveAlias resolves the alias name defined by m, memoizing the result
// into m.
func (c *Context) resolveAlias(m *schema.Module, name string, stack []string) (*dsl.Map, error) {
	c.mu.Lock()
	r, ok := m.ResolvedTypes[name]
	c.mu.Unlock()
	if ok {
		return r, nil
	}
	id := schema.EntityID(name, m)
	if slices.Contains(stack, id) {
		chain := strings.Join(append(stack, id), " -> ")
		return nil, oolong.NewLinkError(oolong.ErrTypeCycle, name, m.Path, "circular type alias "+chain)
	}
	raw, err := typeDecl(m.Types, name)
	if err != nil {
		return nil, &oolong.LinkError{Ref: name, File: m.Path, Message: "invalid type", Cause: err}
	}
	r, err = c.trackBack(m, raw, append(stack, id))
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, ok := m.ResolvedTypes[name]; ok {
		return prev, nil
	}
	m.ResolvedTypes[name] = r
	return r, nil
}

// typeDecl returns the declaration stored under name. A bare string is
// shorthand for {type: name}.
func typeDecl(decls *dsl.Map, name string) (*dsl.Map, error) {
	v, _ := decls.Get(name)
	switch v := v.(type) {
	case *dsl.Map:
		return v, nil
	case string:
		return dsl.MapOf("type", v), nil
	default:
		return nil, errors.Newf("declaration of %q must be a type name or a mapping", name)
	}
}
