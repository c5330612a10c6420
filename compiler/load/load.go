// Package load reads DSL units into modules and resolves the entity and
// type references between them.
//
// A Context owns every cache of a compilation: modules keyed by canonical
// path, entities and types keyed by name@moduleId. Caches are written once
// per key; concurrent callers may compute the same value but only the
// first one stored is kept.
package load

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	oolong "github.com/oolong-dev/oolong"
	"github.com/oolong-dev/oolong/compiler/feature"
	"github.com/oolong-dev/oolong/dsl"
	"github.com/oolong-dev/oolong/schema"
)

type (
	// Context is the state of one compilation.
	Context struct {
		// Root is the directory module ids are relative to.
		Root     string
		fs       afero.Fs
		parser   dsl.Parser
		features *feature.Registry
		log      *zap.Logger

		mu       sync.Mutex
		modules  map[string]*schema.Module
		entities map[string]*schema.Entity
		types    map[string]*typeRef
		// pending holds the ids of the entities being materialized.
		pending map[string]bool
	}

	// Option configures a Context.
	Option func(*Context) error

	typeRef struct {
		name   string
		module *schema.Module
	}
)

// WithFs sets the filesystem units are read from.
func WithFs(fs afero.Fs) Option {
	return func(c *Context) error {
		if fs == nil {
			return errors.New("load: nil filesystem")
		}
		c.fs = fs
		return nil
	}
}

// WithParser sets the DSL front end.
func WithParser(p dsl.Parser) Option {
	return func(c *Context) error {
		if p == nil {
			return errors.New("load: nil parser")
		}
		c.parser = p
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Context) error {
		if l != nil {
			c.log = l
		}
		return nil
	}
}

// WithFeatures sets the feature registry.
func WithFeatures(r *feature.Registry) Option {
	return func(c *Context) error {
		if r == nil {
			return errors.New("load: nil feature registry")
		}
		c.features = r
		return nil
	}
}

// NewContext returns a compilation context rooted at root.
func NewContext(root string, opts ...Option) (*Context, error) {
	c := &Context{
		Root:     filepath.Clean(root),
		fs:       afero.NewOsFs(),
		parser:   dsl.YAMLParser{},
		features: feature.DefaultRegistry(),
		log:      zap.NewNop(),
		modules:  make(map[string]*schema.Module),
		entities: make(map[string]*schema.Entity),
		types:    make(map[string]*typeRef),
		pending:  make(map[string]bool),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Fs returns the filesystem of the context.
func (c *Context) Fs() afero.Fs { return c.fs }

// Features returns the feature registry of the context.
func (c *Context) Features() *feature.Registry { return c.features }

// Logger returns the logger of the context.
func (c *Context) Logger() *zap.Logger { return c.log }

// Modules returns the loaded modules, sorted by id.
func (c *Context) Modules() []*schema.Module {
	c.mu.Lock()
	defer c.mu.Unlock()
	ms := make([]*schema.Module, 0, len(c.modules))
	for _, m := range c.modules {
		if m != nil {
			ms = append(ms, m)
		}
	}
	sort.Slice(ms, func(i, j int) bool { return ms[i].ID < ms[j].ID })
	return ms
}

// Canonical returns the canonical path of a unit: absolute, cleaned and
// carrying the DSL extension.
func (c *Context) Canonical(path string) string {
	if !filepath.IsAbs(path) {
		path = filepath.Join(c.Root, path)
	}
	path = filepath.Clean(path)
	if filepath.Ext(path) == "" {
		path += dsl.Ext
	}
	return path
}

// ModuleID returns the id of the unit at the canonical path.
func (c *Context) ModuleID(path string) string {
	rel, err := filepath.Rel(c.Root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		rel = path
	}
	return filepath.ToSlash(strings.TrimSuffix(rel, filepath.Ext(rel)))
}

// LoadModule loads the unit at path. Loading is idempotent: a unit is
// parsed once per context. A missing file yields (nil, nil).
func (c *Context) LoadModule(path string) (*schema.Module, error) {
	path = c.Canonical(path)
	c.mu.Lock()
	m, ok := c.modules[path]
	c.mu.Unlock()
	if ok {
		return m, nil
	}
	src, err := afero.ReadFile(c.fs, path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		c.log.Debug("module not found", zap.String("path", path))
		return nil, nil
	case err != nil:
		return nil, errors.Wrapf(err, "read %s", path)
	}
	tree, err := c.parser.Parse(path, src)
	if err != nil {
		return nil, &oolong.LinkError{File: path, Message: "invalid unit", Cause: err}
	}
	m, err = c.newModule(path, tree)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, ok := c.modules[path]; ok {
		return prev, nil
	}
	c.modules[path] = m
	c.log.Debug("module loaded", zap.String("id", m.ID), zap.Int("namespace", len(m.Namespace)))
	return m, nil
}

func (c *Context) newModule(path string, tree *dsl.Map) (*schema.Module, error) {
	m := schema.NewModule(c.ModuleID(path), path)
	for _, k := range tree.Keys() {
		switch k {
		case dsl.KeyNamespace, dsl.KeySchema, dsl.KeyType, dsl.KeyEntity, dsl.KeyRelation:
		default:
			return nil, oolong.NewLinkError(nil, k, path, "unknown top level section")
		}
	}
	ns, err := c.expandNamespace(m.Dir(), tree.List(dsl.KeyNamespace))
	if err != nil {
		return nil, &oolong.LinkError{File: path, Message: "invalid namespace", Cause: err}
	}
	for _, p := range ns {
		if p != path {
			m.Namespace = append(m.Namespace, p)
		}
	}
	m.Namespace = append(m.Namespace, path)
	m.Schema = tree.Map(dsl.KeySchema)
	if ents := tree.Map(dsl.KeyEntity); ents != nil {
		m.Entities = ents.Clone()
	}
	if types := tree.Map(dsl.KeyType); types != nil {
		m.Types = types.Clone()
	}
	for i, r := range tree.List(dsl.KeyRelation) {
		rm, ok := r.(*dsl.Map)
		if !ok {
			return nil, oolong.NewLinkError(nil, "", path, "relation #"+strconv.Itoa(i)+" is not a mapping")
		}
		m.Relations = append(m.Relations, rm)
	}
	return m, nil
}

// expandNamespace turns namespace entries into canonical unit paths.
// "dir/*" lists the units directly in dir and "dir/**" the units of the
// whole tree, both sorted by path.
func (c *Context) expandNamespace(dir string, entries []any) ([]string, error) {
	var paths []string
	for _, e := range entries {
		entry, ok := e.(string)
		if !ok || entry == "" {
			return nil, errors.Newf("invalid namespace entry %v", e)
		}
		if !filepath.IsAbs(entry) {
			entry = filepath.Join(dir, entry)
		}
		switch {
		case strings.HasSuffix(entry, "**"):
			root := filepath.Clean(strings.TrimSuffix(entry, "**"))
			var found []string
			err := afero.Walk(c.fs, root, func(p string, info os.FileInfo, err error) error {
				if err != nil {
					return err
				}
				if !info.IsDir() && filepath.Ext(p) == dsl.Ext {
					found = append(found, filepath.Clean(p))
				}
				return nil
			})
			if err != nil && !errors.Is(err, os.ErrNotExist) {
				return nil, errors.Wrapf(err, "walk %s", root)
			}
			sort.Strings(found)
			paths = append(paths, found...)
		case strings.HasSuffix(entry, "*"):
			root := filepath.Clean(strings.TrimSuffix(entry, "*"))
			infos, err := afero.ReadDir(c.fs, root)
			if err != nil && !errors.Is(err, os.ErrNotExist) {
				return nil, errors.Wrapf(err, "read dir %s", root)
			}
			for _, info := range infos {
				if !info.IsDir() && filepath.Ext(info.Name()) == dsl.Ext {
					paths = append(paths, filepath.Join(root, info.Name()))
				}
			}
		default:
			paths = append(paths, c.Canonical(entry))
		}
	}
	return paths, nil
}
