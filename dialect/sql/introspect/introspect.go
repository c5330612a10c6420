// Package introspect reverse engineers a MySQL schema into a DSL tree
// that the compiler/format printer turns into source.
//
// Tables created by the modeler come back as the declarations they were
// built from: auto-increment keys and database timestamps become
// features, conventional foreign keys become relations and junction
// tables become n:n relations.
package introspect

import (
	"context"
	"slices"
	"strings"

	atlas "ariga.io/atlas/sql/schema"
	"go.uber.org/zap"

	"github.com/oolong-dev/oolong/compiler/feature"
	sqlschema "github.com/oolong-dev/oolong/dialect/sql/schema"
	"github.com/oolong-dev/oolong/dsl"
	"github.com/oolong-dev/oolong/schema/field"
)

// Option configures the conversion.
type Option func(*converter)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *converter) {
		c.log = l
	}
}

type converter struct {
	log *zap.Logger
}

// Inspect reads the named schema from a live database and converts it.
func Inspect(ctx context.Context, db atlas.ExecQuerier, name string, opts ...Option) (*dsl.Map, error) {
	s, err := sqlschema.Inspect(ctx, db, name)
	if err != nil {
		return nil, err
	}
	return FromAtlas(s, opts...)
}

// FromAtlas converts an atlas schema.
func FromAtlas(s *atlas.Schema, opts ...Option) (*dsl.Map, error) {
	tables, err := sqlschema.FromAtlas(s)
	if err != nil {
		return nil, err
	}
	return Tree(s.Name, tables, opts...), nil
}

// Tree converts tables into a unit declaring their entities, the
// relations between them and a schema named name.
func Tree(name string, tables []*sqlschema.Table, opts ...Option) *dsl.Map {
	c := &converter{log: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	entities := dsl.NewMap()
	var (
		relations []any
		names     []any
	)
	for _, t := range tables {
		if left, right, ok := junction(t); ok {
			relations = append(relations, dsl.MapOf("left", left, "right", right, "relationship", "n:n"))
			continue
		}
		e, rels := c.entity(t)
		entities.Set(t.Name, e)
		relations = append(relations, rels...)
		names = append(names, t.Name)
	}
	tree := dsl.NewMap()
	tree.Set(dsl.KeyEntity, entities)
	if len(relations) > 0 {
		tree.Set(dsl.KeyRelation, relations)
	}
	tree.Set(dsl.KeySchema, dsl.MapOf("name", name, "entities", names))
	return tree
}

func (c *converter) entity(t *sqlschema.Table) (*dsl.Map, []any) {
	var (
		features []any
		rels     []any
		skip     = make(map[string]bool)
	)
	if id, ok := autoID(t); ok {
		opts := dsl.NewMap()
		if id.Name != "id" {
			opts.Set("name", id.Name)
		}
		if v, ok := t.Options.Get("AUTO_INCREMENT"); ok {
			opts.Set("startFrom", atoi(v))
		}
		features = append(features, featureDecl(feature.AutoID, opts))
		skip[id.Name] = true
	}
	for _, col := range t.Columns {
		if col.Field != field.TypeDatetime || col.DefaultExpr == "" && col.OnUpdate == "" {
			continue
		}
		name, def := feature.CreateTimestamp, "createdAt"
		if col.OnUpdate != "" {
			name, def = feature.UpdateTimestamp, "updatedAt"
		}
		opts := dsl.NewMap()
		if col.Name != def {
			opts.Set("field", col.Name)
		}
		features = append(features, featureDecl(name, opts))
		skip[col.Name] = true
	}
	for _, fk := range t.ForeignKeys {
		col, ok := conventional(fk)
		if !ok {
			c.log.Debug("foreign key kept as a field", zap.String("table", t.Name), zap.Strings("columns", sqlschema.ColumnNames(fk.Columns)))
			continue
		}
		rel := "n:1"
		if col.Unique {
			rel = "1:1"
		}
		r := dsl.MapOf("left", t.Name, "right", fk.RefTable.Name, "relationship", rel)
		if col.Nullable {
			r.Set("optional", true)
		}
		rels = append(rels, r)
		skip[col.Name] = true
	}

	e := dsl.NewMap()
	if t.Comment != "" {
		e.Set("comment", t.Comment)
	}
	if len(features) > 0 {
		e.Set("features", features)
	}
	fields := dsl.NewMap()
	for _, col := range t.Columns {
		if !skip[col.Name] {
			fields.Set(col.Name, fieldDecl(col))
		}
	}
	e.Set("fields", fields)
	if _, auto := autoID(t); !auto && len(t.PrimaryKey) > 0 {
		e.Set("key", names(sqlschema.ColumnNames(t.PrimaryKey)))
	}
	var idxs []any
	for _, idx := range t.Indexes {
		cols := sqlschema.ColumnNames(idx.Columns)
		if slices.ContainsFunc(cols, func(n string) bool { return skip[n] }) {
			// regenerated from relations
			continue
		}
		decl := dsl.MapOf("fields", names(cols))
		if idx.Unique {
			decl.Set("unique", true)
		}
		if idx.Name != strings.Join(cols, "_") {
			decl.Set("name", idx.Name)
		}
		idxs = append(idxs, decl)
	}
	if len(idxs) > 0 {
		e.Set("indexes", idxs)
	}
	return e, rels
}

func fieldDecl(c *sqlschema.Column) *dsl.Map {
	m := c.Type.TypeInfo(c.Field).Attrs()
	if c.Nullable {
		m.Set("optional", true)
	}
	if c.HasDefault {
		v := c.Default
		if c.Field == field.TypeBool {
			v = v != int64(0) && v != "0"
		}
		m.Set("default", v)
	}
	if c.Comment != "" {
		m.Set("comment", c.Comment)
	}
	return m
}

func featureDecl(name string, opts *dsl.Map) any {
	if opts.Len() == 0 {
		return name
	}
	return dsl.MapOf(name, opts)
}

// autoID returns the auto-increment integer key of t.
func autoID(t *sqlschema.Table) (*sqlschema.Column, bool) {
	if len(t.PrimaryKey) != 1 {
		return nil, false
	}
	c := t.PrimaryKey[0]
	return c, c.Increment && c.Field == field.TypeInt
}

// conventional returns the column of a single column foreign key named
// the way the modeler names it.
func conventional(fk *sqlschema.ForeignKey) (*sqlschema.Column, bool) {
	if len(fk.Columns) != 1 || len(fk.RefColumns) != 1 || fk.RefTable == nil {
		return nil, false
	}
	col := fk.Columns[0]
	return col, col.Name == sqlschema.FKName(fk.RefTable.Name, fk.RefColumns[0].Name)
}

// junction reports whether t joins two tables: its key is made of two
// conventional foreign keys and its other columns are timestamps.
func junction(t *sqlschema.Table) (left, right string, ok bool) {
	if len(t.PrimaryKey) != 2 || len(t.ForeignKeys) != 2 {
		return "", "", false
	}
	byCol := make(map[string]*sqlschema.ForeignKey, 2)
	for _, fk := range t.ForeignKeys {
		if len(fk.Columns) != 1 || fk.RefTable == nil {
			return "", "", false
		}
		byCol[fk.Columns[0].Name] = fk
	}
	l, r := byCol[t.PrimaryKey[0].Name], byCol[t.PrimaryKey[1].Name]
	if l == nil || r == nil {
		return "", "", false
	}
	for _, c := range t.Columns {
		if _, isKey := byCol[c.Name]; !isKey && c.Field != field.TypeDatetime {
			return "", "", false
		}
	}
	left, right = l.RefTable.Name, r.RefTable.Name
	if sqlschema.JunctionName(left, right) != t.Name {
		return "", "", false
	}
	return left, right, true
}

func names(ns []string) any {
	if len(ns) == 1 {
		return ns[0]
	}
	out := make([]any, len(ns))
	for i, n := range ns {
		out[i] = n
	}
	return out
}

func atoi(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}
