package runtime

import (
	"context"
	"slices"
)

// Model is embedded by every generated entity.
type Model struct {
	Meta *Meta
	DB   DB
	// Latest holds the values being written.
	Latest map[string]any
	// Existing holds the stored record on update, nil on create.
	Existing map[string]any
}

// NewModel returns a model with an empty payload.
func NewModel(meta *Meta, db DB) Model {
	return Model{Meta: meta, DB: db, Latest: make(map[string]any)}
}

// Set stores a value of the payload and returns the model.
func (m *Model) Set(field string, v any) *Model {
	if m.Latest == nil {
		m.Latest = make(map[string]any)
	}
	m.Latest[field] = v
	return m
}

// DB is the data access contract generated interfaces call into.
type DB interface {
	// FindOne returns the record of model matching every condition,
	// or nil when there is none.
	FindOne(ctx context.Context, model string, condition map[string]any) (map[string]any, error)
}

// Meta describes a generated entity.
type Meta struct {
	SchemaName string
	Name       string
	KeyField   []string
	Fields     []*FieldMeta
	Indexes    []*IndexMeta
	Features   []*FeatureMeta
	UniqueKeys [][]string
	Interfaces map[string][]*ParamMeta
}

// Field returns the metadata of the named field.
func (m *Meta) Field(name string) (*FieldMeta, bool) {
	i := slices.IndexFunc(m.Fields, func(f *FieldMeta) bool { return f.Name == name })
	if i < 0 {
		return nil, false
	}
	return m.Fields[i], true
}

// HasFeature reports whether the entity enables the named feature.
func (m *Meta) HasFeature(name string) bool {
	return slices.ContainsFunc(m.Features, func(f *FeatureMeta) bool { return f.Name == name })
}

type (
	// FieldMeta describes a field.
	FieldMeta struct {
		Name          string
		Type          string
		Values        []string
		Optional      bool
		Auto          bool
		ReadOnly      bool
		WriteOnceOnly bool
		HasDefault    bool
		Default       any
	}

	// IndexMeta describes an index.
	IndexMeta struct {
		Name   string
		Fields []string
		Unique bool
	}

	// FeatureMeta is an enabled feature with its normalized options.
	FeatureMeta struct {
		Name    string
		Options map[string]any
	}

	// ParamMeta describes a parameter of an interface.
	ParamMeta struct {
		Name     string
		Type     string
		Optional bool
	}
)
