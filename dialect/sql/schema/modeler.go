package schema

import (
	"slices"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/oolong-dev/oolong"
	"github.com/oolong-dev/oolong/schema"
)

type (
	// Modeler builds the physical model of a linked schema.
	Modeler struct {
		log     *zap.Logger
		options TableOptions
	}

	// ModelerOption configures a Modeler.
	ModelerOption func(*Modeler)

	// Model is the physical model of a schema.
	Model struct {
		// Schema is the clone of the logical schema, extended with
		// foreign key fields and junction entities.
		Schema *schema.Schema
		// Tables in entity registration order, junctions included.
		Tables     []*Table
		References []*Reference
	}

	// Reference is a foreign key field pointing at the key of another entity.
	Reference struct {
		Entity    string
		Field     string
		RefEntity string
		RefField  string
		// Junction marks the references held by junction entities.
		Junction bool
	}
)

// WithLogger sets the logger of the modeler.
func WithLogger(l *zap.Logger) ModelerOption {
	return func(m *Modeler) {
		m.log = l
	}
}

// WithTableOptions replaces the static options applied to every table.
func WithTableOptions(opts TableOptions) ModelerOption {
	return func(m *Modeler) {
		m.options = slices.Clone(opts)
	}
}

// NewModeler returns a modeler emitting MySQL tables.
func NewModeler(opts ...ModelerOption) *Modeler {
	m := &Modeler{log: zap.NewNop(), options: DefaultTableOptions()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// state holds the work of one Model call.
type state struct {
	*Modeler
	schema *schema.Schema
	model  *Model
	queue  *Queue
	report *ComplianceReport
	// refs indexes the references by "entity.field".
	refs map[string]*Reference
	// fks maps "holder|target" to the foreign key field of a relation.
	fks map[string]string
}

// Model builds the physical model of s. The logical schema is left
// untouched. Compliance problems are collected over every entity and
// returned together as oolong.ComplianceErrors; other errors, such as
// conflicting foreign keys, abort the modeling.
func (m *Modeler) Model(s *schema.Schema) (*Model, error) {
	if !s.Initialized {
		return nil, errors.Newf("schema %q is not linked", s.Name)
	}
	clone, err := s.Clone()
	if err != nil {
		return nil, errors.Wrap(err, "clone schema")
	}
	st := &state{
		Modeler: m,
		schema:  clone,
		queue:   &Queue{},
		report:  NewComplianceReport(),
		refs:    make(map[string]*Reference),
		fks:     make(map[string]string),
	}
	st.model = &Model{Schema: st.schema}
	// Phase one: relations and features.
	for _, r := range st.schema.Relations {
		if err := st.expand(r); err != nil {
			return nil, err
		}
	}
	for _, name := range st.schema.Names() {
		e, _ := st.schema.Entity(name)
		st.check(name, e)
		st.reduce(name, e)
	}
	if err := st.report.Err(); err != nil {
		m.log.Debug("schema is not compliant", zap.String("schema", s.Name), zap.Strings("entities", st.report.Entities()))
		return st.model, err
	}
	// Phase two: tables and deferred actions.
	tables := make(map[string]*Table, st.schema.Len())
	for _, name := range st.schema.Names() {
		e, _ := st.schema.Entity(name)
		t := st.table(name, e)
		tables[name] = t
		st.model.Tables = append(st.model.Tables, t)
	}
	for _, ref := range st.model.References {
		t, rt := tables[ref.Entity], tables[ref.RefEntity]
		c, _ := t.Column(ref.Field)
		rc, _ := rt.Column(ref.RefField)
		fk := &ForeignKey{
			Table:      t,
			Columns:    []*Column{c},
			RefTable:   rt,
			RefColumns: []*Column{rc},
			OnUpdate:   Cascade,
			OnDelete:   Restrict,
		}
		if ref.Junction {
			fk.OnDelete = Cascade
		}
		t.ForeignKeys = append(t.ForeignKeys, fk)
	}
	if err := st.queue.Drain(tables); err != nil {
		return nil, err
	}
	if issues := CheckModel(st.model.Tables); len(issues) > 0 {
		return nil, &oolong.InvariantError{Where: "physical model of " + s.Name, Message: issues.String()}
	}
	m.log.Debug("modeled schema",
		zap.String("schema", s.Name),
		zap.Int("tables", len(st.model.Tables)),
		zap.Int("references", len(st.model.References)),
	)
	return st.model, nil
}

// Table returns the named table.
func (m *Model) Table(name string) (*Table, bool) {
	for _, t := range m.Tables {
		if t.Name == name {
			return t, true
		}
	}
	return nil, false
}
