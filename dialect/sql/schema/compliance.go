package schema

import (
	"fmt"

	"github.com/oolong-dev/oolong"
	"github.com/oolong-dev/oolong/schema"
)

// ComplianceReport collects the rule violations of every entity of a
// schema. Problems are grouped per entity in the order the entities are
// first reported.
type ComplianceReport struct {
	order    []string
	problems map[string][]string
}

// NewComplianceReport returns an empty report.
func NewComplianceReport() *ComplianceReport {
	return &ComplianceReport{problems: make(map[string][]string)}
}

// Add records a problem of the named entity.
func (r *ComplianceReport) Add(entity, format string, args ...any) {
	if _, ok := r.problems[entity]; !ok {
		r.order = append(r.order, entity)
	}
	r.problems[entity] = append(r.problems[entity], fmt.Sprintf(format, args...))
}

// Entities returns the names of the non-compliant entities.
func (r *ComplianceReport) Entities() []string { return r.order }

// Err returns the collected problems as oolong.ComplianceErrors, or nil.
func (r *ComplianceReport) Err() error {
	if len(r.order) == 0 {
		return nil
	}
	errs := make(oolong.ComplianceErrors, len(r.order))
	for i, name := range r.order {
		errs[i] = &oolong.ComplianceError{Entity: name, Problems: r.problems[name]}
	}
	return errs
}

// check verifies that e can be turned into a table.
func (st *state) check(name string, e *schema.Entity) {
	switch {
	case len(e.Key) == 0:
		st.report.Add(name, "no primary key")
	default:
		for _, k := range e.Key {
			if _, ok := e.Field(k); !ok {
				st.report.Add(name, "key field %q not found", k)
			}
		}
	}
	for _, f := range e.Fields.All() {
		ct, err := ColumnTypeOf(f.TypeInfo)
		if err != nil {
			st.report.Add(name, "field %q: %v", f.Name, err)
			continue
		}
		if f.HasDefault && f.Default != nil && ct.Blob() {
			st.report.Add(name, "field %q: %s column cannot have a literal default", f.Name, ct.Base)
		}
	}
	for _, idx := range e.Indexes {
		for _, fn := range idx.Fields {
			if _, ok := e.Field(fn); !ok {
				st.report.Add(name, "index over unknown field %q", fn)
			}
		}
	}
}
