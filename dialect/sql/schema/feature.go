package schema

import (
	"strconv"

	"github.com/oolong-dev/oolong/compiler/feature"
	"github.com/oolong-dev/oolong/schema"
)

// reducer turns a logical feature into database markers and deferred
// actions.
type reducer func(st *state, name string, e *schema.Entity, f *schema.Feature) error

var reducers = map[string]reducer{
	feature.AutoID:                      reduceAutoID,
	feature.CreateTimestamp:             reduceTimestamp(false),
	feature.UpdateTimestamp:             reduceTimestamp(true),
	feature.LogicalDeletion:             nop,
	feature.StateTracking:               nop,
	feature.AtLeastOneNotNull:           nop,
	feature.ValidateAllFieldsOnCreation: nop,
}

func nop(*state, string, *schema.Entity, *schema.Feature) error { return nil }

func (st *state) reduce(name string, e *schema.Entity) {
	for _, f := range e.Features {
		fn, ok := reducers[f.Name]
		if !ok {
			st.report.Add(name, "unsupported feature %q", f.Name)
			continue
		}
		if err := fn(st, name, e, f); err != nil {
			st.report.Add(name, "feature %q: %v", f.Name, err)
		}
	}
}

func reduceAutoID(st *state, name string, e *schema.Entity, f *schema.Feature) error {
	opts, err := feature.AutoIDConfig(f)
	if err != nil {
		return err
	}
	if id, ok := e.Field(opts.Name); ok && opts.Type == "int" {
		id.AutoIncrement = true
	}
	if opts.StartFrom > 0 {
		st.queue.Push(&SetTableOption{Table: name, Key: "AUTO_INCREMENT", Value: strconv.Itoa(opts.StartFrom)})
	}
	return nil
}

func reduceTimestamp(onUpdate bool) reducer {
	return func(st *state, name string, e *schema.Entity, f *schema.Feature) error {
		var opts feature.FieldOptions
		if m, ok := f.Options.(map[string]any); ok {
			opts.Field, _ = m["field"].(string)
		}
		if opts.Field == "" {
			opts.Field = "createdAt"
			if onUpdate {
				opts.Field = "updatedAt"
			}
		}
		ts, ok := e.Field(opts.Field)
		if !ok {
			st.report.Add(name, "timestamp field %q not found", opts.Field)
			return nil
		}
		if onUpdate {
			ts.UpdateByDB = true
		} else {
			ts.CreateByDB = true
		}
		return nil
	}
}
