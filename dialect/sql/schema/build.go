package schema

import (
	"slices"
	"strings"

	"github.com/oolong-dev/oolong/schema"
	"github.com/oolong-dev/oolong/schema/field"
)

const currentTimestamp = "CURRENT_TIMESTAMP"

// table builds the table of a compliant entity.
func (st *state) table(name string, e *schema.Entity) *Table {
	t := NewTable(name)
	t.Comment = e.Comment
	t.Junction = e.RelationshipEntity
	t.Options = slices.Clone(st.options)
	for _, f := range e.Fields.All() {
		t.AddColumn(column(f))
	}
	for _, k := range e.Key {
		c, _ := t.Column(k)
		t.PrimaryKey = append(t.PrimaryKey, c)
	}
	for _, idx := range e.Indexes {
		iname := idx.Name
		if iname == "" {
			iname = strings.Join(idx.Fields, "_")
		}
		t.AddIndex(iname, idx.Unique, idx.Fields)
		if idx.Unique && len(idx.Fields) == 1 {
			c, _ := t.Column(idx.Fields[0])
			c.Unique = true
		}
	}
	return t
}

// column maps a field to a column. The field type is known to be supported.
func column(f *field.Field) *Column {
	ct, _ := ColumnTypeOf(f.TypeInfo)
	c := &Column{
		Name:      f.Name,
		Type:      ct,
		Field:     f.Type,
		Size:      int64(max(f.MaxLength, f.FixedLength)),
		Nullable:  f.Optional,
		Increment: f.AutoIncrement,
		Comment:   f.Comment,
	}
	if f.HasDefault {
		c.Default, c.HasDefault = f.Default, true
	}
	if f.CreateByDB || f.UpdateByDB {
		c.DefaultExpr = currentTimestamp
	}
	if f.UpdateByDB {
		c.OnUpdate = currentTimestamp
		if f.Optional {
			c.DefaultExpr = ""
		}
	}
	return c
}
