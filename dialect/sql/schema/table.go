package schema

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/oolong-dev/oolong/schema/field"
)

// ReferenceOption for constraint actions.
type ReferenceOption string

// Reference options.
const (
	NoAction   ReferenceOption = "NO ACTION"
	Restrict   ReferenceOption = "RESTRICT"
	Cascade    ReferenceOption = "CASCADE"
	SetNull    ReferenceOption = "SET NULL"
	SetDefault ReferenceOption = "SET DEFAULT"
)

// ConstName returns the constant name of a reference option.
func (r ReferenceOption) ConstName() string {
	return strings.ReplaceAll(cases.Title(language.Und).String(strings.ToLower(string(r))), " ", "")
}

type (
	// Table is a MySQL table built from an entity.
	Table struct {
		Name        string
		Comment     string
		Columns     []*Column
		columns     map[string]*Column
		PrimaryKey  []*Column
		Indexes     []*Index
		ForeignKeys []*ForeignKey
		// Lines are extra definitions appended after the key clauses.
		Lines   []string
		Options TableOptions
		// Junction marks tables synthesized for n:n relations.
		Junction bool
	}

	// Column is a table column.
	Column struct {
		Name     string
		Type     *ColumnType
		Field    field.Type
		Size     int64
		Nullable bool
		// Default is a literal default value; HasDefault tells a nil
		// default from no default.
		Default    any
		HasDefault bool
		// DefaultExpr and OnUpdate are raw SQL expressions.
		DefaultExpr string
		OnUpdate    string
		Increment   bool
		Unique      bool
		Comment     string
	}

	// Index is a plain or unique index of a table.
	Index struct {
		Name    string
		Unique  bool
		Columns []*Column
	}

	// ForeignKey is a foreign key constraint.
	ForeignKey struct {
		Symbol     string
		Table      *Table
		Columns    []*Column
		RefTable   *Table
		RefColumns []*Column
		OnUpdate   ReferenceOption
		OnDelete   ReferenceOption
	}

	// TableOption is a table option such as ENGINE=InnoDB.
	TableOption struct {
		Key, Value string
	}

	// TableOptions is an ordered list of table options.
	TableOptions []TableOption
)

// NewTable returns a new table with the given name.
func NewTable(name string) *Table {
	return &Table{Name: name, columns: make(map[string]*Column)}
}

// AddColumn adds a new column to the table.
func (t *Table) AddColumn(c *Column) *Table {
	if t.columns == nil {
		t.columns = make(map[string]*Column)
	}
	t.columns[c.Name] = c
	t.Columns = append(t.Columns, c)
	return t
}

// HasColumn reports whether the table has a column with the given name.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.Column(name)
	return ok
}

// Column returns the column with the given name, if exists.
func (t *Table) Column(name string) (*Column, bool) {
	if c, ok := t.columns[name]; ok {
		return c, true
	}
	// columns added directly to the slice
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// AddIndex creates and adds a new index over the named columns.
func (t *Table) AddIndex(name string, unique bool, columns []string) *Table {
	idx := &Index{Name: name, Unique: unique}
	for _, n := range columns {
		c, ok := t.Column(n)
		if !ok {
			c = &Column{Name: n}
		}
		idx.Columns = append(idx.Columns, c)
	}
	t.Indexes = append(t.Indexes, idx)
	return t
}

// Index returns the index with the given name.
func (t *Table) Index(name string) (*Index, bool) {
	for _, idx := range t.Indexes {
		if idx.Name == name {
			return idx, true
		}
	}
	return nil, false
}

// ColumnNames returns the names of the columns.
func ColumnNames(cs []*Column) []string {
	names := make([]string, len(cs))
	for i, c := range cs {
		names[i] = c.Name
	}
	return names
}

// Set sets the value of the option key, keeping its position if set.
func (o TableOptions) Set(key, value string) TableOptions {
	for i := range o {
		if strings.EqualFold(o[i].Key, key) {
			o[i].Value = value
			return o
		}
	}
	return append(o, TableOption{Key: key, Value: value})
}

// Get returns the value of the option key.
func (o TableOptions) Get(key string) (string, bool) {
	for _, opt := range o {
		if strings.EqualFold(opt.Key, key) {
			return opt.Value, true
		}
	}
	return "", false
}

// String renders the options as they appear after a table definition.
func (o TableOptions) String() string {
	parts := make([]string, len(o))
	for i, opt := range o {
		parts[i] = fmt.Sprintf("%s=%s", opt.Key, opt.Value)
	}
	return strings.Join(parts, " ")
}

// DefaultTableOptions are the options applied to every table.
func DefaultTableOptions() TableOptions {
	return TableOptions{
		{Key: "ENGINE", Value: "InnoDB"},
		{Key: "DEFAULT CHARSET", Value: "utf8mb4"},
	}
}
