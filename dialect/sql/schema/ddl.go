package schema

import (
	"fmt"
	"strconv"
	"strings"
)

// CreateStatement returns the CREATE TABLE statement of t.
func (t *Table) CreateStatement() string {
	var lines []string
	for _, c := range t.Columns {
		lines = append(lines, c.Definition())
	}
	if len(t.PrimaryKey) > 0 {
		lines = append(lines, "PRIMARY KEY "+identList(ColumnNames(t.PrimaryKey)))
	}
	for _, idx := range t.Indexes {
		kw := "KEY "
		if idx.Unique {
			kw = "UNIQUE KEY "
		}
		lines = append(lines, kw+Ident(idx.Name)+" "+identList(ColumnNames(idx.Columns)))
	}
	lines = append(lines, t.Lines...)
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", Ident(t.Name))
	for i, l := range lines {
		b.WriteString("  ")
		b.WriteString(l)
		if i < len(lines)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString(")")
	if len(t.Options) > 0 {
		b.WriteString(" ")
		b.WriteString(t.Options.String())
	}
	if t.Comment != "" {
		b.WriteString(" COMMENT=" + Quote(t.Comment))
	}
	b.WriteString(";\n")
	return b.String()
}

// Definition returns the column definition used in CREATE TABLE.
func (c *Column) Definition() string {
	parts := []string{Ident(c.Name), c.Type.String()}
	if c.Nullable {
		parts = append(parts, "NULL")
	} else {
		parts = append(parts, "NOT NULL")
	}
	if c.Increment {
		parts = append(parts, "AUTO_INCREMENT")
	}
	switch {
	case c.DefaultExpr != "":
		parts = append(parts, "DEFAULT "+c.DefaultExpr)
	case c.HasDefault:
		parts = append(parts, "DEFAULT "+Literal(c.Default))
	}
	if c.OnUpdate != "" {
		parts = append(parts, "ON UPDATE "+c.OnUpdate)
	}
	if c.Comment != "" {
		parts = append(parts, "COMMENT "+Quote(c.Comment))
	}
	return strings.Join(parts, " ")
}

// AlterStatement returns the statement adding fk to its table.
func (fk *ForeignKey) AlterStatement() string {
	var b strings.Builder
	fmt.Fprintf(&b, "ALTER TABLE %s ADD ", Ident(fk.Table.Name))
	if fk.Symbol != "" {
		fmt.Fprintf(&b, "CONSTRAINT %s ", Ident(fk.Symbol))
	}
	fmt.Fprintf(&b, "FOREIGN KEY %s REFERENCES %s %s",
		identList(ColumnNames(fk.Columns)), Ident(fk.RefTable.Name), identList(ColumnNames(fk.RefColumns)))
	if fk.OnUpdate != "" {
		b.WriteString(" ON UPDATE " + string(fk.OnUpdate))
	}
	if fk.OnDelete != "" {
		b.WriteString(" ON DELETE " + string(fk.OnDelete))
	}
	b.WriteString(";\n")
	return b.String()
}

// EntitiesSQL returns the script creating every table.
func (m *Model) EntitiesSQL() string {
	var b strings.Builder
	for i, t := range m.Tables {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(t.CreateStatement())
	}
	return b.String()
}

// RelationsSQL returns the script adding every foreign key, in reference order.
func (m *Model) RelationsSQL() string {
	var b strings.Builder
	for _, fk := range m.ForeignKeys() {
		b.WriteString(fk.AlterStatement())
	}
	return b.String()
}

// Statements returns the statements of both scripts, tables first.
func (m *Model) Statements() []string {
	var stmts []string
	for _, t := range m.Tables {
		stmts = append(stmts, strings.TrimSuffix(t.CreateStatement(), ";\n"))
	}
	for _, fk := range m.ForeignKeys() {
		stmts = append(stmts, strings.TrimSuffix(fk.AlterStatement(), ";\n"))
	}
	return stmts
}

// ForeignKeys returns the foreign keys of every table in reference order.
func (m *Model) ForeignKeys() []*ForeignKey {
	var fks []*ForeignKey
	next := make(map[*Table]int)
	for _, ref := range m.References {
		t, ok := m.Table(ref.Entity)
		if !ok || next[t] >= len(t.ForeignKeys) {
			continue
		}
		fks = append(fks, t.ForeignKeys[next[t]])
		next[t]++
	}
	return fks
}

// Literal renders a default value as a SQL literal.
func Literal(v any) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case string:
		return Quote(v)
	case bool:
		if v {
			return "1"
		}
		return "0"
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return Quote(fmt.Sprint(v))
	}
}

func identList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = Ident(n)
	}
	return "(" + strings.Join(quoted, ", ") + ")"
}
