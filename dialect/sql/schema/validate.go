package schema

import (
	"fmt"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
)

// Change is a kind of destructive migration step.
type Change string

// Destructive changes detected by CheckDrift.
const (
	DropTable  Change = "drop-table"
	DropColumn Change = "drop-column"
	DropIndex  Change = "drop-index"
	// NotNull turns a nullable column into NOT NULL.
	NotNull Change = "not-null"
	// Narrow shrinks a column type: fewer digits, a shorter text type or
	// fewer enum values.
	Narrow Change = "narrow"
)

// Changes lists every destructive change kind.
var Changes = []Change{DropTable, DropColumn, DropIndex, NotNull, Narrow}

// ParseChange parses the name of a change kind.
func ParseChange(s string) (Change, error) {
	c := Change(strings.ToLower(strings.TrimSpace(s)))
	if !slices.Contains(Changes, c) {
		return "", errors.Newf("unknown change %q (one of %s)", s, changeList())
	}
	return c, nil
}

func changeList() string {
	names := make([]string, len(Changes))
	for i, c := range Changes {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}

// Issue is one finding on a physical model or a migration.
type Issue struct {
	Table  string
	Column string
	// Change is set on destructive migration steps.
	Change Change
	// Blocking issues stop a migration. Destructive changes that were
	// explicitly allowed are reported as non blocking.
	Blocking bool
	Message  string
}

func (i *Issue) String() string {
	var b strings.Builder
	b.WriteString(i.Table)
	if i.Column != "" {
		b.WriteString("." + i.Column)
	}
	b.WriteString(": " + i.Message)
	if i.Change != "" {
		b.WriteString(" [" + string(i.Change) + "]")
	}
	return b.String()
}

// Issues is an ordered list of findings.
type Issues []*Issue

// Blocking returns the blocking issues.
func (is Issues) Blocking() Issues {
	var out Issues
	for _, i := range is {
		if i.Blocking {
			out = append(out, i)
		}
	}
	return out
}

// Err returns an error listing the blocking issues, or nil.
func (is Issues) Err() error {
	b := is.Blocking()
	if len(b) == 0 {
		return nil
	}
	return errors.Newf("%d blocking issue(s):\n%s", len(b), b)
}

func (is Issues) String() string {
	lines := make([]string, len(is))
	for i, x := range is {
		lines[i] = "  - " + x.String()
	}
	return strings.Join(lines, "\n")
}

type issues struct{ list Issues }

func (r *issues) add(table, column string, blocking bool, format string, args ...any) {
	r.list = append(r.list, &Issue{Table: table, Column: column, Blocking: blocking, Message: fmt.Sprintf(format, args...)})
}

func (r *issues) change(table, column string, c Change, allowed []Change, format string, args ...any) {
	r.list = append(r.list, &Issue{
		Table:    table,
		Column:   column,
		Change:   c,
		Blocking: !slices.Contains(allowed, c),
		Message:  fmt.Sprintf(format, args...),
	})
}

// CheckModel checks the structural invariants of modeled tables: unique
// names, resolvable index and foreign key columns, foreign keys typed
// like the key they reference, and junction tables keyed by exactly
// their two foreign keys. Every issue it returns is blocking.
func CheckModel(tables []*Table) Issues {
	r := &issues{}
	byName := make(map[string]*Table, len(tables))
	for _, t := range tables {
		if _, ok := byName[t.Name]; ok {
			r.add(t.Name, "", true, "duplicate table")
		}
		byName[t.Name] = t
		checkTable(r, t)
	}
	for _, t := range tables {
		for _, fk := range t.ForeignKeys {
			cols := ColumnNames(fk.Columns)
			if fk.RefTable == nil || byName[fk.RefTable.Name] != fk.RefTable {
				r.add(t.Name, strings.Join(cols, ","), true, "foreign key references a table outside the model")
				continue
			}
			for i, c := range fk.Columns {
				if i >= len(fk.RefColumns) || c == nil || fk.RefColumns[i] == nil {
					r.add(t.Name, strings.Join(cols, ","), true, "foreign key columns do not match %s", fk.RefTable.Name)
					break
				}
				if ct, rt := typeOf(c), typeOf(fk.RefColumns[i]); ct != rt {
					r.add(t.Name, c.Name, true, "typed %s but references %s.%s typed %s",
						ct, fk.RefTable.Name, fk.RefColumns[i].Name, rt)
				}
			}
		}
		if t.Junction {
			checkJunction(r, t)
		}
	}
	return r.list
}

func checkTable(r *issues, t *Table) {
	if len(t.PrimaryKey) == 0 {
		r.add(t.Name, "", true, "no primary key")
	}
	seen := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		if seen[c.Name] {
			r.add(t.Name, c.Name, true, "duplicate column")
		}
		seen[c.Name] = true
	}
	idx := make(map[string]bool, len(t.Indexes))
	for _, i := range t.Indexes {
		if idx[i.Name] {
			r.add(t.Name, "", true, "duplicate index %q", i.Name)
		}
		idx[i.Name] = true
		for _, c := range i.Columns {
			if c == nil || !seen[c.Name] {
				r.add(t.Name, "", true, "index %q over a column outside the table", i.Name)
			}
		}
	}
	for _, fk := range t.ForeignKeys {
		for _, c := range fk.Columns {
			if c == nil || !seen[c.Name] {
				r.add(t.Name, "", true, "foreign key over a column outside the table")
			}
		}
	}
}

func checkJunction(r *issues, t *Table) {
	var fks []string
	for _, fk := range t.ForeignKeys {
		fks = append(fks, ColumnNames(fk.Columns)...)
	}
	pk := ColumnNames(t.PrimaryKey)
	if len(fks) != 2 || !slices.Equal(pk, fks) {
		r.add(t.Name, "", true, "junction keyed by (%s), want its foreign keys (%s)",
			strings.Join(pk, ", "), strings.Join(fks, ", "))
	}
}

// CheckDrift compares the tables of a live database with the modeled ones
// and reports what migrating would destroy or risk. Destructive changes
// are blocking unless their kind is allowed; risky but lossless steps are
// reported as non blocking.
func CheckDrift(current, desired []*Table, allowed ...Change) Issues {
	r := &issues{}
	want := make(map[string]*Table, len(desired))
	for _, t := range desired {
		want[t.Name] = t
	}
	for _, cur := range current {
		t, ok := want[cur.Name]
		if !ok {
			r.change(cur.Name, "", DropTable, allowed, "table is not modeled and would be dropped")
			continue
		}
		driftTable(r, cur, t, allowed)
	}
	return r.list
}

func driftTable(r *issues, cur, t *Table, allowed []Change) {
	for _, c := range cur.Columns {
		if !t.HasColumn(c.Name) {
			r.change(t.Name, c.Name, DropColumn, allowed, "column would be dropped")
		}
	}
	for _, c := range t.Columns {
		old, ok := cur.Column(c.Name)
		if !ok {
			if !c.Nullable && !c.HasDefault && c.DefaultExpr == "" && !c.Increment {
				r.add(t.Name, c.Name, false, "new NOT NULL column without a default fails on a non-empty table")
			}
			continue
		}
		if old.Nullable && !c.Nullable {
			r.change(t.Name, c.Name, NotNull, allowed, "NULL values would reject the NOT NULL constraint")
		}
		if msg, narrow := narrows(old.Type, c.Type); narrow {
			r.change(t.Name, c.Name, Narrow, allowed, "%s", msg)
		} else if ot, nt := typeOf(old), typeOf(c); ot != nt {
			r.add(t.Name, c.Name, false, "type changes from %s to %s", ot, nt)
		}
		if !old.Unique && c.Unique {
			r.add(t.Name, c.Name, false, "UNIQUE fails on duplicate values")
		}
	}
	for _, i := range cur.Indexes {
		if _, ok := t.Index(i.Name); ok || backsForeignKey(t, i) {
			continue
		}
		r.change(t.Name, "", DropIndex, allowed, "index %q would be dropped", i.Name)
	}
}

// backsForeignKey reports whether i is the index MySQL creates implicitly
// for a foreign key of t.
func backsForeignKey(t *Table, i *Index) bool {
	cols := ColumnNames(i.Columns)
	for _, fk := range t.ForeignKeys {
		if slices.Equal(cols, ColumnNames(fk.Columns)) {
			return true
		}
	}
	return false
}

func typeOf(c *Column) string {
	if c.Type == nil {
		return "?"
	}
	return c.Type.String()
}

var textRank = map[string]int{"VARCHAR": 1, "TEXT": 2, "MEDIUMTEXT": 3, "LONGTEXT": 4}

// narrows reports whether moving a column from old to t may lose data.
func narrows(old, t *ColumnType) (string, bool) {
	if old == nil || t == nil {
		return "", false
	}
	if or, ok := textRank[old.Base]; ok {
		if nr, ok := textRank[t.Base]; ok && nr < or {
			return fmt.Sprintf("%s to %s may truncate values", old, t), true
		}
	}
	if old.Base == t.Base && len(old.Args) > 0 && len(t.Args) > 0 && t.Args[0] < old.Args[0] {
		return fmt.Sprintf("%s to %s may truncate values", old, t), true
	}
	if old.Base == "ENUM" && t.Base == "ENUM" {
		var gone []string
		for _, v := range old.Values {
			if !slices.Contains(t.Values, v) {
				gone = append(gone, v)
			}
		}
		if len(gone) > 0 {
			return fmt.Sprintf("enum values %s would be removed", strings.Join(gone, ", ")), true
		}
	}
	return "", false
}
