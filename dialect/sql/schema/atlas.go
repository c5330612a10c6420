package schema

import (
	"context"
	"strconv"
	"strings"

	"ariga.io/atlas/sql/mysql"
	atlas "ariga.io/atlas/sql/schema"
	"github.com/cockroachdb/errors"

	"github.com/oolong-dev/oolong/schema/field"
)

// ToAtlas exports the model as an atlas schema named name.
func (m *Model) ToAtlas(name string) *atlas.Schema {
	s := atlas.New(name)
	tables := make(map[*Table]*atlas.Table, len(m.Tables))
	for _, t := range m.Tables {
		at := atlas.NewTable(t.Name)
		for _, c := range t.Columns {
			at.AddColumns(atlasColumn(c))
		}
		if len(t.PrimaryKey) > 0 {
			at.SetPrimaryKey(atlas.NewPrimaryKey(atlasColumns(at, t.PrimaryKey)...))
		}
		for _, idx := range t.Indexes {
			at.AddIndexes(atlas.NewIndex(idx.Name).SetUnique(idx.Unique).AddColumns(atlasColumns(at, idx.Columns)...))
		}
		for _, opt := range t.Options {
			switch strings.ToUpper(opt.Key) {
			case "ENGINE":
				at.AddAttrs(&mysql.Engine{V: opt.Value})
			case "DEFAULT CHARSET", "CHARSET":
				at.SetCharset(opt.Value)
			case "AUTO_INCREMENT":
				if n, err := strconv.ParseInt(opt.Value, 10, 64); err == nil {
					at.AddAttrs(&mysql.AutoIncrement{V: n})
				}
			}
		}
		if t.Comment != "" {
			at.SetComment(t.Comment)
		}
		s.AddTables(at)
		tables[t] = at
	}
	for _, t := range m.Tables {
		at := tables[t]
		for _, fk := range t.ForeignKeys {
			rt := tables[fk.RefTable]
			sym := fk.Symbol
			if sym == "" {
				sym = t.Name + "_" + strings.Join(ColumnNames(fk.Columns), "_")
			}
			at.AddForeignKeys(atlas.NewForeignKey(sym).
				AddColumns(atlasColumns(at, fk.Columns)...).
				SetRefTable(rt).
				AddRefColumns(atlasColumns(rt, fk.RefColumns)...).
				SetOnUpdate(atlas.ReferenceOption(fk.OnUpdate)).
				SetOnDelete(atlas.ReferenceOption(fk.OnDelete)))
		}
	}
	return s
}

func atlasColumns(t *atlas.Table, cs []*Column) []*atlas.Column {
	out := make([]*atlas.Column, 0, len(cs))
	for _, c := range cs {
		if ac, ok := t.Column(c.Name); ok {
			out = append(out, ac)
		}
	}
	return out
}

func atlasColumn(c *Column) *atlas.Column {
	ac := atlas.NewColumn(c.Name).SetType(AtlasType(c)).SetNull(c.Nullable)
	ac.Type.Raw = strings.ToLower(c.Type.String())
	switch {
	case c.DefaultExpr != "":
		ac.SetDefault(&atlas.RawExpr{X: c.DefaultExpr})
	case c.HasDefault:
		ac.SetDefault(&atlas.Literal{V: Literal(c.Default)})
	}
	if c.OnUpdate != "" {
		ac.AddAttrs(&mysql.OnUpdate{A: c.OnUpdate})
	}
	if c.Increment {
		ac.AddAttrs(&mysql.AutoIncrement{})
	}
	if c.Comment != "" {
		ac.SetComment(c.Comment)
	}
	return ac
}

// AtlasType returns the atlas type of the column.
func AtlasType(c *Column) atlas.Type {
	ct := c.Type
	base := strings.ToLower(ct.Base)
	arg := func(i int) int {
		if i < len(ct.Args) {
			return ct.Args[i]
		}
		return 0
	}
	switch base {
	case mysql.TypeTinyInt, mysql.TypeSmallInt, mysql.TypeMediumInt, mysql.TypeInt, mysql.TypeBigInt:
		if c.Field == field.TypeBool {
			return &atlas.BoolType{T: mysql.TypeBool}
		}
		return &atlas.IntegerType{T: base, Unsigned: ct.Unsigned}
	case mysql.TypeDecimal:
		return &atlas.DecimalType{T: base, Precision: arg(0), Scale: arg(1), Unsigned: ct.Unsigned}
	case mysql.TypeFloat, mysql.TypeDouble:
		return &atlas.FloatType{T: base, Precision: arg(0), Unsigned: ct.Unsigned}
	case mysql.TypeChar, mysql.TypeVarchar:
		return &atlas.StringType{T: base, Size: arg(0)}
	case mysql.TypeText, mysql.TypeMediumText, mysql.TypeLongText:
		return &atlas.StringType{T: base}
	case mysql.TypeBinary, mysql.TypeVarBinary:
		size := arg(0)
		return &atlas.BinaryType{T: base, Size: &size}
	case mysql.TypeBlob, mysql.TypeMediumBlob, mysql.TypeLongBlob:
		return &atlas.BinaryType{T: base}
	case mysql.TypeDateTime, mysql.TypeDate, mysql.TypeTime, mysql.TypeYear, mysql.TypeTimestamp:
		return &atlas.TimeType{T: base}
	case mysql.TypeEnum:
		return &atlas.EnumType{T: base, Values: ct.Values}
	case mysql.TypeJSON:
		return &atlas.JSONType{T: base}
	default:
		return &atlas.UnsupportedType{T: base}
	}
}

// ColumnTypeFromAtlas converts an atlas type back into a column type and
// the builtin type it maps to.
func ColumnTypeFromAtlas(t atlas.Type) (*ColumnType, field.Type, error) {
	switch t := t.(type) {
	case *atlas.BoolType:
		return &ColumnType{Base: "TINYINT", Args: []int{1}}, field.TypeBool, nil
	case *atlas.IntegerType:
		return &ColumnType{Base: strings.ToUpper(t.T), Unsigned: t.Unsigned}, field.TypeInt, nil
	case *atlas.DecimalType:
		ct := &ColumnType{Base: "DECIMAL", Unsigned: t.Unsigned}
		if t.Precision > 0 {
			ct.Args = append(ct.Args, t.Precision)
			if t.Scale > 0 {
				ct.Args = append(ct.Args, t.Scale)
			}
		}
		return ct, field.TypeDecimal, nil
	case *atlas.FloatType:
		ct := &ColumnType{Base: strings.ToUpper(t.T), Unsigned: t.Unsigned}
		if ct.Base == "REAL" {
			ct.Base = "DOUBLE"
		}
		if t.Precision > 0 {
			ct.Args = []int{t.Precision}
		}
		return ct, field.TypeFloat, nil
	case *atlas.StringType:
		ct := &ColumnType{Base: strings.ToUpper(t.T)}
		size := t.Size
		if ct.Base == "TINYTEXT" {
			ct.Base, size = "VARCHAR", maxVarLength
		}
		if size > 0 && (ct.Base == "CHAR" || ct.Base == "VARCHAR") {
			ct.Args = []int{size}
		}
		return ct, field.TypeText, nil
	case *atlas.BinaryType:
		ct := &ColumnType{Base: strings.ToUpper(t.T)}
		if ct.Base == "TINYBLOB" {
			ct.Base = "VARBINARY"
			ct.Args = []int{maxVarLength}
		} else if t.Size != nil && (ct.Base == "BINARY" || ct.Base == "VARBINARY") {
			ct.Args = []int{*t.Size}
		}
		return ct, field.TypeBinary, nil
	case *atlas.TimeType:
		return &ColumnType{Base: strings.ToUpper(t.T)}, field.TypeDatetime, nil
	case *atlas.EnumType:
		return &ColumnType{Base: "ENUM", Values: t.Values}, field.TypeEnum, nil
	case *atlas.JSONType:
		return &ColumnType{Base: "JSON"}, field.TypeObject, nil
	case *atlas.UnsupportedType:
		return nil, "", errors.Wrapf(ErrUnsupportedType, "%s", t.T)
	default:
		return nil, "", errors.Wrapf(ErrUnsupportedType, "%T", t)
	}
}

// FromAtlas converts the tables of an atlas schema, typically inspected
// from a live database, into tables.
func FromAtlas(s *atlas.Schema) ([]*Table, error) {
	tables := make(map[string]*Table, len(s.Tables))
	out := make([]*Table, 0, len(s.Tables))
	for _, at := range s.Tables {
		t := NewTable(at.Name)
		for _, ac := range at.Columns {
			c, err := columnFromAtlas(ac)
			if err != nil {
				return nil, errors.Wrapf(err, "table %q", at.Name)
			}
			t.AddColumn(c)
		}
		if at.PrimaryKey != nil {
			for _, p := range at.PrimaryKey.Parts {
				if p.C != nil {
					c, _ := t.Column(p.C.Name)
					t.PrimaryKey = append(t.PrimaryKey, c)
				}
			}
		}
		for _, idx := range at.Indexes {
			var cols []string
			for _, p := range idx.Parts {
				if p.C != nil {
					cols = append(cols, p.C.Name)
				}
			}
			t.AddIndex(idx.Name, idx.Unique, cols)
			if idx.Unique && len(cols) == 1 {
				c, _ := t.Column(cols[0])
				c.Unique = true
			}
		}
		t.Options = tableOptionsFromAtlas(at.Attrs)
		for _, a := range at.Attrs {
			if c, ok := a.(*atlas.Comment); ok {
				t.Comment = c.Text
			}
		}
		tables[t.Name] = t
		out = append(out, t)
	}
	for _, at := range s.Tables {
		t := tables[at.Name]
		for _, afk := range at.ForeignKeys {
			rt, ok := tables[afk.RefTable.Name]
			if !ok {
				// references into another schema
				continue
			}
			fk := &ForeignKey{
				Symbol:   afk.Symbol,
				Table:    t,
				RefTable: rt,
				OnUpdate: ReferenceOption(afk.OnUpdate),
				OnDelete: ReferenceOption(afk.OnDelete),
			}
			for _, c := range afk.Columns {
				col, _ := t.Column(c.Name)
				fk.Columns = append(fk.Columns, col)
			}
			for _, c := range afk.RefColumns {
				col, _ := rt.Column(c.Name)
				fk.RefColumns = append(fk.RefColumns, col)
			}
			t.ForeignKeys = append(t.ForeignKeys, fk)
		}
	}
	return out, nil
}

func columnFromAtlas(ac *atlas.Column) (*Column, error) {
	ct, ft, err := ColumnTypeFromAtlas(ac.Type.Type)
	if err != nil {
		return nil, errors.Wrapf(err, "column %q", ac.Name)
	}
	c := &Column{Name: ac.Name, Type: ct, Field: ft, Nullable: ac.Type.Null}
	if len(ct.Args) > 0 && (ft == field.TypeText || ft == field.TypeBinary) {
		c.Size = int64(ct.Args[0])
	}
	switch d := ac.Default.(type) {
	case *atlas.RawExpr:
		c.DefaultExpr = d.X
	case *atlas.Literal:
		c.Default, c.HasDefault = unquote(d.V), true
	}
	for _, a := range ac.Attrs {
		switch a := a.(type) {
		case *mysql.AutoIncrement:
			c.Increment = true
		case *mysql.OnUpdate:
			c.OnUpdate = strings.ToUpper(a.A)
		case *atlas.Comment:
			c.Comment = a.Text
		}
	}
	return c, nil
}

func tableOptionsFromAtlas(attrs []atlas.Attr) TableOptions {
	var opts TableOptions
	for _, a := range attrs {
		switch a := a.(type) {
		case *mysql.Engine:
			opts = opts.Set("ENGINE", a.V)
		case *atlas.Charset:
			opts = opts.Set("DEFAULT CHARSET", a.V)
		case *mysql.AutoIncrement:
			if a.V > 1 {
				opts = opts.Set("AUTO_INCREMENT", strconv.FormatInt(a.V, 10))
			}
		}
	}
	return opts
}

func unquote(v string) any {
	if len(v) >= 2 && v[0] == '\'' && v[len(v)-1] == '\'' {
		return strings.ReplaceAll(v[1:len(v)-1], `''`, `'`)
	}
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	return v
}

// Inspect reads the named schema from a live MySQL database.
func Inspect(ctx context.Context, db atlas.ExecQuerier, name string) (*atlas.Schema, error) {
	drv, err := mysql.Open(db)
	if err != nil {
		return nil, errors.Wrap(err, "open atlas driver")
	}
	s, err := drv.InspectSchema(ctx, name, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "inspect schema %q", name)
	}
	return s, nil
}

// Plan returns the MySQL statements migrating current to the model.
func (m *Model) Plan(ctx context.Context, current *atlas.Schema) ([]string, error) {
	desired := m.ToAtlas(current.Name)
	changes, err := mysql.DefaultDiff.SchemaDiff(current, desired)
	if err != nil {
		return nil, errors.Wrap(err, "diff schema")
	}
	if len(changes) == 0 {
		return nil, nil
	}
	plan, err := mysql.DefaultPlan.PlanChanges(ctx, "oolong", changes)
	if err != nil {
		return nil, errors.Wrap(err, "plan changes")
	}
	stmts := make([]string, len(plan.Changes))
	for i, c := range plan.Changes {
		stmts[i] = c.Cmd
	}
	return stmts, nil
}
