package gen

import (
	"slices"
	"strings"

	"github.com/dave/jennifer/jen"

	"github.com/oolong-dev/oolong/compiler/feature"
	"github.com/oolong-dev/oolong/dsl"
	"github.com/oolong-dev/oolong/internal/naming"
	"github.com/oolong-dev/oolong/schema"
	"github.com/oolong-dev/oolong/schema/expr"
)

// Output is the generated code of one entity.
type Output struct {
	Name string
	File *jen.File
	IR   *IR
}

// Entity generates the file of the entity registered under name in s.
func (g *Generator) Entity(s *schema.Schema, name string, e *schema.Entity) (*Output, error) {
	typ := naming.Pascal(name)
	f := jen.NewFile(g.cfg.PackageName())
	if g.cfg.Header != "" {
		f.HeaderComment(g.cfg.Header)
	}
	ir := &IR{Entity: name, Schema: s.Name}

	f.Commentf("%s is the data access model of the %s entity.", typ, name)
	f.Type().Id(typ).Struct(jen.Qual(RuntimePkg, "Model"))

	f.Commentf("New%s returns a %s bound to db.", typ, typ)
	f.Func().Id("New" + typ).Params(jen.Id("db").Qual(RuntimePkg, "DB")).Op("*").Id(typ).Block(
		jen.Return(jen.Op("&").Id(typ).Values(jen.Dict{
			jen.Id("Model"): jen.Qual(RuntimePkg, "NewModel").Call(jen.Id(typ+"Meta"), jen.Id("db")),
		})),
	)

	f.Commentf("%sMeta describes the %s entity.", typ, name)
	f.Var().Id(typ + "Meta").Op("=").Add(meta(s, name, e))

	create, err := g.preCreate(name, e, ir)
	if err != nil {
		return nil, err
	}
	f.Comment("PreCreate prepares the payload of a new record.")
	f.Func().Params(jen.Id("m").Op("*").Id(typ)).Id("PreCreate").Params(jen.Id("ctx").Qual("context", "Context")).Error().Block(create...)

	update, err := g.preUpdate(name, e, ir)
	if err != nil {
		return nil, err
	}
	f.Comment("PreUpdate prepares the payload of an update.")
	f.Func().Params(jen.Id("m").Op("*").Id(typ)).Id("PreUpdate").Params(jen.Id("ctx").Qual("context", "Context")).Error().Block(update...)

	for _, it := range e.Interfaces {
		body, iir, err := g.iface(name, e, it)
		if err != nil {
			return nil, err
		}
		ir.Interfaces = append(ir.Interfaces, iir)
		f.Commentf("%s implements the %s interface.", naming.Pascal(it.Name), it.Name)
		f.Func().Params(jen.Id("m").Op("*").Id(typ)).Id(naming.Pascal(it.Name)).Params(
			jen.Id("ctx").Qual("context", "Context"),
			jen.Id("params").Map(jen.String()).Any(),
		).Params(jen.Any(), jen.Error()).Block(body...)
	}
	return &Output{Name: name, File: f, IR: ir}, nil
}

// pipelines compiles the field pipelines of e in dependency order.
func (g *Generator) pipelines(sc *scope, e *schema.Entity, ir *IR) ([]*Step, error) {
	var pipes []*Pipeline
	for _, fd := range e.Fields.All() {
		pipes = append(pipes, &Pipeline{Name: fd.Name, Stages: fd.Pipelines})
	}
	graph, err := Build(sc.name, pipes, sc.dep)
	if err != nil {
		return nil, err
	}
	sorted, err := graph.Sort()
	if err != nil {
		return nil, err
	}
	if ir != nil && ir.Order == nil {
		for _, n := range sorted {
			ir.Order = append(ir.Order, n.ID.String())
		}
	}
	return Merge(sorted), nil
}

func (g *Generator) preCreate(name string, e *schema.Entity, ir *IR) ([]jen.Code, error) {
	sc := g.newScope(name, e, func(err jen.Code) jen.Code { return jen.Return(err) })
	var body []jen.Code
	for _, fd := range e.Fields.All() {
		switch {
		case fd.Generator != "":
			gen, err := sc.invoke(&expr.Functor{Kind: expr.KindFunction, Name: fd.Generator})
			if err != nil {
				return nil, err
			}
			body = append(body, jen.If(jen.Qual(RuntimePkg, "IsNull").Call(latest(fd.Name))).Block(
				latest(fd.Name).Op("=").Add(gen),
			))
		case fd.HasDefault:
			body = append(body, jen.If(jen.List(jen.Id("_"), jen.Id("ok")).Op(":=").Add(latest(fd.Name)), jen.Op("!").Id("ok")).Block(
				latest(fd.Name).Op("=").Add(lit(dsl.Plain(fd.Default))),
			))
		case !fd.Optional && !fd.Auto && !fd.AutoIncrement && !fd.CreateByDB:
			body = append(body, jen.If(jen.Qual(RuntimePkg, "IsNull").Call(latest(fd.Name))).Block(
				sc.validationError(fd.Name, "required"),
			))
		}
	}
	steps, err := g.pipelines(sc, e, ir)
	if err != nil {
		return nil, err
	}
	for _, st := range steps {
		code, err := sc.step(st)
		if err != nil {
			return nil, err
		}
		// modifiers of a field left out of the payload must not insert it
		if st.Kind == NodeModifier {
			code = present(st.Target, code)
		}
		body = append(body, code)
		ir.Create = append(ir.Create, st.String())
	}
	for _, group := range feature.AtLeastOneNotNullFields(e) {
		cond := jen.Null()
		for i, fd := range group {
			if i > 0 {
				cond.Op("&&")
			}
			cond.Qual(RuntimePkg, "IsNull").Call(latest(fd))
		}
		body = append(body, jen.If(cond).Block(sc.validationError(joinFields(group), feature.AtLeastOneNotNull)))
	}
	return append(body, jen.Return(jen.Nil())), nil
}

// preUpdate guards the statements of every field with a presence check
// on the payload. The buffered statements of a field are flushed when
// the next distinct field begins.
func (g *Generator) preUpdate(name string, e *schema.Entity, ir *IR) ([]jen.Code, error) {
	sc := g.newScope(name, e, func(err jen.Code) jen.Code { return jen.Return(err) })
	var body []jen.Code
	for _, fd := range e.Fields.All() {
		switch {
		case fd.ReadOnly && !slices.Contains(e.Key, fd.Name):
			body = append(body, jen.If(jen.List(jen.Id("_"), jen.Id("ok")).Op(":=").Add(latest(fd.Name)), jen.Id("ok")).Block(
				sc.validationError(fd.Name, "readOnly"),
			))
		case fd.WriteOnceOnly:
			body = append(body, jen.If(
				jen.List(jen.Id("_"), jen.Id("ok")).Op(":=").Add(latest(fd.Name)),
				jen.Id("ok").Op("&&").Op("!").Qual(RuntimePkg, "IsNull").Call(jen.Id("m").Dot("Existing").Index(jen.Lit(fd.Name))),
			).Block(
				sc.validationError(fd.Name, "writeOnceOnly"),
			))
		}
	}
	steps, err := g.pipelines(sc, e, ir)
	if err != nil {
		return nil, err
	}
	var (
		current string
		buffer  []jen.Code
	)
	flush := func() {
		if len(buffer) == 0 {
			return
		}
		body = append(body, present(current, buffer...))
		buffer = nil
	}
	for _, st := range steps {
		if st.Target != current {
			flush()
			current = st.Target
		}
		code, err := sc.step(st)
		if err != nil {
			return nil, err
		}
		buffer = append(buffer, code)
		ir.Update = append(ir.Update, st.String())
	}
	flush()
	return append(body, jen.Return(jen.Nil())), nil
}

// present guards code with a presence check on the payload field.
func present(field string, code ...jen.Code) jen.Code {
	return jen.If(jen.List(jen.Id("_"), jen.Id("ok")).Op(":=").Add(latest(field)), jen.Id("ok")).Block(code...)
}

func joinFields(fs []string) string {
	return strings.Join(fs, ", ")
}

// meta renders the metadata of e.
func meta(s *schema.Schema, name string, e *schema.Entity) jen.Code {
	d := jen.Dict{
		jen.Id("SchemaName"): jen.Lit(s.Name),
		jen.Id("Name"):       jen.Lit(name),
		jen.Id("KeyField"):   lit(e.Key),
	}
	d[jen.Id("Fields")] = jen.Index().Op("*").Qual(RuntimePkg, "FieldMeta").ValuesFunc(func(g *jen.Group) {
		for _, fd := range e.Fields.All() {
			fm := jen.Dict{
				jen.Id("Name"): jen.Lit(fd.Name),
				jen.Id("Type"): jen.Lit(string(fd.Type)),
			}
			if len(fd.Values) > 0 {
				fm[jen.Id("Values")] = lit(fd.Values)
			}
			for k, v := range map[string]bool{
				"Optional": fd.Optional, "Auto": fd.Auto, "ReadOnly": fd.ReadOnly, "WriteOnceOnly": fd.WriteOnceOnly,
			} {
				if v {
					fm[jen.Id(k)] = jen.True()
				}
			}
			if fd.HasDefault {
				fm[jen.Id("HasDefault")] = jen.True()
				fm[jen.Id("Default")] = lit(dsl.Plain(fd.Default))
			}
			g.Values(fm)
		}
	})
	if len(e.Indexes) > 0 {
		d[jen.Id("Indexes")] = jen.Index().Op("*").Qual(RuntimePkg, "IndexMeta").ValuesFunc(func(g *jen.Group) {
			for _, idx := range e.Indexes {
				im := jen.Dict{jen.Id("Fields"): lit(idx.Fields)}
				if idx.Name != "" {
					im[jen.Id("Name")] = jen.Lit(idx.Name)
				}
				if idx.Unique {
					im[jen.Id("Unique")] = jen.True()
				}
				g.Values(im)
			}
		})
	}
	if len(e.Features) > 0 {
		d[jen.Id("Features")] = jen.Index().Op("*").Qual(RuntimePkg, "FeatureMeta").ValuesFunc(func(g *jen.Group) {
			for _, ft := range e.Features {
				fm := jen.Dict{jen.Id("Name"): jen.Lit(ft.Name)}
				if opts := featureOptions(ft.Options); opts != nil {
					fm[jen.Id("Options")] = lit(opts)
				}
				g.Values(fm)
			}
		})
	}
	if keys := e.UniqueKeys(); len(keys) > 0 {
		d[jen.Id("UniqueKeys")] = jen.Index().Index().String().ValuesFunc(func(g *jen.Group) {
			for _, k := range keys {
				g.ValuesFunc(func(g *jen.Group) {
					for _, f := range k {
						g.Lit(f)
					}
				})
			}
		})
	}
	if len(e.Interfaces) > 0 {
		d[jen.Id("Interfaces")] = jen.Map(jen.String()).Index().Op("*").Qual(RuntimePkg, "ParamMeta").Values(jen.DictFunc(func(d jen.Dict) {
			for _, it := range e.Interfaces {
				d[jen.Lit(it.Name)] = jen.ValuesFunc(func(g *jen.Group) {
					for _, p := range it.Accept {
						pm := jen.Dict{jen.Id("Name"): jen.Lit(p.Name), jen.Id("Type"): jen.Lit(string(p.Type))}
						if p.Optional {
							pm[jen.Id("Optional")] = jen.True()
						}
						g.Values(pm)
					}
				})
			}
		}))
	}
	return jen.Op("&").Qual(RuntimePkg, "Meta").Values(d)
}

// featureOptions returns the options of a feature as a map.
func featureOptions(v any) map[string]any {
	switch v := dsl.Plain(v).(type) {
	case nil:
		return nil
	case map[string]any:
		if len(v) == 0 {
			return nil
		}
		return v
	default:
		return map[string]any{"value": v}
	}
}
