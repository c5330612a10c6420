package gen

import (
	"maps"
	"slices"

	"github.com/dave/jennifer/jen"

	"github.com/oolong-dev/oolong/schema"
	"github.com/oolong-dev/oolong/schema/expr"
)

// iface compiles an interface into a method body: sanitized parameters,
// their pipelines, the implementation steps, then the exceptions and
// the return value.
func (g *Generator) iface(name string, e *schema.Entity, it *schema.Interface) ([]jen.Code, *InterfaceIR, error) {
	sc := g.newScope(name, e, func(err jen.Code) jen.Code { return jen.Return(jen.Nil(), err) })
	ir := &InterfaceIR{Name: it.Name}
	var (
		body  []jen.Code
		names []string
		pipes []*Pipeline
	)
	for _, p := range it.Accept {
		id, err := sc.declare(p.Name)
		if err != nil {
			return nil, nil, err
		}
		names = append(names, p.Name)
		ir.Params = append(ir.Params, p.Name+": "+string(p.Type))
		pipes = append(pipes, &Pipeline{Name: p.Name, Stages: p.Pipelines})
		body = append(body,
			jen.List(jen.Id(id), jen.Err()).Op(":=").Qual(RuntimePkg, "Sanitize").Call(jen.Lit(string(p.Type)), jen.Id("params").Index(jen.Lit(p.Name))),
			jen.If(jen.Err().Op("!=").Nil()).Block(sc.validationError(p.Name, string(p.Type))),
		)
		if !p.Optional {
			body = append(body, jen.If(jen.Qual(RuntimePkg, "IsNull").Call(jen.Id(id))).Block(sc.validationError(p.Name, "required")))
		}
	}

	graph, err := Build(name+"."+it.Name, pipes, func(r *expr.ObjectReference) (string, bool) {
		root := r.Root()
		return root, slices.Contains(names, root)
	})
	if err != nil {
		return nil, nil, err
	}
	sorted, err := graph.Sort()
	if err != nil {
		return nil, nil, err
	}
	for _, st := range Merge(sorted) {
		code, err := sc.step(st)
		if err != nil {
			return nil, nil, err
		}
		body = append(body, code)
		ir.Steps = append(ir.Steps, st.String())
	}

	for _, op := range it.Implementation {
		cond := jen.Dict{}
		for _, c := range op.Condition {
			v, _, err := sc.expr(c.Value)
			if err != nil {
				return nil, nil, err
			}
			cond[jen.Lit(c.Field)] = v
		}
		id, err := sc.declare(op.Name)
		if err != nil {
			return nil, nil, err
		}
		body = append(body,
			jen.List(jen.Id(id), jen.Err()).Op(":=").Id("m").Dot("DB").Dot("FindOne").Call(
				jen.Id("ctx"), jen.Lit(op.Model), jen.Map(jen.String()).Any().Values(cond),
			),
			jen.If(jen.Err().Op("!=").Nil()).Block(jen.Return(jen.Nil(), jen.Err())),
		)
		ir.Implementation = append(ir.Implementation, op.Kind+" "+op.Name+" from "+op.Model)
	}

	ret := jen.Return(jen.Nil(), jen.Nil())
	if r := it.Return; r != nil {
		for _, ex := range r.Exceptions {
			test, boolean, err := sc.expr(ex.Test)
			if err != nil {
				return nil, nil, err
			}
			body = append(body, jen.If(truthy(test, boolean)).Block(
				jen.Return(jen.Nil(), jen.Qual(RuntimePkg, "NewBusinessError").Call(jen.Lit(ex.Message))),
			))
			ir.Exceptions = append(ir.Exceptions, expr.String(ex.Test)+": "+ex.Message)
		}
		if r.Value != nil {
			v, _, err := sc.expr(r.Value)
			if err != nil {
				return nil, nil, err
			}
			ret = jen.Return(v, jen.Nil())
			ir.Return = expr.String(r.Value)
		}
	}
	// keep unread variables legal
	for _, n := range slices.Sorted(maps.Keys(sc.vars)) {
		if !sc.used[n] {
			body = append(body, jen.Id("_").Op("=").Id(sc.vars[n]))
		}
	}
	return append(body, ret), ir, nil
}
