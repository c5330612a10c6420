package gen

import (
	"go/token"
	"strings"

	"github.com/dave/jennifer/jen"

	oolong "github.com/oolong-dev/oolong"
	"github.com/oolong-dev/oolong/dsl"
	"github.com/oolong-dev/oolong/internal/naming"
	"github.com/oolong-dev/oolong/schema"
	"github.com/oolong-dev/oolong/schema/expr"
)

// scope compiles the expressions of an entity hook or of an interface.
// Interface parameters and bound variables live in vars; anything else
// refers to the payload of the model.
type scope struct {
	g      *Generator
	entity *schema.Entity
	name   string
	vars   map[string]string
	used   map[string]bool
	// fail returns the statement leaving the method with err.
	fail func(err jen.Code) jen.Code
}

func (g *Generator) newScope(name string, e *schema.Entity, fail func(jen.Code) jen.Code) *scope {
	return &scope{g: g, entity: e, name: name, vars: make(map[string]string), used: make(map[string]bool), fail: fail}
}

var reserved = map[string]bool{"m": true, "ctx": true, "params": true, "err": true}

// declare binds name to a Go identifier of the method body.
func (s *scope) declare(name string) (string, error) {
	if _, ok := s.vars[name]; ok {
		return "", oolong.NewConflictError(s.name, "%q is declared twice", name)
	}
	id := naming.Camel(name)
	if id == "" {
		id = "v"
	}
	if reserved[id] || token.IsKeyword(id) {
		id += "_"
	}
	s.vars[name] = id
	return id, nil
}

// dep maps a reference to the pipeline it reads.
func (s *scope) dep(r *expr.ObjectReference) (string, bool) {
	root, path := r.Root(), r.Path()
	if _, ok := s.vars[root]; ok {
		return root, true
	}
	if root == "latest" && len(path) > 0 {
		return path[0], true
	}
	if _, ok := s.entity.Field(root); ok {
		return root, true
	}
	return "", false
}

func latest(field string) *jen.Statement {
	return jen.Id("m").Dot("Latest").Index(jen.Lit(field))
}

// value returns the current value of a pipeline target.
func (s *scope) value(target string) jen.Code {
	if id, ok := s.vars[target]; ok {
		s.used[target] = true
		return jen.Id(id)
	}
	return latest(target)
}

func (s *scope) assign(target string, v jen.Code) jen.Code {
	if id, ok := s.vars[target]; ok {
		return jen.Id(id).Op("=").Add(v)
	}
	return latest(target).Op("=").Add(v)
}

func (s *scope) validationError(target, rule string) jen.Code {
	return s.fail(jen.Qual(RuntimePkg, "NewValidationError").Call(jen.Lit(s.name), jen.Lit(target), jen.Lit(rule)))
}

func (s *scope) ref(r *expr.ObjectReference) (jen.Code, error) {
	root, path := r.Root(), r.Path()
	var base *jen.Statement
	switch id, bound := s.vars[root]; {
	case bound:
		s.used[root] = true
		base = jen.Id(id)
	case root == "latest" || root == "existing":
		sel := jen.Id("m").Dot(naming.Pascal(root))
		if len(path) == 0 {
			return sel, nil
		}
		base, path = sel.Index(jen.Lit(path[0])), path[1:]
	default:
		if _, ok := s.entity.Field(root); !ok {
			return nil, oolong.NotFoundError("reference", "@"+r.Name, s.entity.File())
		}
		base = latest(root)
	}
	if len(path) == 0 {
		return base, nil
	}
	args := []jen.Code{base}
	for _, p := range path {
		args = append(args, jen.Lit(p))
	}
	return jen.Qual(RuntimePkg, "Get").Call(args...), nil
}

// expr compiles e. The boolean result reports whether the code is of Go
// type bool rather than any.
func (s *scope) expr(e expr.Expr) (jen.Code, bool, error) {
	switch e := e.(type) {
	case *expr.Literal:
		_, b := e.Value.(bool)
		return lit(e.Value), b, nil
	case *expr.ObjectReference:
		c, err := s.ref(e)
		return c, false, err
	case *expr.BinaryExpression:
		l, lb, err := s.expr(e.Left)
		if err != nil {
			return nil, false, err
		}
		r, rb, err := s.expr(e.Right)
		if err != nil {
			return nil, false, err
		}
		switch e.Operator {
		case "and":
			return jen.Parens(jen.Add(truthy(l, lb)).Op("&&").Add(truthy(r, rb))), true, nil
		case "or":
			return jen.Parens(jen.Add(truthy(l, lb)).Op("||").Add(truthy(r, rb))), true, nil
		}
		return jen.Qual(RuntimePkg, "Op").Call(jen.Lit(e.Operator), l, r), false, nil
	case *expr.UnaryExpression:
		a, ab, err := s.expr(e.Argument)
		if err != nil {
			return nil, false, err
		}
		switch e.Operator {
		case expr.OpExists:
			return jen.Qual(RuntimePkg, "Exists").Call(a), true, nil
		case expr.OpNotExists:
			return jen.Op("!").Qual(RuntimePkg, "Exists").Call(a), true, nil
		case expr.OpIsNull:
			return jen.Qual(RuntimePkg, "IsNull").Call(a), true, nil
		case expr.OpIsNotNull:
			return jen.Op("!").Qual(RuntimePkg, "IsNull").Call(a), true, nil
		case expr.OpNot:
			return jen.Op("!").Add(truthy(a, ab)), true, nil
		}
		return nil, false, oolong.NewConflictError(s.name, "unsupported unary operator %q", e.Operator)
	case *expr.ComputedValue:
		v, _, err := s.expr(e.Value)
		if err != nil {
			return nil, false, err
		}
		for _, m := range e.Modifiers {
			if v, err = s.call(m, v); err != nil {
				return nil, false, err
			}
		}
		return v, false, nil
	case nil:
		return jen.Nil(), false, nil
	}
	return nil, false, &oolong.InvariantError{Where: "gen.expr", Message: "unknown expression node"}
}

func truthy(c jen.Code, boolean bool) jen.Code {
	if boolean {
		return c
	}
	return jen.Qual(RuntimePkg, "Truthy").Call(c)
}

// call applies f to v.
func (s *scope) call(f *expr.Functor, v jen.Code) (jen.Code, error) {
	return s.invoke(f, v)
}

// invoke calls f with the leading arguments first, then its own.
func (s *scope) invoke(f *expr.Functor, leading ...jen.Code) (jen.Code, error) {
	c, err := s.g.resolver.Resolve(s.name, f)
	if err != nil {
		return nil, err
	}
	args := leading
	for _, a := range f.Args {
		code, _, err := s.expr(a)
		if err != nil {
			return nil, err
		}
		args = append(args, code)
	}
	return jen.Qual(c.Pkg, c.Ident).Call(args...), nil
}

// step compiles a merged step: validators into one && chain guarded by
// a validation error, modifiers into one nested assignment.
func (s *scope) step(st *Step) (jen.Code, error) {
	switch st.Kind {
	case NodeValidator:
		var (
			chain = jen.Null()
			names []string
		)
		for i, f := range st.Functors() {
			call, err := s.call(f, s.value(st.Target))
			if err != nil {
				return nil, err
			}
			if i > 0 {
				chain.Op("&&")
			}
			chain.Add(call)
			names = append(names, f.Name)
		}
		cond := jen.Op("!").Add(chain)
		if len(names) > 1 {
			cond = jen.Op("!").Parens(chain)
		}
		return jen.If(cond).Block(s.validationError(st.Target, strings.Join(names, ", "))), nil
	case NodeModifier:
		v := s.value(st.Target)
		for _, f := range st.Functors() {
			var err error
			if v, err = s.call(f, v); err != nil {
				return nil, err
			}
		}
		return s.assign(st.Target, v), nil
	}
	return nil, &oolong.InvariantError{Where: "gen.step", Message: "unexpected node kind " + st.Kind.String()}
}

// lit renders a literal value of the schema.
func lit(v any) jen.Code {
	switch v := v.(type) {
	case nil:
		return jen.Nil()
	case []any:
		return jen.Index().Any().ValuesFunc(func(g *jen.Group) {
			for _, e := range v {
				g.Add(lit(e))
			}
		})
	case []string:
		return jen.Index().String().ValuesFunc(func(g *jen.Group) {
			for _, e := range v {
				g.Lit(e)
			}
		})
	case *dsl.Map:
		return jen.Map(jen.String()).Any().Values(jen.DictFunc(func(d jen.Dict) {
			v.Range(func(k string, e any) bool {
				d[jen.Lit(k)] = lit(e)
				return true
			})
		}))
	case map[string]any:
		return jen.Map(jen.String()).Any().Values(jen.DictFunc(func(d jen.Dict) {
			for k, e := range v {
				d[jen.Lit(k)] = lit(e)
			}
		}))
	}
	return jen.Lit(v)
}
