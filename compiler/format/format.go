// Package format prints a raw parse tree back as DSL source.
//
// The printer is used by reverse engineering: the tree built from a live
// database is printed as a unit that can be edited and compiled again.
//
//	namespace
//	  "common"
//
//	entity user
//	  with
//	    autoId
//	  has
//	    email : text maxLength(200) |isEmail ~trim
//	  index
//	    email is unique
package format

import (
	"fmt"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"

	oolong "github.com/oolong-dev/oolong"
	"github.com/oolong-dev/oolong/dsl"
	"github.com/oolong-dev/oolong/schema/expr"
	"github.com/oolong-dev/oolong/schema/field"
)

// unit is the order top level sections are printed in.
var unit = []string{dsl.KeyNamespace, dsl.KeyType, dsl.KeyEntity, dsl.KeyRelation, dsl.KeySchema}

// Printer is a stateful emitter. The indent level must be back to zero
// at the start of every top level section.
type Printer struct {
	b      strings.Builder
	indent int
}

// Print returns the DSL source of tree.
func Print(tree *dsl.Map) (string, error) {
	var p Printer
	if err := p.Print(tree); err != nil {
		return "", err
	}
	return p.String(), nil
}

// Print appends the DSL source of tree.
func (p *Printer) Print(tree *dsl.Map) error {
	for _, k := range tree.Keys() {
		if !slices.Contains(unit, k) {
			return errors.Newf("unsupported top level section %q", k)
		}
	}
	first := true
	for _, k := range unit {
		v, ok := tree.Get(k)
		if !ok {
			continue
		}
		if !first {
			p.line("")
		}
		first = false
		var err error
		switch k {
		case dsl.KeyNamespace:
			err = p.namespace(v)
		case dsl.KeyType:
			err = p.types(v)
		case dsl.KeyEntity:
			err = p.entities(v)
		case dsl.KeyRelation:
			err = p.relations(v)
		case dsl.KeySchema:
			err = p.schema(v)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// String returns the printed source.
func (p *Printer) String() string { return p.b.String() }

// Indent returns the current indent level.
func (p *Printer) Indent() int { return p.indent }

func (p *Printer) enter(section string) error {
	if p.indent != 0 {
		return &oolong.InvariantError{Where: "format." + section, Message: fmt.Sprintf("indent is %d at section start", p.indent)}
	}
	return nil
}

func (p *Printer) in()  { p.indent++ }
func (p *Printer) out() { p.indent-- }

func (p *Printer) line(format string, args ...any) {
	if format == "" {
		p.b.WriteString("\n")
		return
	}
	p.b.WriteString(strings.Repeat("  ", p.indent))
	fmt.Fprintf(&p.b, format, args...)
	p.b.WriteString("\n")
}

func (p *Printer) namespace(v any) error {
	if err := p.enter(dsl.KeyNamespace); err != nil {
		return err
	}
	p.line("namespace")
	p.in()
	for _, ns := range dsl.Strings(v) {
		p.line("%q", ns)
	}
	p.out()
	return nil
}

func (p *Printer) schema(v any) error {
	if err := p.enter(dsl.KeySchema); err != nil {
		return err
	}
	s, ok := v.(*dsl.Map)
	if !ok {
		return errors.New("schema must be a mapping")
	}
	p.line("schema %q", s.String("name"))
	p.in()
	if list := s.List("entities"); len(list) > 0 {
		p.line("entities")
		p.in()
		for _, e := range list {
			switch e := e.(type) {
			case string:
				p.line("%s", e)
			case *dsl.Map:
				if alias := e.String("alias"); alias != "" {
					p.line("%s as %s", e.String("entity"), alias)
				} else {
					p.line("%s", e.String("entity"))
				}
			default:
				return errors.Newf("invalid schema entry %v", e)
			}
		}
		p.out()
	}
	p.out()
	return nil
}

func (p *Printer) types(v any) error {
	if err := p.enter(dsl.KeyType); err != nil {
		return err
	}
	types, ok := v.(*dsl.Map)
	if !ok {
		return errors.New("type section must be a mapping")
	}
	p.line("type")
	p.in()
	var err error
	types.Range(func(name string, decl any) bool {
		var s string
		if s, err = declaration(decl); err == nil {
			p.line("%s : %s", name, s)
		}
		return err == nil
	})
	p.out()
	return errors.Wrap(err, "type")
}

var entityKeys = []string{"base", "comment", "features", "fields", "key", "indexes", "interfaces"}

func (p *Printer) entities(v any) error {
	entities, ok := v.(*dsl.Map)
	if !ok {
		return errors.New("entity section must be a mapping")
	}
	first := true
	var err error
	entities.Range(func(name string, decl any) bool {
		if !first {
			p.line("")
		}
		first = false
		err = p.entity(name, decl)
		return err == nil
	})
	return err
}

func (p *Printer) entity(name string, v any) error {
	if err := p.enter(dsl.KeyEntity); err != nil {
		return err
	}
	e, ok := v.(*dsl.Map)
	if !ok {
		return errors.Newf("entity %s must be a mapping", name)
	}
	for _, k := range e.Keys() {
		if !slices.Contains(entityKeys, k) {
			return errors.Newf("entity %s: unsupported attribute %q", name, k)
		}
	}
	if base := e.String("base"); base != "" {
		p.line("entity %s extends %s", name, base)
	} else {
		p.line("entity %s", name)
	}
	p.in()
	err := p.entityBody(e)
	p.out()
	return errors.Wrapf(err, "entity %s", name)
}

func (p *Printer) entityBody(e *dsl.Map) error {
	if c := e.String("comment"); c != "" {
		p.line("-- %q", c)
	}
	if fs := e.List("features"); len(fs) > 0 {
		p.line("with")
		p.in()
		for _, f := range fs {
			s, err := featureString(f)
			if err != nil {
				p.out()
				return err
			}
			p.line("%s", s)
		}
		p.out()
	}
	if fields := e.Map("fields"); fields.Len() > 0 {
		p.line("has")
		p.in()
		var err error
		fields.Range(func(fn string, decl any) bool {
			var s string
			if s, err = declaration(decl); err == nil {
				p.line("%s : %s", fn, s)
			}
			return err == nil
		})
		p.out()
		if err != nil {
			return err
		}
	}
	if key := dsl.Strings(e.List("key")); len(key) > 0 {
		p.line("key %s", list(key))
	}
	if idxs := e.List("indexes"); len(idxs) > 0 {
		p.line("index")
		p.in()
		for _, idx := range idxs {
			p.line("%s", indexString(idx))
		}
		p.out()
	}
	if ifs := e.Map("interfaces"); ifs.Len() > 0 {
		return p.block("interface", func() error {
			var err error
			ifs.Range(func(name string, v any) bool {
				err = p.iface(name, v)
				return err == nil
			})
			return err
		})
	}
	return nil
}

// block prints header and the lines written by fn one level deeper.
func (p *Printer) block(header string, fn func() error) error {
	p.line("%s", header)
	p.in()
	defer p.out()
	return fn()
}

// iface prints a data access method:
//
//	findByEmail
//	  accept
//	    email : text |isEmail
//	  findOne user of user where email = @email
//	  return @user
//	    unless @user not-exists "user not found"
func (p *Printer) iface(name string, v any) error {
	decl, ok := v.(*dsl.Map)
	if !ok {
		return errors.Newf("interface %s must be a mapping", name)
	}
	err := p.block(name, func() error {
		if params := decl.List("accept"); len(params) > 0 {
			err := p.block("accept", func() error {
				for _, a := range params {
					pm, ok := a.(*dsl.Map)
					if !ok || pm.String("name") == "" {
						return errors.Newf("invalid parameter %v", a)
					}
					d := pm.Clone()
					d.Delete("name")
					s, err := declaration(d)
					if err != nil {
						return errors.Wrapf(err, "parameter %s", pm.String("name"))
					}
					p.line("%s : %s", pm.String("name"), s)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		for _, op := range decl.List("implementation") {
			s, err := operationString(op)
			if err != nil {
				return err
			}
			p.line("%s", s)
		}
		ret := decl.Map("return")
		if ret == nil {
			return nil
		}
		header := "return"
		if v, ok := ret.Get("value"); ok {
			e, err := expr.Parse(v)
			if err != nil {
				return errors.Wrap(err, "return value")
			}
			header += " " + expr.String(e)
		}
		return p.block(header, func() error {
			for _, x := range ret.List("exceptions") {
				ex, ok := x.(*dsl.Map)
				if !ok {
					return errors.Newf("invalid exception %v", x)
				}
				raw, _ := ex.Get("test")
				test, err := expr.Parse(raw)
				if err != nil {
					return errors.Wrap(err, "exception")
				}
				p.line("unless %s %q", expr.String(test), ex.String("message"))
			}
			return nil
		})
	})
	return errors.Wrapf(err, "interface %s", name)
}

// operationString prints an implementation step:
//
//	findOne user of user where email = @email, status = "active"
func operationString(v any) (string, error) {
	op, ok := v.(*dsl.Map)
	if !ok {
		return "", errors.Newf("invalid operation %v", v)
	}
	s := fmt.Sprintf("%s %s of %s", op.String("op"), op.String("name"), op.String("model"))
	cond := op.Map("condition")
	if cond.Len() == 0 {
		return s, nil
	}
	parts := make([]string, 0, cond.Len())
	for _, k := range cond.Keys() {
		raw, _ := cond.Get(k)
		e, err := expr.Parse(raw)
		if err != nil {
			return "", errors.Wrapf(err, "condition %q", k)
		}
		parts = append(parts, k+" = "+expr.String(e))
	}
	return s + " where " + strings.Join(parts, ", "), nil
}

func (p *Printer) relations(v any) error {
	if err := p.enter(dsl.KeyRelation); err != nil {
		return err
	}
	p.line("relation")
	p.in()
	for _, r := range dsl.AsList(v) {
		decl, ok := r.(*dsl.Map)
		if !ok {
			p.out()
			return errors.Newf("invalid relation %v", r)
		}
		left, rel := decl.String("left"), decl.String("relationship")
		opt := ""
		if decl.Bool("optional") {
			opt = " optional"
		}
		switch {
		case decl.Has("multi"):
			p.line("%s %s %s%s", left, rel, list(dsl.Strings(decl.List("multi"))), opt)
		case decl.String("type") == "chain":
			p.line("%s chain", left)
			p.in()
			decl.Map("right").Range(func(target string, v any) bool {
				step, _ := v.(*dsl.Map)
				s := ""
				if step.Bool("optional") {
					s = " optional"
				}
				p.line("%s %s%s", step.String("relationship"), target, s)
				return true
			})
			p.out()
		default:
			p.line("%s %s %s%s", left, rel, decl.String("right"), opt)
		}
	}
	p.out()
	return nil
}

// attrOrder lists the type attributes in printing order.
var attrOrder = []string{
	"values", "digits", "bytes", "totalDigits", "decimalDigits",
	"maxLength", "fixedLength", "range", "default", "auto",
}

var flags = []string{"unsigned", "optional", "readOnly", "writeOnceOnly", "autoIncrement", "createByDb", "updateByDb"}

// declaration prints a type or field declaration:
//
//	text maxLength(200) optional |isEmail ~trim
func declaration(v any) (string, error) {
	switch v := v.(type) {
	case string:
		return v, nil
	case *dsl.Map:
		typ := v.String("type")
		if typ == "" {
			return "", errors.New("declaration without type")
		}
		parts := []string{typ}
		for _, k := range attrOrder {
			a, ok := v.Get(k)
			if !ok {
				continue
			}
			if k == "values" {
				vals := dsl.AsList(a)
				ss := make([]string, len(vals))
				for i := range vals {
					ss[i] = expr.LiteralString(vals[i])
				}
				parts = append(parts, "values("+strings.Join(ss, ", ")+")")
				continue
			}
			if b, ok := a.(bool); ok && b && k == "auto" {
				parts = append(parts, "auto")
				continue
			}
			parts = append(parts, fmt.Sprintf("%s(%s)", k, expr.LiteralString(a)))
		}
		for _, k := range flags {
			if v.Bool(k) {
				parts = append(parts, k)
			}
		}
		if c := v.String("comment"); c != "" {
			parts = append(parts, fmt.Sprintf("comment(%q)", c))
		}
		// "=>" separates the stages run before and after the business rules
		marked := false
		for _, s := range field.Stages {
			fs, err := expr.ParseFunctors(v.List(s.Key()), s.Kind())
			if err != nil {
				return "", err
			}
			if s >= field.Validators1 && len(fs) > 0 && !marked {
				parts = append(parts, "=>")
				marked = true
			}
			for _, f := range fs {
				parts = append(parts, f.String())
			}
		}
		return strings.Join(parts, " "), nil
	default:
		return "", errors.Newf("invalid declaration %v", v)
	}
}

func featureString(v any) (string, error) {
	switch v := v.(type) {
	case string:
		return v, nil
	case *dsl.Map:
		if name := v.String("name"); name != "" {
			if opts, ok := v.Get("options"); ok {
				return name + "(" + expr.LiteralString(opts) + ")", nil
			}
			return name, nil
		}
		if v.Len() == 1 {
			name := v.Keys()[0]
			opts, _ := v.Get(name)
			return name + "(" + expr.LiteralString(opts) + ")", nil
		}
	}
	return "", errors.Newf("invalid feature %v", v)
}

func indexString(v any) string {
	switch v := v.(type) {
	case *dsl.Map:
		s := list(dsl.Strings(v.List("fields")))
		if v.Bool("unique") {
			s += " is unique"
		}
		if n := v.String("name"); n != "" {
			s += " as " + n
		}
		return s
	default:
		return list(dsl.Strings(v))
	}
}

// list prints a single name bare and several names as [a, b].
func list(names []string) string {
	if len(names) == 1 {
		return names[0]
	}
	return "[" + strings.Join(names, ", ") + "]"
}
