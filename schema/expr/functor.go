package expr

import (
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/oolong-dev/oolong/dsl"
)

// Kind is the kind of a functor.
type Kind int

// Functor kinds.
const (
	KindValidator Kind = iota + 1
	KindModifier
	KindFunction
)

// String returns the kind name used for sub-packages and ids.
func (k Kind) String() string {
	switch k {
	case KindValidator:
		return "validators"
	case KindModifier:
		return "modifiers"
	case KindFunction:
		return "functions"
	default:
		return "unknown"
	}
}

// Sigil returns the DSL prefix of the kind.
func (k Kind) Sigil() string {
	switch k {
	case KindValidator:
		return "|"
	case KindModifier:
		return "~"
	default:
		return "="
	}
}

// Functor is a named validator, modifier or function applied with arguments.
// A dotted name "order.checkTotal" refers to a functor of another entity.
type Functor struct {
	Kind Kind
	Name string
	Args []Expr
}

// Qualifier returns the entity part of a cross-entity reference.
func (f *Functor) Qualifier() (entity, name string, ok bool) {
	return strings.Cut(f.Name, ".")
}

// ParseFunctor decodes a functor written either as a bare name or as
// {name: fn, args: [...]}.
func ParseFunctor(v any, kind Kind) (*Functor, error) {
	switch v := v.(type) {
	case string:
		if v == "" {
			return nil, errors.New("empty functor name")
		}
		return &Functor{Kind: kind, Name: v}, nil
	case *dsl.Map:
		name := v.String("name")
		if name == "" {
			return nil, errors.New("functor without name")
		}
		f := &Functor{Kind: kind, Name: name}
		for i, a := range v.List("args") {
			arg, err := Parse(a)
			if err != nil {
				return nil, errors.Wrapf(err, "functor %s argument %d", name, i)
			}
			f.Args = append(f.Args, arg)
		}
		return f, nil
	default:
		return nil, errors.Newf("invalid functor %v", v)
	}
}

// ParseFunctors decodes a list of functors of the same kind.
func ParseFunctors(list []any, kind Kind) ([]*Functor, error) {
	out := make([]*Functor, 0, len(list))
	for _, v := range list {
		f, err := ParseFunctor(v, kind)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// Raw converts the functor back into its raw tree form.
func (f *Functor) Raw() any {
	if len(f.Args) == 0 {
		return f.Name
	}
	args := make([]any, len(f.Args))
	for i, a := range f.Args {
		args[i] = Raw(a)
	}
	return dsl.MapOf("name", f.Name, "args", args)
}

// String renders the functor with its sigil, e.g. |isLength(1, 20).
func (f *Functor) String() string {
	var b strings.Builder
	b.WriteString(f.Kind.Sigil())
	b.WriteString(f.Name)
	if len(f.Args) > 0 {
		b.WriteString("(")
		for i, a := range f.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(String(a))
		}
		b.WriteString(")")
	}
	return b.String()
}

// References returns the object references among the functor arguments.
func (f *Functor) References() []*ObjectReference {
	var refs []*ObjectReference
	for _, a := range f.Args {
		refs = append(refs, References(a)...)
	}
	return refs
}
