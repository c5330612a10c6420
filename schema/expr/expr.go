// Package expr defines the small expression language used by interface
// clauses and functor arguments, together with functor references.
package expr

import (
	"fmt"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/oolong-dev/oolong/dsl"
)

// Node type tags as they appear in the raw tree under "oolType".
const (
	TagObjectReference  = "ObjectReference"
	TagBinaryExpression = "BinaryExpression"
	TagUnaryExpression  = "UnaryExpression"
	TagComputedValue    = "ComputedValue"
)

// Unary operators.
const (
	OpExists    = "exists"
	OpNotExists = "not-exists"
	OpIsNull    = "is-null"
	OpIsNotNull = "is-not-null"
	OpNot       = "not"
)

var (
	unaryOps  = []string{OpExists, OpNotExists, OpIsNull, OpIsNotNull, OpNot}
	binaryOps = []string{"==", "!=", ">", ">=", "<", "<=", "in", "notIn", "and", "or", "+", "-", "*", "/"}
)

// BinaryOperators returns the supported binary operators.
func BinaryOperators() []string { return slices.Clone(binaryOps) }

// Expr is a node of the expression language.
type Expr interface {
	expr()
}

type (
	// Literal is a constant scalar, list or object.
	Literal struct {
		Value any
	}

	// ObjectReference refers to a named value such as "latest.email",
	// "existing.status" or a bare parameter name.
	ObjectReference struct {
		Name string
	}

	// BinaryExpression applies Operator to Left and Right.
	BinaryExpression struct {
		Operator    string
		Left, Right Expr
	}

	// UnaryExpression applies Operator to Argument.
	UnaryExpression struct {
		Operator string
		Argument Expr
	}

	// ComputedValue pipes Value through Modifiers, first to last.
	ComputedValue struct {
		Value     Expr
		Modifiers []*Functor
	}
)

func (*Literal) expr()          {}
func (*ObjectReference) expr()  {}
func (*BinaryExpression) expr() {}
func (*UnaryExpression) expr()  {}
func (*ComputedValue) expr()    {}

// Root returns the first segment of the reference name.
func (r *ObjectReference) Root() string {
	root, _, _ := strings.Cut(r.Name, ".")
	return root
}

// Path returns the segments after the root.
func (r *ObjectReference) Path() []string {
	parts := strings.Split(r.Name, ".")
	return parts[1:]
}

// Parse converts a raw tree value into an expression.
// Strings prefixed with "@" are object references.
func Parse(v any) (Expr, error) {
	switch v := v.(type) {
	case string:
		if name, ok := strings.CutPrefix(v, "@"); ok && name != "" {
			return &ObjectReference{Name: name}, nil
		}
		return &Literal{Value: v}, nil
	case *dsl.Map:
		tag := v.String("oolType")
		switch tag {
		case TagObjectReference:
			name := v.String("name")
			if name == "" {
				return nil, errors.New("object reference without name")
			}
			return &ObjectReference{Name: name}, nil
		case TagBinaryExpression:
			op := v.String("operator")
			if !slices.Contains(binaryOps, op) {
				return nil, errors.Newf("unsupported binary operator %q", op)
			}
			l, err := parseOperand(v, "left")
			if err != nil {
				return nil, err
			}
			r, err := parseOperand(v, "right")
			if err != nil {
				return nil, err
			}
			return &BinaryExpression{Operator: op, Left: l, Right: r}, nil
		case TagUnaryExpression:
			op := v.String("operator")
			if !slices.Contains(unaryOps, op) {
				return nil, errors.Newf("unsupported unary operator %q", op)
			}
			arg, err := parseOperand(v, "argument")
			if err != nil {
				return nil, err
			}
			return &UnaryExpression{Operator: op, Argument: arg}, nil
		case TagComputedValue:
			val, err := parseOperand(v, "value")
			if err != nil {
				return nil, err
			}
			mods, err := ParseFunctors(v.List("modifiers"), KindModifier)
			if err != nil {
				return nil, err
			}
			return &ComputedValue{Value: val, Modifiers: mods}, nil
		case "":
			return &Literal{Value: v}, nil
		default:
			return nil, errors.Newf("unsupported expression node %q", tag)
		}
	default:
		return &Literal{Value: v}, nil
	}
}

func parseOperand(m *dsl.Map, key string) (Expr, error) {
	v, ok := m.Get(key)
	if !ok {
		return nil, errors.Newf("%s expression without %s", m.String("oolType"), key)
	}
	e, err := Parse(v)
	if err != nil {
		return nil, errors.Wrap(err, key)
	}
	return e, nil
}

// Raw converts the expression back into its raw tree form.
func Raw(e Expr) any {
	switch e := e.(type) {
	case *Literal:
		return e.Value
	case *ObjectReference:
		return dsl.MapOf("oolType", TagObjectReference, "name", e.Name)
	case *BinaryExpression:
		return dsl.MapOf("oolType", TagBinaryExpression, "operator", e.Operator, "left", Raw(e.Left), "right", Raw(e.Right))
	case *UnaryExpression:
		return dsl.MapOf("oolType", TagUnaryExpression, "operator", e.Operator, "argument", Raw(e.Argument))
	case *ComputedValue:
		mods := make([]any, len(e.Modifiers))
		for i, m := range e.Modifiers {
			mods[i] = m.Raw()
		}
		return dsl.MapOf("oolType", TagComputedValue, "value", Raw(e.Value), "modifiers", mods)
	default:
		return nil
	}
}

// References returns every object reference found in e, in visiting order.
func References(e Expr) []*ObjectReference {
	var refs []*ObjectReference
	Walk(e, func(n Expr) {
		if r, ok := n.(*ObjectReference); ok {
			refs = append(refs, r)
		}
	})
	return refs
}

// Walk visits e and its children depth first.
func Walk(e Expr, fn func(Expr)) {
	if e == nil {
		return
	}
	fn(e)
	switch e := e.(type) {
	case *BinaryExpression:
		Walk(e.Left, fn)
		Walk(e.Right, fn)
	case *UnaryExpression:
		Walk(e.Argument, fn)
	case *ComputedValue:
		Walk(e.Value, fn)
		for _, m := range e.Modifiers {
			for _, a := range m.Args {
				Walk(a, fn)
			}
		}
	}
}

// String renders the expression in DSL notation.
func String(e Expr) string {
	switch e := e.(type) {
	case *Literal:
		return LiteralString(e.Value)
	case *ObjectReference:
		return "@" + e.Name
	case *BinaryExpression:
		return fmt.Sprintf("(%s %s %s)", String(e.Left), e.Operator, String(e.Right))
	case *UnaryExpression:
		if e.Operator == OpNot {
			return "not " + String(e.Argument)
		}
		return fmt.Sprintf("%s %s", String(e.Argument), e.Operator)
	case *ComputedValue:
		var b strings.Builder
		b.WriteString(String(e.Value))
		for _, m := range e.Modifiers {
			b.WriteString(" ")
			b.WriteString(m.String())
		}
		return b.String()
	default:
		return ""
	}
}

// LiteralString renders a literal the way the DSL spells it.
func LiteralString(v any) string {
	switch v := v.(type) {
	case nil:
		return "null"
	case string:
		return fmt.Sprintf("%q", v)
	case []any:
		parts := make([]string, len(v))
		for i := range v {
			parts[i] = LiteralString(v[i])
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case *dsl.Map:
		parts := make([]string, 0, v.Len())
		v.Range(func(k string, e any) bool {
			parts = append(parts, k+": "+LiteralString(e))
			return true
		})
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return fmt.Sprint(v)
	}
}
