package expr_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oolong-dev/oolong/dsl"
	"github.com/oolong-dev/oolong/schema/expr"
)

func TestParse(t *testing.T) {
	e, err := expr.Parse("@latest.email")
	require.NoError(t, err)
	ref, ok := e.(*expr.ObjectReference)
	require.True(t, ok)
	require.Equal(t, "latest", ref.Root())
	require.Equal(t, []string{"email"}, ref.Path())

	e, err = expr.Parse(dsl.MapOf(
		"oolType", expr.TagBinaryExpression,
		"operator", "and",
		"left", dsl.MapOf("oolType", expr.TagUnaryExpression, "operator", expr.OpExists, "argument", "@user"),
		"right", dsl.MapOf("oolType", expr.TagBinaryExpression, "operator", ">", "left", "@user.age", "right", 18),
	))
	require.NoError(t, err)
	require.Equal(t, `(@user exists and (@user.age > 18))`, expr.String(e))
	refs := expr.References(e)
	require.Len(t, refs, 2)
	require.Equal(t, "user", refs[0].Name)
	require.Equal(t, "user.age", refs[1].Name)

	back, err := expr.Parse(expr.Raw(e))
	require.NoError(t, err)
	require.Equal(t, e, back)
}

func TestParse_Errors(t *testing.T) {
	_, err := expr.Parse(dsl.MapOf("oolType", expr.TagBinaryExpression, "operator", "xor", "left", 1, "right", 2))
	require.Error(t, err)
	_, err = expr.Parse(dsl.MapOf("oolType", expr.TagUnaryExpression, "operator", "not"))
	require.Error(t, err)
	_, err = expr.Parse(dsl.MapOf("oolType", "Lambda"))
	require.Error(t, err)
	_, err = expr.Parse(dsl.MapOf("oolType", expr.TagObjectReference))
	require.Error(t, err)
}

func TestComputedValue(t *testing.T) {
	e, err := expr.Parse(dsl.MapOf(
		"oolType", expr.TagComputedValue,
		"value", "@password",
		"modifiers", []any{"trim", dsl.MapOf("name", "hash", "args", []any{"@salt"})},
	))
	require.NoError(t, err)
	require.Equal(t, `@password ~trim ~hash(@salt)`, expr.String(e))
	require.Len(t, expr.References(e), 2)
}

func TestFunctor(t *testing.T) {
	f, err := expr.ParseFunctor(dsl.MapOf("name", "isLength", "args", []any{1, 20}), expr.KindValidator)
	require.NoError(t, err)
	require.Equal(t, "|isLength(1, 20)", f.String())

	f, err = expr.ParseFunctor("order.checkTotal", expr.KindModifier)
	require.NoError(t, err)
	entity, name, ok := f.Qualifier()
	require.True(t, ok)
	require.Equal(t, "order", entity)
	require.Equal(t, "checkTotal", name)
	require.Equal(t, "~order.checkTotal", f.String())
	require.Equal(t, "order.checkTotal", f.Raw())

	_, err = expr.ParseFunctor("", expr.KindValidator)
	require.Error(t, err)
	_, err = expr.ParseFunctor(42, expr.KindValidator)
	require.Error(t, err)
}
