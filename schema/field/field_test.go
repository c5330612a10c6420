package field_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oolong-dev/oolong/dsl"
	"github.com/oolong-dev/oolong/schema/expr"
	"github.com/oolong-dev/oolong/schema/field"
)

func TestDecodeTypeInfo(t *testing.T) {
	info, err := field.DecodeTypeInfo(dsl.MapOf("type", "int", "digits", 3, "unsigned", true))
	require.NoError(t, err)
	assert.Equal(t, field.TypeInt, info.Type)
	assert.Equal(t, 3, info.Digits)
	assert.True(t, info.Unsigned)

	// weakly typed input from hand written DSL
	info, err = field.DecodeTypeInfo(dsl.MapOf("type", "text", "maxLength", "70000"))
	require.NoError(t, err)
	assert.Equal(t, 70000, info.MaxLength)

	_, err = field.DecodeTypeInfo(dsl.MapOf("type", "email"))
	require.Error(t, err)

	_, err = field.DecodeTypeInfo(dsl.MapOf("type", "enum"))
	require.Error(t, err, "enum requires values")

	info, err = field.DecodeTypeInfo(dsl.MapOf("type", "enum", "values", []any{"a", "b"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, info.Values)
}

func TestDecode(t *testing.T) {
	attrs := dsl.MapOf(
		"type", "text",
		"maxLength", 40,
		"validators0", []any{"isEmail", dsl.MapOf("name", "len", "args", []any{1, 40})},
		"modifiers0", []any{"trim"},
		"default", "none",
		"auto", "uuid",
		"readOnly", true,
		"comment", "primary email",
		"label", "Email",
	)
	f, err := field.Decode("email", attrs)
	require.NoError(t, err)
	assert.Equal(t, "email", f.Name)
	assert.Equal(t, field.TypeText, f.Type)
	require.Len(t, f.Pipeline(field.Validators0), 2)
	assert.Equal(t, expr.KindValidator, f.Pipeline(field.Validators0)[0].Kind)
	assert.Equal(t, "len", f.Pipeline(field.Validators0)[1].Name)
	require.Len(t, f.Pipeline(field.Modifiers0), 1)
	assert.Equal(t, expr.KindModifier, f.Pipeline(field.Modifiers0)[0].Kind)
	assert.Empty(t, f.Pipeline(field.Validators1))
	assert.True(t, f.HasPipeline())
	assert.True(t, f.HasDefault)
	assert.Equal(t, "none", f.Default)
	assert.True(t, f.Auto)
	assert.Equal(t, "uuid", f.Generator)
	assert.True(t, f.ReadOnly)
	assert.Equal(t, "primary email", f.Comment)
	assert.Equal(t, map[string]any{"label": "Email"}, f.Extra)

	back := f.Attrs()
	assert.Equal(t, "text", back.String("type"))
	assert.Equal(t, "uuid", back.String("auto"))
	assert.Equal(t, "Email", back.String("label"))
	assert.Len(t, back.List("validators0"), 2)
}

func TestField_Clone(t *testing.T) {
	f, err := field.Decode("tags", dsl.MapOf("type", "array", "default", []any{"x"}))
	require.NoError(t, err)
	c, err := f.Clone()
	require.NoError(t, err)
	c.Default.([]any)[0] = "y"
	assert.Equal(t, []any{"x"}, f.Default)

	ref := f.CopyType("tagList")
	assert.Equal(t, "tagList", ref.Name)
	assert.Equal(t, field.TypeArray, ref.Type)
	assert.False(t, ref.HasDefault)
}

func TestList(t *testing.T) {
	l := field.NewList()
	require.NoError(t, l.Add(&field.Field{Name: "a"}))
	require.NoError(t, l.Add(&field.Field{Name: "b"}))
	require.Error(t, l.Add(&field.Field{Name: "a"}))
	require.NoError(t, l.Prepend(&field.Field{Name: "id"}))
	assert.Equal(t, []string{"id", "a", "b"}, l.Names())

	l.Put(&field.Field{Name: "a", Optional: true})
	assert.Equal(t, []string{"id", "a", "b"}, l.Names())
	f, ok := l.Get("a")
	require.True(t, ok)
	assert.True(t, f.Optional)

	c, err := l.Clone()
	require.NoError(t, err)
	c.Put(&field.Field{Name: "z"})
	assert.Equal(t, 3, l.Len())
	assert.Equal(t, 4, c.Len())
}

func TestStage(t *testing.T) {
	assert.Equal(t, "validators0", field.Validators0.Key())
	assert.Equal(t, "modifiers1", field.Modifiers1.Key())
	assert.Equal(t, expr.KindValidator, field.Validators1.Kind())
	assert.Equal(t, expr.KindModifier, field.Modifiers0.Kind())
}
