package runtime_test

import (
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oolong-dev/oolong/runtime"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		typ  string
		in   any
		want any
	}{
		{"bool", "true", true},
		{"int", "42", int64(42)},
		{"int", 42.0, int64(42)},
		{"float", "1.5", 1.5},
		{"decimal", "10.25", "10.25"},
		{"text", 12, "12"},
		{"enum", "draft", "draft"},
		{"binary", "ab", []byte("ab")},
		{"datetime", "2024-03-01T10:00:00Z", time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)},
		{"object", map[string]any{"a": 1}, map[string]any{"a": 1}},
		{"array", []any{1, "a"}, []any{1, "a"}},
		{"text", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			got, err := runtime.Sanitize(tt.typ, tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := runtime.Sanitize("int", "abc")
	assert.Error(t, err)
	_, err = runtime.Sanitize("decimal", "ten")
	assert.Error(t, err)
	_, err = runtime.Sanitize("binary", 3)
	assert.Error(t, err)
	_, err = runtime.Sanitize("money", 1)
	assert.ErrorContains(t, err, `unknown type "money"`)
}

func TestOp(t *testing.T) {
	tests := []struct {
		op   string
		l, r any
		want any
	}{
		{"==", 1, int64(1), true},
		{"==", "a", "b", false},
		{"!=", nil, nil, false},
		{">", 3, 2.5, true},
		{"<=", "a", "b", true},
		{">", nil, 1, false},
		{"in", "b", []any{"a", "b"}, true},
		{"notIn", "c", []string{"a", "b"}, true},
		{"and", true, "", false},
		{"or", 0, "x", true},
		{"+", 1, 2, int64(3)},
		{"+", "a", 1, "a1"},
		{"/", 1, 2, 0.5},
		{"/", 1, 0, nil},
		{"*", "x", 2, nil},
	}
	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			assert.Equal(t, tt.want, runtime.Op(tt.op, tt.l, tt.r))
		})
	}
}

func TestPredicates(t *testing.T) {
	var row map[string]any
	assert.True(t, runtime.IsNull(row))
	assert.False(t, runtime.Exists(row))
	assert.False(t, runtime.Exists(""))
	assert.True(t, runtime.Exists(0))
	assert.False(t, runtime.IsNull(0))
	assert.False(t, runtime.Truthy(0))
	assert.True(t, runtime.Truthy(map[string]any{"id": 1}))
	assert.False(t, runtime.Truthy(time.Time{}))

	v := map[string]any{"user": map[string]any{"name": "ann"}}
	assert.Equal(t, "ann", runtime.Get(v, "user", "name"))
	assert.Nil(t, runtime.Get(v, "user", "age", "x"))
}

func TestModel(t *testing.T) {
	meta := &runtime.Meta{
		Name:     "user",
		Fields:   []*runtime.FieldMeta{{Name: "id", Type: "int"}, {Name: "email", Type: "text"}},
		Features: []*runtime.FeatureMeta{{Name: "autoId"}},
	}
	m := runtime.NewModel(meta, nil)
	m.Set("email", "a@b.io")
	assert.Equal(t, "a@b.io", m.Latest["email"])
	f, ok := meta.Field("email")
	require.True(t, ok)
	assert.Equal(t, "text", f.Type)
	_, ok = meta.Field("name")
	assert.False(t, ok)
	assert.True(t, meta.HasFeature("autoId"))
}

func TestErrors(t *testing.T) {
	err := errors.Wrap(runtime.NewValidationError("user", "email", "isEmail"), "create")
	assert.ErrorIs(t, err, runtime.ErrValidation)
	assert.EqualError(t, err, "create: oolong: user.email: isEmail")
	assert.ErrorIs(t, runtime.NewBusinessError("user not found"), runtime.ErrBusiness)
}
