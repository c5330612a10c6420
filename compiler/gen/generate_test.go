package gen_test

import (
	"context"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	oolong "github.com/oolong-dev/oolong"
	"github.com/oolong-dev/oolong/compiler/gen"
	"github.com/oolong-dev/oolong/compiler/link"
	"github.com/oolong-dev/oolong/compiler/load"
	"github.com/oolong-dev/oolong/schema"
)

const app = `
entity:
  user:
    features:
      - autoId
      - createTimestamp
      - atLeastOneNotNull: [email, mobile]
    fields:
      nickname:
        type: text
        validators0:
          - name: notSameAs
            args: ["@latest.email"]
      email:
        type: text
        maxLength: 200
        validators0: [isEmail, {name: maxLength, args: [200]}]
        modifiers0: [trim, toLower]
      mobile: {type: text, optional: true}
      password:
        type: text
        validators0: [{name: minLength, args: [8]}]
        modifiers1: [hashPassword]
      status: {type: enum, values: [active, disabled], default: active}
      token: {type: text, auto: uuid}
      code: {type: text, writeOnceOnly: true, optional: true}
    indexes:
      - fields: email
        unique: true
    interfaces:
      findByEmail:
        accept:
          - name: email
            type: text
            modifiers0: [trim]
        implementation:
          - op: findOne
            name: user
            model: user
            condition:
              email: "@email"
        return:
          value: "@user"
          exceptions:
            - test: {oolType: UnaryExpression, operator: not-exists, argument: "@user"}
              message: user not found
schema:
  name: app
  entities: [user]
`

func linkSchema(t *testing.T, src string) *schema.Schema {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/proj/app.ool", []byte(src), 0o644))
	ctx, err := load.NewContext("/proj", load.WithFs(fs))
	require.NoError(t, err)
	s, err := link.New(ctx).Load("app")
	require.NoError(t, err)
	return s
}

func generate(t *testing.T, fs afero.Fs, s *schema.Schema) (*gen.Result, error) {
	t.Helper()
	return gen.Generate(context.Background(), s,
		gen.WithPackage("example.com/app/dao"),
		gen.WithTarget("/out/dao"),
		gen.WithFs(fs),
	)
}

func read(t *testing.T, fs afero.Fs, name string) string {
	t.Helper()
	b, err := afero.ReadFile(fs, "/out/dao/"+name)
	require.NoError(t, err)
	return string(b)
}

func TestGenerate(t *testing.T) {
	fs := afero.NewMemMapFs()
	res, err := generate(t, fs, linkSchema(t, app))
	require.NoError(t, err)
	assert.Equal(t, []string{"user.go", "user.ir.yaml"}, res.Files)
	assert.Equal(t, []string{"validators/user_notSameAs.go"}, res.Stubs)

	src := read(t, fs, "user.go")
	for _, want := range []string{
		"// Code generated by oolong. DO NOT EDIT.",
		"package dao",
		"type User struct {\n\truntime.Model\n}",
		"func NewUser(db runtime.DB) *User {",
		"Model: runtime.NewModel(UserMeta, db),",
		"var UserMeta = &runtime.Meta{",
		`SchemaName: "app",`,
		`KeyField:   []string{"id"},`,
		`UniqueKeys: [][]string{{"id"}, {"email"}},`,
		"func (m *User) PreCreate(ctx context.Context) error {",
		"m.Latest[\"token\"] = builtin.UUID()",
		"if _, ok := m.Latest[\"status\"]; !ok {\n\t\tm.Latest[\"status\"] = \"active\"\n\t}",
		`return runtime.NewValidationError("user", "nickname", "required")`,
		`return runtime.NewValidationError("user", "password", "required")`,
		`if !(builtin.IsEmail(m.Latest["email"]) && builtin.MaxLength(m.Latest["email"], 200)) {`,
		`return runtime.NewValidationError("user", "email", "isEmail, maxLength")`,
		`m.Latest["email"] = builtin.ToLower(builtin.Trim(m.Latest["email"]))`,
		`if !validators.UserNotSameAs(m.Latest["nickname"], m.Latest["email"]) {`,
		`if runtime.IsNull(m.Latest["email"]) && runtime.IsNull(m.Latest["mobile"]) {`,
		`return runtime.NewValidationError("user", "email, mobile", "atLeastOneNotNull")`,
		"func (m *User) PreUpdate(ctx context.Context) error {",
		`if _, ok := m.Latest["createdAt"]; ok {`,
		`if _, ok := m.Latest["code"]; ok && !runtime.IsNull(m.Existing["code"]) {`,
		"func (m *User) FindByEmail(ctx context.Context, params map[string]any) (any, error) {",
		`email, err := runtime.Sanitize("text", params["email"])`,
		"email = builtin.Trim(email)",
		`user, err := m.DB.FindOne(ctx, "user", map[string]any{`,
		`"email": email,`,
		"if !runtime.Exists(user) {",
		`return nil, runtime.NewBusinessError("user not found")`,
		"return user, nil",
	} {
		assert.Contains(t, src, want)
	}
	assert.NotContains(t, src, `"user", "email", "required"`)
	assert.NotContains(t, src, `"user", "id", "required"`)

	// cross-field dependency: nickname reads the normalized email
	preCreate := src[strings.Index(src, ") PreCreate("):strings.Index(src, ") PreUpdate(")]
	assert.Less(t, strings.Index(preCreate, "builtin.ToLower"), strings.Index(preCreate, "validators.UserNotSameAs"))

	// modifiers never insert a field missing from the payload
	assert.Contains(t, preCreate, "if _, ok := m.Latest[\"password\"]; ok {\n\t\tm.Latest[\"password\"] = builtin.HashPassword(m.Latest[\"password\"])\n\t}")
	assert.Contains(t, preCreate, "if _, ok := m.Latest[\"email\"]; ok {\n\t\tm.Latest[\"email\"] = builtin.ToLower(builtin.Trim(m.Latest[\"email\"]))\n\t}")
	assert.NotContains(t, preCreate, "\n\tm.Latest[\"password\"] = ")

	// each field's update statements share one presence guard
	preUpdate := src[strings.Index(src, ") PreUpdate("):strings.Index(src, ") FindByEmail(")]
	assert.Equal(t, 1, strings.Count(preUpdate, `if _, ok := m.Latest["password"]; ok {`))
	assert.Equal(t, 1, strings.Count(preUpdate, `if _, ok := m.Latest["email"]; ok {`))
	assert.Contains(t, preUpdate, `m.Latest["password"] = builtin.HashPassword(m.Latest["password"])`)

	var ir gen.IR
	require.NoError(t, yaml.Unmarshal([]byte(read(t, fs, "user.ir.yaml")), &ir))
	assert.Equal(t, "app", ir.Schema)
	assert.Equal(t, []string{
		"email: |isEmail && |maxLength(200)",
		"email: ~trim ~toLower",
		"nickname: |notSameAs(@latest.email)",
		"password: |minLength(8)",
		"password: ~hashPassword",
	}, ir.Create)
	assert.Equal(t, ir.Create, ir.Update)
	require.Len(t, ir.Interfaces, 1)
	assert.Equal(t, &gen.InterfaceIR{
		Name:           "findByEmail",
		Params:         []string{"email: text"},
		Steps:          []string{"email: ~trim"},
		Implementation: []string{"findOne user from user"},
		Exceptions:     []string{"@user not-exists: user not found"},
		Return:         "@user",
	}, ir.Interfaces[0])

	stub := read(t, fs, "validators/user_notSameAs.go")
	assert.Contains(t, stub, "package validators")
	assert.Contains(t, stub, "func UserNotSameAs(v any, args ...any) bool {")
}

func TestGenerate_KeepsUserFunctors(t *testing.T) {
	fs := afero.NewMemMapFs()
	impl := "package validators\n\nfunc UserNotSameAs(v any, args ...any) bool { return v != args[0] }\n"
	require.NoError(t, afero.WriteFile(fs, "/out/dao/validators/user_notSameAs.go", []byte(impl), 0o644))

	res, err := generate(t, fs, linkSchema(t, app))
	require.NoError(t, err)
	assert.Empty(t, res.Stubs)
	assert.Equal(t, impl, read(t, fs, "validators/user_notSameAs.go"))
}

func TestGenerate_Errors(t *testing.T) {
	t.Run("identifier conflict", func(t *testing.T) {
		s := linkSchema(t, `
entity:
  userProfile:
    features: [autoId]
    fields:
      bio: {type: text, validators0: [check]}
  user:
    features: [autoId]
    fields:
      name: {type: text, validators0: [profileCheck]}
schema:
  name: app
  entities: [userProfile, user]
`)
		_, err := generate(t, afero.NewMemMapFs(), s)
		require.Error(t, err)
		assert.True(t, oolong.IsConflictError(err))
		assert.ErrorContains(t, err, "UserProfileCheck")
	})

	t.Run("dependency cycle", func(t *testing.T) {
		s := linkSchema(t, `
entity:
  pair:
    features: [autoId]
    fields:
      a: {type: int, validators0: [{name: max, args: ["@b"]}]}
      b: {type: int, validators0: [{name: min, args: ["@a"]}]}
schema:
  name: app
  entities: [pair]
`)
		_, err := generate(t, afero.NewMemMapFs(), s)
		assert.ErrorIs(t, err, oolong.ErrConflict)
	})

	t.Run("unknown reference", func(t *testing.T) {
		s := linkSchema(t, `
entity:
  tag:
    features: [autoId]
    fields:
      label: {type: text, validators0: [{name: isIn, args: ["@choices"]}]}
schema:
  name: app
  entities: [tag]
`)
		_, err := generate(t, afero.NewMemMapFs(), s)
		require.Error(t, err)
		assert.True(t, oolong.IsLinkError(err))
		assert.ErrorContains(t, err, "@choices")
	})
}
