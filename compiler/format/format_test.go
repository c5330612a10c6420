package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	oolong "github.com/oolong-dev/oolong"
	"github.com/oolong-dev/oolong/dsl"
)

func TestPrint_NamespaceAndSchema(t *testing.T) {
	tree := dsl.MapOf(
		"namespace", []any{"a", "b"},
		"schema", dsl.MapOf("name", "s", "entities", []any{dsl.MapOf("entity", "x")}),
	)
	var p Printer
	require.NoError(t, p.Print(tree))
	assert.Equal(t, 0, p.Indent())
	assert.Equal(t, `namespace
  "a"
  "b"

schema "s"
  entities
    x
`, p.String())
}

func TestPrint_Entity(t *testing.T) {
	tree := dsl.MapOf(
		"type", dsl.MapOf(
			"email", dsl.MapOf("type", "text", "maxLength", 200, "validators0", []any{"isEmail"}),
			"status", dsl.MapOf("type", "enum", "values", []any{"open", "closed"}),
		),
		"entity", dsl.MapOf(
			"user", dsl.MapOf(
				"comment", "A user",
				"features", []any{"autoId", dsl.MapOf("logicalDeletion", dsl.MapOf("field", "gone"))},
				"fields", dsl.MapOf(
					"email", "email",
					"password", dsl.MapOf(
						"type", "text",
						"optional", true,
						"modifiers0", []any{"trim"},
						"modifiers1", []any{dsl.MapOf("name", "hash", "args", []any{"@salt"})},
					),
					"salt", dsl.MapOf("type", "text", "fixedLength", 16, "auto", true),
					"state", dsl.MapOf("type", "status", "default", "open"),
				),
				"indexes", []any{dsl.MapOf("fields", "email", "unique", true), []any{"state", "salt"}},
			),
			"tag", dsl.MapOf("key", "label", "fields", dsl.MapOf("label", "text")),
		),
		"relation", []any{
			dsl.MapOf("left", "user", "right", "tag", "relationship", "n:n"),
			dsl.MapOf("left", "user", "multi", []any{"tag", "user"}, "relationship", "1:1", "optional", true),
			dsl.MapOf("left", "order", "type", "chain", "right", dsl.MapOf(
				"customer", dsl.MapOf("relationship", "n:1"),
				"address", dsl.MapOf("relationship", "1:1", "optional", true),
			)),
		},
	)
	out, err := Print(tree)
	require.NoError(t, err)
	assert.Equal(t, `type
  email : text maxLength(200) |isEmail
  status : enum values("open", "closed")

entity user
  -- "A user"
  with
    autoId
    logicalDeletion({field: "gone"})
  has
    email : email
    password : text optional ~trim => ~hash(@salt)
    salt : text fixedLength(16) auto
    state : status default("open")
  index
    email is unique
    [state, salt]

entity tag
  has
    label : text
  key label

relation
  user n:n tag
  user 1:1 [tag, user] optional
  order chain
    n:1 customer
    1:1 address optional
`, out)
}

func TestPrint_Interface(t *testing.T) {
	tree := dsl.MapOf("entity", dsl.MapOf("user", dsl.MapOf(
		"fields", dsl.MapOf("email", "text"),
		"interfaces", dsl.MapOf("findByEmail", dsl.MapOf(
			"accept", []any{dsl.MapOf("name", "email", "type", "text", "modifiers0", []any{"trim"})},
			"implementation", []any{dsl.MapOf(
				"op", "findOne", "name", "user", "model", "user",
				"condition", dsl.MapOf("email", "@email", "status", "active"),
			)},
			"return", dsl.MapOf(
				"value", "@user",
				"exceptions", []any{dsl.MapOf(
					"test", dsl.MapOf("oolType", "UnaryExpression", "operator", "not-exists", "argument", "@user"),
					"message", "user not found",
				)},
			),
		)),
	)))
	var p Printer
	require.NoError(t, p.Print(tree))
	assert.Equal(t, 0, p.Indent())
	assert.Equal(t, `entity user
  has
    email : text
  interface
    findByEmail
      accept
        email : text ~trim
      findOne user of user where email = @email, status = "active"
      return @user
        unless @user not-exists "user not found"
`, p.String())
}

func TestPrint_Errors(t *testing.T) {
	_, err := Print(dsl.MapOf("view", dsl.NewMap()))
	require.Error(t, err)
	require.NotErrorIs(t, err, oolong.ErrInvariant)

	_, err = Print(dsl.MapOf("entity", dsl.MapOf("user", dsl.MapOf("views", dsl.NewMap()))))
	require.ErrorContains(t, err, "unsupported attribute")

	_, err = Print(dsl.MapOf("entity", dsl.MapOf("user", dsl.MapOf("interfaces", dsl.MapOf(
		"find", dsl.MapOf("accept", []any{dsl.MapOf("type", "text")}),
	)))))
	require.ErrorContains(t, err, "interface find: invalid parameter")

	p := &Printer{indent: 1}
	err = p.Print(dsl.MapOf("namespace", []any{"a"}))
	require.ErrorIs(t, err, oolong.ErrInvariant)
	var ie *oolong.InvariantError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "format.namespace", ie.Where)
}
