package introspect_test

import (
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/oolong-dev/oolong/compiler/format"
	"github.com/oolong-dev/oolong/compiler/link"
	"github.com/oolong-dev/oolong/compiler/load"
	"github.com/oolong-dev/oolong/dialect/sql/introspect"
	sqlschema "github.com/oolong-dev/oolong/dialect/sql/schema"
	"github.com/oolong-dev/oolong/dsl"
)

const blog = `
entity:
  user:
    features: [autoId]
    fields:
      email: {type: text, maxLength: 200}
      active: {type: bool, default: true}
  post:
    features: [autoId, createTimestamp, updateTimestamp]
    fields:
      title: text
      status: {type: enum, values: [draft, published], default: draft}
      score: {type: float, optional: true}
  comment:
    features: [{autoId: {startFrom: 100}}]
    fields:
      body: text
  tag:
    key: label
    fields:
      label: {type: text, maxLength: 32}
relation:
  - left: comment
    right: post
    relationship: n:1
  - left: post
    right: user
    relationship: n:1
  - left: post
    right: tag
    relationship: n:n
schema:
  name: blog
  entities: [comment]
`

func model(t *testing.T, name, src string) *sqlschema.Model {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/proj/"+name+dsl.Ext, []byte(src), 0o644))
	ctx, err := load.NewContext("/proj", load.WithFs(fs))
	require.NoError(t, err)
	s, err := link.New(ctx).Load(name)
	require.NoError(t, err)
	m, err := sqlschema.NewModeler().Model(s)
	require.NoError(t, err)
	return m
}

func TestTree_RoundTrip(t *testing.T) {
	m := model(t, "blog", blog)
	tree, err := introspect.FromAtlas(m.ToAtlas("reversed"))
	require.NoError(t, err)

	assert.Equal(t, []string{"entity", "relation", "schema"}, tree.Keys())
	assert.Equal(t, []string{"comment", "post", "user", "tag"}, tree.Map("entity").Keys())
	assert.Len(t, tree.List("relation"), 3)

	post := tree.Map("entity").Map("post")
	assert.Equal(t, []any{"autoId", "createTimestamp", "updateTimestamp"}, post.List("features"))
	assert.Equal(t, []string{"title", "status", "score"}, post.Map("fields").Keys())
	assert.False(t, post.Has("key"))
	comment := tree.Map("entity").Map("comment")
	assert.Equal(t, []any{dsl.MapOf("autoId", dsl.MapOf("startFrom", 100))}, comment.List("features"))
	assert.Equal(t, "label", tree.Map("entity").Map("tag").String("key"))

	src, err := yaml.Marshal(tree)
	require.NoError(t, err)
	again := model(t, "reversed", string(src))
	require.Len(t, again.Tables, len(m.Tables))
	for _, want := range m.Tables {
		got, ok := again.Table(want.Name)
		require.True(t, ok, want.Name)
		assert.Equal(t, want.CreateStatement(), got.CreateStatement())
	}
	assert.ElementsMatch(t, strings.SplitAfter(m.RelationsSQL(), "\n"), strings.SplitAfter(again.RelationsSQL(), "\n"))

	out, err := format.Print(tree)
	require.NoError(t, err)
	assert.Contains(t, out, "entity post")
	assert.Contains(t, out, "post n:n tag")
}

func TestTree_PlainTables(t *testing.T) {
	account := sqlschema.NewTable("account")
	id := &sqlschema.Column{Name: "code", Type: &sqlschema.ColumnType{Base: "CHAR", Args: []int{8}}, Field: "text"}
	owner := &sqlschema.Column{Name: "owner", Type: &sqlschema.ColumnType{Base: "INT"}, Field: "int", Nullable: true}
	account.AddColumn(id).AddColumn(owner)
	account.PrimaryKey = []*sqlschema.Column{id}

	person := sqlschema.NewTable("person")
	pid := &sqlschema.Column{Name: "id", Type: &sqlschema.ColumnType{Base: "INT"}, Field: "int", Increment: true}
	person.AddColumn(pid)
	person.PrimaryKey = []*sqlschema.Column{pid}
	// not named after the referenced key, kept as a plain field
	account.ForeignKeys = append(account.ForeignKeys, &sqlschema.ForeignKey{
		Table: account, Columns: []*sqlschema.Column{owner},
		RefTable: person, RefColumns: []*sqlschema.Column{pid},
	})
	account.AddIndex("byOwner", false, []string{"owner"})

	tree := introspect.Tree("bank", []*sqlschema.Table{account, person})
	assert.False(t, tree.Has("relation"))
	acc := tree.Map("entity").Map("account")
	assert.Equal(t, "code", acc.String("key"))
	assert.Equal(t, []string{"code", "owner"}, acc.Map("fields").Keys())
	assert.True(t, acc.Map("fields").Map("owner").Bool("optional"))
	require.Len(t, acc.List("indexes"), 1)
	idx := acc.List("indexes")[0].(*dsl.Map)
	assert.Equal(t, "byOwner", idx.String("name"))
	assert.Equal(t, dsl.MapOf("name", "bank", "entities", []any{"account", "person"}), tree.Map("schema"))
}
