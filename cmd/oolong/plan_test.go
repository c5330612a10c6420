package main

import (
	"testing"

	atlas "ariga.io/atlas/sql/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oolong-dev/oolong/compiler"
	sqlschema "github.com/oolong-dev/oolong/dialect/sql/schema"
)

func TestDrift(t *testing.T) {
	fs := project(t, "root: /proj\n")
	cfg, err := compiler.NewConfig(
		compiler.WithRoot("/proj"),
		compiler.WithSchema("blog"),
		compiler.WithoutDAO(),
		compiler.WithFs(fs),
	)
	require.NoError(t, err)
	res, err := compiler.Model(cfg)
	require.NoError(t, err)

	current := res.Model.ToAtlas("blog")
	issues, err := drift(current, res.Model, nil)
	require.NoError(t, err)
	assert.Empty(t, issues)

	current.AddTables(atlas.NewTable("legacy").AddColumns(atlas.NewIntColumn("id", "int")))
	post, ok := current.Table("post")
	require.True(t, ok)
	post.AddColumns(atlas.NewColumn("slug").SetType(&atlas.StringType{T: "varchar", Size: 64}))
	title, ok := post.Column("title")
	require.True(t, ok)
	title.Type.Type = &atlas.StringType{T: "varchar", Size: 200}

	issues, err = drift(current, res.Model, nil)
	require.NoError(t, err)
	require.Len(t, issues.Blocking(), 3)
	var changes []sqlschema.Change
	for _, i := range issues {
		changes = append(changes, i.Change)
	}
	assert.ElementsMatch(t, []sqlschema.Change{sqlschema.DropTable, sqlschema.DropColumn, sqlschema.Narrow}, changes)
	require.Error(t, issues.Err())
	assert.Contains(t, issues.Err().Error(), "post.title: VARCHAR(200) to VARCHAR(100) may truncate values [narrow]")

	allowed, err := parseChanges([]string{"drop-table", "Drop-Column", "narrow"})
	require.NoError(t, err)
	issues, err = drift(current, res.Model, allowed)
	require.NoError(t, err)
	assert.Len(t, issues, 3)
	assert.NoError(t, issues.Err())
}

func TestPlan_UnknownChange(t *testing.T) {
	fs := project(t, "root: /proj\n")
	_, err := execute(t, fs, "plan", "blog", "--allow", "truncate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown change "truncate"`)
}
