package compiler_test

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	oolong "github.com/oolong-dev/oolong"
	"github.com/oolong-dev/oolong/compiler"
	"github.com/oolong-dev/oolong/compiler/gen"
	sqlschema "github.com/oolong-dev/oolong/dialect/sql/schema"
)

const (
	entities = `
entity:
  user:
    features: [autoId]
    fields:
      email: {type: text, maxLength: 200, validators0: [isEmail]}
  post:
    features: [autoId, createTimestamp]
    fields:
      title: {type: text, maxLength: 100}
  tag:
    key: label
    fields:
      label: {type: text, maxLength: 40}
relation:
  - left: post
    right: user
    relationship: n:1
  - left: post
    right: tag
    relationship: n:n
`
	blog = `
namespace: [entities]
schema:
  name: blog
  entities: [post]
`
)

func project(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for name, src := range files {
		require.NoError(t, afero.WriteFile(fs, "/proj/"+name, []byte(src), 0o644))
	}
	return fs
}

func TestCompile(t *testing.T) {
	fs := project(t, map[string]string{"entities.ool": entities, "blog.ool": blog})
	cfg, err := compiler.NewConfig(
		compiler.WithRoot("/proj"),
		compiler.WithSchema("blog.ool"),
		compiler.WithOutput("/out"),
		compiler.WithPackage("example.com/blog/dao"),
		compiler.WithFs(fs),
	)
	require.NoError(t, err)
	assert.Equal(t, "blog", cfg.SchemaName())

	res, err := compiler.Compile(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"post", "user", "tag"}, res.Schema.Names())
	assert.Equal(t, []string{"db/blog/entities.sql", "db/blog/relations.sql"}, res.SQL)

	ddl, err := afero.ReadFile(fs, "/out/db/blog/entities.sql")
	require.NoError(t, err)
	assert.Contains(t, string(ddl), "CREATE TABLE IF NOT EXISTS `postTags` (")
	fks, err := afero.ReadFile(fs, "/out/db/blog/relations.sql")
	require.NoError(t, err)
	assert.Contains(t, string(fks), "ALTER TABLE `post` ADD FOREIGN KEY (`userId`) REFERENCES `user` (`id`)")

	// daos follow the logical schema: no junction, no injected keys
	assert.Equal(t, []string{
		"post.go", "post.ir.yaml",
		"user.go", "user.ir.yaml",
		"tag.go", "tag.ir.yaml",
	}, res.DAO.Files)
	exists, err := afero.Exists(fs, "/out/dao/postTags.go")
	require.NoError(t, err)
	assert.False(t, exists)
	src, err := afero.ReadFile(fs, "/out/dao/post.go")
	require.NoError(t, err)
	assert.Contains(t, string(src), `return runtime.NewValidationError("post", "title", "required")`)
	assert.NotContains(t, string(src), "userId")

	_, ok := res.Schema.Entity("postTags")
	assert.False(t, ok)
	_, ok = res.Model.Schema.Entity("postTags")
	assert.True(t, ok)
}

func TestCompile_WithoutDAO(t *testing.T) {
	fs := project(t, map[string]string{"entities.ool": entities, "blog.ool": blog})
	cfg, err := compiler.NewConfig(
		compiler.WithRoot("/proj"),
		compiler.WithSchema("blog"),
		compiler.WithOutput("/out"),
		compiler.WithTableOptions(sqlschema.TableOptions{{Key: "ENGINE", Value: "MyISAM"}}),
		compiler.WithoutDAO(),
		compiler.WithFs(fs),
	)
	require.NoError(t, err)
	res, err := compiler.Compile(context.Background(), cfg)
	require.NoError(t, err)
	assert.Nil(t, res.DAO)
	ddl, err := afero.ReadFile(fs, "/out/db/blog/entities.sql")
	require.NoError(t, err)
	assert.Contains(t, string(ddl), "ENGINE=MyISAM")
	exists, err := afero.DirExists(fs, "/out/dao")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCompile_Errors(t *testing.T) {
	compile := func(t *testing.T, files map[string]string) error {
		t.Helper()
		cfg, err := compiler.NewConfig(
			compiler.WithRoot("/proj"),
			compiler.WithSchema("blog"),
			compiler.WithOutput("/out"),
			compiler.WithoutDAO(),
			compiler.WithFs(project(t, files)),
		)
		require.NoError(t, err)
		_, err = compiler.Compile(context.Background(), cfg)
		return err
	}

	t.Run("missing schema file", func(t *testing.T) {
		err := compile(t, map[string]string{"entities.ool": entities})
		assert.ErrorIs(t, err, oolong.ErrNotFound)
	})
	t.Run("unknown entity", func(t *testing.T) {
		err := compile(t, map[string]string{"blog.ool": blog})
		assert.True(t, oolong.IsLinkError(err))
	})
	t.Run("no primary key", func(t *testing.T) {
		err := compile(t, map[string]string{"blog.ool": `
entity:
  note:
    fields:
      body: {type: text}
schema:
  name: blog
  entities: [note]
`})
		assert.True(t, oolong.IsComplianceError(err))
	})
}

func TestNewConfig(t *testing.T) {
	_, err := compiler.NewConfig(compiler.WithPackage("example.com/dao"))
	assert.True(t, gen.IsConfigError(err))

	_, err = compiler.NewConfig(compiler.WithSchema("blog"))
	assert.True(t, gen.IsConfigError(err))

	_, err = compiler.NewConfig(compiler.WithWorkers(0))
	assert.True(t, gen.IsConfigError(err))

	cfg, err := compiler.NewConfig(compiler.WithSchema("blog"), compiler.WithoutDAO())
	require.NoError(t, err)
	assert.Equal(t, "build", cfg.Output)
	assert.Equal(t, sqlschema.DefaultTableOptions(), cfg.TableOptions)
}
