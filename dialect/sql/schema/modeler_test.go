package schema_test

import (
	"context"
	"regexp"
	"testing"

	atlas "ariga.io/atlas/sql/schema"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	oolong "github.com/oolong-dev/oolong"
	"github.com/oolong-dev/oolong/compiler/link"
	"github.com/oolong-dev/oolong/compiler/load"
	sqlschema "github.com/oolong-dev/oolong/dialect/sql/schema"
	"github.com/oolong-dev/oolong/schema"
)

const entities = `
entity:
  user:
    features: [autoId]
    fields:
      email: {type: text, maxLength: 200}
  post:
    features: [autoId, createTimestamp, updateTimestamp]
    fields:
      title: text
      status: {type: enum, values: [draft, published], default: draft}
  comment:
    features: [{autoId: {startFrom: 100}}]
    fields:
      body: text
  tag:
    key: label
    fields:
      label: {type: text, maxLength: 32}
  order:
    features: [autoId]
    fields:
      total: {type: decimal, totalDigits: 10, decimalDigits: 2}
  customer:
    features: [autoId]
    fields:
      name: text
  address:
    features: [autoId]
    fields:
      line: text
  review:
    features: [autoId]
    fields:
      rating: {type: int, digits: 1}
`

const relations = `
namespace: [entities]
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
  - left: order
    type: chain
    right:
      customer: {relationship: n:1}
      address: {relationship: "1:1", optional: true}
  - left: review
    multi: [user, post]
    relationship: "1:1"
`

func linkSchema(t *testing.T, name string, files map[string]string) *schema.Schema {
	t.Helper()
	fs := afero.NewMemMapFs()
	for fn, src := range files {
		require.NoError(t, afero.WriteFile(fs, "/proj/"+fn, []byte(src), 0o644))
	}
	ctx, err := load.NewContext("/proj", load.WithFs(fs))
	require.NoError(t, err)
	s, err := link.New(ctx).Load(name)
	require.NoError(t, err)
	return s
}

func blog(t *testing.T) *schema.Schema {
	return linkSchema(t, "blog", map[string]string{
		"entities.ool":  entities,
		"relations.ool": relations,
		"blog.ool": `
namespace: [entities, relations]
schema:
  name: blog
  entities: [comment]
`,
	})
}

func TestModeler_Model(t *testing.T) {
	s := blog(t)
	m, err := sqlschema.NewModeler().Model(s)
	require.NoError(t, err)

	var names []string
	for _, tbl := range m.Tables {
		names = append(names, tbl.Name)
	}
	assert.Equal(t, []string{"comment", "post", "user", "tag", "postTags"}, names)

	// the logical schema is left untouched
	post, _ := s.Entity("post")
	assert.Equal(t, []string{"id", "title", "status", "createdAt", "updatedAt"}, post.Fields.Names())
	_, ok := post.Field("userId")
	assert.False(t, ok)
	_, ok = s.Entity("postTags")
	assert.False(t, ok)

	mpost, _ := m.Schema.Entity("post")
	userID, ok := mpost.Field("userId")
	require.True(t, ok)
	assert.False(t, userID.Auto)
	assert.False(t, userID.ReadOnly)

	junction, ok := m.Schema.Entity("postTags")
	require.True(t, ok)
	assert.True(t, junction.RelationshipEntity)
	assert.Equal(t, []string{"postId", "tagLabel"}, junction.Key)
	assert.True(t, junction.HasFeature("createTimestamp"))

	require.Len(t, m.References, 4)
	assert.Equal(t, sqlschema.Reference{Entity: "postTags", Field: "tagLabel", RefEntity: "tag", RefField: "label", Junction: true}, *m.References[3])

	user, _ := m.Table("user")
	assert.Equal(t, "CREATE TABLE IF NOT EXISTS `user` (\n"+
		"  `id` INT NOT NULL AUTO_INCREMENT,\n"+
		"  `email` VARCHAR(200) NOT NULL,\n"+
		"  PRIMARY KEY (`id`)\n"+
		") ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;\n", user.CreateStatement())

	tbl, _ := m.Table("post")
	status, _ := tbl.Column("status")
	assert.Equal(t, "`status` ENUM('draft', 'published') NOT NULL DEFAULT 'draft'", status.Definition())
	created, _ := tbl.Column("createdAt")
	assert.Equal(t, "`createdAt` DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP", created.Definition())
	updated, _ := tbl.Column("updatedAt")
	assert.Equal(t, "`updatedAt` DATETIME NULL ON UPDATE CURRENT_TIMESTAMP", updated.Definition())

	comment, _ := m.Table("comment")
	v, _ := comment.Options.Get("AUTO_INCREMENT")
	assert.Equal(t, "100", v)
	assert.Contains(t, comment.CreateStatement(), ") ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 AUTO_INCREMENT=100;")

	assert.Equal(t, ""+
		"ALTER TABLE `comment` ADD FOREIGN KEY (`postId`) REFERENCES `post` (`id`) ON UPDATE CASCADE ON DELETE RESTRICT;\n"+
		"ALTER TABLE `post` ADD FOREIGN KEY (`userId`) REFERENCES `user` (`id`) ON UPDATE CASCADE ON DELETE RESTRICT;\n"+
		"ALTER TABLE `postTags` ADD FOREIGN KEY (`postId`) REFERENCES `post` (`id`) ON UPDATE CASCADE ON DELETE CASCADE;\n"+
		"ALTER TABLE `postTags` ADD FOREIGN KEY (`tagLabel`) REFERENCES `tag` (`label`) ON UPDATE CASCADE ON DELETE CASCADE;\n",
		m.RelationsSQL())
	assert.Len(t, m.Statements(), 9)
}

func TestModeler_ChainAndMulti(t *testing.T) {
	s := linkSchema(t, "shop", map[string]string{
		"entities.ool":  entities,
		"relations.ool": relations,
		"shop.ool": `
namespace: [entities, relations]
schema:
  name: shop
  entities: [{entity: order, alias: purchase}, review]
`,
	})
	m, err := sqlschema.NewModeler(sqlschema.WithTableOptions(sqlschema.TableOptions{{Key: "ENGINE", Value: "MyISAM"}})).Model(s)
	require.NoError(t, err)

	purchase, _ := m.Table("purchase")
	_, ok := purchase.Column("customerId")
	assert.True(t, ok)
	assert.Equal(t, "ENGINE=MyISAM", purchase.Options.String())

	customer, _ := m.Table("customer")
	addr, ok := customer.Column("addressId")
	require.True(t, ok)
	assert.True(t, addr.Nullable)
	assert.True(t, addr.Unique)

	review, _ := m.Table("review")
	idx, ok := review.Index("userId_postId")
	require.True(t, ok, "multi index")
	assert.True(t, idx.Unique)
	assert.Equal(t, []string{"userId", "postId"}, sqlschema.ColumnNames(idx.Columns))
	ddl := review.CreateStatement()
	assert.Contains(t, ddl, "UNIQUE KEY `userId` (`userId`)")
	assert.Contains(t, ddl, "UNIQUE KEY `userId_postId` (`userId`, `postId`)")
	assert.Contains(t, ddl, "`rating` TINYINT(1) NOT NULL")
}

func TestModeler_SelfManyToMany(t *testing.T) {
	s := linkSchema(t, "social", map[string]string{
		"social.ool": `
entity:
  user:
    features: [autoId]
    fields: {name: text}
relation:
  - left: user
    right: user
    relationship: n:n
schema: {name: social, entities: [user]}
`,
	})
	m, err := sqlschema.NewModeler().Model(s)
	require.NoError(t, err)
	j, ok := m.Schema.Entity("userUsers")
	require.True(t, ok)
	assert.Equal(t, []string{"userId", "relatedUserId"}, j.Key)
}

func TestModeler_OneToMany(t *testing.T) {
	s := linkSchema(t, "feed", map[string]string{
		"feed.ool": `
entity:
  user:
    features: [autoId]
    fields: {email: text}
  post:
    features: [autoId]
    fields: {title: text}
  note:
    features: [autoId]
    fields: {body: text}
  bundle:
    features: [autoId]
    fields: {label: text}
relation:
  - left: user
    right: post
    relationship: 1:n
  - left: bundle
    multi: [post, note]
    relationship: 1:n
schema: {name: feed, entities: [user, bundle]}
`,
	})
	m, err := sqlschema.NewModeler().Model(s)
	require.NoError(t, err)

	user, _ := m.Schema.Entity("user")
	assert.Equal(t, []string{"id", "email", "postId"}, user.Fields.Names())
	post, _ := m.Schema.Entity("post")
	_, ok := post.Field("userId")
	assert.False(t, ok)

	tbl, _ := m.Table("user")
	c, ok := tbl.Column("postId")
	require.True(t, ok)
	assert.False(t, c.Unique)
	assert.Contains(t, m.RelationsSQL(),
		"ALTER TABLE `user` ADD FOREIGN KEY (`postId`) REFERENCES `post` (`id`) ON UPDATE CASCADE ON DELETE RESTRICT;\n")

	bundle, _ := m.Table("bundle")
	idx, ok := bundle.Index("postId_noteId")
	require.True(t, ok, "multi index")
	assert.False(t, idx.Unique)
	assert.Equal(t, []string{"postId", "noteId"}, sqlschema.ColumnNames(idx.Columns))
}

func TestModeler_Compliance(t *testing.T) {
	s := linkSchema(t, "notes", map[string]string{
		"notes.ool": `
entity:
  user:
    features: [autoId]
    fields: {email: text}
  note:
    fields:
      body: text
      score: {type: float, totalDigits: 60}
  tag:
    fields: {label: text}
relation:
  - left: user
    right: note
    relationship: n:1
schema: {name: notes, entities: [user, tag]}
`,
	})
	_, err := sqlschema.NewModeler().Model(s)
	require.ErrorIs(t, err, oolong.ErrCompliance)
	require.True(t, oolong.IsComplianceError(err))
	var errs oolong.ComplianceErrors
	require.ErrorAs(t, err, &errs)
	assert.ElementsMatch(t, []string{"note", "tag"}, errs.Entities())
	for _, ce := range errs {
		if ce.Entity == "note" {
			assert.Len(t, ce.Problems, 3)
		}
	}
}

func TestModeler_Conflict(t *testing.T) {
	s := linkSchema(t, "clash", map[string]string{
		"clash.ool": `
entity:
  user:
    features: [autoId]
    fields: {email: text}
  post:
    features: [autoId]
    fields: {userId: int}
relation:
  - left: post
    right: user
    relationship: n:1
schema: {name: clash, entities: [post]}
`,
	})
	_, err := sqlschema.NewModeler().Model(s)
	require.ErrorIs(t, err, oolong.ErrConflict)
}

func TestModel_Apply(t *testing.T) {
	m, err := sqlschema.NewModeler().Model(blog(t))
	require.NoError(t, err)
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	for _, stmt := range m.Statements() {
		mock.ExpectExec(regexp.QuoteMeta(stmt)).WillReturnResult(sqlmock.NewResult(0, 0))
	}
	require.NoError(t, m.Apply(context.Background(), db))
	require.NoError(t, mock.ExpectationsWereMet())

	db2, mock2, err := sqlmock.New()
	require.NoError(t, err)
	defer db2.Close()
	mock2.ExpectExec("CREATE TABLE").WillReturnError(assert.AnError)
	err = m.Apply(context.Background(), db2)
	require.ErrorIs(t, err, assert.AnError)
	require.ErrorContains(t, err, "statement 1")
}

func TestModel_Atlas(t *testing.T) {
	m, err := sqlschema.NewModeler().Model(blog(t))
	require.NoError(t, err)
	as := m.ToAtlas("blog")
	require.Len(t, as.Tables, 5)
	post, ok := as.Table("post")
	require.True(t, ok)
	require.Len(t, post.ForeignKeys, 1)
	assert.Equal(t, "user", post.ForeignKeys[0].RefTable.Name)
	assert.Equal(t, atlas.Restrict, post.ForeignKeys[0].OnDelete)

	tables, err := sqlschema.FromAtlas(as)
	require.NoError(t, err)
	issues := sqlschema.CheckDrift(tables, m.Tables)
	assert.Empty(t, issues, issues.String())

	stmts, err := m.Plan(context.Background(), atlas.New("blog"))
	require.NoError(t, err)
	require.NotEmpty(t, stmts)
	assert.Contains(t, stmts[0], "CREATE TABLE")

	stmts, err = m.Plan(context.Background(), as)
	require.NoError(t, err)
	assert.Empty(t, stmts)
}

func TestQueue(t *testing.T) {
	tbl := sqlschema.NewTable("t").
		AddColumn(&sqlschema.Column{Name: "a"}).
		AddColumn(&sqlschema.Column{Name: "b"})
	q := &sqlschema.Queue{}
	q.Push(&sqlschema.SetTableOption{Table: "t", Key: "AUTO_INCREMENT", Value: "5"})
	q.Push(&sqlschema.AddIndex{Table: "t", Name: "a_b", Columns: []string{"a", "b"}})
	q.Push(&sqlschema.SetTableOption{Table: "t", Key: "auto_increment", Value: "7"})
	require.Equal(t, 3, q.Len())
	require.NoError(t, q.Drain(map[string]*sqlschema.Table{"t": tbl}))
	assert.Equal(t, 0, q.Len())
	assert.Equal(t, "AUTO_INCREMENT=7", tbl.Options.String())
	_, ok := tbl.Index("a_b")
	assert.True(t, ok)

	q.Push(&sqlschema.AddIndex{Table: "u", Name: "x", Columns: []string{"x"}})
	require.Error(t, q.Drain(map[string]*sqlschema.Table{"t": tbl}))
	q.Push(&sqlschema.AddIndex{Table: "t", Name: "c", Columns: []string{"c"}})
	require.Error(t, q.Drain(map[string]*sqlschema.Table{"t": tbl}))
}

func TestCheckDrift(t *testing.T) {
	intType := &sqlschema.ColumnType{Base: "INT"}
	current := []*sqlschema.Table{
		sqlschema.NewTable("user").
			AddColumn(&sqlschema.Column{Name: "id", Type: intType}).
			AddColumn(&sqlschema.Column{Name: "nick", Type: intType, Nullable: true}).
			AddColumn(&sqlschema.Column{Name: "bio", Type: &sqlschema.ColumnType{Base: "MEDIUMTEXT"}}).
			AddColumn(&sqlschema.Column{Name: "role", Type: &sqlschema.ColumnType{Base: "ENUM", Values: []string{"admin", "user", "guest"}}}).
			AddColumn(&sqlschema.Column{Name: "age", Type: intType, Nullable: true}).
			AddIndex("nick", false, []string{"nick"}),
		sqlschema.NewTable("legacy"),
	}
	desired := []*sqlschema.Table{
		sqlschema.NewTable("user").
			AddColumn(&sqlschema.Column{Name: "id", Type: &sqlschema.ColumnType{Base: "BIGINT"}}).
			AddColumn(&sqlschema.Column{Name: "bio", Type: &sqlschema.ColumnType{Base: "TEXT"}}).
			AddColumn(&sqlschema.Column{Name: "role", Type: &sqlschema.ColumnType{Base: "ENUM", Values: []string{"admin", "user"}}}).
			AddColumn(&sqlschema.Column{Name: "age", Type: intType}).
			AddColumn(&sqlschema.Column{Name: "email", Type: intType}),
	}
	issues := sqlschema.CheckDrift(current, desired)
	byChange := map[sqlschema.Change]int{}
	for _, i := range issues {
		byChange[i.Change]++
	}
	assert.Equal(t, map[sqlschema.Change]int{
		sqlschema.DropTable:  1,
		sqlschema.DropColumn: 1, // nick
		sqlschema.DropIndex:  1,
		sqlschema.Narrow:     2, // bio, role
		sqlschema.NotNull:    1, // age
		"":                   2, // id type, email without default
	}, byChange)
	assert.Len(t, issues.Blocking(), 6)
	assert.Contains(t, issues.String(), "user.role: enum values guest would be removed [narrow]")

	issues = sqlschema.CheckDrift(current, desired, sqlschema.Changes...)
	assert.Len(t, issues, 8)
	assert.Empty(t, issues.Blocking())
	assert.NoError(t, issues.Err())

	_, err := sqlschema.ParseChange("rename")
	assert.Error(t, err)
}

func TestCheckModel(t *testing.T) {
	m, err := sqlschema.NewModeler().Model(blog(t))
	require.NoError(t, err)
	assert.Empty(t, sqlschema.CheckModel(m.Tables))

	junction, _ := m.Table("postTags")
	junction.PrimaryKey = junction.PrimaryKey[:1]
	post, _ := m.Table("post")
	userID, _ := post.Column("userId")
	userID.Type = &sqlschema.ColumnType{Base: "BIGINT"}
	issues := sqlschema.CheckModel(m.Tables)
	require.Len(t, issues, 2)
	assert.Contains(t, issues.String(), "post.userId: typed BIGINT but references user.id typed INT")
	assert.Contains(t, issues.String(), "postTags: junction keyed by (postId), want its foreign keys (postId, tagLabel)")
}
