package gen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	oolong "github.com/oolong-dev/oolong"
	"github.com/oolong-dev/oolong/schema/expr"
	"github.com/oolong-dev/oolong/schema/field"
)

func functor(kind expr.Kind, name string, refs ...string) *expr.Functor {
	f := &expr.Functor{Kind: kind, Name: name}
	for _, r := range refs {
		f.Args = append(f.Args, &expr.ObjectReference{Name: r})
	}
	return f
}

func pipe(name string, stages map[field.Stage][]*expr.Functor) *Pipeline {
	p := &Pipeline{Name: name}
	for s, fs := range stages {
		p.Stages[s] = fs
	}
	return p
}

func sameName(r *expr.ObjectReference) (string, bool) { return r.Root(), true }

func ids(nodes []*Node) []string {
	var out []string
	for _, n := range nodes {
		out = append(out, n.ID.String())
	}
	return out
}

func TestGraph_DeclarationOrder(t *testing.T) {
	g, err := Build("user", []*Pipeline{
		pipe("email", map[field.Stage][]*expr.Functor{
			field.Validators0: {functor(expr.KindValidator, "isEmail")},
			field.Modifiers0:  {functor(expr.KindModifier, "trim")},
		}),
		pipe("name", map[field.Stage][]*expr.Functor{
			field.Validators1: {functor(expr.KindValidator, "notEmpty")},
		}),
		pipe("age", nil),
	}, sameName)
	require.NoError(t, err)
	sorted, err := g.Sort()
	require.NoError(t, err)
	assert.Equal(t, []string{
		"validator:user.email/validators0[0]",
		"modifier:user.email/modifiers0[0]",
		"end:user.email",
		"validator:user.name/validators1[0]",
		"end:user.name",
		"end:user.age",
		"terminal:user",
	}, ids(sorted))
}

func TestGraph_CrossField(t *testing.T) {
	g, err := Build("user", []*Pipeline{
		pipe("nickname", map[field.Stage][]*expr.Functor{
			field.Validators0: {functor(expr.KindValidator, "notSameAs", "latest.email")},
		}),
		pipe("email", map[field.Stage][]*expr.Functor{
			field.Modifiers0: {functor(expr.KindModifier, "toLower")},
		}),
	}, func(r *expr.ObjectReference) (string, bool) { return r.Path()[0], true })
	require.NoError(t, err)
	sorted, err := g.Sort()
	require.NoError(t, err)
	assert.Equal(t, []string{
		"modifier:user.email/modifiers0[0]",
		"end:user.email",
		"validator:user.nickname/validators0[0]",
		"end:user.nickname",
		"terminal:user",
	}, ids(sorted))
}

func TestGraph_Cycle(t *testing.T) {
	g, err := Build("user", []*Pipeline{
		pipe("a", map[field.Stage][]*expr.Functor{field.Validators0: {functor(expr.KindValidator, "x", "b")}}),
		pipe("b", map[field.Stage][]*expr.Functor{field.Validators0: {functor(expr.KindValidator, "y", "a")}}),
	}, sameName)
	require.NoError(t, err)
	_, err = g.Sort()
	require.Error(t, err)
	assert.True(t, oolong.IsConflictError(err))
	assert.ErrorContains(t, err, "dependency cycle")
	assert.ErrorContains(t, err, "validator:user.a/validators0[0]")
}

func TestGraph_Edge(t *testing.T) {
	g := NewGraph()
	a := NodeID{Kind: NodeEnd, Scope: "s", Target: "a"}
	assert.True(t, g.Add(&Node{ID: a}))
	assert.False(t, g.Add(&Node{ID: a}))
	err := g.Edge(a, NodeID{Kind: NodeEnd, Scope: "s", Target: "b"})
	assert.ErrorIs(t, err, oolong.ErrInvariant)
	assert.Equal(t, 1, g.Len())
}

func TestMerge(t *testing.T) {
	g, err := Build("user", []*Pipeline{
		pipe("email", map[field.Stage][]*expr.Functor{
			field.Validators0: {functor(expr.KindValidator, "isEmail"), functor(expr.KindValidator, "maxLength")},
			field.Validators1: {functor(expr.KindValidator, "notEmpty")},
			field.Modifiers1:  {functor(expr.KindModifier, "trim"), functor(expr.KindModifier, "toLower")},
		}),
		pipe("name", map[field.Stage][]*expr.Functor{
			field.Validators0: {functor(expr.KindValidator, "notEmpty")},
		}),
	}, sameName)
	require.NoError(t, err)
	sorted, err := g.Sort()
	require.NoError(t, err)
	steps := Merge(sorted)
	require.Len(t, steps, 3)
	assert.Equal(t, NodeValidator, steps[0].Kind)
	assert.Len(t, steps[0].Nodes, 3)
	assert.Equal(t, "email: |isEmail && |maxLength && |notEmpty", steps[0].String())
	assert.Equal(t, "email: ~trim ~toLower", steps[1].String())
	assert.Equal(t, "name: |notEmpty", steps[2].String())
}
