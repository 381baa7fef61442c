package gen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/repack/compiler/ast"
	"github.com/syssam/repack/compiler/diag"
	"github.com/syssam/repack/compiler/parser"
	"github.com/syssam/repack/compiler/token"
)

func build(t *testing.T, src string) (*Graph, *diag.List) {
	t.Helper()
	schema := &ast.Schema{}
	errs := &diag.List{}
	parser.Parse(token.Scan("test.repack", []byte(src)), schema, errs)
	require.False(t, errs.HasErrors(), "parse errors: %v", errs.Errors())
	return Resolve(schema, errs), errs
}

func TestResolvePrimitivesAndEnums(t *testing.T) {
	graph, errs := build(t, `
enum UserType { Admin User Guest }

record User @users {
    id uuid db:pk
    name string
    kind UserType
}
`)
	require.False(t, errs.HasErrors(), "unexpected: %v", errs.Errors())

	user := graph.Object("User")
	require.NotNil(t, user)
	assert.Equal(t, "users", user.Table)
	assert.Equal(t, TypePrimitive, user.Fields[0].Type.Kind)
	assert.Equal(t, TypeEnum, user.Fields[2].Type.Kind)
	assert.True(t, user.Fields[2].Type.Custom())
	assert.True(t, user.Fields[0].Local())
}

func TestResolveDependencyOrder(t *testing.T) {
	graph, errs := build(t, `
struct Outer {
    inner Inner
}

struct Inner {
    value string
}
`)
	require.False(t, errs.HasErrors(), "unexpected: %v", errs.Errors())
	require.Len(t, graph.Objects, 2)
	assert.Equal(t, "Inner", graph.Objects[0].Name)
	assert.Equal(t, "Outer", graph.Objects[1].Name)
	assert.Equal(t, TypeObject, graph.Objects[1].Fields[0].Type.Kind)
}

func TestResolveCircularDependancy(t *testing.T) {
	_, errs := build(t, `
struct A : B {
    x string
}

struct B : A {
    y string
}
`)
	assert.True(t, errs.Has(diag.CircularDependancy))
}

func TestResolveInheritance(t *testing.T) {
	graph, errs := build(t, `
record Base @base_rows {
    id uuid db:pk
    created datetime
}

synthetic View : Base {
    label from(super.id)
}
`)
	require.False(t, errs.HasErrors(), "unexpected: %v", errs.Errors())

	view := graph.Object("View")
	require.NotNil(t, view)
	assert.Equal(t, "base_rows", view.Table, "table propagates from the parent")
	require.Len(t, view.Fields, 3, "parent fields copy through")
	assert.Equal(t, "id", view.Fields[0].Name)

	label := view.Field("label")
	require.NotNil(t, label)
	require.NotNil(t, label.Ref)
	assert.Equal(t, RefSuper, label.Ref.Kind)
	assert.Equal(t, "uuid", label.Type.Name)
}

func TestResolveParentMissing(t *testing.T) {
	_, errs := build(t, `
synthetic Orphan : Nowhere {
    x string
}
`)
	assert.True(t, errs.Has(diag.ParentObjectDoesNotExist))
}

func TestResolveSnippets(t *testing.T) {
	t.Run("fields splice in place", func(t *testing.T) {
		graph, errs := build(t, `
snippet Timestamps {
    created_at datetime
    updated_at datetime?
}

record Post @posts {
    id uuid db:pk
    !Timestamps
    title string
}
`)
		require.False(t, errs.HasErrors(), "unexpected: %v", errs.Errors())
		post := graph.Object("Post")
		names := make([]string, len(post.Fields))
		for i, f := range post.Fields {
			names[i] = f.Name
		}
		assert.Equal(t, []string{"id", "created_at", "updated_at", "title"}, names)
	})

	t.Run("unknown snippet", func(t *testing.T) {
		_, errs := build(t, `
record Post @posts {
    id uuid
    !Missing
}
`)
		assert.True(t, errs.Has(diag.SnippetNotFound))
	})
}

func TestResolveExternalReferences(t *testing.T) {
	t.Run("super without parent", func(t *testing.T) {
		_, errs := build(t, "struct S {\n    x from(super.name)\n}\n")
		assert.True(t, errs.Has(diag.InvalidSuper))
	})

	t.Run("field missing on super", func(t *testing.T) {
		_, errs := build(t, `
record P @p {
    id uuid
}

synthetic C : P {
    x from(super.nope)
}
`)
		assert.True(t, errs.Has(diag.FieldNotOnSuper))
	})

	t.Run("unknown object", func(t *testing.T) {
		_, errs := build(t, "struct S {\n    x from(Ghost.name)\n}\n")
		assert.True(t, errs.Has(diag.UnknownObject))
	})

	t.Run("field missing on object", func(t *testing.T) {
		_, errs := build(t, `
record U @u {
    id uuid
}

struct S {
    x U.nope
}
`)
		assert.True(t, errs.Has(diag.FieldNotFound))
	})

	t.Run("field missing on join", func(t *testing.T) {
		_, errs := build(t, `
record U @u {
    id uuid
}

record S @s {
    u_id U.id
    join(owner U) = "$owner.id = $name.u_id"
    x from(owner.nope)
}
`)
		assert.True(t, errs.Has(diag.FieldNotOnJoin))
	})

	t.Run("direct reference copies the type", func(t *testing.T) {
		graph, errs := build(t, `
record U @u {
    id uuid db:pk
}

record S @s {
    u_id U.id
}
`)
		require.False(t, errs.HasErrors(), "unexpected: %v", errs.Errors())
		f := graph.Object("S").Field("u_id")
		assert.Equal(t, "uuid", f.Type.Name)
		require.NotNil(t, f.Ref)
		assert.Equal(t, RefDirect, f.Ref.Kind)
		assert.True(t, f.Local(), "a direct reference is still a column")
	})
}

func TestResolveImplicitJoin(t *testing.T) {
	graph, errs := build(t, `
record User @users {
    id uuid db:pk
    name string
}

record ContactInfo @contacts {
    id uuid db:pk
    user_id User.id
}

synthetic FullUser : ContactInfo {
    name from(user_id.name)
}
`)
	require.False(t, errs.HasErrors(), "unexpected: %v", errs.Errors())

	full := graph.Object("FullUser")
	require.NotNil(t, full)

	join := full.Join("j_user_id")
	require.NotNil(t, join, "implicit joins synthesize an alias from the local field")
	assert.Equal(t, "users", join.Table)
	assert.True(t, join.Auto)

	name := full.Field("name")
	require.NotNil(t, name)
	require.NotNil(t, name.Ref)
	assert.Equal(t, RefJoin, name.Ref.Kind)
	assert.Equal(t, "j_user_id", name.Ref.JoinAlias)
	assert.Equal(t, "string", name.Type.Name)
}

func TestResolveCustomTypeErrors(t *testing.T) {
	_, errs := build(t, "struct S {\n    x Mystery\n}\n")
	assert.True(t, errs.Has(diag.CustomTypeNotDefined))
}

func TestResolveArrayOnRecord(t *testing.T) {
	_, errs := build(t, "record R @r {\n    xs string[]\n}\n")
	assert.True(t, errs.Has(diag.TypeNotSupported))
}

func TestResolveDuplicateFieldNames(t *testing.T) {
	_, errs := build(t, `
record R @r {
    id uuid
    id string
}
`)
	assert.True(t, errs.Has(diag.DuplicateFieldNames))
}

func TestResolveDuplicateQueryArgs(t *testing.T) {
	_, errs := build(t, `
record R @r {
    id uuid
    query Q(a uuid, a string) = "SELECT $table"
}
`)
	assert.True(t, errs.Has(diag.QueryArgInvalidSyntax))
}

func TestResolveDeterminism(t *testing.T) {
	src := `
enum Kind { A B }

record User @users {
    id uuid db:pk
    kind Kind
    insert Create(id, kind) : one
}

record Org @orgs {
    id uuid db:pk
    owner_id User.id
}
`
	first, errs1 := build(t, src)
	second, errs2 := build(t, src)
	require.False(t, errs1.HasErrors())
	require.False(t, errs2.HasErrors())
	require.Len(t, second.Objects, len(first.Objects))
	for i := range first.Objects {
		assert.Equal(t, first.Objects[i].Name, second.Objects[i].Name)
		for j := range first.Objects[i].Queries {
			assert.Equal(t, first.Objects[i].Queries[j].Body, second.Objects[i].Queries[j].Body)
		}
	}
}

func TestOutputFiltering(t *testing.T) {
	graph, errs := build(t, `
enum Kind #core { A B }

record One @one #core {
    id uuid
}

record Two @two #extra {
    id uuid
}

struct Three {
    id uuid
}
`)
	require.False(t, errs.HasErrors(), "unexpected: %v", errs.Errors())

	t.Run("empty filter includes everything", func(t *testing.T) {
		out := &ast.Output{}
		assert.Len(t, graph.ObjectsFor(out), 3)
		assert.Len(t, graph.EnumsFor(out), 1)
	})

	t.Run("categories are OR semantics", func(t *testing.T) {
		out := &ast.Output{Categories: []string{"core", "extra"}}
		objs := graph.ObjectsFor(out)
		require.Len(t, objs, 2)
		assert.Equal(t, "One", objs[0].Name)
		assert.Equal(t, "Two", objs[1].Name)
	})

	t.Run("uncategorized objects drop under a filter", func(t *testing.T) {
		out := &ast.Output{Categories: []string{"core"}}
		objs := graph.ObjectsFor(out)
		require.Len(t, objs, 1)
		assert.Equal(t, "One", objs[0].Name)
	})

	t.Run("exclusions always win", func(t *testing.T) {
		out := &ast.Output{Exclude: []string{"Two"}}
		objs := graph.ObjectsFor(out)
		require.Len(t, objs, 2)
	})
}
