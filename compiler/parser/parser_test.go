package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/repack/compiler/ast"
	"github.com/syssam/repack/compiler/diag"
	"github.com/syssam/repack/compiler/token"
)

func parse(t *testing.T, src string) (*ast.Schema, *diag.List) {
	t.Helper()
	schema := &ast.Schema{}
	errs := &diag.List{}
	Parse(token.Scan("test.repack", []byte(src)), schema, errs)
	return schema, errs
}

func TestParseRecord(t *testing.T) {
	schema, errs := parse(t, `
record User : Base @users #auth #core {
    id uuid db:pk
    name string
    tags string
    db:index(name)
}
`)
	require.False(t, errs.HasErrors(), "unexpected: %v", errs.Errors())
	require.Len(t, schema.Objects, 1)

	obj := schema.Objects[0]
	assert.Equal(t, ast.Record, obj.Kind)
	assert.Equal(t, "User", obj.Name)
	assert.Equal(t, "Base", obj.Parent)
	assert.Equal(t, "users", obj.Table)
	assert.Equal(t, []string{"auth", "core"}, obj.Categories)
	require.Len(t, obj.Fields, 3)
	assert.Equal(t, "id", obj.Fields[0].Name)
	assert.Equal(t, "uuid", obj.Fields[0].Type.Name)
	require.Len(t, obj.Fields[0].Functions, 1)
	assert.Equal(t, "db", obj.Fields[0].Functions[0].Namespace)
	assert.Equal(t, "pk", obj.Fields[0].Functions[0].Name)
	require.Len(t, obj.Functions, 1)
	assert.Equal(t, "index", obj.Functions[0].Name)
	assert.Equal(t, []string{"name"}, obj.Functions[0].Args)
}

func TestParseSemicolonSeparatedFields(t *testing.T) {
	schema, errs := parse(t, `record User @users { id uuid db:pk; name string; kind UserType }`)
	require.False(t, errs.HasErrors(), "unexpected: %v", errs.Errors())
	require.Len(t, schema.Objects, 1)
	require.Len(t, schema.Objects[0].Fields, 3)
	assert.Equal(t, "kind", schema.Objects[0].Fields[2].Name)
	assert.Equal(t, "UserType", schema.Objects[0].Fields[2].Type.Name)
}

func TestParseTypeShapes(t *testing.T) {
	schema, errs := parse(t, `
struct Box {
    names string[]
    maybe int64?
    both float64[]?
    refd User.id
    computed from(user_id.name)
}
`)
	require.False(t, errs.HasErrors(), "unexpected: %v", errs.Errors())
	fields := schema.Objects[0].Fields
	require.Len(t, fields, 5)

	assert.True(t, fields[0].Type.Array)
	assert.False(t, fields[0].Type.Optional)
	assert.True(t, fields[1].Type.Optional)
	assert.True(t, fields[2].Type.Array)
	assert.True(t, fields[2].Type.Optional)

	assert.True(t, fields[3].Type.IsRef())
	assert.Equal(t, "User", fields[3].Type.RefHead)
	assert.Equal(t, "id", fields[3].Type.RefField)

	assert.True(t, fields[4].Type.IsRef())
	assert.Equal(t, "user_id", fields[4].Type.RefHead)
	assert.Equal(t, "name", fields[4].Type.RefField)
}

func TestParseSyntheticWithJoin(t *testing.T) {
	schema, errs := parse(t, `
synthetic FullUser : ContactInfo {
    join(owner User) = "$owner.id = $name.user_id"
    display from(owner.name)
}
`)
	require.False(t, errs.HasErrors(), "unexpected: %v", errs.Errors())
	obj := schema.Objects[0]
	assert.Equal(t, ast.Synthetic, obj.Kind)
	require.Len(t, obj.Joins, 1)
	assert.Equal(t, "owner", obj.Joins[0].Alias)
	assert.Equal(t, "User", obj.Joins[0].Object)
	assert.Equal(t, "$owner.id = $name.user_id", obj.Joins[0].Predicate)
}

func TestParseQueries(t *testing.T) {
	schema, errs := parse(t, `
record User @users {
    id uuid db:pk
    name string
    query ById(id uuid) = "SELECT $fields FROM $locations WHERE $id = $id" : one
    insert Create(id, name) : one
    update Rename(new_name string) = "SET name = $new_name" : many
    query Purge() = "DELETE FROM $table"
}
`)
	require.False(t, errs.HasErrors(), "unexpected: %v", errs.Errors())
	queries := schema.Objects[0].Queries
	require.Len(t, queries, 4)

	assert.Equal(t, ast.QueryManual, queries[0].Kind)
	assert.Equal(t, ast.ReturnsOne, queries[0].Returns)
	require.Len(t, queries[0].Args, 1)
	assert.Equal(t, ast.QueryArg{Name: "id", Type: "uuid"}, queries[0].Args[0])

	assert.Equal(t, ast.QueryInsert, queries[1].Kind)
	assert.Equal(t, []string{"id", "name"}, queries[1].Fields)
	assert.Empty(t, queries[1].Body)

	assert.Equal(t, ast.QueryUpdate, queries[2].Kind)
	assert.Equal(t, "SET name = $new_name", queries[2].Body)
	assert.Equal(t, ast.ReturnsMany, queries[2].Returns)

	assert.Equal(t, ast.ReturnsNone, queries[3].Returns)
}

func TestParseEnum(t *testing.T) {
	schema, errs := parse(t, `
enum UserType #auth {
    Admin
    User
    Guest = "guest_account"
}
`)
	require.False(t, errs.HasErrors(), "unexpected: %v", errs.Errors())
	require.Len(t, schema.Enums, 1)
	e := schema.Enums[0]
	assert.Equal(t, []string{"auth"}, e.Categories)
	require.Len(t, e.Cases, 3)
	assert.Equal(t, "Admin", e.Cases[0].Val())
	assert.Equal(t, "guest_account", e.Cases[2].Val())
}

func TestParseSnippetAndInclusion(t *testing.T) {
	schema, errs := parse(t, `
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
	require.Len(t, schema.Snippets, 1)
	assert.Len(t, schema.Snippets[0].Fields, 2)

	obj := schema.Objects[0]
	require.Len(t, obj.Snippets, 1)
	assert.Equal(t, "Timestamps", obj.Snippets[0].Name)
	assert.Equal(t, 1, obj.Snippets[0].Index)
}

func TestParseOutput(t *testing.T) {
	t.Run("bare", func(t *testing.T) {
		schema, errs := parse(t, "output postgres @out\n")
		require.False(t, errs.HasErrors(), "unexpected: %v", errs.Errors())
		require.Len(t, schema.Outputs, 1)
		assert.Equal(t, "postgres", schema.Outputs[0].Blueprint)
		assert.Equal(t, "out", schema.Outputs[0].Path)
	})

	t.Run("semicolon terminated", func(t *testing.T) {
		schema, errs := parse(t, "output typescript @\"gen/ts\";")
		require.False(t, errs.HasErrors(), "unexpected: %v", errs.Errors())
		assert.Equal(t, "gen/ts", schema.Outputs[0].Path)
	})

	t.Run("filters and options", func(t *testing.T) {
		schema, errs := parse(t, `
output postgres @out #core #auth !Secret {
    owner "team-data"
    strict true
}
`)
		require.False(t, errs.HasErrors(), "unexpected: %v", errs.Errors())
		out := schema.Outputs[0]
		assert.Equal(t, []string{"core", "auth"}, out.Categories)
		assert.Equal(t, []string{"Secret"}, out.Exclude)
		assert.Equal(t, "team-data", out.Option("owner", ""))
		assert.True(t, out.Bool("strict", false))
		assert.False(t, out.Bool("missing", false))
	})
}

func TestParseImportsAndBlueprints(t *testing.T) {
	schema, errs := parse(t, "import \"shared/base.repack\"\nimport \"types/*\"\nblueprint \"custom.blueprint\"\n")
	require.False(t, errs.HasErrors(), "unexpected: %v", errs.Errors())
	require.Len(t, schema.Imports, 2)
	assert.Equal(t, "shared/base.repack", schema.Imports[0].Path)
	assert.Equal(t, "types/*", schema.Imports[1].Path)
	require.Len(t, schema.Blueprints, 1)
	assert.Equal(t, "custom.blueprint", schema.Blueprints[0].Path)
}

func TestParseConfigurationAndInstance(t *testing.T) {
	schema, errs := parse(t, `
configure Database {
    host
    port
}

instance Primary @prod : Database {
    host "db.internal"
    port "5432"
}
`)
	require.False(t, errs.HasErrors(), "unexpected: %v", errs.Errors())
	require.Len(t, schema.Configurations, 1)
	assert.Equal(t, []string{"host", "port"}, schema.Configurations[0].Keys)
	require.Len(t, schema.Instances, 1)
	inst := schema.Instances[0]
	assert.Equal(t, "prod", inst.Environment)
	assert.Equal(t, "Database", inst.Configuration)
	assert.Equal(t, "db.internal", inst.Values["host"])
}

func TestParseErrors(t *testing.T) {
	t.Run("legacy keyword rejected", func(t *testing.T) {
		_, errs := parse(t, "where User {\n}\n")
		assert.True(t, errs.Has(diag.SyntaxError))
	})

	t.Run("recovers past a bad declaration", func(t *testing.T) {
		schema, errs := parse(t, `
record {
record Good @good {
    id uuid
}
`)
		assert.True(t, errs.Has(diag.SyntaxError))
		require.Len(t, schema.Objects, 1)
		assert.Equal(t, "Good", schema.Objects[0].Name)
	})

	t.Run("unterminated object", func(t *testing.T) {
		_, errs := parse(t, "record User @users {\n    id uuid\n")
		assert.True(t, errs.Has(diag.ParseIncomplete))
	})

	t.Run("bad function syntax", func(t *testing.T) {
		_, errs := parse(t, "record U @u {\n    id uuid db:\n}\n")
		assert.True(t, errs.Has(diag.FunctionInvalidSyntax))
	})

	t.Run("bad query argument", func(t *testing.T) {
		_, errs := parse(t, "record U @u {\n    id uuid\n    query Q(a) = \"x\"\n}\n")
		assert.True(t, errs.Has(diag.QueryArgInvalidSyntax))
	})

	t.Run("bad cardinality", func(t *testing.T) {
		_, errs := parse(t, "record U @u {\n    id uuid\n    query Q() = \"x\" : twelve\n}\n")
		assert.True(t, errs.Has(diag.QueryInvalidSyntax))
	})
}
