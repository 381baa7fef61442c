package gen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/repack/compiler/diag"
)

func queryByName(t *testing.T, g *Graph, object, name string) *Query {
	t.Helper()
	obj := g.Object(object)
	require.NotNil(t, obj)
	for _, q := range obj.Queries {
		if q.Name == name {
			return q
		}
	}
	t.Fatalf("query %s not found on %s", name, object)
	return nil
}

func TestInsertSynthesis(t *testing.T) {
	graph, errs := build(t, `
enum UserType { Admin User Guest }

record User @users {
    id uuid db:pk
    name string
    kind UserType
    insert CreateUser(id, name, kind) : one
}
`)
	require.False(t, errs.HasErrors(), "unexpected: %v", errs.Errors())

	q := queryByName(t, graph, "User", "CreateUser")
	assert.Equal(t,
		"WITH users AS (INSERT INTO users (id, name, kind) VALUES ($1, $2, $3) RETURNING *) "+
			"SELECT users.id AS id, users.name AS name, users.kind AS kind FROM users;",
		q.Body)
	require.Len(t, q.Args, 3)
	assert.Equal(t, "uuid", q.Args[0].Type)
	assert.Equal(t, "UserType", q.Args[2].Type)
}

func TestUpdateSynthesis(t *testing.T) {
	graph, errs := build(t, `
record User @users {
    id uuid db:pk
    name string
    update Rename(new_name string) = "SET name = $new_name" : one
}
`)
	require.False(t, errs.HasErrors(), "unexpected: %v", errs.Errors())

	q := queryByName(t, graph, "User", "Rename")
	assert.Equal(t,
		"WITH users AS (UPDATE users SET name = $1 RETURNING *) "+
			"SELECT users.id AS id, users.name AS name FROM users;",
		q.Body)
}

func TestManualInterpolation(t *testing.T) {
	graph, errs := build(t, `
record User @users {
    id uuid db:pk
    name string
    query ByName(who string) = "SELECT $fields FROM $locations WHERE $name = $who" : many
    query Count() = "SELECT COUNT(*) FROM $table"
    query Bare(a uuid, b string) = "SELECT $b, $a, $b"
}
`)
	require.False(t, errs.HasErrors(), "unexpected: %v", errs.Errors())

	t.Run("field and argument expansion", func(t *testing.T) {
		q := queryByName(t, graph, "User", "ByName")
		assert.Equal(t,
			"SELECT users.id AS id, users.name AS name FROM users WHERE users.name = $1;",
			q.Body)
	})

	t.Run("table expansion", func(t *testing.T) {
		q := queryByName(t, graph, "User", "Count")
		assert.Equal(t, "SELECT COUNT(*) FROM users;", q.Body)
	})

	t.Run("positional slots follow first appearance", func(t *testing.T) {
		q := queryByName(t, graph, "User", "Bare")
		assert.Equal(t, "SELECT $1, $2, $1;", q.Body)
	})
}

func TestColumnOnlyInterpolation(t *testing.T) {
	graph, errs := build(t, `
record User @users {
    id uuid db:pk
    name string
    query Touch(stamp datetime) = "UPDATE $table SET $#name = 'x', touched = $stamp"
}
`)
	require.False(t, errs.HasErrors(), "unexpected: %v", errs.Errors())
	q := queryByName(t, graph, "User", "Touch")
	assert.Equal(t, "UPDATE users SET name = 'x', touched = $1;", q.Body)
}

func TestInterpolationUnknownName(t *testing.T) {
	graph, errs := build(t, `
record User @users {
    id uuid db:pk
    query Broken() = "SELECT $nonsense FROM $table"
}
`)
	assert.True(t, errs.Has(diag.VariableNotInScope))
	q := queryByName(t, graph, "User", "Broken")
	assert.Equal(t, "SELECT [err: nonsense] FROM users;", q.Body)
}

func TestInterpolationKeepsExistingSemicolon(t *testing.T) {
	graph, errs := build(t, `
record User @users {
    id uuid db:pk
    query Count() = "SELECT COUNT(*) FROM $table;"
}
`)
	require.False(t, errs.HasErrors(), "unexpected: %v", errs.Errors())
	q := queryByName(t, graph, "User", "Count")
	assert.Equal(t, "SELECT COUNT(*) FROM users;", q.Body)
}

func TestFieldsHonorSourceOverride(t *testing.T) {
	graph, errs := build(t, `
record User @users {
    id uuid db:pk
    display string db:as("upper(users.name)")
    query All() = "SELECT $fields FROM $locations" : many
}
`)
	require.False(t, errs.HasErrors(), "unexpected: %v", errs.Errors())
	q := queryByName(t, graph, "User", "All")
	assert.Equal(t, "SELECT users.id AS id, upper(users.name) AS display FROM users;", q.Body)
}

func TestLocationsWithImplicitJoin(t *testing.T) {
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
    query Everything() = "SELECT $fields FROM $locations" : many
}
`)
	require.False(t, errs.HasErrors(), "unexpected: %v", errs.Errors())

	q := queryByName(t, graph, "FullUser", "Everything")
	assert.Contains(t, q.Body, "FROM contacts INNER JOIN users j_user_id ON j_user_id.id = contacts.user_id")
	assert.Contains(t, q.Body, "j_user_id.name AS name")
}
