package env

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemRoundTrip(t *testing.T) {
	mem := NewMem()
	require.NoError(t, mem.WriteFile("a/b.txt", []byte("hi")))

	data, err := mem.ReadFile("a/b.txt")
	require.NoError(t, err)
	assert.Equal(t, "hi", string(data))

	_, err = mem.ReadFile("a/missing.txt")
	assert.Error(t, err)

	require.NoError(t, mem.Remove("a/b.txt"))
	_, err = mem.ReadFile("a/b.txt")
	assert.Error(t, err)
	assert.Equal(t, []string{"a/b.txt"}, mem.Removed)
}

func TestMemGlob(t *testing.T) {
	mem := NewMem()
	mem.Files["x/a.repack"] = []byte("")
	mem.Files["x/b.repack"] = []byte("")
	mem.Files["x/c.txt"] = []byte("")

	matches, err := mem.Glob("x/*.repack")
	require.NoError(t, err)
	assert.Equal(t, []string{"x/a.repack", "x/b.repack"}, matches)
}

func TestMemConfirmAndExec(t *testing.T) {
	mem := NewMem()
	assert.True(t, mem.Confirm("sure?"))
	assert.Equal(t, []string{"sure?"}, mem.ConfirmAsked)

	require.NoError(t, mem.Exec("echo 1"))
	assert.Equal(t, []string{"echo 1"}, mem.Execs)
}

func TestOSWriteCreatesDirectories(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "deep", "nested", "out.txt")
	require.NoError(t, OS{}.WriteFile(path, []byte("data")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "data", string(data))
}

func TestOSRemoveMissingIsNil(t *testing.T) {
	assert.NoError(t, OS{}.Remove(filepath.Join(t.TempDir(), "ghost.txt")))
}

func TestOSRemoveDirIfEmpty(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	require.NoError(t, OS{}.RemoveDirIfEmpty(sub))
	_, err := os.Stat(sub)
	assert.True(t, os.IsNotExist(err))
}
