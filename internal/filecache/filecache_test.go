package filecache

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/excflow/excflow/internal/model"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cache.db")
	c, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestPutGet_RoundTrips(t *testing.T) {
	c := openTestCache(t)
	source := []byte("def f(): raise ValueError()")
	hash := ContentHash(source)

	extraction := model.FileExtraction{
		File: "a.py",
		Functions: []model.FunctionDef{
			{Key: model.NewFunctionKey("a.py", "f"), Name: "f", QualifiedName: "f", File: "a.py", Line: 1},
		},
	}
	require.NoError(t, c.Put("a.py", hash, extraction))

	got, ok, err := c.Get("a.py", hash)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a.py", got.File)
	require.Len(t, got.Functions, 1)
	assert.Equal(t, "f", got.Functions[0].Name)
}

func TestGet_MissOnHashMismatch(t *testing.T) {
	c := openTestCache(t)
	require.NoError(t, c.Put("a.py", "hash-v1", model.FileExtraction{File: "a.py"}))

	_, ok, err := c.Get("a.py", "hash-v2")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGet_MissWhenAbsent(t *testing.T) {
	c := openTestCache(t)
	_, ok, err := c.Get("never-written.py", "anything")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPut_OverwritesExistingEntry(t *testing.T) {
	c := openTestCache(t)
	require.NoError(t, c.Put("a.py", "hash-1", model.FileExtraction{File: "a.py", Diagnostics: nil}))
	require.NoError(t, c.Put("a.py", "hash-2", model.FileExtraction{File: "a.py", Diagnostics: []model.Diagnostic{{File: "a.py", Message: "updated"}}}))

	got, ok, err := c.Get("a.py", "hash-2")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got.Diagnostics, 1)
	assert.Equal(t, "updated", got.Diagnostics[0].Message)
}

func TestContentHash_IsStable(t *testing.T) {
	a := ContentHash([]byte("same"))
	b := ContentHash([]byte("same"))
	c2 := ContentHash([]byte("different"))
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c2)
}
