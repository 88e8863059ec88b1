package stubs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeStubFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadFile_QualifiedAndBareLookup(t *testing.T) {
	dir := t.TempDir()
	writeStubFile(t, dir, "requests.yaml", `
library: requests
entries:
  - qualified: requests.get
    raises: [requests.ConnectionError, requests.Timeout]
  - qualified: requests.Session.get
    bare: get
    raises: [requests.ConnectionError]
`)

	lib, err := Load(dir)
	require.NoError(t, err)

	raises, ok := lib.GetExceptions("requests.get", "get")
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"requests.ConnectionError", "requests.Timeout"}, raises)

	raises, ok = lib.GetExceptions("unknown.module.get", "get")
	require.True(t, ok)
	assert.Equal(t, []string{"requests.ConnectionError"}, raises)

	_, ok = lib.GetExceptions("totally.unknown", "")
	assert.False(t, ok)
}

func TestLoad_LaterFileOverridesEarlier(t *testing.T) {
	dir := t.TempDir()
	writeStubFile(t, dir, "a_defaults.yaml", `
library: defaults
entries:
  - qualified: pkg.fn
    raises: [DefaultError]
`)
	writeStubFile(t, dir, "z_project.yaml", `
library: project
entries:
  - qualified: pkg.fn
    raises: [ProjectSpecificError]
`)

	lib, err := Load(dir)
	require.NoError(t, err)

	raises, ok := lib.GetExceptions("pkg.fn", "")
	require.True(t, ok)
	assert.Equal(t, []string{"ProjectSpecificError"}, raises)
}

func TestLoad_IgnoresNonYAMLFiles(t *testing.T) {
	dir := t.TempDir()
	writeStubFile(t, dir, "README.md", "not a stub file")
	writeStubFile(t, dir, "valid.yml", `
library: x
entries:
  - qualified: x.y
    raises: [XError]
`)

	lib, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, lib.Len())
}
