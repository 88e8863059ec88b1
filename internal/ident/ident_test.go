package ident

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/excflow/excflow/internal/model"
)

func buildModel() *model.ProgramModel {
	keyA := model.NewFunctionKey("a.py", "handler")
	keyB := model.NewFunctionKey("b.py", "handler")
	keyC := model.NewFunctionKey("c.py", "pkg.load_config")

	return &model.ProgramModel{
		Functions: map[model.FunctionKey]model.FunctionDef{
			keyA: {Key: keyA, Name: "handler", QualifiedName: "handler", File: "a.py"},
			keyB: {Key: keyB, Name: "handler", QualifiedName: "handler", File: "b.py"},
			keyC: {Key: keyC, Name: "load_config", QualifiedName: "pkg.load_config", File: "c.py"},
		},
		NameToKeys: map[string][]model.FunctionKey{
			"handler":          {keyA, keyB},
			"load_config":      {keyC},
			"pkg.load_config":  {keyC},
		},
	}
}

func TestResolve_FullKey(t *testing.T) {
	m := buildModel()
	key, err := Resolve(m, "c.py::pkg.load_config")
	require.NoError(t, err)
	assert.Equal(t, "pkg.load_config", key.QualifiedName)
}

func TestResolve_UniqueBareName(t *testing.T) {
	m := buildModel()
	key, err := Resolve(m, "load_config")
	require.NoError(t, err)
	assert.Equal(t, "c.py", key.File)
}

func TestResolve_Ambiguous(t *testing.T) {
	m := buildModel()
	_, err := Resolve(m, "handler")
	require.Error(t, err)

	var ambiguous *AmbiguousFunctionError
	require.True(t, errors.As(err, &ambiguous))
	assert.Len(t, ambiguous.Candidates, 2)
}

func TestResolveInFile_NarrowsAmbiguity(t *testing.T) {
	m := buildModel()
	key, err := ResolveInFile(m, "handler", "b.py")
	require.NoError(t, err)
	assert.Equal(t, "b.py", key.File)
}

func TestResolve_NotFoundWithSuggestion(t *testing.T) {
	m := buildModel()
	_, err := Resolve(m, "handlr")

	var notFound *FunctionNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Contains(t, notFound.Suggestions, "handler")
}

func TestResolve_NotFoundNoSuggestion(t *testing.T) {
	m := buildModel()
	_, err := Resolve(m, "completely_unrelated_xyz")

	var notFound *FunctionNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Empty(t, notFound.Suggestions)
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, similarity("same", "same"))
	assert.Greater(t, similarity("handler", "handlr"), 0.5)
}
