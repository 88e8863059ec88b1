package assemble

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/excflow/excflow/internal/model"
)

func TestBuild_MergesFunctionsAndClasses(t *testing.T) {
	keyA := model.NewFunctionKey("a.py", "handler")
	keyB := model.NewFunctionKey("b.py", "helper")

	extractions := []model.FileExtraction{
		{
			File:      "a.py",
			Functions: []model.FunctionDef{{Key: keyA, Name: "handler", QualifiedName: "handler", File: "a.py", Line: 3}},
			Classes:   []model.ClassDef{{Name: "AppError", QualifiedName: "AppError", File: "a.py", BaseNames: []string{"Exception"}, IsException: true}},
			Imports:   model.NewImportMap("a.py"),
		},
		{
			File:      "b.py",
			Functions: []model.FunctionDef{{Key: keyB, Name: "helper", QualifiedName: "helper", File: "b.py", Line: 1}},
			Imports:   model.NewImportMap("b.py"),
		},
	}

	m := Build("/proj", extractions)

	assert.Len(t, m.Functions, 2)
	assert.Contains(t, m.Functions, keyA)
	assert.Contains(t, m.NameToKeys, "handler")
	assert.True(t, m.Hierarchy.IsSubclassOf("AppError", "Exception"))
}

func TestBuild_DeterministicOrdering(t *testing.T) {
	extractions := []model.FileExtraction{
		{
			File: "z.py",
			Raises: []model.RaiseSite{
				{Location: model.Location{File: "z.py", Line: 5}, ExceptionType: "ValueError"},
			},
		},
		{
			File: "a.py",
			Raises: []model.RaiseSite{
				{Location: model.Location{File: "a.py", Line: 2}, ExceptionType: "TypeError"},
			},
		},
	}

	m := Build("/proj", extractions)
	require.Len(t, m.RaiseSites, 2)
	assert.Equal(t, "a.py", m.RaiseSites[0].Location.File)
	assert.Equal(t, "z.py", m.RaiseSites[1].Location.File)
}

func TestBuild_BuiltinExceptionRootsAreSeeded(t *testing.T) {
	m := Build("/proj", nil)
	assert.True(t, m.Hierarchy.IsSubclassOf("Exception", "Exception"))
	assert.True(t, m.Hierarchy.IsSubclassOf("BaseException", "BaseException"))
}

func TestBuild_NameToKeysDeduplicates(t *testing.T) {
	key := model.NewFunctionKey("a.py", "handler")
	extractions := []model.FileExtraction{
		{
			File:      "a.py",
			Functions: []model.FunctionDef{{Key: key, Name: "handler", QualifiedName: "handler", File: "a.py"}},
		},
	}
	m := Build("/proj", extractions)
	assert.Len(t, m.NameToKeys["handler"], 1)
}
