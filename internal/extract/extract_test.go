package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/excflow/excflow/internal/detect"
)

func TestFile_FunctionAndRaise(t *testing.T) {
	source := []byte(`
def load(path):
    if not path:
        raise ValueError("empty path")
    return path
`)
	fx, err := File(context.Background(), "mod.py", source, detect.Default())
	require.NoError(t, err)

	require.Len(t, fx.Functions, 1)
	assert.Equal(t, "load", fx.Functions[0].Name)

	require.Len(t, fx.Raises, 1)
	assert.Equal(t, "ValueError", fx.Raises[0].ExceptionType)
	assert.False(t, fx.Raises[0].IsReraise)
}

func TestFile_TryExceptBareRaise(t *testing.T) {
	source := []byte(`
def run():
    try:
        do_work()
    except ConnectionError:
        raise
`)
	fx, err := File(context.Background(), "mod.py", source, detect.Default())
	require.NoError(t, err)

	require.Len(t, fx.Catches, 1)
	assert.Equal(t, []string{"ConnectionError"}, fx.Catches[0].CaughtTypes)

	require.Len(t, fx.Raises, 1)
	assert.Equal(t, "ConnectionError", fx.Raises[0].ExceptionType)
	assert.True(t, fx.Raises[0].IsReraise)
}

func TestFile_RaiseBoundName(t *testing.T) {
	source := []byte(`
def run():
    try:
        do_work()
    except ConnectionError as e:
        raise e
`)
	fx, err := File(context.Background(), "mod.py", source, detect.Default())
	require.NoError(t, err)

	require.Len(t, fx.Catches, 1)
	assert.Equal(t, "e", fx.Catches[0].BoundName)

	require.Len(t, fx.Raises, 1)
	assert.Equal(t, "ConnectionError", fx.Raises[0].ExceptionType)
	assert.True(t, fx.Raises[0].IsReraise, "raise e re-raises the bound exception, it doesn't raise a new type literally named \"e\"")
}

func TestFile_RaiseUnboundIdentifierIsNotMistakenForReraise(t *testing.T) {
	source := []byte(`
def run():
    try:
        do_work()
    except ConnectionError as e:
        other = build_error()
        raise other
`)
	fx, err := File(context.Background(), "mod.py", source, detect.Default())
	require.NoError(t, err)

	require.Len(t, fx.Raises, 1)
	assert.Equal(t, "other", fx.Raises[0].ExceptionType)
	assert.False(t, fx.Raises[0].IsReraise)
}

func TestFile_TupleExceptClause(t *testing.T) {
	source := []byte(`
def run():
    try:
        do_work()
    except (ValueError, TypeError) as e:
        log(e)
`)
	fx, err := File(context.Background(), "mod.py", source, detect.Default())
	require.NoError(t, err)

	require.Len(t, fx.Catches, 1)
	assert.ElementsMatch(t, []string{"ValueError", "TypeError"}, fx.Catches[0].CaughtTypes)
	assert.Equal(t, "e", fx.Catches[0].BoundName)
}

func TestFile_BareExceptCatchesAll(t *testing.T) {
	source := []byte(`
def run():
    try:
        do_work()
    except:
        pass
`)
	fx, err := File(context.Background(), "mod.py", source, detect.Default())
	require.NoError(t, err)

	require.Len(t, fx.Catches, 1)
	assert.True(t, fx.Catches[0].CatchesAll())
}

func TestFile_ClassHierarchyAndException(t *testing.T) {
	source := []byte(`
class MyError(ValueError):
    pass
`)
	fx, err := File(context.Background(), "mod.py", source, detect.Default())
	require.NoError(t, err)

	require.Len(t, fx.Classes, 1)
	assert.Equal(t, []string{"ValueError"}, fx.Classes[0].BaseNames)
	assert.True(t, fx.Classes[0].IsException)
}

func TestFile_ImportsSimpleAndFrom(t *testing.T) {
	source := []byte(`
import os
import numpy as np
from json import loads
from json import dumps as to_json
`)
	fx, err := File(context.Background(), "mod.py", source, detect.Default())
	require.NoError(t, err)

	resolved, ok := fx.Imports.Resolve("os")
	require.True(t, ok)
	assert.Equal(t, "os", resolved)

	resolved, ok = fx.Imports.Resolve("np")
	require.True(t, ok)
	assert.Equal(t, "numpy", resolved)

	resolved, ok = fx.Imports.Resolve("loads")
	require.True(t, ok)
	assert.Equal(t, "json.loads", resolved)

	resolved, ok = fx.Imports.Resolve("to_json")
	require.True(t, ok)
	assert.Equal(t, "json.dumps", resolved)
}

func TestFile_FlaskRouteDecoratorIsEntrypoint(t *testing.T) {
	source := []byte(`
@app.route("/users")
def list_users():
    return []
`)
	fx, err := File(context.Background(), "views.py", source, detect.Default())
	require.NoError(t, err)

	require.Len(t, fx.Entrypoints, 1)
	assert.Equal(t, "http-route", string(fx.Entrypoints[0].Kind))
}

func TestFile_CallExtraction(t *testing.T) {
	source := []byte(`
def run():
    result = compute(1, 2, mode="fast")
`)
	fx, err := File(context.Background(), "mod.py", source, detect.Default())
	require.NoError(t, err)

	require.Len(t, fx.Calls, 1)
	assert.Equal(t, "compute", fx.Calls[0].CalleeBareName)
	assert.False(t, fx.Calls[0].IsMethodCall)
	require.Len(t, fx.Calls[0].Arguments, 3)
	assert.Equal(t, "mode", fx.Calls[0].Arguments[2].Keyword)
}

func TestFile_MethodCallIsFlagged(t *testing.T) {
	source := []byte(`
def run(session):
    session.get("/x")
`)
	fx, err := File(context.Background(), "mod.py", source, detect.Default())
	require.NoError(t, err)

	require.Len(t, fx.Calls, 1)
	assert.Equal(t, "get", fx.Calls[0].CalleeBareName)
	assert.True(t, fx.Calls[0].IsMethodCall)
}

func TestFile_MainGuardIsCLIEntrypoint(t *testing.T) {
	source := []byte(`
if __name__ == "__main__":
    main()
`)
	fx, err := File(context.Background(), "script.py", source, detect.Default())
	require.NoError(t, err)

	require.Len(t, fx.Entrypoints, 1)
	assert.Equal(t, "cli-script", string(fx.Entrypoints[0].Kind))
}
