package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/excflow/excflow/internal/assemble"
	"github.com/excflow/excflow/internal/model"
	"github.com/excflow/excflow/internal/propagate"
	"github.com/excflow/excflow/internal/query"
	"github.com/excflow/excflow/internal/stubs"
)

func buildTestEngine(t *testing.T) *query.Engine {
	t.Helper()
	inner := model.NewFunctionKey("app.py", "load")
	outer := model.NewFunctionKey("app.py", "index")

	extractions := []model.FileExtraction{
		{
			File: "app.py",
			Functions: []model.FunctionDef{
				{Key: inner, Name: "load", QualifiedName: "load", File: "app.py", Line: 1},
				{Key: outer, Name: "index", QualifiedName: "index", File: "app.py", Line: 10},
			},
			Raises: []model.RaiseSite{
				{Location: model.Location{File: "app.py", Line: 2}, Function: inner, ExceptionType: "ValueError"},
			},
			Calls: []model.CallSite{
				{Location: model.Location{File: "app.py", Line: 11}, Caller: outer, CalleeBareName: "load"},
			},
			Entrypoints: []model.Entrypoint{
				{Location: model.Location{File: "app.py", Line: 10}, Function: "index", Kind: model.EntrypointHTTPRoute},
			},
		},
	}
	m := assemble.Build("/proj", extractions)
	result := propagate.Propagate(m, stubs.New(), model.ModeDefault)
	return query.New(m, result)
}

func TestTextFormatter_FormatRaises(t *testing.T) {
	e := buildTestEngine(t)
	raises, err := e.FindRaises("load")
	require.NoError(t, err)

	var buf bytes.Buffer
	f := NewTextFormatterWithWriter(&buf, nil, nil)
	require.NoError(t, f.FormatRaises("load", raises))
	assert.Contains(t, buf.String(), "ValueError")
}

func TestTextFormatter_FormatRaises_Empty(t *testing.T) {
	var buf bytes.Buffer
	f := NewTextFormatterWithWriter(&buf, nil, nil)
	require.NoError(t, f.FormatRaises("quiet", nil))
	assert.Contains(t, buf.String(), "raises nothing")
}

func TestTextFormatter_FormatEscapes(t *testing.T) {
	e := buildTestEngine(t)
	escapes, err := e.FindEscapes("index")
	require.NoError(t, err)

	var buf bytes.Buffer
	f := NewTextFormatterWithWriter(&buf, nil, nil)
	require.NoError(t, f.FormatEscapes("index", escapes))
	out := buf.String()
	assert.Contains(t, out, "ValueError")
	assert.Contains(t, out, "confidence")
}

func TestTextFormatter_FormatAudit(t *testing.T) {
	e := buildTestEngine(t)
	results := e.AuditIntegration()

	var buf bytes.Buffer
	f := NewTextFormatterWithWriter(&buf, nil, nil)
	require.NoError(t, f.FormatAudit(results))
	out := buf.String()
	assert.Contains(t, out, "index")
	assert.Contains(t, out, "uncovered")
}

func TestTextFormatter_FormatCallers(t *testing.T) {
	e := buildTestEngine(t)
	calls, err := e.FindCallers("load")
	require.NoError(t, err)

	var buf bytes.Buffer
	f := NewTextFormatterWithWriter(&buf, nil, nil)
	require.NoError(t, f.FormatCallers("load", calls))
	assert.Contains(t, buf.String(), "index")
}
