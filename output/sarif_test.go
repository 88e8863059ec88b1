package output

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSARIFFormatter_Format_OnlyUncovered(t *testing.T) {
	e := buildTestEngine(t)
	audit := e.AuditIntegration()

	var buf bytes.Buffer
	f := NewSARIFFormatterWithWriter(&buf)
	require.NoError(t, f.Format(audit))

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	runs := doc["runs"].([]interface{})
	require.Len(t, runs, 1)
	run := runs[0].(map[string]interface{})
	results := run["results"].([]interface{})
	require.Len(t, results, 1)
}

func TestSARIFFormatter_Format_NoEntrypoints(t *testing.T) {
	var buf bytes.Buffer
	f := NewSARIFFormatterWithWriter(&buf)
	require.NoError(t, f.Format(nil))
	assert.Contains(t, buf.String(), "runs")
}
