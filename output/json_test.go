package output

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONFormatter_Format(t *testing.T) {
	e := buildTestEngine(t)
	escapes, err := e.FindEscapes("index")
	require.NoError(t, err)

	var buf bytes.Buffer
	f := NewJSONFormatterWithWriter(&buf, "0.1.0-test")
	require.NoError(t, f.Format("escapes", escapes))

	var envelope JSONEnvelope
	require.NoError(t, json.Unmarshal(buf.Bytes(), &envelope))
	assert.Equal(t, "excflow", envelope.Tool)
	assert.Equal(t, "escapes", envelope.Command)
	assert.Equal(t, "0.1.0-test", envelope.Version)
}
