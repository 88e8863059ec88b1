package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/excflow/excflow/internal/model"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	configDir := filepath.Join(dir, ".excflow")
	require.NoError(t, os.MkdirAll(configDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(content), 0o644))
}

func TestLoad_MissingFileReturnsDefault(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, model.ModeDefault, cfg.ResolutionMode)
	assert.Equal(t, []string{"Exception"}, cfg.HandledBaseClasses)
	assert.Equal(t, defaultTraceMaxDepth, cfg.TraceMaxDepth)
}

func TestLoad_ParsesTraceMaxDepth(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "trace_max_depth: 5\n")
	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.TraceMaxDepth)
}

func TestLoad_MissingTraceMaxDepthFallsBackToDefault(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "resolution_mode: strict\n")
	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, defaultTraceMaxDepth, cfg.TraceMaxDepth)
}

func TestLoad_ParsesFields(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
resolution_mode: strict
exclude:
  - "**/tests/**"
handled_base_classes:
  - Exception
  - AppError
async_boundaries:
  - 'CalleeName == "asyncio.create_task"'
`)
	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, model.ModeStrict, cfg.ResolutionMode)
	assert.Equal(t, []string{"**/tests/**"}, cfg.Exclude)
	assert.ElementsMatch(t, []string{"Exception", "AppError"}, cfg.HandledBaseClasses)
}

func TestLoad_RejectsInvalidResolutionMode(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "resolution_mode: yolo\n")
	_, err := Load(dir)
	require.Error(t, err)
	var invalid *ErrInvalid
	require.ErrorAs(t, err, &invalid)
}

func TestIsAsyncBoundary_Matches(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
async_boundaries:
  - 'CalleeName == "create_task"'
`)
	cfg, err := Load(dir)
	require.NoError(t, err)

	matched, err := cfg.IsAsyncBoundary(CallEnv{CalleeName: "create_task"})
	require.NoError(t, err)
	assert.True(t, matched)

	matched, err = cfg.IsAsyncBoundary(CallEnv{CalleeName: "other"})
	require.NoError(t, err)
	assert.False(t, matched)
}

func TestLoad_RejectsUncompilableAsyncBoundary(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
async_boundaries:
  - 'this is not an expression ((('
`)
	_, err := Load(dir)
	require.Error(t, err)
}
