package cmd

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/excflow/excflow/data"
	"github.com/excflow/excflow/internal/assemble"
	"github.com/excflow/excflow/internal/config"
	"github.com/excflow/excflow/internal/detect"
	"github.com/excflow/excflow/internal/extract"
	"github.com/excflow/excflow/internal/filecache"
	"github.com/excflow/excflow/internal/model"
	"github.com/excflow/excflow/internal/propagate"
	"github.com/excflow/excflow/internal/query"
	"github.com/excflow/excflow/internal/stubs"
	"github.com/excflow/excflow/internal/telemetry"
	"github.com/excflow/excflow/output"
)

// configDirName is the project-local directory every config, stub,
// detector and cache file lives under (spec.md §6).
const configDirName = ".excflow"

// session bundles everything a command needs to answer one or more
// queries against a single analyzed directory.
type session struct {
	engine *query.Engine
	model  *model.ProgramModel
	stubs  *stubs.Library
	cfg    *config.Config
	logger *output.Logger
}

// engineForMode returns a query.Engine propagated under mode instead of
// the session's configured resolution mode — propagate.Propagate caches by
// (model, lib, mode), so this only recomputes when mode actually differs
// from what buildSession already ran (spec §6's per-query --strict and
// --aggressive overrides on `escapes`; `trace` has no such flags and uses
// the session's engine).
func (s *session) engineForMode(mode model.ResolutionMode) *query.Engine {
	if mode == s.cfg.ResolutionMode {
		return s.engine
	}
	result := propagate.Propagate(s.model, s.stubs, mode)
	e := query.New(s.model, result)
	e.HandledBaseClasses = s.cfg.HandledBaseClasses
	return e
}

func newLogger() *output.Logger {
	verbosity := output.VerbosityDefault
	switch {
	case debugFlag:
		verbosity = output.VerbosityDebug
	case verboseFlag:
		verbosity = output.VerbosityVerbose
	}
	logger := output.NewLogger(verbosity)
	logger.SetSessionID(telemetry.SessionID())
	return logger
}

// buildSession loads config, merges the stub library, extracts, assembles
// and propagates the project at the --directory flag, returning a ready
// query.Engine.
func buildSession(ctx context.Context) (*session, error) {
	logger := newLogger()

	cfg, err := config.Load(directory)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	lib, err := loadStubs(directory)
	if err != nil {
		return nil, fmt.Errorf("load stubs: %w", err)
	}

	registry, err := detect.LoadDir(filepath.Join(directory, configDirName, "detectors"), detect.Default())
	if err != nil {
		return nil, fmt.Errorf("load detectors: %w", err)
	}

	extractions, err := runExtraction(ctx, logger, registry)
	if err != nil {
		return nil, err
	}
	extractions = applyExclusions(extractions, cfg.Exclude)

	stopTiming := logger.StartTiming("assemble")
	m := assemble.Build(directory, extractions)
	result := propagate.Propagate(m, lib, cfg.ResolutionMode)
	stopTiming()
	logger.PrintTimingSummary()

	engine := query.New(m, result)
	engine.HandledBaseClasses = cfg.HandledBaseClasses

	return &session{engine: engine, model: m, stubs: lib, cfg: cfg, logger: logger}, nil
}

func runExtraction(ctx context.Context, logger *output.Logger, registry detect.Registry) ([]model.FileExtraction, error) {
	logger.StartProgress("Extracting", -1)
	defer logger.FinishProgress()

	if noCache {
		return extract.Directory(ctx, directory, registry)
	}

	cachePath := filepath.Join(directory, configDirName, "cache.db")
	if err := os.MkdirAll(filepath.Dir(cachePath), 0o755); err != nil {
		return extract.Directory(ctx, directory, registry)
	}
	cache, err := filecache.Open(cachePath)
	if err != nil {
		logger.Warning("cache unavailable, extracting without it: %v", err)
		return extract.Directory(ctx, directory, registry)
	}
	defer cache.Close()

	return extract.DirectoryWithCache(ctx, directory, registry, cache)
}

// applyExclusions drops every FileExtraction whose file matches one of
// the config's glob exclusion patterns.
func applyExclusions(extractions []model.FileExtraction, patterns []string) []model.FileExtraction {
	if len(patterns) == 0 {
		return extractions
	}
	out := extractions[:0]
	for _, e := range extractions {
		excluded := false
		for _, pattern := range patterns {
			if matched, _ := filepath.Match(pattern, e.File); matched {
				excluded = true
				break
			}
		}
		if !excluded {
			out = append(out, e)
		}
	}
	return out
}

// loadStubs merges the bundled stub library (embedded in the binary) with
// any project-local stubs under <directory>/.excflow/stubs/, the latter
// overriding the former for a shared qualified name.
func loadStubs(directory string) (*stubs.Library, error) {
	lib := stubs.New()

	bundled, err := fs.Sub(data.StubsFS, "stubs")
	if err != nil {
		return nil, fmt.Errorf("open bundled stubs: %w", err)
	}
	if err := lib.LoadFS(bundled); err != nil {
		return nil, err
	}

	projectDir := filepath.Join(directory, configDirName, "stubs")
	if _, statErr := os.Stat(projectDir); statErr == nil {
		if err := lib.LoadDir(projectDir); err != nil {
			return nil, err
		}
	}
	return lib, nil
}
