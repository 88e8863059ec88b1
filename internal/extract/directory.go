package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/excflow/excflow/internal/detect"
	"github.com/excflow/excflow/internal/model"
)

// Directory discovers every *.py file under root and extracts each one
// concurrently, bounded by min(file count, GOMAXPROCS) workers, using
// errgroup+semaphore for the bounded fan-out and first-error propagation
// (spec §5: "parallel per-file extraction fan-out").
//
// A file that fails to parse never aborts the run: its FileExtraction
// degrades to model.Empty with a Diagnostic, and Directory continues.
// Results are returned in a deterministic order (filepath.WalkDir's
// lexical walk order), independent of which goroutine finished first.
func Directory(ctx context.Context, root string, registry detect.Registry) ([]model.FileExtraction, error) {
	files, err := discoverPythonFiles(root)
	if err != nil {
		return nil, fmt.Errorf("discover python files under %s: %w", root, err)
	}

	results := make([]model.FileExtraction, len(files))

	workers := runtime.GOMAXPROCS(0)
	if len(files) < workers {
		workers = len(files)
	}
	if workers < 1 {
		workers = 1
	}

	sem := semaphore.NewWeighted(int64(workers))
	group, groupCtx := errgroup.WithContext(ctx)

	for i, relPath := range files {
		i, relPath := i, relPath
		if err := sem.Acquire(groupCtx, 1); err != nil {
			return nil, err
		}
		group.Go(func() error {
			defer sem.Release(1)

			absPath := filepath.Join(root, relPath)
			source, readErr := os.ReadFile(absPath)
			if readErr != nil {
				results[i] = model.Empty(relPath, model.Diagnostic{
					File:    relPath,
					Message: fmt.Sprintf("read file: %v", readErr),
				})
				return nil
			}

			extraction, extractErr := File(groupCtx, relPath, source, registry)
			if extractErr != nil {
				results[i] = model.Empty(relPath, model.Diagnostic{
					File:    relPath,
					Message: fmt.Sprintf("parse error: %v", extractErr),
				})
				return nil
			}
			results[i] = extraction
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// excludedDirs are never descended into, matching the common convention for
// virtualenvs, caches, and vendored dependencies a Python project excludes
// from its own tooling.
var excludedDirs = map[string]bool{
	".git":           true,
	".venv":          true,
	"venv":           true,
	"__pycache__":    true,
	"node_modules":   true,
	".mypy_cache":    true,
	".pytest_cache":  true,
	"site-packages":  true,
}

func discoverPythonFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if excludedDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".py") {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
