package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/excflow/excflow/internal/detect"
	"github.com/excflow/excflow/internal/filecache"
	"github.com/excflow/excflow/internal/model"
)

// cacheWrite is one finished worker's payload for the coordinator goroutine
// to persist — the only place filecache.Put is ever called, satisfying its
// single-writer requirement no matter how many extraction workers run.
type cacheWrite struct {
	relPath     string
	contentHash string
	extraction  model.FileExtraction
}

// DirectoryWithCache is Directory, but a file whose content hash is already
// present in cache skips re-parsing entirely, and every freshly parsed file
// is written back through a single coordinator goroutine — the extraction
// workers only ever read the cache concurrently.
func DirectoryWithCache(ctx context.Context, root string, registry detect.Registry, cache *filecache.Cache) ([]model.FileExtraction, error) {
	if cache == nil {
		return Directory(ctx, root, registry)
	}

	files, err := discoverPythonFiles(root)
	if err != nil {
		return nil, fmt.Errorf("discover python files under %s: %w", root, err)
	}

	results := make([]model.FileExtraction, len(files))
	writes := make(chan cacheWrite, len(files))

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
			close(writes)
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

			hash := filecache.ContentHash(source)
			if cached, ok, getErr := cache.Get(relPath, hash); getErr == nil && ok {
				results[i] = cached
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
			writes <- cacheWrite{relPath: relPath, contentHash: hash, extraction: extraction}
			return nil
		})
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for w := range writes {
			_ = cache.Put(w.relPath, w.contentHash, w.extraction)
		}
	}()

	waitErr := group.Wait()
	close(writes)
	<-done
	if waitErr != nil {
		return nil, waitErr
	}
	return results, nil
}
