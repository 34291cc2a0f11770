package beguile

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	beguilert "github.com/GigiaJ/Beguile/internal/runtime"
	"github.com/GigiaJ/Beguile/internal/store"
)

// workItem holds everything an extraction worker needs.
type workItem struct {
	path    string
	lang    string
	fileID  int64
	content string
	batch   *store.BatchedStore

	// Exported definitions and module from before the change, compared
	// after commit.
	oldSymbols []capturedSymbol
	oldModule  string
}

// IndexFilesParallel indexes files using a three-phase parallel pipeline:
//
//	Phase A (serial):   Hash check, delete old data, prepare file records.
//	Phase B (parallel): Parse and extract via a worker pool.
//	Phase C (serial):   Commit batches to SQLite, collect affected dependents.
func (e *Engine) IndexFilesParallel(ctx context.Context, paths []string) error {
	if e.affected == nil {
		e.affected = make(map[int64]bool)
	}

	// ---- Phase A: Serial file preparation ----
	var items []workItem
	for _, path := range paths {
		item, skip, err := e.prepareFile(path)
		if err != nil {
			return fmt.Errorf("prepare %s: %w", path, err)
		}
		if skip {
			continue
		}
		items = append(items, item)
	}

	if len(items) == 0 {
		return nil
	}

	// ---- Phase B: Parallel extraction ----
	numWorkers := max(min(runtime.NumCPU(), len(items)), 1)

	workCh := make(chan workItem, len(items))
	for _, item := range items {
		workCh <- item
	}
	close(workCh)

	type result struct {
		item workItem
		err  error
	}
	resultCh := make(chan result, len(items))

	var wg sync.WaitGroup
	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Each item owns its BatchedStore, so workers never share writes.
			for item := range workCh {
				var err error
				if err = ctx.Err(); err == nil {
					err = extractFile(item)
				}
				resultCh <- result{item: item, err: err}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	// ---- Phase C: Serial commit ----
	var errs []error
	for res := range resultCh {
		if res.err != nil {
			errs = append(errs, fmt.Errorf("extract %s: %w", res.item.path, res.err))
			continue
		}
		if err := e.commit(res.item); err != nil {
			errs = append(errs, fmt.Errorf("commit %s: %w", res.item.path, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("parallel indexing had %d error(s): %w", len(errs), errs[0])
	}
	return nil
}

// prepareFile does Phase A work for a single file: hash check, cleanup, file record.
// Returns (item, skip, error). skip=true means the file is unchanged or unsupported.
func (e *Engine) prepareFile(path string) (workItem, bool, error) {
	lang, ok := beguilert.LanguageForFile(path)
	if !ok {
		return workItem{}, true, nil
	}
	if e.languages != nil && !e.languages[lang] {
		return workItem{}, true, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return workItem{}, false, fmt.Errorf("read file: %w", err)
	}
	hash := store.ContentHash(content)

	existing, err := e.store.FileByPath(path)
	if err != nil {
		return workItem{}, false, fmt.Errorf("lookup file: %w", err)
	}
	if existing != nil && existing.Hash == hash {
		return workItem{}, true, nil // unchanged
	}

	var (
		oldSymbols []capturedSymbol
		oldModule  string
	)
	if existing != nil {
		oldSymbols, err = e.captureSymbols(existing.ID)
		if err != nil {
			return workItem{}, false, fmt.Errorf("capture old symbols: %w", err)
		}
		oldModule = existing.Module
		if err := e.store.DeleteFile(existing.ID); err != nil {
			return workItem{}, false, fmt.Errorf("delete old data: %w", err)
		}
	}

	// Insert new file record (real ID assigned by SQLite).
	text := string(content)
	fileID, err := e.store.InsertFile(&store.File{
		Path:        path,
		Language:    lang,
		Hash:        hash,
		LineCount:   lineCount(text),
		LastIndexed: time.Now(),
	})
	if err != nil {
		return workItem{}, false, fmt.Errorf("insert file: %w", err)
	}

	return workItem{
		path:       path,
		lang:       lang,
		fileID:     fileID,
		content:    text,
		batch:      store.NewBatchedStore(e.store),
		oldSymbols: oldSymbols,
		oldModule:  oldModule,
	}, false, nil
}
