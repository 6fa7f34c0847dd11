// Package watcher keeps a directory of PDFs indexed. New and changed files
// are ingested for the owner, and removed files have their documents
// deleted.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

var log = logger.Named("watcher")

// DefaultDebounce is how long a file must be quiet before it is ingested.
// Copies arrive as a burst of write events.
const DefaultDebounce = 500 * time.Millisecond

// ChangeType describes what happened to a watched file.
type ChangeType int

// Change types.
const (
	ChangeCreated ChangeType = iota
	ChangeUpdated
	ChangeDeleted
)

// String returns the string representation.
func (t ChangeType) String() string {
	switch t {
	case ChangeCreated:
		return "created"
	case ChangeUpdated:
		return "updated"
	case ChangeDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Change is a filesystem change to a PDF.
type Change struct {
	Type ChangeType
	Path string
}

// Result reports what the watcher did for one file.
type Result struct {
	Path       string
	Change     ChangeType
	DocumentID string
	Ingest     *domain.IngestResult
	Err        error
}

// Watcher ingests PDFs found under a directory.
type Watcher struct {
	dir       string
	ingest    driving.IngestService
	documents driving.DocumentService
	owner     domain.Identity
	debounce  time.Duration

	mu    sync.Mutex
	known map[string]string // path -> document ID
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period before a changed file is ingested.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// New creates a watcher over dir. Documents may be nil, in which case
// removed files are left indexed.
func New(
	dir string,
	ingest driving.IngestService,
	documents driving.DocumentService,
	owner domain.Identity,
	opts ...Option,
) *Watcher {
	w := &Watcher{
		dir:       dir,
		ingest:    ingest,
		documents: documents,
		owner:     owner,
		debounce:  DefaultDebounce,
		known:     make(map[string]string),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Dir returns the watched directory.
func (w *Watcher) Dir() string {
	return w.dir
}

// Scan ingests every PDF already under the directory.
func (w *Watcher) Scan(ctx context.Context) ([]Result, error) {
	var results []Result
	err := filepath.WalkDir(w.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != w.dir && isHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !isPDF(path) {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		results = append(results, w.apply(ctx, Change{Type: ChangeCreated, Path: path}))
		return nil
	})
	if err != nil {
		return results, fmt.Errorf("scan %s: %w", w.dir, err)
	}
	return results, nil
}

// Run watches the directory until ctx is cancelled, sending a Result for
// every file it acts on. The results channel is not closed.
func (w *Watcher) Run(ctx context.Context, results chan<- Result) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	if err := w.addTree(fsw, w.dir); err != nil {
		return err
	}
	log.Info("watching %s", w.dir)

	due := make(chan Change)
	var timersMu sync.Mutex
	timers := make(map[string]*time.Timer)
	defer func() {
		timersMu.Lock()
		for _, t := range timers {
			t.Stop()
		}
		timersMu.Unlock()
	}()

	schedule := func(change Change) {
		timersMu.Lock()
		defer timersMu.Unlock()
		if t, ok := timers[change.Path]; ok {
			t.Stop()
		}
		timers[change.Path] = time.AfterFunc(w.debounce, func() {
			timersMu.Lock()
			delete(timers, change.Path)
			timersMu.Unlock()
			select {
			case due <- change:
			case <-ctx.Done():
			}
		})
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) && isDir(event.Name) && !isHidden(event.Name) {
				if err := w.addTree(fsw, event.Name); err != nil {
					log.Warn("%v", err)
				}
				continue
			}
			if change := w.handleFsEvent(event); change != nil {
				schedule(*change)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			log.Warn("watch error: %v", err)

		case change := <-due:
			result := w.apply(ctx, change)
			select {
			case results <- result:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// addTree watches root and every non-hidden directory below it.
func (w *Watcher) addTree(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && isHidden(path) {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

// handleFsEvent converts an fsnotify event into a change. Directories,
// hidden files, non-PDFs and chmod-only events yield nil. A rename is
// reported for the old name, so it becomes a delete.
func (w *Watcher) handleFsEvent(event fsnotify.Event) *Change {
	if isHidden(event.Name) || !isPDF(event.Name) {
		return nil
	}

	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return &Change{Type: ChangeDeleted, Path: event.Name}
	case event.Has(fsnotify.Create):
		if isDir(event.Name) {
			return nil
		}
		return &Change{Type: ChangeCreated, Path: event.Name}
	case event.Has(fsnotify.Write):
		if isDir(event.Name) {
			return nil
		}
		return &Change{Type: ChangeUpdated, Path: event.Name}
	default:
		return nil
	}
}

// apply ingests or deletes the document behind a change.
func (w *Watcher) apply(ctx context.Context, change Change) Result {
	result := Result{Path: change.Path, Change: change.Type}

	if change.Type == ChangeDeleted {
		result.DocumentID, result.Err = w.remove(ctx, change.Path)
		return result
	}

	data, err := os.ReadFile(change.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// Gone before it settled; treat as a delete.
			result.Change = ChangeDeleted
			result.DocumentID, result.Err = w.remove(ctx, change.Path)
			return result
		}
		result.Err = fmt.Errorf("read %s: %w", change.Path, err)
		return result
	}

	res, err := w.ingest.Ingest(ctx, domain.IngestRequest{
		Owner: w.owner,
		Name:  filepath.Base(change.Path),
		Data:  data,
	})
	if err != nil {
		result.Err = err
		return result
	}

	result.Ingest = res
	result.DocumentID = res.DocumentID

	w.mu.Lock()
	previous, had := w.known[change.Path]
	w.known[change.Path] = res.DocumentID
	w.mu.Unlock()

	// The file's content changed, so its old document is stale.
	if had && previous != res.DocumentID {
		w.deleteUnreferenced(ctx, previous)
	}
	return result
}

// remove forgets a path and deletes its document unless another watched
// file has the same content.
func (w *Watcher) remove(ctx context.Context, path string) (string, error) {
	w.mu.Lock()
	id, ok := w.known[path]
	delete(w.known, path)
	w.mu.Unlock()

	if !ok {
		return "", nil
	}
	if err := w.deleteUnreferenced(ctx, id); err != nil {
		return id, err
	}
	return id, nil
}

func (w *Watcher) deleteUnreferenced(ctx context.Context, id string) error {
	if w.documents == nil {
		return nil
	}

	w.mu.Lock()
	for _, other := range w.known {
		if other == id {
			w.mu.Unlock()
			return nil
		}
	}
	w.mu.Unlock()

	err := w.documents.Delete(ctx, w.owner, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		log.Warn("delete %s: %v", id, err)
	}
	return err
}

func isPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

func isHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
