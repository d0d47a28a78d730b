package catalog

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"coffebuck/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// Source hands out the current catalog snapshot.
type Source interface {
	Current() *Catalog
}

// Static is a Source that never changes.
type Static struct{ c *Catalog }

// NewStatic wraps a catalog as a Source.
func NewStatic(c *Catalog) Static { return Static{c: c} }

// Current returns the wrapped catalog.
func (s Static) Current() *Catalog { return s.c }

// Watcher reloads a catalog file when it changes on disk. Readers always
// see a complete, validated snapshot; an invalid edit keeps the previous one.
type Watcher struct {
	path     string
	debounce time.Duration
	current  atomic.Pointer[Catalog]

	mu        sync.Mutex
	listeners []func(*Catalog)
}

// NewWatcher loads path and returns a watcher serving it. Run must be called
// to pick up later edits.
func NewWatcher(path string) (*Watcher, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	w := &Watcher{path: path, debounce: 150 * time.Millisecond}
	w.current.Store(c)
	return w, nil
}

// Current returns the latest valid snapshot.
func (w *Watcher) Current() *Catalog {
	return w.current.Load()
}

// OnReload registers fn to be called with each new snapshot.
func (w *Watcher) OnReload(fn func(*Catalog)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.listeners = append(w.listeners, fn)
}

// Reload re-reads the file immediately.
func (w *Watcher) Reload() error {
	c, err := Load(w.path)
	if err != nil {
		return err
	}
	w.current.Store(c)

	w.mu.Lock()
	listeners := slices.Clone(w.listeners)
	w.mu.Unlock()
	for _, fn := range listeners {
		fn(c)
	}
	return nil
}

// Run watches the catalog's directory until ctx is cancelled. Editors often
// replace files by rename, so the directory is watched rather than the file.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create catalog watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.path, err)
	}
	logging.Catalog("watching %s", w.path)

	target := filepath.Clean(w.path)
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			if err := w.Reload(); err != nil {
				logging.CatalogWarn("reload of %s rejected, keeping previous catalog: %v", w.path, err)
				logging.Audit().CatalogReload(w.Current().Version(), w.Current().Len(), err.Error())
				continue
			}
			logging.Catalog("reloaded %s (%d items)", w.path, w.Current().Len())
			logging.Audit().CatalogReload(w.Current().Version(), w.Current().Len(), "")

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logging.CatalogWarn("watcher error: %v", err)
		}
	}
}
