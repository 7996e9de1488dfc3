// Package watch monitors the authored source file for external edits and
// triggers a full reload of the editing session when one lands.
package watch

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"livecanvas/internal/logging"
)

// ReloadFunc is invoked once per settled burst of external edits to the
// authored file.
type ReloadFunc func(ctx context.Context, path string)

// SourceWatcher watches the directory containing the authored file and
// debounces rapid saves into a single reload. Watching the directory
// rather than the file survives editors that replace on save.
type SourceWatcher struct {
	mu          sync.RWMutex
	watcher     *fsnotify.Watcher
	path        string
	reload      ReloadFunc
	debounceMap map[string]time.Time
	debounceDur time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool

	stats Stats
}

// Stats tracks watcher activity for debugging.
type Stats struct {
	EventsSeen       int
	ReloadsTriggered int
	Errors           int
	LastEventTime    time.Time
	LastEventOp      string
}

// New creates a watcher for the authored file at path.
func New(path string, reload ReloadFunc) (*SourceWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &SourceWatcher{
		watcher:     watcher,
		path:        filepath.Clean(path),
		reload:      reload,
		debounceMap: make(map[string]time.Time),
		debounceDur: 500 * time.Millisecond,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// SetDebounce overrides the settle window. Must be called before Start.
func (w *SourceWatcher) SetDebounce(d time.Duration) {
	w.debounceDur = d
}

// Start begins watching. Non-blocking; the event loop runs in a goroutine.
func (w *SourceWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		return err
	}
	logging.Watch("watching %s for external edits", w.path)

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for the loop to drain.
func (w *SourceWatcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		logging.Get(logging.CategoryWatch).Error("close watcher: %v", err)
	}
	logging.Watch("watcher stopped")
}

// IsWatching reports whether the event loop is running.
func (w *SourceWatcher) IsWatching() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

// GetStats returns a copy of the activity counters.
func (w *SourceWatcher) GetStats() Stats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.stats
}

func (w *SourceWatcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Get(logging.CategoryWatch).Error("watch error: %v", err)
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()

		case <-ticker.C:
			w.processSettled(ctx)
		}
	}
}

func (w *SourceWatcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}
	// Chmod-only events are editor noise.
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
		return
	}

	logging.WatchDebug("%s event for %s", strings.ToLower(event.Op.String()), event.Name)

	w.mu.Lock()
	w.stats.EventsSeen++
	w.stats.LastEventTime = time.Now()
	w.stats.LastEventOp = event.Op.String()
	w.debounceMap[w.path] = time.Now()
	w.mu.Unlock()
}

// processSettled fires the reload for edits that have sat past the
// debounce window.
func (w *SourceWatcher) processSettled(ctx context.Context) {
	w.mu.Lock()
	now := time.Now()
	toProcess := make([]string, 0, len(w.debounceMap))
	for path, at := range w.debounceMap {
		if now.Sub(at) >= w.debounceDur {
			toProcess = append(toProcess, path)
			delete(w.debounceMap, path)
		}
	}
	if len(toProcess) > 0 {
		w.stats.ReloadsTriggered += len(toProcess)
	}
	w.mu.Unlock()

	for _, path := range toProcess {
		logging.Watch("external edit settled, reloading %s", path)
		w.reload(ctx, path)
	}
}
