package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"livecanvas/internal/logging"
)

// FileRegistry loads the scanner's JSON manifest once and serves lookups
// from memory. The manifest maps tag names to origins:
//
//	{"my-counter": {"symbol": "Counter", "kind": "local", "path": "widgets/Counter.js"}}
type FileRegistry struct {
	mu      sync.RWMutex
	entries map[string]Origin
	path    string
}

// NewFileRegistry reads the manifest at path.
func NewFileRegistry(path string) (*FileRegistry, error) {
	fr := &FileRegistry{path: path}
	if err := fr.Reload(); err != nil {
		return nil, err
	}
	return fr, nil
}

// Reload re-reads the manifest, replacing the whole entry set.
func (fr *FileRegistry) Reload() error {
	data, err := os.ReadFile(fr.path)
	if err != nil {
		return fmt.Errorf("read registry manifest: %w", err)
	}
	entries := make(map[string]Origin)
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parse registry manifest %s: %w", fr.path, err)
	}
	fr.mu.Lock()
	fr.entries = entries
	fr.mu.Unlock()
	logging.Get(logging.CategoryRegistry).Info("loaded %d registry entries from %s", len(entries), fr.path)
	return nil
}

// Resolve implements Registry.
func (fr *FileRegistry) Resolve(tag string) (Origin, bool) {
	fr.mu.RLock()
	defer fr.mu.RUnlock()
	o, ok := fr.entries[tag]
	return o, ok
}
