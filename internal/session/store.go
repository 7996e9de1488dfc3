package session

import (
	"os"
	"sync"
)

// SourceStore abstracts where the authored source document lives. The
// scheduler reads it before every patch and writes it back only when the
// patch succeeded.
type SourceStore interface {
	Read() (string, error)
	Write(text string) error
}

// FileStore is the production store: the authored component file on disk.
type FileStore struct {
	Path string
}

// Read implements SourceStore.
func (f *FileStore) Read() (string, error) {
	data, err := os.ReadFile(f.Path)
	return string(data), err
}

// Write implements SourceStore.
func (f *FileStore) Write(text string) error {
	return os.WriteFile(f.Path, []byte(text), 0644)
}

// MemoryStore keeps the source in memory, for tests and dry runs.
type MemoryStore struct {
	mu   sync.Mutex
	text string
}

// NewMemoryStore seeds a store with initial source text.
func NewMemoryStore(text string) *MemoryStore {
	return &MemoryStore{text: text}
}

// Read implements SourceStore.
func (m *MemoryStore) Read() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.text, nil
}

// Write implements SourceStore.
func (m *MemoryStore) Write(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.text = text
	return nil
}
