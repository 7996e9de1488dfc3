// Package render abstracts the surface the clean tree is displayed on.
// After a full-content replacement the surface raises a single
// load-complete signal; custom elements self-initialize and self-render
// asynchronously behind it, so captures must not run earlier.
package render

import (
	"context"
	"sync"
)

// Surface is the render collaborator consumed by the scheduler.
type Surface interface {
	// SetContent performs a full-content replacement.
	SetContent(ctx context.Context, markup string) error
	// Loaded returns the channel signalling completion of the most recent
	// SetContent, including asynchronous custom element self-rendering.
	Loaded() <-chan struct{}
	// Markup returns the surface's current markup, post self-rendering.
	Markup(ctx context.Context) (string, error)
	// Properties reads the live runtime properties of the custom element
	// addressed by the CSS-ish selector, coerced to strings.
	Properties(ctx context.Context, selector string) (map[string]string, error)
	// Close releases the surface.
	Close() error
}

// MemorySurface is an in-process surface for tests and headless sessions.
// An optional Expand hook simulates custom element self-rendering on
// full-content replacement.
type MemorySurface struct {
	mu     sync.Mutex
	markup string
	loaded chan struct{}
	props  map[string]map[string]string

	// Expand rewrites markup the way the real surface's components would
	// after the load signal. Nil means markup is served back verbatim.
	Expand func(markup string) string
}

// NewMemorySurface returns an empty in-process surface.
func NewMemorySurface() *MemorySurface {
	loaded := make(chan struct{})
	close(loaded)
	return &MemorySurface{
		loaded: loaded,
		props:  make(map[string]map[string]string),
	}
}

// SetContent implements Surface. The load signal fires immediately since
// there is no real renderer to wait for.
func (m *MemorySurface) SetContent(_ context.Context, markup string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Expand != nil {
		markup = m.Expand(markup)
	}
	m.markup = markup
	loaded := make(chan struct{})
	close(loaded)
	m.loaded = loaded
	return nil
}

// Loaded implements Surface.
func (m *MemorySurface) Loaded() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loaded
}

// Markup implements Surface.
func (m *MemorySurface) Markup(_ context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.markup, nil
}

// SetProperties seeds runtime properties for a selector, standing in for a
// live component instance.
func (m *MemorySurface) SetProperties(selector string, props map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.props[selector] = props
}

// Properties implements Surface.
func (m *MemorySurface) Properties(_ context.Context, selector string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.props[selector], nil
}

// Close implements Surface.
func (m *MemorySurface) Close() error { return nil }
