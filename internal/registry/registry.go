// Package registry exposes the element registry: the read-only lookup from
// a tag name to the component symbol and origin module behind it. The
// registry itself is populated by the external symbol scanner; this package
// only consumes what the scanner wrote.
package registry

// OriginKind classifies where a symbol is imported from.
type OriginKind string

const (
	// OriginShared symbols come from the shared element module and are
	// grouped into one combined import statement.
	OriginShared OriginKind = "shared"
	// OriginLocal symbols come from a component file within the project,
	// imported by relative path.
	OriginLocal OriginKind = "local"
)

// Origin describes the provenance of one component symbol.
type Origin struct {
	Symbol string     `json:"symbol"`
	Kind   OriginKind `json:"kind"`
	Path   string     `json:"path,omitempty"` // absolute or project-rooted path, local origins only
}

// Registry resolves a tag to its origin. Implementations are read-only and
// safe for concurrent use.
type Registry interface {
	Resolve(tag string) (Origin, bool)
}

// Static is an in-memory registry, mainly for tests and embedded setups.
type Static map[string]Origin

// Resolve implements Registry.
func (s Static) Resolve(tag string) (Origin, bool) {
	o, ok := s[tag]
	return o, ok
}
