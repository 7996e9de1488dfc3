// Package patcher rewrites the machine-owned regions of an authored source
// document: the generated import statements and the render-boundary body.
// Everything else is preserved byte for byte, and any failure yields the
// pristine original.
package patcher

import (
	"errors"
	"strings"
)

// ErrNoBoundary is returned when the render boundary markers cannot be
// located in the source document.
var ErrNoBoundary = errors.New("render boundary markers not found")

// ErrNoImportAnchor is returned when the import insertion point cannot be
// established.
var ErrNoImportAnchor = errors.New("import insertion anchor not found")

// Default render boundary markers.
const (
	DefaultOpenMarker  = "// <canvas:render>"
	DefaultCloseMarker = "// </canvas:render>"
)

// BoundaryStrategy locates the render boundary within the source lines,
// returning the line indexes of the opening and closing anchors. The body
// to replace is everything strictly between them. Kept as an interface so
// the literal marker scan can later give way to a structural match without
// touching the rest of the pipeline.
type BoundaryStrategy interface {
	Locate(lines []string) (open, close int, err error)
}

// MarkerBoundary finds the boundary by scanning for a fixed marker pair.
// This is a deliberate trade of structural rigor for robustness; it cannot
// cope with a hand-edited render body whose markers were removed, and it
// does not try to.
type MarkerBoundary struct {
	Open  string
	Close string
}

// NewMarkerBoundary returns the default marker scan.
func NewMarkerBoundary() MarkerBoundary {
	return MarkerBoundary{Open: DefaultOpenMarker, Close: DefaultCloseMarker}
}

// Locate implements BoundaryStrategy.
func (m MarkerBoundary) Locate(lines []string) (int, int, error) {
	open, close := -1, -1
	for i, line := range lines {
		switch strings.TrimSpace(line) {
		case m.Open:
			if open == -1 {
				open = i
			}
		case m.Close:
			if open != -1 && close == -1 {
				close = i
			}
		}
	}
	if open == -1 || close == -1 || close <= open {
		return 0, 0, ErrNoBoundary
	}
	return open, close, nil
}

// indentOf returns the leading whitespace of a line.
func indentOf(line string) string {
	for i, r := range line {
		if r != ' ' && r != '\t' {
			return line[:i]
		}
	}
	return line
}
