// Package dualview keeps the two parallel live trees of an editing session
// in lockstep: the decorated interactive overlay and the clean tree that is
// the sole ground truth for code generation. Every structural edit goes
// through one adapter call applied identically to both trees; the trees can
// only diverge by the fixed decoration set.
package dualview

import (
	"livecanvas/internal/dom"
	"livecanvas/internal/snapshot"
)

// Decoration attributes that may exist on overlay nodes only.
const (
	OverlayAttr   = "data-canvas-overlay"
	DraggableAttr = "draggable"
)

// Transient marker classes, applied to throwaway broadcast clones and
// never to a persistent tree.
const (
	HoverClass    = "canvas-hover"
	SelectedClass = "canvas-selected"
)

var decorationAttrs = []string{snapshot.MarkerAttr, OverlayAttr, DraggableAttr}
var decorationClasses = []string{HoverClass, SelectedClass}

// Decorate marks an overlay element interactive.
func Decorate(el *dom.Element) {
	if el.IsText() {
		return
	}
	el.SetAttr(OverlayAttr, "true")
	el.SetAttr(DraggableAttr, "true")
}

// DecorateTree marks a whole overlay subtree interactive. Foreign elements
// keep their own internals untouched.
func DecorateTree(root *dom.Element) {
	root.Walk(func(e *dom.Element) bool {
		Decorate(e)
		return !e.IsForeign()
	})
}

// Strip removes the full decoration set from a subtree. Applied to clean
// trees rebuilt from overlay markup and to broadcast clones after use.
func Strip(root *dom.Element) {
	root.Walk(func(e *dom.Element) bool {
		if e.IsText() {
			return true
		}
		for _, a := range decorationAttrs {
			e.RemoveAttr(a)
		}
		for _, c := range decorationClasses {
			e.RemoveClass(c)
		}
		return true
	})
}
