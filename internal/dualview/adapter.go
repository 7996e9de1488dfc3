package dualview

import (
	"errors"
	"fmt"

	"livecanvas/internal/dom"
	"livecanvas/internal/logging"
)

// OpKind names one uniform mutation operation.
type OpKind string

const (
	OpInsertBefore OpKind = "insert-before"
	OpInsertAfter  OpKind = "insert-after"
	OpInsertInside OpKind = "insert-inside"
	OpDelete       OpKind = "delete"
	OpDuplicate    OpKind = "duplicate"
	OpMove         OpKind = "move"
	OpUpdate       OpKind = "update"
)

// Position places a moved node relative to the move target.
type Position string

const (
	PosBefore Position = "before"
	PosAfter  Position = "after"
	PosInside Position = "inside"
)

// Op is one structural edit, addressed by locator so the same description
// applies to both trees.
type Op struct {
	Kind   OpKind
	Target dom.Locator

	// Markup carries the HTML fragment for insert operations.
	Markup string

	// Source and Position drive move operations; Target is the reference
	// node the source is placed relative to.
	Source   dom.Locator
	Position Position

	// Key/Value drive update operations. IsProperty routes the update into
	// the runtime property bag instead of the attribute list.
	Key        string
	Value      string
	IsProperty bool
}

// ErrLocator is returned when an op's locator does not resolve in one or
// both trees. No mutation has been applied in that case.
var ErrLocator = errors.New("locator did not resolve")

// State is the dual-view state of one editing session: two structurally
// isomorphic forests, overlay and clean.
type State struct {
	Overlay []*dom.Element
	Clean   []*dom.Element
}

// NewState builds both trees from the same markup. The overlay copy gets
// its interactive decorations; the clean copy stays untouched.
func NewState(markup string) (*State, error) {
	overlay, err := dom.ParseFragment(markup)
	if err != nil {
		return nil, fmt.Errorf("parse overlay tree: %w", err)
	}
	clean, err := dom.ParseFragment(markup)
	if err != nil {
		return nil, fmt.Errorf("parse clean tree: %w", err)
	}
	for _, r := range overlay {
		DecorateTree(r)
	}
	return &State{Overlay: overlay, Clean: clean}, nil
}

// Apply runs one op against both trees through the same code path. Both
// trees are validated up front; if the op cannot be applied to either, it
// is applied to neither.
func (s *State) Apply(op Op) error {
	if err := validate(op, s.Overlay); err != nil {
		return fmt.Errorf("overlay: %w", err)
	}
	if err := validate(op, s.Clean); err != nil {
		return fmt.Errorf("clean: %w", err)
	}
	if err := applyToTree(&s.Overlay, op, true); err != nil {
		return fmt.Errorf("overlay: %w", err)
	}
	if err := applyToTree(&s.Clean, op, false); err != nil {
		// validate made this unreachable short of a model bug; surface it
		// loudly because the trees may now disagree.
		logging.Get(logging.CategoryDualview).Error("clean tree diverged on %s: %v", op.Kind, err)
		return fmt.Errorf("clean: %w", err)
	}
	logging.Get(logging.CategoryDualview).Debug("applied %s at %s", op.Kind, op.Target)
	return nil
}

// validate resolves everything the op needs against one tree.
func validate(op Op, roots []*dom.Element) error {
	target := dom.Resolve(op.Target, roots)
	if target == nil {
		return fmt.Errorf("%w: %s", ErrLocator, op.Target)
	}
	switch op.Kind {
	case OpMove:
		source := dom.Resolve(op.Source, roots)
		if source == nil {
			return fmt.Errorf("%w: move source %s", ErrLocator, op.Source)
		}
		for n := target; n != nil; n = n.Parent {
			if n == source {
				return fmt.Errorf("move target %s is inside source %s", op.Target, op.Source)
			}
		}
	case OpInsertBefore, OpInsertAfter, OpInsertInside:
		if _, err := dom.ParseFragment(op.Markup); err != nil {
			return fmt.Errorf("parse insert markup: %w", err)
		}
	case OpUpdate:
		if op.Key == "" {
			return errors.New("update requires a key")
		}
	}
	return nil
}

// applyToTree performs the mutation against one forest. The overlay flag
// only controls decoration of newly introduced nodes; the structural logic
// is identical for both trees.
func applyToTree(roots *[]*dom.Element, op Op, overlay bool) error {
	target := dom.Resolve(op.Target, *roots)
	if target == nil {
		return fmt.Errorf("%w: %s", ErrLocator, op.Target)
	}

	switch op.Kind {
	case OpInsertBefore, OpInsertAfter, OpInsertInside:
		fresh, err := dom.ParseFragment(op.Markup)
		if err != nil {
			return err
		}
		if overlay {
			for _, n := range fresh {
				DecorateTree(n)
			}
		}
		switch op.Kind {
		case OpInsertInside:
			for _, n := range fresh {
				target.AppendChild(n)
			}
		case OpInsertBefore:
			insertRelative(roots, target, fresh, false)
		case OpInsertAfter:
			insertRelative(roots, target, fresh, true)
		}

	case OpDelete:
		removeNode(roots, target)

	case OpDuplicate:
		dup := target.Clone()
		insertRelative(roots, target, []*dom.Element{dup}, true)

	case OpMove:
		source := dom.Resolve(op.Source, *roots)
		if source == nil {
			return fmt.Errorf("%w: move source %s", ErrLocator, op.Source)
		}
		// Relocate the live node itself. Detaching and re-attaching the
		// same instance is what keeps a stateful custom element's runtime
		// state across the move.
		removeNode(roots, source)
		switch op.Position {
		case PosInside:
			target.AppendChild(source)
		case PosBefore:
			insertRelative(roots, target, []*dom.Element{source}, false)
		default:
			insertRelative(roots, target, []*dom.Element{source}, true)
		}

	case OpUpdate:
		if op.IsProperty {
			if target.Props == nil {
				target.Props = make(map[string]any)
			}
			target.Props[op.Key] = op.Value
		} else {
			target.SetAttr(op.Key, op.Value)
		}

	default:
		return fmt.Errorf("unknown operation %q", op.Kind)
	}
	return nil
}

// insertRelative places nodes before or after a reference node, whether
// the reference is nested or a top-level root.
func insertRelative(roots *[]*dom.Element, ref *dom.Element, nodes []*dom.Element, after bool) {
	if ref.Parent != nil {
		idx := ref.Index()
		if after {
			idx++
		}
		for i, n := range nodes {
			ref.Parent.InsertChildAt(idx+i, n)
		}
		return
	}
	idx := rootIndex(*roots, ref)
	if idx < 0 {
		idx = len(*roots)
	} else if after {
		idx++
	}
	for _, n := range nodes {
		n.Detach()
	}
	updated := make([]*dom.Element, 0, len(*roots)+len(nodes))
	updated = append(updated, (*roots)[:idx]...)
	updated = append(updated, nodes...)
	updated = append(updated, (*roots)[idx:]...)
	*roots = updated
}

// removeNode detaches a node from its parent or from the root forest.
func removeNode(roots *[]*dom.Element, n *dom.Element) {
	if n.Parent != nil {
		n.Detach()
		return
	}
	if idx := rootIndex(*roots, n); idx >= 0 {
		*roots = append((*roots)[:idx], (*roots)[idx+1:]...)
	}
}

func rootIndex(roots []*dom.Element, n *dom.Element) int {
	for i, r := range roots {
		if r == n {
			return i
		}
	}
	return -1
}

// ReResolve finds a node again after ordinals shifted, matching by tag and
// attribute set. Returns the node's current locator, or nil when no match
// exists.
func (s *State) ReResolve(tag string, attrs []dom.Attr) dom.Locator {
	node := dom.FindByTagAttrs(s.Clean, tag, attrs)
	if node == nil {
		return nil
	}
	return dom.LocatorFor(node, s.Clean)
}
