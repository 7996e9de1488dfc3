package dom

import (
	"fmt"
	"strconv"
	"strings"
)

// Segment addresses one step of a locator path. Either ID is set, or Tag
// (optionally with Class and a 1-based Ordinal). Ordinal zero means the
// segment was unambiguous among its siblings and carries no ordinal.
type Segment struct {
	ID      string
	Tag     string
	Class   string
	Ordinal int
}

// String renders the segment in locator syntax: "#id" or
// "tag[.class][:ordinal]".
func (s Segment) String() string {
	if s.ID != "" {
		return "#" + s.ID
	}
	var b strings.Builder
	b.WriteString(s.Tag)
	if s.Class != "" {
		b.WriteByte('.')
		b.WriteString(s.Class)
	}
	if s.Ordinal > 0 {
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(s.Ordinal))
	}
	return b.String()
}

// Locator is a path of segments from a tree root down to one node. Locators
// stay stable under edits elsewhere in the tree; reordering same-tag
// siblings shifts ordinals and nothing else.
type Locator []Segment

// String joins the segments with "/".
func (l Locator) String() string {
	parts := make([]string, len(l))
	for i, s := range l {
		parts[i] = s.String()
	}
	return strings.Join(parts, "/")
}

// ParseLocator parses the textual form produced by Locator.String.
func ParseLocator(path string) (Locator, error) {
	if path == "" {
		return nil, fmt.Errorf("empty locator")
	}
	var loc Locator
	for _, part := range strings.Split(path, "/") {
		if part == "" {
			return nil, fmt.Errorf("locator %q: empty segment", path)
		}
		if strings.HasPrefix(part, "#") {
			loc = append(loc, Segment{ID: part[1:]})
			continue
		}
		seg := Segment{}
		rest := part
		if i := strings.IndexByte(rest, ':'); i >= 0 {
			ord, err := strconv.Atoi(rest[i+1:])
			if err != nil || ord < 1 {
				return nil, fmt.Errorf("locator %q: bad ordinal in %q", path, part)
			}
			seg.Ordinal = ord
			rest = rest[:i]
		}
		if i := strings.IndexByte(rest, '.'); i >= 0 {
			seg.Class = rest[i+1:]
			rest = rest[:i]
		}
		if rest == "" {
			return nil, fmt.Errorf("locator %q: missing tag in %q", path, part)
		}
		seg.Tag = rest
		loc = append(loc, seg)
	}
	return loc, nil
}

// segmentFor computes the locator segment identifying el among the given
// sibling set. An id attribute wins outright; otherwise the segment is
// tag + first class, with an ordinal only when more than one sibling shares
// that same tag/class pair.
func segmentFor(el *Element, siblings []*Element) Segment {
	if id := el.ID(); id != "" {
		return Segment{ID: id}
	}
	seg := Segment{Tag: el.Tag, Class: el.FirstClass()}
	matches := 0
	ordinal := 0
	for _, s := range siblings {
		if s.IsText() || s.Tag != seg.Tag || s.FirstClass() != seg.Class {
			continue
		}
		matches++
		if s == el {
			ordinal = matches
		}
	}
	if matches > 1 {
		seg.Ordinal = ordinal
	}
	return seg
}

// LocatorFor builds the locator for el relative to the forest of top-level
// roots it lives under.
func LocatorFor(el *Element, roots []*Element) Locator {
	var chain []*Element
	for n := el; n != nil; n = n.Parent {
		chain = append([]*Element{n}, chain...)
	}
	loc := make(Locator, 0, len(chain))
	for _, n := range chain {
		siblings := roots
		if n.Parent != nil {
			siblings = n.Parent.Children
		}
		loc = append(loc, segmentFor(n, siblings))
	}
	return loc
}

// matchSegment picks the node the segment addresses among candidates, or
// nil when it does not resolve.
func matchSegment(seg Segment, candidates []*Element) *Element {
	if seg.ID != "" {
		for _, c := range candidates {
			if !c.IsText() && c.ID() == seg.ID {
				return c
			}
		}
		return nil
	}
	n := 0
	for _, c := range candidates {
		if c.IsText() || c.Tag != seg.Tag || c.FirstClass() != seg.Class {
			continue
		}
		n++
		if seg.Ordinal == 0 || seg.Ordinal == n {
			return c
		}
	}
	return nil
}

// Resolve walks the locator down from the top-level roots and returns the
// addressed node, or nil when any segment fails to match.
func Resolve(loc Locator, roots []*Element) *Element {
	if len(loc) == 0 {
		return nil
	}
	candidates := roots
	var node *Element
	for _, seg := range loc {
		node = matchSegment(seg, candidates)
		if node == nil {
			return nil
		}
		candidates = node.Children
	}
	return node
}

// CSS renders the locator as a child-combinator CSS selector for probing
// the render surface. Ordinals map to :nth-of-type, which counts by tag
// only; for class-qualified segments this is an approximation the surface
// probe tolerates.
func (l Locator) CSS() string {
	parts := make([]string, len(l))
	for i, s := range l {
		if s.ID != "" {
			parts[i] = "#" + s.ID
			continue
		}
		sel := s.Tag
		if s.Class != "" {
			sel += "." + s.Class
		}
		if s.Ordinal > 0 {
			sel += fmt.Sprintf(":nth-of-type(%d)", s.Ordinal)
		}
		parts[i] = sel
	}
	return strings.Join(parts, " > ")
}

// FindByTagAttrs searches the forest for the first element with the given
// tag and attribute set. Used to re-resolve a selection after a move has
// shifted locator ordinals.
func FindByTagAttrs(roots []*Element, tag string, attrs []Attr) *Element {
	var found *Element
	for _, root := range roots {
		if found != nil {
			break
		}
		root.Walk(func(e *Element) bool {
			if found != nil {
				return false
			}
			if e.IsText() || e.Tag != tag {
				return true
			}
			for _, want := range attrs {
				got, ok := e.Attr(want.Key)
				if !ok || got != want.Value {
					return true
				}
			}
			found = e
			return false
		})
	}
	return found
}
