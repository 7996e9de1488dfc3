// Package dom holds the live tree model shared by the overlay and clean
// views: ordered-attribute elements, runtime property bags for custom
// elements, and the locator scheme used to address nodes across edits.
package dom

import (
	"strings"
)

// Attr is a single attribute. Attribute order is significant for code
// generation, so elements carry a slice rather than a map.
type Attr struct {
	Key   string
	Value string
}

// Element is one node of a live tree. A text node has an empty Tag and its
// content in Text. Props is only populated for custom elements, whose live
// component instances may hold state that never surfaces as an attribute.
type Element struct {
	Tag      string
	Attrs    []Attr
	Props    map[string]any
	Text     string
	Children []*Element
	Parent   *Element
}

// NewText returns a text node.
func NewText(content string) *Element {
	return &Element{Text: content}
}

// NewElement returns an element node with the given tag.
func NewElement(tag string, attrs ...Attr) *Element {
	return &Element{Tag: tag, Attrs: attrs}
}

// IsText reports whether the node is a text node.
func (e *Element) IsText() bool {
	return e.Tag == ""
}

// IsForeign reports whether the element is a foreign/custom element. A
// hyphen in the tag is the composition marker: such elements are backed by
// their own component and are never traversed into during capture.
func (e *Element) IsForeign() bool {
	return strings.Contains(e.Tag, "-")
}

// Attr returns the value of the named attribute.
func (e *Element) Attr(key string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

// SetAttr sets an attribute, preserving its position if already present.
func (e *Element) SetAttr(key, value string) {
	for i, a := range e.Attrs {
		if a.Key == key {
			e.Attrs[i].Value = value
			return
		}
	}
	e.Attrs = append(e.Attrs, Attr{Key: key, Value: value})
}

// RemoveAttr deletes an attribute if present.
func (e *Element) RemoveAttr(key string) {
	for i, a := range e.Attrs {
		if a.Key == key {
			e.Attrs = append(e.Attrs[:i], e.Attrs[i+1:]...)
			return
		}
	}
}

// ID returns the element's id attribute, or "".
func (e *Element) ID() string {
	id, _ := e.Attr("id")
	return id
}

// FirstClass returns the first token of the class attribute, or "".
func (e *Element) FirstClass() string {
	class, ok := e.Attr("class")
	if !ok {
		return ""
	}
	fields := strings.Fields(class)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// HasClass reports whether the class attribute contains the given token.
func (e *Element) HasClass(token string) bool {
	class, _ := e.Attr("class")
	for _, f := range strings.Fields(class) {
		if f == token {
			return true
		}
	}
	return false
}

// AddClass appends a class token if not already present.
func (e *Element) AddClass(token string) {
	if e.HasClass(token) {
		return
	}
	class, _ := e.Attr("class")
	if class == "" {
		e.SetAttr("class", token)
		return
	}
	e.SetAttr("class", class+" "+token)
}

// RemoveClass strips a class token; the attribute is removed entirely when
// no tokens remain.
func (e *Element) RemoveClass(token string) {
	class, ok := e.Attr("class")
	if !ok {
		return
	}
	var kept []string
	for _, f := range strings.Fields(class) {
		if f != token {
			kept = append(kept, f)
		}
	}
	if len(kept) == 0 {
		e.RemoveAttr("class")
		return
	}
	e.SetAttr("class", strings.Join(kept, " "))
}

// Index returns the node's position among its parent's children, or -1 for
// a detached node.
func (e *Element) Index() int {
	if e.Parent == nil {
		return -1
	}
	for i, c := range e.Parent.Children {
		if c == e {
			return i
		}
	}
	return -1
}

// AppendChild attaches child as the last child of e.
func (e *Element) AppendChild(child *Element) {
	child.Detach()
	child.Parent = e
	e.Children = append(e.Children, child)
}

// InsertChildAt attaches child at position i among e's children.
func (e *Element) InsertChildAt(i int, child *Element) {
	child.Detach()
	child.Parent = e
	if i < 0 {
		i = 0
	}
	if i >= len(e.Children) {
		e.Children = append(e.Children, child)
		return
	}
	e.Children = append(e.Children[:i], append([]*Element{child}, e.Children[i:]...)...)
}

// Detach removes the node from its parent. The node itself, including any
// live component state in Props, is untouched so it can be re-attached
// elsewhere without losing identity.
func (e *Element) Detach() {
	if e.Parent == nil {
		return
	}
	if i := e.Index(); i >= 0 {
		e.Parent.Children = append(e.Parent.Children[:i], e.Parent.Children[i+1:]...)
	}
	e.Parent = nil
}

// Clone returns a deep copy of the subtree. Attribute slices and the Props
// map are copied; Props values are shared, matching what duplicating a live
// node does.
func (e *Element) Clone() *Element {
	dup := &Element{
		Tag:  e.Tag,
		Text: e.Text,
	}
	if len(e.Attrs) > 0 {
		dup.Attrs = make([]Attr, len(e.Attrs))
		copy(dup.Attrs, e.Attrs)
	}
	if e.Props != nil {
		dup.Props = make(map[string]any, len(e.Props))
		for k, v := range e.Props {
			dup.Props[k] = v
		}
	}
	for _, c := range e.Children {
		child := c.Clone()
		child.Parent = dup
		dup.Children = append(dup.Children, child)
	}
	return dup
}

// Walk visits the subtree depth-first, parents before children. Returning
// false from fn prunes descent into that node's children.
func (e *Element) Walk(fn func(*Element) bool) {
	if !fn(e) {
		return
	}
	for _, c := range e.Children {
		c.Walk(fn)
	}
}

// Root returns the topmost ancestor of the node.
func (e *Element) Root() *Element {
	n := e
	for n.Parent != nil {
		n = n.Parent
	}
	return n
}
