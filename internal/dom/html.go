package dom

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// voidTags never carry children and render without a closing tag.
var voidTags = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"source": true, "track": true, "wbr": true,
}

// ParseFragment parses an HTML fragment (body context) into a forest of
// live-tree elements. Whitespace-only text is dropped; other text is kept
// verbatim so the serializer can trim it consistently later.
func ParseFragment(markup string) ([]*Element, error) {
	ctx := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(markup), ctx)
	if err != nil {
		return nil, err
	}
	var roots []*Element
	for _, n := range nodes {
		if el := fromHTMLNode(n); el != nil {
			roots = append(roots, el)
		}
	}
	return roots, nil
}

func fromHTMLNode(n *html.Node) *Element {
	switch n.Type {
	case html.TextNode:
		if strings.TrimSpace(n.Data) == "" {
			return nil
		}
		return NewText(n.Data)
	case html.ElementNode:
		el := &Element{Tag: n.Data}
		for _, a := range n.Attr {
			el.Attrs = append(el.Attrs, Attr{Key: a.Key, Value: a.Val})
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if child := fromHTMLNode(c); child != nil {
				child.Parent = el
				el.Children = append(el.Children, child)
			}
		}
		return el
	default:
		// Comments and doctypes have no place in a live render tree.
		return nil
	}
}

// Render serializes the subtree back to HTML markup.
func (e *Element) Render() string {
	var b strings.Builder
	renderTo(&b, e)
	return b.String()
}

// RenderAll serializes a forest of siblings.
func RenderAll(roots []*Element) string {
	var b strings.Builder
	for _, r := range roots {
		renderTo(&b, r)
	}
	return b.String()
}

func renderTo(b *strings.Builder, e *Element) {
	if e.IsText() {
		b.WriteString(html.EscapeString(e.Text))
		return
	}
	b.WriteByte('<')
	b.WriteString(e.Tag)
	for _, a := range e.Attrs {
		b.WriteByte(' ')
		b.WriteString(a.Key)
		b.WriteString(`="`)
		b.WriteString(html.EscapeString(a.Value))
		b.WriteByte('"')
	}
	b.WriteByte('>')
	if voidTags[e.Tag] {
		return
	}
	for _, c := range e.Children {
		renderTo(b, c)
	}
	b.WriteString("</")
	b.WriteString(e.Tag)
	b.WriteByte('>')
}
