package dom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestElementBasics(t *testing.T) {
	t.Run("foreign detection by hyphen", func(t *testing.T) {
		assert.True(t, NewElement("my-counter").IsForeign())
		assert.False(t, NewElement("div").IsForeign())
	})

	t.Run("class token helpers", func(t *testing.T) {
		el := NewElement("div")
		el.AddClass("hero")
		el.AddClass("wide")
		assert.True(t, el.HasClass("hero"))
		assert.Equal(t, "hero", el.FirstClass())

		el.RemoveClass("hero")
		assert.False(t, el.HasClass("hero"))
		assert.Equal(t, "wide", el.FirstClass())

		el.RemoveClass("wide")
		_, ok := el.Attr("class")
		assert.False(t, ok, "empty class attribute should be dropped")
	})
}

func TestDetachReattach(t *testing.T) {
	parent := NewElement("div")
	widget := NewElement("my-counter")
	widget.Props = map[string]any{"count": 3}
	parent.AppendChild(widget)

	other := NewElement("section")
	other.AppendChild(widget)

	assert.Empty(t, parent.Children)
	require.Len(t, other.Children, 1)
	assert.Same(t, widget, other.Children[0])
	// The live instance moved, its state did not.
	assert.Equal(t, 3, widget.Props["count"])
}

func TestInsertChildAt(t *testing.T) {
	parent := NewElement("ul")
	a := NewElement("li")
	b := NewElement("li")
	c := NewElement("li")
	parent.AppendChild(a)
	parent.AppendChild(c)
	parent.InsertChildAt(1, b)

	require.Len(t, parent.Children, 3)
	assert.Same(t, b, parent.Children[1])
	assert.Same(t, parent, b.Parent)
}

func TestClone(t *testing.T) {
	root := NewElement("div", Attr{Key: "class", Value: "hero"})
	root.AppendChild(NewText("hello"))

	dup := root.Clone()
	dup.SetAttr("class", "other")

	assert.Equal(t, "hero", root.FirstClass())
	assert.Equal(t, "other", dup.FirstClass())
	require.Len(t, dup.Children, 1)
	assert.Equal(t, "hello", dup.Children[0].Text)
	assert.NotSame(t, root.Children[0], dup.Children[0])
}

func TestParseRender(t *testing.T) {
	t.Run("fragment round trip", func(t *testing.T) {
		roots, err := ParseFragment(`<div class="hero"><span>hello</span><my-counter count="3"></my-counter></div>`)
		require.NoError(t, err)
		require.Len(t, roots, 1)

		div := roots[0]
		assert.Equal(t, "div", div.Tag)
		require.Len(t, div.Children, 2)
		assert.Equal(t, "span", div.Children[0].Tag)
		assert.Equal(t, "my-counter", div.Children[1].Tag)

		out := RenderAll(roots)
		assert.Equal(t, `<div class="hero"><span>hello</span><my-counter count="3"></my-counter></div>`, out)
	})

	t.Run("whitespace-only text is dropped", func(t *testing.T) {
		roots, err := ParseFragment("<div>\n  <span>x</span>\n</div>")
		require.NoError(t, err)
		require.Len(t, roots, 1)
		require.Len(t, roots[0].Children, 1)
		assert.Equal(t, "span", roots[0].Children[0].Tag)
	})

	t.Run("void elements render without closing tag", func(t *testing.T) {
		roots, err := ParseFragment(`<div><br><img src="x.png"></div>`)
		require.NoError(t, err)
		assert.Equal(t, `<div><br><img src="x.png"></div>`, RenderAll(roots))
	})
}
