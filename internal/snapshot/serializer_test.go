package snapshot

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"livecanvas/internal/dom"
)

type boxed struct{ v any }

func (b boxed) Get() any { return b.v }

func TestCapture(t *testing.T) {
	t.Run("basic element with attributes and text", func(t *testing.T) {
		div := dom.NewElement("div", dom.Attr{Key: "class", Value: "hero"})
		div.AppendChild(dom.NewText("  hello  "))

		node := Capture(div)
		require.NotNil(t, node)
		assert.Equal(t, KindElement, node.Kind)
		assert.Equal(t, "div", node.Tag)
		require.Len(t, node.Children, 1)
		assert.Equal(t, KindText, node.Children[0].Kind)
		assert.Equal(t, "hello", node.Children[0].Content, "text content is trimmed")
	})

	t.Run("whitespace-only text is never materialized", func(t *testing.T) {
		div := dom.NewElement("div")
		div.AppendChild(dom.NewText("   \n\t "))
		node := Capture(div)
		require.NotNil(t, node)
		assert.Empty(t, node.Children)
	})

	t.Run("reserved attributes are excluded", func(t *testing.T) {
		el := dom.NewElement("span",
			dom.Attr{Key: MarkerAttr, Value: "n42"},
			dom.Attr{Key: "title", Value: "tooltip"},
			dom.Attr{Key: "class", Value: "kept"},
		)
		node := Capture(el)
		require.Len(t, node.Attrs, 1)
		assert.Equal(t, Attr{Key: "class", Value: "kept"}, node.Attrs[0])
	})

	t.Run("foreign element children are not traversed", func(t *testing.T) {
		widget := dom.NewElement("my-counter")
		inner := dom.NewElement("button")
		inner.AppendChild(dom.NewText("+"))
		widget.AppendChild(inner)

		node := Capture(widget)
		require.NotNil(t, node)
		assert.Empty(t, node.Children, "encapsulated leaf must stay a leaf")
	})
}

func TestExtractProps(t *testing.T) {
	t.Run("probe chain: callable, getter, primitive", func(t *testing.T) {
		widget := dom.NewElement("my-counter")
		widget.Props = map[string]any{
			"count":  func() any { return 7 },
			"label":  boxed{v: "clicks"},
			"active": true,
		}
		node := Capture(widget)
		require.NotNil(t, node.Props)
		assert.Equal(t, "7", node.Props["count"])
		assert.Equal(t, "clicks", node.Props["label"])
		assert.Equal(t, "true", node.Props["active"])
	})

	t.Run("privacy-prefixed members are skipped", func(t *testing.T) {
		widget := dom.NewElement("my-counter")
		widget.Props = map[string]any{"_internal": "x", "count": 1}
		node := Capture(widget)
		assert.Equal(t, map[string]string{"count": "1"}, node.Props)
	})

	t.Run("callable returning an object is not used", func(t *testing.T) {
		widget := dom.NewElement("my-counter")
		widget.Props = map[string]any{
			"handler": func() any { return map[string]any{"x": 1} },
			"count":   2,
		}
		node := Capture(widget)
		assert.Equal(t, map[string]string{"count": "2"}, node.Props)
	})

	t.Run("a panicking member is swallowed, not fatal", func(t *testing.T) {
		widget := dom.NewElement("my-counter")
		widget.Props = map[string]any{
			"bad":   func() any { panic("detached instance") },
			"count": 3,
		}
		node := Capture(widget)
		assert.Equal(t, map[string]string{"count": "3"}, node.Props)
	})

	t.Run("standard element ignores property bag", func(t *testing.T) {
		el := dom.NewElement("div")
		el.Props = map[string]any{"stray": 1}
		node := Capture(el)
		assert.Nil(t, node.Props)
	})
}

func TestCaptureAll(t *testing.T) {
	roots, err := dom.ParseFragment(`<div class="a"><span>x</span></div><p>y</p>`)
	require.NoError(t, err)

	nodes := CaptureAll(roots)
	want := []*Node{
		{
			Kind:  KindElement,
			Tag:   "div",
			Attrs: OrderedAttrs{{Key: "class", Value: "a"}},
			Children: []*Node{
				{Kind: KindElement, Tag: "span", Children: []*Node{
					{Kind: KindText, Content: "x"},
				}},
			},
		},
		{Kind: KindElement, Tag: "p", Children: []*Node{
			{Kind: KindText, Content: "y"},
		}},
	}
	if diff := cmp.Diff(want, nodes); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, EqualForest(want, nodes))
}

func TestOrderedAttrsJSON(t *testing.T) {
	attrs := OrderedAttrs{{Key: "class", Value: "hero"}, {Key: "aria-label", Value: "x"}}
	data, err := json.Marshal(attrs)
	require.NoError(t, err)
	assert.Equal(t, `{"class":"hero","aria-label":"x"}`, string(data))

	var back OrderedAttrs
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, attrs, back)
}
