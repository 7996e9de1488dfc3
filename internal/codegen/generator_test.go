package codegen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"livecanvas/internal/registry"
	"livecanvas/internal/snapshot"
)

func testRegistry() registry.Static {
	return registry.Static{
		"div":        {Symbol: "div", Kind: registry.OriginShared},
		"span":       {Symbol: "span", Kind: registry.OriginShared},
		"button":     {Symbol: "button", Kind: registry.OriginShared},
		"br":         {Symbol: "br", Kind: registry.OriginShared},
		"my-counter": {Symbol: "Counter", Kind: registry.OriginLocal, Path: "src/widgets/Counter.js"},
		"my-badge":   {Symbol: "Badge", Kind: registry.OriginLocal, Path: "src/widgets/Badge.js"},
		"my-page":    {Symbol: "Page", Kind: registry.OriginLocal, Path: "src/pages/Page.js"},
	}
}

func newGenerator() *Generator {
	return &Generator{
		Registry:  testRegistry(),
		OwnSymbol: "Page",
		SourceDir: "src/pages",
	}
}

func text(s string) *snapshot.Node {
	return &snapshot.Node{Kind: snapshot.KindText, Content: s}
}

func el(tag string, children ...*snapshot.Node) *snapshot.Node {
	return &snapshot.Node{Kind: snapshot.KindElement, Tag: tag, Children: children}
}

func TestGenerateBody(t *testing.T) {
	t.Run("single text child collapses to text argument", func(t *testing.T) {
		nodes := []*snapshot.Node{el("div", el("button", text("Click")))}
		res := newGenerator().Generate(nodes)

		assert.Contains(t, res.Body, `button("Click")`)
		assert.NotContains(t, res.Body, `button([`, "collapsed call must not open a children list")
		assert.Empty(t, res.Skipped)
	})

	t.Run("multiple children become an ordered list without trailing separator", func(t *testing.T) {
		nodes := []*snapshot.Node{el("div", el("span", text("a")), el("span", text("b")))}
		res := newGenerator().Generate(nodes)

		want := "[\n" +
			"  div([\n" +
			"    span(\"a\"),\n" +
			"    span(\"b\")\n" +
			"  ])\n" +
			"]"
		assert.Equal(t, want, res.Body)
	})

	t.Run("zero children and zero args emit a bare call", func(t *testing.T) {
		res := newGenerator().Generate([]*snapshot.Node{el("br")})
		assert.Equal(t, "[\n  br()\n]", res.Body)
	})

	t.Run("attribute keys are mapped and values escaped", func(t *testing.T) {
		n := el("div")
		n.Attrs = snapshot.OrderedAttrs{
			{Key: "class", Value: "hero"},
			{Key: "aria-label", Value: `say "hi"`},
		}
		res := newGenerator().Generate([]*snapshot.Node{n})

		assert.Contains(t, res.Body, `styleClass: "hero"`)
		assert.Contains(t, res.Body, `"aria-label": "say \"hi\""`)
		assert.NotContains(t, res.Body, "class:")
	})
}

func TestSelfReferenceGuard(t *testing.T) {
	nodes := []*snapshot.Node{el("my-page", el("span", text("inner")), el("br"))}
	res := newGenerator().Generate(nodes)

	assert.NotContains(t, res.Body, "Page(", "authoring component must never construct itself")
	assert.Contains(t, res.Body, `span("inner")`)
	assert.Contains(t, res.Body, "br()")
	for _, imp := range res.Imports {
		assert.NotContains(t, imp, "Page", "self symbol must not be imported")
	}
}

func TestImports(t *testing.T) {
	t.Run("shared symbols combine into one statement", func(t *testing.T) {
		nodes := []*snapshot.Node{el("div", el("span"), el("span"), el("button"))}
		res := newGenerator().Generate(nodes)

		require.Len(t, res.Imports, 1)
		assert.Equal(t, `import { div, span, button } from "@canvas/elements"`, res.Imports[0])
	})

	t.Run("one statement per distinct local origin path", func(t *testing.T) {
		nodes := []*snapshot.Node{el("div", el("my-counter"), el("my-badge"), el("my-counter"))}
		res := newGenerator().Generate(nodes)

		require.Len(t, res.Imports, 3)
		assert.Equal(t, `import { div } from "@canvas/elements"`, res.Imports[0])
		assert.Equal(t, `import { Counter } from "../widgets/Counter.js"`, res.Imports[1])
		assert.Equal(t, `import { Badge } from "../widgets/Badge.js"`, res.Imports[2])
	})

	t.Run("local path in the same directory gets a dot prefix", func(t *testing.T) {
		gen := newGenerator()
		gen.Registry = registry.Static{
			"my-sub": {Symbol: "Sub", Kind: registry.OriginLocal, Path: "src/pages/Sub.js"},
		}
		res := gen.Generate([]*snapshot.Node{el("my-sub")})
		require.Len(t, res.Imports, 1)
		assert.Equal(t, `import { Sub } from "./Sub.js"`, res.Imports[0])
	})
}

func TestUnresolvedTags(t *testing.T) {
	nodes := []*snapshot.Node{el("div", el("mystery-widget"), el("span", text("ok")))}
	res := newGenerator().Generate(nodes)

	assert.Equal(t, []string{"mystery-widget"}, res.Skipped)
	assert.Contains(t, res.Body, `span("ok")`, "generation continues past the unresolved node")
	assert.NotContains(t, res.Body, "mystery")
}

func TestRuntimePropsMerge(t *testing.T) {
	t.Run("props fill args for custom elements only", func(t *testing.T) {
		widget := el("my-counter")
		widget.Attrs = snapshot.OrderedAttrs{{Key: "count", Value: "3"}}
		widget.Props = map[string]string{"count": "9", "label": "clicks"}

		res := newGenerator().Generate([]*snapshot.Node{widget})

		assert.Contains(t, res.Body, `count: "3"`, "attribute wins over runtime property")
		assert.NotContains(t, res.Body, `count: "9"`)
		assert.Contains(t, res.Body, `label: "clicks"`)
	})

	t.Run("standard elements never receive props", func(t *testing.T) {
		n := el("div")
		n.Props = map[string]string{"stray": "x"}
		res := newGenerator().Generate([]*snapshot.Node{n})
		assert.NotContains(t, res.Body, "stray")
	})
}

func TestEmptyForest(t *testing.T) {
	res := newGenerator().Generate(nil)
	assert.Equal(t, "[\n]", res.Body)
	assert.Empty(t, res.Imports)
}

func TestDeterminism(t *testing.T) {
	widget := el("my-counter")
	widget.Props = map[string]string{"b": "2", "a": "1", "c": "3"}
	nodes := []*snapshot.Node{el("div", widget, el("span", text("x")))}

	gen := newGenerator()
	first := gen.Generate(nodes)
	for i := 0; i < 10; i++ {
		again := gen.Generate(nodes)
		assert.Equal(t, first.Body, again.Body)
		assert.Equal(t, first.Imports, again.Imports)
	}
	// Prop keys come out sorted.
	ai := strings.Index(first.Body, `a: "1"`)
	bi := strings.Index(first.Body, `b: "2"`)
	ci := strings.Index(first.Body, `c: "3"`)
	assert.True(t, ai < bi && bi < ci)
}
