package session

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"livecanvas/internal/dom"
	"livecanvas/internal/dualview"
	"livecanvas/internal/registry"
	"livecanvas/internal/render"
	"livecanvas/internal/snapshot"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const pageSource = `import { LiveMixin } from "@canvas/live"

export const Page = LiveMixin(() =>
  // <canvas:render>
  [
  ]
  // </canvas:render>
)
`

func testRegistry() registry.Static {
	return registry.Static{
		"div":        {Symbol: "div", Kind: registry.OriginShared},
		"span":       {Symbol: "span", Kind: registry.OriginShared},
		"button":     {Symbol: "button", Kind: registry.OriginShared},
		"p":          {Symbol: "p", Kind: registry.OriginShared},
		"my-counter": {Symbol: "Counter", Kind: registry.OriginLocal, Path: "src/widgets/Counter.js"},
	}
}

type fixture struct {
	session *Session
	surface *render.MemorySurface
	store   *MemoryStore
	cancel  context.CancelFunc
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	surface := render.NewMemorySurface()
	store := NewMemoryStore(pageSource)
	if cfg.OwnSymbol == "" {
		cfg.OwnSymbol = "Page"
	}
	if cfg.SourceDir == "" {
		cfg.SourceDir = "src/pages"
	}
	s := New(cfg, testRegistry(), surface, store)

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	t.Cleanup(func() {
		s.Close()
		cancel()
	})
	return &fixture{session: s, surface: surface, store: store, cancel: cancel}
}

func loc(t *testing.T, path string) dom.Locator {
	t.Helper()
	l, err := dom.ParseLocator(path)
	require.NoError(t, err)
	return l
}

func TestLoadContentAndSync(t *testing.T) {
	f := newFixture(t, Config{})
	require.NoError(t, f.session.LoadContent(context.Background(),
		`<div class="hero"><button>Click</button></div>`))

	text, err := f.store.Read()
	require.NoError(t, err)

	assert.Contains(t, text, `import { LiveMixin } from "@canvas/live"`)
	assert.Contains(t, text, `import { div, button } from "@canvas/elements"`)
	assert.Contains(t, text, `button("Click")`, "single text child collapses")
	assert.Contains(t, text, "// <canvas:render>")
}

func TestLoadContentWaitsForSelfRendering(t *testing.T) {
	f := newFixture(t, Config{})
	// The surface's components expand the widget after the load signal.
	f.surface.Expand = func(markup string) string {
		return strings.Replace(markup,
			`<my-counter count="3"></my-counter>`,
			`<my-counter count="3"><button>+</button></my-counter>`, 1)
	}
	f.surface.SetProperties("div > my-counter", map[string]string{"count": "3", "label": "clicks"})

	require.NoError(t, f.session.LoadContent(context.Background(),
		`<div><my-counter count="3"></my-counter></div>`))

	var got Broadcast
	f.session.OnBroadcast(func(b Broadcast) { got = b })
	require.NoError(t, f.session.ApplyStructuralEdit(dualview.Op{
		Kind: dualview.OpUpdate, Target: loc(t, "div"), Key: "class", Value: "hero",
	}))

	require.Len(t, got.Snapshot, 1)
	widget := got.Snapshot[0].Children[0]
	assert.Equal(t, "my-counter", widget.Tag)
	assert.Empty(t, widget.Children, "foreign element stays an encapsulated leaf")
	assert.Equal(t, "3", widget.Props["count"])
	assert.Equal(t, "clicks", widget.Props["label"])
	assert.Equal(t, map[string]string{"count": "3", "label": "clicks"},
		got.RuntimeProperties["div.hero/my-counter"])
}

func TestRegenerateSourceAtomicity(t *testing.T) {
	f := newFixture(t, Config{})
	require.NoError(t, f.session.LoadContent(context.Background(), `<div></div>`))

	t.Run("no markers means no change", func(t *testing.T) {
		src := "const x = 1\n"
		assert.Equal(t, src, f.session.RegenerateSource(src))
	})

	t.Run("valid source is rewritten deterministically", func(t *testing.T) {
		once := f.session.RegenerateSource(pageSource)
		assert.NotEqual(t, pageSource, once)
		assert.Equal(t, once, f.session.RegenerateSource(once), "regeneration is stable")
	})
}

func TestIdempotence(t *testing.T) {
	f := newFixture(t, Config{})
	markup := `<div class="hero"><span>hello</span><p>world</p></div>`
	require.NoError(t, f.session.LoadContent(context.Background(), markup))

	first := snapshot.CaptureAll(f.session.state.Clean)

	// Round trip: render the clean tree, reload it as fresh content, and
	// capture again. The snapshot must come back structurally identical.
	rendered := dom.RenderAll(f.session.state.Clean)
	require.NoError(t, f.session.LoadContent(context.Background(), rendered))
	second := snapshot.CaptureAll(f.session.state.Clean)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("snapshot drifted over a render round trip (-first +second):\n%s", diff)
	}
}

func TestStructuralEditsUpdateSource(t *testing.T) {
	f := newFixture(t, Config{Debounce: 20 * time.Millisecond})
	require.NoError(t, f.session.LoadContent(context.Background(), `<div class="hero"></div>`))

	var lastBroadcast Broadcast
	f.session.OnBroadcast(func(b Broadcast) { lastBroadcast = b })

	require.NoError(t, f.session.ApplyStructuralEdit(dualview.Op{
		Kind: dualview.OpInsertInside, Target: loc(t, "div.hero"), Markup: `<span>hi</span>`,
	}))
	require.NoError(t, f.session.ApplyStructuralEdit(dualview.Op{
		Kind: dualview.OpDuplicate, Target: loc(t, "div.hero/span"),
	}))

	text, err := f.store.Read()
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(text, `span("hi")`))

	assert.Empty(t, lastBroadcast.Error)
	assert.Contains(t, lastBroadcast.DecoratedTreeMarkup, dualview.OverlayAttr,
		"broadcast carries the decorated overlay")
	assert.NotContains(t, text, dualview.OverlayAttr,
		"decoration never leaks into generated source")
}

func TestFailedEditBroadcastsError(t *testing.T) {
	f := newFixture(t, Config{})
	require.NoError(t, f.session.LoadContent(context.Background(), `<div></div>`))

	var got Broadcast
	f.session.OnBroadcast(func(b Broadcast) { got = b })

	before, _ := f.store.Read()
	err := f.session.ApplyStructuralEdit(dualview.Op{
		Kind: dualview.OpDelete, Target: loc(t, "section.gone"),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, dualview.ErrLocator)
	assert.NotEmpty(t, got.Error, "failure must surface, never a silent no-op")

	after, _ := f.store.Read()
	assert.Equal(t, before, after)
}

func TestMovePreservesRuntimeState(t *testing.T) {
	f := newFixture(t, Config{})
	require.NoError(t, f.session.LoadContent(context.Background(),
		`<div class="hero"><my-counter></my-counter></div><section class="side"></section>`))

	widget := dom.FindByTagAttrs(f.session.state.Clean, "my-counter", nil)
	require.NotNil(t, widget)
	widget.Props = map[string]any{"count": 42}

	f.session.Select(loc(t, "div.hero/my-counter"))
	require.NoError(t, f.session.ApplyStructuralEdit(dualview.Op{
		Kind:     dualview.OpMove,
		Source:   loc(t, "div.hero/my-counter"),
		Target:   loc(t, "section.side"),
		Position: dualview.PosInside,
	}))

	moved := dom.FindByTagAttrs(f.session.state.Clean, "my-counter", nil)
	require.NotNil(t, moved)
	assert.Same(t, widget, moved)
	assert.Equal(t, 42, moved.Props["count"])

	assert.Equal(t, "section.side/my-counter", f.session.Selection().String(),
		"selection re-resolves to the node's new locator")
}

func TestDebounceRedecorates(t *testing.T) {
	f := newFixture(t, Config{Debounce: 20 * time.Millisecond})
	require.NoError(t, f.session.LoadContent(context.Background(), `<div class="hero"></div>`))

	// Burst of structural changes inside one window.
	for i := 0; i < 3; i++ {
		require.NoError(t, f.session.ApplyStructuralEdit(dualview.Op{
			Kind: dualview.OpInsertInside, Target: loc(t, "div.hero"), Markup: `<span>x</span>`,
		}))
	}

	// Simulate a node that slipped in without decorations.
	_ = f.session.do(func() error {
		bare := dom.NewElement("em")
		f.session.state.Overlay[0].AppendChild(bare)
		f.session.state.Clean[0].AppendChild(dom.NewElement("em"))
		f.session.markDirty()
		return nil
	})

	assert.Eventually(t, func() bool {
		decorated := false
		_ = f.session.do(func() error {
			if em := dom.FindByTagAttrs(f.session.state.Overlay, "em", nil); em != nil {
				_, decorated = em.Attr(dualview.OverlayAttr)
			}
			return nil
		})
		return decorated
	}, time.Second, 10*time.Millisecond, "debounce window should re-attach decorations")
}

func TestCloseRejectsFurtherWork(t *testing.T) {
	f := newFixture(t, Config{})
	require.NoError(t, f.session.LoadContent(context.Background(), `<div></div>`))
	f.session.Close()

	err := f.session.ApplyStructuralEdit(dualview.Op{Kind: dualview.OpDelete, Target: loc(t, "div")})
	assert.ErrorIs(t, err, ErrClosed)
	assert.Equal(t, pageSource, f.session.RegenerateSource(pageSource))
}
