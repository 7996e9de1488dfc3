// Package session sequences the synchronization pipeline: structural edits
// go through the dual-view adapter, captures run against the clean tree,
// generated source is patched into the authored document, and observer
// panels receive the decorated tree after every successful mutation. All
// work is serialized on one event loop; the next operator action is only
// accepted once the previous one has fully completed.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"livecanvas/internal/codegen"
	"livecanvas/internal/dom"
	"livecanvas/internal/dualview"
	"livecanvas/internal/logging"
	"livecanvas/internal/patcher"
	"livecanvas/internal/registry"
	"livecanvas/internal/render"
	"livecanvas/internal/snapshot"
)

// DefaultDebounce is the coalescing window for bursts of structural
// changes before interactive decorations are re-attached.
const DefaultDebounce = 250 * time.Millisecond

// ErrClosed is returned for operations against a stopped session.
var ErrClosed = errors.New("session closed")

// Config identifies the component being authored and tunes the scheduler.
type Config struct {
	// OwnSymbol is the authored component's symbol, the self-reference
	// guard for code generation.
	OwnSymbol string
	// SourceDir is the directory of the authored file, for relative local
	// import paths.
	SourceDir string
	// SharedModule and MixinModule override the construction idiom's fixed
	// module paths when non-empty.
	SharedModule string
	MixinModule  string
	// Debounce is the structural-change coalescing window.
	Debounce time.Duration
}

// Broadcast is the payload delivered to observer panels.
type Broadcast struct {
	DecoratedTreeMarkup string                       `json:"decoratedTreeMarkup"`
	Snapshot            []*snapshot.Node             `json:"snapshot"`
	RuntimeProperties   map[string]map[string]string `json:"runtimeProperties"`
	// Error carries a rendered error state for the affected view. A failed
	// pass is surfaced, never silently dropped.
	Error string `json:"error,omitempty"`
}

// Observer receives broadcast payloads. Called from the event loop; keep
// it quick or hand off.
type Observer func(Broadcast)

// Session owns one editing session's dual-view state and scheduler.
type Session struct {
	ID string

	cfg     Config
	surface render.Surface
	store   SourceStore
	gen     *codegen.Generator
	patcher *patcher.Patcher

	commands chan command
	stopCh   chan struct{}
	doneCh   chan struct{}

	// Everything below is owned by the event loop goroutine.
	state     *dualview.State
	observers []Observer
	selection dom.Locator
	hover     dom.Locator
	debounce  *time.Timer
	debounceC <-chan time.Time
}

type command struct {
	fn    func() error
	reply chan error
}

// New assembles a session around its collaborators.
func New(cfg Config, reg registry.Registry, surface render.Surface, store SourceStore) *Session {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	p := patcher.New()
	if cfg.MixinModule != "" {
		p.MixinModule = cfg.MixinModule
	}
	return &Session{
		ID:      uuid.NewString(),
		cfg:     cfg,
		surface: surface,
		store:   store,
		gen: &codegen.Generator{
			Registry:     reg,
			SharedModule: cfg.SharedModule,
			OwnSymbol:    cfg.OwnSymbol,
			SourceDir:    cfg.SourceDir,
		},
		patcher:  p,
		commands: make(chan command),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
		state:    &dualview.State{},
	}
}

// Start launches the event loop.
func (s *Session) Start(ctx context.Context) {
	go s.run(ctx)
	logging.Session("session %s started", s.ID)
}

// Close stops the event loop and waits for it to drain.
func (s *Session) Close() {
	select {
	case <-s.doneCh:
		return
	default:
	}
	close(s.stopCh)
	<-s.doneCh
	logging.Session("session %s closed", s.ID)
}

// run is the single-threaded scheduler loop.
func (s *Session) run(ctx context.Context) {
	defer close(s.doneCh)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case cmd := <-s.commands:
			cmd.reply <- cmd.fn()
		case <-s.debounceC:
			s.debounceC = nil
			s.redecorate()
		}
	}
}

// do serializes one operation onto the event loop and waits for it.
func (s *Session) do(fn func() error) error {
	cmd := command{fn: fn, reply: make(chan error, 1)}
	select {
	case s.commands <- cmd:
	case <-s.doneCh:
		return ErrClosed
	}
	select {
	case err := <-cmd.reply:
		return err
	case <-s.doneCh:
		return ErrClosed
	}
}

// OnBroadcast registers an observer panel.
func (s *Session) OnBroadcast(obs Observer) {
	_ = s.do(func() error {
		s.observers = append(s.observers, obs)
		return nil
	})
}

// LoadContent performs a full-content replacement of the session's trees.
// Dependent work waits for the surface's load-complete signal: custom
// elements self-render asynchronously after it, and a capture taken
// earlier would see an incomplete tree.
func (s *Session) LoadContent(ctx context.Context, markup string) error {
	return s.do(func() error {
		if err := s.surface.SetContent(ctx, markup); err != nil {
			return fmt.Errorf("surface content replacement: %w", err)
		}
		select {
		case <-s.surface.Loaded():
		case <-ctx.Done():
			return ctx.Err()
		}

		rendered, err := s.surface.Markup(ctx)
		if err != nil {
			return fmt.Errorf("read rendered markup: %w", err)
		}
		state, err := dualview.NewState(rendered)
		if err != nil {
			return fmt.Errorf("rebuild dual-view state: %w", err)
		}
		s.state = state
		s.refreshProperties(ctx)
		logging.Session("session %s: full reload, %d top-level nodes", s.ID, len(state.Clean))

		s.syncSource()
		s.publish("")
		return nil
	})
}

// ApplyStructuralEdit applies one operation to both trees, then runs the
// capture/generate/patch pass and notifies observers.
func (s *Session) ApplyStructuralEdit(op dualview.Op) error {
	return s.do(func() error {
		// A move shifts locator ordinals, so the selection's path form
		// cannot be trusted afterwards. Remember the selected node's shape
		// now and re-match it once the move has landed.
		var selTag string
		var selAttrs []dom.Attr
		if op.Kind == dualview.OpMove && len(s.selection) > 0 {
			if n := dom.Resolve(s.selection, s.state.Clean); n != nil {
				selTag = n.Tag
				selAttrs = append(selAttrs, n.Attrs...)
			}
		}

		if err := s.state.Apply(op); err != nil {
			logging.Get(logging.CategorySession).Warn("edit %s rejected: %v", op.Kind, err)
			s.publish(err.Error())
			return err
		}
		if selTag != "" {
			s.selection = s.state.ReResolve(selTag, selAttrs)
		}
		s.markDirty()
		s.syncSource()
		s.publish("")
		return nil
	})
}

// RegenerateSource regenerates the machine-owned regions of sourceText
// from the current clean tree. It never fails outward: when the document
// cannot be safely rewritten the input comes back unchanged and the error
// is surfaced through the broadcast instead.
func (s *Session) RegenerateSource(sourceText string) string {
	out := sourceText
	_ = s.do(func() error {
		out = s.regenerate(sourceText)
		return nil
	})
	return out
}

// Select marks the operator's selection and re-broadcasts.
func (s *Session) Select(loc dom.Locator) {
	_ = s.do(func() error {
		s.selection = loc
		s.publish("")
		return nil
	})
}

// Hover marks the hover target and re-broadcasts.
func (s *Session) Hover(loc dom.Locator) {
	_ = s.do(func() error {
		s.hover = loc
		s.publish("")
		return nil
	})
}

// Selection returns the operator's current selection locator.
func (s *Session) Selection() dom.Locator {
	var out dom.Locator
	_ = s.do(func() error {
		out = s.selection
		return nil
	})
	return out
}

// regenerate is the capture → generate → patch pipeline. Any panic or
// anchor failure degrades to the unchanged input.
func (s *Session) regenerate(sourceText string) (out string) {
	out = sourceText
	defer func() {
		if r := recover(); r != nil {
			logging.Get(logging.CategorySession).Error("regeneration panicked, source preserved: %v", r)
			s.publish(fmt.Sprintf("regeneration failed: %v", r))
			out = sourceText
		}
	}()

	nodes := snapshot.CaptureAll(s.state.Clean)
	res := s.gen.Generate(nodes)
	patched, err := s.patcher.Patch(sourceText, res.Imports, res.Body)
	if err != nil {
		logging.Get(logging.CategorySession).Warn("patch failed, source preserved: %v", err)
		s.publish(fmt.Sprintf("source not rewritten: %v", err))
		return sourceText
	}
	return patched
}

// syncSource reads the authored document, regenerates its machine-owned
// regions, and writes it back only when something changed.
func (s *Session) syncSource() {
	text, err := s.store.Read()
	if err != nil {
		logging.Get(logging.CategorySession).Error("read source: %v", err)
		s.publish(fmt.Sprintf("source unreadable: %v", err))
		return
	}
	updated := s.regenerate(text)
	if updated == text {
		return
	}
	if err := s.store.Write(updated); err != nil {
		logging.Get(logging.CategorySession).Error("write source: %v", err)
		s.publish(fmt.Sprintf("source not written: %v", err))
	}
}

// markDirty arms (or re-arms) the debounce window that batches decoration
// work behind a burst of structural changes.
func (s *Session) markDirty() {
	if s.debounce != nil {
		s.debounce.Stop()
	}
	s.debounce = time.NewTimer(s.cfg.Debounce)
	s.debounceC = s.debounce.C
}

// redecorate re-attaches interactive decorations to overlay nodes that
// arrived during the debounce window.
func (s *Session) redecorate() {
	for _, r := range s.state.Overlay {
		dualview.DecorateTree(r)
	}
	logging.SessionDebug("session %s: overlay redecorated", s.ID)
}

// refreshProperties pulls live runtime properties for every custom element
// from the render surface into the clean tree's property bags.
func (s *Session) refreshProperties(ctx context.Context) {
	for _, root := range s.state.Clean {
		root.Walk(func(e *dom.Element) bool {
			if e.IsText() {
				return true
			}
			if !e.IsForeign() {
				return true
			}
			loc := dom.LocatorFor(e, s.state.Clean)
			props, err := s.surface.Properties(ctx, loc.CSS())
			if err != nil {
				logging.Get(logging.CategoryRender).Warn("properties of %s: %v", loc, err)
				return false
			}
			if len(props) > 0 {
				e.Props = make(map[string]any, len(props))
				for k, v := range props {
					e.Props[k] = v
				}
			}
			return false // encapsulated; never descend
		})
	}
}

// publish builds the broadcast payload and hands it to every observer.
// Selection and hover markers go onto a throwaway clone that is discarded
// right after rendering, so they can never leak into a persistent tree.
func (s *Session) publish(errText string) {
	clones := make([]*dom.Element, len(s.state.Overlay))
	for i, r := range s.state.Overlay {
		clones[i] = r.Clone()
	}
	if n := dom.Resolve(s.selection, clones); n != nil {
		n.AddClass(dualview.SelectedClass)
	}
	if n := dom.Resolve(s.hover, clones); n != nil {
		n.AddClass(dualview.HoverClass)
	}

	nodes := snapshot.CaptureAll(s.state.Clean)
	payload := Broadcast{
		DecoratedTreeMarkup: dom.RenderAll(clones),
		Snapshot:            nodes,
		RuntimeProperties:   s.collectProperties(),
		Error:               errText,
	}
	for _, obs := range s.observers {
		obs(payload)
	}
}

// collectProperties maps each custom element's locator to its captured
// runtime properties.
func (s *Session) collectProperties() map[string]map[string]string {
	out := make(map[string]map[string]string)
	for _, root := range s.state.Clean {
		root.Walk(func(e *dom.Element) bool {
			if e.IsText() {
				return true
			}
			if !e.IsForeign() {
				return true
			}
			if n := snapshot.Capture(e); n != nil && len(n.Props) > 0 {
				out[dom.LocatorFor(e, s.state.Clean).String()] = n.Props
			}
			return false
		})
	}
	return out
}
