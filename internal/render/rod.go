package render

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"livecanvas/internal/logging"
)

// Config holds the browser surface settings.
type Config struct {
	DebuggerURL         string `yaml:"debugger_url" json:"debugger_url"`
	Headless            bool   `yaml:"headless" json:"headless"`
	ViewportWidth       int    `yaml:"viewport_width" json:"viewport_width"`
	ViewportHeight      int    `yaml:"viewport_height" json:"viewport_height"`
	NavigationTimeoutMs int    `yaml:"navigation_timeout_ms" json:"navigation_timeout_ms"`
	SettleMs            int    `yaml:"settle_ms" json:"settle_ms"` // DOM-stability window after load
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Headless:            true,
		ViewportWidth:       1280,
		ViewportHeight:      800,
		NavigationTimeoutMs: 30000,
		SettleMs:            300,
	}
}

func (c Config) navigationTimeout() time.Duration {
	if c.NavigationTimeoutMs == 0 {
		return 30 * time.Second
	}
	return time.Duration(c.NavigationTimeoutMs) * time.Millisecond
}

func (c Config) settle() time.Duration {
	if c.SettleMs == 0 {
		return 300 * time.Millisecond
	}
	return time.Duration(c.SettleMs) * time.Millisecond
}

// RodSurface renders the clean tree in a Chrome page over CDP. The load
// signal fires once the page has loaded and its DOM has settled, which is
// when self-rendering custom elements have produced their markup.
type RodSurface struct {
	cfg     Config
	browser *rod.Browser
	page    *rod.Page

	mu     sync.Mutex
	loaded chan struct{}
}

// NewRodSurface connects to (or launches) Chrome and opens a blank page.
func NewRodSurface(ctx context.Context, cfg Config) (*RodSurface, error) {
	controlURL := cfg.DebuggerURL
	if controlURL == "" {
		url, err := launcher.New().Headless(cfg.Headless).Launch()
		if err != nil {
			return nil, fmt.Errorf("launch chrome: %w", err)
		}
		controlURL = url
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		browser.Close()
		return nil, fmt.Errorf("open page: %w", err)
	}
	if cfg.ViewportWidth > 0 && cfg.ViewportHeight > 0 {
		if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:  cfg.ViewportWidth,
			Height: cfg.ViewportHeight,
		}); err != nil {
			logging.Get(logging.CategoryRender).Warn("set viewport: %v", err)
		}
	}

	closed := make(chan struct{})
	close(closed)
	return &RodSurface{cfg: cfg, browser: browser, page: page, loaded: closed}, nil
}

// SetContent implements Surface. The returned error covers the content
// replacement itself; load completion is reported through Loaded.
func (s *RodSurface) SetContent(ctx context.Context, markup string) error {
	s.mu.Lock()
	loaded := make(chan struct{})
	s.loaded = loaded
	s.mu.Unlock()

	page := s.page.Context(ctx).Timeout(s.cfg.navigationTimeout())
	if err := page.SetDocumentContent("<!DOCTYPE html><html><body>" + markup + "</body></html>"); err != nil {
		close(loaded)
		return fmt.Errorf("set document content: %w", err)
	}

	go func() {
		defer close(loaded)
		if err := page.WaitLoad(); err != nil {
			logging.Get(logging.CategoryRender).Warn("wait load: %v", err)
			return
		}
		// Custom elements keep rendering after the load event; wait for the
		// DOM to stop changing before declaring the surface ready.
		if err := page.WaitDOMStable(s.cfg.settle(), 0); err != nil {
			logging.Get(logging.CategoryRender).Warn("wait dom stable: %v", err)
		}
	}()
	return nil
}

// Loaded implements Surface.
func (s *RodSurface) Loaded() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// Markup implements Surface, returning the body's inner HTML.
func (s *RodSurface) Markup(ctx context.Context) (string, error) {
	obj, err := s.page.Context(ctx).Eval(`() => document.body.innerHTML`)
	if err != nil {
		return "", fmt.Errorf("read markup: %w", err)
	}
	return obj.Value.Str(), nil
}

// propertyProbeJS reads the runtime properties of one element. Each member
// goes through the probe chain; a member that throws is skipped.
const propertyProbeJS = `(sel) => {
	const el = document.querySelector(sel)
	if (!el) return {}
	const out = {}
	for (const key of Object.keys(el)) {
		if (key.startsWith('_')) continue
		try {
			let v = el[key]
			if (typeof v === 'function') {
				if (v.length !== 0) continue
				v = v.call(el)
				if (typeof v === 'function' || (v !== null && typeof v === 'object')) continue
			} else if (v !== null && typeof v === 'object') {
				if (typeof v.get !== 'function') continue
				v = v.get()
				if (typeof v === 'function' || (v !== null && typeof v === 'object')) continue
			}
			if (v === undefined || v === null) continue
			out[key] = String(v)
		} catch (e) {}
	}
	return out
}`

// Properties implements Surface.
func (s *RodSurface) Properties(ctx context.Context, selector string) (map[string]string, error) {
	obj, err := s.page.Context(ctx).Eval(propertyProbeJS, selector)
	if err != nil {
		return nil, fmt.Errorf("probe properties of %q: %w", selector, err)
	}
	out := make(map[string]string)
	for k, v := range obj.Value.Map() {
		out[k] = v.Str()
	}
	return out, nil
}

// Close implements Surface.
func (s *RodSurface) Close() error {
	if s.browser != nil {
		return s.browser.Close()
	}
	return nil
}
