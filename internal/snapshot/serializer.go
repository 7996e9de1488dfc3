package snapshot

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"livecanvas/internal/dom"
	"livecanvas/internal/logging"
)

// MarkerAttr is the internal node-marker attribute. It exists only for
// editor bookkeeping and is never part of a capture.
const MarkerAttr = "data-canvas-id"

// reservedAttrs never appear in a snapshot: the internal marker and the
// browser's default tooltip attribute. This list is closed; do not extend
// it without revisiting every consumer.
var reservedAttrs = map[string]bool{
	MarkerAttr: true,
	"title":    true,
}

// Getter exposes a zero-argument retrieval method, the middle rung of the
// runtime property probe chain.
type Getter interface {
	Get() any
}

// Capture serializes one clean-tree node into a snapshot node. Returns nil
// for whitespace-only text, which is never materialized.
func Capture(el *dom.Element) *Node {
	if el.IsText() {
		content := strings.TrimSpace(el.Text)
		if content == "" {
			return nil
		}
		return &Node{Kind: KindText, Content: content}
	}

	node := &Node{Kind: KindElement, Tag: el.Tag}
	for _, a := range el.Attrs {
		if reservedAttrs[a.Key] {
			continue
		}
		node.Attrs = append(node.Attrs, Attr{Key: a.Key, Value: a.Value})
	}

	if el.IsForeign() {
		// Custom elements are encapsulated leaves: their markup belongs to
		// their own component source, so live children are never traversed.
		// Live state is captured from the runtime property bag instead.
		node.Props = extractProps(el.Props)
		return node
	}

	for _, c := range el.Children {
		if child := Capture(c); child != nil {
			node.Children = append(node.Children, child)
		}
	}
	return node
}

// CaptureAll serializes a forest of top-level siblings.
func CaptureAll(roots []*dom.Element) []*Node {
	var nodes []*Node
	for _, r := range roots {
		if n := Capture(r); n != nil {
			nodes = append(nodes, n)
		}
	}
	return nodes
}

// extractProps reads the runtime property bag of a custom element. Each
// member goes through the probe chain: callable, then zero-arg retrieval
// container, then primitive. A member that cannot be read is skipped; one
// bad property must not lose the rest of the capture.
func extractProps(bag map[string]any) map[string]string {
	if len(bag) == 0 {
		return nil
	}
	out := make(map[string]string, len(bag))
	keys := make([]string, 0, len(bag))
	for k := range bag {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if strings.HasPrefix(key, "_") {
			continue
		}
		if s, ok := probeMember(key, bag[key]); ok {
			out[key] = s
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// probeMember resolves a single member to its string form.
func probeMember(key string, value any) (result string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logging.SnapshotDebug("property %q read panicked: %v", key, r)
			result, ok = "", false
		}
	}()

	if value == nil {
		return "", false
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Func {
		if rv.Type().NumIn() != 0 || rv.Type().NumOut() == 0 {
			return "", false
		}
		return coercePrimitive(rv.Call(nil)[0])
	}

	if g, isGetter := value.(Getter); isGetter {
		got := g.Get()
		if got == nil {
			return "", false
		}
		return coercePrimitive(reflect.ValueOf(got))
	}

	return coercePrimitive(rv)
}

// coercePrimitive turns a value into its transport string, refusing
// callables and container shapes. Pointers and interfaces are unwrapped
// first so the coercion sees the underlying value.
func coercePrimitive(v reflect.Value) (string, bool) {
	for v.Kind() == reflect.Interface || v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return "", false
		}
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Func, reflect.Map, reflect.Slice, reflect.Array,
		reflect.Struct, reflect.Chan, reflect.Invalid:
		return "", false
	}
	return fmt.Sprintf("%v", v.Interface()), true
}
