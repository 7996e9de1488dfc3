// Package snapshot turns a clean live tree into its canonical structural
// form: the decoration-free representation that code generation and the
// observer broadcast both consume. Snapshots are transient; one is built
// per synchronization pass and discarded after use.
package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Kind discriminates element nodes from text nodes.
type Kind string

const (
	KindElement Kind = "element"
	KindText    Kind = "text"
)

// Attr is one captured attribute. Order is preserved end to end.
type Attr struct {
	Key   string
	Value string
}

// Node is one node of a snapshot tree.
type Node struct {
	Kind     Kind              `json:"kind"`
	Tag      string            `json:"tag,omitempty"`
	Attrs    OrderedAttrs      `json:"attributes,omitempty"`
	Props    map[string]string `json:"runtimeProperties,omitempty"`
	Children []*Node           `json:"children,omitempty"`
	Content  string            `json:"content,omitempty"`
}

// OrderedAttrs is an attribute list that marshals as a JSON object while
// keeping source order.
type OrderedAttrs []Attr

// Get returns the value for key.
func (oa OrderedAttrs) Get(key string) (string, bool) {
	for _, a := range oa {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

// MarshalJSON renders the attributes as an object in capture order.
func (oa OrderedAttrs) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, a := range oa {
		if i > 0 {
			b.WriteByte(',')
		}
		k, err := json.Marshal(a.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(a.Value)
		if err != nil {
			return nil, err
		}
		b.Write(k)
		b.WriteByte(':')
		b.Write(v)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// UnmarshalJSON reads an attribute object back preserving key order.
func (oa *OrderedAttrs) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("attributes: expected object, got %v", tok)
	}
	var out OrderedAttrs
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("attributes: non-string key %v", keyTok)
		}
		var val string
		if err := dec.Decode(&val); err != nil {
			return fmt.Errorf("attributes: value for %q: %w", key, err)
		}
		out = append(out, Attr{Key: key, Value: val})
	}
	*oa = out
	return nil
}

// IsText reports whether the node is a text leaf.
func (n *Node) IsText() bool {
	return n.Kind == KindText
}

// Equal reports structural equality of two nodes.
func (n *Node) Equal(other *Node) bool {
	if n == nil || other == nil {
		return n == other
	}
	if n.Kind != other.Kind || n.Tag != other.Tag || n.Content != other.Content {
		return false
	}
	if len(n.Attrs) != len(other.Attrs) || len(n.Children) != len(other.Children) {
		return false
	}
	for i := range n.Attrs {
		if n.Attrs[i] != other.Attrs[i] {
			return false
		}
	}
	if len(n.Props) != len(other.Props) {
		return false
	}
	for k, v := range n.Props {
		if other.Props[k] != v {
			return false
		}
	}
	for i := range n.Children {
		if !n.Children[i].Equal(other.Children[i]) {
			return false
		}
	}
	return true
}

// EqualForest reports structural equality of two sibling lists.
func EqualForest(a, b []*Node) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
