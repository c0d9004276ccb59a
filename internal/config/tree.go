package config

import (
	"bytes"
	"errors"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Map is an ordered configuration tree. Values are scalars, lists ([]any)
// or nested *Map values. Key order follows first appearance, which keeps
// order-sensitive sections (such as regex routes) in declaration order
// across merges.
type Map struct {
	keys   []string
	values map[string]any
}

// NewMap returns an empty Map.
func NewMap() *Map {
	return &Map{values: make(map[string]any)}
}

// Len reports the number of top-level keys. A nil Map is empty.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns the top-level keys in order.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Get returns the value stored under key.
func (m *Map) Get(key string) (any, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m.values[key]
	return v, ok
}

// Set stores v under key. New keys are appended; existing keys keep their position.
func (m *Map) Set(key string, v any) {
	if m.values == nil {
		m.values = make(map[string]any)
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
}

// Lookup resolves a dot-separated path such as "http.base_url".
// An empty path resolves to the map itself.
func (m *Map) Lookup(path string) (any, bool) {
	if m == nil {
		return nil, false
	}
	if path == "" {
		return m, true
	}

	var cur any = m
	for _, seg := range strings.Split(path, ".") {
		sub, ok := cur.(*Map)
		if !ok {
			return nil, false
		}
		cur, ok = sub.Get(seg)
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Sub returns the nested map under path, or an empty map when absent.
func (m *Map) Sub(path string) *Map {
	v, ok := m.Lookup(path)
	if !ok {
		return NewMap()
	}
	sub, ok := v.(*Map)
	if !ok {
		return NewMap()
	}
	return sub
}

// Clone returns a deep copy of m.
func (m *Map) Clone() *Map {
	out := NewMap()
	if m == nil {
		return out
	}
	for _, k := range m.keys {
		out.Set(k, cloneValue(m.values[k]))
	}
	return out
}

// Plain converts the tree into ordinary maps and slices.
func (m *Map) Plain() map[string]any {
	out := make(map[string]any, m.Len())
	if m == nil {
		return out
	}
	for _, k := range m.keys {
		out[k] = plainValue(m.values[k])
	}
	return out
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case *Map:
		return x.Clone()
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

func plainValue(v any) any {
	switch x := v.(type) {
	case *Map:
		return x.Plain()
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = plainValue(e)
		}
		return out
	default:
		return v
	}
}

// Merge folds layers left to right into a new Map; the last layer wins per key.
// Nested maps merge recursively when both sides are non-empty maps. Lists and
// every other value, including empty ones, replace the previous value
// wholesale. Inputs are never mutated.
func Merge(layers ...*Map) *Map {
	out := NewMap()
	for _, layer := range layers {
		mergeInto(out, layer)
	}
	return out
}

func mergeInto(dst, src *Map) {
	if src == nil {
		return
	}
	for _, k := range src.keys {
		sv := src.values[k]
		if sm, ok := sv.(*Map); ok && sm.Len() > 0 {
			if dm, ok := dst.values[k].(*Map); ok && dm.Len() > 0 {
				mergeInto(dm, sm)
				continue
			}
		}
		dst.Set(k, cloneValue(sv))
	}
}

// Parse decodes a single YAML document into a Map. An empty document
// (including one holding only comments) yields an empty Map.
func Parse(r io.Reader) (*Map, error) {
	var doc yaml.Node
	err := yaml.NewDecoder(r).Decode(&doc)
	if errors.Is(err, io.EOF) {
		return NewMap(), nil
	}
	if err != nil {
		return nil, InvalidYamlError{Cause: err}
	}

	root := &doc
	if root.Kind == yaml.DocumentNode {
		if len(root.Content) == 0 {
			return NewMap(), nil
		}
		root = root.Content[0]
	}
	root = resolveAlias(root)
	if root.Kind == yaml.ScalarNode && root.Tag == "!!null" {
		return NewMap(), nil
	}
	if root.Kind != yaml.MappingNode {
		return nil, NotAMappingError{Line: root.Line}
	}
	return fromMapping(root)
}

// ParseBytes is Parse over an in-memory document.
func ParseBytes(b []byte) (*Map, error) {
	return Parse(bytes.NewReader(b))
}

// ReadFile parses the YAML file at path. A missing file yields
// (nil, false, nil) so optional layers can be skipped.
func ReadFile(path string) (*Map, bool, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	defer f.Close()

	m, err := Parse(f)
	if err != nil {
		return nil, false, FileError{Path: path, Cause: err}
	}
	return m, true, nil
}

func resolveAlias(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

func fromMapping(n *yaml.Node) (*Map, error) {
	m := NewMap()
	for i := 0; i+1 < len(n.Content); i += 2 {
		k := resolveAlias(n.Content[i])
		if k.Kind != yaml.ScalarNode {
			return nil, NonScalarKeyError{Line: k.Line}
		}
		v, err := fromNode(n.Content[i+1])
		if err != nil {
			return nil, err
		}
		m.Set(k.Value, v)
	}
	return m, nil
}

func fromNode(n *yaml.Node) (any, error) {
	n = resolveAlias(n)
	switch n.Kind {
	case yaml.MappingNode:
		return fromMapping(n)
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := fromNode(c)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	default:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, InvalidYamlError{Cause: err}
		}
		return v, nil
	}
}

// MarshalYAML encodes the map as a YAML mapping in key order.
func (m *Map) MarshalYAML() (any, error) {
	return m.node()
}

func (m *Map) node() (*yaml.Node, error) {
	out := &yaml.Node{Kind: yaml.MappingNode}
	if m == nil {
		return out, nil
	}
	for _, k := range m.keys {
		v, err := valueNode(m.values[k])
		if err != nil {
			return nil, err
		}
		out.Content = append(out.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: k}, v)
	}
	return out, nil
}

func valueNode(v any) (*yaml.Node, error) {
	switch x := v.(type) {
	case *Map:
		return x.node()
	case []any:
		seq := &yaml.Node{Kind: yaml.SequenceNode}
		for _, e := range x {
			n, err := valueNode(e)
			if err != nil {
				return nil, err
			}
			seq.Content = append(seq.Content, n)
		}
		return seq, nil
	default:
		var n yaml.Node
		if err := n.Encode(v); err != nil {
			return nil, err
		}
		return &n, nil
	}
}
