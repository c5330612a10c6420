package dsl

import (
	"bytes"
	"io"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// Top level sections of a unit.
const (
	KeyNamespace = "namespace"
	KeySchema    = "schema"
	KeyType      = "type"
	KeyEntity    = "entity"
	KeyRelation  = "relation"
)

// Ext is the file extension of a DSL unit.
const Ext = ".ool"

// Parser turns the source of one unit into its raw parse tree.
type Parser interface {
	Parse(filename string, src []byte) (*Map, error)
}

// YAMLParser reads units whose parse tree is encoded as YAML.
// Mapping order is preserved.
type YAMLParser struct{}

// Parse implements Parser.
func (YAMLParser) Parse(filename string, src []byte) (*Map, error) {
	dec := yaml.NewDecoder(bytes.NewReader(src))
	var doc yaml.Node
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return NewMap(), nil
		}
		return nil, errors.Wrapf(err, "parse %s", filename)
	}
	v, err := convert(&doc)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", filename)
	}
	if v == nil {
		return NewMap(), nil
	}
	m, ok := v.(*Map)
	if !ok {
		return nil, errors.Newf("parse %s: top level must be a mapping", filename)
	}
	return m, nil
}

func convert(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return convert(n.Content[0])
	case yaml.MappingNode:
		m := NewMap()
		for i := 0; i+1 < len(n.Content); i += 2 {
			k := n.Content[i]
			if k.Kind != yaml.ScalarNode {
				return nil, errors.Newf("line %d: mapping keys must be scalars", k.Line)
			}
			v, err := convert(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			m.Set(k.Value, v)
		}
		return m, nil
	case yaml.SequenceNode:
		l := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := convert(c)
			if err != nil {
				return nil, err
			}
			l = append(l, v)
		}
		return l, nil
	case yaml.AliasNode:
		return convert(n.Alias)
	case yaml.ScalarNode:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, errors.Wrapf(err, "line %d", n.Line)
		}
		return v, nil
	default:
		return nil, errors.Newf("line %d: unsupported node", n.Line)
	}
}

// MarshalYAML renders the map as an ordered YAML mapping.
func (m *Map) MarshalYAML() (any, error) {
	n := &yaml.Node{Kind: yaml.MappingNode}
	var err error
	m.Range(func(k string, v any) bool {
		var vn yaml.Node
		if err = vn.Encode(v); err != nil {
			return false
		}
		n.Content = append(n.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: k}, &vn)
		return true
	})
	if err != nil {
		return nil, err
	}
	return n, nil
}
