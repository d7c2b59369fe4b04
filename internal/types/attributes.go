package types

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Attr is a single named attribute. Names are camel-case in memory.
type Attr struct {
	Name  string
	Value Value
}

// Attributes is an insertion-ordered set of attributes with unique names.
// Order is kept so that encoding is deterministic.
type Attributes struct {
	list []Attr
}

// NewAttributes builds an attribute set from name/value pairs. Later pairs
// override earlier ones with the same name.
func NewAttributes(attrs ...Attr) Attributes {
	var a Attributes
	for _, attr := range attrs {
		a.Set(attr.Name, attr.Value)
	}
	return a
}

// AttributesFromMap converts a plain map. Keys are applied in sorted order
// because Go maps carry no order of their own.
func AttributesFromMap(m map[string]interface{}) (Attributes, error) {
	var a Attributes
	for _, key := range sortedKeys(m) {
		v, err := ValueOf(m[key])
		if err != nil {
			return Attributes{}, fmt.Errorf("attribute %q: %w", key, err)
		}
		a.Set(key, v)
	}
	return a, nil
}

// Len returns the number of attributes.
func (a Attributes) Len() int { return len(a.list) }

// Get returns the value stored under name.
func (a Attributes) Get(name string) (Value, bool) {
	for _, attr := range a.list {
		if attr.Name == name {
			return attr.Value, true
		}
	}
	return Null, false
}

// Has reports whether name is present.
func (a Attributes) Has(name string) bool {
	_, ok := a.Get(name)
	return ok
}

// Set stores value under name, replacing in place when the name exists.
func (a *Attributes) Set(name string, value Value) {
	for i := range a.list {
		if a.list[i].Name == name {
			a.list[i].Value = value
			return
		}
	}
	a.list = append(a.list, Attr{Name: name, Value: value})
}

// Delete removes name and reports whether it was present.
func (a *Attributes) Delete(name string) bool {
	for i := range a.list {
		if a.list[i].Name == name {
			a.list = append(a.list[:i], a.list[i+1:]...)
			return true
		}
	}
	return false
}

// Keys returns the attribute names in order.
func (a Attributes) Keys() []string {
	keys := make([]string, len(a.list))
	for i, attr := range a.list {
		keys[i] = attr.Name
	}
	return keys
}

// All returns a copy of the ordered attribute list.
func (a Attributes) All() []Attr {
	out := make([]Attr, len(a.list))
	copy(out, a.list)
	return out
}

// Clone returns an independent copy.
func (a Attributes) Clone() Attributes {
	if a.list == nil {
		return Attributes{}
	}
	return Attributes{list: a.All()}
}

// Merge returns a new set holding a's attributes overridden by each of
// the given sets in turn. It is a shallow per-key override.
func (a Attributes) Merge(overrides ...Attributes) Attributes {
	out := a.Clone()
	for _, o := range overrides {
		for _, attr := range o.list {
			out.Set(attr.Name, attr.Value)
		}
	}
	return out
}

// Equal reports whether both sets hold the same names, order and values.
func (a Attributes) Equal(other Attributes) bool {
	if len(a.list) != len(other.list) {
		return false
	}
	for i := range a.list {
		if a.list[i].Name != other.list[i].Name || !a.list[i].Value.Equal(other.list[i].Value) {
			return false
		}
	}
	return true
}

// Map returns the attributes as a plain map.
func (a Attributes) Map() map[string]interface{} {
	m := make(map[string]interface{}, len(a.list))
	for _, attr := range a.list {
		m[attr.Name] = attr.Value.Interface()
	}
	return m
}

// MarshalJSON writes the attributes as a JSON object in insertion order.
func (a Attributes) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, attr := range a.list {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(attr.Name)
		if err != nil {
			return nil, err
		}
		val, err := attr.Value.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object keeping key order. Nested arrays and
// objects are rejected with ErrUnsupportedValue.
func (a *Attributes) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*a = Attributes{}
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("attributes must be a JSON object")
	}

	var out Attributes
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("invalid attribute key %v", keyTok)
		}

		valTok, err := dec.Token()
		if err != nil {
			return err
		}
		if _, isDelim := valTok.(json.Delim); isDelim {
			return fmt.Errorf("attribute %q: %w: nested value", key, ErrUnsupportedValue)
		}
		v, err := ValueOf(valTok)
		if err != nil {
			return fmt.Errorf("attribute %q: %w", key, err)
		}
		out.Set(key, v)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*a = out
	return nil
}

// MarshalYAML emits an ordered mapping.
func (a Attributes) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, attr := range a.list {
		var val yaml.Node
		if err := val.Encode(attr.Value.Interface()); err != nil {
			return nil, err
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: attr.Name},
			&val,
		)
	}
	return node, nil
}

// UnmarshalYAML reads an ordered mapping of scalar values.
func (a *Attributes) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: attributes must be a mapping", node.Line)
	}

	var out Attributes
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode, valNode := node.Content[i], node.Content[i+1]
		if valNode.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: attribute %q: %w", valNode.Line, keyNode.Value, ErrUnsupportedValue)
		}
		var raw interface{}
		if err := valNode.Decode(&raw); err != nil {
			return err
		}
		v, err := ValueOf(raw)
		if err != nil {
			return fmt.Errorf("line %d: attribute %q: %w", valNode.Line, keyNode.Value, err)
		}
		out.Set(keyNode.Value, v)
	}

	*a = out
	return nil
}
