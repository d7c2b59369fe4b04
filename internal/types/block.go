// Package types defines the email document tree: blocks, their ordered
// attributes and attribute values.
package types

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// ContentModel describes what a block type may carry.
type ContentModel int

const (
	// Void blocks are self-closing and carry neither content nor children.
	Void ContentModel = iota
	// ContentLeaf blocks carry a content string and no children.
	ContentLeaf
	// Container blocks carry ordered children and no content.
	Container
)

// String returns the string representation of the content model
func (m ContentModel) String() string {
	switch m {
	case Void:
		return "void"
	case ContentLeaf:
		return "content"
	case Container:
		return "container"
	default:
		return "unknown"
	}
}

// ParseContentModel parses the string form produced by String.
func ParseContentModel(s string) (ContentModel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "void":
		return Void, nil
	case "content", "content-leaf", "leaf":
		return ContentLeaf, nil
	case "container":
		return Container, nil
	default:
		return Void, fmt.Errorf("unknown content model %q", s)
	}
}

// MarshalYAML implements yaml.Marshaler.
func (m ContentModel) MarshalYAML() (interface{}, error) { return m.String(), nil }

// MarshalJSON implements json.Marshaler.
func (m ContentModel) MarshalJSON() ([]byte, error) { return json.Marshal(m.String()) }

// Block is a node of the email document tree.
//
// A block has Content, or a non-empty Children list, or neither; never both.
type Block struct {
	ID         string     `json:"id" yaml:"id"`
	Type       string     `json:"type" yaml:"type"`
	Attributes Attributes `json:"attributes" yaml:"attributes"`
	Content    *string    `json:"content,omitempty" yaml:"content,omitempty"`
	Children   []*Block   `json:"children,omitempty" yaml:"children,omitempty"`
}

// NewBlock creates a block with the given id and type.
func NewBlock(id, blockType string) *Block {
	return &Block{ID: id, Type: blockType}
}

// StringPtr returns a pointer to s, handy for Content literals.
func StringPtr(s string) *string { return &s }

// HasContent reports whether the block carries a content string.
func (b *Block) HasContent() bool { return b != nil && b.Content != nil }

// ContentString returns the content or "" when absent.
func (b *Block) ContentString() string {
	if b == nil || b.Content == nil {
		return ""
	}
	return *b.Content
}

// Validate checks the content/children exclusivity invariant for the whole
// subtree.
func (b *Block) Validate() error {
	return b.Walk(func(n *Block, depth int) error {
		if n.Type == "" {
			return fmt.Errorf("block %q has no type", n.ID)
		}
		if n.Content != nil && len(n.Children) > 0 {
			return fmt.Errorf("block %q (%s) has both content and children", n.ID, n.Type)
		}
		for i, c := range n.Children {
			if c == nil {
				return fmt.Errorf("block %q (%s) has a nil child at index %d", n.ID, n.Type, i)
			}
		}
		return nil
	})
}

// Walk visits the subtree in pre-order. Returning an error stops the walk.
func (b *Block) Walk(fn func(n *Block, depth int) error) error {
	return b.walk(fn, 0)
}

func (b *Block) walk(fn func(n *Block, depth int) error, depth int) error {
	if b == nil {
		return nil
	}
	if err := fn(b, depth); err != nil {
		return err
	}
	for _, c := range b.Children {
		if err := c.walk(fn, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// Find returns the first block in the subtree with the given id.
func (b *Block) Find(id string) *Block {
	var found *Block
	_ = b.Walk(func(n *Block, _ int) error {
		if n.ID == id {
			found = n
			return errStopWalk
		}
		return nil
	})
	return found
}

// FindByType returns all blocks of the given type in pre-order.
func (b *Block) FindByType(blockType string) []*Block {
	var out []*Block
	_ = b.Walk(func(n *Block, _ int) error {
		if n.Type == blockType {
			out = append(out, n)
		}
		return nil
	})
	return out
}

// Count returns the number of blocks in the subtree.
func (b *Block) Count() int {
	n := 0
	_ = b.Walk(func(*Block, int) error { n++; return nil })
	return n
}

// Clone deep-copies the subtree. When keepIDs is false ids are cleared.
func (b *Block) Clone(keepIDs bool) *Block {
	if b == nil {
		return nil
	}
	out := &Block{
		Type:       b.Type,
		Attributes: b.Attributes.Clone(),
	}
	if keepIDs {
		out.ID = b.ID
	}
	if b.Content != nil {
		c := *b.Content
		out.Content = &c
	}
	if b.Children != nil {
		out.Children = make([]*Block, len(b.Children))
		for i, c := range b.Children {
			out.Children[i] = c.Clone(keepIDs)
		}
	}
	return out
}

// Equal compares two subtrees structurally, ignoring ids. A nil Children
// slice and an empty one are treated alike.
func (b *Block) Equal(other *Block) bool {
	if b == nil || other == nil {
		return b == other
	}
	if b.Type != other.Type || !b.Attributes.Equal(other.Attributes) {
		return false
	}
	if (b.Content == nil) != (other.Content == nil) {
		return false
	}
	if b.Content != nil && *b.Content != *other.Content {
		return false
	}
	if len(b.Children) != len(other.Children) {
		return false
	}
	for i := range b.Children {
		if !b.Children[i].Equal(other.Children[i]) {
			return false
		}
	}
	return true
}

// ParseBlockJSON decodes a block tree from its JSON form.
func ParseBlockJSON(data []byte) (*Block, error) {
	var b Block
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to unmarshal block JSON: %w", err)
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return &b, nil
}

type stopWalk struct{}

func (stopWalk) Error() string { return "stop walk" }

var errStopWalk error = stopWalk{}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
