// Package markup converts email document trees to and from their textual
// markup form.
//
// Encoding is deterministic: attributes are written in insertion order with
// kebab-case names, leaves render on one line, containers put each child on
// its own line indented by one unit per depth level. Decoding first repairs
// common hand-editing mistakes (stray ampersands, repeated attributes,
// unquoted values, bare boolean flags) and then parses the result strictly.
package markup

import (
	"fmt"
	"io"
	"strings"
	"sync"

	mailerrors "github.com/conneroisu/mailblocks/internal/errors"
	"github.com/conneroisu/mailblocks/internal/registry"
	"github.com/conneroisu/mailblocks/internal/types"
)

// Encoder renders block trees as markup.
type Encoder struct {
	opts options
}

// NewEncoder creates an encoder. Without options it uses the built-in
// catalog and a two-space indent.
func NewEncoder(opts ...Option) *Encoder {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Encoder{opts: o}
}

var (
	defaultEncoderOnce sync.Once
	defaultEncoder     *Encoder
)

// Encode renders block with the default encoder.
func Encode(block *types.Block) (string, error) {
	defaultEncoderOnce.Do(func() { defaultEncoder = NewEncoder() })
	return defaultEncoder.Encode(block)
}

// Encode renders block and its subtree. The output has no trailing newline.
func (e *Encoder) Encode(block *types.Block) (string, error) {
	var b strings.Builder
	if err := e.encode(&b, block, 0, "root"); err != nil {
		return "", err
	}
	return b.String(), nil
}

// EncodeTo renders block to w.
func (e *Encoder) EncodeTo(w io.Writer, block *types.Block) error {
	out, err := e.Encode(block)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}

func (e *Encoder) encode(b *strings.Builder, block *types.Block, depth int, where string) error {
	if block == nil {
		return nilBlock(where)
	}
	if !validName(block.Type) {
		return mailerrors.NewValidationError(mailerrors.ErrCodeInvalidType,
			fmt.Sprintf("invalid block type %q", block.Type)).WithContext("id", block.ID)
	}

	attrs, err := formatAttributes(block.Attributes)
	if err != nil {
		return err.WithBlockType(block.Type).WithContext("id", block.ID)
	}

	indent := strings.Repeat(e.opts.indent, depth)
	spec := e.opts.registry.Lookup(block.Type)

	if spec.Render != nil {
		out, err := spec.Render(registry.RenderContext{
			Block:  block,
			Attrs:  attrs,
			Indent: indent,
			Depth:  depth,
			RenderChild: func(child *types.Block, childDepth int) (string, error) {
				var cb strings.Builder
				if err := e.encode(&cb, child, childDepth, block.Type); err != nil {
					return "", err
				}
				return cb.String(), nil
			},
		})
		if err != nil {
			return fmt.Errorf("render %s: %w", block.Type, err)
		}
		b.WriteString(out)
		return nil
	}

	b.WriteString(indent)
	b.WriteByte('<')
	b.WriteString(block.Type)
	b.WriteString(attrs)

	switch e.opts.registry.ModelFor(block) {
	case types.Void:
		b.WriteString(" />")

	case types.ContentLeaf:
		b.WriteByte('>')
		if block.Content != nil {
			content := *block.Content
			if e.opts.transform != nil {
				content = e.opts.transform(block.Type, content)
			}
			if spec.RawContent {
				b.WriteString(content)
			} else {
				b.WriteString(EscapeText(content))
			}
		}
		writeClose(b, block.Type)

	default:
		b.WriteByte('>')
		if len(block.Children) > 0 {
			for _, child := range block.Children {
				b.WriteByte('\n')
				if err := e.encode(b, child, depth+1, block.Type); err != nil {
					return err
				}
			}
			b.WriteByte('\n')
			b.WriteString(indent)
		}
		writeClose(b, block.Type)
	}
	return nil
}

func writeClose(b *strings.Builder, blockType string) {
	b.WriteString("</")
	b.WriteString(blockType)
	b.WriteByte('>')
}

// formatAttributes renders attributes with a leading space before each.
// Names that collide after kebab conversion keep the first position and the
// last value.
func formatAttributes(attrs types.Attributes) (string, *mailerrors.MailError) {
	if attrs.Len() == 0 {
		return "", nil
	}

	type entry struct {
		name  string
		value types.Value
	}
	entries := make([]entry, 0, attrs.Len())
	index := make(map[string]int, attrs.Len())

	for _, attr := range attrs.All() {
		name := CamelToKebab(attr.Name)
		if !validName(name) {
			return "", mailerrors.NewValidationError(mailerrors.ErrCodeInvalidName,
				fmt.Sprintf("invalid attribute name %q", attr.Name))
		}
		if i, ok := index[name]; ok {
			entries[i].value = attr.Value
			continue
		}
		index[name] = len(entries)
		entries = append(entries, entry{name: name, value: attr.Value})
	}

	var b strings.Builder
	for _, en := range entries {
		v := en.value
		if v.IsEmpty() {
			continue
		}
		if flag, ok := v.Boolean(); ok {
			if flag {
				b.WriteByte(' ')
				b.WriteString(en.name)
			}
			continue
		}
		b.WriteByte(' ')
		b.WriteString(en.name)
		b.WriteString(`="`)
		b.WriteString(EscapeAttribute(en.name, v.Text()))
		b.WriteByte('"')
	}
	return b.String(), nil
}

// validName accepts tag and attribute names that cannot break the markup.
func validName(name string) bool {
	if name == "" {
		return false
	}
	return !strings.ContainsAny(name, " \t\r\n<>/\"'=&")
}
