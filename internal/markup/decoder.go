package markup

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"

	"golang.org/x/net/html/charset"

	"github.com/conneroisu/mailblocks/internal/types"
)

// Decoder parses markup into block trees.
type Decoder struct {
	opts options
}

// NewDecoder creates a decoder. Without options it expects an mjml root,
// uses the built-in catalog and assigns random UUIDs.
func NewDecoder(opts ...Option) *Decoder {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Decoder{opts: o}
}

var (
	defaultDecoderOnce sync.Once
	defaultDecoder     *Decoder
)

// Decode parses text with the default decoder.
func Decode(text string) (*types.Block, error) {
	defaultDecoderOnce.Do(func() { defaultDecoder = NewDecoder() })
	return defaultDecoder.Decode(text)
}

// Decode parses text into a tree. On failure no partial tree is returned.
func (d *Decoder) Decode(text string) (*types.Block, error) {
	return d.DecodeContext(context.Background(), text)
}

// DecodeReader reads all of r and decodes it.
func (d *Decoder) DecodeReader(ctx context.Context, r io.Reader) (*types.Block, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read markup: %w", err)
	}
	return d.DecodeContext(ctx, string(data))
}

// DecodeContext is Decode with a context for logging and cancellation.
func (d *Decoder) DecodeContext(ctx context.Context, text string) (*types.Block, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	normalized, err := normalizeEncoding(text)
	if err != nil {
		return nil, err
	}

	prepared, report, offsets := preprocess(normalized)
	if report.Changed() {
		d.opts.logger.Debug(ctx, "Recovered malformed markup", report.Fields()...)
	}

	p := &parser{
		ctx:      ctx,
		opts:     &d.opts,
		source:   prepared,
		original: normalized,
		offsets:  offsets,
		dec:      xml.NewDecoder(strings.NewReader(prepared)),
	}
	p.dec.Strict = true
	p.dec.Entity = xml.HTMLEntity

	root, err := p.parse()
	if err != nil {
		return nil, err
	}
	return root, nil
}

type frame struct {
	block *types.Block
	text  strings.Builder
}

type parser struct {
	ctx      context.Context
	opts     *options
	source   string
	original string
	offsets  *offsetMap
	dec      *xml.Decoder
	stack    []*frame
	root     *types.Block
	nodes    int
	tokens   int
}

func (p *parser) line() int {
	line, _ := p.dec.InputPos()
	return line
}

func (p *parser) parse() (*types.Block, error) {
	for {
		tok, err := p.dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, structuralError(err)
		}

		p.tokens++
		if p.tokens%256 == 0 {
			if err := p.ctx.Err(); err != nil {
				return nil, err
			}
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if err := p.start(t); err != nil {
				return nil, err
			}
		case xml.EndElement:
			p.end()
		case xml.CharData:
			if len(p.stack) > 0 {
				p.stack[len(p.stack)-1].text.Write(t)
			} else if strings.TrimSpace(string(t)) != "" {
				return nil, structuralErrorf(p.line(), "text outside the document element")
			}
		}
		// Comments, processing instructions and directives carry nothing
		// the tree can hold.
	}

	if len(p.stack) > 0 {
		return nil, structuralError(&xml.SyntaxError{Msg: "unexpected EOF", Line: p.line()})
	}
	if p.root == nil {
		return nil, structuralErrorf(p.line(), "no document element")
	}
	return p.root, nil
}

func (p *parser) newBlock(start xml.StartElement) (*types.Block, error) {
	p.nodes++
	if p.nodes > p.opts.maxNodes {
		return nil, limitExceeded("node", p.opts.maxNodes, p.line())
	}

	block := types.NewBlock(p.opts.newID(), strings.ToLower(start.Name.Local))
	for _, attr := range start.Attr {
		name := attr.Name.Local
		if attr.Name.Space != "" {
			name = attr.Name.Space + ":" + name
		}
		value := types.String(attr.Value)
		if attr.Value == flagMarker {
			value = types.Bool(true)
		}
		block.Attributes.Set(KebabToCamel(name), value)
	}
	return block, nil
}

func (p *parser) start(t xml.StartElement) error {
	if p.root == nil && len(p.stack) == 0 {
		if !strings.EqualFold(t.Name.Local, p.opts.rootType) {
			return rootMismatch(p.opts.rootType, qualifiedName(t.Name), p.line())
		}
	} else if len(p.stack) == 0 {
		return structuralErrorf(p.line(), "unexpected element <%s> after the document element", qualifiedName(t.Name))
	}

	if len(p.stack)+1 > p.opts.maxDepth {
		return limitExceeded("depth", p.opts.maxDepth, p.line())
	}

	block, err := p.newBlock(t)
	if err != nil {
		return err
	}

	if p.opts.registry.IsRaw(block.Type) {
		content, err := p.captureRaw()
		if err != nil {
			return err
		}
		if content != "" {
			block.Content = &content
		}
		p.attach(block)
		return nil
	}

	p.stack = append(p.stack, &frame{block: block})
	return nil
}

// captureRaw consumes tokens up to the end tag matching the element just
// opened and returns the markup between the two tags exactly as it appears
// in the input, before any repair.
func (p *parser) captureRaw() (string, error) {
	begin := p.dec.InputOffset()
	depth := 0
	for {
		pos := p.dec.InputOffset()
		tok, err := p.dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = &xml.SyntaxError{Msg: "unexpected EOF", Line: p.line()}
			}
			return "", structuralError(err)
		}
		switch tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			if depth == 0 {
				return p.rawSlice(int(begin), int(pos)), nil
			}
			depth--
		}
	}
}

// rawSlice maps a span of the preprocessed source back to the input.
func (p *parser) rawSlice(begin, end int) string {
	from, okFrom := p.offsets.source(begin)
	to, okTo := p.offsets.source(end)
	if okFrom && okTo {
		return p.original[from:to]
	}
	return restoreFlags(p.source[begin:end])
}

func (p *parser) end() {
	n := len(p.stack) - 1
	top := p.stack[n]
	p.stack = p.stack[:n]

	if len(top.block.Children) == 0 {
		if text := strings.TrimSpace(top.text.String()); text != "" {
			top.block.Content = &text
		}
	}
	p.attach(top.block)
}

func (p *parser) attach(block *types.Block) {
	if len(p.stack) == 0 {
		p.root = block
		return
	}
	parent := p.stack[len(p.stack)-1].block
	parent.Children = append(parent.Children, block)
}

func qualifiedName(name xml.Name) string {
	if name.Space != "" {
		return name.Space + ":" + name.Local
	}
	return name.Local
}

var xmlDeclEncoding = regexp.MustCompile(`^<\?xml[^>]*?\sencoding\s*=\s*["']([A-Za-z0-9._:-]+)["']`)

// normalizeEncoding strips a byte order mark and transcodes documents whose
// XML declaration names a non-UTF-8 charset, rewriting the declaration so
// the parser reads UTF-8 throughout.
func normalizeEncoding(text string) (string, error) {
	text = strings.TrimPrefix(text, "\uFEFF")

	m := xmlDeclEncoding.FindStringSubmatchIndex(text)
	if m == nil {
		return text, nil
	}
	label := text[m[2]:m[3]]
	if strings.EqualFold(label, "utf-8") || strings.EqualFold(label, "utf8") {
		return text, nil
	}

	r, err := charset.NewReaderLabel(label, strings.NewReader(text))
	if err != nil {
		return "", structuralError(fmt.Errorf("unsupported document encoding %q: %w", label, err))
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", structuralError(fmt.Errorf("failed to transcode %s document: %w", label, err))
	}
	out := string(data)

	m = xmlDeclEncoding.FindStringSubmatchIndex(out)
	if m == nil {
		return out, nil
	}
	return out[:m[2]] + "UTF-8" + out[m[3]:], nil
}
