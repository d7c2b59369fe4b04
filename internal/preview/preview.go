// Package preview derives reader-facing views of a block tree: a plain-text
// alternative body, an indented outline, the inbox preview line and the
// links a message contains.
package preview

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/conneroisu/mailblocks/internal/registry"
	"github.com/conneroisu/mailblocks/internal/types"
)

// PreviewTextLimit is the length, in runes, of a derived preview line.
const PreviewTextLimit = 100

// Link is a hyperlink found in a document.
type Link struct {
	Href      string `json:"href"      yaml:"href"`
	Text      string `json:"text"      yaml:"text"`
	BlockID   string `json:"block_id"  yaml:"block_id"`
	BlockType string `json:"block_type" yaml:"block_type"`
}

// blockElements end a line of plain text.
var blockElements = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Li: true, atom.Tr: true, atom.Table: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Ul: true, atom.Ol: true, atom.Blockquote: true,
}

// ContentText returns the readable text of one block's content. Raw content
// is parsed as an HTML fragment.
func ContentText(reg *registry.ComponentRegistry, b *types.Block) string {
	if b == nil || b.Content == nil {
		return ""
	}
	if reg == nil || !reg.IsRaw(b.Type) {
		return normalize(*b.Content)
	}

	nodes, err := parseFragment(*b.Content)
	if err != nil {
		return normalize(*b.Content)
	}
	var sb strings.Builder
	for _, n := range nodes {
		writeText(&sb, n)
	}
	return normalize(sb.String())
}

func parseFragment(content string) ([]*html.Node, error) {
	context := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	return html.ParseFragment(strings.NewReader(content), context)
}

func writeText(sb *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		sb.WriteString(n.Data)
		return
	case html.ElementNode:
		switch n.DataAtom {
		case atom.Br:
			sb.WriteString("\n")
			return
		case atom.Script, atom.Style:
			return
		}
	}

	block := n.Type == html.ElementNode && blockElements[n.DataAtom]
	if block {
		sb.WriteString("\n")
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(sb, c)
	}
	if block {
		sb.WriteString("\n")
	}
}

// normalize collapses runs of spaces within lines and drops blank lines.
func normalize(s string) string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// PlainText renders the body of a document as plain text. Sections are
// separated by blank lines, buttons show their target and images their alt
// text. The head is skipped.
func PlainText(reg *registry.ComponentRegistry, root *types.Block) string {
	var paragraphs []string
	var visit func(b *types.Block)
	visit = func(b *types.Block) {
		if b == nil || b.Type == "mj-head" {
			return
		}
		if text := blockText(reg, b); text != "" {
			paragraphs = append(paragraphs, text)
		}
		for _, c := range b.Children {
			visit(c)
		}
	}
	visit(root)
	return strings.Join(paragraphs, "\n\n")
}

func blockText(reg *registry.ComponentRegistry, b *types.Block) string {
	attr := func(name string) string {
		v, _ := b.Attributes.Get(name)
		return v.Text()
	}

	switch b.Type {
	case "mj-image", "mj-carousel-image":
		if alt := attr("alt"); alt != "" {
			return "[" + alt + "]"
		}
		return ""
	case "mj-divider":
		return "----"
	case "mj-button", "mj-navbar-link", "mj-social-element":
		text := ContentText(reg, b)
		if href := attr("href"); href != "" {
			if text == "" {
				return href
			}
			return fmt.Sprintf("%s (%s)", text, href)
		}
		return text
	}
	return ContentText(reg, b)
}

// PreviewText returns the inbox preview line: the mj-preview content when
// the head declares one, otherwise the start of the first body text.
func PreviewText(reg *registry.ComponentRegistry, root *types.Block) string {
	if root == nil {
		return ""
	}
	for _, p := range root.FindByType("mj-preview") {
		if text := ContentText(reg, p); text != "" {
			return text
		}
	}

	return truncate(firstBodyText(reg, root), PreviewTextLimit)
}

func firstBodyText(reg *registry.ComponentRegistry, b *types.Block) string {
	if b.Type == "mj-head" {
		return ""
	}
	if text := ContentText(reg, b); text != "" {
		return strings.ReplaceAll(text, "\n", " ")
	}
	for _, c := range b.Children {
		if c == nil {
			continue
		}
		if text := firstBodyText(reg, c); text != "" {
			return text
		}
	}
	return ""
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:limit-1])) + "…"
}

// Outline renders one line per block, indented by depth, with the block's
// id and a short excerpt of its content.
func Outline(reg *registry.ComponentRegistry, root *types.Block) string {
	var lines []string
	_ = root.Walk(func(n *types.Block, depth int) error {
		line := strings.Repeat("  ", depth) + n.Type
		if n.ID != "" {
			line += " #" + n.ID
		}
		if n.Attributes.Len() > 0 {
			line += fmt.Sprintf(" (%d attrs)", n.Attributes.Len())
		}
		if text := ContentText(reg, n); text != "" {
			line += fmt.Sprintf(" %q", truncate(strings.ReplaceAll(text, "\n", " "), 40))
		}
		lines = append(lines, line)
		return nil
	})
	return strings.Join(lines, "\n")
}

// Links lists the hyperlinks of a document in document order: href
// attributes on blocks and anchors inside raw content.
func Links(reg *registry.ComponentRegistry, root *types.Block) []Link {
	var links []Link
	_ = root.Walk(func(n *types.Block, _ int) error {
		if v, ok := n.Attributes.Get("href"); ok && v.Text() != "" {
			links = append(links, Link{Href: v.Text(), Text: ContentText(reg, n), BlockID: n.ID, BlockType: n.Type})
		}
		if n.Content == nil || reg == nil || !reg.IsRaw(n.Type) {
			return nil
		}

		nodes, err := parseFragment(*n.Content)
		if err != nil {
			return nil
		}
		var visit func(h *html.Node)
		visit = func(h *html.Node) {
			if h.Type == html.ElementNode && h.DataAtom == atom.A {
				for _, a := range h.Attr {
					if a.Key == "href" && a.Val != "" {
						var sb strings.Builder
						writeText(&sb, h)
						links = append(links, Link{Href: a.Val, Text: normalize(sb.String()), BlockID: n.ID, BlockType: n.Type})
					}
				}
			}
			for c := h.FirstChild; c != nil; c = c.NextSibling {
				visit(c)
			}
		}
		for _, h := range nodes {
			visit(h)
		}
		return nil
	})
	return links
}
