package preview

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/mailblocks/internal/markup"
	"github.com/conneroisu/mailblocks/internal/registry"
	"github.com/conneroisu/mailblocks/internal/types"
)

const newsletter = `<mjml>
  <mj-head>
    <mj-title>Weekly</mj-title>
    <mj-style>.x { color: red; }</mj-style>
  </mj-head>
  <mj-body>
    <mj-section>
      <mj-column>
        <mj-image src="https://example.com/logo.png" alt="Logo" />
        <mj-text><h1>Hello   there</h1><p>First line<br/>second line</p></mj-text>
        <mj-divider />
        <mj-button href="https://example.com/go">Read more</mj-button>
      </mj-column>
    </mj-section>
    <mj-section>
      <mj-column>
        <mj-text>Visit <a href="https://example.com/a">our site</a> &amp; <a href="/b">more</a><script>x()</script></mj-text>
      </mj-column>
    </mj-section>
  </mj-body>
</mjml>`

func decode(t *testing.T, text string) *types.Block {
	t.Helper()
	root, err := markup.Decode(text)
	require.NoError(t, err)
	return root
}

func TestContentText(t *testing.T) {
	reg := registry.Default()

	tests := []struct {
		name     string
		block    *types.Block
		expected string
	}{
		{"nil", nil, ""},
		{"no content", types.NewBlock("a", "mj-text"), ""},
		{"plain leaf", &types.Block{Type: "mj-title", Content: types.StringPtr("  Big   news ")}, "Big news"},
		{"raw paragraphs", &types.Block{Type: "mj-text", Content: types.StringPtr("<p>one</p><p>two</p>")}, "one\ntwo"},
		{"raw entities", &types.Block{Type: "mj-text", Content: types.StringPtr("a &amp; b")}, "a & b"},
		{"raw style dropped", &types.Block{Type: "mj-raw", Content: types.StringPtr("<style>p{}</style>hi")}, "hi"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ContentText(reg, tt.block))
		})
	}
}

func TestContentTextWithoutRegistry(t *testing.T) {
	b := &types.Block{Type: "mj-text", Content: types.StringPtr("<b>x</b>")}
	assert.Equal(t, "<b>x</b>", ContentText(nil, b))
}

func TestPlainText(t *testing.T) {
	root := decode(t, newsletter)

	text := PlainText(registry.Default(), root)
	assert.Equal(t, strings.Join([]string{
		"[Logo]",
		"Hello there\nFirst line\nsecond line",
		"----",
		"Read more (https://example.com/go)",
		"Visit our site & more",
	}, "\n\n"), text)
	assert.NotContains(t, text, "Weekly")
	assert.NotContains(t, text, "color")
}

func TestPreviewText(t *testing.T) {
	reg := registry.Default()

	root := decode(t, newsletter)
	assert.Equal(t, "Hello there First line second line", PreviewText(reg, root))

	withPreview := decode(t, `<mjml><mj-head><mj-preview>Inbox line</mj-preview></mj-head><mj-body /></mjml>`)
	assert.Equal(t, "Inbox line", PreviewText(reg, withPreview))

	assert.Empty(t, PreviewText(reg, nil))
	assert.Empty(t, PreviewText(reg, types.NewBlock("", "mjml")))
}

func TestPreviewTextTruncates(t *testing.T) {
	long := strings.Repeat("word ", 50)
	root := decode(t, `<mjml><mj-body><mj-section><mj-column><mj-text>`+long+`</mj-text></mj-column></mj-section></mj-body></mjml>`)

	got := PreviewText(registry.Default(), root)
	assert.Equal(t, PreviewTextLimit, len([]rune(got)))
	assert.True(t, strings.HasSuffix(got, "…"))
}

func TestOutline(t *testing.T) {
	root := &types.Block{
		ID:   "r",
		Type: "mjml",
		Children: []*types.Block{
			{
				ID:         "s",
				Type:       "mj-section",
				Attributes: types.NewAttributes(types.Attr{Name: "padding", Value: types.String("0")}),
				Children: []*types.Block{
					{Type: "mj-text", Content: types.StringPtr("<p>Hi</p>")},
				},
			},
		},
	}

	assert.Equal(t, strings.Join([]string{
		"mjml #r",
		"  mj-section #s (1 attrs)",
		`    mj-text "Hi"`,
	}, "\n"), Outline(registry.Default(), root))
}

func TestLinks(t *testing.T) {
	links := Links(registry.Default(), decode(t, newsletter))
	require.Len(t, links, 3)

	assert.Equal(t, "https://example.com/go", links[0].Href)
	assert.Equal(t, "Read more", links[0].Text)
	assert.Equal(t, "mj-button", links[0].BlockType)

	assert.Equal(t, "https://example.com/a", links[1].Href)
	assert.Equal(t, "our site", links[1].Text)
	assert.Equal(t, "/b", links[2].Href)
	assert.Equal(t, "mj-text", links[2].BlockType)
}
