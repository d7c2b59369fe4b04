package compact

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/mailblocks/internal/markup"
	"github.com/conneroisu/mailblocks/internal/types"
)

const sheet = `
.lead {
  font-size: 18px;
  margin: 0px;
}
`

func TestContentCSS(t *testing.T) {
	c := New(Options{CSS: true}, nil, nil)

	out := c.Content("mj-style", sheet)
	assert.NotContains(t, out, "\n")
	assert.True(t, strings.HasPrefix(out, ".lead{"), out)
	assert.Less(t, len(out), len(sheet))

	// Disabled media types pass through.
	html := "<p>  a  </p>"
	assert.Equal(t, html, c.Content("mj-text", html))
}

func TestContentHTML(t *testing.T) {
	c := New(Options{HTML: true}, nil, nil)

	out := c.Content("mj-text", "<p>\n   Hello   <b>world</b>\n</p>\n<!-- note -->")
	assert.Contains(t, out, "Hello <b>world</b>")
	assert.Contains(t, out, "</p>")
	assert.NotContains(t, out, "note")

	assert.Equal(t, sheet, c.Content("mj-style", sheet))
	assert.Equal(t, "  Title  ", c.Content("mj-title", "  Title  "))
}

func TestTree(t *testing.T) {
	root := &types.Block{Type: "mjml", Children: []*types.Block{
		{Type: "mj-head", Children: []*types.Block{
			{ID: "s", Type: "mj-style", Content: types.StringPtr(sheet)},
		}},
		{Type: "mj-body", Children: []*types.Block{
			{ID: "r", Type: "mj-raw", Content: types.StringPtr("<div>\n\n  x  \n</div>")},
		}},
	}}

	c := New(Options{CSS: true, HTML: true}, nil, nil)
	out, saved := c.Tree(context.Background(), root)
	require.NotNil(t, out)
	assert.Positive(t, saved)

	assert.NotEqual(t, sheet, out.Find("s").ContentString())
	assert.Equal(t, sheet, root.Find("s").ContentString())
	assert.NotContains(t, out.Find("r").ContentString(), "\n")

	none, n := c.Tree(context.Background(), nil)
	assert.Nil(t, none)
	assert.Zero(t, n)
}

func TestAsContentTransform(t *testing.T) {
	c := New(Options{CSS: true}, nil, nil)
	root := &types.Block{Type: "mj-head", Children: []*types.Block{
		{Type: "mj-style", Content: types.StringPtr(sheet)},
	}}

	out, err := markup.NewEncoder(markup.WithContentTransform(c.Content)).Encode(root)
	require.NoError(t, err)
	assert.Contains(t, out, "<mj-style>.lead{")
}
