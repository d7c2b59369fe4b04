package sanitize

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mailerrors "github.com/conneroisu/mailblocks/internal/errors"
	"github.com/conneroisu/mailblocks/internal/markup"
	"github.com/conneroisu/mailblocks/internal/types"
)

func TestNewPolicy(t *testing.T) {
	for _, name := range []string{Strict, UGC, ""} {
		p, err := NewPolicy(name)
		require.NoError(t, err, name)
		assert.NotNil(t, p)
	}

	_, err := NewPolicy("loose")
	require.Error(t, err)
	assert.Equal(t, mailerrors.ErrCodeConfigInvalid, mailerrors.CodeOf(err))
}

func TestContent(t *testing.T) {
	ugc, err := New(UGC, nil, nil)
	require.NoError(t, err)
	strict, err := New(Strict, nil, nil)
	require.NoError(t, err)

	dirty := `<p onclick="steal()">Hi <b>there</b><script>alert(1)</script></p>`

	out := ugc.Content("mj-text", dirty)
	assert.Contains(t, out, "<b>there</b>")
	assert.NotContains(t, out, "script")
	assert.NotContains(t, out, "onclick")

	assert.Equal(t, "Hi there", strict.Content("mj-text", dirty))

	// Non-raw content is escaped on encode and left alone.
	assert.Equal(t, dirty, strict.Content("mj-title", dirty))
	assert.Equal(t, dirty, strict.Content("x-widget", dirty))
}

func TestUGCKeepsEmailFormatting(t *testing.T) {
	s, err := New(UGC, nil, nil)
	require.NoError(t, err)

	out := s.Content("mj-text", `<p class="lead" style="color: #ff0000">x</p><a href="javascript:alert(1)">y</a>`)
	assert.Contains(t, out, `class="lead"`)
	assert.Contains(t, out, "color")
	assert.NotContains(t, out, "javascript")
}

func TestTree(t *testing.T) {
	root, err := markup.Decode(`<mjml><mj-body><mj-section><mj-column>
  <mj-text><b>ok</b></mj-text>
  <mj-text>fine<img src="x" onerror="boom()" /></mj-text>
  <mj-button href="https://example.com">Go</mj-button>
</mj-column></mj-section></mj-body></mjml>`)
	require.NoError(t, err)

	s, err := New(UGC, nil, nil)
	require.NoError(t, err)

	clean, changed := s.Tree(context.Background(), root)
	assert.Equal(t, 1, changed)
	require.NotNil(t, clean)

	texts := clean.FindByType("mj-text")
	require.Len(t, texts, 2)
	assert.Equal(t, "<b>ok</b>", texts[0].ContentString())
	assert.NotContains(t, texts[1].ContentString(), "onerror")
	assert.Equal(t, "mj-text", root.Find(texts[1].ID).Type)

	// The input is not modified.
	assert.Contains(t, root.FindByType("mj-text")[1].ContentString(), "onerror")

	none, n := s.Tree(context.Background(), nil)
	assert.Nil(t, none)
	assert.Zero(t, n)
}

func TestAsContentTransform(t *testing.T) {
	s, err := New(Strict, nil, nil)
	require.NoError(t, err)

	root := &types.Block{Type: "mjml", Children: []*types.Block{
		{Type: "mj-raw", Content: types.StringPtr("<i>x</i>")},
	}}
	out, err := markup.NewEncoder(markup.WithContentTransform(s.Content)).Encode(root)
	require.NoError(t, err)
	assert.Contains(t, out, "<mj-raw>x</mj-raw>")
}
