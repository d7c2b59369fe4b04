package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mailerrors "github.com/conneroisu/mailblocks/internal/errors"
	"github.com/conneroisu/mailblocks/internal/preview"
)

func TestValidateLink(t *testing.T) {
	tests := []struct {
		name      string
		href      string
		expectErr bool
	}{
		// Valid links
		{"https", "https://example.com/path?a=1&b=2", false},
		{"http with port", "http://localhost:8080", false},
		{"upper-case scheme", "HTTPS://example.com", false},
		{"mailto", "mailto:team@example.com", false},
		{"mailto with query only", "mailto:?subject=hi", false},
		{"tel", "tel:+15551234567", false},
		{"anchor", "#top", false},
		{"handlebars tag", "{{unsubscribe_url}}", false},
		{"mailchimp tag", "*|UNSUB|*", false},
		{"percent tag", "%%view_online%%", false},

		// Invalid links
		{"empty", "", true},
		{"blank", "   ", true},
		{"javascript", "javascript:alert(1)", true},
		{"data", "data:text/html,hi", true},
		{"relative", "/pricing", true},
		{"no host", "https:///path", true},
		{"whitespace", "https://example.com/a b", true},
		{"mailto without recipient", "mailto:", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateLink(tt.href)
			if tt.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCheckLinks(t *testing.T) {
	links := []preview.Link{
		{Href: "https://example.com", BlockID: "a", BlockType: "mj-button"},
		{Href: "javascript:void(0)", BlockID: "b", BlockType: "mj-text"},
		{Href: "/b", BlockID: "c", BlockType: "mj-text"},
	}

	problems := CheckLinks(links)
	require.Len(t, problems, 2)

	assert.Equal(t, mailerrors.ErrCodeInvalidLink, problems[0].Code)
	assert.Equal(t, "mj-text", problems[0].BlockType)
	assert.Equal(t, "b", problems[0].Context["block_id"])
	assert.Equal(t, "javascript:void(0)", problems[0].Context["href"])
	assert.Contains(t, problems[1].Message, `"/b"`)

	assert.Empty(t, CheckLinks(nil))
}
