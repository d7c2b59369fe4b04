package markup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreprocess(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		report   Report
	}{
		{
			name:     "well formed input is untouched",
			input:    `<mjml><mj-body width="600px"><mj-text>a &amp; b</mj-text></mj-body></mjml>`,
			expected: `<mjml><mj-body width="600px"><mj-text>a &amp; b</mj-text></mj-body></mjml>`,
		},
		{
			name:     "attribute ampersands",
			input:    `<a title="x & y &amp; z &#38; &#x26; &nbsp;">`,
			expected: `<a title="x &amp; y &amp; z &#38; &#x26; &amp;nbsp;">`,
			report:   Report{Ampersands: 2},
		},
		{
			name:     "duplicate attributes keep first position and last value",
			input:    `<leaf color="red" size="1" color="blue" />`,
			expected: `<leaf color="blue" size="1" />`,
			report:   Report{Duplicates: 1},
		},
		{
			name:     "self close marker preserved",
			input:    `<leaf a="1" a="2"/>`,
			expected: `<leaf a="2"/>`,
			report:   Report{Duplicates: 1},
		},
		{
			name:     "unquoted values",
			input:    `<mj-image width=300 alt='it"s'>`,
			expected: `<mj-image width="300" alt='it"s'>`,
			report:   Report{Unquoted: 1},
		},
		{
			name:     "bare flags",
			input:    `<mj-image fluid-on-mobile src="a.png">`,
			expected: `<mj-image fluid-on-mobile="&#xFDD0;" src="a.png">`,
			report:   Report{Flags: 1},
		},
		{
			name:     "text ampersands",
			input:    `<p>Tom & Jerry &copy; &amp;</p>`,
			expected: `<p>Tom &amp; Jerry &copy; &amp;</p>`,
			report:   Report{TextAmpersands: 1},
		},
		{
			name:     "comments and cdata are not rewritten",
			input:    `<!-- a & b <x y=1> --><![CDATA[ & ]]><?pi & ?>`,
			expected: `<!-- a & b <x y=1> --><![CDATA[ & ]]><?pi & ?>`,
		},
		{
			name:     "end tags are copied",
			input:    `</mj-text >`,
			expected: `</mj-text >`,
		},
		{
			name:     "greater than inside quoted value",
			input:    `<a title="1 > 0" title="2 > 1">`,
			expected: `<a title="2 > 1">`,
			report:   Report{Duplicates: 1},
		},
		{
			name:     "missing space between attributes",
			input:    `<a x="1"y="2">`,
			expected: `<a x="1" y="2">`,
		},
		{
			name:     "unterminated tag left alone",
			input:    `<a title="open`,
			expected: `<a title="open`,
		},
		{
			name:     "stray less than",
			input:    `a < b`,
			expected: `a < b`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, report := Preprocess(tt.input)
			assert.Equal(t, tt.expected, out)
			assert.Equal(t, tt.report, report)
		})
	}
}

func TestPreprocessIsStableOnItsOutput(t *testing.T) {
	input := `<mjml><mj-body><mj-image alt="a & b" alt="c" fluid width=3 /></mj-body></mjml>`

	once, first := Preprocess(input)
	twice, second := Preprocess(once)

	assert.True(t, first.Changed())
	assert.False(t, second.Changed())
	assert.Equal(t, once, twice)
}

func TestPreprocessOffsets(t *testing.T) {
	out, _, offsets := preprocess(`<p a=1>x & y</p>`)
	require.Equal(t, `<p a="1">x &amp; y</p>`, out)

	for _, tt := range []struct{ out, in int }{{0, 0}, {9, 7}, {18, 12}, {22, 16}} {
		in, ok := offsets.source(tt.out)
		require.True(t, ok, "offset %d", tt.out)
		assert.Equal(t, tt.in, in, "offset %d", tt.out)
	}

	_, ok := offsets.source(5)
	assert.False(t, ok)
}

func TestReportFields(t *testing.T) {
	r := Report{Ampersands: 1, Duplicates: 2}
	assert.Equal(t, 3, r.Total())
	assert.Equal(t, []interface{}{
		"ampersands", 1,
		"text_ampersands", 0,
		"duplicates", 2,
		"unquoted", 0,
		"flags", 0,
	}, r.Fields())
}

func TestEscapeHelpers(t *testing.T) {
	assert.Equal(t, "a &amp; &lt;b&gt; \"c\"", EscapeText(`a & <b> "c"`))
	assert.Equal(t, "a &amp; b", EscapeAttribute("title", "a & b"))
	assert.Equal(t, "https://x?a&b", EscapeAttribute("href", "https://x?a&b"))
	assert.Equal(t, "mailto:x?a&amp;b", EscapeAttribute("href", "mailto:x?a&b"))

	assert.True(t, entityAt("amp;", false))
	assert.True(t, entityAt("#x1F600;", false))
	assert.False(t, entityAt("#x;", false))
	assert.False(t, entityAt("nbsp;", false))
	assert.True(t, entityAt("nbsp;", true))
	assert.False(t, entityAt("amp", false))
}
