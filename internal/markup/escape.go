package markup

import (
	"encoding/xml"
	"strings"
)

// urlAttributes may keep literal ampersands when their value is an
// absolute or protocol-relative URL, so query strings survive intact.
var urlAttributes = map[string]bool{
	"src":            true,
	"href":           true,
	"action":         true,
	"background-url": true,
}

var (
	attrEscaper    = strings.NewReplacer("&", "&amp;", `"`, "&quot;", "'", "&#39;", "<", "&lt;", ">", "&gt;")
	attrURLEscaper = strings.NewReplacer(`"`, "&quot;", "'", "&#39;", "<", "&lt;", ">", "&gt;")
	textEscaper    = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
)

func isURLValue(value string) bool {
	return strings.HasPrefix(value, "http://") ||
		strings.HasPrefix(value, "https://") ||
		strings.HasPrefix(value, "//")
}

// EscapeAttribute escapes an attribute value for double-quoted output.
// name is the markup (kebab-case) attribute name.
func EscapeAttribute(name, value string) string {
	if urlAttributes[name] && isURLValue(value) {
		return attrURLEscaper.Replace(value)
	}
	return attrEscaper.Replace(value)
}

// EscapeText escapes content of non-raw leaves.
func EscapeText(s string) string {
	return textEscaper.Replace(s)
}

// strictEntities are the references left alone inside attribute values.
var strictEntities = map[string]bool{
	"amp":  true,
	"lt":   true,
	"gt":   true,
	"quot": true,
	"apos": true,
}

const maxEntityName = 32

// entityAt reports whether s, which follows an ampersand, begins with a
// complete character reference. Named references must be in strictEntities,
// or, when allowHTML is set, in the HTML entity table.
func entityAt(s string, allowHTML bool) bool {
	end := strings.IndexByte(s, ';')
	if end <= 0 || end > maxEntityName {
		return false
	}
	ref := s[:end]

	if ref[0] == '#' {
		digits := ref[1:]
		hex := false
		if len(digits) > 0 && (digits[0] == 'x' || digits[0] == 'X') {
			digits = digits[1:]
			hex = true
		}
		if digits == "" {
			return false
		}
		for i := 0; i < len(digits); i++ {
			c := digits[i]
			switch {
			case c >= '0' && c <= '9':
			case hex && (c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'):
			default:
				return false
			}
		}
		return true
	}

	for i := 0; i < len(ref); i++ {
		c := ref[i]
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9') {
			return false
		}
	}
	if strictEntities[ref] {
		return true
	}
	if allowHTML {
		_, ok := xml.HTMLEntity[ref]
		return ok
	}
	return false
}

// escapeStrayAmpersands rewrites every '&' that does not begin a character
// reference as "&amp;" and returns the number of rewrites.
func escapeStrayAmpersands(s string, allowHTML bool) (string, int) {
	if strings.IndexByte(s, '&') < 0 {
		return s, 0
	}

	var b strings.Builder
	b.Grow(len(s) + 8)
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '&' && !entityAt(s[i+1:], allowHTML) {
			b.WriteString("&amp;")
			n++
			continue
		}
		b.WriteByte(s[i])
	}
	if n == 0 {
		return s, 0
	}
	return b.String(), n
}
