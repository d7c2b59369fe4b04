package markup

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// CamelToKebab converts an in-memory attribute name to its markup form:
// every upper-case letter after the first character becomes a hyphen
// followed by its lower-case form. "backgroundColor" becomes
// "background-color".
func CamelToKebab(name string) string {
	var b strings.Builder
	b.Grow(len(name) + 4)
	for i, r := range name {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// KebabToCamel converts a markup attribute name to its in-memory form.
// Names without a hyphen pass through unchanged.
func KebabToCamel(name string) string {
	if !strings.Contains(name, "-") {
		return name
	}

	parts := strings.Split(name, "-")
	var b strings.Builder
	b.Grow(len(name))
	b.WriteString(parts[0])
	for _, part := range parts[1:] {
		if part == "" {
			continue
		}
		r, size := utf8.DecodeRuneInString(part)
		b.WriteRune(unicode.ToUpper(r))
		b.WriteString(part[size:])
	}
	return b.String()
}
