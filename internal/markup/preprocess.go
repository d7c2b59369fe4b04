package markup

import (
	"sort"
	"strings"
)

// flagMarkerRef is the character reference a bare boolean attribute is
// expanded to before parsing. U+FDD0 is a noncharacter, so it never occurs
// in authored values.
const (
	flagMarkerRef = "&#xFDD0;"
	flagMarker    = "\uFDD0"
)

// Report counts the corrections Preprocess applied.
type Report struct {
	// Ampersands escaped inside attribute values.
	Ampersands int
	// TextAmpersands escaped in character data between tags.
	TextAmpersands int
	// Duplicates is the number of repeated attributes collapsed.
	Duplicates int
	// Unquoted attribute values that were quoted.
	Unquoted int
	// Flags is the number of bare boolean attributes expanded.
	Flags int
}

// Total returns the number of corrections.
func (r Report) Total() int {
	return r.Ampersands + r.TextAmpersands + r.Duplicates + r.Unquoted + r.Flags
}

// Changed reports whether the input was modified.
func (r Report) Changed() bool { return r.Total() > 0 }

// Fields returns the report as logger key/value pairs.
func (r Report) Fields() []interface{} {
	return []interface{}{
		"ampersands", r.Ampersands,
		"text_ampersands", r.TextAmpersands,
		"duplicates", r.Duplicates,
		"unquoted", r.Unquoted,
		"flags", r.Flags,
	}
}

// Preprocess repairs malformed markup so that a strict parser accepts it.
// Within every start tag it escapes ampersands that do not begin an entity
// reference, collapses repeated attributes (last value wins, first position
// kept), quotes unquoted values and expands bare boolean flags. Stray
// ampersands in character data are escaped as well. Comments, CDATA
// sections, processing instructions, declarations and end tags are copied
// unchanged, as are start tags that need no repair.
func Preprocess(text string) (string, Report) {
	out, report, _ := preprocess(text)
	return out, report
}

// offsetMap translates offsets in preprocessed output back to the input.
// An entry is recorded at every token boundary, so both slices increase.
type offsetMap struct {
	out []int
	in  []int
}

func (m *offsetMap) mark(out, in int) {
	m.out = append(m.out, out)
	m.in = append(m.in, in)
}

// source returns the input offset of a boundary in the output.
func (m *offsetMap) source(out int) (int, bool) {
	i := sort.SearchInts(m.out, out)
	if i < len(m.out) && m.out[i] == out {
		return m.in[i], true
	}
	return 0, false
}

func preprocess(text string) (string, Report, *offsetMap) {
	var (
		out     strings.Builder
		report  Report
		offsets offsetMap
	)
	out.Grow(len(text) + len(text)/32)

	i := 0
	for i < len(text) {
		offsets.mark(out.Len(), i)
		if text[i] != '<' {
			end := strings.IndexByte(text[i:], '<')
			if end < 0 {
				end = len(text)
			} else {
				end += i
			}
			escaped, n := escapeStrayAmpersands(text[i:end], true)
			report.TextAmpersands += n
			out.WriteString(escaped)
			i = end
			continue
		}

		rest := text[i:]
		switch {
		case strings.HasPrefix(rest, "<!--"):
			i += copyThrough(&out, rest, "-->")
		case strings.HasPrefix(rest, "<![CDATA["):
			i += copyThrough(&out, rest, "]]>")
		case strings.HasPrefix(rest, "<?"):
			i += copyThrough(&out, rest, "?>")
		case strings.HasPrefix(rest, "<!"), strings.HasPrefix(rest, "</"):
			i += copyThrough(&out, rest, ">")
		case len(rest) > 1 && isNameStart(rest[1]):
			i += rewriteStartTag(&out, rest, &report)
		default:
			out.WriteByte('<')
			i++
		}
	}

	offsets.mark(out.Len(), len(text))
	return out.String(), report, &offsets
}

// copyThrough writes rest up to and including term and returns the number
// of bytes consumed. Without term the remainder is copied.
func copyThrough(out *strings.Builder, rest, term string) int {
	idx := strings.Index(rest[1:], term)
	if idx < 0 {
		out.WriteString(rest)
		return len(rest)
	}
	n := 1 + idx + len(term)
	out.WriteString(rest[:n])
	return n
}

func isNameStart(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_' || c == ':' || c >= 0x80
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}

type tagAttr struct {
	lead  string
	name  string
	value string
	quote byte
	bare  bool
}

// rewriteStartTag consumes the start tag at the beginning of rest, writes
// its repaired form and returns the number of bytes consumed.
func rewriteStartTag(out *strings.Builder, rest string, report *Report) int {
	p := 1
	for p < len(rest) && !isSpace(rest[p]) && rest[p] != '/' && rest[p] != '>' {
		p++
	}
	tagName := rest[1:p]

	var (
		attrs    []tagAttr
		index    = make(map[string]int)
		trailing string
		closer   string
		changed  bool
		local    Report
	)

	for closer == "" {
		start := p
		for p < len(rest) && isSpace(rest[p]) {
			p++
		}
		lead := rest[start:p]

		if p >= len(rest) {
			// Unterminated tag: leave it for the parser to report.
			out.WriteString(rest)
			return len(rest)
		}

		switch rest[p] {
		case '>':
			trailing, closer = lead, ">"
			p++
			continue
		case '/':
			if p+1 < len(rest) && rest[p+1] == '>' {
				trailing, closer = lead, "/>"
				p += 2
				continue
			}
			p++
			changed = true
			continue
		case '=', '"', '\'':
			p++
			changed = true
			continue
		}

		nameStart := p
		for p < len(rest) && !isSpace(rest[p]) && rest[p] != '=' && rest[p] != '>' && rest[p] != '/' {
			p++
		}
		attr := tagAttr{lead: lead, name: rest[nameStart:p], quote: '"'}
		if attr.lead == "" {
			attr.lead = " "
			changed = true
		}

		q := p
		for q < len(rest) && isSpace(rest[q]) {
			q++
		}
		if q < len(rest) && rest[q] == '=' {
			p = q + 1
			for p < len(rest) && isSpace(rest[p]) {
				p++
			}
			if p >= len(rest) {
				out.WriteString(rest)
				return len(rest)
			}
			if c := rest[p]; c == '"' || c == '\'' {
				end := strings.IndexByte(rest[p+1:], c)
				if end < 0 {
					out.WriteString(rest)
					return len(rest)
				}
				attr.value = rest[p+1 : p+1+end]
				attr.quote = c
				p += end + 2
			} else {
				valueStart := p
				for p < len(rest) && !isSpace(rest[p]) && rest[p] != '>' {
					p++
				}
				if p-valueStart > 1 && rest[p-1] == '/' && p < len(rest) && rest[p] == '>' {
					p--
				}
				attr.value = rest[valueStart:p]
				attr.quote = chooseQuote(attr.value)
				local.Unquoted++
			}
		} else {
			attr.bare = true
			local.Flags++
		}

		if i, ok := index[attr.name]; ok {
			attr.lead = attrs[i].lead
			attrs[i] = attr
			local.Duplicates++
			continue
		}
		index[attr.name] = len(attrs)
		attrs = append(attrs, attr)
	}

	for i := range attrs {
		if attrs[i].bare {
			continue
		}
		escaped, n := escapeStrayAmpersands(attrs[i].value, false)
		if n > 0 {
			attrs[i].value = escaped
			local.Ampersands += n
		}
		if attrs[i].quote == '"' && strings.IndexByte(attrs[i].value, '"') >= 0 {
			attrs[i].value = strings.ReplaceAll(attrs[i].value, `"`, "&quot;")
		}
	}

	if !changed && local.Total() == 0 {
		out.WriteString(rest[:p])
		return p
	}

	report.Ampersands += local.Ampersands
	report.Duplicates += local.Duplicates
	report.Unquoted += local.Unquoted
	report.Flags += local.Flags

	out.WriteByte('<')
	out.WriteString(tagName)
	for _, attr := range attrs {
		out.WriteString(attr.lead)
		out.WriteString(attr.name)
		if attr.bare {
			out.WriteString(`="` + flagMarkerRef + `"`)
			continue
		}
		out.WriteByte('=')
		out.WriteByte(attr.quote)
		out.WriteString(attr.value)
		out.WriteByte(attr.quote)
	}
	out.WriteString(trailing)
	out.WriteString(closer)
	return p
}

// chooseQuote picks a delimiter for a value that arrived unquoted.
func chooseQuote(value string) byte {
	if strings.IndexByte(value, '"') >= 0 && strings.IndexByte(value, '\'') < 0 {
		return '\''
	}
	return '"'
}

// restoreFlags undoes flag expansion in preprocessed raw content.
func restoreFlags(s string) string {
	if !strings.Contains(s, flagMarkerRef) {
		return s
	}
	return strings.ReplaceAll(s, `="`+flagMarkerRef+`"`, "")
}
