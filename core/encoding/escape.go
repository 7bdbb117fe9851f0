// Package encoding provides shared text escaping utilities for dataset readers.
package encoding

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// UnescapeBackslash decodes backslash escapes the way annotation columns are
// written: \\ \' \" \a \b \f \n \r \t \v, octal \ooo, \xhh, \uXXXX and
// \UXXXXXXXX. Unknown or truncated escapes are kept literally. Bytes outside
// escapes are passed through unchanged, so UTF-8 text survives.
func UnescapeBackslash(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			b.WriteByte(c)
			continue
		}

		next := s[i+1]
		switch next {
		case '\\', '\'', '"':
			b.WriteByte(next)
			i++
		case 'a':
			b.WriteByte('\a')
			i++
		case 'b':
			b.WriteByte('\b')
			i++
		case 'f':
			b.WriteByte('\f')
			i++
		case 'n':
			b.WriteByte('\n')
			i++
		case 'r':
			b.WriteByte('\r')
			i++
		case 't':
			b.WriteByte('\t')
			i++
		case 'v':
			b.WriteByte('\v')
			i++
		case 'x', 'u', 'U':
			width := map[byte]int{'x': 2, 'u': 4, 'U': 8}[next]
			if r, ok := hexRune(s, i+2, width); ok {
				b.WriteRune(r)
				i += 1 + width
				continue
			}
			b.WriteByte(c)
		case '0', '1', '2', '3', '4', '5', '6', '7':
			j := i + 1
			for j < len(s) && j < i+4 && s[j] >= '0' && s[j] <= '7' {
				j++
			}
			v, _ := strconv.ParseUint(s[i+1:j], 8, 32)
			b.WriteRune(rune(v))
			i = j - 1
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// hexRune decodes width hex digits starting at s[start].
func hexRune(s string, start, width int) (rune, bool) {
	if start+width > len(s) {
		return 0, false
	}
	v, err := strconv.ParseUint(s[start:start+width], 16, 32)
	if err != nil || !utf8.ValidRune(rune(v)) {
		return 0, false
	}
	return rune(v), true
}

// UnescapeAmp replaces the literal "&amp;" escape with "&". Annotation markup
// cannot carry a bare ampersand, so texts and markup both use this escape.
func UnescapeAmp(s string) string {
	return strings.ReplaceAll(s, "&amp;", "&")
}

// NormalizeNewlines converts CRLF and lone CR line endings to LF.
func NormalizeNewlines(s string) string {
	if !strings.Contains(s, "\r") {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// EscapeAmp is the inverse of UnescapeAmp.
func EscapeAmp(s string) string {
	return strings.ReplaceAll(s, "&", "&amp;")
}
