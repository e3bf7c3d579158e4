package protocol

import (
	"strings"
	"unicode/utf8"
)

// The field reader understands only a flat object of string and boolean
// values. It finds the first textual occurrence of "key" anywhere in the
// body, so a key that also appears inside a nested value or as a string
// value is ambiguous. Any mismatch yields the caller's default.

// valueStart returns the offset of the first non-space byte after the colon
// that follows "key".
func valueStart(body, key string) (int, bool) {
	idx := strings.Index(body, `"`+key+`"`)
	if idx < 0 {
		return 0, false
	}
	i := idx + len(key) + 2
	colon := strings.IndexByte(body[i:], ':')
	if colon < 0 {
		return 0, false
	}
	i += colon + 1
	for i < len(body) && isSpace(body[i]) {
		i++
	}
	return i, true
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

// GetString returns the string value of key, or def.
// A backslash copies the following byte as-is; escapes are not decoded.
func GetString(body, key, def string) string {
	i, ok := valueStart(body, key)
	if !ok || i >= len(body) || body[i] != '"' {
		return def
	}

	var sb strings.Builder
	for j := i + 1; j < len(body); j++ {
		switch c := body[j]; c {
		case '\\':
			if j+1 >= len(body) {
				return def
			}
			j++
			sb.WriteByte(body[j])
		case '"':
			return sb.String()
		default:
			sb.WriteByte(c)
		}
	}
	// Unterminated string
	return def
}

// GetBool returns the boolean value of key, or def when the value is not a
// literal true or false.
func GetBool(body, key string, def bool) bool {
	i, ok := valueStart(body, key)
	if !ok {
		return def
	}
	switch rest := body[i:]; {
	case strings.HasPrefix(rest, "true"):
		return true
	case strings.HasPrefix(rest, "false"):
		return false
	default:
		return def
	}
}

// LooksLikeJSON reports whether body starts with an object after any
// leading whitespace.
func LooksLikeJSON(body string) bool {
	return strings.HasPrefix(strings.TrimLeft(body, " \t\r\n"), "{")
}

// EscapeJSONString escapes s for embedding between double quotes in a JSON
// document. Plain text without quotes, backslashes or control characters
// is returned unchanged.
func EscapeJSONString(s string) string {
	const hex = "0123456789abcdef"
	var sb strings.Builder
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == '"' || c == '\\':
			sb.WriteByte('\\')
			sb.WriteByte(c)
		case c == '\n':
			sb.WriteString(`\n`)
		case c == '\r':
			sb.WriteString(`\r`)
		case c == '\t':
			sb.WriteString(`\t`)
		case c < 0x20:
			sb.WriteString(`\u00`)
			sb.WriteByte(hex[c>>4])
			sb.WriteByte(hex[c&0xF])
		case c >= utf8.RuneSelf:
			r, size := utf8.DecodeRuneInString(s[i:])
			if r == utf8.RuneError && size == 1 {
				sb.WriteString(`\ufffd`)
			} else {
				sb.WriteString(s[i : i+size])
			}
			i += size
			continue
		default:
			sb.WriteByte(c)
		}
		i++
	}
	return sb.String()
}
