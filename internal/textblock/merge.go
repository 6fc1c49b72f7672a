// Package textblock maintains a machine-managed region inside a free-text
// field. The region is bounded by a start and end marker; everything outside
// the markers belongs to the user and is never touched.
package textblock

import "strings"

// Merge returns text with the first start..end delimited region replaced by
// body. The first occurrence of start pairs with the first occurrence of end
// after it. If no such region exists, a new block (start + body + end) is
// appended, separated from non-empty existing text by a blank line. A start
// marker with no matching end is user content; the new block goes in ahead of
// it so the stray marker can never capture a later end marker.
//
// Merge is a pure transform. Applying it twice with the same arguments yields
// the same output as applying it once, so callers can compare input and
// output to skip a remote write that would change nothing.
func Merge(text, start, end, body string) string {
	if start == "" || end == "" {
		return text
	}

	block := start + body + end

	si := strings.Index(text, start)
	if si >= 0 {
		rest := text[si+len(start):]
		if ei := strings.Index(rest, end); ei >= 0 {
			var b strings.Builder
			b.Grow(si + len(start) + len(body) + len(rest) - ei)
			b.WriteString(text[:si+len(start)])
			b.WriteString(body)
			b.WriteString(rest[ei:])
			return b.String()
		}
		// Unterminated start marker. Inserting before it keeps the marker
		// and everything after it intact on every rerun.
		return text[:si] + block + "\n\n" + text[si:]
	}

	if text == "" {
		return block
	}
	return text + "\n\n" + block
}

// Managed reports whether text already carries a complete delimited region.
func Managed(text, start, end string) bool {
	si := strings.Index(text, start)
	if si < 0 {
		return false
	}
	return strings.Contains(text[si+len(start):], end)
}
