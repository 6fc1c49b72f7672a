// Package keys derives grouping keys from item metadata. Every function here
// is pure: the same attributes always produce the same key string, and
// malformed input skips the key instead of failing the caller's run.
package keys

import (
	"regexp"
	"strings"
)

// MachineTag is a structured tag of the form "namespace:predicate=value".
type MachineTag struct {
	Namespace string
	Predicate string
	Value     string
}

var machineTagRe = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9_]*):([A-Za-z][A-Za-z0-9_]*)=(.+)$`)

// ParseMachineTag parses raw into its namespace/predicate/value parts. Quoted
// values are unquoted and unescaped. Returns false for anything that is not a
// machine tag.
func ParseMachineTag(raw string) (MachineTag, bool) {
	m := machineTagRe.FindStringSubmatch(raw)
	if m == nil {
		return MachineTag{}, false
	}
	return MachineTag{
		Namespace: strings.ToLower(m[1]),
		Predicate: strings.ToLower(m[2]),
		Value:     unquote(m[3]),
	}, true
}

// unquote strips a surrounding double-quote pair and unescapes \" and \\.
// Values without quotes pass through untouched.
func unquote(v string) string {
	if len(v) < 2 || v[0] != '"' || v[len(v)-1] != '"' {
		return v
	}
	inner := v[1 : len(v)-1]
	var b strings.Builder
	b.Grow(len(inner))
	escaped := false
	for _, r := range inner {
		if escaped {
			b.WriteRune(r)
			escaped = false
			continue
		}
		if r == '\\' {
			escaped = true
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
