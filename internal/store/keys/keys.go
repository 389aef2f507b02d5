// Package keys builds Redis key names for index paths and item records.
package keys

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

const DefaultPrefix = "spotlight"

// Children is the sorted-set key holding the children of an index path.
// The hash suffix keeps paths apart that sanitize to the same text.
func Children(prefix, path string) string {
	return build(prefix, "children", path)
}

// Record is the key holding one item record.
func Record(prefix, itemKey string) string {
	return build(prefix, "item", itemKey)
}

func build(prefix, kind, raw string) string {
	p := sanitize(strings.TrimSpace(prefix))
	if p == "" {
		p = DefaultPrefix
	}
	sum := xxhash.Sum64String(raw)
	return fmt.Sprintf("%s:%s:%s:h=%08x", p, kind, sanitize(raw), uint32(sum))
}

// '/' becomes ':' so index paths read naturally in redis-cli
func sanitize(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))

	var prev rune
	for _, r := range s {
		out := rune(0)
		switch {
		case r == '/':
			out = ':'
		case r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f':
			out = '_'
		case isAlphaNum(r) || r == ':' || r == '_' || r == '-':
			out = r
		default:
			// anything else, non-ASCII included
			out = '.'
		}
		if out == '.' && out == prev {
			continue
		}
		b.WriteRune(out)
		prev = out
	}
	return b.String()
}

func isAlphaNum(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r < unicode.MaxASCII && unicode.IsDigit(r))
}
