package config

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// ToCamelCase converts an underscore separated option name (output_format)
// into the camel case form used by the recognition service (outputFormat).
// The first component is kept as written; every following component is
// title cased. Empty components produced by repeated underscores are dropped.
func ToCamelCase(s string) string {
	parts := strings.Split(s, "_")

	var b strings.Builder
	b.Grow(len(s))
	b.WriteString(parts[0])
	for _, p := range parts[1:] {
		if p == "" {
			continue
		}
		r, size := utf8.DecodeRuneInString(p)
		b.WriteRune(unicode.ToUpper(r))
		b.WriteString(strings.ToLower(p[size:]))
	}
	return b.String()
}
