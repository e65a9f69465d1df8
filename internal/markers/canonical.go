package markers

import (
	"strings"
	"unicode"
)

// Canonicalize maps a vendor marker spelling to its canonical name. Unknown
// names come back trimmed with inner whitespace collapsed.
func (c *Catalog) Canonicalize(text string) string {
	if name, ok := c.aliases[normalizeKey(text)]; ok {
		return name
	}
	return strings.Join(strings.Fields(text), " ")
}

// normalizeKey lower-cases and turns punctuation into single spaces so
// "LDL-C", "ldl c" and "LDL  c." share a key
func normalizeKey(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
			continue
		}
		space = true
	}
	return b.String()
}
