package utils

import "strings"

// SafeDocumentName normalizes a document or reference name into a form
// safe for use as an archive key segment. Anything outside letters,
// digits, dot, underscore and dash becomes a dash.
func SafeDocumentName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '_' || r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return b.String()
}
