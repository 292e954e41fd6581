package logging

import (
	"strings"
	"unicode"
)

// MaxFieldLogLength is the maximum length of a user-supplied string to log.
const MaxFieldLogLength = 200

// SanitizeField makes a user-supplied string (filename, column name, search
// query) safe to log: control characters are dropped so uploaded names
// cannot forge log lines, and overlong values are truncated.
// Use this before logging any value that originated in an uploaded file.
func SanitizeField(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsControl(r) {
			continue
		}
		b.WriteRune(r)
	}

	out := b.String()
	if len(out) > MaxFieldLogLength {
		return out[:MaxFieldLogLength] + "..."
	}
	return out
}
