package mutator

import (
	"strings"
	"unicode"
)

const maxSlugLen = 48

// Slug converts a title into its canonical directory/file form: lowercase
// ASCII with runs of non-alphanumerics collapsed to single hyphens.
func Slug(title string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', unicode.IsDigit(r):
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
		if b.Len() >= maxSlugLen {
			break
		}
	}
	return strings.Trim(b.String(), "-")
}
