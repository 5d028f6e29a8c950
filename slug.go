package portal

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Slugify converts a title to a URL slug. Latin letters are lower-cased,
// Arabic letters (U+0600..U+06FF) and ASCII digits are kept, whitespace runs
// become a single hyphen and every other rune is dropped. Hyphen runs are
// collapsed and edge hyphens trimmed. The result is NFC again after
// stripping, since a dropped rune can leave a base letter next to a
// combining mark; Slugify(Slugify(s)) == Slugify(s).
func Slugify(title string) string {
	s := norm.NFC.String(strings.TrimSpace(title))
	var b strings.Builder
	pendingHyphen := false
	for _, r := range s {
		switch {
		case unicode.IsSpace(r) || r == '-':
			pendingHyphen = true
			continue
		case r >= 'A' && r <= 'Z':
			r = unicode.ToLower(r)
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', isArabic(r):
		default:
			continue
		}
		if pendingHyphen && b.Len() > 0 {
			b.WriteByte('-')
		}
		pendingHyphen = false
		b.WriteRune(r)
	}
	return norm.NFC.String(b.String())
}

func isArabic(r rune) bool {
	return r >= 0x0600 && r <= 0x06FF
}

// DeriveSlug returns the slug a form should carry after its title changed.
// A slug already present (typed by the user or loaded from the backend) is
// kept, and while editing an existing record the slug is never derived.
func DeriveSlug(title, current string, editing bool) string {
	if editing || strings.TrimSpace(current) != "" {
		return strings.TrimSpace(current)
	}
	return Slugify(title)
}
