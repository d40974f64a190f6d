package landing

import (
	"strings"
	"unicode"
)

// NormalizeSlug lowercases s and collapses every run of characters other
// than a-z and 0-9 into one hyphen, trimming hyphens at both ends.
// "  Promo Madu_Murni! " becomes "promo-madu-murni".
func NormalizeSlug(s string) string {
	var b strings.Builder
	pendingHyphen := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}
	return b.String()
}

// NormalizePhone strips the punctuation people type into phone numbers
// (spaces, dashes, dots, parentheses and a leading plus). Anything else is
// kept so validation can still reject it.
func NormalizePhone(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		switch r {
		case '-', '.', '(', ')', '+':
			return -1
		}
		return r
	}, s)
}
