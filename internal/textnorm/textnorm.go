// Package textnorm normalizes portal text for comparison.
//
// The portal renders labels and numbers in Persian script, and users type
// line numbers with whatever keyboard layout they have. Comparing raw strings
// would fail on visually identical text, so labels and digits are folded to
// a canonical form before matching. Values copied into snapshots are never
// passed through these functions.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Persian and Arabic letters that render the same but differ in code point.
const (
	arabicYeh    = '\u064a'
	farsiYeh     = '\u06cc'
	alefMaksura  = '\u0649'
	arabicKaf    = '\u0643'
	keheh        = '\u06a9'
	tatweel      = '\u0640'
	zeroWidthNJ  = '\u200c'
	zeroWidthJ   = '\u200d'
	rtlMark      = '\u200f'
	ltrMark      = '\u200e'
	arabicZero   = '\u0660'
	persianZero  = '\u06f0'
	digitsInSpan = 10
)

// foldDigit maps Persian and Arabic-Indic digits to ASCII.
func foldDigit(r rune) rune {
	switch {
	case r >= persianZero && r < persianZero+digitsInSpan:
		return '0' + (r - persianZero)
	case r >= arabicZero && r < arabicZero+digitsInSpan:
		return '0' + (r - arabicZero)
	}
	return r
}

// foldLetter maps Arabic letter variants to their Persian forms.
func foldLetter(r rune) rune {
	switch r {
	case arabicYeh, alefMaksura:
		return farsiYeh
	case arabicKaf:
		return keheh
	}
	return foldDigit(r)
}

// isInvisible matches joiners, direction marks, and tatweel.
func isInvisible(r rune) bool {
	switch r {
	case tatweel, zeroWidthJ, rtlMark, ltrMark:
		return true
	}
	return false
}

// Digits returns s with every digit in ASCII form.
// Fullwidth digits are folded by NFKC; Persian and Arabic-Indic digits are
// mapped explicitly since Unicode defines no decomposition for them.
func Digits(s string) string {
	t := transform.Chain(norm.NFKC, runes.Map(foldDigit))
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Label returns the canonical comparison form of a portal label.
// Whitespace runs collapse to one space, a trailing colon is dropped, and
// letter case is folded.
func Label(s string) string {
	t := transform.Chain(
		norm.NFKC,
		runes.Remove(runes.Predicate(isInvisible)),
		runes.Map(func(r rune) rune {
			if r == zeroWidthNJ {
				return ' '
			}
			return foldLetter(r)
		}),
		cases.Fold(),
	)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}

	out = strings.Join(strings.FieldsFunc(out, unicode.IsSpace), " ")
	out = strings.TrimRight(out, ":")
	return strings.TrimSpace(out)
}

// IsDigits reports whether s is non-empty and consists of ASCII digits only.
func IsDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
