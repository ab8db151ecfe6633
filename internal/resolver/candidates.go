package resolver

import (
	"strings"

	"github.com/nao1215/adslwatch/internal/textnorm"
)

// Login names are digit strings within these bounds.
const (
	MinLoginLength = 6
	MaxLoginLength = 9
)

// GenerateCandidates returns the login names a line number may map to, in
// order of first appearance and without duplicates. Persian and
// Arabic-Indic digits are accepted; spaces and dashes are ignored.
func GenerateCandidates(rawLine string) []string {
	line := NormalizeLine(rawLine)
	base := strings.TrimLeft(line, "0")

	forms := []string{line, base}
	if len(base) > 1 {
		forms = append(forms, base[1:])
	}
	if len(base) > 2 {
		forms = append(forms, base[2:])
	}
	forms = append(forms, "1"+base, "01"+base, "1"+line, "01"+line)

	seen := make(map[string]bool, len(forms))
	candidates := make([]string, 0, len(forms))
	for _, c := range forms {
		if seen[c] || !validLogin(c) {
			continue
		}
		seen[c] = true
		candidates = append(candidates, c)
	}
	return candidates
}

// NormalizeLine maps digits to ASCII and drops spaces and dashes.
func NormalizeLine(rawLine string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '-', '\u00a0', '\u2010', '\u2011', '\u2013':
			return -1
		}
		return r
	}, textnorm.Digits(strings.TrimSpace(rawLine)))
}

func validLogin(s string) bool {
	return len(s) >= MinLoginLength && len(s) <= MaxLoginLength && textnorm.IsDigits(s)
}
