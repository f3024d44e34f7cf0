package rules

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// accented lists the non-ASCII letters that survive normalization.
const accented = "áéíóúüñ"

// Normalize canonicalizes free text for keyword matching:
//   - lowercases (Spanish casing rules)
//   - drops everything except a-z, accented vowels, ñ and whitespace
//   - collapses runs of 3+ identical characters to one ("holaaaa" → "hola")
//   - trims surrounding whitespace
//
// It never fails; the result may be empty.
func Normalize(text string) string {
	// cases.Caser is stateful, so one per call.
	lowered := cases.Lower(language.Spanish).String(text)

	var b strings.Builder
	b.Grow(len(lowered))
	for _, r := range lowered {
		if keepRune(r) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(collapseRuns(b.String(), 3))
}

func keepRune(r rune) bool {
	if r >= 'a' && r <= 'z' {
		return true
	}
	if unicode.IsSpace(r) {
		return true
	}
	return strings.ContainsRune(accented, r)
}

// collapseRuns replaces every run of at least min identical runes with a
// single rune. Newlines are left alone.
func collapseRuns(s string, min int) string {
	rs := []rune(s)
	if len(rs) < min {
		return s
	}
	out := make([]rune, 0, len(rs))
	for i := 0; i < len(rs); {
		j := i + 1
		for j < len(rs) && rs[j] == rs[i] {
			j++
		}
		if n := j - i; n >= min && rs[i] != '\n' {
			out = append(out, rs[i])
		} else {
			out = append(out, rs[i:j]...)
		}
		i = j
	}
	return string(out)
}
