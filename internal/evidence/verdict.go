package evidence

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

// Verdict is a heuristic classification of a claim.
type Verdict string

const (
	VerdictTrue       Verdict = "TRUE"
	VerdictFalse      Verdict = "FALSE"
	VerdictMisleading Verdict = "MISLEADING"
	VerdictUnverified Verdict = "UNVERIFIED"
)

// ParseVerdict maps free-form rating text onto a Verdict. Anything it does
// not recognise is UNVERIFIED.
func ParseVerdict(s string) Verdict {
	v := strings.ToUpper(strings.TrimSpace(s))
	v = strings.NewReplacer("-", "_", " ", "_").Replace(v)

	switch v {
	case "TRUE", "VERIFIED", "CORRECT", "ACCURATE", "MOSTLY_TRUE":
		return VerdictTrue
	case "FALSE", "FAKE", "INCORRECT", "PANTS_ON_FIRE", "MOSTLY_FALSE":
		return VerdictFalse
	case "MISLEADING", "PARTLY_TRUE", "PARTIALLY_TRUE", "HALF_TRUE", "MIXED", "MISSING_CONTEXT":
		return VerdictMisleading
	}
	return VerdictUnverified
}

// KeywordTable drives verdict-hint inference from titles. Keywords are
// matched case-insensitively on word boundaries.
type KeywordTable struct {
	False      []string `yaml:"false" json:"false"`
	True       []string `yaml:"true" json:"true"`
	Misleading []string `yaml:"misleading" json:"misleading"`
}

// DefaultKeywords returns the built-in English and Hindi table.
func DefaultKeywords() KeywordTable {
	return KeywordTable{
		False: []string{
			"fake", "false", "untrue", "misleading", "morphed", "doctored", "viral lie",
			"गलत", "भ्रामक", "फर्जी",
		},
		True: []string{
			"true", "genuine", "verified",
			"सही", "सत्य",
		},
		Misleading: []string{
			"fact check:", "fact check", "debunked",
		},
	}
}

// IsZero reports whether the table has no keywords at all.
func (t KeywordTable) IsZero() bool {
	return len(t.False) == 0 && len(t.True) == 0 && len(t.Misleading) == 0
}

// Infer classifies title. Falsehood words win over confirmation words, which
// win over a bare fact-check marker.
func (t KeywordTable) Infer(title string) Verdict {
	folded := fold(title)
	switch {
	case matchesAny(folded, t.False):
		return VerdictFalse
	case matchesAny(folded, t.True):
		return VerdictTrue
	case matchesAny(folded, t.Misleading):
		return VerdictMisleading
	}
	return VerdictUnverified
}

func fold(s string) string {
	return cases.Fold().String(s)
}

func matchesAny(text string, words []string) bool {
	for _, w := range words {
		if containsWord(text, fold(strings.TrimSpace(w))) {
			return true
		}
	}
	return false
}

// containsWord finds word in text where it is not glued to surrounding
// letters, so "unverified" does not match "verified".
func containsWord(text, word string) bool {
	if word == "" {
		return false
	}
	first, _ := utf8.DecodeRuneInString(word)
	last, _ := utf8.DecodeLastRuneInString(word)

	for start := 0; start < len(text); {
		idx := strings.Index(text[start:], word)
		if idx < 0 {
			return false
		}
		i := start + idx
		j := i + len(word)

		before := !isWordRune(first) || i == 0
		if !before {
			r, _ := utf8.DecodeLastRuneInString(text[:i])
			before = !isWordRune(r)
		}
		after := !isWordRune(last) || j == len(text)
		if !after {
			r, _ := utf8.DecodeRuneInString(text[j:])
			after = !isWordRune(r)
		}
		if before && after {
			return true
		}

		_, size := utf8.DecodeRuneInString(text[i:])
		start = i + size
	}
	return false
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r)
}
