// Package claim cleans claim text before it is sent to the sources.
package claim

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/NullMeDev/factlens/internal/evidence"
)

var (
	reURL      = regexp.MustCompile(`(?i)\b(?:https?://|www\.)\S+`)
	reZeroWide = regexp.MustCompile("[\u200B\u200C\u200D\u2060\uFEFF]")
)

const quoteChars = "\"'`“”‘’«»"

// Normalize returns a cleaned form of text: NFKC-normalized, without links
// or zero-width characters, whitespace collapsed and surrounding quotes
// removed. It never fails; empty input gives empty output.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	s := norm.NFKC.String(text)
	s = reZeroWide.ReplaceAllString(s, "")
	s = reURL.ReplaceAllString(s, " ")
	s = evidence.CollapseSpace(s)
	s = strings.Trim(s, quoteChars)
	return strings.TrimSpace(s)
}
