package evidence

import (
	"net/url"
	"regexp"
	"strings"
)

// SnippetLimit bounds snippets taken from scraped pages.
const SnippetLimit = 200

var reWhitespace = regexp.MustCompile(`\s+`)

// CollapseSpace squeezes runs of whitespace into one space and trims.
func CollapseSpace(s string) string {
	return strings.TrimSpace(reWhitespace.ReplaceAllString(s, " "))
}

// Truncate shortens s to at most maxLen runes.
func Truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// Snippet collapses whitespace and truncates to SnippetLimit.
func Snippet(s string) string {
	return Truncate(CollapseSpace(s), SnippetLimit)
}

// AbsoluteURL resolves href against base. It returns href unchanged when
// either does not parse.
func AbsoluteURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	if ref.IsAbs() {
		return ref.String()
	}
	baseURL, err := url.Parse(base)
	if err != nil || base == "" {
		return href
	}
	return baseURL.ResolveReference(ref).String()
}
