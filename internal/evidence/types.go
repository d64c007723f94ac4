// Package evidence holds the values that flow from the sources through the
// verifier to the caller.
package evidence

import "time"

// Credibility is a fixed per-source display tier.
type Credibility string

const (
	CredibilityHigh   Credibility = "high"
	CredibilityMedium Credibility = "medium"
)

// Item is one piece of retrieved content.
type Item struct {
	Title       string      `json:"title"`
	Snippet     string      `json:"snippet"`
	URL         string      `json:"url"`
	SourceName  string      `json:"source_name"`
	VerdictHint Verdict     `json:"verdict_hint,omitempty"`
	Credibility Credibility `json:"credibility_tier"`
	DisplayLink string      `json:"display_link,omitempty"`
	PublishedAt string      `json:"published_at,omitempty"`
}

// SourceResult is the outcome of one source fetch. A failed fetch has no
// items and a non-empty Error.
type SourceResult struct {
	Source string `json:"source,omitempty"`
	Query  string `json:"query,omitempty"`
	Items  []Item `json:"items"`
	Error  string `json:"error,omitempty"`
}

// Failed reports whether the result carries an error.
func (r SourceResult) Failed() bool {
	return r.Error != ""
}

// Empty returns a valid empty result for source.
func Empty(source string) SourceResult {
	return SourceResult{Source: source, Items: []Item{}}
}

// Failure returns an empty result carrying msg.
func Failure(source, msg string) SourceResult {
	return SourceResult{Source: source, Items: []Item{}, Error: msg}
}

// Review is one publisher's rating of a claim.
type Review struct {
	Publisher  string `json:"publisher"`
	Site       string `json:"site,omitempty"`
	URL        string `json:"url"`
	Title      string `json:"title,omitempty"`
	Rating     string `json:"rating"`
	ReviewDate string `json:"review_date,omitempty"`
	Language   string `json:"language,omitempty"`
}

// ClaimReview is a claim as indexed by the fact-check index together with
// the reviews published for it.
type ClaimReview struct {
	Text      string   `json:"text"`
	Claimant  string   `json:"claimant,omitempty"`
	ClaimDate string   `json:"claim_date,omitempty"`
	Reviews   []Review `json:"reviews"`
}

// ClaimReviewResult is the outcome of one fact-check index query.
type ClaimReviewResult struct {
	Query  string        `json:"query,omitempty"`
	Claims []ClaimReview `json:"claims"`
	Error  string        `json:"error,omitempty"`
}

// Analysis is the reasoning collaborator's opinion on a claim.
type Analysis struct {
	VerdictSuggestion Verdict  `json:"verdict_suggestion"`
	Confidence        float64  `json:"confidence"`
	Reasoning         []string `json:"reasoning"`
	KeySources        []string `json:"key_sources,omitempty"`
}

// DefaultAnalysis is the minimal-confidence opinion substituted whenever the
// reasoner cannot produce one.
func DefaultAnalysis(reason string) Analysis {
	return Analysis{
		VerdictSuggestion: VerdictUnverified,
		Confidence:        0.0,
		Reasoning:         []string{reason},
	}
}

// Summary holds the counts derived from a finished record.
type Summary struct {
	FactCheckFound bool    `json:"fact_check_found"`
	RegionalCount  int     `json:"regional_results_count"`
	WebSearchCount int     `json:"web_search_results_count"`
	ScraperCount   int     `json:"scraper_results_count"`
	NewsCount      int     `json:"news_results_count"`
	AIConfidence   float64 `json:"ai_confidence"`
	TotalSources   int     `json:"total_sources"`
}

// Record is the complete verification output.
type Record struct {
	OriginalClaim   string            `json:"original_claim"`
	NormalizedClaim string            `json:"normalized_claim"`
	FactCheck       ClaimReviewResult `json:"fact_check"`
	Regional        SourceResult      `json:"regional_factcheckers"`
	WebSearch       SourceResult      `json:"web_search"`
	Scraper         SourceResult      `json:"web_scraper"`
	News            SourceResult      `json:"news_api"`
	MergedEvidence  []Item            `json:"merged_evidence"`
	AIAnalysis      Analysis          `json:"ai_analysis"`
	Summary         Summary           `json:"summary"`
	Error           string            `json:"error,omitempty"`
	CheckedAt       time.Time         `json:"checked_at"`
	Duration        time.Duration     `json:"duration_ns"`
}
