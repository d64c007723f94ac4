package verify

import "github.com/NullMeDev/factlens/internal/evidence"

// Summarize derives the summary counts from a finished record.
func Summarize(rec *evidence.Record) evidence.Summary {
	if rec == nil {
		return evidence.Summary{}
	}
	return evidence.Summary{
		FactCheckFound: len(rec.FactCheck.Claims) > 0,
		RegionalCount:  len(rec.Regional.Items),
		WebSearchCount: len(rec.WebSearch.Items),
		ScraperCount:   len(rec.Scraper.Items),
		NewsCount:      len(rec.News.Items),
		AIConfidence:   rec.AIAnalysis.Confidence,
		TotalSources:   len(rec.MergedEvidence) + len(rec.FactCheck.Claims),
	}
}
