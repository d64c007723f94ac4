// Package verify runs every evidence source for a claim, merges what they
// return and asks the reasoner for a suggested verdict.
package verify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/NullMeDev/factlens/internal/apperror"
	"github.com/NullMeDev/factlens/internal/claim"
	"github.com/NullMeDev/factlens/internal/evidence"
	"github.com/NullMeDev/factlens/internal/fanout"
	"github.com/NullMeDev/factlens/internal/logging"
	"github.com/NullMeDev/factlens/internal/reasoner"
	"github.com/NullMeDev/factlens/internal/sources"
)

// Source keys used in progress reports and logs.
const (
	SourceFactCheck = "fact_check"
	SourceRegional  = "regional"
	SourceWebSearch = "web_search"
	SourceScraper   = "web_scraper"
	SourceNews      = "news_api"
)

// ClaimSearcher looks a claim up in a structured fact-check index.
type ClaimSearcher interface {
	Search(ctx context.Context, claim string) evidence.ClaimReviewResult
}

// Sources are the five top-level sources. A nil source is reported as a
// failed source, never skipped.
type Sources struct {
	FactCheck ClaimSearcher
	Regional  sources.Source
	WebSearch sources.Source
	Scraper   sources.Source
	News      sources.Source
}

// Progress describes one finished source.
type Progress struct {
	Source string `json:"source"`
	Items  int    `json:"items"`
	Error  string `json:"error,omitempty"`
}

// ProgressFunc is called once per finished source, never concurrently.
type ProgressFunc func(Progress)

// Verifier coordinates one verification per call. It keeps no state
// between calls and is safe for concurrent use.
type Verifier struct {
	sources   Sources
	reasoner  reasoner.Reasoner
	normalize func(string) string
	log       *logging.Logger
}

// Option customises a Verifier.
type Option func(*Verifier)

// WithNormalizer replaces claim.Normalize.
func WithNormalizer(fn func(string) string) Option {
	return func(v *Verifier) { v.normalize = fn }
}

func WithLogger(log *logging.Logger) Option {
	return func(v *Verifier) { v.log = log }
}

// New creates a Verifier. A nil reasoner falls back to reasoner.Offline.
func New(srcs Sources, r reasoner.Reasoner, opts ...Option) *Verifier {
	if r == nil {
		r = reasoner.Offline{}
	}
	v := &Verifier{
		sources:   srcs,
		reasoner:  r,
		normalize: claim.Normalize,
		log:       logging.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify gathers evidence for text and returns the complete record. It
// always returns a well-formed record.
func (v *Verifier) Verify(ctx context.Context, text string) *evidence.Record {
	return v.VerifyWithProgress(ctx, text, nil)
}

// VerifyWithProgress is Verify with a callback for each finished source.
func (v *Verifier) VerifyWithProgress(ctx context.Context, text string, progress ProgressFunc) (rec *evidence.Record) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err := apperror.NewAggregationError("verification aborted", fmt.Errorf("%v", r))
			v.log.Error("Verification of %q failed: %v", text, err)
			rec = DefaultRecord(text, err.Error())
			rec.CheckedAt = start
			rec.Duration = time.Since(start)
		}
	}()

	normalized := v.normalize(text)
	v.log.Info("Verifying claim %q", normalized)

	rec = &evidence.Record{
		OriginalClaim:   text,
		NormalizedClaim: normalized,
		CheckedAt:       start,
	}

	report := v.reporter(progress)

	fanout.Join(ctx,
		fanout.Task{
			Name: SourceFactCheck,
			Run: func(ctx context.Context) {
				rec.FactCheck = v.searchFactCheck(ctx, normalized)
				report(Progress{Source: SourceFactCheck, Items: len(rec.FactCheck.Claims), Error: rec.FactCheck.Error})
			},
			OnPanic: func(err error) {
				rec.FactCheck = evidence.ClaimReviewResult{Query: normalized, Claims: []evidence.ClaimReview{}, Error: err.Error()}
				report(Progress{Source: SourceFactCheck, Error: err.Error()})
			},
		},
		v.sourceTask(SourceRegional, v.sources.Regional, normalized, &rec.Regional, report),
		v.sourceTask(SourceWebSearch, v.sources.WebSearch, normalized, &rec.WebSearch, report),
		v.sourceTask(SourceScraper, v.sources.Scraper, normalized, &rec.Scraper, report),
		v.sourceTask(SourceNews, v.sources.News, normalized, &rec.News, report),
	)

	rec.MergedEvidence = Merge(rec.Regional, rec.WebSearch, rec.Scraper, rec.News)
	v.log.Info("Merged %d evidence items (regional %d, web %d, scraper %d, news %d), %d fact-check claims",
		len(rec.MergedEvidence), len(rec.Regional.Items), len(rec.WebSearch.Items),
		len(rec.Scraper.Items), len(rec.News.Items), len(rec.FactCheck.Claims))

	rec.AIAnalysis = reasoner.Analyze(ctx, v.reasoner, normalized, rec.MergedEvidence, v.log)
	rec.Summary = Summarize(rec)
	rec.Duration = time.Since(start)
	return rec
}

func (v *Verifier) searchFactCheck(ctx context.Context, text string) evidence.ClaimReviewResult {
	if v.sources.FactCheck == nil {
		return evidence.ClaimReviewResult{Query: text, Claims: []evidence.ClaimReview{}, Error: "fact-check index not configured"}
	}
	res := v.sources.FactCheck.Search(ctx, text)
	if res.Claims == nil {
		res.Claims = []evidence.ClaimReview{}
	}
	return res
}

// sourceTask runs src and stores its result in slot, which no other task
// touches.
func (v *Verifier) sourceTask(key string, src sources.Source, text string, slot *evidence.SourceResult, report ProgressFunc) fanout.Task {
	return fanout.Task{
		Name: key,
		Run: func(ctx context.Context) {
			if src == nil {
				*slot = evidence.Failure(key, key+" source not configured")
			} else {
				*slot = src.Fetch(ctx, text)
				if slot.Items == nil {
					slot.Items = []evidence.Item{}
				}
			}
			report(Progress{Source: key, Items: len(slot.Items), Error: slot.Error})
		},
		OnPanic: func(err error) {
			v.log.Error("Source %s panicked: %v", key, err)
			*slot = evidence.Failure(key, err.Error())
			report(Progress{Source: key, Error: err.Error()})
		},
	}
}

// reporter serialises progress callbacks and keeps a misbehaving callback
// from affecting the verification.
func (v *Verifier) reporter(progress ProgressFunc) ProgressFunc {
	if progress == nil {
		return func(Progress) {}
	}
	var mu sync.Mutex
	return func(p Progress) {
		mu.Lock()
		defer mu.Unlock()
		defer func() {
			if r := recover(); r != nil {
				v.log.Warning("Progress callback panicked: %v", r)
			}
		}()
		progress(p)
	}
}

// Merge concatenates items in priority order: regional fact-checkers, web
// search, scraper, news. Duplicates are kept.
func Merge(regional, webSearch, scraper, news evidence.SourceResult) []evidence.Item {
	merged := make([]evidence.Item, 0,
		len(regional.Items)+len(webSearch.Items)+len(scraper.Items)+len(news.Items))
	merged = append(merged, regional.Items...)
	merged = append(merged, webSearch.Items...)
	merged = append(merged, scraper.Items...)
	merged = append(merged, news.Items...)
	return merged
}

// DefaultRecord is returned when verification fails outside the sources.
func DefaultRecord(text, errMsg string) *evidence.Record {
	rec := &evidence.Record{
		OriginalClaim:  text,
		FactCheck:      evidence.ClaimReviewResult{Claims: []evidence.ClaimReview{}},
		Regional:       evidence.Empty(SourceRegional),
		WebSearch:      evidence.Empty(SourceWebSearch),
		Scraper:        evidence.Empty(SourceScraper),
		News:           evidence.Empty(SourceNews),
		MergedEvidence: []evidence.Item{},
		AIAnalysis:     evidence.DefaultAnalysis("Error: " + errMsg),
		Error:          errMsg,
	}
	rec.Summary = Summarize(rec)
	return rec
}
