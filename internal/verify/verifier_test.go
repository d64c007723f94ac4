package verify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NullMeDev/factlens/internal/config"
	"github.com/NullMeDev/factlens/internal/evidence"
	"github.com/NullMeDev/factlens/internal/logging"
	"github.com/NullMeDev/factlens/internal/reasoner"
	"github.com/NullMeDev/factlens/internal/sources"
)

type fakeSource struct {
	name     string
	res      evidence.SourceResult
	delay    time.Duration
	panics   bool
	gotClaim string
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Fetch(ctx context.Context, claim string) evidence.SourceResult {
	f.gotClaim = claim
	time.Sleep(f.delay)
	if f.panics {
		panic("adapter bug")
	}
	return f.res
}

type fakeIndex struct {
	res   evidence.ClaimReviewResult
	delay time.Duration
}

func (f *fakeIndex) Search(ctx context.Context, claim string) evidence.ClaimReviewResult {
	time.Sleep(f.delay)
	return f.res
}

type recordingReasoner struct {
	claim string
	items []evidence.Item
	out   evidence.Analysis
	err   error
}

func (r *recordingReasoner) Analyze(ctx context.Context, claim string, items []evidence.Item) (evidence.Analysis, error) {
	r.claim = claim
	r.items = items
	return r.out, r.err
}

func withItems(key string, titles ...string) *fakeSource {
	res := evidence.Empty(key)
	for _, title := range titles {
		res.Items = append(res.Items, evidence.Item{Title: title, SourceName: key, URL: "https://example.org/" + title})
	}
	return &fakeSource{name: key, res: res}
}

func failing(key, msg string) *fakeSource {
	return &fakeSource{name: key, res: evidence.Failure(key, msg)}
}

func twoClaims() *fakeIndex {
	return &fakeIndex{res: evidence.ClaimReviewResult{Claims: []evidence.ClaimReview{
		{Text: "one", Reviews: []evidence.Review{{Publisher: "Alt News", Rating: "False"}}},
		{Text: "two"},
	}}}
}

func TestVerifyMergesInPriorityOrder(t *testing.T) {
	r := &recordingReasoner{out: evidence.Analysis{
		VerdictSuggestion: evidence.VerdictFalse,
		Confidence:        0.9,
		Reasoning:         []string{"fact-checkers agree"},
	}}
	news := withItems("news", "n1", "n2", "n3")
	news.delay = 10 * time.Millisecond

	v := New(Sources{
		FactCheck: twoClaims(),
		Regional:  withItems("regional", "r1", "r2"),
		WebSearch: withItems("web", "w1"),
		Scraper:   failing("scraper", "Status 503"),
		News:      news,
	}, r, WithLogger(logging.Nop()))

	rec := v.Verify(context.Background(), "  “Viral   photo” https://t.co/x ")

	assert.Equal(t, "  “Viral   photo” https://t.co/x ", rec.OriginalClaim)
	assert.Equal(t, "Viral photo", rec.NormalizedClaim)
	assert.Equal(t, "Viral photo", news.gotClaim)
	assert.Empty(t, rec.Error)

	var titles []string
	for _, item := range rec.MergedEvidence {
		titles = append(titles, item.Title)
	}
	assert.Equal(t, []string{"r1", "r2", "w1", "n1", "n2", "n3"}, titles)
	assert.Equal(t, rec.MergedEvidence, r.items)
	assert.Equal(t, "Viral photo", r.claim)

	assert.True(t, rec.Scraper.Failed())
	assert.Contains(t, rec.Scraper.Error, "503")
	assert.Len(t, rec.FactCheck.Claims, 2)

	assert.Equal(t, evidence.Summary{
		FactCheckFound: true,
		RegionalCount:  2,
		WebSearchCount: 1,
		ScraperCount:   0,
		NewsCount:      3,
		AIConfidence:   0.9,
		TotalSources:   8,
	}, rec.Summary)
	assert.Equal(t, evidence.VerdictFalse, rec.AIAnalysis.VerdictSuggestion)
	assert.False(t, rec.CheckedAt.IsZero())
}

func TestVerifyAllSourcesFailing(t *testing.T) {
	v := New(Sources{
		FactCheck: &fakeIndex{res: evidence.ClaimReviewResult{Claims: []evidence.ClaimReview{}, Error: "No API key"}},
		Regional:  failing("regional", "all 5 regional fact-checkers failed"),
		WebSearch: failing("web", "No API key"),
		Scraper:   failing("scraper", "timeout"),
		News:      failing("news", "No API key"),
	}, reasoner.Offline{}, WithLogger(logging.Nop()))

	rec := v.Verify(context.Background(), "claim")

	assert.Empty(t, rec.Error)
	assert.NotNil(t, rec.MergedEvidence)
	assert.Empty(t, rec.MergedEvidence)
	assert.Equal(t, evidence.VerdictUnverified, rec.AIAnalysis.VerdictSuggestion)
	assert.Equal(t, 0, rec.Summary.TotalSources)
	assert.False(t, rec.Summary.FactCheckFound)
	for _, res := range []evidence.SourceResult{rec.Regional, rec.WebSearch, rec.Scraper, rec.News} {
		assert.True(t, res.Failed())
		assert.NotNil(t, res.Items)
	}
}

func TestVerifyIsolatesPanickingSource(t *testing.T) {
	broken := withItems("web", "w1")
	broken.panics = true

	v := New(Sources{
		FactCheck: twoClaims(),
		Regional:  withItems("regional", "r1"),
		WebSearch: broken,
		Scraper:   withItems("scraper", "s1"),
		News:      withItems("news", "n1"),
	}, reasoner.Offline{}, WithLogger(logging.Nop()))

	var rec *evidence.Record
	require.NotPanics(t, func() { rec = v.Verify(context.Background(), "claim") })

	assert.Empty(t, rec.Error)
	assert.True(t, rec.WebSearch.Failed())
	assert.Contains(t, rec.WebSearch.Error, "adapter bug")
	assert.Len(t, rec.MergedEvidence, 3)
	assert.Equal(t, 5, rec.Summary.TotalSources)
}

func TestVerifyWithMissingSources(t *testing.T) {
	v := New(Sources{Regional: withItems("regional", "r1")}, nil, WithLogger(logging.Nop()))

	rec := v.Verify(context.Background(), "claim")
	assert.NotEmpty(t, rec.FactCheck.Error)
	assert.NotNil(t, rec.FactCheck.Claims)
	assert.True(t, rec.WebSearch.Failed())
	assert.True(t, rec.Scraper.Failed())
	assert.True(t, rec.News.Failed())
	assert.Len(t, rec.MergedEvidence, 1)
	assert.Equal(t, 1, rec.Summary.TotalSources)
}

func TestVerifyRunsSourcesConcurrently(t *testing.T) {
	slow := func(key string) *fakeSource {
		s := withItems(key, key+"-1")
		s.delay = 150 * time.Millisecond
		return s
	}
	v := New(Sources{
		FactCheck: &fakeIndex{delay: 150 * time.Millisecond},
		Regional:  slow("regional"),
		WebSearch: slow("web"),
		Scraper:   slow("scraper"),
		News:      slow("news"),
	}, reasoner.Offline{}, WithLogger(logging.Nop()))

	start := time.Now()
	rec := v.Verify(context.Background(), "claim")
	assert.Less(t, time.Since(start), 600*time.Millisecond)
	assert.Len(t, rec.MergedEvidence, 4)
	assert.NotNil(t, rec.FactCheck.Claims)
}

func TestVerifyReasonerFailure(t *testing.T) {
	v := New(Sources{
		Regional: withItems("regional", "r1"),
	}, &recordingReasoner{err: errors.New("model unavailable")}, WithLogger(logging.Nop()))

	rec := v.Verify(context.Background(), "claim")
	assert.Empty(t, rec.Error)
	assert.Equal(t, evidence.DefaultAnalysis("Error: model unavailable"), rec.AIAnalysis)
	assert.Equal(t, 0.0, rec.Summary.AIConfidence)
	assert.Equal(t, 1, rec.Summary.RegionalCount)
}

func TestVerifyAggregationFaultGivesDefaultRecord(t *testing.T) {
	v := New(Sources{
		FactCheck: twoClaims(),
		Regional:  withItems("regional", "r1"),
	}, reasoner.Offline{},
		WithLogger(logging.Nop()),
		WithNormalizer(func(string) string { panic("normalizer exploded") }),
	)

	rec := v.Verify(context.Background(), "original text")

	require.NotNil(t, rec)
	assert.Equal(t, "original text", rec.OriginalClaim)
	assert.Contains(t, rec.Error, "normalizer exploded")
	assert.Equal(t, evidence.VerdictUnverified, rec.AIAnalysis.VerdictSuggestion)
	assert.Equal(t, 0.0, rec.AIAnalysis.Confidence)
	require.Len(t, rec.AIAnalysis.Reasoning, 1)
	assert.True(t, strings.HasPrefix(rec.AIAnalysis.Reasoning[0], "Error: "))
	assert.Equal(t, evidence.Summary{}, rec.Summary)
	assert.Empty(t, rec.Regional.Items)
	assert.Empty(t, rec.FactCheck.Claims)
}

func TestVerifyReportsProgress(t *testing.T) {
	v := New(Sources{
		FactCheck: twoClaims(),
		Regional:  withItems("regional", "r1", "r2"),
		WebSearch: failing("web", "No API key"),
		Scraper:   withItems("scraper"),
		News:      withItems("news", "n1"),
	}, reasoner.Offline{}, WithLogger(logging.Nop()))

	got := map[string]Progress{}
	rec := v.VerifyWithProgress(context.Background(), "claim", func(p Progress) {
		got[p.Source] = p
	})

	require.Len(t, got, 5)
	assert.Equal(t, Progress{Source: SourceFactCheck, Items: 2}, got[SourceFactCheck])
	assert.Equal(t, Progress{Source: SourceRegional, Items: 2}, got[SourceRegional])
	assert.Equal(t, Progress{Source: SourceWebSearch, Error: "No API key"}, got[SourceWebSearch])
	assert.Equal(t, 1, got[SourceNews].Items)
	assert.Len(t, rec.MergedEvidence, 3)
}

func TestVerifySurvivesPanickingProgressCallback(t *testing.T) {
	v := New(Sources{Regional: withItems("regional", "r1")}, reasoner.Offline{}, WithLogger(logging.Nop()))

	var rec *evidence.Record
	require.NotPanics(t, func() {
		rec = v.VerifyWithProgress(context.Background(), "claim", func(Progress) { panic("listener gone") })
	})
	assert.Len(t, rec.Regional.Items, 1)
	assert.False(t, rec.Regional.Failed())
}

func TestVerifyConcurrentCallsAreIndependent(t *testing.T) {
	v := New(Sources{
		FactCheck: twoClaims(),
		Regional:  &echoSource{},
	}, reasoner.Offline{}, WithLogger(logging.Nop()))

	done := make(chan *evidence.Record, 10)
	for i := 0; i < 10; i++ {
		go func(i int) { done <- v.Verify(context.Background(), fmt.Sprintf("claim %d", i)) }(i)
	}
	for i := 0; i < 10; i++ {
		rec := <-done
		require.Len(t, rec.Regional.Items, 1)
		assert.Equal(t, rec.NormalizedClaim, rec.Regional.Items[0].Title)
	}
}

// echoSource returns the claim it was given as its only item.
type echoSource struct{}

func (echoSource) Name() string { return "echo" }

func (echoSource) Fetch(ctx context.Context, claim string) evidence.SourceResult {
	res := evidence.Empty("echo")
	res.Items = append(res.Items, evidence.Item{Title: claim, SourceName: "echo"})
	return res
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, evidence.Summary{}, Summarize(nil))

	rec := &evidence.Record{
		FactCheck:      evidence.ClaimReviewResult{Claims: []evidence.ClaimReview{{Text: "x"}}},
		Regional:       evidence.SourceResult{Items: make([]evidence.Item, 3)},
		News:           evidence.SourceResult{Items: make([]evidence.Item, 1)},
		MergedEvidence: make([]evidence.Item, 4),
	}
	sum := Summarize(rec)
	assert.True(t, sum.FactCheckFound)
	assert.Equal(t, 3, sum.RegionalCount)
	assert.Equal(t, 1, sum.NewsCount)
	assert.Equal(t, 0.0, sum.AIConfidence)
	assert.Equal(t, 5, sum.TotalSources)
}

func TestMergeKeepsDuplicates(t *testing.T) {
	item := evidence.Item{Title: "same", URL: "https://dup.example", SourceName: "x"}
	merged := Merge(
		evidence.SourceResult{Items: []evidence.Item{item}},
		evidence.SourceResult{Items: []evidence.Item{item}},
		evidence.SourceResult{},
		evidence.SourceResult{},
	)
	assert.Len(t, merged, 2)
}

func TestWiringFromConfig(t *testing.T) {
	cfg := &config.Config{
		SourceTimeout: time.Second,
		Regional:      sources.DefaultRegionalSites(),
		Keywords:      evidence.DefaultKeywords(),
	}
	log := logging.Nop()

	_, offline := NewReasoner(cfg, log).(reasoner.Offline)
	assert.True(t, offline)

	cfg.OpenAIAPIKey = "k"
	_, online := NewReasoner(cfg, log).(*reasoner.OpenAI)
	assert.True(t, online)

	srcs := NewSources(cfg, log)
	all := srcs.All()
	assert.Len(t, all, 5)
	regional, ok := srcs.Regional.(*sources.Regional)
	require.True(t, ok)
	assert.Len(t, regional.Sites(), 5)

	assert.NotNil(t, FromConfig(cfg, nil))
}
