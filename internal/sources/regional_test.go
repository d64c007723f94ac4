package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NullMeDev/factlens/internal/evidence"
	"github.com/NullMeDev/factlens/internal/logging"
)

const altNewsPage = `<html><body>
<article>
  <h3 class="entry-title"><a href="/2024/fake-photo">FAKE photo of flood goes viral</a></h3>
  <div class="entry-content">  An old image from 2019
     is being shared as recent.</div>
</article>
<article>
  <h3 class="entry-title"><a href="https://www.altnews.in/fact-check-video/">Fact Check: video is from Bangladesh</a></h3>
  <div class="entry-content">%s</div>
</article>
<article>
  <h3 class="entry-title">No link here</h3>
</article>
<article>
  <h3 class="entry-title"><a href="/fourth">Fourth article is past the limit</a></h3>
</article>
</body></html>`

func testOptions() Options {
	return Options{Timeout: 2 * time.Second, Logger: logging.Nop()}
}

func testSite(base string) RegionalSite {
	return RegionalSite{
		Key:             "altnews",
		Name:            "Alt News",
		SearchURL:       base + "/?s={query}",
		ItemSelector:    "article",
		TitleSelector:   "h3.entry-title",
		LinkSelector:    "h3.entry-title a",
		SnippetSelector: "div.entry-content",
		BaseURL:         base,
		Credibility:     evidence.CredibilityHigh,
	}
}

func TestSiteScraperExtractsItems(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, altNewsPage, strings.Repeat("long ", 100))
	}))
	defer server.Close()

	scraper := NewSiteScraper(testSite(server.URL), evidence.KeywordTable{}, testOptions())
	res := scraper.Fetch(context.Background(), "flood photo viral")

	require.False(t, res.Failed(), res.Error)
	assert.Equal(t, "s=flood+photo+viral", gotQuery)
	assert.Equal(t, "altnews", res.Source)
	require.Len(t, res.Items, 2)

	first := res.Items[0]
	assert.Equal(t, "FAKE photo of flood goes viral", first.Title)
	assert.Equal(t, server.URL+"/2024/fake-photo", first.URL)
	assert.Equal(t, "An old image from 2019 is being shared as recent.", first.Snippet)
	assert.Equal(t, evidence.VerdictFalse, first.VerdictHint)
	assert.Equal(t, evidence.CredibilityHigh, first.Credibility)
	assert.Equal(t, "Alt News", first.SourceName)

	second := res.Items[1]
	assert.Equal(t, "https://www.altnews.in/fact-check-video/", second.URL)
	assert.Equal(t, evidence.VerdictMisleading, second.VerdictHint)
	assert.LessOrEqual(t, len([]rune(second.Snippet)), evidence.SnippetLimit)
}

func TestSiteScraperNonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	res := NewSiteScraper(testSite(server.URL), evidence.DefaultKeywords(), testOptions()).
		Fetch(context.Background(), "anything")

	assert.True(t, res.Failed())
	assert.Contains(t, res.Error, "503")
	assert.NotNil(t, res.Items)
	assert.Empty(t, res.Items)
}

func TestSiteScraperTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	opts := testOptions()
	opts.Timeout = 50 * time.Millisecond

	start := time.Now()
	res := NewSiteScraper(testSite(server.URL), evidence.DefaultKeywords(), opts).
		Fetch(context.Background(), "slow")

	assert.Less(t, time.Since(start), time.Second)
	assert.True(t, res.Failed())
	assert.Empty(t, res.Items)
}

func TestSiteScraperUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	base := server.URL
	server.Close()

	res := NewSiteScraper(testSite(base), evidence.DefaultKeywords(), testOptions()).
		Fetch(context.Background(), "x")
	assert.True(t, res.Failed())
	assert.Empty(t, res.Items)
}

func TestSiteScraperDecodesLegacyCharset(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		// "Café" with é as the single byte 0xE9.
		w.Write([]byte("<article><h3 class=\"entry-title\"><a href=\"/c\">Caf\xe9 claim is false</a></h3></article>"))
	}))
	defer server.Close()

	res := NewSiteScraper(testSite(server.URL), evidence.DefaultKeywords(), testOptions()).
		Fetch(context.Background(), "cafe")
	require.False(t, res.Failed(), res.Error)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "Café claim is false", res.Items[0].Title)
	assert.Equal(t, evidence.VerdictFalse, res.Items[0].VerdictHint)
}

func TestSiteScraperFeedMode(t *testing.T) {
	feed := `<?xml version="1.0"?>
<rss version="2.0"><channel><title>Vishvas</title><link>https://www.vishvasnews.com</link>
<item><title>यह दावा गलत है</title><link>https://www.vishvasnews.com/a</link><description><![CDATA[<p>Hindi <b>claim</b></p>]]></description><pubDate>Mon, 02 Jan 2006 15:04:05 GMT</pubDate></item>
<item><title>Second</title><link>/b</link></item>
<item><title>Third</title><link>/c</link></item>
<item><title>Fourth</title><link>/d</link></item>
</channel></rss>`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, feed)
	}))
	defer server.Close()

	site := RegionalSite{
		Key:       "vishvas",
		Name:      "Vishvas News (PIB)",
		SearchURL: server.URL + "/?s={query}&feed=rss2",
		Format:    FormatRSS,
		BaseURL:   "https://www.vishvasnews.com",
	}
	require.NoError(t, site.Validate())

	res := NewSiteScraper(site, evidence.DefaultKeywords(), testOptions()).Fetch(context.Background(), "claim")
	require.False(t, res.Failed(), res.Error)
	require.Len(t, res.Items, 3)
	assert.Equal(t, evidence.VerdictFalse, res.Items[0].VerdictHint)
	assert.Equal(t, "Hindi claim", res.Items[0].Snippet)
	assert.NotEmpty(t, res.Items[0].PublishedAt)
	assert.Equal(t, "https://www.vishvasnews.com/b", res.Items[1].URL)
	assert.Equal(t, evidence.CredibilityMedium, res.Items[1].Credibility)
}

func TestSiteScraperFeedBodyIsCapped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, `<?xml version="1.0"?><rss version="2.0"><channel><title>Endless</title><item><title>x</title><description>`)
		chunk := strings.Repeat("a", 32<<10)
		for {
			if _, err := fmt.Fprint(w, chunk); err != nil {
				return
			}
			select {
			case <-r.Context().Done():
				return
			default:
			}
		}
	}))
	defer server.Close()

	site := RegionalSite{Key: "endless", Name: "Endless", SearchURL: server.URL + "/?s={query}", Format: FormatRSS}
	opts := Options{Timeout: 5 * time.Second, Logger: logging.Nop()}

	start := time.Now()
	res := NewSiteScraper(site, evidence.DefaultKeywords(), opts).Fetch(context.Background(), "claim")
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.NotContains(t, res.Error, "timed out")
}

func TestQueryURL(t *testing.T) {
	sites := DefaultRegionalSites()
	require.Len(t, sites, 5)

	byKey := map[string]RegionalSite{}
	for _, s := range sites {
		require.NoError(t, s.Validate())
		byKey[s.Key] = s
	}

	assert.Equal(t, "https://factcheck.pib.gov.in/", byKey["pib_factcheck"].QueryURL("any claim"))
	assert.Equal(t, "https://www.altnews.in/?s=modi+rally+photo", byKey["altnews"].QueryURL("modi  rally photo"))
	assert.Equal(t, "https://www.boomlive.in/?s=modi%20rally%20photo", byKey["boom"].QueryURL("modi rally photo"))
	assert.Equal(t, "https://factly.in/?s=a%26b", byKey["factly"].QueryURL("a&b"))
}

func TestRegionalSiteValidate(t *testing.T) {
	assert.Error(t, RegionalSite{}.Validate())
	assert.Error(t, RegionalSite{Key: "x", Name: "X", SearchURL: "https://x.org"}.Validate())
	assert.Error(t, RegionalSite{Key: "x", Name: "X", SearchURL: "https://x.org", Format: "json"}.Validate())
}

type fakeSource struct {
	name  string
	delay time.Duration
	res   evidence.SourceResult
	panic bool
	calls atomic.Int32
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Fetch(ctx context.Context, claim string) evidence.SourceResult {
	f.calls.Add(1)
	time.Sleep(f.delay)
	if f.panic {
		panic("scraper exploded")
	}
	return f.res
}

func okSource(name string, delay time.Duration, titles ...string) *fakeSource {
	res := evidence.Empty(name)
	for _, title := range titles {
		res.Items = append(res.Items, evidence.Item{Title: title, SourceName: name, URL: "https://example.org/" + title})
	}
	return &fakeSource{name: name, delay: delay, res: res}
}

func failSource(name string) *fakeSource {
	return &fakeSource{name: name, res: evidence.Failure(name, "Status 500")}
}

func TestRegionalKeepsDeclaredOrder(t *testing.T) {
	regional := NewRegional([]Source{
		okSource("pib", 60*time.Millisecond, "p1"),
		okSource("altnews", 40*time.Millisecond, "a1", "a2"),
		failSource("boom"),
		okSource("factly", 0, "f1"),
		okSource("vishvas", 20*time.Millisecond, "v1"),
	}, testOptions())

	res := regional.Fetch(context.Background(), "claim")

	assert.False(t, res.Failed())
	var titles []string
	for _, item := range res.Items {
		titles = append(titles, item.Title)
	}
	assert.Equal(t, []string{"p1", "a1", "a2", "f1", "v1"}, titles)
}

func TestRegionalErrorOnlyWhenAllFail(t *testing.T) {
	allFail := NewRegional([]Source{
		failSource("pib"), failSource("altnews"), failSource("boom"), failSource("factly"), failSource("vishvas"),
	}, testOptions())

	res := allFail.Fetch(context.Background(), "claim")
	require.True(t, res.Failed())
	assert.Empty(t, res.Items)
	assert.Contains(t, res.Error, "all 5 regional fact-checkers failed")
	for _, name := range []string{"pib", "altnews", "boom", "factly", "vishvas"} {
		assert.Contains(t, res.Error, name)
	}

	oneWorks := NewRegional([]Source{
		failSource("pib"), failSource("altnews"), failSource("boom"), failSource("factly"),
		okSource("vishvas", 0, "v1"),
	}, testOptions())

	res = oneWorks.Fetch(context.Background(), "claim")
	assert.False(t, res.Failed())
	assert.Len(t, res.Items, 1)
}

func TestRegionalSurvivesPanickingSite(t *testing.T) {
	broken := &fakeSource{name: "boom", panic: true}
	regional := NewRegional([]Source{okSource("pib", 0, "p1"), broken}, testOptions())

	var res evidence.SourceResult
	require.NotPanics(t, func() { res = regional.Fetch(context.Background(), "claim") })
	assert.False(t, res.Failed())
	assert.Len(t, res.Items, 1)
	assert.Equal(t, int32(1), broken.calls.Load())
}

func TestRegionalRunsSitesConcurrently(t *testing.T) {
	var srcs []Source
	for i := 0; i < 5; i++ {
		srcs = append(srcs, okSource(fmt.Sprintf("s%d", i), 100*time.Millisecond, "x"))
	}
	start := time.Now()
	res := NewRegional(srcs, testOptions()).Fetch(context.Background(), "claim")
	assert.Less(t, time.Since(start), 400*time.Millisecond)
	assert.Len(t, res.Items, 5)
}

func TestNewRegionalFromSitesSkipsDisabled(t *testing.T) {
	sites := DefaultRegionalSites()
	sites[2].Disabled = true
	regional := NewRegionalFromSites(sites, evidence.KeywordTable{}, testOptions())
	require.Len(t, regional.Sites(), 4)
	assert.Equal(t, "PIB Fact Check (Govt. of India)", regional.Sites()[0].Name())
}
