package sources

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/NullMeDev/factlens/internal/apperror"
	"github.com/NullMeDev/factlens/internal/evidence"
	"github.com/NullMeDev/factlens/internal/fanout"
)

const (
	FormatHTML = "html"
	FormatRSS  = "rss"

	defaultSiteLimit = 3
)

// RegionalSite describes how to search and scrape one fact-checking site.
// SearchURL may contain {query}; without it the page is fetched as is and
// its latest entries are used.
type RegionalSite struct {
	Key             string               `yaml:"key" json:"key"`
	Name            string               `yaml:"name" json:"name"`
	SearchURL       string               `yaml:"search_url" json:"search_url"`
	QueryJoiner     string               `yaml:"query_joiner" json:"query_joiner,omitempty"`
	Format          string               `yaml:"format" json:"format,omitempty"`
	ItemSelector    string               `yaml:"item_selector" json:"item_selector,omitempty"`
	TitleSelector   string               `yaml:"title_selector" json:"title_selector,omitempty"`
	LinkSelector    string               `yaml:"link_selector" json:"link_selector,omitempty"`
	SnippetSelector string               `yaml:"snippet_selector" json:"snippet_selector,omitempty"`
	BaseURL         string               `yaml:"base_url" json:"base_url,omitempty"`
	Credibility     evidence.Credibility `yaml:"credibility" json:"credibility"`
	Limit           int                  `yaml:"limit" json:"limit,omitempty"`
	Disabled        bool                 `yaml:"disabled" json:"disabled,omitempty"`
}

// DefaultRegionalSites returns the built-in site catalogue in priority order.
func DefaultRegionalSites() []RegionalSite {
	return []RegionalSite{
		{
			Key:             "pib_factcheck",
			Name:            "PIB Fact Check (Govt. of India)",
			SearchURL:       "https://factcheck.pib.gov.in/",
			ItemSelector:    "article.post",
			TitleSelector:   "h2.entry-title",
			LinkSelector:    "h2.entry-title a",
			SnippetSelector: "div.entry-content",
			BaseURL:         "https://factcheck.pib.gov.in",
			Credibility:     evidence.CredibilityHigh,
		},
		{
			Key:             "altnews",
			Name:            "Alt News",
			SearchURL:       "https://www.altnews.in/?s={query}",
			ItemSelector:    "article",
			TitleSelector:   "h3.entry-title",
			LinkSelector:    "h3.entry-title a",
			SnippetSelector: "div.entry-content",
			BaseURL:         "https://www.altnews.in",
			Credibility:     evidence.CredibilityHigh,
		},
		{
			Key:             "boom",
			Name:            "BOOM Live",
			SearchURL:       "https://www.boomlive.in/?s={query}",
			QueryJoiner:     "%20",
			ItemSelector:    "div.story-card",
			TitleSelector:   "h2.story-card__title",
			LinkSelector:    "a.story-card__url",
			SnippetSelector: "p.story-card__description",
			BaseURL:         "https://www.boomlive.in",
			Credibility:     evidence.CredibilityHigh,
		},
		{
			Key:             "factly",
			Name:            "Factly",
			SearchURL:       "https://factly.in/?s={query}",
			ItemSelector:    "article",
			TitleSelector:   "h2.entry-title",
			LinkSelector:    "h2.entry-title a",
			SnippetSelector: "div.entry-summary",
			BaseURL:         "https://factly.in",
			Credibility:     evidence.CredibilityMedium,
		},
		{
			Key:             "vishvas",
			Name:            "Vishvas News (PIB)",
			SearchURL:       "https://www.vishvasnews.com/?s={query}",
			ItemSelector:    "article",
			TitleSelector:   "h2",
			LinkSelector:    "h2 a",
			SnippetSelector: "div.entry-content",
			BaseURL:         "https://www.vishvasnews.com",
			Credibility:     evidence.CredibilityHigh,
		},
	}
}

// Validate checks that the site can be scraped.
func (s RegionalSite) Validate() error {
	if s.Key == "" || s.Name == "" {
		return fmt.Errorf("regional site needs both key and name")
	}
	if _, err := url.Parse(s.SearchURL); err != nil || s.SearchURL == "" {
		return fmt.Errorf("regional site %s: invalid search_url %q", s.Key, s.SearchURL)
	}
	switch s.format() {
	case FormatHTML:
		if s.ItemSelector == "" || s.TitleSelector == "" {
			return fmt.Errorf("regional site %s: item_selector and title_selector are required", s.Key)
		}
	case FormatRSS:
	default:
		return fmt.Errorf("regional site %s: unknown format %q", s.Key, s.Format)
	}
	return nil
}

func (s RegionalSite) format() string {
	if s.Format == "" {
		return FormatHTML
	}
	return strings.ToLower(s.Format)
}

func (s RegionalSite) limit() int {
	if s.Limit <= 0 {
		return defaultSiteLimit
	}
	return s.Limit
}

func (s RegionalSite) credibility() evidence.Credibility {
	if s.Credibility == "" {
		return evidence.CredibilityMedium
	}
	return s.Credibility
}

// QueryURL fills the claim into SearchURL.
func (s RegionalSite) QueryURL(claim string) string {
	if !strings.Contains(s.SearchURL, "{query}") {
		return s.SearchURL
	}
	words := strings.Fields(claim)
	for i, w := range words {
		words[i] = url.QueryEscape(w)
	}
	joiner := s.QueryJoiner
	if joiner == "" {
		joiner = "+"
	}
	return strings.ReplaceAll(s.SearchURL, "{query}", strings.Join(words, joiner))
}

// SiteScraper is the Source for one RegionalSite.
type SiteScraper struct {
	site     RegionalSite
	keywords evidence.KeywordTable
	opts     Options
}

// NewSiteScraper creates a scraper for site. An empty keyword table falls
// back to the built-in one.
func NewSiteScraper(site RegionalSite, keywords evidence.KeywordTable, opts Options) *SiteScraper {
	if keywords.IsZero() {
		keywords = evidence.DefaultKeywords()
	}
	return &SiteScraper{site: site, keywords: keywords, opts: opts}
}

func (s *SiteScraper) Name() string { return s.site.Name }

// Key returns the machine name of the site.
func (s *SiteScraper) Key() string { return s.site.Key }

// Fetch scrapes the site for claim.
func (s *SiteScraper) Fetch(ctx context.Context, claim string) evidence.SourceResult {
	target := s.site.QueryURL(claim)
	return guard(ctx, s.site.Key, target, s.opts, func(ctx context.Context) ([]evidence.Item, error) {
		if s.site.format() == FormatRSS {
			return s.fetchFeed(ctx, target)
		}
		return s.fetchPage(ctx, target)
	})
}

func (s *SiteScraper) fetchPage(ctx context.Context, target string) ([]evidence.Item, error) {
	doc, err := getDocument(ctx, target, s.site.Key, s.opts)
	if err != nil {
		return nil, err
	}

	base := s.site.BaseURL
	if base == "" {
		base = target
	}

	items := make([]evidence.Item, 0, s.site.limit())
	seen := 0
	doc.Find(s.site.ItemSelector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if seen >= s.site.limit() {
			return false
		}
		seen++

		title := evidence.CollapseSpace(sel.Find(s.site.TitleSelector).First().Text())
		linkSel := s.site.LinkSelector
		if linkSel == "" {
			linkSel = "a"
		}
		href, ok := sel.Find(linkSel).First().Attr("href")
		if title == "" || !ok {
			return true
		}
		link := evidence.AbsoluteURL(base, href)
		if link == "" {
			return true
		}

		var snippet string
		if s.site.SnippetSelector != "" {
			snippet = evidence.Snippet(sel.Find(s.site.SnippetSelector).First().Text())
		}

		items = append(items, s.item(title, snippet, link, ""))
		return true
	})
	return items, nil
}

func (s *SiteScraper) fetchFeed(ctx context.Context, target string) ([]evidence.Item, error) {
	req, err := newGet(ctx, target)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml")

	resp, err := do(req, s.site.Key, s.opts)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	feed, err := gofeed.NewParser().Parse(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, apperror.NewSourceError(apperror.ErrSourceParse, s.site.Key, "parse feed", err)
	}

	base := s.site.BaseURL
	if base == "" {
		base = feed.Link
	}

	items := make([]evidence.Item, 0, s.site.limit())
	for _, entry := range feed.Items {
		if len(items) >= s.site.limit() {
			break
		}
		title := evidence.CollapseSpace(entry.Title)
		link := evidence.AbsoluteURL(base, entry.Link)
		if title == "" || link == "" {
			continue
		}
		items = append(items, s.item(title, evidence.Snippet(stripTags(entry.Description)), link, entry.Published))
	}
	return items, nil
}

func (s *SiteScraper) item(title, snippet, link, published string) evidence.Item {
	return evidence.Item{
		Title:       title,
		Snippet:     snippet,
		URL:         link,
		SourceName:  s.site.Name,
		VerdictHint: s.keywords.Infer(title),
		Credibility: s.site.credibility(),
		PublishedAt: published,
	}
}

// stripTags returns the text content of an HTML fragment.
func stripTags(fragment string) string {
	if !strings.Contains(fragment, "<") {
		return fragment
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}
	return doc.Text()
}

// Regional queries every configured site at once and reports them as a
// single source.
type Regional struct {
	sites []Source
	opts  Options
}

// NewRegional creates the fan-out over sites, which keep their order in
// the combined result.
func NewRegional(sites []Source, opts Options) *Regional {
	return &Regional{sites: sites, opts: opts}
}

// NewRegionalFromSites builds scrapers for every enabled site.
func NewRegionalFromSites(sites []RegionalSite, keywords evidence.KeywordTable, opts Options) *Regional {
	srcs := make([]Source, 0, len(sites))
	for _, site := range sites {
		if site.Disabled {
			continue
		}
		srcs = append(srcs, NewSiteScraper(site, keywords, opts))
	}
	return NewRegional(srcs, opts)
}

func (r *Regional) Name() string { return "Regional fact-checkers" }

// Sites returns the underlying site sources.
func (r *Regional) Sites() []Source { return r.sites }

// Fetch queries all sites concurrently. The combined error is set only
// when every site failed.
func (r *Regional) Fetch(ctx context.Context, claim string) evidence.SourceResult {
	results := make([]evidence.SourceResult, len(r.sites))

	tasks := make([]fanout.Task, len(r.sites))
	for i, src := range r.sites {
		i, src := i, src
		tasks[i] = fanout.Task{
			Name: src.Name(),
			Run: func(ctx context.Context) {
				results[i] = src.Fetch(ctx, claim)
			},
			OnPanic: func(err error) {
				results[i] = evidence.Failure(src.Name(), err.Error())
			},
		}
	}
	fanout.Join(ctx, tasks...)

	return combineRegional(results, r.opts)
}

func combineRegional(results []evidence.SourceResult, opts Options) evidence.SourceResult {
	combined := evidence.Empty("regional")

	var failures []string
	for _, res := range results {
		if res.Failed() {
			failures = append(failures, fmt.Sprintf("%s: %s", res.Source, res.Error))
		}
		combined.Items = append(combined.Items, res.Items...)
	}

	if len(results) > 0 && len(failures) == len(results) {
		combined.Error = fmt.Sprintf("all %d regional fact-checkers failed: %s", len(results), strings.Join(failures, "; "))
		opts.logger().Warning("Regional fan-out: %s", combined.Error)
	} else {
		opts.logger().Info("Regional fan-out: %d items from %d sites (%d failed)", len(combined.Items), len(results), len(failures))
	}
	return combined
}
