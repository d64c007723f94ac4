package sources

import (
	"context"
	"net/url"

	"github.com/PuerkitoBio/goquery"

	"github.com/NullMeDev/factlens/internal/evidence"
)

const (
	DefaultDuckDuckGoEndpoint = "https://html.duckduckgo.com/html/"
	scraperLimit              = 5
)

// DuckDuckGo scrapes the DuckDuckGo HTML results page. It needs no
// credentials.
type DuckDuckGo struct {
	Endpoint string
	opts     Options
}

func NewDuckDuckGo(opts Options) *DuckDuckGo {
	return &DuckDuckGo{Endpoint: DefaultDuckDuckGoEndpoint, opts: opts}
}

func (d *DuckDuckGo) Name() string { return "DuckDuckGo" }

func (d *DuckDuckGo) Fetch(ctx context.Context, claim string) evidence.SourceResult {
	query := claim + " news fact check"
	return guard(ctx, "web_scraper", query, d.opts, func(ctx context.Context) ([]evidence.Item, error) {
		target := d.Endpoint + "?q=" + url.QueryEscape(query)
		doc, err := getDocument(ctx, target, "web_scraper", d.opts)
		if err != nil {
			return nil, err
		}

		items := make([]evidence.Item, 0, scraperLimit)
		doc.Find("div.result").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			if len(items) >= scraperLimit {
				return false
			}
			anchor := sel.Find("a.result__a").First()
			if anchor.Length() == 0 {
				return true
			}
			href, _ := anchor.Attr("href")

			items = append(items, evidence.Item{
				Title:       evidence.CollapseSpace(anchor.Text()),
				Snippet:     evidence.Snippet(sel.Find("a.result__snippet").First().Text()),
				URL:         unwrapRedirect(evidence.AbsoluteURL(target, href)),
				SourceName:  d.Name(),
				Credibility: evidence.CredibilityMedium,
				DisplayLink: evidence.CollapseSpace(sel.Find("a.result__url").First().Text()),
			})
			return true
		})
		return items, nil
	})
}

// unwrapRedirect turns a DuckDuckGo /l/?uddg= link into its target.
func unwrapRedirect(link string) string {
	u, err := url.Parse(link)
	if err != nil || u.Path != "/l/" {
		return link
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return link
}
