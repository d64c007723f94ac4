package sources

import (
	"context"
	"net/url"
	"strconv"

	"github.com/NullMeDev/factlens/internal/apperror"
	"github.com/NullMeDev/factlens/internal/evidence"
)

const (
	DefaultWebSearchEndpoint = "https://www.googleapis.com/customsearch/v1"
	webSearchLimit           = 5
)

// WebSearch queries the Google Custom Search JSON API.
type WebSearch struct {
	APIKey   string
	EngineID string
	Endpoint string
	opts     Options
}

type customSearchResponse struct {
	Items []struct {
		Title       string `json:"title"`
		Snippet     string `json:"snippet"`
		Link        string `json:"link"`
		DisplayLink string `json:"displayLink"`
	} `json:"items"`
}

// NewWebSearch creates the web search source. Without a key or engine id
// every fetch fails immediately without a request.
func NewWebSearch(apiKey, engineID string, opts Options) *WebSearch {
	return &WebSearch{
		APIKey:   apiKey,
		EngineID: engineID,
		Endpoint: DefaultWebSearchEndpoint,
		opts:     opts,
	}
}

func (w *WebSearch) Name() string { return "Google Search" }

func (w *WebSearch) Fetch(ctx context.Context, claim string) evidence.SourceResult {
	return guard(ctx, "web_search", claim, w.opts, func(ctx context.Context) ([]evidence.Item, error) {
		if w.APIKey == "" || w.EngineID == "" {
			return nil, apperror.NewSourceError(apperror.ErrSourceCredential, "web_search", "No API key", nil)
		}

		params := url.Values{}
		params.Set("key", w.APIKey)
		params.Set("cx", w.EngineID)
		params.Set("q", claim)
		params.Set("num", strconv.Itoa(webSearchLimit))

		var body customSearchResponse
		if err := getJSON(ctx, w.Endpoint+"?"+params.Encode(), "web_search", w.opts, &body); err != nil {
			return nil, err
		}

		items := make([]evidence.Item, 0, webSearchLimit)
		for _, r := range body.Items {
			if len(items) >= webSearchLimit {
				break
			}
			items = append(items, evidence.Item{
				Title:       evidence.CollapseSpace(r.Title),
				Snippet:     evidence.CollapseSpace(r.Snippet),
				URL:         r.Link,
				SourceName:  w.Name(),
				Credibility: evidence.CredibilityMedium,
				DisplayLink: r.DisplayLink,
			})
		}
		return items, nil
	})
}
