package sources

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/NullMeDev/factlens/internal/apperror"
	"github.com/NullMeDev/factlens/internal/evidence"
)

const (
	DefaultNewsAPIEndpoint = "https://newsapi.org/v2/everything"
	newsLimit              = 5
)

// NewsAPI searches recent articles on newsapi.org.
type NewsAPI struct {
	APIKey   string
	Endpoint string
	opts     Options
}

type newsAPIResponse struct {
	Status   string `json:"status"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Articles []struct {
		Source struct {
			Name string `json:"name"`
		} `json:"source"`
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
		PublishedAt string `json:"publishedAt"`
	} `json:"articles"`
}

// NewNewsAPI creates the news source. Without a key every fetch fails
// immediately without a request.
func NewNewsAPI(apiKey string, opts Options) *NewsAPI {
	return &NewsAPI{APIKey: apiKey, Endpoint: DefaultNewsAPIEndpoint, opts: opts}
}

func (n *NewsAPI) Name() string { return "NewsAPI" }

// NewsQuery joins the words of claim with AND.
func NewsQuery(claim string) string {
	return strings.Join(strings.Fields(claim), " AND ")
}

func (n *NewsAPI) Fetch(ctx context.Context, claim string) evidence.SourceResult {
	query := NewsQuery(claim)
	return guard(ctx, "news_api", query, n.opts, func(ctx context.Context) ([]evidence.Item, error) {
		if n.APIKey == "" {
			return nil, apperror.NewSourceError(apperror.ErrSourceCredential, "news_api", "No API key", nil)
		}

		params := url.Values{}
		params.Set("q", query)
		params.Set("language", "en")
		params.Set("sortBy", "publishedAt")
		params.Set("pageSize", strconv.Itoa(newsLimit))

		req, err := newGet(ctx, n.Endpoint+"?"+params.Encode())
		if err != nil {
			return nil, err
		}
		req.Header.Set("X-Api-Key", n.APIKey)

		var body newsAPIResponse
		if err := decodeJSON(req, "news_api", n.opts, &body); err != nil {
			return nil, err
		}
		if body.Status == "error" {
			return nil, apperror.NewSourceError(apperror.ErrSourceParse, "news_api",
				fmt.Sprintf("newsapi error %s: %s", body.Code, body.Message), nil)
		}

		items := make([]evidence.Item, 0, newsLimit)
		for _, a := range body.Articles {
			if len(items) >= newsLimit {
				break
			}
			items = append(items, evidence.Item{
				Title:       evidence.CollapseSpace(a.Title),
				Snippet:     evidence.CollapseSpace(a.Description),
				URL:         a.URL,
				SourceName:  n.Name(),
				Credibility: evidence.CredibilityMedium,
				DisplayLink: a.Source.Name,
				PublishedAt: a.PublishedAt,
			})
		}
		return items, nil
	})
}
