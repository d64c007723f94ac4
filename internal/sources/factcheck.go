package sources

import (
	"context"
	"net/url"
	"strconv"

	"github.com/NullMeDev/factlens/internal/apperror"
	"github.com/NullMeDev/factlens/internal/evidence"
)

const DefaultFactCheckEndpoint = "https://factchecktools.googleapis.com/v1alpha1/claims:search"

// FactCheckIndex queries the Google Fact Check Tools claim search. Its
// reviews are kept apart from the merged evidence.
type FactCheckIndex struct {
	APIKey   string
	Endpoint string
	PageSize int
	opts     Options
}

type claimSearchResponse struct {
	Claims []struct {
		Text        string `json:"text"`
		Claimant    string `json:"claimant"`
		ClaimDate   string `json:"claimDate"`
		ClaimReview []struct {
			Publisher struct {
				Name string `json:"name"`
				Site string `json:"site"`
			} `json:"publisher"`
			URL           string `json:"url"`
			Title         string `json:"title"`
			ReviewDate    string `json:"reviewDate"`
			TextualRating string `json:"textualRating"`
			LanguageCode  string `json:"languageCode"`
		} `json:"claimReview"`
	} `json:"claims"`
}

func NewFactCheckIndex(apiKey string, opts Options) *FactCheckIndex {
	return &FactCheckIndex{
		APIKey:   apiKey,
		Endpoint: DefaultFactCheckEndpoint,
		PageSize: 10,
		opts:     opts,
	}
}

func (f *FactCheckIndex) Name() string { return "Google Fact Check" }

// Search looks up published reviews of claim. Like Fetch on the other
// sources it never fails; errors are carried in the result.
func (f *FactCheckIndex) Search(ctx context.Context, claim string) evidence.ClaimReviewResult {
	claims := []evidence.ClaimReview{}

	res := guard(ctx, "fact_check", claim, f.opts, func(ctx context.Context) ([]evidence.Item, error) {
		if f.APIKey == "" {
			return nil, apperror.NewSourceError(apperror.ErrSourceCredential, "fact_check", "No API key", nil)
		}

		params := url.Values{}
		params.Set("query", claim)
		params.Set("key", f.APIKey)
		if f.PageSize > 0 {
			params.Set("pageSize", strconv.Itoa(f.PageSize))
		}

		var body claimSearchResponse
		if err := getJSON(ctx, f.Endpoint+"?"+params.Encode(), "fact_check", f.opts, &body); err != nil {
			return nil, err
		}

		for _, c := range body.Claims {
			cr := evidence.ClaimReview{
				Text:      c.Text,
				Claimant:  c.Claimant,
				ClaimDate: c.ClaimDate,
				Reviews:   make([]evidence.Review, 0, len(c.ClaimReview)),
			}
			for _, r := range c.ClaimReview {
				cr.Reviews = append(cr.Reviews, evidence.Review{
					Publisher:  r.Publisher.Name,
					Site:       r.Publisher.Site,
					URL:        r.URL,
					Title:      r.Title,
					Rating:     r.TextualRating,
					ReviewDate: r.ReviewDate,
					Language:   r.LanguageCode,
				})
			}
			claims = append(claims, cr)
		}
		return nil, nil
	})

	if res.Failed() {
		return evidence.ClaimReviewResult{Query: claim, Claims: []evidence.ClaimReview{}, Error: res.Error}
	}
	return evidence.ClaimReviewResult{Query: claim, Claims: claims}
}

// Fetch reports the reviews as evidence items so the index can be probed
// like any other source.
func (f *FactCheckIndex) Fetch(ctx context.Context, claim string) evidence.SourceResult {
	found := f.Search(ctx, claim)
	if found.Error != "" {
		res := evidence.Failure("fact_check", found.Error)
		res.Query = claim
		return res
	}

	res := evidence.Empty("fact_check")
	res.Query = claim
	for _, c := range found.Claims {
		for _, r := range c.Reviews {
			res.Items = append(res.Items, evidence.Item{
				Title:       r.Title,
				Snippet:     c.Text,
				URL:         r.URL,
				SourceName:  f.Name(),
				VerdictHint: evidence.ParseVerdict(r.Rating),
				Credibility: evidence.CredibilityHigh,
				DisplayLink: r.Publisher,
			})
		}
	}
	return res
}
