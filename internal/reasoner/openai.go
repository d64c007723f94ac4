package reasoner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/NullMeDev/factlens/internal/apperror"
	"github.com/NullMeDev/factlens/internal/evidence"
)

const (
	DefaultModel = "gpt-4o-mini"

	// maxPromptItems caps how much evidence goes into one prompt.
	maxPromptItems = 15
)

const systemPrompt = `You are a fact-checking assistant. You are given a claim and evidence gathered from
fact-checking organisations, web search and news articles. Judge the claim only from that evidence.

Respond with a JSON object:
{
  "verdict_suggestion": "TRUE|FALSE|MISLEADING|UNVERIFIED",
  "confidence": 0.0-1.0,
  "reasoning": ["short point", "..."],
  "key_sources": ["url", "..."]
}

Prefer high-credibility fact-checkers when sources disagree. If the evidence does not address the
claim, answer UNVERIFIED with low confidence. Only respond with the JSON object.`

// OpenAI asks an OpenAI-compatible chat completion API for an analysis.
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI creates the reasoner. baseURL may be empty for the public API.
func NewOpenAI(apiKey, baseURL, model string) *OpenAI {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if model == "" {
		model = DefaultModel
	}
	return &OpenAI{client: openai.NewClientWithConfig(cfg), model: model}
}

type modelAnswer struct {
	Verdict    string          `json:"verdict_suggestion"`
	Confidence float64         `json:"confidence"`
	Reasoning  json.RawMessage `json:"reasoning"`
	KeySources []string        `json:"key_sources"`
}

func (o *OpenAI) Analyze(ctx context.Context, claim string, items []evidence.Item) (evidence.Analysis, error) {
	if len(items) == 0 {
		return evidence.DefaultAnalysis(noEvidenceReason), nil
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: BuildPrompt(claim, items)},
		},
		Temperature: 0.2,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return evidence.Analysis{}, apperror.NewAIError(apperror.ErrAIRequest, "chat completion failed", err)
	}
	if len(resp.Choices) == 0 {
		return evidence.Analysis{}, apperror.NewAIError(apperror.ErrAIResponse, "model returned no choices", nil)
	}

	return parseAnswer(resp.Choices[0].Message.Content)
}

// BuildPrompt renders the claim and up to fifteen evidence items.
func BuildPrompt(claim string, items []evidence.Item) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Claim: %s\n\nEvidence:\n", claim)

	for i, item := range items {
		if i >= maxPromptItems {
			fmt.Fprintf(&b, "\n(%d more items omitted)\n", len(items)-maxPromptItems)
			break
		}
		fmt.Fprintf(&b, "\n[%d] %s (%s credibility)\n", i+1, item.SourceName, item.Credibility)
		if item.VerdictHint != "" {
			fmt.Fprintf(&b, "Title hint: %s\n", item.VerdictHint)
		}
		fmt.Fprintf(&b, "Title: %s\nURL: %s\n", item.Title, item.URL)
		if item.Snippet != "" {
			fmt.Fprintf(&b, "Text: %s\n", item.Snippet)
		}
	}
	return b.String()
}

func parseAnswer(content string) (evidence.Analysis, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var ans modelAnswer
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &ans); err != nil {
		return evidence.Analysis{}, apperror.NewAIError(apperror.ErrAIResponse, "failed to parse model response", err)
	}

	return sanitize(evidence.Analysis{
		VerdictSuggestion: evidence.ParseVerdict(ans.Verdict),
		Confidence:        ans.Confidence,
		Reasoning:         reasoningLines(ans.Reasoning),
		KeySources:        ans.KeySources,
	}), nil
}

// reasoningLines accepts either a list of strings or a single string.
func reasoningLines(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return []string{}
	}
	var lines []string
	if err := json.Unmarshal(raw, &lines); err == nil {
		return lines
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil && single != "" {
		return []string{single}
	}
	return []string{}
}
