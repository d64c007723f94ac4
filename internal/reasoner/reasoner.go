// Package reasoner turns merged evidence into a suggested verdict. The
// verdict is always advisory: the reasoner reads evidence gathered by the
// sources and never fetches anything itself.
package reasoner

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/NullMeDev/factlens/internal/evidence"
	"github.com/NullMeDev/factlens/internal/logging"
)

// Reasoner produces an Analysis of claim given the merged evidence.
type Reasoner interface {
	Analyze(ctx context.Context, claim string, items []evidence.Item) (evidence.Analysis, error)
}

const noEvidenceReason = "No evidence found for this claim"

// Analyze calls r and always returns a usable Analysis. Errors and panics
// inside the reasoner become the default analysis with the error message
// as its only reasoning line.
func Analyze(ctx context.Context, r Reasoner, claim string, items []evidence.Item, log *logging.Logger) (a evidence.Analysis) {
	if log == nil {
		log = logging.Default()
	}

	defer func() {
		if rec := recover(); rec != nil {
			log.Error("Reasoner panicked: %v", rec)
			a = evidence.DefaultAnalysis(fmt.Sprintf("Error: reasoner panicked: %v", rec))
		}
	}()

	if r == nil {
		return evidence.DefaultAnalysis("Error: no reasoner configured")
	}

	out, err := r.Analyze(ctx, claim, items)
	if err != nil {
		log.Warning("Reasoner failed: %v", err)
		return evidence.DefaultAnalysis("Error: " + err.Error())
	}
	return sanitize(out)
}

// sanitize clamps confidence and fills missing fields.
func sanitize(a evidence.Analysis) evidence.Analysis {
	if a.VerdictSuggestion == "" {
		a.VerdictSuggestion = evidence.VerdictUnverified
	}
	switch {
	case a.Confidence < 0:
		a.Confidence = 0
	case a.Confidence > 1:
		a.Confidence = 1
	}
	if a.Reasoning == nil {
		a.Reasoning = []string{}
	}
	return a
}

// Offline is used when no model is configured. It reports what the
// sources found without suggesting a verdict.
type Offline struct{}

func (Offline) Analyze(ctx context.Context, claim string, items []evidence.Item) (evidence.Analysis, error) {
	if len(items) == 0 {
		return evidence.DefaultAnalysis(noEvidenceReason), nil
	}

	hints := map[evidence.Verdict]int{}
	sources := map[string]int{}
	for _, item := range items {
		if item.VerdictHint != "" {
			hints[item.VerdictHint]++
		}
		sources[item.SourceName]++
	}

	reasoning := []string{
		fmt.Sprintf("Collected %d evidence items from %d sources", len(items), len(sources)),
	}
	if len(hints) > 0 {
		keys := make([]string, 0, len(hints))
		for v := range hints {
			keys = append(keys, string(v))
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%d", k, hints[evidence.Verdict(k)]))
		}
		reasoning = append(reasoning, "Fact-checker title hints: "+strings.Join(parts, ", "))
	}
	reasoning = append(reasoning, "No reasoning model configured; verdict left unverified")

	return evidence.Analysis{
		VerdictSuggestion: evidence.VerdictUnverified,
		Confidence:        0,
		Reasoning:         reasoning,
	}, nil
}
