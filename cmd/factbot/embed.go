package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/NullMeDev/factlens/internal/evidence"
)

// Embed colors per verdict
const (
	ColorFalse      = 0xE74C3C
	ColorTrue       = 0x2ECC71
	ColorMisleading = 0xF39C12
	ColorUnverified = 0x95A5A6

	maxFieldLength   = 1024
	maxEvidenceLinks = 5
	maxReviews       = 3
)

func verdictColor(v evidence.Verdict) int {
	switch v {
	case evidence.VerdictFalse:
		return ColorFalse
	case evidence.VerdictTrue:
		return ColorTrue
	case evidence.VerdictMisleading:
		return ColorMisleading
	}
	return ColorUnverified
}

// BuildVerdictEmbed renders a verification record for Discord.
func BuildVerdictEmbed(rec *evidence.Record) *discordgo.MessageEmbed {
	analysis := rec.AIAnalysis
	sum := rec.Summary

	embed := &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("🔎 Verdict: %s", analysis.VerdictSuggestion),
		Description: evidence.Truncate(rec.OriginalClaim, 300),
		Color:       verdictColor(analysis.VerdictSuggestion),
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "Confidence",
				Value:  fmt.Sprintf("%.0f%%", analysis.Confidence*100),
				Inline: true,
			},
			{
				Name: "Evidence",
				Value: fmt.Sprintf("Regional %d · Web %d · Scraper %d · News %d",
					sum.RegionalCount, sum.WebSearchCount, sum.ScraperCount, sum.NewsCount),
				Inline: true,
			},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("factlens · %d sources · %s", sum.TotalSources, rec.Duration.Round(100*time.Millisecond)),
		},
	}
	if !rec.CheckedAt.IsZero() {
		embed.Timestamp = rec.CheckedAt.Format(time.RFC3339)
	}

	if len(analysis.Reasoning) > 0 {
		lines := analysis.Reasoning
		if len(lines) > 3 {
			lines = lines[:3]
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Reasoning",
			Value: fieldValue("• " + strings.Join(lines, "\n• ")),
		})
	}

	if reviews := reviewLines(rec.FactCheck); reviews != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Published fact-checks",
			Value: fieldValue(reviews),
		})
	}

	if links := evidenceLines(rec.MergedEvidence); links != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Top evidence",
			Value: fieldValue(links),
		})
	}

	if rec.Error != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Error",
			Value: fieldValue(rec.Error),
		})
	}
	return embed
}

func reviewLines(fc evidence.ClaimReviewResult) string {
	var lines []string
	for _, c := range fc.Claims {
		for _, r := range c.Reviews {
			if len(lines) >= maxReviews {
				break
			}
			line := fmt.Sprintf("**%s**: %s", r.Publisher, r.Rating)
			if r.URL != "" {
				line += fmt.Sprintf(" ([link](%s))", r.URL)
			}
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

func evidenceLines(items []evidence.Item) string {
	var lines []string
	for _, item := range items {
		if len(lines) >= maxEvidenceLinks {
			break
		}
		title := evidence.Truncate(item.Title, 80)
		if item.URL != "" {
			title = fmt.Sprintf("[%s](%s)", title, item.URL)
		}
		line := fmt.Sprintf("%s (%s)", title, item.SourceName)
		if item.VerdictHint != "" && item.VerdictHint != evidence.VerdictUnverified {
			line += " `" + string(item.VerdictHint) + "`"
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func fieldValue(s string) string {
	return evidence.Truncate(s, maxFieldLength)
}
