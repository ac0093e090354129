package report

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/TobiSchelling/govpulse/internal/aggregate"
	"github.com/TobiSchelling/govpulse/internal/llm"
	"github.com/TobiSchelling/govpulse/internal/sentiment"
)

const reportPrompt = `You are an analyst writing a citizen feedback report for a government office.

Office: %s
Period: %s
Total feedback: %d
Sentiment: %d%% positive, %d%% neutral, %d%% negative (counts %d / %d / %d)
Most reported issues:
%s
Sample comments:
%s

Write a concise, factual report for office managers. Do not invent numbers that are not listed above.

Respond with ONLY this JSON:
{
    "summary": "One paragraph overview",
    "key_insights": ["2 to 5 short insights"],
    "recommendations": ["Concrete actions, most important first"],
    "trend_analysis": "One paragraph on the balance of positive and negative feedback",
    "full_analysis": "A longer analysis covering sentiment, issues, and recommendations"
}`

const defaultReportTokens = 1024

// AIGenerator asks an LLM provider to write the narrative.
type AIGenerator struct {
	provider  llm.Provider
	maxTokens int
}

// NewAIGenerator creates a generator backed by provider.
func NewAIGenerator(provider llm.Provider, maxTokens int) *AIGenerator {
	if maxTokens <= 0 {
		maxTokens = defaultReportTokens
	}
	return &AIGenerator{provider: provider, maxTokens: maxTokens}
}

// Name implements Generator.
func (g *AIGenerator) Name() string { return "ai:" + g.provider.Name() }

// Generate implements Generator.
func (g *AIGenerator) Generate(ctx context.Context, agg aggregate.Result, rc Context) (*Narrative, error) {
	responseText, err := g.provider.Generate(ctx, buildPrompt(agg, rc), g.maxTokens)
	if err != nil {
		return nil, fmt.Errorf("generating report: %w", err)
	}

	parsed := llm.ParseJSONResponse(responseText)
	if parsed == nil {
		return nil, errors.New("report response is not valid JSON")
	}

	n := &Narrative{
		Summary:         llm.String(parsed, "summary", ""),
		KeyInsights:     llm.Strings(parsed, "key_insights"),
		Recommendations: llm.Strings(parsed, "recommendations"),
		TrendAnalysis:   llm.String(parsed, "trend_analysis", ""),
		FullAnalysis:    llm.String(parsed, "full_analysis", ""),
	}
	if n.Summary == "" || len(n.KeyInsights) == 0 || len(n.Recommendations) == 0 {
		return nil, errors.New("report response is missing required fields")
	}
	if len(n.KeyInsights) > maxInsights {
		n.KeyInsights = n.KeyInsights[:maxInsights]
	}
	if n.FullAnalysis == "" {
		n.FullAnalysis = n.Summary
	}
	return n, nil
}

func buildPrompt(agg aggregate.Result, rc Context) string {
	pos, neu, neg := agg.Percentages()

	var issues []string
	for _, is := range agg.TopIssues {
		issues = append(issues, fmt.Sprintf("- %s: %d (%d%%)", is.Issue.Label(), is.Count, is.Percentage))
	}
	if len(issues) == 0 {
		issues = append(issues, "- None identified")
	}

	var samples []string
	for i, s := range rc.Samples {
		if i >= maxSamples {
			break
		}
		samples = append(samples, "- "+Truncate(s, maxSampleRunes))
	}
	if len(samples) == 0 {
		samples = append(samples, "- None provided")
	}

	return fmt.Sprintf(reportPrompt,
		orDefault(rc.OfficeName, "Unknown office"), orDefault(rc.DateRange, "Unspecified"),
		agg.Total, pos, neu, neg,
		agg.Counts[sentiment.Positive], agg.Counts[sentiment.Neutral], agg.Counts[sentiment.Negative],
		strings.Join(issues, "\n"), strings.Join(samples, "\n"),
	)
}
