package report

import (
	"context"
	"fmt"
	"strings"

	"github.com/TobiSchelling/govpulse/internal/aggregate"
	"github.com/TobiSchelling/govpulse/internal/sentiment"
)

const (
	goodPositivePct     = 60
	moderatePositivePct = 40
	urgentNegativePct   = 30
	trainingPositivePct = 70

	maxInsights    = 5
	maxSamples     = 3
	maxSampleRunes = 100
)

var categoryRecommendations = map[sentiment.Category]string{
	sentiment.WaitingTime:       "Reduce waiting times by adding service windows during peak hours and introducing a queue management system.",
	sentiment.StaffBehavior:     "Address staff conduct through customer service standards, supervision, and a clear complaint escalation path.",
	sentiment.Corruption:        "Investigate reported corruption, strengthen oversight, and publish official service fees at every service point.",
	sentiment.FacilityCondition: "Improve facility conditions, including cleanliness, seating, and accessibility for visitors.",
	sentiment.ProcessComplexity: "Simplify service procedures, reduce required paperwork, and publish clear step-by-step guidance.",
}

// Deterministic fills fixed templates from the aggregation. It never fails.
type Deterministic struct{}

// NewDeterministic returns the template-based generator.
func NewDeterministic() *Deterministic { return &Deterministic{} }

// Name implements Generator.
func (d *Deterministic) Name() string { return "template" }

// Generate implements Generator.
func (d *Deterministic) Generate(_ context.Context, agg aggregate.Result, rc Context) (*Narrative, error) {
	return Assemble(agg, rc), nil
}

// Assemble builds the narrative for agg. Identical inputs give identical output.
func Assemble(agg aggregate.Result, rc Context) *Narrative {
	if agg.Total == 0 {
		return NoDataNarrative()
	}

	pos, neu, neg := agg.Percentages()
	var top, second *aggregate.IssueCount
	if len(agg.TopIssues) > 0 {
		top = &agg.TopIssues[0]
	}
	if len(agg.TopIssues) > 1 {
		second = &agg.TopIssues[1]
	}

	recommendations := buildRecommendations(top, second, pos, neg)
	return &Narrative{
		Summary:         buildSummary(agg, rc, top, pos, neu, neg),
		KeyInsights:     buildInsights(agg, top, second, pos, neg),
		Recommendations: recommendations,
		TrendAnalysis:   buildTrend(agg),
		FullAnalysis:    buildFullAnalysis(agg, rc, pos, neu, neg, recommendations),
	}
}

// NoDataNarrative is the fixed report for an empty aggregation.
func NoDataNarrative() *Narrative {
	return &Narrative{
		Summary: "No feedback data is available for the selected period, so sentiment analysis cannot be performed.",
		KeyInsights: []string{
			"No citizen feedback was submitted during this period.",
			"Sentiment trends cannot be identified without feedback data.",
		},
		Recommendations: []string{
			"Promote feedback channels at service points and online to increase citizen participation.",
			"Review the feedback collection process to ensure citizens can easily submit comments.",
		},
		TrendAnalysis: "Insufficient data to analyze sentiment trends.",
		FullAnalysis: "No feedback data was available for analysis in the selected period. " +
			"Increase feedback collection to enable meaningful sentiment analysis in future reports.",
	}
}

func buildSummary(agg aggregate.Result, rc Context, top *aggregate.IssueCount, pos, neu, neg int) string {
	s := fmt.Sprintf(
		"During %s, %s received %d feedback submissions. Sentiment analysis shows %d%% positive, %d%% neutral, and %d%% negative feedback.",
		orDefault(rc.DateRange, "the selected period"), orDefault(rc.OfficeName, "the office"), agg.Total, pos, neu, neg,
	)
	if top != nil {
		s += fmt.Sprintf(" The most frequently reported issue was %s.", strings.ToLower(top.Issue.Label()))
	}
	return s
}

func buildInsights(agg aggregate.Result, top, second *aggregate.IssueCount, pos, neg int) []string {
	var insights []string
	switch {
	case pos > goodPositivePct:
		insights = append(insights, fmt.Sprintf("Overall citizen satisfaction is good, with %d%% positive feedback.", pos))
	case pos > moderatePositivePct:
		insights = append(insights, fmt.Sprintf("Citizen satisfaction is moderate, with %d%% positive feedback.", pos))
	default:
		insights = append(insights, fmt.Sprintf("Citizen satisfaction is low, with only %d%% positive feedback.", pos))
	}
	if neg > 0 {
		insights = append(insights, fmt.Sprintf("%d%% of feedback expressed negative sentiment.", neg))
	}
	if top != nil {
		insights = append(insights, fmt.Sprintf("%s is the most reported issue, mentioned in %d%% of feedback.", top.Issue.Label(), top.Percentage))
	}
	if second != nil {
		insights = append(insights, fmt.Sprintf("%s is the second most reported issue at %d%%.", second.Issue.Label(), second.Percentage))
	}
	insights = append(insights, fmt.Sprintf("A total of %d feedback submissions were analyzed.", agg.Total))

	if len(insights) > maxInsights {
		insights = insights[:maxInsights]
	}
	return insights
}

func buildRecommendations(top, second *aggregate.IssueCount, pos, neg int) []string {
	var recs []string
	if top != nil {
		recs = append(recs, categoryRecommendation(top.Issue))
	}
	if second != nil {
		recs = append(recs, categoryRecommendation(second.Issue))
	}
	if neg > urgentNegativePct {
		recs = append(recs, "Implement immediate service improvement measures to address the high share of negative feedback.")
	}
	if pos < trainingPositivePct {
		recs = append(recs, "Provide customer service training for staff to raise citizen satisfaction.")
	}
	recs = append(recs, "Maintain and strengthen feedback mechanisms to monitor the impact of improvements.")
	return recs
}

func categoryRecommendation(c sentiment.Category) string {
	if r, ok := categoryRecommendations[c]; ok {
		return r
	}
	return fmt.Sprintf("Investigate and address reported %s issues.", strings.ToLower(c.Label()))
}

func buildTrend(agg aggregate.Result) string {
	p := agg.Counts[sentiment.Positive]
	n := agg.Counts[sentiment.Negative]
	s := fmt.Sprintf("The ratio of positive to negative feedback is %d:%d. ", p, n)
	switch {
	case p > n:
		s += "Positive sentiment outweighs negative sentiment, indicating generally favorable service experiences."
	case n > p:
		s += "Negative sentiment outweighs positive sentiment, indicating service areas that need attention."
	default:
		s += "Positive and negative sentiment are balanced."
	}
	return s
}

func buildFullAnalysis(agg aggregate.Result, rc Context, pos, neu, neg int, recs []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Sentiment analysis for %s covering %s.\n\n",
		orDefault(rc.OfficeName, "the office"), orDefault(rc.DateRange, "the selected period"))

	b.WriteString("Sentiment breakdown:\n")
	fmt.Fprintf(&b, "- Positive: %d (%d%%)\n", agg.Counts[sentiment.Positive], pos)
	fmt.Fprintf(&b, "- Neutral: %d (%d%%)\n", agg.Counts[sentiment.Neutral], neu)
	fmt.Fprintf(&b, "- Negative: %d (%d%%)\n", agg.Counts[sentiment.Negative], neg)

	b.WriteString("\nIdentified issues:\n")
	if len(agg.TopIssues) == 0 {
		b.WriteString("- No specific issues were identified.\n")
	}
	for i, issue := range agg.TopIssues {
		fmt.Fprintf(&b, "%d. %s: %d mentions (%d%%)\n", i+1, issue.Issue.Label(), issue.Count, issue.Percentage)
	}

	if len(rc.Samples) > 0 {
		b.WriteString("\nSample feedback:\n")
		for i, sample := range rc.Samples {
			if i >= maxSamples {
				break
			}
			fmt.Fprintf(&b, "- \"%s\"\n", Truncate(sample, maxSampleRunes))
		}
	}

	b.WriteString("\nRecommendations:\n")
	for i, r := range recs {
		fmt.Fprintf(&b, "%d. %s\n", i+1, r)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Truncate shortens s to at most limit characters, appending "..." when cut.
func Truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
