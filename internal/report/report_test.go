package report

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/govpulse/internal/aggregate"
	"github.com/TobiSchelling/govpulse/internal/sentiment"
)

type mockProvider struct {
	response string
	err      error
	calls    int
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) Generate(_ context.Context, _ string, _ int) (string, error) {
	m.calls++
	return m.response, m.err
}

func (m *mockProvider) IsConfigured() bool { return true }

func sampleAggregation() aggregate.Result {
	return aggregate.Result{
		Counts: map[sentiment.Sentiment]int{
			sentiment.Positive: 6,
			sentiment.Negative: 3,
			sentiment.Neutral:  1,
		},
		Total: 10,
		TopIssues: []aggregate.IssueCount{
			{Issue: sentiment.WaitingTime, Count: 4, Percentage: 40},
			{Issue: sentiment.StaffBehavior, Count: 2, Percentage: 20},
		},
	}
}

func sampleContext() Context {
	return Context{OfficeName: "Bole Sub-City Office", DateRange: "Feb 01 - Feb 07, 2026"}
}

func allText(n *Narrative) string {
	parts := []string{n.Summary, n.TrendAnalysis, n.FullAnalysis}
	parts = append(parts, n.KeyInsights...)
	parts = append(parts, n.Recommendations...)
	return strings.Join(parts, "\n")
}

func TestAssembleNoData(t *testing.T) {
	empty := aggregate.Aggregate(nil)
	n := Assemble(empty, Context{OfficeName: "Anything", DateRange: "whenever", Samples: []string{"x"}})

	assert.Equal(t, NoDataNarrative(), n)
	assert.Contains(t, n.Summary, "No feedback data")
	assert.GreaterOrEqual(t, len(n.KeyInsights), 1)
	assert.NotContains(t, allText(n), "NaN")
	assert.NotContains(t, allText(n), "Inf")
}

func TestAssembleSummary(t *testing.T) {
	n := Assemble(sampleAggregation(), sampleContext())
	assert.Contains(t, n.Summary, "Bole Sub-City Office")
	assert.Contains(t, n.Summary, "Feb 01 - Feb 07, 2026")
	assert.Contains(t, n.Summary, "10 feedback submissions")
	assert.Contains(t, n.Summary, "60% positive, 10% neutral, and 30% negative")
	assert.Contains(t, n.Summary, "waiting time")
}

func TestAssembleInsights(t *testing.T) {
	n := Assemble(sampleAggregation(), sampleContext())
	require.Len(t, n.KeyInsights, 5)
	// 60 is not above the "good" threshold
	assert.Contains(t, n.KeyInsights[0], "moderate")
	assert.Contains(t, n.KeyInsights[1], "30%")
	assert.Contains(t, n.KeyInsights[2], "Waiting time")
	assert.Contains(t, n.KeyInsights[2], "40%")
	assert.Contains(t, n.KeyInsights[3], "Staff behavior")
	assert.Contains(t, n.KeyInsights[4], "10 feedback submissions")
}

func TestAssembleInsightThresholds(t *testing.T) {
	tests := []struct {
		pos, neg int
		want     string
	}{
		{7, 3, "good"},
		{6, 4, "moderate"},
		{5, 5, "moderate"},
		{4, 6, "low"},
	}
	for _, tt := range tests {
		agg := aggregate.Result{
			Counts: map[sentiment.Sentiment]int{sentiment.Positive: tt.pos, sentiment.Negative: tt.neg},
			Total:  tt.pos + tt.neg,
		}
		n := Assemble(agg, sampleContext())
		assert.Contains(t, n.KeyInsights[0], tt.want, "pos=%d", tt.pos)
	}
}

func TestAssembleMinimumInsights(t *testing.T) {
	agg := aggregate.Result{
		Counts: map[sentiment.Sentiment]int{sentiment.Positive: 3},
		Total:  3,
	}
	n := Assemble(agg, sampleContext())
	assert.Len(t, n.KeyInsights, 2)
	assert.Contains(t, n.KeyInsights[0], "good")
	assert.Len(t, n.Recommendations, 1)
	assert.Contains(t, n.Recommendations[0], "feedback mechanisms")
}

func TestAssembleRecommendations(t *testing.T) {
	n := Assemble(sampleAggregation(), sampleContext())
	require.Len(t, n.Recommendations, 4)
	assert.Contains(t, n.Recommendations[0], "waiting times")
	assert.Contains(t, n.Recommendations[1], "staff conduct")
	assert.Contains(t, n.Recommendations[2], "training")
	assert.Contains(t, n.Recommendations[3], "feedback mechanisms")
}

func TestAssembleUrgentRecommendation(t *testing.T) {
	agg := aggregate.Result{
		Counts: map[sentiment.Sentiment]int{sentiment.Positive: 2, sentiment.Negative: 8},
		Total:  10,
	}
	n := Assemble(agg, sampleContext())
	require.Len(t, n.Recommendations, 3)
	assert.Contains(t, n.Recommendations[0], "immediate service improvement")
	assert.Contains(t, n.Recommendations[1], "training")
}

func TestAssembleTrend(t *testing.T) {
	n := Assemble(sampleAggregation(), sampleContext())
	assert.Contains(t, n.TrendAnalysis, "6:3")
	assert.Contains(t, n.TrendAnalysis, "Positive sentiment outweighs")

	agg := aggregate.Result{
		Counts: map[sentiment.Sentiment]int{sentiment.Positive: 2, sentiment.Negative: 2, sentiment.Neutral: 1},
		Total:  5,
	}
	assert.Contains(t, Assemble(agg, sampleContext()).TrendAnalysis, "balanced")
}

func TestAssembleFullAnalysisSamples(t *testing.T) {
	long := strings.Repeat("a", 150)
	rc := sampleContext()
	rc.Samples = []string{long, "short one", "third", "fourth is dropped"}

	n := Assemble(sampleAggregation(), rc)
	assert.Contains(t, n.FullAnalysis, strings.Repeat("a", 100)+"...")
	assert.NotContains(t, n.FullAnalysis, strings.Repeat("a", 101))
	assert.Contains(t, n.FullAnalysis, "short one")
	assert.Contains(t, n.FullAnalysis, "third")
	assert.NotContains(t, n.FullAnalysis, "fourth is dropped")
	assert.Contains(t, n.FullAnalysis, "1. Waiting time: 4 mentions (40%)")
	assert.Contains(t, n.FullAnalysis, "Recommendations:")
}

func TestAssembleIsDeterministic(t *testing.T) {
	a := Assemble(sampleAggregation(), sampleContext())
	b := Assemble(sampleAggregation(), sampleContext())
	assert.Equal(t, a, b)
}

func TestTruncateCountsRunes(t *testing.T) {
	s := strings.Repeat("ጥ", 120)
	got := Truncate(s, 100)
	assert.Equal(t, 103, len([]rune(got)))
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.Equal(t, "short", Truncate("short", 100))
}

func TestAIGenerator(t *testing.T) {
	resp, _ := json.Marshal(map[string]any{
		"summary":         "Feedback is mostly positive.",
		"key_insights":    []string{"one", "two", "three", "four", "five", "six"},
		"recommendations": []string{"Shorten queues"},
		"trend_analysis":  "Improving.",
		"full_analysis":   "Long form.",
	})
	p := &mockProvider{response: "```json\n" + string(resp) + "\n```"}
	g := NewAIGenerator(p, 0)

	n, err := g.Generate(context.Background(), sampleAggregation(), sampleContext())
	require.NoError(t, err)
	assert.Equal(t, "Feedback is mostly positive.", n.Summary)
	assert.Len(t, n.KeyInsights, 5)
	assert.Equal(t, []string{"Shorten queues"}, n.Recommendations)
	assert.Equal(t, "ai:mock", g.Name())
}

func TestAIGeneratorRejectsIncomplete(t *testing.T) {
	g := NewAIGenerator(&mockProvider{response: `{"summary": "only this"}`}, 0)
	_, err := g.Generate(context.Background(), sampleAggregation(), sampleContext())
	assert.Error(t, err)

	g = NewAIGenerator(&mockProvider{response: "plain prose"}, 0)
	_, err = g.Generate(context.Background(), sampleAggregation(), sampleContext())
	assert.Error(t, err)
}

func TestBuildPromptIncludesNumbers(t *testing.T) {
	rc := sampleContext()
	rc.Samples = []string{"The queue was long"}
	prompt := buildPrompt(sampleAggregation(), rc)
	assert.Contains(t, prompt, "Bole Sub-City Office")
	assert.Contains(t, prompt, "60% positive")
	assert.Contains(t, prompt, "Waiting time: 4 (40%)")
	assert.Contains(t, prompt, "The queue was long")
}

func TestFallbackUsesPrimary(t *testing.T) {
	resp := `{"summary":"AI","key_insights":["a","b"],"recommendations":["r"],"trend_analysis":"t","full_analysis":"f"}`
	f := NewFallback(NewAIGenerator(&mockProvider{response: resp}, 0))
	n, source := f.Compose(context.Background(), sampleAggregation(), sampleContext())
	assert.Equal(t, "AI", n.Summary)
	assert.Equal(t, "ai:mock", source)
}

func TestFallbackOnFailure(t *testing.T) {
	p := &mockProvider{err: errors.New("service unavailable")}
	f := NewFallback(NewAIGenerator(p, 0))
	var failed string
	f.OnFailure = func(name string, _ error) { failed = name }

	n, err := f.Generate(context.Background(), sampleAggregation(), sampleContext())
	require.NoError(t, err)
	assert.Equal(t, Assemble(sampleAggregation(), sampleContext()), n)
	assert.Equal(t, "ai:mock", failed)
}

func TestFallbackSkipsPrimaryWhenEmpty(t *testing.T) {
	p := &mockProvider{response: "{}"}
	f := NewFallback(NewAIGenerator(p, 0))
	n, source := f.Compose(context.Background(), aggregate.Aggregate(nil), sampleContext())
	assert.Equal(t, NoDataNarrative(), n)
	assert.Equal(t, "template", source)
	assert.Zero(t, p.calls)
}

func TestFallbackWithoutPrimary(t *testing.T) {
	f := NewFallback(nil)
	assert.Equal(t, "template", f.Name())
	_, source := f.Compose(context.Background(), sampleAggregation(), sampleContext())
	assert.Equal(t, "template", source)
}

func TestMarkdown(t *testing.T) {
	md := Assemble(sampleAggregation(), sampleContext()).Markdown("Bole Sub-City Office")
	assert.True(t, strings.HasPrefix(md, "# Bole Sub-City Office\n"))
	assert.Contains(t, md, "## Key Insights")
	assert.Contains(t, md, "1. Reduce waiting times")
}
