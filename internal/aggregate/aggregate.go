// Package aggregate summarizes classification records into sentiment counts
// and a ranked list of reported issues.
package aggregate

import (
	"math"
	"sort"

	"github.com/TobiSchelling/govpulse/internal/sentiment"
)

// MaxTopIssues bounds the length of Result.TopIssues.
const MaxTopIssues = 5

// IssueCount is one entry of the ranked issue list.
type IssueCount struct {
	Issue      sentiment.Category `json:"issue"`
	Count      int                `json:"count"`
	Percentage int                `json:"percentage"`
}

// Result is the aggregation of a set of classification records.
type Result struct {
	Counts    map[sentiment.Sentiment]int `json:"counts"`
	Total     int                         `json:"total"`
	TopIssues []IssueCount                `json:"top_issues"`
}

// Aggregate tallies records by sentiment and category. records is not modified.
func Aggregate(records []sentiment.Record) Result {
	counts := make(map[sentiment.Sentiment]int, len(sentiment.Sentiments))
	for _, s := range sentiment.Sentiments {
		counts[s] = 0
	}

	categoryCounts := make(map[sentiment.Category]int)
	var order []sentiment.Category
	for _, r := range records {
		counts[r.Sentiment]++
		if r.Category == nil {
			continue
		}
		if _, seen := categoryCounts[*r.Category]; !seen {
			order = append(order, *r.Category)
		}
		categoryCounts[*r.Category]++
	}

	total := 0
	for _, n := range counts {
		total += n
	}

	issues := make([]IssueCount, 0, len(order))
	for _, cat := range order {
		n := categoryCounts[cat]
		issues = append(issues, IssueCount{Issue: cat, Count: n, Percentage: Percent(n, total)})
	}
	sort.SliceStable(issues, func(i, j int) bool { return issues[i].Count > issues[j].Count })
	if len(issues) > MaxTopIssues {
		issues = issues[:MaxTopIssues]
	}

	return Result{Counts: counts, Total: total, TopIssues: issues}
}

// Percent returns round(count/total*100), or 0 when total is 0.
func Percent(count, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(count) / float64(total) * 100))
}

// Percentages returns the positive, neutral and negative shares of r.
func (r Result) Percentages() (positive, neutral, negative int) {
	return Percent(r.Counts[sentiment.Positive], r.Total),
		Percent(r.Counts[sentiment.Neutral], r.Total),
		Percent(r.Counts[sentiment.Negative], r.Total)
}
