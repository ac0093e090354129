package report

import (
	"context"
	"fmt"
	"strings"

	"github.com/TobiSchelling/govpulse/internal/aggregate"
)

// Narrative is the human-readable report derived from an aggregation.
type Narrative struct {
	Summary         string   `json:"summary"`
	KeyInsights     []string `json:"key_insights"`
	Recommendations []string `json:"recommendations"`
	TrendAnalysis   string   `json:"trend_analysis"`
	FullAnalysis    string   `json:"full_analysis"`
}

// Context carries the descriptive inputs a generator interpolates.
type Context struct {
	OfficeName string
	DateRange  string
	Samples    []string
}

// Generator produces a narrative from an aggregation.
type Generator interface {
	Name() string
	Generate(ctx context.Context, agg aggregate.Result, rc Context) (*Narrative, error)
}

// Markdown renders n as a markdown document under the given title.
func (n *Narrative) Markdown(title string) string {
	var b strings.Builder
	if title != "" {
		fmt.Fprintf(&b, "# %s\n\n", title)
	}
	fmt.Fprintf(&b, "## Summary\n\n%s\n\n", n.Summary)

	b.WriteString("## Key Insights\n\n")
	for _, s := range n.KeyInsights {
		fmt.Fprintf(&b, "- %s\n", s)
	}

	b.WriteString("\n## Recommendations\n\n")
	for i, s := range n.Recommendations {
		fmt.Fprintf(&b, "%d. %s\n", i+1, s)
	}

	fmt.Fprintf(&b, "\n## Trend Analysis\n\n%s\n\n", n.TrendAnalysis)
	fmt.Fprintf(&b, "## Full Analysis\n\n%s\n", n.FullAnalysis)
	return b.String()
}
