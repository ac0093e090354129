package compose

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/TobiSchelling/govpulse/internal/aggregate"
	"github.com/TobiSchelling/govpulse/internal/database"
	"github.com/TobiSchelling/govpulse/internal/llm"
	"github.com/TobiSchelling/govpulse/internal/metrics"
	"github.com/TobiSchelling/govpulse/internal/report"
	"github.com/TobiSchelling/govpulse/internal/sentiment"
)

const sampleLimit = 3

// ErrUnknownOffice is returned when composing for an office that does not exist.
var ErrUnknownOffice = errors.New("office not found")

// Composer builds and stores sentiment reports for an office and period.
type Composer struct {
	db        *database.DB
	generator *report.Fallback
	metrics   *metrics.Metrics
}

// NewComposer creates a composer. With a nil provider every report uses the templates.
func NewComposer(db *database.DB, provider llm.Provider, maxTokens int, m *metrics.Metrics) *Composer {
	var primary report.Generator
	if provider != nil {
		primary = report.NewAIGenerator(provider, maxTokens)
	}
	gen := report.NewFallback(primary)
	gen.OnFailure = func(name string, _ error) { m.GeneratorFailed(name) }
	return &Composer{db: db, generator: gen, metrics: m}
}

// Aggregate loads the classifications of an office's feedback in a period and aggregates them.
func (c *Composer) Aggregate(officeID int64, periodID string) (aggregate.Result, error) {
	cs, err := c.db.GetClassifications(officeID, periodID)
	if err != nil {
		return aggregate.Result{}, err
	}
	return aggregate.Aggregate(database.Records(cs)), nil
}

// ComposeReport generates and stores the report for an office and period.
func (c *Composer) ComposeReport(ctx context.Context, officeID int64, periodID string) (*database.Report, error) {
	office, err := c.db.GetOffice(officeID)
	if err != nil {
		return nil, err
	}
	if office == nil {
		return nil, fmt.Errorf("%w: %d", ErrUnknownOffice, officeID)
	}

	agg, err := c.Aggregate(officeID, periodID)
	if err != nil {
		return nil, fmt.Errorf("aggregating feedback: %w", err)
	}
	samples, err := c.db.GetFeedbackSamples(officeID, periodID, sampleLimit)
	if err != nil {
		return nil, fmt.Errorf("loading samples: %w", err)
	}

	n, generator := c.generator.Compose(ctx, agg, report.Context{
		OfficeName: office.Name,
		DateRange:  database.FormatPeriodDisplay(periodID),
		Samples:    samples,
	})

	r := NewReport(officeID, periodID, generator, agg, n)
	id, err := c.db.InsertReport(r)
	if err != nil {
		return nil, err
	}
	c.metrics.ReportGenerated(generator)

	logrus.WithFields(logrus.Fields{
		"office":    office.Name,
		"period":    periodID,
		"total":     agg.Total,
		"generator": generator,
	}).Info("Report composed")

	return c.db.GetReport(id)
}

// NewReport combines an aggregation and its narrative into a storable report.
func NewReport(officeID int64, periodID, generator string, agg aggregate.Result, n *report.Narrative) *database.Report {
	issues := make([]database.IssueSummary, 0, len(agg.TopIssues))
	for _, is := range agg.TopIssues {
		issues = append(issues, database.IssueSummary{Issue: string(is.Issue), Count: is.Count, Percentage: is.Percentage})
	}
	return &database.Report{
		OfficeID:        officeID,
		PeriodID:        periodID,
		Generator:       generator,
		TotalFeedback:   agg.Total,
		PositiveCount:   agg.Counts[sentiment.Positive],
		NeutralCount:    agg.Counts[sentiment.Neutral],
		NegativeCount:   agg.Counts[sentiment.Negative],
		TopIssues:       issues,
		Summary:         n.Summary,
		KeyInsights:     n.KeyInsights,
		Recommendations: n.Recommendations,
		TrendAnalysis:   n.TrendAnalysis,
		FullAnalysis:    n.FullAnalysis,
	}
}

// Narrative extracts the narrative fields of a stored report.
func Narrative(r *database.Report) *report.Narrative {
	return &report.Narrative{
		Summary:         r.Summary,
		KeyInsights:     r.KeyInsights,
		Recommendations: r.Recommendations,
		TrendAnalysis:   r.TrendAnalysis,
		FullAnalysis:    r.FullAnalysis,
	}
}
