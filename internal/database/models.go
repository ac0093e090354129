package database

import "github.com/TobiSchelling/govpulse/internal/sentiment"

// Office is a government service office that receives feedback.
type Office struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Region    *string `json:"region,omitempty"`
	CreatedAt *string `json:"created_at,omitempty"`
}

// Feedback is a single citizen submission.
type Feedback struct {
	ID        int64   `json:"id"`
	Reference string  `json:"reference"`
	OfficeID  int64   `json:"office_id"`
	Rating    *int    `json:"rating,omitempty"`
	Comment   string  `json:"comment"`
	CreatedAt *string `json:"created_at,omitempty"`
}

// Classification is the stored sentiment record for a feedback row.
type Classification struct {
	FeedbackID int64               `json:"feedback_id"`
	Sentiment  sentiment.Sentiment `json:"sentiment"`
	Category   *sentiment.Category `json:"category"`
	Confidence float64             `json:"confidence"`
	Language   sentiment.Language  `json:"language"`
	AnalyzedAt *string             `json:"analyzed_at,omitempty"`
}

// Record returns the classification as a sentiment record.
func (c Classification) Record() sentiment.Record {
	return sentiment.Record{
		Sentiment:  c.Sentiment,
		Category:   c.Category,
		Confidence: c.Confidence,
		Language:   c.Language,
	}
}

// IssueSummary is a stored top-issue entry of a report.
type IssueSummary struct {
	Issue      string `json:"issue"`
	Count      int    `json:"count"`
	Percentage int    `json:"percentage"`
}

// Report is a generated sentiment report for an office and period.
type Report struct {
	ID              int64          `json:"id"`
	OfficeID        int64          `json:"office_id"`
	PeriodID        string         `json:"period_id"`
	Generator       string         `json:"generator"`
	TotalFeedback   int            `json:"total_feedback"`
	PositiveCount   int            `json:"positive_count"`
	NeutralCount    int            `json:"neutral_count"`
	NegativeCount   int            `json:"negative_count"`
	TopIssues       []IssueSummary `json:"top_issues"`
	Summary         string         `json:"summary"`
	KeyInsights     []string       `json:"key_insights"`
	Recommendations []string       `json:"recommendations"`
	TrendAnalysis   string         `json:"trend_analysis"`
	FullAnalysis    string         `json:"full_analysis"`
	GeneratedAt     *string        `json:"generated_at,omitempty"`
}

// ReportSchedule triggers recurring reports for an office.
type ReportSchedule struct {
	ID         int64   `json:"id"`
	OfficeID   int64   `json:"office_id"`
	Frequency  string  `json:"frequency"`
	NextRunAt  string  `json:"next_run_at"`
	LastRunAt  *string `json:"last_run_at,omitempty"`
	LastSlotAt *string `json:"last_slot_at,omitempty"` // next_run_at of the last completed run
	IsActive   bool    `json:"is_active"`
	CreatedAt  *string `json:"created_at,omitempty"`
}

// Stats contains aggregate database statistics.
type Stats struct {
	Offices         int
	Feedback        int
	Classified      int
	Unclassified    int
	Reports         int
	ActiveSchedules int
}
