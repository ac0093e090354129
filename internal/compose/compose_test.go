package compose

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/TobiSchelling/govpulse/internal/database"
	"github.com/TobiSchelling/govpulse/internal/metrics"
	"github.com/TobiSchelling/govpulse/internal/sentiment"
)

type mockProvider struct {
	response string
	err      error
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) Generate(_ context.Context, _ string, _ int) (string, error) {
	return m.response, m.err
}

func (m *mockProvider) IsConfigured() bool { return true }

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func ptr(s string) *string { return &s }

// seed stores classified feedback for one office in early February 2026.
func seed(t *testing.T, db *database.DB) int64 {
	t.Helper()
	office, err := db.InsertOffice("Bole Sub-City", nil)
	if err != nil {
		t.Fatalf("insert office: %v", err)
	}
	analyzer := sentiment.NewAnalyzer(nil)
	comments := []string{
		"The waiting time was very long",
		"Staff were rude and slow",
		"Great service, thank you",
		"Long wait in the queue again",
	}
	for i, c := range comments {
		at := "2026-02-0" + string(rune('1'+i)) + " 10:00:00"
		id, err := db.InsertFeedback("ref-"+string(rune('a'+i)), office, nil, c, ptr(at))
		if err != nil {
			t.Fatalf("insert feedback: %v", err)
		}
		if err := db.InsertClassification(id, analyzer.Analyze(c)); err != nil {
			t.Fatalf("insert classification: %v", err)
		}
	}
	return office
}

func TestComposeReportWithTemplates(t *testing.T) {
	db := openTestDB(t)
	office := seed(t, db)
	m := metrics.New()

	composer := NewComposer(db, nil, 0, m)
	r, err := composer.ComposeReport(context.Background(), office, "2026-02-01..2026-02-07")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r == nil {
		t.Fatal("expected report")
	}
	if r.Generator != "template" {
		t.Errorf("expected template generator, got %q", r.Generator)
	}
	if r.TotalFeedback != 4 {
		t.Errorf("expected 4 feedback, got %d", r.TotalFeedback)
	}
	if r.PositiveCount+r.NeutralCount+r.NegativeCount != r.TotalFeedback {
		t.Errorf("counts do not sum to total: %+v", r)
	}
	if len(r.TopIssues) == 0 || r.TopIssues[0].Issue != "waiting_time" {
		t.Errorf("expected waiting_time as top issue, got %+v", r.TopIssues)
	}
	if !strings.Contains(r.Summary, "Bole Sub-City") || !strings.Contains(r.Summary, "Feb 01 - Feb 07, 2026") {
		t.Errorf("summary missing office or date range: %q", r.Summary)
	}
	if !strings.Contains(r.FullAnalysis, "Great service") {
		t.Error("expected samples in full analysis")
	}
	if got := testutil.ToFloat64(m.ReportsGenerated.WithLabelValues("template")); got != 1 {
		t.Errorf("expected 1 template report counted, got %v", got)
	}
}

func TestComposeReportWithProvider(t *testing.T) {
	db := openTestDB(t)
	office := seed(t, db)

	resp, _ := json.Marshal(map[string]any{
		"summary":         "Queues dominate complaints this week.",
		"key_insights":    []string{"Half of the feedback mentions waiting"},
		"recommendations": []string{"Open a second service window"},
		"trend_analysis":  "Negative leaning.",
		"full_analysis":   "Details.",
	})
	composer := NewComposer(db, &mockProvider{response: string(resp)}, 512, nil)
	r, err := composer.ComposeReport(context.Background(), office, "2026-02-01..2026-02-07")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Generator != "ai:mock" {
		t.Errorf("expected ai:mock generator, got %q", r.Generator)
	}
	if r.Summary != "Queues dominate complaints this week." {
		t.Errorf("unexpected summary %q", r.Summary)
	}
}

func TestComposeReportProviderFailure(t *testing.T) {
	db := openTestDB(t)
	office := seed(t, db)
	m := metrics.New()

	composer := NewComposer(db, &mockProvider{err: errors.New("timeout")}, 0, m)
	r, err := composer.ComposeReport(context.Background(), office, "2026-02-01..2026-02-07")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Generator != "template" {
		t.Errorf("expected template fallback, got %q", r.Generator)
	}
	if got := testutil.ToFloat64(m.GeneratorFailures.WithLabelValues("ai:mock")); got != 1 {
		t.Errorf("expected 1 generator failure, got %v", got)
	}
}

func TestComposeEmptyPeriod(t *testing.T) {
	db := openTestDB(t)
	office := seed(t, db)

	composer := NewComposer(db, &mockProvider{response: "{}"}, 0, nil)
	r, err := composer.ComposeReport(context.Background(), office, "2026-03-01..2026-03-07")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.TotalFeedback != 0 {
		t.Errorf("expected 0 feedback, got %d", r.TotalFeedback)
	}
	if !strings.Contains(r.Summary, "No feedback data") {
		t.Errorf("expected no-data summary, got %q", r.Summary)
	}
	if strings.Contains(r.FullAnalysis, "NaN") {
		t.Error("report must not contain NaN")
	}
}

func TestComposeUnknownOffice(t *testing.T) {
	db := openTestDB(t)
	composer := NewComposer(db, nil, 0, nil)
	_, err := composer.ComposeReport(context.Background(), 99, "2026-02-06")
	if !errors.Is(err, ErrUnknownOffice) {
		t.Errorf("expected ErrUnknownOffice, got %v", err)
	}
}

func TestNarrativeRoundTrip(t *testing.T) {
	db := openTestDB(t)
	office := seed(t, db)
	composer := NewComposer(db, nil, 0, nil)
	r, _ := composer.ComposeReport(context.Background(), office, "2026-02-01..2026-02-07")

	md := Narrative(r).Markdown("Bole Sub-City")
	if !strings.Contains(md, "## Recommendations") || !strings.Contains(md, r.Recommendations[0]) {
		t.Errorf("markdown missing recommendations:\n%s", md)
	}
}
