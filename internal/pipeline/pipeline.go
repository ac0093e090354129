package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/TobiSchelling/govpulse/internal/cache"
	"github.com/TobiSchelling/govpulse/internal/compose"
	"github.com/TobiSchelling/govpulse/internal/config"
	"github.com/TobiSchelling/govpulse/internal/database"
	"github.com/TobiSchelling/govpulse/internal/events"
	"github.com/TobiSchelling/govpulse/internal/feedback"
	"github.com/TobiSchelling/govpulse/internal/llm"
	"github.com/TobiSchelling/govpulse/internal/metrics"
	"github.com/TobiSchelling/govpulse/internal/schedule"
	"github.com/TobiSchelling/govpulse/internal/sentiment"
)

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Result holds the results of a full pipeline run.
type Result struct {
	PeriodID string
	Steps    []StepResult
}

// Services are the long-lived components shared by the CLI, the server and the scheduler.
type Services struct {
	Analyzer *sentiment.Analyzer
	Feedback *feedback.Service
	Composer *compose.Composer
	Runner   *schedule.Runner
	Cache    *cache.AggregateCache
	Metrics  *metrics.Metrics
	Provider llm.Provider
}

// ProviderSettings maps the summarization config onto LLM provider settings.
func ProviderSettings(s config.Summarization) llm.Settings {
	return llm.Settings{
		Provider:       s.Provider,
		Model:          s.Model,
		OllamaURL:      s.OllamaURL,
		OpenAIBaseURL:  s.OpenAIBaseURL,
		AnthropicModel: s.AnthropicModel,
		OpenAIModel:    s.OpenAIModel,
		APIKeyEnv:      s.APIKeyEnv,
		Timeout:        s.Timeout,
	}
}

// NewServices wires the services from configuration. publisher and m may be nil.
func NewServices(cfg *config.Config, db *database.DB, publisher events.Publisher, m *metrics.Metrics) (*Services, error) {
	lex := sentiment.DefaultLexicon()
	if cfg.LexiconPath != "" {
		loaded, err := sentiment.LoadLexicon(cfg.LexiconPath)
		if err != nil {
			return nil, err
		}
		lex = loaded
		logrus.WithField("path", cfg.LexiconPath).Info("Loaded keyword lexicon")
	}

	provider := llm.CreateProvider(ProviderSettings(cfg.Summarization))
	return Assemble(db, sentiment.NewAnalyzer(lex), provider, cfg.Summarization.MaxTokens, cfg.Cache.TTL, publisher, m), nil
}

// Assemble wires services from already-built parts. provider, publisher and m may be nil.
func Assemble(db *database.DB, analyzer *sentiment.Analyzer, provider llm.Provider, maxTokens int,
	cacheTTL time.Duration, publisher events.Publisher, m *metrics.Metrics) *Services {
	composer := compose.NewComposer(db, provider, maxTokens, m)
	aggCache := cache.NewAggregateCache(cacheTTL)

	fb := feedback.NewService(db, analyzer, publisher, m)
	fb.OnChange = aggCache.Flush

	return &Services{
		Analyzer: analyzer,
		Feedback: fb,
		Composer: composer,
		Runner:   schedule.NewRunner(db, composer, m),
		Cache:    aggCache,
		Metrics:  m,
		Provider: provider,
	}
}

// Pipeline classifies pending feedback and produces reports.
type Pipeline struct {
	db  *database.DB
	svc *Services
}

// New creates a new pipeline.
func New(db *database.DB, svc *Services) *Pipeline {
	return &Pipeline{db: db, svc: svc}
}

// Run classifies pending feedback, then composes due scheduled reports. With a
// non-empty periodID it also composes a report for every office over that period.
func (p *Pipeline) Run(ctx context.Context, periodID string) *Result {
	r := &Result{PeriodID: periodID}

	// Step 1: Classify
	step := p.runClassify(ctx)
	r.Steps = append(r.Steps, step)

	// Step 2: Scheduled reports
	step = p.runScheduled(ctx)
	r.Steps = append(r.Steps, step)

	// Step 3: Compose
	if periodID != "" {
		step = p.runCompose(ctx, periodID)
		r.Steps = append(r.Steps, step)
	}

	return r
}

// DryRun shows what would be done without executing.
func (p *Pipeline) DryRun(periodID string) *Result {
	r := &Result{PeriodID: periodID}

	pending, err := p.db.GetUnclassifiedFeedback()
	r.Steps = append(r.Steps, StepResult{
		Name:    "Classify",
		Summary: fmt.Sprintf("[dry-run] %d feedback entries need classification", len(pending)),
		Err:     err,
	})

	due, err := p.db.GetDueSchedules(database.FormatTimestamp(time.Now()))
	r.Steps = append(r.Steps, StepResult{
		Name:    "Scheduled reports",
		Summary: fmt.Sprintf("[dry-run] %d schedules are due", len(due)),
		Err:     err,
	})

	if periodID != "" {
		offices, err := p.db.ListOffices()
		r.Steps = append(r.Steps, StepResult{
			Name:    "Compose",
			Summary: fmt.Sprintf("[dry-run] Would compose %d office reports for %s", len(offices), periodID),
			Err:     err,
		})
	}

	return r
}

func (p *Pipeline) runClassify(ctx context.Context) StepResult {
	logrus.Info("Step 1: Classifying pending feedback...")
	result := p.svc.Feedback.ClassifyPending(ctx)
	var err error
	if result.Errors > 0 && result.Processed == 0 {
		err = fmt.Errorf("%d feedback entries failed to classify", result.Errors)
	}
	return StepResult{
		Name: "Classify",
		Summary: fmt.Sprintf("Classified %d entries: %d positive, %d neutral, %d negative",
			result.Processed,
			result.Counts[sentiment.Positive],
			result.Counts[sentiment.Neutral],
			result.Counts[sentiment.Negative]),
		Err: err,
	}
}

func (p *Pipeline) runScheduled(ctx context.Context) StepResult {
	logrus.Info("Step 2: Composing due scheduled reports...")
	result, err := p.svc.Runner.RunDue(ctx)
	if err != nil {
		return StepResult{Name: "Scheduled reports", Err: err}
	}
	return StepResult{
		Name:    "Scheduled reports",
		Summary: fmt.Sprintf("%d due, %d generated, %d failed", result.Due, result.Generated, result.Errors),
	}
}

func (p *Pipeline) runCompose(ctx context.Context, periodID string) StepResult {
	logrus.WithField("period", periodID).Info("Step 3: Composing office reports...")
	offices, err := p.db.ListOffices()
	if err != nil {
		return StepResult{Name: "Compose", Err: err}
	}

	composed, failed := 0, 0
	for _, o := range offices {
		if _, err := p.svc.Composer.ComposeReport(ctx, o.ID, periodID); err != nil {
			logrus.WithError(err).WithField("office", o.Name).Error("Report failed")
			failed++
			continue
		}
		composed++
	}

	return StepResult{
		Name:    "Compose",
		Summary: fmt.Sprintf("Composed %d office reports for %s, %d failed", composed, periodID, failed),
	}
}
