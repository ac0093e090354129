package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/TobiSchelling/govpulse/internal/compose"
	"github.com/TobiSchelling/govpulse/internal/database"
	"github.com/TobiSchelling/govpulse/internal/metrics"
)

// Runner composes reports for due schedules.
type Runner struct {
	db       *database.DB
	composer *compose.Composer
	metrics  *metrics.Metrics
	now      func() time.Time

	mu   sync.Mutex
	cron *cron.Cron
}

// RunResult summarizes one pass over due schedules.
type RunResult struct {
	Due       int
	Generated int
	Errors    int
	ReportIDs []int64
}

// NewRunner creates a runner. m may be nil.
func NewRunner(db *database.DB, composer *compose.Composer, m *metrics.Metrics) *Runner {
	return &Runner{db: db, composer: composer, metrics: m, now: time.Now}
}

// RunDue composes a report for every active schedule that is due and advances
// it past the current time. Missed runs are not back-filled.
func (r *Runner) RunDue(ctx context.Context) (*RunResult, error) {
	now := r.now().UTC()
	due, err := r.db.GetDueSchedules(database.FormatTimestamp(now))
	if err != nil {
		return nil, fmt.Errorf("loading due schedules: %w", err)
	}

	res := &RunResult{Due: len(due)}
	for _, s := range due {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		log := logrus.WithFields(logrus.Fields{"schedule_id": s.ID, "office_id": s.OfficeID})

		freq, err := ParseFrequency(s.Frequency)
		if err != nil {
			log.WithError(err).Error("Skipping schedule")
			res.Errors++
			continue
		}
		runAt, err := time.Parse(database.TimestampLayout, s.NextRunAt)
		if err != nil {
			log.WithError(err).Error("Skipping schedule with unreadable next_run_at")
			res.Errors++
			continue
		}

		start, end := Window(freq, runAt)
		if s.LastSlotAt != nil {
			if prev, err := time.Parse(database.TimestampLayout, *s.LastSlotAt); err == nil && prev.Before(runAt) {
				start, end = WindowSince(prev, runAt)
			}
		}
		rep, err := r.composer.ComposeReport(ctx, s.OfficeID, database.MakePeriodID(start, end))
		r.metrics.ScheduledRun(err == nil)
		if err != nil {
			log.WithError(err).Error("Scheduled report failed")
			res.Errors++
			continue
		}
		res.Generated++
		res.ReportIDs = append(res.ReportIDs, rep.ID)

		next := NextRun(freq, runAt)
		for !next.After(now) {
			next = NextRun(freq, next)
		}
		if err := r.db.MarkScheduleRun(s.ID, database.FormatTimestamp(now), s.NextRunAt, database.FormatTimestamp(next)); err != nil {
			log.WithError(err).Error("Failed to advance schedule")
			res.Errors++
		}
	}

	if res.Due > 0 {
		logrus.WithFields(logrus.Fields{
			"due":       res.Due,
			"generated": res.Generated,
			"errors":    res.Errors,
		}).Info("Scheduled reports processed")
	}
	return res, nil
}

// Start checks for due schedules on the given cron spec until ctx is done or
// Stop is called. Standard five-field specs and descriptors like "@every 1m"
// are accepted.
func (r *Runner) Start(ctx context.Context, spec string) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	c := cron.New(
		cron.WithParser(parser),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	if _, err := c.AddFunc(spec, func() {
		if _, err := r.RunDue(ctx); err != nil {
			logrus.WithError(err).Error("Scheduled report check failed")
		}
	}); err != nil {
		return fmt.Errorf("invalid schedule check spec %q: %w", spec, err)
	}

	r.mu.Lock()
	r.cron = c
	r.mu.Unlock()

	c.Start()
	logrus.WithField("spec", spec).Info("Report scheduler started")

	go func() {
		<-ctx.Done()
		r.Stop()
	}()
	return nil
}

// Stop halts the cron loop and waits for a running check to finish.
func (r *Runner) Stop() {
	r.mu.Lock()
	c := r.cron
	r.cron = nil
	r.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}
}
