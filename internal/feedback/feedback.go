// Package feedback accepts citizen submissions and keeps their classifications current.
package feedback

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/TobiSchelling/govpulse/internal/database"
	"github.com/TobiSchelling/govpulse/internal/events"
	"github.com/TobiSchelling/govpulse/internal/metrics"
	"github.com/TobiSchelling/govpulse/internal/sentiment"
)

const maxCommentRunes = 5000

var (
	// ErrInvalid marks a submission that fails validation.
	ErrInvalid = errors.New("invalid feedback")
	// ErrUnknownOffice is returned when the target office does not exist.
	ErrUnknownOffice = errors.New("office not found")
)

// Submission is a citizen's feedback as received.
type Submission struct {
	OfficeID int64   `json:"office_id"`
	Rating   int     `json:"rating"` // 1-5, or 0 for none
	Comment  *string `json:"comment"`
}

// Receipt is returned to the citizen after a successful submission.
type Receipt struct {
	ID        int64            `json:"id"`
	Reference string           `json:"reference"`
	OfficeID  int64            `json:"office_id"`
	Record    sentiment.Record `json:"classification"`
}

// Result holds the results of a classification run.
type Result struct {
	Processed int
	Errors    int
	Counts    map[sentiment.Sentiment]int
}

// Service stores and classifies feedback.
type Service struct {
	db        *database.DB
	analyzer  *sentiment.Analyzer
	publisher events.Publisher
	metrics   *metrics.Metrics

	// OnChange runs after new feedback is stored, e.g. to flush cached aggregations.
	OnChange func()
}

// NewService creates a feedback service. publisher and m may be nil.
func NewService(db *database.DB, analyzer *sentiment.Analyzer, publisher events.Publisher, m *metrics.Metrics) *Service {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Service{db: db, analyzer: analyzer, publisher: publisher, metrics: m}
}

// Submit validates, stores, and classifies a submission.
func (s *Service) Submit(ctx context.Context, sub Submission) (*Receipt, error) {
	if sub.Comment == nil || strings.TrimSpace(*sub.Comment) == "" {
		return nil, sentiment.ErrInvalidInput
	}
	comment := strings.TrimSpace(*sub.Comment)
	if utf8.RuneCountInString(comment) > maxCommentRunes {
		return nil, fmt.Errorf("%w: comment exceeds %d characters", ErrInvalid, maxCommentRunes)
	}
	if sub.Rating < 0 || sub.Rating > 5 {
		return nil, fmt.Errorf("%w: rating must be between 0 (none) and 5", ErrInvalid)
	}

	office, err := s.db.GetOffice(sub.OfficeID)
	if err != nil {
		return nil, fmt.Errorf("looking up office: %w", err)
	}
	if office == nil {
		return nil, fmt.Errorf("%w: %d", ErrUnknownOffice, sub.OfficeID)
	}

	var rating *int
	if sub.Rating > 0 {
		rating = &sub.Rating
	}
	reference := uuid.NewString()
	id, err := s.db.InsertFeedback(reference, office.ID, rating, comment, nil)
	if err != nil {
		return nil, err
	}
	s.metrics.Submitted(strconv.FormatInt(office.ID, 10))

	rec := s.analyzer.Analyze(comment)
	if err := s.db.InsertClassification(id, rec); err != nil {
		// The row stays unclassified and is picked up by the next classify run.
		logrus.WithError(err).WithField("feedback_id", id).Warn("Failed to store classification")
	} else {
		s.metrics.Classified(string(rec.Sentiment), string(rec.Language))
		s.publish(ctx, reference, office.ID, rec)
	}

	if s.OnChange != nil {
		s.OnChange()
	}

	logrus.WithFields(logrus.Fields{
		"reference": reference,
		"office":    office.Name,
		"sentiment": rec.Sentiment,
	}).Info("Feedback received")

	return &Receipt{ID: id, Reference: reference, OfficeID: office.ID, Record: rec}, nil
}

// ClassifyPending classifies every stored feedback row that has no classification yet.
func (s *Service) ClassifyPending(ctx context.Context) *Result {
	r := &Result{Counts: make(map[sentiment.Sentiment]int)}

	pending, err := s.db.GetUnclassifiedFeedback()
	if err != nil {
		logrus.WithError(err).Error("Error getting unclassified feedback")
		r.Errors++
		return r
	}

	if len(pending) == 0 {
		logrus.Info("No feedback pending classification")
		return r
	}

	for _, f := range pending {
		if err := ctx.Err(); err != nil {
			logrus.WithError(err).Warn("Classification interrupted")
			break
		}

		rec := s.analyzer.Analyze(f.Comment)
		if err := s.db.InsertClassification(f.ID, rec); err != nil {
			logrus.WithError(err).WithField("feedback_id", f.ID).Error("Error storing classification")
			r.Errors++
			continue
		}
		r.Processed++
		r.Counts[rec.Sentiment]++
		s.metrics.Classified(string(rec.Sentiment), string(rec.Language))
		s.publish(ctx, f.Reference, f.OfficeID, rec)
	}

	if r.Processed > 0 && s.OnChange != nil {
		s.OnChange()
	}

	logrus.WithFields(logrus.Fields{
		"processed": r.Processed,
		"positive":  r.Counts[sentiment.Positive],
		"neutral":   r.Counts[sentiment.Neutral],
		"negative":  r.Counts[sentiment.Negative],
		"errors":    r.Errors,
	}).Info("Classification complete")
	return r
}

func (s *Service) publish(ctx context.Context, reference string, officeID int64, rec sentiment.Record) {
	var category *string
	if rec.Category != nil {
		c := string(*rec.Category)
		category = &c
	}
	err := s.publisher.Publish(ctx, events.Event{
		Type:       events.TypeFeedbackClassified,
		Reference:  reference,
		OfficeID:   officeID,
		Sentiment:  string(rec.Sentiment),
		Category:   category,
		Confidence: rec.Confidence,
		Language:   string(rec.Language),
		Timestamp:  time.Now().UTC(),
	})
	s.metrics.EventPublished(err == nil)
	if err != nil {
		logrus.WithError(err).WithField("reference", reference).Warn("Failed to publish feedback event")
	}
}
