// Package metrics exposes Prometheus counters for the feedback pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds a private registry and the collectors registered on it.
// All recording methods are safe to call on a nil *Metrics.
type Metrics struct {
	registry *prometheus.Registry

	FeedbackSubmitted  *prometheus.CounterVec
	FeedbackClassified *prometheus.CounterVec
	ReportsGenerated   *prometheus.CounterVec
	GeneratorFailures  *prometheus.CounterVec
	EventsPublished    *prometheus.CounterVec
	HTTPRequests       *prometheus.CounterVec
	ScheduledRuns      *prometheus.CounterVec
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		FeedbackSubmitted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "govpulse_feedback_submitted_total",
				Help: "Feedback submissions accepted, by office",
			},
			[]string{"office_id"},
		),
		FeedbackClassified: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "govpulse_feedback_classified_total",
				Help: "Feedback rows classified, by sentiment and language",
			},
			[]string{"sentiment", "language"},
		),
		ReportsGenerated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "govpulse_reports_generated_total",
				Help: "Reports stored, by the generator that produced them",
			},
			[]string{"generator"},
		),
		GeneratorFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "govpulse_report_generator_failures_total",
				Help: "Report generator failures that fell back to templates",
			},
			[]string{"generator"},
		),
		EventsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "govpulse_events_published_total",
				Help: "Feedback events published to the broker",
			},
			[]string{"status"},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "govpulse_http_requests_total",
				Help: "HTTP API requests, by route and status code",
			},
			[]string{"route", "code"},
		),
		ScheduledRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "govpulse_scheduled_report_runs_total",
				Help: "Scheduled report runs, by outcome",
			},
			[]string{"status"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.FeedbackSubmitted,
		m.FeedbackClassified,
		m.ReportsGenerated,
		m.GeneratorFailures,
		m.EventsPublished,
		m.HTTPRequests,
		m.ScheduledRuns,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Submitted(officeID string) {
	if m == nil {
		return
	}
	m.FeedbackSubmitted.WithLabelValues(officeID).Inc()
}

func (m *Metrics) Classified(sentiment, language string) {
	if m == nil {
		return
	}
	m.FeedbackClassified.WithLabelValues(sentiment, language).Inc()
}

func (m *Metrics) ReportGenerated(generator string) {
	if m == nil {
		return
	}
	m.ReportsGenerated.WithLabelValues(generator).Inc()
}

func (m *Metrics) GeneratorFailed(generator string) {
	if m == nil {
		return
	}
	m.GeneratorFailures.WithLabelValues(generator).Inc()
}

func (m *Metrics) EventPublished(ok bool) {
	if m == nil {
		return
	}
	status := "ok"
	if !ok {
		status = "error"
	}
	m.EventsPublished.WithLabelValues(status).Inc()
}

func (m *Metrics) Request(route, code string) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, code).Inc()
}

func (m *Metrics) ScheduledRun(ok bool) {
	if m == nil {
		return
	}
	status := "ok"
	if !ok {
		status = "error"
	}
	m.ScheduledRuns.WithLabelValues(status).Inc()
}
