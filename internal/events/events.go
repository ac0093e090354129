// Package events publishes classified-feedback notifications to a message broker.
package events

import (
	"context"
	"sync"
	"time"
)

// TypeFeedbackClassified is emitted after a submission is stored and classified.
const TypeFeedbackClassified = "feedback.classified"

// Event describes one classified feedback submission.
type Event struct {
	Type       string    `json:"type"`
	Reference  string    `json:"reference"`
	OfficeID   int64     `json:"office_id"`
	Sentiment  string    `json:"sentiment"`
	Category   *string   `json:"category"`
	Confidence float64   `json:"confidence"`
	Language   string    `json:"language"`
	Timestamp  time.Time `json:"timestamp"`
}

// RoutingKey is the topic key for the event, e.g. "feedback.negative".
func (e Event) RoutingKey() string {
	return "feedback." + e.Sentiment
}

// Publisher sends events to subscribers.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// NopPublisher discards events. It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                         { return nil }

// MemoryPublisher keeps events in memory.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []Event
	Err    error
}

func (m *MemoryPublisher) Publish(_ context.Context, e Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.events = append(m.events, e)
	return nil
}

func (m *MemoryPublisher) Close() error { return nil }

// Events returns a copy of the published events.
func (m *MemoryPublisher) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events...)
}
