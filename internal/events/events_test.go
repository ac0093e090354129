package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	exchange, key string
	msg           amqp.Publishing
}

type fakeChannel struct {
	declared   string
	kind       string
	durable    bool
	declareErr error
	publishErr error
	sent       []published
	closed     bool
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, durable, _, _, _ bool, _ amqp.Table) error {
	f.declared, f.kind, f.durable = name, kind, durable
	return f.declareErr
}

func (f *fakeChannel) Publish(exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.sent = append(f.sent, published{exchange, key, msg})
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func sampleEvent() Event {
	cat := "waiting_time"
	return Event{
		Type:       TypeFeedbackClassified,
		Reference:  "3f1c",
		OfficeID:   7,
		Sentiment:  "negative",
		Category:   &cat,
		Confidence: 0.7,
		Language:   "english",
		Timestamp:  time.Date(2026, 2, 6, 9, 0, 0, 0, time.UTC),
	}
}

func TestAMQPPublisherDeclaresTopicExchange(t *testing.T) {
	ch := &fakeChannel{}
	_, err := newPublisher(ch, "govpulse.feedback")
	require.NoError(t, err)
	assert.Equal(t, "govpulse.feedback", ch.declared)
	assert.Equal(t, amqp.ExchangeTopic, ch.kind)
	assert.True(t, ch.durable)
}

func TestAMQPPublisherDeclareFailure(t *testing.T) {
	ch := &fakeChannel{declareErr: errors.New("access refused")}
	_, err := newPublisher(ch, "govpulse.feedback")
	assert.Error(t, err)
	assert.True(t, ch.closed)
}

func TestAMQPPublisherPublish(t *testing.T) {
	ch := &fakeChannel{}
	p, err := newPublisher(ch, "govpulse.feedback")
	require.NoError(t, err)

	require.NoError(t, p.Publish(context.Background(), sampleEvent()))
	require.Len(t, ch.sent, 1)

	sent := ch.sent[0]
	assert.Equal(t, "govpulse.feedback", sent.exchange)
	assert.Equal(t, "feedback.negative", sent.key)
	assert.Equal(t, "application/json", sent.msg.ContentType)
	assert.Equal(t, amqp.Persistent, sent.msg.DeliveryMode)
	assert.Equal(t, "3f1c", sent.msg.MessageId)

	var decoded Event
	require.NoError(t, json.Unmarshal(sent.msg.Body, &decoded))
	assert.Equal(t, "waiting_time", *decoded.Category)
	assert.Equal(t, int64(7), decoded.OfficeID)
}

func TestAMQPPublisherAfterClose(t *testing.T) {
	ch := &fakeChannel{}
	p, err := newPublisher(ch, "x")
	require.NoError(t, err)
	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
	assert.Error(t, p.Publish(context.Background(), sampleEvent()))
}

func TestAMQPPublisherCancelledContext(t *testing.T) {
	ch := &fakeChannel{}
	p, _ := newPublisher(ch, "x")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Publish(ctx, sampleEvent()), context.Canceled)
	assert.Empty(t, ch.sent)
}

func TestNewAMQPPublisherRequiresURL(t *testing.T) {
	_, err := NewAMQPPublisher("", "x")
	assert.Error(t, err)
}

func TestMemoryPublisher(t *testing.T) {
	m := &MemoryPublisher{}
	require.NoError(t, m.Publish(context.Background(), sampleEvent()))
	assert.Len(t, m.Events(), 1)

	m.Err = errors.New("down")
	assert.Error(t, m.Publish(context.Background(), sampleEvent()))
	assert.Len(t, m.Events(), 1)
}
