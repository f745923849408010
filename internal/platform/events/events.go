// Package events publishes record lifecycle events so that changes which the
// owning table does not keep (such as a prescription's previous status) are
// still observable downstream.
package events

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Event is one lifecycle notification. Key orders events of the same record.
type Event struct {
	Type       string                 `json:"type"`
	Key        string                 `json:"key"`
	OccurredAt time.Time              `json:"occurredAt"`
	Data       map[string]interface{} `json:"data"`
}

// Publisher delivers events. Publishing is best effort: callers log a failure
// and carry on, the record change has already been committed.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// LogPublisher writes events to the structured log. It is used when no broker
// is configured.
type LogPublisher struct {
	logger zerolog.Logger
}

// NewLogPublisher creates a LogPublisher.
func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, e Event) error {
	p.logger.Info().
		Str("type", "event").
		Str("event_type", e.Type).
		Str("key", e.Key).
		Time("occurred_at", e.OccurredAt).
		Interface("data", e.Data).
		Msg("record event")
	return nil
}

func (p *LogPublisher) Close() error { return nil }
