package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/JJediny/heimdall2/internal/observability"
)

// Lifecycle event types.
const (
	EventUserRegistered       = "user.registered"
	EventEvaluationTagCreated = "evaluation_tag.created"
	EventEvaluationTagUpdated = "evaluation_tag.updated"
	EventEvaluationTagDeleted = "evaluation_tag.deleted"
)

// Event is a lifecycle notification fanned out to other services.
type Event struct {
	ID         string      `json:"id"`
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurred_at"`
	Payload    interface{} `json:"payload"`
}

// EventPublisher delivers lifecycle events. Callers treat failures as non-fatal.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, payload interface{}) error
}

type natsEventPublisher struct {
	conn    *nats.Conn
	subject string
	logger  zerolog.Logger
}

// NewNATSEventPublisher publishes events on "<subject>.<event type>". A nil
// connection yields a publisher that only logs.
func NewNATSEventPublisher(conn *nats.Conn, subject string, logger zerolog.Logger) EventPublisher {
	logger = logger.With().Str("component", "event_publisher").Logger()
	if conn == nil {
		return NewLogEventPublisher(logger)
	}
	if subject == "" {
		subject = "heimdall.events"
	}
	return &natsEventPublisher{conn: conn, subject: subject, logger: logger}
}

func (p *natsEventPublisher) Publish(ctx context.Context, eventType string, payload interface{}) error {
	subject := fmt.Sprintf("%s.%s", p.subject, eventType)

	body, err := json.Marshal(Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	})
	if err != nil {
		observability.EventsPublished().WithLabelValues(subject, "error").Inc()
		return fmt.Errorf("encode event: %w", err)
	}

	if err := p.conn.Publish(subject, body); err != nil {
		observability.EventsPublished().WithLabelValues(subject, "error").Inc()
		return fmt.Errorf("publish %s: %w", subject, err)
	}

	observability.EventsPublished().WithLabelValues(subject, "success").Inc()
	p.logger.Debug().Str("subject", subject).Msg("event published")
	return nil
}

// LogEventPublisher is used when no message bus is configured.
type LogEventPublisher struct {
	logger zerolog.Logger
}

// NewLogEventPublisher constructs a publisher that writes events to the log.
func NewLogEventPublisher(logger zerolog.Logger) *LogEventPublisher {
	return &LogEventPublisher{logger: logger}
}

// Publish logs the event type and returns nil.
func (l *LogEventPublisher) Publish(ctx context.Context, eventType string, payload interface{}) error {
	l.logger.Debug().Str("event", eventType).Msg("event emitted without message bus")
	return nil
}
