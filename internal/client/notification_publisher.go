package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// NotificationPublisher publishes timesheet workflow events to NATS for
// consumption by downstream notification and billing services.
//
// Subject convention: timesheets.events.<event_type>
// Event types: entry_submitted, entry_approved, entry_rejected,
//              entry_locked, entry_billed
//
// All publish operations are non-fatal — errors are logged but never
// propagated to the caller, so event failures never interrupt workflow
// operations.
type NotificationPublisher struct {
	conn *nats.Conn
	log  zerolog.Logger
}

// WorkflowEvent is the JSON schema published to NATS.
type WorkflowEvent struct {
	EventType string                 `json:"event_type"`
	EntityID  string                 `json:"entity_id"`
	ActorID   string                 `json:"actor_id"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
}

// NewNotificationPublisher creates a publisher backed by the given NATS
// connection. conn may be nil when NATS is not configured; every publish
// becomes a no-op.
func NewNotificationPublisher(conn *nats.Conn, log zerolog.Logger) *NotificationPublisher {
	return &NotificationPublisher{conn: conn, log: log}
}

// PublishEntryEvent publishes a time entry workflow event.
// Subject: timesheets.events.<eventType>
func (p *NotificationPublisher) PublishEntryEvent(ctx context.Context, eventType, entryID, actorID string, payload map[string]interface{}) {
	if p.conn == nil {
		return
	}

	event := &WorkflowEvent{
		EventType: eventType,
		EntityID:  entryID,
		ActorID:   actorID,
		Payload:   payload,
	}

	data, err := json.Marshal(event)
	if err != nil {
		p.log.Warn().Err(err).Str("event_type", eventType).Msg("events: failed to marshal event")
		return
	}

	subject := fmt.Sprintf("timesheets.events.%s", eventType)
	if err := p.conn.Publish(subject, data); err != nil {
		p.log.Warn().Err(err).
			Str("subject", subject).
			Str("entry_id", entryID).
			Msg("events: failed to publish NATS event (non-fatal)")
		return
	}

	p.log.Debug().
		Str("subject", subject).
		Str("entry_id", entryID).
		Msg("events: event published")
}
