// Package analytics provides a fire-and-forget NATS publisher for analytics events.
package analytics

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Subject constants for every analytics event type.
const (
	SubjectSearchPerformed = "analytics.justwatch.search_performed"
	SubjectLocaleRefreshed = "analytics.justwatch.locale_refreshed"
)

// Event is the canonical envelope sent to all analytics.* subjects.
type Event struct {
	EventID    string         `json:"event_id"`
	EventName  string         `json:"event_name"`
	Source     string         `json:"source,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
	Properties map[string]any `json:"properties,omitempty"`
}

// Conn is the subset of *nats.Conn the publisher needs.
type Conn interface {
	Publish(subject string, data []byte) error
}

// Publisher publishes analytics events to NATS core subjects.
// The zero value and a nil pointer are both safe no-op stubs.
type Publisher struct {
	conn   Conn
	source string
	log    *zap.Logger
	now    func() time.Time
}

// New creates a Publisher. Pass conn=nil to get a no-op stub
// (services running without NATS, and tests).
func New(conn Conn, source string, log *zap.Logger) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{conn: conn, source: source, log: log, now: time.Now}
}

// Publish sends an analytics event. Failures are logged as warnings and never
// surface to the caller. The publisher is safe to call with a nil receiver.
func (p *Publisher) Publish(subject, eventName string, props map[string]any) {
	if p == nil || p.conn == nil {
		return
	}
	ev := Event{
		EventID:    uuid.NewString(),
		EventName:  eventName,
		Source:     p.source,
		OccurredAt: p.now().UTC(),
		Properties: props,
	}
	data, err := json.Marshal(ev)
	if err != nil {
		p.log.Warn("analytics: marshal failed", zap.String("event", eventName), zap.Error(err))
		return
	}
	if err := p.conn.Publish(subject, data); err != nil {
		p.log.Warn("analytics: publish failed", zap.String("subject", subject), zap.Error(err))
	}
}
