// Package events publishes build lifecycle events to NATS so CI tooling can
// react to runs without polling. Publishing is optional: a nil Publisher is
// a silent no-op.
package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// Event types emitted over the configured subject.
const (
	TypeBuildStarted    = "build_started"
	TypeBuildCompleted  = "build_completed"
	TypeBuildFailed     = "build_failed"
	TypeBuildSuperseded = "build_superseded"
)

// BuildEvent is the wire format for build lifecycle notifications.
type BuildEvent struct {
	Type      string    `json:"type"`
	BuildID   string    `json:"buildId"`
	Project   string    `json:"project"`
	SHA       string    `json:"sha,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher publishes build events to one NATS subject.
type Publisher struct {
	conn    *nats.Conn
	subject string
}

// NewPublisher connects to NATS. Callers should treat a connection failure
// as fatal configuration, not skip events silently.
func NewPublisher(natsURL, subject string) (*Publisher, error) {
	conn, err := nats.Connect(natsURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	slog.Info("Build event publisher connected", "url", natsURL, "subject", subject)
	return &Publisher{conn: conn, subject: subject}, nil
}

// Publish emits one event. A nil Publisher drops the event, letting callers
// skip nil checks when events are not configured.
func (p *Publisher) Publish(evt BuildEvent) {
	if p == nil {
		return
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(evt)
	if err != nil {
		slog.Warn("Failed to encode build event", "type", evt.Type, "error", err)
		return
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		// Event delivery is best effort; a broker hiccup must not fail a build.
		slog.Warn("Failed to publish build event", "type", evt.Type, "error", err)
	}
}

// Close drains the connection.
func (p *Publisher) Close() {
	if p == nil {
		return
	}
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
}
