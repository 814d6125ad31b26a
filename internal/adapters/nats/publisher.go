package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/geopin/internal/core/domain"
)

// Subjects for session fan-out.
const (
	SubjectState  = "geopin.session.state"
	SubjectNotice = "geopin.session.notice"
)

// Publisher implements ports.Notifier and ports.StatePublisher using NATS.
// Notices go through JetStream so late consumers can replay them; state
// snapshots are plain core NATS messages since only the latest matters.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher enables JetStream on conn and ensures the notice stream exists.
func NewPublisher(conn *nats.Conn) (*Publisher, error) {
	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	cfg := nats.StreamConfig{
		Name:      "GEOPIN_NOTICES",
		Subjects:  []string{SubjectNotice},
		Retention: nats.LimitsPolicy,
		MaxAge:    24 * time.Hour,
		Storage:   nats.FileStorage,
	}
	if _, err := js.AddStream(&cfg); err != nil {
		// Stream may already exist, try update
		if _, err := js.UpdateStream(&cfg); err != nil {
			return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

// Notify publishes a notice. Failures are logged, never returned.
func (p *Publisher) Notify(ctx context.Context, n domain.Notice) {
	data, err := json.Marshal(n)
	if err != nil {
		slog.ErrorContext(ctx, "encode notice", "error", err)
		return
	}
	if _, err := p.js.Publish(SubjectNotice, data, nats.Context(ctx)); err != nil {
		slog.WarnContext(ctx, "publish notice", "kind", n.Kind, "error", err)
	}
}

// PublishState publishes a session snapshot.
func (p *Publisher) PublishState(ctx context.Context, state domain.SessionState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return p.conn.Publish(SubjectState, data)
}
