package natsadapter

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/geopin/internal/core/domain"
)

// DefaultPositionSubject is where position requests are sent.
const DefaultPositionSubject = "geopin.position.request"

// PositionRequester implements ports.PositionProvider with NATS
// request/reply: a device listening on the subject answers with a JSON fix
// or {"error": "..."}.
type PositionRequester struct {
	conn    *nats.Conn
	subject string
}

// NewPositionRequester creates a PositionRequester on conn.
func NewPositionRequester(conn *nats.Conn, subject string) *PositionRequester {
	if subject == "" {
		subject = DefaultPositionSubject
	}
	return &PositionRequester{conn: conn, subject: subject}
}

// CurrentPosition asks the device for one fix. ctx should carry a deadline;
// without one the request waits until ctx is cancelled.
func (p *PositionRequester) CurrentPosition(ctx context.Context) (domain.PositionFix, error) {
	msg, err := p.conn.RequestWithContext(ctx, p.subject, nil)
	if err != nil {
		return domain.PositionFix{}, fmt.Errorf("%w: nats request %s: %w", domain.ErrPositionUnavailable, p.subject, err)
	}
	return domain.ParsePositionFix(msg.Data)
}
