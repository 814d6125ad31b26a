package ports

import (
	"context"

	"github.com/samirrijal/geopin/internal/core/domain"
)

// PositionProvider yields a single position reading. It is one-shot, not a stream.
type PositionProvider interface {
	CurrentPosition(ctx context.Context) (domain.PositionFix, error)
}

// Notifier delivers non-blocking warnings to the user.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notice)
}

// StatePublisher pushes session snapshots to display consumers.
type StatePublisher interface {
	PublishState(ctx context.Context, state domain.SessionState) error
}
