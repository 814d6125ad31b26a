// Package notify holds ports.Notifier implementations that do not need a
// broker: a structured log sink and a fan-out.
package notify

import (
	"context"
	"log/slog"

	"github.com/samirrijal/geopin/internal/core/domain"
	"github.com/samirrijal/geopin/internal/core/ports"
	"github.com/samirrijal/geopin/internal/pkg/logging"
)

// Log writes every notice as a warning.
type Log struct {
	logger *slog.Logger
}

// NewLog returns a Log notifier. With a nil logger each notice goes to the
// request-scoped logger in its context, if any.
func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logger}
}

// Notify logs the notice at warn level.
func (l *Log) Notify(ctx context.Context, n domain.Notice) {
	logger := l.logger
	if logger == nil {
		logger = logging.FromContext(ctx)
	}
	logger.WarnContext(ctx, n.Message,
		"kind", n.Kind,
		"title", n.Title,
		"error", n.Err,
	)
}

// Multi delivers each notice to every notifier in order.
type Multi []ports.Notifier

// Fanout drops nil entries.
func Fanout(notifiers ...ports.Notifier) Multi {
	out := make(Multi, 0, len(notifiers))
	for _, n := range notifiers {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}

// Notify forwards n to each notifier in turn.
func (m Multi) Notify(ctx context.Context, n domain.Notice) {
	for _, target := range m {
		target.Notify(ctx, n)
	}
}
