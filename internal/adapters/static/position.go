package static

import (
	"context"
	"fmt"

	"github.com/samirrijal/geopin/internal/core/domain"
)

// PositionSource implements ports.PositionProvider with a configured fix.
// A nil fix means the host has no position capability.
type PositionSource struct {
	fix *domain.PositionFix
}

// New returns a source that always answers with fix.
func New(fix domain.PositionFix) *PositionSource {
	return &PositionSource{fix: &fix}
}

// Unavailable returns a source that always fails.
func Unavailable() *PositionSource {
	return &PositionSource{}
}

// CurrentPosition returns the configured fix.
func (p *PositionSource) CurrentPosition(ctx context.Context) (domain.PositionFix, error) {
	if err := ctx.Err(); err != nil {
		return domain.PositionFix{}, fmt.Errorf("%w: %w", domain.ErrPositionUnavailable, err)
	}
	if p.fix == nil {
		return domain.PositionFix{}, fmt.Errorf("%w: no position source configured", domain.ErrPositionUnavailable)
	}
	if err := p.fix.Validate(); err != nil {
		return domain.PositionFix{}, fmt.Errorf("%w: %w", domain.ErrPositionUnavailable, err)
	}
	return *p.fix, nil
}
