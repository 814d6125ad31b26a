package usecases

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/samirrijal/geopin/internal/core/domain"
	"github.com/samirrijal/geopin/internal/core/ports"
	"github.com/samirrijal/geopin/internal/pkg/geospatial"
	"github.com/samirrijal/geopin/internal/pkg/metrics"
	"github.com/samirrijal/geopin/internal/pkg/telemetry"
)

var tracer = otel.Tracer("github.com/samirrijal/geopin/internal/core/usecases")

// SessionOption configures a SessionService.
type SessionOption func(*SessionService)

// WithNotifier sets where capability failures are reported.
func WithNotifier(n ports.Notifier) SessionOption {
	return func(s *SessionService) { s.notifier = n }
}

// WithLatitudeDelta overrides the latitude span conversion.
func WithLatitudeDelta(fn geospatial.DeltaFunc) SessionOption {
	return func(s *SessionService) { s.latitudeDelta = fn }
}

// WithCapabilityTimeout bounds each position and storage call. Zero disables it.
func WithCapabilityTimeout(d time.Duration) SessionOption {
	return func(s *SessionService) { s.timeout = d }
}

// SessionService owns the state of one map session: the viewport, the
// draft coordinate and the marker list. Every transition replaces the
// state snapshot under mu; capability calls happen outside it.
type SessionService struct {
	positions     ports.PositionProvider
	markers       *MarkerStore
	notifier      ports.Notifier
	latitudeDelta geospatial.DeltaFunc
	timeout       time.Duration

	mu     sync.Mutex
	state  domain.SessionState
	subs   map[int]func(domain.SessionState)
	nextID int

	// notifyMu keeps subscriber callbacks in version order.
	notifyMu sync.Mutex

	// commitMu serializes commits so each append sees the previous one.
	commitMu sync.Mutex

	startOnce sync.Once
	started   atomic.Bool
	loadOnce  sync.Once
	loaded    chan struct{}
	group     errgroup.Group
}

// NewSessionService creates a new SessionService.
func NewSessionService(positions ports.PositionProvider, markers *MarkerStore, opts ...SessionOption) *SessionService {
	s := &SessionService{
		positions:     positions,
		markers:       markers,
		notifier:      noopNotifier{},
		latitudeDelta: geospatial.LatitudeDelta,
		state:         domain.NewSessionState(),
		subs:          make(map[int]func(domain.SessionState)),
		loaded:        make(chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Start requests the current position and loads persisted markers
// concurrently. Each arm updates its own part of the state as soon as it
// completes; neither waits for the other. Later calls are no-ops.
func (s *SessionService) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		s.started.Store(true)
		s.group.Go(func() error {
			_ = s.Locate(ctx)
			return nil
		})
		s.group.Go(func() error {
			s.ensureLoaded(ctx)
			return nil
		})
	})
}

// ensureLoaded loads the persisted markers exactly once.
func (s *SessionService) ensureLoaded(ctx context.Context) {
	s.loadOnce.Do(func() {
		defer close(s.loaded)
		s.loadMarkers(ctx)
	})
}

// Wait blocks until both startup arms have finished. It returns at once if
// Start was never called.
func (s *SessionService) Wait() error {
	return s.group.Wait()
}

// Snapshot returns the current state.
func (s *SessionService) Snapshot() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers fn to receive every new snapshot. fn runs on the
// goroutine that performed the transition, in version order. It may call
// Snapshot but not transition methods. The returned func removes the subscription.
func (s *SessionService) Subscribe(fn func(domain.SessionState)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Locate requests a position fix. On success the draft and viewport follow
// the fix, except draft fields the user edited while the request was in
// flight. On failure the state is left alone and a notice is emitted; the
// returned error wraps domain.ErrPositionUnavailable.
func (s *SessionService) Locate(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, telemetry.SpanLocate)
	defer span.End()

	seen := s.Snapshot().Edits

	callCtx, cancel := s.capabilityContext(ctx)
	start := time.Now()
	fix, err := s.positions.CurrentPosition(callCtx)
	cancel()
	metrics.PositionFixDuration.Observe(time.Since(start).Seconds())

	if err == nil {
		err = fix.Validate()
	}
	if err != nil {
		if !errors.Is(err, domain.ErrPositionUnavailable) {
			err = fmt.Errorf("%w: %w", domain.ErrPositionUnavailable, err)
		}
		s.warn(ctx, span, domain.NoticePositionUnavailable, err)
		return err
	}

	span.SetAttributes(
		attribute.Float64(telemetry.AttrLatitude, fix.Latitude),
		attribute.Float64(telemetry.AttrLongitude, fix.Longitude),
		attribute.Float64(telemetry.AttrAccuracy, fix.Accuracy),
	)

	vp := s.viewport(fix.Coordinate(), fix.AccuracyOrDefault())
	s.apply(func(st domain.SessionState) domain.SessionState {
		return st.ApplyFix(fix, vp, seen)
	})
	return nil
}

func (s *SessionService) loadMarkers(ctx context.Context) {
	ctx, span := tracer.Start(ctx, telemetry.SpanLoadMarkers)
	defer span.End()

	callCtx, cancel := s.capabilityContext(ctx)
	markers, err := s.markers.Load(callCtx)
	cancel()

	s.apply(func(st domain.SessionState) domain.SessionState {
		return st.LoadMarkers(markers)
	})
	span.SetAttributes(attribute.Int(telemetry.AttrMarkerCount, len(markers)))

	if err != nil {
		s.warn(ctx, span, domain.NoticeStorageRead, err)
	}
}

// SetDraftLatitude parses text and, if it is a valid latitude, replaces the
// draft latitude. Otherwise it returns an error wrapping
// domain.ErrInvalidNumericInput and the state is unchanged.
func (s *SessionService) SetDraftLatitude(text string) error {
	lat, err := parseDraftValue(text)
	if err == nil {
		err = domain.ValidateLatitude(lat)
	}
	if err != nil {
		return fmt.Errorf("%w: latitude %q: %w", domain.ErrInvalidNumericInput, text, err)
	}
	s.apply(func(st domain.SessionState) domain.SessionState {
		return st.EditLatitude(lat)
	})
	return nil
}

// SetDraftLongitude is SetDraftLatitude for the longitude field.
func (s *SessionService) SetDraftLongitude(text string) error {
	lon, err := parseDraftValue(text)
	if err == nil {
		err = domain.ValidateLongitude(lon)
	}
	if err != nil {
		return fmt.Errorf("%w: longitude %q: %w", domain.ErrInvalidNumericInput, text, err)
	}
	s.apply(func(st domain.SessionState) domain.SessionState {
		return st.EditLongitude(lon)
	})
	return nil
}

// AddMarker commits the draft as a new marker. The marker is prepended to
// the in-memory list and the viewport recenters on it whatever the
// persistence outcome. Manual commits have no sensor reading, so the span
// uses domain.DefaultAccuracy. A failed write returns an error wrapping
// domain.ErrStorageWrite together with the committed marker.
//
// Commits wait for the persisted markers to be loaded so the full write
// never drops them. Without Start, the first commit loads them itself.
func (s *SessionService) AddMarker(ctx context.Context) (domain.Marker, error) {
	ctx, span := tracer.Start(ctx, telemetry.SpanAddMarker)
	defer span.End()

	if !s.started.Load() {
		s.ensureLoaded(ctx)
	}
	select {
	case <-s.loaded:
	case <-ctx.Done():
		return domain.Marker{}, ctx.Err()
	}

	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	current := s.Snapshot()
	marker := domain.Marker{Coordinates: current.Draft}
	span.SetAttributes(
		attribute.Float64(telemetry.AttrLatitude, marker.Coordinates.Latitude),
		attribute.Float64(telemetry.AttrLongitude, marker.Coordinates.Longitude),
	)

	callCtx, cancel := s.capabilityContext(ctx)
	_, err := s.markers.Append(callCtx, marker, current.Markers)
	cancel()

	vp := s.viewport(marker.Coordinates, domain.DefaultAccuracy)
	s.apply(func(st domain.SessionState) domain.SessionState {
		return st.Commit(marker, vp)
	})
	metrics.MarkersCommitted.Inc()

	if err != nil {
		s.warn(ctx, span, domain.NoticeStorageWrite, err)
		return marker, err
	}
	return marker, nil
}

func (s *SessionService) viewport(center domain.Coordinate, accuracy float64) domain.Viewport {
	return domain.Viewport{
		Center:         center,
		LatitudeDelta:  s.latitudeDelta(center.Latitude, accuracy),
		LongitudeDelta: geospatial.LongitudeDelta(accuracy),
	}
}

// apply runs one transition and hands the result to subscribers.
func (s *SessionService) apply(fn func(domain.SessionState) domain.SessionState) domain.SessionState {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	s.state = fn(s.state)
	next := s.state
	subs := make([]func(domain.SessionState), 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub(next)
	}
	return next
}

func (s *SessionService) warn(ctx context.Context, span trace.Span, kind domain.NoticeKind, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, string(kind))
	metrics.CapabilityFailures.WithLabelValues(string(kind)).Inc()
	s.notifier.Notify(ctx, domain.NewNotice(kind, err))
}

func (s *SessionService) capabilityContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// parseDraftValue accepts plain decimal text only. Go literal forms such as
// hex floats or digit separators are rejected.
func parseDraftValue(text string) (float64, error) {
	text = strings.TrimSpace(text)
	if strings.ContainsAny(text, "xX_") {
		return 0, errors.New("not a decimal number")
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.New("not a finite number")
	}
	return v, nil
}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, domain.Notice) {}
