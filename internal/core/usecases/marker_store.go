package usecases

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/samirrijal/geopin/internal/core/domain"
	"github.com/samirrijal/geopin/internal/core/ports"
)

// MarkersKey is the fixed key the marker collection is stored under.
const MarkersKey = "MARKERS"

// MarkerStore serializes the marker collection to a key-value store.
// It holds no marker state of its own.
type MarkerStore struct {
	kv ports.KeyValueStore
}

// NewMarkerStore creates a new MarkerStore.
func NewMarkerStore(kv ports.KeyValueStore) *MarkerStore {
	return &MarkerStore{kv: kv}
}

// Load returns the persisted markers, newest first. The returned collection
// is always usable: on an absent key it is empty with a nil error, and on a
// read or decode failure it is empty with an error wrapping
// domain.ErrStorageRead that callers treat as a warning. Records with an
// out-of-range coordinate are dropped and reported the same way; the valid
// ones are still returned so the next full write keeps them.
func (s *MarkerStore) Load(ctx context.Context) (domain.MarkerCollection, error) {
	data, err := s.kv.Get(ctx, MarkersKey)
	if errors.Is(err, ports.ErrKeyNotFound) {
		return domain.MarkerCollection{}, nil
	}
	if err != nil {
		return domain.MarkerCollection{}, fmt.Errorf("%w: get %s: %w", domain.ErrStorageRead, MarkersKey, err)
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return domain.MarkerCollection{}, nil
	}

	var decoded domain.MarkerCollection
	if err := json.Unmarshal(data, &decoded); err != nil {
		return domain.MarkerCollection{}, fmt.Errorf("%w: decode %s: %w", domain.ErrStorageRead, MarkersKey, err)
	}

	markers := make(domain.MarkerCollection, 0, len(decoded))
	var invalid []error
	for i, m := range decoded {
		if err := m.Coordinates.Validate(); err != nil {
			invalid = append(invalid, fmt.Errorf("marker %d: %w", i, err))
			continue
		}
		markers = append(markers, m)
	}
	if len(invalid) > 0 {
		return markers, fmt.Errorf("%w: %d invalid record(s) skipped: %w",
			domain.ErrStorageRead, len(invalid), errors.Join(invalid...))
	}
	return markers, nil
}

// Append writes [marker, existing...] in full and returns that collection.
// The collection is returned even when the write fails; the error then
// wraps domain.ErrStorageWrite and durable storage no longer matches it.
func (s *MarkerStore) Append(ctx context.Context, marker domain.Marker, existing domain.MarkerCollection) (domain.MarkerCollection, error) {
	next := existing.Prepend(marker)

	data, err := json.Marshal(next)
	if err != nil {
		return next, fmt.Errorf("%w: encode markers: %w", domain.ErrStorageWrite, err)
	}
	if err := s.kv.Set(ctx, MarkersKey, data); err != nil {
		return next, fmt.Errorf("%w: set %s: %w", domain.ErrStorageWrite, MarkersKey, err)
	}
	return next, nil
}
