package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/geopin/internal/core/domain"
	"github.com/samirrijal/geopin/internal/pkg/logging"
)

type recorder struct {
	got []domain.Notice
}

func (r *recorder) Notify(_ context.Context, n domain.Notice) {
	r.got = append(r.got, n)
}

func TestLog_WritesWarning(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	NewLog(logger).Notify(context.Background(),
		domain.NewNotice(domain.NoticeStorageWrite, errors.New("disk full")))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "WARN", line["level"])
	assert.Equal(t, "Failed to save markers.", line["msg"])
	assert.Equal(t, "storage_write_failure", line["kind"])
	assert.Equal(t, "disk full", line["error"])
}

func TestLog_UsesContextLogger(t *testing.T) {
	var buf bytes.Buffer
	scoped := slog.New(slog.NewJSONHandler(&buf, nil)).With("request_id", "r-1")
	ctx := logging.IntoContext(context.Background(), scoped)

	NewLog(nil).Notify(ctx, domain.NewNotice(domain.NoticePositionUnavailable, nil))

	assert.Contains(t, buf.String(), `"request_id":"r-1"`)
	assert.Contains(t, buf.String(), "Failed to get current location.")
}

func TestFanout_DeliversToAll(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	n := domain.NewNotice(domain.NoticePositionUnavailable, nil)

	Fanout(a, nil, b).Notify(context.Background(), n)

	assert.Equal(t, []domain.Notice{n}, a.got)
	assert.Equal(t, []domain.Notice{n}, b.got)
}

func TestFanout_Empty(t *testing.T) {
	assert.NotPanics(t, func() {
		Fanout().Notify(context.Background(), domain.NewNotice(domain.NoticeStorageRead, nil))
	})
}
