package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	handler "github.com/samirrijal/geopin/internal/adapters/http"
	"github.com/samirrijal/geopin/internal/adapters/memory"
	"github.com/samirrijal/geopin/internal/adapters/static"
	"github.com/samirrijal/geopin/internal/core/domain"
	"github.com/samirrijal/geopin/internal/core/ports"
	"github.com/samirrijal/geopin/internal/core/usecases"
)

// ---- Mock store ----

type failingKV struct {
	getErr error
	setErr error
}

func (f *failingKV) Get(ctx context.Context, key string) ([]byte, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return nil, ports.ErrKeyNotFound
}

func (f *failingKV) Set(ctx context.Context, key string, value []byte) error { return f.setErr }

func (f *failingKV) Ping(ctx context.Context) error { return f.getErr }

// ---- Helpers ----

func setupApp(deps *handler.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, deps)
	return app
}

func makeDeps(opts ...func(*handler.Dependencies)) *handler.Dependencies {
	store := memory.New()
	d := &handler.Dependencies{
		Session: usecases.NewSessionService(
			static.New(domain.PositionFix{Latitude: 37.7749, Longitude: -122.4194, Accuracy: 65}),
			usecases.NewMarkerStore(store),
		),
		Hub:         handler.NewHub(),
		Store:       store,
		StoreDriver: "memory",
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

func withSession(positions ports.PositionProvider, kv ports.KeyValueStore) func(*handler.Dependencies) {
	return func(d *handler.Dependencies) {
		d.Session = usecases.NewSessionService(positions, usecases.NewMarkerStore(kv))
	}
}

func do(t *testing.T, app *fiber.App, method, path, body string) (int, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp.StatusCode, data
}

// sessionResult covers the commit and locate responses.
type sessionResult struct {
	Marker  domain.Marker       `json:"marker"`
	Session handler.SessionView `json:"session"`
	Warning *domain.Notice      `json:"warning"`
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return v
}

// ---- Session ----

func TestGetSession_Initial(t *testing.T) {
	app := setupApp(makeDeps())

	status, body := do(t, app, "GET", "/v1/session", "")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}

	view := decode[handler.SessionView](t, body)
	if view.Version != 0 {
		t.Errorf("expected version 0, got %d", view.Version)
	}
	if view.Markers == nil || len(view.Markers) != 0 {
		t.Errorf("expected empty marker list, got %v", view.Markers)
	}
	if view.Draft != (domain.Coordinate{}) {
		t.Errorf("expected zero draft, got %+v", view.Draft)
	}
}

func TestGetSession_ETag(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/session", nil)
	resp, _ := app.Test(req, -1)
	etag := resp.Header.Get("ETag")
	if etag != `W/"v0"` {
		t.Fatalf("expected version etag, got %q", etag)
	}

	req = httptest.NewRequest("GET", "/v1/session", nil)
	req.Header.Set("If-None-Match", etag)
	resp, _ = app.Test(req, -1)
	if resp.StatusCode != 304 {
		t.Errorf("expected 304, got %d", resp.StatusCode)
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "no-cache" {
		t.Errorf("expected no-cache, got %q", cc)
	}
}

func TestSetDraftLatitude_Valid(t *testing.T) {
	deps := makeDeps()
	app := setupApp(deps)

	status, body := do(t, app, "PUT", "/v1/session/draft/latitude", `{"value":" 40.5 "}`)
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	view := decode[handler.SessionView](t, body)
	if view.Draft.Latitude != 40.5 {
		t.Errorf("expected latitude 40.5, got %v", view.Draft.Latitude)
	}
	if view.Viewport != (domain.Viewport{}) {
		t.Errorf("draft edits must not move the viewport, got %+v", view.Viewport)
	}
}

func TestSetDraft_InvalidInput(t *testing.T) {
	tests := []struct {
		path  string
		value string
	}{
		{"/v1/session/draft/latitude", "abc"},
		{"/v1/session/draft/latitude", ""},
		{"/v1/session/draft/latitude", "-"},
		{"/v1/session/draft/latitude", "91"},
		{"/v1/session/draft/latitude", "NaN"},
		{"/v1/session/draft/longitude", "181"},
		{"/v1/session/draft/longitude", "12.5.3"},
		{"/v1/session/draft/latitude", "0x1p4"},
	}

	for _, tt := range tests {
		t.Run(tt.path+"/"+tt.value, func(t *testing.T) {
			deps := makeDeps()
			app := setupApp(deps)

			status, body := do(t, app, "PUT", tt.path, fmt.Sprintf(`{"value":%q}`, tt.value))
			if status != 422 {
				t.Fatalf("expected 422, got %d", status)
			}
			apiErr := decode[handler.APIError](t, body)
			if apiErr.Code != "invalid_numeric_input" {
				t.Errorf("expected invalid_numeric_input, got %q", apiErr.Code)
			}
			if v := deps.Session.Snapshot().Version; v != 0 {
				t.Errorf("state must be unchanged, version %d", v)
			}
		})
	}
}

func TestSetDraft_BadBody(t *testing.T) {
	app := setupApp(makeDeps())

	status, _ := do(t, app, "PUT", "/v1/session/draft/longitude", `{"value":`)
	if status != 400 {
		t.Errorf("expected 400, got %d", status)
	}
}

// ---- Markers ----

func TestAddMarker_Success(t *testing.T) {
	deps := makeDeps()
	app := setupApp(deps)

	do(t, app, "PUT", "/v1/session/draft/latitude", `{"value":"10"}`)
	do(t, app, "PUT", "/v1/session/draft/longitude", `{"value":"20"}`)

	status, body := do(t, app, "POST", "/v1/markers", "")
	if status != 201 {
		t.Fatalf("expected 201, got %d: %s", status, body)
	}

	result := decode[sessionResult](t, body)

	want := domain.Coordinate{Latitude: 10, Longitude: 20}
	if result.Marker.Coordinates != want {
		t.Errorf("expected marker at %+v, got %+v", want, result.Marker.Coordinates)
	}
	if result.Warning != nil {
		t.Errorf("expected no warning, got %+v", result.Warning)
	}
	if len(result.Session.Markers) != 1 {
		t.Fatalf("expected 1 marker, got %d", len(result.Session.Markers))
	}
	if result.Session.Viewport.Center != want {
		t.Errorf("viewport should recenter on the marker, got %+v", result.Session.Viewport.Center)
	}
	if result.Session.Markers[0].DistanceM != 0 || !result.Session.Markers[0].InView {
		t.Errorf("marker at the center should be in view at 0m, got %+v", result.Session.Markers[0])
	}
}

func TestAddMarker_WriteFailureStillCommits(t *testing.T) {
	deps := makeDeps(withSession(static.Unavailable(), &failingKV{setErr: errors.New("disk full")}))
	app := setupApp(deps)

	status, body := do(t, app, "POST", "/v1/markers", "")
	if status != 201 {
		t.Fatalf("expected 201, got %d", status)
	}

	result := decode[sessionResult](t, body)
	if result.Warning == nil || result.Warning.Kind != domain.NoticeStorageWrite {
		t.Fatalf("expected storage write warning, got %+v", result.Warning)
	}
	if result.Warning.Message != "Failed to save markers." {
		t.Errorf("unexpected message %q", result.Warning.Message)
	}
	if len(result.Session.Markers) != 1 {
		t.Errorf("marker must be kept in memory, got %d", len(result.Session.Markers))
	}
}

func TestListMarkers_Pagination(t *testing.T) {
	deps := makeDeps()
	app := setupApp(deps)

	for i := 0; i < 5; i++ {
		do(t, app, "PUT", "/v1/session/draft/latitude", fmt.Sprintf(`{"value":"%d"}`, i))
		if status, _ := do(t, app, "POST", "/v1/markers", ""); status != 201 {
			t.Fatalf("commit %d: expected 201, got %d", i, status)
		}
	}

	req := httptest.NewRequest("GET", "/v1/markers?offset=1&limit=2", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if link := resp.Header.Get("Link"); !strings.Contains(link, `rel="next"`) {
		t.Errorf("expected next link, got %q", link)
	}

	var result struct {
		Data       []handler.MarkerView `json:"data"`
		Pagination handler.Pagination   `json:"pagination"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if result.Pagination.Total != 5 {
		t.Errorf("expected total 5, got %d", result.Pagination.Total)
	}
	if len(result.Data) != 2 {
		t.Fatalf("expected 2 markers, got %d", len(result.Data))
	}
	// Newest first: latitudes 4,3,2,1,0.
	if result.Data[0].Coordinates.Latitude != 3 || result.Data[1].Coordinates.Latitude != 2 {
		t.Errorf("unexpected order: %+v", result.Data)
	}
}

func TestListMarkers_OffsetPastEnd(t *testing.T) {
	app := setupApp(makeDeps())

	status, body := do(t, app, "GET", "/v1/markers?offset=10", "")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	if !strings.Contains(string(body), `"data":[]`) {
		t.Errorf("expected empty data array, got %s", body)
	}
}

// ---- Locate ----

func TestLocate_Success(t *testing.T) {
	app := setupApp(makeDeps())

	status, body := do(t, app, "POST", "/v1/session/locate", "")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}

	result := decode[sessionResult](t, body)
	if result.Warning != nil {
		t.Fatalf("unexpected warning %+v", result.Warning)
	}
	want := domain.Coordinate{Latitude: 37.7749, Longitude: -122.4194}
	if result.Session.Draft != want || result.Session.Viewport.Center != want {
		t.Errorf("expected draft and center at %+v, got %+v / %+v",
			want, result.Session.Draft, result.Session.Viewport.Center)
	}
	if d := result.Session.Viewport.LongitudeDelta; d < 0.000583 || d > 0.000585 {
		t.Errorf("unexpected longitude delta %v", d)
	}
}

func TestLocate_Unavailable(t *testing.T) {
	app := setupApp(makeDeps(withSession(static.Unavailable(), memory.New())))

	status, body := do(t, app, "POST", "/v1/session/locate", "")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}

	result := decode[sessionResult](t, body)
	if result.Warning == nil || result.Warning.Kind != domain.NoticePositionUnavailable {
		t.Fatalf("expected position warning, got %+v", result.Warning)
	}
	if result.Session.Version != 0 {
		t.Errorf("state must be untouched, version %d", result.Session.Version)
	}
}

// ---- Health ----

func TestHealth(t *testing.T) {
	app := setupApp(makeDeps())

	status, body := do(t, app, "GET", "/v1/health", "")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	if !strings.Contains(string(body), `"healthy"`) {
		t.Errorf("unexpected body %s", body)
	}
}

func TestReady(t *testing.T) {
	app := setupApp(makeDeps())

	status, body := do(t, app, "GET", "/v1/ready", "")
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
}

func TestReady_StoreDown(t *testing.T) {
	app := setupApp(makeDeps(func(d *handler.Dependencies) {
		d.Store = &failingKV{getErr: errors.New("connection refused")}
	}))

	status, body := do(t, app, "GET", "/v1/ready", "")
	if status != 503 {
		t.Fatalf("expected 503, got %d", status)
	}
	if !strings.Contains(string(body), "connection refused") {
		t.Errorf("expected store error in body, got %s", body)
	}
}

func TestWebSocket_RequiresUpgrade(t *testing.T) {
	app := setupApp(makeDeps())

	status, _ := do(t, app, "GET", "/ws", "")
	if status != fiber.StatusUpgradeRequired {
		t.Errorf("expected 426, got %d", status)
	}
}
