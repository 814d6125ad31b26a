package http_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/samirrijal/geopin/internal/adapters/memory"
	"github.com/samirrijal/geopin/internal/adapters/static"
)

type gqlResponse struct {
	Data   map[string]json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func TestGraphQL_SessionQuery(t *testing.T) {
	app := setupApp(makeDeps())

	status, body := do(t, app, "POST", "/graphql",
		`{"query":"{ session { version draft { latitude longitude } markers { distance_m } } }"}`)
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	resp := decode[gqlResponse](t, body)
	if len(resp.Errors) > 0 {
		t.Fatalf("unexpected errors: %+v", resp.Errors)
	}
	if !strings.Contains(string(resp.Data["session"]), `"markers":[]`) {
		t.Errorf("expected empty markers, got %s", resp.Data["session"])
	}
}

func TestGraphQL_DraftAndCommit(t *testing.T) {
	deps := makeDeps()
	app := setupApp(deps)

	_, body := do(t, app, "POST", "/graphql",
		`{"query":"mutation { setDraftLatitude(value: \"51.5\") { draft { latitude } } }"}`)
	resp := decode[gqlResponse](t, body)
	if len(resp.Errors) > 0 {
		t.Fatalf("unexpected errors: %+v", resp.Errors)
	}

	_, body = do(t, app, "POST", "/graphql",
		`{"query":"mutation($v: String!) { setDraftLongitude(value: $v) { version } }","variables":{"v":"-0.12"}}`)
	resp = decode[gqlResponse](t, body)
	if len(resp.Errors) > 0 {
		t.Fatalf("unexpected errors: %+v", resp.Errors)
	}

	_, body = do(t, app, "POST", "/graphql",
		`{"query":"mutation { addMarker { marker { coordinates { latitude longitude } } session { markers { in_view } } warning { kind } } }"}`)
	resp = decode[gqlResponse](t, body)
	if len(resp.Errors) > 0 {
		t.Fatalf("unexpected errors: %+v", resp.Errors)
	}

	var commit struct {
		Marker struct {
			Coordinates struct {
				Latitude  float64 `json:"latitude"`
				Longitude float64 `json:"longitude"`
			} `json:"coordinates"`
		} `json:"marker"`
		Session struct {
			Markers []struct {
				InView bool `json:"in_view"`
			} `json:"markers"`
		} `json:"session"`
		Warning *struct {
			Kind string `json:"kind"`
		} `json:"warning"`
	}
	if err := json.Unmarshal(resp.Data["addMarker"], &commit); err != nil {
		t.Fatal(err)
	}
	if commit.Marker.Coordinates.Latitude != 51.5 || commit.Marker.Coordinates.Longitude != -0.12 {
		t.Errorf("unexpected marker %+v", commit.Marker)
	}
	if len(commit.Session.Markers) != 1 || !commit.Session.Markers[0].InView {
		t.Errorf("unexpected markers %+v", commit.Session.Markers)
	}
	if commit.Warning != nil {
		t.Errorf("unexpected warning %+v", commit.Warning)
	}
	if n := len(deps.Session.Snapshot().Markers); n != 1 {
		t.Errorf("expected 1 marker in session, got %d", n)
	}
}

func TestGraphQL_InvalidDraft(t *testing.T) {
	deps := makeDeps()
	app := setupApp(deps)

	_, body := do(t, app, "POST", "/graphql",
		`{"query":"mutation { setDraftLatitude(value: \"north\") { version } }"}`)
	resp := decode[gqlResponse](t, body)
	if len(resp.Errors) != 1 || !strings.Contains(resp.Errors[0].Message, "invalid numeric input") {
		t.Fatalf("expected invalid numeric input error, got %+v", resp.Errors)
	}
	if v := deps.Session.Snapshot().Version; v != 0 {
		t.Errorf("state must be unchanged, version %d", v)
	}
}

func TestGraphQL_CommitWarning(t *testing.T) {
	app := setupApp(makeDeps(withSession(static.Unavailable(), &failingKV{setErr: errors.New("read-only")})))

	_, body := do(t, app, "POST", "/graphql",
		`{"query":"mutation { addMarker { warning { kind message } } }"}`)
	resp := decode[gqlResponse](t, body)
	if len(resp.Errors) > 0 {
		t.Fatalf("unexpected errors: %+v", resp.Errors)
	}
	if !strings.Contains(string(resp.Data["addMarker"]), `"storage_write_failure"`) {
		t.Errorf("expected storage warning, got %s", resp.Data["addMarker"])
	}
}

func TestGraphQL_BadBody(t *testing.T) {
	app := setupApp(makeDeps(withSession(static.Unavailable(), memory.New())))

	status, _ := do(t, app, "POST", "/graphql", `not json`)
	if status != 400 {
		t.Errorf("expected 400, got %d", status)
	}
}
