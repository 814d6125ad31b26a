package http

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/geopin/internal/core/domain"
)

// draftRequest carries the raw text of one draft field. The value stays a
// string so partial input such as "-" or "12." reaches the parser as typed.
type draftRequest struct {
	Value string `json:"value"`
}

// commitResponse is returned by POST /v1/markers.
type commitResponse struct {
	Marker  domain.Marker  `json:"marker"`
	Session SessionView    `json:"session"`
	Warning *domain.Notice `json:"warning,omitempty"`
}

// locateResponse is returned by POST /v1/session/locate.
type locateResponse struct {
	Session SessionView    `json:"session"`
	Warning *domain.Notice `json:"warning,omitempty"`
}

// GetSessionHandler returns the current session snapshot.
func GetSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		st := deps.Session.Snapshot()
		c.Set(fiber.HeaderETag, versionETag(st.Version))
		return c.JSON(newSessionView(st))
	}
}

// SetDraftLatitudeHandler replaces the draft latitude with the parsed body value.
func SetDraftLatitudeHandler(deps *Dependencies) fiber.Handler {
	return draftHandler(deps.Session.SetDraftLatitude, deps)
}

// SetDraftLongitudeHandler replaces the draft longitude with the parsed body value.
func SetDraftLongitudeHandler(deps *Dependencies) fiber.Handler {
	return draftHandler(deps.Session.SetDraftLongitude, deps)
}

func draftHandler(set func(string) error, deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req draftRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "body must be {\"value\": \"<number>\"}")
		}
		if err := set(req.Value); err != nil {
			if errors.Is(err, domain.ErrInvalidNumericInput) {
				return errUnprocessable(c, err.Error())
			}
			return errInternal(c, err.Error())
		}
		return c.JSON(newSessionView(deps.Session.Snapshot()))
	}
}

// AddMarkerHandler commits the draft as a marker. A failed write still
// commits in memory; the response then carries the notice as a warning.
func AddMarkerHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		marker, err := deps.Session.AddMarker(c.UserContext())
		resp := commitResponse{Marker: marker}
		if err != nil {
			if !errors.Is(err, domain.ErrStorageWrite) {
				return errUnavailable(c, err.Error())
			}
			resp.Warning = warningFor(err)
		}
		resp.Session = newSessionView(deps.Session.Snapshot())
		return c.Status(fiber.StatusCreated).JSON(resp)
	}
}

// ListMarkersHandler returns the marker list, newest first, paginated.
func ListMarkersHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		st := deps.Session.Snapshot()
		return c.JSON(paginate(c, markerViews(st.Viewport, st.Markers), 100, 500))
	}
}

// LocateHandler asks the position source for a new fix. A failed fix is
// not an HTTP error; the unchanged session comes back with a warning.
func LocateHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var resp locateResponse
		if err := deps.Session.Locate(c.UserContext()); err != nil {
			resp.Warning = warningFor(err)
		}
		resp.Session = newSessionView(deps.Session.Snapshot())
		return c.JSON(resp)
	}
}

func warningFor(err error) *domain.Notice {
	kind, ok := domain.NoticeKindFor(err)
	if !ok {
		return nil
	}
	n := domain.NewNotice(kind, err)
	return &n
}

func versionETag(version uint64) string {
	return `W/"v` + strconv.FormatUint(version, 10) + `"`
}
