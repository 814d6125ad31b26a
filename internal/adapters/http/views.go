package http

import (
	"github.com/samirrijal/geopin/internal/core/domain"
	"github.com/samirrijal/geopin/internal/pkg/geospatial"
)

// MarkerView is a marker as shown to clients, with its distance from the
// viewport center.
type MarkerView struct {
	Coordinates domain.Coordinate `json:"coordinates"`
	DistanceM   float64           `json:"distance_m"`
	InView      bool              `json:"in_view"`
}

// SessionView is the client representation of a session snapshot.
type SessionView struct {
	Version  uint64            `json:"version"`
	Viewport domain.Viewport   `json:"viewport"`
	Bounds   domain.Bounds     `json:"bounds"`
	Draft    domain.Coordinate `json:"draft"`
	Markers  []MarkerView      `json:"markers"`
}

func newSessionView(st domain.SessionState) SessionView {
	return SessionView{
		Version:  st.Version,
		Viewport: st.Viewport,
		Bounds:   st.Viewport.Bounds(),
		Draft:    st.Draft,
		Markers:  markerViews(st.Viewport, st.Markers),
	}
}

func markerViews(vp domain.Viewport, markers domain.MarkerCollection) []MarkerView {
	out := make([]MarkerView, len(markers))
	for i, m := range markers {
		out[i] = MarkerView{
			Coordinates: m.Coordinates,
			DistanceM: geospatial.Haversine(
				vp.Center.Latitude, vp.Center.Longitude,
				m.Coordinates.Latitude, m.Coordinates.Longitude,
			),
			InView: vp.Contains(m.Coordinates),
		}
	}
	return out
}
