package domain

// DraftEdits counts user edits per draft field. A position fix compares it
// with the value seen when acquisition started to find fields the user
// changed in the meantime.
type DraftEdits struct {
	Latitude  uint64
	Longitude uint64
}

// SessionState is an immutable snapshot of one map session. Transitions
// return a new value; they never mutate the receiver.
type SessionState struct {
	Viewport Viewport         `json:"viewport"`
	Draft    Coordinate       `json:"draft"`
	Markers  MarkerCollection `json:"markers"`
	Version  uint64           `json:"version"`
	Edits    DraftEdits       `json:"-"`
}

// NewSessionState returns the zero session with an empty, non-nil marker list.
func NewSessionState() SessionState {
	return SessionState{Markers: MarkerCollection{}}
}

func (s SessionState) next() SessionState {
	s.Version++
	return s
}

// ApplyFix folds a position fix into the session. The viewport always
// moves to vp; each draft field takes the fix value unless the user edited
// it after seen was captured.
func (s SessionState) ApplyFix(fix PositionFix, vp Viewport, seen DraftEdits) SessionState {
	out := s.next()
	out.Viewport = vp
	if s.Edits.Latitude == seen.Latitude {
		out.Draft.Latitude = fix.Latitude
	}
	if s.Edits.Longitude == seen.Longitude {
		out.Draft.Longitude = fix.Longitude
	}
	return out
}

// EditLatitude replaces the draft latitude only.
func (s SessionState) EditLatitude(lat float64) SessionState {
	out := s.next()
	out.Draft.Latitude = lat
	out.Edits.Latitude++
	return out
}

// EditLongitude replaces the draft longitude only.
func (s SessionState) EditLongitude(lon float64) SessionState {
	out := s.next()
	out.Draft.Longitude = lon
	out.Edits.Longitude++
	return out
}

// LoadMarkers installs the persisted collection.
func (s SessionState) LoadMarkers(markers MarkerCollection) SessionState {
	out := s.next()
	if markers == nil {
		markers = MarkerCollection{}
	}
	out.Markers = markers.Clone()
	return out
}

// Commit prepends m to the markers and moves the viewport to vp.
func (s SessionState) Commit(m Marker, vp Viewport) SessionState {
	out := s.next()
	out.Markers = s.Markers.Prepend(m)
	out.Viewport = vp
	return out
}
