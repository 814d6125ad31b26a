package telemetry

// Span names used for instrumentation.
const (
	// Session transitions
	SpanLocate      = "session.locate"
	SpanLoadMarkers = "session.load_markers"
	SpanAddMarker   = "session.add_marker"

	// Attributes
	AttrLatitude    = "geo.latitude"
	AttrLongitude   = "geo.longitude"
	AttrAccuracy    = "geo.accuracy"
	AttrMarkerCount = "markers.count"
)
