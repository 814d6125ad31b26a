package domain

import (
	"errors"
	"time"
)

// Failure categories. Adapters and services wrap these with %w.
var (
	// ErrPositionUnavailable means the geolocation source denied or failed the request.
	ErrPositionUnavailable = errors.New("position unavailable")
	// ErrStorageRead means persisted markers were unreachable or corrupt.
	ErrStorageRead = errors.New("storage read failure")
	// ErrStorageWrite means an append could not be durably saved.
	ErrStorageWrite = errors.New("storage write failure")
	// ErrInvalidNumericInput means typed text is not a usable number. It is
	// expected while typing and is never surfaced as a notice.
	ErrInvalidNumericInput = errors.New("invalid numeric input")
)

// NoticeKind identifies the capability failure behind a Notice.
type NoticeKind string

const (
	NoticePositionUnavailable NoticeKind = "position_unavailable"
	NoticeStorageRead         NoticeKind = "storage_read_failure"
	NoticeStorageWrite        NoticeKind = "storage_write_failure"
)

// Notice is a non-blocking, user-visible warning.
type Notice struct {
	Kind    NoticeKind `json:"kind"`
	Title   string     `json:"title"`
	Message string     `json:"message"`
	Err     string     `json:"error,omitempty"`
	Time    time.Time  `json:"time"`
}

var noticeMessages = map[NoticeKind]string{
	NoticePositionUnavailable: "Failed to get current location.",
	NoticeStorageRead:         "Failed to connect to storage.",
	NoticeStorageWrite:        "Failed to save markers.",
}

// NewNotice builds the notice for a failure of the given kind.
func NewNotice(kind NoticeKind, cause error) Notice {
	n := Notice{
		Kind:    kind,
		Title:   "Error",
		Message: noticeMessages[kind],
		Time:    time.Now().UTC(),
	}
	if cause != nil {
		n.Err = cause.Error()
	}
	return n
}

// NoticeKindFor maps a wrapped failure to its notice kind.
func NoticeKindFor(err error) (NoticeKind, bool) {
	switch {
	case errors.Is(err, ErrPositionUnavailable):
		return NoticePositionUnavailable, true
	case errors.Is(err, ErrStorageRead):
		return NoticeStorageRead, true
	case errors.Is(err, ErrStorageWrite):
		return NoticeStorageWrite, true
	}
	return "", false
}
