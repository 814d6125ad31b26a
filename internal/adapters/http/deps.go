package http

import (
	"github.com/nats-io/nats.go"

	"github.com/samirrijal/geopin/internal/core/ports"
	"github.com/samirrijal/geopin/internal/core/usecases"
)

// Dependencies holds everything the HTTP handlers need.
type Dependencies struct {
	Session *usecases.SessionService
	Hub     *Hub

	// Store is pinged by the readiness check. StoreDriver names it.
	Store       ports.Pinger
	StoreDriver string

	NATS *nats.Conn

	// RateLimit is requests per minute per IP; zero disables limiting.
	RateLimit int
}
