package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/geopin/internal/core/domain"
	"github.com/samirrijal/geopin/internal/pkg/metrics"
)

// Frame types pushed to map displays.
const (
	frameState  = "state"
	frameNotice = "notice"
)

// wsFrame is one server-to-client message.
type wsFrame struct {
	Type   string         `json:"type"`
	State  *SessionView   `json:"state,omitempty"`
	Notice *domain.Notice `json:"notice,omitempty"`
}

// wsMessage is sent from client to server.
type wsMessage struct {
	Action string `json:"action"` // "snapshot"
}

// clientBuffer is how many frames a slow client may fall behind before
// frames are dropped for it.
const clientBuffer = 32

type wsClient struct {
	send chan []byte
}

// Hub fans session state and notices out to connected map displays. It
// implements ports.Notifier and ports.StatePublisher.
type Hub struct {
	mu      sync.Mutex
	clients map[*wsClient]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*wsClient]struct{})}
}

// PublishState pushes a state frame to every client.
func (h *Hub) PublishState(_ context.Context, st domain.SessionState) error {
	view := newSessionView(st)
	data, err := json.Marshal(wsFrame{Type: frameState, State: &view})
	if err != nil {
		return err
	}
	h.broadcast(data)
	return nil
}

// Notify pushes a notice frame to every client.
func (h *Hub) Notify(ctx context.Context, n domain.Notice) {
	data, err := json.Marshal(wsFrame{Type: frameNotice, Notice: &n})
	if err != nil {
		slog.ErrorContext(ctx, "encode notice frame", "error", err)
		return
	}
	h.broadcast(data)
}

// Clients returns the number of connected displays.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) broadcast(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for cl := range h.clients {
		select {
		case cl.send <- data:
		default:
			slog.Warn("ws client too slow, frame dropped")
		}
	}
}

func (h *Hub) register() *wsClient {
	cl := &wsClient{send: make(chan []byte, clientBuffer)}
	h.mu.Lock()
	h.clients[cl] = struct{}{}
	h.mu.Unlock()
	metrics.ActiveWebSockets.Inc()
	return cl
}

func (h *Hub) unregister(cl *wsClient) {
	h.mu.Lock()
	delete(h.clients, cl)
	h.mu.Unlock()
	metrics.ActiveWebSockets.Dec()
}

// WebSocketHandler returns a handler that upgrades to WebSocket, sends the
// current snapshot, then relays every state and notice frame.
// Clients may send {"action":"snapshot"} to get the current state again.
func WebSocketHandler(deps *Dependencies) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		remoteAddr := c.RemoteAddr().String()
		slog.Info("ws client connected", "remote", remoteAddr)

		cl := deps.Hub.register()
		defer deps.Hub.unregister(cl)

		var mu sync.Mutex
		write := func(msgType int, data []byte) error {
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(msgType, data)
		}
		writeState := func() error {
			view := newSessionView(deps.Session.Snapshot())
			data, err := json.Marshal(wsFrame{Type: frameState, State: &view})
			if err != nil {
				return err
			}
			return write(websocket.TextMessage, data)
		}

		if err := writeState(); err != nil {
			return
		}

		// Relay hub frames plus keep-alive pings.
		done := make(chan struct{})
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case data := <-cl.send:
					if err := write(websocket.TextMessage, data); err != nil {
						return
					}
				case <-ticker.C:
					if err := write(websocket.PingMessage, nil); err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m wsMessage
			if err := json.Unmarshal(msg, &m); err != nil {
				_ = write(websocket.TextMessage, []byte(`{"error":"invalid JSON"}`))
				continue
			}
			switch m.Action {
			case "snapshot":
				_ = writeState()
			default:
				_ = write(websocket.TextMessage, []byte(`{"error":"unknown action"}`))
			}
		}

		close(done)
		slog.Info("ws client disconnected", "remote", remoteAddr)
	}
}
