package handler

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/yourorg/catalogapi/internal/domain"
	"github.com/yourorg/catalogapi/internal/security"
	"github.com/yourorg/catalogapi/internal/security/middleware"
)

// Event is a single entity-change notification. One event is published for
// every committed write, after its cache invalidation.
type Event struct {
	Kind   string    `json:"kind"`
	Action string    `json:"action"`
	ID     int64     `json:"id"`
	At     time.Time `json:"at"`
}

// EventsHub broadcasts entity-change events to connected admin clients.
// Publishing never blocks a write request; a slow client is dropped.
type EventsHub struct {
	mu             sync.Mutex
	clients        map[*websocket.Conn]struct{}
	logger         *slog.Logger
	authorizer     *security.Authorizer
	allowedOrigins []string
}

// NewEventsHub creates a new events hub
func NewEventsHub(authorizer *security.Authorizer, allowedOrigins []string, logger *slog.Logger) *EventsHub {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventsHub{
		clients:        make(map[*websocket.Conn]struct{}),
		logger:         logger,
		authorizer:     authorizer,
		allowedOrigins: allowedOrigins,
	}
}

// Publish sends an event to every connected client.
func (h *EventsHub) Publish(kind domain.Kind, action string, id int64) {
	event := Event{Kind: kind.Singular, Action: action, ID: id, At: time.Now().UTC()}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteJSON(event); err != nil {
			h.logger.Debug("dropping slow events client", slog.String("error", err.Error()))
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

// upgrader is initialized per-request to use instance's allowed origins
func (h *EventsHub) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				// Allow requests with no origin (e.g., non-browser clients)
				return true
			}
			for _, allowed := range h.allowedOrigins {
				if origin == allowed {
					return true
				}
			}
			h.logger.Warn("websocket origin rejected", slog.String("origin", origin))
			return false
		},
	}
}

// ServeHTTP handles GET /ws/events requests
func (h *EventsHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		writeError(w, domain.ErrUnauthorized, h.logger)
		return
	}
	if err := h.authorizer.RequireGlobalAdmin(p); err != nil {
		writeError(w, err, h.logger)
		return
	}

	upgrader := h.getUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()

	h.logger.Info("events client connected", slog.Int64("user_id", p.UserID))

	// Heartbeat ping to keep connection alive
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				_ = conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second))
			case <-done:
				return
			}
		}
	}()

	// Clients never send data; the read loop only detects disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	close(done)

	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	conn.Close()

	h.logger.Debug("events client disconnected", slog.Int64("user_id", p.UserID))
}

// Close disconnects every client, typically during shutdown.
func (h *EventsHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.Close()
		delete(h.clients, conn)
	}
}
