package broadcast

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kioskworks/kiosk-core/internal/kiosk"
)

// Event types pushed to display sessions.
const (
	EventConfig = "config"
	EventAction = "action"
	EventPing   = "ping"
)

// Event is a single message pushed to a session. Data carries the
// type-specific payload: a kiosk.Config for config events, an actionPayload
// for actions, nil for pings.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

type actionPayload struct {
	Action string `json:"type"`
	Value  any    `json:"value"`
}

// Sender delivers events to one connected display. Implementations live in
// the HTTP layer (SSE, websocket) and decide how each event type goes on the
// wire; ping events may become transport-level keepalives.
//
// Send must be safe to call from multiple goroutines; the hub serialises
// sends per session but Close can race a final Send.
type Sender interface {
	Send(Event) error
	Close()
}

// SessionInfo describes one connected session for the admin listing.
type SessionInfo struct {
	ID          string    `json:"id"`
	IP          string    `json:"ip"`
	UserAgent   string    `json:"userAgent,omitempty"`
	ConnectedAt time.Time `json:"connectedAt"`
	CurrentURL  string    `json:"currentUrl,omitempty"`
}

type session struct {
	info   SessionInfo
	sender Sender
}

// Hub tracks connected sessions and fans events out to them.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
//   - Fan-out happens under the hub lock, so events published from a single
//     goroutine reach every session in publication order.
type Hub struct {
	mu       sync.Mutex
	sessions map[string]*session

	maxSessions  int
	pingInterval time.Duration
	logger       *slog.Logger
}

// NewHub builds a hub capped at maxSessions with the given keepalive cadence.
func NewHub(maxSessions int, pingInterval time.Duration, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		sessions:     make(map[string]*session),
		maxSessions:  maxSessions,
		pingInterval: pingInterval,
		logger:       logger,
	}
}

// Register adds a session and returns its ID. The caller seeds the initial
// config event itself after registering. Returns ErrTooManySessions at the cap.
func (h *Hub) Register(addr, userAgent string, sender Sender) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.sessions) >= h.maxSessions {
		return "", fmt.Errorf("%w: limit %d", ErrTooManySessions, h.maxSessions)
	}

	id := uuid.NewString()
	h.sessions[id] = &session{
		info: SessionInfo{
			ID:          id,
			IP:          addr,
			UserAgent:   userAgent,
			ConnectedAt: time.Now().UTC(),
		},
		sender: sender,
	}
	h.logger.Debug("session registered", "session_id", id, "ip", addr, "sessions", len(h.sessions))
	return id, nil
}

// Unregister removes a session and closes its sender. Unknown IDs are a no-op,
// so transports can unregister unconditionally on disconnect.
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	sess, ok := h.sessions[id]
	if ok {
		delete(h.sessions, id)
	}
	remaining := len(h.sessions)
	h.mu.Unlock()

	if ok {
		sess.sender.Close()
		h.logger.Debug("session unregistered", "session_id", id, "sessions", remaining)
	}
}

// BroadcastConfig pushes a config event to every session.
func (h *Hub) BroadcastConfig(cfg kiosk.Config) {
	h.broadcast(Event{Type: EventConfig, Data: cfg}, "")
}

// BroadcastAction pushes an action event (reload, navigate, screenshot, ...)
// to every session. Value carries the action argument, e.g. a navigate URL.
func (h *Hub) BroadcastAction(action string, value any) {
	h.broadcast(Event{Type: EventAction, Data: actionPayload{Action: action, Value: value}}, "")
}

// SendToAddress pushes a config event only to sessions connected from addr.
// Returns the number of sessions reached.
func (h *Hub) SendToAddress(addr string, cfg kiosk.Config) int {
	return h.broadcast(Event{Type: EventConfig, Data: cfg}, addr)
}

// SendActionToAddress pushes an action event only to sessions connected from
// addr. Returns the number of sessions reached.
func (h *Hub) SendActionToAddress(addr, action string, value any) int {
	return h.broadcast(Event{Type: EventAction, Data: actionPayload{Action: action, Value: value}}, addr)
}

// broadcast delivers ev to every session (or only those matching addr when
// non-empty), reaping any session whose send fails. Holding the lock across
// the whole fan-out keeps per-session ordering intact.
func (h *Hub) broadcast(ev Event, addr string) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	delivered := 0
	for id, sess := range h.sessions {
		if addr != "" && sess.info.IP != addr {
			continue
		}
		if err := sess.sender.Send(ev); err != nil {
			delete(h.sessions, id)
			sess.sender.Close()
			h.logger.Debug("session dropped on send failure", "session_id", id, "error", err)
			continue
		}
		delivered++
	}
	return delivered
}

// SetCurrentURL records the URL sessions from addr report they are showing.
func (h *Hub) SetCurrentURL(addr, url string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sess := range h.sessions {
		if sess.info.IP == addr {
			sess.info.CurrentURL = url
		}
	}
}

// Sessions returns the connected sessions sorted by nothing in particular;
// the admin UI sorts client-side.
func (h *Hub) Sessions() []SessionInfo {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]SessionInfo, 0, len(h.sessions))
	for _, sess := range h.sessions {
		out = append(out, sess.info)
	}
	return out
}

// Count returns the number of connected sessions.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// Ping writes a keepalive to every session and reaps the ones that fail.
// Intermediary proxies drop idle streams; the ping keeps them open and
// doubles as dead-connection detection.
func (h *Hub) Ping() {
	h.broadcast(Event{Type: EventPing}, "")
}

// Run drives the keepalive ticker until ctx is cancelled, then closes every
// remaining session.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-ticker.C:
			h.Ping()
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	sessions := h.sessions
	h.sessions = make(map[string]*session)
	h.mu.Unlock()

	for _, sess := range sessions {
		sess.sender.Close()
	}
	if len(sessions) > 0 {
		h.logger.Info("closed all sessions on shutdown", "count", len(sessions))
	}
}
