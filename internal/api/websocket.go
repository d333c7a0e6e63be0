package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kioskworks/kiosk-core/internal/broadcast"
)

const (
	// wsWriteWait bounds each outbound write; a display that stops reading
	// gets reaped rather than blocking the hub.
	wsWriteWait = 10 * time.Second

	// wsReadLimit caps inbound frames. Displays send nothing meaningful, so
	// anything large is a misbehaving client.
	wsReadLimit = 1024
)

// upgrader configures the WebSocket upgrader.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// Origin checking is handled by CORS middleware
		return true
	},
}

// wsSender writes hub events as WebSocket messages. Pings become protocol
// ping control frames instead of data messages.
type wsSender struct {
	mu   sync.Mutex
	conn *websocket.Conn
	once sync.Once
}

func (c *wsSender) Send(ev broadcast.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	deadline := time.Now().Add(wsWriteWait)
	if ev.Type == broadcast.EventPing {
		return c.conn.WriteControl(websocket.PingMessage, nil, deadline)
	}
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return c.conn.WriteJSON(ev)
}

func (c *wsSender) Close() {
	c.once.Do(func() {
		//nolint:errcheck // Best-effort close of a possibly dead connection
		c.conn.Close()
	})
}

// handleWebSocket serves the WebSocket variant of the event stream. It joins
// the same hub as SSE sessions, so broadcasts and the session listing treat
// both transports alike.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	addr := clientAddr(r)
	sender := &wsSender{conn: conn}
	id, err := s.hub.Register(addr, r.UserAgent(), sender)
	if err != nil {
		msg := websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "too many connections")
		//nolint:errcheck // Connection is being refused; nothing to salvage
		conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wsWriteWait))
		conn.Close()
		return
	}

	if err := sender.Send(broadcast.Event{Type: broadcast.EventConfig, Data: s.kiosk.ConfigFor(addr)}); err != nil {
		s.hub.Unregister(id)
		return
	}

	// Read loop: displays send nothing, but reading surfaces disconnects and
	// answers control frames.
	conn.SetReadLimit(wsReadLimit)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	s.hub.Unregister(id)
}
