package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/kioskworks/kiosk-core/internal/broadcast"
)

// errStreamClosed is returned by Send after the stream has been closed so the
// hub reaps the session.
var errStreamClosed = errors.New("api: stream closed")

// sseSender writes hub events as Server-Sent Events frames.
//
// Pings become SSE comments (": ping") rather than events: intermediaries
// keep the connection alive without the display shell seeing a message.
type sseSender struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
	closed  bool

	once sync.Once
	done chan struct{}
}

func newSSESender(w http.ResponseWriter, flusher http.Flusher) *sseSender {
	return &sseSender{w: w, flusher: flusher, done: make(chan struct{})}
}

// Send writes one event frame and flushes it to the client.
func (c *sseSender) Send(ev broadcast.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errStreamClosed
	}

	var err error
	if ev.Type == broadcast.EventPing {
		_, err = fmt.Fprint(c.w, ": ping\n\n")
	} else {
		var data []byte
		data, err = json.Marshal(ev.Data)
		if err != nil {
			return fmt.Errorf("encoding event: %w", err)
		}
		_, err = fmt.Fprintf(c.w, "event: %s\ndata: %s\n\n", ev.Type, data)
	}
	if err != nil {
		return err
	}
	c.flusher.Flush()
	return nil
}

// Close marks the stream closed and wakes the handler so it returns.
// Safe to call more than once; the hub and the handler can race here.
func (c *sseSender) Close() {
	c.once.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		close(c.done)
	})
}

// handleStream serves the Server-Sent Events session. The response stays open
// for the lifetime of the display; the hub delivers config changes, actions
// and keepalives through the registered sender.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeInternalError(w, "streaming not supported")
		return
	}

	// Headers go in before registration: the first Send (possibly a
	// concurrent broadcast) commits them.
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache, no-transform")
	h.Set("Connection", "keep-alive")

	addr := clientAddr(r)
	sender := newSSESender(w, flusher)
	id, err := s.hub.Register(addr, r.UserAgent(), sender)
	if err != nil {
		h.Del("Content-Type")
		h.Del("Cache-Control")
		h.Del("Connection")
		writeError(w, http.StatusServiceUnavailable, ErrCodeCapacity, "too many connections, try again later")
		return
	}

	// Initial config frame so the display renders without waiting for a change.
	if err := sender.Send(broadcast.Event{Type: broadcast.EventConfig, Data: s.kiosk.ConfigFor(addr)}); err != nil {
		s.hub.Unregister(id)
		return
	}

	select {
	case <-r.Context().Done():
	case <-sender.done:
	}
	s.hub.Unregister(id)
}
