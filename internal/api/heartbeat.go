package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/kioskworks/kiosk-core/internal/presence"
)

// rateLimitRetryAfter is the retry hint sent with 429 responses, in seconds.
const rateLimitRetryAfter = 60

// handleHeartbeat records a poll-agent check-in and answers with the config
// the agent should display plus any commands queued since its last poll.
func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ID string `json:"id"`
		presence.Report
	}
	if err := decodeBody(r, &body); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	addr := clientAddr(r)
	key := strings.TrimSpace(body.ID)
	if key == "" {
		key = addr
	}

	result, err := s.registry.CheckIn(key, addr, body.Report)
	if err != nil {
		switch {
		case errors.Is(err, presence.ErrRateLimited):
			writeRateLimited(w, rateLimitRetryAfter)
		case errors.Is(err, presence.ErrRegistryFull):
			writeError(w, http.StatusServiceUnavailable, ErrCodeCapacity, "agent registry full")
		default:
			writeInternalError(w, "check-in failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":       true,
		"time":     time.Now().UTC().Format(time.RFC3339),
		"config":   result.Config,
		"commands": result.Commands,
	})
}

// handleAgents lists every tracked poll agent with derived liveness.
func (s *Server) handleAgents(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.Agents())
}

// handleQueueCommand queues a command for delivery at the target agent's
// next poll.
func (s *Server) handleQueueCommand(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Target  string         `json:"target"`
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if body.Target == "" || body.Type == "" {
		writeBadRequest(w, "target and type are required")
		return
	}

	depth, err := s.registry.Enqueue(body.Target, body.Type, body.Payload)
	if err != nil {
		switch {
		case errors.Is(err, presence.ErrUnknownAgent):
			writeNotFound(w, "unknown target")
		case errors.Is(err, presence.ErrQueueFull):
			writeError(w, http.StatusInsufficientStorage, ErrCodeQueueFull, "command queue full for target")
		default:
			writeInternalError(w, "queueing command failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "queued": depth})
}
