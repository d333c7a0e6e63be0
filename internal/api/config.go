package api

import (
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kioskworks/kiosk-core/internal/kiosk"
)

// handleTime returns the server clock, used by displays to render a footer
// clock without trusting their own RTC.
func (s *Server) handleTime(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"time": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleGetConfig returns the display config resolved for the caller's
// address: the global config with any per-address override applied.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.kiosk.ConfigFor(clientAddr(r)))
}

// handleUpdateConfig applies allow-listed fields to the global config and
// pushes the result to every connected display.
func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var fields map[string]any
	if err := decodeBody(r, &fields); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	cfg, err := s.kiosk.Update(fields)
	if err != nil {
		if errors.Is(err, kiosk.ErrInvalidURL) {
			writeBadRequest(w, "invalid URL format")
			return
		}
		writeInternalError(w, "updating config failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "config": cfg})
}

// handleSetOverride merges allow-listed fields into the override for one
// address and pushes the merged config to displays at that address.
func (s *Server) handleSetOverride(w http.ResponseWriter, r *http.Request) {
	ip := chi.URLParam(r, "ip")

	var fields map[string]any
	if err := decodeBody(r, &fields); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	override, err := s.kiosk.SetOverride(ip, fields)
	if err != nil {
		switch {
		case errors.Is(err, kiosk.ErrInvalidAddress):
			writeBadRequest(w, "invalid IP address format")
		case errors.Is(err, kiosk.ErrInvalidURL):
			writeBadRequest(w, "invalid URL format")
		default:
			writeInternalError(w, "setting override failed")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "ip": ip, "config": override})
}

// handleClearOverride removes the override for one address; displays there
// fall back to the global config.
func (s *Server) handleClearOverride(w http.ResponseWriter, r *http.Request) {
	ip := chi.URLParam(r, "ip")
	if err := s.kiosk.ClearOverride(ip); err != nil {
		writeBadRequest(w, "invalid IP address format")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "ip": ip})
}

// overrideEntry pairs an address with its override for the admin listing.
type overrideEntry struct {
	IP     string         `json:"ip"`
	Config kiosk.Override `json:"config"`
}

// handleListOverrides returns every per-address override, sorted by address
// for a stable listing.
func (s *Server) handleListOverrides(w http.ResponseWriter, _ *http.Request) {
	overrides := s.kiosk.Overrides()
	out := make([]overrideEntry, 0, len(overrides))
	for ip, ov := range overrides {
		out = append(out, overrideEntry{IP: ip, Config: ov})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IP < out[j].IP })
	writeJSON(w, http.StatusOK, out)
}

// handleUIDefaults returns prefill values for the admin console inputs.
func (s *Server) handleUIDefaults(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"serverBase":         s.cfg.Server.BaseURL,
		"defaultSshUsername": s.cfg.Admin.DefaultSSHUsername,
		"defaultSshPassword": s.cfg.Admin.DefaultSSHPassword,
	})
}

// handleAction broadcasts a UI action (reload, blackout, navigate, ...) to
// every connected display. Value defaults to true for simple toggles.
func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Type  string `json:"type"`
		Value any    `json:"value"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if body.Type == "" {
		writeBadRequest(w, "type is required")
		return
	}
	if body.Value == nil {
		body.Value = true
	}

	s.hub.BroadcastAction(body.Type, body.Value)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// handleRegister records the URL a display session reports it is showing.
// Sessions are matched by address because the display shell and its stream
// connection share one.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CurrentURL string `json:"currentUrl"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if body.CurrentURL == "" {
		body.CurrentURL = "Unknown"
	}

	addr := clientAddr(r)
	s.hub.SetCurrentURL(addr, body.CurrentURL)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "ip": addr})
}

// handleDevices lists the connected push sessions.
func (s *Server) handleDevices(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.hub.Sessions())
}
