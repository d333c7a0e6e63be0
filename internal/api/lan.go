package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kioskworks/kiosk-core/internal/discovery"
)

// handleInterfaces lists local non-loopback IPv4 interfaces, used by the
// admin console to suggest scan subnets.
func (s *Server) handleInterfaces(w http.ResponseWriter, _ *http.Request) {
	if s.discovery == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeCapacity, "discovery not available")
		return
	}
	writeJSON(w, http.StatusOK, s.discovery.Interfaces())
}

// handleScan runs a LAN discovery scan. Query parameters: mode (fast,
// detailed, aggressive), subnet (CIDR) and ports (nmap port spec).
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	if s.discovery == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeCapacity, "discovery not available")
		return
	}

	q := r.URL.Query()
	mode := discovery.Mode(q.Get("mode"))
	switch mode {
	case "", discovery.ModeFast, discovery.ModeDetailed, discovery.ModeAggressive:
	default:
		writeBadRequest(w, "invalid scan mode")
		return
	}

	result, err := s.discovery.Scan(r.Context(), discovery.Request{
		Mode:   mode,
		Subnet: q.Get("subnet"),
		Ports:  q.Get("ports"),
	})
	if err != nil {
		if errors.Is(err, discovery.ErrNoSources) {
			writeError(w, http.StatusServiceUnavailable, ErrCodeCapacity, "no discovery sources available")
			return
		}
		writeInternalError(w, "scan failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleScanHost runs the detailed probes against one host.
func (s *Server) handleScanHost(w http.ResponseWriter, r *http.Request) {
	if s.discovery == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeCapacity, "discovery not available")
		return
	}

	report, err := s.discovery.ScanHost(r.Context(), chi.URLParam(r, "ip"))
	if err != nil {
		writeBadRequest(w, "invalid IP address format")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handleARPTable returns the raw parsed ARP table, bypassing the scan
// pipeline. Useful when diagnosing why a device is missing from scans.
func (s *Server) handleARPTable(w http.ResponseWriter, r *http.Request) {
	if s.discovery == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeCapacity, "discovery not available")
		return
	}

	devices, err := s.discovery.ARPTable(r.Context())
	if err != nil {
		writeInternalError(w, "reading ARP table failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"parsed": devices, "count": len(devices)})
}

// handleResolve answers a one-off reverse DNS lookup.
func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	if s.discovery == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeCapacity, "discovery not available")
		return
	}

	ip := chi.URLParam(r, "ip")
	writeJSON(w, http.StatusOK, map[string]string{
		"ip":       ip,
		"hostname": s.discovery.Resolve(r.Context(), ip),
	})
}
