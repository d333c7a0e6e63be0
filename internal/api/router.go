package api

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)
	r.Use(s.forceHTTPSMiddleware)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/time", s.handleTime)

		// Display-facing endpoints (no admin gate: displays are anonymous)
		r.Get("/config", s.handleGetConfig)
		r.Get("/stream", s.handleStream)
		r.Get("/ws", s.handleWebSocket)
		r.Post("/register", s.handleRegister)
		r.Post("/heartbeat", s.handleHeartbeat)
		r.Get("/ui-defaults", s.handleUIDefaults)

		// LAN discovery
		r.Route("/lan", func(r chi.Router) {
			r.Get("/interfaces", s.handleInterfaces)
			r.Get("/scan", s.handleScan)
			r.Get("/scan/{ip}", s.handleScanHost)
			r.Get("/arp", s.handleARPTable)
			r.Get("/resolve/{ip}", s.handleResolve)
		})

		// Admin surface
		r.Group(func(r chi.Router) {
			r.Use(s.adminOnlyMiddleware)

			r.Post("/config", s.handleUpdateConfig)
			r.Post("/config/ip/{ip}", s.handleSetOverride)
			r.Delete("/config/ip/{ip}", s.handleClearOverride)
			r.Get("/config/clients", s.handleListOverrides)
			r.Post("/action", s.handleAction)
			r.Get("/devices", s.handleDevices)
			r.Get("/heartbeat/clients", s.handleAgents)
			r.Post("/heartbeat/command", s.handleQueueCommand)
			r.Post("/deploy", s.handleDeploy)
			r.Post("/restart", s.handleRestart)
		})
	})

	// Templated client installer
	r.Get("/client/start-kiosk.sh", s.handleClientScript)

	// Static UI: the admin console and display shell are single-page apps
	// served from the same index.
	for _, p := range []string{"/", "/admin", "/client", "/client.html"} {
		r.Get(p, s.handleIndex)
	}
	r.Get("/*", s.handleStatic)

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"version":  s.version,
		"sessions": s.hub.Count(),
		"agents":   s.registry.Count(),
	})
}

// handleIndex serves the single-page UI entry point.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, filepath.Join(s.cfg.Server.StaticDir, "index.html"))
}

// handleStatic serves assets from the configured static directory, answering
// unknown paths with a JSON 404 instead of the file server's plain text.
func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	name := filepath.Join(s.cfg.Server.StaticDir, filepath.Clean("/"+r.URL.Path))
	info, err := os.Stat(name)
	if err != nil || info.IsDir() {
		writeNotFound(w, "not found")
		return
	}
	http.ServeFile(w, r, name)
}
