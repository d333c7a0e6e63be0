package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/kioskworks/kiosk-core/internal/deploy"
	"github.com/kioskworks/kiosk-core/internal/discovery"
)

// handleClientScript serves the client installer with the server base URL
// injected, so a display host can be bootstrapped with a single curl. Base
// precedence: serverBase query parameter, configured base URL, then the
// origin the request arrived on.
func (s *Server) handleClientScript(w http.ResponseWriter, r *http.Request) {
	base := r.URL.Query().Get("serverBase")
	if base == "" {
		base = s.cfg.Server.BaseURL
	}
	if base == "" {
		base = requestOrigin(r)
	}

	w.Header().Set("Content-Type", "text/x-shellscript")
	w.Header().Set("Content-Disposition", `attachment; filename="start-kiosk.sh"`)
	//nolint:errcheck // Best-effort write to response
	w.Write(deploy.TemplatedScript(base, time.Now().UTC()))
}

// requestOrigin reconstructs the externally visible origin of the request,
// trusting forwarding headers set by a terminating proxy.
func requestOrigin(r *http.Request) string {
	host := r.Header.Get("X-Forwarded-Host")
	if host == "" {
		host = r.Host
	}
	proto, _, _ := strings.Cut(r.Header.Get("X-Forwarded-Proto"), ",")
	if proto == "" {
		proto = "http"
		if r.TLS != nil {
			proto = "https"
		}
	}
	return proto + "://" + host
}

// deployRequest is the body shared by the deploy and restart endpoints.
type deployRequest struct {
	Username       string         `json:"username"`
	Password       string         `json:"password"`
	PrivateKeyPath string         `json:"privateKeyPath"`
	ServerBase     string         `json:"serverBase"`
	RunSetup       bool           `json:"runSetup"`
	Reboot         bool           `json:"reboot"`
	Hosts          []string       `json:"hosts"`
	SSH            deploy.SSHSeed `json:"sshConfig"`
}

// handleDeploy installs the client script and config on the target hosts
// over SSH. Hosts default to whatever a fast LAN scan finds.
func (s *Server) handleDeploy(w http.ResponseWriter, r *http.Request) {
	if s.executor == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeCapacity, "deploy not available")
		return
	}

	var body deployRequest
	if err := decodeBody(r, &body); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if body.Username == "" {
		writeBadRequest(w, "username is required")
		return
	}
	if body.ServerBase == "" {
		writeBadRequest(w, "serverBase is required")
		return
	}

	targets, err := s.deployTargets(r.Context(), body.Hosts)
	if err != nil {
		writeBadRequest(w, "no target hosts found")
		return
	}

	creds := deploy.Credentials{
		Username:       body.Username,
		Password:       body.Password,
		PrivateKeyPath: body.PrivateKeyPath,
	}
	plan := deploy.DeployPlan(creds, deploy.DeployOptions{
		ServerBase: body.ServerBase,
		RunSetup:   body.RunSetup,
		Reboot:     body.Reboot,
		SSH:        body.SSH,
	})

	results := s.executor.Run(targets, creds, plan)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "count": len(results), "results": results})
}

// handleRestart reboots the target hosts over SSH.
func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request) {
	if s.executor == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeCapacity, "deploy not available")
		return
	}

	var body deployRequest
	if err := decodeBody(r, &body); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if body.Username == "" {
		writeBadRequest(w, "username is required")
		return
	}

	targets, err := s.deployTargets(r.Context(), body.Hosts)
	if err != nil {
		writeBadRequest(w, "no target hosts found")
		return
	}

	creds := deploy.Credentials{
		Username:       body.Username,
		Password:       body.Password,
		PrivateKeyPath: body.PrivateKeyPath,
	}

	results := s.executor.Run(targets, creds, deploy.RestartPlan(creds))
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "count": len(results), "results": results})
}

// deployTargets resolves the hosts a rollout runs against: the explicit list
// when given, otherwise every device a fast LAN scan finds. Either way the
// list is filtered down to plausible unicast IPv4 targets; deploy.ErrNoHosts
// when nothing remains.
func (s *Server) deployTargets(ctx context.Context, hosts []string) ([]string, error) {
	if len(hosts) > 0 {
		return deploy.FilterTargets(hosts)
	}
	if s.discovery == nil {
		return nil, deploy.ErrNoHosts
	}

	result, err := s.discovery.Scan(ctx, discovery.Request{Mode: discovery.ModeFast})
	if err != nil {
		s.logger.Warn("target discovery scan failed", "error", err)
		return nil, deploy.ErrNoHosts
	}
	ips := make([]string, 0, len(result.Devices))
	for _, d := range result.Devices {
		ips = append(ips, d.IP)
	}
	return deploy.FilterTargets(ips)
}
