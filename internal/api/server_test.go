package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kioskworks/kiosk-core/internal/broadcast"
	"github.com/kioskworks/kiosk-core/internal/deploy"
	"github.com/kioskworks/kiosk-core/internal/infrastructure/config"
	"github.com/kioskworks/kiosk-core/internal/infrastructure/logging"
	"github.com/kioskworks/kiosk-core/internal/kiosk"
	"github.com/kioskworks/kiosk-core/internal/presence"
)

// testServer creates a Server backed by in-memory state (no persistence, no
// discovery). Tests tweak srv.cfg before calling buildRouter when they need
// non-default behaviour.
func testServer(t *testing.T) *Server {
	t.Helper()

	cfg := &config.Config{
		Server: config.ServerConfig{
			Host:      "127.0.0.1",
			Port:      0,
			StaticDir: t.TempDir(),
		},
		Limits: config.LimitsConfig{
			MaxSessions:    2,
			MaxAgents:      10,
			MaxCheckInRate: 100,
			MaxQueueDepth:  2,
		},
		Presence: config.PresenceConfig{
			OnlineWindow:  600,
			EvictCutoff:   600,
			SweepCutoff:   1800,
			SweepInterval: 300,
		},
		Stream: config.StreamConfig{PingInterval: 25},
	}

	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")

	store := kiosk.NewStore(kiosk.Config{
		KioskURL:   "https://example.com/board",
		Title:      "Kiosk Display",
		FooterText: "Kiosk System",
		Timezone:   "UTC",
	}, nil, log.Logger)

	hub := broadcast.NewHub(cfg.Limits.MaxSessions, cfg.Stream.PingIntervalDuration(), log.Logger)
	store.SetAnnouncer(hubAnnouncer{hub})
	registry := presence.NewRegistry(cfg.Limits, cfg.Presence, nil, store, log.Logger)

	srv, err := New(Deps{
		Config:   cfg,
		Logger:   log,
		Kiosk:    store,
		Hub:      hub,
		Registry: registry,
		Executor: deploy.NewExecutor(config.DeployConfig{ConnectTimeout: 1}, log.Logger),
		Version:  "test",
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return srv
}

// hubAnnouncer bridges the config store to the hub the way cmd/kioskd does.
type hubAnnouncer struct {
	hub *broadcast.Hub
}

func (a hubAnnouncer) ConfigChanged(cfg kiosk.Config) {
	a.hub.BroadcastConfig(cfg)
}

func (a hubAnnouncer) ConfigChangedFor(addr string, cfg kiosk.Config) {
	a.hub.SendToAddress(addr, cfg)
}

// captureSender records events the hub delivers to a fake session.
type captureSender struct {
	mu     sync.Mutex
	events []broadcast.Event
}

func (c *captureSender) Send(ev broadcast.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return nil
}

func (c *captureSender) Close() {}

func (c *captureSender) Events() []broadcast.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]broadcast.Event, len(c.events))
	copy(out, c.events)
	return out
}

func TestHealth(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("health status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("status = %v, want ok", resp["status"])
	}
	if resp["version"] != "test" {
		t.Errorf("version = %v, want test", resp["version"])
	}
}

func TestTime(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/time", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, err := time.Parse(time.RFC3339, resp["time"]); err != nil {
		t.Errorf("time = %q, not RFC3339: %v", resp["time"], err)
	}
}

func TestRequestID_Generated(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header to be set")
	}
}

func TestAdminGate_DisabledWithoutToken(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/config", strings.NewReader(`{"title":"Open"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}
}

func TestAdminGate_EnforcedWhenConfigured(t *testing.T) {
	srv := testServer(t)
	srv.cfg.Admin.Token = "sekrit"
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/config", strings.NewReader(`{"title":"X"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("without token: status = %d, want %d", w.Code, http.StatusUnauthorized)
	}

	var resp Error
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Code != ErrCodeUnauthorized {
		t.Errorf("code = %q, want %q", resp.Code, ErrCodeUnauthorized)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/config", strings.NewReader(`{"title":"X"}`))
	req.Header.Set("X-Admin-Token", "sekrit")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("with token: status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}
}

func TestAdminGate_DoesNotCoverDisplayEndpoints(t *testing.T) {
	srv := testServer(t)
	srv.cfg.Admin.Token = "sekrit"
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/config", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("display config fetch status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestUnknownPath_JSONNotFound(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/no-such-page", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
}

func TestNew_RequiresDependencies(t *testing.T) {
	if _, err := New(Deps{}); err == nil {
		t.Error("New() with empty deps succeeded")
	}
}

func TestClientAddr(t *testing.T) {
	tests := []struct {
		remote string
		want   string
	}{
		{"192.168.0.10:54321", "192.168.0.10"},
		{"[::ffff:192.168.0.10]:54321", "192.168.0.10"},
		{"[2001:db8::1]:443", "2001:db8::1"},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = tt.remote
		if got := clientAddr(r); got != tt.want {
			t.Errorf("clientAddr(%q) = %q, want %q", tt.remote, got, tt.want)
		}
	}
}
