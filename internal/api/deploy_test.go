package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestClientScript_Templated(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/client/start-kiosk.sh?serverBase=http://10.0.0.5:4000", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/x-shellscript" {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "start-kiosk.sh") {
		t.Errorf("Content-Disposition = %q", cd)
	}

	body := w.Body.String()
	if !strings.Contains(body, `SERVER_BASE="http://10.0.0.5:4000"`) {
		t.Error("script does not carry the requested server base")
	}
	if !strings.HasPrefix(body, "#!/bin/bash") {
		t.Error("script lost its shebang")
	}
}

func TestClientScript_FallsBackToRequestOrigin(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/client/start-kiosk.sh", nil)
	req.Host = "kiosk.example.com"
	req.Header.Set("X-Forwarded-Proto", "https")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if !strings.Contains(w.Body.String(), `SERVER_BASE="https://kiosk.example.com"`) {
		t.Error("script does not carry the request origin")
	}
}

func TestDeploy_RequiresUsernameAndServerBase(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/deploy", strings.NewReader(`{"serverBase":"http://x"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing username: status = %d, want %d", w.Code, http.StatusBadRequest)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/deploy", strings.NewReader(`{"username":"kiosk"}`))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing serverBase: status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestDeploy_RejectsEmptyTargetList(t *testing.T) {
	srv := testServer(t)
	srv.discovery = nil // no scan fallback in tests
	router := srv.buildRouter()

	body := `{"username":"kiosk","password":"pw","serverBase":"http://x","hosts":["255.255.255.255","not-an-ip"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/deploy", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d; body: %s", w.Code, http.StatusBadRequest, w.Body.String())
	}
}

func TestRestart_RequiresUsername(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/restart", strings.NewReader(`{"hosts":["192.0.2.1"]}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}
