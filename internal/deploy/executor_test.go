package deploy

import (
	"testing"

	"github.com/kioskworks/kiosk-core/internal/infrastructure/config"
)

func TestRunIsolatesHostFailures(t *testing.T) {
	e := NewExecutor(config.DeployConfig{ConnectTimeout: 12}, nil)
	e.runHost = func(host string, creds Credentials, plan Plan) HostResult {
		if host == "10.0.0.2" {
			return HostResult{Host: creds.Username + "@" + host, Error: "connecting: timeout"}
		}
		return HostResult{Host: creds.Username + "@" + host, OK: true}
	}

	results := e.Run(
		[]string{"10.0.0.1", "10.0.0.2", "10.0.0.3"},
		Credentials{Username: "kiosk", Password: "pw"},
		RestartPlan(Credentials{Password: "pw"}),
	)

	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}
	if !results[0].OK || results[1].OK || !results[2].OK {
		t.Errorf("unexpected outcomes: %+v", results)
	}
	if results[1].Host != "kiosk@10.0.0.2" {
		t.Errorf("host label = %q", results[1].Host)
	}
}

func TestClientConfigRequiresAuth(t *testing.T) {
	e := NewExecutor(config.DeployConfig{ConnectTimeout: 12}, nil)

	if _, err := e.clientConfig(Credentials{Username: "kiosk"}); err == nil {
		t.Error("clientConfig() without password or key succeeded")
	}

	cfg, err := e.clientConfig(Credentials{Username: "kiosk", Password: "pw"})
	if err != nil {
		t.Fatalf("clientConfig() = %v", err)
	}
	if cfg.User != "kiosk" || len(cfg.Auth) != 1 {
		t.Errorf("config = %+v", cfg)
	}
	if cfg.Timeout.Seconds() != 12 {
		t.Errorf("timeout = %v", cfg.Timeout)
	}
}
