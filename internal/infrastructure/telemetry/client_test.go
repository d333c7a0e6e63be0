package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/kioskworks/kiosk-core/internal/infrastructure/config"
)

func TestConnectDisabled(t *testing.T) {
	_, err := Connect(config.TelemetryConfig{Enabled: false})
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("Connect() = %v, want ErrDisabled", err)
	}
}

func TestConnectUnreachableServer(t *testing.T) {
	_, err := Connect(config.TelemetryConfig{
		Enabled: true,
		URL:     "http://127.0.0.1:1", // nothing listens here
		Token:   "t",
		Org:     "kioskworks",
		Bucket:  "fleet",
	})
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() = %v, want ErrConnectionFailed", err)
	}
}

func TestDisconnectedClientDropsWrites(t *testing.T) {
	c := &Client{}
	// Must not panic with no underlying client.
	c.WriteAgentMetric("kiosk-7", "cpu", 0.42)

	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() = %v, want ErrNotConnected", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
}
