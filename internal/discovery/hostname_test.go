package discovery

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestResolveCachesWithinTTL(t *testing.T) {
	var calls atomic.Int32
	r := newHostnameResolver(time.Hour, 4)
	r.lookup = func(_ context.Context, ip string) ([]string, error) {
		calls.Add(1)
		return []string{"kiosk-7.lan."}, nil
	}

	ctx := context.Background()
	if got := r.resolve(ctx, "192.168.0.20"); got != "kiosk-7.lan" {
		t.Errorf("resolve() = %q, trailing dot should be trimmed", got)
	}
	if got := r.resolve(ctx, "192.168.0.20"); got != "kiosk-7.lan" {
		t.Errorf("cached resolve() = %q", got)
	}
	if calls.Load() != 1 {
		t.Errorf("lookup called %d times, want 1", calls.Load())
	}
}

func TestResolveExpiresAfterTTL(t *testing.T) {
	var calls atomic.Int32
	now := time.Now()
	r := newHostnameResolver(time.Hour, 4)
	r.nowFunc = func() time.Time { return now }
	r.lookup = func(_ context.Context, ip string) ([]string, error) {
		calls.Add(1)
		return []string{"kiosk-7.lan."}, nil
	}

	ctx := context.Background()
	r.resolve(ctx, "192.168.0.20")
	now = now.Add(2 * time.Hour)
	r.resolve(ctx, "192.168.0.20")

	if calls.Load() != 2 {
		t.Errorf("lookup called %d times, want 2 after TTL expiry", calls.Load())
	}
}

func TestResolveFailureReturnsEmptyUncached(t *testing.T) {
	var calls atomic.Int32
	r := newHostnameResolver(time.Hour, 4)
	r.lookup = func(_ context.Context, ip string) ([]string, error) {
		calls.Add(1)
		return nil, errors.New("no PTR record")
	}

	ctx := context.Background()
	if got := r.resolve(ctx, "192.168.0.20"); got != "" {
		t.Errorf("resolve() = %q, want empty", got)
	}
	// Failures are not cached; the next scan retries.
	r.resolve(ctx, "192.168.0.20")
	if calls.Load() != 2 {
		t.Errorf("lookup called %d times, want 2", calls.Load())
	}
}

func TestFillHostnamesOnlyTouchesMissing(t *testing.T) {
	r := newHostnameResolver(time.Hour, 4)
	r.lookup = func(_ context.Context, ip string) ([]string, error) {
		return []string{"resolved-" + ip + "."}, nil
	}

	devices := []Device{
		{IP: "192.168.0.1", Hostname: "router.lan"},
		{IP: "192.168.0.2"},
	}
	r.fillHostnames(context.Background(), devices)

	if devices[0].Hostname != "router.lan" {
		t.Errorf("existing hostname overwritten: %q", devices[0].Hostname)
	}
	if devices[1].Hostname != "resolved-192.168.0.2" {
		t.Errorf("missing hostname not filled: %q", devices[1].Hostname)
	}
}
