package broadcast

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kioskworks/kiosk-core/internal/kiosk"
)

type fakeSender struct {
	mu     sync.Mutex
	events []Event
	fail   bool
	closed bool
}

func (f *fakeSender) Send(ev Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("connection reset")
	}
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeSender) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeSender) received() []Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Event(nil), f.events...)
}

func (f *fakeSender) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func newTestHub() *Hub {
	return NewHub(100, time.Minute, nil)
}

func TestRegisterEnforcesSessionCap(t *testing.T) {
	hub := NewHub(2, time.Minute, nil)

	for i := 0; i < 2; i++ {
		if _, err := hub.Register("10.0.0.1", "test", &fakeSender{}); err != nil {
			t.Fatalf("Register() = %v", err)
		}
	}

	_, err := hub.Register("10.0.0.2", "test", &fakeSender{})
	if !errors.Is(err, ErrTooManySessions) {
		t.Errorf("Register() over cap = %v, want ErrTooManySessions", err)
	}
}

func TestBroadcastConfigReachesAllSessions(t *testing.T) {
	hub := newTestHub()
	a, b := &fakeSender{}, &fakeSender{}
	if _, err := hub.Register("10.0.0.1", "", a); err != nil {
		t.Fatal(err)
	}
	if _, err := hub.Register("10.0.0.2", "", b); err != nil {
		t.Fatal(err)
	}

	hub.BroadcastConfig(kiosk.Config{Title: "Lobby"})

	for name, s := range map[string]*fakeSender{"a": a, "b": b} {
		got := s.received()
		if len(got) != 1 || got[0].Type != EventConfig {
			t.Errorf("sender %s received %+v", name, got)
		}
	}
}

func TestSendToAddressTargetsOnlyMatchingSessions(t *testing.T) {
	hub := newTestHub()
	target, other := &fakeSender{}, &fakeSender{}
	if _, err := hub.Register("192.168.1.20", "", target); err != nil {
		t.Fatal(err)
	}
	if _, err := hub.Register("192.168.1.21", "", other); err != nil {
		t.Fatal(err)
	}

	n := hub.SendToAddress("192.168.1.20", kiosk.Config{Title: "Door A"})

	if n != 1 {
		t.Errorf("SendToAddress() delivered %d, want 1", n)
	}
	if len(target.received()) != 1 {
		t.Errorf("target received %d events, want 1", len(target.received()))
	}
	if len(other.received()) != 0 {
		t.Errorf("other received %d events, want 0", len(other.received()))
	}
}

func TestFailedSendReapsOnlyThatSession(t *testing.T) {
	hub := newTestHub()
	broken := &fakeSender{fail: true}
	healthy := &fakeSender{}
	if _, err := hub.Register("10.0.0.1", "", broken); err != nil {
		t.Fatal(err)
	}
	if _, err := hub.Register("10.0.0.2", "", healthy); err != nil {
		t.Fatal(err)
	}

	hub.BroadcastAction("reload", "")

	if !broken.isClosed() {
		t.Error("failed sender was not closed")
	}
	if hub.Count() != 1 {
		t.Errorf("Count() = %d, want 1", hub.Count())
	}
	if len(healthy.received()) != 1 {
		t.Error("healthy session missed the broadcast")
	}

	// Subsequent broadcasts no longer touch the reaped session.
	hub.BroadcastAction("reload", "")
	if len(healthy.received()) != 2 {
		t.Error("healthy session missed the second broadcast")
	}
}

func TestEventsArriveInPublicationOrder(t *testing.T) {
	hub := newTestHub()
	s := &fakeSender{}
	if _, err := hub.Register("10.0.0.1", "", s); err != nil {
		t.Fatal(err)
	}

	hub.BroadcastConfig(kiosk.Config{Title: "one"})
	hub.BroadcastAction("navigate", "https://example.com/two")
	hub.BroadcastConfig(kiosk.Config{Title: "three"})

	got := s.received()
	if len(got) != 3 {
		t.Fatalf("received %d events, want 3", len(got))
	}
	wantTypes := []string{EventConfig, EventAction, EventConfig}
	for i, w := range wantTypes {
		if got[i].Type != w {
			t.Errorf("event %d type = %q, want %q", i, got[i].Type, w)
		}
	}
}

func TestUnregisterIsIdempotent(t *testing.T) {
	hub := newTestHub()
	s := &fakeSender{}
	id, err := hub.Register("10.0.0.1", "", s)
	if err != nil {
		t.Fatal(err)
	}

	hub.Unregister(id)
	hub.Unregister(id)
	hub.Unregister("never-existed")

	if !s.isClosed() {
		t.Error("sender not closed on unregister")
	}
	if hub.Count() != 0 {
		t.Errorf("Count() = %d, want 0", hub.Count())
	}
}

func TestSetCurrentURLShowsUpInSessions(t *testing.T) {
	hub := newTestHub()
	if _, err := hub.Register("192.168.1.20", "kiosk-browser", &fakeSender{}); err != nil {
		t.Fatal(err)
	}

	hub.SetCurrentURL("192.168.1.20", "https://example.com/board")

	sessions := hub.Sessions()
	if len(sessions) != 1 {
		t.Fatalf("Sessions() = %d entries, want 1", len(sessions))
	}
	if sessions[0].CurrentURL != "https://example.com/board" {
		t.Errorf("CurrentURL = %q", sessions[0].CurrentURL)
	}
	if sessions[0].UserAgent != "kiosk-browser" {
		t.Errorf("UserAgent = %q", sessions[0].UserAgent)
	}
}

func TestRunClosesSessionsOnShutdown(t *testing.T) {
	hub := NewHub(10, 10*time.Millisecond, nil)
	s := &fakeSender{}
	if _, err := hub.Register("10.0.0.1", "", s); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	// Let at least one ping land.
	deadline := time.After(time.Second)
	for len(s.received()) == 0 {
		select {
		case <-deadline:
			t.Fatal("no ping received")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	<-done

	if !s.isClosed() {
		t.Error("sender not closed on shutdown")
	}
	if hub.Count() != 0 {
		t.Errorf("Count() = %d after shutdown, want 0", hub.Count())
	}
}
