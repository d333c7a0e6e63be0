package kiosk

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/kioskworks/kiosk-core/internal/infrastructure/jsonstore"
)

// Persisted document names.
const (
	configDocument    = "kiosk-config.json"
	overridesDocument = "client-configs.json"
)

// Announcer receives config change notifications for push distribution.
// The store calls it synchronously, one mutation at a time and in application
// order. Implementations must not call back into the store.
type Announcer interface {
	// ConfigChanged is called after the global config mutates.
	ConfigChanged(cfg Config)
	// ConfigChangedFor is called after an override mutates; cfg is the
	// merged config the affected address should now display.
	ConfigChangedFor(addr string, cfg Config)
}

// Store holds the global display config and per-address overrides.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
//   - Persistence happens synchronously under the store lock; disk failures
//     are logged and swallowed so a full disk never breaks serving.
//   - Mutations hold announceMu across apply and announce, so push sessions
//     receive config events in application order and the last event always
//     carries the current config. Reads only take mu and never wait on a
//     broadcast in flight.
type Store struct {
	mu        sync.RWMutex
	cfg       Config
	overrides map[string]Override

	announceMu sync.Mutex

	repo      *jsonstore.Store
	logger    *slog.Logger
	announcer Announcer
}

// NewStore builds a Store seeded with defaults and overlays whatever was
// persisted on a previous run. A missing state file is normal on first boot;
// a corrupt one is logged and the defaults win.
func NewStore(defaults Config, repo *jsonstore.Store, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		cfg:       defaults,
		overrides: make(map[string]Override),
		repo:      repo,
		logger:    logger,
	}
	s.restore()
	return s
}

// SetAnnouncer wires the push broadcaster. Must be called before the HTTP
// server starts accepting writes; nil disables announcements.
func (s *Store) SetAnnouncer(a Announcer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.announcer = a
}

// Config returns the current global config.
func (s *Store) Config() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// ConfigFor returns the config the given address should display: the global
// config with the address's override applied field by field.
func (s *Store) ConfigFor(addr string) Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mergedLocked(addr)
}

// Overrides returns a copy of all per-address overrides.
func (s *Store) Overrides() map[string]Override {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Override, len(s.overrides))
	for addr, ov := range s.overrides {
		out[addr] = ov.Clone()
	}
	return out
}

// Update applies allow-listed fields to the global config, persists the
// result and announces the change. Unknown fields are dropped silently.
// A malformed kioskUrl rejects the whole update with ErrInvalidURL and the
// stored config is left untouched.
func (s *Store) Update(fields map[string]any) (Config, error) {
	filtered := filterFields(fields)
	if raw, ok := filtered["kioskUrl"]; ok {
		if !ValidURL(raw.(string)) {
			return Config{}, fmt.Errorf("%w: %q", ErrInvalidURL, raw)
		}
	}

	s.announceMu.Lock()
	defer s.announceMu.Unlock()

	s.mu.Lock()
	applyFields(&s.cfg, filtered)
	cfg := s.cfg
	s.persistConfigLocked()
	announcer := s.announcer
	s.mu.Unlock()

	if announcer != nil {
		announcer.ConfigChanged(cfg)
	}
	return cfg, nil
}

// SetOverride merges allow-listed fields into the override for addr,
// persists the override table and announces the merged config to that
// address. Setting {"title": "A"} then {"footerText": "B"} leaves both in
// effect. An empty field set clears the override entirely.
func (s *Store) SetOverride(addr string, fields map[string]any) (Override, error) {
	if !ValidAddress(addr) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, addr)
	}
	filtered := filterFields(fields)
	if raw, ok := filtered["kioskUrl"]; ok {
		if !ValidURL(raw.(string)) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidURL, raw)
		}
	}

	s.announceMu.Lock()
	defer s.announceMu.Unlock()

	s.mu.Lock()
	var result Override
	if len(filtered) == 0 {
		delete(s.overrides, addr)
	} else {
		ov := s.overrides[addr]
		if ov == nil {
			ov = make(Override, len(filtered))
			s.overrides[addr] = ov
		}
		for k, v := range filtered {
			ov[k] = v
		}
		result = ov.Clone()
	}
	merged := s.mergedLocked(addr)
	s.persistOverridesLocked()
	announcer := s.announcer
	s.mu.Unlock()

	if announcer != nil {
		announcer.ConfigChangedFor(addr, merged)
	}
	return result, nil
}

// ClearOverride removes the override for addr and announces the global
// config to that address. Clearing an address with no override is a no-op.
func (s *Store) ClearOverride(addr string) error {
	if !ValidAddress(addr) {
		return fmt.Errorf("%w: %q", ErrInvalidAddress, addr)
	}

	s.announceMu.Lock()
	defer s.announceMu.Unlock()

	s.mu.Lock()
	_, existed := s.overrides[addr]
	if existed {
		delete(s.overrides, addr)
		s.persistOverridesLocked()
	}
	merged := s.cfg
	announcer := s.announcer
	s.mu.Unlock()

	if existed && announcer != nil {
		announcer.ConfigChangedFor(addr, merged)
	}
	return nil
}

// mergedLocked computes the effective config for addr. Caller holds s.mu.
func (s *Store) mergedLocked(addr string) Config {
	cfg := s.cfg
	if ov, ok := s.overrides[addr]; ok {
		applyFields(&cfg, ov)
	}
	return cfg
}

func (s *Store) restore() {
	if s.repo == nil {
		return
	}

	var cfg Config
	switch err := s.repo.Load(configDocument, &cfg); {
	case err == nil:
		s.cfg = cfg
	case errors.Is(err, jsonstore.ErrNotFound):
		// First boot: environment defaults stand.
	default:
		s.logger.Warn("could not restore kiosk config, using defaults", "error", err)
	}

	var overrides map[string]Override
	switch err := s.repo.Load(overridesDocument, &overrides); {
	case err == nil:
		for addr, ov := range overrides {
			if ValidAddress(addr) {
				s.overrides[addr] = Override(filterFields(ov))
			}
		}
	case errors.Is(err, jsonstore.ErrNotFound):
	default:
		s.logger.Warn("could not restore client overrides", "error", err)
	}
}

func (s *Store) persistConfigLocked() {
	if s.repo == nil {
		return
	}
	if err := s.repo.Save(configDocument, s.cfg); err != nil {
		s.logger.Error("persisting kiosk config failed", "error", err)
	}
}

func (s *Store) persistOverridesLocked() {
	if s.repo == nil {
		return
	}
	if err := s.repo.Save(overridesDocument, s.overrides); err != nil {
		s.logger.Error("persisting client overrides failed", "error", err)
	}
}
