package presence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kioskworks/kiosk-core/internal/infrastructure/config"
	"github.com/kioskworks/kiosk-core/internal/infrastructure/jsonstore"
	"github.com/kioskworks/kiosk-core/internal/kiosk"
)

// agentsDocument is the persisted registry file name.
const agentsDocument = "agents.json"

// ConfigSource resolves the display config an address should be showing.
// Satisfied by *kiosk.Store.
type ConfigSource interface {
	ConfigFor(addr string) kiosk.Config
}

// MetricsSink receives agent-reported metrics for long-term storage.
// Satisfied by the telemetry client; nil disables forwarding.
type MetricsSink interface {
	WriteAgentMetric(agentKey, name string, value float64)
}

// CheckInResult is everything an agent gets back from one poll.
type CheckInResult struct {
	Agent    Agent        `json:"agent"`
	Config   kiosk.Config `json:"config"`
	Commands []Command    `json:"commands"`
}

// Registry tracks poll-based agents and their queued commands.
//
// Thread Safety: all methods are safe for concurrent use.
type Registry struct {
	mu     sync.Mutex
	agents map[string]*Agent

	limiter *Limiter
	queues  *CommandQueue
	repo    *jsonstore.Store
	configs ConfigSource
	metrics MetricsSink
	logger  *slog.Logger

	maxAgents     int
	onlineWindow  time.Duration
	evictCutoff   time.Duration
	sweepCutoff   time.Duration
	sweepInterval time.Duration

	nowFunc func() time.Time // test hook
}

// NewRegistry builds a registry from the limits and presence sections of the
// service config, restoring any persisted agent table.
func NewRegistry(limits config.LimitsConfig, pres config.PresenceConfig, repo *jsonstore.Store, configs ConfigSource, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		agents:        make(map[string]*Agent),
		limiter:       NewLimiter(limits.MaxCheckInRate, time.Minute),
		queues:        NewCommandQueue(limits.MaxQueueDepth),
		repo:          repo,
		configs:       configs,
		logger:        logger,
		maxAgents:     limits.MaxAgents,
		onlineWindow:  pres.OnlineWindowDuration(),
		evictCutoff:   pres.EvictCutoffDuration(),
		sweepCutoff:   pres.SweepCutoffDuration(),
		sweepInterval: pres.SweepIntervalDuration(),
		nowFunc:       time.Now,
	}
	r.restore()
	return r
}

// SetMetricsSink wires the optional telemetry forwarder.
func (r *Registry) SetMetricsSink(sink MetricsSink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics = sink
}

// CheckIn records a poll from the agent identified by key, reporting from
// addr. Returns the updated record, the config the agent should display and
// any commands queued since its last poll.
//
// Returns ErrRateLimited when addr exceeds its per-minute budget and
// ErrRegistryFull when the table is at capacity with nothing evictable.
func (r *Registry) CheckIn(key, addr string, report Report) (CheckInResult, error) {
	if !r.limiter.Allow(addr) {
		return CheckInResult{}, fmt.Errorf("%w: %s", ErrRateLimited, addr)
	}

	now := r.nowFunc().UTC()

	r.mu.Lock()
	agent, exists := r.agents[key]
	if !exists {
		if len(r.agents) >= r.maxAgents {
			evicted := r.evictStaleLocked(now)
			if len(r.agents) >= r.maxAgents {
				r.mu.Unlock()
				return CheckInResult{}, fmt.Errorf("%w: %d agents tracked", ErrRegistryFull, r.maxAgents)
			}
			r.logger.Info("evicted stale agents under capacity pressure", "count", evicted)
		}
		agent = &Agent{Key: key, FirstSeen: now}
		r.agents[key] = agent
	}

	// Partial upsert: the address always reflects the latest poll, everything
	// else only when the report actually carries it.
	agent.Address = addr
	agent.LastSeen = now
	agent.CheckIns++
	if report.Hostname != "" {
		agent.Hostname = report.Hostname
	}
	if report.Version != "" {
		agent.Version = report.Version
	}
	if report.Status != "" {
		agent.Status = report.Status
	}
	if report.Tags != nil {
		agent.Tags = report.Tags
	}
	if report.Metrics != nil {
		agent.Metrics = report.Metrics
	}
	if report.CurrentURL != "" {
		agent.CurrentURL = report.CurrentURL
	}
	snapshot := *agent
	r.persistLocked()
	metrics := r.metrics
	r.mu.Unlock()

	if metrics != nil {
		for name, value := range numericFields(report.Metrics) {
			metrics.WriteAgentMetric(key, name, value)
		}
	}

	return CheckInResult{
		Agent:    snapshot,
		Config:   r.configs.ConfigFor(addr),
		Commands: r.queues.Drain(key),
	}, nil
}

// Enqueue queues a command for the agent's next poll.
// Returns ErrUnknownAgent for keys that have never checked in.
func (r *Registry) Enqueue(key, cmdType string, payload map[string]any) (int, error) {
	r.mu.Lock()
	_, exists := r.agents[key]
	r.mu.Unlock()
	if !exists {
		return 0, fmt.Errorf("%w: %s", ErrUnknownAgent, key)
	}
	return r.queues.Enqueue(key, cmdType, payload)
}

// Agents returns every tracked agent with liveness derived from the online
// window at call time.
func (r *Registry) Agents() []AgentInfo {
	now := r.nowFunc().UTC()

	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]AgentInfo, 0, len(r.agents))
	for _, agent := range r.agents {
		out = append(out, AgentInfo{
			Agent:  *agent,
			Online: now.Sub(agent.LastSeen) <= r.onlineWindow,
		})
	}
	return out
}

// Count returns the number of tracked agents.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.agents)
}

// Sweep removes agents silent past the sweep cutoff, along with their queued
// commands, and returns how many were removed.
func (r *Registry) Sweep(now time.Time) int {
	r.mu.Lock()
	var removed []string
	for key, agent := range r.agents {
		if now.Sub(agent.LastSeen) > r.sweepCutoff {
			delete(r.agents, key)
			removed = append(removed, key)
		}
	}
	if len(removed) > 0 {
		r.persistLocked()
	}
	r.mu.Unlock()

	for _, key := range removed {
		r.queues.Remove(key)
	}
	if len(removed) > 0 {
		r.logger.Info("swept silent agents", "count", len(removed))
	}
	return len(removed)
}

// Run drives the periodic sweep and rate-limit pruning until ctx is cancelled.
func (r *Registry) Run(ctx context.Context) {
	ticker := time.NewTicker(r.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := r.nowFunc()
			r.Sweep(now)
			r.limiter.Prune(now)
		}
	}
}

// evictStaleLocked removes agents silent past the eviction cutoff.
// Caller holds r.mu.
func (r *Registry) evictStaleLocked(now time.Time) int {
	evicted := 0
	for key, agent := range r.agents {
		if now.Sub(agent.LastSeen) > r.evictCutoff {
			delete(r.agents, key)
			evicted++
		}
	}
	return evicted
}

func (r *Registry) restore() {
	if r.repo == nil {
		return
	}
	var agents map[string]*Agent
	switch err := r.repo.Load(agentsDocument, &agents); {
	case err == nil:
		for key, agent := range agents {
			if key != "" && agent != nil {
				r.agents[key] = agent
			}
		}
	case errors.Is(err, jsonstore.ErrNotFound):
		// First boot.
	default:
		r.logger.Warn("could not restore agent registry", "error", err)
	}
}

// numericFields extracts the number-valued entries of a free-form metrics
// report. Only flat numeric fields are forwardable as telemetry points;
// everything else stays in the registry record untouched.
func numericFields(metrics any) map[string]float64 {
	switch m := metrics.(type) {
	case map[string]float64:
		return m
	case map[string]any:
		out := make(map[string]float64, len(m))
		for name, value := range m {
			if v, ok := value.(float64); ok {
				out[name] = v
			}
		}
		return out
	default:
		return nil
	}
}

// persistLocked writes the agent table. Disk trouble is logged and swallowed:
// losing a registry snapshot is recoverable, refusing check-ins is not.
// Caller holds r.mu.
func (r *Registry) persistLocked() {
	if r.repo == nil {
		return
	}
	if err := r.repo.Save(agentsDocument, r.agents); err != nil {
		r.logger.Error("persisting agent registry failed", "error", err)
	}
}
