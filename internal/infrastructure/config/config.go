package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for kioskd.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Admin     AdminConfig     `yaml:"admin"`
	Kiosk     KioskDefaults   `yaml:"kiosk"`
	Limits    LimitsConfig    `yaml:"limits"`
	Presence  PresenceConfig  `yaml:"presence"`
	Stream    StreamConfig    `yaml:"stream"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Deploy    DeployConfig    `yaml:"deploy"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Logging   LoggingConfig   `yaml:"logging"`
	State     StateConfig     `yaml:"state"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host       string        `yaml:"host"`
	Port       int           `yaml:"port"`
	TLS        TLSConfig     `yaml:"tls"`
	Timeouts   TimeoutConfig `yaml:"timeouts"`
	CORS       CORSConfig    `yaml:"cors"`
	ForceHTTPS bool          `yaml:"force_https"`
	StaticDir  string        `yaml:"static_dir"`

	// BaseURL is the externally reachable base URL of this server. It is
	// injected into generated client scripts and offered to the admin UI as
	// a prefill default.
	BaseURL string `yaml:"base_url"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// TimeoutConfig contains HTTP timeout settings in seconds.
//
// Note: the write timeout is deliberately generous because the event stream
// endpoint holds its response open for the lifetime of the session.
type TimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// AdminConfig contains admin surface settings.
type AdminConfig struct {
	// Token gates the mutating and fleet-listing endpoints via the
	// X-Admin-Token header. An empty token disables the gate (development
	// mode); production deployments must set KIOSK_ADMIN_TOKEN.
	Token string `yaml:"token"`

	// DefaultSSHUsername and DefaultSSHPassword are offered to the admin UI
	// as prefill defaults for bulk deploy/restart operations. They are never
	// used by the server itself.
	DefaultSSHUsername string `yaml:"default_ssh_username"`
	DefaultSSHPassword string `yaml:"default_ssh_password"`
}

// KioskDefaults seeds the display configuration on first start. Once a
// persisted record exists it wins over these values.
type KioskDefaults struct {
	URL                string `yaml:"url"`
	Title              string `yaml:"title"`
	FooterText         string `yaml:"footer_text"`
	Timezone           string `yaml:"timezone"`
	DisableContextMenu bool   `yaml:"disable_context_menu"`
	DisableShortcuts   bool   `yaml:"disable_shortcuts"`
}

// LimitsConfig contains the concurrency and capacity caps.
type LimitsConfig struct {
	// MaxSessions caps concurrent push (event stream) sessions.
	MaxSessions int `yaml:"max_sessions"`
	// MaxAgents caps the tracked poll-agent table.
	MaxAgents int `yaml:"max_agents"`
	// MaxCheckInRate is the per-address check-in budget per minute.
	MaxCheckInRate int `yaml:"max_check_in_rate"`
	// MaxQueueDepth caps the per-agent command queue.
	MaxQueueDepth int `yaml:"max_queue_depth"`
}

// PresenceConfig contains poll-agent liveness thresholds in seconds.
type PresenceConfig struct {
	// OnlineWindow: an agent is reported online when last seen within it.
	OnlineWindow int `yaml:"online_window"`
	// EvictCutoff: under capacity pressure, agents silent past it are evicted.
	EvictCutoff int `yaml:"evict_cutoff"`
	// SweepCutoff: the background sweep removes agents silent past it.
	SweepCutoff int `yaml:"sweep_cutoff"`
	// SweepInterval: how often the background sweep runs.
	SweepInterval int `yaml:"sweep_interval"`
}

// StreamConfig contains push-session settings in seconds.
type StreamConfig struct {
	// PingInterval: heartbeat write period; a failed write reaps the session.
	PingInterval int `yaml:"ping_interval"`
}

// DiscoveryConfig contains LAN discovery settings.
type DiscoveryConfig struct {
	// DefaultSubnet is scanned when a request does not name one.
	DefaultSubnet string `yaml:"default_subnet"`
	// MDNSFastTimeout / MDNSTimeout bound the mDNS browse in seconds.
	MDNSFastTimeout int `yaml:"mdns_fast_timeout"`
	MDNSTimeout     int `yaml:"mdns_timeout"`
	// NmapTimeout / NmapAggressiveTimeout bound the nmap runs in seconds.
	NmapTimeout           int `yaml:"nmap_timeout"`
	NmapAggressiveTimeout int `yaml:"nmap_aggressive_timeout"`
	// HostnameCacheTTL bounds reverse-DNS cache entries in seconds.
	HostnameCacheTTL int `yaml:"hostname_cache_ttl"`
	// HostnameWorkers caps concurrent reverse-DNS lookups per scan.
	HostnameWorkers int `yaml:"hostname_workers"`
}

// DeployConfig contains remote-execution settings.
type DeployConfig struct {
	// ConnectTimeout bounds the SSH dial per host, in seconds.
	ConnectTimeout int `yaml:"connect_timeout"`
}

// TelemetryConfig contains optional InfluxDB settings for agent metrics.
type TelemetryConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// StateConfig locates the directory holding the persisted JSON records.
type StateConfig struct {
	Dir string `yaml:"dir"`
}

// Load reads configuration from a YAML file and applies environment variable
// overrides.
//
// A missing file is not an error: defaults plus environment variables form a
// complete configuration, matching how the fleet is deployed in practice.
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If the file exists but cannot be parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	case os.IsNotExist(err):
		// Environment-only deployment; carry on with defaults.
	default:
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with the fleet's long-standing defaults.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 4000,
			Timeouts: TimeoutConfig{
				Read:  30,
				Write: 0, // unlimited: the event stream holds responses open
				Idle:  60,
			},
			CORS: CORSConfig{
				AllowedOrigins: []string{"*"},
			},
			StaticDir: "public",
		},
		Kiosk: KioskDefaults{
			Title:              "Kiosk Display",
			FooterText:         "Kiosk System",
			Timezone:           "UTC",
			DisableContextMenu: true,
			DisableShortcuts:   true,
		},
		Limits: LimitsConfig{
			MaxSessions:    100,
			MaxAgents:      200,
			MaxCheckInRate: 120,
			MaxQueueDepth:  100,
		},
		Presence: PresenceConfig{
			OnlineWindow:  600,
			EvictCutoff:   600,
			SweepCutoff:   1800,
			SweepInterval: 300,
		},
		Stream: StreamConfig{
			PingInterval: 25,
		},
		Discovery: DiscoveryConfig{
			DefaultSubnet:         "192.168.0.0/24",
			MDNSFastTimeout:       3,
			MDNSTimeout:           5,
			NmapTimeout:           60,
			NmapAggressiveTimeout: 180,
			HostnameCacheTTL:      3600,
			HostnameWorkers:       8,
		},
		Deploy: DeployConfig{
			ConnectTimeout: 12,
		},
		Telemetry: TelemetryConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		State: StateConfig{
			Dir: "./config",
		},
	}
}

// applyEnvOverrides applies environment variable overrides.
// Variables follow the pattern KIOSK_SECTION_KEY (display settings keep their
// historical shorter names, e.g. KIOSK_URL).
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("KIOSK_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("KIOSK_CORS_ORIGIN"); v != "" {
		cfg.Server.CORS.AllowedOrigins = []string{v}
	}
	if v := os.Getenv("KIOSK_FORCE_HTTPS"); v != "" {
		cfg.Server.ForceHTTPS = strings.EqualFold(v, "true")
	}
	if v := os.Getenv("KIOSK_STATIC_DIR"); v != "" {
		cfg.Server.StaticDir = v
	}
	if v := os.Getenv("KIOSK_SERVER_BASE"); v != "" {
		cfg.Server.BaseURL = v
	}

	if v := os.Getenv("KIOSK_ADMIN_TOKEN"); v != "" {
		cfg.Admin.Token = v
	}
	if v := os.Getenv("KIOSK_SSH_USERNAME"); v != "" {
		cfg.Admin.DefaultSSHUsername = v
	}
	if v := os.Getenv("KIOSK_SSH_PASSWORD"); v != "" {
		cfg.Admin.DefaultSSHPassword = v
	}

	if v := os.Getenv("KIOSK_URL"); v != "" {
		cfg.Kiosk.URL = v
	}
	if v := os.Getenv("KIOSK_TITLE"); v != "" {
		cfg.Kiosk.Title = v
	}
	if v := os.Getenv("KIOSK_FOOTER_TEXT"); v != "" {
		cfg.Kiosk.FooterText = v
	}
	if v := os.Getenv("KIOSK_TIMEZONE"); v != "" {
		cfg.Kiosk.Timezone = v
	}
	if v := os.Getenv("KIOSK_DISABLE_CONTEXT_MENU"); v != "" {
		cfg.Kiosk.DisableContextMenu = strings.EqualFold(v, "true")
	}
	if v := os.Getenv("KIOSK_DISABLE_SHORTCUTS"); v != "" {
		cfg.Kiosk.DisableShortcuts = strings.EqualFold(v, "true")
	}

	if v := os.Getenv("KIOSK_STATE_DIR"); v != "" {
		cfg.State.Dir = v
	}
	if v := os.Getenv("KIOSK_TELEMETRY_TOKEN"); v != "" {
		cfg.Telemetry.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 1 and 65535")
	}
	if c.Server.TLS.Enabled && (c.Server.TLS.CertFile == "" || c.Server.TLS.KeyFile == "") {
		errs = append(errs, "server.tls requires cert_file and key_file when enabled")
	}

	if c.Limits.MaxSessions < 1 {
		errs = append(errs, "limits.max_sessions must be positive")
	}
	if c.Limits.MaxAgents < 1 {
		errs = append(errs, "limits.max_agents must be positive")
	}
	if c.Limits.MaxCheckInRate < 1 {
		errs = append(errs, "limits.max_check_in_rate must be positive")
	}
	if c.Limits.MaxQueueDepth < 1 {
		errs = append(errs, "limits.max_queue_depth must be positive")
	}

	if c.Presence.OnlineWindow < 1 || c.Presence.SweepCutoff < 1 {
		errs = append(errs, "presence windows must be positive")
	}
	if c.Presence.EvictCutoff > c.Presence.SweepCutoff {
		errs = append(errs, "presence.evict_cutoff must not exceed presence.sweep_cutoff")
	}

	if c.Telemetry.Enabled && c.Telemetry.URL == "" {
		errs = append(errs, "telemetry.url is required when telemetry is enabled")
	}

	if c.State.Dir == "" {
		errs = append(errs, "state.dir is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// OnlineWindowDuration returns the presence online window as a Duration.
func (c *PresenceConfig) OnlineWindowDuration() time.Duration {
	return time.Duration(c.OnlineWindow) * time.Second
}

// EvictCutoffDuration returns the capacity-pressure eviction cutoff.
func (c *PresenceConfig) EvictCutoffDuration() time.Duration {
	return time.Duration(c.EvictCutoff) * time.Second
}

// SweepCutoffDuration returns the background sweep cutoff.
func (c *PresenceConfig) SweepCutoffDuration() time.Duration {
	return time.Duration(c.SweepCutoff) * time.Second
}

// SweepIntervalDuration returns the background sweep period.
func (c *PresenceConfig) SweepIntervalDuration() time.Duration {
	return time.Duration(c.SweepInterval) * time.Second
}

// PingIntervalDuration returns the push-session heartbeat period.
func (c *StreamConfig) PingIntervalDuration() time.Duration {
	return time.Duration(c.PingInterval) * time.Second
}

// ConnectTimeoutDuration returns the SSH dial timeout.
func (c *DeployConfig) ConnectTimeoutDuration() time.Duration {
	return time.Duration(c.ConnectTimeout) * time.Second
}
