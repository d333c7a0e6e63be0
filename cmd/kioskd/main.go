// kioskd is the fleet-management console for browser-based kiosk displays.
//
// It serves the display configuration registry, pushes changes to connected
// displays in real time, tracks poll-based agents, discovers devices on the
// LAN and rolls the client script out over SSH.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kioskworks/kiosk-core/internal/api"
	"github.com/kioskworks/kiosk-core/internal/broadcast"
	"github.com/kioskworks/kiosk-core/internal/deploy"
	"github.com/kioskworks/kiosk-core/internal/discovery"
	"github.com/kioskworks/kiosk-core/internal/infrastructure/config"
	"github.com/kioskworks/kiosk-core/internal/infrastructure/jsonstore"
	"github.com/kioskworks/kiosk-core/internal/infrastructure/logging"
	"github.com/kioskworks/kiosk-core/internal/infrastructure/telemetry"
	"github.com/kioskworks/kiosk-core/internal/kiosk"
	"github.com/kioskworks/kiosk-core/internal/presence"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting kioskd",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)

	// Open the state directory holding the persisted JSON records
	repo, err := jsonstore.Open(cfg.State.Dir)
	if err != nil {
		return fmt.Errorf("opening state directory: %w", err)
	}
	log.Info("state directory ready", "dir", repo.Dir())

	// Display config store, seeded from config on first boot
	store := kiosk.NewStore(kiosk.Config{
		KioskURL:           cfg.Kiosk.URL,
		Title:              cfg.Kiosk.Title,
		FooterText:         cfg.Kiosk.FooterText,
		Timezone:           cfg.Kiosk.Timezone,
		DisableContextMenu: cfg.Kiosk.DisableContextMenu,
		DisableShortcuts:   cfg.Kiosk.DisableShortcuts,
	}, repo, log.Logger)

	// Push hub: config changes and actions fan out to connected displays
	hub := broadcast.NewHub(cfg.Limits.MaxSessions, cfg.Stream.PingIntervalDuration(), log.Logger)
	go hub.Run(ctx)
	store.SetAnnouncer(hubAnnouncer{hub})

	// Poll-agent presence registry
	registry := presence.NewRegistry(cfg.Limits, cfg.Presence, repo, store, log.Logger)
	go registry.Run(ctx)
	log.Info("presence registry initialised", "agents", registry.Count())

	// Optional InfluxDB telemetry for agent metrics
	tele, err := telemetry.Connect(cfg.Telemetry)
	switch {
	case err == nil:
		defer func() {
			if closeErr := tele.Close(); closeErr != nil {
				log.Error("error closing telemetry", "error", closeErr)
			}
		}()
		tele.SetOnError(func(writeErr error) {
			log.Warn("telemetry write failed", "error", writeErr)
		})
		registry.SetMetricsSink(tele)
		log.Info("telemetry connected", "url", cfg.Telemetry.URL, "bucket", cfg.Telemetry.Bucket)
	case errors.Is(err, telemetry.ErrDisabled):
		log.Info("telemetry disabled, agent metrics stay in memory")
	default:
		return fmt.Errorf("connecting to telemetry: %w", err)
	}

	// LAN discovery and SSH rollout
	aggregator := discovery.NewAggregator(cfg.Discovery, log.Logger)
	executor := deploy.NewExecutor(cfg.Deploy, log.Logger)

	server, err := api.New(api.Deps{
		Config:    cfg,
		Logger:    log,
		Kiosk:     store,
		Hub:       hub,
		Registry:  registry,
		Discovery: aggregator,
		Executor:  executor,
		Version:   version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls will run in reverse order:
	// 1. API server (drains in-flight requests)
	// 2. Telemetry (if enabled)

	log.Info("kioskd stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses KIOSK_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("KIOSK_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// hubAnnouncer adapts the broadcast hub to the config store's announcement
// interface, keeping the kiosk package free of a broadcast dependency.
type hubAnnouncer struct {
	hub *broadcast.Hub
}

func (a hubAnnouncer) ConfigChanged(cfg kiosk.Config) {
	a.hub.BroadcastConfig(cfg)
}

func (a hubAnnouncer) ConfigChangedFor(addr string, cfg kiosk.Config) {
	a.hub.SendToAddress(addr, cfg)
}
