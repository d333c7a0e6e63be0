package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/kioskworks/kiosk-core/internal/broadcast"
	"github.com/kioskworks/kiosk-core/internal/deploy"
	"github.com/kioskworks/kiosk-core/internal/discovery"
	"github.com/kioskworks/kiosk-core/internal/infrastructure/config"
	"github.com/kioskworks/kiosk-core/internal/infrastructure/logging"
	"github.com/kioskworks/kiosk-core/internal/kiosk"
	"github.com/kioskworks/kiosk-core/internal/presence"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config    *config.Config
	Logger    *logging.Logger
	Kiosk     *kiosk.Store
	Hub       *broadcast.Hub
	Registry  *presence.Registry
	Discovery *discovery.Aggregator
	Executor  *deploy.Executor
	Version   string
}

// Server is the HTTP server for kioskd.
//
// It manages the HTTP listener, routes and middleware. The server is created
// with New() and started with Start(); background loops (hub keepalive,
// presence sweep) are owned by the caller.
type Server struct {
	cfg       *config.Config
	logger    *logging.Logger
	kiosk     *kiosk.Store
	hub       *broadcast.Hub
	registry  *presence.Registry
	discovery *discovery.Aggregator
	executor  *deploy.Executor
	version   string
	server    *http.Server
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Kiosk == nil {
		return nil, fmt.Errorf("kiosk store is required")
	}
	if deps.Hub == nil {
		return nil, fmt.Errorf("broadcast hub is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("presence registry is required")
	}
	// Discovery and Executor are optional: without them the LAN and deploy
	// endpoints report their absence but the rest of the surface works.

	return &Server{
		cfg:       deps.Config,
		logger:    deps.Logger,
		kiosk:     deps.Kiosk,
		hub:       deps.Hub,
		registry:  deps.Registry,
		discovery: deps.Discovery,
		executor:  deps.Executor,
		version:   deps.Version,
	}, nil
}

// Start begins listening for HTTP connections.
//
// It builds the router and launches the HTTP listener in a background
// goroutine. The server can be stopped with Close().
//
// Returns:
//   - error: If the server fails to start (port in use, etc.)
func (s *Server) Start(_ context.Context) error {
	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Server.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Server.Timeouts.Read) * time.Second,
		// WriteTimeout stays at the configured value (0 = unlimited) because
		// the event stream holds its response open indefinitely.
		WriteTimeout: time.Duration(s.cfg.Server.Timeouts.Write) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.Server.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.Server.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.Server.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.Server.TLS.CertFile, s.cfg.Server.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}

// clientAddr extracts the client IP from the request, normalising
// IPv6-mapped IPv4 addresses (::ffff:192.168.0.1 becomes 192.168.0.1) so it
// matches the addresses agents and overrides are keyed by.
func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if ip := net.ParseIP(host); ip != nil {
		if v4 := ip.To4(); v4 != nil {
			return v4.String()
		}
	}
	return strings.TrimPrefix(host, "::ffff:")
}

// decodeBody decodes a JSON request body into v. An empty body is treated as
// an empty object, matching how the UI posts optional payloads.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	return nil
}
