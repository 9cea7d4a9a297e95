// Package api provides the local HTTP API and WebSocket feed of the charge
// point.
//
// It exposes the charger state, the protocol session and the journal, and
// accepts hardware events and availability changes from maintenance tools.
//
// The server follows the same lifecycle pattern as other infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/chargepoint-core/internal/charger"
	"github.com/nerrad567/chargepoint-core/internal/dispatch"
	"github.com/nerrad567/chargepoint-core/internal/infrastructure/config"
	"github.com/nerrad567/chargepoint-core/internal/infrastructure/logging"
	"github.com/nerrad567/chargepoint-core/internal/journal"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Controller is the part of the dispatcher the API reads and drives.
// *dispatch.Dispatcher satisfies it.
type Controller interface {
	Charger() *charger.Charger
	CurrentState() charger.State
	Session() dispatch.Session
	PendingOutgoing() int
	PushHardwareEvent(ev charger.Event)
	SetAvailability(available bool) error
	OnStateChange(fn func(charger.Change))
	OnSessionEnd(fn func(dispatch.SessionEnd))
}

// HealthChecker is implemented by the database, MQTT and InfluxDB clients.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config     config.APIConfig
	WS         config.WebSocketConfig
	Logger     *logging.Logger
	Controller Controller
	Journal    journal.Repository       // optional; /journal answers 503 without it
	Checks     map[string]HealthChecker // reported by /health, keyed by component name
	Version    string
}

// Server is the local HTTP API server.
type Server struct {
	cfg     config.APIConfig
	wsCfg   config.WebSocketConfig
	logger  *logging.Logger
	ctrl    Controller
	journal journal.Repository
	checks  map[string]HealthChecker
	version string
	started time.Time
	hub     *Hub
	server  *http.Server
	cancel  context.CancelFunc
}

// New creates a new API server and subscribes its WebSocket hub to the
// controller's state changes and finished sessions.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Required dependencies (logger, controller)
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Controller == nil {
		return nil, fmt.Errorf("controller is required")
	}

	s := &Server{
		cfg:     deps.Config,
		wsCfg:   deps.WS,
		logger:  deps.Logger,
		ctrl:    deps.Controller,
		journal: deps.Journal,
		checks:  deps.Checks,
		version: deps.Version,
		started: time.Now(),
		hub:     NewHub(deps.WS, deps.Logger),
	}

	s.ctrl.OnStateChange(func(c charger.Change) {
		s.hub.Broadcast(ChannelStateChanged, c)
	})
	s.ctrl.OnSessionEnd(func(end dispatch.SessionEnd) {
		s.hub.Broadcast(ChannelSessionEnded, newSessionEndBody(end))
	})

	return s, nil
}

// Handler returns the router. Start serves it; tests use it directly.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start begins listening for HTTP connections in a background goroutine.
//
// Parameters:
//   - ctx: Parent of the hub's lifetime; Close also stops it
//
// Returns:
//   - error: Always nil; listener errors are logged
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)
	go s.hub.Run(srvCtx)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       s.cfg.GetReadTimeout(),
		ReadHeaderTimeout: s.cfg.GetReadTimeout(),
		WriteTimeout:      s.cfg.GetWriteTimeout(),
		IdleTimeout:       s.cfg.GetIdleTimeout(),
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS", "address", s.server.Addr, "cert", s.cfg.TLS.CertFile)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
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

// Close gracefully shuts down the API server, waiting up to 10 seconds for
// in-flight requests.
func (s *Server) Close() error {
	if s.cancel != nil {
		s.cancel()
	}
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

// ClientCount is the number of connected WebSocket clients.
func (s *Server) ClientCount() int {
	return s.hub.ClientCount()
}
