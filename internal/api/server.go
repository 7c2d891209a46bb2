// Package api provides the inbound HTTP server for the IoT agent.
//
// It exposes the NGSI10 context provider endpoints (updateContext,
// queryContext) and the subscription notification endpoint to the context
// broker and to external notification sources, handing every parsed payload
// to the dispatch layer.
//
// The server follows the lifecycle pattern used by the other components:
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

	"github.com/ngsilink/iotagent-core/internal/device"
	"github.com/ngsilink/iotagent-core/internal/dispatch"
	"github.com/ngsilink/iotagent-core/internal/infrastructure/config"
	"github.com/ngsilink/iotagent-core/internal/infrastructure/logging"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight
// requests to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config        config.ServerConfig
	Logger        *logging.Logger
	Dispatcher    *dispatch.Dispatcher
	DefaultTenant device.Tenant
	Version       string
}

// Server is the agent's inbound HTTP server. It manages the listener,
// routes and middleware; request semantics live in the dispatcher.
type Server struct {
	cfg           config.ServerConfig
	logger        *logging.Logger
	dispatcher    *dispatch.Dispatcher
	defaultTenant device.Tenant
	version       string
	server        *http.Server
}

// New creates a new API server with the given dependencies.
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}

	s := &Server{
		cfg:           deps.Config,
		logger:        deps.Logger,
		dispatcher:    deps.Dispatcher,
		defaultTenant: deps.DefaultTenant,
		version:       deps.Version,
	}

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", deps.Config.Host, deps.Config.Port),
		Handler:      s.buildRouter(),
		ReadTimeout:  time.Duration(deps.Config.Timeouts.Read) * time.Second,
		WriteTimeout: time.Duration(deps.Config.Timeouts.Write) * time.Second,
		IdleTimeout:  time.Duration(deps.Config.Timeouts.Idle) * time.Second,
	}

	return s, nil
}

// Start begins listening for HTTP requests. It returns immediately; the
// listener runs on its own goroutine until Close() or a listen error.
func (s *Server) Start(ctx context.Context) {
	go func() {
		s.logger.Info("http server listening", "addr", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		s.shutdown()
	}()
}

// Close shuts the server down, waiting for in-flight requests.
func (s *Server) Close() error {
	s.shutdown()
	return nil
}

// shutdown drains in-flight requests with a bounded grace period.
func (s *Server) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Warn("http server shutdown", "error", err)
	}
}
