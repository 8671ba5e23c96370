package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/gray-logic-miio/internal/accessory"
	"github.com/nerrad567/gray-logic-miio/internal/gateway"
	"github.com/nerrad567/gray-logic-miio/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-miio/internal/infrastructure/logging"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// defaultRequestTimeout bounds characteristic reads and writes.
const defaultRequestTimeout = 15 * time.Second

// AccessorySource lists the accessories the bridge knows about.
type AccessorySource interface {
	Accessories() []*accessory.Accessory
}

// GatewaySource reports gateway supervisor status.
type GatewaySource interface {
	Statuses() []gateway.Status
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config      config.APIConfig
	WS          config.WebSocketConfig
	Logger      *logging.Logger
	Accessories AccessorySource
	Gateways    GatewaySource

	// Hub is subscribed to accessories before the server starts. If nil
	// the server creates its own and no events are streamed.
	Hub *Hub

	RequestTimeout time.Duration
	Version        string
}

// Server is the HTTP API server.
type Server struct {
	cfg         config.APIConfig
	logger      *logging.Logger
	accessories AccessorySource
	gateways    GatewaySource
	timeout     time.Duration
	version     string
	started     time.Time
	server      *http.Server
	hub         *Hub
	cancel      context.CancelFunc
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Accessories == nil {
		return nil, fmt.Errorf("accessory source is required")
	}
	if deps.Gateways == nil {
		return nil, fmt.Errorf("gateway source is required")
	}

	timeout := deps.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	hub := deps.Hub
	if hub == nil {
		hub = NewHub(deps.WS, deps.Logger)
	}

	return &Server{
		cfg:         deps.Config,
		logger:      deps.Logger,
		accessories: deps.Accessories,
		gateways:    deps.Gateways,
		timeout:     timeout,
		version:     deps.Version,
		started:     time.Now(),
		hub:         hub,
	}, nil
}

// Start begins listening for HTTP connections in a background goroutine.
// The server can be stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)
	go s.hub.Run(srvCtx)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		s.logger.Info("API server starting", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}
	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}
