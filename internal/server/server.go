// ABOUTME: HTTP server that wires the identity pipeline, ticket API and demo routes
// ABOUTME: Manages listener lifecycle, graceful shutdown and the request logger

package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/2389/ticketd/internal/auth"
	"github.com/2389/ticketd/internal/config"
	"github.com/2389/ticketd/internal/reqlog"
	"github.com/2389/ticketd/internal/store"
)

// Server serves the ticket API. Build one with New.
type Server struct {
	config     *config.Config
	tickets    store.TicketStore
	reqlog     *reqlog.Logger
	logger     *slog.Logger
	handler    http.Handler
	httpServer *http.Server
}

// New creates a Server around an injected ticket store and request logger.
// The server owns reqLogger from here on and closes it on Shutdown.
func New(cfg *config.Config, tickets store.TicketStore, reqLogger *reqlog.Logger, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if reqLogger == nil {
		reqLogger = reqlog.New(logger.With("component", "reqlog"), cfg.Logging.RequestQueue)
	}
	s := &Server{
		config:  cfg,
		tickets: tickets,
		reqlog:  reqLogger,
		logger:  logger.With("component", "server"),
	}
	s.handler = s.routes()
	s.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           s.handler,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}
	return s
}

// Handler returns the full middleware chain. Useful for httptest.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// routes builds the request pipeline:
// mapper → resolver → mux, with the auth gate on the ticket group only.
func (s *Server) routes() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("POST /api/tickets", s.handleCreateTicket)
	api.HandleFunc("GET /api/tickets", s.handleListTickets)
	api.HandleFunc("DELETE /api/tickets/{id}", s.handleDeleteTicket)
	protected := auth.RequireAuth()(api)

	mux := http.NewServeMux()
	mux.Handle("/api/tickets", protected)
	mux.Handle("/api/tickets/", protected)
	mux.HandleFunc("POST /api/login", s.handleLogin)

	// Demo endpoints - no auth required
	mux.HandleFunc("GET /hello", s.handleHello)
	mux.HandleFunc("GET /hello2/{name}", s.handleHello2)

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /health/ready", s.handleReady)

	resolver := auth.ResolveMiddleware(s.config.Auth.CookieName, s.logger.With("component", "auth"))
	return s.mapResponses(resolver(mux))
}

// Run listens on the configured address and blocks until ctx is canceled
// or the server fails. It always shuts down gracefully before returning.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Server.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listening on HTTP address: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		s.logger.Info("context canceled, initiating shutdown")
	case serverErr = <-errCh:
		s.logger.Error("server error", "error", serverErr)
	}

	shutdownErr := s.gracefulShutdown()
	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// gracefulShutdown performs shutdown with a fresh context and timeout.
// Uses context.Background() since the original context is already canceled.
func (s *Server) gracefulShutdown() error {
	timeout := s.config.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.Shutdown(ctx)
}

// Shutdown stops accepting connections, waits for in-flight requests and
// then drains the request logger.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.reqlog.Close()
	if err != nil {
		return fmt.Errorf("shutting down HTTP server: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}
