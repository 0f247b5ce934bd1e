// Package server provides the HTTP server lifecycle of the reference task
// service.
package server

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/airyra/taskboard/internal/api"
	"github.com/airyra/taskboard/internal/metrics"
	"github.com/airyra/taskboard/internal/store"
)

const (
	// DefaultAddress is the default address the server listens on.
	DefaultAddress = "localhost:7480"
	// DefaultShutdownTimeout is the default timeout for graceful shutdown.
	DefaultShutdownTimeout = 30 * time.Second
)

// Option configures a Server.
type Option func(*Server)

// WithToken requires a bearer token on every API route.
func WithToken(token string) Option {
	return func(s *Server) { s.token = token }
}

// WithLogger replaces the default stdout logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// Server manages the HTTP server lifecycle.
type Server struct {
	httpServer *http.Server
	store      *store.Store
	logger     *log.Logger
	registry   *prometheus.Registry
	token      string
	listener   net.Listener
	addr       string
	mu         sync.Mutex
	started    bool
}

// New creates a new Server instance.
// If addr is empty, DefaultAddress will be used.
func New(addr string, st *store.Store, opts ...Option) *Server {
	if addr == "" {
		addr = DefaultAddress
	}

	s := &Server{
		store:    st,
		logger:   log.New(os.Stdout, "[taskboard] ", log.LstdFlags),
		registry: prometheus.NewRegistry(),
		addr:     addr,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.registry.MustRegister(collectors.NewGoCollector())
	router := api.NewRouter(st, api.Options{
		Token:    s.token,
		Logger:   s.logger,
		Metrics:  metrics.MustNewCollector(s.registry),
		Gatherer: s.registry,
	})

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start starts the HTTP server and blocks until the server is shut down.
// It returns http.ErrServerClosed when the server is gracefully shut down.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}

	// Listen first so Addr is known for port 0
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		s.mu.Unlock()
		return err
	}

	s.listener = ln
	s.started = true
	s.mu.Unlock()

	s.logger.Printf("Server listening on %s (store %s)", ln.Addr().String(), s.store.Path())

	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server without interrupting active connections.
// It waits for active connections to finish or until the context is canceled.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	s.logger.Println("Shutting down server...")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}

	if err := s.store.Close(); err != nil {
		s.logger.Printf("Warning: error closing store: %v", err)
	}

	s.logger.Println("Server stopped")
	return nil
}

// Addr returns the address the server is listening on.
// Returns empty string if the server hasn't started yet.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

// Handler returns the HTTP handler, for in-process use.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts the server and shuts it down gracefully on SIGINT
// or SIGTERM.
func (s *Server) ListenAndServe() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.Start()
	}()

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		s.logger.Printf("Received signal: %v", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()

	return s.Shutdown(ctx)
}
