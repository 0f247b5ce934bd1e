package taskboard

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/airyra/taskboard/internal/board"
	"github.com/airyra/taskboard/internal/client"
	"github.com/airyra/taskboard/internal/domain"
	"github.com/airyra/taskboard/internal/identity"
	"github.com/airyra/taskboard/internal/lifecycle"
	"github.com/airyra/taskboard/internal/logging"
	"github.com/airyra/taskboard/internal/metrics"
)

// Session bundles the pieces a board front end needs. The Board is not
// safe for concurrent use; neither is the session.
type Session struct {
	Client  *client.Client
	Board   *board.Board
	Engine  *lifecycle.Engine
	Metrics *metrics.Collector
}

// New creates a session. No request is sent until the board is reloaded
// or Health is called.
func New(opts ...Option) (*Session, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.baseURL == "" {
		if strings.TrimSpace(cfg.host) == "" {
			return nil, fmt.Errorf("host is required")
		}
		if cfg.port < 1 || cfg.port > 65535 {
			return nil, fmt.Errorf("invalid port %d: must be between 1 and 65535", cfg.port)
		}
		cfg.baseURL = "http://" + net.JoinHostPort(cfg.host, strconv.Itoa(cfg.port))
	}
	if cfg.timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive, got %v", cfg.timeout)
	}
	if cfg.agentID == "" {
		cfg.agentID = identity.Generate()
	}

	var m *metrics.Collector
	if cfg.registerer != nil {
		var err error
		if m, err = metrics.NewCollector(cfg.registerer); err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
	}

	clientOpts := []client.Option{client.WithToken(cfg.token)}
	if cfg.httpClient != nil {
		clientOpts = append(clientOpts, client.WithHTTPClient(cfg.httpClient))
	}
	clientOpts = append(clientOpts, client.WithTimeout(cfg.timeout))
	c := client.NewClient(cfg.baseURL, cfg.agentID, clientOpts...)

	logger := logging.OrDiscard(cfg.logger)
	gw := board.NewGateway(c, m, logger)
	b := board.New(gw, cfg.query, board.WithLogger(logger), board.WithMetrics(m))
	e := lifecycle.NewEngine(gw, c, c,
		lifecycle.WithSink(b),
		lifecycle.WithLogger(logger),
		lifecycle.WithMetrics(m),
	)

	return &Session{Client: c, Board: b, Engine: e, Metrics: m}, nil
}

// Health checks that the task service is reachable.
func (s *Session) Health(ctx context.Context) error {
	return s.Client.Health(ctx)
}

// Task returns the board's snapshot of id, fetching it when the board has
// none.
func (s *Session) Task(ctx context.Context, id domain.TaskID) (*domain.Task, error) {
	if t, ok := s.Board.Lookup(id); ok {
		return t, nil
	}
	t, err := s.Board.Gateway().Task(ctx, id)
	if err != nil {
		return nil, err
	}
	s.Board.Apply(t)
	return t, nil
}

// Perform runs req against the current snapshot of id. req.Task is
// filled in when empty.
func (s *Session) Perform(ctx context.Context, id domain.TaskID, req lifecycle.Request) (*lifecycle.Result, error) {
	if req.Task == nil {
		t, err := s.Task(ctx, id)
		if err != nil {
			return nil, err
		}
		req.Task = t
	}
	return s.Engine.Perform(ctx, req)
}

// Focus fetches id and installs it as the only row of the board, so that
// one-shot edits and actions find it there.
func (s *Session) Focus(ctx context.Context, id domain.TaskID) (*domain.Task, error) {
	t, err := s.Board.Gateway().Task(ctx, id)
	if err != nil {
		return nil, err
	}
	ticket := s.Board.BeginReload()
	if err := s.Board.CompleteReload(ticket, &domain.TaskPage{Count: 1, Results: []*domain.Task{t}}, nil); err != nil {
		return nil, err
	}
	return t, nil
}
