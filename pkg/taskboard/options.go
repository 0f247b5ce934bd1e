package taskboard

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/airyra/taskboard/internal/client"
	"github.com/airyra/taskboard/internal/domain"
)

// Option configures a Session.
type Option func(*sessionConfig)

// sessionConfig holds the configuration for a Session.
type sessionConfig struct {
	host       string
	port       int
	baseURL    string
	token      string
	agentID    string
	timeout    time.Duration
	httpClient *http.Client
	logger     *slog.Logger
	registerer prometheus.Registerer
	query      domain.Query
}

// defaultConfig returns the default session configuration.
func defaultConfig() *sessionConfig {
	return &sessionConfig{
		host:    "localhost",
		port:    7480,
		timeout: client.DefaultTimeout,
		query:   domain.NewQuery(""),
	}
}

// WithHost sets the task service host.
func WithHost(host string) Option {
	return func(c *sessionConfig) {
		c.host = host
	}
}

// WithPort sets the task service port.
func WithPort(port int) Option {
	return func(c *sessionConfig) {
		c.port = port
	}
}

// WithBaseURL sets the full service URL, overriding host and port.
func WithBaseURL(u string) Option {
	return func(c *sessionConfig) {
		c.baseURL = u
	}
}

// WithToken sets the bearer token sent on every request.
func WithToken(token string) Option {
	return func(c *sessionConfig) {
		c.token = token
	}
}

// WithAgentID sets the agent recorded by the service as the actor of
// every change. Defaults to user@hostname.
func WithAgentID(agentID string) Option {
	return func(c *sessionConfig) {
		c.agentID = agentID
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *sessionConfig) {
		c.timeout = timeout
	}
}

// WithHTTPClient sets the HTTP client. WithTimeout still applies to it.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *sessionConfig) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger shared by the board and the engine.
func WithLogger(l *slog.Logger) Option {
	return func(c *sessionConfig) {
		c.logger = l
	}
}

// WithRegisterer registers the session metrics on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *sessionConfig) {
		c.registerer = reg
	}
}

// WithQuery sets the initial board query.
func WithQuery(q domain.Query) Option {
	return func(c *sessionConfig) {
		c.query = q
	}
}
