package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/airyra/taskboard/internal/domain"
)

const (
	// ConfigFileName is the name of the project configuration file
	ConfigFileName = "taskboard.toml"

	// DefaultServerHost is the default server host
	DefaultServerHost = "localhost"

	// DefaultServerPort is the default server port
	DefaultServerPort = 7480
)

// ErrNoProjectConfig is returned when no taskboard.toml exists in the
// working directory or any of its parents.
var ErrNoProjectConfig = errors.New("no taskboard.toml found")

// ProjectConfig represents the board defaults of one checkout, read from
// taskboard.toml.
type ProjectConfig struct {
	Path       string
	Department domain.Department
	JobOrder   string
	PageSize   int
	Statuses   []domain.TaskStatus
	ServerHost string
	ServerPort int

	// Track whether values were explicitly set in config file
	hostExplicitlySet bool
	portExplicitlySet bool
}

// projectConfigFile represents the raw TOML structure
type projectConfigFile struct {
	Department string       `toml:"department"`
	JobOrder   string       `toml:"job_order"`
	PageSize   int          `toml:"page_size"`
	Statuses   []string     `toml:"statuses"`
	Server     serverConfig `toml:"server"`
}

// serverConfig represents the [server] section in TOML
type serverConfig struct {
	Host    string `toml:"host"`
	Port    *int   `toml:"port"`
	Scheme  string `toml:"scheme"`
	Token   string `toml:"token"`
	Timeout string `toml:"timeout"`
}

// DiscoverProjectConfig finds and parses the taskboard.toml file by traversing
// up the directory tree from the current working directory.
func DiscoverProjectConfig() (*ProjectConfig, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current directory: %w", err)
	}

	return discoverProjectConfigFrom(cwd)
}

// discoverProjectConfigFrom searches for taskboard.toml starting from the given directory
func discoverProjectConfigFrom(startDir string) (*ProjectConfig, error) {
	dir := startDir

	for {
		configPath := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(configPath); err == nil {
			return ParseProjectConfig(configPath)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, ErrNoProjectConfig
		}
		dir = parent
	}
}

// ParseProjectConfig parses the taskboard.toml file at the given path
func ParseProjectConfig(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var rawConfig projectConfigFile
	if _, err := toml.Decode(string(data), &rawConfig); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	cfg := &ProjectConfig{
		Path:       path,
		JobOrder:   rawConfig.JobOrder,
		ServerHost: DefaultServerHost,
		ServerPort: DefaultServerPort,
	}

	if rawConfig.Department != "" {
		d := domain.Department(rawConfig.Department)
		if !d.IsValid() {
			return nil, fmt.Errorf("unknown department %q", rawConfig.Department)
		}
		cfg.Department = d
	}

	if rawConfig.PageSize < 0 || rawConfig.PageSize > domain.MaxPageSize {
		return nil, fmt.Errorf("invalid page_size %d: must be between 1 and %d", rawConfig.PageSize, domain.MaxPageSize)
	}
	cfg.PageSize = rawConfig.PageSize

	for _, raw := range rawConfig.Statuses {
		s := domain.TaskStatus(raw)
		if !s.IsValid() {
			return nil, fmt.Errorf("unknown status %q", raw)
		}
		cfg.Statuses = append(cfg.Statuses, s)
	}

	// Validate port if explicitly specified in config
	if rawConfig.Server.Port != nil {
		if err := validatePort(*rawConfig.Server.Port); err != nil {
			return nil, err
		}
	}

	if rawConfig.Server.Host != "" {
		cfg.ServerHost = rawConfig.Server.Host
		cfg.hostExplicitlySet = true
	}
	if rawConfig.Server.Port != nil {
		cfg.ServerPort = *rawConfig.Server.Port
		cfg.portExplicitlySet = true
	}

	return cfg, nil
}

// Query returns the listing defaults of the project as a board query.
func (c *ProjectConfig) Query() domain.Query {
	q := domain.NewQuery(c.Department).WithJobOrder(c.JobOrder)
	if c.PageSize > 0 {
		q = q.WithPageSize(c.PageSize)
	}
	if len(c.Statuses) > 0 {
		q = q.WithStatuses(c.Statuses...)
	}
	return q
}

// HostExplicitlySet returns true if the host was explicitly set in the config file
func (c *ProjectConfig) HostExplicitlySet() bool {
	return c.hostExplicitlySet
}

// PortExplicitlySet returns true if the port was explicitly set in the config file
func (c *ProjectConfig) PortExplicitlySet() bool {
	return c.portExplicitlySet
}

// validatePort checks if the port is in the valid range (1-65535)
func validatePort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("invalid port %d: must be between 1 and 65535", port)
	}
	return nil
}
