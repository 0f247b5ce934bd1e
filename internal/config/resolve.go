package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/airyra/taskboard/internal/client"
	"github.com/airyra/taskboard/internal/domain"
)

// ResolvedConfig represents the final merged configuration with all
// precedence rules applied. Precedence order (highest to lowest):
// 1. Project config (taskboard.toml)
// 2. Global config (~/.taskboard/config.toml)
// 3. Built-in defaults (http://localhost:7480)
type ResolvedConfig struct {
	Project      *ProjectConfig
	ServerHost   string
	ServerPort   int
	ServerScheme string
	Token        string
	Timeout      time.Duration
	LogLevel     string
	StorePath    string
}

// ResolveConfig discovers the project config, loads the global config,
// and merges them according to precedence rules.
func ResolveConfig() (*ResolvedConfig, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return ResolveConfigWithHome(homeDir)
}

// ResolveConfigWithHome resolves config using a specified home directory.
// A missing project file is not an error; the board then shows every
// department.
func ResolveConfigWithHome(homeDir string) (*ResolvedConfig, error) {
	projectCfg, err := DiscoverProjectConfig()
	if err != nil && !errors.Is(err, ErrNoProjectConfig) {
		return nil, err
	}

	globalCfg, err := LoadGlobalConfigFromDir(homeDir)
	if err != nil {
		return nil, err
	}

	// Merge with precedence (defaults -> global -> project)
	resolved := &ResolvedConfig{
		Project:      projectCfg,
		ServerHost:   DefaultServerHost,
		ServerPort:   DefaultServerPort,
		ServerScheme: "http",
		Timeout:      client.DefaultTimeout,
		LogLevel:     "warn",
		StorePath:    filepath.Join(homeDir, GlobalConfigDir, DefaultStoreFileName),
		Token:        globalCfg.Token,
	}

	if globalCfg.ServerHost != "" {
		resolved.ServerHost = globalCfg.ServerHost
	}
	if globalCfg.ServerPort != 0 {
		resolved.ServerPort = globalCfg.ServerPort
	}
	if globalCfg.ServerScheme != "" {
		resolved.ServerScheme = globalCfg.ServerScheme
	}
	if globalCfg.Timeout > 0 {
		resolved.Timeout = globalCfg.Timeout
	}
	if globalCfg.LogLevel != "" {
		resolved.LogLevel = globalCfg.LogLevel
	}
	if globalCfg.StorePath != "" {
		resolved.StorePath = globalCfg.StorePath
	}

	if projectCfg != nil {
		if projectCfg.HostExplicitlySet() {
			resolved.ServerHost = projectCfg.ServerHost
		}
		if projectCfg.PortExplicitlySet() {
			resolved.ServerPort = projectCfg.ServerPort
		}
	}

	return resolved, nil
}

// Address returns host:port of the task service.
func (c *ResolvedConfig) Address() string {
	return net.JoinHostPort(c.ServerHost, strconv.Itoa(c.ServerPort))
}

// BaseURL returns the root URL of the task service.
func (c *ResolvedConfig) BaseURL() string {
	return fmt.Sprintf("%s://%s", c.ServerScheme, c.Address())
}

// Query returns the default board query: the project defaults when a
// project file was found, every department otherwise.
func (c *ResolvedConfig) Query() domain.Query {
	if c.Project == nil {
		return domain.NewQuery("")
	}
	return c.Project.Query()
}
