package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	// GlobalConfigDir is the name of the global config directory in home
	GlobalConfigDir = ".taskboard"

	// GlobalConfigFileName is the name of the global config file
	GlobalConfigFileName = "config.toml"

	// DefaultStoreFileName is the database file of the reference server,
	// kept in the global config directory.
	DefaultStoreFileName = "taskboard.db"
)

// GlobalConfig represents the user-level configuration from ~/.taskboard/config.toml
type GlobalConfig struct {
	ServerHost   string
	ServerPort   int
	ServerScheme string
	Token        string
	Timeout      time.Duration
	LogLevel     string
	StorePath    string
}

// globalConfigFile represents the raw TOML structure for global config
type globalConfigFile struct {
	Server serverConfig `toml:"server"`
	Log    struct {
		Level string `toml:"level"`
	} `toml:"log"`
	Store struct {
		Path string `toml:"path"`
	} `toml:"store"`
}

// LoadGlobalConfig loads the global configuration from ~/.taskboard/config.toml.
// Returns an empty config (not an error) if the file doesn't exist.
func LoadGlobalConfig() (*GlobalConfig, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	return LoadGlobalConfigFromDir(homeDir)
}

// LoadGlobalConfigFromDir loads global config using the specified directory as home.
// This is useful for testing.
func LoadGlobalConfigFromDir(homeDir string) (*GlobalConfig, error) {
	configPath := filepath.Join(homeDir, GlobalConfigDir, GlobalConfigFileName)

	// Check if file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return &GlobalConfig{}, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read global config: %w", err)
	}

	var rawConfig globalConfigFile
	if _, err := toml.Decode(string(data), &rawConfig); err != nil {
		return nil, fmt.Errorf("failed to parse global config TOML: %w", err)
	}

	cfg := &GlobalConfig{
		ServerHost:   rawConfig.Server.Host,
		ServerScheme: rawConfig.Server.Scheme,
		Token:        rawConfig.Server.Token,
		LogLevel:     rawConfig.Log.Level,
		StorePath:    expandHome(rawConfig.Store.Path, homeDir),
	}

	if rawConfig.Server.Port != nil {
		if err := validatePort(*rawConfig.Server.Port); err != nil {
			return nil, err
		}
		cfg.ServerPort = *rawConfig.Server.Port
	}

	switch cfg.ServerScheme {
	case "", "http", "https":
	default:
		return nil, fmt.Errorf("invalid scheme %q: must be http or https", cfg.ServerScheme)
	}

	if rawConfig.Server.Timeout != "" {
		d, err := time.ParseDuration(rawConfig.Server.Timeout)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid timeout %q: expected a positive duration such as 30s", rawConfig.Server.Timeout)
		}
		cfg.Timeout = d
	}

	return cfg, nil
}

// expandHome resolves a leading ~/ against homeDir.
func expandHome(path, homeDir string) string {
	if len(path) >= 2 && path[:2] == "~/" {
		return filepath.Join(homeDir, path[2:])
	}
	return path
}
