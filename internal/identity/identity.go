// Package identity resolves the agent name the board sends in the
// X-Taskboard-Agent header. The server records it as the actor of every
// audit entry.
package identity

import (
	"fmt"
	"os"
	"os/user"
	"strings"
)

// EnvAgent overrides the generated identity when set.
const EnvAgent = "TASKBOARD_AGENT"

const (
	// FallbackUser is used when the user cannot be determined
	FallbackUser = "unknown"
	// FallbackHostname is used when the hostname cannot be determined
	FallbackHostname = "localhost"
)

// Generate returns the agent identity. TASKBOARD_AGENT wins when set;
// otherwise the identity is user@hostname, e.g. alice@workshop-pc.
func Generate() string {
	if agent := strings.TrimSpace(os.Getenv(EnvAgent)); agent != "" {
		return agent
	}
	return GenerateWithOverrides(getUser(), getHostname())
}

// GenerateWithOverrides formats user@hostname, applying fallbacks for
// empty values.
func GenerateWithOverrides(usr, hostname string) string {
	if usr == "" {
		usr = FallbackUser
	}
	if hostname == "" {
		hostname = FallbackHostname
	}
	return fmt.Sprintf("%s@%s", usr, hostname)
}

// getUser first checks the USER environment variable, then user.Current().
func getUser() string {
	if usr := os.Getenv("USER"); usr != "" {
		return usr
	}
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return ""
}

func getHostname() string {
	if hostname, err := os.Hostname(); err == nil && hostname != "" {
		return hostname
	}
	return ""
}
