package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/airyra/taskboard/internal/config"
	"github.com/airyra/taskboard/internal/domain"
	"github.com/airyra/taskboard/internal/logging"
	"github.com/airyra/taskboard/pkg/taskboard"
)

// newSession creates a session from the resolved config and the global
// flags. extra options are applied last.
func newSession(extra ...taskboard.Option) (*taskboard.Session, *config.ResolvedConfig, error) {
	cfg, err := config.ResolveConfig()
	if err != nil {
		return nil, nil, err
	}

	base := cfg.BaseURL()
	if serverURL != "" {
		base = strings.TrimRight(serverURL, "/")
	}
	token := cfg.Token
	if tokenFlag != "" {
		token = tokenFlag
	}

	opts := []taskboard.Option{
		taskboard.WithBaseURL(base),
		taskboard.WithToken(token),
		taskboard.WithTimeout(cfg.Timeout),
		taskboard.WithLogger(newLogger(cfg)),
		taskboard.WithQuery(cfg.Query()),
	}
	if agentFlag != "" {
		opts = append(opts, taskboard.WithAgentID(agentFlag))
	}
	opts = append(opts, extra...)

	s, err := taskboard.New(opts...)
	if err != nil {
		return nil, nil, err
	}
	return s, cfg, nil
}

func newLogger(cfg *config.ResolvedConfig) *slog.Logger {
	return logging.New(os.Stderr, logging.ParseLevel(cfg.LogLevel))
}

// commandContext returns the context of a running command.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// parseID parses a task id argument. Only real tasks can be addressed
// from the command line.
func parseID(raw string) (domain.TaskID, error) {
	id := domain.ParseTaskID(raw)
	if id.IsZero() || id.IsSynthetic() {
		return domain.TaskID{}, fmt.Errorf("invalid task id %q", raw)
	}
	return id, nil
}

// parseInt64 parses a positive numeric argument such as a release or
// review id.
func parseInt64(name, raw string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return n, nil
}

// parseStatuses parses a comma-separated status list. "all" selects every
// status.
func parseStatuses(raw string) ([]domain.TaskStatus, error) {
	raw = strings.TrimSpace(raw)
	if raw == "all" {
		return append([]domain.TaskStatus(nil), domain.ValidStatuses...), nil
	}
	var out []domain.TaskStatus
	for _, part := range strings.Split(raw, ",") {
		s := domain.TaskStatus(strings.TrimSpace(part))
		if s == "" {
			continue
		}
		if !s.IsValid() {
			return nil, fmt.Errorf("invalid status %q", part)
		}
		out = append(out, s)
	}
	return out, nil
}

// parseDepartment validates a department flag. The empty value selects
// every department.
func parseDepartment(raw string) (domain.Department, error) {
	d := domain.Department(strings.TrimSpace(raw))
	if d != "" && !d.IsValid() {
		return "", fmt.Errorf("invalid department %q", raw)
	}
	return d, nil
}

// addReleaseFlags registers the drawing release form flags on cmd.
func addReleaseFlags(cmd *cobra.Command) {
	cmd.Flags().String("folder", "", "Drawing folder path")
	cmd.Flags().String("revision-code", "", "Revision code of the release")
	cmd.Flags().String("changelog", "", "Changes in this release")
	cmd.Flags().Int("hardcopies", 0, "Number of hardcopies")
	cmd.Flags().String("topic", "", "Announcement topic content")
}

// releaseForm builds the release form from the flags. It returns nil when
// none of them is set.
func releaseForm(cmd *cobra.Command) *domain.ReleaseForm {
	set := false
	for _, name := range []string{"folder", "revision-code", "changelog", "hardcopies", "topic"} {
		if cmd.Flags().Changed(name) {
			set = true
			break
		}
	}
	if !set {
		return nil
	}

	folder, _ := cmd.Flags().GetString("folder")
	code, _ := cmd.Flags().GetString("revision-code")
	changelog, _ := cmd.Flags().GetString("changelog")
	hardcopies, _ := cmd.Flags().GetInt("hardcopies")
	topic, _ := cmd.Flags().GetString("topic")
	return &domain.ReleaseForm{
		FolderPath:    folder,
		RevisionCode:  code,
		Changelog:     changelog,
		HardcopyCount: hardcopies,
		TopicContent:  topic,
	}
}
