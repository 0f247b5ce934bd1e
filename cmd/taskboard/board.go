package main

import (
	"github.com/spf13/cobra"

	"github.com/airyra/taskboard/internal/logging"
	"github.com/airyra/taskboard/internal/tui"
	"github.com/airyra/taskboard/pkg/taskboard"
)

var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Open the interactive task board",
	Long: `Open the interactive task board on the project view. Use enter to
expand a task, s/c/u/x/b to act on it and q to quit.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Log lines would tear the alternate screen.
		s, _, err := newSession(taskboard.WithLogger(logging.Discard()))
		if err != nil {
			return err
		}
		m := tui.New(s.Board, s.Client, s.Client,
			tui.WithMetrics(s.Metrics),
			tui.WithContext(commandContext(cmd)),
		)
		return tui.Run(m)
	},
}

func init() {
	rootCmd.AddCommand(boardCmd)
}
