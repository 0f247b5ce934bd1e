package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Output formats understood by --format.
const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

var rootCmd = &cobra.Command{
	Use:   "taskboard",
	Short: "Department task board",
	Long: `A task board for manufacturing job orders: browse the department task
tree, drive tasks through their lifecycle and edit them in place.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		switch outputFormat {
		case formatTable, formatJSON, formatYAML:
			return nil
		}
		return fmt.Errorf("invalid format %q: use table, json or yaml", outputFormat)
	},
}

// Global flags
var (
	jsonOutput   bool
	outputFormat string
	serverURL    string
	agentFlag    string
	tokenFlag    string
)

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output as JSON (same as --format json)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "o", formatTable, "Output format: table, json or yaml")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "Task service base URL (overrides config)")
	rootCmd.PersistentFlags().StringVar(&agentFlag, "agent", "", "Agent identity sent with every request")
	rootCmd.PersistentFlags().StringVar(&tokenFlag, "token", "", "Bearer token (overrides config)")
}

// format returns the effective output format.
func format() string {
	if jsonOutput {
		return formatJSON
	}
	return outputFormat
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		printError(os.Stderr, err, format())
		os.Exit(ExitGeneralError)
	}
}
