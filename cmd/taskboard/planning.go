package main

import (
	"github.com/spf13/cobra"
)

var itemsCmd = &cobra.Command{
	Use:   "items",
	Short: "Planning request items",
}

var itemsAddCmd = &cobra.Command{
	Use:   "add <code> [name]",
	Short: "Create a planning request item",
	Long: `Create a planning request item. Link it to a procurement task with
taskboard create --type procurement_item --planning-item <id>.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := ""
		if len(args) > 1 {
			name = args[1]
		}
		s, _, err := newSession()
		if err != nil {
			return err
		}
		item, err := s.Client.CreatePlanningItem(commandContext(cmd), args[0], name)
		if err != nil {
			return err
		}
		printPlanningItem(cmd.OutOrStdout(), item, format())
		return nil
	},
}

var jobCmd = &cobra.Command{
	Use:   "job <job-no>",
	Short: "Show a job order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, _, err := newSession()
		if err != nil {
			return err
		}
		jo, err := s.Client.GetJobOrder(commandContext(cmd), args[0])
		if err != nil {
			return err
		}
		printJobOrder(cmd.OutOrStdout(), jo, format())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(itemsCmd, jobCmd)
	itemsCmd.AddCommand(itemsAddCmd)
}
