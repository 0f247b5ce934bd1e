package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/airyra/taskboard/internal/client"
	"github.com/airyra/taskboard/internal/domain"
)

var subcontractCmd = &cobra.Command{
	Use:   "subcontract",
	Short: "Subcontractor weight allocation",
	Long: `Allocate the welding or painting weight of manufacturing tasks to
subcontractors at a price tier.`,
}

var subcontractListCmd = &cobra.Command{
	Use:   "list",
	Short: "List subcontractor assignments",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var filter client.AssignmentFilter
		filter.JobNo, _ = cmd.Flags().GetString("job-order")
		if raw, _ := cmd.Flags().GetString("task"); raw != "" {
			id, err := parseID(raw)
			if err != nil {
				return err
			}
			filter.Task = id
		}
		if raw, _ := cmd.Flags().GetString("subcontractor"); raw != "" {
			n, err := parseInt64("subcontractor", raw)
			if err != nil {
				return err
			}
			filter.Subcontractor = n
		}

		s, _, err := newSession()
		if err != nil {
			return err
		}
		assignments, err := s.Client.ListAssignments(commandContext(cmd), filter)
		if err != nil {
			return err
		}
		printAssignments(cmd.OutOrStdout(), assignments, format())
		return nil
	},
}

var subcontractAssignCmd = &cobra.Command{
	Use:   "assign <task-id>",
	Short: "Allocate task weight to a subcontractor",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		subRaw, _ := cmd.Flags().GetString("subcontractor")
		sub, err := parseInt64("subcontractor", subRaw)
		if err != nil {
			return err
		}
		tierRaw, _ := cmd.Flags().GetString("tier")
		tier, err := parseInt64("price tier", tierRaw)
		if err != nil {
			return err
		}
		weight, _ := cmd.Flags().GetFloat64("weight")
		if weight <= 0 {
			return domain.NewValidationError([]string{"weight must be positive"})
		}

		s, _, err := newSession()
		if err != nil {
			return err
		}
		ctx := commandContext(cmd)
		t, err := s.Task(ctx, id)
		if err != nil {
			return err
		}
		if !domain.AvailableActions(t).Has(domain.ActionAssignSubcontractor) {
			return domain.NewActionNotAllowedError(t.ID, domain.ActionAssignSubcontractor, t.Status)
		}

		a, err := s.Client.CreateAssignment(ctx, client.AssignmentInput{
			DepartmentTask:    id,
			Subcontractor:     sub,
			PriceTier:         tier,
			AllocatedWeightKg: weight,
		})
		if err != nil {
			return err
		}
		printAssignments(cmd.OutOrStdout(), []*client.Assignment{a}, format())
		return nil
	},
}

var subcontractUpdateCmd = &cobra.Command{
	Use:   "update <assignment-id>",
	Short: "Change the weight or progress of an assignment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		assignmentID, err := parseInt64("assignment id", args[0])
		if err != nil {
			return err
		}

		var update client.AssignmentUpdate
		if cmd.Flags().Changed("weight") {
			w, _ := cmd.Flags().GetFloat64("weight")
			update.AllocatedWeightKg = &w
		}
		if cmd.Flags().Changed("progress") {
			p, _ := cmd.Flags().GetFloat64("progress")
			if p < 0 || p > 100 {
				return domain.NewValidationError([]string{"progress must be between 0 and 100"})
			}
			update.CurrentProgress = &p
		}
		if update.AllocatedWeightKg == nil && update.CurrentProgress == nil {
			return fmt.Errorf("nothing to update: pass --weight or --progress")
		}

		s, _, err := newSession()
		if err != nil {
			return err
		}
		a, err := s.Client.UpdateAssignment(commandContext(cmd), assignmentID, update)
		if err != nil {
			return err
		}
		printAssignments(cmd.OutOrStdout(), []*client.Assignment{a}, format())
		return nil
	},
}

var subcontractRemainingCmd = &cobra.Command{
	Use:   "remaining <price-tier-id>",
	Short: "Show the unallocated weight of a price tier",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tier, err := parseInt64("price tier", args[0])
		if err != nil {
			return err
		}
		s, _, err := newSession()
		if err != nil {
			return err
		}
		rw, err := s.Client.RemainingWeight(commandContext(cmd), tier)
		if err != nil {
			return err
		}
		printRemaining(cmd.OutOrStdout(), rw, format())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(subcontractCmd)
	subcontractCmd.AddCommand(subcontractListCmd, subcontractAssignCmd, subcontractUpdateCmd, subcontractRemainingCmd)

	subcontractListCmd.Flags().StringP("job-order", "j", "", "Filter by job order")
	subcontractListCmd.Flags().String("task", "", "Filter by task id")
	subcontractListCmd.Flags().String("subcontractor", "", "Filter by subcontractor id")

	subcontractAssignCmd.Flags().String("subcontractor", "", "Subcontractor id")
	subcontractAssignCmd.Flags().String("tier", "", "Price tier id")
	subcontractAssignCmd.Flags().Float64("weight", 0, "Allocated weight in kg")

	subcontractUpdateCmd.Flags().Float64("weight", 0, "Allocated weight in kg")
	subcontractUpdateCmd.Flags().Float64("progress", 0, "Current progress percentage")
}
