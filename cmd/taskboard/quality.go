package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/airyra/taskboard/internal/domain"
)

var qcCmd = &cobra.Command{
	Use:   "qc",
	Short: "Quality-control reviews",
}

var qcListCmd = &cobra.Command{
	Use:   "list <task-id>",
	Short: "List the QC reviews of a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		s, _, err := newSession()
		if err != nil {
			return err
		}
		reviews, err := s.Client.ListQCReviews(commandContext(cmd), id)
		if err != nil {
			return err
		}
		printReviews(cmd.OutOrStdout(), reviews, format())
		return nil
	},
}

var qcSubmitCmd = &cobra.Command{
	Use:   "submit <task-id>",
	Short: "Request a QC review of a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		var partData map[string]interface{}
		if raw, _ := cmd.Flags().GetString("part-data"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &partData); err != nil {
				return fmt.Errorf("invalid --part-data: %w", err)
			}
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
		if !domain.AvailableActions(t).Has(domain.ActionSubmitQC) {
			return domain.NewActionNotAllowedError(t.ID, domain.ActionSubmitQC, t.Status)
		}

		review, err := s.Client.SubmitQCReview(ctx, id, partData)
		if err != nil {
			return err
		}
		printReviews(cmd.OutOrStdout(), []*domain.QCReview{review}, format())
		return nil
	},
}

var qcDecideCmd = &cobra.Command{
	Use:   "decide <review-id>",
	Short: "Approve or reject a pending QC review",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reviewID, err := parseInt64("review id", args[0])
		if err != nil {
			return err
		}
		approve, _ := cmd.Flags().GetBool("approve")
		reject, _ := cmd.Flags().GetBool("reject")
		if approve == reject {
			return fmt.Errorf("pass exactly one of --approve or --reject")
		}
		comment, _ := cmd.Flags().GetString("comment")

		s, _, err := newSession()
		if err != nil {
			return err
		}
		review, err := s.Client.DecideQCReview(commandContext(cmd), reviewID, approve, comment)
		if err != nil {
			return err
		}
		printReviews(cmd.OutOrStdout(), []*domain.QCReview{review}, format())
		return nil
	},
}

var ncrCmd = &cobra.Command{
	Use:   "ncr",
	Short: "Non-conformance reports",
}

var ncrListCmd = &cobra.Command{
	Use:   "list <task-id>",
	Short: "List the NCRs raised against a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		s, _, err := newSession()
		if err != nil {
			return err
		}
		ncrs, err := s.Client.ListNCRs(commandContext(cmd), id)
		if err != nil {
			return err
		}
		printNCRs(cmd.OutOrStdout(), ncrs, format())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(qcCmd, ncrCmd)
	qcCmd.AddCommand(qcListCmd, qcSubmitCmd, qcDecideCmd)
	ncrCmd.AddCommand(ncrListCmd)

	qcSubmitCmd.Flags().String("part-data", "", "Inspected part data as a JSON object")
	qcDecideCmd.Flags().Bool("approve", false, "Approve the review")
	qcDecideCmd.Flags().Bool("reject", false, "Reject the review")
	qcDecideCmd.Flags().String("comment", "", "Decision comment")
}
