package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/airyra/taskboard/internal/domain"
	"github.com/airyra/taskboard/internal/lifecycle"
)

var errReleaseFormRequired = errors.New("a release form is required: pass --folder, --revision-code and --changelog")

// buildFunc turns the flags of a command into a request for the fetched
// task.
type buildFunc func(cmd *cobra.Command, t *domain.Task) (lifecycle.Request, error)

// perform fetches the task named by raw and runs the request built for
// it through the lifecycle engine.
func perform(cmd *cobra.Command, raw string, build buildFunc) error {
	id, err := parseID(raw)
	if err != nil {
		return err
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
	req, err := build(cmd, t)
	if err != nil {
		return err
	}
	req.Task = t

	res, err := s.Engine.Perform(ctx, req)
	if err != nil {
		return err
	}
	printResult(cmd.OutOrStdout(), req.Action, res, format())
	return nil
}

func simple(action domain.Action) buildFunc {
	return func(*cobra.Command, *domain.Task) (lifecycle.Request, error) {
		return lifecycle.Request{Action: action}, nil
	}
}

func withReason(action domain.Action) buildFunc {
	return func(cmd *cobra.Command, _ *domain.Task) (lifecycle.Request, error) {
		reason, _ := cmd.Flags().GetString("reason")
		return lifecycle.Request{Action: action, Reason: reason}, nil
	}
}

// newTransitionCmd builds the command of a status transition.
func newTransitionCmd(action domain.Action, short string, build buildFunc) *cobra.Command {
	return &cobra.Command{
		Use:   string(action) + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return perform(cmd, args[0], build)
		},
	}
}

var (
	startCmd      = newTransitionCmd(domain.ActionStart, "Start a pending task", simple(domain.ActionStart))
	uncompleteCmd = newTransitionCmd(domain.ActionUncomplete, "Reopen a completed task", simple(domain.ActionUncomplete))
	skipCmd       = newTransitionCmd(domain.ActionSkip, "Skip a task", simple(domain.ActionSkip))
	unskipCmd     = newTransitionCmd(domain.ActionUnskip, "Restore a skipped task", simple(domain.ActionUnskip))
	blockCmd      = newTransitionCmd(domain.ActionBlock, "Block a task with a reason", withReason(domain.ActionBlock))
	unblockCmd    = newTransitionCmd(domain.ActionUnblock, "Unblock a task", simple(domain.ActionUnblock))
)

var completeCmd = &cobra.Command{
	Use:   "complete <id>",
	Short: "Complete a task",
	Long: `Complete a task through the action that occupies its complete slot.

A design root task without a release publishes one first and a task under
revision closes the revision; both need the release form flags. A design
subtask may publish a release with its completion. A procurement item task
completes by marking its planning item delivered.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return perform(cmd, args[0], buildComplete)
	},
}

func buildComplete(cmd *cobra.Command, t *domain.Task) (lifecycle.Request, error) {
	action := domain.CompleteAction(t)
	form := releaseForm(cmd)

	switch action {
	case domain.ActionReleaseAndComplete, domain.ActionCompleteRevision:
		if form == nil {
			return lifecycle.Request{}, errReleaseFormRequired
		}
		return lifecycle.Request{Action: action, Release: form, AutoComplete: true}, nil
	case domain.ActionMarkDelivered:
		if form != nil {
			return lifecycle.Request{}, domain.NewValidationError([]string{"a release can only accompany a design task"})
		}
		return lifecycle.Request{Action: action}, nil
	}
	return lifecycle.Request{Action: domain.ActionComplete, Release: form}, nil
}

var releaseCmd = &cobra.Command{
	Use:   "release <id>",
	Short: "Publish the first drawing release of a design task",
	Long: `Publish the first drawing release of an in-progress design task. With
--complete the task is completed once the release exists.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return perform(cmd, args[0], func(cmd *cobra.Command, _ *domain.Task) (lifecycle.Request, error) {
			form := releaseForm(cmd)
			if form == nil {
				return lifecycle.Request{}, errReleaseFormRequired
			}
			complete, _ := cmd.Flags().GetBool("complete")
			return lifecycle.Request{Action: domain.ActionReleaseAndComplete, Release: form, AutoComplete: complete}, nil
		})
	},
}

var deliverCmd = &cobra.Command{
	Use:   "deliver <id>",
	Short: "Mark the planning item of a procurement task delivered",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return perform(cmd, args[0], simple(domain.ActionMarkDelivered))
	},
}

var revisionCmd = &cobra.Command{
	Use:   "revision",
	Short: "Drive the revision cycle of a released design task",
}

var revisionRequestCmd = &cobra.Command{
	Use:   "request <id>",
	Short: "Request a revision of the current release",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return perform(cmd, args[0], withReason(domain.ActionRequestRevision))
	},
}

var revisionSelfStartCmd = &cobra.Command{
	Use:   "self-start <id>",
	Short: "Open a revision without a request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return perform(cmd, args[0], withReason(domain.ActionSelfStartRevision))
	},
}

var revisionApproveCmd = &cobra.Command{
	Use:   "approve <id>",
	Short: "Approve a pending revision request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return perform(cmd, args[0], func(cmd *cobra.Command, _ *domain.Task) (lifecycle.Request, error) {
			req := lifecycle.Request{Action: domain.ActionApproveRevision}
			if cmd.Flags().Changed("assign-to") {
				raw, _ := cmd.Flags().GetString("assign-to")
				n, err := parseInt64("assignee", raw)
				if err != nil {
					return req, err
				}
				req.AssignTo = &n
			}
			return req, nil
		})
	},
}

var revisionRejectCmd = &cobra.Command{
	Use:   "reject <id>",
	Short: "Reject a pending revision request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return perform(cmd, args[0], withReason(domain.ActionRejectRevision))
	},
}

var revisionCompleteCmd = &cobra.Command{
	Use:   "complete <id>",
	Short: "Close the open revision with a new release",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return perform(cmd, args[0], func(cmd *cobra.Command, _ *domain.Task) (lifecycle.Request, error) {
			form := releaseForm(cmd)
			if form == nil {
				return lifecycle.Request{}, errReleaseFormRequired
			}
			return lifecycle.Request{Action: domain.ActionCompleteRevision, Release: form}, nil
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{startCmd, completeCmd, uncompleteCmd, skipCmd, unskipCmd, blockCmd, unblockCmd, releaseCmd, deliverCmd, revisionCmd} {
		rootCmd.AddCommand(c)
	}
	revisionCmd.AddCommand(revisionRequestCmd, revisionSelfStartCmd, revisionApproveCmd, revisionRejectCmd, revisionCompleteCmd)

	blockCmd.Flags().StringP("reason", "r", "", "Why the task is blocked")
	for _, c := range []*cobra.Command{revisionRequestCmd, revisionSelfStartCmd, revisionRejectCmd} {
		c.Flags().StringP("reason", "r", "", "Reason for the revision step")
	}
	revisionApproveCmd.Flags().String("assign-to", "", "Reassign the design task to this user id")

	addReleaseFlags(completeCmd)
	addReleaseFlags(releaseCmd)
	addReleaseFlags(revisionCompleteCmd)
	releaseCmd.Flags().Bool("complete", false, "Complete the task after publishing")
}
