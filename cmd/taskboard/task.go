package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/airyra/taskboard/internal/client"
	"github.com/airyra/taskboard/internal/domain"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List root tasks",
	Long: `List one page of root tasks. Filters default to the project config;
the status filter defaults to pending and in_progress. Pass --status all to
list every status and --expand to show the first level of subtasks.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, _, err := newSession()
		if err != nil {
			return err
		}

		q := s.Board.Query()
		flags := cmd.Flags()
		if flags.Changed("department") {
			raw, _ := flags.GetString("department")
			d, err := parseDepartment(raw)
			if err != nil {
				return err
			}
			q = q.WithDepartment(d)
		}
		if flags.Changed("job-order") {
			jo, _ := flags.GetString("job-order")
			q = q.WithJobOrder(jo)
		}
		if flags.Changed("status") {
			raw, _ := flags.GetString("status")
			statuses, err := parseStatuses(raw)
			if err != nil {
				return err
			}
			q = q.WithStatuses(statuses...)
		}
		if flags.Changed("assignee") {
			raw, _ := flags.GetString("assignee")
			if q, err = q.WithAssigneeToken(raw); err != nil {
				return err
			}
		}
		if flags.Changed("search") {
			term, _ := flags.GetString("search")
			q = q.WithSearch(term)
		}
		if flags.Changed("sort") {
			field, _ := flags.GetString("sort")
			q = q.WithSort(field)
		}
		if flags.Changed("page-size") {
			size, _ := flags.GetInt("page-size")
			q = q.WithPageSize(size)
		}
		page, _ := flags.GetInt("page")
		q = q.WithPage(page)
		s.Board.SetQuery(q)

		ctx := commandContext(cmd)
		if err := s.Board.Reload(ctx); err != nil {
			return err
		}
		if expand, _ := flags.GetBool("expand"); expand {
			for _, root := range s.Board.Roots() {
				if !root.HasChildren() {
					continue
				}
				if err := s.Board.Toggle(ctx, root.ID); err != nil {
					return err
				}
			}
		}

		printRows(cmd.OutOrStdout(), s.Board, format())
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show task details",
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
		t, err := s.Task(commandContext(cmd), id)
		if err != nil {
			return err
		}
		printTask(cmd.OutOrStdout(), t, format())
		return nil
	},
}

var actionsCmd = &cobra.Command{
	Use:   "actions <id>",
	Short: "List the actions offered for a task",
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
		t, err := s.Task(commandContext(cmd), id)
		if err != nil {
			return err
		}
		printActions(cmd.OutOrStdout(), t, format())
		return nil
	},
}

var createCmd = &cobra.Command{
	Use:   "create <title>",
	Short: "Create a task",
	Long: `Create a root task of a job order, or a subtask with --parent. Subtasks
inherit the job order and department of their parent.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		title := strings.TrimSpace(args[0])
		if title == "" {
			return domain.NewValidationError([]string{"title is required"})
		}

		flags := cmd.Flags()
		jobOrder, _ := flags.GetString("job-order")
		deptRaw, _ := flags.GetString("department")
		typeRaw, _ := flags.GetString("type")
		description, _ := flags.GetString("description")
		parentRaw, _ := flags.GetString("parent")
		qc, _ := flags.GetBool("qc")

		dept, err := parseDepartment(deptRaw)
		if err != nil {
			return err
		}
		taskType := domain.TaskType(typeRaw)
		if !taskType.IsValid() {
			return fmt.Errorf("invalid task type %q", typeRaw)
		}

		s, cfg, err := newSession()
		if err != nil {
			return err
		}
		if cfg.Project != nil {
			if jobOrder == "" {
				jobOrder = cfg.Project.JobOrder
			}
			if dept == "" {
				dept = cfg.Project.Department
			}
		}

		input := client.CreateTaskInput{
			JobOrder:    jobOrder,
			Department:  dept,
			TaskType:    taskType,
			Title:       title,
			Description: description,
			QCRequired:  qc,
		}
		if parentRaw != "" {
			if input.Parent, err = parseID(parentRaw); err != nil {
				return err
			}
		}
		if flags.Changed("assignee") {
			raw, _ := flags.GetString("assignee")
			n, err := parseInt64("assignee", raw)
			if err != nil {
				return err
			}
			input.AssignedTo = &n
		}
		if flags.Changed("target") {
			raw, _ := flags.GetString("target")
			d, err := domain.ParseDate(raw)
			if err != nil {
				return err
			}
			input.TargetCompletionDate = &d
		}
		if flags.Changed("weight") {
			w, _ := flags.GetFloat64("weight")
			input.Weight = &w
		}
		if flags.Changed("planning-item") {
			raw, _ := flags.GetString("planning-item")
			n, err := parseInt64("planning item", raw)
			if err != nil {
				return err
			}
			input.PlanningItemID = &n
		}

		t, err := s.Board.Gateway().Create(commandContext(cmd), input)
		if err != nil {
			return err
		}
		printTask(cmd.OutOrStdout(), t, format())
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history <id>",
	Short: "Show the change history of a task",
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
		entries, err := s.Client.GetTaskHistory(commandContext(cmd), id)
		if err != nil {
			return err
		}
		printHistory(cmd.OutOrStdout(), entries, format())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(actionsCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(historyCmd)

	listCmd.Flags().StringP("department", "d", "", "Filter by department")
	listCmd.Flags().StringP("job-order", "j", "", "Filter by job order")
	listCmd.Flags().StringP("status", "s", "", "Comma-separated statuses, or all")
	listCmd.Flags().String("assignee", "", "Filter by assignee id, or "+domain.UnassignedToken)
	listCmd.Flags().String("search", "", "Free-text search")
	listCmd.Flags().String("sort", "", "Sort field; a leading - sorts descending")
	listCmd.Flags().IntP("page", "p", 1, "Page number")
	listCmd.Flags().Int("page-size", domain.DefaultPageSize, "Tasks per page")
	listCmd.Flags().Bool("expand", false, "Show the first level of subtasks")

	createCmd.Flags().StringP("job-order", "j", "", "Job order (default from project config)")
	createCmd.Flags().StringP("department", "d", "", "Department (default from project config)")
	createCmd.Flags().String("parent", "", "Parent task id")
	createCmd.Flags().String("type", "", "Task type")
	createCmd.Flags().String("description", "", "Task description")
	createCmd.Flags().String("assignee", "", "Assignee user id")
	createCmd.Flags().String("target", "", "Target completion date (YYYY-MM-DD)")
	createCmd.Flags().Float64("weight", 0, "Weight in kg")
	createCmd.Flags().Bool("qc", false, "Require QC approval before completion")
	createCmd.Flags().String("planning-item", "", "Planning request item delivered by this task")
}
