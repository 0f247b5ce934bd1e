package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/airyra/taskboard/internal/board"
	"github.com/airyra/taskboard/internal/client"
	"github.com/airyra/taskboard/internal/domain"
)

var setCmd = &cobra.Command{
	Use:   "set",
	Short: "Edit a single field of a task",
	Long: `Edit a single field of a task with one partial update. Progress is
limited to 0-99; 100 is reached by completing the task.`,
}

// editFunc parses the value argument of a set command.
type editFunc func(raw string) (board.FieldEdit, error)

// newSetCmd builds the command editing one field.
func newSetCmd(use, short string, parse editFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			edit, err := parse(args[1])
			if err != nil {
				return err
			}
			s, _, err := newSession()
			if err != nil {
				return err
			}

			ctx := commandContext(cmd)
			if _, err := s.Focus(ctx, id); err != nil {
				return err
			}
			t, err := s.Board.Patch(ctx, id, edit)
			if err != nil {
				return err
			}
			printTask(cmd.OutOrStdout(), t, format())
			return nil
		},
	}
}

func isNone(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "none", "-":
		return true
	}
	return false
}

var (
	setProgressCmd = newSetCmd("progress <id> <percent>", "Set the completion percentage", func(raw string) (board.FieldEdit, error) {
		n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimSpace(raw), "%"))
		if err != nil {
			return nil, fmt.Errorf("invalid progress %q", raw)
		}
		return board.Progress(n), nil
	})

	setAssigneeCmd = newSetCmd("assignee <id> <user-id|none>", "Assign or unassign a task", func(raw string) (board.FieldEdit, error) {
		if isNone(raw) {
			return board.Assignee(nil), nil
		}
		n, err := parseInt64("assignee", raw)
		if err != nil {
			return nil, err
		}
		return board.Assignee(&n), nil
	})

	setDateCmd = newSetCmd("date <id> <YYYY-MM-DD|none>", "Set the target completion date", func(raw string) (board.FieldEdit, error) {
		if isNone(raw) {
			return board.TargetDate(nil), nil
		}
		d, err := domain.ParseDate(raw)
		if err != nil {
			return nil, err
		}
		return board.TargetDate(&d), nil
	})

	setWeightCmd = newSetCmd("weight <id> <kg>", "Set the weight", func(raw string) (board.FieldEdit, error) {
		w, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid weight %q", raw)
		}
		return board.Weight(w), nil
	})

	setTitleCmd = newSetCmd("title <id> <title>", "Rename a subtask", func(raw string) (board.FieldEdit, error) {
		return board.Title(raw), nil
	})
)

// treeNode is one node of a subtask tree file.
type treeNode struct {
	Title       string     `yaml:"title"`
	Description string     `yaml:"description"`
	Type        string     `yaml:"type"`
	Weight      *float64   `yaml:"weight"`
	AssignedTo  *int64     `yaml:"assigned_to"`
	Children    []treeNode `yaml:"children"`
}

func (n treeNode) node() client.TaskNode {
	out := client.TaskNode{
		Title:       n.Title,
		Description: n.Description,
		TaskType:    domain.TaskType(n.Type),
		Weight:      n.Weight,
		AssignedTo:  n.AssignedTo,
	}
	for _, c := range n.Children {
		out.Children = append(out.Children, c.node())
	}
	return out
}

// loadTree reads a YAML list of subtask nodes.
func loadTree(path string) ([]client.TaskNode, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read subtask tree: %w", err)
	}
	var nodes []treeNode
	if err := yaml.Unmarshal(data, &nodes); err != nil {
		return nil, fmt.Errorf("failed to parse subtask tree %s: %w", path, err)
	}
	tree := make([]client.TaskNode, 0, len(nodes))
	for _, s := range nodes {
		tree = append(tree, s.node())
	}
	return tree, nil
}

var subtasksCmd = &cobra.Command{
	Use:   "subtasks",
	Short: "Manage subtasks",
}

var subtasksAddCmd = &cobra.Command{
	Use:   "add <parent-id> [title...]",
	Short: "Create subtasks under a task",
	Long: `Create subtasks under a task in one call. Each title argument becomes a
leaf subtask; --file reads a nested tree from YAML:

  - title: Frame
    weight: 120
    children:
      - title: Welding
        type: welding`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		var tree []client.TaskNode
		if path, _ := cmd.Flags().GetString("file"); path != "" {
			if tree, err = loadTree(path); err != nil {
				return err
			}
		}
		for _, title := range args[1:] {
			tree = append(tree, client.TaskNode{Title: title})
		}
		if len(tree) == 0 {
			return domain.NewValidationError([]string{"at least one subtask is required"})
		}

		s, _, err := newSession()
		if err != nil {
			return err
		}
		ctx := commandContext(cmd)
		parent, err := s.Task(ctx, id)
		if err != nil {
			return err
		}
		res, err := s.Engine.AddSubtasks(ctx, parent, tree)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if encode(w, format(), res.Tasks) {
			return nil
		}
		msg := res.Message
		if msg == "" {
			msg = fmt.Sprintf("Created %d subtasks under %s", len(res.Tasks), id)
		}
		fmt.Fprintln(w, msg)
		for _, t := range res.Tasks {
			fmt.Fprintf(w, "  %s\t%s\n", t.ID, t.Title)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(setCmd)
	setCmd.AddCommand(setProgressCmd, setAssigneeCmd, setDateCmd, setWeightCmd, setTitleCmd)

	rootCmd.AddCommand(subtasksCmd)
	subtasksCmd.AddCommand(subtasksAddCmd)
	subtasksAddCmd.Flags().StringP("file", "f", "", "YAML file with a subtask tree")
}
