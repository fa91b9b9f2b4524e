package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/focusboard/focusboard/internal/board/assist"
	"github.com/focusboard/focusboard/internal/board/schema"
	"github.com/focusboard/focusboard/internal/board/view"
	"github.com/focusboard/focusboard/internal/ui"
)

var taskCmd = &cobra.Command{
	Use:     "task",
	Aliases: []string{"tasks", "t"},
	GroupID: "board",
	Short:   "List and edit tasks",
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show tasks grouped by status",
	Long: `Show tasks grouped by status. Tasks stalled for more than a day are marked
with "!".

Example usage:
  fb task list                    # grouped list
  fb task list --board            # Kanban columns
  fb task list --project p1       # one project only
  fb task list --status stalled   # one status only`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		boardLayout, _ := cmd.Flags().GetBool("board")
		projectID, _ := cmd.Flags().GetString("project")
		statusFlag, _ := cmd.Flags().GetString("status")
		asJSON, _ := cmd.Flags().GetBool("json")

		var status schema.TaskStatus
		if statusFlag != "" {
			var err error
			if status, err = schema.ParseTaskStatus(statusFlag); err != nil {
				return err
			}
		}

		return withSession(cmd, func(ctx context.Context, s *session) error {
			var tasks []*schema.Task
			for _, t := range s.ws.Tasks.Items() {
				if projectID != "" && t.ProjectID != projectID {
					continue
				}
				if status != "" && t.Status != status {
					continue
				}
				tasks = append(tasks, t)
			}

			now := time.Now()
			if asJSON {
				if boardLayout {
					return printJSON(view.Board(tasks))
				}
				return printJSON(tasks)
			}
			if len(tasks) == 0 {
				fmt.Println("No tasks.")
				return nil
			}
			if boardLayout {
				fmt.Println(ui.Board(view.Board(tasks), now, ui.Width()))
				return nil
			}
			fmt.Print(ui.TaskList(view.List(tasks), projectNames(s.ws.Projects.Items()), now))
			return nil
		})
	},
}

var taskShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		return withSession(cmd, func(ctx context.Context, s *session) error {
			t, ok := s.ws.Tasks.Get(args[0])
			if !ok {
				return fmt.Errorf("task %s not found", args[0])
			}
			if asJSON {
				return printJSON(t)
			}
			fmt.Print(ui.TaskDetail(t, projectNames(s.ws.Projects.Items())[t.ProjectID], time.Now()))
			return nil
		})
	},
}

var taskAddCmd = &cobra.Command{
	Use:   "add [title]",
	Short: "Create a task",
	Long: `Create a task. Without a title (or with -i) an interactive form is shown.

Example usage:
  fb task add "Write release notes" --priority high --due "next friday"
  fb task add -i`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		interactive, _ := cmd.Flags().GetBool("interactive")
		now := time.Now()

		t := &schema.Task{}
		if len(args) == 1 {
			t.Title = strings.TrimSpace(args[0])
		}
		if err := applyTaskFlags(cmd, t, now); err != nil {
			return err
		}

		return withSession(cmd, func(ctx context.Context, s *session) error {
			if interactive || t.Title == "" {
				t.SetDefaults()
				if err := taskForm(t, s.ws.Projects.Items(), now); err != nil {
					return err
				}
			}
			if err := checkProject(s, t.ProjectID); err != nil {
				return err
			}
			created, err := s.ws.Tasks.Create(ctx, t)
			if err != nil {
				return err
			}
			fmt.Printf("%s Created task %s: %s\n", ui.RenderPass("✓"), created.ID, created.Title)
			return nil
		})
	},
}

var taskEditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Change a task's fields",
	Long: `Change a task's fields. Only the flags given are applied; without flags (or
with -i) an interactive form is shown.

Setting --status to stalled records the time; leaving Stalled through edit
keeps the old timestamp. Use "fb task move" to move a task between columns.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		interactive, _ := cmd.Flags().GetBool("interactive")
		title, _ := cmd.Flags().GetString("title")
		now := time.Now()

		return withSession(cmd, func(ctx context.Context, s *session) error {
			t, ok := s.ws.Tasks.Get(args[0])
			if !ok {
				return fmt.Errorf("task %s not found", args[0])
			}
			if cmd.Flags().Changed("title") {
				t.Title = strings.TrimSpace(title)
			}
			if err := applyTaskFlags(cmd, t, now); err != nil {
				return err
			}
			if interactive || !changedAny(cmd, taskFlagNames...) {
				if err := taskForm(t, s.ws.Projects.Items(), now); err != nil {
					return err
				}
			}
			if err := checkProject(s, t.ProjectID); err != nil {
				return err
			}
			updated, err := s.ws.Tasks.Update(ctx, t.ID, func(cur *schema.Task) { *cur = *t })
			if err != nil {
				return err
			}
			fmt.Printf("%s Updated task %s: %s\n", ui.RenderPass("✓"), updated.ID, updated.Title)
			return nil
		})
	},
}

var taskMoveCmd = &cobra.Command{
	Use:   "move <id> <status>",
	Short: "Move a task to another column",
	Long: `Move a task to Todo, In Progress, Done, or Stalled. Moving into Stalled
records when the task stalled; moving out clears it.

Example usage:
  fb task move t3 in-progress
  fb task move t1 done`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := schema.ParseTaskStatus(args[1])
		if err != nil {
			return err
		}
		return withSession(cmd, func(ctx context.Context, s *session) error {
			t, err := s.ws.Tasks.MoveTask(ctx, args[0], status)
			if err != nil {
				return err
			}
			fmt.Printf("%s Moved %s to %s\n", ui.RenderPass("✓"), t.ID, ui.RenderStatus(t.Status))
			return nil
		})
	},
}

var taskRmCmd = &cobra.Command{
	Use:     "rm <id>...",
	Aliases: []string{"delete"},
	Short:   "Delete tasks",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, s *session) error {
			var errs []error
			for _, id := range args {
				if err := s.ws.Tasks.Delete(ctx, id); err != nil {
					errs = append(errs, err)
					continue
				}
				fmt.Printf("%s Deleted task %s\n", ui.RenderPass("✓"), id)
			}
			return errors.Join(errs...)
		})
	},
}

var taskNotesCmd = &cobra.Command{
	Use:   "notes <id>",
	Short: "Append AI-generated analysis to a task",
	Long: `Ask the assistant model for a short analysis of the task (risks, next steps,
effort) and append it to the task description under "` + assist.NotesHeader + `".

Needs assist.api_key (or ANTHROPIC_API_KEY).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		escalate, _ := cmd.Flags().GetBool("escalate")

		ac := assist.DefaultConfig()
		ac.APIKey = cfg.Assist.APIKey
		if cfg.Assist.Model != "" {
			ac.Model = cfg.Assist.Model
		}
		completer, err := assist.NewAnthropic(ac)
		if errors.Is(err, assist.ErrDisabled) {
			return fmt.Errorf("%w: set assist.api_key or ANTHROPIC_API_KEY", err)
		}
		if err != nil {
			return err
		}

		return withSession(cmd, func(ctx context.Context, s *session) error {
			notes := assist.NewNotes(completer, s.ws.Tasks, s.ws.Projects, logger)
			fmt.Fprintf(os.Stderr, "Analyzing %s...\n", args[0])
			t, err := notes.Analyze(ctx, args[0], assist.Options{Escalate: escalate})
			if err != nil {
				return err
			}
			fmt.Print(ui.TaskDetail(t, projectNames(s.ws.Projects.Items())[t.ProjectID], time.Now()))
			return nil
		})
	},
}

// applyTaskFlags copies the task flags that were set on cmd into t.
func applyTaskFlags(cmd *cobra.Command, t *schema.Task, now time.Time) error {
	flags := cmd.Flags()
	if flags.Changed("desc") {
		t.Description, _ = flags.GetString("desc")
	}
	if flags.Changed("priority") {
		v, _ := flags.GetString("priority")
		p, err := schema.ParsePriority(v)
		if err != nil {
			return err
		}
		t.Priority = p
	}
	if flags.Changed("status") {
		v, _ := flags.GetString("status")
		st, err := schema.ParseTaskStatus(v)
		if err != nil {
			return err
		}
		prev := t.Status
		t.Status = st
		t.StampStalled(prev, now)
	}
	if flags.Changed("project") {
		t.ProjectID, _ = flags.GetString("project")
	}
	if flags.Changed("due") {
		v, _ := flags.GetString("due")
		due, err := parseDue(v, now)
		if err != nil {
			return err
		}
		t.DueDate = due
	}
	if flags.Changed("assignee") {
		t.Assignee, _ = flags.GetString("assignee")
	}
	return nil
}

// checkProject rejects references to projects that do not exist.
func checkProject(s *session, id string) error {
	if id == "" {
		return nil
	}
	if _, ok := s.ws.Projects.Get(id); !ok {
		return fmt.Errorf("project %s not found", id)
	}
	return nil
}

var taskFlagNames = []string{"title", "desc", "priority", "status", "project", "due", "assignee"}

func changedAny(cmd *cobra.Command, names ...string) bool {
	for _, n := range names {
		if cmd.Flags().Changed(n) {
			return true
		}
	}
	return false
}

func addTaskFlags(cmd *cobra.Command) {
	cmd.Flags().String("desc", "", "Description")
	cmd.Flags().StringP("priority", "p", "", "Priority (low, medium, high, critical)")
	cmd.Flags().StringP("status", "s", "", "Status (todo, in-progress, done, stalled)")
	cmd.Flags().String("project", "", "Project id")
	cmd.Flags().String("due", "", `Due date (YYYY-MM-DD, "tomorrow", "next friday", or "none")`)
	cmd.Flags().String("assignee", "", "Assignee initials")
	cmd.Flags().BoolP("interactive", "i", false, "Edit in an interactive form")
}

func init() {
	taskListCmd.Flags().Bool("board", false, "Show Kanban columns")
	taskListCmd.Flags().String("project", "", "Only tasks in this project")
	taskListCmd.Flags().String("status", "", "Only tasks with this status")
	taskListCmd.Flags().Bool("json", false, "Output JSON")
	taskShowCmd.Flags().Bool("json", false, "Output JSON")

	addTaskFlags(taskAddCmd)
	addTaskFlags(taskEditCmd)
	taskEditCmd.Flags().String("title", "", "New title")

	taskNotesCmd.Flags().Bool("escalate", false, "Also raise the priority one level")

	taskCmd.AddCommand(taskListCmd, taskShowCmd, taskAddCmd, taskEditCmd, taskMoveCmd, taskRmCmd, taskNotesCmd)
	rootCmd.AddCommand(taskCmd)
}
