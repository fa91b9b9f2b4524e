package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/focusboard/focusboard/internal/board/schema"
	"github.com/focusboard/focusboard/internal/board/view"
	"github.com/focusboard/focusboard/internal/ui"
)

var projectCmd = &cobra.Command{
	Use:     "project",
	Aliases: []string{"projects", "p"},
	GroupID: "board",
	Short:   "List and edit projects",
}

var projectListCmd = &cobra.Command{
	Use:   "list [query]",
	Short: "Show the project table",
	Long: `Show every project with task counts and progress computed from the current
tasks. An optional query filters by name or description.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		query := ""
		if len(args) == 1 {
			query = args[0]
		}
		return withSession(cmd, func(ctx context.Context, s *session) error {
			projects := view.SearchProjects(s.ws.Projects.Items(), query)
			rows := view.ProjectTable(projects, s.ws.Tasks.Items())
			if asJSON {
				return printJSON(rows)
			}
			if len(rows) == 0 {
				fmt.Println("No projects.")
				return nil
			}
			fmt.Print(ui.ProjectTable(rows))
			return nil
		})
	},
}

var projectAddCmd = &cobra.Command{
	Use:   "add [name]",
	Short: "Create a project",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		interactive, _ := cmd.Flags().GetBool("interactive")
		p := &schema.Project{}
		if len(args) == 1 {
			p.Name = strings.TrimSpace(args[0])
		}
		if err := applyProjectFlags(cmd, p); err != nil {
			return err
		}
		return withSession(cmd, func(ctx context.Context, s *session) error {
			if interactive || p.Name == "" {
				p.SetDefaults()
				if err := projectForm(p); err != nil {
					return err
				}
			}
			created, err := s.ws.Projects.Create(ctx, p)
			if err != nil {
				return err
			}
			fmt.Printf("%s Created project %s: %s\n", ui.RenderPass("✓"), created.ID, created.Name)
			return nil
		})
	},
}

var projectEditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Change a project's fields",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		interactive, _ := cmd.Flags().GetBool("interactive")
		return withSession(cmd, func(ctx context.Context, s *session) error {
			p, ok := s.ws.Projects.Get(args[0])
			if !ok {
				return fmt.Errorf("project %s not found", args[0])
			}
			if err := applyProjectFlags(cmd, p); err != nil {
				return err
			}
			if interactive || !changedAny(cmd, projectFlagNames...) {
				if err := projectForm(p); err != nil {
					return err
				}
			}
			updated, err := s.ws.Projects.Update(ctx, p.ID, func(cur *schema.Project) { *cur = *p })
			if err != nil {
				return err
			}
			fmt.Printf("%s Updated project %s: %s\n", ui.RenderPass("✓"), updated.ID, updated.Name)
			return nil
		})
	},
}

var projectRmCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"delete"},
	Short:   "Delete a project",
	Long: `Delete a project. Its tasks and documents are kept and keep pointing at the
deleted id; "fb sync orphans" lists them.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, s *session) error {
			if err := s.ws.Projects.Delete(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("%s Deleted project %s\n", ui.RenderPass("✓"), args[0])

			orphans := view.FindOrphans(s.ws.Projects.Items(), s.ws.Tasks.Items(), s.ws.Documents.Items())
			if !orphans.Empty() {
				fmt.Printf("  %s %d task(s) and %d document(s) now reference a missing project\n",
					ui.RenderWarn("!"), len(orphans.Tasks), len(orphans.Documents))
			}
			return nil
		})
	},
}

var projectFlagNames = []string{"name", "desc", "status", "type", "color"}

// applyProjectFlags copies the project flags that were set on cmd into p.
func applyProjectFlags(cmd *cobra.Command, p *schema.Project) error {
	flags := cmd.Flags()
	if flags.Changed("name") {
		v, _ := flags.GetString("name")
		p.Name = strings.TrimSpace(v)
	}
	if flags.Changed("desc") {
		p.Description, _ = flags.GetString("desc")
	}
	if flags.Changed("status") {
		v, _ := flags.GetString("status")
		st, err := schema.ParseProjectStatus(v)
		if err != nil {
			return err
		}
		p.Status = st
	}
	if flags.Changed("type") {
		v, _ := flags.GetString("type")
		typ, err := schema.ParseProjectType(v)
		if err != nil {
			return err
		}
		p.Type = typ
	}
	if flags.Changed("color") {
		p.Color, _ = flags.GetString("color")
	}
	return nil
}

func addProjectFlags(cmd *cobra.Command) {
	cmd.Flags().String("desc", "", "Description")
	cmd.Flags().StringP("status", "s", "", "Status (active, paused, completed, stalled)")
	cmd.Flags().String("type", "", "Type (business, hobby, personal)")
	cmd.Flags().String("color", "", "Color tag")
	cmd.Flags().BoolP("interactive", "i", false, "Edit in an interactive form")
}

func init() {
	projectListCmd.Flags().Bool("json", false, "Output JSON")
	addProjectFlags(projectAddCmd)
	addProjectFlags(projectEditCmd)
	projectEditCmd.Flags().String("name", "", "New name")

	projectCmd.AddCommand(projectListCmd, projectAddCmd, projectEditCmd, projectRmCmd)
	rootCmd.AddCommand(projectCmd)
}
