package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/focusboard/focusboard/internal/board/schema"
	"github.com/focusboard/focusboard/internal/board/view"
	"github.com/focusboard/focusboard/internal/ui"
)

var docCmd = &cobra.Command{
	Use:     "doc",
	Aliases: []string{"docs", "d"},
	GroupID: "board",
	Short:   "List and edit documents",
}

var docListCmd = &cobra.Command{
	Use:   "list [query]",
	Short: "Show documents",
	Long: `Show documents, optionally filtered by a title/content query and by type.

Example usage:
  fb doc list
  fb doc list deploy --type sop`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		typeFlag, _ := cmd.Flags().GetString("type")
		var docType schema.DocType
		if typeFlag != "" {
			var err error
			if docType, err = schema.ParseDocType(typeFlag); err != nil {
				return err
			}
		}
		query := ""
		if len(args) == 1 {
			query = args[0]
		}
		return withSession(cmd, func(ctx context.Context, s *session) error {
			cards := view.DocGrid(s.ws.Documents.Items(), s.ws.Projects.Items(), query, docType)
			if asJSON {
				return printJSON(cards)
			}
			if len(cards) == 0 {
				fmt.Println("No documents.")
				return nil
			}
			fmt.Print(ui.DocGrid(cards))
			return nil
		})
	},
}

var docShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, s *session) error {
			d, ok := s.ws.Documents.Get(args[0])
			if !ok {
				return fmt.Errorf("document %s not found", args[0])
			}
			fmt.Printf("%s  %s\n", ui.RenderBold(d.Title), ui.RenderMuted(string(d.Type)+" · "+d.ID))
			if name := projectNames(s.ws.Projects.Items())[d.ProjectID]; name != "" {
				fmt.Printf("Project: %s\n", name)
			}
			if d.Content != "" {
				fmt.Printf("\n%s\n", d.Content)
			}
			return nil
		})
	},
}

var docAddCmd = &cobra.Command{
	Use:   "add [title]",
	Short: "Create a document",
	Long: `Create a document. Content can be read from a file with --file (use "-" for
stdin). Without a title (or with -i) an interactive form is shown.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		interactive, _ := cmd.Flags().GetBool("interactive")
		d := &schema.Document{}
		if len(args) == 1 {
			d.Title = strings.TrimSpace(args[0])
		}
		if err := applyDocFlags(cmd, d); err != nil {
			return err
		}
		return withSession(cmd, func(ctx context.Context, s *session) error {
			if interactive || d.Title == "" {
				d.SetDefaults()
				if err := documentForm(d, s.ws.Projects.Items()); err != nil {
					return err
				}
			}
			if err := checkProject(s, d.ProjectID); err != nil {
				return err
			}
			created, err := s.ws.Documents.Create(ctx, d)
			if err != nil {
				return err
			}
			fmt.Printf("%s Created document %s: %s\n", ui.RenderPass("✓"), created.ID, created.Title)
			return nil
		})
	},
}

var docEditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Change a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		interactive, _ := cmd.Flags().GetBool("interactive")
		return withSession(cmd, func(ctx context.Context, s *session) error {
			d, ok := s.ws.Documents.Get(args[0])
			if !ok {
				return fmt.Errorf("document %s not found", args[0])
			}
			if err := applyDocFlags(cmd, d); err != nil {
				return err
			}
			if interactive || !changedAny(cmd, docFlagNames...) {
				if err := documentForm(d, s.ws.Projects.Items()); err != nil {
					return err
				}
			}
			if err := checkProject(s, d.ProjectID); err != nil {
				return err
			}
			updated, err := s.ws.Documents.Update(ctx, d.ID, func(cur *schema.Document) { *cur = *d })
			if err != nil {
				return err
			}
			fmt.Printf("%s Updated document %s: %s\n", ui.RenderPass("✓"), updated.ID, updated.Title)
			return nil
		})
	},
}

var docRmCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"delete"},
	Short:   "Delete a document",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, s *session) error {
			if err := s.ws.Documents.Delete(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("%s Deleted document %s\n", ui.RenderPass("✓"), args[0])
			return nil
		})
	},
}

var docFlagNames = []string{"title", "type", "project", "file"}

// applyDocFlags copies the document flags that were set on cmd into d.
func applyDocFlags(cmd *cobra.Command, d *schema.Document) error {
	flags := cmd.Flags()
	if flags.Changed("title") {
		v, _ := flags.GetString("title")
		d.Title = strings.TrimSpace(v)
	}
	if flags.Changed("type") {
		v, _ := flags.GetString("type")
		typ, err := schema.ParseDocType(v)
		if err != nil {
			return err
		}
		d.Type = typ
	}
	if flags.Changed("project") {
		d.ProjectID, _ = flags.GetString("project")
	}
	if flags.Changed("file") {
		path, _ := flags.GetString("file")
		content, err := readContent(path)
		if err != nil {
			return err
		}
		d.Content = content
	}
	return nil
}

func readContent(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

func addDocFlags(cmd *cobra.Command) {
	cmd.Flags().String("type", "", "Type (sop, template, notes, reference)")
	cmd.Flags().String("project", "", "Project id")
	cmd.Flags().StringP("file", "f", "", `Read content from a file ("-" for stdin)`)
	cmd.Flags().BoolP("interactive", "i", false, "Edit in an interactive form")
}

func init() {
	docListCmd.Flags().Bool("json", false, "Output JSON")
	docListCmd.Flags().String("type", "", "Only documents of this type")
	addDocFlags(docAddCmd)
	addDocFlags(docEditCmd)
	docEditCmd.Flags().String("title", "", "New title")

	docCmd.AddCommand(docListCmd, docShowCmd, docAddCmd, docEditCmd, docRmCmd)
	rootCmd.AddCommand(docCmd)
}
