package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/focusboard/focusboard/internal/board/cache"
	"github.com/focusboard/focusboard/internal/board/migrate"
	"github.com/focusboard/focusboard/internal/board/schema"
	"github.com/focusboard/focusboard/internal/board/view"
	"github.com/focusboard/focusboard/internal/ui"
)

var syncCmd = &cobra.Command{
	Use:     "sync",
	GroupID: "sync",
	Short:   "Inspect and repair remote sync",
}

var syncStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show remote and cache state for each collection",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		return withSession(cmd, func(ctx context.Context, s *session) error {
			statuses := s.ws.Status()
			if asJSON {
				return printJSON(map[string]any{"remote": s.ws.RemoteConfigured(), "stores": statuses})
			}
			fmt.Print(ui.SyncStatus(statuses, s.ws.RemoteConfigured()))
			if s.cache != nil {
				if at, err := s.cache.UpdatedAt(ctx); err == nil {
					fmt.Printf("Cache:     %s (written %s)\n", s.cache.Path(), at.Local().Format("Jan 2 15:04"))
				} else {
					fmt.Printf("Cache:     %s (empty)\n", s.cache.Path())
				}
			}
			return nil
		})
	},
}

var syncReloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Fetch everything from the remote and refresh the local cache",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, s *session) error {
			if !s.ws.RemoteConfigured() {
				return fmt.Errorf("no remote configured (set supabase.url and supabase.key)")
			}
			for _, st := range s.ws.Status() {
				if !st.Online {
					return fmt.Errorf("%s: %s", st.Collection, st.Error)
				}
			}
			if err := s.ws.WriteSnapshot(ctx); err != nil {
				return err
			}
			snap := s.ws.Snapshot()
			p, t, d := snap.Counts()
			fmt.Printf("%s Reloaded %d projects, %d tasks, %d documents\n", ui.RenderPass("✓"), p, t, d)
			return nil
		})
	},
}

var syncRetryCmd = &cobra.Command{
	Use:   "retry",
	Short: "Re-send failed changes in a running dashboard",
	Long: `Failed remote writes are kept by the process that made them. This asks the
dashboard started with "fb serve" to re-send its failed changes.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		url := "http://" + cfg.Server.Addr + "/api/sync/retry"
		req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost, url, nil)
		if err != nil {
			return err
		}
		client := &http.Client{Timeout: 10 * time.Second}
		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("dashboard not reachable at %s (is fb serve running?): %w", cfg.Server.Addr, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusAccepted {
			return fmt.Errorf("retry failed: %s", resp.Status)
		}
		var out struct {
			Retried int `json:"retried"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		fmt.Printf("%s Re-sent %d change(s)\n", ui.RenderPass("✓"), out.Retried)
		return nil
	},
}

var syncOrphansCmd = &cobra.Command{
	Use:   "orphans",
	Short: "List tasks and documents whose project no longer exists",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, s *session) error {
			o := view.FindOrphans(s.ws.Projects.Items(), s.ws.Tasks.Items(), s.ws.Documents.Items())
			if o.Empty() {
				fmt.Printf("%s No orphans\n", ui.RenderPass("✓"))
				return nil
			}
			for _, t := range o.Tasks {
				fmt.Printf("task     %-10s %s  %s\n", t.ID, t.Title, ui.RenderMuted("project "+t.ProjectID))
			}
			for _, d := range o.Documents {
				fmt.Printf("document %-10s %s  %s\n", d.ID, d.Title, ui.RenderMuted("project "+d.ProjectID))
			}
			return nil
		})
	},
}

var statsCmd = &cobra.Command{
	Use:     "stats",
	GroupID: "board",
	Short:   "Show board statistics",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		return withSession(cmd, func(ctx context.Context, s *session) error {
			st := view.ComputeStats(s.ws.Projects.Items(), s.ws.Tasks.Items(), time.Now())
			if asJSON {
				return printJSON(st)
			}
			fmt.Print(ui.Stats(st))
			return nil
		})
	},
}

var importCmd = &cobra.Command{
	Use:     "import <file>",
	GroupID: "sync",
	Short:   "Import a JSON or YAML snapshot",
	Long: `Import projects, tasks, and documents from a snapshot file. Older dashboard
exports are accepted: numeric priorities, "docs" instead of "documents",
"lastUpdated", and snake_case rows copied from the remote tables are all
normalized. Records with an existing id are replaced.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, s *session) error {
			res, report, err := migrate.ImportFile(ctx, s.ws, args[0])
			printImport(migrate.ImportEvent{Path: args[0], Result: res, Report: report, Err: err})
			if report.Rewritten > 0 {
				fmt.Printf("  %d record(s) converted from an older format\n", report.Rewritten)
			}
			return err
		})
	},
}

var exportCmd = &cobra.Command{
	Use:     "export [file]",
	GroupID: "sync",
	Short:   "Write the board to a JSON or YAML file",
	Long: `Write the board as a snapshot file. The format follows the file extension
(.yaml/.yml for YAML, JSON otherwise) unless --format is given. Without a
file the snapshot is written to stdout.

With --from-cache the local cache is exported as-is without contacting the
remote.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		formatFlag, _ := cmd.Flags().GetString("format")
		fromCache, _ := cmd.Flags().GetBool("from-cache")

		format := migrate.FormatJSON
		if len(args) == 1 {
			format = migrate.FormatForPath(args[0])
		}
		if formatFlag != "" {
			var err error
			if format, err = migrate.ParseFormat(formatFlag); err != nil {
				return err
			}
		}

		if fromCache {
			c, err := cache.OpenContext(cmd.Context(), cfg.Cache.Path)
			if err != nil {
				return err
			}
			defer c.Close()
			snap, err := c.Load(cmd.Context())
			if err != nil {
				return err
			}
			return exportSnapshot(args, snap, format)
		}
		return withSession(cmd, func(ctx context.Context, s *session) error {
			return exportSnapshot(args, s.ws.Snapshot(), format)
		})
	},
}

func init() {
	syncStatusCmd.Flags().Bool("json", false, "Output JSON")
	statsCmd.Flags().Bool("json", false, "Output JSON")
	exportCmd.Flags().String("format", "", "Output format (json or yaml)")
	exportCmd.Flags().Bool("from-cache", false, "Export the local cache without loading the remote")

	syncCmd.AddCommand(syncStatusCmd, syncReloadCmd, syncRetryCmd, syncOrphansCmd)
	rootCmd.AddCommand(syncCmd, statsCmd, importCmd, exportCmd)
}

// exportSnapshot writes snap to the file in args, or to stdout when none is given.
func exportSnapshot(args []string, snap *schema.Snapshot, format migrate.Format) error {
	if len(args) == 0 {
		return migrate.Export(os.Stdout, snap, format)
	}
	if err := migrate.ExportFile(args[0], snap, format); err != nil {
		return err
	}
	p, t, d := snap.Counts()
	fmt.Fprintf(os.Stderr, "%s Exported %d projects, %d tasks, %d documents to %s\n", ui.RenderPass("✓"), p, t, d, args[0])
	return nil
}
