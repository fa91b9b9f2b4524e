package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/focusboard/focusboard/internal/board/cache"
	"github.com/focusboard/focusboard/internal/board/loadtest"
	"github.com/focusboard/focusboard/internal/board/store"
	"github.com/focusboard/focusboard/internal/ui"
)

var benchCmd = &cobra.Command{
	Use:     "bench",
	GroupID: "setup",
	Short:   "Load-test the stores with concurrent clients",
	Long: `Run concurrent clients against a scratch workspace and report latency per
operation. The run uses a temporary cache file and never touches the remote
or your own data.

Examples:
  fb bench
  fb bench --clients 50 --ops 100 --tasks 2000
  fb bench --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		lc := loadtest.DefaultConfig()
		lc.Clients, _ = cmd.Flags().GetInt("clients")
		lc.OpsPerClient, _ = cmd.Flags().GetInt("ops")
		lc.Tasks, _ = cmd.Flags().GetInt("tasks")
		asJSON, _ := cmd.Flags().GetBool("json")
		if lc.Clients <= 0 || lc.OpsPerClient <= 0 || lc.Tasks < 0 {
			return fmt.Errorf("--clients and --ops must be positive")
		}

		dir, err := os.MkdirTemp("", "fb-bench-")
		if err != nil {
			return err
		}
		defer os.RemoveAll(dir)

		c, err := cache.Open(filepath.Join(dir, "cache.db"))
		if err != nil {
			return err
		}
		defer c.Close()

		sc := store.DefaultConfig()
		sc.Cache = c
		sc.Logger = logger
		ws := store.NewWorkspace(sc)
		ctx := cmd.Context()
		ws.Load(ctx)

		if !asJSON {
			fmt.Printf("Running %d clients x %d ops over %d tasks...\n\n", lc.Clients, lc.OpsPerClient, lc.Tasks)
		}
		if err := loadtest.Populate(ctx, ws, lc.Tasks); err != nil {
			return err
		}
		res, runErr := loadtest.Run(ctx, ws, lc)
		if res == nil {
			return runErr
		}
		if asJSON {
			if err := printJSON(res); err != nil {
				return err
			}
		} else {
			res.Print(os.Stdout)
		}

		if err := loadtest.Verify(ws); err != nil {
			return fmt.Errorf("consistency check failed: %w", err)
		}
		if runErr != nil {
			return runErr
		}
		if !asJSON {
			fmt.Printf("\n%s Stores consistent after the run\n", ui.RenderPass("✓"))
		}
		return nil
	},
}

func init() {
	benchCmd.Flags().Int("clients", 20, "Concurrent clients")
	benchCmd.Flags().Int("ops", 50, "Operations per client")
	benchCmd.Flags().Int("tasks", 500, "Tasks added before the run")
	benchCmd.Flags().Bool("json", false, "Output results as JSON")
	rootCmd.AddCommand(benchCmd)
}
