package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/focusboard/focusboard/internal/config"
	"github.com/focusboard/focusboard/internal/ui"
)

var configCmd = &cobra.Command{
	Use:     "config",
	GroupID: "setup",
	Short:   "Create and inspect the configuration",
}

var configInitCmd = &cobra.Command{
	Use:         "init",
	Short:       "Write a starter config file",
	Annotations: map[string]string{"skipConfig": "true"},
	Args:        cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		path := configFile
		if path == "" {
			path = config.DefaultPath()
		}
		if err := config.WriteStarter(path, force); err != nil {
			return err
		}
		fmt.Printf("%s Wrote %s\n", ui.RenderPass("✓"), path)
		fmt.Println("  Set SUPABASE_URL and SUPABASE_ANON_KEY (or supabase.url/key) to sync with a remote.")
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		file := cfg.File
		if file == "" {
			file = ui.RenderMuted("(none, defaults)")
		}
		key := ui.RenderMuted("(unset)")
		if cfg.Supabase.Key != "" {
			key = "(set)"
		}
		assistKey := ui.RenderMuted("(unset)")
		if cfg.Assist.APIKey != "" {
			assistKey = "(set)"
		}
		fmt.Printf("Config file:  %s\n", file)
		fmt.Printf("Remote URL:   %s\n", valueOr(cfg.Supabase.URL, ui.RenderMuted("(local-only)")))
		fmt.Printf("Remote key:   %s\n", key)
		fmt.Printf("Cache:        %s\n", cfg.Cache.Path)
		fmt.Printf("Server:       %s\n", cfg.Server.Addr)
		fmt.Printf("Feed:         %s (poll every %s)\n", cfg.Feed.Mode, cfg.Feed.PollInterval)
		fmt.Printf("Weather:      %v at %.4f,%.4f every %s\n", cfg.Weather.Enabled, cfg.Weather.Latitude, cfg.Weather.Longitude, cfg.Weather.Interval)
		fmt.Printf("Inbox:        %s\n", valueOr(cfg.Inbox.Dir, ui.RenderMuted("(disabled)")))
		fmt.Printf("Assist:       %s, key %s\n", cfg.Assist.Model, assistKey)
		fmt.Printf("Log:          %s %s\n", cfg.Log.Level, valueOr(cfg.Log.File, "stderr"))
		return nil
	},
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func init() {
	configInitCmd.Flags().Bool("force", false, "Overwrite an existing file")
	configCmd.AddCommand(configInitCmd, configShowCmd)
	rootCmd.AddCommand(configCmd)
}
