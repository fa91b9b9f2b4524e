package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/focusboard/focusboard/internal/board/dashboard"
	"github.com/focusboard/focusboard/internal/board/migrate"
	"github.com/focusboard/focusboard/internal/board/remote"
	"github.com/focusboard/focusboard/internal/board/store"
	"github.com/focusboard/focusboard/internal/board/widget"
	"github.com/focusboard/focusboard/internal/config"
	"github.com/focusboard/focusboard/internal/ui"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	GroupID: "board",
	Short:   "Run the live dashboard server",
	Long: `Start the dashboard: a REST API over the board plus a WebSocket endpoint that
pushes every change, the clock, and the weather to connected clients.

While running, remote changes are picked up through the realtime feed (or by
polling, see feed.mode) and files dropped into the inbox directory are
imported automatically.

Endpoints:
  GET  /health              liveness check
  GET  /ws                  WebSocket stream
  GET  /api/board           Kanban columns (?layout=list for grouped list)
  *    /api/tasks[/{id}]    task CRUD, POST /api/tasks/{id}/move
  *    /api/projects[/{id}] project CRUD
  *    /api/documents[/{id}] document CRUD
  GET  /api/sync            sync status, POST /api/sync/retry

Example usage:
  fb serve                         # listen on server.addr (127.0.0.1:8080)
  fb serve --addr 127.0.0.1:9000   # custom address
  fb serve --inbox ~/Dropbox/fb    # watch an import directory`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Server.Addr = addr
		}
		if dir, _ := cmd.Flags().GetString("inbox"); dir != "" {
			cfg.Inbox.Dir = dir
		}
		if noWeather, _ := cmd.Flags().GetBool("no-weather"); noWeather {
			cfg.Weather.Enabled = false
		}

		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		server := dashboard.NewServer(&dashboard.Config{
			Addr:      cfg.Server.Addr,
			Workspace: s.ws,
			Logger:    logger,
		})
		if err := server.Start(); err != nil {
			return fmt.Errorf("failed to start dashboard: %w", err)
		}

		clock := widget.NewClock(widget.ClockConfig{OnTick: server.OnTick})
		if err := clock.Start(ctx); err != nil {
			return err
		}
		defer clock.Stop()

		if cfg.Weather.Enabled {
			wc := widget.DefaultWeatherConfig()
			wc.Latitude = cfg.Weather.Latitude
			wc.Longitude = cfg.Weather.Longitude
			wc.Interval = cfg.Weather.Interval
			wc.Logger = logger
			wc.OnReport = server.OnReport
			weather := widget.NewWeather(wc)
			if err := weather.Start(ctx); err != nil {
				return err
			}
			defer weather.Stop()
		}

		if feed := changeFeed(s); feed != nil {
			if err := s.ws.StartReconcile(ctx, feed); err != nil {
				logger.WithError(err).Warn("live updates unavailable")
			}
			defer s.ws.StopReconcile()
		}

		if cfg.Inbox.Dir != "" {
			watcher, err := migrate.NewInboxWatcher(cfg.Inbox.Dir, s.ws, migrate.InboxConfig{
				DebounceInterval: cfg.Inbox.Debounce,
				Logger:           logger,
				OnImport:         printImport,
			})
			if err != nil {
				return err
			}
			if err := watcher.Start(ctx); err != nil {
				return fmt.Errorf("failed to watch inbox: %w", err)
			}
			defer watcher.Stop()
		}

		addr := server.GetAddr()
		fmt.Printf("%s Dashboard running on http://%s\n", ui.RenderPass("✓"), addr)
		fmt.Printf("  WebSocket: ws://%s/ws\n", addr)
		fmt.Printf("  Health:    http://%s/health\n", addr)
		if !s.ws.RemoteConfigured() {
			fmt.Printf("  %s local-only mode, changes stay in %s\n", ui.RenderWarn("!"), cfg.Cache.Path)
		}
		if cfg.Inbox.Dir != "" {
			fmt.Printf("  Inbox:     %s\n", cfg.Inbox.Dir)
		}
		fmt.Println("\nPress Ctrl+C to stop...")

		<-ctx.Done()

		fmt.Println("\nShutting down dashboard server...")
		if err := server.Stop(); err != nil {
			return fmt.Errorf("error during shutdown: %w", err)
		}
		fmt.Println("Dashboard server stopped")
		return nil
	},
}

// changeFeed picks the remote change feed for feed.mode. It returns nil in
// local-only mode or when the feed is switched off.
func changeFeed(s *session) remote.Feed {
	if !s.ws.RemoteConfigured() {
		return nil
	}
	switch cfg.Feed.Mode {
	case config.FeedRealtime:
		rc := remote.DefaultRealtimeConfig()
		rc.URL = cfg.Supabase.URL
		rc.Key = cfg.Supabase.Key
		rc.Logger = logger
		return remote.NewRealtimeFeed(rc)
	case config.FeedPoll:
		return remote.NewPollFeed(s.remote, cfg.Feed.PollInterval, logger)
	default:
		return nil
	}
}

func printImport(ev migrate.ImportEvent) {
	if ev.Err != nil && ev.Result == (store.ImportResult{}) {
		fmt.Printf("%s import %s failed: %v\n", ui.RenderFail("✗"), ev.Path, ev.Err)
		return
	}
	fmt.Printf("%s imported %s: %d projects, %d tasks, %d documents\n",
		ui.RenderPass("✓"), ev.Path, ev.Result.Projects, ev.Result.Tasks, ev.Result.Documents)
	for _, reason := range ev.Report.Skipped {
		fmt.Printf("  %s skipped %s\n", ui.RenderWarn("!"), reason)
	}
}

func init() {
	serveCmd.Flags().String("addr", "", "Address to listen on (default server.addr)")
	serveCmd.Flags().String("inbox", "", "Directory to watch for snapshot files (default inbox.dir)")
	serveCmd.Flags().Bool("no-weather", false, "Disable the weather widget")

	rootCmd.AddCommand(serveCmd)
}
