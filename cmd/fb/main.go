package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/focusboard/focusboard/internal/board/cache"
	"github.com/focusboard/focusboard/internal/board/remote"
	"github.com/focusboard/focusboard/internal/board/store"
	"github.com/focusboard/focusboard/internal/config"
	"github.com/focusboard/focusboard/internal/logging"
)

var (
	configFile string
	envFile    string
	logLevel   string

	cfg    *config.Config
	logger *logrus.Logger
)

var rootCmd = &cobra.Command{
	Use:   "fb",
	Short: "focusboard - a personal Kanban board with offline sync",
	Long: `focusboard keeps projects, tasks, and documents in memory, mirrors them to a
local SQLite cache, and syncs them to a Supabase-style remote when one is
configured. Without remote settings it runs in local-only mode.

Run "fb serve" for the live dashboard, or use the task, project, and doc
commands to edit the board from the terminal.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// config init must work even when the existing file is broken.
		if cmd.Annotations["skipConfig"] == "true" {
			return nil
		}
		var err error
		cfg, err = config.Load(config.Options{ConfigFile: configFile, EnvFile: envFile})
		if err != nil {
			return err
		}
		lc := logging.DefaultConfig()
		lc.Level = cfg.Log.Level
		if logLevel != "" {
			lc.Level = logLevel
		}
		lc.File = cfg.Log.File
		lc.JSON = cfg.Log.JSON
		logger, err = logging.New(lc)
		return err
	},
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: "board", Title: "Board Commands:"},
		&cobra.Group{ID: "sync", Title: "Sync and Data:"},
		&cobra.Group{ID: "setup", Title: "Setup:"},
	)
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default "+config.DefaultPath()+")")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Dotenv file loaded before the environment is read")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log.level (debug, info, warn, error)")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// session is an opened workspace plus the resources behind it.
type session struct {
	ws     *store.Workspace
	cache  *cache.Cache
	remote *remote.Client
}

// openSession builds the workspace from cfg and loads all collections.
// The cache is optional: when it cannot be opened the board still runs
// from the remote or the seed data.
func openSession(ctx context.Context) (*session, error) {
	s := &session{}

	rc := remote.DefaultConfig()
	rc.URL = cfg.Supabase.URL
	rc.Key = cfg.Supabase.Key
	rc.Timeout = cfg.Supabase.Timeout
	rc.Logger = logger
	s.remote = remote.NewWithConfig(rc)

	sc := store.DefaultConfig()
	sc.Logger = logger
	if s.remote.Configured() {
		sc.Remote = s.remote
	} else if cfg.RemoteConfigured() {
		logger.Warn("remote settings look like placeholders, running local-only")
	}

	c, err := cache.OpenContext(ctx, cfg.Cache.Path)
	if err != nil {
		logger.WithError(err).Warn("local cache unavailable")
	} else {
		s.cache = c
		sc.Cache = c
	}

	s.ws = store.NewWorkspace(sc)
	s.ws.Load(ctx)
	return s, nil
}

// Close waits for pending remote writes, flushes the cache, and closes it.
func (s *session) Close() error {
	done := make(chan struct{})
	go func() {
		s.ws.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(30 * time.Second):
		logger.Warn("timed out waiting for remote writes")
	}

	if s.cache == nil {
		return nil
	}
	if err := s.ws.WriteSnapshot(context.Background()); err != nil {
		logger.WithError(err).Warn("final cache write failed")
	}
	return s.cache.Close()
}

// withSession runs fn against an opened session and closes it afterwards.
// Remote write failures that remain after fn are reported as warnings.
func withSession(cmd *cobra.Command, fn func(ctx context.Context, s *session) error) error {
	ctx := cmd.Context()
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	runErr := fn(ctx, s)
	if err := s.Close(); err != nil && runErr == nil {
		runErr = err
	}
	for _, st := range s.ws.Status() {
		if st.Failed > 0 {
			fmt.Fprintf(os.Stderr, "Warning: %d %s change(s) not saved remotely: %s (kept in the local cache)\n", st.Failed, st.Collection, st.Error)
		}
	}
	return runErr
}
