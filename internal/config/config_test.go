package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// isolate points the config home at a temp dir and clears variables that
// would leak in from the developer's environment.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("FB_HOME", home)
	for _, k := range []string{
		"SUPABASE_URL", "SUPABASE_ANON_KEY", "ANTHROPIC_API_KEY",
		"FB_SUPABASE_URL", "FB_SUPABASE_KEY", "FB_ASSIST_API_KEY",
		"FB_SERVER_ADDR", "FB_FEED_MODE", "FB_LOG_LEVEL",
	} {
		t.Setenv(k, "")
	}
	return home
}

func TestLoad_Defaults(t *testing.T) {
	home := isolate(t)

	cfg, err := Load(Options{})
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.File != "" {
		t.Errorf("File = %q, want none", cfg.File)
	}
	if cfg.Cache.Path != filepath.Join(home, "cache.db") {
		t.Errorf("Cache.Path = %q", cfg.Cache.Path)
	}
	if cfg.Server.Addr != "127.0.0.1:8080" || cfg.Feed.Mode != FeedRealtime {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Weather.Interval != 30*time.Minute || cfg.Supabase.Timeout != 15*time.Second {
		t.Errorf("durations = %v, %v", cfg.Weather.Interval, cfg.Supabase.Timeout)
	}
	if cfg.RemoteConfigured() {
		t.Error("RemoteConfigured() = true with no settings")
	}
}

func TestWriteStarter_RoundTrip(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, "config.toml")

	if err := WriteStarter(path, false); err != nil {
		t.Fatalf("WriteStarter() failed: %v", err)
	}
	if err := WriteStarter(path, false); err == nil {
		t.Error("second WriteStarter() without force should fail")
	}
	if err := WriteStarter(path, true); err != nil {
		t.Errorf("WriteStarter(force) failed: %v", err)
	}

	cfg, err := Load(Options{})
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.File != path {
		t.Errorf("File = %q, want %q", cfg.File, path)
	}
	cfg.File = ""
	if diff := cmp.Diff(Defaults(), cfg); diff != "" {
		t.Errorf("starter file does not load as defaults (-want +got):\n%s", diff)
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, "custom.toml")
	data := `
[supabase]
url = "https://demo.supabase.co"

[feed]
mode = "poll"
poll_interval = "5s"

[server]
addr = "127.0.0.1:9000"
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SUPABASE_ANON_KEY", "anon-key")
	t.Setenv("FB_SERVER_ADDR", "127.0.0.1:9100")

	cfg, err := Load(Options{ConfigFile: path})
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Supabase.URL != "https://demo.supabase.co" || cfg.Supabase.Key != "anon-key" {
		t.Errorf("Supabase = %+v", cfg.Supabase)
	}
	if !cfg.RemoteConfigured() {
		t.Error("RemoteConfigured() = false")
	}
	if cfg.Feed.Mode != FeedPoll || cfg.Feed.PollInterval != 5*time.Second {
		t.Errorf("Feed = %+v", cfg.Feed)
	}
	if cfg.Server.Addr != "127.0.0.1:9100" {
		t.Errorf("Server.Addr = %q, env should win over the file", cfg.Server.Addr)
	}
}

func TestLoad_EnvFile(t *testing.T) {
	home := isolate(t)
	if _, set := os.LookupEnv("FB_INBOX_DIR"); set {
		t.Skip("FB_INBOX_DIR is set in the environment")
	}
	t.Cleanup(func() { os.Unsetenv("FB_INBOX_DIR") })

	envFile := filepath.Join(home, ".env")
	if err := os.WriteFile(envFile, []byte("FB_INBOX_DIR="+filepath.Join(home, "inbox")+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(Options{EnvFile: envFile})
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Inbox.Dir != filepath.Join(home, "inbox") {
		t.Errorf("Inbox.Dir = %q", cfg.Inbox.Dir)
	}

	if _, err := Load(Options{EnvFile: filepath.Join(home, "missing.env")}); err != nil {
		t.Errorf("a missing .env should be ignored: %v", err)
	}
}

func TestLoad_Errors(t *testing.T) {
	home := isolate(t)

	if _, err := Load(Options{ConfigFile: filepath.Join(home, "nope.toml")}); err == nil {
		t.Error("explicit missing config file should fail")
	}

	bad := filepath.Join(home, "bad.toml")
	if err := os.WriteFile(bad, []byte("[feed]\nmode = \"sometimes\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := Load(Options{ConfigFile: bad})
	if err == nil || !strings.Contains(err.Error(), "feed.mode") {
		t.Errorf("err = %v, want a feed.mode error", err)
	}
}
