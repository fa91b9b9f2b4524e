package loadtest

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/focusboard/focusboard/internal/board/cache"
	"github.com/focusboard/focusboard/internal/board/store"
)

func newWorkspace(t *testing.T) (*store.Workspace, *cache.Cache) {
	t.Helper()
	c, err := cache.Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("cache.Open() failed: %v", err)
	}
	t.Cleanup(func() { c.Close() })

	cfg := store.DefaultConfig()
	cfg.Cache = c
	ws := store.NewWorkspace(cfg)
	ws.Load(context.Background())
	return ws, c
}

func TestRun_Concurrent(t *testing.T) {
	ws, c := newWorkspace(t)
	ctx := context.Background()

	if err := Populate(ctx, ws, 50); err != nil {
		t.Fatalf("Populate() failed: %v", err)
	}
	res, err := Run(ctx, ws, Config{Clients: 8, OpsPerClient: 20, Seed: 7})
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if res.Overall.Total != 160 {
		t.Errorf("Total = %d, want 160", res.Overall.Total)
	}
	if res.Errors != 0 {
		t.Errorf("Errors = %d", res.Errors)
	}
	if err := Verify(ws); err != nil {
		t.Errorf("Verify() failed: %v", err)
	}

	// The cache must hold the final in-memory state.
	snap, err := c.Load(ctx)
	if err != nil {
		t.Fatalf("cache Load() failed: %v", err)
	}
	if len(snap.Tasks) != ws.Tasks.Len() {
		t.Errorf("cached tasks = %d, in memory = %d", len(snap.Tasks), ws.Tasks.Len())
	}
}

func TestRun_Errors(t *testing.T) {
	ws, _ := newWorkspace(t)
	if _, err := Run(context.Background(), ws, Config{Clients: 0, OpsPerClient: 1}); err == nil {
		t.Error("zero clients should fail")
	}
}

func TestComputeLatencyStats(t *testing.T) {
	var d []time.Duration
	for i := 1; i <= 100; i++ {
		d = append(d, time.Duration(i)*time.Millisecond)
	}
	s := computeLatencyStats(d)
	if s.Min != time.Millisecond || s.Max != 100*time.Millisecond {
		t.Errorf("min/max = %v/%v", s.Min, s.Max)
	}
	if s.P50 != 51*time.Millisecond || s.P95 != 96*time.Millisecond || s.P99 != 100*time.Millisecond {
		t.Errorf("percentiles = %v/%v/%v", s.P50, s.P95, s.P99)
	}
	if s.Mean != 50500*time.Microsecond {
		t.Errorf("mean = %v", s.Mean)
	}
	if computeLatencyStats(nil).Total != 0 {
		t.Error("empty input should give zero stats")
	}
}

func TestResultPrint(t *testing.T) {
	r := &Result{
		Overall: LatencyStats{Total: 2},
		ByOp:    map[Op]LatencyStats{OpRead: {Total: 2}},
	}
	var b strings.Builder
	r.Print(&b)
	for _, want := range []string{"read", "all", "0 errors"} {
		if !strings.Contains(b.String(), want) {
			t.Errorf("output missing %q:\n%s", want, b.String())
		}
	}
}
