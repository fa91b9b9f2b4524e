// Package loadtest drives a workspace with concurrent clients to check that
// the entity stores stay consistent and responsive under contention.
//
// Each simulated client mixes board reads with task moves, edits, and
// creates, the way several open dashboards and CLI invocations would. With
// a cache attached every mutation also pays for the snapshot write-through.
package loadtest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/focusboard/focusboard/internal/board/schema"
	"github.com/focusboard/focusboard/internal/board/store"
	"github.com/focusboard/focusboard/internal/board/view"
)

// Config controls a load run.
type Config struct {
	Clients      int // concurrent clients
	OpsPerClient int // operations each client performs
	Tasks        int // tasks added before the run
	Seed         int64
}

// DefaultConfig returns a moderate load.
func DefaultConfig() Config {
	return Config{Clients: 20, OpsPerClient: 50, Tasks: 500, Seed: 42}
}

// Op is one kind of client operation.
type Op string

const (
	OpRead   Op = "read"
	OpMove   Op = "move"
	OpEdit   Op = "edit"
	OpCreate Op = "create"
)

// opMix is weighted toward reads: 60% read, 20% move, 15% edit, 5% create.
var opMix = []Op{
	OpRead, OpRead, OpRead, OpRead, OpRead, OpRead, OpRead, OpRead, OpRead, OpRead, OpRead, OpRead,
	OpMove, OpMove, OpMove, OpMove,
	OpEdit, OpEdit, OpEdit,
	OpCreate,
}

// LatencyStats captures operation latency for a run.
type LatencyStats struct {
	Min   time.Duration `json:"min"`
	Max   time.Duration `json:"max"`
	Mean  time.Duration `json:"mean"`
	P50   time.Duration `json:"p50"`
	P95   time.Duration `json:"p95"`
	P99   time.Duration `json:"p99"`
	Total int           `json:"total"`
}

// Result is the outcome of Run.
type Result struct {
	Overall  LatencyStats        `json:"overall"`
	ByOp     map[Op]LatencyStats `json:"byOp"`
	Errors   int                 `json:"errors"`
	Elapsed  time.Duration       `json:"elapsed"`
	Tasks    int                 `json:"tasks"`
	OpsPerS  float64             `json:"opsPerSecond"`
	Projects int                 `json:"projects"`
}

// Populate adds n generated tasks spread over the workspace's projects.
func Populate(ctx context.Context, ws *store.Workspace, n int) error {
	projects := ws.Projects.Items()
	// Weighted toward Medium: 10% Critical, 20% High, 50% Medium, 20% Low.
	priorities := []schema.Priority{
		schema.PriorityCritical,
		schema.PriorityHigh, schema.PriorityHigh,
		schema.PriorityMedium, schema.PriorityMedium, schema.PriorityMedium, schema.PriorityMedium, schema.PriorityMedium,
		schema.PriorityLow, schema.PriorityLow,
	}
	for i := 0; i < n; i++ {
		t := &schema.Task{
			ID:       fmt.Sprintf("load-%05d", i),
			Title:    fmt.Sprintf("Load task %d", i),
			Priority: priorities[i%len(priorities)],
		}
		if len(projects) > 0 {
			t.ProjectID = projects[i%len(projects)].ID
		}
		if _, err := ws.Tasks.Create(ctx, t); err != nil {
			return fmt.Errorf("failed to add task %s: %w", t.ID, err)
		}
	}
	return nil
}

type sample struct {
	op  Op
	dur time.Duration
}

// Run starts cfg.Clients goroutines against ws and collects latencies.
// Populate should be called first.
func Run(ctx context.Context, ws *store.Workspace, cfg Config) (*Result, error) {
	if cfg.Clients <= 0 || cfg.OpsPerClient <= 0 {
		return nil, fmt.Errorf("clients and ops per client must be positive")
	}
	ids := taskIDs(ws)
	if len(ids) == 0 {
		return nil, fmt.Errorf("workspace has no tasks")
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		samples = make([]sample, 0, cfg.Clients*cfg.OpsPerClient)
		errs    []error
	)
	start := time.Now()
	for c := 0; c < cfg.Clients; c++ {
		wg.Add(1)
		go func(client int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(cfg.Seed + int64(client)))
			local := make([]sample, 0, cfg.OpsPerClient)
			var clientErrs []error
			for i := 0; i < cfg.OpsPerClient && ctx.Err() == nil; i++ {
				op := opMix[rng.Intn(len(opMix))]
				began := time.Now()
				err := runOp(ctx, ws, op, ids[rng.Intn(len(ids))], rng, client, i)
				local = append(local, sample{op: op, dur: time.Since(began)})
				if err != nil {
					clientErrs = append(clientErrs, fmt.Errorf("client %d %s: %w", client, op, err))
				}
			}
			mu.Lock()
			samples = append(samples, local...)
			errs = append(errs, clientErrs...)
			mu.Unlock()
		}(c)
	}
	wg.Wait()
	elapsed := time.Since(start)

	if len(samples) == 0 {
		return nil, errors.Join(append(errs, fmt.Errorf("no operations completed"))...)
	}

	all := make([]time.Duration, len(samples))
	byOp := make(map[Op][]time.Duration)
	for i, s := range samples {
		all[i] = s.dur
		byOp[s.op] = append(byOp[s.op], s.dur)
	}
	res := &Result{
		Overall:  computeLatencyStats(all),
		ByOp:     make(map[Op]LatencyStats, len(byOp)),
		Errors:   len(errs),
		Elapsed:  elapsed,
		Tasks:    ws.Tasks.Len(),
		Projects: ws.Projects.Len(),
	}
	for op, d := range byOp {
		res.ByOp[op] = computeLatencyStats(d)
	}
	if elapsed > 0 {
		res.OpsPerS = float64(len(samples)) / elapsed.Seconds()
	}
	return res, errors.Join(errs...)
}

func runOp(ctx context.Context, ws *store.Workspace, op Op, id string, rng *rand.Rand, client, i int) error {
	switch op {
	case OpRead:
		tasks := ws.Tasks.Items()
		_ = view.Board(tasks)
		_ = view.ComputeStats(ws.Projects.Items(), tasks, time.Now())
		return nil
	case OpMove:
		statuses := schema.TaskStatuses()
		_, err := ws.Tasks.MoveTask(ctx, id, statuses[rng.Intn(len(statuses))])
		return err
	case OpEdit:
		_, err := ws.Tasks.Update(ctx, id, func(t *schema.Task) {
			t.Description = fmt.Sprintf("edited by client %d (op %d)", client, i)
		})
		return err
	case OpCreate:
		_, err := ws.Tasks.Create(ctx, &schema.Task{
			ID:    fmt.Sprintf("load-c%03d-%04d", client, i),
			Title: fmt.Sprintf("Created by client %d", client),
		})
		return err
	default:
		return fmt.Errorf("unknown op %q", op)
	}
}

func taskIDs(ws *store.Workspace) []string {
	tasks := ws.Tasks.Items()
	ids := make([]string, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	return ids
}

// Verify checks invariants that concurrent mutation must not break:
// unique ids, StalledAt set exactly for stalled tasks moved there, and every
// task holding a valid status and priority.
func Verify(ws *store.Workspace) error {
	seen := make(map[string]bool)
	for _, t := range ws.Tasks.Items() {
		if seen[t.ID] {
			return fmt.Errorf("duplicate task id %s", t.ID)
		}
		seen[t.ID] = true
		if err := t.Validate(); err != nil {
			return fmt.Errorf("task %s: %w", t.ID, err)
		}
		if t.Status == schema.StatusStalled && t.StalledAt == nil {
			return fmt.Errorf("task %s is stalled without a timestamp", t.ID)
		}
		if t.Status != schema.StatusStalled && t.StalledAt != nil {
			return fmt.Errorf("task %s has a stale stalled timestamp", t.ID)
		}
	}
	return nil
}

// computeLatencyStats calculates statistics from a slice of durations.
func computeLatencyStats(durations []time.Duration) LatencyStats {
	if len(durations) == 0 {
		return LatencyStats{}
	}
	sorted := make([]time.Duration, len(durations))
	copy(sorted, durations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var sum time.Duration
	for _, d := range sorted {
		sum += d
	}
	return LatencyStats{
		Min:   sorted[0],
		Max:   sorted[len(sorted)-1],
		Mean:  sum / time.Duration(len(sorted)),
		P50:   sorted[len(sorted)*50/100],
		P95:   sorted[len(sorted)*95/100],
		P99:   sorted[len(sorted)*99/100],
		Total: len(sorted),
	}
}

// Print writes a readable summary of r.
func (r *Result) Print(w io.Writer) {
	fmt.Fprintf(w, "Operations:   %d in %v (%.0f ops/s), %d errors\n", r.Overall.Total, r.Elapsed.Round(time.Millisecond), r.OpsPerS, r.Errors)
	fmt.Fprintf(w, "Board size:   %d tasks, %d projects\n", r.Tasks, r.Projects)
	fmt.Fprintf(w, "%-8s %7s %10s %10s %10s %10s\n", "OP", "COUNT", "P50", "P95", "P99", "MAX")
	row := func(name string, s LatencyStats) {
		fmt.Fprintf(w, "%-8s %7d %10v %10v %10v %10v\n", name, s.Total, s.P50, s.P95, s.P99, s.Max)
	}
	for _, op := range []Op{OpRead, OpMove, OpEdit, OpCreate} {
		if s, ok := r.ByOp[op]; ok {
			row(string(op), s)
		}
	}
	row("all", r.Overall)
}
