package store

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/focusboard/focusboard/internal/board/cache"
	"github.com/focusboard/focusboard/internal/board/remote"
	"github.com/focusboard/focusboard/internal/board/schema"
)

var errRemoteDown = errors.New("connection refused")

// fakeRemote is an in-memory Remote with switchable failures.
type fakeRemote struct {
	mu         sync.Mutex
	configured bool
	rows       map[schema.Collection][]json.RawMessage
	calls      int

	failList   error
	failInsert error
	failUpdate error
	failDelete error

	// gate, when set, blocks every mutation until closed.
	gate chan struct{}

	// canon rewrites a record on its way back from Insert/Update.
	canon func(rec map[string]any)
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{configured: true, rows: map[schema.Collection][]json.RawMessage{}}
}

func (f *fakeRemote) Configured() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.configured
}

func (f *fakeRemote) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeRemote) set(fn func(f *fakeRemote)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeRemote) put(col schema.Collection, recs ...any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range recs {
		data, _ := json.Marshal(r)
		f.rows[col] = append(f.rows[col], data)
	}
}

// putAll stores each of recs as a remote row.
func putAll[T any](f *fakeRemote, col schema.Collection, recs []T) {
	for _, r := range recs {
		f.put(col, r)
	}
}

func (f *fakeRemote) List(ctx context.Context, col schema.Collection) ([]json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failList != nil {
		return nil, f.failList
	}
	return append([]json.RawMessage(nil), f.rows[col]...), nil
}

func (f *fakeRemote) wait(ctx context.Context) error {
	f.mu.Lock()
	gate := f.gate
	f.mu.Unlock()
	if gate == nil {
		return nil
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeRemote) Insert(ctx context.Context, col schema.Collection, rec json.RawMessage) (json.RawMessage, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failInsert != nil {
		return nil, f.failInsert
	}
	out := f.canonical(rec)
	f.rows[col] = append(f.rows[col], out)
	return out, nil
}

func (f *fakeRemote) Update(ctx context.Context, col schema.Collection, id string, rec json.RawMessage) (json.RawMessage, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failUpdate != nil {
		return nil, f.failUpdate
	}
	for i, row := range f.rows[col] {
		if rowID(row) == id {
			out := f.canonical(rec)
			f.rows[col][i] = out
			return out, nil
		}
	}
	return nil, remote.ErrNotFound
}

func (f *fakeRemote) Delete(ctx context.Context, col schema.Collection, id string) error {
	if err := f.wait(ctx); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failDelete != nil {
		return f.failDelete
	}
	kept := f.rows[col][:0]
	for _, row := range f.rows[col] {
		if rowID(row) != id {
			kept = append(kept, row)
		}
	}
	f.rows[col] = kept
	return nil
}

func (f *fakeRemote) canonical(rec json.RawMessage) json.RawMessage {
	if f.canon == nil {
		return append(json.RawMessage(nil), rec...)
	}
	var m map[string]any
	_ = json.Unmarshal(rec, &m)
	f.canon(m)
	out, _ := json.Marshal(m)
	return out
}

func rowID(row json.RawMessage) string {
	var r struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(row, &r)
	return r.ID
}

// fixedClock returns a controllable clock.
type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func openCache(t *testing.T) *cache.Cache {
	t.Helper()
	c, err := cache.Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("cache.Open() failed: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// newTestWorkspace builds a workspace over r (nil = local-only) and a fresh cache.
func newTestWorkspace(t *testing.T, r Remote) (*Workspace, *cache.Cache) {
	t.Helper()
	c := openCache(t)
	cfg := DefaultConfig()
	cfg.Cache = c
	if r != nil {
		cfg.Remote = r
	}
	cfg.Timeout = 5 * time.Second
	w := NewWorkspace(cfg)
	t.Cleanup(w.Wait)
	return w, c
}

func cachedSnapshot(t *testing.T, c *cache.Cache) *schema.Snapshot {
	t.Helper()
	snap, err := c.Load(context.Background())
	if err != nil {
		t.Fatalf("cache.Load() failed: %v", err)
	}
	return snap
}

// chanFeed is a Feed driven by the test.
type chanFeed struct {
	mu   sync.Mutex
	subs map[schema.Collection]chan remote.Change
	err  error
}

func newChanFeed() *chanFeed {
	return &chanFeed{subs: map[schema.Collection]chan remote.Change{}}
}

func (f *chanFeed) Subscribe(ctx context.Context, col schema.Collection) (<-chan remote.Change, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	ch := make(chan remote.Change)
	f.subs[col] = ch
	return ch, nil
}

func (f *chanFeed) send(t *testing.T, col schema.Collection) {
	t.Helper()
	f.mu.Lock()
	ch := f.subs[col]
	f.mu.Unlock()
	select {
	case ch <- remote.Change{Collection: col, Type: "UPDATE", At: time.Now()}:
	case <-time.After(5 * time.Second):
		t.Fatalf("change for %s not received", col)
	}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
