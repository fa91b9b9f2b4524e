package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/focusboard/focusboard/internal/board/schema"
)

// gatedLoader counts loads and blocks each one until released.
type gatedLoader struct {
	mu      sync.Mutex
	loads   int
	release chan struct{}
	started chan struct{}
}

func newGatedLoader() *gatedLoader {
	return &gatedLoader{release: make(chan struct{}), started: make(chan struct{}, 16)}
}

func (l *gatedLoader) Collection() schema.Collection { return schema.CollectionTasks }

func (l *gatedLoader) Load(ctx context.Context) {
	l.started <- struct{}{}
	select {
	case <-l.release:
	case <-ctx.Done():
	}
	l.mu.Lock()
	l.loads++
	l.mu.Unlock()
}

func (l *gatedLoader) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loads
}

func TestReconciler_StateMachine(t *testing.T) {
	defer goleak.VerifyNone(t)

	feed := newChanFeed()
	loader := newGatedLoader()
	r := NewReconciler(loader, feed, nil)

	if s := r.State(); s != ReconIdle {
		t.Fatalf("initial state = %s, want idle", s)
	}
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	if s := r.State(); s != ReconSubscribed {
		t.Errorf("state after Start = %s, want subscribed", s)
	}

	feed.send(t, schema.CollectionTasks)
	<-loader.started
	if s := r.State(); s != ReconReloading {
		t.Errorf("state during reload = %s, want reloading", s)
	}

	close(loader.release)
	waitFor(t, "reload to finish", func() bool { return r.Reloads() == 1 })
	waitFor(t, "return to subscribed", func() bool { return r.State() == ReconSubscribed })

	r.Stop()
	if s := r.State(); s != ReconIdle {
		t.Errorf("state after Stop = %s, want idle", s)
	}
}

// TestReconciler_NotCoalesced: notifications during a reload each produce
// their own reload afterwards.
func TestReconciler_NotCoalesced(t *testing.T) {
	defer goleak.VerifyNone(t)

	feed := newChanFeed()
	loader := newGatedLoader()
	r := NewReconciler(loader, feed, nil)
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	defer r.Stop()

	feed.send(t, schema.CollectionTasks)
	<-loader.started

	// Two more arrive while the first reload is blocked.
	feed.send(t, schema.CollectionTasks)
	feed.send(t, schema.CollectionTasks)
	waitFor(t, "notifications to queue", func() bool { return r.Queued() == 2 })

	close(loader.release)
	waitFor(t, "three reloads", func() bool { return loader.count() == 3 })

	time.Sleep(20 * time.Millisecond)
	if n := loader.count(); n != 3 {
		t.Errorf("loads = %d, want exactly 3", n)
	}
}

func TestReconciler_SubscribeFailureStaysIdle(t *testing.T) {
	feed := newChanFeed()
	feed.err = errors.New("no realtime")
	r := NewReconciler(newGatedLoader(), feed, nil)

	if err := r.Start(context.Background()); err == nil {
		t.Fatal("Start() should fail when the feed cannot subscribe")
	}
	if s := r.State(); s != ReconIdle {
		t.Errorf("state = %s, want idle", s)
	}
}

func TestReconciler_DoubleStart(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := NewReconciler(newGatedLoader(), newChanFeed(), nil)
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	defer r.Stop()
	if err := r.Start(context.Background()); err == nil {
		t.Error("second Start() should fail")
	}
}

// TestReconcile_ReloadPicksUpRemoteChange drives a real store through the
// workspace reconcilers.
func TestReconcile_ReloadPicksUpRemoteChange(t *testing.T) {
	fr := newFakeRemote()
	putAll(fr, schema.CollectionTasks, schema.SeedTasks(time.Now()))
	w, _ := newTestWorkspace(t, fr)
	ctx := context.Background()
	w.Load(ctx)

	feed := newChanFeed()
	if err := w.StartReconcile(ctx, feed); err != nil {
		t.Fatalf("StartReconcile() failed: %v", err)
	}
	defer w.StopReconcile()

	fr.put(schema.CollectionTasks, &schema.Task{ID: "remote-1", Title: "From another client", Status: schema.StatusTodo, Priority: schema.PriorityLow})
	feed.send(t, schema.CollectionTasks)

	waitFor(t, "reloaded task", func() bool {
		_, ok := w.Tasks.Get("remote-1")
		return ok
	})
	if n := len(w.Reconcilers()); n != 3 {
		t.Errorf("reconcilers = %d, want 3", n)
	}
}

// TestReloadRace documents the accepted race: a reload whose snapshot
// predates a local write's commit overwrites the optimistic update.
func TestReloadRace(t *testing.T) {
	fr := newFakeRemote()
	putAll(fr, schema.CollectionTasks, schema.SeedTasks(time.Now()))
	w, _ := newTestWorkspace(t, fr)
	ctx := context.Background()
	w.Load(ctx)

	// The remote still serves the old title because the write has not
	// committed yet; the reload sees that stale state.
	gate := make(chan struct{})
	fr.set(func(f *fakeRemote) { f.gate = gate })

	if _, err := w.Tasks.Update(ctx, "t4", func(t *schema.Task) { t.Title = "local edit" }); err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	w.Tasks.Load(ctx)

	task, _ := w.Tasks.Get("t4")
	if task.Title == "local edit" {
		t.Fatal("expected the stale reload to overwrite the optimistic edit")
	}

	// Once the write commits, its canonical record lands again.
	close(gate)
	w.Wait()
	task, _ = w.Tasks.Get("t4")
	if task.Title != "local edit" {
		t.Errorf("title after commit = %q, want %q", task.Title, "local edit")
	}
}
