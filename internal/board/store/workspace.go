package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/focusboard/focusboard/internal/board/remote"
	"github.com/focusboard/focusboard/internal/board/schema"
	"github.com/focusboard/focusboard/internal/logging"
)

// Workspace wires the three entity stores to one remote and one local cache.
type Workspace struct {
	Projects  *Store[*schema.Project]
	Tasks     *TaskStore
	Documents *Store[*schema.Document]

	cache  Cache
	remote Remote
	logger logrus.FieldLogger

	snapMu sync.Mutex

	reconMu sync.Mutex
	recons  []*Reconciler
}

// NewWorkspace creates the three stores and installs the cache write-through.
func NewWorkspace(cfg Config) *Workspace {
	w := &Workspace{
		Projects:  NewProjectStore(cfg),
		Tasks:     NewTaskStore(cfg),
		Documents: NewDocumentStore(cfg),
		cache:     cfg.Cache,
		remote:    cfg.Remote,
		logger:    logging.Component(cfg.Logger, "workspace"),
	}
	for _, s := range w.stores() {
		s.SetOnChange(w.writeThrough)
	}
	return w
}

// collectionStore is the non-generic surface shared by all three stores.
type collectionStore interface {
	Loader
	SetOnChange(fn func(ctx context.Context))
	Loaded() bool
	Status() Status
	Retry(ctx context.Context) int
	Wait()
	Subscribe() (<-chan Event, func())
}

func (w *Workspace) stores() []collectionStore {
	return []collectionStore{w.Projects, w.Tasks, w.Documents}
}

// RemoteConfigured reports whether a remote is in use.
func (w *Workspace) RemoteConfigured() bool {
	return w.remote != nil && w.remote.Configured()
}

// Load loads all three collections.
func (w *Workspace) Load(ctx context.Context) {
	for _, s := range w.stores() {
		s.Load(ctx)
	}
}

// Snapshot returns a copy of the in-memory state of all three stores.
func (w *Workspace) Snapshot() *schema.Snapshot {
	return &schema.Snapshot{
		Projects:  w.Projects.Items(),
		Tasks:     w.Tasks.Items(),
		Documents: w.Documents.Items(),
	}
}

// WriteSnapshot writes the combined in-memory state to the local cache.
//
// Nothing is written until every store has loaded once, so that a store
// still holding no data cannot overwrite its cached collection.
func (w *Workspace) WriteSnapshot(ctx context.Context) error {
	if w.cache == nil {
		return nil
	}
	for _, s := range w.stores() {
		if !s.Loaded() {
			return nil
		}
	}

	w.snapMu.Lock()
	defer w.snapMu.Unlock()
	if err := w.cache.Save(ctx, w.Snapshot()); err != nil {
		return fmt.Errorf("failed to write local cache: %w", err)
	}
	return nil
}

func (w *Workspace) writeThrough(ctx context.Context) {
	if err := w.WriteSnapshot(context.WithoutCancel(ctx)); err != nil {
		w.logger.WithError(err).Warn("write-through failed")
	}
}

// ImportResult counts records written by Import.
type ImportResult struct {
	Projects  int `json:"projects"`
	Tasks     int `json:"tasks"`
	Documents int `json:"documents"`
}

// Import upserts every record in snap. Invalid records are skipped and
// reported together in the returned error.
func (w *Workspace) Import(ctx context.Context, snap *schema.Snapshot) (ImportResult, error) {
	var res ImportResult
	var errs []error
	for _, p := range snap.Projects {
		if err := w.Projects.Upsert(ctx, p); err != nil {
			errs = append(errs, fmt.Errorf("project %s: %w", p.ID, err))
			continue
		}
		res.Projects++
	}
	for _, t := range snap.Tasks {
		if err := w.Tasks.Upsert(ctx, t); err != nil {
			errs = append(errs, fmt.Errorf("task %s: %w", t.ID, err))
			continue
		}
		res.Tasks++
	}
	for _, d := range snap.Documents {
		if err := w.Documents.Upsert(ctx, d); err != nil {
			errs = append(errs, fmt.Errorf("document %s: %w", d.ID, err))
			continue
		}
		res.Documents++
	}
	return res, errors.Join(errs...)
}

// Status returns the sync status of every store.
func (w *Workspace) Status() []Status {
	out := make([]Status, 0, 3)
	for _, s := range w.stores() {
		out = append(out, s.Status())
	}
	return out
}

// Retry re-sends failed mutations in every store and returns the total.
func (w *Workspace) Retry(ctx context.Context) int {
	n := 0
	for _, s := range w.stores() {
		n += s.Retry(ctx)
	}
	return n
}

// Wait blocks until background remote writes in every store finish.
func (w *Workspace) Wait() {
	for _, s := range w.stores() {
		s.Wait()
	}
}

// Subscribe merges the event streams of all three stores. The returned
// channel closes after the stop function is called.
func (w *Workspace) Subscribe() (<-chan Event, func()) {
	out := make(chan Event, subscriberBuffer)
	done := make(chan struct{})
	var wg sync.WaitGroup
	var stops []func()

	for _, s := range w.stores() {
		ch, stop := s.Subscribe()
		stops = append(stops, stop)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ev := range ch {
				select {
				case out <- ev:
				case <-done:
				}
			}
		}()
	}

	var once sync.Once
	return out, func() {
		once.Do(func() {
			close(done)
			for _, stop := range stops {
				stop()
			}
			wg.Wait()
			close(out)
		})
	}
}

// StartReconcile subscribes every store to feed. Stores whose subscription
// fails are logged and left idle.
func (w *Workspace) StartReconcile(ctx context.Context, feed remote.Feed) error {
	w.reconMu.Lock()
	defer w.reconMu.Unlock()
	if len(w.recons) > 0 {
		return fmt.Errorf("reconciliation already running")
	}

	var errs []error
	for _, s := range w.stores() {
		r := NewReconciler(s, feed, w.logger)
		if err := r.Start(ctx); err != nil {
			errs = append(errs, err)
			continue
		}
		w.recons = append(w.recons, r)
	}
	if len(errs) > 0 {
		w.logger.WithError(errors.Join(errs...)).Warn("some change feeds are unavailable")
	}
	if len(w.recons) == 0 {
		return errors.Join(errs...)
	}
	return nil
}

// StopReconcile stops every reconciler.
func (w *Workspace) StopReconcile() {
	w.reconMu.Lock()
	recons := w.recons
	w.recons = nil
	w.reconMu.Unlock()

	for _, r := range recons {
		r.Stop()
	}
}

// Reconcilers returns the running reconcilers.
func (w *Workspace) Reconcilers() []*Reconciler {
	w.reconMu.Lock()
	defer w.reconMu.Unlock()
	return append([]*Reconciler(nil), w.recons...)
}
