package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/focusboard/focusboard/internal/board/remote"
	"github.com/focusboard/focusboard/internal/board/schema"
	"github.com/focusboard/focusboard/internal/logging"
)

// ReconState is the per-collection reconciliation state.
type ReconState int

const (
	ReconIdle ReconState = iota
	ReconSubscribed
	ReconReloading
)

func (s ReconState) String() string {
	switch s {
	case ReconIdle:
		return "idle"
	case ReconSubscribed:
		return "subscribed"
	case ReconReloading:
		return "reloading"
	default:
		return fmt.Sprintf("ReconState(%d)", int(s))
	}
}

// Loader is what a Reconciler reloads.
type Loader interface {
	Collection() schema.Collection
	Load(ctx context.Context)
}

// Reconciler reloads one collection whenever its change feed fires.
//
// Every notification produces exactly one full reload. Notifications that
// arrive while a reload is running are queued and run afterwards, one at a
// time; they are never merged.
type Reconciler struct {
	loader Loader
	feed   remote.Feed
	logger logrus.FieldLogger

	mu      sync.Mutex
	state   ReconState
	queued  int
	reloads uint64
	kick    chan struct{}

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewReconciler creates an idle reconciler.
func NewReconciler(loader Loader, feed remote.Feed, logger logrus.FieldLogger) *Reconciler {
	return &Reconciler{
		loader: loader,
		feed:   feed,
		logger: logging.Component(logger, "reconcile").WithField("collection", loader.Collection()),
		kick:   make(chan struct{}, 1),
	}
}

// Start subscribes to the feed. On error the reconciler stays Idle.
func (r *Reconciler) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.cancel != nil {
		r.mu.Unlock()
		return fmt.Errorf("reconciler for %s already started", r.loader.Collection())
	}
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.mu.Unlock()

	changes, err := r.feed.Subscribe(ctx, r.loader.Collection())
	if err != nil {
		cancel()
		r.mu.Lock()
		r.cancel = nil
		r.mu.Unlock()
		return fmt.Errorf("failed to subscribe to %s: %w", r.loader.Collection(), err)
	}

	r.setState(ReconSubscribed)
	r.logger.Info("subscribed to change feed")

	r.wg.Add(2)
	go r.receive(ctx, changes)
	go r.work(ctx)
	return nil
}

// Stop ends the subscription and waits for any running reload.
func (r *Reconciler) Stop() {
	r.mu.Lock()
	cancel := r.cancel
	r.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	r.wg.Wait()

	r.mu.Lock()
	r.cancel = nil
	r.state = ReconIdle
	r.queued = 0
	r.mu.Unlock()
}

// Notify queues one reload as if a change notification had arrived.
func (r *Reconciler) Notify() {
	r.mu.Lock()
	r.queued++
	r.mu.Unlock()
	select {
	case r.kick <- struct{}{}:
	default:
	}
}

// State returns the current state.
func (r *Reconciler) State() ReconState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Reloads returns the number of completed reloads.
func (r *Reconciler) Reloads() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reloads
}

// Queued returns the number of reloads waiting to run.
func (r *Reconciler) Queued() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.queued
}

func (r *Reconciler) setState(s ReconState) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

func (r *Reconciler) receive(ctx context.Context, changes <-chan remote.Change) {
	defer r.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-changes:
			if !ok {
				return
			}
			r.logger.WithField("change", c.Type).Debug("change notification")
			r.Notify()
		}
	}
}

func (r *Reconciler) work(ctx context.Context) {
	defer r.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.kick:
		}

		for {
			r.mu.Lock()
			if r.queued == 0 || ctx.Err() != nil {
				if ctx.Err() == nil {
					r.state = ReconSubscribed
				}
				r.mu.Unlock()
				break
			}
			r.queued--
			r.state = ReconReloading
			r.mu.Unlock()

			r.loader.Load(ctx)

			r.mu.Lock()
			r.reloads++
			r.mu.Unlock()
		}
	}
}
