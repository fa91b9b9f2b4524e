// Package store holds the in-memory entity stores for projects, tasks, and
// documents, and orchestrates their persistence.
//
// # Mutations
//
// Every mutation is applied to memory first and returns immediately. The
// remote write then runs in its own goroutine. When it succeeds, the record
// is replaced by the canonical version the remote returned. When it fails,
// the optimistic state is kept, the store is marked offline, and a readable
// error is recorded. Remote errors never escape a store.
//
// # Write-through
//
// After each optimistic apply, and again when each remote write completes,
// the workspace rewrites the combined snapshot to the local cache.
//
// # Outbox
//
// Each remote write is tracked in an Outbox as pending, then committed or
// failed. Failed writes are re-sent only by an explicit Retry.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/focusboard/focusboard/internal/board/cache"
	"github.com/focusboard/focusboard/internal/board/schema"
	"github.com/focusboard/focusboard/internal/logging"
)

var (
	// ErrNotFound is returned for local operations on an unknown id.
	ErrNotFound = errors.New("not found")

	// ErrExists is returned when creating a record whose id is taken.
	ErrExists = errors.New("already exists")
)

// Remote is the row store the entity stores persist to. Records are camelCase
// JSON; naming translation is the implementation's concern.
type Remote interface {
	Configured() bool
	List(ctx context.Context, col schema.Collection) ([]json.RawMessage, error)
	Insert(ctx context.Context, col schema.Collection, rec json.RawMessage) (json.RawMessage, error)
	Update(ctx context.Context, col schema.Collection, id string, rec json.RawMessage) (json.RawMessage, error)
	Delete(ctx context.Context, col schema.Collection, id string) error
}

// Cache is the local persisted snapshot.
type Cache interface {
	Load(ctx context.Context) (*schema.Snapshot, error)
	Save(ctx context.Context, snap *schema.Snapshot) error
}

// Record is the constraint for stored entity types.
type Record[T any] interface {
	schema.Entity
	Clone() T
}

// Config holds store configuration shared by all three stores.
type Config struct {
	Remote Remote // nil or unconfigured = local-only
	Cache  Cache  // nil = no offline fallback beyond the seed
	Logger logrus.FieldLogger

	// Timeout bounds each background remote write.
	Timeout time.Duration

	Now   func() time.Time
	NewID func() string
}

// DefaultConfig returns the default store configuration.
func DefaultConfig() Config {
	return Config{
		Timeout: 30 * time.Second,
		Now:     time.Now,
		NewID:   func() string { return uuid.NewString() },
	}
}

// Store is the in-memory source of truth for one collection.
type Store[T Record[T]] struct {
	col     schema.Collection
	remote  Remote
	cache   Cache
	logger  logrus.FieldLogger
	timeout time.Duration
	now     func() time.Time
	newID   func() string
	pick    func(*schema.Snapshot) []T
	seed    func(time.Time) []T

	mu      sync.RWMutex
	items   []T
	revs    map[string]uint64
	loading bool
	loaded  bool
	online  bool
	err     string

	outbox  *Outbox
	wg      sync.WaitGroup
	retryMu sync.Mutex

	hookMu   sync.RWMutex
	onChange func(ctx context.Context)
	events   *broker
}

func newStore[T Record[T]](col schema.Collection, cfg Config, pick func(*schema.Snapshot) []T, seed func(time.Time) []T) *Store[T] {
	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.Now == nil {
		cfg.Now = def.Now
	}
	if cfg.NewID == nil {
		cfg.NewID = def.NewID
	}
	return &Store[T]{
		col:     col,
		remote:  cfg.Remote,
		cache:   cfg.Cache,
		logger:  logging.Component(cfg.Logger, "store").WithField("collection", col),
		timeout: cfg.Timeout,
		now:     cfg.Now,
		newID:   cfg.NewID,
		pick:    pick,
		seed:    seed,
		revs:    make(map[string]uint64),
		outbox:  NewOutbox(cfg.Now),
		events:  newBroker(),
	}
}

// NewProjectStore creates the project store.
func NewProjectStore(cfg Config) *Store[*schema.Project] {
	return newStore(schema.CollectionProjects, cfg,
		func(s *schema.Snapshot) []*schema.Project { return s.Projects },
		schema.SeedProjects)
}

// NewDocumentStore creates the document store.
func NewDocumentStore(cfg Config) *Store[*schema.Document] {
	return newStore(schema.CollectionDocuments, cfg,
		func(s *schema.Snapshot) []*schema.Document { return s.Documents },
		schema.SeedDocuments)
}

// Collection returns the collection this store holds.
func (s *Store[T]) Collection() schema.Collection { return s.col }

// Outbox returns the store's mutation outbox.
func (s *Store[T]) Outbox() *Outbox { return s.outbox }

// SetOnChange installs the write-through hook. It is called without any
// store lock held.
func (s *Store[T]) SetOnChange(fn func(ctx context.Context)) {
	s.hookMu.Lock()
	s.onChange = fn
	s.hookMu.Unlock()
}

func (s *Store[T]) changed(ctx context.Context) {
	s.hookMu.RLock()
	fn := s.onChange
	s.hookMu.RUnlock()
	if fn != nil {
		fn(ctx)
	}
}

// Subscribe returns a channel of change events and a function that ends the
// subscription. Slow subscribers miss events rather than block the store.
func (s *Store[T]) Subscribe() (<-chan Event, func()) {
	return s.events.subscribe()
}

// Items returns a copy of the collection.
func (s *Store[T]) Items() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.items)
}

// Get returns a copy of one record.
func (s *Store[T]) Get(id string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.items[i].Clone(), true
	}
	var zero T
	return zero, false
}

// Len returns the number of records.
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Loading reports whether a Load is in progress.
func (s *Store[T]) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Loaded reports whether at least one Load has completed.
func (s *Store[T]) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Online reports whether the remote is configured and the last remote
// operation succeeded.
func (s *Store[T]) Online() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.online
}

// Err returns the last sync error, or "" if none.
func (s *Store[T]) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Status summarizes the store's sync state.
func (s *Store[T]) Status() Status {
	pending, failed, committed := s.outbox.Counts()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Status{
		Collection: s.col,
		Count:      len(s.items),
		Loading:    s.loading,
		Loaded:     s.loaded,
		Online:     s.online,
		Error:      s.err,
		Pending:    pending,
		Failed:     failed,
		Committed:  committed,
	}
}

// Wait blocks until all background remote writes have finished.
func (s *Store[T]) Wait() {
	s.wg.Wait()
}

func (s *Store[T]) remoteConfigured() bool {
	return s.remote != nil && s.remote.Configured()
}

// Load replaces the collection from the remote, falling back to the local
// cache and then to the built-in seed.
func (s *Store[T]) Load(ctx context.Context) {
	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()

	items, online, errMsg := s.fetch(ctx)

	s.mu.Lock()
	s.items = items
	s.online = online
	if errMsg != "" || !s.outbox.HasFailed() {
		s.err = errMsg
	}
	s.loading = false
	s.loaded = true
	n := len(items)
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{"count": n, "online": online}).Debug("loaded")
	s.events.publish(Event{Collection: s.col, Type: EventReloaded})
	s.changed(ctx)
}

func (s *Store[T]) fetch(ctx context.Context) (items []T, online bool, errMsg string) {
	if !s.remoteConfigured() {
		return s.fromCache(ctx), false, ""
	}

	raws, err := s.remote.List(ctx, s.col)
	if err != nil {
		s.logger.WithError(err).Warn("fetch failed, using local cache")
		return s.fromCache(ctx), false, fmt.Sprintf("Failed to fetch %s: %v", s.col, err)
	}

	items = make([]T, 0, len(raws))
	for _, raw := range raws {
		rec, err := decode[T](raw)
		if err != nil {
			s.logger.WithError(err).Warn("skipping undecodable record")
			continue
		}
		items = append(items, rec)
	}
	if len(items) == 0 {
		items = s.seed(s.now())
	}
	return items, true, ""
}

func (s *Store[T]) fromCache(ctx context.Context) []T {
	if s.cache == nil {
		return s.seed(s.now())
	}
	snap, err := s.cache.Load(ctx)
	switch {
	case errors.Is(err, cache.ErrNoSnapshot):
		return s.seed(s.now())
	case err != nil:
		s.logger.WithError(err).Warn("discarding unreadable local cache")
		return s.seed(s.now())
	}
	items := s.pick(snap)
	if items == nil {
		return s.seed(s.now())
	}
	return cloneAll(items)
}

// Create adds a record. An empty ID is filled with a fresh identifier.
// Only validation errors are returned; remote failures surface via Err.
func (s *Store[T]) Create(ctx context.Context, rec T) (T, error) {
	var zero T
	rec = rec.Clone()
	if rec.GetID() == "" {
		rec.SetID(s.newID())
	}
	rec.SetDefaults()
	rec.Touch(s.now())
	if err := rec.Validate(); err != nil {
		return zero, fmt.Errorf("invalid %s: %w", s.col.Singular(), err)
	}

	s.mu.Lock()
	if s.indexOf(rec.GetID()) >= 0 {
		s.mu.Unlock()
		return zero, fmt.Errorf("%s %s: %w", s.col.Singular(), rec.GetID(), ErrExists)
	}
	s.items = append([]T{rec}, s.items...)
	rev := s.bump(rec.GetID())
	s.mu.Unlock()

	s.events.publish(Event{Collection: s.col, Type: EventCreated, ID: rec.GetID(), Record: rec.Clone()})
	s.changed(ctx)
	s.persist(ctx, OpCreate, "insert", rec.GetID(), rec, rev)
	return rec.Clone(), nil
}

// Update applies patch to a copy of the record, stamps it, and stores it.
// The id cannot be changed by the patch.
func (s *Store[T]) Update(ctx context.Context, id string, patch func(T)) (T, error) {
	return s.mutate(ctx, "update", id, func(rec T, _ time.Time) { patch(rec) })
}

func (s *Store[T]) mutate(ctx context.Context, verb, id string, patch func(T, time.Time)) (T, error) {
	var zero T
	now := s.now()

	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return zero, fmt.Errorf("%s %s: %w", s.col.Singular(), id, ErrNotFound)
	}
	rec := s.items[i].Clone()
	patch(rec, now)
	rec.SetID(id)
	rec.Touch(now)
	if err := rec.Validate(); err != nil {
		s.mu.Unlock()
		return zero, fmt.Errorf("invalid %s: %w", s.col.Singular(), err)
	}
	s.items[i] = rec
	rev := s.bump(id)
	s.mu.Unlock()

	s.events.publish(Event{Collection: s.col, Type: EventUpdated, ID: id, Record: rec.Clone()})
	s.changed(ctx)
	s.persist(ctx, OpUpdate, verb, id, rec, rev)
	return rec.Clone(), nil
}

// Delete removes a record. A failed remote delete does not restore it.
func (s *Store[T]) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%s %s: %w", s.col.Singular(), id, ErrNotFound)
	}
	s.items = append(s.items[:i:i], s.items[i+1:]...)
	rev := s.bump(id)
	s.mu.Unlock()

	s.events.publish(Event{Collection: s.col, Type: EventDeleted, ID: id})
	s.changed(ctx)
	var zero T
	s.persist(ctx, OpDelete, "delete", id, zero, rev)
	return nil
}

// Upsert stores rec as-is, replacing any record with the same id, and
// persists it. Used by imports; timestamps are preserved.
func (s *Store[T]) Upsert(ctx context.Context, rec T) error {
	rec = rec.Clone()
	rec.SetDefaults()
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("invalid %s: %w", s.col.Singular(), err)
	}

	s.mu.Lock()
	op, verb := OpUpdate, "update"
	if i := s.indexOf(rec.GetID()); i >= 0 {
		s.items[i] = rec
	} else {
		s.items = append([]T{rec}, s.items...)
		op, verb = OpCreate, "insert"
	}
	rev := s.bump(rec.GetID())
	s.mu.Unlock()

	kind := EventUpdated
	if op == OpCreate {
		kind = EventCreated
	}
	s.events.publish(Event{Collection: s.col, Type: kind, ID: rec.GetID(), Record: rec.Clone()})
	s.changed(ctx)
	s.persist(ctx, op, verb, rec.GetID(), rec, rev)
	return nil
}

// persist starts the background remote write for one mutation. Local-only
// stores skip the remote entirely.
func (s *Store[T]) persist(ctx context.Context, op Op, verb, id string, rec T, rev uint64) {
	if !s.remoteConfigured() {
		return
	}

	var payload json.RawMessage
	if op != OpDelete {
		data, err := json.Marshal(rec)
		if err != nil {
			s.fail(ctx, verb, id, err)
			return
		}
		payload = data
	}

	seq := s.outbox.Add(s.col, op, id, rev, payload)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.send(context.WithoutCancel(ctx), Mutation{Seq: seq, Op: op, ID: id, Rev: rev, Record: payload}, verb, rev)
	}()
}

// send performs one remote write and applies its outcome.
func (s *Store[T]) send(ctx context.Context, m Mutation, verb string, rev uint64) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var canonical json.RawMessage
	var err error
	switch m.Op {
	case OpCreate:
		canonical, err = s.remote.Insert(ctx, s.col, m.Record)
	case OpUpdate:
		canonical, err = s.remote.Update(ctx, s.col, m.ID, m.Record)
	case OpDelete:
		err = s.remote.Delete(ctx, s.col, m.ID)
	}

	if err != nil {
		s.outbox.Fail(m.Seq, err.Error())
		s.fail(ctx, verb, m.ID, err)
		return
	}

	s.outbox.Commit(m.Seq)
	s.succeed(m.ID, canonical, rev)
	s.changed(ctx)
}

func (s *Store[T]) fail(ctx context.Context, verb, id string, err error) {
	s.logger.WithError(err).WithField("id", id).Warnf("remote %s failed", verb)

	s.mu.Lock()
	s.online = false
	s.err = fmt.Sprintf("Failed to %s %s: %v", verb, s.col.Singular(), err)
	s.mu.Unlock()

	s.events.publish(Event{Collection: s.col, Type: EventSyncError, ID: id})
	s.changed(ctx)
}

// succeed marks the store online and swaps in the canonical record, unless
// a newer local mutation of the same record has happened since.
func (s *Store[T]) succeed(id string, canonical json.RawMessage, rev uint64) {
	var rec T
	var replaced bool
	if canonical != nil {
		var err error
		rec, err = decode[T](canonical)
		if err != nil {
			s.logger.WithError(err).WithField("id", id).Warn("ignoring undecodable canonical record")
			canonical = nil
		}
	}

	s.mu.Lock()
	s.online = true
	if !s.outbox.HasFailed() {
		s.err = ""
	}
	if canonical != nil && s.revs[id] == rev {
		if i := s.indexOf(id); i >= 0 {
			s.items[i] = rec
			replaced = true
		}
	}
	s.mu.Unlock()

	if replaced {
		s.events.publish(Event{Collection: s.col, Type: EventCommitted, ID: id, Record: rec.Clone()})
	}
}

// Retry re-sends every failed mutation once, in order, and waits for the
// results. It returns the number of mutations re-sent. Each mutation keeps
// the revision it was made at, so a retried create never replaces a newer
// local edit.
func (s *Store[T]) Retry(ctx context.Context) int {
	if !s.remoteConfigured() {
		return 0
	}
	s.retryMu.Lock()
	defer s.retryMu.Unlock()

	batch := s.outbox.Requeue()
	for _, m := range batch {
		verb := map[Op]string{OpCreate: "insert", OpUpdate: "update", OpDelete: "delete"}[m.Op]
		s.send(ctx, m, verb, m.Rev)
	}
	return len(batch)
}

// bump advances the local revision of id. Callers hold s.mu.
func (s *Store[T]) bump(id string) uint64 {
	s.revs[id]++
	return s.revs[id]
}

// indexOf returns the index of id or -1. Callers hold s.mu.
func (s *Store[T]) indexOf(id string) int {
	for i, it := range s.items {
		if it.GetID() == id {
			return i
		}
	}
	return -1
}

func cloneAll[T Record[T]](items []T) []T {
	if items == nil {
		return nil
	}
	out := make([]T, len(items))
	for i, it := range items {
		out[i] = it.Clone()
	}
	return out
}

func decode[T any](raw json.RawMessage) (T, error) {
	var v T
	err := json.Unmarshal(raw, &v)
	return v, err
}
