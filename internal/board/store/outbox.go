package store

import (
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/focusboard/focusboard/internal/board/schema"
)

// Op is the kind of remote mutation.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// MutationState tracks one remote mutation.
type MutationState string

const (
	StatePending   MutationState = "pending"
	StateCommitted MutationState = "committed"
	StateFailed    MutationState = "failed"
)

// Mutation is one outstanding remote write.
type Mutation struct {
	Seq        uint64            `json:"seq"`
	Collection schema.Collection `json:"collection"`
	Op         Op                `json:"op"`
	ID         string            `json:"id"`
	Rev        uint64            `json:"rev"`
	Record     json.RawMessage   `json:"record,omitempty"`
	State      MutationState     `json:"state"`
	Err        string            `json:"error,omitempty"`
	Attempts   int               `json:"attempts"`
	CreatedAt  time.Time         `json:"createdAt"`
	UpdatedAt  time.Time         `json:"updatedAt"`
}

// Outbox records remote mutations from send to commit or failure.
//
// Committed mutations are dropped immediately; only pending and failed ones
// are listed. Failed mutations stay until Retry commits them or a later
// mutation of the same record supersedes them. Nothing is retried
// automatically.
type Outbox struct {
	mu        sync.Mutex
	seq       uint64
	items     map[uint64]*Mutation
	committed uint64
	now       func() time.Time
}

// NewOutbox creates an empty outbox.
func NewOutbox(now func() time.Time) *Outbox {
	if now == nil {
		now = time.Now
	}
	return &Outbox{items: make(map[uint64]*Mutation), now: now}
}

// Add registers a pending mutation and returns its sequence number. rev is
// the local revision of the record the mutation was made at.
func (o *Outbox) Add(col schema.Collection, op Op, id string, rev uint64, rec json.RawMessage) uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.supersede(id, op)

	o.seq++
	now := o.now()
	o.items[o.seq] = &Mutation{
		Seq:        o.seq,
		Collection: col,
		Op:         op,
		ID:         id,
		Rev:        rev,
		Record:     rec,
		State:      StatePending,
		Attempts:   1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return o.seq
}

// supersede drops failed mutations made redundant by a new op on the same
// record. Updates carry the full record, so a newer update or delete replaces
// an older failed update. A failed create is kept ahead of updates, since the
// row must exist before it can be patched. Callers hold o.mu.
func (o *Outbox) supersede(id string, op Op) {
	for seq, m := range o.items {
		if m.ID != id || m.State != StateFailed {
			continue
		}
		switch {
		case m.Op == OpUpdate && (op == OpUpdate || op == OpDelete):
			delete(o.items, seq)
		case m.Op == OpCreate && op == OpDelete:
			delete(o.items, seq)
		}
	}
}

// Commit marks a mutation committed and drops it.
func (o *Outbox) Commit(seq uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.items[seq]; ok {
		delete(o.items, seq)
		o.committed++
	}
}

// Fail marks a mutation failed with a readable reason.
func (o *Outbox) Fail(seq uint64, reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if m, ok := o.items[seq]; ok {
		m.State = StateFailed
		m.Err = reason
		m.UpdatedAt = o.now()
	}
}

// Requeue moves failed mutations back to pending and returns them in
// sequence order.
func (o *Outbox) Requeue() []Mutation {
	o.mu.Lock()
	defer o.mu.Unlock()

	var out []Mutation
	for _, m := range o.items {
		if m.State != StateFailed {
			continue
		}
		m.State = StatePending
		m.Err = ""
		m.Attempts++
		m.UpdatedAt = o.now()
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

// List returns pending and failed mutations in sequence order.
func (o *Outbox) List() []Mutation {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]Mutation, 0, len(o.items))
	for _, m := range o.items {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

// Counts returns the number of pending, failed, and committed mutations.
func (o *Outbox) Counts() (pending, failed int, committed uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, m := range o.items {
		switch m.State {
		case StatePending:
			pending++
		case StateFailed:
			failed++
		}
	}
	return pending, failed, o.committed
}

// HasFailed reports whether any mutation is waiting for Retry.
func (o *Outbox) HasFailed() bool {
	_, failed, _ := o.Counts()
	return failed > 0
}
