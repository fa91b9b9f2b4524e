package store

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/focusboard/focusboard/internal/board/schema"
)

func newTestOutbox() *Outbox {
	now := time.Date(2026, 2, 12, 9, 0, 0, 0, time.UTC)
	return NewOutbox(func() time.Time { return now })
}

type opState struct {
	Op    Op
	State MutationState
	Rev   uint64
}

func listOps(o *Outbox) []opState {
	var out []opState
	for _, m := range o.List() {
		out = append(out, opState{m.Op, m.State, m.Rev})
	}
	return out
}

func TestOutbox_Supersede(t *testing.T) {
	tests := []struct {
		name     string
		first    Op
		failed   bool
		next     Op
		expected []opState
	}{
		{
			name: "failed update replaced by newer update", first: OpUpdate, failed: true, next: OpUpdate,
			expected: []opState{{OpUpdate, StatePending, 2}},
		},
		{
			name: "failed update replaced by delete", first: OpUpdate, failed: true, next: OpDelete,
			expected: []opState{{OpDelete, StatePending, 2}},
		},
		{
			name: "failed create kept ahead of update", first: OpCreate, failed: true, next: OpUpdate,
			expected: []opState{{OpCreate, StateFailed, 1}, {OpUpdate, StatePending, 2}},
		},
		{
			name: "failed create dropped by delete", first: OpCreate, failed: true, next: OpDelete,
			expected: []opState{{OpDelete, StatePending, 2}},
		},
		{
			name: "pending update is not superseded", first: OpUpdate, failed: false, next: OpUpdate,
			expected: []opState{{OpUpdate, StatePending, 1}, {OpUpdate, StatePending, 2}},
		},
		{
			name: "failed delete kept before recreate", first: OpDelete, failed: true, next: OpCreate,
			expected: []opState{{OpDelete, StateFailed, 1}, {OpCreate, StatePending, 2}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newTestOutbox()
			seq := o.Add(schema.CollectionTasks, tt.first, "t1", 1, nil)
			if tt.failed {
				o.Fail(seq, "connection refused")
			}
			o.Add(schema.CollectionTasks, tt.next, "t1", 2, nil)

			if diff := cmp.Diff(tt.expected, listOps(o)); diff != "" {
				t.Errorf("outbox mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestOutbox_SupersedeOnlySameRecord(t *testing.T) {
	o := newTestOutbox()
	o.Fail(o.Add(schema.CollectionTasks, OpUpdate, "t1", 1, nil), "down")
	o.Add(schema.CollectionTasks, OpUpdate, "t2", 1, nil)

	if _, failed, _ := o.Counts(); failed != 1 {
		t.Errorf("failed = %d, want the t1 update kept", failed)
	}
}

func TestOutbox_CommitFailRequeue(t *testing.T) {
	o := newTestOutbox()
	s1 := o.Add(schema.CollectionTasks, OpCreate, "t1", 1, []byte(`{"id":"t1"}`))
	s2 := o.Add(schema.CollectionTasks, OpUpdate, "t2", 4, nil)
	s3 := o.Add(schema.CollectionTasks, OpDelete, "t3", 2, nil)

	o.Fail(s3, "timeout")
	o.Commit(s2)
	o.Fail(s1, "connection refused")

	pending, failed, committed := o.Counts()
	if pending != 0 || failed != 2 || committed != 1 {
		t.Fatalf("Counts() = %d/%d/%d, want 0/2/1", pending, failed, committed)
	}
	if !o.HasFailed() {
		t.Error("HasFailed() = false with two failed mutations")
	}
	muts := o.List()
	if len(muts) != 2 || muts[0].Err != "connection refused" || muts[1].Err != "timeout" {
		t.Fatalf("List() = %+v", muts)
	}

	batch := o.Requeue()
	if len(batch) != 2 || batch[0].Seq != s1 || batch[1].Seq != s3 {
		t.Fatalf("Requeue() order = %+v, want seq %d then %d", batch, s1, s3)
	}
	for _, m := range batch {
		if m.State != StatePending || m.Err != "" || m.Attempts != 2 {
			t.Errorf("requeued mutation = %+v", m)
		}
	}
	if batch[0].Rev != 1 || batch[1].Rev != 2 {
		t.Errorf("requeued revisions = %d, %d, want 1, 2", batch[0].Rev, batch[1].Rev)
	}
	if string(batch[0].Record) != `{"id":"t1"}` {
		t.Errorf("requeued record = %s", batch[0].Record)
	}

	if pending, failed, _ := o.Counts(); pending != 2 || failed != 0 {
		t.Errorf("after Requeue: pending=%d failed=%d", pending, failed)
	}
	if o.Requeue() != nil {
		t.Error("second Requeue() should find nothing failed")
	}

	// Committing an unknown or already committed seq is a no-op.
	o.Commit(s2)
	o.Commit(99)
	if _, _, committed := o.Counts(); committed != 1 {
		t.Errorf("committed = %d, want 1", committed)
	}
}
