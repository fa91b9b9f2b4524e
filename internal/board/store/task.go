package store

import (
	"context"
	"fmt"
	"time"

	"github.com/focusboard/focusboard/internal/board/schema"
)

// TaskStore is the task collection store with board moves.
type TaskStore struct {
	*Store[*schema.Task]
}

// NewTaskStore creates the task store.
func NewTaskStore(cfg Config) *TaskStore {
	return &TaskStore{newStore(schema.CollectionTasks, cfg,
		func(s *schema.Snapshot) []*schema.Task { return s.Tasks },
		schema.SeedTasks)}
}

// MoveTask changes a task's status. StalledAt is set to the current time
// when moving into Stalled and cleared for every other status.
//
// Plain Update never touches StalledAt, so a task edited out of Stalled
// through Update keeps its old timestamp.
func (s *TaskStore) MoveTask(ctx context.Context, id string, status schema.TaskStatus) (*schema.Task, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("invalid status %q", status)
	}
	return s.mutate(ctx, "move", id, func(t *schema.Task, now time.Time) {
		t.Status = status
		if status == schema.StatusStalled {
			at := now
			t.StalledAt = &at
		} else {
			t.StalledAt = nil
		}
	})
}
