package schema

import (
	"fmt"
	"time"
)

// StalledLongAfter is how long a task may sit in Stalled before it is flagged.
const StalledLongAfter = 24 * time.Hour

// maxTitleLen bounds titles and names.
const maxTitleLen = 500

// DateLayout is the calendar-date format used for due dates.
const DateLayout = "2006-01-02"

// Task is a unit of work shown on the board.
type Task struct {
	ID          string     `json:"id" yaml:"id"`
	Title       string     `json:"title" yaml:"title"`
	Description string     `json:"description" yaml:"description"`
	Status      TaskStatus `json:"status" yaml:"status"`
	Priority    Priority   `json:"priority" yaml:"priority"`
	ProjectID   string     `json:"projectId" yaml:"projectId"`
	DueDate     string     `json:"dueDate" yaml:"dueDate"`
	Assignee    string     `json:"assignee" yaml:"assignee"`
	StalledAt   *time.Time `json:"stalledAt,omitempty" yaml:"stalledAt,omitempty"`
	CreatedAt   *time.Time `json:"createdAt,omitempty" yaml:"createdAt,omitempty"`
	UpdatedAt   time.Time  `json:"updatedAt" yaml:"updatedAt"`
}

// GetID returns the task identifier.
func (t *Task) GetID() string { return t.ID }

// SetID replaces the task identifier.
func (t *Task) SetID(id string) { t.ID = id }

// Clone returns a deep copy.
func (t *Task) Clone() *Task {
	c := *t
	c.StalledAt = cloneTime(t.StalledAt)
	c.CreatedAt = cloneTime(t.CreatedAt)
	return &c
}

// SetDefaults fills fields a new task may omit.
func (t *Task) SetDefaults() {
	if t.Status == "" {
		t.Status = StatusTodo
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
}

// Touch stamps a mutation at now.
func (t *Task) Touch(now time.Time) {
	if t.CreatedAt == nil {
		c := now
		t.CreatedAt = &c
	}
	t.UpdatedAt = now
}

// Validate checks the task's field values.
func (t *Task) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("id is required")
	}
	if t.Title == "" {
		return fmt.Errorf("title is required")
	}
	if len(t.Title) > maxTitleLen {
		return fmt.Errorf("title must be %d characters or less (got %d)", maxTitleLen, len(t.Title))
	}
	if !t.Status.Valid() {
		return fmt.Errorf("invalid status %q", t.Status)
	}
	if !t.Priority.Valid() {
		return fmt.Errorf("invalid priority %q", t.Priority)
	}
	if t.DueDate != "" {
		if _, err := time.Parse(DateLayout, t.DueDate); err != nil {
			return fmt.Errorf("due date must be YYYY-MM-DD (got %q)", t.DueDate)
		}
	}
	return nil
}

// StampStalled records now as StalledAt when the task has just entered
// Stalled from prev. Every edit path that can change a status calls it, so
// the board's "stalled since" reading does not depend on how the change was
// made. Leaving Stalled keeps the old timestamp; MoveTask clears it.
func (t *Task) StampStalled(prev TaskStatus, now time.Time) {
	if t.Status == StatusStalled && prev != StatusStalled {
		at := now
		t.StalledAt = &at
	}
}

// IsStalledLong reports whether the task has been Stalled for more than
// StalledLongAfter as of now.
func (t *Task) IsStalledLong(now time.Time) bool {
	if t.Status != StatusStalled || t.StalledAt == nil {
		return false
	}
	return now.Sub(*t.StalledAt) > StalledLongAfter
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
