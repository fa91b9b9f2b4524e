package ui

import (
	"strings"
	"testing"
	"time"

	"github.com/focusboard/focusboard/internal/board/schema"
	"github.com/focusboard/focusboard/internal/board/store"
	"github.com/focusboard/focusboard/internal/board/view"
)

var testNow = time.Date(2026, 2, 12, 9, 0, 0, 0, time.UTC)

func TestBoard(t *testing.T) {
	tasks := schema.SeedTasks(testNow)
	out := Board(view.Board(tasks), testNow, 120)

	for _, st := range schema.TaskStatuses() {
		if !strings.Contains(out, string(st)) {
			t.Errorf("board missing column %q:\n%s", st, out)
		}
	}
	if !strings.Contains(out, "t1") {
		t.Errorf("board missing task id t1:\n%s", out)
	}
	if Board(nil, testNow, 120) != "" {
		t.Error("Board(nil) should render nothing")
	}
}

func TestTaskList_MarksLongStalled(t *testing.T) {
	stalled := testNow.Add(-30 * time.Hour)
	tasks := []*schema.Task{
		{ID: "a", Title: "Ship it", Status: schema.StatusStalled, Priority: schema.PriorityHigh, ProjectID: "p1", StalledAt: &stalled},
		{ID: "b", Title: "Write docs", Status: schema.StatusTodo, Priority: schema.PriorityLow, DueDate: "2026-02-20"},
	}
	out := TaskList(view.List(tasks), map[string]string{"p1": "DPC"}, testNow)

	for _, want := range []string{"! a", "Ship it", "DPC", "due 2026-02-20", "• b"} {
		if !strings.Contains(out, want) {
			t.Errorf("list missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, string(schema.StatusDone)) {
		t.Errorf("empty groups should be omitted:\n%s", out)
	}
}

func TestSyncStatus(t *testing.T) {
	statuses := []store.Status{
		{Collection: schema.CollectionTasks, Count: 3, Loaded: true, Online: false, Error: "remote unavailable", Failed: 1},
	}

	local := SyncStatus(statuses, false)
	if !strings.Contains(local, "local-only") || !strings.Contains(local, "local ") {
		t.Errorf("local status:\n%s", local)
	}

	remote := SyncStatus(statuses, true)
	for _, want := range []string{"offline", "failed 1", "remote unavailable"} {
		if !strings.Contains(remote, want) {
			t.Errorf("remote status missing %q:\n%s", want, remote)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"exactly", 7, "exactly"},
		{"longer title", 6, "longe…"},
		{"x", 0, "x"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}
