package schema

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestTask_Validate(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		task    Task
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid task",
			task:    Task{ID: "t1", Title: "Write release notes", Status: StatusTodo, Priority: PriorityHigh, UpdatedAt: now},
			wantErr: false,
		},
		{
			name:    "missing id",
			task:    Task{Title: "Write release notes", Status: StatusTodo, Priority: PriorityHigh},
			wantErr: true,
			errMsg:  "id is required",
		},
		{
			name:    "missing title",
			task:    Task{ID: "t1", Status: StatusTodo, Priority: PriorityHigh},
			wantErr: true,
			errMsg:  "title is required",
		},
		{
			name:    "title too long",
			task:    Task{ID: "t1", Title: strings.Repeat("x", 501), Status: StatusTodo, Priority: PriorityHigh},
			wantErr: true,
			errMsg:  "title must be 500 characters or less",
		},
		{
			name:    "unknown status",
			task:    Task{ID: "t1", Title: "x", Status: "Blocked", Priority: PriorityHigh},
			wantErr: true,
			errMsg:  "invalid status",
		},
		{
			name:    "numeric priority is not canonical",
			task:    Task{ID: "t1", Title: "x", Status: StatusTodo, Priority: "2"},
			wantErr: true,
			errMsg:  "invalid priority",
		},
		{
			name:    "bad due date",
			task:    Task{ID: "t1", Title: "x", Status: StatusTodo, Priority: PriorityLow, DueDate: "next week"},
			wantErr: true,
			errMsg:  "due date must be YYYY-MM-DD",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.task.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("Validate() error = %q, want it to contain %q", err, tt.errMsg)
			}
		})
	}
}

func TestTask_SetDefaults(t *testing.T) {
	task := &Task{ID: "t1", Title: "x"}
	task.SetDefaults()

	if task.Status != StatusTodo {
		t.Errorf("Status = %q, want %q", task.Status, StatusTodo)
	}
	if task.Priority != PriorityMedium {
		t.Errorf("Priority = %q, want %q", task.Priority, PriorityMedium)
	}
}

func TestTask_CloneIsDeep(t *testing.T) {
	stalled := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	orig := &Task{ID: "t1", Title: "x", StalledAt: &stalled}

	c := orig.Clone()
	*c.StalledAt = c.StalledAt.Add(time.Hour)

	if !orig.StalledAt.Equal(stalled) {
		t.Errorf("mutating the clone changed the original StalledAt to %v", orig.StalledAt)
	}
}

func TestTask_IsStalledLong(t *testing.T) {
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	at := func(d time.Duration) *time.Time { ts := now.Add(-d); return &ts }

	tests := []struct {
		name string
		task Task
		want bool
	}{
		{"stalled 25h", Task{Status: StatusStalled, StalledAt: at(25 * time.Hour)}, true},
		{"stalled 2h", Task{Status: StatusStalled, StalledAt: at(2 * time.Hour)}, false},
		{"stalled without timestamp", Task{Status: StatusStalled}, false},
		{"done with old timestamp", Task{Status: StatusDone, StalledAt: at(48 * time.Hour)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.task.IsStalledLong(now); got != tt.want {
				t.Errorf("IsStalledLong() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTask_StampStalled(t *testing.T) {
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	old := now.Add(-72 * time.Hour)

	tests := []struct {
		name   string
		prev   TaskStatus
		task   Task
		wantAt *time.Time
	}{
		{"todo to stalled", StatusTodo, Task{Status: StatusStalled}, &now},
		{"re-entering stalled replaces old stamp", StatusDone, Task{Status: StatusStalled, StalledAt: &old}, &now},
		{"already stalled keeps stamp", StatusStalled, Task{Status: StatusStalled, StalledAt: &old}, &old},
		{"leaving stalled keeps stamp", StatusStalled, Task{Status: StatusDone, StalledAt: &old}, &old},
		{"other transition untouched", StatusTodo, Task{Status: StatusDone}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := tt.task
			task.StampStalled(tt.prev, now)
			switch {
			case tt.wantAt == nil && task.StalledAt != nil:
				t.Errorf("StalledAt = %v, want unset", *task.StalledAt)
			case tt.wantAt != nil && (task.StalledAt == nil || !task.StalledAt.Equal(*tt.wantAt)):
				t.Errorf("StalledAt = %v, want %v", task.StalledAt, *tt.wantAt)
			}
		})
	}
}

func TestTask_JSONUsesCamelCase(t *testing.T) {
	stalled := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	task := &Task{ID: "t1", Title: "x", ProjectID: "p1", DueDate: "2026-02-10", StalledAt: &stalled}

	data, err := json.Marshal(task)
	if err != nil {
		t.Fatalf("Marshal() failed: %v", err)
	}

	for _, key := range []string{`"projectId"`, `"dueDate"`, `"stalledAt"`, `"updatedAt"`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("JSON %s missing key %s", data, key)
		}
	}
	if strings.Contains(string(data), "_") {
		t.Errorf("JSON %s contains a snake_case key", data)
	}
}

func TestParseEnums(t *testing.T) {
	if s, err := ParseTaskStatus("in_progress"); err != nil || s != StatusInProgress {
		t.Errorf("ParseTaskStatus(in_progress) = %q, %v", s, err)
	}
	if s, err := ParseTaskStatus("stalled"); err != nil || s != StatusStalled {
		t.Errorf("ParseTaskStatus(stalled) = %q, %v", s, err)
	}
	if _, err := ParseTaskStatus("blocked"); err == nil {
		t.Error("ParseTaskStatus(blocked) should fail")
	}
	if p, err := ParsePriority("critical"); err != nil || p != PriorityCritical {
		t.Errorf("ParsePriority(critical) = %q, %v", p, err)
	}
	if pt, err := ParseProjectType("Agency"); err != nil || pt != ProjectBusiness {
		t.Errorf("ParseProjectType(Agency) = %q, %v", pt, err)
	}
	if c, err := ParseCollection("docs"); err != nil || c != CollectionDocuments {
		t.Errorf("ParseCollection(docs) = %q, %v", c, err)
	}
}

func TestPriority_Rank(t *testing.T) {
	if !(PriorityCritical.Rank() < PriorityHigh.Rank() && PriorityHigh.Rank() < PriorityMedium.Rank() && PriorityMedium.Rank() < PriorityLow.Rank()) {
		t.Error("priority ranks are not ordered Critical < High < Medium < Low")
	}
	if Priority("Urgent").Rank() != -1 {
		t.Error("unknown priority should rank -1")
	}
}

func TestDefaultSeed(t *testing.T) {
	now := time.Now()
	seed := DefaultSeed(now)

	p, tk, d := seed.Counts()
	if p != 7 || tk != 6 || d != 5 {
		t.Fatalf("seed counts = %d/%d/%d, want 7/6/5", p, tk, d)
	}

	for _, proj := range seed.Projects {
		if err := proj.Validate(); err != nil {
			t.Errorf("seed project %s invalid: %v", proj.ID, err)
		}
	}
	for _, task := range seed.Tasks {
		if err := task.Validate(); err != nil {
			t.Errorf("seed task %s invalid: %v", task.ID, err)
		}
	}
	for _, doc := range seed.Documents {
		if err := doc.Validate(); err != nil {
			t.Errorf("seed doc %s invalid: %v", doc.ID, err)
		}
	}

	if !seed.Tasks[0].IsStalledLong(now) {
		t.Error("seed task t1 should start out stalled for more than a day")
	}
}
