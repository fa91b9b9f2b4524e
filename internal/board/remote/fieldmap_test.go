package remote

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/focusboard/focusboard/internal/board/schema"
)

func TestFieldMapRoundTrip(t *testing.T) {
	stalled := time.Date(2026, 2, 9, 8, 30, 0, 0, time.UTC)
	created := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		col  schema.Collection
		rec  any
		out  any
	}{
		{
			name: "task",
			col:  schema.CollectionTasks,
			rec: &schema.Task{
				ID: "t1", Title: "DPC audit", Status: schema.StatusStalled, Priority: schema.PriorityHigh,
				ProjectID: "p1", DueDate: "2026-02-10", Assignee: "AC",
				StalledAt: &stalled, CreatedAt: &created, UpdatedAt: stalled,
			},
			out: &schema.Task{},
		},
		{
			name: "project",
			col:  schema.CollectionProjects,
			rec: &schema.Project{
				ID: "p1", Name: "DPC", Status: schema.ProjectPaused, Type: schema.ProjectBusiness,
				Color: "indigo", TaskCount: 12, CreatedAt: created,
			},
			out: &schema.Project{},
		},
		{
			name: "document",
			col:  schema.CollectionDocuments,
			rec: &schema.Document{
				ID: "d1", Title: "Deployment Process", Type: schema.DocSOP, ProjectID: "p2", UpdatedAt: created,
			},
			out: &schema.Document{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.rec)
			if err != nil {
				t.Fatalf("Marshal() failed: %v", err)
			}

			row, err := ToExternal(tt.col, data, false)
			if err != nil {
				t.Fatalf("ToExternal() failed: %v", err)
			}

			back, err := ToInternal(tt.col, row)
			if err != nil {
				t.Fatalf("ToInternal() failed: %v", err)
			}
			if err := json.Unmarshal(back, tt.out); err != nil {
				t.Fatalf("Unmarshal() failed: %v", err)
			}
			if diff := cmp.Diff(tt.rec, tt.out); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestToExternal_SnakeCase(t *testing.T) {
	rec := json.RawMessage(`{"id":"t1","title":"x","projectId":"p1","dueDate":"2026-02-10","stalledAt":"2026-02-09T08:30:00Z","bogus":1}`)

	row, err := ToExternal(schema.CollectionTasks, rec, false)
	if err != nil {
		t.Fatalf("ToExternal() failed: %v", err)
	}

	for _, key := range []string{"project_id", "due_date", "stalled_at"} {
		if _, ok := row[key]; !ok {
			t.Errorf("row missing %q: %v", key, row)
		}
	}
	for _, key := range []string{"projectId", "bogus"} {
		if _, ok := row[key]; ok {
			t.Errorf("row should not contain %q: %v", key, row)
		}
	}
}

func TestToExternal_FullSendsNulls(t *testing.T) {
	rec := json.RawMessage(`{"id":"t1","title":"x","status":"Done","projectId":""}`)

	row, err := ToExternal(schema.CollectionTasks, rec, true)
	if err != nil {
		t.Fatalf("ToExternal() failed: %v", err)
	}
	for _, key := range []string{"stalled_at", "project_id", "due_date"} {
		v, ok := row[key]
		if !ok || v != nil {
			t.Errorf("row[%q] = %v (present %v), want explicit null", key, v, ok)
		}
	}
	if _, ok := row["assignee"]; ok {
		t.Error("non-nullable missing fields should stay absent")
	}
}

func TestToInternal_Timestamps(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want time.Time
	}{
		{"rfc3339", "2026-02-09T08:30:00Z", time.Date(2026, 2, 9, 8, 30, 0, 0, time.UTC)},
		{"postgres offset", "2026-02-09T08:30:00.5+00:00", time.Date(2026, 2, 9, 8, 30, 0, 5e8, time.UTC)},
		{"short offset", "2026-02-09 10:30:00+02", time.Date(2026, 2, 9, 8, 30, 0, 0, time.UTC)},
		{"date only", "2026-02-09", time.Date(2026, 2, 9, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := ToInternal(schema.CollectionDocuments, map[string]any{"id": "d1", "title": "x", "type": "SOP", "updated_at": tt.in})
			if err != nil {
				t.Fatalf("ToInternal() failed: %v", err)
			}
			var doc schema.Document
			if err := json.Unmarshal(rec, &doc); err != nil {
				t.Fatalf("Unmarshal() failed: %v", err)
			}
			if !doc.UpdatedAt.Equal(tt.want) {
				t.Errorf("UpdatedAt = %v, want %v", doc.UpdatedAt, tt.want)
			}
		})
	}
}

func TestToInternal_NullsDropped(t *testing.T) {
	rec, err := ToInternal(schema.CollectionTasks, map[string]any{"id": "t1", "title": "x", "project_id": nil, "stalled_at": nil})
	if err != nil {
		t.Fatalf("ToInternal() failed: %v", err)
	}
	var task schema.Task
	if err := json.Unmarshal(rec, &task); err != nil {
		t.Fatalf("Unmarshal() failed: %v", err)
	}
	if task.ProjectID != "" || task.StalledAt != nil {
		t.Errorf("nulls should decode to zero values, got %+v", task)
	}
}

func TestFields_UnknownCollection(t *testing.T) {
	if _, err := Fields("widgets"); err == nil {
		t.Error("Fields() should reject an unknown collection")
	}
}
