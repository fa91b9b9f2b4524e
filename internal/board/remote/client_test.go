package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/focusboard/focusboard/internal/board/schema"
)

// fakeRest is a minimal PostgREST stand-in holding rows per table.
type fakeRest struct {
	mu       sync.Mutex
	rows     map[string][]map[string]any
	requests []*http.Request
	bodies   []map[string]any
	status   int
}

func newFakeRest() *fakeRest {
	return &fakeRest{rows: map[string][]map[string]any{}}
}

func (f *fakeRest) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, r)
	var body map[string]any
	if data, _ := io.ReadAll(r.Body); len(data) > 0 {
		_ = json.Unmarshal(data, &body)
	}
	f.bodies = append(f.bodies, body)

	if f.status != 0 {
		http.Error(w, `{"message":"boom"}`, f.status)
		return
	}

	table := strings.TrimPrefix(r.URL.Path, "/rest/v1/")
	id := strings.TrimPrefix(r.URL.Query().Get("id"), "eq.")

	var out []map[string]any
	switch r.Method {
	case http.MethodGet:
		out = f.rows[table]
	case http.MethodPost:
		body["created_at"] = "2026-02-10T12:00:00+00:00"
		f.rows[table] = append(f.rows[table], body)
		out = []map[string]any{body}
	case http.MethodPatch:
		for _, row := range f.rows[table] {
			if row["id"] == id {
				for k, v := range body {
					row[k] = v
				}
				out = append(out, row)
			}
		}
	case http.MethodDelete:
		kept := f.rows[table][:0]
		for _, row := range f.rows[table] {
			if row["id"] != id {
				kept = append(kept, row)
			}
		}
		f.rows[table] = kept
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if out == nil {
		out = []map[string]any{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

func (f *fakeRest) request(i int) *http.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[i]
}

func (f *fakeRest) body(i int) map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bodies[i]
}

func (f *fakeRest) count(table string) (requests, rows int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests), len(f.rows[table])
}

func newTestClient(t *testing.T, f *fakeRest) *Client {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return New(srv.URL, "test-key")
}

func TestClient_Configured(t *testing.T) {
	tests := []struct {
		name string
		url  string
		key  string
		want bool
	}{
		{"both set", "https://abc.supabase.co", "k", true},
		{"missing url", "", "k", false},
		{"missing key", "https://abc.supabase.co", "", false},
		{"placeholder url", PlaceholderURL, "k", false},
		{"placeholder key", "https://abc.supabase.co", PlaceholderKey, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := New(tt.url, tt.key).Configured(); got != tt.want {
				t.Errorf("Configured() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClient_NotConfigured(t *testing.T) {
	c := New("", "")
	if _, err := c.List(context.Background(), schema.CollectionTasks); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("List() error = %v, want ErrNotConfigured", err)
	}
}

func TestClient_ListOrderAndHeaders(t *testing.T) {
	f := newFakeRest()
	f.rows["documents"] = []map[string]any{
		{"id": "d1", "title": "Deployment Process", "type": "SOP", "project_id": "p2", "updated_at": "2026-02-05T00:00:00+00:00"},
	}
	c := newTestClient(t, f)

	recs, err := c.List(context.Background(), schema.CollectionDocuments)
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("List() returned %d records, want 1", len(recs))
	}

	var doc schema.Document
	if err := json.Unmarshal(recs[0], &doc); err != nil {
		t.Fatalf("Unmarshal() failed: %v", err)
	}
	if doc.ProjectID != "p2" {
		t.Errorf("ProjectID = %q, want p2", doc.ProjectID)
	}

	req := f.request(0)
	if got := req.URL.Query().Get("order"); got != "updated_at.desc" {
		t.Errorf("order = %q, want updated_at.desc", got)
	}
	if got := req.Header.Get("apikey"); got != "test-key" {
		t.Errorf("apikey header = %q", got)
	}
	if got := req.Header.Get("Authorization"); got != "Bearer test-key" {
		t.Errorf("Authorization header = %q", got)
	}
}

func TestClient_InsertUpdateDelete(t *testing.T) {
	f := newFakeRest()
	c := newTestClient(t, f)
	ctx := context.Background()

	rec, _ := json.Marshal(&schema.Task{ID: "t9", Title: "New", Status: schema.StatusTodo, Priority: schema.PriorityLow, ProjectID: "p1"})
	got, err := c.Insert(ctx, schema.CollectionTasks, rec)
	if err != nil {
		t.Fatalf("Insert() failed: %v", err)
	}

	var task schema.Task
	if err := json.Unmarshal(got, &task); err != nil {
		t.Fatalf("Unmarshal() failed: %v", err)
	}
	if task.CreatedAt == nil {
		t.Error("Insert() should return the canonical row with created_at")
	}
	if f.request(0).Header.Get("Prefer") != "return=representation" {
		t.Error("Insert() should ask for the stored representation")
	}
	if _, ok := f.body(0)["project_id"]; !ok {
		t.Errorf("insert body not snake_case: %v", f.body(0))
	}

	task.Status = schema.StatusDone
	task.ProjectID = ""
	rec, _ = json.Marshal(&task)
	if _, err := c.Update(ctx, schema.CollectionTasks, "t9", rec); err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	if v, ok := f.body(1)["project_id"]; !ok || v != nil {
		t.Errorf("update should clear project_id with null, body = %v", f.body(1))
	}
	if got := f.request(1).URL.Query().Get("id"); got != "eq.t9" {
		t.Errorf("update filter = %q, want eq.t9", got)
	}

	if err := c.Delete(ctx, schema.CollectionTasks, "t9"); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if _, rows := f.count("tasks"); rows != 0 {
		t.Errorf("Delete() left %d rows", rows)
	}
}

func TestClient_UpdateMissing(t *testing.T) {
	c := newTestClient(t, newFakeRest())

	rec, _ := json.Marshal(&schema.Task{ID: "nope", Title: "x"})
	_, err := c.Update(context.Background(), schema.CollectionTasks, "nope", rec)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Update() error = %v, want ErrNotFound", err)
	}
}

func TestClient_RequestError(t *testing.T) {
	f := newFakeRest()
	f.status = http.StatusInternalServerError
	c := newTestClient(t, f)

	_, err := c.List(context.Background(), schema.CollectionProjects)
	var re *RequestError
	if !errors.As(err, &re) {
		t.Fatalf("List() error = %v, want *RequestError", err)
	}
	if re.StatusCode != http.StatusInternalServerError || !re.Temporary() {
		t.Errorf("RequestError = %+v", re)
	}
}

func TestClient_BreakerOpens(t *testing.T) {
	f := newFakeRest()
	f.status = http.StatusServiceUnavailable
	srv := httptest.NewServer(f)
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.URL = srv.URL
	cfg.Key = "k"
	cfg.BreakerFailures = 2
	c := NewWithConfig(cfg)

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, _ = c.List(ctx, schema.CollectionTasks)
	}

	before, _ := f.count("tasks")
	_, err := c.List(ctx, schema.CollectionTasks)
	if err == nil || !strings.Contains(err.Error(), "circuit breaker is open") {
		t.Errorf("List() error = %v, want open breaker", err)
	}
	if after, _ := f.count("tasks"); after != before {
		t.Error("open breaker should not reach the server")
	}
}

func TestClient_ClientErrorsDoNotTrip(t *testing.T) {
	f := newFakeRest()
	f.status = http.StatusBadRequest
	srv := httptest.NewServer(f)
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.URL = srv.URL
	cfg.Key = "k"
	cfg.BreakerFailures = 1
	c := NewWithConfig(cfg)

	for i := 0; i < 3; i++ {
		_, err := c.List(context.Background(), schema.CollectionTasks)
		var re *RequestError
		if !errors.As(err, &re) {
			t.Fatalf("call %d: error = %v, want *RequestError", i, err)
		}
	}
}
