package assist

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/focusboard/focusboard/internal/board/schema"
	"github.com/focusboard/focusboard/internal/board/store"
)

var testNow = time.Date(2026, 2, 12, 9, 0, 0, 0, time.UTC)

type fakeCompleter struct {
	reply  string
	err    error
	prompt string
}

func (f *fakeCompleter) Complete(ctx context.Context, system, prompt string) (string, error) {
	f.prompt = prompt
	return f.reply, f.err
}

func newWorkspace(t *testing.T) *store.Workspace {
	t.Helper()
	ws := store.NewWorkspace(store.Config{Now: func() time.Time { return testNow }})
	ws.Load(context.Background())
	return ws
}

func TestNotes_Analyze(t *testing.T) {
	ws := newWorkspace(t)
	fc := &fakeCompleter{reply: "- Deadline is close.\n- Effort: 2 hours."}
	n := NewNotes(fc, ws.Tasks, ws.Projects, nil)

	got, err := n.Analyze(context.Background(), "t2", Options{Escalate: true, Now: testNow})
	if err != nil {
		t.Fatalf("Analyze() failed: %v", err)
	}

	want := "Push main branch to production\n\nAI Generated Analysis:\n- Deadline is close.\n- Effort: 2 hours."
	if got.Description != want {
		t.Errorf("Description = %q, want %q", got.Description, want)
	}
	if got.Priority != schema.PriorityCritical {
		t.Errorf("Priority = %q, want Critical", got.Priority)
	}
	stored, _ := ws.Tasks.Get("t2")
	if stored.Description != want {
		t.Errorf("store not updated: %q", stored.Description)
	}

	for _, part := range []string{"Task: Vercel live", "Project: DPC", "today is 2026-02-12"} {
		if !strings.Contains(fc.prompt, part) {
			t.Errorf("prompt missing %q:\n%s", part, fc.prompt)
		}
	}
}

func TestNotes_Errors(t *testing.T) {
	ws := newWorkspace(t)

	if _, err := NewNotes(nil, ws.Tasks, nil, nil).Analyze(context.Background(), "t1", Options{}); !errors.Is(err, ErrDisabled) {
		t.Errorf("nil completer err = %v, want ErrDisabled", err)
	}

	fc := &fakeCompleter{err: errors.New("overloaded")}
	n := NewNotes(fc, ws.Tasks, nil, nil)
	if _, err := n.Analyze(context.Background(), "missing", Options{}); err == nil {
		t.Error("Analyze(missing) should fail")
	}
	before, _ := ws.Tasks.Get("t1")
	if _, err := n.Analyze(context.Background(), "t1", Options{}); err == nil {
		t.Error("completer error should be returned")
	}
	after, _ := ws.Tasks.Get("t1")
	if after.Description != before.Description {
		t.Error("task changed despite completer error")
	}
}

func TestAppendNotes(t *testing.T) {
	tests := []struct {
		desc, notes, want string
	}{
		{"", "- a", "AI Generated Analysis:\n- a"},
		{"Existing\n", "  - a\n", "Existing\n\nAI Generated Analysis:\n- a"},
	}
	for _, tt := range tests {
		if got := AppendNotes(tt.desc, tt.notes); got != tt.want {
			t.Errorf("AppendNotes(%q, %q) = %q, want %q", tt.desc, tt.notes, got, tt.want)
		}
	}
}

func TestEscalate(t *testing.T) {
	tests := map[schema.Priority]schema.Priority{
		schema.PriorityLow:      schema.PriorityMedium,
		schema.PriorityMedium:   schema.PriorityHigh,
		schema.PriorityHigh:     schema.PriorityCritical,
		schema.PriorityCritical: schema.PriorityCritical,
	}
	for in, want := range tests {
		if got := Escalate(in); got != want {
			t.Errorf("Escalate(%s) = %s, want %s", in, got, want)
		}
	}
}

func TestNewAnthropic_RequiresKey(t *testing.T) {
	if _, err := NewAnthropic(Config{APIKey: "  "}); !errors.Is(err, ErrDisabled) {
		t.Errorf("err = %v, want ErrDisabled", err)
	}
}

func TestAnthropic_Complete(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/v1/messages") {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("X-Api-Key") != "test-key" {
			http.Error(w, `{"type":"error","error":{"type":"authentication_error","message":"bad key"}}`, http.StatusUnauthorized)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1", "type": "message", "role": "assistant", "model": "test-model",
			"content": [{"type": "text", "text": "- Looks fine."}],
			"stop_reason": "end_turn", "stop_sequence": null,
			"usage": {"input_tokens": 10, "output_tokens": 4}
		}`))
	}))
	defer srv.Close()

	a, err := NewAnthropic(Config{APIKey: "test-key", Model: "test-model", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewAnthropic() failed: %v", err)
	}
	text, err := a.Complete(context.Background(), "system", "prompt")
	if err != nil {
		t.Fatalf("Complete() failed: %v", err)
	}
	if text != "- Looks fine." {
		t.Errorf("text = %q", text)
	}
	if gotBody["model"] != "test-model" {
		t.Errorf("request model = %v", gotBody["model"])
	}
}
