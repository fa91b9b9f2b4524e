package dashboard

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/focusboard/focusboard/internal/board/schema"
	"github.com/focusboard/focusboard/internal/board/store"
	"github.com/focusboard/focusboard/internal/board/view"
)

const maxBody = 1 << 20

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(cors)

	r.Get("/health", s.handleHealth)
	r.Get("/ws", s.handleWebSocket)

	if s.workspace == nil {
		return r
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(requestLogger(s.logger))

		r.Route("/projects", func(r chi.Router) {
			mountCollection(r, s.workspace.Projects, nil)
		})
		r.Route("/tasks", func(r chi.Router) {
			mountCollection(r, s.workspace.Tasks.Store, s.stampTask)
			r.Post("/{id}/move", s.moveTask)
		})
		r.Route("/documents", func(r chi.Router) {
			mountCollection(r, s.workspace.Documents, nil)
		})

		r.Get("/board", s.getBoard)
		r.Get("/projects-table", s.getProjectTable)
		r.Get("/docs-grid", s.getDocGrid)
		r.Get("/stats", s.getStats)
		r.Get("/orphans", s.getOrphans)
		r.Get("/widgets", s.getWidgets)
		r.Get("/sync", s.getSync)
		r.Post("/sync/retry", s.retrySync)
	})
	return r
}

// mountCollection registers list, get, create, update, and delete routes
// for one store. patched, when set, runs after a PATCH body is merged with
// the record as it was before the merge.
func mountCollection[T store.Record[T]](r chi.Router, st *store.Store[T], patched func(prev, next T)) {
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, st.Items())
	})

	r.Get("/{id}", func(w http.ResponseWriter, r *http.Request) {
		rec, ok := st.Get(chi.URLParam(r, "id"))
		if !ok {
			writeError(w, http.StatusNotFound, st.Collection().Singular()+" not found")
			return
		}
		writeJSON(w, http.StatusOK, rec)
	})

	r.Post("/", func(w http.ResponseWriter, r *http.Request) {
		body, err := readBody(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		var rec T
		if err := json.Unmarshal(body, &rec); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
		created, err := st.Create(r.Context(), rec)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	})

	r.Patch("/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		body, err := readBody(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		current, ok := st.Get(id)
		if !ok {
			writeError(w, http.StatusNotFound, st.Collection().Singular()+" not found")
			return
		}
		// Decode once up front so a malformed body is rejected before the
		// store sees it. The patch then merges the same fields.
		if err := json.Unmarshal(body, current); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
		updated, err := st.Update(r.Context(), id, func(rec T) {
			prev := rec.Clone()
			_ = json.Unmarshal(body, rec)
			if patched != nil {
				patched(prev, rec)
			}
		})
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	})

	r.Delete("/{id}", func(w http.ResponseWriter, r *http.Request) {
		if err := st.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeStoreError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

// stampTask gives PATCH the same StalledAt handling as "fb task edit".
func (s *Server) stampTask(prev, next *schema.Task) {
	next.StampStalled(prev.Status, s.now())
}

type moveRequest struct {
	Status schema.TaskStatus `json:"status"`
}

func (s *Server) moveTask(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req moveRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	status, err := schema.ParseTaskStatus(string(req.Status))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	t, err := s.workspace.Tasks.MoveTask(r.Context(), chi.URLParam(r, "id"), status)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) getBoard(w http.ResponseWriter, r *http.Request) {
	tasks := s.workspace.Tasks.Items()
	if r.URL.Query().Get("layout") == "list" {
		groups := view.List(tasks)
		if groups == nil {
			groups = []view.Column{}
		}
		writeJSON(w, http.StatusOK, groups)
		return
	}
	writeJSON(w, http.StatusOK, view.Board(tasks))
}

func (s *Server) getProjectTable(w http.ResponseWriter, r *http.Request) {
	projects := view.SearchProjects(s.workspace.Projects.Items(), r.URL.Query().Get("q"))
	writeJSON(w, http.StatusOK, view.ProjectTable(projects, s.workspace.Tasks.Items()))
}

func (s *Server) getDocGrid(w http.ResponseWriter, r *http.Request) {
	var docType schema.DocType
	if raw := r.URL.Query().Get("type"); raw != "" {
		t, err := schema.ParseDocType(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		docType = t
	}
	cards := view.DocGrid(s.workspace.Documents.Items(), s.workspace.Projects.Items(), r.URL.Query().Get("q"), docType)
	writeJSON(w, http.StatusOK, cards)
}

func (s *Server) getStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.stats())
}

func (s *Server) getOrphans(w http.ResponseWriter, r *http.Request) {
	snap := s.workspace.Snapshot()
	writeJSON(w, http.StatusOK, view.FindOrphans(snap.Projects, snap.Tasks, snap.Documents))
}

func (s *Server) getWidgets(w http.ResponseWriter, r *http.Request) {
	s.widgetMu.RLock()
	defer s.widgetMu.RUnlock()
	out := map[string]any{}
	if s.tick != nil {
		out["clock"] = s.tick
	}
	if s.weather != nil {
		out["weather"] = weatherData(*s.weather)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getSync(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.syncStatus())
}

func (s *Server) retrySync(w http.ResponseWriter, r *http.Request) {
	n := s.workspace.Retry(r.Context())
	writeJSON(w, http.StatusAccepted, map[string]int{"retried": n})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"clients": s.ClientCount(),
	})
}

func readBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		return nil, errors.New("failed to read request body")
	}
	if t := bytes.TrimSpace(body); len(t) == 0 || bytes.Equal(t, []byte("null")) {
		return nil, errors.New("request body must be a JSON object")
	}
	return body, nil
}

func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrExists):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// cors allows browser clients served from another origin during development.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// requestLogger logs each API request with a short request id.
func requestLogger(logger logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			id := uuid.NewString()[:8]
			w.Header().Set("X-Request-ID", id)
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			logger.WithFields(logrus.Fields{
				"request_id":  id,
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      sw.status,
				"duration_ms": time.Since(start).Milliseconds(),
			}).Debug("request")
		})
	}
}
