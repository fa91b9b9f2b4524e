// Package migrate moves board data in and out of the workspace: it reads
// snapshots and exports written by older versions of the dashboard, writes
// JSON or YAML exports, and watches an inbox directory for files to import.
package migrate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/focusboard/focusboard/internal/board/remote"
	"github.com/focusboard/focusboard/internal/board/schema"
	"github.com/focusboard/focusboard/internal/board/store"
)

// Importer receives normalized snapshots. *store.Workspace implements it.
type Importer interface {
	Import(ctx context.Context, snap *schema.Snapshot) (store.ImportResult, error)
}

// Report describes what Normalize did to an input document.
type Report struct {
	Projects  int      `json:"projects"`
	Tasks     int      `json:"tasks"`
	Documents int      `json:"documents"`
	Rewritten int      `json:"rewritten"` // records that needed a legacy fix
	Skipped   []string `json:"skipped,omitempty"`
}

// numericPriority maps the rank numbers used by the first dashboard.
var numericPriority = map[int]schema.Priority{
	0: schema.PriorityCritical,
	1: schema.PriorityHigh,
	2: schema.PriorityMedium,
	3: schema.PriorityLow,
}

// Normalize parses a snapshot in any format the dashboard has written and
// returns it in canonical form. Accepted variations:
//   - "docs" or "documents" as the document key
//   - numeric task priorities (1 High, 2 Medium, 3 Low)
//   - "lastUpdated" in place of "updatedAt"
//   - Agency/Internal/Content project types
//   - snake_case rows exported straight from the remote tables
//
// Records that still fail validation are skipped and listed in the report.
func Normalize(data []byte) (*schema.Snapshot, Report, error) {
	var report Report
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, report, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	rows := func(key string) ([]map[string]any, error) {
		raw, ok := top[key]
		if !ok {
			return nil, nil
		}
		var out []map[string]any
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, fmt.Errorf("%q must be a list of records: %w", key, err)
		}
		return out, nil
	}

	projects, err := rows("projects")
	if err != nil {
		return nil, report, err
	}
	tasks, err := rows("tasks")
	if err != nil {
		return nil, report, err
	}
	docs, err := rows("docs")
	if err != nil {
		return nil, report, err
	}
	if len(docs) == 0 {
		if docs, err = rows("documents"); err != nil {
			return nil, report, err
		}
	}

	snap := &schema.Snapshot{
		Projects:  []*schema.Project{},
		Tasks:     []*schema.Task{},
		Documents: []*schema.Document{},
	}
	for i, row := range projects {
		p, fixed, err := normalizeRecord[*schema.Project](schema.CollectionProjects, row, fixProject)
		if err != nil {
			report.Skipped = append(report.Skipped, fmt.Sprintf("projects[%d]: %v", i, err))
			continue
		}
		snap.Projects = append(snap.Projects, p)
		if fixed {
			report.Rewritten++
		}
	}
	for i, row := range tasks {
		t, fixed, err := normalizeRecord[*schema.Task](schema.CollectionTasks, row, fixTask)
		if err != nil {
			report.Skipped = append(report.Skipped, fmt.Sprintf("tasks[%d]: %v", i, err))
			continue
		}
		snap.Tasks = append(snap.Tasks, t)
		if fixed {
			report.Rewritten++
		}
	}
	for i, row := range docs {
		d, fixed, err := normalizeRecord[*schema.Document](schema.CollectionDocuments, row, fixDocument)
		if err != nil {
			report.Skipped = append(report.Skipped, fmt.Sprintf("docs[%d]: %v", i, err))
			continue
		}
		snap.Documents = append(snap.Documents, d)
		if fixed {
			report.Rewritten++
		}
	}
	report.Projects, report.Tasks, report.Documents = snap.Counts()
	return snap, report, nil
}

// NormalizeYAML is Normalize for YAML input.
func NormalizeYAML(data []byte) (*schema.Snapshot, Report, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, Report{}, fmt.Errorf("failed to parse YAML snapshot: %w", err)
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, Report{}, fmt.Errorf("failed to convert YAML snapshot: %w", err)
	}
	return Normalize(raw)
}

// ReadFile reads and normalizes a snapshot file. The format follows the
// file extension; anything other than .yaml or .yml is read as JSON.
func ReadFile(path string) (*schema.Snapshot, Report, error) {
	data, err := os.ReadFile(path) // #nosec G304 - path supplied by the user
	if err != nil {
		return nil, Report{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if isYAML(path) {
		return NormalizeYAML(data)
	}
	return Normalize(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")))
}

// ImportFile reads path and imports its records into imp.
func ImportFile(ctx context.Context, imp Importer, path string) (store.ImportResult, Report, error) {
	snap, report, err := ReadFile(path)
	if err != nil {
		return store.ImportResult{}, report, err
	}
	res, err := imp.Import(ctx, snap)
	return res, report, err
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// normalizeRecord applies fix to row and decodes the result as T.
func normalizeRecord[T store.Record[T]](c schema.Collection, row map[string]any, fix func(map[string]any) bool) (T, bool, error) {
	var zero T
	fixed := false

	if isRemoteRow(c, row) {
		raw, err := remote.ToInternal(c, row)
		if err != nil {
			return zero, false, err
		}
		row = map[string]any{}
		if err := json.Unmarshal(raw, &row); err != nil {
			return zero, false, err
		}
		fixed = true
	}
	if v, ok := row["lastUpdated"]; ok {
		if _, has := row["updatedAt"]; !has {
			row["updatedAt"] = v
		}
		delete(row, "lastUpdated")
		fixed = true
	}
	if fix(row) {
		fixed = true
	}

	raw, err := json.Marshal(row)
	if err != nil {
		return zero, false, err
	}
	var rec T
	if err := json.Unmarshal(raw, &rec); err != nil {
		return zero, false, err
	}
	rec.SetDefaults()
	if err := rec.Validate(); err != nil {
		return zero, false, err
	}
	return rec, fixed, nil
}

// isRemoteRow reports whether row uses the remote's snake_case column names.
func isRemoteRow(c schema.Collection, row map[string]any) bool {
	fields, err := remote.Fields(c)
	if err != nil {
		return false
	}
	for _, f := range fields {
		if f.External == f.Internal {
			continue
		}
		if _, ok := row[f.External]; ok {
			return true
		}
	}
	return false
}

func fixTask(row map[string]any) bool {
	fixed := false
	switch v := row["priority"].(type) {
	case float64:
		p, ok := numericPriority[int(v)]
		if !ok {
			p = schema.PriorityLow
			if v < 0 {
				p = schema.PriorityCritical
			}
		}
		row["priority"] = string(p)
		fixed = true
	case string:
		if p, err := schema.ParsePriority(v); err == nil && string(p) != v {
			row["priority"] = string(p)
			fixed = true
		}
	}
	if v, ok := row["status"].(string); ok {
		if st, err := schema.ParseTaskStatus(v); err == nil && string(st) != v {
			row["status"] = string(st)
			fixed = true
		}
	}
	return fixed
}

func fixProject(row map[string]any) bool {
	fixed := false
	if v, ok := row["type"].(string); ok {
		if t, err := schema.ParseProjectType(v); err == nil && string(t) != v {
			row["type"] = string(t)
			fixed = true
		}
	}
	if v, ok := row["status"].(string); ok {
		if st, err := schema.ParseProjectStatus(v); err == nil && string(st) != v {
			row["status"] = string(st)
			fixed = true
		}
	}
	return fixed
}

func fixDocument(row map[string]any) bool {
	if v, ok := row["type"].(string); ok {
		if t, err := schema.ParseDocType(v); err == nil && string(t) != v {
			row["type"] = string(t)
			return true
		}
	}
	return false
}
