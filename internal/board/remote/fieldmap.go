package remote

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/focusboard/focusboard/internal/board/schema"
)

// Field maps one internal (camelCase) field to its external (snake_case) column.
type Field struct {
	Internal string
	External string
	Nullable bool // empty values are sent as null
	Time     bool // normalized to RFC 3339 on the way in
}

// fieldMaps is the single source of truth for naming on the wire.
// Fields not listed here never cross the boundary in either direction.
var fieldMaps = map[schema.Collection][]Field{
	schema.CollectionProjects: {
		{Internal: "id", External: "id"},
		{Internal: "name", External: "name"},
		{Internal: "description", External: "description"},
		{Internal: "status", External: "status"},
		{Internal: "type", External: "type"},
		{Internal: "color", External: "color"},
		{Internal: "taskCount", External: "task_count"},
		{Internal: "createdAt", External: "created_at", Time: true},
	},
	schema.CollectionTasks: {
		{Internal: "id", External: "id"},
		{Internal: "title", External: "title"},
		{Internal: "description", External: "description"},
		{Internal: "status", External: "status"},
		{Internal: "priority", External: "priority"},
		{Internal: "projectId", External: "project_id", Nullable: true},
		{Internal: "dueDate", External: "due_date", Nullable: true},
		{Internal: "assignee", External: "assignee"},
		{Internal: "stalledAt", External: "stalled_at", Nullable: true, Time: true},
		{Internal: "createdAt", External: "created_at", Time: true},
		{Internal: "updatedAt", External: "updated_at", Time: true},
	},
	schema.CollectionDocuments: {
		{Internal: "id", External: "id"},
		{Internal: "title", External: "title"},
		{Internal: "type", External: "type"},
		{Internal: "projectId", External: "project_id", Nullable: true},
		{Internal: "content", External: "content"},
		{Internal: "updatedAt", External: "updated_at", Time: true},
	},
}

// sortColumn is the external column each collection is listed by, newest first.
var sortColumn = map[schema.Collection]string{
	schema.CollectionProjects:  "created_at",
	schema.CollectionTasks:     "created_at",
	schema.CollectionDocuments: "updated_at",
}

// Fields returns the mapping table for a collection.
func Fields(c schema.Collection) ([]Field, error) {
	fields, ok := fieldMaps[c]
	if !ok {
		return nil, fmt.Errorf("unknown collection %q", c)
	}
	return fields, nil
}

// ToExternal renames a camelCase record to its snake_case row.
//
// With full set, nullable fields missing from rec are sent as explicit nulls
// so that an update can clear them.
func ToExternal(c schema.Collection, rec json.RawMessage, full bool) (map[string]any, error) {
	fields, err := Fields(c)
	if err != nil {
		return nil, err
	}

	var in map[string]any
	if err := json.Unmarshal(rec, &in); err != nil {
		return nil, fmt.Errorf("failed to decode %s record: %w", c.Singular(), err)
	}

	out := make(map[string]any, len(fields))
	for _, f := range fields {
		v, ok := in[f.Internal]
		if f.Nullable && (isEmpty(v) || (!ok && full)) {
			out[f.External] = nil
			continue
		}
		if ok {
			out[f.External] = v
		}
	}
	return out, nil
}

// ToInternal renames a snake_case row to a camelCase record.
func ToInternal(c schema.Collection, row map[string]any) (json.RawMessage, error) {
	fields, err := Fields(c)
	if err != nil {
		return nil, err
	}

	out := make(map[string]any, len(fields))
	for _, f := range fields {
		v, ok := row[f.External]
		if !ok || v == nil {
			continue
		}
		if f.Time {
			s, isStr := v.(string)
			if !isStr {
				return nil, fmt.Errorf("%s.%s: expected timestamp string, got %T", c, f.External, v)
			}
			ts, err := parseTimestamp(s)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", c, f.External, err)
			}
			v = ts.Format(time.RFC3339Nano)
		}
		out[f.Internal] = v
	}

	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s record: %w", c.Singular(), err)
	}
	return data, nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z07",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z07",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	schema.DateLayout,
}

// parseTimestamp accepts the timestamp shapes PostgREST emits for
// timestamptz, timestamp, and date columns.
func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}
