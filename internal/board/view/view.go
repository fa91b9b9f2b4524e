// Package view derives read-only presentations of the board from store
// contents: Kanban columns, grouped lists, the project table, the document
// grid, and summary stats. Nothing here mutates its inputs.
package view

import (
	"math"
	"strings"
	"time"

	"github.com/focusboard/focusboard/internal/board/schema"
)

// Column is one status column of the board.
type Column struct {
	Status schema.TaskStatus `json:"status"`
	Tasks  []*schema.Task    `json:"tasks"`
}

// Board groups tasks into the fixed column order Todo, In Progress, Done,
// Stalled. Empty columns are kept. Tasks keep their input order.
func Board(tasks []*schema.Task) []Column {
	cols := make([]Column, 0, len(schema.TaskStatuses()))
	for _, st := range schema.TaskStatuses() {
		col := Column{Status: st, Tasks: []*schema.Task{}}
		for _, t := range tasks {
			if t.Status == st {
				col.Tasks = append(col.Tasks, t)
			}
		}
		cols = append(cols, col)
	}
	return cols
}

// List is Board without the empty groups.
func List(tasks []*schema.Task) []Column {
	var out []Column
	for _, col := range Board(tasks) {
		if len(col.Tasks) > 0 {
			out = append(out, col)
		}
	}
	return out
}

// ProjectRow is one row of the project table.
type ProjectRow struct {
	Project  *schema.Project `json:"project"`
	Tasks    int             `json:"tasks"`
	Done     int             `json:"done"`
	Stalled  int             `json:"stalled"`
	Progress int             `json:"progress"`
}

// ProjectTable pairs each project with task counts computed from tasks.
// The stored TaskCount is ignored.
func ProjectTable(projects []*schema.Project, tasks []*schema.Task) []ProjectRow {
	byProject := make(map[string][]*schema.Task)
	for _, t := range tasks {
		if t.ProjectID != "" {
			byProject[t.ProjectID] = append(byProject[t.ProjectID], t)
		}
	}

	rows := make([]ProjectRow, 0, len(projects))
	for _, p := range projects {
		row := ProjectRow{Project: p, Tasks: len(byProject[p.ID])}
		for _, t := range byProject[p.ID] {
			switch t.Status {
			case schema.StatusDone:
				row.Done++
			case schema.StatusStalled:
				row.Stalled++
			}
		}
		row.Progress = percent(row.Done, row.Tasks)
		rows = append(rows, row)
	}
	return rows
}

// RecountProjects returns copies of projects with TaskCount recomputed.
func RecountProjects(projects []*schema.Project, tasks []*schema.Task) []*schema.Project {
	out := make([]*schema.Project, 0, len(projects))
	for _, row := range ProjectTable(projects, tasks) {
		p := row.Project.Clone()
		p.TaskCount = row.Tasks
		out = append(out, p)
	}
	return out
}

// SearchProjects filters projects whose name or description contains query,
// case-insensitively. An empty query matches everything.
func SearchProjects(projects []*schema.Project, query string) []*schema.Project {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]*schema.Project, 0, len(projects))
	for _, p := range projects {
		if q == "" || strings.Contains(strings.ToLower(p.Name), q) || strings.Contains(strings.ToLower(p.Description), q) {
			out = append(out, p)
		}
	}
	return out
}

// DocCard is one tile of the document grid.
type DocCard struct {
	Document    *schema.Document `json:"document"`
	ProjectName string           `json:"projectName,omitempty"`
}

// DocGrid filters documents by query (title or content, case-insensitive)
// and by type when docType is non-empty, resolving project names.
func DocGrid(docs []*schema.Document, projects []*schema.Project, query string, docType schema.DocType) []DocCard {
	names := make(map[string]string, len(projects))
	for _, p := range projects {
		names[p.ID] = p.Name
	}

	q := strings.ToLower(strings.TrimSpace(query))
	cards := make([]DocCard, 0, len(docs))
	for _, d := range docs {
		if docType != "" && d.Type != docType {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(d.Title), q) && !strings.Contains(strings.ToLower(d.Content), q) {
			continue
		}
		cards = append(cards, DocCard{Document: d, ProjectName: names[d.ProjectID]})
	}
	return cards
}

// Stats summarizes the task collection.
type Stats struct {
	Total           int                       `json:"total"`
	Done            int                       `json:"done"`
	Stalled         int                       `json:"stalled"`
	StalledLong     int                       `json:"stalledLong"`
	ProgressPercent int                       `json:"progressPercent"`
	ByStatus        map[schema.TaskStatus]int `json:"byStatus"`
	ByPriority      map[schema.Priority]int   `json:"byPriority"`
	Overdue         int                       `json:"overdue"`
	StalledProjects int                       `json:"stalledProjects"`
}

// ComputeStats summarizes tasks (and stalled projects) as of now.
func ComputeStats(projects []*schema.Project, tasks []*schema.Task, now time.Time) Stats {
	s := Stats{
		Total:      len(tasks),
		ByStatus:   make(map[schema.TaskStatus]int, 4),
		ByPriority: make(map[schema.Priority]int, 4),
	}
	today := now.Format(schema.DateLayout)
	for _, t := range tasks {
		s.ByStatus[t.Status]++
		s.ByPriority[t.Priority]++
		switch t.Status {
		case schema.StatusDone:
			s.Done++
		case schema.StatusStalled:
			s.Stalled++
		}
		if t.IsStalledLong(now) {
			s.StalledLong++
		}
		// YYYY-MM-DD compares correctly as a string.
		if t.Status != schema.StatusDone && t.DueDate != "" && t.DueDate < today {
			s.Overdue++
		}
	}
	for _, p := range projects {
		if p.Status == schema.ProjectStalled {
			s.StalledProjects++
		}
	}
	s.ProgressPercent = percent(s.Done, s.Total)
	return s
}

// Orphans lists records whose project reference points at no project.
type Orphans struct {
	Tasks     []*schema.Task     `json:"tasks"`
	Documents []*schema.Document `json:"documents"`
}

// Empty reports whether there are no orphans.
func (o Orphans) Empty() bool { return len(o.Tasks) == 0 && len(o.Documents) == 0 }

// FindOrphans returns tasks and documents referencing missing projects.
// Records with no project are not orphans.
func FindOrphans(projects []*schema.Project, tasks []*schema.Task, docs []*schema.Document) Orphans {
	known := make(map[string]bool, len(projects))
	for _, p := range projects {
		known[p.ID] = true
	}
	o := Orphans{Tasks: []*schema.Task{}, Documents: []*schema.Document{}}
	for _, t := range tasks {
		if t.ProjectID != "" && !known[t.ProjectID] {
			o.Tasks = append(o.Tasks, t)
		}
	}
	for _, d := range docs {
		if d.ProjectID != "" && !known[d.ProjectID] {
			o.Documents = append(o.Documents, d)
		}
	}
	return o
}

// percent is round(part / max(total, 1) * 100).
func percent(part, total int) int {
	if total < 1 {
		total = 1
	}
	return int(math.Round(float64(part) / float64(total) * 100))
}
