package schema

import "time"

// DefaultSeed returns the built-in first-run collections: 7 projects, 6 tasks,
// and 5 documents. Timestamps relative to "now" are computed from now.
func DefaultSeed(now time.Time) *Snapshot {
	return &Snapshot{
		Projects:  SeedProjects(now),
		Tasks:     SeedTasks(now),
		Documents: SeedDocuments(now),
	}
}

// SeedProjects returns the default projects.
func SeedProjects(time.Time) []*Project {
	return []*Project{
		{ID: "p1", Name: "DPC", Description: "Deploy Hostinger project", Status: ProjectPaused, Type: ProjectBusiness, Color: "indigo", TaskCount: 12, CreatedAt: day("2026-01-15")},
		{ID: "p2", Name: "Nanobot", Description: "Self-host Gmail replacement", Status: ProjectActive, Type: ProjectBusiness, Color: "orange", TaskCount: 8, CreatedAt: day("2026-01-20")},
		{ID: "p3", Name: "OpenClaw-Unify", Description: "5 to 1 LLM gateway", Status: ProjectActive, Type: ProjectBusiness, Color: "emerald", TaskCount: 5, CreatedAt: day("2026-01-25")},
		{ID: "p4", Name: "Boringbest", Description: "Affiliate engine", Status: ProjectActive, Type: ProjectHobby, Color: "pink", TaskCount: 3, CreatedAt: day("2026-01-10")},
		{ID: "p5", Name: "Tetris-Task-Game", Description: "Gamified task management", Status: ProjectActive, Type: ProjectHobby, Color: "purple", TaskCount: 15, CreatedAt: day("2026-02-01")},
		{ID: "p6", Name: "Stardew-Farm-Manager", Description: "Switch farm automation", Status: ProjectActive, Type: ProjectPersonal, Color: "blue", TaskCount: 2, CreatedAt: day("2026-02-05")},
		{ID: "p7", Name: "Dashboard", Description: "This specific tool", Status: ProjectActive, Type: ProjectPersonal, Color: "cyan", TaskCount: 20, CreatedAt: day("2026-02-08")},
	}
}

// SeedTasks returns the default tasks. t1 starts out stalled for 25 hours.
func SeedTasks(now time.Time) []*Task {
	stalled := now.Add(-25 * time.Hour)
	task := func(id, title, desc string, status TaskStatus, prio Priority, project, due, who string) *Task {
		return &Task{
			ID:          id,
			Title:       title,
			Description: desc,
			Status:      status,
			Priority:    prio,
			ProjectID:   project,
			DueDate:     due,
			Assignee:    who,
			UpdatedAt:   now,
		}
	}

	tasks := []*Task{
		task("t1", "DPC audit", "Full system audit for stalled project", StatusStalled, PriorityHigh, "p1", "2026-02-10", "AC"),
		task("t2", "Vercel live", "Push main branch to production", StatusTodo, PriorityCritical, "p1", "2026-02-15", "AC"),
		task("t3", "Design new landing page", "Hero section and feature grid", StatusTodo, PriorityHigh, "p3", "2026-02-10", "AC"),
		task("t4", "Implement authentication", "Clerk integration for user auth", StatusInProgress, PriorityHigh, "p2", "2026-02-08", "SK"),
		task("t5", "Write API documentation", "Endpoint definitions for v1", StatusInProgress, PriorityMedium, "p4", "2026-02-15", "MR"),
		task("t6", "Fix navigation bug", "Mobile menu toggle fix", StatusDone, PriorityLow, "p2", "2026-02-05", "SK"),
	}
	tasks[0].StalledAt = &stalled
	return tasks
}

// SeedDocuments returns the default documents.
func SeedDocuments(time.Time) []*Document {
	return []*Document{
		{ID: "d1", Title: "Deployment Process", Type: DocSOP, ProjectID: "p2", UpdatedAt: day("2026-02-05")},
		{ID: "d2", Title: "Email Templates", Type: DocTemplate, ProjectID: "p5", UpdatedAt: day("2026-02-03")},
		{ID: "d3", Title: "Meeting Notes - Q1 Planning", Type: DocNotes, UpdatedAt: day("2026-02-01")},
		{ID: "d4", Title: "API Reference", Type: DocReference, ProjectID: "p3", UpdatedAt: day("2026-01-28")},
		{ID: "d5", Title: "Brand Guidelines", Type: DocReference, ProjectID: "p1", UpdatedAt: day("2026-01-20")},
	}
}

func day(s string) time.Time {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}
