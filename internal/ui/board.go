package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/focusboard/focusboard/internal/board/schema"
	"github.com/focusboard/focusboard/internal/board/store"
	"github.com/focusboard/focusboard/internal/board/view"
)

var priorityColors = map[schema.Priority]lipgloss.TerminalColor{
	schema.PriorityCritical: ColorFail,
	schema.PriorityHigh:     ColorWarn,
	schema.PriorityMedium:   ColorAccent,
	schema.PriorityLow:      ColorMuted,
}

// RenderPriority colors a priority label.
func RenderPriority(p schema.Priority) string {
	c, ok := priorityColors[p]
	if !ok {
		return string(p)
	}
	return lipgloss.NewStyle().Foreground(c).Render(string(p))
}

// RenderStatus colors a task status label.
func RenderStatus(s schema.TaskStatus) string {
	switch s {
	case schema.StatusDone:
		return RenderPass(string(s))
	case schema.StatusStalled:
		return lipgloss.NewStyle().Foreground(ColorStall).Bold(true).Render(string(s))
	case schema.StatusInProgress:
		return RenderAccent(string(s))
	default:
		return string(s)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 1 || len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// Board renders Kanban columns side by side, fitted to width.
func Board(cols []view.Column, now time.Time, width int) string {
	if len(cols) == 0 {
		return ""
	}
	colWidth := width/len(cols) - 2
	if colWidth < 18 {
		colWidth = 18
	}
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorMuted).
		Padding(0, 1).
		Width(colWidth)

	rendered := make([]string, 0, len(cols))
	for _, col := range cols {
		var b strings.Builder
		fmt.Fprintf(&b, "%s %s\n", RenderStatus(col.Status), RenderMuted(fmt.Sprintf("(%d)", len(col.Tasks))))
		if len(col.Tasks) == 0 {
			b.WriteString(RenderMuted("empty"))
		}
		for i, t := range col.Tasks {
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString(card(t, now, colWidth-2))
		}
		rendered = append(rendered, box.Render(b.String()))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func card(t *schema.Task, now time.Time, width int) string {
	title := truncate(t.Title, width)
	if t.IsStalledLong(now) {
		title = RenderFail("! ") + truncate(t.Title, width-2)
	}
	meta := []string{RenderPriority(t.Priority)}
	if t.DueDate != "" {
		meta = append(meta, t.DueDate)
	}
	if t.Assignee != "" {
		meta = append(meta, t.Assignee)
	}
	return fmt.Sprintf("%s\n%s %s", title, RenderMuted(t.ID), strings.Join(meta, " "))
}

// TaskList renders status groups as an indented list.
func TaskList(groups []view.Column, projects map[string]string, now time.Time) string {
	var b strings.Builder
	for i, g := range groups {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s %s\n", RenderStatus(g.Status), RenderMuted(fmt.Sprintf("(%d)", len(g.Tasks))))
		for _, t := range g.Tasks {
			marker := "•"
			if t.IsStalledLong(now) {
				marker = RenderFail("!")
			}
			line := fmt.Sprintf("  %s %-10s %s  %s", marker, t.ID, t.Title, RenderPriority(t.Priority))
			if name := projects[t.ProjectID]; name != "" {
				line += "  " + RenderMuted(name)
			}
			if t.DueDate != "" {
				line += "  " + RenderMuted("due "+t.DueDate)
			}
			b.WriteString(line + "\n")
		}
	}
	return b.String()
}

// ProjectTable renders the project table.
func ProjectTable(rows []view.ProjectRow) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", RenderBold(fmt.Sprintf("%-10s %-24s %-10s %-9s %6s %9s", "ID", "NAME", "STATUS", "TYPE", "TASKS", "PROGRESS")))
	for _, r := range rows {
		status := string(r.Project.Status)
		if r.Project.Status == schema.ProjectStalled {
			status = RenderFail(fmt.Sprintf("%-10s", status))
		} else {
			status = fmt.Sprintf("%-10s", status)
		}
		fmt.Fprintf(&b, "%-10s %-24s %s %-9s %6d %8d%%\n",
			r.Project.ID, truncate(r.Project.Name, 24), status, r.Project.Type, r.Tasks, r.Progress)
	}
	return b.String()
}

// DocGrid renders document cards as a list.
func DocGrid(cards []view.DocCard) string {
	var b strings.Builder
	for _, c := range cards {
		fmt.Fprintf(&b, "%-10s %-9s %s", c.Document.ID, c.Document.Type, RenderBold(c.Document.Title))
		if c.ProjectName != "" {
			b.WriteString("  " + RenderMuted(c.ProjectName))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// Stats renders summary statistics.
func Stats(st view.Stats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Tasks:     %d (%d%% done)\n", st.Total, st.ProgressPercent)
	for _, s := range schema.TaskStatuses() {
		fmt.Fprintf(&b, "  %-12s %d\n", s, st.ByStatus[s])
	}
	if st.StalledLong > 0 {
		fmt.Fprintf(&b, "%s %d task(s) stalled for more than a day\n", RenderFail("!"), st.StalledLong)
	}
	if st.Overdue > 0 {
		fmt.Fprintf(&b, "%s %d task(s) overdue\n", RenderWarn("!"), st.Overdue)
	}
	if st.StalledProjects > 0 {
		fmt.Fprintf(&b, "%s %d project(s) stalled\n", RenderWarn("!"), st.StalledProjects)
	}
	return b.String()
}

// SyncStatus renders the sync state of each collection.
func SyncStatus(statuses []store.Status, remote bool) string {
	var b strings.Builder
	if !remote {
		fmt.Fprintf(&b, "%s local-only mode (no remote configured)\n", RenderWarn("●"))
	}
	for _, s := range statuses {
		state := RenderPass("online")
		switch {
		case s.Loading:
			state = RenderAccent("loading")
		case !remote:
			state = RenderMuted("local")
		case !s.Online:
			state = RenderFail("offline")
		}
		fmt.Fprintf(&b, "%-10s %-8s %3d records  pending %d  failed %d  committed %d\n",
			s.Collection, state, s.Count, s.Pending, s.Failed, s.Committed)
		if s.Error != "" {
			fmt.Fprintf(&b, "           %s\n", RenderFail(s.Error))
		}
	}
	return b.String()
}

// TaskDetail renders one task in full.
func TaskDetail(t *schema.Task, projectName string, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n", RenderBold(t.Title), RenderMuted(t.ID))
	fmt.Fprintf(&b, "Status:    %s\n", RenderStatus(t.Status))
	fmt.Fprintf(&b, "Priority:  %s\n", RenderPriority(t.Priority))
	if projectName != "" {
		fmt.Fprintf(&b, "Project:   %s\n", projectName)
	}
	if t.DueDate != "" {
		fmt.Fprintf(&b, "Due:       %s\n", t.DueDate)
	}
	if t.Assignee != "" {
		fmt.Fprintf(&b, "Assignee:  %s\n", t.Assignee)
	}
	if t.StalledAt != nil {
		since := now.Sub(*t.StalledAt).Round(time.Minute)
		line := fmt.Sprintf("Stalled:   %s (%s ago)", t.StalledAt.Local().Format("Jan 2 15:04"), since)
		if t.IsStalledLong(now) {
			line = RenderFail(line)
		}
		b.WriteString(line + "\n")
	}
	fmt.Fprintf(&b, "Updated:   %s\n", t.UpdatedAt.Local().Format("Jan 2 15:04"))
	if t.Description != "" {
		fmt.Fprintf(&b, "\n%s\n", t.Description)
	}
	return b.String()
}
