package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/focusboard/focusboard/internal/board/schema"
	"github.com/focusboard/focusboard/internal/ui"
)

// errAborted is returned when the user cancels an interactive form.
var errAborted = errors.New("aborted")

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func stringsOf[T ~string](vals []T) []string {
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = string(v)
	}
	return out
}

func runForm(groups ...*huh.Group) error {
	if !ui.IsTerminal() {
		return fmt.Errorf("interactive mode needs a terminal")
	}
	err := huh.NewForm(groups...).Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return errAborted
	}
	return err
}

func requireText(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

// projectOptions lists projects for a select, with a leading "none" entry.
func projectOptions(projects []*schema.Project) []huh.Option[string] {
	opts := []huh.Option[string]{huh.NewOption("(none)", "")}
	for _, p := range projects {
		opts = append(opts, huh.NewOption(p.Name, p.ID))
	}
	return opts
}

// taskForm edits t in place.
func taskForm(t *schema.Task, projects []*schema.Project, now time.Time) error {
	status := string(t.Status)
	priority := string(t.Priority)
	due := t.DueDate

	err := runForm(
		huh.NewGroup(
			huh.NewInput().Title("Title").Value(&t.Title).Validate(requireText("title")),
			huh.NewText().Title("Description").Value(&t.Description),
			huh.NewSelect[string]().Title("Status").
				Options(huh.NewOptions(stringsOf(schema.TaskStatuses())...)...).Value(&status),
			huh.NewSelect[string]().Title("Priority").
				Options(huh.NewOptions(stringsOf(schema.Priorities())...)...).Value(&priority),
		),
		huh.NewGroup(
			huh.NewSelect[string]().Title("Project").Options(projectOptions(projects)...).Value(&t.ProjectID),
			huh.NewInput().Title("Due date").Description("YYYY-MM-DD or e.g. \"next friday\"").Value(&due).
				Validate(func(s string) error {
					_, err := parseDue(s, now)
					return err
				}),
			huh.NewInput().Title("Assignee").Value(&t.Assignee),
		),
	)
	if err != nil {
		return err
	}
	t.Title = strings.TrimSpace(t.Title)
	prev := t.Status
	t.Status = schema.TaskStatus(status)
	t.StampStalled(prev, now)
	t.Priority = schema.Priority(priority)
	t.DueDate, err = parseDue(due, now)
	return err
}

// projectForm edits p in place.
func projectForm(p *schema.Project) error {
	status := string(p.Status)
	typ := string(p.Type)
	err := runForm(huh.NewGroup(
		huh.NewInput().Title("Name").Value(&p.Name).Validate(requireText("name")),
		huh.NewText().Title("Description").Value(&p.Description),
		huh.NewSelect[string]().Title("Status").
			Options(huh.NewOptions(stringsOf(schema.ProjectStatuses())...)...).Value(&status),
		huh.NewSelect[string]().Title("Type").
			Options(huh.NewOptions(stringsOf(schema.ProjectTypes())...)...).Value(&typ),
		huh.NewInput().Title("Color").Value(&p.Color),
	))
	if err != nil {
		return err
	}
	p.Name = strings.TrimSpace(p.Name)
	p.Status = schema.ProjectStatus(status)
	p.Type = schema.ProjectType(typ)
	return nil
}

// documentForm edits d in place.
func documentForm(d *schema.Document, projects []*schema.Project) error {
	typ := string(d.Type)
	err := runForm(huh.NewGroup(
		huh.NewInput().Title("Title").Value(&d.Title).Validate(requireText("title")),
		huh.NewSelect[string]().Title("Type").
			Options(huh.NewOptions(stringsOf(schema.DocTypes())...)...).Value(&typ),
		huh.NewSelect[string]().Title("Project").Options(projectOptions(projects)...).Value(&d.ProjectID),
		huh.NewText().Title("Content").Value(&d.Content),
	))
	if err != nil {
		return err
	}
	d.Title = strings.TrimSpace(d.Title)
	d.Type = schema.DocType(typ)
	return nil
}

// projectNames maps project ids to names.
func projectNames(projects []*schema.Project) map[string]string {
	names := make(map[string]string, len(projects))
	for _, p := range projects {
		names[p.ID] = p.Name
	}
	return names
}
