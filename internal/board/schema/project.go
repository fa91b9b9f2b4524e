package schema

import (
	"fmt"
	"time"
)

// Project groups tasks and documents.
//
// TaskCount is denormalized and may be stale; view.ProjectTable recomputes it
// from the task collection.
type Project struct {
	ID          string        `json:"id" yaml:"id"`
	Name        string        `json:"name" yaml:"name"`
	Description string        `json:"description" yaml:"description"`
	Status      ProjectStatus `json:"status" yaml:"status"`
	Type        ProjectType   `json:"type" yaml:"type"`
	Color       string        `json:"color" yaml:"color"`
	TaskCount   int           `json:"taskCount" yaml:"taskCount"`
	CreatedAt   time.Time     `json:"createdAt" yaml:"createdAt"`
}

// DefaultColor is used for projects created without a color tag.
const DefaultColor = "indigo"

func (p *Project) GetID() string { return p.ID }
func (p *Project) SetID(id string) { p.ID = id }
func (p *Project) Clone() *Project { c := *p; return &c }

// SetDefaults fills fields a new project may omit.
func (p *Project) SetDefaults() {
	if p.Status == "" {
		p.Status = ProjectActive
	}
	if p.Type == "" {
		p.Type = ProjectPersonal
	}
	if p.Color == "" {
		p.Color = DefaultColor
	}
}

// Touch records the creation time the first time a project is stamped.
// Projects carry no update timestamp.
func (p *Project) Touch(now time.Time) {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
}

// Validate checks the project's field values.
func (p *Project) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("id is required")
	}
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(p.Name) > maxTitleLen {
		return fmt.Errorf("name must be %d characters or less (got %d)", maxTitleLen, len(p.Name))
	}
	if !p.Status.Valid() {
		return fmt.Errorf("invalid status %q", p.Status)
	}
	if !p.Type.Valid() {
		return fmt.Errorf("invalid type %q", p.Type)
	}
	if p.TaskCount < 0 {
		return fmt.Errorf("task count cannot be negative (got %d)", p.TaskCount)
	}
	return nil
}
