package schema

import (
	"fmt"
	"time"
)

// Document is an SOP, template, note, or reference, optionally tied to a project.
type Document struct {
	ID        string    `json:"id" yaml:"id"`
	Title     string    `json:"title" yaml:"title"`
	Type      DocType   `json:"type" yaml:"type"`
	ProjectID string    `json:"projectId,omitempty" yaml:"projectId,omitempty"`
	Content   string    `json:"content,omitempty" yaml:"content,omitempty"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"updatedAt"`
}

func (d *Document) GetID() string { return d.ID }
func (d *Document) SetID(id string) { d.ID = id }
func (d *Document) Clone() *Document { c := *d; return &c }
func (d *Document) Touch(now time.Time) { d.UpdatedAt = now }

// SetDefaults fills fields a new document may omit.
func (d *Document) SetDefaults() {
	if d.Type == "" {
		d.Type = DocNotes
	}
}

// Validate checks the document's field values.
func (d *Document) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("id is required")
	}
	if d.Title == "" {
		return fmt.Errorf("title is required")
	}
	if len(d.Title) > maxTitleLen {
		return fmt.Errorf("title must be %d characters or less (got %d)", maxTitleLen, len(d.Title))
	}
	if !d.Type.Valid() {
		return fmt.Errorf("invalid type %q", d.Type)
	}
	return nil
}
