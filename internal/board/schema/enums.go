package schema

import (
	"fmt"
	"strings"
)

// Collection names a remote table and an entity store.
type Collection string

const (
	CollectionProjects  Collection = "projects"
	CollectionTasks     Collection = "tasks"
	CollectionDocuments Collection = "documents"
)

// Collections returns every collection in load order.
func Collections() []Collection {
	return []Collection{CollectionProjects, CollectionTasks, CollectionDocuments}
}

// ParseCollection accepts the canonical names plus the "docs" alias.
func ParseCollection(s string) (Collection, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "projects", "project":
		return CollectionProjects, nil
	case "tasks", "task":
		return CollectionTasks, nil
	case "documents", "document", "docs", "doc":
		return CollectionDocuments, nil
	default:
		return "", fmt.Errorf("unknown collection %q", s)
	}
}

// Singular returns the record noun for messages ("task", "project", ...).
func (c Collection) Singular() string {
	switch c {
	case CollectionProjects:
		return "project"
	case CollectionTasks:
		return "task"
	case CollectionDocuments:
		return "document"
	default:
		return string(c)
	}
}

// TaskStatus is the Kanban column a task sits in.
type TaskStatus string

const (
	StatusTodo       TaskStatus = "Todo"
	StatusInProgress TaskStatus = "In Progress"
	StatusDone       TaskStatus = "Done"
	StatusStalled    TaskStatus = "Stalled"
)

// TaskStatuses returns the statuses in board column order.
func TaskStatuses() []TaskStatus {
	return []TaskStatus{StatusTodo, StatusInProgress, StatusDone, StatusStalled}
}

// Valid reports whether s is one of the fixed task statuses.
func (s TaskStatus) Valid() bool {
	for _, v := range TaskStatuses() {
		if s == v {
			return true
		}
	}
	return false
}

// ParseTaskStatus is case-insensitive and tolerates "in_progress" style input.
func ParseTaskStatus(s string) (TaskStatus, error) {
	norm := strings.ToLower(strings.NewReplacer("_", " ", "-", " ").Replace(strings.TrimSpace(s)))
	for _, v := range TaskStatuses() {
		if strings.ToLower(string(v)) == norm {
			return v, nil
		}
	}
	if norm == "inprogress" {
		return StatusInProgress, nil
	}
	return "", fmt.Errorf("unknown task status %q (want one of Todo, In Progress, Done, Stalled)", s)
}

// Priority is the canonical task priority.
type Priority string

const (
	PriorityLow      Priority = "Low"
	PriorityMedium   Priority = "Medium"
	PriorityHigh     Priority = "High"
	PriorityCritical Priority = "Critical"
)

// Priorities returns priorities from least to most urgent.
func Priorities() []Priority {
	return []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}
}

// Valid reports whether p is one of the fixed priorities.
func (p Priority) Valid() bool {
	return p.Rank() >= 0
}

// Rank orders priorities for sorting: Critical=0 ... Low=3, -1 if invalid.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 3
	default:
		return -1
	}
}

// ParsePriority is case-insensitive.
func ParsePriority(s string) (Priority, error) {
	for _, v := range Priorities() {
		if strings.EqualFold(string(v), strings.TrimSpace(s)) {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown priority %q (want one of Low, Medium, High, Critical)", s)
}

// ProjectStatus is the lifecycle state of a project.
type ProjectStatus string

const (
	ProjectActive    ProjectStatus = "Active"
	ProjectPaused    ProjectStatus = "Paused"
	ProjectCompleted ProjectStatus = "Completed"
	ProjectStalled   ProjectStatus = "Stalled"
)

// ProjectStatuses returns every project status.
func ProjectStatuses() []ProjectStatus {
	return []ProjectStatus{ProjectActive, ProjectPaused, ProjectCompleted, ProjectStalled}
}

// Valid reports whether s is one of the fixed project statuses.
func (s ProjectStatus) Valid() bool {
	for _, v := range ProjectStatuses() {
		if s == v {
			return true
		}
	}
	return false
}

// ParseProjectStatus is case-insensitive.
func ParseProjectStatus(s string) (ProjectStatus, error) {
	for _, v := range ProjectStatuses() {
		if strings.EqualFold(string(v), strings.TrimSpace(s)) {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown project status %q", s)
}

// ProjectType classifies a project.
type ProjectType string

const (
	ProjectBusiness ProjectType = "Business"
	ProjectHobby    ProjectType = "Hobby"
	ProjectPersonal ProjectType = "Personal"
)

// ProjectTypes returns every project type.
func ProjectTypes() []ProjectType {
	return []ProjectType{ProjectBusiness, ProjectHobby, ProjectPersonal}
}

// Valid reports whether t is one of the fixed project types.
func (t ProjectType) Valid() bool {
	for _, v := range ProjectTypes() {
		if t == v {
			return true
		}
	}
	return false
}

// ParseProjectType accepts the canonical names and the older
// Agency/Internal/Content labels.
func ParseProjectType(s string) (ProjectType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "business", "agency":
		return ProjectBusiness, nil
	case "hobby", "internal":
		return ProjectHobby, nil
	case "personal", "content":
		return ProjectPersonal, nil
	default:
		return "", fmt.Errorf("unknown project type %q", s)
	}
}

// DocType classifies a document.
type DocType string

const (
	DocSOP       DocType = "SOP"
	DocTemplate  DocType = "Template"
	DocNotes     DocType = "Notes"
	DocReference DocType = "Reference"
)

// DocTypes returns every document type.
func DocTypes() []DocType {
	return []DocType{DocSOP, DocTemplate, DocNotes, DocReference}
}

// Valid reports whether t is one of the fixed document types.
func (t DocType) Valid() bool {
	for _, v := range DocTypes() {
		if t == v {
			return true
		}
	}
	return false
}

// ParseDocType is case-insensitive.
func ParseDocType(s string) (DocType, error) {
	for _, v := range DocTypes() {
		if strings.EqualFold(string(v), strings.TrimSpace(s)) {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown document type %q", s)
}
