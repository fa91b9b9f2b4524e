package schema

import "time"

// Entity is implemented by *Project, *Task, and *Document.
type Entity interface {
	GetID() string
	SetID(id string)
	SetDefaults()
	Touch(now time.Time)
	Validate() error
}

// Snapshot is the combined persisted state of all three collections.
//
// A nil slice means the collection was absent from the persisted data; an
// empty slice means it was present and empty.
type Snapshot struct {
	Projects  []*Project  `json:"projects" yaml:"projects"`
	Tasks     []*Task     `json:"tasks" yaml:"tasks"`
	Documents []*Document `json:"docs" yaml:"docs"`
}

// Counts returns the number of projects, tasks, and documents.
func (s *Snapshot) Counts() (projects, tasks, docs int) {
	if s == nil {
		return 0, 0, 0
	}
	return len(s.Projects), len(s.Tasks), len(s.Documents)
}
