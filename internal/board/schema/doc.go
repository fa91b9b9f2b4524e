// Package schema defines the records focusboard keeps in sync: projects,
// tasks, and documents.
//
// # Naming
//
// Records marshal with camelCase JSON names. That is the only convention used
// inside the module; the remote package owns the translation to the
// snake_case column names of the remote store.
//
// # Collections
//
// Three collections exist:
//
//	projects   -> Project
//	tasks      -> Task
//	documents  -> Document
//
// "docs" is accepted as an alias for documents when parsing user input and is
// the field name used in the persisted cache snapshot:
//
//	{
//	  "projects": [...],
//	  "tasks": [...],
//	  "docs": [...]
//	}
//
// # Canonical enumerations
//
// Task priority is the string enum Low, Medium, High, Critical. Older exports
// that carried a numeric rank (1..3) are converted by the migrate package and
// never reach this package as numbers. Task status always includes Stalled.
//
// # Stalled tracking
//
// Task.StalledAt is set when a task is moved into Stalled and cleared when it
// is moved anywhere else. Edits that change Status directly leave StalledAt
// untouched.
package schema
