// internal/models/task.go
package models

import "time"

// TaskStatus defines the possible statuses for a task or subtask.
type TaskStatus string

const (
	StatusIncomplete TaskStatus = "incomplete"
	StatusCompleted  TaskStatus = "completed"
)

// Toggled returns the opposite status.
func (s TaskStatus) Toggled() TaskStatus {
	if s == StatusCompleted {
		return StatusIncomplete
	}
	return StatusCompleted
}

// Task links a Canvas assignment to its Todoist mirror, or represents a
// purely local item when CanvasID is nil.
//
// At most one task may exist per (owner, canvas_id) pair when canvas_id is
// set; that uniqueness is what keeps repeated sync runs from creating
// duplicate mirrors. TodoistID stays nil until the first successful remote
// create resolves through the batch temp-id mapping.
type Task struct {
	ID          int64      `json:"id"`
	Owner       int64      `json:"owner"`
	CanvasID    *int64     `json:"canvas_id,omitempty"`
	TodoistID   *string    `json:"todoist_id,omitempty"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Status      TaskStatus `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Linked reports whether the task has a Todoist mirror.
func (t *Task) Linked() bool {
	return t.TodoistID != nil && *t.TodoistID != ""
}

// MaxDescriptionLength bounds a task's description (notes).
const MaxDescriptionLength = 500

// TaskFilter defines the available parameters for filtering tasks.
type TaskFilter struct {
	Owner    *int64
	CanvasID *int64
	Status   *TaskStatus
}
