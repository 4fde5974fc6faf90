// internal/models/subtask.go
package models

import "time"

// SubTask is a child of exactly one Task with its own Todoist mirror.
// SharedWith lists the other accounts the subtask is shared with; an empty
// set means the subtask is private and its status follows remote truth
// during reconciliation. For shared subtasks the database status is
// authoritative and the remote mirrors are corrected to match it.
type SubTask struct {
	ID          int64      `json:"id"`
	Owner       int64      `json:"owner"`
	TaskID      int64      `json:"task_id"`
	TodoistID   *string    `json:"todoist_id,omitempty"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Status      TaskStatus `json:"status"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	SharedWith  []int64    `json:"shared_with"`
}

// Shared reports whether any other account participates in this subtask.
func (s *SubTask) Shared() bool {
	return len(s.SharedWith) > 0
}

// Linked reports whether the subtask has a Todoist mirror.
func (s *SubTask) Linked() bool {
	return s.TodoistID != nil && *s.TodoistID != ""
}

// SharedSubtaskLink is one participant's private Todoist mirror of a shared
// subtask, beyond the original owner. TodoistOriginal references the owner's
// mirror for traceability. The owner's SubTask.TodoistID together with every
// link's TodoistID forms the complete fan-out set that must stay
// status-consistent with SubTask.Status.
type SharedSubtaskLink struct {
	ID              int64  `json:"id"`
	Owner           int64  `json:"owner"`
	SubtaskID       int64  `json:"subtask_id"`
	TodoistOriginal string `json:"todoist_original"`
	TodoistID       string `json:"todoist_id"`
}

// SubTaskInvitation is a pending offer to join a shared subtask.
type SubTaskInvitation struct {
	ID          int64 `json:"id"`
	Owner       int64 `json:"owner"`
	RecipientID int64 `json:"recipient_id"`
	SubtaskID   int64 `json:"subtask_id"`
}
