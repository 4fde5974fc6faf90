package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"eagletask/internal/models"
	"eagletask/internal/repositories"
	"eagletask/internal/todoist"
)

var ErrNotFound = errors.New("not found")

// ErrSharedSubtaskToggleOnly rejects direct open/close on a shared subtask.
// Shared status changes must go through ToggleStatus so every participant's
// mirror is updated, not just the caller's.
var ErrSharedSubtaskToggleOnly = errors.New("shared subtask status changes go through toggle")

// TaskService covers the user-facing task operations outside the sync run:
// purely local tasks, subtasks under synced assignments, and the open/close
// and toggle endpoints that route by what kind of item a Todoist id names.
type TaskService interface {
	ListTasks(ctx context.Context, filter models.TaskFilter) ([]models.Task, error)
	CreateLocalTask(ctx context.Context, owner int64, name, description string, due *time.Time) (*models.Task, error)
	CreateSubtask(ctx context.Context, owner, parentCanvasID int64, name, description string, due *time.Time) (*models.SubTask, error)
	// GetSubtasks lists the owner's subtasks, optionally restricted to a set
	// of parent task ids.
	GetSubtasks(ctx context.Context, owner int64, taskIDs []int64) ([]models.SubTask, error)
	// UpdateNote replaces a task's description. The task is addressed by its
	// own id, or by its Canvas assignment id when byCanvasID is set.
	UpdateNote(ctx context.Context, owner, ref int64, byCanvasID bool, description string) (*models.Task, error)
	SetOpenState(ctx context.Context, owner int64, todoistID string, open bool) error
	// ToggleStatus flips the status of whatever the Todoist id names: a
	// task, a private subtask, or a shared subtask (owner's copy or a
	// participant mirror). Shared subtasks go through the fan-out policy.
	ToggleStatus(ctx context.Context, owner int64, todoistID string) (models.TaskStatus, error)
}

type taskService struct {
	tasks    repositories.TaskRepository
	subtasks repositories.SubTaskRepository
	shared   repositories.SharedSubtaskRepository
	creds    CredentialProvider
	todoist  todoist.Client
	share    ShareService
}

func NewTaskService(
	tasks repositories.TaskRepository,
	subtasks repositories.SubTaskRepository,
	shared repositories.SharedSubtaskRepository,
	creds CredentialProvider,
	todoistClient todoist.Client,
	share ShareService,
) TaskService {
	return &taskService{
		tasks:    tasks,
		subtasks: subtasks,
		shared:   shared,
		creds:    creds,
		todoist:  todoistClient,
		share:    share,
	}
}

func (s *taskService) ListTasks(ctx context.Context, filter models.TaskFilter) ([]models.Task, error) {
	return s.tasks.FindAll(ctx, filter)
}

// CreateLocalTask stores a task with no Canvas linkage and mirrors it to
// Todoist immediately. Unlike harvested assignments there is no batch run to
// pick it up later, so a failed remote create fails the whole operation.
func (s *taskService) CreateLocalTask(ctx context.Context, owner int64, name, description string, due *time.Time) (*models.Task, error) {
	token, err := s.creds.DecryptTodoistKey(owner)
	if err != nil {
		return nil, err
	}

	task := &models.Task{
		Owner:       owner,
		Name:        name,
		Description: description,
		DueDate:     due,
		Status:      models.StatusIncomplete,
	}
	if err := s.tasks.Store(ctx, task); err != nil {
		return nil, err
	}

	remoteID, err := s.todoist.CreateTask(ctx, token, name, description, due, "")
	if err != nil {
		if derr := s.tasks.Delete(ctx, task.ID); derr != nil {
			log.Printf("[task][create][err] cleanup task=%d: %v", task.ID, derr)
		}
		return nil, translateRemoteErr(err)
	}
	if err := s.tasks.BindTodoistID(ctx, task.ID, remoteID); err != nil {
		return nil, err
	}
	task.TodoistID = &remoteID
	log.Printf("[task][create][ok] owner=%d task=%d remote=%s", owner, task.ID, remoteID)
	return task, nil
}

// CreateSubtask attaches a subtask to the synced assignment identified by
// its Canvas id and creates the remote mirror nested under the parent task.
func (s *taskService) CreateSubtask(ctx context.Context, owner, parentCanvasID int64, name, description string, due *time.Time) (*models.SubTask, error) {
	parent, err := s.tasks.FindByCanvasID(ctx, owner, parentCanvasID)
	if err != nil {
		return nil, err
	}
	if parent == nil {
		return nil, ErrNotFound
	}
	if !parent.Linked() {
		return nil, errors.New("parent task has no remote mirror yet, sync first")
	}

	token, err := s.creds.DecryptTodoistKey(owner)
	if err != nil {
		return nil, err
	}
	remoteID, err := s.todoist.CreateTask(ctx, token, name, description, due, *parent.TodoistID)
	if err != nil {
		return nil, translateRemoteErr(err)
	}

	subtask := &models.SubTask{
		Owner:       owner,
		TaskID:      parent.ID,
		TodoistID:   &remoteID,
		Name:        name,
		Description: description,
		Status:      models.StatusIncomplete,
		DueDate:     due,
	}
	if err := s.subtasks.Store(ctx, subtask); err != nil {
		return nil, err
	}
	log.Printf("[task][subtask][ok] owner=%d parent=%d subtask=%d remote=%s",
		owner, parent.ID, subtask.ID, remoteID)
	return subtask, nil
}

func (s *taskService) GetSubtasks(ctx context.Context, owner int64, taskIDs []int64) ([]models.SubTask, error) {
	if len(taskIDs) == 0 {
		return s.subtasks.ListByOwner(ctx, owner)
	}
	return s.subtasks.ListByTaskIDs(ctx, owner, taskIDs)
}

func (s *taskService) UpdateNote(ctx context.Context, owner, ref int64, byCanvasID bool, description string) (*models.Task, error) {
	if len(description) > models.MaxDescriptionLength {
		return nil, fmt.Errorf("description exceeds %d characters", models.MaxDescriptionLength)
	}

	var task *models.Task
	var err error
	if byCanvasID {
		task, err = s.tasks.FindByCanvasID(ctx, owner, ref)
	} else {
		task, err = s.tasks.FindByID(ctx, ref)
		if err == nil && task != nil && task.Owner != owner {
			task = nil
		}
	}
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, ErrNotFound
	}

	if err := s.tasks.SetDescription(ctx, task.ID, description); err != nil {
		return nil, err
	}
	task.Description = description
	log.Printf("[task][note][ok] owner=%d task=%d", owner, task.ID)
	return task, nil
}

// SetOpenState forces an item open or closed both locally and remotely.
// Shared subtasks are rejected with ErrSharedSubtaskToggleOnly: updating only
// the caller's mirror would drift it from the other participants'.
func (s *taskService) SetOpenState(ctx context.Context, owner int64, todoistID string, open bool) error {
	status := models.StatusCompleted
	if open {
		status = models.StatusIncomplete
	}

	var persist func() error
	if task, err := s.tasks.FindByTodoistID(ctx, owner, todoistID); err != nil {
		return err
	} else if task != nil {
		persist = func() error { return s.tasks.SetStatus(ctx, task.ID, status) }
	} else if subtask, err := s.subtasks.FindByTodoistID(ctx, owner, todoistID); err != nil {
		return err
	} else if subtask != nil {
		if subtask.Shared() {
			return ErrSharedSubtaskToggleOnly
		}
		persist = func() error { return s.subtasks.SetStatus(ctx, subtask.ID, status) }
	} else {
		return ErrNotFound
	}

	token, err := s.creds.DecryptTodoistKey(owner)
	if err != nil {
		return err
	}
	if err := s.todoist.SetOpen(ctx, token, todoistID, open); err != nil {
		return translateRemoteErr(err)
	}
	return persist()
}

func (s *taskService) ToggleStatus(ctx context.Context, owner int64, todoistID string) (models.TaskStatus, error) {
	// Owner's own subtask first, shared or not.
	subtask, err := s.subtasks.FindByTodoistID(ctx, owner, todoistID)
	if err != nil {
		return "", err
	}
	if subtask != nil {
		if subtask.Shared() {
			toggled, err := s.share.ToggleShared(ctx, subtask)
			if err != nil {
				return "", err
			}
			return toggled.Status, nil
		}
		return s.toggleLocal(ctx, owner, todoistID, subtask.Status,
			func(status models.TaskStatus) error { return s.subtasks.SetStatus(ctx, subtask.ID, status) })
	}

	// A participant mirror of someone else's shared subtask.
	link, err := s.shared.FindByTodoistID(ctx, owner, todoistID)
	if err != nil {
		return "", err
	}
	if link != nil {
		origin, err := s.subtasks.FindByID(ctx, link.SubtaskID)
		if err != nil {
			return "", err
		}
		if origin == nil {
			return "", ErrNotFound
		}
		toggled, err := s.share.ToggleShared(ctx, origin)
		if err != nil {
			return "", err
		}
		return toggled.Status, nil
	}

	task, err := s.tasks.FindByTodoistID(ctx, owner, todoistID)
	if err != nil {
		return "", err
	}
	if task != nil {
		return s.toggleLocal(ctx, owner, todoistID, task.Status,
			func(status models.TaskStatus) error { return s.tasks.SetStatus(ctx, task.ID, status) })
	}
	return "", ErrNotFound
}

// toggleLocal flips a private item: remote first, database second, so a
// remote failure leaves both sides unchanged.
func (s *taskService) toggleLocal(ctx context.Context, owner int64, todoistID string, current models.TaskStatus, persist func(models.TaskStatus) error) (models.TaskStatus, error) {
	next := current.Toggled()

	token, err := s.creds.DecryptTodoistKey(owner)
	if err != nil {
		return "", err
	}
	if err := s.todoist.SetOpen(ctx, token, todoistID, next == models.StatusIncomplete); err != nil {
		return "", translateRemoteErr(err)
	}
	if err := persist(next); err != nil {
		return "", err
	}
	return next, nil
}
