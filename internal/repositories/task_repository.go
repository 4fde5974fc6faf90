package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"eagletask/internal/models"
)

// ErrLinkageConflict means the (owner, canvas_id) uniqueness invariant was
// violated. It should not occur while sync runs are serialized per account;
// seeing it indicates a race or a programming bug, not a user error.
var ErrLinkageConflict = errors.New("task linkage conflict")

type TaskRepository interface {
	// GetOrCreate returns the task for (owner, canvasID) if one exists,
	// unchanged, or inserts a new unlinked task. Safe to call repeatedly
	// with the same canvasID within a run.
	GetOrCreate(ctx context.Context, owner, canvasID int64, name string, dueDate *time.Time) (*models.Task, error)
	Store(ctx context.Context, task *models.Task) error
	FindByID(ctx context.Context, id int64) (*models.Task, error)
	FindByCanvasID(ctx context.Context, owner, canvasID int64) (*models.Task, error)
	FindByTodoistID(ctx context.Context, owner int64, todoistID string) (*models.Task, error)
	FindAll(ctx context.Context, filter models.TaskFilter) ([]models.Task, error)
	BindTodoistID(ctx context.Context, id int64, todoistID string) error
	SetDueDate(ctx context.Context, id int64, dueDate *time.Time) error
	SetDescription(ctx context.Context, id int64, description string) error
	SetStatus(ctx context.Context, id int64, status models.TaskStatus) error
	Delete(ctx context.Context, id int64) error
}

type taskRepository struct {
	db *sql.DB
}

func NewTaskRepository(db *sql.DB) TaskRepository {
	return &taskRepository{db: db}
}

const taskColumns = `id, owner, canvas_id, todoist_id, name, description, due_date, status, created_at, updated_at`

func (r *taskRepository) GetOrCreate(ctx context.Context, owner, canvasID int64, name string, dueDate *time.Time) (*models.Task, error) {
	existing, err := r.FindByCanvasID(ctx, owner, canvasID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	task := &models.Task{
		Owner:    owner,
		CanvasID: &canvasID,
		Name:     name,
		DueDate:  dueDate,
		Status:   models.StatusIncomplete,
	}
	if err := r.Store(ctx, task); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			// Lost a race with a concurrent run; the unique index on
			// (owner, canvas_id) held, so the winner's row is ours.
			if again, ferr := r.FindByCanvasID(ctx, owner, canvasID); ferr == nil && again != nil {
				return again, nil
			}
			return nil, fmt.Errorf("%w: owner=%d canvas_id=%d", ErrLinkageConflict, owner, canvasID)
		}
		return nil, err
	}
	return task, nil
}

func (r *taskRepository) Store(ctx context.Context, task *models.Task) error {
	query := `
		INSERT INTO tasks (owner, canvas_id, todoist_id, name, description, due_date, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,NOW(),NOW())
		RETURNING id, created_at, updated_at`
	return r.db.QueryRowContext(ctx, query,
		task.Owner, task.CanvasID, task.TodoistID, task.Name, task.Description,
		task.DueDate, task.Status,
	).Scan(&task.ID, &task.CreatedAt, &task.UpdatedAt)
}

func (r *taskRepository) FindByID(ctx context.Context, id int64) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *taskRepository) FindByCanvasID(ctx context.Context, owner, canvasID int64) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE owner = $1 AND canvas_id = $2`
	return r.scanOne(r.db.QueryRowContext(ctx, query, owner, canvasID))
}

func (r *taskRepository) FindByTodoistID(ctx context.Context, owner int64, todoistID string) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE owner = $1 AND todoist_id = $2`
	return r.scanOne(r.db.QueryRowContext(ctx, query, owner, todoistID))
}

func (r *taskRepository) FindAll(ctx context.Context, filter models.TaskFilter) ([]models.Task, error) {
	baseQuery := `SELECT ` + taskColumns + ` FROM tasks`

	conditions := []string{}
	args := []interface{}{}
	argID := 1

	if filter.Owner != nil {
		conditions = append(conditions, fmt.Sprintf("owner = $%d", argID))
		args = append(args, *filter.Owner)
		argID++
	}
	if filter.CanvasID != nil {
		conditions = append(conditions, fmt.Sprintf("canvas_id = $%d", argID))
		args = append(args, *filter.CanvasID)
		argID++
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argID))
		args = append(args, *filter.Status)
		argID++
	}

	if len(conditions) > 0 {
		baseQuery += " WHERE " + strings.Join(conditions, " AND ")
	}
	baseQuery += " ORDER BY due_date ASC NULLS LAST, id ASC"

	rows, err := r.db.QueryContext(ctx, baseQuery, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		var t models.Task
		if err := rows.Scan(
			&t.ID, &t.Owner, &t.CanvasID, &t.TodoistID, &t.Name, &t.Description,
			&t.DueDate, &t.Status, &t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (r *taskRepository) BindTodoistID(ctx context.Context, id int64, todoistID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE tasks SET todoist_id=$1, updated_at=NOW() WHERE id=$2`, todoistID, id)
	return err
}

func (r *taskRepository) SetDueDate(ctx context.Context, id int64, dueDate *time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE tasks SET due_date=$1, updated_at=NOW() WHERE id=$2`, dueDate, id)
	return err
}

func (r *taskRepository) SetDescription(ctx context.Context, id int64, description string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE tasks SET description=$1, updated_at=NOW() WHERE id=$2`, description, id)
	return err
}

func (r *taskRepository) SetStatus(ctx context.Context, id int64, status models.TaskStatus) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE tasks SET status=$1, updated_at=NOW() WHERE id=$2`, status, id)
	return err
}

func (r *taskRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	return err
}

func (r *taskRepository) scanOne(row *sql.Row) (*models.Task, error) {
	task := &models.Task{}
	err := row.Scan(
		&task.ID, &task.Owner, &task.CanvasID, &task.TodoistID, &task.Name,
		&task.Description, &task.DueDate, &task.Status, &task.CreatedAt, &task.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return task, nil
}
