package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"eagletask/internal/models"
)

type SubTaskRepository interface {
	Store(ctx context.Context, subtask *models.SubTask) error
	FindByID(ctx context.Context, id int64) (*models.SubTask, error)
	FindByTodoistID(ctx context.Context, owner int64, todoistID string) (*models.SubTask, error)
	ListByOwner(ctx context.Context, owner int64) ([]models.SubTask, error)
	ListByTaskIDs(ctx context.Context, owner int64, taskIDs []int64) ([]models.SubTask, error)
	BindTodoistID(ctx context.Context, id int64, todoistID string) error
	SetStatus(ctx context.Context, id int64, status models.TaskStatus) error
	SetDueDate(ctx context.Context, id int64, dueDate *time.Time) error
	SetSharedWith(ctx context.Context, id int64, sharedWith []int64) error
	Delete(ctx context.Context, id int64) error
}

type subTaskRepository struct {
	db *sql.DB
}

func NewSubTaskRepository(db *sql.DB) SubTaskRepository {
	return &subTaskRepository{db: db}
}

const subtaskColumns = `id, owner, task_id, todoist_id, name, description, status, due_date, shared_with`

func (r *subTaskRepository) Store(ctx context.Context, subtask *models.SubTask) error {
	shared, err := encodeSharedWith(subtask.SharedWith)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO subtasks (owner, task_id, todoist_id, name, description, status, due_date, shared_with)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING id`
	return r.db.QueryRowContext(ctx, query,
		subtask.Owner, subtask.TaskID, subtask.TodoistID, subtask.Name,
		subtask.Description, subtask.Status, subtask.DueDate, shared,
	).Scan(&subtask.ID)
}

func (r *subTaskRepository) FindByID(ctx context.Context, id int64) (*models.SubTask, error) {
	query := `SELECT ` + subtaskColumns + ` FROM subtasks WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *subTaskRepository) FindByTodoistID(ctx context.Context, owner int64, todoistID string) (*models.SubTask, error) {
	query := `SELECT ` + subtaskColumns + ` FROM subtasks WHERE owner = $1 AND todoist_id = $2`
	return r.scanOne(r.db.QueryRowContext(ctx, query, owner, todoistID))
}

func (r *subTaskRepository) ListByOwner(ctx context.Context, owner int64) ([]models.SubTask, error) {
	query := `SELECT ` + subtaskColumns + ` FROM subtasks WHERE owner = $1 ORDER BY id ASC`
	rows, err := r.db.QueryContext(ctx, query, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanAll(rows)
}

func (r *subTaskRepository) ListByTaskIDs(ctx context.Context, owner int64, taskIDs []int64) ([]models.SubTask, error) {
	query := `SELECT ` + subtaskColumns + ` FROM subtasks WHERE owner = $1 AND task_id = ANY($2) ORDER BY id ASC`
	rows, err := r.db.QueryContext(ctx, query, owner, pq.Array(taskIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanAll(rows)
}

func (r *subTaskRepository) BindTodoistID(ctx context.Context, id int64, todoistID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE subtasks SET todoist_id=$1 WHERE id=$2`, todoistID, id)
	return err
}

func (r *subTaskRepository) SetStatus(ctx context.Context, id int64, status models.TaskStatus) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE subtasks SET status=$1 WHERE id=$2`, status, id)
	return err
}

func (r *subTaskRepository) SetDueDate(ctx context.Context, id int64, dueDate *time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE subtasks SET due_date=$1 WHERE id=$2`, dueDate, id)
	return err
}

func (r *subTaskRepository) SetSharedWith(ctx context.Context, id int64, sharedWith []int64) error {
	shared, err := encodeSharedWith(sharedWith)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`UPDATE subtasks SET shared_with=$1 WHERE id=$2`, shared, id)
	return err
}

func (r *subTaskRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM subtasks WHERE id = $1`, id)
	return err
}

func (r *subTaskRepository) scanOne(row *sql.Row) (*models.SubTask, error) {
	st := &models.SubTask{}
	var shared []byte
	err := row.Scan(
		&st.ID, &st.Owner, &st.TaskID, &st.TodoistID, &st.Name,
		&st.Description, &st.Status, &st.DueDate, &shared,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if err := decodeSharedWith(shared, &st.SharedWith); err != nil {
		return nil, err
	}
	return st, nil
}

func (r *subTaskRepository) scanAll(rows *sql.Rows) ([]models.SubTask, error) {
	var out []models.SubTask
	for rows.Next() {
		var st models.SubTask
		var shared []byte
		if err := rows.Scan(
			&st.ID, &st.Owner, &st.TaskID, &st.TodoistID, &st.Name,
			&st.Description, &st.Status, &st.DueDate, &shared,
		); err != nil {
			return nil, err
		}
		if err := decodeSharedWith(shared, &st.SharedWith); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// shared_with is a jsonb column holding the participant account ids.
func encodeSharedWith(ids []int64) ([]byte, error) {
	if ids == nil {
		ids = []int64{}
	}
	return json.Marshal(ids)
}

func decodeSharedWith(raw []byte, into *[]int64) error {
	if len(raw) == 0 {
		*into = nil
		return nil
	}
	if err := json.Unmarshal(raw, into); err != nil {
		return fmt.Errorf("decode shared_with: %w", err)
	}
	return nil
}
