package repositories

import (
	"context"
	"database/sql"

	"eagletask/internal/models"
)

// SharedSubtaskRepository stores one row per (shared subtask, participant)
// beyond the original owner. Rows are removed by the database cascade when
// the underlying subtask is deleted.
type SharedSubtaskRepository interface {
	Store(ctx context.Context, link *models.SharedSubtaskLink) error
	ListBySubtask(ctx context.Context, subtaskID int64) ([]models.SharedSubtaskLink, error)
	FindByTodoistID(ctx context.Context, owner int64, todoistID string) (*models.SharedSubtaskLink, error)
	Delete(ctx context.Context, id int64) error
}

type sharedSubtaskRepository struct {
	db *sql.DB
}

func NewSharedSubtaskRepository(db *sql.DB) SharedSubtaskRepository {
	return &sharedSubtaskRepository{db: db}
}

func (r *sharedSubtaskRepository) Store(ctx context.Context, link *models.SharedSubtaskLink) error {
	query := `
		INSERT INTO shared_subtasks (owner, subtask_id, todoist_original, todoist_id)
		VALUES ($1,$2,$3,$4)
		RETURNING id`
	return r.db.QueryRowContext(ctx, query,
		link.Owner, link.SubtaskID, link.TodoistOriginal, link.TodoistID,
	).Scan(&link.ID)
}

func (r *sharedSubtaskRepository) ListBySubtask(ctx context.Context, subtaskID int64) ([]models.SharedSubtaskLink, error) {
	query := `SELECT id, owner, subtask_id, todoist_original, todoist_id
		FROM shared_subtasks WHERE subtask_id = $1 ORDER BY id ASC`
	rows, err := r.db.QueryContext(ctx, query, subtaskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []models.SharedSubtaskLink
	for rows.Next() {
		var l models.SharedSubtaskLink
		if err := rows.Scan(&l.ID, &l.Owner, &l.SubtaskID, &l.TodoistOriginal, &l.TodoistID); err != nil {
			return nil, err
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

func (r *sharedSubtaskRepository) FindByTodoistID(ctx context.Context, owner int64, todoistID string) (*models.SharedSubtaskLink, error) {
	query := `SELECT id, owner, subtask_id, todoist_original, todoist_id
		FROM shared_subtasks WHERE owner = $1 AND todoist_id = $2`
	link := &models.SharedSubtaskLink{}
	err := r.db.QueryRowContext(ctx, query, owner, todoistID).Scan(
		&link.ID, &link.Owner, &link.SubtaskID, &link.TodoistOriginal, &link.TodoistID,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return link, nil
}

func (r *sharedSubtaskRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM shared_subtasks WHERE id = $1`, id)
	return err
}
