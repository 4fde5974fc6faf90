package repositories

import (
	"context"
	"database/sql"

	"eagletask/internal/models"
)

type InvitationRepository interface {
	Store(ctx context.Context, inv *models.SubTaskInvitation) error
	FindByID(ctx context.Context, id int64) (*models.SubTaskInvitation, error)
	ListByRecipient(ctx context.Context, recipientID int64) ([]models.SubTaskInvitation, error)
	Delete(ctx context.Context, id int64) error
}

type invitationRepository struct {
	db *sql.DB
}

func NewInvitationRepository(db *sql.DB) InvitationRepository {
	return &invitationRepository{db: db}
}

func (r *invitationRepository) Store(ctx context.Context, inv *models.SubTaskInvitation) error {
	query := `
		INSERT INTO subtask_invitations (owner, recipient_id, subtask_id)
		VALUES ($1,$2,$3)
		RETURNING id`
	return r.db.QueryRowContext(ctx, query, inv.Owner, inv.RecipientID, inv.SubtaskID).Scan(&inv.ID)
}

func (r *invitationRepository) FindByID(ctx context.Context, id int64) (*models.SubTaskInvitation, error) {
	query := `SELECT id, owner, recipient_id, subtask_id FROM subtask_invitations WHERE id = $1`
	inv := &models.SubTaskInvitation{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&inv.ID, &inv.Owner, &inv.RecipientID, &inv.SubtaskID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return inv, nil
}

func (r *invitationRepository) ListByRecipient(ctx context.Context, recipientID int64) ([]models.SubTaskInvitation, error) {
	query := `SELECT id, owner, recipient_id, subtask_id FROM subtask_invitations
		WHERE recipient_id = $1 ORDER BY id ASC`
	rows, err := r.db.QueryContext(ctx, query, recipientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.SubTaskInvitation
	for rows.Next() {
		var inv models.SubTaskInvitation
		if err := rows.Scan(&inv.ID, &inv.Owner, &inv.RecipientID, &inv.SubtaskID); err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (r *invitationRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM subtask_invitations WHERE id = $1`, id)
	return err
}
