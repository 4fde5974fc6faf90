package repositories

import (
	"context"
	"database/sql"

	"eagletask/internal/models"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id int64) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateTokens(ctx context.Context, id int64, canvasTokenEnc, todoistTokenEnc []byte) error
	SetTelegramChat(ctx context.Context, id int64, chatID int64) error
}

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, username, email, password_hash, canvas_id, canvas_name,
	canvas_token_enc, todoist_token_enc, telegram_chat_id, created_at`

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (username, email, password_hash, canvas_id, canvas_name,
			canvas_token_enc, todoist_token_enc, telegram_chat_id, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NOW())
		RETURNING id, created_at`
	return r.db.QueryRowContext(ctx, query,
		user.Username, user.Email, user.PasswordHash, user.CanvasID, user.CanvasName,
		user.CanvasTokenEnc, user.TodoistTokenEnc, user.TelegramChatID,
	).Scan(&user.ID, &user.CreatedAt)
}

func (r *userRepository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, email))
}

func (r *userRepository) UpdateTokens(ctx context.Context, id int64, canvasTokenEnc, todoistTokenEnc []byte) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET canvas_token_enc=$1, todoist_token_enc=$2 WHERE id=$3`,
		canvasTokenEnc, todoistTokenEnc, id)
	return err
}

func (r *userRepository) SetTelegramChat(ctx context.Context, id int64, chatID int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET telegram_chat_id=$1 WHERE id=$2`, chatID, id)
	return err
}

func (r *userRepository) scanOne(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&user.CanvasID, &user.CanvasName, &user.CanvasTokenEnc, &user.TodoistTokenEnc,
		&user.TelegramChatID, &user.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}
