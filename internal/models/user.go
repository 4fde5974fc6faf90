// internal/models/user.go
package models

import "time"

// User represents an account with linked Canvas and Todoist credentials.
// The API tokens are stored envelope-encrypted: at rest they are sealed
// with the user's login password, and for the lifetime of a session a copy
// sealed with the session key lives in the credential cache.
type User struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`

	CanvasID   int64  `json:"canvas_id"`
	CanvasName string `json:"canvas_name"`

	// Tokens encrypted with the login password.
	CanvasTokenEnc  []byte `json:"-"`
	TodoistTokenEnc []byte `json:"-"`

	// Optional Telegram link for share-invitation notices.
	TelegramChatID int64 `json:"-"`

	CreatedAt time.Time `json:"created_at"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RegisterRequest struct {
	Username     string `json:"username" binding:"required"`
	Email        string `json:"email" binding:"required"`
	Password     string `json:"password" binding:"required"`
	CanvasToken  string `json:"canvas_token" binding:"required"`
	TodoistToken string `json:"todoist_token" binding:"required"`
}
