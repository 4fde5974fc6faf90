package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"eagletask/internal/canvas"
	"eagletask/internal/crypto"
	"eagletask/internal/models"
	"eagletask/internal/repositories"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

// UserService handles registration and the login/logout lifecycle. API
// tokens are stored sealed under the user's password; at login they are
// re-sealed under a random session key and parked in the credential cache,
// so the plain tokens never touch the database and are only reachable while
// a session is live.
type UserService interface {
	Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error)
	// Login verifies the password and installs the session; the returned
	// session id goes into the JWT so logout can find the cache entry.
	Login(ctx context.Context, email, password string) (*models.User, string, error)
	Logout(sessionID string)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	LinkTelegramChat(ctx context.Context, userID, chatID int64) error
	// RotateTokens replaces the stored API tokens. The password is needed to
	// seal the new pair; the caller's live session is refreshed so the new
	// tokens take effect without a re-login.
	RotateTokens(ctx context.Context, userID int64, sessionID, password, canvasToken, todoistToken string) error
}

type userService struct {
	repo   repositories.UserRepository
	auth   AuthService
	canvas canvas.Client
	creds  *CredentialCache
	email  EmailService
}

func NewUserService(
	repo repositories.UserRepository,
	auth AuthService,
	canvasClient canvas.Client,
	creds *CredentialCache,
	email EmailService,
) UserService {
	return &userService{
		repo:   repo,
		auth:   auth,
		canvas: canvasClient,
		creds:  creds,
		email:  email,
	}
}

func (s *userService) Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	email := strings.TrimSpace(req.Email)
	if email == "" || strings.TrimSpace(req.Password) == "" {
		return nil, fmt.Errorf("email and password are required")
	}
	if existing, err := s.repo.FindByEmail(ctx, email); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, fmt.Errorf("email %s is already registered", email)
	}

	// Verifying the Canvas token up front also gives us the profile the
	// sync engine tags tasks with.
	profile, err := s.canvas.GetProfile(ctx, req.CanvasToken)
	if err != nil {
		return nil, fmt.Errorf("canvas token check failed: %w", translateRemoteErr(err))
	}

	hash, err := s.auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	canvasEnc, err := crypto.EncryptString(req.CanvasToken, req.Password)
	if err != nil {
		return nil, err
	}
	todoistEnc, err := crypto.EncryptString(req.TodoistToken, req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:        req.Username,
		Email:           email,
		PasswordHash:    hash,
		CanvasID:        profile.ID,
		CanvasName:      profile.Name,
		CanvasTokenEnc:  canvasEnc,
		TodoistTokenEnc: todoistEnc,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}
	log.Printf("[user][register][ok] id=%d email=%q canvas=%d", user.ID, email, profile.ID)

	if s.email != nil {
		if err := s.email.SendWelcomeEmail(user.Email, user.Username); err != nil {
			log.Printf("[user][register][warn] welcome email to %s: %v", user.Email, err)
		}
	}
	return user, nil
}

func (s *userService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	email = strings.TrimSpace(email)
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, "", err
	}
	if user == nil {
		return nil, "", ErrInvalidCredentials
	}
	if err := s.auth.CheckPassword(user.PasswordHash, strings.TrimSpace(password)); err != nil {
		log.Printf("[user][login] bcrypt mismatch for userID=%d email=%q", user.ID, email)
		return nil, "", ErrInvalidCredentials
	}

	sessionKey, err := crypto.NewSessionKey()
	if err != nil {
		return nil, "", err
	}
	canvasEnc, err := crypto.ReencryptString(user.CanvasTokenEnc, password, sessionKey)
	if err != nil {
		// Tokens sealed under an older password cannot be opened anymore;
		// the user has to re-register their integrations.
		return nil, "", fmt.Errorf("unseal canvas token: %w", err)
	}
	todoistEnc, err := crypto.ReencryptString(user.TodoistTokenEnc, password, sessionKey)
	if err != nil {
		return nil, "", fmt.Errorf("unseal todoist token: %w", err)
	}

	sessionID := uuid.NewString()
	s.creds.PutSession(sessionID, user.ID, canvasEnc, todoistEnc, sessionKey)
	log.Printf("[user][login][ok] userID=%d session=%s", user.ID, sessionID)
	return user, sessionID, nil
}

func (s *userService) Logout(sessionID string) {
	s.creds.DropSession(sessionID)
	log.Printf("[user][logout] session=%s", sessionID)
}

func (s *userService) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *userService) LinkTelegramChat(ctx context.Context, userID, chatID int64) error {
	return s.repo.SetTelegramChat(ctx, userID, chatID)
}

func (s *userService) RotateTokens(ctx context.Context, userID int64, sessionID, password, canvasToken, todoistToken string) error {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrNotFound
	}
	if err := s.auth.CheckPassword(user.PasswordHash, password); err != nil {
		return ErrInvalidCredentials
	}
	if _, err := s.canvas.GetProfile(ctx, canvasToken); err != nil {
		return fmt.Errorf("canvas token check failed: %w", translateRemoteErr(err))
	}

	canvasEnc, err := crypto.EncryptString(canvasToken, password)
	if err != nil {
		return err
	}
	todoistEnc, err := crypto.EncryptString(todoistToken, password)
	if err != nil {
		return err
	}
	if err := s.repo.UpdateTokens(ctx, userID, canvasEnc, todoistEnc); err != nil {
		return err
	}

	sessionKey, err := crypto.NewSessionKey()
	if err != nil {
		return err
	}
	canvasSessEnc, err := crypto.EncryptString(canvasToken, sessionKey)
	if err != nil {
		return err
	}
	todoistSessEnc, err := crypto.EncryptString(todoistToken, sessionKey)
	if err != nil {
		return err
	}
	s.creds.PutSession(sessionID, userID, canvasSessEnc, todoistSessEnc, sessionKey)
	log.Printf("[user][tokens][ok] userID=%d", userID)
	return nil
}
