package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"eagletask/internal/services"
)

type UserHandler struct {
	userService services.UserService
}

func NewUserHandler(userService services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// @Summary      Current account
// @Tags         Users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  models.User
// @Failure      404  {object}  map[string]string
// @Router       /users/me [get]
func (h *UserHandler) Me(c *gin.Context) {
	userID := currentUser(c)
	user, err := h.userService.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, "[user][me]", err)
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	c.JSON(http.StatusOK, user)
}

// @Summary      Link a Telegram chat
// @Description  Stores the chat id used for share-invitation notices.
// @Tags         Users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        link  body      object  true  "chat_id"
// @Success      200   {object}  map[string]string
// @Failure      400   {object}  map[string]string
// @Router       /users/telegram [post]
func (h *UserHandler) LinkTelegram(c *gin.Context) {
	var req struct {
		ChatID int64 `json:"chat_id" binding:"required"`
	}
	userID := currentUser(c)

	if err := c.ShouldBindJSON(&req); err != nil {
		log.Printf("[user][telegram][bind][err] %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.userService.LinkTelegramChat(c.Request.Context(), userID, req.ChatID); err != nil {
		respondServiceError(c, "[user][telegram]", err)
		return
	}
	log.Printf("[user][telegram][ok] userID=%d chatID=%d", userID, req.ChatID)
	c.JSON(http.StatusOK, gin.H{"message": "telegram linked"})
}

// @Summary      Replace API tokens
// @Description  Verifies the password and the new Canvas token, then re-seals and stores both tokens. The live session picks up the new pair immediately.
// @Tags         Users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        tokens  body      object  true  "password, canvas_token, todoist_token"
// @Success      200     {object}  map[string]string
// @Failure      400     {object}  map[string]string
// @Failure      401     {object}  map[string]string
// @Router       /users/tokens [post]
func (h *UserHandler) RotateTokens(c *gin.Context) {
	var req struct {
		Password     string `json:"password" binding:"required"`
		CanvasToken  string `json:"canvas_token" binding:"required"`
		TodoistToken string `json:"todoist_token" binding:"required"`
	}
	userID := currentUser(c)
	sessionID := currentSession(c)

	if err := c.ShouldBindJSON(&req); err != nil {
		log.Printf("[user][tokens][bind][err] %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.userService.RotateTokens(c.Request.Context(), userID, sessionID,
		req.Password, req.CanvasToken, req.TodoistToken)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			log.Printf("[user][tokens][deny] userID=%d", userID)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "wrong password"})
			return
		}
		respondServiceError(c, "[user][tokens]", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "tokens updated"})
}
