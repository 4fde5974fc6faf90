package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"eagletask/internal/services"
)

type ShareHandler struct {
	share services.ShareService
}

func NewShareHandler(share services.ShareService) *ShareHandler {
	return &ShareHandler{share: share}
}

// @Summary      Invite a user to a shared subtask
// @Description  Stores a pending invitation and notifies the recipient by email and, when linked, Telegram.
// @Tags         Shares
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        invite  body      object  true  "recipient_email, subtask_id"
// @Success      201     {object}  models.SubTaskInvitation
// @Failure      400     {object}  map[string]string
// @Router       /shares/invite [post]
func (h *ShareHandler) Invite(c *gin.Context) {
	var req struct {
		RecipientEmail string `json:"recipient_email" binding:"required"`
		SubtaskID      int64  `json:"subtask_id" binding:"required"`
	}
	userID := currentUser(c)

	if err := c.ShouldBindJSON(&req); err != nil {
		log.Printf("[share][invite][bind][err] %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	log.Printf("[share][invite] userID=%d recipient=%q subtask=%d", userID, req.RecipientEmail, req.SubtaskID)

	invitation, err := h.share.Invite(c.Request.Context(), userID, req.RecipientEmail, req.SubtaskID)
	if err != nil {
		respondServiceError(c, "[share][invite]", err)
		return
	}
	c.JSON(http.StatusCreated, invitation)
}

// @Summary      Respond to an invitation
// @Description  Accepting creates the recipient's own Todoist mirror and joins them to the shared fan-out set. Declining just removes the invitation.
// @Tags         Shares
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        response  body      object  true  "invitation_id, accept"
// @Success      200       {object}  map[string]string
// @Failure      400       {object}  map[string]string
// @Failure      404       {object}  map[string]string
// @Router       /shares/respond [post]
func (h *ShareHandler) Respond(c *gin.Context) {
	var req struct {
		InvitationID int64 `json:"invitation_id" binding:"required"`
		Accept       *bool `json:"accept" binding:"required"`
	}
	userID := currentUser(c)

	if err := c.ShouldBindJSON(&req); err != nil {
		log.Printf("[share][respond][bind][err] %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	log.Printf("[share][respond] userID=%d invitation=%d accept=%v", userID, req.InvitationID, *req.Accept)

	if err := h.share.Respond(c.Request.Context(), userID, req.InvitationID, *req.Accept); err != nil {
		respondServiceError(c, "[share][respond]", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}

// @Summary      List pending invitations
// @Tags         Shares
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}  models.SubTaskInvitation
// @Router       /shares/invitations [get]
func (h *ShareHandler) ListInvitations(c *gin.Context) {
	userID := currentUser(c)
	invitations, err := h.share.ListInvitations(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, "[share][invitations]", err)
		return
	}
	c.JSON(http.StatusOK, invitations)
}
