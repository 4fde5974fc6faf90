package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"eagletask/internal/middleware"
	"eagletask/internal/models"
	"eagletask/internal/services"
)

type AuthHandler struct {
	userService services.UserService
}

func NewAuthHandler(userService services.UserService) *AuthHandler {
	return &AuthHandler{userService: userService}
}

// @Summary      Register an account
// @Description  Creates an account and verifies the Canvas token. Both API tokens are stored encrypted with the login password.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        register  body      models.RegisterRequest  true  "Registration data"
// @Success      201       {object}  models.User
// @Failure      400       {object}  map[string]string
// @Failure      409       {object}  map[string]string
// @Router       /register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Printf("[auth][register] bad request: bind json failed: err=%v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	log.Printf("[auth][register] attempt email=%q", req.Email)

	user, err := h.userService.Register(c.Request.Context(), &req)
	if err != nil {
		log.Printf("[auth][register][err] email=%q: %v", req.Email, err)
		if strings.Contains(err.Error(), "already registered") {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	log.Printf("[auth][register][ok] userID=%d", user.ID)
	c.JSON(http.StatusCreated, user)
}

// @Summary      Log in
// @Description  Verifies the password, unseals the API tokens into the session cache and returns an access token.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        login  body      models.LoginRequest  true  "Login data"
// @Success      200    {object}  map[string]interface{}
// @Failure      400    {object}  map[string]string
// @Failure      401    {object}  map[string]string
// @Failure      500    {object}  map[string]string
// @Router       /login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	start := time.Now()

	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Printf("[auth][login] bad request: bind json failed: err=%v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	email := strings.TrimSpace(req.Email)
	log.Printf("[auth][login] attempt email=%q", email)

	user, sessionID, err := h.userService.Login(c.Request.Context(), email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			log.Printf("[auth][login][deny] email=%q", email)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
			return
		}
		log.Printf("[auth][login][err] email=%q: %v", email, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
		return
	}

	claims := &middleware.Claims{
		UserID:    user.ID,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(12 * time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(middleware.JWTKey())
	if err != nil {
		log.Printf("[auth][login] sign access token failed for userID=%d: err=%v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate access token"})
		return
	}

	log.Printf("[auth][login] success userID=%d took=%s", user.ID, time.Since(start).Truncate(time.Millisecond))
	c.JSON(http.StatusOK, gin.H{
		"message":      "Login successful",
		"user":         user, // PasswordHash and tokens are json:"-", never leave the server
		"access_token": tokenString,
	})
}

// @Summary      Log out
// @Description  Drops the session's credential-cache entry; the decrypted API tokens become unreachable immediately.
// @Tags         Auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]string
// @Router       /logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	sessionID := currentSession(c)
	if sessionID != "" {
		h.userService.Logout(sessionID)
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}
