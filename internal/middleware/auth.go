package middleware

import (
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

var jwtKey = func() []byte {
	if k := os.Getenv("EAGLETASK_JWT_KEY"); k != "" {
		return []byte(k)
	}
	return []byte("dev-secret-key")
}()

// JWTKey is exported for handlers that sign tokens.
func JWTKey() []byte { return jwtKey }

// Claims carries the account id and the session id. The session id points at
// the credential-cache entry that holds the session-sealed API tokens, so a
// logged-out (or evicted) session fails credential lookups even while the
// JWT itself is still within its lifetime.
type Claims struct {
	UserID    int64  `json:"user_id"`
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

func isPublicPath(path string) bool {
	switch path {
	case "/login", "/register":
		return true
	}
	if strings.HasPrefix(path, "/swagger") || strings.HasPrefix(path, "/healthz") {
		return true
	}
	return false
}

func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}
		if isPublicPath(c.Request.URL.Path) {
			c.Next()
			return
		}

		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header"})
			return
		}
		tokenStr := strings.TrimSpace(parts[1])

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrTokenSignatureInvalid
			}
			return jwtKey, nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		const leeway = 2 * time.Minute
		now := time.Now().Add(-leeway)
		if claims.ExpiresAt == nil || claims.ExpiresAt.Time.Before(now) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("session_id", claims.SessionID)

		c.Next()
	}
}
