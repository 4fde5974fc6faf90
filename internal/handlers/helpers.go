package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// tolerant of value types (int / int64 / float64 / string)
func getInt64FromCtx(c *gin.Context, key string) (int64, bool) {
	v, ok := c.Get(key)
	if !ok {
		return 0, false
	}
	switch t := v.(type) {
	case int:
		return int64(t), true
	case int64:
		return t, true
	case float64:
		return int64(t), true
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return n, true
		}
	}
	return 0, false
}

func currentUser(c *gin.Context) (userID int64) {
	if id, ok := getInt64FromCtx(c, "user_id"); ok {
		userID = id
	}
	return
}

func currentSession(c *gin.Context) string {
	if v, ok := c.Get("session_id"); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
