package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"startuppush/internal/auth"
	"startuppush/internal/db"
	"startuppush/internal/logger"
	"startuppush/internal/models"
)

const CheckUserKey = "user"

// SessionUserKey 上游登录系统写入 session 的字段
const SessionUserKey = "user_id"

// LoadUser 从 session 或 Bearer token 解析当前用户并放入 context，解析失败时按匿名处理
func LoadUser(store db.Store, signer *auth.Signer) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := sessionUserID(sessions.Default(c))

		if header := c.GetHeader("Authorization"); header != "" && signer != nil {
			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header format must be Bearer {token}"})
				return
			}
			id, err := signer.VerifyJWT(parts[1])
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
				return
			}
			userID = id
		}

		if userID != 0 {
			user, err := store.GetUser(c.Request.Context(), userID)
			if err == nil {
				c.Set(CheckUserKey, user)
				l := logger.Ctx(c.Request.Context()).With().Uint("user_id", user.ID).Logger()
				c.Request = c.Request.WithContext(l.WithContext(c.Request.Context()))
			} else {
				logger.Ctx(c.Request.Context()).Debug().Err(err).Uint("user_id", userID).Msg("session user not found")
			}
		}
		c.Next()
	}
}

func sessionUserID(session sessions.Session) uint {
	switch v := session.Get(SessionUserKey).(type) {
	case uint:
		return v
	case int:
		if v > 0 {
			return uint(v)
		}
	case int64:
		if v > 0 {
			return uint(v)
		}
	case float64:
		if v > 0 {
			return uint(v)
		}
	}
	return 0
}

// CurrentUser 未登录返回 nil
func CurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(CheckUserKey); ok {
		if u, ok := v.(*models.User); ok {
			return u
		}
	}
	return nil
}

// AuthRequired 未登录返回 401
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "login required"})
			return
		}
		c.Next()
	}
}

// AdminRequired 非管理员返回 403
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "login required"})
			return
		}
		if !user.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "permission denied"})
			return
		}
		c.Next()
	}
}
