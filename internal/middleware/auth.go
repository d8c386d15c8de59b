package middleware

import (
	"craftsmen_front/internal/logger"
	"craftsmen_front/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

// SessionSource - сессия, которую обслуживает локальный сервер
type SessionSource interface {
	Token() (string, bool)
	UserID() string
}

// SessionMiddleware пропускает запрос только при готовой сессии.
// ID пользователя кладется в gin-контекст и в контекст логгера.
func SessionMiddleware(sess SessionSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := sess.Token(); !ok {
			apperrors.HandleError(c, apperrors.ErrNotReady)
			c.Abort()
			return
		}

		if userID := sess.UserID(); userID != "" {
			c.Set("userID", userID)
			c.Request = c.Request.WithContext(logger.WithUserID(c.Request.Context(), userID))
		}
		c.Next()
	}
}
