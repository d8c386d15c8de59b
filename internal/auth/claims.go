package auth

import (
	"time"

	"craftsmen_front/internal/models"
	"craftsmen_front/pkg/apperrors"

	"github.com/golang-jwt/jwt/v5"
)

// Claims - полезная нагрузка access-токена маркетплейса.
// Бэкенд кладет ID пользователя в id или userId, иногда только в sub.
type Claims struct {
	AccountID string          `json:"id,omitempty"`
	UserID    string          `json:"userId,omitempty"`
	Role      models.UserRole `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Subject - ID пользователя токена
func (c *Claims) Subject() string {
	switch {
	case c.UserID != "":
		return c.UserID
	case c.AccountID != "":
		return c.AccountID
	default:
		return c.RegisteredClaims.Subject
	}
}

// Expired - истек ли токен к моменту now. Токен без exp не истекает.
func (c *Claims) Expired(now time.Time) bool {
	if c.ExpiresAt == nil {
		return false
	}
	return !now.Before(c.ExpiresAt.Time)
}

// User - пользователь, восстановленный из токена
func (c *Claims) User() *models.User {
	return &models.User{ID: c.Subject(), Role: c.Role}
}

// Inspect читает claims без проверки подписи: секрет есть только у сервера,
// здесь токен нужен лишь чтобы узнать, чей он.
func Inspect(token string) (*Claims, error) {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return nil, apperrors.ErrInvalidToken.WithError(err)
	}
	if claims.Subject() == "" {
		return nil, apperrors.ErrInvalidToken.WithDetails(map[string]string{"reason": "token has no subject"})
	}
	return &claims, nil
}
