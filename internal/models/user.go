package models

// User - аутентифицированный пользователь, как его возвращает /auth/login
type User struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Email  string   `json:"email"`
	Role   UserRole `json:"role" validate:"omitempty,is-user-role"`
	Avatar *string  `json:"avatar,omitempty"`
}
