package session

import (
	"context"
	"sync"

	"craftsmen_front/internal/logger"
	"craftsmen_front/internal/models"
	"craftsmen_front/internal/validator"
)

// TokenSource отдает текущий токен доступа.
// ok == false означает "сессия еще не готова".
type TokenSource interface {
	Token() (string, bool)
}

// Static - токен, переданный явно (конфиг, тесты)
type Static string

func (s Static) Token() (string, bool) {
	return string(s), s != ""
}

// Credentials - вход по email/паролю
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// LoginResult - ответ POST /auth/login
type LoginResult struct {
	Token string      `json:"token" validate:"required"`
	User  models.User `json:"user"`
}

// Authenticator - удаленная сторона, выдающая токены
type Authenticator interface {
	Login(ctx context.Context, creds Credentials) (*LoginResult, error)
}

// Store хранит токен и пользователя текущей сессии
type Store struct {
	auth      Authenticator
	validator *validator.Validator

	mu      sync.RWMutex
	token   string
	user    *models.User
	waiters []chan struct{}
}

func NewStore(auth Authenticator, v *validator.Validator) *Store {
	if v == nil {
		v = validator.New()
	}
	return &Store{auth: auth, validator: v}
}

func (s *Store) Token() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.token != ""
}

// User - пользователь сессии (nil до входа)
func (s *Store) User() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// UserID - ID пользователя сессии или ""
func (s *Store) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return ""
	}
	return s.user.ID
}

// Login проверяет учетные данные, вызывает API и сохраняет сессию
func (s *Store) Login(ctx context.Context, creds Credentials) (*models.User, error) {
	if err := s.validator.Validate(&creds); err != nil {
		return nil, err
	}

	res, err := s.auth.Login(ctx, creds)
	if err != nil {
		logger.CtxWarn(ctx, "login failed", "email", creds.Email, "error", err.Error())
		return nil, err
	}
	// ответ сервера тоже проверяем: роль должна быть известной
	if err := s.validator.Validate(res); err != nil {
		logger.CtxWarn(ctx, "login response rejected", "email", creds.Email, "error", err.Error())
		return nil, err
	}

	user := res.User
	s.Set(res.Token, &user)
	logger.CtxInfo(ctx, "session established", "user_id", user.ID, "role", user.Role)
	return s.User(), nil
}

// Set заменяет токен и пользователя (nil - пользователь неизвестен).
// Появление токена будит всех, кто ждет Ready.
func (s *Store) Set(token string, user *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = token
	s.user = nil
	if user != nil {
		u := *user
		s.user = &u
	}

	if token != "" {
		for _, ch := range s.waiters {
			close(ch)
		}
		s.waiters = nil
	}
}

// Clear завершает сессию
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.user = nil
}

// Ready возвращает канал, который закрывается, когда токен доступен
func (s *Store) Ready() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan struct{})
	if s.token != "" {
		close(ch)
		return ch
	}
	s.waiters = append(s.waiters, ch)
	return ch
}
