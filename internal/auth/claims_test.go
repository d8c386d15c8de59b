package auth

import (
	"testing"
	"time"

	"craftsmen_front/internal/models"
	"craftsmen_front/pkg/apperrors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signed(t *testing.T, claims jwt.Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("server-secret"))
	require.NoError(t, err)
	return token
}

func TestInspect(t *testing.T) {
	exp := time.Now().Add(time.Hour)
	token := signed(t, jwt.MapClaims{"id": "u1", "role": "craftsman", "exp": exp.Unix()})

	claims, err := Inspect(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject())
	assert.Equal(t, &models.User{ID: "u1", Role: models.UserRoleCraftsman}, claims.User())
	assert.False(t, claims.Expired(time.Now()))
	assert.True(t, claims.Expired(exp.Add(time.Second)))
}

func TestInspect_SubjectFallbacks(t *testing.T) {
	claims, err := Inspect(signed(t, jwt.MapClaims{"userId": "u2", "id": "ignored"}))
	require.NoError(t, err)
	assert.Equal(t, "u2", claims.Subject())

	claims, err = Inspect(signed(t, jwt.MapClaims{"sub": "u3"}))
	require.NoError(t, err)
	assert.Equal(t, "u3", claims.Subject())
	assert.False(t, claims.Expired(time.Now()))
}

func TestInspect_Invalid(t *testing.T) {
	_, err := Inspect("not-a-jwt")
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidToken))

	_, err = Inspect(signed(t, jwt.MapClaims{"role": "client"}))
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidToken))
}
