package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaustav-de/pong-backend/config"
	"github.com/kaustav-de/pong-backend/internal/game"
)

func testService() *Service {
	return NewService(nil, config.Config{JWTSecret: "test-secret"})
}

func TestTokenRoundTrip(t *testing.T) {
	svc := testService()

	token, err := svc.issueToken("user-1", "alice")
	require.NoError(t, err)

	player, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, game.Player{ID: "user-1", Username: "alice"}, player)
}

func TestValidateTokenMissing(t *testing.T) {
	svc := testService()

	_, err := svc.ValidateToken("")
	require.Error(t, err)
	assert.Equal(t, game.KindAuth, game.KindOf(err))
}

func TestValidateTokenGarbage(t *testing.T) {
	svc := testService()

	_, err := svc.ValidateToken("not-a-token")
	require.Error(t, err)
	assert.Equal(t, game.KindAuth, game.KindOf(err))
}

func TestValidateTokenWrongSecret(t *testing.T) {
	svc := testService()

	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  "user-1",
		"username": "alice",
		"exp":      time.Now().Add(time.Hour).Unix(),
	})
	tokenString, err := forged.SignedString([]byte("other-secret"))
	require.NoError(t, err)

	_, err = svc.ValidateToken(tokenString)
	require.Error(t, err)
	assert.Equal(t, game.KindAuth, game.KindOf(err))
}

func TestValidateTokenExpired(t *testing.T) {
	svc := testService()

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  "user-1",
		"username": "alice",
		"exp":      time.Now().Add(-time.Hour).Unix(),
	})
	tokenString, err := expired.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = svc.ValidateToken(tokenString)
	require.Error(t, err)
	assert.Equal(t, game.KindAuth, game.KindOf(err))
}

func TestValidateTokenMissingClaims(t *testing.T) {
	svc := testService()

	anonymous := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	tokenString, err := anonymous.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = svc.ValidateToken(tokenString)
	require.Error(t, err)
	assert.Equal(t, game.KindAuth, game.KindOf(err))
}
