package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tippool/backend/internal/infrastructure/config"
)

func newTestService(expiration time.Duration) *JWTService {
	return NewJWTService(config.JWTConfig{
		Secret:          "test-secret-key-at-least-32-chars!!",
		TokenExpiration: expiration,
		Issuer:          "tippool-test",
	})
}

func TestGenerateAndValidateToken(t *testing.T) {
	svc := newTestService(time.Hour)
	locationID := uuid.New()
	userID := uuid.New()

	token, err := svc.GenerateToken(GenerateTokenInput{
		LocationID: locationID,
		UserID:     userID,
		Username:   "maría",
		Role:       "manager",
	})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", token.TokenType)
	assert.NotEmpty(t, token.Value)

	claims, err := svc.ValidateToken(token.Value)
	require.NoError(t, err)
	assert.Equal(t, "maría", claims.Username)
	assert.Equal(t, "manager", claims.Role)

	gotLocation, err := claims.GetLocationUUID()
	require.NoError(t, err)
	assert.Equal(t, locationID, gotLocation)

	gotUser, err := claims.GetUserUUID()
	require.NoError(t, err)
	assert.Equal(t, userID, gotUser)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	svc := newTestService(-time.Minute)

	token, err := svc.GenerateToken(GenerateTokenInput{
		LocationID: uuid.New(),
		UserID:     uuid.New(),
		Username:   "sam",
	})
	require.NoError(t, err)

	_, err = svc.ValidateToken(token.Value)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	svc := newTestService(time.Hour)
	other := NewJWTService(config.JWTConfig{
		Secret:          "a-completely-different-secret-key!!!",
		TokenExpiration: time.Hour,
		Issuer:          "tippool-test",
	})

	token, err := svc.GenerateToken(GenerateTokenInput{
		LocationID: uuid.New(),
		UserID:     uuid.New(),
		Username:   "sam",
	})
	require.NoError(t, err)

	_, err = other.ValidateToken(token.Value)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc := newTestService(time.Hour)
	_, err := svc.ValidateToken("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenRejectsMissingLocation(t *testing.T) {
	svc := newTestService(time.Hour)

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		UserID: uuid.New().String(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("test-secret-key-at-least-32-chars!!"))
	require.NoError(t, err)

	_, err = svc.ValidateToken(signed)
	assert.ErrorIs(t, err, ErrMissingLocation)
}
