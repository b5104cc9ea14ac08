package server

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/site-generator/internal/config"
)

const testSecret = "test-secret-key-for-operator-tokens"

func setupTestTokenService(_ *testing.T, expirationHours int) *TokenService {
	return NewTokenService(&config.AuthConfig{Secret: testSecret, ExpirationHours: expirationHours})
}

func TestTokenService_GenerateAndValidate(t *testing.T) {
	service := setupTestTokenService(t, 24)

	token, err := service.GenerateToken("ops")
	require.NoError(t, err)
	assert.Len(t, strings.Split(token, "."), 3, "JWT should have 3 parts separated by dots")

	claims, err := service.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.Operator)
	assert.Equal(t, "ops", claims.Subject)
	assert.Equal(t, "ops", claims.GetOperator())
}

func TestTokenService_GenerateToken_RequiresOperator(t *testing.T) {
	service := setupTestTokenService(t, 24)

	_, err := service.GenerateToken("   ")
	assert.Error(t, err)
}

func TestTokenService_ExpiredToken(t *testing.T) {
	service := setupTestTokenService(t, 1)
	issued := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	service.now = func() time.Time { return issued }

	token, err := service.GenerateToken("ops")
	require.NoError(t, err)

	service.now = func() time.Time { return issued.Add(59 * time.Minute) }
	_, err = service.ValidateToken(token)
	require.NoError(t, err)

	service.now = func() time.Time { return issued.Add(61 * time.Minute) }
	_, err = service.ValidateToken(token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token expired")
}

func TestTokenService_RejectsOtherSecret(t *testing.T) {
	other := NewTokenService(&config.AuthConfig{Secret: "a-completely-different-secret", ExpirationHours: 1})
	token, err := other.GenerateToken("ops")
	require.NoError(t, err)

	_, err = setupTestTokenService(t, 1).ValidateToken(token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid token signature")
}

func TestTokenService_RejectsMalformedAndEmpty(t *testing.T) {
	service := setupTestTokenService(t, 1)

	_, err := service.ValidateToken("")
	assert.EqualError(t, err, "token string is empty")

	_, err = service.ValidateToken("not.a.jwt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed token")
}

func TestTokenService_RejectsNoneAlgorithm(t *testing.T) {
	service := setupTestTokenService(t, 1)
	claims := &Claims{
		Operator: "ops",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = service.ValidateToken(token)
	assert.Error(t, err)
}

func TestTokenService_RejectsTokenWithoutOperator(t *testing.T) {
	service := setupTestTokenService(t, 1)
	claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = service.ValidateToken(token)
	assert.EqualError(t, err, "token has no operator")
}

func TestTokenService_AsTokenValidator(t *testing.T) {
	service := setupTestTokenService(t, 1)
	token, err := service.GenerateToken("ops")
	require.NoError(t, err)

	got, err := service.AsTokenValidator().ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ops", got.GetOperator())

	_, err = service.AsTokenValidator().ValidateToken("bogus")
	assert.Error(t, err)
}
