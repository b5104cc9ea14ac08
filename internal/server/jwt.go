package server

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jonathan/site-generator/internal/config"
	"github.com/jonathan/site-generator/internal/server/middleware"
)

// Claims identifies the operator a token was minted for.
type Claims struct {
	Operator string `json:"operator"`
	jwt.RegisteredClaims
}

// GetOperator implements middleware.OperatorGetter.
func (c *Claims) GetOperator() string {
	return c.Operator
}

// TokenService signs and validates operator bearer tokens.
type TokenService struct {
	config *config.AuthConfig
	now    func() time.Time
}

// NewTokenService creates a token service with the given configuration.
func NewTokenService(cfg *config.AuthConfig) *TokenService {
	return &TokenService{config: cfg, now: time.Now}
}

// AsTokenValidator adapts the service to the middleware without an import cycle.
func (s *TokenService) AsTokenValidator() middleware.TokenValidator {
	return &tokenValidator{service: s}
}

type tokenValidator struct {
	service *TokenService
}

func (v *tokenValidator) ValidateToken(tokenString string) (middleware.OperatorGetter, error) {
	claims, err := v.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// GenerateToken mints a token for operator.
func (s *TokenService) GenerateToken(operator string) (string, error) {
	operator = strings.TrimSpace(operator)
	if operator == "" {
		return "", fmt.Errorf("operator name is required")
	}

	now := s.now()
	claims := &Claims{
		Operator: operator,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   operator,
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(s.config.ExpirationHours) * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// ValidateToken validates tokenString and returns its claims.
func (s *TokenService) ValidateToken(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("token string is empty")
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, fmt.Errorf("invalid token signature: %w", err)
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, fmt.Errorf("token expired: %w", err)
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, fmt.Errorf("malformed token: %w", err)
		}
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("token is not valid")
	}
	if claims.Operator == "" {
		return nil, fmt.Errorf("token has no operator")
	}
	return claims, nil
}
