package config

import "fmt"

// AuthConfig holds the operator token signing settings.
type AuthConfig struct {
	Secret          string
	ExpirationHours int
}

// Auth returns the operator auth settings, or nil when no secret is configured
// and mutating endpoints stay open.
func (c *Config) Auth() (*AuthConfig, error) {
	if c.AuthSecret == "" {
		return nil, nil
	}
	auth := &AuthConfig{Secret: c.AuthSecret, ExpirationHours: c.AuthTokenHours}
	if err := auth.normalize(); err != nil {
		return nil, err
	}
	return auth, nil
}

func (a *AuthConfig) normalize() error {
	if len(a.Secret) < 16 {
		return fmt.Errorf("auth_secret must be at least 16 characters")
	}
	if a.ExpirationHours < 1 {
		return fmt.Errorf("auth_token_hours must be at least 1 hour, got: %d", a.ExpirationHours)
	}
	return nil
}
