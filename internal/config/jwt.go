package config

import (
	"fmt"
)

// JWTConfig holds configuration for JWT token generation and validation.
type JWTConfig struct {
	Secret          string
	ExpirationHours int
}

// JWT returns the token settings. An empty secret means the HTTP API runs
// without authentication, reported as (nil, nil).
func (c *Config) JWT() (*JWTConfig, error) {
	if c.JWTSecret == "" {
		return nil, nil
	}
	return NewJWTConfig(c.JWTSecret, c.JWTExpirationHours)
}

// NewJWTConfig creates a JWT configuration. Zero hours uses the 24 hour default.
func NewJWTConfig(secret string, expirationHours int) (*JWTConfig, error) {
	if expirationHours == 0 {
		expirationHours = DefaultJWTExpirationHours
	}
	cfg := &JWTConfig{
		Secret:          secret,
		ExpirationHours: expirationHours,
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// normalize validates the configuration.
func (c *JWTConfig) normalize() error {
	if c.Secret == "" {
		return &ValidationError{Field: "jwt_secret", Message: "cannot be empty"}
	}
	if len(c.Secret) < 16 {
		return &ValidationError{Field: "jwt_secret", Message: "must be at least 16 characters"}
	}
	if c.ExpirationHours < 1 {
		return &ValidationError{Field: "jwt_expiration_hours", Message: fmt.Sprintf("must be at least 1 hour, got: %d", c.ExpirationHours)}
	}
	return nil
}
