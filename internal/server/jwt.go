package server

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonathan/askdb/internal/config"
	"github.com/jonathan/askdb/internal/server/middleware"
)

// Issuer is the iss claim of askdb tokens
const Issuer = "askdb"

// Claims carries the name of the person asking. It is passed to the summary prompt.
type Claims struct {
	UserName string `json:"user_name"`
	jwt.RegisteredClaims
}

// GetUserName implements middleware.UserNameGetter
func (c *Claims) GetUserName() string {
	return c.UserName
}

// JWTService issues and checks HS256 bearer tokens for the ask endpoints
type JWTService struct {
	secret   []byte
	lifetime time.Duration
	parser   *jwt.Parser
	now      func() time.Time
}

// NewJWTService creates a JWT service from validated settings
func NewJWTService(cfg *config.JWTConfig) *JWTService {
	s := &JWTService{
		secret:   []byte(cfg.Secret),
		lifetime: time.Duration(cfg.ExpirationHours) * time.Hour,
		now:      time.Now,
	}
	s.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return s.now() }),
	)
	return s
}

// GenerateToken signs a token for userName that expires after the configured lifetime
func (s *JWTService) GenerateToken(userName string) (string, error) {
	if userName == "" {
		return "", errors.New("user name is empty")
	}
	now := s.now()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		UserName: userName,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   userName,
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.lifetime)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken checks signature, algorithm, issuer and lifetime and returns the claims
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, errors.New("token string is empty")
	}

	claims := &Claims{}
	_, err := s.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return nil, fmt.Errorf("invalid token signature: %w", err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, fmt.Errorf("token expired: %w", err)
	case errors.Is(err, jwt.ErrTokenMalformed):
		return nil, fmt.Errorf("malformed token: %w", err)
	default:
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if claims.UserName == "" {
		return nil, errors.New("token has no user name")
	}
	return claims, nil
}

// AsTokenValidator adapts the service to middleware.TokenValidator
func (s *JWTService) AsTokenValidator() middleware.TokenValidator {
	return tokenValidatorFunc(func(token string) (middleware.UserNameGetter, error) {
		claims, err := s.ValidateToken(token)
		if err != nil {
			return nil, err
		}
		return claims, nil
	})
}

type tokenValidatorFunc func(string) (middleware.UserNameGetter, error)

func (f tokenValidatorFunc) ValidateToken(token string) (middleware.UserNameGetter, error) {
	return f(token)
}
