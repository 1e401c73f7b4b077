package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/survey-backend/internal/config"
	"github.com/stemsi/survey-backend/internal/model"
	"golang.org/x/crypto/bcrypt"
)

// Common auth errors.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSessionInvalidated = errors.New("session invalidated")
)

// TokenType distinguishes token audiences. Only admins hold tokens; survey
// participants stay anonymous.
type TokenType string

const (
	TokenTypeAdmin TokenType = "admin"
)

// adminSubject is the JWT subject of the single survey administrator.
const adminSubject = "admin"

// Claims extends JWT standard claims with app-specific fields.
type Claims struct {
	jwt.RegisteredClaims
	TokenType TokenType `json:"token_type"`
}

// Session returns the admin session described by the claims.
func (c *Claims) Session() model.AdminSession {
	s := model.AdminSession{SessionID: c.ID}
	if c.IssuedAt != nil {
		s.IssuedAt = c.IssuedAt.Time
	}
	if c.ExpiresAt != nil {
		s.ExpiresAt = c.ExpiresAt.Time
	}
	return s
}

// AuthService handles admin authentication, JWT and session management.
type AuthService struct {
	cfg          *config.Config
	rdb          *redis.Client
	passwordHash string
}

// NewAuthService creates a new AuthService. When no bcrypt hash is configured
// the plaintext admin password is hashed once here.
func NewAuthService(cfg *config.Config, rdb *redis.Client) (*AuthService, error) {
	s := &AuthService{cfg: cfg, rdb: rdb, passwordHash: cfg.AdminPasswordHash}
	if s.passwordHash == "" {
		if cfg.AdminPassword == "" {
			return nil, errors.New("ADMIN_PASSWORD_HASH or ADMIN_PASSWORD must be set")
		}
		hash, err := s.HashPassword(cfg.AdminPassword)
		if err != nil {
			return nil, fmt.Errorf("hash admin password: %w", err)
		}
		s.passwordHash = hash
	}
	return s, nil
}

// HashPassword hashes a password with the configured bcrypt cost.
func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	return string(hash), err
}

// CheckPassword compares a plaintext password against the admin hash.
func (s *AuthService) CheckPassword(password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(s.passwordHash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// Login checks the admin password, issues a token and registers its JTI in Redis.
func (s *AuthService) Login(ctx context.Context, password string) (string, *Claims, error) {
	if err := s.CheckPassword(password); err != nil {
		return "", nil, err
	}

	token, claims, err := s.IssueAdminToken(time.Now())
	if err != nil {
		return "", nil, err
	}

	// Store session in Redis with same expiry as JWT.
	if err := s.rdb.Set(ctx, config.CacheKey.AdminSessionKey(claims.ID), "1", s.cfg.JWTExpiry).Err(); err != nil {
		return "", nil, fmt.Errorf("store session: %w", err)
	}
	return token, claims, nil
}

// IssueAdminToken signs a new admin JWT.
func (s *AuthService) IssueAdminToken(now time.Time) (string, *Claims, error) {
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   adminSubject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTExpiry)),
		},
		TokenType: TokenTypeAdmin,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims, nil
}

// ValidateToken parses and validates a JWT, returning the claims.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}

	return claims, nil
}

// ValidateAdminSession checks that the token's JTI is still registered in Redis.
func (s *AuthService) ValidateAdminSession(ctx context.Context, jti string) error {
	n, err := s.rdb.Exists(ctx, config.CacheKey.AdminSessionKey(jti)).Result()
	if err != nil {
		return fmt.Errorf("check session: %w", err)
	}
	if n == 0 {
		return ErrSessionInvalidated
	}
	return nil
}

// Logout removes the session so the token is rejected from now on.
func (s *AuthService) Logout(ctx context.Context, jti string) error {
	return s.rdb.Del(ctx, config.CacheKey.AdminSessionKey(jti)).Err()
}
