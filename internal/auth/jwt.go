// Package auth issues and verifies the bearer tokens used by shoppers and the admin.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	UserID string `json:"userId,omitempty"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// IsAdmin reports whether the token was issued by the admin login.
func (c *Claims) IsAdmin() bool {
	return c.Role == RoleAdmin
}

type Manager struct {
	secret   []byte
	userTTL  time.Duration
	adminTTL time.Duration
	now      func() time.Time
}

func NewManager(secret string) *Manager {
	return &Manager{
		secret:   []byte(secret),
		userTTL:  30 * 24 * time.Hour,
		adminTTL: 2 * time.Hour,
		now:      time.Now,
	}
}

func (m *Manager) IssueUser(userID string) (string, error) {
	return m.issue(Claims{UserID: userID, Role: RoleUser}, m.userTTL)
}

func (m *Manager) IssueAdmin() (string, error) {
	return m.issue(Claims{Role: RoleAdmin}, m.adminTTL)
}

func (m *Manager) issue(c Claims, ttl time.Duration) (string, error) {
	now := m.now()
	c.IssuedAt = jwt.NewNumericDate(now)
	c.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies the signature and expiry of raw and returns its claims.
func (m *Manager) Parse(raw string) (*Claims, error) {
	var claims Claims
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	tok, err := parser.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Role != RoleAdmin && claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}
