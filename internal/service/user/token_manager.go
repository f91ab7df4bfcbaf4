package user

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"time"

	"go.uber.org/zap"
	"storefront/internal/domain"
	tokenrepo "storefront/internal/repository/token"
)

type tokenManager struct {
	repo   tokenrepo.Repository
	now    func() time.Time
	logger *zap.Logger
}

func newTokenManager(repo tokenrepo.Repository, log *zap.Logger) *tokenManager {
	return &tokenManager{repo: repo, now: time.Now, logger: log}
}

// Issue stores the hash of a fresh secret and returns the secret itself.
func (m *tokenManager) Issue(ctx context.Context, userID, kind string, ttl time.Duration) (string, error) {
	expiresAt := m.now().Add(ttl)
	for i := 0; i < 5; i++ {
		raw, err := randomToken()
		if err != nil {
			return "", err
		}
		err = m.repo.Create(ctx, tokenrepo.Token{
			Hash:      hashToken(raw),
			UserID:    userID,
			Kind:      kind,
			ExpiresAt: expiresAt,
		})
		if err == nil {
			return raw, nil
		}
		if errors.Is(err, domain.ErrAlreadyExists) {
			continue
		}
		return "", err
	}
	return "", errors.New("token collision")
}

// Reissue drops every outstanding token of kind for userID before issuing a new one.
func (m *tokenManager) Reissue(ctx context.Context, userID, kind string, ttl time.Duration) (string, error) {
	if err := m.repo.DeleteForUser(ctx, userID, kind); err != nil {
		return "", err
	}
	return m.Issue(ctx, userID, kind, ttl)
}

// Consume redeems raw. The token is removed in the same statement that reads it, so
// it works at most once even under concurrent confirmations.
func (m *tokenManager) Consume(ctx context.Context, raw, kind string) (string, error) {
	t, err := m.repo.Take(ctx, hashToken(raw), kind)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", ErrInvalidToken
		}
		m.logger.Error("take token", zap.String("kind", kind), zap.Error(err))
		return "", err
	}
	if m.now().After(t.ExpiresAt) {
		return "", ErrInvalidToken
	}
	return t.UserID, nil
}

func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
