package token

import (
	"context"
	"time"
)

// Token is a single-use email token. Only the sha256 hash of the secret is stored.
type Token struct {
	Hash      string
	UserID    string
	Kind      string
	ExpiresAt time.Time
	CreatedAt time.Time
}

const KindEmailVerification = "email_verification"

type Repository interface {
	Create(ctx context.Context, token Token) error
	// Take deletes the token of the given kind and returns it, so concurrent callers
	// cannot both redeem the same hash.
	Take(ctx context.Context, hash, kind string) (*Token, error)
	DeleteForUser(ctx context.Context, userID, kind string) error
}
