package token

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"storefront/internal/domain"
	"storefront/internal/testutil/pgtest"
)

func TestPostgres_TakeRedeemsOnce(t *testing.T) {
	ctx := context.Background()
	pool := pgtest.Pool(ctx, t)
	repo := NewPostgres(pool)
	userID := pgtest.InsertUser(ctx, t, pool, "ana@example.com")

	tok := Token{Hash: "h1", UserID: userID, Kind: KindEmailVerification, ExpiresAt: time.Now().Add(time.Hour)}
	if err := repo.Create(ctx, tok); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.Create(ctx, tok); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	if _, err := repo.Take(ctx, "h1", "password_reset"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected kind mismatch to miss, got %v", err)
	}

	const workers = 8
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		won int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := repo.Take(ctx, "h1", KindEmailVerification)
			if err != nil {
				if !errors.Is(err, domain.ErrNotFound) {
					t.Errorf("Take: %v", err)
				}
				return
			}
			if got.UserID != userID {
				t.Errorf("unexpected user %q", got.UserID)
			}
			mu.Lock()
			won++
			mu.Unlock()
		}()
	}
	wg.Wait()
	if won != 1 {
		t.Fatalf("expected exactly one redemption, got %d", won)
	}
}

func TestPostgres_DeleteForUser(t *testing.T) {
	ctx := context.Background()
	pool := pgtest.Pool(ctx, t)
	repo := NewPostgres(pool)
	userID := pgtest.InsertUser(ctx, t, pool, "ana@example.com")

	for _, h := range []string{"old-1", "old-2"} {
		if err := repo.Create(ctx, Token{Hash: h, UserID: userID, Kind: KindEmailVerification, ExpiresAt: time.Now().Add(time.Hour)}); err != nil {
			t.Fatalf("Create %s: %v", h, err)
		}
	}
	if err := repo.DeleteForUser(ctx, userID, KindEmailVerification); err != nil {
		t.Fatalf("DeleteForUser: %v", err)
	}
	if _, err := repo.Take(ctx, "old-1", KindEmailVerification); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected old token gone, got %v", err)
	}
}
