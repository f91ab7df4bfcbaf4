package user

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"storefront/internal/auth"
	"storefront/internal/domain"
	tokenrepo "storefront/internal/repository/token"
)

type memoryUsers struct {
	mu      sync.Mutex
	byEmail map[string]domain.User
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{byEmail: make(map[string]domain.User)}
}

func (r *memoryUsers) Create(_ context.Context, u domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byEmail[u.Email]; exists {
		return nil, domain.ErrAlreadyExists
	}
	u.ID = "user-" + u.Email
	r.byEmail[u.Email] = u
	return &u, nil
}

func (r *memoryUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byEmail[email]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &u, nil
}

func (r *memoryUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byEmail {
		if u.ID == id {
			return &u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memoryUsers) MarkEmailVerified(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for email, u := range r.byEmail {
		if u.ID == id {
			u.EmailVerified = true
			r.byEmail[email] = u
			return nil
		}
	}
	return domain.ErrNotFound
}

type memoryTokens struct {
	mu         sync.Mutex
	tokens     map[string]tokenrepo.Token
	failCreate int
}

func newMemoryTokens() *memoryTokens {
	return &memoryTokens{tokens: make(map[string]tokenrepo.Token)}
}

func (r *memoryTokens) Create(_ context.Context, t tokenrepo.Token) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreate > 0 {
		r.failCreate--
		return errors.New("db down")
	}
	if _, exists := r.tokens[t.Hash]; exists {
		return domain.ErrAlreadyExists
	}
	r.tokens[t.Hash] = t
	return nil
}

func (r *memoryTokens) Take(_ context.Context, hash, kind string) (*tokenrepo.Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[hash]
	if !ok || t.Kind != kind {
		return nil, domain.ErrNotFound
	}
	delete(r.tokens, hash)
	return &t, nil
}

func (r *memoryTokens) DeleteForUser(_ context.Context, userID, kind string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for h, t := range r.tokens {
		if t.UserID == userID && t.Kind == kind {
			delete(r.tokens, h)
		}
	}
	return nil
}

type capturingMailer struct {
	mu     sync.Mutex
	to     string
	tokens []string
}

func (m *capturingMailer) EmailVerification(to, token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.to = to
	m.tokens = append(m.tokens, token)
}

func newService(t *testing.T) (*Service, *memoryTokens, *capturingMailer) {
	t.Helper()
	tokens := newMemoryTokens()
	mailer := &capturingMailer{}
	svc := New(newMemoryUsers(), tokens, auth.NewManager("secret"), mailer, "admin-pass", nil)
	return svc, tokens, mailer
}

func TestRegisterConfirmLogin(t *testing.T) {
	svc, tokens, mailer := newService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, "  Ana@Example.com ", "Secret123")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", u.Email)
	assert.False(t, u.EmailVerified)
	require.Len(t, mailer.tokens, 1)
	assert.Equal(t, "ana@example.com", mailer.to)

	for hash := range tokens.tokens {
		assert.NotEqual(t, mailer.tokens[0], hash)
	}

	_, _, err = svc.Login(ctx, "ana@example.com", "Secret123")
	assert.ErrorIs(t, err, ErrEmailNotVerified)

	require.NoError(t, svc.ConfirmEmail(ctx, mailer.tokens[0]))
	assert.ErrorIs(t, svc.ConfirmEmail(ctx, mailer.tokens[0]), ErrInvalidToken)

	got, token, err := svc.Login(ctx, "ANA@example.com", "Secret123")
	require.NoError(t, err)
	assert.True(t, got.EmailVerified)
	assert.NotEmpty(t, token)

	claims, err := auth.NewManager("secret").Parse(token)
	require.NoError(t, err)
	assert.Equal(t, got.ID, claims.UserID)
}

func TestRegisterRejects(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "not-an-email", "Secret123")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.Register(ctx, "ana@example.com", "short")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.Register(ctx, "ana@example.com", "alllowercase1")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.Register(ctx, "ana@example.com", strings.Repeat("Aa1", 25))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.Register(ctx, "ana@example.com", "Secret123")
	require.NoError(t, err)
	_, err = svc.Register(ctx, "ana@example.com", "Other1234")
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestRegisterAcceptsPasswordAtBcryptLimit(t *testing.T) {
	svc, _, mailer := newService(t)
	ctx := context.Background()
	password := strings.Repeat("Aa1", 24)

	_, err := svc.Register(ctx, "ana@example.com", password)
	require.NoError(t, err)
	require.NoError(t, svc.ConfirmEmail(ctx, mailer.tokens[0]))
	_, _, err = svc.Login(ctx, "ana@example.com", password)
	assert.NoError(t, err)
}

func TestRegisterAgainResendsVerification(t *testing.T) {
	svc, tokens, mailer := newService(t)
	ctx := context.Background()

	tokens.failCreate = 1
	_, err := svc.Register(ctx, "ana@example.com", "Secret123")
	require.Error(t, err)
	assert.Empty(t, mailer.tokens)

	u, err := svc.Register(ctx, "ana@example.com", "Secret123")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", u.Email)
	require.Len(t, mailer.tokens, 1)

	_, err = svc.Register(ctx, "ana@example.com", "Secret123")
	require.NoError(t, err)
	require.Len(t, mailer.tokens, 2)
	assert.Len(t, tokens.tokens, 1)

	assert.ErrorIs(t, svc.ConfirmEmail(ctx, mailer.tokens[0]), ErrInvalidToken)
	require.NoError(t, svc.ConfirmEmail(ctx, mailer.tokens[1]))

	_, err = svc.Register(ctx, "ana@example.com", "Secret123")
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Len(t, mailer.tokens, 2)
}

func TestRegisterAgainWrongPasswordKeepsAccount(t *testing.T) {
	svc, _, mailer := newService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "ana@example.com", "Secret123")
	require.NoError(t, err)
	_, err = svc.Register(ctx, "ana@example.com", "Hijack123")
	assert.ErrorIs(t, err, domain.ErrConflict)
	require.Len(t, mailer.tokens, 1)

	require.NoError(t, svc.ConfirmEmail(ctx, mailer.tokens[0]))
	_, _, err = svc.Login(ctx, "ana@example.com", "Secret123")
	assert.NoError(t, err)
}

func TestConfirmEmailConcurrentRedeemsOnce(t *testing.T) {
	svc, _, mailer := newService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "ana@example.com", "Secret123")
	require.NoError(t, err)

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- svc.ConfirmEmail(ctx, mailer.tokens[0])
		}()
	}
	wg.Wait()
	close(errs)

	var ok int
	for err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, ErrInvalidToken)
	}
	assert.Equal(t, 1, ok)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	_, _, err := svc.Login(ctx, "nobody@example.com", "Secret123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Register(ctx, "ana@example.com", "Secret123")
	require.NoError(t, err)
	_, _, err = svc.Login(ctx, "ana@example.com", "Wrong1234")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestConfirmEmailExpired(t *testing.T) {
	svc, _, mailer := newService(t)
	ctx := context.Background()
	svc.tokens.now = func() time.Time { return time.Now().Add(-48 * time.Hour) }

	_, err := svc.Register(ctx, "ana@example.com", "Secret123")
	require.NoError(t, err)
	svc.tokens.now = time.Now

	assert.ErrorIs(t, svc.ConfirmEmail(ctx, mailer.tokens[0]), ErrInvalidToken)
	assert.ErrorIs(t, svc.ConfirmEmail(ctx, ""), ErrInvalidToken)
}

func TestAdminLogin(t *testing.T) {
	svc, _, _ := newService(t)

	_, err := svc.AdminLogin("nope")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	token, err := svc.AdminLogin("admin-pass")
	require.NoError(t, err)
	claims, err := auth.NewManager("secret").Parse(token)
	require.NoError(t, err)
	assert.True(t, claims.IsAdmin())

	disabled := New(newMemoryUsers(), newMemoryTokens(), auth.NewManager("secret"), nil, "", nil)
	_, err = disabled.AdminLogin("")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
