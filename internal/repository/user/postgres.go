package user

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"storefront/internal/domain"
	"storefront/internal/logger"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgres(pool *pgxpool.Pool, log *zap.Logger) Repository {
	return &postgresRepo{pool: pool, logger: logger.OrNop(log).Named("user_repo")}
}

func (r *postgresRepo) Create(ctx context.Context, u domain.User) (*domain.User, error) {
	const q = `
INSERT INTO users (email, password_hash, email_verified)
VALUES ($1, $2, $3)
RETURNING id::text, created_at
`
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if err := r.pool.QueryRow(ctx, q, u.Email, u.PasswordHash, u.EmailVerified).Scan(&u.ID, &u.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.ErrAlreadyExists
		}
		r.logger.Error("create", zap.Error(err))
		return nil, err
	}
	r.logger.Info("created", zap.String("user_id", u.ID))
	return &u, nil
}

func (r *postgresRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	const q = `SELECT id::text, email, password_hash, email_verified, created_at FROM users WHERE email = $1`
	return r.get(ctx, q, strings.ToLower(strings.TrimSpace(email)))
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}
	const q = `SELECT id::text, email, password_hash, email_verified, created_at FROM users WHERE id = $1`
	return r.get(ctx, q, id)
}

func (r *postgresRepo) get(ctx context.Context, q, arg string) (*domain.User, error) {
	var u domain.User
	if err := r.pool.QueryRow(ctx, q, arg).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.EmailVerified, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Error("get", zap.Error(err))
		return nil, err
	}
	return &u, nil
}

func (r *postgresRepo) MarkEmailVerified(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE users SET email_verified = TRUE WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("mark verified", zap.String("user_id", id), zap.Error(err))
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
