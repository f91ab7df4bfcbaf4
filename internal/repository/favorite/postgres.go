package favorite

import (
	"context"

	"github.com/google/uuid"
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
	return &postgresRepo{pool: pool, logger: logger.OrNop(log).Named("favorite_repo")}
}

func (r *postgresRepo) List(ctx context.Context, userID string) ([]domain.Product, error) {
	const q = `
SELECT p.id::text, p.name, p.slug, p.description, p.price_cents, p.stock, p.image, p.category, p.featured, p.created_at, p.updated_at
FROM favorites f
JOIN products p ON p.id = f.product_id
WHERE f.user_id = $1 AND p.deleted_at IS NULL
ORDER BY f.created_at DESC
`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		r.logger.Error("list", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	result := []domain.Product{}
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Slug, &p.Description, &p.PriceCents, &p.Stock, &p.Image, &p.Category, &p.Featured, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (r *postgresRepo) Add(ctx context.Context, userID, productID string) error {
	const q = `
INSERT INTO favorites (user_id, product_id)
VALUES ($1, $2)
ON CONFLICT (user_id, product_id) DO NOTHING
`
	if _, err := r.pool.Exec(ctx, q, userID, productID); err != nil {
		r.logger.Error("add", zap.String("user_id", userID), zap.String("product_id", productID), zap.Error(err))
		return err
	}
	return nil
}

func (r *postgresRepo) Remove(ctx context.Context, userID, productID string) error {
	if _, err := uuid.Parse(productID); err != nil {
		return nil
	}
	_, err := r.pool.Exec(ctx, `DELETE FROM favorites WHERE user_id = $1 AND product_id = $2`, userID, productID)
	if err != nil {
		r.logger.Error("remove", zap.String("user_id", userID), zap.String("product_id", productID), zap.Error(err))
	}
	return err
}
