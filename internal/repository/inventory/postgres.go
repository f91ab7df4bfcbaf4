package inventory

import (
	"context"
	"errors"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"storefront/internal/db"
	"storefront/internal/domain"
	"storefront/internal/logger"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgres(pool *pgxpool.Pool, log *zap.Logger) Repository {
	return &postgresRepo{pool: pool, logger: logger.OrNop(log).Named("inventory")}
}

func (r *postgresRepo) Check(ctx context.Context, q db.Querier, lines []domain.StockLine) error {
	const sql = `SELECT stock FROM products WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`
	for _, l := range sorted(lines) {
		if _, err := uuid.Parse(l.ProductID); err != nil {
			return domain.NotFoundStock(l.ProductID)
		}
		var stock int
		err := db.Or(q, r.pool).QueryRow(ctx, sql, l.ProductID).Scan(&stock)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				r.logger.Info("check: product unavailable", zap.String("product_id", l.ProductID))
				return domain.NotFoundStock(l.ProductID)
			}
			r.logger.Error("check", zap.String("product_id", l.ProductID), zap.Error(err))
			return err
		}
		if l.Quantity > stock {
			r.logger.Info("check: insufficient stock",
				zap.String("product_id", l.ProductID),
				zap.Int("available", stock),
				zap.Int("requested", l.Quantity))
			return domain.OutOfStock(l.ProductID, stock, l.Quantity)
		}
	}
	return nil
}

func (r *postgresRepo) Decrement(ctx context.Context, q db.Querier, lines []domain.StockLine) error {
	const sql = `
UPDATE products
SET stock = stock - $2, updated_at = now()
WHERE id = $1 AND deleted_at IS NULL AND stock >= $2
`
	for _, l := range sorted(lines) {
		cmd, err := db.Or(q, r.pool).Exec(ctx, sql, l.ProductID, l.Quantity)
		if err != nil {
			r.logger.Error("decrement", zap.String("product_id", l.ProductID), zap.Error(err))
			return err
		}
		if cmd.RowsAffected() == 0 {
			return r.shortage(ctx, q, l)
		}
		r.logger.Debug("decremented", zap.String("product_id", l.ProductID), zap.Int("quantity", l.Quantity))
	}
	return nil
}

func (r *postgresRepo) Reserve(ctx context.Context, q db.Querier, lines []domain.StockLine) error {
	if err := r.Check(ctx, q, lines); err != nil {
		return err
	}
	return r.Decrement(ctx, q, lines)
}

func (r *postgresRepo) Restock(ctx context.Context, q db.Querier, lines []domain.StockLine) error {
	const sql = `UPDATE products SET stock = stock + $2, updated_at = now() WHERE id = $1`
	for _, l := range sorted(lines) {
		cmd, err := db.Or(q, r.pool).Exec(ctx, sql, l.ProductID, l.Quantity)
		if err != nil {
			r.logger.Error("restock", zap.String("product_id", l.ProductID), zap.Error(err))
			return err
		}
		if cmd.RowsAffected() == 0 {
			// The row is gone entirely; soft-deleted products are still restocked.
			r.logger.Warn("restock: product missing", zap.String("product_id", l.ProductID))
			continue
		}
		r.logger.Debug("restocked", zap.String("product_id", l.ProductID), zap.Int("quantity", l.Quantity))
	}
	return nil
}

// shortage explains why a conditional decrement touched no row.
func (r *postgresRepo) shortage(ctx context.Context, q db.Querier, l domain.StockLine) error {
	var stock int
	err := db.Or(q, r.pool).QueryRow(ctx, `SELECT stock FROM products WHERE id = $1 AND deleted_at IS NULL`, l.ProductID).Scan(&stock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.NotFoundStock(l.ProductID)
		}
		return err
	}
	return domain.OutOfStock(l.ProductID, stock, l.Quantity)
}

// sorted orders lines by product id so concurrent transactions lock rows in the same order.
func sorted(lines []domain.StockLine) []domain.StockLine {
	out := append([]domain.StockLine(nil), lines...)
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}
