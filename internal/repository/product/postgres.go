package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"storefront/internal/db"
	"storefront/internal/domain"
	"storefront/internal/logger"
)

const columns = `id::text, name, slug, description, price_cents, stock, image, category, featured, deleted_at, created_at, updated_at`

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgres(pool *pgxpool.Pool, log *zap.Logger) Repository {
	return &postgresRepo{pool: pool, logger: logger.OrNop(log).Named("product_repo")}
}

func (r *postgresRepo) List(ctx context.Context, f Filter) ([]domain.Product, error) {
	var (
		where = []string{"deleted_at IS NULL"}
		args  []any
	)
	if f.Featured {
		where = append(where, "featured = TRUE")
	}
	if f.Category != "" {
		args = append(args, f.Category)
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		args = append(args, "%"+s+"%")
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", len(args), len(args)))
	}

	q := `SELECT ` + columns + ` FROM products WHERE ` + strings.Join(where, " AND ") + ` ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		r.logger.Error("list", zap.Error(err))
		return nil, err
	}
	result, err := scanProducts(rows)
	if err != nil {
		r.logger.Error("list rows", zap.Error(err))
		return nil, err
	}
	r.logger.Debug("list", zap.Int("count", len(result)), zap.String("category", f.Category))
	return result, nil
}

func (r *postgresRepo) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	q := `SELECT ` + columns + ` FROM products WHERE slug = $1 AND deleted_at IS NULL`
	p, err := scanProduct(r.pool.QueryRow(ctx, q, slug))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Error("get by slug", zap.String("slug", slug), zap.Error(err))
		return nil, err
	}
	return p, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}
	q := `SELECT ` + columns + ` FROM products WHERE id = $1`
	p, err := scanProduct(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Error("get", zap.String("product_id", id), zap.Error(err))
		return nil, err
	}
	return p, nil
}

func (r *postgresRepo) FindActive(ctx context.Context, q db.Querier, ids []string, lock bool) ([]domain.Product, error) {
	valid := validIDs(ids)
	if len(valid) == 0 {
		return nil, nil
	}
	sql := `SELECT ` + columns + ` FROM products WHERE id = ANY($1::uuid[]) AND deleted_at IS NULL ORDER BY id`
	if lock {
		sql += ` FOR UPDATE`
	}
	rows, err := db.Or(q, r.pool).Query(ctx, sql, valid)
	if err != nil {
		r.logger.Error("find active", zap.Int("ids", len(valid)), zap.Error(err))
		return nil, err
	}
	result, err := scanProducts(rows)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("find active", zap.Int("requested", len(ids)), zap.Int("found", len(result)), zap.Bool("lock", lock))
	return result, nil
}

func (r *postgresRepo) SlugExists(ctx context.Context, slug, excludeID string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM products WHERE slug = $1 AND id::text <> $2)`
	var exists bool
	if err := r.pool.QueryRow(ctx, q, slug, excludeID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *postgresRepo) Create(ctx context.Context, p domain.Product) (*domain.Product, error) {
	q := `
INSERT INTO products (name, slug, description, price_cents, stock, image, category, featured)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + columns
	created, err := scanProduct(r.pool.QueryRow(ctx, q, p.Name, p.Slug, p.Description, p.PriceCents, p.Stock, p.Image, p.Category, p.Featured))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrAlreadyExists
		}
		r.logger.Error("create", zap.String("slug", p.Slug), zap.Error(err))
		return nil, err
	}
	r.logger.Info("created", zap.String("product_id", created.ID), zap.String("slug", created.Slug))
	return created, nil
}

func (r *postgresRepo) Update(ctx context.Context, id string, patch Patch) (*domain.Product, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}
	var (
		sets []string
		args []any
	)
	set := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if patch.Name != nil {
		set("name", *patch.Name)
	}
	if patch.Slug != nil {
		set("slug", *patch.Slug)
	}
	if patch.Description != nil {
		set("description", *patch.Description)
	}
	if patch.PriceCents != nil {
		set("price_cents", *patch.PriceCents)
	}
	if patch.Stock != nil {
		set("stock", *patch.Stock)
	}
	if patch.Image != nil {
		set("image", *patch.Image)
	}
	if patch.Category != nil {
		set("category", *patch.Category)
	}
	if patch.Featured != nil {
		set("featured", *patch.Featured)
	}
	if len(sets) == 0 {
		return r.GetByID(ctx, id)
	}
	sets = append(sets, "updated_at = now()")
	args = append(args, id)
	q := fmt.Sprintf(`UPDATE products SET %s WHERE id = $%d RETURNING %s`, strings.Join(sets, ", "), len(args), columns)

	updated, err := scanProduct(r.pool.QueryRow(ctx, q, args...))
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return nil, domain.ErrNotFound
		case isUniqueViolation(err):
			return nil, domain.ErrAlreadyExists
		}
		r.logger.Error("update", zap.String("product_id", id), zap.Error(err))
		return nil, err
	}
	r.logger.Info("updated", zap.String("product_id", id), zap.Int("fields", len(sets)-1))
	return updated, nil
}

func (r *postgresRepo) SoftDelete(ctx context.Context, id string) (*domain.Product, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}
	q := `
UPDATE products SET deleted_at = COALESCE(deleted_at, now()), updated_at = now()
WHERE id = $1
RETURNING ` + columns
	p, err := scanProduct(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Error("soft delete", zap.String("product_id", id), zap.Error(err))
		return nil, err
	}
	r.logger.Info("soft deleted", zap.String("product_id", id))
	return p, nil
}

func (r *postgresRepo) UpsertBySlug(ctx context.Context, p domain.Product) (*domain.Product, error) {
	q := `
INSERT INTO products (name, slug, description, price_cents, stock, image, category, featured)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (slug) DO UPDATE SET
    name = EXCLUDED.name,
    description = EXCLUDED.description,
    price_cents = EXCLUDED.price_cents,
    stock = EXCLUDED.stock,
    image = EXCLUDED.image,
    category = EXCLUDED.category,
    featured = EXCLUDED.featured,
    deleted_at = NULL,
    updated_at = now()
RETURNING ` + columns
	res, err := scanProduct(r.pool.QueryRow(ctx, q, p.Name, p.Slug, p.Description, p.PriceCents, p.Stock, p.Image, p.Category, p.Featured))
	if err != nil {
		r.logger.Error("upsert", zap.String("slug", p.Slug), zap.Error(err))
		return nil, err
	}
	r.logger.Debug("upserted", zap.String("slug", res.Slug), zap.String("product_id", res.ID))
	return res, nil
}

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var p domain.Product
	if err := row.Scan(&p.ID, &p.Name, &p.Slug, &p.Description, &p.PriceCents, &p.Stock, &p.Image, &p.Category, &p.Featured, &p.DeletedAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func scanProducts(rows pgx.Rows) ([]domain.Product, error) {
	defer rows.Close()
	var result []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	return result, rows.Err()
}

// validIDs keeps canonical uuids only; anything else cannot match a stored product id.
func validIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if u, err := uuid.Parse(id); err == nil && u.String() == id {
			out = append(out, id)
		}
	}
	return out
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
