package order

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"storefront/internal/db"
	"storefront/internal/domain"
	"storefront/internal/logger"
)

const orderColumns = `
id::text, user_id::text, status, payment_method, payment_status,
customer_name, customer_email, customer_phone, customer_address, customer_city, customer_county,
COALESCE(customer_postal_code, ''), shipping_cents, total_cents,
COALESCE(payment_session_id, ''), COALESCE(payment_reference, ''), created_at, updated_at`

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgres(pool *pgxpool.Pool, log *zap.Logger) Repository {
	return &postgresRepo{pool: pool, logger: logger.OrNop(log).Named("order_repo")}
}

func (r *postgresRepo) Create(ctx context.Context, q db.Querier, o domain.Order) (*domain.Order, error) {
	const insertOrder = `
INSERT INTO orders (
    user_id, status, payment_method, payment_status,
    customer_name, customer_email, customer_phone, customer_address, customer_city, customer_county,
    customer_postal_code, shipping_cents, total_cents
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NULLIF($11, ''), $12, $13)
RETURNING ` + orderColumns
	const insertItem = `
INSERT INTO order_items (order_id, product_id, name, price_cents, quantity, position)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id::text
`
	exec := db.Or(q, r.pool)
	c := o.Customer
	created, err := scanOrder(exec.QueryRow(ctx, insertOrder,
		o.UserID, o.Status, o.PaymentMethod, o.PaymentStatus,
		c.Name, c.Email, c.Phone, c.Address, c.City, c.County, c.PostalCode,
		o.ShippingCents, o.TotalCents,
	))
	if err != nil {
		r.logger.Error("create", zap.String("user_id", o.UserID), zap.Error(err))
		return nil, err
	}

	for i, it := range o.Items {
		if err := exec.QueryRow(ctx, insertItem, created.ID, it.ProductID, it.Name, it.PriceCents, it.Quantity, i).Scan(&it.ID); err != nil {
			r.logger.Error("create item", zap.String("order_id", created.ID), zap.String("product_id", it.ProductID), zap.Error(err))
			return nil, err
		}
		created.Items = append(created.Items, it)
	}

	r.logger.Info("created",
		zap.String("order_id", created.ID),
		zap.String("payment_method", string(created.PaymentMethod)),
		zap.Int64("total_cents", created.TotalCents),
		zap.Int("items", len(created.Items)))
	return created, nil
}

func (r *postgresRepo) Get(ctx context.Context, q db.Querier, id string, lock bool) (*domain.Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}
	return r.getWhere(ctx, q, `id = $1`, id, lock)
}

func (r *postgresRepo) GetBySessionID(ctx context.Context, q db.Querier, sessionID string, lock bool) (*domain.Order, error) {
	if sessionID == "" {
		return nil, domain.ErrNotFound
	}
	return r.getWhere(ctx, q, `payment_session_id = $1`, sessionID, lock)
}

func (r *postgresRepo) getWhere(ctx context.Context, q db.Querier, where string, arg string, lock bool) (*domain.Order, error) {
	sql := `SELECT ` + orderColumns + ` FROM orders WHERE ` + where
	if lock {
		sql += ` FOR UPDATE`
	}
	exec := db.Or(q, r.pool)
	o, err := scanOrder(exec.QueryRow(ctx, sql, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Error("get", zap.String("key", arg), zap.Error(err))
		return nil, err
	}
	items, err := r.items(ctx, exec, []string{o.ID})
	if err != nil {
		return nil, err
	}
	o.Items = items[o.ID]
	return o, nil
}

func (r *postgresRepo) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, nil
	}
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

func (r *postgresRepo) ListAll(ctx context.Context) ([]domain.Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC`)
}

func (r *postgresRepo) list(ctx context.Context, sql string, args ...any) ([]domain.Order, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		r.logger.Error("list", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var (
		result []domain.Order
		ids    []string
	)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	if len(ids) == 0 {
		return result, nil
	}
	items, err := r.items(ctx, r.pool, ids)
	if err != nil {
		return nil, err
	}
	for i := range result {
		result[i].Items = items[result[i].ID]
	}
	r.logger.Debug("list", zap.Int("count", len(result)))
	return result, nil
}

func (r *postgresRepo) items(ctx context.Context, exec db.Querier, orderIDs []string) (map[string][]domain.OrderItem, error) {
	const q = `
SELECT order_id::text, id::text, product_id::text, name, price_cents, quantity
FROM order_items
WHERE order_id = ANY($1::uuid[])
ORDER BY order_id, position
`
	rows, err := exec.Query(ctx, q, orderIDs)
	if err != nil {
		r.logger.Error("items", zap.Int("orders", len(orderIDs)), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]domain.OrderItem, len(orderIDs))
	for rows.Next() {
		var (
			orderID string
			it      domain.OrderItem
		)
		if err := rows.Scan(&orderID, &it.ID, &it.ProductID, &it.Name, &it.PriceCents, &it.Quantity); err != nil {
			return nil, err
		}
		out[orderID] = append(out[orderID], it)
	}
	return out, rows.Err()
}

func (r *postgresRepo) UpdateStatus(ctx context.Context, q db.Querier, id string, status domain.OrderStatus) error {
	if _, err := uuid.Parse(id); err != nil {
		return domain.ErrNotFound
	}
	cmd, err := db.Or(q, r.pool).Exec(ctx, `UPDATE orders SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	if err != nil {
		r.logger.Error("update status", zap.String("order_id", id), zap.Error(err))
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	r.logger.Info("status updated", zap.String("order_id", id), zap.String("status", string(status)))
	return nil
}

func (r *postgresRepo) LinkSession(ctx context.Context, q db.Querier, id, sessionID string) error {
	const sql = `
UPDATE orders
SET payment_session_id = COALESCE(payment_session_id, $2), updated_at = now()
WHERE id = $1
`
	cmd, err := db.Or(q, r.pool).Exec(ctx, sql, id, sessionID)
	if err != nil {
		r.logger.Error("link session", zap.String("order_id", id), zap.Error(err))
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) MarkPaid(ctx context.Context, q db.Querier, id, sessionID, paymentRef string) error {
	const sql = `
UPDATE orders
SET status = 'confirmed',
    payment_status = 'paid',
    payment_session_id = COALESCE(payment_session_id, NULLIF($2, '')),
    payment_reference = NULLIF($3, ''),
    updated_at = now()
WHERE id = $1
`
	cmd, err := db.Or(q, r.pool).Exec(ctx, sql, id, sessionID, paymentRef)
	if err != nil {
		r.logger.Error("mark paid", zap.String("order_id", id), zap.Error(err))
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	r.logger.Info("marked paid", zap.String("order_id", id))
	return nil
}

func (r *postgresRepo) MarkPaymentFailed(ctx context.Context, q db.Querier, id string) (bool, error) {
	const sql = `UPDATE orders SET payment_status = 'failed', updated_at = now() WHERE id = $1 AND payment_status = 'unpaid'`
	cmd, err := db.Or(q, r.pool).Exec(ctx, sql, id)
	if err != nil {
		r.logger.Error("mark payment failed", zap.String("order_id", id), zap.Error(err))
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *postgresRepo) DeleteUnlinked(ctx context.Context, q db.Querier, id string) error {
	const sql = `DELETE FROM orders WHERE id = $1 AND payment_status = 'unpaid' AND payment_session_id IS NULL`
	cmd, err := db.Or(q, r.pool).Exec(ctx, sql, id)
	if err != nil {
		r.logger.Error("delete unlinked", zap.String("order_id", id), zap.Error(err))
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	r.logger.Info("deleted unlinked order", zap.String("order_id", id))
	return nil
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	c := &o.Customer
	if err := row.Scan(
		&o.ID, &o.UserID, &o.Status, &o.PaymentMethod, &o.PaymentStatus,
		&c.Name, &c.Email, &c.Phone, &c.Address, &c.City, &c.County,
		&c.PostalCode, &o.ShippingCents, &o.TotalCents,
		&o.PaymentSessionID, &o.PaymentRef, &o.CreatedAt, &o.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &o, nil
}
