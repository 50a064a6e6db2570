package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/repository/sqlutil"
)

const orderColumns = `id::text, order_number, customer_email, customer_name, subtotal_cents, tax_cents,
       shipping_cents, total_cents, status, payment_status, COALESCE(payment_session_id, ''),
       COALESCE(payment_intent_id, ''), shipping_address, COALESCE(tracking_number, ''), COALESCE(notes, ''),
       created_at, updated_at`

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &postgresRepo{pool: pool, logger: logger.Named("order_repo")}
}

func (r *postgresRepo) List(ctx context.Context, f ListFilter) ([]domain.Order, int, error) {
	var w sqlutil.Where
	if f.Status != nil {
		w.Add("status = " + w.Arg(string(*f.Status)))
	}
	if f.PaymentStatus != nil {
		w.Add("payment_status = " + w.Arg(string(*f.PaymentStatus)))
	}
	if f.Search != "" {
		p := w.Arg(sqlutil.Contains(f.Search))
		w.Add(fmt.Sprintf("(order_number ILIKE %[1]s OR customer_email ILIKE %[1]s OR customer_name ILIKE %[1]s)", p))
	}
	if f.From != nil {
		w.Add("created_at >= " + w.Arg(*f.From))
	}
	if f.To != nil {
		op := "<="
		if f.ToExclusive {
			op = "<"
		}
		w.Add("created_at " + op + " " + w.Arg(*f.To))
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT count(*) FROM orders "+w.SQL(), w.Args()...).Scan(&total); err != nil {
		r.logger.Error("count orders", zap.Error(err))
		return nil, 0, err
	}

	dir := "ASC"
	if f.Desc {
		dir = "DESC"
	}
	q := fmt.Sprintf(`SELECT %s FROM orders %s ORDER BY %s %s, id %s LIMIT %s OFFSET %s`,
		orderColumns, w.SQL(), sortColumn(f.Sort), dir, dir, w.Arg(f.Limit), w.Arg(f.Offset))
	rows, err := r.pool.Query(ctx, q, w.Args()...)
	if err != nil {
		r.logger.Error("list orders", zap.Error(err))
		return nil, 0, err
	}
	orders, err := collectOrders(rows)
	if err != nil {
		r.logger.Error("list orders rows", zap.Error(err))
		return nil, 0, err
	}
	if err := r.loadItems(ctx, r.pool, orders); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
}

func (r *postgresRepo) GetByNumberAndEmail(ctx context.Context, number, email string) (*domain.Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE order_number = $1 AND customer_email = $2`,
		number, domain.NormalizeEmail(email))
}

func (r *postgresRepo) GetBySessionID(ctx context.Context, sessionID string) (*domain.Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE payment_session_id = $1`, sessionID)
}

func (r *postgresRepo) getOne(ctx context.Context, q string, args ...any) (*domain.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, q, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Error("get order", zap.Error(err))
		return nil, err
	}
	orders := []domain.Order{*o}
	if err := r.loadItems(ctx, r.pool, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

func (r *postgresRepo) CreateWithStockDecrement(ctx context.Context, o domain.Order) (CreateResult, error) {
	address, err := encodeAddress(o.ShippingAddress)
	if err != nil {
		return CreateResult{}, err
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return CreateResult{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	const insertOrder = `
INSERT INTO orders (customer_email, customer_name, subtotal_cents, tax_cents, shipping_cents, total_cents,
                    status, payment_status, payment_session_id, payment_intent_id, shipping_address)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), NULLIF($10, ''), $11)
ON CONFLICT (payment_session_id) DO NOTHING
RETURNING ` + orderColumns

	created, err := scanOrder(tx.QueryRow(ctx, insertOrder,
		domain.NormalizeEmail(o.CustomerEmail), o.CustomerName, o.SubtotalCents, o.TaxCents, o.ShippingCents,
		o.TotalCents, string(o.Status), string(o.PaymentStatus), o.PaymentSessionID, o.PaymentIntentID, address))
	if errors.Is(err, pgx.ErrNoRows) {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			return CreateResult{}, err
		}
		existing, err := r.GetBySessionID(ctx, o.PaymentSessionID)
		if err != nil {
			return CreateResult{}, fmt.Errorf("load existing order: %w", err)
		}
		r.logger.Info("order already exists for session", zap.String("session_id", o.PaymentSessionID),
			zap.String("order_number", existing.OrderNumber))
		return CreateResult{Order: existing}, nil
	}
	if err != nil {
		r.logger.Error("insert order", zap.String("session_id", o.PaymentSessionID), zap.Error(err))
		return CreateResult{}, err
	}

	const insertItem = `
INSERT INTO order_items (order_id, position, product_id, title, unit_price_cents, quantity, image)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	batch := &pgx.Batch{}
	for i, item := range o.Items {
		batch.Queue(insertItem, created.ID, i, item.ProductID, item.Title, item.UnitPriceCents, item.Quantity, item.Image)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		r.logger.Error("insert order items", zap.String("order_id", created.ID), zap.Error(err))
		return CreateResult{}, err
	}

	var oversold []string
	for _, item := range o.Items {
		short, err := decrementStock(ctx, tx, item.ProductID, item.Quantity)
		if err != nil {
			r.logger.Error("decrement stock", zap.String("product_id", item.ProductID), zap.Error(err))
			return CreateResult{}, err
		}
		if short {
			oversold = append(oversold, item.ProductID)
			r.logger.Warn("stock clamped at zero", zap.String("product_id", item.ProductID),
				zap.Int("quantity", item.Quantity), zap.String("order_id", created.ID))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return CreateResult{}, fmt.Errorf("commit: %w", err)
	}

	created.Items = append([]domain.OrderItem(nil), o.Items...)
	r.logger.Info("order created", zap.String("order_id", created.ID), zap.String("order_number", created.OrderNumber),
		zap.Int("items", len(created.Items)))
	return CreateResult{Order: created, Created: true, Oversold: oversold}, nil
}

// decrementStock lowers stock by qty without going below zero and reports whether it had to clamp.
// A product that no longer exists is skipped.
func decrementStock(ctx context.Context, tx pgx.Tx, productID string, qty int) (bool, error) {
	const q = `
WITH prev AS (SELECT id, stock FROM products WHERE id = $1 FOR UPDATE)
UPDATE products p SET stock = GREATEST(prev.stock - $2, 0), updated_at = now()
FROM prev WHERE p.id = prev.id
RETURNING prev.stock`
	var before int
	err := tx.QueryRow(ctx, q, productID, qty).Scan(&before)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return before < qty, nil
}

func (r *postgresRepo) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus, trackingNumber, notes *string) (*domain.Order, error) {
	q := `
UPDATE orders SET
    status = $2,
    tracking_number = COALESCE($3, tracking_number),
    notes = COALESCE($4, notes),
    updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns
	return r.updateOne(ctx, q, id, string(status), trackingNumber, notes)
}

func (r *postgresRepo) UpdatePaymentStatus(ctx context.Context, id string, status domain.PaymentStatus) (*domain.Order, error) {
	q := `UPDATE orders SET payment_status = $2, updated_at = now() WHERE id = $1 RETURNING ` + orderColumns
	return r.updateOne(ctx, q, id, string(status))
}

func (r *postgresRepo) updateOne(ctx context.Context, q string, args ...any) (*domain.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, q, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Error("update order", zap.Error(err))
		return nil, err
	}
	orders := []domain.Order{*o}
	if err := r.loadItems(ctx, r.pool, orders); err != nil {
		return nil, err
	}
	r.logger.Info("order updated", zap.String("order_id", o.ID), zap.String("status", string(o.Status)),
		zap.String("payment_status", string(o.PaymentStatus)))
	return &orders[0], nil
}

func (r *postgresRepo) SetPaymentStatusByIntent(ctx context.Context, intentID string, status domain.PaymentStatus) (int, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE orders SET payment_status = $2, updated_at = now() WHERE payment_intent_id = $1`, intentID, string(status))
	if err != nil {
		r.logger.Error("set payment status by intent", zap.String("intent_id", intentID), zap.Error(err))
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r *postgresRepo) Summary(ctx context.Context, from, recentSince time.Time) (Summary, error) {
	s := Summary{StatusCounts: map[domain.OrderStatus]int{}, RevenueByMonth: []MonthRevenue{}}

	const totals = `
SELECT count(*) FILTER (WHERE created_at >= $1),
       COALESCE(sum(total_cents) FILTER (WHERE created_at >= $1), 0)::bigint,
       count(*) FILTER (WHERE created_at >= $2)
FROM orders
WHERE payment_status = 'paid' AND created_at >= LEAST($1, $2)`
	if err := r.pool.QueryRow(ctx, totals, from, recentSince).Scan(&s.PaidOrders, &s.PaidRevenueCents, &s.RecentPaidOrders); err != nil {
		r.logger.Error("summary totals", zap.Error(err))
		return Summary{}, err
	}

	rows, err := r.pool.Query(ctx, `SELECT status, count(*) FROM orders WHERE created_at >= $1 GROUP BY status`, from)
	if err != nil {
		r.logger.Error("summary status counts", zap.Error(err))
		return Summary{}, err
	}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			rows.Close()
			return Summary{}, err
		}
		s.StatusCounts[domain.OrderStatus(status)] = n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Summary{}, err
	}

	const monthly = `
SELECT to_char(date_trunc('month', created_at AT TIME ZONE 'UTC'), 'YYYY-MM') AS month,
       sum(total_cents)::bigint, count(*)
FROM orders
WHERE payment_status = 'paid' AND created_at >= $1
GROUP BY month
ORDER BY month`
	rows, err = r.pool.Query(ctx, monthly, from)
	if err != nil {
		r.logger.Error("summary monthly revenue", zap.Error(err))
		return Summary{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var m MonthRevenue
		if err := rows.Scan(&m.Month, &m.RevenueCents, &m.Orders); err != nil {
			return Summary{}, err
		}
		s.RevenueByMonth = append(s.RevenueByMonth, m)
	}
	return s, rows.Err()
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// loadItems fills Items on every order with a single query.
func (r *postgresRepo) loadItems(ctx context.Context, q querier, orders []domain.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, len(orders))
	index := make(map[string]int, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
		index[orders[i].ID] = i
		orders[i].Items = []domain.OrderItem{}
	}

	rows, err := q.Query(ctx, `
SELECT order_id::text, product_id::text, title, unit_price_cents, quantity, image
FROM order_items
WHERE order_id = ANY($1::text[]::uuid[])
ORDER BY order_id, position`, ids)
	if err != nil {
		r.logger.Error("load order items", zap.Error(err))
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var orderID string
		var it domain.OrderItem
		if err := rows.Scan(&orderID, &it.ProductID, &it.Title, &it.UnitPriceCents, &it.Quantity, &it.Image); err != nil {
			return err
		}
		if i, ok := index[orderID]; ok {
			orders[i].Items = append(orders[i].Items, it)
		}
	}
	return rows.Err()
}

func collectOrders(rows pgx.Rows) ([]domain.Order, error) {
	defer rows.Close()
	result := []domain.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *o)
	}
	return result, rows.Err()
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	var status, paymentStatus string
	var address []byte
	if err := row.Scan(&o.ID, &o.OrderNumber, &o.CustomerEmail, &o.CustomerName, &o.SubtotalCents, &o.TaxCents,
		&o.ShippingCents, &o.TotalCents, &status, &paymentStatus, &o.PaymentSessionID, &o.PaymentIntentID,
		&address, &o.TrackingNumber, &o.Notes, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	o.Status = domain.OrderStatus(status)
	o.PaymentStatus = domain.PaymentStatus(paymentStatus)
	if len(address) > 0 && string(address) != "null" {
		var a domain.Address
		if err := json.Unmarshal(address, &a); err != nil {
			return nil, fmt.Errorf("decode shipping address: %w", err)
		}
		o.ShippingAddress = &a
	}
	return &o, nil
}

func encodeAddress(a *domain.Address) (any, error) {
	if a == nil {
		return nil, nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func sortColumn(s SortField) string {
	switch s {
	case SortTotal, SortOrderNumber, SortStatus:
		return string(s)
	default:
		return string(SortCreatedAt)
	}
}
