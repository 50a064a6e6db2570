package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"storefront/internal/domain"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &postgresRepo{pool: pool, logger: logger.Named("analytics_repo")}
}

func (r *postgresRepo) PeriodStats(ctx context.Context, from, to time.Time) (PeriodStats, error) {
	const q = `
SELECT COALESCE(sum(total_cents), 0)::bigint, count(*)
FROM orders
WHERE payment_status = 'paid' AND created_at >= $1 AND created_at < $2`
	var s PeriodStats
	if err := r.pool.QueryRow(ctx, q, from, to).Scan(&s.RevenueCents, &s.Orders); err != nil {
		r.logger.Error("period stats", zap.Error(err))
		return PeriodStats{}, err
	}
	return s, nil
}

func (r *postgresRepo) Buckets(ctx context.Context, unit Unit, from, to time.Time) ([]Bucket, error) {
	switch unit {
	case UnitDay, UnitWeek, UnitMonth:
	default:
		return nil, fmt.Errorf("unknown bucket unit %q", unit)
	}
	const q = `
WITH per_order AS (
    SELECT o.id, o.total_cents, o.created_at,
           (SELECT COALESCE(sum(quantity), 0) FROM order_items i WHERE i.order_id = o.id) AS items
    FROM orders o
    WHERE o.payment_status = 'paid' AND o.created_at >= $2 AND o.created_at < $3
)
SELECT date_trunc($1, created_at AT TIME ZONE 'UTC') AS bucket,
       sum(total_cents)::bigint, count(*), sum(items)::bigint
FROM per_order
GROUP BY bucket
ORDER BY bucket`
	rows, err := r.pool.Query(ctx, q, string(unit), from, to)
	if err != nil {
		r.logger.Error("sales buckets", zap.String("unit", string(unit)), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	result := []Bucket{}
	for rows.Next() {
		var b Bucket
		var items int64
		if err := rows.Scan(&b.Start, &b.RevenueCents, &b.Orders, &items); err != nil {
			return nil, err
		}
		b.Start = time.Date(b.Start.Year(), b.Start.Month(), b.Start.Day(), 0, 0, 0, 0, time.UTC)
		b.Items = int(items)
		result = append(result, b)
	}
	return result, rows.Err()
}

func (r *postgresRepo) TopProducts(ctx context.Context, from, to time.Time, by TopBy, limit int) ([]ProductSales, error) {
	order := "quantity DESC, revenue DESC"
	if by == TopByRevenue {
		order = "revenue DESC, quantity DESC"
	}
	q := fmt.Sprintf(`
SELECT i.product_id::text, min(i.title),
       sum(i.quantity)::bigint AS quantity,
       sum(i.unit_price_cents * i.quantity)::bigint AS revenue,
       round(avg(i.unit_price_cents))::bigint,
       count(DISTINCT i.order_id)
FROM order_items i
JOIN orders o ON o.id = i.order_id
WHERE o.payment_status = 'paid' AND o.created_at >= $1 AND o.created_at < $2
GROUP BY i.product_id
ORDER BY %s, i.product_id
LIMIT $3`, order)
	rows, err := r.pool.Query(ctx, q, from, to, limit)
	if err != nil {
		r.logger.Error("top products", zap.String("by", string(by)), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	result := []ProductSales{}
	for rows.Next() {
		var p ProductSales
		var qty int64
		if err := rows.Scan(&p.ProductID, &p.Title, &qty, &p.RevenueCents, &p.AveragePriceCents, &p.Orders); err != nil {
			return nil, err
		}
		p.Quantity = int(qty)
		result = append(result, p)
	}
	return result, rows.Err()
}

func (r *postgresRepo) CategoryPerformance(ctx context.Context, from, to time.Time) ([]CategorySales, error) {
	const q = `
SELECT p.category,
       sum(i.quantity)::bigint,
       sum(i.unit_price_cents * i.quantity)::bigint AS revenue,
       count(DISTINCT i.product_id)
FROM order_items i
JOIN orders o ON o.id = i.order_id
JOIN products p ON p.id = i.product_id
WHERE o.payment_status = 'paid' AND o.created_at >= $1 AND o.created_at < $2
GROUP BY p.category
ORDER BY revenue DESC, p.category`
	rows, err := r.pool.Query(ctx, q, from, to)
	if err != nil {
		r.logger.Error("category performance", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	result := []CategorySales{}
	for rows.Next() {
		var c CategorySales
		var qty int64
		if err := rows.Scan(&c.Category, &qty, &c.RevenueCents, &c.Products); err != nil {
			return nil, err
		}
		c.Quantity = int(qty)
		result = append(result, c)
	}
	return result, rows.Err()
}

func (r *postgresRepo) RecentPaidOrders(ctx context.Context, limit int) ([]RecentOrder, error) {
	const q = `
SELECT id::text, order_number, customer_name, total_cents, status, created_at
FROM orders
WHERE payment_status = 'paid'
ORDER BY created_at DESC
LIMIT $1`
	rows, err := r.pool.Query(ctx, q, limit)
	if err != nil {
		r.logger.Error("recent orders", zap.Error(err))
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (RecentOrder, error) {
		var o RecentOrder
		var status string
		err := row.Scan(&o.ID, &o.OrderNumber, &o.CustomerName, &o.TotalCents, &status, &o.CreatedAt)
		o.Status = domain.OrderStatus(status)
		return o, err
	})
}

func (r *postgresRepo) LowStock(ctx context.Context, threshold, limit int) ([]StockItem, error) {
	const q = `
SELECT id::text, title, category, stock, price_cents
FROM products
WHERE state = 'active' AND stock < $1
ORDER BY stock, title
LIMIT $2`
	rows, err := r.pool.Query(ctx, q, threshold, limit)
	if err != nil {
		r.logger.Error("low stock", zap.Error(err))
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (StockItem, error) {
		var s StockItem
		err := row.Scan(&s.ID, &s.Title, &s.Category, &s.Stock, &s.PriceCents)
		return s, err
	})
}

func (r *postgresRepo) Inventory(ctx context.Context, lowThreshold int) (Inventory, error) {
	const q = `
SELECT count(*),
       count(*) FILTER (WHERE stock < $1),
       count(*) FILTER (WHERE stock = 0),
       COALESCE(sum(price_cents * stock), 0)::bigint
FROM products
WHERE state = 'active'`
	var inv Inventory
	if err := r.pool.QueryRow(ctx, q, lowThreshold).Scan(&inv.TotalProducts, &inv.LowStock, &inv.OutOfStock, &inv.TotalValueCents); err != nil {
		r.logger.Error("inventory", zap.Error(err))
		return Inventory{}, err
	}
	return inv, nil
}
