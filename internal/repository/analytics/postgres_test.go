package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"storefront/internal/repository/pgtest"
)

func TestPostgres_Aggregates(t *testing.T) {
	ctx := context.Background()
	pool := pgtest.Pool(ctx, t)
	repo := NewPostgres(pool, nil)

	tee := insertProduct(ctx, t, pool, "Tee", "Apparel", 1500, 3)
	mug := insertProduct(ctx, t, pool, "Mug", "Kitchen", 1000, 0)
	insertProduct(ctx, t, pool, "Lamp", "Home", 4000, 20)

	day := time.Date(2024, 5, 6, 10, 0, 0, 0, time.UTC)
	insertOrder(ctx, t, pool, "paid", day, []line{{tee, 1500, 2}, {mug, 1000, 1}})
	insertOrder(ctx, t, pool, "paid", day.Add(26*time.Hour), []line{{tee, 1500, 1}})
	insertOrder(ctx, t, pool, "failed", day, []line{{mug, 1000, 5}})

	from, to := day.AddDate(0, 0, -1), day.AddDate(0, 0, 7)

	stats, err := repo.PeriodStats(ctx, from, to)
	if err != nil {
		t.Fatalf("PeriodStats: %v", err)
	}
	if stats.Orders != 2 || stats.RevenueCents != 5500 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	buckets, err := repo.Buckets(ctx, UnitDay, from, to)
	if err != nil {
		t.Fatalf("Buckets: %v", err)
	}
	if len(buckets) != 2 || buckets[0].Items != 3 || !buckets[0].Start.Equal(time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected buckets %+v", buckets)
	}

	top, err := repo.TopProducts(ctx, from, to, TopByQuantity, 10)
	if err != nil {
		t.Fatalf("TopProducts: %v", err)
	}
	if len(top) != 2 || top[0].ProductID != tee || top[0].Quantity != 3 || top[0].Orders != 2 {
		t.Fatalf("unexpected top products %+v", top)
	}

	cats, err := repo.CategoryPerformance(ctx, from, to)
	if err != nil {
		t.Fatalf("CategoryPerformance: %v", err)
	}
	if len(cats) != 2 || cats[0].Category != "Apparel" || cats[0].RevenueCents != 4500 {
		t.Fatalf("unexpected categories %+v", cats)
	}

	low, err := repo.LowStock(ctx, 10, 10)
	if err != nil {
		t.Fatalf("LowStock: %v", err)
	}
	if len(low) != 2 || low[0].ID != mug {
		t.Fatalf("unexpected low stock %+v", low)
	}

	inv, err := repo.Inventory(ctx, 10)
	if err != nil {
		t.Fatalf("Inventory: %v", err)
	}
	if inv.TotalProducts != 3 || inv.LowStock != 2 || inv.OutOfStock != 1 || inv.TotalValueCents != 1500*3+4000*20 {
		t.Fatalf("unexpected inventory %+v", inv)
	}
}

type line struct {
	productID string
	price     int64
	qty       int
}

func insertProduct(ctx context.Context, t *testing.T, pool *pgxpool.Pool, title, category string, price int64, stock int) string {
	t.Helper()
	var id string
	err := pool.QueryRow(ctx, `
		INSERT INTO products (title, description, price_cents, category, stock)
		VALUES ($1, 'desc', $2, $3, $4) RETURNING id::text`, title, price, category, stock).Scan(&id)
	if err != nil {
		t.Fatalf("insert product: %v", err)
	}
	return id
}

func insertOrder(ctx context.Context, t *testing.T, pool *pgxpool.Pool, paymentStatus string, at time.Time, lines []line) {
	t.Helper()
	var subtotal int64
	for _, l := range lines {
		subtotal += l.price * int64(l.qty)
	}
	var id string
	err := pool.QueryRow(ctx, `
		INSERT INTO orders (customer_email, customer_name, subtotal_cents, tax_cents, shipping_cents, total_cents,
		                    status, payment_status, created_at)
		VALUES ('a@example.com', 'A', $1, 0, 0, $1, 'processing', $2, $3) RETURNING id::text`,
		subtotal, paymentStatus, at).Scan(&id)
	if err != nil {
		t.Fatalf("insert order: %v", err)
	}
	for i, l := range lines {
		if _, err := pool.Exec(ctx, `
			INSERT INTO order_items (order_id, position, product_id, title, unit_price_cents, quantity)
			VALUES ($1, $2, $3, 'item', $4, $5)`, id, i, l.productID, l.price, l.qty); err != nil {
			t.Fatalf("insert item: %v", err)
		}
	}
}
