package seed

import (
	"context"
	"testing"
	"time"

	"storefront/internal/repository/pgtest"
)

func TestApply_Idempotent(t *testing.T) {
	ctx := context.Background()
	pool := pgtest.Pool(ctx, t)

	opts := Options{AdminEmail: "Admin@Example.com", AdminPassword: "admin123", Orders: 5, Now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	for i := 0; i < 2; i++ {
		if err := Apply(ctx, pool, opts, nil); err != nil {
			t.Fatalf("apply #%d: %v", i+1, err)
		}
	}

	var productCount, userCount, orderCount int
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM products`).Scan(&productCount); err != nil {
		t.Fatalf("count products: %v", err)
	}
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM users WHERE email = 'admin@example.com' AND role = 'admin'`).Scan(&userCount); err != nil {
		t.Fatalf("count users: %v", err)
	}
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM orders`).Scan(&orderCount); err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if productCount != len(products) || userCount != 1 || orderCount != 5 {
		t.Fatalf("unexpected counts products=%d users=%d orders=%d", productCount, userCount, orderCount)
	}

	var badTotals int
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM orders WHERE total_cents <> subtotal_cents + tax_cents + shipping_cents`).Scan(&badTotals); err != nil {
		t.Fatalf("check totals: %v", err)
	}
	if badTotals != 0 {
		t.Fatalf("expected consistent order totals, %d orders differ", badTotals)
	}
}
