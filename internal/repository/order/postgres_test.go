package order

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"storefront/internal/domain"
	"storefront/internal/repository/pgtest"
)

func TestPostgres_CreateWithStockDecrementIsIdempotent(t *testing.T) {
	ctx := context.Background()
	pool := pgtest.Pool(ctx, t)
	repo := NewPostgres(pool, nil)

	productID := insertProduct(ctx, t, pool, 5)

	o := paidOrder("cs_test_1", productID, 5)
	o.ShippingAddress = &domain.Address{Line1: "1 Main St", City: "Springfield", Country: "US"}

	res, err := repo.CreateWithStockDecrement(ctx, o)
	if err != nil {
		t.Fatalf("CreateWithStockDecrement: %v", err)
	}
	if !res.Created || len(res.Oversold) != 0 {
		t.Fatalf("unexpected result %+v", res)
	}
	if !strings.HasPrefix(res.Order.OrderNumber, "ORD-") {
		t.Fatalf("unexpected order number %q", res.Order.OrderNumber)
	}
	if got := stockOf(ctx, t, pool, productID); got != 0 {
		t.Fatalf("expected stock 0, got %d", got)
	}

	again, err := repo.CreateWithStockDecrement(ctx, o)
	if err != nil {
		t.Fatalf("second CreateWithStockDecrement: %v", err)
	}
	if again.Created || again.Order.ID != res.Order.ID {
		t.Fatalf("expected existing order to be returned, got %+v", again)
	}
	if got := stockOf(ctx, t, pool, productID); got != 0 {
		t.Fatalf("second confirmation must not decrement, stock=%d", got)
	}

	loaded, err := repo.GetBySessionID(ctx, "cs_test_1")
	if err != nil {
		t.Fatalf("GetBySessionID: %v", err)
	}
	if len(loaded.Items) != 1 || loaded.Items[0].Quantity != 5 {
		t.Fatalf("unexpected items %+v", loaded.Items)
	}
	if loaded.ShippingAddress == nil || loaded.ShippingAddress.City != "Springfield" {
		t.Fatalf("unexpected address %+v", loaded.ShippingAddress)
	}
}

func TestPostgres_CreateClampsOversoldStock(t *testing.T) {
	ctx := context.Background()
	pool := pgtest.Pool(ctx, t)
	repo := NewPostgres(pool, nil)

	productID := insertProduct(ctx, t, pool, 2)
	res, err := repo.CreateWithStockDecrement(ctx, paidOrder("cs_test_2", productID, 3))
	if err != nil {
		t.Fatalf("CreateWithStockDecrement: %v", err)
	}
	if len(res.Oversold) != 1 || res.Oversold[0] != productID {
		t.Fatalf("expected oversold product, got %v", res.Oversold)
	}
	if got := stockOf(ctx, t, pool, productID); got != 0 {
		t.Fatalf("expected stock clamped to 0, got %d", got)
	}
}

func TestPostgres_StatusUpdatesAndLookup(t *testing.T) {
	ctx := context.Background()
	pool := pgtest.Pool(ctx, t)
	repo := NewPostgres(pool, nil)

	productID := insertProduct(ctx, t, pool, 10)
	o := paidOrder("cs_test_3", productID, 1)
	o.PaymentIntentID = "pi_3"
	res, err := repo.CreateWithStockDecrement(ctx, o)
	if err != nil {
		t.Fatalf("CreateWithStockDecrement: %v", err)
	}

	tracking := "1Z999"
	updated, err := repo.UpdateStatus(ctx, res.Order.ID, domain.OrderStatusDelivered, &tracking, nil)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if updated.Status != domain.OrderStatusDelivered || updated.TrackingNumber != "1Z999" {
		t.Fatalf("unexpected order %+v", updated)
	}

	n, err := repo.SetPaymentStatusByIntent(ctx, "pi_3", domain.PaymentStatusRefunded)
	if err != nil || n != 1 {
		t.Fatalf("SetPaymentStatusByIntent n=%d err=%v", n, err)
	}

	found, err := repo.GetByNumberAndEmail(ctx, res.Order.OrderNumber, "JANE@example.com")
	if err != nil {
		t.Fatalf("GetByNumberAndEmail: %v", err)
	}
	if found.PaymentStatus != domain.PaymentStatusRefunded {
		t.Fatalf("expected refunded, got %s", found.PaymentStatus)
	}

	if _, err := repo.GetByNumberAndEmail(ctx, res.Order.OrderNumber, "other@example.com"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for mismatched email, got %v", err)
	}
}

func TestPostgres_ListDateRangeAndSummary(t *testing.T) {
	ctx := context.Background()
	pool := pgtest.Pool(ctx, t)
	repo := NewPostgres(pool, nil)

	productID := insertProduct(ctx, t, pool, 100)
	for _, sid := range []string{"cs_a", "cs_b", "cs_c"} {
		if _, err := repo.CreateWithStockDecrement(ctx, paidOrder(sid, productID, 1)); err != nil {
			t.Fatalf("create %s: %v", sid, err)
		}
	}
	boundary := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	if _, err := pool.Exec(ctx, `UPDATE orders SET created_at = $2 WHERE payment_session_id = $1`, "cs_a", boundary); err != nil {
		t.Fatalf("backdate: %v", err)
	}
	if _, err := pool.Exec(ctx, `UPDATE orders SET created_at = $2 WHERE payment_session_id = $1`, "cs_b", boundary.Add(time.Second)); err != nil {
		t.Fatalf("backdate: %v", err)
	}

	to := boundary
	list, total, err := repo.List(ctx, ListFilter{From: &boundary, To: &to, Limit: 10})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 1 || list[0].PaymentSessionID != "cs_a" {
		t.Fatalf("inclusive range should match only the boundary order, got %+v", list)
	}

	list, total, err = repo.List(ctx, ListFilter{Search: "jane", Limit: 2, Sort: SortOrderNumber})
	if err != nil {
		t.Fatalf("List search: %v", err)
	}
	if total != 3 || len(list) != 2 {
		t.Fatalf("expected page of 2 out of 3, got %d/%d", len(list), total)
	}

	now := time.Now()
	s, err := repo.Summary(ctx, now.AddDate(0, 0, -30), now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if s.PaidOrders != 1 || s.RecentPaidOrders != 1 || s.PaidRevenueCents != 3160 {
		t.Fatalf("unexpected summary %+v", s)
	}
	if s.StatusCounts[domain.OrderStatusProcessing] != 1 {
		t.Fatalf("unexpected status counts %v", s.StatusCounts)
	}
}

func paidOrder(sessionID, productID string, qty int) domain.Order {
	return domain.Order{
		CustomerEmail:    "Jane@Example.com",
		CustomerName:     "Jane Doe",
		Items:            []domain.OrderItem{{ProductID: productID, Title: "Tee", UnitPriceCents: 2000, Quantity: qty}},
		SubtotalCents:    2000,
		TaxCents:         160,
		ShippingCents:    1000,
		TotalCents:       3160,
		Status:           domain.OrderStatusProcessing,
		PaymentStatus:    domain.PaymentStatusPaid,
		PaymentSessionID: sessionID,
	}
}

func insertProduct(ctx context.Context, t *testing.T, pool *pgxpool.Pool, stock int) string {
	t.Helper()
	var id string
	err := pool.QueryRow(ctx, `
		INSERT INTO products (title, description, price_cents, category, stock)
		VALUES ('Tee', 'Cotton tee', 2000, 'Apparel', $1)
		RETURNING id::text`, stock).Scan(&id)
	if err != nil {
		t.Fatalf("insert product: %v", err)
	}
	return id
}

func stockOf(ctx context.Context, t *testing.T, pool *pgxpool.Pool, id string) int {
	t.Helper()
	var stock int
	if err := pool.QueryRow(ctx, `SELECT stock FROM products WHERE id = $1`, id).Scan(&stock); err != nil {
		t.Fatalf("read stock: %v", err)
	}
	return stock
}
