package seed

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"storefront/internal/domain"
	"storefront/internal/pricing"
)

type productSeed struct {
	SKU         string
	Title       string
	Description string
	PriceCents  int64
	Category    string
	Stock       int
	Image       string
	Tags        []string
}

var products = []productSeed{
	{"WBH-001", "Wireless Bluetooth Headphones", "High-quality wireless headphones with noise cancellation and 30-hour battery life.", 29999, "Electronics", 25, "https://images.unsplash.com/photo-1505740420928-5e560c06d30e?w=300&h=300&fit=crop", []string{"wireless", "bluetooth", "headphones", "audio"}},
	{"OCT-001", "Organic Cotton T-Shirt", "Comfortable and sustainable organic cotton t-shirt.", 2999, "Clothing", 100, "", []string{"organic", "cotton", "sustainable", "basic"}},
	{"SFW-001", "Smart Fitness Watch", "Track heart rate, sleep and workouts with a week of battery life.", 19999, "Electronics", 15, "", []string{"fitness", "smartwatch", "health", "tracking"}},
	{"CCM-001", "Ceramic Coffee Mug Set", "Set of four handcrafted ceramic mugs.", 4999, "Home & Kitchen", 50, "", []string{"ceramic", "coffee", "handcrafted", "set"}},
	{"LLB-001", "Leather Laptop Bag", "Genuine leather bag with a padded 15-inch laptop compartment.", 14999, "Accessories", 30, "", []string{"leather", "laptop", "professional", "bag"}},
	{"YMP-001", "Yoga Mat Premium", "Non-slip, eco-friendly yoga mat with alignment lines.", 7999, "Sports & Fitness", 40, "", []string{"yoga", "fitness", "eco-friendly", "exercise"}},
	{"SSW-001", "Stainless Steel Water Bottle", "Insulated bottle that keeps drinks cold for 24 hours.", 3499, "Sports & Fitness", 75, "", []string{"water bottle", "insulated", "stainless steel", "hydration"}},
	{"WPC-001", "Wireless Phone Charger", "Fast Qi wireless charging pad.", 3999, "Electronics", 60, "", []string{"wireless", "charger", "phone", "qi"}},
	{"SCC-001", "Scented Candle Collection", "Three hand-poured soy wax candles.", 5999, "Home & Kitchen", 35, "", []string{"candles", "soy wax", "scented", "relaxation"}},
	{"GMR-001", "Gaming Mouse RGB", "High-precision gaming mouse with programmable buttons.", 8999, "Electronics", 20, "", []string{"gaming", "mouse", "rgb", "precision"}},
	{"PBP-001", "Plant-Based Protein Powder", "Organic plant protein blend, vanilla flavour.", 4499, "Health & Wellness", 45, "", []string{"protein", "plant-based", "organic", "fitness"}},
	{"BCS-001", "Bamboo Cutting Board Set", "Three sustainable bamboo cutting boards.", 3999, "Home & Kitchen", 55, "", []string{"bamboo", "cutting board", "sustainable", "kitchen"}},
}

type Options struct {
	AdminEmail    string
	AdminPassword string
	// Orders is the number of sample orders to create when the orders table is empty.
	Orders int
	// Now anchors sample order dates. Defaults to time.Now.
	Now time.Time
}

// Apply inserts demo data for manual testing. It is idempotent: products are upserted by SKU, the
// admin user is only created once, and sample orders are only added to an empty orders table.
func Apply(ctx context.Context, pool *pgxpool.Pool, opts Options, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}

	ids := make([]string, 0, len(products))
	for _, p := range products {
		id, err := upsertProduct(ctx, pool, p)
		if err != nil {
			return fmt.Errorf("upsert product %s: %w", p.SKU, err)
		}
		ids = append(ids, id)
	}
	logger.Info("seeded products", zap.Int("count", len(ids)))

	if opts.AdminEmail != "" {
		created, err := ensureAdmin(ctx, pool, opts.AdminEmail, opts.AdminPassword)
		if err != nil {
			return fmt.Errorf("ensure admin: %w", err)
		}
		logger.Info("seeded admin user", zap.String("email", opts.AdminEmail), zap.Bool("created", created))
	}

	if opts.Orders > 0 {
		n, err := sampleOrders(ctx, pool, ids, opts)
		if err != nil {
			return fmt.Errorf("sample orders: %w", err)
		}
		logger.Info("seeded orders", zap.Int("count", n))
	}
	return nil
}

func upsertProduct(ctx context.Context, pool *pgxpool.Pool, p productSeed) (string, error) {
	const q = `
INSERT INTO products (sku, title, description, price_cents, category, stock, image, tags)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (sku) WHERE state = 'active' AND sku IS NOT NULL DO UPDATE
SET title = EXCLUDED.title,
    description = EXCLUDED.description,
    price_cents = EXCLUDED.price_cents,
    category = EXCLUDED.category,
    image = EXCLUDED.image,
    tags = EXCLUDED.tags,
    updated_at = now()
RETURNING id::text
`
	image := p.Image
	if image == "" {
		image = domain.DefaultProductImage
	}
	var id string
	err := pool.QueryRow(ctx, q, p.SKU, p.Title, p.Description, p.PriceCents, p.Category, p.Stock, image, p.Tags).Scan(&id)
	return id, err
}

func ensureAdmin(ctx context.Context, pool *pgxpool.Pool, email, password string) (bool, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return false, err
	}
	const q = `
INSERT INTO users (email, password_hash, role, first_name, last_name)
VALUES ($1, $2, 'admin', 'Admin', 'User')
ON CONFLICT (email) DO NOTHING
`
	tag, err := pool.Exec(ctx, q, domain.NormalizeEmail(email), string(hash))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// sampleOrders spreads orders over the last 90 days with a fixed random source so reruns on a
// fresh database produce the same data.
func sampleOrders(ctx context.Context, pool *pgxpool.Pool, productIDs []string, opts Options) (int, error) {
	var existing int
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM orders`).Scan(&existing); err != nil {
		return 0, err
	}
	if existing > 0 {
		return 0, nil
	}

	rng := rand.New(rand.NewSource(42))
	statuses := []domain.OrderStatus{domain.OrderStatusPending, domain.OrderStatusProcessing, domain.OrderStatusShipped, domain.OrderStatusDelivered}
	payments := []domain.PaymentStatus{domain.PaymentStatusPaid, domain.PaymentStatusPending}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < opts.Orders; i++ {
		picks := rng.Perm(len(productIDs))[:rng.Intn(3)+1]
		type line struct {
			seed productSeed
			id   string
			qty  int
		}
		lines := make([]line, 0, len(picks))
		var subtotal int64
		for _, idx := range picks {
			l := line{seed: products[idx], id: productIDs[idx], qty: rng.Intn(3) + 1}
			subtotal += l.seed.PriceCents * int64(l.qty)
			lines = append(lines, l)
		}
		quote := pricing.QuoteSubtotal(subtotal)
		created := opts.Now.AddDate(0, 0, -rng.Intn(90))

		var orderID string
		err := tx.QueryRow(ctx, `
INSERT INTO orders (customer_email, customer_name, subtotal_cents, tax_cents, shipping_cents, total_cents,
                    status, payment_status, payment_session_id, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
RETURNING id::text`,
			fmt.Sprintf("customer%d@example.com", i+1), fmt.Sprintf("Customer %d", i+1),
			quote.SubtotalCents, quote.TaxCents, quote.ShippingCents, quote.TotalCents,
			string(statuses[rng.Intn(len(statuses))]), string(payments[rng.Intn(len(payments))]),
			fmt.Sprintf("cs_seed_%d", i+1), created,
		).Scan(&orderID)
		if err != nil {
			return 0, err
		}

		batch := &pgx.Batch{}
		for pos, l := range lines {
			batch.Queue(`
INSERT INTO order_items (order_id, position, product_id, title, unit_price_cents, quantity, image)
VALUES ($1, $2, $3, $4, $5, $6, $7)`, orderID, pos, l.id, l.seed.Title, l.seed.PriceCents, l.qty, l.seed.Image)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return opts.Orders, nil
}
