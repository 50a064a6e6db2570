// Package analytics holds read-only reporting queries over orders and products.
// Revenue figures only include orders whose payment status is paid.
package analytics

import (
	"context"
	"time"

	"storefront/internal/domain"
)

type Unit string

const (
	UnitDay   Unit = "day"
	UnitWeek  Unit = "week"
	UnitMonth Unit = "month"
)

type TopBy string

const (
	TopByQuantity TopBy = "quantity"
	TopByRevenue  TopBy = "revenue"
)

type PeriodStats struct {
	RevenueCents int64
	Orders       int
}

// Bucket is one chronological slice of paid sales. Start is the UTC start of the day, ISO week or month.
type Bucket struct {
	Start        time.Time
	RevenueCents int64
	Orders       int
	Items        int
}

type ProductSales struct {
	ProductID    string
	Title        string
	Quantity     int
	RevenueCents int64
	// AveragePriceCents is the mean unit price across line items.
	AveragePriceCents int64
	Orders            int
}

type CategorySales struct {
	Category     string
	Quantity     int
	RevenueCents int64
	Products     int
}

type RecentOrder struct {
	ID           string
	OrderNumber  string
	CustomerName string
	TotalCents   int64
	Status       domain.OrderStatus
	CreatedAt    time.Time
}

type StockItem struct {
	ID         string
	Title      string
	Category   string
	Stock      int
	PriceCents int64
}

type Inventory struct {
	TotalProducts   int
	LowStock        int
	OutOfStock      int
	TotalValueCents int64
}

type Repository interface {
	// PeriodStats covers paid orders created in [from, to).
	PeriodStats(ctx context.Context, from, to time.Time) (PeriodStats, error)
	Buckets(ctx context.Context, unit Unit, from, to time.Time) ([]Bucket, error)
	TopProducts(ctx context.Context, from, to time.Time, by TopBy, limit int) ([]ProductSales, error)
	CategoryPerformance(ctx context.Context, from, to time.Time) ([]CategorySales, error)
	RecentPaidOrders(ctx context.Context, limit int) ([]RecentOrder, error)
	// LowStock lists active products with stock below threshold, lowest first.
	LowStock(ctx context.Context, threshold, limit int) ([]StockItem, error)
	Inventory(ctx context.Context, lowThreshold int) (Inventory, error)
}
