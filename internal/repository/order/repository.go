package order

import (
	"context"
	"time"

	"storefront/internal/domain"
)

type SortField string

const (
	SortCreatedAt   SortField = "created_at"
	SortTotal       SortField = "total_cents"
	SortOrderNumber SortField = "order_number"
	SortStatus      SortField = "status"
)

// ListFilter narrows an order listing. From is inclusive; To is inclusive unless ToExclusive is set.
type ListFilter struct {
	Status        *domain.OrderStatus
	PaymentStatus *domain.PaymentStatus
	Search        string
	From          *time.Time
	To            *time.Time
	ToExclusive   bool
	Sort          SortField
	Desc          bool
	Limit         int
	Offset        int
}

// CreateResult reports the outcome of CreateWithStockDecrement.
type CreateResult struct {
	Order *domain.Order
	// Created is false when an order for the same payment session already existed.
	Created bool
	// Oversold lists products whose stock was lower than the ordered quantity and got clamped at zero.
	Oversold []string
}

// MonthRevenue is paid revenue for one calendar month (YYYY-MM).
type MonthRevenue struct {
	Month        string
	RevenueCents int64
	Orders       int
}

// Summary aggregates orders created since a point in time.
type Summary struct {
	PaidOrders       int
	PaidRevenueCents int64
	RecentPaidOrders int
	StatusCounts     map[domain.OrderStatus]int
	RevenueByMonth   []MonthRevenue
}

type Repository interface {
	List(ctx context.Context, f ListFilter) ([]domain.Order, int, error)
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	GetByNumberAndEmail(ctx context.Context, number, email string) (*domain.Order, error)
	GetBySessionID(ctx context.Context, sessionID string) (*domain.Order, error)
	// CreateWithStockDecrement inserts o and decrements product stock in one transaction.
	// It is a no-op when an order with o.PaymentSessionID already exists.
	CreateWithStockDecrement(ctx context.Context, o domain.Order) (CreateResult, error)
	UpdateStatus(ctx context.Context, id string, status domain.OrderStatus, trackingNumber, notes *string) (*domain.Order, error)
	UpdatePaymentStatus(ctx context.Context, id string, status domain.PaymentStatus) (*domain.Order, error)
	// SetPaymentStatusByIntent updates every order carrying intentID and reports how many matched.
	SetPaymentStatusByIntent(ctx context.Context, intentID string, status domain.PaymentStatus) (int, error)
	Summary(ctx context.Context, from, recentSince time.Time) (Summary, error)
}
