package product

import (
	"context"

	"storefront/internal/domain"
)

// SortField is a column products can be ordered by.
type SortField string

const (
	SortCreatedAt SortField = "created_at"
	SortTitle     SortField = "title"
	SortPrice     SortField = "price_cents"
)

// ListFilter narrows a product listing. Zero values mean "no constraint".
type ListFilter struct {
	Category      string
	Search        string
	SearchSKU     bool
	MinPriceCents *int64
	MaxPriceCents *int64
	InStockOnly   bool
	State         *domain.ProductState
	Sort          SortField
	Desc          bool
	Limit         int
	Offset        int
}

type Repository interface {
	List(ctx context.Context, f ListFilter) ([]domain.Product, int, error)
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	Categories(ctx context.Context) ([]string, error)
	Create(ctx context.Context, p domain.Product) (*domain.Product, error)
	Update(ctx context.Context, p domain.Product) (*domain.Product, error)
	SetState(ctx context.Context, id string, state domain.ProductState) error
	SetImage(ctx context.Context, id, image string) (*domain.Product, error)
	// UpsertBySKU inserts p or overwrites the active product carrying the same SKU.
	UpsertBySKU(ctx context.Context, p domain.Product) (*domain.Product, bool, error)
	// SKUTaken reports whether an active product other than excludeID uses sku.
	SKUTaken(ctx context.Context, sku, excludeID string) (bool, error)
}
