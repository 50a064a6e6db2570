package domain

import "time"

const (
	MaxTitleLength       = 100
	MaxDescriptionLength = 1000
	DefaultProductImage  = "https://via.placeholder.com/300x300?text=Product+Image"
)

// ProductState is the lifecycle state of a catalog record. Deleting a product moves it to
// ProductInactive; rows are never removed.
type ProductState string

const (
	ProductActive   ProductState = "active"
	ProductInactive ProductState = "inactive"
)

// IsValid reports whether s is a known state.
func (s ProductState) IsValid() bool {
	switch s {
	case ProductActive, ProductInactive:
		return true
	default:
		return false
	}
}

// Public reports whether products in this state are visible to storefront callers.
func (s ProductState) Public() bool {
	return s == ProductActive
}

// StateFromActive maps the API's isActive flag onto a ProductState.
func StateFromActive(active bool) ProductState {
	if active {
		return ProductActive
	}
	return ProductInactive
}

type Product struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	PriceCents  int64        `json:"priceCents"`
	Image       string       `json:"image"`
	Category    string       `json:"category"`
	Stock       int          `json:"stock"`
	State       ProductState `json:"state"`
	SKU         string       `json:"sku,omitempty"`
	Tags        []string     `json:"tags"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

func (p Product) InStock() bool {
	return p.Stock > 0
}

func (p Product) IsActive() bool {
	return p.State.Public()
}
