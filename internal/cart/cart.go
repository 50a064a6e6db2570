// Package cart is the client-held shopping cart. It is owned by a single caller and persisted
// through a Store after every mutation; the server never trusts its prices.
package cart

import (
	"errors"
	"fmt"

	"storefront/internal/domain"
	"storefront/internal/pricing"
)

var (
	ErrOutOfStock   = errors.New("product is out of stock")
	ErrItemNotFound = errors.New("item not in cart")
)

// Item is a cart line with the price and stock seen when it was added.
type Item struct {
	ProductID      string `json:"productId"`
	Title          string `json:"title"`
	UnitPriceCents int64  `json:"unitPriceCents"`
	Image          string `json:"image,omitempty"`
	Quantity       int    `json:"quantity"`
	Stock          int    `json:"stock"`
}

func (i Item) LineTotalCents() int64 {
	return i.UnitPriceCents * int64(i.Quantity)
}

// Store loads and saves the cart's items.
type Store interface {
	Load() ([]Item, error)
	Save(items []Item) error
}

type Cart struct {
	store Store
	items []Item
}

// Open loads the cart from store. A nil store keeps the cart in memory only.
func Open(store Store) (*Cart, error) {
	if store == nil {
		store = NewMemoryStore()
	}
	items, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	return &Cart{store: store, items: items}, nil
}

// Add puts quantity units of p in the cart, merging with an existing line for the same product.
func (c *Cart) Add(p domain.Product, quantity int) error {
	if quantity < 1 {
		quantity = 1
	}
	if p.Stock <= 0 {
		return ErrOutOfStock
	}
	if i := c.index(p.ID); i >= 0 {
		c.items[i].Quantity += quantity
		c.items[i].Stock = p.Stock
		return c.save()
	}
	c.items = append(c.items, Item{
		ProductID:      p.ID,
		Title:          p.Title,
		UnitPriceCents: p.PriceCents,
		Image:          p.Image,
		Quantity:       quantity,
		Stock:          p.Stock,
	})
	return c.save()
}

// UpdateQuantity sets a line's quantity. Zero or less removes the line; more than the stock
// snapshot is rejected.
func (c *Cart) UpdateQuantity(productID string, quantity int) error {
	if quantity <= 0 {
		return c.Remove(productID)
	}
	i := c.index(productID)
	if i < 0 {
		return ErrItemNotFound
	}
	if quantity > c.items[i].Stock {
		return domain.Validationf("Only %d items available in stock", c.items[i].Stock)
	}
	c.items[i].Quantity = quantity
	return c.save()
}

func (c *Cart) Remove(productID string) error {
	i := c.index(productID)
	if i < 0 {
		return ErrItemNotFound
	}
	c.items = append(c.items[:i], c.items[i+1:]...)
	return c.save()
}

func (c *Cart) Clear() error {
	c.items = nil
	return c.save()
}

func (c *Cart) Items() []Item {
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Cart) Count() int {
	n := 0
	for _, it := range c.items {
		n += it.Quantity
	}
	return n
}

// Totals prices the cart with the same rules the checkout uses.
func (c *Cart) Totals() pricing.Quote {
	var subtotal int64
	for _, it := range c.items {
		subtotal += it.LineTotalCents()
	}
	return pricing.QuoteSubtotal(subtotal)
}

// CheckoutLine is the product id and quantity submitted to checkout.
type CheckoutLine struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

func (c *Cart) CheckoutItems() []CheckoutLine {
	out := make([]CheckoutLine, 0, len(c.items))
	for _, it := range c.items {
		out = append(out, CheckoutLine{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return out
}

func (c *Cart) index(productID string) int {
	for i, it := range c.items {
		if it.ProductID == productID {
			return i
		}
	}
	return -1
}

func (c *Cart) save() error {
	if err := c.store.Save(c.items); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}
