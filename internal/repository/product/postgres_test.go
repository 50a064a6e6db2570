package product

import (
	"context"
	"errors"
	"testing"

	"storefront/internal/domain"
	"storefront/internal/repository/pgtest"
)

func TestPostgres_CreateListAndGet(t *testing.T) {
	ctx := context.Background()
	pool := pgtest.Pool(ctx, t)
	repo := NewPostgres(pool, nil)

	mouse, err := repo.Create(ctx, domain.Product{
		Title: "Wireless Mouse", Description: "Ergonomic mouse", PriceCents: 2999,
		Category: "Electronics", Stock: 4, State: domain.ProductActive, SKU: "MOUSE-1", Tags: []string{"office"},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := repo.Create(ctx, domain.Product{
		Title: "Desk Lamp", Description: "Warm light", PriceCents: 4500,
		Category: "Home", Stock: 0, State: domain.ProductActive,
	}); err != nil {
		t.Fatalf("Create lamp: %v", err)
	}
	if _, err := repo.Create(ctx, domain.Product{
		Title: "Old Keyboard", Description: "Retired", PriceCents: 1000,
		Category: "Electronics", Stock: 3, State: domain.ProductInactive,
	}); err != nil {
		t.Fatalf("Create keyboard: %v", err)
	}

	active := domain.ProductActive
	list, total, err := repo.List(ctx, ListFilter{State: &active, Limit: 10, Sort: SortPrice})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 2 || len(list) != 2 || list[0].ID != mouse.ID {
		t.Fatalf("unexpected listing total=%d items=%+v", total, list)
	}

	list, total, err = repo.List(ctx, ListFilter{State: &active, Search: "OFFICE", InStockOnly: true, Limit: 10})
	if err != nil {
		t.Fatalf("List search: %v", err)
	}
	if total != 1 || list[0].SKU != "MOUSE-1" {
		t.Fatalf("expected tag search to match mouse, got %+v", list)
	}

	got, err := repo.GetByID(ctx, mouse.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Title != "Wireless Mouse" || !got.IsActive() {
		t.Fatalf("unexpected product %+v", got)
	}

	cats, err := repo.Categories(ctx)
	if err != nil {
		t.Fatalf("Categories: %v", err)
	}
	if len(cats) != 2 || cats[0] != "Electronics" || cats[1] != "Home" {
		t.Fatalf("unexpected categories %v", cats)
	}
}

func TestPostgres_SKUUniqueAmongActive(t *testing.T) {
	ctx := context.Background()
	pool := pgtest.Pool(ctx, t)
	repo := NewPostgres(pool, nil)

	first, err := repo.Create(ctx, domain.Product{
		Title: "Mug", Description: "Ceramic", PriceCents: 1200, Category: "Kitchen", State: domain.ProductActive, SKU: "MUG",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	_, err = repo.Create(ctx, domain.Product{
		Title: "Mug 2", Description: "Ceramic", PriceCents: 1200, Category: "Kitchen", State: domain.ProductActive, SKU: "MUG",
	})
	if !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	taken, err := repo.SKUTaken(ctx, "MUG", first.ID)
	if err != nil || taken {
		t.Fatalf("sku should not collide with itself: taken=%v err=%v", taken, err)
	}

	if err := repo.SetState(ctx, first.ID, domain.ProductInactive); err != nil {
		t.Fatalf("SetState: %v", err)
	}
	taken, err = repo.SKUTaken(ctx, "MUG", "")
	if err != nil || taken {
		t.Fatalf("inactive products release their sku: taken=%v err=%v", taken, err)
	}
	if _, err := repo.Create(ctx, domain.Product{
		Title: "Mug v2", Description: "Ceramic", PriceCents: 1300, Category: "Kitchen", State: domain.ProductActive, SKU: "MUG",
	}); err != nil {
		t.Fatalf("Create after soft delete: %v", err)
	}

	old, err := repo.GetByID(ctx, first.ID)
	if err != nil {
		t.Fatalf("soft deleted product must remain readable: %v", err)
	}
	if old.State != domain.ProductInactive {
		t.Fatalf("expected inactive, got %s", old.State)
	}
}

func TestPostgres_UpsertBySKU(t *testing.T) {
	ctx := context.Background()
	pool := pgtest.Pool(ctx, t)
	repo := NewPostgres(pool, nil)

	p, created, err := repo.UpsertBySKU(ctx, domain.Product{
		Title: "Notebook", Description: "A5", PriceCents: 500, Category: "Stationery", Stock: 10, SKU: "NB-A5",
	})
	if err != nil {
		t.Fatalf("UpsertBySKU insert: %v", err)
	}
	if !created {
		t.Fatalf("expected insert")
	}

	updated, created, err := repo.UpsertBySKU(ctx, domain.Product{
		Title: "Notebook A5", Description: "Dotted", PriceCents: 650, Category: "Stationery", Stock: 7, SKU: "NB-A5",
	})
	if err != nil {
		t.Fatalf("UpsertBySKU update: %v", err)
	}
	if created || updated.ID != p.ID {
		t.Fatalf("expected update of %s, got created=%v id=%s", p.ID, created, updated.ID)
	}
	if updated.PriceCents != 650 || updated.Stock != 7 {
		t.Fatalf("unexpected updated product %+v", updated)
	}
}
