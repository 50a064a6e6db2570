package product

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/pricing"
	productrepo "storefront/internal/repository/product"
)

const (
	DefaultPublicLimit = 12
	DefaultAdminLimit  = 20
	MaxImageBytes      = 5 << 20
)

// ErrImagesDisabled is returned by UploadImage when no image store is configured.
var ErrImagesDisabled = errors.New("image storage is not configured")

// ImageStore persists product images and returns their public URL.
type ImageStore interface {
	Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
}

type Service struct {
	repo   productrepo.Repository
	images ImageStore
	logger *zap.Logger
}

type Option func(*Service)

func WithImageStore(store ImageStore) Option {
	return func(s *Service) { s.images = store }
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger.Named("product_service")
		}
	}
}

func New(repo productrepo.Repository, opts ...Option) *Service {
	s := &Service{repo: repo, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListParams are the catalog query options accepted from callers.
type ListParams struct {
	Page      int
	Limit     int
	Category  string
	Search    string
	MinPrice  *decimal.Decimal
	MaxPrice  *decimal.Decimal
	InStock   bool
	SortBy    string
	SortOrder string
	// Admin includes inactive products and enables IsActive and SKU search.
	Admin    bool
	IsActive *bool
}

type ListResult struct {
	Products []domain.Product
	Page     domain.PageInfo
}

func (s *Service) List(ctx context.Context, p ListParams) (ListResult, error) {
	def := DefaultPublicLimit
	if p.Admin {
		def = DefaultAdminLimit
	}
	page := domain.NewPageRequest(p.Page, p.Limit, def)

	f := productrepo.ListFilter{
		Category:    strings.TrimSpace(p.Category),
		Search:      strings.TrimSpace(p.Search),
		InStockOnly: p.InStock,
		Sort:        sortField(p.SortBy),
		Desc:        !strings.EqualFold(p.SortOrder, "asc"),
		Limit:       page.Limit,
		Offset:      page.Offset(),
	}
	if p.MinPrice != nil {
		v := pricing.Cents(*p.MinPrice)
		f.MinPriceCents = &v
	}
	if p.MaxPrice != nil {
		v := pricing.Cents(*p.MaxPrice)
		f.MaxPriceCents = &v
	}
	if p.Admin {
		f.SearchSKU = true
		if p.IsActive != nil {
			state := domain.StateFromActive(*p.IsActive)
			f.State = &state
		}
	} else {
		state := domain.ProductActive
		f.State = &state
	}

	products, total, err := s.repo.List(ctx, f)
	if err != nil {
		return ListResult{}, fmt.Errorf("list products: %w", err)
	}
	return ListResult{Products: products, Page: domain.NewPageInfo(page, len(products), total)}, nil
}

// Get returns an active product. Inactive products are reported as not found.
func (s *Service) Get(ctx context.Context, id string) (*domain.Product, error) {
	p, err := s.GetAny(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsActive() {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

// GetAny returns a product regardless of its state.
func (s *Service) GetAny(ctx context.Context, id string) (*domain.Product, error) {
	if !validID(id) {
		return nil, domain.ErrInvalidID
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Categories(ctx context.Context) ([]string, error) {
	return s.repo.Categories(ctx)
}

type CreateInput struct {
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Image       string           `json:"image"`
	Category    string           `json:"category"`
	Stock       *int             `json:"stock"`
	SKU         string           `json:"sku"`
	Tags        []string         `json:"tags"`
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.Product, error) {
	fields := map[string]string{}
	if strings.TrimSpace(in.Title) == "" {
		fields["title"] = "Title is required"
	}
	if strings.TrimSpace(in.Description) == "" {
		fields["description"] = "Description is required"
	}
	if in.Price == nil {
		fields["price"] = "Price is required"
	}
	if strings.TrimSpace(in.Category) == "" {
		fields["category"] = "Category is required"
	}
	if len(fields) > 0 {
		return nil, &domain.ValidationError{Message: "Missing required fields", Fields: fields}
	}

	p := domain.Product{
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		PriceCents:  pricing.Cents(*in.Price),
		Image:       strings.TrimSpace(in.Image),
		Category:    strings.TrimSpace(in.Category),
		State:       domain.ProductActive,
		SKU:         strings.TrimSpace(in.SKU),
		Tags:        cleanTags(in.Tags),
	}
	if in.Stock != nil {
		p.Stock = *in.Stock
	}
	if p.Image == "" {
		p.Image = domain.DefaultProductImage
	}
	if err := validate(p); err != nil {
		return nil, err
	}
	if err := s.ensureSKUFree(ctx, p.SKU, ""); err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, p)
	if errors.Is(err, domain.ErrAlreadyExists) {
		return nil, skuConflict()
	}
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	s.logger.Info("product created", zap.String("id", created.ID), zap.String("title", created.Title))
	return created, nil
}

// UpdateInput carries a partial update. Nil fields are left unchanged.
type UpdateInput struct {
	Title       *string          `json:"title"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Image       *string          `json:"image"`
	Category    *string          `json:"category"`
	Stock       *int             `json:"stock"`
	SKU         *string          `json:"sku"`
	Tags        []string         `json:"tags"`
	IsActive    *bool            `json:"isActive"`
}

func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*domain.Product, error) {
	current, err := s.GetAny(ctx, id)
	if err != nil {
		return nil, err
	}
	p := *current
	if in.Title != nil {
		p.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		p.Description = strings.TrimSpace(*in.Description)
	}
	if in.Price != nil {
		p.PriceCents = pricing.Cents(*in.Price)
	}
	if in.Image != nil {
		p.Image = strings.TrimSpace(*in.Image)
	}
	if in.Category != nil {
		p.Category = strings.TrimSpace(*in.Category)
	}
	if in.Stock != nil {
		p.Stock = *in.Stock
	}
	if in.SKU != nil {
		p.SKU = strings.TrimSpace(*in.SKU)
	}
	if in.Tags != nil {
		p.Tags = cleanTags(in.Tags)
	}
	if in.IsActive != nil {
		p.State = domain.StateFromActive(*in.IsActive)
	}

	if p.Title == "" || p.Description == "" || p.Category == "" {
		return nil, domain.Validationf("Title, description and category cannot be empty")
	}
	if err := validate(p); err != nil {
		return nil, err
	}
	if p.IsActive() {
		if err := s.ensureSKUFree(ctx, p.SKU, p.ID); err != nil {
			return nil, err
		}
	}

	updated, err := s.repo.Update(ctx, p)
	if errors.Is(err, domain.ErrAlreadyExists) {
		return nil, skuConflict()
	}
	if err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}
	return updated, nil
}

// Delete deactivates the product. The row and any order history referencing it are kept.
func (s *Service) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return domain.ErrInvalidID
	}
	if err := s.repo.SetState(ctx, id, domain.ProductInactive); err != nil {
		return err
	}
	s.logger.Info("product deactivated", zap.String("id", id))
	return nil
}

// UploadImage stores an image for the product and points the product at it.
func (s *Service) UploadImage(ctx context.Context, id, filename, contentType string, size int64, body io.Reader) (*domain.Product, error) {
	if s.images == nil {
		return nil, ErrImagesDisabled
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, domain.Validationf("Only image uploads are allowed")
	}
	if size > MaxImageBytes {
		return nil, domain.Validationf("Image must be at most %d MB", MaxImageBytes>>20)
	}
	if _, err := s.GetAny(ctx, id); err != nil {
		return nil, err
	}

	key := ImageKey(id, filename)
	url, err := s.images.Upload(ctx, key, body, size, contentType)
	if err != nil {
		return nil, fmt.Errorf("upload image: %w", err)
	}
	s.logger.Info("product image uploaded", zap.String("id", id), zap.String("key", key))
	return s.repo.SetImage(ctx, id, url)
}

// ImageKey returns the object key for a new image of product id, keeping the file extension.
func ImageKey(id, filename string) string {
	return fmt.Sprintf("products/%s/%s%s", id, uuid.NewString(), strings.ToLower(path.Ext(filename)))
}

func (s *Service) ensureSKUFree(ctx context.Context, sku, excludeID string) error {
	if sku == "" {
		return nil
	}
	taken, err := s.repo.SKUTaken(ctx, sku, excludeID)
	if err != nil {
		return fmt.Errorf("check sku: %w", err)
	}
	if taken {
		return skuConflict()
	}
	return nil
}

func validate(p domain.Product) error {
	fields := map[string]string{}
	if len([]rune(p.Title)) > domain.MaxTitleLength {
		fields["title"] = fmt.Sprintf("Title cannot exceed %d characters", domain.MaxTitleLength)
	}
	if len([]rune(p.Description)) > domain.MaxDescriptionLength {
		fields["description"] = fmt.Sprintf("Description cannot exceed %d characters", domain.MaxDescriptionLength)
	}
	if p.PriceCents < 0 {
		fields["price"] = "Price cannot be negative"
	}
	if p.Stock < 0 {
		fields["stock"] = "Stock cannot be negative"
	}
	if len(fields) == 0 {
		return nil
	}
	return &domain.ValidationError{Message: "Validation failed", Fields: fields}
}

func skuConflict() error {
	return &domain.ConflictError{Message: "Product with this SKU already exists"}
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func sortField(v string) productrepo.SortField {
	switch v {
	case "name", "title":
		return productrepo.SortTitle
	case "price":
		return productrepo.SortPrice
	default:
		return productrepo.SortCreatedAt
	}
}
