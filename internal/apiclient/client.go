// Package apiclient calls the storefront HTTP API on behalf of storectl.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront/internal/cart"
	"storefront/internal/domain"
	"storefront/internal/pricing"
)

// APIError is a non-2xx response. Message is the server's {"message"} field when present.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api returned %d: %s", e.StatusCode, e.Message)
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *zap.Logger
}

func New(baseURL, token string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

type product struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image"`
	Category    string          `json:"category"`
	Stock       int             `json:"stock"`
	SKU         string          `json:"sku"`
	Tags        []string        `json:"tags"`
	IsActive    bool            `json:"isActive"`
}

func (p product) toDomain() domain.Product {
	return domain.Product{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		PriceCents:  pricing.Cents(p.Price),
		Image:       p.Image,
		Category:    p.Category,
		Stock:       p.Stock,
		SKU:         p.SKU,
		Tags:        p.Tags,
		State:       domain.StateFromActive(p.IsActive),
	}
}

type ProductPage struct {
	Products   []domain.Product
	Pagination domain.PageInfo
}

func (c *Client) ListProducts(ctx context.Context, search string, page int) (*ProductPage, error) {
	q := url.Values{}
	if search != "" {
		q.Set("search", search)
	}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	var raw struct {
		Products   []product       `json:"products"`
		Pagination domain.PageInfo `json:"pagination"`
	}
	if err := c.do(ctx, http.MethodGet, "/products", q, nil, &raw); err != nil {
		return nil, err
	}
	out := &ProductPage{Pagination: raw.Pagination, Products: make([]domain.Product, 0, len(raw.Products))}
	for _, p := range raw.Products {
		out.Products = append(out.Products, p.toDomain())
	}
	return out, nil
}

func (c *Client) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	var raw product
	if err := c.do(ctx, http.MethodGet, "/products/"+url.PathEscape(id), nil, nil, &raw); err != nil {
		return nil, err
	}
	p := raw.toDomain()
	return &p, nil
}

type CheckoutSession struct {
	SessionID string          `json:"sessionId"`
	URL       string          `json:"url"`
	Total     decimal.Decimal `json:"total"`
}

func (c *Client) CreateCheckoutSession(ctx context.Context, items []cart.CheckoutLine, email, name string) (*CheckoutSession, error) {
	body := map[string]any{
		"items":         items,
		"customerEmail": email,
		"customerName":  name,
	}
	var out CheckoutSession
	if err := c.do(ctx, http.MethodPost, "/checkout/create-session", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login exchanges credentials for a bearer token and keeps it for later calls.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, http.MethodPost, "/auth/login", nil, map[string]string{"email": email, "password": password}, &out); err != nil {
		return "", err
	}
	c.token = out.Token
	return out.Token, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, dest any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("api request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
		var msg struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(raw, &msg) == nil && msg.Message != "" {
			apiErr.Message = msg.Message
		}
		return apiErr
	}
	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
