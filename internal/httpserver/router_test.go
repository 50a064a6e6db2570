package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/payment"
	"storefront/internal/pricing"
	analyticssvc "storefront/internal/service/analytics"
	authsvc "storefront/internal/service/auth"
	checkoutsvc "storefront/internal/service/checkout"
	ordersvc "storefront/internal/service/order"
	productsvc "storefront/internal/service/product"
)

type stubProductService struct {
	products   []domain.Product
	lastParams productsvc.ListParams
	err        error
}

func (s *stubProductService) List(_ context.Context, p productsvc.ListParams) (productsvc.ListResult, error) {
	s.lastParams = p
	req := domain.NewPageRequest(p.Page, p.Limit, productsvc.DefaultPublicLimit)
	return productsvc.ListResult{Products: s.products, Page: domain.NewPageInfo(req, len(s.products), len(s.products))}, s.err
}

func (s *stubProductService) Get(ctx context.Context, id string) (*domain.Product, error) {
	p, err := s.GetAny(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsActive() {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

func (s *stubProductService) GetAny(_ context.Context, id string) (*domain.Product, error) {
	if s.err != nil {
		return nil, s.err
	}
	for _, p := range s.products {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *stubProductService) Categories(context.Context) ([]string, error) {
	return []string{"Books"}, s.err
}

func (s *stubProductService) Create(_ context.Context, in productsvc.CreateInput) (*domain.Product, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Product{ID: "new", Title: in.Title, PriceCents: pricing.Cents(*in.Price), State: domain.ProductActive}, nil
}

func (s *stubProductService) Update(_ context.Context, id string, _ productsvc.UpdateInput) (*domain.Product, error) {
	return nil, s.err
}

func (s *stubProductService) Delete(context.Context, string) error { return s.err }

func (s *stubProductService) UploadImage(context.Context, string, string, string, int64, io.Reader) (*domain.Product, error) {
	return nil, productsvc.ErrImagesDisabled
}

type stubOrderService struct {
	order      *domain.Order
	err        error
	lastParams ordersvc.ListParams
}

func (s *stubOrderService) List(_ context.Context, p ordersvc.ListParams) (ordersvc.ListResult, error) {
	s.lastParams = p
	return ordersvc.ListResult{}, s.err
}

func (s *stubOrderService) Get(context.Context, string) (*domain.Order, error) { return s.order, s.err }

func (s *stubOrderService) Lookup(_ context.Context, _, email string) (*domain.Order, error) {
	if email == "" {
		return nil, domain.Validationf("Email is required to lookup order")
	}
	return s.order, s.err
}

func (s *stubOrderService) UpdateStatus(context.Context, string, ordersvc.StatusInput) (*domain.Order, error) {
	return s.order, s.err
}

func (s *stubOrderService) UpdatePaymentStatus(context.Context, string, string) (*domain.Order, error) {
	return s.order, s.err
}

func (s *stubOrderService) Summary(context.Context, string) (ordersvc.Summary, error) {
	return ordersvc.Summary{Timeframe: domain.Timeframe30d, TotalOrders: 2, TotalRevenueCents: 3160}, s.err
}

type stubCheckoutService struct {
	webhookErr error
	status     *checkoutsvc.SessionStatus
	statusErr  error
	payloads   [][]byte
}

func (s *stubCheckoutService) Initiate(_ context.Context, in checkoutsvc.InitiateInput) (*checkoutsvc.InitiateResult, error) {
	if len(in.Items) == 0 {
		return nil, domain.Validationf("Items are required")
	}
	return &checkoutsvc.InitiateResult{SessionID: "cs_1", URL: "https://pay.example/cs_1", Quote: pricing.QuoteSubtotal(2000)}, nil
}

func (s *stubCheckoutService) HandleWebhook(_ context.Context, payload []byte, _ string) error {
	s.payloads = append(s.payloads, payload)
	return s.webhookErr
}

func (s *stubCheckoutService) SessionStatus(context.Context, string) (*checkoutsvc.SessionStatus, error) {
	return s.status, s.statusErr
}

type stubAnalyticsService struct{}

func (stubAnalyticsService) Dashboard(context.Context, string) (*analyticssvc.Dashboard, error) {
	return &analyticssvc.Dashboard{Timeframe: domain.Timeframe7d}, nil
}

func (stubAnalyticsService) Sales(context.Context, string, string) (*analyticssvc.Sales, error) {
	return &analyticssvc.Sales{Timeframe: domain.Timeframe30d, GroupBy: "day"}, nil
}

func (stubAnalyticsService) Products(context.Context, string) (*analyticssvc.ProductReport, error) {
	return &analyticssvc.ProductReport{Timeframe: domain.Timeframe30d}, nil
}

type stubAuthService struct{}

func (stubAuthService) ParseToken(token string) (*authsvc.Claims, error) {
	switch token {
	case "admin-token":
		return &authsvc.Claims{Role: domain.RoleAdmin, RegisteredClaims: jwt.RegisteredClaims{Subject: "admin-1"}}, nil
	case "customer-token":
		return &authsvc.Claims{Role: domain.RoleCustomer, RegisteredClaims: jwt.RegisteredClaims{Subject: "cust-1"}}, nil
	}
	return nil, authsvc.ErrInvalidToken
}

func (stubAuthService) Login(_ context.Context, email, password string) (*authsvc.LoginResult, error) {
	if password != "secret" {
		return nil, authsvc.ErrInvalidCredentials
	}
	return &authsvc.LoginResult{Token: "admin-token", User: &domain.User{ID: "admin-1", Email: email, Role: domain.RoleAdmin}}, nil
}

func (stubAuthService) Me(_ context.Context, id string) (*domain.User, error) {
	return &domain.User{ID: id, Email: "admin@example.com", Role: domain.RoleAdmin}, nil
}

type testDeps struct {
	products *stubProductService
	orders   *stubOrderService
	checkout *stubCheckoutService
}

func newTestRouter(t *testing.T) (*gin.Engine, testDeps) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	d := testDeps{
		products: &stubProductService{products: []domain.Product{{
			ID: "p1", Title: "Book", PriceCents: 1000, Stock: 3, State: domain.ProductActive,
			CreatedAt: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		}}},
		orders:   &stubOrderService{},
		checkout: &stubCheckoutService{},
	}
	router, err := buildRouter(zap.NewNop(), nil, Deps{
		Products:  d.products,
		Orders:    d.orders,
		Checkout:  d.checkout,
		Analytics: stubAnalyticsService{},
		Auth:      stubAuthService{},
	})
	if err != nil {
		t.Fatalf("build router: %v", err)
	}
	return router, d
}

func serve(router http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestBuildRouter_RequiresServices(t *testing.T) {
	if _, err := buildRouter(zap.NewNop(), nil, Deps{}); err == nil {
		t.Fatalf("expected error for missing services")
	}
}

func TestHealthAndReady(t *testing.T) {
	router, _ := newTestRouter(t)
	if rec := serve(router, http.MethodGet, "/healthz", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from healthz, got %d", rec.Code)
	}
	if rec := serve(router, http.MethodGet, "/readyz", "", ""); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 from readyz without db, got %d", rec.Code)
	}
}

func TestListProducts_RendersMoneyAndFlags(t *testing.T) {
	router, d := newTestRouter(t)

	rec := serve(router, http.MethodGet, "/api/products?page=2&limit=5&minPrice=1.5&sortBy=price&sortOrder=asc&inStock=true", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"price":10.00`) {
		t.Fatalf("expected price with two decimals, got %s", rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"isActive":true`) || !strings.Contains(rec.Body.String(), `"inStock":true`) {
		t.Fatalf("expected derived flags, got %s", rec.Body.String())
	}
	p := d.products.lastParams
	if p.Page != 2 || p.Limit != 5 || !p.InStock || p.SortBy != "price" || p.SortOrder != "asc" || p.Admin {
		t.Fatalf("unexpected params %+v", p)
	}
	if p.MinPrice == nil || p.MinPrice.String() != "1.5" || p.MaxPrice != nil {
		t.Fatalf("unexpected price range %v %v", p.MinPrice, p.MaxPrice)
	}
}

func TestListProducts_BadPrice(t *testing.T) {
	router, _ := newTestRouter(t)
	if rec := serve(router, http.MethodGet, "/products?maxPrice=abc", "", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestGetProduct_NotFoundAndInvalidID(t *testing.T) {
	router, d := newTestRouter(t)

	rec := serve(router, http.MethodGet, "/products/missing", "", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if msg := decodeBody(t, rec)["message"]; msg != "Product not found" {
		t.Fatalf("unexpected message %v", msg)
	}

	d.products.err = domain.ErrInvalidID
	if rec := serve(router, http.MethodGet, "/products/zzz", "", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid id, got %d", rec.Code)
	}
}

func TestGetProduct_InactiveVisibleToAdminOnly(t *testing.T) {
	router, d := newTestRouter(t)
	d.products.products = append(d.products.products, domain.Product{
		ID: "p2", Title: "Retired", PriceCents: 500, State: domain.ProductInactive,
	})

	if rec := serve(router, http.MethodGet, "/products/p2", "", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 from public fetch, got %d", rec.Code)
	}
	if rec := serve(router, http.MethodGet, "/products/admin/p2", "", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
	if rec := serve(router, http.MethodGet, "/products/admin/p2", "customer-token", ""); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for customer, got %d", rec.Code)
	}

	rec := serve(router, http.MethodGet, "/api/products/admin/p2", "admin-token", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d body=%s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"isActive":false`) {
		t.Fatalf("expected inactive product, got %s", rec.Body.String())
	}
	if rec := serve(router, http.MethodGet, "/products/admin/missing", "admin-token", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown id, got %d", rec.Code)
	}
}

func TestAdminRoutes_RequireAdminToken(t *testing.T) {
	router, d := newTestRouter(t)

	if rec := serve(router, http.MethodGet, "/products/admin/all", "", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
	if rec := serve(router, http.MethodGet, "/products/admin/all", "garbage", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d", rec.Code)
	}
	if rec := serve(router, http.MethodGet, "/products/admin/all", "customer-token", ""); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for customer, got %d", rec.Code)
	}

	rec := serve(router, http.MethodGet, "/products/admin/all?isActive=false", "admin-token", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d", rec.Code)
	}
	p := d.products.lastParams
	if !p.Admin || p.IsActive == nil || *p.IsActive {
		t.Fatalf("expected admin listing of inactive products, got %+v", p)
	}

	for _, path := range []string{"/orders", "/orders/stats/summary", "/analytics/dashboard", "/api/analytics/sales", "/analytics/products"} {
		if rec := serve(router, http.MethodGet, path, "", ""); rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", path, rec.Code)
		}
		if rec := serve(router, http.MethodGet, path, "admin-token", ""); rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d body=%s", path, rec.Code, rec.Body.String())
		}
	}
}

func TestCreateProduct_ErrorMapping(t *testing.T) {
	router, d := newTestRouter(t)

	rec := serve(router, http.MethodPost, "/products", "admin-token", `{"title":"T","price":12.5}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"price":12.50`) {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}

	d.products.err = &domain.ValidationError{Message: "Missing required fields", Fields: map[string]string{"title": "Title is required"}}
	rec = serve(router, http.MethodPost, "/products", "admin-token", `{"price":1}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if _, ok := decodeBody(t, rec)["errors"]; !ok {
		t.Fatalf("expected field errors, got %s", rec.Body.String())
	}

	d.products.err = &domain.ConflictError{Message: "Product with this SKU already exists"}
	if rec := serve(router, http.MethodPost, "/products", "admin-token", `{"price":1}`); rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}

	d.products.err = errors.New("connection refused")
	rec = serve(router, http.MethodPost, "/products", "admin-token", `{"price":1}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "connection refused") {
		t.Fatalf("internal error leaked: %s", rec.Body.String())
	}

	if rec := serve(router, http.MethodPost, "/products", "admin-token", `{`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed json, got %d", rec.Code)
	}
}

func TestUploadImage_StorageDisabled(t *testing.T) {
	router, _ := newTestRouter(t)
	body := "--b\r\nContent-Disposition: form-data; name=\"image\"; filename=\"a.png\"\r\nContent-Type: image/png\r\n\r\npng\r\n--b--\r\n"
	req := httptest.NewRequest(http.MethodPost, "/products/p1/image", strings.NewReader(body))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=b")
	req.Header.Set("Authorization", "Bearer admin-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestCheckoutCreateSession(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := serve(router, http.MethodPost, "/checkout/create-session", "", `{"items":[{"productId":"p1","quantity":2}],"customerEmail":"a@b.co","customerName":"A"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["sessionId"] != "cs_1" || body["url"] != "https://pay.example/cs_1" || body["total"] != 31.6 {
		t.Fatalf("unexpected body %v", body)
	}

	if rec := serve(router, http.MethodPost, "/checkout/create-session", "", `{"items":[]}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty cart, got %d", rec.Code)
	}
}

func TestCheckoutWebhook(t *testing.T) {
	router, d := newTestRouter(t)

	raw := `{"id":"evt_1","type":"checkout.session.completed"}`
	d.checkout.webhookErr = payment.ErrInvalidSignature
	if rec := serve(router, http.MethodPost, "/checkout/webhook", "", raw); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad signature, got %d", rec.Code)
	}

	d.checkout.webhookErr = nil
	rec := serve(router, http.MethodPost, "/api/checkout/webhook", "", raw)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"received":true`) {
		t.Fatalf("expected acknowledgement, got %d %s", rec.Code, rec.Body.String())
	}
	if got := string(d.checkout.payloads[len(d.checkout.payloads)-1]); got != raw {
		t.Fatalf("expected raw payload to be forwarded, got %q", got)
	}
}

func TestCheckoutWebhook_LargeAndOversizedBodies(t *testing.T) {
	router, d := newTestRouter(t)

	// Events with chunked order metadata can exceed 64 KiB.
	large := `{"id":"evt_2","pad":"` + strings.Repeat("x", 100<<10) + `"}`
	rec := serve(router, http.MethodPost, "/checkout/webhook", "", large)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for large payload, got %d", rec.Code)
	}
	if got := len(d.checkout.payloads[len(d.checkout.payloads)-1]); got != len(large) {
		t.Fatalf("expected untruncated payload of %d bytes, got %d", len(large), got)
	}

	calls := len(d.checkout.payloads)
	huge := strings.Repeat("x", maxWebhookBytes+1)
	rec = serve(router, http.MethodPost, "/checkout/webhook", "", huge)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 for oversized payload, got %d", rec.Code)
	}
	if len(d.checkout.payloads) != calls {
		t.Fatalf("oversized payload must not reach the checkout service")
	}
}

func TestCheckoutSession(t *testing.T) {
	router, d := newTestRouter(t)

	d.checkout.status = &checkoutsvc.SessionStatus{Session: payment.Session{ID: "cs_1", PaymentStatus: "paid", CustomerEmail: "a@b.co"}}
	rec := serve(router, http.MethodGet, "/checkout/session/cs_1", "", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"order":null`) {
		t.Fatalf("expected session without order, got %d %s", rec.Code, rec.Body.String())
	}

	d.checkout.status.Order = &domain.Order{OrderNumber: "ORD-20240101-000001", Status: domain.OrderStatusProcessing, TotalCents: 10800}
	rec = serve(router, http.MethodGet, "/checkout/session/cs_1", "", "")
	if !strings.Contains(rec.Body.String(), `"orderNumber":"ORD-20240101-000001"`) || !strings.Contains(rec.Body.String(), `"total":108.00`) {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}

	d.checkout.status, d.checkout.statusErr = nil, domain.ErrNotFound
	rec = serve(router, http.MethodGet, "/checkout/session/cs_missing", "", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestOrderLookupAndStatus(t *testing.T) {
	router, d := newTestRouter(t)
	d.orders.order = &domain.Order{ID: "o1", OrderNumber: "ORD-1", Status: domain.OrderStatusShipped, TotalCents: 3160}

	if rec := serve(router, http.MethodGet, "/orders/number/ORD-1", "", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without email, got %d", rec.Code)
	}
	rec := serve(router, http.MethodGet, "/orders/number/ORD-1?email=a@b.co", "", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"total":31.60`) {
		t.Fatalf("unexpected lookup response %d %s", rec.Code, rec.Body.String())
	}

	if rec := serve(router, http.MethodPut, "/orders/o1/status", "admin-token", `{"status":"shipped","trackingNumber":"1Z"}`); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	d.orders.err = domain.ErrNotFound
	rec = serve(router, http.MethodPut, "/orders/o1/payment-status", "admin-token", `{"paymentStatus":"refunded"}`)
	if rec.Code != http.StatusNotFound || decodeBody(t, rec)["message"] != "Order not found" {
		t.Fatalf("expected order not found, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestListOrders_PassesFilters(t *testing.T) {
	router, d := newTestRouter(t)
	rec := serve(router, http.MethodGet, "/orders?status=shipped&paymentStatus=paid&startDate=2024-01-01&endDate=2024-01-31&search=ann", "admin-token", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	p := d.orders.lastParams
	if p.Status != "shipped" || p.PaymentStatus != "paid" || p.StartDate != "2024-01-01" || p.EndDate != "2024-01-31" || p.Search != "ann" {
		t.Fatalf("unexpected params %+v", p)
	}
}
