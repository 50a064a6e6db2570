package httpserver

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/metrics"
	analyticssvc "storefront/internal/service/analytics"
	authsvc "storefront/internal/service/auth"
	checkoutsvc "storefront/internal/service/checkout"
	ordersvc "storefront/internal/service/order"
	productsvc "storefront/internal/service/product"
)

type ProductService interface {
	List(ctx context.Context, p productsvc.ListParams) (productsvc.ListResult, error)
	Get(ctx context.Context, id string) (*domain.Product, error)
	GetAny(ctx context.Context, id string) (*domain.Product, error)
	Categories(ctx context.Context) ([]string, error)
	Create(ctx context.Context, in productsvc.CreateInput) (*domain.Product, error)
	Update(ctx context.Context, id string, in productsvc.UpdateInput) (*domain.Product, error)
	Delete(ctx context.Context, id string) error
	UploadImage(ctx context.Context, id, filename, contentType string, size int64, body io.Reader) (*domain.Product, error)
}

type OrderService interface {
	List(ctx context.Context, p ordersvc.ListParams) (ordersvc.ListResult, error)
	Get(ctx context.Context, id string) (*domain.Order, error)
	Lookup(ctx context.Context, number, email string) (*domain.Order, error)
	UpdateStatus(ctx context.Context, id string, in ordersvc.StatusInput) (*domain.Order, error)
	UpdatePaymentStatus(ctx context.Context, id, status string) (*domain.Order, error)
	Summary(ctx context.Context, timeframe string) (ordersvc.Summary, error)
}

type CheckoutService interface {
	Initiate(ctx context.Context, in checkoutsvc.InitiateInput) (*checkoutsvc.InitiateResult, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
	SessionStatus(ctx context.Context, id string) (*checkoutsvc.SessionStatus, error)
}

type AnalyticsService interface {
	Dashboard(ctx context.Context, timeframe string) (*analyticssvc.Dashboard, error)
	Sales(ctx context.Context, timeframe, groupBy string) (*analyticssvc.Sales, error)
	Products(ctx context.Context, timeframe string) (*analyticssvc.ProductReport, error)
}

type TokenParser interface {
	ParseToken(token string) (*authsvc.Claims, error)
}

type AuthService interface {
	TokenParser
	Login(ctx context.Context, email, password string) (*authsvc.LoginResult, error)
	Me(ctx context.Context, id string) (*domain.User, error)
}

// Deps are the services the router dispatches to. Metrics is optional.
type Deps struct {
	Products    ProductService
	Orders      OrderService
	Checkout    CheckoutService
	Analytics   AnalyticsService
	Auth        AuthService
	Metrics     *metrics.Metrics
	CORSOrigins []string
}

func (d Deps) validate() error {
	if d.Products == nil || d.Orders == nil || d.Checkout == nil || d.Analytics == nil || d.Auth == nil {
		return errors.New("httpserver: products, orders, checkout, analytics and auth services are required")
	}
	return nil
}

type handlers struct {
	Deps
	logger *zap.Logger
}

// buildRouter wires routes for the API. Every route is served both at the root and under /api.
func buildRouter(logger *zap.Logger, db *pgxpool.Pool, deps Deps) (*gin.Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	router := gin.New()
	router.Use(recovery(logger), requestLogger(logger))
	if deps.Metrics != nil {
		router.Use(deps.Metrics.Middleware())
		router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}
	if len(deps.CORSOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     deps.CORSOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db, logger))

	h := &handlers{Deps: deps, logger: logger}
	h.register(router)
	h.register(router.Group("/api"))

	return router, nil
}

func (h *handlers) register(r gin.IRouter) {
	authed := authenticateToken(h.Auth, h.logger)
	admin := []gin.HandlerFunc{authed, requireAdmin()}

	auth := r.Group("/auth")
	auth.POST("/login", h.login)
	auth.GET("/me", authed, h.me)

	products := r.Group("/products", resource("Product"))
	products.GET("", h.listProducts)
	products.GET("/categories", h.listCategories)
	products.GET("/admin/all", append(admin, h.listAllProducts)...)
	products.GET("/admin/:id", append(admin, h.getAnyProduct)...)
	products.GET("/:id", h.getProduct)
	products.POST("", append(admin, h.createProduct)...)
	products.PUT("/:id", append(admin, h.updateProduct)...)
	products.DELETE("/:id", append(admin, h.deleteProduct)...)
	products.POST("/:id/image", append(admin, h.uploadProductImage)...)

	checkout := r.Group("/checkout", resource("Session"))
	checkout.POST("/create-session", h.createCheckoutSession)
	checkout.POST("/webhook", h.checkoutWebhook)
	checkout.GET("/session/:id", h.checkoutSession)

	orders := r.Group("/orders", resource("Order"))
	orders.GET("/number/:number", h.lookupOrder)
	orders.GET("", append(admin, h.listOrders)...)
	orders.GET("/stats/summary", append(admin, h.orderSummary)...)
	orders.GET("/:id", append(admin, h.getOrder)...)
	orders.PUT("/:id/status", append(admin, h.updateOrderStatus)...)
	orders.PUT("/:id/payment-status", append(admin, h.updateOrderPaymentStatus)...)

	analytics := r.Group("/analytics", admin...)
	analytics.GET("/dashboard", h.dashboard)
	analytics.GET("/sales", h.sales)
	analytics.GET("/products", h.productReport)
}
