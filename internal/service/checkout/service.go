package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/payment"
	"storefront/internal/pricing"
	orderrepo "storefront/internal/repository/order"
)

// Outcomes reported to the Recorder.
const (
	OutcomeCreated  = "created"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
	OutcomeApplied  = "applied"
	OutcomeNoop     = "noop"
	OutcomeIgnored  = "ignored"
)

type ProductReader interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
}

type OrderStore interface {
	GetBySessionID(ctx context.Context, sessionID string) (*domain.Order, error)
	CreateWithStockDecrement(ctx context.Context, o domain.Order) (orderrepo.CreateResult, error)
	SetPaymentStatusByIntent(ctx context.Context, intentID string, status domain.PaymentStatus) (int, error)
}

// Recorder receives checkout counters.
type Recorder interface {
	CheckoutSession(outcome string)
	WebhookEvent(eventType, outcome string)
	OrderCreated()
}

type nopRecorder struct{}

func (nopRecorder) CheckoutSession(string)      {}
func (nopRecorder) WebhookEvent(string, string) {}
func (nopRecorder) OrderCreated()               {}

type Config struct {
	FrontendURL      string
	Currency         string
	AllowedCountries []string
}

type Service struct {
	products ProductReader
	orders   OrderStore
	gateway  payment.Gateway
	cfg      Config
	recorder Recorder
	logger   *zap.Logger
}

func New(products ProductReader, orders OrderStore, gateway payment.Gateway, cfg Config, recorder Recorder, logger *zap.Logger) *Service {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}
	if cfg.AllowedCountries == nil {
		cfg.AllowedCountries = []string{"US", "CA"}
	}
	cfg.FrontendURL = strings.TrimRight(cfg.FrontendURL, "/")
	return &Service{
		products: products,
		orders:   orders,
		gateway:  gateway,
		cfg:      cfg,
		recorder: recorder,
		logger:   logger.Named("checkout"),
	}
}

type Item struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type InitiateInput struct {
	Items         []Item `json:"items"`
	CustomerEmail string `json:"customerEmail"`
	CustomerName  string `json:"customerName"`
}

type InitiateResult struct {
	SessionID string
	URL       string
	Quote     pricing.Quote
}

// Initiate validates the cart against the live catalog and opens a hosted checkout session.
// Prices always come from the catalog, never from the caller.
func (s *Service) Initiate(ctx context.Context, in InitiateInput) (*InitiateResult, error) {
	items, quote, err := s.validate(ctx, in)
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			s.recorder.CheckoutSession(OutcomeRejected)
		} else {
			s.recorder.CheckoutSession(OutcomeFailed)
		}
		return nil, err
	}

	email := domain.NormalizeEmail(in.CustomerEmail)
	name := strings.TrimSpace(in.CustomerName)
	meta, err := encodeMetadata(email, name, orderData{
		Items:         items,
		SubtotalCents: quote.SubtotalCents,
		TaxCents:      quote.TaxCents,
		ShippingCents: quote.ShippingCents,
		TotalCents:    quote.TotalCents,
	})
	if err != nil {
		s.recorder.CheckoutSession(OutcomeRejected)
		return nil, err
	}

	lineItems := make([]payment.LineItem, 0, len(items)+2)
	for _, it := range items {
		lineItems = append(lineItems, payment.LineItem{
			Name: it.Title, Image: it.Image, UnitAmountCents: it.UnitPriceCents, Quantity: it.Quantity,
		})
	}
	if quote.ShippingCents > 0 {
		lineItems = append(lineItems, payment.LineItem{Name: "Shipping", UnitAmountCents: quote.ShippingCents, Quantity: 1})
	}
	lineItems = append(lineItems, payment.LineItem{Name: "Tax", UnitAmountCents: quote.TaxCents, Quantity: 1})

	session, err := s.gateway.CreateSession(ctx, payment.SessionRequest{
		CustomerEmail:    email,
		Currency:         s.cfg.Currency,
		LineItems:        lineItems,
		Metadata:         meta,
		SuccessURL:       s.cfg.FrontendURL + "/checkout/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:        s.cfg.FrontendURL + "/cart",
		AllowedCountries: s.cfg.AllowedCountries,
	})
	if err != nil {
		s.recorder.CheckoutSession(OutcomeFailed)
		return nil, fmt.Errorf("create payment session: %w", err)
	}

	s.recorder.CheckoutSession(OutcomeCreated)
	s.logger.Info("checkout session created", zap.String("session_id", session.ID),
		zap.Int("items", len(items)), zap.Int64("total_cents", quote.TotalCents))
	return &InitiateResult{SessionID: session.ID, URL: session.URL, Quote: quote}, nil
}

func (s *Service) validate(ctx context.Context, in InitiateInput) ([]domain.OrderItem, pricing.Quote, error) {
	if len(in.Items) == 0 {
		return nil, pricing.Quote{}, domain.Validationf("Items are required")
	}
	email := strings.TrimSpace(in.CustomerEmail)
	if email == "" || strings.TrimSpace(in.CustomerName) == "" {
		return nil, pricing.Quote{}, domain.Validationf("Customer email and name are required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, pricing.Quote{}, domain.Validationf("Customer email is invalid")
	}

	items := make([]domain.OrderItem, 0, len(in.Items))
	requested := make(map[string]int, len(in.Items))
	var subtotal int64
	for _, req := range in.Items {
		if req.Quantity < 1 {
			return nil, pricing.Quote{}, domain.Validationf("Quantity for product %s must be at least 1", req.ProductID)
		}
		if _, err := uuid.Parse(req.ProductID); err != nil {
			return nil, pricing.Quote{}, domain.Validationf("Product %s not found or unavailable", req.ProductID)
		}
		p, err := s.products.GetByID(ctx, req.ProductID)
		if errors.Is(err, domain.ErrNotFound) || (err == nil && !p.IsActive()) {
			return nil, pricing.Quote{}, domain.Validationf("Product %s not found or unavailable", req.ProductID)
		}
		if err != nil {
			return nil, pricing.Quote{}, fmt.Errorf("load product %s: %w", req.ProductID, err)
		}
		// Repeated lines for one product share its stock.
		requested[p.ID] += req.Quantity
		if p.Stock < requested[p.ID] {
			return nil, pricing.Quote{}, domain.Validationf("Insufficient stock for %s. Available: %d", p.Title, p.Stock)
		}

		item := domain.OrderItem{
			ProductID:      p.ID,
			Title:          p.Title,
			UnitPriceCents: p.PriceCents,
			Quantity:       req.Quantity,
			Image:          p.Image,
		}
		subtotal += item.LineTotalCents()
		items = append(items, item)
	}
	return items, pricing.QuoteSubtotal(subtotal), nil
}

// HandleWebhook authenticates and applies a gateway event. Only a failed signature check is
// returned; every later failure is logged and the event is treated as handled so the gateway
// does not redeliver it.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	ev, err := s.gateway.ParseEvent(payload, signature)
	if errors.Is(err, payment.ErrInvalidSignature) {
		s.recorder.WebhookEvent("unknown", OutcomeRejected)
		return err
	}
	if err != nil {
		s.logger.Error("webhook payload could not be decoded", zap.Error(err))
		s.recorder.WebhookEvent("unknown", OutcomeFailed)
		return nil
	}

	log := s.logger.With(zap.String("event_id", ev.ID), zap.String("event_type", string(ev.Type)))
	var outcome string
	switch ev.Type {
	case payment.EventCheckoutCompleted:
		outcome = s.completeCheckout(ctx, log, ev.Session)
	case payment.EventPaymentSucceeded:
		outcome = s.setPaymentStatus(ctx, log, ev.PaymentIntentID, domain.PaymentStatusPaid)
	case payment.EventPaymentFailed:
		outcome = s.setPaymentStatus(ctx, log, ev.PaymentIntentID, domain.PaymentStatusFailed)
	default:
		log.Debug("unhandled webhook event")
		outcome = OutcomeIgnored
	}
	s.recorder.WebhookEvent(string(ev.Type), outcome)
	return nil
}

func (s *Service) completeCheckout(ctx context.Context, log *zap.Logger, session *payment.Session) string {
	if session == nil || session.ID == "" {
		log.Error("checkout event without session")
		return OutcomeFailed
	}
	log = log.With(zap.String("session_id", session.ID))

	data, err := decodeMetadata(session.Metadata)
	if err != nil {
		// Payment already happened; this needs manual reconciliation against the gateway.
		log.Error("cannot rebuild order from session metadata", zap.Error(err))
		return OutcomeFailed
	}

	email := session.Metadata[metaCustomerEmail]
	if email == "" {
		email = session.CustomerEmail
	}
	res, err := s.orders.CreateWithStockDecrement(ctx, domain.Order{
		CustomerEmail:    email,
		CustomerName:     session.Metadata[metaCustomerName],
		Items:            data.Items,
		SubtotalCents:    data.SubtotalCents,
		TaxCents:         data.TaxCents,
		ShippingCents:    data.ShippingCents,
		TotalCents:       data.TotalCents,
		Status:           domain.OrderStatusProcessing,
		PaymentStatus:    domain.PaymentStatusPaid,
		PaymentSessionID: session.ID,
		PaymentIntentID:  session.PaymentIntentID,
		ShippingAddress:  session.ShippingAddress,
	})
	if err != nil {
		log.Error("order creation failed after payment", zap.Error(err))
		return OutcomeFailed
	}
	if !res.Created {
		log.Info("checkout already processed", zap.String("order_number", res.Order.OrderNumber))
		return OutcomeNoop
	}
	if len(res.Oversold) > 0 {
		log.Warn("order oversold stock", zap.Strings("product_ids", res.Oversold))
	}
	s.recorder.OrderCreated()
	log.Info("order created", zap.String("order_number", res.Order.OrderNumber), zap.Int64("total_cents", res.Order.TotalCents))
	return OutcomeApplied
}

func (s *Service) setPaymentStatus(ctx context.Context, log *zap.Logger, intentID string, status domain.PaymentStatus) string {
	if intentID == "" {
		log.Error("payment intent event without id")
		return OutcomeFailed
	}
	n, err := s.orders.SetPaymentStatusByIntent(ctx, intentID, status)
	if err != nil {
		log.Error("update payment status", zap.String("payment_intent", intentID), zap.Error(err))
		return OutcomeFailed
	}
	if n == 0 {
		log.Debug("no order for payment intent", zap.String("payment_intent", intentID))
		return OutcomeNoop
	}
	return OutcomeApplied
}

// SessionStatus is a gateway session plus the order created from it, if any.
type SessionStatus struct {
	Session payment.Session
	Order   *domain.Order
}

func (s *Service) SessionStatus(ctx context.Context, id string) (*SessionStatus, error) {
	session, err := s.gateway.GetSession(ctx, id)
	if errors.Is(err, payment.ErrSessionNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	out := &SessionStatus{Session: *session}
	o, err := s.orders.GetBySessionID(ctx, session.ID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("find order for session: %w", err)
	default:
		out.Order = o
	}
	return out, nil
}
