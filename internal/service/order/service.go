package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storefront/internal/domain"
	orderrepo "storefront/internal/repository/order"
)

const DefaultLimit = 20

const dateLayout = "2006-01-02"

type Service struct {
	repo   orderrepo.Repository
	logger *zap.Logger
	now    func() time.Time
}

type Option func(*Service)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger.Named("order_service")
		}
	}
}

// WithClock overrides the time source used for reporting windows.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(repo orderrepo.Repository, opts ...Option) *Service {
	s := &Service{repo: repo, logger: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type ListParams struct {
	Page          int
	Limit         int
	Status        string
	PaymentStatus string
	Search        string
	// StartDate and EndDate accept RFC 3339 timestamps or YYYY-MM-DD dates.
	StartDate string
	EndDate   string
	SortBy    string
	SortOrder string
}

type ListResult struct {
	Orders []domain.Order
	Page   domain.PageInfo
}

func (s *Service) List(ctx context.Context, p ListParams) (ListResult, error) {
	page := domain.NewPageRequest(p.Page, p.Limit, DefaultLimit)
	f := orderrepo.ListFilter{
		Search: strings.TrimSpace(p.Search),
		Sort:   sortField(p.SortBy),
		Desc:   !strings.EqualFold(p.SortOrder, "asc"),
		Limit:  page.Limit,
		Offset: page.Offset(),
	}
	if p.Status != "" {
		status := domain.OrderStatus(p.Status)
		if !status.IsValid() {
			return ListResult{}, domain.Validationf("Invalid status filter %q", p.Status)
		}
		f.Status = &status
	}
	if p.PaymentStatus != "" {
		status := domain.PaymentStatus(p.PaymentStatus)
		if !status.IsValid() {
			return ListResult{}, domain.Validationf("Invalid payment status filter %q", p.PaymentStatus)
		}
		f.PaymentStatus = &status
	}
	if p.StartDate != "" {
		from, _, err := parseBound(p.StartDate)
		if err != nil {
			return ListResult{}, domain.Validationf("Invalid startDate %q", p.StartDate)
		}
		f.From = &from
	}
	if p.EndDate != "" {
		to, dateOnly, err := parseBound(p.EndDate)
		if err != nil {
			return ListResult{}, domain.Validationf("Invalid endDate %q", p.EndDate)
		}
		if dateOnly {
			// A bare date covers the whole day.
			to = to.AddDate(0, 0, 1)
			f.ToExclusive = true
		}
		f.To = &to
	}

	orders, total, err := s.repo.List(ctx, f)
	if err != nil {
		return ListResult{}, fmt.Errorf("list orders: %w", err)
	}
	return ListResult{Orders: orders, Page: domain.NewPageInfo(page, len(orders), total)}, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Order, error) {
	if !validID(id) {
		return nil, domain.ErrInvalidID
	}
	return s.repo.GetByID(ctx, id)
}

// Lookup finds an order by its number for a customer. The email must match the one on the order.
func (s *Service) Lookup(ctx context.Context, number, email string) (*domain.Order, error) {
	if strings.TrimSpace(email) == "" {
		return nil, domain.Validationf("Email is required to lookup order")
	}
	return s.repo.GetByNumberAndEmail(ctx, strings.TrimSpace(number), email)
}

type StatusInput struct {
	Status         string  `json:"status"`
	TrackingNumber *string `json:"trackingNumber"`
	Notes          *string `json:"notes"`
}

// UpdateStatus sets the fulfillment status. Any status may follow any other.
func (s *Service) UpdateStatus(ctx context.Context, id string, in StatusInput) (*domain.Order, error) {
	status := domain.OrderStatus(in.Status)
	if !status.IsValid() {
		return nil, domain.Validationf("Invalid status")
	}
	if !validID(id) {
		return nil, domain.ErrInvalidID
	}
	o, err := s.repo.UpdateStatus(ctx, id, status, in.TrackingNumber, in.Notes)
	if err != nil {
		return nil, err
	}
	s.logger.Info("order status updated", zap.String("order_number", o.OrderNumber), zap.String("status", string(status)))
	return o, nil
}

func (s *Service) UpdatePaymentStatus(ctx context.Context, id, value string) (*domain.Order, error) {
	status := domain.PaymentStatus(value)
	if !status.IsValid() {
		return nil, domain.Validationf("Invalid payment status")
	}
	if !validID(id) {
		return nil, domain.ErrInvalidID
	}
	o, err := s.repo.UpdatePaymentStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	s.logger.Info("order payment status updated", zap.String("order_number", o.OrderNumber), zap.String("payment_status", string(status)))
	return o, nil
}

type Summary struct {
	Timeframe              domain.Timeframe
	TotalOrders            int
	TotalRevenueCents      int64
	RecentOrders           int
	AverageOrderValueCents int64
	OrdersByStatus         map[domain.OrderStatus]int
	RevenueByMonth         []orderrepo.MonthRevenue
}

func (s *Service) Summary(ctx context.Context, timeframe string) (Summary, error) {
	tf := domain.ParseTimeframe(timeframe)
	now := s.now()
	raw, err := s.repo.Summary(ctx, tf.Start(now), now.Add(-24*time.Hour))
	if err != nil {
		return Summary{}, fmt.Errorf("order summary: %w", err)
	}
	out := Summary{
		Timeframe:         tf,
		TotalOrders:       raw.PaidOrders,
		TotalRevenueCents: raw.PaidRevenueCents,
		RecentOrders:      raw.RecentPaidOrders,
		OrdersByStatus:    raw.StatusCounts,
		RevenueByMonth:    raw.RevenueByMonth,
	}
	if raw.PaidOrders > 0 {
		out.AverageOrderValueCents = (raw.PaidRevenueCents + int64(raw.PaidOrders)/2) / int64(raw.PaidOrders)
	}
	return out, nil
}

// parseBound accepts RFC 3339 or a bare date and reports which form it was.
func parseBound(v string) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, false, nil
	}
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		return time.Time{}, false, err
	}
	return t, true, nil
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func sortField(v string) orderrepo.SortField {
	switch v {
	case "total":
		return orderrepo.SortTotal
	case "orderNumber":
		return orderrepo.SortOrderNumber
	case "status":
		return orderrepo.SortStatus
	default:
		return orderrepo.SortCreatedAt
	}
}
