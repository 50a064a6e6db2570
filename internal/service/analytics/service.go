package analytics

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"storefront/internal/domain"
	analyticsrepo "storefront/internal/repository/analytics"
)

const (
	dashboardTopProducts  = 10
	dashboardRecentOrders = 5
	dashboardLowStock     = 10
	reportTopProducts     = 20
	LowStockThreshold     = 10
)

// Cache is a JSON value cache keyed by string.
type Cache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

type Service struct {
	repo     analyticsrepo.Repository
	cache    Cache
	ttl      time.Duration
	onLookup func(hit bool)
	logger   *zap.Logger
	now      func() time.Time
}

type Option func(*Service)

// WithCache enables result caching for ttl. A zero ttl disables caching.
func WithCache(c Cache, ttl time.Duration) Option {
	return func(s *Service) {
		if c != nil && ttl > 0 {
			s.cache, s.ttl = c, ttl
		}
	}
}

// WithCacheObserver is called after every cache lookup with whether it hit.
func WithCacheObserver(fn func(hit bool)) Option {
	return func(s *Service) { s.onLookup = fn }
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger.Named("analytics_service")
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(repo analyticsrepo.Repository, opts ...Option) *Service {
	s := &Service{repo: repo, logger: zap.NewNop(), now: time.Now, onLookup: func(bool) {}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type MoneyStat struct {
	CurrentCents int64
	Change       float64
}

type CountStat struct {
	Current int
	Change  float64
}

type Stats struct {
	Revenue           MoneyStat
	Orders            CountStat
	AverageOrderValue MoneyStat
}

type ChartPoint struct {
	Date         string
	RevenueCents int64
	Orders       int
}

type Dashboard struct {
	Timeframe    domain.Timeframe
	Stats        Stats
	ChartData    []ChartPoint
	TopProducts  []analyticsrepo.ProductSales
	RecentOrders []analyticsrepo.RecentOrder
	LowStock     []analyticsrepo.StockItem
}

func (s *Service) Dashboard(ctx context.Context, timeframe string) (*Dashboard, error) {
	tf := domain.ParseTimeframe(timeframe)
	var out Dashboard
	err := s.cached(ctx, "dashboard:"+string(tf), &out, func() error {
		now := s.now()
		start, prevStart := tf.Start(now), tf.PreviousStart(now)
		out = Dashboard{Timeframe: tf}

		var cur, prev analyticsrepo.PeriodStats
		var days []analyticsrepo.Bucket
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) { cur, err = s.repo.PeriodStats(gctx, start, now); return })
		g.Go(func() (err error) { prev, err = s.repo.PeriodStats(gctx, prevStart, start); return })
		g.Go(func() (err error) { days, err = s.repo.Buckets(gctx, analyticsrepo.UnitDay, start, now); return })
		g.Go(func() (err error) {
			out.TopProducts, err = s.repo.TopProducts(gctx, start, now, analyticsrepo.TopByQuantity, dashboardTopProducts)
			return
		})
		g.Go(func() (err error) { out.RecentOrders, err = s.repo.RecentPaidOrders(gctx, dashboardRecentOrders); return })
		g.Go(func() (err error) {
			out.LowStock, err = s.repo.LowStock(gctx, LowStockThreshold, dashboardLowStock)
			return
		})
		if err := g.Wait(); err != nil {
			return fmt.Errorf("dashboard: %w", err)
		}

		curAvg, prevAvg := average(cur.RevenueCents, cur.Orders), average(prev.RevenueCents, prev.Orders)
		out.Stats = Stats{
			Revenue:           MoneyStat{CurrentCents: cur.RevenueCents, Change: PercentChange(float64(cur.RevenueCents), float64(prev.RevenueCents))},
			Orders:            CountStat{Current: cur.Orders, Change: PercentChange(float64(cur.Orders), float64(prev.Orders))},
			AverageOrderValue: MoneyStat{CurrentCents: curAvg, Change: PercentChange(float64(curAvg), float64(prevAvg))},
		}
		out.ChartData = make([]ChartPoint, 0, len(days))
		for _, b := range days {
			out.ChartData = append(out.ChartData, ChartPoint{Date: Label(analyticsrepo.UnitDay, b.Start), RevenueCents: b.RevenueCents, Orders: b.Orders})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

type SalesPoint struct {
	Date                   string
	RevenueCents           int64
	Orders                 int
	AverageOrderValueCents int64
	Items                  int
}

type SalesSummary struct {
	TotalRevenueCents      int64
	TotalOrders            int
	TotalItems             int
	AverageOrderValueCents int64
}

type Sales struct {
	Timeframe domain.Timeframe
	GroupBy   analyticsrepo.Unit
	Points    []SalesPoint
	Summary   SalesSummary
}

func (s *Service) Sales(ctx context.Context, timeframe, groupBy string) (*Sales, error) {
	tf := domain.ParseTimeframe(timeframe)
	unit := parseUnit(groupBy)
	var out Sales
	err := s.cached(ctx, fmt.Sprintf("sales:%s:%s", tf, unit), &out, func() error {
		now := s.now()
		buckets, err := s.repo.Buckets(ctx, unit, tf.Start(now), now)
		if err != nil {
			return fmt.Errorf("sales: %w", err)
		}
		out = Sales{Timeframe: tf, GroupBy: unit, Points: make([]SalesPoint, 0, len(buckets))}
		for _, b := range buckets {
			out.Points = append(out.Points, SalesPoint{
				Date:                   Label(unit, b.Start),
				RevenueCents:           b.RevenueCents,
				Orders:                 b.Orders,
				AverageOrderValueCents: average(b.RevenueCents, b.Orders),
				Items:                  b.Items,
			})
			out.Summary.TotalRevenueCents += b.RevenueCents
			out.Summary.TotalOrders += b.Orders
			out.Summary.TotalItems += b.Items
		}
		out.Summary.AverageOrderValueCents = average(out.Summary.TotalRevenueCents, out.Summary.TotalOrders)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

type ProductReport struct {
	Timeframe  domain.Timeframe
	Products   []analyticsrepo.ProductSales
	Categories []analyticsrepo.CategorySales
	Inventory  analyticsrepo.Inventory
}

func (s *Service) Products(ctx context.Context, timeframe string) (*ProductReport, error) {
	tf := domain.ParseTimeframe(timeframe)
	var out ProductReport
	err := s.cached(ctx, "products:"+string(tf), &out, func() error {
		now := s.now()
		start := tf.Start(now)
		out = ProductReport{Timeframe: tf}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) {
			out.Products, err = s.repo.TopProducts(gctx, start, now, analyticsrepo.TopByRevenue, reportTopProducts)
			return
		})
		g.Go(func() (err error) { out.Categories, err = s.repo.CategoryPerformance(gctx, start, now); return })
		g.Go(func() (err error) { out.Inventory, err = s.repo.Inventory(gctx, LowStockThreshold); return })
		if err := g.Wait(); err != nil {
			return fmt.Errorf("product report: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// cached fills dest from the cache when possible, otherwise runs load and stores dest.
// Cache errors never fail the request.
func (s *Service) cached(ctx context.Context, key string, dest any, load func() error) error {
	if s.cache == nil {
		return load()
	}
	hit, err := s.cache.Get(ctx, key, dest)
	if err != nil {
		s.logger.Warn("analytics cache read failed", zap.String("key", key), zap.Error(err))
	}
	s.onLookup(hit)
	if hit {
		return nil
	}
	if err := load(); err != nil {
		return err
	}
	if err := s.cache.Set(ctx, key, dest, s.ttl); err != nil {
		s.logger.Warn("analytics cache write failed", zap.String("key", key), zap.Error(err))
	}
	return nil
}

// PercentChange is (current-previous)/previous as a percentage rounded to two decimals.
// A zero previous value yields 100 when current is positive and 0 otherwise.
func PercentChange(current, previous float64) float64 {
	if previous == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	return math.Round((current-previous)/previous*100*100) / 100
}

// Label renders a bucket start as YYYY-MM-DD, YYYY-Www (ISO week) or YYYY-MM.
func Label(unit analyticsrepo.Unit, start time.Time) string {
	switch unit {
	case analyticsrepo.UnitWeek:
		year, week := start.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	case analyticsrepo.UnitMonth:
		return start.Format("2006-01")
	default:
		return start.Format("2006-01-02")
	}
}

func parseUnit(v string) analyticsrepo.Unit {
	switch v {
	case "week":
		return analyticsrepo.UnitWeek
	case "month":
		return analyticsrepo.UnitMonth
	default:
		return analyticsrepo.UnitDay
	}
}

func average(totalCents int64, n int) int64 {
	if n == 0 {
		return 0
	}
	return int64(math.Round(float64(totalCents) / float64(n)))
}
