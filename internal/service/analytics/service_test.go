package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	analyticsrepo "storefront/internal/repository/analytics"
)

var now = time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)

type stubRepo struct {
	mu       sync.Mutex
	periods  map[time.Time]analyticsrepo.PeriodStats
	buckets  []analyticsrepo.Bucket
	units    []analyticsrepo.Unit
	topBy    []analyticsrepo.TopBy
	calls    int
	failWith error
}

func (r *stubRepo) PeriodStats(_ context.Context, from, _ time.Time) (analyticsrepo.PeriodStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return r.periods[from], r.failWith
}

func (r *stubRepo) Buckets(_ context.Context, unit analyticsrepo.Unit, _, _ time.Time) ([]analyticsrepo.Bucket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.units = append(r.units, unit)
	return r.buckets, nil
}

func (r *stubRepo) TopProducts(_ context.Context, _, _ time.Time, by analyticsrepo.TopBy, limit int) ([]analyticsrepo.ProductSales, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.topBy = append(r.topBy, by)
	return []analyticsrepo.ProductSales{{ProductID: "p1", Quantity: limit}}, nil
}

func (r *stubRepo) CategoryPerformance(context.Context, time.Time, time.Time) ([]analyticsrepo.CategorySales, error) {
	return []analyticsrepo.CategorySales{{Category: "Books"}}, nil
}

func (r *stubRepo) RecentPaidOrders(_ context.Context, limit int) ([]analyticsrepo.RecentOrder, error) {
	return make([]analyticsrepo.RecentOrder, limit), nil
}

func (r *stubRepo) LowStock(_ context.Context, threshold, limit int) ([]analyticsrepo.StockItem, error) {
	return []analyticsrepo.StockItem{{Stock: threshold - 1}}, nil
}

func (r *stubRepo) Inventory(context.Context, int) (analyticsrepo.Inventory, error) {
	return analyticsrepo.Inventory{TotalProducts: 3, OutOfStock: 1}, nil
}

type memCache struct {
	data map[string][]byte
	ttl  time.Duration
}

func (c *memCache) Get(_ context.Context, key string, dest any) (bool, error) {
	raw, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (c *memCache) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.data[key] = raw
	c.ttl = ttl
	return nil
}

func TestPercentChange(t *testing.T) {
	assert.Equal(t, 100.0, PercentChange(5, 0))
	assert.Equal(t, 0.0, PercentChange(0, 0))
	assert.Equal(t, 50.0, PercentChange(150, 100))
	assert.Equal(t, -33.33, PercentChange(2, 3))
}

func TestLabel(t *testing.T) {
	d := time.Date(2024, 12, 30, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-12-30", Label(analyticsrepo.UnitDay, d))
	assert.Equal(t, "2025-W01", Label(analyticsrepo.UnitWeek, d))
	assert.Equal(t, "2024-12", Label(analyticsrepo.UnitMonth, d))
}

func TestDashboardComparesWithPreviousWindow(t *testing.T) {
	start := now.AddDate(0, 0, -7)
	prevStart := now.AddDate(0, 0, -14)
	repo := &stubRepo{
		periods: map[time.Time]analyticsrepo.PeriodStats{
			start:     {RevenueCents: 30000, Orders: 3},
			prevStart: {RevenueCents: 20000, Orders: 4},
		},
		buckets: []analyticsrepo.Bucket{{Start: time.Date(2024, 6, 25, 0, 0, 0, 0, time.UTC), RevenueCents: 30000, Orders: 3}},
	}
	svc := New(repo, WithClock(func() time.Time { return now }))

	d, err := svc.Dashboard(context.Background(), "7d")
	require.NoError(t, err)
	assert.EqualValues(t, 30000, d.Stats.Revenue.CurrentCents)
	assert.Equal(t, 50.0, d.Stats.Revenue.Change)
	assert.Equal(t, -25.0, d.Stats.Orders.Change)
	assert.EqualValues(t, 10000, d.Stats.AverageOrderValue.CurrentCents)
	assert.Equal(t, 100.0, d.Stats.AverageOrderValue.Change)
	require.Len(t, d.ChartData, 1)
	assert.Equal(t, "2024-06-25", d.ChartData[0].Date)
	assert.Equal(t, dashboardTopProducts, d.TopProducts[0].Quantity)
	assert.Len(t, d.RecentOrders, dashboardRecentOrders)
	assert.Equal(t, []analyticsrepo.TopBy{analyticsrepo.TopByQuantity}, repo.topBy)
}

func TestSalesGroupsAndSummarizes(t *testing.T) {
	repo := &stubRepo{buckets: []analyticsrepo.Bucket{
		{Start: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), RevenueCents: 1000, Orders: 1, Items: 2},
		{Start: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), RevenueCents: 2000, Orders: 2, Items: 3},
	}}
	svc := New(repo, WithClock(func() time.Time { return now }))

	s, err := svc.Sales(context.Background(), "90d", "month")
	require.NoError(t, err)
	assert.Equal(t, []analyticsrepo.Unit{analyticsrepo.UnitMonth}, repo.units)
	require.Len(t, s.Points, 2)
	assert.Equal(t, "2024-05", s.Points[0].Date)
	assert.EqualValues(t, 1000, s.Points[1].AverageOrderValueCents)
	assert.EqualValues(t, 3000, s.Summary.TotalRevenueCents)
	assert.Equal(t, 3, s.Summary.TotalOrders)
	assert.Equal(t, 5, s.Summary.TotalItems)
	assert.EqualValues(t, 1000, s.Summary.AverageOrderValueCents)
}

func TestProductsReportRanksByRevenue(t *testing.T) {
	repo := &stubRepo{}
	svc := New(repo, WithClock(func() time.Time { return now }))

	r, err := svc.Products(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []analyticsrepo.TopBy{analyticsrepo.TopByRevenue}, repo.topBy)
	assert.Equal(t, reportTopProducts, r.Products[0].Quantity)
	assert.Equal(t, 3, r.Inventory.TotalProducts)
	assert.Equal(t, "30d", string(r.Timeframe))
}

func TestResultsAreCached(t *testing.T) {
	repo := &stubRepo{}
	cache := &memCache{data: map[string][]byte{}}
	var hits, misses int
	svc := New(repo,
		WithClock(func() time.Time { return now }),
		WithCache(cache, time.Minute),
		WithCacheObserver(func(hit bool) {
			if hit {
				hits++
			} else {
				misses++
			}
		}),
	)

	_, err := svc.Dashboard(context.Background(), "30d")
	require.NoError(t, err)
	_, err = svc.Dashboard(context.Background(), "30d")
	require.NoError(t, err)

	assert.Equal(t, 2, repo.calls, "second call must be served from cache")
	assert.Equal(t, 1, hits)
	assert.Equal(t, 1, misses)
	assert.Equal(t, time.Minute, cache.ttl)
	assert.Contains(t, cache.data, "dashboard:30d")
}

func TestErrorsAreNotCached(t *testing.T) {
	repo := &stubRepo{failWith: errors.New("db down")}
	cache := &memCache{data: map[string][]byte{}}
	svc := New(repo, WithCache(cache, time.Minute))

	_, err := svc.Dashboard(context.Background(), "7d")
	require.Error(t, err)
	assert.Empty(t, cache.data)
}

type brokenCache struct{ gets, sets int }

func (c *brokenCache) Get(context.Context, string, any) (bool, error) {
	c.gets++
	return false, errors.New("connection refused")
}

func (c *brokenCache) Set(context.Context, string, any, time.Duration) error {
	c.sets++
	return errors.New("connection refused")
}

func TestCacheFailuresFallBackToRepository(t *testing.T) {
	repo := &stubRepo{buckets: []analyticsrepo.Bucket{
		{Start: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), RevenueCents: 2000, Orders: 2, Items: 3},
	}}
	cache := &brokenCache{}
	var misses int
	svc := New(repo,
		WithClock(func() time.Time { return now }),
		WithCache(cache, time.Minute),
		WithCacheObserver(func(hit bool) {
			if !hit {
				misses++
			}
		}),
	)

	for i := 0; i < 2; i++ {
		s, err := svc.Sales(context.Background(), "30d", "month")
		require.NoError(t, err)
		require.Len(t, s.Points, 1)
		assert.EqualValues(t, 2000, s.Summary.TotalRevenueCents)
	}

	assert.Len(t, repo.units, 2, "every request must reach the repository")
	assert.Equal(t, 2, cache.gets)
	assert.Equal(t, 2, cache.sets)
	assert.Equal(t, 2, misses)
}
