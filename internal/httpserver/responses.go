package httpserver

import (
	"time"

	"storefront/internal/domain"
	"storefront/internal/pricing"
	analyticsrepo "storefront/internal/repository/analytics"
	analyticssvc "storefront/internal/service/analytics"
	ordersvc "storefront/internal/service/order"
)

// money renders cents as a JSON number with two fraction digits.
type money int64

func (m money) MarshalJSON() ([]byte, error) {
	return []byte(pricing.Amount(int64(m)).StringFixed(2)), nil
}

type productResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Price       money     `json:"price"`
	Image       string    `json:"image"`
	Category    string    `json:"category"`
	Stock       int       `json:"stock"`
	SKU         string    `json:"sku,omitempty"`
	Tags        []string  `json:"tags"`
	IsActive    bool      `json:"isActive"`
	InStock     bool      `json:"inStock"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toProduct(p domain.Product) productResponse {
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	return productResponse{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Price:       money(p.PriceCents),
		Image:       p.Image,
		Category:    p.Category,
		Stock:       p.Stock,
		SKU:         p.SKU,
		Tags:        tags,
		IsActive:    p.IsActive(),
		InStock:     p.InStock(),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func toProducts(ps []domain.Product) []productResponse {
	out := make([]productResponse, 0, len(ps))
	for _, p := range ps {
		out = append(out, toProduct(p))
	}
	return out
}

type orderItemResponse struct {
	ProductID string `json:"productId"`
	Title     string `json:"title"`
	Price     money  `json:"price"`
	Quantity  int    `json:"quantity"`
	Image     string `json:"image,omitempty"`
}

type orderResponse struct {
	ID              string               `json:"id"`
	OrderNumber     string               `json:"orderNumber"`
	CustomerEmail   string               `json:"customerEmail"`
	CustomerName    string               `json:"customerName"`
	Items           []orderItemResponse  `json:"items"`
	Subtotal        money                `json:"subtotal"`
	Tax             money                `json:"tax"`
	Shipping        money                `json:"shipping"`
	Total           money                `json:"total"`
	Status          domain.OrderStatus   `json:"status"`
	PaymentStatus   domain.PaymentStatus `json:"paymentStatus"`
	PaymentIntentID string               `json:"paymentIntentId,omitempty"`
	ShippingAddress *domain.Address      `json:"shippingAddress,omitempty"`
	TrackingNumber  string               `json:"trackingNumber,omitempty"`
	Notes           string               `json:"notes,omitempty"`
	CreatedAt       time.Time            `json:"createdAt"`
	UpdatedAt       time.Time            `json:"updatedAt"`
}

func toOrder(o domain.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, orderItemResponse{
			ProductID: it.ProductID,
			Title:     it.Title,
			Price:     money(it.UnitPriceCents),
			Quantity:  it.Quantity,
			Image:     it.Image,
		})
	}
	return orderResponse{
		ID:              o.ID,
		OrderNumber:     o.OrderNumber,
		CustomerEmail:   o.CustomerEmail,
		CustomerName:    o.CustomerName,
		Items:           items,
		Subtotal:        money(o.SubtotalCents),
		Tax:             money(o.TaxCents),
		Shipping:        money(o.ShippingCents),
		Total:           money(o.TotalCents),
		Status:          o.Status,
		PaymentStatus:   o.PaymentStatus,
		PaymentIntentID: o.PaymentIntentID,
		ShippingAddress: o.ShippingAddress,
		TrackingNumber:  o.TrackingNumber,
		Notes:           o.Notes,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}

type monthRevenueResponse struct {
	Month   string `json:"month"`
	Revenue money  `json:"revenue"`
	Orders  int    `json:"orders"`
}

type orderSummaryResponse struct {
	Timeframe         domain.Timeframe           `json:"timeframe"`
	TotalOrders       int                        `json:"totalOrders"`
	TotalRevenue      money                      `json:"totalRevenue"`
	RecentOrders      int                        `json:"recentOrders"`
	AverageOrderValue money                      `json:"averageOrderValue"`
	OrdersByStatus    map[domain.OrderStatus]int `json:"ordersByStatus"`
	RevenueByMonth    []monthRevenueResponse     `json:"revenueByMonth"`
}

func toOrderSummary(s ordersvc.Summary) orderSummaryResponse {
	months := make([]monthRevenueResponse, 0, len(s.RevenueByMonth))
	for _, m := range s.RevenueByMonth {
		months = append(months, monthRevenueResponse{Month: m.Month, Revenue: money(m.RevenueCents), Orders: m.Orders})
	}
	byStatus := s.OrdersByStatus
	if byStatus == nil {
		byStatus = map[domain.OrderStatus]int{}
	}
	return orderSummaryResponse{
		Timeframe:         s.Timeframe,
		TotalOrders:       s.TotalOrders,
		TotalRevenue:      money(s.TotalRevenueCents),
		RecentOrders:      s.RecentOrders,
		AverageOrderValue: money(s.AverageOrderValueCents),
		OrdersByStatus:    byStatus,
		RevenueByMonth:    months,
	}
}

type moneyStat struct {
	Current money   `json:"current"`
	Change  float64 `json:"change"`
}

type countStat struct {
	Current int     `json:"current"`
	Change  float64 `json:"change"`
}

type productSalesResponse struct {
	ProductID    string `json:"productId"`
	Title        string `json:"title"`
	Quantity     int    `json:"totalQuantity"`
	Revenue      money  `json:"totalRevenue"`
	AveragePrice money  `json:"averagePrice"`
	Orders       int    `json:"orderCount"`
}

func toProductSales(in []analyticsrepo.ProductSales) []productSalesResponse {
	out := make([]productSalesResponse, 0, len(in))
	for _, p := range in {
		out = append(out, productSalesResponse{
			ProductID:    p.ProductID,
			Title:        p.Title,
			Quantity:     p.Quantity,
			Revenue:      money(p.RevenueCents),
			AveragePrice: money(p.AveragePriceCents),
			Orders:       p.Orders,
		})
	}
	return out
}

type recentOrderResponse struct {
	ID           string             `json:"id"`
	OrderNumber  string             `json:"orderNumber"`
	CustomerName string             `json:"customerName"`
	Total        money              `json:"total"`
	Status       domain.OrderStatus `json:"status"`
	CreatedAt    time.Time          `json:"createdAt"`
}

type stockItemResponse struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Category string `json:"category"`
	Stock    int    `json:"stock"`
	Price    money  `json:"price"`
}

type chartPointResponse struct {
	Date    string `json:"date"`
	Revenue money  `json:"revenue"`
	Orders  int    `json:"orders"`
}

type dashboardResponse struct {
	Timeframe domain.Timeframe `json:"timeframe"`
	Stats     struct {
		Revenue           moneyStat `json:"revenue"`
		Orders            countStat `json:"orders"`
		AverageOrderValue moneyStat `json:"averageOrderValue"`
	} `json:"stats"`
	ChartData    []chartPointResponse   `json:"chartData"`
	TopProducts  []productSalesResponse `json:"topProducts"`
	RecentOrders []recentOrderResponse  `json:"recentOrders"`
	LowStock     []stockItemResponse    `json:"lowStockProducts"`
}

func toDashboard(d *analyticssvc.Dashboard) dashboardResponse {
	var out dashboardResponse
	out.Timeframe = d.Timeframe
	out.Stats.Revenue = moneyStat{Current: money(d.Stats.Revenue.CurrentCents), Change: d.Stats.Revenue.Change}
	out.Stats.Orders = countStat{Current: d.Stats.Orders.Current, Change: d.Stats.Orders.Change}
	out.Stats.AverageOrderValue = moneyStat{Current: money(d.Stats.AverageOrderValue.CurrentCents), Change: d.Stats.AverageOrderValue.Change}

	out.ChartData = make([]chartPointResponse, 0, len(d.ChartData))
	for _, p := range d.ChartData {
		out.ChartData = append(out.ChartData, chartPointResponse{Date: p.Date, Revenue: money(p.RevenueCents), Orders: p.Orders})
	}
	out.TopProducts = toProductSales(d.TopProducts)
	out.RecentOrders = make([]recentOrderResponse, 0, len(d.RecentOrders))
	for _, o := range d.RecentOrders {
		out.RecentOrders = append(out.RecentOrders, recentOrderResponse{
			ID: o.ID, OrderNumber: o.OrderNumber, CustomerName: o.CustomerName,
			Total: money(o.TotalCents), Status: o.Status, CreatedAt: o.CreatedAt,
		})
	}
	out.LowStock = make([]stockItemResponse, 0, len(d.LowStock))
	for _, s := range d.LowStock {
		out.LowStock = append(out.LowStock, stockItemResponse{
			ID: s.ID, Title: s.Title, Category: s.Category, Stock: s.Stock, Price: money(s.PriceCents),
		})
	}
	return out
}

type salesPointResponse struct {
	Date              string `json:"date"`
	Revenue           money  `json:"revenue"`
	Orders            int    `json:"orders"`
	AverageOrderValue money  `json:"averageOrderValue"`
	Items             int    `json:"totalItems"`
}

type salesResponse struct {
	Timeframe domain.Timeframe     `json:"timeframe"`
	GroupBy   analyticsrepo.Unit   `json:"groupBy"`
	SalesData []salesPointResponse `json:"salesData"`
	Summary   struct {
		TotalRevenue      money `json:"totalRevenue"`
		TotalOrders       int   `json:"totalOrders"`
		TotalItems        int   `json:"totalItems"`
		AverageOrderValue money `json:"averageOrderValue"`
	} `json:"summary"`
}

func toSales(s *analyticssvc.Sales) salesResponse {
	var out salesResponse
	out.Timeframe = s.Timeframe
	out.GroupBy = s.GroupBy
	out.SalesData = make([]salesPointResponse, 0, len(s.Points))
	for _, p := range s.Points {
		out.SalesData = append(out.SalesData, salesPointResponse{
			Date:              p.Date,
			Revenue:           money(p.RevenueCents),
			Orders:            p.Orders,
			AverageOrderValue: money(p.AverageOrderValueCents),
			Items:             p.Items,
		})
	}
	out.Summary.TotalRevenue = money(s.Summary.TotalRevenueCents)
	out.Summary.TotalOrders = s.Summary.TotalOrders
	out.Summary.TotalItems = s.Summary.TotalItems
	out.Summary.AverageOrderValue = money(s.Summary.AverageOrderValueCents)
	return out
}

type categorySalesResponse struct {
	Category string `json:"category"`
	Quantity int    `json:"totalQuantity"`
	Revenue  money  `json:"totalRevenue"`
	Products int    `json:"productCount"`
}

type productReportResponse struct {
	Timeframe           domain.Timeframe        `json:"timeframe"`
	ProductPerformance  []productSalesResponse  `json:"productPerformance"`
	CategoryPerformance []categorySalesResponse `json:"categoryPerformance"`
	InventoryStatus     struct {
		TotalProducts int   `json:"totalProducts"`
		LowStock      int   `json:"lowStock"`
		OutOfStock    int   `json:"outOfStock"`
		TotalValue    money `json:"totalValue"`
	} `json:"inventoryStatus"`
}

func toProductReport(r *analyticssvc.ProductReport) productReportResponse {
	var out productReportResponse
	out.Timeframe = r.Timeframe
	out.ProductPerformance = toProductSales(r.Products)
	out.CategoryPerformance = make([]categorySalesResponse, 0, len(r.Categories))
	for _, c := range r.Categories {
		out.CategoryPerformance = append(out.CategoryPerformance, categorySalesResponse{
			Category: c.Category, Quantity: c.Quantity, Revenue: money(c.RevenueCents), Products: c.Products,
		})
	}
	out.InventoryStatus.TotalProducts = r.Inventory.TotalProducts
	out.InventoryStatus.LowStock = r.Inventory.LowStock
	out.InventoryStatus.OutOfStock = r.Inventory.OutOfStock
	out.InventoryStatus.TotalValue = money(r.Inventory.TotalValueCents)
	return out
}

type userResponse struct {
	ID        string      `json:"id"`
	Email     string      `json:"email"`
	Role      domain.Role `json:"role"`
	FirstName string      `json:"firstName,omitempty"`
	LastName  string      `json:"lastName,omitempty"`
}

func toUser(u *domain.User) userResponse {
	return userResponse{ID: u.ID, Email: u.Email, Role: u.Role, FirstName: u.FirstName, LastName: u.LastName}
}
