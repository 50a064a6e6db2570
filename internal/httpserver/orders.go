package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/domain"
	ordersvc "storefront/internal/service/order"
)

type orderListResponse struct {
	Orders     []orderResponse `json:"orders"`
	Pagination domain.PageInfo `json:"pagination"`
}

func (h *handlers) listOrders(c *gin.Context) {
	res, err := h.Orders.List(c.Request.Context(), ordersvc.ListParams{
		Page:          queryInt(c, "page"),
		Limit:         queryInt(c, "limit"),
		Status:        c.Query("status"),
		PaymentStatus: c.Query("paymentStatus"),
		Search:        c.Query("search"),
		StartDate:     c.Query("startDate"),
		EndDate:       c.Query("endDate"),
		SortBy:        c.Query("sortBy"),
		SortOrder:     c.Query("sortOrder"),
	})
	if err != nil {
		respondError(c, h.logger, err, "Error fetching orders")
		return
	}
	out := orderListResponse{Orders: make([]orderResponse, 0, len(res.Orders)), Pagination: res.Page}
	for _, o := range res.Orders {
		out.Orders = append(out.Orders, toOrder(o))
	}
	c.JSON(http.StatusOK, out)
}

func (h *handlers) getOrder(c *gin.Context) {
	o, err := h.Orders.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err, "Error fetching order")
		return
	}
	c.JSON(http.StatusOK, toOrder(*o))
}

func (h *handlers) lookupOrder(c *gin.Context) {
	o, err := h.Orders.Lookup(c.Request.Context(), c.Param("number"), c.Query("email"))
	if err != nil {
		respondError(c, h.logger, err, "Error fetching order")
		return
	}
	c.JSON(http.StatusOK, toOrder(*o))
}

func (h *handlers) updateOrderStatus(c *gin.Context) {
	var in ordersvc.StatusInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}
	o, err := h.Orders.UpdateStatus(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		respondError(c, h.logger, err, "Error updating order status")
		return
	}
	c.JSON(http.StatusOK, toOrder(*o))
}

func (h *handlers) updateOrderPaymentStatus(c *gin.Context) {
	var in struct {
		PaymentStatus string `json:"paymentStatus"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}
	o, err := h.Orders.UpdatePaymentStatus(c.Request.Context(), c.Param("id"), in.PaymentStatus)
	if err != nil {
		respondError(c, h.logger, err, "Error updating payment status")
		return
	}
	c.JSON(http.StatusOK, toOrder(*o))
}

func (h *handlers) orderSummary(c *gin.Context) {
	s, err := h.Orders.Summary(c.Request.Context(), c.Query("timeframe"))
	if err != nil {
		respondError(c, h.logger, err, "Error fetching order statistics")
		return
	}
	c.JSON(http.StatusOK, toOrderSummary(s))
}
