package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *handlers) dashboard(c *gin.Context) {
	d, err := h.Analytics.Dashboard(c.Request.Context(), c.Query("timeframe"))
	if err != nil {
		respondError(c, h.logger, err, "Error fetching dashboard analytics")
		return
	}
	c.JSON(http.StatusOK, toDashboard(d))
}

func (h *handlers) sales(c *gin.Context) {
	s, err := h.Analytics.Sales(c.Request.Context(), c.Query("timeframe"), c.Query("groupBy"))
	if err != nil {
		respondError(c, h.logger, err, "Error fetching sales analytics")
		return
	}
	c.JSON(http.StatusOK, toSales(s))
}

func (h *handlers) productReport(c *gin.Context) {
	r, err := h.Analytics.Products(c.Request.Context(), c.Query("timeframe"))
	if err != nil {
		respondError(c, h.logger, err, "Error fetching product analytics")
		return
	}
	c.JSON(http.StatusOK, toProductReport(r))
}
