package httpserver

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront/internal/payment"
	checkoutsvc "storefront/internal/service/checkout"
)

// maxWebhookBytes bounds webhook bodies. A completed-session event carries up to 47 metadata
// chunks of 500 characters plus the session envelope.
const maxWebhookBytes = 512 << 10

type createSessionResponse struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
	Subtotal  money  `json:"subtotal"`
	Tax       money  `json:"tax"`
	Shipping  money  `json:"shipping"`
	Total     money  `json:"total"`
}

func (h *handlers) createCheckoutSession(c *gin.Context) {
	var in checkoutsvc.InitiateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}
	res, err := h.Checkout.Initiate(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.logger, err, "Error creating checkout session")
		return
	}
	c.JSON(http.StatusOK, createSessionResponse{
		SessionID: res.SessionID,
		URL:       res.URL,
		Subtotal:  money(res.Quote.SubtotalCents),
		Tax:       money(res.Quote.TaxCents),
		Shipping:  money(res.Quote.ShippingCents),
		Total:     money(res.Quote.TotalCents),
	})
}

// checkoutWebhook hands the raw body to the checkout service for signature verification.
// Only a bad signature is reported back to the gateway.
func (h *handlers) checkoutWebhook(c *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBytes))
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		h.logger.Warn("webhook body too large", zap.Int64("limit", tooLarge.Limit))
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"message": "Webhook payload too large"})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Could not read request body"})
		return
	}
	err = h.Checkout.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	if errors.Is(err, payment.ErrInvalidSignature) {
		h.logger.Warn("webhook signature verification failed", zap.String("client_ip", c.ClientIP()))
		c.JSON(http.StatusBadRequest, gin.H{"message": "Webhook signature verification failed"})
		return
	}
	if err != nil {
		h.logger.Error("webhook handling failed", zap.Error(err))
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

type sessionStatusResponse struct {
	Session struct {
		ID            string `json:"id"`
		PaymentStatus string `json:"paymentStatus"`
		CustomerEmail string `json:"customerEmail"`
	} `json:"session"`
	Order *sessionOrder `json:"order"`
}

type sessionOrder struct {
	OrderNumber string `json:"orderNumber"`
	Status      string `json:"status"`
	Total       money  `json:"total"`
}

func (h *handlers) checkoutSession(c *gin.Context) {
	st, err := h.Checkout.SessionStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err, "Error retrieving session")
		return
	}
	var out sessionStatusResponse
	out.Session.ID = st.Session.ID
	out.Session.PaymentStatus = st.Session.PaymentStatus
	out.Session.CustomerEmail = st.Session.CustomerEmail
	if st.Order != nil {
		out.Order = &sessionOrder{
			OrderNumber: st.Order.OrderNumber,
			Status:      string(st.Order.Status),
			Total:       money(st.Order.TotalCents),
		}
	}
	c.JSON(http.StatusOK, out)
}
