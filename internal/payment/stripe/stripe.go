// Package stripe adapts Stripe Checkout to payment.Gateway.
package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	stripego "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/payment"
)

type Gateway struct {
	api           *client.API
	webhookSecret string
	logger        *zap.Logger
}

func New(secretKey, webhookSecret string, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{
		api:           client.New(secretKey, nil),
		webhookSecret: webhookSecret,
		logger:        logger.Named("stripe"),
	}
}

func (g *Gateway) CreateSession(ctx context.Context, req payment.SessionRequest) (*payment.Session, error) {
	params := &stripego.CheckoutSessionParams{
		PaymentMethodTypes: stripego.StringSlice([]string{"card"}),
		Mode:               stripego.String(string(stripego.CheckoutSessionModePayment)),
		SuccessURL:         stripego.String(req.SuccessURL),
		CancelURL:          stripego.String(req.CancelURL),
		CustomerEmail:      stripego.String(req.CustomerEmail),
	}
	if len(req.AllowedCountries) > 0 {
		params.ShippingAddressCollection = &stripego.CheckoutSessionShippingAddressCollectionParams{
			AllowedCountries: stripego.StringSlice(req.AllowedCountries),
		}
	}
	for _, li := range req.LineItems {
		product := &stripego.CheckoutSessionLineItemPriceDataProductDataParams{Name: stripego.String(li.Name)}
		if li.Image != "" {
			product.Images = stripego.StringSlice([]string{li.Image})
		}
		params.LineItems = append(params.LineItems, &stripego.CheckoutSessionLineItemParams{
			PriceData: &stripego.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripego.String(req.Currency),
				ProductData: product,
				UnitAmount:  stripego.Int64(li.UnitAmountCents),
			},
			Quantity: stripego.Int64(int64(li.Quantity)),
		})
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	params.Context = ctx

	s, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		g.logger.Error("create checkout session", zap.Error(err))
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	return &payment.Session{ID: s.ID, URL: s.URL, PaymentStatus: string(s.PaymentStatus), CustomerEmail: s.CustomerEmail}, nil
}

func (g *Gateway) GetSession(ctx context.Context, id string) (*payment.Session, error) {
	params := &stripego.CheckoutSessionParams{}
	params.Context = ctx
	s, err := g.api.CheckoutSessions.Get(id, params)
	if err != nil {
		var stripeErr *stripego.Error
		if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode == http.StatusNotFound {
			return nil, payment.ErrSessionNotFound
		}
		g.logger.Error("get checkout session", zap.String("session_id", id), zap.Error(err))
		return nil, fmt.Errorf("get checkout session: %w", err)
	}
	email := s.CustomerEmail
	if email == "" && s.CustomerDetails != nil {
		email = s.CustomerDetails.Email
	}
	return &payment.Session{
		ID:            s.ID,
		URL:           s.URL,
		PaymentStatus: string(s.PaymentStatus),
		CustomerEmail: email,
		Metadata:      s.Metadata,
	}, nil
}

func (g *Gateway) ParseEvent(payload []byte, signature string) (*payment.Event, error) {
	ev, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		g.logger.Warn("webhook signature verification failed", zap.Error(err))
		return nil, payment.ErrInvalidSignature
	}

	out := &payment.Event{ID: ev.ID, Type: payment.EventType(ev.Type)}
	if ev.Data == nil {
		return out, nil
	}
	switch out.Type {
	case payment.EventCheckoutCompleted:
		s, err := decodeSession(ev.Data.Raw)
		if err != nil {
			return nil, fmt.Errorf("decode checkout session: %w", err)
		}
		out.Session = s
	case payment.EventPaymentSucceeded, payment.EventPaymentFailed:
		var pi struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(ev.Data.Raw, &pi); err != nil {
			return nil, fmt.Errorf("decode payment intent: %w", err)
		}
		out.PaymentIntentID = pi.ID
	}
	return out, nil
}

type sessionObject struct {
	ID              string            `json:"id"`
	URL             string            `json:"url"`
	PaymentStatus   string            `json:"payment_status"`
	CustomerEmail   string            `json:"customer_email"`
	PaymentIntent   json.RawMessage   `json:"payment_intent"`
	Metadata        map[string]string `json:"metadata"`
	CustomerDetails *struct {
		Email string `json:"email"`
	} `json:"customer_details"`
	ShippingDetails      *shippingDetails `json:"shipping_details"`
	CollectedInformation *struct {
		ShippingDetails *shippingDetails `json:"shipping_details"`
	} `json:"collected_information"`
}

type shippingDetails struct {
	Address *struct {
		Line1      string `json:"line1"`
		Line2      string `json:"line2"`
		City       string `json:"city"`
		State      string `json:"state"`
		PostalCode string `json:"postal_code"`
		Country    string `json:"country"`
	} `json:"address"`
}

func decodeSession(raw json.RawMessage) (*payment.Session, error) {
	var obj sessionObject
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, err
	}
	s := &payment.Session{
		ID:              obj.ID,
		URL:             obj.URL,
		PaymentStatus:   obj.PaymentStatus,
		CustomerEmail:   obj.CustomerEmail,
		PaymentIntentID: expandableID(obj.PaymentIntent),
		Metadata:        obj.Metadata,
	}
	if s.CustomerEmail == "" && obj.CustomerDetails != nil {
		s.CustomerEmail = obj.CustomerDetails.Email
	}

	shipping := obj.ShippingDetails
	if shipping == nil && obj.CollectedInformation != nil {
		shipping = obj.CollectedInformation.ShippingDetails
	}
	if shipping != nil && shipping.Address != nil {
		a := shipping.Address
		s.ShippingAddress = &domain.Address{
			Line1: a.Line1, Line2: a.Line2, City: a.City, State: a.State, PostalCode: a.PostalCode, Country: a.Country,
		}
	}
	return s, nil
}

// expandableID reads a field Stripe sends either as an id string or as an expanded object.
func expandableID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		return id
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.ID
	}
	return ""
}
