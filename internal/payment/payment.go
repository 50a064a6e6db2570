// Package payment describes the hosted-checkout payment gateway the storefront talks to.
package payment

import (
	"context"
	"errors"

	"storefront/internal/domain"
)

var (
	// ErrInvalidSignature is returned when an inbound event cannot be authenticated.
	ErrInvalidSignature = errors.New("invalid webhook signature")
	// ErrSessionNotFound is returned when the gateway has no session with the given id.
	ErrSessionNotFound = errors.New("checkout session not found")
)

type EventType string

const (
	EventCheckoutCompleted EventType = "checkout.session.completed"
	EventPaymentSucceeded  EventType = "payment_intent.succeeded"
	EventPaymentFailed     EventType = "payment_intent.payment_failed"
)

// LineItem is one priced row on the hosted checkout page.
type LineItem struct {
	Name            string
	Image           string
	UnitAmountCents int64
	Quantity        int
}

type SessionRequest struct {
	CustomerEmail    string
	Currency         string
	LineItems        []LineItem
	Metadata         map[string]string
	SuccessURL       string
	CancelURL        string
	AllowedCountries []string
}

type Session struct {
	ID              string
	URL             string
	PaymentStatus   string
	CustomerEmail   string
	PaymentIntentID string
	Metadata        map[string]string
	ShippingAddress *domain.Address
}

// Event is an authenticated gateway notification. Session is set for checkout events,
// PaymentIntentID for payment intent events.
type Event struct {
	ID              string
	Type            EventType
	Session         *Session
	PaymentIntentID string
}

type Gateway interface {
	CreateSession(ctx context.Context, req SessionRequest) (*Session, error)
	GetSession(ctx context.Context, id string) (*Session, error)
	// ParseEvent verifies signature over the raw payload before decoding it.
	ParseEvent(payload []byte, signature string) (*Event, error)
}
