// Package billing wraps the payment provider behind a small interface so the
// subscription reconciler can be exercised without network access.
package billing

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when the provider reports a missing object.
	ErrNotFound = errors.New("billing object not found")
	// ErrInvalidSignature is returned when a webhook payload fails verification.
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// CheckoutSession is the provider-neutral view of a hosted checkout.
type CheckoutSession struct {
	ID                string
	URL               string
	Status            string
	PaymentStatus     string
	CustomerID        string
	SubscriptionID    string
	ClientReferenceID string
	Metadata          map[string]string
}

// Paid reports whether the customer completed payment for the session.
func (s *CheckoutSession) Paid() bool {
	return s.PaymentStatus == "paid" || s.Status == "complete"
}

// SubscriptionSnapshot is a point-in-time copy of a provider subscription.
type SubscriptionSnapshot struct {
	ID                 string
	CustomerID         string
	PriceID            string
	Status             string
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
	CancelAtPeriodEnd  bool
	Metadata           map[string]string
}

type Customer struct {
	ID       string
	Email    string
	Metadata map[string]string
}

type CheckoutParams struct {
	CustomerID        string
	PriceID           string
	SuccessURL        string
	CancelURL         string
	ClientReferenceID string
	Metadata          map[string]string
}

// Event is a verified webhook delivery. Data holds the raw JSON of the
// event's object.
type Event struct {
	ID   string
	Type string
	Data json.RawMessage
}

// Provider is the subset of the payment provider API used by the service.
type Provider interface {
	RetrieveCheckoutSession(ctx context.Context, id string) (*CheckoutSession, error)
	RetrieveSubscription(ctx context.Context, id string) (*SubscriptionSnapshot, error)
	ListCustomers(ctx context.Context, email string) ([]Customer, error)
	CreateCustomer(ctx context.Context, email string, metadata map[string]string) (*Customer, error)
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*CheckoutSession, error)
	CreateBillingPortalSession(ctx context.Context, customerID, returnURL string) (string, error)
	ConstructEvent(payload []byte, signature string) (*Event, error)
}
