package dto

import "garagepro/internal/model"

// VerifySessionRequest is sent by the client after the Stripe redirect.
type VerifySessionRequest struct {
	SessionID string `json:"sessionId" validate:"required"`
	UserID    string `json:"userId" validate:"required"`
}

// VerifySessionResponse confirms the subscription was recorded.
type VerifySessionResponse struct {
	Success        bool                     `json:"success"`
	Plan           string                   `json:"plan"`
	SubscriptionID string                   `json:"subscriptionId"`
	Status         model.SubscriptionStatus `json:"status"`
}

type CheckSubscriptionRequest struct {
	UserID string `json:"userId" validate:"required"`
}

// CheckSubscriptionResponse reports whether the user currently has access.
// Subscription is omitted when HasSubscription is false.
type CheckSubscriptionResponse struct {
	HasSubscription bool                `json:"hasSubscription"`
	Subscription    *model.Subscription `json:"subscription,omitempty"`
}

type CreateCheckoutSessionRequest struct {
	UserID  string `json:"userId" validate:"required"`
	PriceID string `json:"priceId,omitempty"`
}

type CreateCheckoutSessionResponse struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

type CreatePortalSessionRequest struct {
	UserID string `json:"userId" validate:"required"`
}

type CreatePortalSessionResponse struct {
	URL string `json:"url"`
}

// WebhookResponse acknowledges a Stripe delivery.
type WebhookResponse struct {
	Received bool `json:"received"`
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error string `json:"error"`
}
