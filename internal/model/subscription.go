package model

import "time"

// SubscriptionStatus is the local lifecycle state of a subscription.
type SubscriptionStatus string

const (
	StatusActive     SubscriptionStatus = "active"
	StatusTrialing   SubscriptionStatus = "trialing"
	StatusPastDue    SubscriptionStatus = "past_due"
	StatusCanceled   SubscriptionStatus = "canceled"
	StatusIncomplete SubscriptionStatus = "incomplete"
)

// EntitlingStatuses are the statuses that grant access to paid features.
var EntitlingStatuses = []SubscriptionStatus{StatusActive, StatusTrialing, StatusPastDue}

// Entitling reports whether s grants access to paid features.
func (s SubscriptionStatus) Entitling() bool {
	switch s {
	case StatusActive, StatusTrialing, StatusPastDue:
		return true
	}
	return false
}

// Subscription is the local mirror of one Stripe subscription, keyed by
// (UserID, BillingSubscriptionID).
type Subscription struct {
	UserID                string             `db:"user_id" json:"userId"`
	BillingCustomerID     string             `db:"billing_customer_id" json:"billingCustomerId"`
	BillingSubscriptionID string             `db:"billing_subscription_id" json:"billingSubscriptionId"`
	PriceID               string             `db:"price_id" json:"priceId"`
	Status                SubscriptionStatus `db:"status" json:"status"`
	CurrentPeriodStart    time.Time          `db:"current_period_start" json:"currentPeriodStart"`
	CurrentPeriodEnd      time.Time          `db:"current_period_end" json:"currentPeriodEnd"`
	CancelAtPeriodEnd     bool               `db:"cancel_at_period_end" json:"cancelAtPeriodEnd"`
	CreatedAt             time.Time          `db:"created_at" json:"createdAt"`
	UpdatedAt             time.Time          `db:"updated_at" json:"updatedAt"`
}
