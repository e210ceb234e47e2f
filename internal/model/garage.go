package model

import "time"

// PlanFree is the plan every garage starts on.
const PlanFree = "free"

// Garage is the account that owns a subscription. UserID is the identity
// provider subject of the garage owner.
type Garage struct {
	UserID           string    `db:"user_id" json:"userId"`
	Name             string    `db:"name" json:"name"`
	Email            string    `db:"email" json:"email"`
	Address          string    `db:"address" json:"address,omitempty"`
	Plan             string    `db:"plan" json:"plan"`
	StripeCustomerID *string   `db:"stripe_customer_id" json:"stripeCustomerId,omitempty"`
	CreatedAt        time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time `db:"updated_at" json:"updatedAt"`
}

// CustomerID returns the stored Stripe customer id or "".
func (g *Garage) CustomerID() string {
	if g == nil || g.StripeCustomerID == nil {
		return ""
	}
	return *g.StripeCustomerID
}
