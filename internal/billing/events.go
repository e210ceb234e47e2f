package billing

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Webhook event types the reconciler acts on.
const (
	EventCheckoutSessionCompleted = "checkout.session.completed"
	EventSubscriptionCreated      = "customer.subscription.created"
	EventSubscriptionUpdated      = "customer.subscription.updated"
	EventSubscriptionDeleted      = "customer.subscription.deleted"
	EventInvoicePaymentSucceeded  = "invoice.payment_succeeded"
	EventInvoicePaymentFailed     = "invoice.payment_failed"
)

// expandableID accepts either a bare object id or an expanded object with an
// "id" field.
type expandableID string

func (e *expandableID) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*e = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*e = expandableID(s)
		return nil
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	*e = expandableID(obj.ID)
	return nil
}

type checkoutSessionPayload struct {
	ID                string            `json:"id"`
	Mode              string            `json:"mode"`
	Status            string            `json:"status"`
	PaymentStatus     string            `json:"payment_status"`
	Customer          expandableID      `json:"customer"`
	Subscription      expandableID      `json:"subscription"`
	ClientReferenceID string            `json:"client_reference_id"`
	Metadata          map[string]string `json:"metadata"`
}

// DecodeCheckoutSession reads a checkout.session.* event object.
func DecodeCheckoutSession(raw json.RawMessage) (*CheckoutSession, error) {
	var p checkoutSessionPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode checkout session: %w", err)
	}
	if p.ID == "" {
		return nil, fmt.Errorf("decode checkout session: missing id")
	}
	return &CheckoutSession{
		ID:                p.ID,
		Status:            p.Status,
		PaymentStatus:     p.PaymentStatus,
		CustomerID:        string(p.Customer),
		SubscriptionID:    string(p.Subscription),
		ClientReferenceID: p.ClientReferenceID,
		Metadata:          p.Metadata,
	}, nil
}

type subscriptionPayload struct {
	ID                 string            `json:"id"`
	Customer           expandableID      `json:"customer"`
	Status             string            `json:"status"`
	CancelAtPeriodEnd  bool              `json:"cancel_at_period_end"`
	CurrentPeriodStart int64             `json:"current_period_start"`
	CurrentPeriodEnd   int64             `json:"current_period_end"`
	Metadata           map[string]string `json:"metadata"`
	Items              struct {
		Data []struct {
			Price struct {
				ID string `json:"id"`
			} `json:"price"`
			CurrentPeriodStart int64 `json:"current_period_start"`
			CurrentPeriodEnd   int64 `json:"current_period_end"`
		} `json:"data"`
	} `json:"items"`
}

// DecodeSubscription reads a customer.subscription.* event object. Period
// bounds come from the first item, falling back to the top-level fields sent
// by API versions before 2025-03-31.
func DecodeSubscription(raw json.RawMessage) (*SubscriptionSnapshot, error) {
	var p subscriptionPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode subscription: %w", err)
	}
	if p.ID == "" {
		return nil, fmt.Errorf("decode subscription: missing id")
	}
	snap := &SubscriptionSnapshot{
		ID:                 p.ID,
		CustomerID:         string(p.Customer),
		Status:             p.Status,
		CancelAtPeriodEnd:  p.CancelAtPeriodEnd,
		Metadata:           p.Metadata,
		CurrentPeriodStart: unixTime(p.CurrentPeriodStart),
		CurrentPeriodEnd:   unixTime(p.CurrentPeriodEnd),
	}
	if len(p.Items.Data) > 0 {
		item := p.Items.Data[0]
		snap.PriceID = item.Price.ID
		if item.CurrentPeriodStart != 0 {
			snap.CurrentPeriodStart = unixTime(item.CurrentPeriodStart)
		}
		if item.CurrentPeriodEnd != 0 {
			snap.CurrentPeriodEnd = unixTime(item.CurrentPeriodEnd)
		}
	}
	return snap, nil
}

// Invoice is the part of a provider invoice needed to bill a garage.
type Invoice struct {
	ID             string
	Number         string
	CustomerID     string
	CustomerEmail  string
	CustomerName   string
	SubscriptionID string
	AmountPaid     int64
	Currency       string
	PaidAt         int64
	Metadata       map[string]string
}

type subscriptionDetails struct {
	Subscription expandableID      `json:"subscription"`
	Metadata     map[string]string `json:"metadata"`
}

type invoicePayload struct {
	ID            string            `json:"id"`
	Number        string            `json:"number"`
	Customer      expandableID      `json:"customer"`
	CustomerEmail string            `json:"customer_email"`
	CustomerName  string            `json:"customer_name"`
	Subscription  expandableID      `json:"subscription"`
	AmountPaid    int64             `json:"amount_paid"`
	Currency      string            `json:"currency"`
	Created       int64             `json:"created"`
	Metadata      map[string]string `json:"metadata"`
	Parent        *struct {
		SubscriptionDetails *subscriptionDetails `json:"subscription_details"`
	} `json:"parent"`
	StatusTransitions struct {
		PaidAt int64 `json:"paid_at"`
	} `json:"status_transitions"`
	Lines struct {
		Data []struct {
			Subscription expandableID `json:"subscription"`
			Parent       *struct {
				SubscriptionItemDetails *struct {
					Subscription expandableID `json:"subscription"`
				} `json:"subscription_item_details"`
			} `json:"parent"`
		} `json:"data"`
	} `json:"lines"`
}

// DecodeInvoice reads an invoice.* event object. The owning subscription is
// looked up in the legacy top-level field, then the invoice parent, then the
// line items. Metadata set on the subscription is merged under the invoice's
// own metadata so identity stamped at checkout is visible here too.
func DecodeInvoice(raw json.RawMessage) (*Invoice, error) {
	var p invoicePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode invoice: %w", err)
	}
	if p.ID == "" {
		return nil, fmt.Errorf("decode invoice: missing id")
	}

	inv := &Invoice{
		ID:             p.ID,
		Number:         p.Number,
		CustomerID:     string(p.Customer),
		CustomerEmail:  p.CustomerEmail,
		CustomerName:   p.CustomerName,
		SubscriptionID: string(p.Subscription),
		AmountPaid:     p.AmountPaid,
		Currency:       p.Currency,
		PaidAt:         p.StatusTransitions.PaidAt,
		Metadata:       map[string]string{},
	}
	if inv.PaidAt == 0 {
		inv.PaidAt = p.Created
	}

	if p.Parent != nil && p.Parent.SubscriptionDetails != nil {
		details := p.Parent.SubscriptionDetails
		if inv.SubscriptionID == "" {
			inv.SubscriptionID = string(details.Subscription)
		}
		for k, v := range details.Metadata {
			inv.Metadata[k] = v
		}
	}
	for k, v := range p.Metadata {
		inv.Metadata[k] = v
	}

	for _, line := range p.Lines.Data {
		if inv.SubscriptionID != "" {
			break
		}
		if line.Subscription != "" {
			inv.SubscriptionID = string(line.Subscription)
		} else if line.Parent != nil && line.Parent.SubscriptionItemDetails != nil {
			inv.SubscriptionID = string(line.Parent.SubscriptionItemDetails.Subscription)
		}
	}
	return inv, nil
}

// UserIDFromMetadata returns the user id stamped on a provider object, if any.
func UserIDFromMetadata(metadata map[string]string) string {
	if id := metadata["userId"]; id != "" {
		return id
	}
	return metadata["user_id"]
}
