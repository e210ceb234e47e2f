package model

import "time"

// BillingEventType names a change published to downstream consumers.
type BillingEventType string

const (
	EventSubscriptionReconciled    BillingEventType = "subscription.reconciled"
	EventSubscriptionStatusChanged BillingEventType = "subscription.status_changed"
	EventInvoiceCreated            BillingEventType = "invoice.created"
)

// BillingEvent is the Pub/Sub message body for billing changes.
type BillingEvent struct {
	Type           BillingEventType   `json:"type"`
	UserID         string             `json:"userId"`
	SubscriptionID string             `json:"subscriptionId,omitempty"`
	Status         SubscriptionStatus `json:"status,omitempty"`
	InvoiceID      string             `json:"invoiceId,omitempty"`
	InvoiceNumber  string             `json:"invoiceNumber,omitempty"`
	OccurredAt     time.Time          `json:"occurredAt"`
}
