package model

import "time"

const InvoiceStatusPaid = "paid"

// Invoice is written once per successful subscription payment and never
// modified afterwards.
type Invoice struct {
	ID                 string    `db:"id" json:"id"`
	UserID             string    `db:"user_id" json:"userId"`
	InvoiceNumber      string    `db:"invoice_number" json:"invoiceNumber"`
	ProviderInvoiceID  string    `db:"provider_invoice_id" json:"providerInvoiceId"`
	ProviderCustomerID string    `db:"provider_customer_id" json:"providerCustomerId"`
	AmountHT           float64   `db:"amount_ht" json:"amountHT"`
	VATRate            float64   `db:"vat_rate" json:"vatRate"`
	AmountTVA          float64   `db:"amount_tva" json:"amountTVA"`
	AmountTTC          float64   `db:"amount_ttc" json:"amountTTC"`
	Currency           string    `db:"currency" json:"currency"`
	HTML               string    `db:"html" json:"-"`
	Status             string    `db:"status" json:"status"`
	CreatedAt          time.Time `db:"created_at" json:"createdAt"`
	PaidAt             time.Time `db:"paid_at" json:"paidAt"`
}
