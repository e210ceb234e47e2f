package billing

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"garagepro/internal/model"
)

func TestDecodeSubscriptionPrefersItemPeriods(t *testing.T) {
	raw := json.RawMessage(`{
		"id": "sub_1",
		"customer": "cus_1",
		"status": "active",
		"cancel_at_period_end": true,
		"current_period_start": 100,
		"current_period_end": 200,
		"metadata": {"userId": "user_1"},
		"items": {"data": [{"price": {"id": "price_pro"}, "current_period_start": 1700000000, "current_period_end": 1702592000}]}
	}`)

	snap, err := DecodeSubscription(raw)
	require.NoError(t, err)
	assert.Equal(t, "sub_1", snap.ID)
	assert.Equal(t, "cus_1", snap.CustomerID)
	assert.Equal(t, "price_pro", snap.PriceID)
	assert.True(t, snap.CancelAtPeriodEnd)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), snap.CurrentPeriodStart)
	assert.Equal(t, time.Unix(1702592000, 0).UTC(), snap.CurrentPeriodEnd)
	assert.Equal(t, "user_1", UserIDFromMetadata(snap.Metadata))
}

func TestDecodeSubscriptionLegacyPeriodsAndExpandedCustomer(t *testing.T) {
	raw := json.RawMessage(`{"id":"sub_2","customer":{"id":"cus_2","object":"customer"},"status":"trialing","current_period_start":100,"current_period_end":200,"items":{"data":[]}}`)

	snap, err := DecodeSubscription(raw)
	require.NoError(t, err)
	assert.Equal(t, "cus_2", snap.CustomerID)
	assert.Equal(t, time.Unix(100, 0).UTC(), snap.CurrentPeriodStart)
	assert.Equal(t, time.Unix(200, 0).UTC(), snap.CurrentPeriodEnd)
}

func TestDecodeSubscriptionRequiresID(t *testing.T) {
	_, err := DecodeSubscription(json.RawMessage(`{"status":"active"}`))
	assert.Error(t, err)

	_, err = DecodeSubscription(json.RawMessage(`not json`))
	assert.Error(t, err)
}

func TestDecodeInvoiceSubscriptionSources(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		subID  string
		userID string
	}{
		{
			name:  "legacy top-level field",
			raw:   `{"id":"in_1","subscription":"sub_legacy","customer":"cus_1"}`,
			subID: "sub_legacy",
		},
		{
			name:   "parent subscription details",
			raw:    `{"id":"in_2","customer":"cus_1","parent":{"subscription_details":{"subscription":"sub_parent","metadata":{"userId":"user_9"}}}}`,
			subID:  "sub_parent",
			userID: "user_9",
		},
		{
			name:  "line item",
			raw:   `{"id":"in_3","customer":"cus_1","lines":{"data":[{"subscription":null},{"subscription":"sub_line"}]}}`,
			subID: "sub_line",
		},
		{
			name:  "line item parent",
			raw:   `{"id":"in_4","customer":"cus_1","lines":{"data":[{"parent":{"subscription_item_details":{"subscription":"sub_item"}}}]}}`,
			subID: "sub_item",
		},
		{
			name: "one-off invoice",
			raw:  `{"id":"in_5","customer":"cus_1","lines":{"data":[{}]}}`,
		},
		{
			name:   "invoice metadata wins",
			raw:    `{"id":"in_6","metadata":{"user_id":"user_inv"},"parent":{"subscription_details":{"subscription":"sub_6","metadata":{"user_id":"user_sub"}}}}`,
			subID:  "sub_6",
			userID: "user_inv",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv, err := DecodeInvoice(json.RawMessage(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.subID, inv.SubscriptionID)
			assert.Equal(t, tt.userID, UserIDFromMetadata(inv.Metadata))
		})
	}
}

func TestDecodeInvoicePaidAtFallsBackToCreated(t *testing.T) {
	inv, err := DecodeInvoice(json.RawMessage(`{"id":"in_1","created":1700000000,"amount_paid":7199,"currency":"eur"}`))
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000), inv.PaidAt)
	assert.Equal(t, int64(7199), inv.AmountPaid)

	inv, err = DecodeInvoice(json.RawMessage(`{"id":"in_1","created":1,"status_transitions":{"paid_at":5}}`))
	require.NoError(t, err)
	assert.Equal(t, int64(5), inv.PaidAt)
}

func TestDecodeCheckoutSession(t *testing.T) {
	sess, err := DecodeCheckoutSession(json.RawMessage(`{"id":"cs_1","mode":"subscription","status":"complete","payment_status":"paid","customer":"cus_1","subscription":"sub_1","client_reference_id":"user_1","metadata":{}}`))
	require.NoError(t, err)
	assert.Equal(t, "sub_1", sess.SubscriptionID)
	assert.Equal(t, "cus_1", sess.CustomerID)
	assert.Equal(t, "user_1", sess.ClientReferenceID)
	assert.True(t, sess.Paid())
}

func TestCheckoutSessionPaid(t *testing.T) {
	assert.True(t, (&CheckoutSession{PaymentStatus: "paid", Status: "open"}).Paid())
	assert.True(t, (&CheckoutSession{PaymentStatus: "no_payment_required", Status: "complete"}).Paid())
	assert.False(t, (&CheckoutSession{PaymentStatus: "unpaid", Status: "open"}).Paid())
}

func TestNormalizeStatus(t *testing.T) {
	tests := map[string]model.SubscriptionStatus{
		"active":             model.StatusActive,
		"trialing":           model.StatusTrialing,
		"past_due":           model.StatusPastDue,
		"unpaid":             model.StatusPastDue,
		"canceled":           model.StatusCanceled,
		"incomplete_expired": model.StatusCanceled,
		"incomplete":         model.StatusIncomplete,
		"paused":             model.StatusIncomplete,
		"":                   model.StatusIncomplete,
	}
	for raw, want := range tests {
		assert.Equal(t, want, NormalizeStatus(raw), raw)
	}
}
