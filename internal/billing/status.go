package billing

import "garagepro/internal/model"

// NormalizeStatus maps a provider subscription status onto the local status
// set. Anything unrecognised becomes incomplete so it never grants access.
func NormalizeStatus(raw string) model.SubscriptionStatus {
	switch raw {
	case "active":
		return model.StatusActive
	case "trialing":
		return model.StatusTrialing
	case "past_due", "unpaid":
		return model.StatusPastDue
	case "canceled", "incomplete_expired":
		return model.StatusCanceled
	default:
		return model.StatusIncomplete
	}
}
