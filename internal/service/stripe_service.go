package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"garagepro/internal/billing"
	"garagepro/internal/config"
	"garagepro/internal/metrics"
	"garagepro/internal/model"
	"garagepro/internal/repository"

	"github.com/rs/zerolog"
)

// BillingEventPublisher fans billing changes out to other services.
type BillingEventPublisher interface {
	PublishBillingEvent(ctx context.Context, evt model.BillingEvent) (string, error)
}

// VerifyResult is returned to the client after a successful checkout.
type VerifyResult struct {
	Success        bool                     `json:"success"`
	Plan           string                   `json:"plan"`
	SubscriptionID string                   `json:"subscriptionId"`
	Status         model.SubscriptionStatus `json:"status"`
}

// CheckoutResult identifies a hosted checkout page.
type CheckoutResult struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

// StripeService keeps local subscription records in line with Stripe. Both
// the webhook path and the client verification path end in Reconcile, whose
// single-statement upsert makes the two safe to race.
type StripeService struct {
	cfg        *config.Config
	provider   billing.Provider
	garageRepo repository.GarageRepository
	subRepo    repository.SubscriptionRepository
	invoiceSvc InvoiceService
	events     BillingEventPublisher
	logger     zerolog.Logger
	now        func() time.Time
}

// NewStripeService wires the reconciler. events may be nil.
func NewStripeService(
	cfg *config.Config,
	provider billing.Provider,
	garageRepo repository.GarageRepository,
	subRepo repository.SubscriptionRepository,
	invoiceSvc InvoiceService,
	events BillingEventPublisher,
	logger zerolog.Logger,
) *StripeService {
	return &StripeService{
		cfg:        cfg,
		provider:   provider,
		garageRepo: garageRepo,
		subRepo:    subRepo,
		invoiceSvc: invoiceSvc,
		events:     events,
		logger:     logger.With().Str("service", "StripeService").Logger(),
		now:        time.Now,
	}
}

// Reconcile writes snap as the local record for (userID, snap.ID). Every
// mutable field is overwritten, so repeating a call with the same snapshot
// leaves the record unchanged apart from updated_at.
func (s *StripeService) Reconcile(ctx context.Context, userID, customerID string, snap *billing.SubscriptionSnapshot) (*model.Subscription, error) {
	if userID == "" {
		return nil, ErrMissingIdentity
	}
	if snap == nil || snap.ID == "" {
		return nil, validationError("subscription snapshot has no id")
	}
	if customerID == "" {
		customerID = snap.CustomerID
	}

	sub := &model.Subscription{
		UserID:                userID,
		BillingCustomerID:     customerID,
		BillingSubscriptionID: snap.ID,
		PriceID:               snap.PriceID,
		Status:                billing.NormalizeStatus(snap.Status),
		CurrentPeriodStart:    snap.CurrentPeriodStart,
		CurrentPeriodEnd:      snap.CurrentPeriodEnd,
		CancelAtPeriodEnd:     snap.CancelAtPeriodEnd,
		UpdatedAt:             s.now().UTC(),
	}
	created, err := s.subRepo.UpsertSubscription(ctx, sub)
	if err != nil {
		metrics.ReconcileTotal.WithLabelValues("error").Inc()
		s.logger.Error().Err(err).Str("user_id", userID).Str("subscription_id", snap.ID).Msg("Failed to upsert subscription")
		return nil, persistenceError(err)
	}

	outcome := "updated"
	if created {
		outcome = "created"
	}
	metrics.ReconcileTotal.WithLabelValues(outcome).Inc()
	s.logger.Info().
		Str("user_id", userID).
		Str("subscription_id", sub.BillingSubscriptionID).
		Str("status", string(sub.Status)).
		Str("outcome", outcome).
		Msg("Subscription reconciled")

	s.publish(ctx, model.BillingEvent{
		Type:           model.EventSubscriptionReconciled,
		UserID:         userID,
		SubscriptionID: sub.BillingSubscriptionID,
		Status:         sub.Status,
		OccurredAt:     sub.UpdatedAt,
	})
	return sub, nil
}

// ProcessWebhook verifies a raw Stripe delivery and applies it. It returns the
// event type for logging and metrics even when applying the event fails.
func (s *StripeService) ProcessWebhook(ctx context.Context, payload []byte, signature string) (string, error) {
	evt, err := s.provider.ConstructEvent(payload, signature)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Signature verification failed for Stripe webhook")
		return "", errors.Join(ErrSignature, err)
	}
	s.logger.Info().Str("event_id", evt.ID).Str("event_type", evt.Type).Msg("Stripe webhook received")
	s.logger.Debug().Str("event_type", evt.Type).RawJSON("payload", evt.Data).Msg("Webhook payload received")

	return evt.Type, s.ApplyLifecycleEvent(ctx, evt.Type, evt.Data)
}

// ApplyLifecycleEvent dispatches one provider event. Events whose owner cannot
// be determined are logged and acknowledged without any write, so the
// provider does not redeliver them forever.
func (s *StripeService) ApplyLifecycleEvent(ctx context.Context, eventType string, payload json.RawMessage) error {
	var err error
	switch eventType {
	case billing.EventCheckoutSessionCompleted:
		err = s.handleCheckoutCompleted(ctx, payload)
	case billing.EventSubscriptionCreated, billing.EventSubscriptionUpdated:
		err = s.handleSubscriptionChanged(ctx, payload)
	case billing.EventSubscriptionDeleted:
		err = s.handleSubscriptionDeleted(ctx, payload)
	case billing.EventInvoicePaymentSucceeded:
		err = s.handleInvoicePaid(ctx, payload)
	case billing.EventInvoicePaymentFailed:
		err = s.handleInvoiceFailed(ctx, payload)
	default:
		s.logger.Info().Str("event_type", eventType).Msg("Unhandled Stripe webhook event")
		return nil
	}

	if errors.Is(err, ErrMissingIdentity) {
		metrics.DroppedEventsTotal.WithLabelValues(eventType, "missing_identity").Inc()
		s.logger.Warn().Str("event_type", eventType).Msg("Dropping Stripe event: no user could be resolved")
		return nil
	}
	return err
}

func (s *StripeService) handleCheckoutCompleted(ctx context.Context, payload json.RawMessage) error {
	sess, err := billing.DecodeCheckoutSession(payload)
	if err != nil {
		return validationError("%v", err)
	}
	if sess.SubscriptionID == "" {
		s.logger.Info().Str("session_id", sess.ID).Msg("Checkout session has no subscription, skipping")
		return nil
	}

	metadata := sess.Metadata
	if billing.UserIDFromMetadata(metadata) == "" && sess.ClientReferenceID != "" {
		metadata = map[string]string{"userId": sess.ClientReferenceID}
	}
	userID, err := s.resolveUserID(ctx, metadata, sess.CustomerID, sess.SubscriptionID)
	if err != nil {
		return err
	}

	snap, err := s.provider.RetrieveSubscription(ctx, sess.SubscriptionID)
	if err != nil {
		s.logger.Error().Err(err).Str("subscription_id", sess.SubscriptionID).Msg("Failed to fetch subscription details")
		return providerError(err)
	}
	_, err = s.Reconcile(ctx, userID, sess.CustomerID, snap)
	return err
}

func (s *StripeService) handleSubscriptionChanged(ctx context.Context, payload json.RawMessage) error {
	snap, err := billing.DecodeSubscription(payload)
	if err != nil {
		return validationError("%v", err)
	}
	userID, err := s.resolveUserID(ctx, snap.Metadata, snap.CustomerID, snap.ID)
	if err != nil {
		return err
	}
	_, err = s.Reconcile(ctx, userID, snap.CustomerID, snap)
	return err
}

func (s *StripeService) handleSubscriptionDeleted(ctx context.Context, payload json.RawMessage) error {
	snap, err := billing.DecodeSubscription(payload)
	if err != nil {
		return validationError("%v", err)
	}
	userID, err := s.resolveUserID(ctx, snap.Metadata, snap.CustomerID, snap.ID)
	if err != nil {
		return err
	}
	_, err = s.setStatus(ctx, userID, snap.ID, model.StatusCanceled)
	return err
}

func (s *StripeService) handleInvoicePaid(ctx context.Context, payload json.RawMessage) error {
	inv, err := billing.DecodeInvoice(payload)
	if err != nil {
		return validationError("%v", err)
	}
	if inv.SubscriptionID == "" {
		s.logger.Info().Str("invoice_id", inv.ID).Msg("Invoice has no subscription, skipping subscription update")
		return nil
	}
	userID, err := s.resolveUserID(ctx, inv.Metadata, inv.CustomerID, inv.SubscriptionID)
	if err != nil {
		return err
	}

	found, err := s.setStatus(ctx, userID, inv.SubscriptionID, model.StatusActive)
	if err != nil {
		return err
	}
	if !found {
		// The payment arrived before any subscription event for this
		// subscription; build the record from the provider instead.
		snap, err := s.provider.RetrieveSubscription(ctx, inv.SubscriptionID)
		if err != nil {
			s.logger.Error().Err(err).Str("subscription_id", inv.SubscriptionID).Msg("Failed to fetch subscription for paid invoice")
			return providerError(err)
		}
		if _, err := s.Reconcile(ctx, userID, inv.CustomerID, snap); err != nil {
			return err
		}
	}

	if _, err := s.invoiceSvc.GenerateForPayment(ctx, userID, inv); err != nil {
		metrics.SideEffectFailuresTotal.WithLabelValues("invoice").Inc()
		s.logger.Warn().Err(err).Str("user_id", userID).Str("invoice_id", inv.ID).Msg("Invoice generation failed after payment; subscription already updated")
	}
	return nil
}

func (s *StripeService) handleInvoiceFailed(ctx context.Context, payload json.RawMessage) error {
	inv, err := billing.DecodeInvoice(payload)
	if err != nil {
		return validationError("%v", err)
	}
	if inv.SubscriptionID == "" {
		s.logger.Info().Str("invoice_id", inv.ID).Msg("Invoice has no subscription, skipping subscription update")
		return nil
	}
	userID, err := s.resolveUserID(ctx, inv.Metadata, inv.CustomerID, inv.SubscriptionID)
	if err != nil {
		return err
	}
	_, err = s.setStatus(ctx, userID, inv.SubscriptionID, model.StatusPastDue)
	return err
}

// setStatus changes only the status of an existing record. A missing record
// is logged and reported as found=false, not as an error.
func (s *StripeService) setStatus(ctx context.Context, userID, subscriptionID string, status model.SubscriptionStatus) (bool, error) {
	at := s.now().UTC()
	found, err := s.subRepo.UpdateStatus(ctx, userID, subscriptionID, status, at)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Str("subscription_id", subscriptionID).Str("status", string(status)).Msg("Failed to update subscription status")
		return false, persistenceError(err)
	}
	if !found {
		s.logger.Warn().Str("user_id", userID).Str("subscription_id", subscriptionID).Str("status", string(status)).Msg("No local subscription record to update")
		return false, nil
	}
	s.logger.Info().Str("user_id", userID).Str("subscription_id", subscriptionID).Str("status", string(status)).Msg("Subscription status updated")
	s.publish(ctx, model.BillingEvent{
		Type:           model.EventSubscriptionStatusChanged,
		UserID:         userID,
		SubscriptionID: subscriptionID,
		Status:         status,
		OccurredAt:     at,
	})
	return true, nil
}

// resolveUserID determines which user an event belongs to. Metadata stamped
// at checkout wins; otherwise the owner of the local subscription record, then
// the garage mapped to the Stripe customer. A disagreement between metadata
// and local state is logged but metadata is still used.
func (s *StripeService) resolveUserID(ctx context.Context, metadata map[string]string, customerID, subscriptionID string) (string, error) {
	fromMetadata := billing.UserIDFromMetadata(metadata)
	fromStore, err := s.lookupLocalOwner(ctx, customerID, subscriptionID)
	if err != nil {
		if fromMetadata == "" {
			return "", err
		}
		s.logger.Warn().Err(err).Str("user_id", fromMetadata).Msg("Local owner lookup failed; using metadata user id")
	}

	switch {
	case fromMetadata != "" && fromStore != "" && fromMetadata != fromStore:
		s.logger.Warn().
			Str("metadata_user_id", fromMetadata).
			Str("local_user_id", fromStore).
			Str("stripe_customer_id", customerID).
			Str("subscription_id", subscriptionID).
			Msg("Event metadata disagrees with local customer mapping")
		return fromMetadata, nil
	case fromMetadata != "":
		return fromMetadata, nil
	case fromStore != "":
		s.logger.Debug().Str("user_id", fromStore).Str("stripe_customer_id", customerID).Msg("Resolved user from local records")
		return fromStore, nil
	}
	return "", ErrMissingIdentity
}

func (s *StripeService) lookupLocalOwner(ctx context.Context, customerID, subscriptionID string) (string, error) {
	if subscriptionID != "" {
		sub, err := s.subRepo.GetSubscriptionByBillingID(ctx, subscriptionID)
		if err != nil {
			return "", persistenceError(err)
		}
		if sub != nil {
			return sub.UserID, nil
		}
	}
	if customerID != "" {
		g, err := s.garageRepo.GetGarageByStripeCustomerID(ctx, customerID)
		if err != nil {
			return "", persistenceError(err)
		}
		if g != nil {
			return g.UserID, nil
		}
	}
	return "", nil
}

// VerifySession confirms a checkout right after the customer is redirected
// back, without waiting for the webhook.
func (s *StripeService) VerifySession(ctx context.Context, sessionID, userID string) (*VerifyResult, error) {
	if sessionID == "" || userID == "" {
		return nil, validationError("sessionId and userId are required")
	}

	sess, err := s.provider.RetrieveCheckoutSession(ctx, sessionID)
	if err != nil {
		s.logger.Error().Err(err).Str("session_id", sessionID).Msg("Failed to retrieve checkout session")
		return nil, providerError(err)
	}
	if !sess.Paid() {
		s.logger.Info().Str("session_id", sessionID).Str("payment_status", sess.PaymentStatus).Str("status", sess.Status).Msg("Checkout session not paid yet")
		return nil, ErrPaymentNotComplete
	}
	if owner := billing.UserIDFromMetadata(sess.Metadata); owner != "" && owner != userID {
		s.logger.Warn().Str("session_id", sessionID).Str("user_id", userID).Str("owner_id", owner).Msg("Checkout session belongs to another user")
		return nil, ErrForbidden
	}
	if sess.SubscriptionID == "" {
		return nil, errors.Join(ErrNotFound, errors.New("checkout session has no subscription"))
	}

	snap, err := s.provider.RetrieveSubscription(ctx, sess.SubscriptionID)
	if err != nil {
		s.logger.Error().Err(err).Str("subscription_id", sess.SubscriptionID).Msg("Failed to fetch subscription details")
		return nil, providerError(err)
	}

	ok, err := s.garageRepo.UpdatePlan(ctx, userID, s.cfg.PaidPlan)
	if err != nil {
		return nil, persistenceError(err)
	}
	if !ok {
		return nil, errors.Join(ErrNotFound, errors.New("garage not found"))
	}

	sub, err := s.Reconcile(ctx, userID, sess.CustomerID, snap)
	if err != nil {
		return nil, err
	}
	return &VerifyResult{
		Success:        true,
		Plan:           s.cfg.PaidPlan,
		SubscriptionID: sub.BillingSubscriptionID,
		Status:         sub.Status,
	}, nil
}

// GetOrCreateCustomer returns the garage's Stripe customer, reusing one that
// already exists for the garage email before creating a new one.
func (s *StripeService) GetOrCreateCustomer(ctx context.Context, g *model.Garage) (string, error) {
	if id := g.CustomerID(); id != "" {
		return id, nil
	}

	existing, err := s.provider.ListCustomers(ctx, g.Email)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", g.UserID).Msg("Failed to list Stripe customers")
		return "", providerError(err)
	}

	var customerID string
	if len(existing) > 0 {
		customerID = existing[0].ID
		s.logger.Info().Str("user_id", g.UserID).Str("stripe_customer_id", customerID).Msg("Reusing existing Stripe customer")
	} else {
		c, err := s.provider.CreateCustomer(ctx, g.Email, map[string]string{"userId": g.UserID})
		if err != nil {
			s.logger.Error().Err(err).Str("user_id", g.UserID).Msg("Failed to create Stripe customer")
			return "", providerError(err)
		}
		customerID = c.ID
	}

	if err := s.garageRepo.UpdateStripeCustomerID(ctx, g.UserID, customerID); err != nil {
		s.logger.Error().Err(err).Str("user_id", g.UserID).Msg("Failed to store Stripe customer id")
		return "", persistenceError(err)
	}
	return customerID, nil
}

// CreateCheckoutSession starts a subscription checkout. The user id is stamped
// on the session and on the subscription it creates so later events carry it.
func (s *StripeService) CreateCheckoutSession(ctx context.Context, userID, priceID string) (*CheckoutResult, error) {
	if userID == "" {
		return nil, validationError("userId is required")
	}
	if priceID == "" {
		priceID = s.cfg.StripePriceID
	}
	if priceID == "" {
		return nil, validationError("priceId is required")
	}

	g, err := s.garageRepo.GetGarageByUserID(ctx, userID)
	if err != nil {
		return nil, persistenceError(err)
	}
	if g == nil {
		return nil, errors.Join(ErrNotFound, errors.New("garage not found"))
	}
	customerID, err := s.GetOrCreateCustomer(ctx, g)
	if err != nil {
		return nil, err
	}

	sess, err := s.provider.CreateCheckoutSession(ctx, billing.CheckoutParams{
		CustomerID:        customerID,
		PriceID:           priceID,
		SuccessURL:        withQuery(s.cfg.StripeSuccessURL, "session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:         s.cfg.StripeCancelURL,
		ClientReferenceID: userID,
		Metadata:          map[string]string{"userId": userID},
	})
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Str("price_id", priceID).Msg("Failed to create Stripe checkout session")
		return nil, providerError(err)
	}
	return &CheckoutResult{SessionID: sess.ID, URL: sess.URL}, nil
}

// CreatePortalSession opens the Stripe customer portal for the user.
func (s *StripeService) CreatePortalSession(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", validationError("userId is required")
	}
	g, err := s.garageRepo.GetGarageByUserID(ctx, userID)
	if err != nil {
		return "", persistenceError(err)
	}
	customerID := g.CustomerID()
	if customerID == "" {
		latest, err := s.subRepo.GetLatestSubscription(ctx, userID)
		if err != nil {
			return "", persistenceError(err)
		}
		if latest != nil {
			customerID = latest.BillingCustomerID
		}
	}
	if customerID == "" {
		return "", errors.Join(ErrNotFound, errors.New("no stripe customer for user"))
	}

	url, err := s.provider.CreateBillingPortalSession(ctx, customerID, s.cfg.StripePortalReturnURL)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to create Stripe billing portal session")
		return "", providerError(err)
	}
	return url, nil
}

func (s *StripeService) publish(ctx context.Context, evt model.BillingEvent) {
	if s.events == nil {
		return
	}
	if _, err := s.events.PublishBillingEvent(ctx, evt); err != nil {
		metrics.SideEffectFailuresTotal.WithLabelValues("publish").Inc()
		s.logger.Warn().Err(err).Str("event_type", string(evt.Type)).Str("user_id", evt.UserID).Msg("Failed to publish billing event")
	}
}

func withQuery(rawURL, query string) string {
	if rawURL == "" {
		return ""
	}
	if strings.Contains(rawURL, "?") {
		return rawURL + "&" + query
	}
	return rawURL + "?" + query
}
