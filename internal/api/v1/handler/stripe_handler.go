package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"garagepro/internal/api/v1/dto"
	"garagepro/internal/metrics"
	"garagepro/internal/middleware"
	"garagepro/internal/model"
	"garagepro/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// maxWebhookBodyBytes caps the size of a Stripe delivery.
const maxWebhookBodyBytes = 1 << 20

// StripeBilling is the part of service.StripeService used over HTTP.
type StripeBilling interface {
	ProcessWebhook(ctx context.Context, payload []byte, signature string) (string, error)
	VerifySession(ctx context.Context, sessionID, userID string) (*service.VerifyResult, error)
	CreateCheckoutSession(ctx context.Context, userID, priceID string) (*service.CheckoutResult, error)
	CreatePortalSession(ctx context.Context, userID string) (string, error)
}

// StripeHandler handles the Stripe webhook and the subscription endpoints
// called by the web client.
type StripeHandler struct {
	stripeSvc StripeBilling
	subSvc    service.SubscriptionService
	validate  *validator.Validate
	logger    zerolog.Logger
}

// NewStripeHandler creates a new StripeHandler.
func NewStripeHandler(stripeSvc StripeBilling, subSvc service.SubscriptionService, v *validator.Validate, logger zerolog.Logger) *StripeHandler {
	return &StripeHandler{
		stripeSvc: stripeSvc,
		subSvc:    subSvc,
		validate:  v,
		logger:    logger.With().Str("handler", "StripeHandler").Logger(),
	}
}

// RegisterRoutes registers the Stripe endpoints. The webhook is
// authenticated by its signature, everything else by the bearer token.
func (h *StripeHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler) {
	mux.HandleFunc("POST /stripe/webhook", h.Webhook)
	mux.Handle("POST /stripe/verify-session", authMiddleware(http.HandlerFunc(h.VerifySession)))
	mux.Handle("POST /stripe/check-subscription", authMiddleware(http.HandlerFunc(h.CheckSubscription)))
	mux.Handle("POST /stripe/create-checkout-session", authMiddleware(http.HandlerFunc(h.CreateCheckoutSession)))
	mux.Handle("POST /stripe/create-portal-session", authMiddleware(http.HandlerFunc(h.CreatePortalSession)))
}

// Webhook godoc
// @Summary Receive Stripe webhook events
// @Description Verifies the Stripe-Signature header and applies subscription lifecycle events.
// @Tags stripe
// @Accept json
// @Produce json
// @Param Stripe-Signature header string true "Stripe webhook signature"
// @Success 200 {object} dto.WebhookResponse
// @Failure 400 {object} dto.ErrorResponse "invalid signature or payload"
// @Failure 500 {object} dto.ErrorResponse "processing failed, Stripe will retry"
// @Router /stripe/webhook [post]
func (h *StripeHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	eventType := "unknown"
	status := http.StatusOK
	defer func() {
		metrics.WebhookRequestsTotal.WithLabelValues(eventType, strconv.Itoa(status)).Inc()
		metrics.WebhookDuration.WithLabelValues(eventType).Observe(time.Since(start).Seconds())
	}()

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes))
	if err != nil {
		h.logger.Warn().Err(err).Msg("Failed to read webhook body")
		status = http.StatusBadRequest
		writeError(w, status, "failed to read request body")
		return
	}

	processed, err := h.stripeSvc.ProcessWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature"))
	if processed != "" {
		eventType = processed
	}
	if err != nil {
		status = statusFor(err)
		h.logger.Error().Err(err).Str("event_type", eventType).Int("status", status).Msg("Failed to process Stripe webhook")
		writeError(w, status, messageFor(err, status))
		return
	}
	writeJSON(w, http.StatusOK, dto.WebhookResponse{Received: true})
}

// VerifySession godoc
// @Summary Verify a completed checkout
// @Description Confirms a paid checkout session and records the subscription without waiting for the webhook.
// @Tags stripe
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.VerifySessionRequest true "Checkout session to verify"
// @Success 200 {object} dto.VerifySessionResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /stripe/verify-session [post]
func (h *StripeHandler) VerifySession(w http.ResponseWriter, r *http.Request) {
	var req dto.VerifySessionRequest
	if !h.decode(w, r, &req) || !h.authorize(w, r, req.UserID) {
		return
	}
	res, err := h.stripeSvc.VerifySession(r.Context(), req.SessionID, req.UserID)
	if err != nil {
		h.fail(w, err, "Failed to verify checkout session")
		return
	}
	writeJSON(w, http.StatusOK, dto.VerifySessionResponse{
		Success:        res.Success,
		Plan:           res.Plan,
		SubscriptionID: res.SubscriptionID,
		Status:         res.Status,
	})
}

// CheckSubscription godoc
// @Summary Check whether the user has an active subscription
// @Tags stripe
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CheckSubscriptionRequest true "User to check"
// @Success 200 {object} dto.CheckSubscriptionResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /stripe/check-subscription [post]
func (h *StripeHandler) CheckSubscription(w http.ResponseWriter, r *http.Request) {
	var req dto.CheckSubscriptionRequest
	if !h.decode(w, r, &req) || !h.authorize(w, r, req.UserID) {
		return
	}
	sub, err := h.subSvc.CheckSubscription(r.Context(), req.UserID)
	if err != nil {
		h.fail(w, err, "Failed to check subscription")
		return
	}
	writeJSON(w, http.StatusOK, checkSubscriptionResponse(sub))
}

func checkSubscriptionResponse(sub *model.Subscription) dto.CheckSubscriptionResponse {
	if sub == nil {
		return dto.CheckSubscriptionResponse{HasSubscription: false}
	}
	return dto.CheckSubscriptionResponse{HasSubscription: true, Subscription: sub}
}

// CreateCheckoutSession godoc
// @Summary Initiate a Stripe Checkout session
// @Description Creates a subscription checkout for the user's garage and returns its URL.
// @Tags stripe
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateCheckoutSessionRequest true "Checkout request"
// @Success 200 {object} dto.CreateCheckoutSessionResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /stripe/create-checkout-session [post]
func (h *StripeHandler) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateCheckoutSessionRequest
	if !h.decode(w, r, &req) || !h.authorize(w, r, req.UserID) {
		return
	}
	res, err := h.stripeSvc.CreateCheckoutSession(r.Context(), req.UserID, req.PriceID)
	if err != nil {
		h.fail(w, err, "Failed to create checkout session")
		return
	}
	writeJSON(w, http.StatusOK, dto.CreateCheckoutSessionResponse{SessionID: res.SessionID, URL: res.URL})
}

// CreatePortalSession godoc
// @Summary Create a Stripe Customer Portal session
// @Tags stripe
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreatePortalSessionRequest true "Portal request"
// @Success 200 {object} dto.CreatePortalSessionResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /stripe/create-portal-session [post]
func (h *StripeHandler) CreatePortalSession(w http.ResponseWriter, r *http.Request) {
	var req dto.CreatePortalSessionRequest
	if !h.decode(w, r, &req) || !h.authorize(w, r, req.UserID) {
		return
	}
	url, err := h.stripeSvc.CreatePortalSession(r.Context(), req.UserID)
	if err != nil {
		h.fail(w, err, "Failed to create portal session")
		return
	}
	writeJSON(w, http.StatusOK, dto.CreatePortalSessionResponse{URL: url})
}

func (h *StripeHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request payload")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "validation failed: "+err.Error())
		return false
	}
	return true
}

// authorize rejects requests acting on behalf of another user.
func (h *StripeHandler) authorize(w http.ResponseWriter, r *http.Request, userID string) bool {
	subject, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return false
	}
	if subject != userID {
		h.logger.Warn().Str("token_subject", subject).Str("user_id", userID).Str("path", r.URL.Path).Msg("User id does not match token")
		writeError(w, http.StatusForbidden, "forbidden")
		return false
	}
	return true
}

func (h *StripeHandler) fail(w http.ResponseWriter, err error, msg string) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error().Err(err).Msg(msg)
	} else {
		h.logger.Warn().Err(err).Int("status", status).Msg(msg)
	}
	writeError(w, status, messageFor(err, status))
}

// statusFor maps service error kinds to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrSignature),
		errors.Is(err, service.ErrPaymentNotComplete):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// messageFor hides internal details behind 5xx responses. Provider errors
// keep their text so clients can see what Stripe rejected.
func messageFor(err error, status int) string {
	if status >= http.StatusInternalServerError && !errors.Is(err, service.ErrProvider) {
		return "internal server error"
	}
	return err.Error()
}
