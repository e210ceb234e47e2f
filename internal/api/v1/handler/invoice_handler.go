package handler

import (
	"errors"
	"net/http"

	"garagepro/internal/service"

	"github.com/rs/zerolog"
)

// InvoiceHandler serves rendered invoice documents.
type InvoiceHandler struct {
	invoiceSvc service.InvoiceService
	logger     zerolog.Logger
}

// NewInvoiceHandler creates a new InvoiceHandler.
func NewInvoiceHandler(invoiceSvc service.InvoiceService, logger zerolog.Logger) *InvoiceHandler {
	return &InvoiceHandler{invoiceSvc: invoiceSvc, logger: logger.With().Str("handler", "InvoiceHandler").Logger()}
}

// RegisterRoutes mounts the public invoice page. Invoice ids are random
// UUIDs so the link in the notification email needs no session.
func (h *InvoiceHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /invoices/{id}", h.GetInvoice)
}

// GetInvoice godoc
// @Summary Show a rendered invoice
// @Tags invoices
// @Produce html
// @Param id path string true "Invoice ID"
// @Success 200 {string} string "invoice HTML"
// @Failure 404 {string} string "invoice not found"
// @Router /invoices/{id} [get]
func (h *InvoiceHandler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := h.invoiceSvc.GetInvoice(r.Context(), r.PathValue("id"))
	if errors.Is(err, service.ErrNotFound) {
		http.Error(w, "invoice not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Str("invoice_id", r.PathValue("id")).Msg("Failed to load invoice")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(inv.HTML)); err != nil {
		h.logger.Warn().Err(err).Msg("Failed to write invoice response")
	}
}
