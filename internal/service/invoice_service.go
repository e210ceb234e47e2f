package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"garagepro/internal/billing"
	"garagepro/internal/config"
	"garagepro/internal/email"
	"garagepro/internal/invoice"
	"garagepro/internal/metrics"
	"garagepro/internal/model"
	"garagepro/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// InvoiceArchiver keeps an external copy of rendered invoices.
type InvoiceArchiver interface {
	PutInvoice(ctx context.Context, userID, invoiceNumber, html string) (string, error)
}

// InvoiceService issues invoices for successful subscription payments.
type InvoiceService interface {
	// GenerateForPayment creates the invoice for a paid provider invoice at
	// most once. Archiving and the notification email are best-effort and
	// never make it fail once the invoice is stored.
	GenerateForPayment(ctx context.Context, userID string, paid *billing.Invoice) (*model.Invoice, error)
	GetInvoice(ctx context.Context, id string) (*model.Invoice, error)
}

type invoiceService struct {
	cfg         *config.Config
	invoiceRepo repository.InvoiceRepository
	garageRepo  repository.GarageRepository
	sender      email.Sender
	archive     InvoiceArchiver
	events      BillingEventPublisher
	logger      zerolog.Logger
	now         func() time.Time
}

// NewInvoiceService creates an InvoiceService. archive and events may be nil.
func NewInvoiceService(
	cfg *config.Config,
	invoiceRepo repository.InvoiceRepository,
	garageRepo repository.GarageRepository,
	sender email.Sender,
	archive InvoiceArchiver,
	events BillingEventPublisher,
	logger zerolog.Logger,
) InvoiceService {
	return &invoiceService{
		cfg:         cfg,
		invoiceRepo: invoiceRepo,
		garageRepo:  garageRepo,
		sender:      sender,
		archive:     archive,
		events:      events,
		logger:      logger.With().Str("service", "InvoiceService").Logger(),
		now:         time.Now,
	}
}

type recipient struct {
	name  string
	email string
}

func (s *invoiceService) GenerateForPayment(ctx context.Context, userID string, paid *billing.Invoice) (*model.Invoice, error) {
	if userID == "" || paid == nil || paid.ID == "" {
		return nil, validationError("user id and provider invoice id are required")
	}

	existing, err := s.invoiceRepo.GetInvoiceByProviderID(ctx, paid.ID)
	if err != nil {
		return nil, persistenceError(err)
	}
	if existing != nil {
		s.logger.Info().Str("invoice_id", existing.ID).Str("provider_invoice_id", paid.ID).Msg("Invoice already generated for payment")
		return existing, nil
	}

	to, err := s.recipientFor(ctx, userID, paid)
	if err != nil {
		return nil, err
	}

	issued := s.now().UTC()
	paidAt := issued
	if paid.PaidAt > 0 {
		paidAt = time.Unix(paid.PaidAt, 0).UTC()
	}
	seq, err := s.invoiceRepo.NextInvoiceSequence(ctx)
	if err != nil {
		return nil, persistenceError(err)
	}
	number := invoice.FormatNumber(issued, seq)
	amounts := invoice.CalculateAmounts(s.cfg.PlanPriceHT, s.cfg.VATRate)

	html, err := invoice.Render(invoice.Document{
		Number:        number,
		IssuedAt:      issued,
		PaidAt:        paidAt,
		SellerName:    s.cfg.SellerName,
		SellerAddress: s.cfg.SellerAddress,
		SellerVATID:   s.cfg.SellerVATID,
		CustomerName:  to.name,
		CustomerEmail: to.email,
		Description:   fmt.Sprintf("Abonnement %s %s", s.cfg.SellerName, s.cfg.PaidPlan),
		Currency:      s.cfg.Currency,
		Amounts:       amounts,
	})
	if err != nil {
		return nil, err
	}

	record := &model.Invoice{
		ID:                 uuid.NewString(),
		UserID:             userID,
		InvoiceNumber:      number,
		ProviderInvoiceID:  paid.ID,
		ProviderCustomerID: paid.CustomerID,
		AmountHT:           amounts.HT,
		VATRate:            amounts.VATRate,
		AmountTVA:          amounts.TVA,
		AmountTTC:          amounts.TTC,
		Currency:           strings.ToUpper(s.cfg.Currency),
		HTML:               html,
		Status:             model.InvoiceStatusPaid,
		CreatedAt:          issued,
		PaidAt:             paidAt,
	}
	created, err := s.invoiceRepo.CreateInvoice(ctx, record)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Str("provider_invoice_id", paid.ID).Msg("Failed to store invoice")
		return nil, persistenceError(err)
	}
	if !created {
		// A concurrent delivery of the same payment stored it first and
		// owns the notification.
		s.logger.Info().Str("provider_invoice_id", paid.ID).Msg("Invoice stored by a concurrent delivery")
		winner, err := s.invoiceRepo.GetInvoiceByProviderID(ctx, paid.ID)
		if err != nil {
			return nil, persistenceError(err)
		}
		return winner, nil
	}

	metrics.InvoicesGeneratedTotal.Inc()
	s.logger.Info().Str("user_id", userID).Str("invoice_id", record.ID).Str("invoice_number", number).Msg("Invoice generated")

	s.archiveInvoice(ctx, record)
	s.notify(ctx, record, to)
	if s.events != nil {
		if _, err := s.events.PublishBillingEvent(ctx, model.BillingEvent{
			Type:          model.EventInvoiceCreated,
			UserID:        userID,
			InvoiceID:     record.ID,
			InvoiceNumber: number,
			OccurredAt:    issued,
		}); err != nil {
			metrics.SideEffectFailuresTotal.WithLabelValues("publish").Inc()
			s.logger.Warn().Err(err).Str("invoice_id", record.ID).Msg("Failed to publish invoice event")
		}
	}
	return record, nil
}

// recipientFor prefers the garage profile and falls back to the customer
// details on the provider invoice.
func (s *invoiceService) recipientFor(ctx context.Context, userID string, paid *billing.Invoice) (recipient, error) {
	to := recipient{name: paid.CustomerName, email: paid.CustomerEmail}
	g, err := s.garageRepo.GetGarageByUserID(ctx, userID)
	if err != nil {
		return to, persistenceError(err)
	}
	if g != nil {
		if g.Name != "" {
			to.name = g.Name
		}
		if g.Email != "" {
			to.email = g.Email
		}
	}
	if to.name == "" {
		to.name = to.email
	}
	return to, nil
}

func (s *invoiceService) archiveInvoice(ctx context.Context, inv *model.Invoice) {
	if s.archive == nil {
		return
	}
	key, err := s.archive.PutInvoice(ctx, inv.UserID, inv.InvoiceNumber, inv.HTML)
	if err != nil {
		metrics.SideEffectFailuresTotal.WithLabelValues("archive").Inc()
		s.logger.Warn().Err(err).Str("invoice_id", inv.ID).Msg("Failed to archive invoice")
		return
	}
	s.logger.Debug().Str("invoice_id", inv.ID).Str("key", key).Msg("Invoice archived")
}

func (s *invoiceService) notify(ctx context.Context, inv *model.Invoice, to recipient) {
	if to.email == "" {
		s.logger.Warn().Str("invoice_id", inv.ID).Msg("No recipient email for invoice notification")
		return
	}
	subject, html, text, err := email.RenderInvoiceReadyEmail(email.InvoiceReadyData{
		GarageName:    to.name,
		InvoiceNumber: inv.InvoiceNumber,
		AmountTTC:     invoice.FormatMoney(inv.AmountTTC, inv.Currency),
		InvoiceURL:    s.cfg.PublicBaseURL + "/invoices/" + inv.ID,
	})
	if err != nil {
		metrics.SideEffectFailuresTotal.WithLabelValues("email").Inc()
		s.logger.Warn().Err(err).Str("invoice_id", inv.ID).Msg("Failed to render invoice email")
		return
	}
	messageID, err := s.sender.Send(ctx, email.Message{
		From:    s.cfg.EmailFrom,
		To:      to.email,
		Subject: subject,
		HTML:    html,
		Text:    text,
	})
	if err != nil {
		metrics.SideEffectFailuresTotal.WithLabelValues("email").Inc()
		s.logger.Warn().Err(err).Str("invoice_id", inv.ID).Str("to", to.email).Msg("Failed to send invoice email")
		return
	}
	s.logger.Info().Str("invoice_id", inv.ID).Str("message_id", messageID).Msg("Invoice email sent")
}

func (s *invoiceService) GetInvoice(ctx context.Context, id string) (*model.Invoice, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, errors.Join(ErrNotFound, fmt.Errorf("invalid invoice id %q", id))
	}
	inv, err := s.invoiceRepo.GetInvoice(ctx, id)
	if err != nil {
		return nil, persistenceError(err)
	}
	if inv == nil {
		return nil, errors.Join(ErrNotFound, fmt.Errorf("invoice %s", id))
	}
	return inv, nil
}
