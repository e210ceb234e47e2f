package repository

import (
	"context"
	"errors"
	"fmt"

	"garagepro/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// InvoiceRepository stores immutable invoice documents.
type InvoiceRepository interface {
	NextInvoiceSequence(ctx context.Context) (int64, error)
	// CreateInvoice inserts inv unless an invoice for the same provider
	// invoice already exists. It reports whether this call wrote the row.
	CreateInvoice(ctx context.Context, inv *model.Invoice) (bool, error)
	GetInvoice(ctx context.Context, id string) (*model.Invoice, error)
	GetInvoiceByProviderID(ctx context.Context, providerInvoiceID string) (*model.Invoice, error)
}

type invoiceRepo struct {
	pool *pgxpool.Pool
}

// NewInvoiceRepo creates a new InvoiceRepository.
func NewInvoiceRepo(pool *pgxpool.Pool) InvoiceRepository {
	return &invoiceRepo{pool: pool}
}

const invoiceColumns = `id::text, user_id, invoice_number, provider_invoice_id, provider_customer_id,
       amount_ht::float8, vat_rate::float8, amount_tva::float8, amount_ttc::float8,
       currency, html, status, created_at, paid_at`

func scanInvoice(row pgx.Row) (*model.Invoice, error) {
	var inv model.Invoice
	err := row.Scan(
		&inv.ID,
		&inv.UserID,
		&inv.InvoiceNumber,
		&inv.ProviderInvoiceID,
		&inv.ProviderCustomerID,
		&inv.AmountHT,
		&inv.VATRate,
		&inv.AmountTVA,
		&inv.AmountTTC,
		&inv.Currency,
		&inv.HTML,
		&inv.Status,
		&inv.CreatedAt,
		&inv.PaidAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &inv, nil
}

func (r *invoiceRepo) NextInvoiceSequence(ctx context.Context) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT nextval('invoice_number_seq')`).Scan(&n); err != nil {
		return 0, fmt.Errorf("allocate invoice number: %w", err)
	}
	return n, nil
}

func (r *invoiceRepo) CreateInvoice(ctx context.Context, inv *model.Invoice) (bool, error) {
	const q = `
        INSERT INTO invoices (id, user_id, invoice_number, provider_invoice_id, provider_customer_id,
                              amount_ht, vat_rate, amount_tva, amount_ttc, currency, html, status, created_at, paid_at)
        VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
        ON CONFLICT (provider_invoice_id) DO NOTHING
    `
	tag, err := r.pool.Exec(ctx, q,
		inv.ID,
		inv.UserID,
		inv.InvoiceNumber,
		inv.ProviderInvoiceID,
		inv.ProviderCustomerID,
		inv.AmountHT,
		inv.VATRate,
		inv.AmountTVA,
		inv.AmountTTC,
		inv.Currency,
		inv.HTML,
		inv.Status,
		inv.CreatedAt,
		inv.PaidAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert invoice %s: %w", inv.InvoiceNumber, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *invoiceRepo) GetInvoice(ctx context.Context, id string) (*model.Invoice, error) {
	inv, err := scanInvoice(r.pool.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1::uuid`, id))
	if err != nil {
		return nil, fmt.Errorf("fetch invoice %s: %w", id, err)
	}
	return inv, nil
}

func (r *invoiceRepo) GetInvoiceByProviderID(ctx context.Context, providerInvoiceID string) (*model.Invoice, error) {
	inv, err := scanInvoice(r.pool.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE provider_invoice_id = $1`, providerInvoiceID))
	if err != nil {
		return nil, fmt.Errorf("fetch invoice for provider invoice %s: %w", providerInvoiceID, err)
	}
	return inv, nil
}
