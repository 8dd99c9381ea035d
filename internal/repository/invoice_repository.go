package repository

import (
	"context"
	stderrors "errors"

	"github.com/jackc/pgx/v5"

	"github.com/praxishq/be-pm-approvals/internal/database"
	"github.com/praxishq/be-pm-approvals/internal/errors"
)

// InvoiceRepository handles invoice reads and status transitions.
type InvoiceRepository struct {
	db *database.DB
}

// NewInvoiceRepository creates a new InvoiceRepository.
func NewInvoiceRepository(db *database.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

// Get retrieves an invoice under the firm scope. A cross-firm id resolves to
// not found, never to another firm's row.
func (r *InvoiceRepository) Get(ctx context.Context, q database.Querier, firmID, id string) (*Invoice, error) {
	query := `
		SELECT id, firm_id, matter_id, invoice_number, status, total_amount,
		       sent_at, created_at, updated_at
		FROM invoices
		WHERE id = $1 AND firm_id = $2
	`

	inv := &Invoice{}
	err := q.QueryRow(ctx, query, id, firmID).Scan(
		&inv.ID,
		&inv.FirmID,
		&inv.MatterID,
		&inv.InvoiceNumber,
		&inv.Status,
		&inv.TotalAmount,
		&inv.SentAt,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, errors.NotFound("Invoice", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get invoice")
	}
	return inv, nil
}

// MarkSent transitions an invoice draft -> sent and stamps sent_at.
func (r *InvoiceRepository) MarkSent(ctx context.Context, q database.Querier, firmID, id string) error {
	query := `
		UPDATE invoices
		SET status     = 'sent',
		    sent_at    = NOW(),
		    updated_at = NOW()
		WHERE id = $1 AND firm_id = $2 AND status = 'draft'
		RETURNING id
	`

	var returnedID string
	err := q.QueryRow(ctx, query, id, firmID).Scan(&returnedID)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return errors.New(errors.ErrCodeConflict, "Only draft invoices can be sent")
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to mark invoice sent")
	}
	return nil
}
