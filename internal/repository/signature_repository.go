package repository

import (
	"context"
	stderrors "errors"

	"github.com/jackc/pgx/v5"

	"github.com/praxishq/be-pm-approvals/internal/database"
	"github.com/praxishq/be-pm-approvals/internal/errors"
)

// SignatureRequestRepository handles signature request reads and the send
// transition. Actual delivery to the signing provider happens via the outbox.
type SignatureRequestRepository struct {
	db *database.DB
}

// NewSignatureRequestRepository creates a new SignatureRequestRepository.
func NewSignatureRequestRepository(db *database.DB) *SignatureRequestRepository {
	return &SignatureRequestRepository{db: db}
}

// Get retrieves a signature request under the firm scope.
func (r *SignatureRequestRepository) Get(ctx context.Context, q database.Querier, firmID, id string) (*SignatureRequest, error) {
	query := `
		SELECT id, firm_id, matter_id, document_name, recipient_email, status,
		       sent_at, created_at, updated_at
		FROM signature_requests
		WHERE id = $1 AND firm_id = $2
	`

	sr := &SignatureRequest{}
	err := q.QueryRow(ctx, query, id, firmID).Scan(
		&sr.ID,
		&sr.FirmID,
		&sr.MatterID,
		&sr.DocumentName,
		&sr.RecipientEmail,
		&sr.Status,
		&sr.SentAt,
		&sr.CreatedAt,
		&sr.UpdatedAt,
	)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, errors.NotFound("Signature request", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get signature request")
	}
	return sr, nil
}

// MarkSent transitions a signature request pending_approval -> sent.
func (r *SignatureRequestRepository) MarkSent(ctx context.Context, q database.Querier, firmID, id string) error {
	query := `
		UPDATE signature_requests
		SET status     = 'sent',
		    sent_at    = NOW(),
		    updated_at = NOW()
		WHERE id = $1 AND firm_id = $2 AND status = 'pending_approval'
		RETURNING id
	`

	var returnedID string
	err := q.QueryRow(ctx, query, id, firmID).Scan(&returnedID)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return errors.New(errors.ErrCodeConflict, "Only signature requests pending approval can be sent")
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to mark signature request sent")
	}
	return nil
}
