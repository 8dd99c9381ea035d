package repository

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/praxishq/be-pm-approvals/internal/database"
	"github.com/praxishq/be-pm-approvals/internal/errors"
)

const approvalColumns = `id, firm_id, source_type, source_id, action, summary,
	       proposed_payload, entity_type, entity_id,
	       status, execution_status, execution_error,
	       decided_by, decision_reason, ai_metadata,
	       created_at, updated_at`

// ApprovalRepository manages approval request rows.
type ApprovalRepository struct {
	db *database.DB
}

// NewApprovalRepository creates a new ApprovalRepository.
func NewApprovalRepository(db *database.DB) *ApprovalRepository {
	return &ApprovalRepository{db: db}
}

// Create inserts a new pending approval request. A partial unique index keeps
// at most one pending approval per (firm, action, entity); violations map to
// a conflict error.
func (r *ApprovalRepository) Create(ctx context.Context, a *ApprovalRequest) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.Status = ApprovalStatusPending
	a.ExecutionStatus = ExecutionNotExecuted

	query := `
		INSERT INTO approval_requests
		    (id, firm_id, source_type, source_id, action, summary,
		     proposed_payload, entity_type, entity_id,
		     status, execution_status, ai_metadata)
		VALUES ($1, $2, $3, $4, $5, $6,
		        $7, $8, $9,
		        $10, $11, $12)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		a.ID,
		a.FirmID,
		a.SourceType,
		a.SourceID,
		a.Action,
		a.Summary,
		a.Payload,
		a.EntityType,
		a.EntityID,
		a.Status,
		a.ExecutionStatus,
		a.AIMetadata,
	).Scan(&a.CreatedAt, &a.UpdatedAt)

	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) && pgErr.Code == "23505" {
		return errors.New(errors.ErrCodeConflict,
			fmt.Sprintf("a pending approval already exists for %s on this entity", a.Action))
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to create approval request")
	}
	return nil
}

// GetByID retrieves an approval request under the firm scope.
func (r *ApprovalRepository) GetByID(ctx context.Context, firmID, id string) (*ApprovalRequest, error) {
	query := `
		SELECT ` + approvalColumns + `
		FROM approval_requests
		WHERE id = $1 AND firm_id = $2
	`

	a, err := scanApproval(r.db.QueryRow(ctx, query, id, firmID))
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, errors.NotFound("Approval request", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get approval request")
	}
	return a, nil
}

// GetForUpdate loads an approval request with a row lock, inside the caller's
// transaction. The lock is what keeps two concurrent decisions on the same
// approval from both executing.
func (r *ApprovalRepository) GetForUpdate(ctx context.Context, q database.Querier, firmID, id string) (*ApprovalRequest, error) {
	query := `
		SELECT ` + approvalColumns + `
		FROM approval_requests
		WHERE id = $1 AND firm_id = $2
		FOR UPDATE
	`

	a, err := scanApproval(q.QueryRow(ctx, query, id, firmID))
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, errors.NotFound("Approval request", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to lock approval request")
	}
	return a, nil
}

// List returns a firm's approval requests, newest first, optionally filtered
// by status.
func (r *ApprovalRepository) List(ctx context.Context, firmID string, status *string, limit, offset int) ([]*ApprovalRequest, int64, error) {
	query := `
		SELECT ` + approvalColumns + `
		FROM approval_requests
		WHERE firm_id = $1
	`
	countQuery := `SELECT COUNT(*) FROM approval_requests WHERE firm_id = $1`

	args := []any{firmID}
	if status != nil {
		query += ` AND status = $2`
		countQuery += ` AND status = $2`
		args = append(args, *status)
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)

	var total int64
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeInternal, "failed to count approval requests")
	}

	rows, err := r.db.Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeInternal, "failed to list approval requests")
	}
	defer rows.Close()

	approvals := make([]*ApprovalRequest, 0)
	for rows.Next() {
		a, err := scanApproval(rows)
		if err != nil {
			return nil, 0, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan approval request")
		}
		approvals = append(approvals, a)
	}
	return approvals, total, nil
}

// FinalizeParams is the terminal state written by Finalize.
type FinalizeParams struct {
	FirmID          string
	ID              string
	Status          string
	ExecutionStatus string
	ExecutionError  *string
	DecidedBy       string
	DecisionReason  *string
}

// Finalize writes the terminal (status, execution_status) pair inside the
// caller's transaction. The WHERE status = 'pending' guard makes the
// transition single-shot even without the row lock.
func (r *ApprovalRepository) Finalize(ctx context.Context, q database.Querier, p FinalizeParams) error {
	query := `
		UPDATE approval_requests
		SET status           = $3,
		    execution_status = $4,
		    execution_error  = $5,
		    decided_by       = $6,
		    decision_reason  = $7,
		    updated_at       = NOW()
		WHERE id = $1 AND firm_id = $2 AND status = 'pending'
		RETURNING id
	`

	var returnedID string
	err := q.QueryRow(ctx, query,
		p.ID, p.FirmID, p.Status, p.ExecutionStatus, p.ExecutionError, p.DecidedBy, p.DecisionReason,
	).Scan(&returnedID)

	if stderrors.Is(err, pgx.ErrNoRows) {
		return errors.New(errors.ErrCodeConflict, "approval request is no longer pending")
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to finalize approval request")
	}
	return nil
}

// ── scan helper ───────────────────────────────────────────────────────────────

type approvalScanner interface {
	Scan(dest ...any) error
}

func scanApproval(row approvalScanner) (*ApprovalRequest, error) {
	a := &ApprovalRequest{}
	err := row.Scan(
		&a.ID,
		&a.FirmID,
		&a.SourceType,
		&a.SourceID,
		&a.Action,
		&a.Summary,
		&a.Payload,
		&a.EntityType,
		&a.EntityID,
		&a.Status,
		&a.ExecutionStatus,
		&a.ExecutionError,
		&a.DecidedBy,
		&a.DecisionReason,
		&a.AIMetadata,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}
