package repository

import (
	"context"
	stderrors "errors"

	"github.com/jackc/pgx/v5"

	"github.com/praxishq/be-pm-approvals/internal/database"
	"github.com/praxishq/be-pm-approvals/internal/errors"
)

// ConflictCheckRepository handles conflict check reads and terminal
// resolution.
type ConflictCheckRepository struct {
	db *database.DB
}

// NewConflictCheckRepository creates a new ConflictCheckRepository.
func NewConflictCheckRepository(db *database.DB) *ConflictCheckRepository {
	return &ConflictCheckRepository{db: db}
}

// Get retrieves a conflict check under the firm scope.
func (r *ConflictCheckRepository) Get(ctx context.Context, q database.Querier, firmID, id string) (*ConflictCheck, error) {
	query := `
		SELECT id, firm_id, matter_id, subject, status,
		       resolution_note, resolved_by, resolved_at,
		       created_at, updated_at
		FROM conflict_checks
		WHERE id = $1 AND firm_id = $2
	`

	cc := &ConflictCheck{}
	err := q.QueryRow(ctx, query, id, firmID).Scan(
		&cc.ID,
		&cc.FirmID,
		&cc.MatterID,
		&cc.Subject,
		&cc.Status,
		&cc.ResolutionNote,
		&cc.ResolvedBy,
		&cc.ResolvedAt,
		&cc.CreatedAt,
		&cc.UpdatedAt,
	)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, errors.NotFound("Conflict check", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get conflict check")
	}
	return cc, nil
}

// Resolve transitions a pending conflict check to a terminal resolution
// (cleared or waived). Duplicate resolution attempts hit the status guard.
func (r *ConflictCheckRepository) Resolve(ctx context.Context, q database.Querier, firmID, id, resolution string, note *string, resolvedBy string) error {
	query := `
		UPDATE conflict_checks
		SET status          = $3,
		    resolution_note = $4,
		    resolved_by     = $5,
		    resolved_at     = NOW(),
		    updated_at      = NOW()
		WHERE id = $1 AND firm_id = $2 AND status = 'pending'
		RETURNING id
	`

	var returnedID string
	err := q.QueryRow(ctx, query, id, firmID, resolution, note, resolvedBy).Scan(&returnedID)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return errors.New(errors.ErrCodeConflict, "Conflict check is already resolved")
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to resolve conflict check")
	}
	return nil
}
