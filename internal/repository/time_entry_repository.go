package repository

import (
	"context"
	stderrors "errors"

	"github.com/jackc/pgx/v5"

	"github.com/praxishq/be-pm-approvals/internal/database"
	"github.com/praxishq/be-pm-approvals/internal/errors"
)

// TimeEntryRepository handles time entry reads and the approve transition.
type TimeEntryRepository struct {
	db *database.DB
}

// NewTimeEntryRepository creates a new TimeEntryRepository.
func NewTimeEntryRepository(db *database.DB) *TimeEntryRepository {
	return &TimeEntryRepository{db: db}
}

// Get retrieves a time entry under the firm scope.
func (r *TimeEntryRepository) Get(ctx context.Context, q database.Querier, firmID, id string) (*TimeEntry, error) {
	query := `
		SELECT id, firm_id, matter_id, description, minutes, status,
		       approved_by, approved_at, created_at, updated_at
		FROM time_entries
		WHERE id = $1 AND firm_id = $2
	`

	te := &TimeEntry{}
	err := q.QueryRow(ctx, query, id, firmID).Scan(
		&te.ID,
		&te.FirmID,
		&te.MatterID,
		&te.Description,
		&te.Minutes,
		&te.Status,
		&te.ApprovedBy,
		&te.ApprovedAt,
		&te.CreatedAt,
		&te.UpdatedAt,
	)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, errors.NotFound("Time entry", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get time entry")
	}
	return te, nil
}

// Approve transitions a time entry submitted -> approved.
func (r *TimeEntryRepository) Approve(ctx context.Context, q database.Querier, firmID, id, approvedBy string) error {
	query := `
		UPDATE time_entries
		SET status      = 'approved',
		    approved_by = $3,
		    approved_at = NOW(),
		    updated_at  = NOW()
		WHERE id = $1 AND firm_id = $2 AND status = 'submitted'
		RETURNING id
	`

	var returnedID string
	err := q.QueryRow(ctx, query, id, firmID, approvedBy).Scan(&returnedID)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return errors.New(errors.ErrCodeConflict, "Only submitted time entries can be approved")
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to approve time entry")
	}
	return nil
}
