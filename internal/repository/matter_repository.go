package repository

import (
	"context"
	stderrors "errors"

	"github.com/jackc/pgx/v5"

	"github.com/praxishq/be-pm-approvals/internal/database"
	"github.com/praxishq/be-pm-approvals/internal/errors"
)

// MatterRepository reads matters. The engine only needs existence checks
// under the firm scope; matter CRUD lives in a sibling service.
type MatterRepository struct {
	db *database.DB
}

// NewMatterRepository creates a new MatterRepository.
func NewMatterRepository(db *database.DB) *MatterRepository {
	return &MatterRepository{db: db}
}

// Exists reports whether the matter exists under the firm scope.
func (r *MatterRepository) Exists(ctx context.Context, q database.Querier, firmID, matterID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM matters WHERE id = $1 AND firm_id = $2)`

	var exists bool
	if err := q.QueryRow(ctx, query, matterID, firmID).Scan(&exists); err != nil {
		return false, errors.Wrap(err, errors.ErrCodeInternal, "failed to check matter existence")
	}
	return exists, nil
}

// Get retrieves a matter under the firm scope.
func (r *MatterRepository) Get(ctx context.Context, q database.Querier, firmID, matterID string) (*Matter, error) {
	query := `
		SELECT id, firm_id, title, status, created_at, updated_at
		FROM matters
		WHERE id = $1 AND firm_id = $2
	`

	m := &Matter{}
	err := q.QueryRow(ctx, query, matterID, firmID).Scan(
		&m.ID, &m.FirmID, &m.Title, &m.Status, &m.CreatedAt, &m.UpdatedAt,
	)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, errors.NotFound("Matter", matterID)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get matter")
	}
	return m, nil
}
