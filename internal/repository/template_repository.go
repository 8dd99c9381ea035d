package repository

import (
	"context"
	stderrors "errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/praxishq/be-pm-approvals/internal/database"
	"github.com/praxishq/be-pm-approvals/internal/errors"
)

// TemplateRepository manages the copy-on-write template version chain.
// Rows are immutable; an update inserts a successor version and deactivates
// the prior one, so "current" is the unique active row per chain.
type TemplateRepository struct {
	db *database.DB
}

// NewTemplateRepository creates a new TemplateRepository.
func NewTemplateRepository(db *database.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

const templateColumns = `id, firm_id, root_id, parent_id, version, name, type, content,
	       is_active, created_at`

// GetCurrent resolves id (a version id or a chain root id) to the chain's
// active version. Reads are firm-scoped but also see system templates
// (firm_id IS NULL).
func (r *TemplateRepository) GetCurrent(ctx context.Context, q database.Querier, firmID, id string) (*Template, error) {
	query := `
		SELECT ` + templateColumns + `
		FROM templates
		WHERE is_active
		  AND (firm_id = $2 OR firm_id IS NULL)
		  AND root_id = (
		      SELECT root_id FROM templates
		      WHERE (id = $1 OR root_id = $1)
		        AND (firm_id = $2 OR firm_id IS NULL)
		      LIMIT 1
		  )
	`

	t, err := scanTemplate(q.QueryRow(ctx, query, id, firmID))
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, errors.NotFound("Template", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get template")
	}
	return t, nil
}

// CreateVersion inserts the first version of a new chain (version 1, active,
// root_id = its own id).
func (r *TemplateRepository) CreateVersion(ctx context.Context, q database.Querier, firmID string, draft TemplateDraft) (*Template, error) {
	t := &Template{
		ID:       uuid.NewString(),
		FirmID:   &firmID,
		Version:  1,
		Name:     draft.Name,
		Type:     draft.Type,
		Content:  draft.Content,
		IsActive: true,
	}
	t.RootID = t.ID

	query := `
		INSERT INTO templates (id, firm_id, root_id, parent_id, version, name, type, content, is_active)
		VALUES ($1, $2, $3, NULL, $4, $5, $6, $7, TRUE)
		RETURNING created_at
	`

	err := q.QueryRow(ctx, query, t.ID, t.FirmID, t.RootID, t.Version, t.Name, t.Type, t.Content).
		Scan(&t.CreatedAt)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to create template")
	}
	return t, nil
}

// CreateSuccessor inserts the next version of prior's chain and deactivates
// prior. Both statements run on the caller's transaction; the partial unique
// index on (root_id) WHERE is_active rejects concurrent successors. The
// deactivate is firm-filtered, so system rows (firm_id IS NULL) can never be
// deactivated here: callers fork those with CreateVersion instead.
func (r *TemplateRepository) CreateSuccessor(ctx context.Context, q database.Querier, firmID string, prior *Template, draft TemplateDraft) (*Template, error) {
	deactivate := `
		UPDATE templates
		SET is_active = FALSE
		WHERE id = $1 AND firm_id = $2 AND is_active
		RETURNING id
	`
	var deactivatedID string
	err := q.QueryRow(ctx, deactivate, prior.ID, firmID).Scan(&deactivatedID)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, errors.New(errors.ErrCodeConflict, "template version is no longer current")
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to deactivate template version")
	}

	t := &Template{
		ID:       uuid.NewString(),
		FirmID:   &firmID,
		RootID:   prior.RootID,
		ParentID: &prior.ID,
		Version:  prior.Version + 1,
		Name:     draft.Name,
		Type:     draft.Type,
		Content:  draft.Content,
		IsActive: true,
	}

	insert := `
		INSERT INTO templates (id, firm_id, root_id, parent_id, version, name, type, content, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE)
		RETURNING created_at
	`
	err = q.QueryRow(ctx, insert, t.ID, t.FirmID, t.RootID, t.ParentID, t.Version, t.Name, t.Type, t.Content).
		Scan(&t.CreatedAt)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to create template version")
	}
	return t, nil
}

// ── scan helper ───────────────────────────────────────────────────────────────

type templateScanner interface {
	Scan(dest ...any) error
}

func scanTemplate(row templateScanner) (*Template, error) {
	t := &Template{}
	err := row.Scan(
		&t.ID,
		&t.FirmID,
		&t.RootID,
		&t.ParentID,
		&t.Version,
		&t.Name,
		&t.Type,
		&t.Content,
		&t.IsActive,
		&t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}
