package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/praxishq/be-pm-approvals/internal/database"
	"github.com/praxishq/be-pm-approvals/internal/errors"
)

// TaskRepository inserts tasks. Batch inserts run on the caller's transaction
// so a failing item rolls back the whole batch.
type TaskRepository struct {
	db *database.DB
}

// NewTaskRepository creates a new TaskRepository.
func NewTaskRepository(db *database.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// CreateBatch inserts one task row per draft under the matter, preserving
// the drafts' order via position. Returns the new ids.
func (r *TaskRepository) CreateBatch(ctx context.Context, q database.Querier, firmID, matterID string, drafts []TaskDraft) ([]string, error) {
	query := `
		INSERT INTO tasks (id, firm_id, matter_id, title, description, due_at, position, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'open')
	`

	ids := make([]string, 0, len(drafts))
	for i, draft := range drafts {
		id := uuid.NewString()
		_, err := q.Exec(ctx, query, id, firmID, matterID, draft.Title, draft.Description, draft.DueAt, i)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to create task")
		}
		ids = append(ids, id)
	}
	return ids, nil
}
