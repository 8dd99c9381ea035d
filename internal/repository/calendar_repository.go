package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/praxishq/be-pm-approvals/internal/database"
	"github.com/praxishq/be-pm-approvals/internal/errors"
)

// CalendarEventRepository inserts calendar events on the caller's transaction.
type CalendarEventRepository struct {
	db *database.DB
}

// NewCalendarEventRepository creates a new CalendarEventRepository.
func NewCalendarEventRepository(db *database.DB) *CalendarEventRepository {
	return &CalendarEventRepository{db: db}
}

// CreateBatch inserts one calendar event row per draft under the matter.
// Returns the new ids.
func (r *CalendarEventRepository) CreateBatch(ctx context.Context, q database.Querier, firmID, matterID string, drafts []CalendarEventDraft) ([]string, error) {
	query := `
		INSERT INTO calendar_events (id, firm_id, matter_id, title, start_at, end_at, location)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	ids := make([]string, 0, len(drafts))
	for _, draft := range drafts {
		id := uuid.NewString()
		_, err := q.Exec(ctx, query, id, firmID, matterID, draft.Title, draft.StartAt, draft.EndAt, draft.Location)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to create calendar event")
		}
		ids = append(ids, id)
	}
	return ids, nil
}
