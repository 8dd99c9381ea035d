package repository

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/praxishq/be-pm-approvals/internal/database"
	"github.com/praxishq/be-pm-approvals/internal/errors"
)

// TimelineRepository appends and reads immutable timeline events. The table
// has a delete-prevention trigger so append and read are the only operations
// exposed.
type TimelineRepository struct {
	db *database.DB
}

// NewTimelineRepository creates a new TimelineRepository.
func NewTimelineRepository(db *database.DB) *TimelineRepository {
	return &TimelineRepository{db: db}
}

// Record appends one timeline event on the caller's transaction so the event
// commits atomically with the mutation it describes.
func (r *TimelineRepository) Record(ctx context.Context, q database.Querier, event *TimelineEvent) error {
	var metadataJSON []byte
	if event.Metadata != nil {
		var err error
		metadataJSON, err = json.Marshal(event.Metadata)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to marshal timeline metadata")
		}
	}

	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	query := `
		INSERT INTO timeline_events
		    (id, firm_id, matter_id, type, title, actor_type, entity_type, entity_id, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`

	err := q.QueryRow(ctx, query,
		event.ID,
		event.FirmID,
		event.MatterID,
		event.Type,
		event.Title,
		event.ActorType,
		event.EntityType,
		event.EntityID,
		metadataJSON,
	).Scan(&event.CreatedAt)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to record timeline event")
	}
	return nil
}

// ListByMatter returns a matter's timeline oldest-first.
func (r *TimelineRepository) ListByMatter(ctx context.Context, firmID, matterID string) ([]*TimelineEvent, error) {
	query := `
		SELECT id, firm_id, matter_id, type, title, actor_type, entity_type, entity_id,
		       metadata, created_at
		FROM timeline_events
		WHERE firm_id = $1 AND matter_id = $2
		ORDER BY created_at ASC
	`

	rows, err := r.db.Query(ctx, query, firmID, matterID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to list timeline events")
	}
	defer rows.Close()

	var events []*TimelineEvent
	for rows.Next() {
		event := &TimelineEvent{}
		var metadataJSON []byte
		err := rows.Scan(
			&event.ID,
			&event.FirmID,
			&event.MatterID,
			&event.Type,
			&event.Title,
			&event.ActorType,
			&event.EntityType,
			&event.EntityID,
			&metadataJSON,
			&event.CreatedAt,
		)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan timeline event")
		}
		if metadataJSON != nil {
			if err := json.Unmarshal(metadataJSON, &event.Metadata); err != nil {
				return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to unmarshal timeline metadata")
			}
		}
		events = append(events, event)
	}
	return events, nil
}
