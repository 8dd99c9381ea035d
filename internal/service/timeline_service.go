package service

import (
	"context"

	"github.com/praxishq/be-pm-approvals/internal/database"
	"github.com/praxishq/be-pm-approvals/internal/logger"
	"github.com/praxishq/be-pm-approvals/internal/repository"
)

// MatterStore is the matter read surface the timeline service depends on.
type MatterStore interface {
	Get(ctx context.Context, q database.Querier, firmID, matterID string) (*repository.Matter, error)
}

// TimelineStore is the timeline read surface the timeline service depends on.
type TimelineStore interface {
	ListByMatter(ctx context.Context, firmID, matterID string) ([]*repository.TimelineEvent, error)
}

// TimelineService serves the activity feed the execution engine appends to.
type TimelineService struct {
	db       database.Querier
	matters  MatterStore
	timeline TimelineStore
	log      *logger.Logger
}

// NewTimelineService creates a new TimelineService.
func NewTimelineService(db database.Querier, matters MatterStore, timeline TimelineStore, log *logger.Logger) *TimelineService {
	return &TimelineService{db: db, matters: matters, timeline: timeline, log: log}
}

// MatterTimeline returns a matter's events oldest-first. The matter lookup is
// firm-scoped, so a cross-firm matter id reads as not found rather than an
// empty feed.
func (s *TimelineService) MatterTimeline(ctx context.Context, firmID, matterID string) ([]*repository.TimelineEvent, error) {
	if _, err := s.matters.Get(ctx, s.db, firmID, matterID); err != nil {
		return nil, err
	}
	return s.timeline.ListByMatter(ctx, firmID, matterID)
}
