package service

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"

	"github.com/praxishq/be-pm-approvals/internal/client"
	"github.com/praxishq/be-pm-approvals/internal/database"
	"github.com/praxishq/be-pm-approvals/internal/errors"
	"github.com/praxishq/be-pm-approvals/internal/execution"
	"github.com/praxishq/be-pm-approvals/internal/logger"
	"github.com/praxishq/be-pm-approvals/internal/repository"
)

// TxRunner runs a function inside a storage transaction.
type TxRunner interface {
	InTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// ApprovalStore is the approval row persistence the service depends on.
type ApprovalStore interface {
	Create(ctx context.Context, a *repository.ApprovalRequest) error
	GetByID(ctx context.Context, firmID, id string) (*repository.ApprovalRequest, error)
	List(ctx context.Context, firmID string, status *string, limit, offset int) ([]*repository.ApprovalRequest, int64, error)
	GetForUpdate(ctx context.Context, q database.Querier, firmID, id string) (*repository.ApprovalRequest, error)
	Finalize(ctx context.Context, q database.Querier, p repository.FinalizeParams) error
}

// ActionDispatcher executes an approved action's pipeline.
type ActionDispatcher interface {
	Execute(ctx context.Context, scope execution.Scope, a *repository.ApprovalRequest) execution.Outcome
	Supported(action string) bool
}

// DecisionService owns the approval decision lifecycle: it is the idempotency
// boundary that guarantees an approval executes at most once.
type DecisionService struct {
	tx         TxRunner
	approvals  ApprovalStore
	dispatcher ActionDispatcher
	notifier   *client.NotificationPublisher
	log        *logger.Logger
}

// NewDecisionService creates a new DecisionService. notifier may be nil when
// NATS is not configured.
func NewDecisionService(
	tx TxRunner,
	approvals ApprovalStore,
	dispatcher ActionDispatcher,
	notifier *client.NotificationPublisher,
	log *logger.Logger,
) *DecisionService {
	return &DecisionService{
		tx:         tx,
		approvals:  approvals,
		dispatcher: dispatcher,
		notifier:   notifier,
		log:        log,
	}
}

// ── Submit (proposal path) ────────────────────────────────────────────────────

// SubmitRequest is a proposal for a side-effecting action.
type SubmitRequest struct {
	FirmID     string          `json:"-"`
	SourceType string          `json:"sourceType"`
	SourceID   string          `json:"sourceId"`
	Action     string          `json:"action"`
	Summary    string          `json:"summary"`
	Payload    json.RawMessage `json:"proposedPayload,omitempty"`
	EntityType *string         `json:"entityType,omitempty"`
	EntityID   *string         `json:"entityId,omitempty"`
	AIMetadata json.RawMessage `json:"aiMetadata,omitempty"`
}

// Submit queues a new pending approval request. Payload shape is not
// interpreted here; the matching validator checks it at execution time.
func (s *DecisionService) Submit(ctx context.Context, req *SubmitRequest) (*repository.ApprovalRequest, error) {
	if req.Action == "" {
		return nil, errors.InvalidInput("action", "action is required")
	}
	if req.Summary == "" {
		return nil, errors.InvalidInput("summary", "summary is required")
	}
	if req.SourceType != repository.SourceTypeUser && req.SourceType != repository.SourceTypeAI {
		return nil, errors.InvalidInput("sourceType", "must be 'user' or 'ai'")
	}

	// Unknown action kinds are accepted: approving one records the decision
	// and leaves execution to manual follow-up.
	if !s.dispatcher.Supported(req.Action) {
		s.log.Debug().
			Str("firm_id", req.FirmID).
			Str("action", req.Action).
			Msg("No execution pipeline registered for action; approval will record the decision only")
	}

	a := &repository.ApprovalRequest{
		FirmID:     req.FirmID,
		SourceType: req.SourceType,
		SourceID:   req.SourceID,
		Action:     req.Action,
		Summary:    req.Summary,
		Payload:    req.Payload,
		EntityType: req.EntityType,
		EntityID:   req.EntityID,
		AIMetadata: req.AIMetadata,
	}
	if err := s.approvals.Create(ctx, a); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("approval_id", a.ID).
		Str("firm_id", a.FirmID).
		Str("action", a.Action).
		Str("source_type", a.SourceType).
		Msg("Approval request submitted")
	return a, nil
}

// ── Decisions ─────────────────────────────────────────────────────────────────

// Approve marks the approval approved and executes its action. The row lock
// taken by GetForUpdate plus the pending-status check make the decision
// single-shot: a second concurrent approve blocks on the lock, then sees a
// non-pending row and is rejected without ever reaching the dispatcher.
func (s *DecisionService) Approve(ctx context.Context, firmID, approvalID, decidedBy string, reason *string) (*repository.ApprovalRequest, error) {
	var approved *repository.ApprovalRequest

	err := s.tx.InTransaction(ctx, func(tx pgx.Tx) error {
		a, err := s.approvals.GetForUpdate(ctx, tx, firmID, approvalID)
		if err != nil {
			return err
		}
		if a.Status != repository.ApprovalStatusPending {
			return errors.Newf(errors.ErrCodeConflict,
				"approval request has already been decided (status: %s)", a.Status)
		}

		a.DecidedBy = &decidedBy
		a.DecisionReason = reason

		outcome := s.dispatcher.Execute(ctx, execution.NewScope(firmID, tx), a)

		var execErr *string
		if outcome.Error != "" {
			execErr = &outcome.Error
		}
		if err := s.approvals.Finalize(ctx, tx, repository.FinalizeParams{
			FirmID:          firmID,
			ID:              approvalID,
			Status:          repository.ApprovalStatusApproved,
			ExecutionStatus: string(outcome.Status),
			ExecutionError:  execErr,
			DecidedBy:       decidedBy,
			DecisionReason:  reason,
		}); err != nil {
			return err
		}

		a.Status = repository.ApprovalStatusApproved
		a.ExecutionStatus = string(outcome.Status)
		a.ExecutionError = execErr
		approved = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	eventType := "approval_approved"
	if approved.ExecutionStatus == repository.ExecutionFailed {
		eventType = "approval_failed"
	}
	s.notifier.PublishDecisionEvent(ctx, eventType, firmID, decidedBy,
		approved.ID, approved.Action, approved.ExecutionStatus, nil)

	s.log.Info().
		Str("approval_id", approved.ID).
		Str("firm_id", firmID).
		Str("execution_status", approved.ExecutionStatus).
		Msg("Approval decided")
	return approved, nil
}

// Reject marks the approval rejected. Rejected proposals are never executed,
// so the execution status stays not_executed.
func (s *DecisionService) Reject(ctx context.Context, firmID, approvalID, decidedBy string, reason *string) (*repository.ApprovalRequest, error) {
	var rejected *repository.ApprovalRequest

	err := s.tx.InTransaction(ctx, func(tx pgx.Tx) error {
		a, err := s.approvals.GetForUpdate(ctx, tx, firmID, approvalID)
		if err != nil {
			return err
		}
		if a.Status != repository.ApprovalStatusPending {
			return errors.Newf(errors.ErrCodeConflict,
				"approval request has already been decided (status: %s)", a.Status)
		}

		if err := s.approvals.Finalize(ctx, tx, repository.FinalizeParams{
			FirmID:          firmID,
			ID:              approvalID,
			Status:          repository.ApprovalStatusRejected,
			ExecutionStatus: repository.ExecutionNotExecuted,
			DecidedBy:       decidedBy,
			DecisionReason:  reason,
		}); err != nil {
			return err
		}

		a.Status = repository.ApprovalStatusRejected
		a.DecidedBy = &decidedBy
		a.DecisionReason = reason
		rejected = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.PublishDecisionEvent(ctx, "approval_rejected", firmID, decidedBy,
		rejected.ID, rejected.Action, rejected.ExecutionStatus, nil)
	return rejected, nil
}

// BulkResult reports one approval's outcome within a bulk decision.
type BulkResult struct {
	ID              string `json:"id"`
	Status          string `json:"status"`
	ExecutionStatus string `json:"executionStatus,omitempty"`
	Error           string `json:"error,omitempty"`
}

// BulkApprove approves a batch of approvals, each in its own transaction.
// One item's failure never rolls back or aborts another item's execution;
// failures are reported per id.
func (s *DecisionService) BulkApprove(ctx context.Context, firmID string, approvalIDs []string, decidedBy string, reason *string) []BulkResult {
	results := make([]BulkResult, 0, len(approvalIDs))

	for _, id := range approvalIDs {
		a, err := s.Approve(ctx, firmID, id, decidedBy, reason)
		if err != nil {
			results = append(results, BulkResult{ID: id, Error: err.Error()})
			continue
		}
		results = append(results, BulkResult{
			ID:              a.ID,
			Status:          a.Status,
			ExecutionStatus: a.ExecutionStatus,
		})
	}
	return results
}

// ── Reads ─────────────────────────────────────────────────────────────────────

// Get returns one approval under the firm scope.
func (s *DecisionService) Get(ctx context.Context, firmID, approvalID string) (*repository.ApprovalRequest, error) {
	return s.approvals.GetByID(ctx, firmID, approvalID)
}

// List returns a firm's approvals, optionally filtered by status.
func (s *DecisionService) List(ctx context.Context, firmID string, status *string, limit, offset int) ([]*repository.ApprovalRequest, int64, error) {
	return s.approvals.List(ctx, firmID, status, limit, offset)
}
