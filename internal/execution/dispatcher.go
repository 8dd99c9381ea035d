package execution

import (
	"context"

	"github.com/praxishq/be-pm-approvals/internal/errors"
	"github.com/praxishq/be-pm-approvals/internal/logger"
	"github.com/praxishq/be-pm-approvals/internal/repository"
)

// pipelineFunc is one action kind's validate -> check -> execute chain.
type pipelineFunc func(ctx context.Context, scope Scope, a *repository.ApprovalRequest) error

// Dispatcher resolves an approval's action to a registered pipeline and maps
// every pipeline failure into an Outcome. Errors never propagate past
// Execute: the decision endpoint must always be able to persist the
// approval's terminal state, whatever the executor did.
type Dispatcher struct {
	pipelines map[Action]pipelineFunc
	log       *logger.Logger
}

// NewDispatcher wires the pipeline registry over the given stores.
//
// matter.create and other entity-creation kinds are intentionally
// unregistered: automated execution was judged unsafe for them, so approving
// one records the decision and returns not_executed for manual follow-up.
func NewDispatcher(stores Stores, log *logger.Logger) *Dispatcher {
	e := &executors{stores: stores, log: log}

	return &Dispatcher{
		log: log,
		pipelines: map[Action]pipelineFunc{
			ActionTaskCreate:          e.taskCreate,
			ActionCalendarEventCreate: e.calendarEventCreate,
			ActionInvoiceSend:         e.invoiceSend,
			ActionTimeEntryApprove:    e.timeEntryApprove,
			ActionTemplateCreate:      e.templateCreate,
			ActionTemplateUpdate:      e.templateUpdate,
			ActionConflictCheckClear:  e.conflictCheckResolve(repository.ConflictCheckStatusCleared),
			ActionConflictCheckWaive:  e.conflictCheckResolve(repository.ConflictCheckStatusWaived),
			ActionSignatureSend:       e.signatureSend,
		},
	}
}

// Supported reports whether a pipeline is registered for action.
func (d *Dispatcher) Supported(action string) bool {
	_, ok := d.pipelines[Action(action)]
	return ok
}

// Execute runs the pipeline for the approval's action on the given scope.
// An unregistered action returns not_executed without touching storage; any
// pipeline error returns failed with a human-readable execution error.
func (d *Dispatcher) Execute(ctx context.Context, scope Scope, a *repository.ApprovalRequest) Outcome {
	pipeline, ok := d.pipelines[Action(a.Action)]
	if !ok {
		d.log.Debug().
			Str("approval_id", a.ID).
			Str("action", a.Action).
			Msg("No pipeline registered for action; leaving not_executed")
		return Outcome{Status: StatusNotExecuted}
	}

	if err := pipeline(ctx, scope, a); err != nil {
		msg := err.Error()
		if errors.CodeOf(err) == errors.ErrCodeValidation {
			msg = "Invalid proposed payload: " + msg
		}
		d.log.Warn().
			Str("approval_id", a.ID).
			Str("action", a.Action).
			Str("execution_error", msg).
			Msg("Approval execution failed")
		return failed(msg)
	}

	d.log.Info().
		Str("approval_id", a.ID).
		Str("action", a.Action).
		Str("firm_id", scope.FirmID).
		Msg("Approval executed")
	return executed()
}
