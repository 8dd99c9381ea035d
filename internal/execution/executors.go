package execution

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/praxishq/be-pm-approvals/internal/errors"
	"github.com/praxishq/be-pm-approvals/internal/logger"
	"github.com/praxishq/be-pm-approvals/internal/repository"
)

// executors holds the store set and implements one pipeline per action kind.
// Each pipeline runs validator, precondition check and mutation in order; any
// error aborts before the next step so a failed approval never leaves partial
// writes behind (the caller rolls the transaction back).
type executors struct {
	stores Stores
	log    *logger.Logger
}

// actor returns who the mutation should be attributed to: the approver when
// the decision endpoint recorded one, otherwise the proposer.
func actor(a *repository.ApprovalRequest) string {
	if a.DecidedBy != nil && *a.DecidedBy != "" {
		return *a.DecidedBy
	}
	return a.SourceID
}

// ── task.create ───────────────────────────────────────────────────────────────

func (e *executors) taskCreate(ctx context.Context, scope Scope, a *repository.ApprovalRequest) error {
	p, err := validateTaskCreate(a)
	if err != nil {
		return err
	}

	exists, err := e.stores.Matters.Exists(ctx, scope.Tx, scope.FirmID, p.MatterID)
	if err != nil {
		return err
	}
	if !exists {
		return errors.New(errors.ErrCodeNotFound, "Matter not found")
	}

	drafts := make([]repository.TaskDraft, 0, len(p.Tasks))
	for i, t := range p.Tasks {
		drafts = append(drafts, repository.TaskDraft{
			Title:       t.Title,
			Description: t.Description,
			DueAt:       t.DueAt,
			Position:    i,
		})
	}

	ids, err := e.stores.Tasks.CreateBatch(ctx, scope.Tx, scope.FirmID, p.MatterID, drafts)
	if err != nil {
		return err
	}

	return e.stores.Timeline.Record(ctx, scope.Tx, &repository.TimelineEvent{
		FirmID:     scope.FirmID,
		MatterID:   &p.MatterID,
		Type:       "task.created",
		Title:      fmt.Sprintf("Created %d task(s)", len(ids)),
		ActorType:  a.SourceType,
		EntityType: "matter",
		EntityID:   p.MatterID,
		Metadata:   map[string]any{"taskIds": ids, "approvalId": a.ID},
	})
}

// ── calendar_event.create ─────────────────────────────────────────────────────

func (e *executors) calendarEventCreate(ctx context.Context, scope Scope, a *repository.ApprovalRequest) error {
	p, err := validateCalendarEventCreate(a)
	if err != nil {
		return err
	}

	exists, err := e.stores.Matters.Exists(ctx, scope.Tx, scope.FirmID, p.MatterID)
	if err != nil {
		return err
	}
	if !exists {
		return errors.New(errors.ErrCodeNotFound, "Matter not found")
	}

	drafts := make([]repository.CalendarEventDraft, 0, len(p.Events))
	for _, ev := range p.Events {
		drafts = append(drafts, repository.CalendarEventDraft{
			Title:    ev.Title,
			StartAt:  *ev.StartAt,
			EndAt:    ev.EndAt,
			Location: ev.Location,
		})
	}

	ids, err := e.stores.CalendarEvents.CreateBatch(ctx, scope.Tx, scope.FirmID, p.MatterID, drafts)
	if err != nil {
		return err
	}

	return e.stores.Timeline.Record(ctx, scope.Tx, &repository.TimelineEvent{
		FirmID:     scope.FirmID,
		MatterID:   &p.MatterID,
		Type:       "calendar_event.created",
		Title:      fmt.Sprintf("Scheduled %d event(s)", len(ids)),
		ActorType:  a.SourceType,
		EntityType: "matter",
		EntityID:   p.MatterID,
		Metadata:   map[string]any{"eventIds": ids, "approvalId": a.ID},
	})
}

// ── invoice.send ──────────────────────────────────────────────────────────────

func (e *executors) invoiceSend(ctx context.Context, scope Scope, a *repository.ApprovalRequest) error {
	p, err := validateInvoiceSend(a)
	if err != nil {
		return err
	}

	inv, err := e.stores.Invoices.Get(ctx, scope.Tx, scope.FirmID, p.InvoiceID)
	if err != nil {
		return err
	}
	if inv.Status != repository.InvoiceStatusDraft {
		return errors.New(errors.ErrCodeConflict, "Only draft invoices can be sent")
	}

	if err := e.stores.Invoices.MarkSent(ctx, scope.Tx, scope.FirmID, inv.ID); err != nil {
		return err
	}

	// Document delivery is a downstream collaborator's job; the timeline
	// event is its signal.
	return e.stores.Timeline.Record(ctx, scope.Tx, &repository.TimelineEvent{
		FirmID:     scope.FirmID,
		MatterID:   inv.MatterID,
		Type:       "invoice.sent",
		Title:      fmt.Sprintf("Invoice %s sent", inv.InvoiceNumber),
		ActorType:  a.SourceType,
		EntityType: "invoice",
		EntityID:   inv.ID,
		Metadata:   map[string]any{"approvalId": a.ID},
	})
}

// ── time_entry.approve ────────────────────────────────────────────────────────

func (e *executors) timeEntryApprove(ctx context.Context, scope Scope, a *repository.ApprovalRequest) error {
	p, err := validateTimeEntryApprove(a)
	if err != nil {
		return err
	}

	te, err := e.stores.TimeEntries.Get(ctx, scope.Tx, scope.FirmID, p.TimeEntryID)
	if err != nil {
		return err
	}
	if te.Status != repository.TimeEntryStatusSubmitted {
		return errors.New(errors.ErrCodeConflict, "Only submitted time entries can be approved")
	}

	if err := e.stores.TimeEntries.Approve(ctx, scope.Tx, scope.FirmID, te.ID, actor(a)); err != nil {
		return err
	}

	return e.stores.Timeline.Record(ctx, scope.Tx, &repository.TimelineEvent{
		FirmID:     scope.FirmID,
		MatterID:   te.MatterID,
		Type:       "time_entry.approved",
		Title:      "Time entry approved",
		ActorType:  a.SourceType,
		EntityType: "time_entry",
		EntityID:   te.ID,
		Metadata:   map[string]any{"approvalId": a.ID, "minutes": te.Minutes},
	})
}

// ── template.create / template.update ─────────────────────────────────────────

func (e *executors) templateCreate(ctx context.Context, scope Scope, a *repository.ApprovalRequest) error {
	p, err := validateTemplateCreate(a)
	if err != nil {
		return err
	}

	t, err := e.stores.Templates.CreateVersion(ctx, scope.Tx, scope.FirmID, repository.TemplateDraft{
		Name:    p.Draft.Name,
		Type:    p.Draft.Type,
		Content: p.Draft.Content,
	})
	if err != nil {
		return err
	}

	return e.stores.Timeline.Record(ctx, scope.Tx, &repository.TimelineEvent{
		FirmID:     scope.FirmID,
		Type:       "template.created",
		Title:      fmt.Sprintf("Template %q created", t.Name),
		ActorType:  a.SourceType,
		EntityType: "template",
		EntityID:   t.ID,
		Metadata:   map[string]any{"approvalId": a.ID},
	})
}

func (e *executors) templateUpdate(ctx context.Context, scope Scope, a *repository.ApprovalRequest) error {
	p, err := validateTemplateUpdate(a)
	if err != nil {
		return err
	}

	prior, err := e.stores.Templates.GetCurrent(ctx, scope.Tx, scope.FirmID, p.TemplateID)
	if err != nil {
		return err
	}

	// Copy-on-write: absent draft fields carry the current version forward.
	draft := repository.TemplateDraft{
		Name:    prior.Name,
		Type:    prior.Type,
		Content: prior.Content,
	}
	if p.Draft.Name != nil {
		draft.Name = *p.Draft.Name
	}
	if p.Draft.Type != nil {
		draft.Type = *p.Draft.Type
	}
	if p.Draft.Content != nil {
		draft.Content = *p.Draft.Content
	}

	// System templates (nil firm) are shared and immutable to firms: updating
	// one forks a firm-owned chain seeded from the current system version,
	// leaving the shared row active for every other firm.
	var next *repository.Template
	var title string
	meta := map[string]any{"approvalId": a.ID, "priorVersionId": prior.ID}
	if prior.FirmID == nil {
		next, err = e.stores.Templates.CreateVersion(ctx, scope.Tx, scope.FirmID, draft)
		if err != nil {
			return err
		}
		meta["forkedFromSystemId"] = prior.ID
		title = fmt.Sprintf("Template %q customized from a system template", next.Name)
	} else {
		next, err = e.stores.Templates.CreateSuccessor(ctx, scope.Tx, scope.FirmID, prior, draft)
		if err != nil {
			return err
		}
		title = fmt.Sprintf("Template %q updated to version %d", next.Name, next.Version)
	}

	return e.stores.Timeline.Record(ctx, scope.Tx, &repository.TimelineEvent{
		FirmID:     scope.FirmID,
		Type:       "template.updated",
		Title:      title,
		ActorType:  a.SourceType,
		EntityType: "template",
		EntityID:   next.ID,
		Metadata:   meta,
	})
}

// ── conflict_check.clear / conflict_check.waive ───────────────────────────────

func (e *executors) conflictCheckResolve(resolution string) func(ctx context.Context, scope Scope, a *repository.ApprovalRequest) error {
	return func(ctx context.Context, scope Scope, a *repository.ApprovalRequest) error {
		p, err := validateConflictCheckResolve(a)
		if err != nil {
			return err
		}

		cc, err := e.stores.ConflictChecks.Get(ctx, scope.Tx, scope.FirmID, p.ConflictCheckID)
		if err != nil {
			return err
		}
		if cc.Status != repository.ConflictCheckStatusPending {
			return errors.New(errors.ErrCodeConflict, "Conflict check is already resolved")
		}

		note := p.Note
		if resolution == repository.ConflictCheckStatusWaived && p.WaiverText != nil {
			note = p.WaiverText
		}
		if note == nil {
			note = a.DecisionReason
		}

		if err := e.stores.ConflictChecks.Resolve(ctx, scope.Tx, scope.FirmID, cc.ID, resolution, note, actor(a)); err != nil {
			return err
		}

		return e.stores.Timeline.Record(ctx, scope.Tx, &repository.TimelineEvent{
			FirmID:     scope.FirmID,
			MatterID:   cc.MatterID,
			Type:       "conflict_check." + resolution,
			Title:      fmt.Sprintf("Conflict check %s", resolution),
			ActorType:  a.SourceType,
			EntityType: "conflict_check",
			EntityID:   cc.ID,
			Metadata:   map[string]any{"approvalId": a.ID},
		})
	}
}

// ── signature_request.send ────────────────────────────────────────────────────

func (e *executors) signatureSend(ctx context.Context, scope Scope, a *repository.ApprovalRequest) error {
	p, err := validateSignatureSend(a)
	if err != nil {
		return err
	}

	sr, err := e.stores.SignatureRequests.Get(ctx, scope.Tx, scope.FirmID, p.SignatureRequestID)
	if err != nil {
		return err
	}
	if sr.Status != repository.SignatureStatusPendingApproval {
		return errors.New(errors.ErrCodeConflict, "Only signature requests pending approval can be sent")
	}

	if err := e.stores.SignatureRequests.MarkSent(ctx, scope.Tx, scope.FirmID, sr.ID); err != nil {
		return err
	}

	// Delivery to the signing provider goes through the outbox so the job
	// survives a crash between commit and publish.
	job, err := json.Marshal(map[string]any{
		"signatureRequestId": sr.ID,
		"firmId":             scope.FirmID,
		"documentName":       sr.DocumentName,
		"recipientEmail":     sr.RecipientEmail,
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to encode signature delivery job")
	}
	if err := e.stores.Outbox.Append(ctx, scope.Tx, &repository.OutboxMessage{
		FirmID:  scope.FirmID,
		Kind:    "signature_request.deliver",
		Payload: job,
	}); err != nil {
		return err
	}

	return e.stores.Timeline.Record(ctx, scope.Tx, &repository.TimelineEvent{
		FirmID:     scope.FirmID,
		MatterID:   sr.MatterID,
		Type:       "signature_request.sent",
		Title:      fmt.Sprintf("Signature request for %q sent", sr.DocumentName),
		ActorType:  a.SourceType,
		EntityType: "signature_request",
		EntityID:   sr.ID,
		Metadata:   map[string]any{"approvalId": a.ID},
	})
}
