package execution

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/praxishq/be-pm-approvals/internal/errors"
	"github.com/praxishq/be-pm-approvals/internal/repository"
)

// Action enumerates the action kinds the engine knows how to execute.
// Approvals may carry any action string; kinds not listed here resolve to no
// pipeline and a not_executed outcome.
type Action string

const (
	ActionTaskCreate          Action = "task.create"
	ActionCalendarEventCreate Action = "calendar_event.create"
	ActionInvoiceSend         Action = "invoice.send"
	ActionTimeEntryApprove    Action = "time_entry.approve"
	ActionTemplateCreate      Action = "template.create"
	ActionTemplateUpdate      Action = "template.update"
	ActionConflictCheckClear  Action = "conflict_check.clear"
	ActionConflictCheckWaive  Action = "conflict_check.waive"
	ActionSignatureSend       Action = "signature_request.send"
)

// ── Payload variants ──────────────────────────────────────────────────────────
//
// Each action kind has its own strongly typed payload decoded from the
// approval's opaque proposedPayload. Validation is structural only; entity
// state is the checkers' concern.

// TaskItem is one proposed task in a task.create payload.
type TaskItem struct {
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	DueAt       *time.Time `json:"dueAt,omitempty"`
}

// TaskCreatePayload proposes creating tasks under a matter.
type TaskCreatePayload struct {
	MatterID string     `json:"matterId"`
	Tasks    []TaskItem `json:"tasks"`
}

// EventItem is one proposed event in a calendar_event.create payload.
type EventItem struct {
	Title    string     `json:"title"`
	StartAt  *time.Time `json:"startAt"`
	EndAt    *time.Time `json:"endAt,omitempty"`
	Location *string    `json:"location,omitempty"`
}

// CalendarEventCreatePayload proposes creating calendar events under a matter.
type CalendarEventCreatePayload struct {
	MatterID string      `json:"matterId"`
	Events   []EventItem `json:"events"`
}

// InvoiceSendPayload proposes sending a draft invoice.
type InvoiceSendPayload struct {
	InvoiceID string `json:"invoiceId"`
}

// TimeEntryApprovePayload proposes approving a submitted time entry.
type TimeEntryApprovePayload struct {
	TimeEntryID string `json:"timeEntryId"`
}

// TemplateFields is the draft body shared by template payloads.
type TemplateFields struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Content string `json:"content"`
}

// TemplateCreatePayload proposes creating a new template chain.
type TemplateCreatePayload struct {
	Draft TemplateFields `json:"draft"`
}

// TemplateUpdateDraft carries the fields to change on a template; absent
// fields keep the current version's values.
type TemplateUpdateDraft struct {
	Name    *string `json:"name,omitempty"`
	Type    *string `json:"type,omitempty"`
	Content *string `json:"content,omitempty"`
}

// TemplateUpdatePayload proposes a new version of an existing template.
type TemplateUpdatePayload struct {
	TemplateID string              `json:"templateId"`
	Draft      TemplateUpdateDraft `json:"draft"`
}

// ConflictCheckResolvePayload proposes clearing or waiving a conflict check.
type ConflictCheckResolvePayload struct {
	ConflictCheckID string  `json:"conflictCheckId"`
	Note            *string `json:"note,omitempty"`
	WaiverText      *string `json:"waiverText,omitempty"`
}

// SignatureSendPayload proposes sending a signature request for delivery.
type SignatureSendPayload struct {
	SignatureRequestID string `json:"signatureRequestId"`
}

// ── Validators ────────────────────────────────────────────────────────────────

func invalid(reason string) error {
	return errors.New(errors.ErrCodeValidation, reason)
}

// decodeInto parses the raw payload; a nil payload decodes as empty, which is
// valid for kinds that can fall back to the approval's entityId.
func decodeInto(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return invalid("payload is not valid JSON")
	}
	return nil
}

// entityRef resolves the target entity id for single-entity actions: the
// payload value wins, the approval's own entityId is the fallback.
func entityRef(payloadID string, a *repository.ApprovalRequest) string {
	if payloadID != "" {
		return payloadID
	}
	if a.EntityID != nil {
		return *a.EntityID
	}
	return ""
}

func validateTaskCreate(a *repository.ApprovalRequest) (*TaskCreatePayload, error) {
	p := &TaskCreatePayload{}
	if err := decodeInto(a.Payload, p); err != nil {
		return nil, err
	}
	if p.MatterID == "" {
		return nil, invalid("missing matterId")
	}
	if len(p.Tasks) == 0 {
		return nil, invalid("tasks must be a non-empty list")
	}
	for i, t := range p.Tasks {
		if t.Title == "" {
			return nil, invalid(fmt.Sprintf("task %d is missing a title", i+1))
		}
	}
	return p, nil
}

func validateCalendarEventCreate(a *repository.ApprovalRequest) (*CalendarEventCreatePayload, error) {
	p := &CalendarEventCreatePayload{}
	if err := decodeInto(a.Payload, p); err != nil {
		return nil, err
	}
	if p.MatterID == "" {
		return nil, invalid("missing matterId")
	}
	if len(p.Events) == 0 {
		return nil, invalid("events must be a non-empty list")
	}
	for i, e := range p.Events {
		if e.Title == "" {
			return nil, invalid(fmt.Sprintf("event %d is missing a title", i+1))
		}
		if e.StartAt == nil {
			return nil, invalid(fmt.Sprintf("event %d is missing startAt", i+1))
		}
	}
	return p, nil
}

func validateInvoiceSend(a *repository.ApprovalRequest) (*InvoiceSendPayload, error) {
	p := &InvoiceSendPayload{}
	if err := decodeInto(a.Payload, p); err != nil {
		return nil, err
	}
	if p.InvoiceID = entityRef(p.InvoiceID, a); p.InvoiceID == "" {
		return nil, invalid("missing invoiceId")
	}
	return p, nil
}

func validateTimeEntryApprove(a *repository.ApprovalRequest) (*TimeEntryApprovePayload, error) {
	p := &TimeEntryApprovePayload{}
	if err := decodeInto(a.Payload, p); err != nil {
		return nil, err
	}
	if p.TimeEntryID = entityRef(p.TimeEntryID, a); p.TimeEntryID == "" {
		return nil, invalid("missing timeEntryId")
	}
	return p, nil
}

func validateTemplateCreate(a *repository.ApprovalRequest) (*TemplateCreatePayload, error) {
	p := &TemplateCreatePayload{}
	if err := decodeInto(a.Payload, p); err != nil {
		return nil, err
	}
	if p.Draft.Name == "" {
		return nil, invalid("missing draft.name")
	}
	if p.Draft.Type == "" {
		return nil, invalid("missing draft.type")
	}
	if p.Draft.Content == "" {
		return nil, invalid("missing draft.content")
	}
	return p, nil
}

func validateTemplateUpdate(a *repository.ApprovalRequest) (*TemplateUpdatePayload, error) {
	p := &TemplateUpdatePayload{}
	if err := decodeInto(a.Payload, p); err != nil {
		return nil, err
	}
	if p.TemplateID = entityRef(p.TemplateID, a); p.TemplateID == "" {
		return nil, invalid("missing templateId")
	}
	return p, nil
}

func validateConflictCheckResolve(a *repository.ApprovalRequest) (*ConflictCheckResolvePayload, error) {
	p := &ConflictCheckResolvePayload{}
	if err := decodeInto(a.Payload, p); err != nil {
		return nil, err
	}
	if p.ConflictCheckID = entityRef(p.ConflictCheckID, a); p.ConflictCheckID == "" {
		return nil, invalid("missing conflictCheckId")
	}
	return p, nil
}

func validateSignatureSend(a *repository.ApprovalRequest) (*SignatureSendPayload, error) {
	p := &SignatureSendPayload{}
	if err := decodeInto(a.Payload, p); err != nil {
		return nil, err
	}
	if p.SignatureRequestID = entityRef(p.SignatureRequestID, a); p.SignatureRequestID == "" {
		return nil, invalid("missing signatureRequestId")
	}
	return p, nil
}
