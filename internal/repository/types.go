package repository

import (
	"encoding/json"
	"time"
)

// ── Approval requests ─────────────────────────────────────────────────────────

// Approval request lifecycle states. Status is terminal once non-pending.
const (
	ApprovalStatusPending  = "pending"
	ApprovalStatusApproved = "approved"
	ApprovalStatusRejected = "rejected"
)

// Execution outcomes. ExecutionStatus is set exactly once.
const (
	ExecutionNotExecuted = "not_executed"
	ExecutionExecuted    = "executed"
	ExecutionFailed      = "failed"
)

// Proposal sources.
const (
	SourceTypeUser = "user"
	SourceTypeAI   = "ai"
)

// ApprovalRequest is a queued, reviewable proposal to perform a
// side-effecting action. Rows are append-only: they are finalized to a
// terminal (status, execution_status) pair exactly once and never deleted.
type ApprovalRequest struct {
	ID              string          `json:"id"`
	FirmID          string          `json:"firmId"`
	SourceType      string          `json:"sourceType"`
	SourceID        string          `json:"sourceId"`
	Action          string          `json:"action"`
	Summary         string          `json:"summary"`
	Payload         json.RawMessage `json:"proposedPayload,omitempty"`
	EntityType      *string         `json:"entityType,omitempty"`
	EntityID        *string         `json:"entityId,omitempty"`
	Status          string          `json:"status"`
	ExecutionStatus string          `json:"executionStatus"`
	ExecutionError  *string         `json:"executionError,omitempty"`
	DecidedBy       *string         `json:"decidedBy,omitempty"`
	DecisionReason  *string         `json:"decisionReason,omitempty"`
	AIMetadata      json.RawMessage `json:"aiMetadata,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// ── Firm-scoped entities ──────────────────────────────────────────────────────

// Matter is the case/engagement tasks and events hang off.
type Matter struct {
	ID        string    `json:"id"`
	FirmID    string    `json:"firmId"`
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TaskDraft is the insertable shape of a task.
type TaskDraft struct {
	Title       string
	Description *string
	DueAt       *time.Time
	Position    int
}

// Task is a unit of work on a matter.
type Task struct {
	ID          string     `json:"id"`
	FirmID      string     `json:"firmId"`
	MatterID    string     `json:"matterId"`
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	DueAt       *time.Time `json:"dueAt,omitempty"`
	Position    int        `json:"position"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// CalendarEventDraft is the insertable shape of a calendar event.
type CalendarEventDraft struct {
	Title    string
	StartAt  time.Time
	EndAt    *time.Time
	Location *string
}

// CalendarEvent is a scheduled event on a matter.
type CalendarEvent struct {
	ID        string     `json:"id"`
	FirmID    string     `json:"firmId"`
	MatterID  string     `json:"matterId"`
	Title     string     `json:"title"`
	StartAt   time.Time  `json:"startAt"`
	EndAt     *time.Time `json:"endAt,omitempty"`
	Location  *string    `json:"location,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// Invoice statuses. Only draft invoices may be sent.
const (
	InvoiceStatusDraft = "draft"
	InvoiceStatusSent  = "sent"
)

// Invoice is a client invoice header.
type Invoice struct {
	ID            string     `json:"id"`
	FirmID        string     `json:"firmId"`
	MatterID      *string    `json:"matterId,omitempty"`
	InvoiceNumber string     `json:"invoiceNumber"`
	Status        string     `json:"status"`
	TotalAmount   int64      `json:"totalAmount"` // cents
	SentAt        *time.Time `json:"sentAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// Time entry statuses. Only submitted entries may be approved.
const (
	TimeEntryStatusSubmitted = "submitted"
	TimeEntryStatusApproved  = "approved"
)

// TimeEntry is a billable time record.
type TimeEntry struct {
	ID          string     `json:"id"`
	FirmID      string     `json:"firmId"`
	MatterID    *string    `json:"matterId,omitempty"`
	Description string     `json:"description"`
	Minutes     int        `json:"minutes"`
	Status      string     `json:"status"`
	ApprovedBy  *string    `json:"approvedBy,omitempty"`
	ApprovedAt  *time.Time `json:"approvedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// TemplateDraft is the insertable shape of a template version.
type TemplateDraft struct {
	Name    string
	Type    string
	Content string
}

// Template is one immutable row in a copy-on-write version chain. RootID is
// the id of the chain's first version; exactly one row per chain is active.
type Template struct {
	ID        string    `json:"id"`
	FirmID    *string   `json:"firmId,omitempty"` // nil = system template
	RootID    string    `json:"rootId"`
	ParentID  *string   `json:"parentId,omitempty"`
	Version   int       `json:"version"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Content   string    `json:"content"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

// Conflict check resolutions. Pending checks may be cleared or waived once.
const (
	ConflictCheckStatusPending = "pending"
	ConflictCheckStatusCleared = "cleared"
	ConflictCheckStatusWaived  = "waived"
)

// ConflictCheck records a conflict-of-interest screen for a matter.
type ConflictCheck struct {
	ID             string     `json:"id"`
	FirmID         string     `json:"firmId"`
	MatterID       *string    `json:"matterId,omitempty"`
	Subject        string     `json:"subject"`
	Status         string     `json:"status"`
	ResolutionNote *string    `json:"resolutionNote,omitempty"`
	ResolvedBy     *string    `json:"resolvedBy,omitempty"`
	ResolvedAt     *time.Time `json:"resolvedAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// Signature request statuses. Only pending_approval requests may be sent.
const (
	SignatureStatusPendingApproval = "pending_approval"
	SignatureStatusSent            = "sent"
)

// SignatureRequest is a document awaiting signature delivery.
type SignatureRequest struct {
	ID             string     `json:"id"`
	FirmID         string     `json:"firmId"`
	MatterID       *string    `json:"matterId,omitempty"`
	DocumentName   string     `json:"documentName"`
	RecipientEmail string     `json:"recipientEmail"`
	Status         string     `json:"status"`
	SentAt         *time.Time `json:"sentAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// ── Timeline & outbox ─────────────────────────────────────────────────────────

// TimelineEvent is one immutable record in a firm's activity feed.
type TimelineEvent struct {
	ID         string         `json:"id"`
	FirmID     string         `json:"firmId"`
	MatterID   *string        `json:"matterId,omitempty"`
	Type       string         `json:"type"`
	Title      string         `json:"title"`
	ActorType  string         `json:"actorType"`
	EntityType string         `json:"entityType"`
	EntityID   string         `json:"entityId"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
}

// Outbox message states.
const (
	OutboxStatusPending    = "pending"
	OutboxStatusDispatched = "dispatched"
	OutboxStatusFailed     = "failed"
)

// OutboxMessage is a durable downstream job written in the same transaction
// as the mutation that requires it, drained asynchronously by a worker.
type OutboxMessage struct {
	ID           string          `json:"id"`
	FirmID       string          `json:"firmId"`
	Kind         string          `json:"kind"`
	Payload      json.RawMessage `json:"payload"`
	Status       string          `json:"status"`
	Attempts     int             `json:"attempts"`
	LastError    *string         `json:"lastError,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	DispatchedAt *time.Time      `json:"dispatchedAt,omitempty"`
}
