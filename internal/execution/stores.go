package execution

import (
	"context"

	"github.com/praxishq/be-pm-approvals/internal/database"
	"github.com/praxishq/be-pm-approvals/internal/repository"
)

// Store interfaces the engine depends on. The pgx repositories satisfy them;
// tests substitute in-memory fakes. Every method takes the scope's querier so
// checker reads and executor writes share the caller's transaction.

// MatterStore checks matter existence under the firm scope.
type MatterStore interface {
	Exists(ctx context.Context, q database.Querier, firmID, matterID string) (bool, error)
}

// TaskStore inserts tasks in batch.
type TaskStore interface {
	CreateBatch(ctx context.Context, q database.Querier, firmID, matterID string, drafts []repository.TaskDraft) ([]string, error)
}

// CalendarEventStore inserts calendar events in batch.
type CalendarEventStore interface {
	CreateBatch(ctx context.Context, q database.Querier, firmID, matterID string, drafts []repository.CalendarEventDraft) ([]string, error)
}

// InvoiceStore loads invoices and applies the send transition.
type InvoiceStore interface {
	Get(ctx context.Context, q database.Querier, firmID, id string) (*repository.Invoice, error)
	MarkSent(ctx context.Context, q database.Querier, firmID, id string) error
}

// TimeEntryStore loads time entries and applies the approve transition.
type TimeEntryStore interface {
	Get(ctx context.Context, q database.Querier, firmID, id string) (*repository.TimeEntry, error)
	Approve(ctx context.Context, q database.Querier, firmID, id, approvedBy string) error
}

// TemplateStore manages the copy-on-write template version chain.
type TemplateStore interface {
	GetCurrent(ctx context.Context, q database.Querier, firmID, id string) (*repository.Template, error)
	CreateVersion(ctx context.Context, q database.Querier, firmID string, draft repository.TemplateDraft) (*repository.Template, error)
	CreateSuccessor(ctx context.Context, q database.Querier, firmID string, prior *repository.Template, draft repository.TemplateDraft) (*repository.Template, error)
}

// ConflictCheckStore loads conflict checks and applies terminal resolutions.
type ConflictCheckStore interface {
	Get(ctx context.Context, q database.Querier, firmID, id string) (*repository.ConflictCheck, error)
	Resolve(ctx context.Context, q database.Querier, firmID, id, resolution string, note *string, resolvedBy string) error
}

// SignatureRequestStore loads signature requests and applies the send
// transition.
type SignatureRequestStore interface {
	Get(ctx context.Context, q database.Querier, firmID, id string) (*repository.SignatureRequest, error)
	MarkSent(ctx context.Context, q database.Querier, firmID, id string) error
}

// TimelineStore appends domain events.
type TimelineStore interface {
	Record(ctx context.Context, q database.Querier, event *repository.TimelineEvent) error
}

// OutboxStore appends durable downstream messages.
type OutboxStore interface {
	Append(ctx context.Context, q database.Querier, msg *repository.OutboxMessage) error
}

// Stores bundles every store the executors need.
type Stores struct {
	Matters           MatterStore
	Tasks             TaskStore
	CalendarEvents    CalendarEventStore
	Invoices          InvoiceStore
	TimeEntries       TimeEntryStore
	Templates         TemplateStore
	ConflictChecks    ConflictCheckStore
	SignatureRequests SignatureRequestStore
	Timeline          TimelineStore
	Outbox            OutboxStore
}
