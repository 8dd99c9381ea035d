package execution

import (
	"context"
	"strconv"
	"time"

	"github.com/praxishq/be-pm-approvals/internal/database"
	"github.com/praxishq/be-pm-approvals/internal/errors"
	"github.com/praxishq/be-pm-approvals/internal/repository"
)

// fakeState is an in-memory stand-in for firm-scoped storage. It mirrors the
// repositories' semantics: lookups filter by firm id, transitions enforce the
// same status guards the SQL does.
type fakeState struct {
	matters        map[string]*repository.Matter
	invoices       map[string]*repository.Invoice
	timeEntries    map[string]*repository.TimeEntry
	templates      map[string]*repository.Template
	conflictChecks map[string]*repository.ConflictCheck
	signatures     map[string]*repository.SignatureRequest

	tasks    []*repository.Task
	events   []*repository.CalendarEvent
	timeline []*repository.TimelineEvent
	outbox   []*repository.OutboxMessage

	reads  int
	writes int
}

func newFakeState() *fakeState {
	return &fakeState{
		matters:        map[string]*repository.Matter{},
		invoices:       map[string]*repository.Invoice{},
		timeEntries:    map[string]*repository.TimeEntry{},
		templates:      map[string]*repository.Template{},
		conflictChecks: map[string]*repository.ConflictCheck{},
		signatures:     map[string]*repository.SignatureRequest{},
	}
}

func (f *fakeState) stores() Stores {
	return Stores{
		Matters:           (*fakeMatters)(f),
		Tasks:             (*fakeTasks)(f),
		CalendarEvents:    (*fakeEvents)(f),
		Invoices:          (*fakeInvoices)(f),
		TimeEntries:       (*fakeTimeEntries)(f),
		Templates:         (*fakeTemplates)(f),
		ConflictChecks:    (*fakeConflictChecks)(f),
		SignatureRequests: (*fakeSignatures)(f),
		Timeline:          (*fakeTimeline)(f),
		Outbox:            (*fakeOutbox)(f),
	}
}

func (f *fakeState) touched() bool { return f.reads > 0 || f.writes > 0 }

type fakeMatters fakeState

func (f *fakeMatters) Exists(_ context.Context, _ database.Querier, firmID, matterID string) (bool, error) {
	f.reads++
	m, ok := f.matters[matterID]
	return ok && m.FirmID == firmID, nil
}

type fakeTasks fakeState

func (f *fakeTasks) CreateBatch(_ context.Context, _ database.Querier, firmID, matterID string, drafts []repository.TaskDraft) ([]string, error) {
	f.writes++
	ids := make([]string, 0, len(drafts))
	for i, d := range drafts {
		id := "task-" + strconv.Itoa(len(f.tasks)+1)
		f.tasks = append(f.tasks, &repository.Task{
			ID: id, FirmID: firmID, MatterID: matterID,
			Title: d.Title, Description: d.Description, DueAt: d.DueAt, Position: i,
			Status: "open",
		})
		ids = append(ids, id)
	}
	return ids, nil
}

type fakeEvents fakeState

func (f *fakeEvents) CreateBatch(_ context.Context, _ database.Querier, firmID, matterID string, drafts []repository.CalendarEventDraft) ([]string, error) {
	f.writes++
	ids := make([]string, 0, len(drafts))
	for _, d := range drafts {
		id := "event-" + strconv.Itoa(len(f.events)+1)
		f.events = append(f.events, &repository.CalendarEvent{
			ID: id, FirmID: firmID, MatterID: matterID,
			Title: d.Title, StartAt: d.StartAt, EndAt: d.EndAt, Location: d.Location,
		})
		ids = append(ids, id)
	}
	return ids, nil
}

type fakeInvoices fakeState

func (f *fakeInvoices) Get(_ context.Context, _ database.Querier, firmID, id string) (*repository.Invoice, error) {
	f.reads++
	inv, ok := f.invoices[id]
	if !ok || inv.FirmID != firmID {
		return nil, errors.NotFound("Invoice", id)
	}
	return inv, nil
}

func (f *fakeInvoices) MarkSent(_ context.Context, _ database.Querier, firmID, id string) error {
	f.writes++
	inv, ok := f.invoices[id]
	if !ok || inv.FirmID != firmID || inv.Status != repository.InvoiceStatusDraft {
		return errors.New(errors.ErrCodeConflict, "Only draft invoices can be sent")
	}
	now := time.Now()
	inv.Status = repository.InvoiceStatusSent
	inv.SentAt = &now
	return nil
}

type fakeTimeEntries fakeState

func (f *fakeTimeEntries) Get(_ context.Context, _ database.Querier, firmID, id string) (*repository.TimeEntry, error) {
	f.reads++
	te, ok := f.timeEntries[id]
	if !ok || te.FirmID != firmID {
		return nil, errors.NotFound("Time entry", id)
	}
	return te, nil
}

func (f *fakeTimeEntries) Approve(_ context.Context, _ database.Querier, firmID, id, approvedBy string) error {
	f.writes++
	te, ok := f.timeEntries[id]
	if !ok || te.FirmID != firmID || te.Status != repository.TimeEntryStatusSubmitted {
		return errors.New(errors.ErrCodeConflict, "Only submitted time entries can be approved")
	}
	now := time.Now()
	te.Status = repository.TimeEntryStatusApproved
	te.ApprovedBy = &approvedBy
	te.ApprovedAt = &now
	return nil
}

type fakeTemplates fakeState

func (f *fakeTemplates) GetCurrent(_ context.Context, _ database.Querier, firmID, id string) (*repository.Template, error) {
	f.reads++
	var rootID string
	for _, t := range f.templates {
		if (t.ID == id || t.RootID == id) && (t.FirmID == nil || *t.FirmID == firmID) {
			rootID = t.RootID
			break
		}
	}
	for _, t := range f.templates {
		if t.RootID == rootID && rootID != "" && t.IsActive && (t.FirmID == nil || *t.FirmID == firmID) {
			return t, nil
		}
	}
	return nil, errors.NotFound("Template", id)
}

func (f *fakeTemplates) CreateVersion(_ context.Context, _ database.Querier, firmID string, draft repository.TemplateDraft) (*repository.Template, error) {
	f.writes++
	id := "tpl-" + strconv.Itoa(len(f.templates)+1)
	t := &repository.Template{
		ID: id, FirmID: &firmID, RootID: id, Version: 1,
		Name: draft.Name, Type: draft.Type, Content: draft.Content, IsActive: true,
	}
	f.templates[id] = t
	return t, nil
}

func (f *fakeTemplates) CreateSuccessor(_ context.Context, _ database.Querier, firmID string, prior *repository.Template, draft repository.TemplateDraft) (*repository.Template, error) {
	f.writes++
	if prior.FirmID == nil || *prior.FirmID != firmID || !prior.IsActive {
		return nil, errors.New(errors.ErrCodeConflict, "template version is no longer current")
	}
	prior.IsActive = false
	id := "tpl-" + strconv.Itoa(len(f.templates)+1)
	t := &repository.Template{
		ID: id, FirmID: &firmID, RootID: prior.RootID, ParentID: &prior.ID,
		Version: prior.Version + 1,
		Name:    draft.Name, Type: draft.Type, Content: draft.Content, IsActive: true,
	}
	f.templates[id] = t
	return t, nil
}

type fakeConflictChecks fakeState

func (f *fakeConflictChecks) Get(_ context.Context, _ database.Querier, firmID, id string) (*repository.ConflictCheck, error) {
	f.reads++
	cc, ok := f.conflictChecks[id]
	if !ok || cc.FirmID != firmID {
		return nil, errors.NotFound("Conflict check", id)
	}
	return cc, nil
}

func (f *fakeConflictChecks) Resolve(_ context.Context, _ database.Querier, firmID, id, resolution string, note *string, resolvedBy string) error {
	f.writes++
	cc, ok := f.conflictChecks[id]
	if !ok || cc.FirmID != firmID || cc.Status != repository.ConflictCheckStatusPending {
		return errors.New(errors.ErrCodeConflict, "Conflict check is already resolved")
	}
	now := time.Now()
	cc.Status = resolution
	cc.ResolutionNote = note
	cc.ResolvedBy = &resolvedBy
	cc.ResolvedAt = &now
	return nil
}

type fakeSignatures fakeState

func (f *fakeSignatures) Get(_ context.Context, _ database.Querier, firmID, id string) (*repository.SignatureRequest, error) {
	f.reads++
	sr, ok := f.signatures[id]
	if !ok || sr.FirmID != firmID {
		return nil, errors.NotFound("Signature request", id)
	}
	return sr, nil
}

func (f *fakeSignatures) MarkSent(_ context.Context, _ database.Querier, firmID, id string) error {
	f.writes++
	sr, ok := f.signatures[id]
	if !ok || sr.FirmID != firmID || sr.Status != repository.SignatureStatusPendingApproval {
		return errors.New(errors.ErrCodeConflict, "Only signature requests pending approval can be sent")
	}
	now := time.Now()
	sr.Status = repository.SignatureStatusSent
	sr.SentAt = &now
	return nil
}

type fakeTimeline fakeState

func (f *fakeTimeline) Record(_ context.Context, _ database.Querier, event *repository.TimelineEvent) error {
	f.writes++
	f.timeline = append(f.timeline, event)
	return nil
}

type fakeOutbox fakeState

func (f *fakeOutbox) Append(_ context.Context, _ database.Querier, msg *repository.OutboxMessage) error {
	f.writes++
	msg.Status = repository.OutboxStatusPending
	f.outbox = append(f.outbox, msg)
	return nil
}
