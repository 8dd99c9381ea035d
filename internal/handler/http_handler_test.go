package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praxishq/be-pm-approvals/internal/database"
	"github.com/praxishq/be-pm-approvals/internal/errors"
	"github.com/praxishq/be-pm-approvals/internal/execution"
	"github.com/praxishq/be-pm-approvals/internal/logger"
	"github.com/praxishq/be-pm-approvals/internal/repository"
	"github.com/praxishq/be-pm-approvals/internal/service"
)

type stubTx struct{}

func (stubTx) InTransaction(_ context.Context, fn func(tx pgx.Tx) error) error { return fn(nil) }

type stubApprovals struct {
	rows map[string]*repository.ApprovalRequest
}

func (s *stubApprovals) Create(_ context.Context, a *repository.ApprovalRequest) error {
	a.ID = "ap-new"
	a.Status = repository.ApprovalStatusPending
	a.ExecutionStatus = repository.ExecutionNotExecuted
	s.rows[a.ID] = a
	return nil
}

func (s *stubApprovals) GetByID(_ context.Context, firmID, id string) (*repository.ApprovalRequest, error) {
	a, ok := s.rows[id]
	if !ok || a.FirmID != firmID {
		return nil, errors.NotFound("Approval request", id)
	}
	return a, nil
}

func (s *stubApprovals) List(_ context.Context, firmID string, _ *string, _, _ int) ([]*repository.ApprovalRequest, int64, error) {
	var out []*repository.ApprovalRequest
	for _, a := range s.rows {
		if a.FirmID == firmID {
			out = append(out, a)
		}
	}
	return out, int64(len(out)), nil
}

func (s *stubApprovals) GetForUpdate(_ context.Context, _ database.Querier, firmID, id string) (*repository.ApprovalRequest, error) {
	return s.GetByID(context.Background(), firmID, id)
}

func (s *stubApprovals) Finalize(_ context.Context, _ database.Querier, p repository.FinalizeParams) error {
	a := s.rows[p.ID]
	a.Status = p.Status
	a.ExecutionStatus = p.ExecutionStatus
	a.ExecutionError = p.ExecutionError
	return nil
}

type stubDispatcher struct{}

func (stubDispatcher) Execute(_ context.Context, _ execution.Scope, _ *repository.ApprovalRequest) execution.Outcome {
	return execution.Outcome{Status: execution.StatusExecuted}
}

func (stubDispatcher) Supported(string) bool { return true }

type stubMatters struct {
	rows map[string]*repository.Matter
}

func (s *stubMatters) Get(_ context.Context, _ database.Querier, firmID, matterID string) (*repository.Matter, error) {
	m, ok := s.rows[matterID]
	if !ok || m.FirmID != firmID {
		return nil, errors.NotFound("Matter", matterID)
	}
	return m, nil
}

type stubTimeline struct {
	events []*repository.TimelineEvent
}

func (s *stubTimeline) ListByMatter(_ context.Context, firmID, matterID string) ([]*repository.TimelineEvent, error) {
	var out []*repository.TimelineEvent
	for _, e := range s.events {
		if e.FirmID == firmID && e.MatterID != nil && *e.MatterID == matterID {
			out = append(out, e)
		}
	}
	return out, nil
}

func testRouter(approvals *stubApprovals) *mux.Router {
	log := logger.New(logger.Config{Level: "disabled", ServiceName: "test"})
	svc := service.NewDecisionService(stubTx{}, approvals, stubDispatcher{}, nil, log)

	m1 := "m1"
	matters := &stubMatters{rows: map[string]*repository.Matter{
		"m1": {ID: "m1", FirmID: "firm-a", Title: "Estate of Doe"},
	}}
	timeline := &stubTimeline{events: []*repository.TimelineEvent{
		{ID: "ev1", FirmID: "firm-a", MatterID: &m1, Type: "task.created", Title: "Created 2 task(s)"},
	}}
	tl := service.NewTimelineService(nil, matters, timeline, log)

	r := mux.NewRouter()
	NewHTTPHandler(svc, tl, log).RegisterRoutes(r)
	return r
}

func doRequest(t *testing.T, r *mux.Router, method, path, firmID, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if firmID != "" {
		req.Header.Set(firmHeader, firmID)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func seeded() *stubApprovals {
	decided := &repository.ApprovalRequest{
		ID: "ap-decided", FirmID: "firm-a", Action: "invoice.send",
		Status: repository.ApprovalStatusRejected,
	}
	pending := &repository.ApprovalRequest{
		ID: "ap-pending", FirmID: "firm-a", Action: "invoice.send",
		Status: repository.ApprovalStatusPending,
	}
	return &stubApprovals{rows: map[string]*repository.ApprovalRequest{
		decided.ID: decided,
		pending.ID: pending,
	}}
}

func TestMissingFirmHeaderIsBadRequest(t *testing.T) {
	r := testRouter(seeded())

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/api/v1/approvals"},
		{http.MethodGet, "/api/v1/approvals"},
		{http.MethodGet, "/api/v1/approvals/ap-pending"},
		{http.MethodPost, "/api/v1/approvals/ap-pending/approve"},
		{http.MethodPost, "/api/v1/approvals/ap-pending/reject"},
		{http.MethodPost, "/api/v1/approvals/bulk-approve"},
		{http.MethodGet, "/api/v1/matters/m1/timeline"},
	} {
		rec := doRequest(t, r, tc.method, tc.path, "", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, "%s %s", tc.method, tc.path)
	}
}

func TestSubmitApproval(t *testing.T) {
	approvals := seeded()
	r := testRouter(approvals)

	rec := doRequest(t, r, http.MethodPost, "/api/v1/approvals", "firm-a",
		`{"sourceType":"ai","sourceId":"agent-1","action":"invoice.send","summary":"Send INV-001"}`)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"status":"pending"`)
	assert.Contains(t, approvals.rows, "ap-new")
}

func TestSubmitApprovalValidationIs400(t *testing.T) {
	r := testRouter(seeded())

	rec := doRequest(t, r, http.MethodPost, "/api/v1/approvals", "firm-a",
		`{"sourceType":"ai","sourceId":"agent-1","summary":"no action"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetApprovalNotFoundIs404(t *testing.T) {
	r := testRouter(seeded())

	rec := doRequest(t, r, http.MethodGet, "/api/v1/approvals/ap-missing", "firm-a", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetApprovalCrossFirmIs404(t *testing.T) {
	r := testRouter(seeded())

	rec := doRequest(t, r, http.MethodGet, "/api/v1/approvals/ap-pending", "firm-b", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestApprove(t *testing.T) {
	r := testRouter(seeded())

	rec := doRequest(t, r, http.MethodPost, "/api/v1/approvals/ap-pending/approve", "firm-a",
		`{"decidedBy":"user-7"}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"executionStatus":"executed"`)
}

func TestApproveAlreadyDecidedIs409(t *testing.T) {
	r := testRouter(seeded())

	rec := doRequest(t, r, http.MethodPost, "/api/v1/approvals/ap-decided/approve", "firm-a",
		`{"decidedBy":"user-7"}`)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "already been decided")
}

func TestReject(t *testing.T) {
	r := testRouter(seeded())

	rec := doRequest(t, r, http.MethodPost, "/api/v1/approvals/ap-pending/reject", "firm-a",
		`{"decidedBy":"user-7","reason":"duplicate"}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"status":"rejected"`)
}

func TestBulkApproveReportsPerItem(t *testing.T) {
	r := testRouter(seeded())

	rec := doRequest(t, r, http.MethodPost, "/api/v1/approvals/bulk-approve", "firm-a",
		`{"approvalIds":["ap-pending","ap-decided"],"decidedBy":"user-7"}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := rec.Body.String()
	assert.Contains(t, body, `"executionStatus":"executed"`)
	assert.Contains(t, body, "already been decided")
}

func TestBulkApproveEmptyIdsIs400(t *testing.T) {
	r := testRouter(seeded())

	rec := doRequest(t, r, http.MethodPost, "/api/v1/approvals/bulk-approve", "firm-a",
		`{"approvalIds":[],"decidedBy":"user-7"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMatterTimeline(t *testing.T) {
	r := testRouter(seeded())

	rec := doRequest(t, r, http.MethodGet, "/api/v1/matters/m1/timeline", "firm-a", "")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"task.created"`)
	assert.Contains(t, rec.Body.String(), `"matterId":"m1"`)
}

func TestMatterTimelineUnknownMatterIs404(t *testing.T) {
	r := testRouter(seeded())

	rec := doRequest(t, r, http.MethodGet, "/api/v1/matters/m-missing/timeline", "firm-a", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMatterTimelineCrossFirmIs404(t *testing.T) {
	r := testRouter(seeded())

	rec := doRequest(t, r, http.MethodGet, "/api/v1/matters/m1/timeline", "firm-b", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListApprovals(t *testing.T) {
	r := testRouter(seeded())

	rec := doRequest(t, r, http.MethodGet, "/api/v1/approvals?status=pending", "firm-a", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":2`)
}
