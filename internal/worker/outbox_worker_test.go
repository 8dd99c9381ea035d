package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praxishq/be-pm-approvals/internal/database"
	"github.com/praxishq/be-pm-approvals/internal/logger"
	"github.com/praxishq/be-pm-approvals/internal/repository"
)

type fakeTxRunner struct {
	began int
}

func (f *fakeTxRunner) InTransaction(_ context.Context, fn func(tx pgx.Tx) error) error {
	f.began++
	return fn(nil)
}

type fakeOutboxStore struct {
	pending    []*repository.OutboxMessage
	dispatched []string
	failed     map[string]string
}

func (f *fakeOutboxStore) ListPending(_ context.Context, _ database.Querier, limit int) ([]*repository.OutboxMessage, error) {
	if len(f.pending) > limit {
		return f.pending[:limit], nil
	}
	return f.pending, nil
}

func (f *fakeOutboxStore) MarkDispatched(_ context.Context, _ database.Querier, id string) error {
	f.dispatched = append(f.dispatched, id)
	remaining := make([]*repository.OutboxMessage, 0, len(f.pending))
	for _, m := range f.pending {
		if m.ID != id {
			remaining = append(remaining, m)
		}
	}
	f.pending = remaining
	return nil
}

func (f *fakeOutboxStore) MarkFailed(_ context.Context, _ database.Querier, id, lastError string) error {
	if f.failed == nil {
		f.failed = map[string]string{}
	}
	f.failed[id] = lastError
	return nil
}

type fakePublisher struct {
	published map[string][]byte
	failOn    map[string]bool
}

func (f *fakePublisher) Publish(_ context.Context, subject string, data []byte) error {
	if f.failOn[subject] {
		return fmt.Errorf("nats: no responders available for request")
	}
	if f.published == nil {
		f.published = map[string][]byte{}
	}
	f.published[subject] = data
	return nil
}

func msg(id, kind string) *repository.OutboxMessage {
	return &repository.OutboxMessage{
		ID: id, FirmID: "firm-a", Kind: kind,
		Payload: json.RawMessage(fmt.Sprintf(`{"id":%q}`, id)),
		Status:  repository.OutboxStatusPending,
	}
}

func newWorker(store *fakeOutboxStore, pub *fakePublisher, batchSize int) (*OutboxWorker, *fakeTxRunner) {
	tx := &fakeTxRunner{}
	log := logger.New(logger.Config{Level: "disabled", ServiceName: "test"})
	return NewOutboxWorker(tx, store, pub, time.Second, batchSize, log), tx
}

func TestDrainOncePublishesAndMarksDispatched(t *testing.T) {
	store := &fakeOutboxStore{pending: []*repository.OutboxMessage{
		msg("m1", "signature_request.deliver"),
		msg("m2", "signature_request.deliver"),
	}}
	pub := &fakePublisher{}
	w, tx := newWorker(store, pub, 50)

	w.drainOnce(context.Background())

	assert.Equal(t, []string{"m1", "m2"}, store.dispatched)
	assert.Empty(t, store.pending)
	require.Contains(t, pub.published, "approvals.outbox.signature_request.deliver")
	assert.Equal(t, 1, tx.began, "one batch is claimed and marked in one transaction")
}

func TestDrainOnceFailedPublishStaysPending(t *testing.T) {
	store := &fakeOutboxStore{pending: []*repository.OutboxMessage{
		msg("m1", "signature_request.deliver"),
	}}
	pub := &fakePublisher{failOn: map[string]bool{"approvals.outbox.signature_request.deliver": true}}
	w, _ := newWorker(store, pub, 50)

	w.drainOnce(context.Background())

	assert.Empty(t, store.dispatched)
	require.Len(t, store.pending, 1, "failed messages are retried on the next poll")
	assert.Contains(t, store.failed["m1"], "no responders")
}

func TestDrainOnceRespectsBatchSize(t *testing.T) {
	store := &fakeOutboxStore{}
	for i := 0; i < 5; i++ {
		store.pending = append(store.pending, msg(fmt.Sprintf("m%d", i), "signature_request.deliver"))
	}
	pub := &fakePublisher{}
	w, _ := newWorker(store, pub, 2)

	w.drainOnce(context.Background())

	assert.Len(t, store.dispatched, 2)
	assert.Len(t, store.pending, 3)
}

func TestNewOutboxWorkerDefaults(t *testing.T) {
	log := logger.New(logger.Config{Level: "disabled", ServiceName: "test"})
	w := NewOutboxWorker(&fakeTxRunner{}, &fakeOutboxStore{}, &fakePublisher{}, 0, 0, log)

	assert.Equal(t, 5*time.Second, w.interval)
	assert.Equal(t, 50, w.batchSize)
}
