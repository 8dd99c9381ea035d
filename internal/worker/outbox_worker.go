// Package worker drains the transactional outbox to NATS JetStream.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/praxishq/be-pm-approvals/internal/database"
	"github.com/praxishq/be-pm-approvals/internal/logger"
	"github.com/praxishq/be-pm-approvals/internal/repository"
)

// Publisher is the messaging surface the worker needs.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// TxRunner runs a function inside a storage transaction.
type TxRunner interface {
	InTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// OutboxStore is the outbox persistence the worker needs. Every method runs
// on the drain transaction so the SKIP LOCKED claim holds until commit.
type OutboxStore interface {
	ListPending(ctx context.Context, q database.Querier, limit int) ([]*repository.OutboxMessage, error)
	MarkDispatched(ctx context.Context, q database.Querier, id string) error
	MarkFailed(ctx context.Context, q database.Querier, id, lastError string) error
}

// OutboxWorker polls pending outbox messages and publishes them downstream.
// Each batch is claimed, published and marked inside one transaction: the
// claim keeps concurrent workers on disjoint batches, and delivery is
// at-least-once because a crash between publish and commit republishes.
type OutboxWorker struct {
	tx        TxRunner
	outbox    OutboxStore
	publisher Publisher
	interval  time.Duration
	batchSize int
	log       *logger.Logger
}

// NewOutboxWorker creates a new OutboxWorker.
func NewOutboxWorker(tx TxRunner, outbox OutboxStore, publisher Publisher, interval time.Duration, batchSize int, log *logger.Logger) *OutboxWorker {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 50
	}
	return &OutboxWorker{
		tx:        tx,
		outbox:    outbox,
		publisher: publisher,
		interval:  interval,
		batchSize: batchSize,
		log:       log,
	}
}

// Run polls until ctx is cancelled.
func (w *OutboxWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.Info().Dur("interval", w.interval).Msg("Outbox worker started")
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Outbox worker stopped")
			return
		case <-ticker.C:
			w.drainOnce(ctx)
		}
	}
}

// drainOnce claims and publishes one batch of pending messages.
func (w *OutboxWorker) drainOnce(ctx context.Context) {
	err := w.tx.InTransaction(ctx, func(tx pgx.Tx) error {
		msgs, err := w.outbox.ListPending(ctx, tx, w.batchSize)
		if err != nil {
			return err
		}

		for _, msg := range msgs {
			subject := fmt.Sprintf("approvals.outbox.%s", msg.Kind)
			if err := w.publisher.Publish(ctx, subject, msg.Payload); err != nil {
				w.log.Warn().Err(err).
					Str("message_id", msg.ID).
					Str("subject", subject).
					Msg("outbox: publish failed; message stays pending")
				if markErr := w.outbox.MarkFailed(ctx, tx, msg.ID, err.Error()); markErr != nil {
					return markErr
				}
				continue
			}
			if err := w.outbox.MarkDispatched(ctx, tx, msg.ID); err != nil {
				// The publish already went out; consumers must tolerate the
				// duplicate the retry will produce.
				return err
			}
			w.log.Debug().
				Str("message_id", msg.ID).
				Str("subject", subject).
				Msg("outbox: message dispatched")
		}
		return nil
	})
	if err != nil {
		w.log.Warn().Err(err).Msg("outbox: drain cycle failed")
	}
}
