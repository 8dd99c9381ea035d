package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/praxishq/be-pm-approvals/internal/database"
	"github.com/praxishq/be-pm-approvals/internal/errors"
)

// OutboxRepository manages durable downstream messages. Appends run on the
// engine's transaction. The drain worker claims rows with SKIP LOCKED inside
// its own transaction, so the claim holds for the whole publish-and-mark
// cycle and concurrent workers pick disjoint batches. Delivery stays
// at-least-once: a crash after publish but before commit republishes.
type OutboxRepository struct {
	db *database.DB
}

// NewOutboxRepository creates a new OutboxRepository.
func NewOutboxRepository(db *database.DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

// Append inserts a pending outbox message on the caller's transaction.
func (r *OutboxRepository) Append(ctx context.Context, q database.Querier, msg *OutboxMessage) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	msg.Status = OutboxStatusPending

	query := `
		INSERT INTO outbox_messages (id, firm_id, kind, payload, status)
		VALUES ($1, $2, $3, $4, 'pending')
		RETURNING created_at
	`

	err := q.QueryRow(ctx, query, msg.ID, msg.FirmID, msg.Kind, msg.Payload).Scan(&msg.CreatedAt)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to append outbox message")
	}
	return nil
}

// ListPending returns up to limit undispatched messages, oldest first,
// skipping rows another worker has claimed. The row locks only mean anything
// inside a transaction, so q must be the drain transaction.
func (r *OutboxRepository) ListPending(ctx context.Context, q database.Querier, limit int) ([]*OutboxMessage, error) {
	query := `
		SELECT id, firm_id, kind, payload, status, attempts, last_error,
		       created_at, dispatched_at
		FROM outbox_messages
		WHERE status = 'pending'
		ORDER BY created_at ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`

	rows, err := q.Query(ctx, query, limit)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to list pending outbox messages")
	}
	defer rows.Close()

	var msgs []*OutboxMessage
	for rows.Next() {
		msg := &OutboxMessage{}
		err := rows.Scan(
			&msg.ID,
			&msg.FirmID,
			&msg.Kind,
			&msg.Payload,
			&msg.Status,
			&msg.Attempts,
			&msg.LastError,
			&msg.CreatedAt,
			&msg.DispatchedAt,
		)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan outbox message")
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// MarkDispatched records a successful publish on the drain transaction.
func (r *OutboxRepository) MarkDispatched(ctx context.Context, q database.Querier, id string) error {
	query := `
		UPDATE outbox_messages
		SET status        = 'dispatched',
		    attempts      = attempts + 1,
		    dispatched_at = NOW()
		WHERE id = $1
	`
	if _, err := q.Exec(ctx, query, id); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to mark outbox message dispatched")
	}
	return nil
}

// MarkFailed bumps the attempt counter and records the publish error; the
// message stays pending for retry.
func (r *OutboxRepository) MarkFailed(ctx context.Context, q database.Querier, id, lastError string) error {
	query := `
		UPDATE outbox_messages
		SET attempts   = attempts + 1,
		    last_error = $2
		WHERE id = $1
	`
	if _, err := q.Exec(ctx, query, id, lastError); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to mark outbox message failed")
	}
	return nil
}
