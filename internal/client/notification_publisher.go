package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/praxishq/be-pm-approvals/internal/natsclient"
)

// NotificationPublisher publishes approval decision events to NATS JetStream
// for consumption by the notifications service.
//
// Subject convention: notifications.approvals.<event_type>
// Event types: approval_approved, approval_rejected, approval_failed
//
// All publish operations are non-fatal — errors are logged but never
// propagated to the caller, so notification failures never interrupt
// decision handling. Durable side effects go through the outbox instead.
type NotificationPublisher struct {
	nats *natsclient.Client
	log  zerolog.Logger
}

// NotificationEvent is the JSON schema published to NATS.
type NotificationEvent struct {
	EventType       string         `json:"event_type"`
	FirmID          string         `json:"firm_id"`
	ActorID         string         `json:"actor_id"`
	ApprovalID      string         `json:"approval_id"`
	Action          string         `json:"action"`
	ExecutionStatus string         `json:"execution_status"`
	Payload         map[string]any `json:"payload,omitempty"`
}

// NewNotificationPublisher creates a publisher backed by the given NATS
// client. A nil client disables publishing.
func NewNotificationPublisher(nats *natsclient.Client, log zerolog.Logger) *NotificationPublisher {
	return &NotificationPublisher{nats: nats, log: log}
}

// PublishDecisionEvent publishes an approval decision event to NATS.
// Subject: notifications.approvals.<eventType>
func (p *NotificationPublisher) PublishDecisionEvent(ctx context.Context, eventType, firmID, actorID, approvalID, action, executionStatus string, payload map[string]any) {
	if p == nil || p.nats == nil {
		return
	}

	event := &NotificationEvent{
		EventType:       eventType,
		FirmID:          firmID,
		ActorID:         actorID,
		ApprovalID:      approvalID,
		Action:          action,
		ExecutionStatus: executionStatus,
		Payload:         payload,
	}

	data, err := json.Marshal(event)
	if err != nil {
		p.log.Warn().Err(err).Str("event_type", eventType).Msg("notification: failed to marshal event")
		return
	}

	subject := fmt.Sprintf("notifications.approvals.%s", eventType)
	if err := p.nats.Publish(ctx, subject, data); err != nil {
		p.log.Warn().Err(err).
			Str("subject", subject).
			Str("approval_id", approvalID).
			Msg("notification: failed to publish NATS event (non-fatal)")
		return
	}

	p.log.Debug().
		Str("subject", subject).
		Str("approval_id", approvalID).
		Msg("notification: event published")
}
