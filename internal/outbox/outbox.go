// Package outbox implements the transactional outbox for side effects.
// Billing events and webhook tasks are inserted in the same transaction as
// the workflow state write, so an enqueue is never lost on commit; a worker
// publishes them afterwards. Kafka carries billing events, a Redis list
// carries webhook delivery tasks.
package outbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Kind routes an entry to its downstream channel.
type Kind string

const (
	KindBilling Kind = "billing"
	KindWebhook Kind = "webhook"
)

// Entry is one pending side effect.
type Entry struct {
	ID          uuid.UUID
	Kind        Kind
	AggregateID string
	Payload     json.RawMessage
	CreatedAt   time.Time
	PublishedAt *time.Time
}

// NewEntry builds an unpublished entry with a marshaled payload.
func NewEntry(kind Kind, aggregateID string, payload any, now time.Time) (Entry, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Entry{}, err
	}
	return Entry{
		ID:          uuid.New(),
		Kind:        kind,
		AggregateID: aggregateID,
		Payload:     raw,
		CreatedAt:   now,
	}, nil
}

// BillingEvent is the payload published to the billing topic.
type BillingEvent struct {
	WorkflowID string    `json:"workflow_id"`
	TenantID   string    `json:"tenant_id"`
	Product    string    `json:"product"`
	OccurredAt time.Time `json:"occurred_at"`
}

// WebhookTask is the payload pushed onto the webhook delivery queue. It
// carries the new composite status so the delivery layer needs no read-back.
type WebhookTask struct {
	WorkflowID     string    `json:"workflow_id"`
	TenantID       string    `json:"tenant_id"`
	Status         string    `json:"status"`
	RequiresReview bool      `json:"requires_review"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// Store persists outbox entries. Enqueue must participate in the caller's
// transaction via pkg/platform/tx.
type Store interface {
	Enqueue(ctx context.Context, entry Entry) error
	ListUnpublished(ctx context.Context, limit int) ([]Entry, error)
	MarkPublished(ctx context.Context, entryID uuid.UUID, now time.Time) error
}
