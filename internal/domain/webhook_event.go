package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type WebhookEventStatus string

const (
	WebhookEventStatusPending   WebhookEventStatus = "pending"
	WebhookEventStatusProcessed WebhookEventStatus = "processed"
	WebhookEventStatusFailed    WebhookEventStatus = "failed"
)

type WebhookEventType string

const (
	WebhookEventTypeDepositCompleted    WebhookEventType = "deposit.completed"
	WebhookEventTypeWithdrawalCompleted WebhookEventType = "withdrawal.completed"
)

// WebhookEvent is an inbound payment-provider notification. IdempotencyKey
// is the provider's event id; a duplicate delivery is rejected at insert by
// the unique constraint.
type WebhookEvent struct {
	ID             uuid.UUID
	IdempotencyKey string
	EventType      WebhookEventType
	Payload        json.RawMessage
	Status         WebhookEventStatus
	Attempts       int
	LastAttempt    *time.Time
	CreatedAt      time.Time
}
