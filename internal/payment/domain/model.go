// Package domain defines the canonical subscription event parsed by payment
// provider adapters, and the dedupe record for received webhooks.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	subscriptiondomain "github.com/inkwavehq/inkwave/internal/subscription/domain"
	"gorm.io/datatypes"
)

const (
	ProviderStripe = "stripe"
	ProviderPaddle = "paddle"
	ProviderFatora = "fatora"
)

// EventType classifies provider events after parsing.
type EventType string

const (
	EventSubscriptionCreated   EventType = "subscription_created"
	EventSubscriptionUpdated   EventType = "subscription_updated"
	EventSubscriptionCancelled EventType = "subscription_cancelled"
	EventSubscriptionDeleted   EventType = "subscription_deleted"
	EventPaymentSucceeded      EventType = "payment_succeeded"
	EventPaymentFailed         EventType = "payment_failed"
	EventCheckoutCompleted     EventType = "checkout_completed"
)

// SubscriptionEvent is the provider-agnostic event adapters produce.
// UserID is set when the payload carries it directly; otherwise the webhook
// service resolves the user from the provider identifiers or the order id.
type SubscriptionEvent struct {
	Provider               string
	ProviderEventID        string
	Type                   EventType
	UserID                 string
	OrderID                string
	Plan                   subscriptiondomain.Plan
	Status                 subscriptiondomain.Status
	ProviderCustomerID     string
	ProviderSubscriptionID string
	PeriodStart            *time.Time
	PeriodEnd              *time.Time
	OccurredAt             time.Time
	RawPayload             []byte
}

// WebhookEvent records every accepted provider event, keyed by the provider's
// own event id so replays reconcile to a no-op.
type WebhookEvent struct {
	ID              snowflake.ID   `json:"id" gorm:"primaryKey"`
	Provider        string         `json:"provider" gorm:"type:text;not null;uniqueIndex:idx_webhook_provider_event,priority:1"`
	ProviderEventID string         `json:"provider_event_id" gorm:"type:text;not null;uniqueIndex:idx_webhook_provider_event,priority:2"`
	EventType       string         `json:"event_type" gorm:"type:text;not null"`
	UserID          string         `json:"user_id" gorm:"type:text;index"`
	Payload         datatypes.JSON `json:"payload" gorm:"type:jsonb"`
	ReceivedAt      time.Time      `json:"received_at" gorm:"not null"`
	ProcessedAt     *time.Time     `json:"processed_at"`
}

// TableName sets the database table name.
func (WebhookEvent) TableName() string { return "webhook_events" }
