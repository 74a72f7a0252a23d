package domain

import (
	"context"
	"errors"
	"net/http"
)

// ProviderAdapter verifies and parses one provider's webhook payloads.
type ProviderAdapter interface {
	Provider() string
	Verify(ctx context.Context, payload []byte, headers http.Header) error
	Parse(ctx context.Context, payload []byte, headers http.Header) (*SubscriptionEvent, error)
}

// Service ingests provider webhooks.
type Service interface {
	IngestWebhook(ctx context.Context, provider string, payload []byte, headers http.Header) error
}

var (
	ErrInvalidProvider       = errors.New("invalid_provider")
	ErrProviderNotFound      = errors.New("provider_not_found")
	ErrInvalidPayload        = errors.New("invalid_payload")
	ErrInvalidSignature      = errors.New("invalid_signature")
	ErrInvalidEvent          = errors.New("invalid_event")
	ErrInvalidOrderID        = errors.New("invalid_order_id")
	ErrEventIgnored          = errors.New("event_ignored")
	ErrEventAlreadyProcessed = errors.New("event_already_processed")
	ErrUnknownUser           = errors.New("unknown_user")
)
