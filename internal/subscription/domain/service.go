package domain

import (
	"context"
	"errors"
	"time"
)

// UpdateRequest carries the provider-agnostic subscription state derived from
// a checkout or a reconciled provider event.
type UpdateRequest struct {
	UserID                 string
	Plan                   Plan
	Status                 Status
	Provider               string
	ProviderCustomerID     string
	ProviderSubscriptionID string
	PeriodStart            *time.Time
	PeriodEnd              *time.Time
	// Renewal marks a recurring payment on an existing plan; activation then
	// resets the credit period instead of adjusting the ceiling.
	Renewal bool
}

type Service interface {
	Get(ctx context.Context, userID string) (*Subscription, error)
	// ResolveUser maps provider-side identifiers back to the owning user.
	ResolveUser(ctx context.Context, provider, customerID, subscriptionID string) (string, error)
	// BeginCheckout records the pending row created at checkout initiation.
	BeginCheckout(ctx context.Context, userID string, plan Plan, provider string) (*Subscription, error)
	// Apply upserts the subscription row and reconciles the credit balance
	// when the subscription becomes active.
	Apply(ctx context.Context, req UpdateRequest) (*Subscription, error)
	// Deactivate resets the user to the free plan after an upstream deletion.
	Deactivate(ctx context.Context, userID string) error
}

var (
	ErrNotFound        = errors.New("subscription_not_found")
	ErrInvalidPlan     = errors.New("invalid_plan")
	ErrInvalidUser     = errors.New("invalid_user")
	ErrInvalidProvider = errors.New("invalid_provider")
	ErrUnknownUser     = errors.New("unknown_user")
)
