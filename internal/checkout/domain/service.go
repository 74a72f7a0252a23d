package domain

import (
	"context"
	"errors"

	subscriptiondomain "github.com/inkwavehq/inkwave/internal/subscription/domain"
)

// Session is returned to the client so it can redirect the user to the
// provider's hosted payment page.
type Session struct {
	OrderID     string                  `json:"order_id"`
	Provider    string                  `json:"provider"`
	Plan        subscriptiondomain.Plan `json:"plan"`
	RedirectURL string                  `json:"redirect_url"`
}

type Service interface {
	// Begin records the order, marks the subscription pending, and returns
	// the redirect target for the chosen provider.
	Begin(ctx context.Context, userID string, plan subscriptiondomain.Plan, provider string) (*Session, error)
	FindOrder(ctx context.Context, orderID string) (*CheckoutOrder, error)
	MarkCompleted(ctx context.Context, orderID string) error
}

var (
	ErrOrderNotFound = errors.New("order_not_found")
	ErrInvalidOrder  = errors.New("invalid_order")
)
