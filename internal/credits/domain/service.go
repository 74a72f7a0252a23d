package domain

import (
	"context"
	"errors"
)

// Service meters credit usage. Consume performs a single conditional debit at
// the store layer, so callers get ErrInsufficientCredits rather than a lost
// update when concurrent requests race. Store failures surface as plain
// errors, distinguishable from insufficiency.
type Service interface {
	Initialize(ctx context.Context, userID string) (*CreditBalance, error)
	Get(ctx context.Context, userID string) (*CreditBalance, error)
	HasEnough(ctx context.Context, userID string, action ActionType) (bool, error)
	Consume(ctx context.Context, userID string, action ActionType, description string) (*CreditBalance, error)
	AdjustTotal(ctx context.Context, userID string, newTotal int64) error
	Reset(ctx context.Context, userID string, newTotal int64) error
	History(ctx context.Context, userID string, limit int) ([]CreditLogEntry, error)
}

var (
	ErrInvalidUser         = errors.New("invalid_user")
	ErrInvalidAmount       = errors.New("invalid_amount")
	ErrInsufficientCredits = errors.New("insufficient_credits")
)
