package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, balance *CreditBalance) error
	FindByUserID(ctx context.Context, db *gorm.DB, userID string) (*CreditBalance, error)
	// Debit adds cost to used_credits only when the balance can cover it.
	// Returns false without mutating anything when it cannot.
	Debit(ctx context.Context, db *gorm.DB, userID string, cost int64, at time.Time) (bool, error)
	UpdateBalance(ctx context.Context, db *gorm.DB, userID string, fields map[string]any) error
	FindDueForReset(ctx context.Context, db *gorm.DB, at time.Time, limit int) ([]CreditBalance, error)
	AppendLog(ctx context.Context, db *gorm.DB, entry *CreditLogEntry) error
	ListLog(ctx context.Context, db *gorm.DB, userID string, limit int) ([]CreditLogEntry, error)
}
