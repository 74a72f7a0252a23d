package repository

import (
	"context"
	"errors"
	"time"

	creditsdomain "github.com/inkwavehq/inkwave/internal/credits/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() creditsdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, balance *creditsdomain.CreditBalance) error {
	return db.WithContext(ctx).Create(balance).Error
}

func (r *repo) FindByUserID(ctx context.Context, db *gorm.DB, userID string) (*creditsdomain.CreditBalance, error) {
	var balance creditsdomain.CreditBalance
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&balance).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &balance, nil
}

func (r *repo) Debit(ctx context.Context, db *gorm.DB, userID string, cost int64, at time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE credit_balances
		 SET used_credits = used_credits + ?, updated_at = ?
		 WHERE user_id = ? AND used_credits + ? <= total_credits`,
		cost,
		at,
		userID,
		cost,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) UpdateBalance(ctx context.Context, db *gorm.DB, userID string, fields map[string]any) error {
	return db.WithContext(ctx).
		Model(&creditsdomain.CreditBalance{}).
		Where("user_id = ?", userID).
		Updates(fields).Error
}

func (r *repo) FindDueForReset(ctx context.Context, db *gorm.DB, at time.Time, limit int) ([]creditsdomain.CreditBalance, error) {
	if limit <= 0 {
		limit = 100
	}
	var balances []creditsdomain.CreditBalance
	err := db.WithContext(ctx).
		Where("reset_date IS NOT NULL AND reset_date <= ?", at).
		Order("reset_date ASC").
		Limit(limit).
		Find(&balances).Error
	if err != nil {
		return nil, err
	}
	return balances, nil
}

func (r *repo) AppendLog(ctx context.Context, db *gorm.DB, entry *creditsdomain.CreditLogEntry) error {
	return db.WithContext(ctx).Create(entry).Error
}

func (r *repo) ListLog(ctx context.Context, db *gorm.DB, userID string, limit int) ([]creditsdomain.CreditLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	var entries []creditsdomain.CreditLogEntry
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
