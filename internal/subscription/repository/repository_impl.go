package repository

import (
	"context"
	"errors"

	subscriptiondomain "github.com/inkwavehq/inkwave/internal/subscription/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() subscriptiondomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, subscription *subscriptiondomain.Subscription) error {
	return db.WithContext(ctx).Create(subscription).Error
}

func (r *repo) Save(ctx context.Context, db *gorm.DB, subscription *subscriptiondomain.Subscription) error {
	return db.WithContext(ctx).Save(subscription).Error
}

func (r *repo) FindByUserID(ctx context.Context, db *gorm.DB, userID string) (*subscriptiondomain.Subscription, error) {
	return r.findOne(ctx, db, "user_id = ?", userID)
}

func (r *repo) FindByProviderCustomerID(ctx context.Context, db *gorm.DB, provider, customerID string) (*subscriptiondomain.Subscription, error) {
	return r.findOne(ctx, db, "payment_provider = ? AND provider_customer_id = ?", provider, customerID)
}

func (r *repo) FindByProviderSubscriptionID(ctx context.Context, db *gorm.DB, provider, subscriptionID string) (*subscriptiondomain.Subscription, error) {
	return r.findOne(ctx, db, "payment_provider = ? AND provider_subscription_id = ?", provider, subscriptionID)
}

func (r *repo) findOne(ctx context.Context, db *gorm.DB, query string, args ...any) (*subscriptiondomain.Subscription, error) {
	var subscription subscriptiondomain.Subscription
	err := db.WithContext(ctx).Where(query, args...).First(&subscription).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &subscription, nil
}
