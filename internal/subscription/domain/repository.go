package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, subscription *Subscription) error
	Save(ctx context.Context, db *gorm.DB, subscription *Subscription) error
	FindByUserID(ctx context.Context, db *gorm.DB, userID string) (*Subscription, error)
	FindByProviderCustomerID(ctx context.Context, db *gorm.DB, provider, customerID string) (*Subscription, error)
	FindByProviderSubscriptionID(ctx context.Context, db *gorm.DB, provider, subscriptionID string) (*Subscription, error)
}
