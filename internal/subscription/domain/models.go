// Package domain contains persistence models for user subscriptions.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Plan is a named subscription tier.
type Plan string

const (
	PlanFree     Plan = "free"
	PlanPro      Plan = "pro"
	PlanBusiness Plan = "business"
)

// Allotment returns the monthly credit allotment for the plan.
func (p Plan) Allotment() int64 {
	switch p {
	case PlanPro:
		return 1000
	case PlanBusiness:
		return 5000
	default:
		return 100
	}
}

func (p Plan) Valid() bool {
	switch p {
	case PlanFree, PlanPro, PlanBusiness:
		return true
	default:
		return false
	}
}

// Status represents lifecycle states for a subscription.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
	StatusInactive  Status = "inactive"
)

// Subscription captures a user's billing agreement with one provider.
// One row per user, overwritten in place; switching providers overwrites
// the provider columns.
type Subscription struct {
	ID                     snowflake.ID `json:"-" gorm:"primaryKey"`
	UserID                 string       `json:"user_id" gorm:"type:text;not null;uniqueIndex"`
	Plan                   Plan         `json:"plan" gorm:"type:text;not null"`
	Status                 Status       `json:"status" gorm:"type:text;not null"`
	PaymentProvider        string       `json:"payment_provider" gorm:"type:text"`
	ProviderCustomerID     string       `json:"provider_customer_id" gorm:"type:text;index"`
	ProviderSubscriptionID string       `json:"provider_subscription_id" gorm:"type:text;index"`
	CurrentPeriodStart     *time.Time   `json:"current_period_start"`
	CurrentPeriodEnd       *time.Time   `json:"current_period_end"`
	CreatedAt              time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt              time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Subscription) TableName() string { return "subscriptions" }
