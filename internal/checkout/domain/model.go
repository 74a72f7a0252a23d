// Package domain defines the checkout order record that maps a provider-side
// order id back to the initiating user.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	subscriptiondomain "github.com/inkwavehq/inkwave/internal/subscription/domain"
)

const (
	OrderStatusCreated   = "created"
	OrderStatusCompleted = "completed"
)

// CheckoutOrder is written at checkout initiation and looked up by order id
// when the provider's webhook arrives.
type CheckoutOrder struct {
	ID          snowflake.ID            `json:"id" gorm:"primaryKey"`
	OrderID     string                  `json:"order_id" gorm:"type:text;not null;uniqueIndex"`
	UserID      string                  `json:"user_id" gorm:"type:text;not null;index"`
	Plan        subscriptiondomain.Plan `json:"plan" gorm:"type:text;not null"`
	Provider    string                  `json:"provider" gorm:"type:text;not null"`
	Status      string                  `json:"status" gorm:"type:text;not null;default:created"`
	CreatedAt   time.Time               `json:"created_at"`
	CompletedAt *time.Time              `json:"completed_at"`
}

// TableName sets the database table name.
func (CheckoutOrder) TableName() string { return "checkout_orders" }
