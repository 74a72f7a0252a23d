// Package domain contains persistence models for credit balances and the usage log.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// ActionType enumerates metered and administrative credit actions.
type ActionType string

const (
	ActionTextGeneration     ActionType = "text_generation"
	ActionImageGeneration    ActionType = "image_generation"
	ActionTranslation        ActionType = "translation"
	ActionGrammarCheck       ActionType = "grammar_check"
	ActionContentImprovement ActionType = "content_improvement"
	ActionManualAdjustment   ActionType = "manual_adjustment"
	ActionPlanUpgrade        ActionType = "plan_upgrade"
	ActionPlanRenewal        ActionType = "plan_renewal"
)

// CreditBalance tracks a user's allotment for the current billing period.
// used_credits only moves forward within a period; the atomic debit in the
// repository keeps it from exceeding total_credits.
type CreditBalance struct {
	ID           snowflake.ID `json:"-" gorm:"primaryKey"`
	UserID       string       `json:"user_id" gorm:"type:text;not null;uniqueIndex"`
	TotalCredits int64        `json:"total_credits" gorm:"not null"`
	UsedCredits  int64        `json:"used_credits" gorm:"not null;default:0"`
	ResetDate    *time.Time   `json:"reset_date"`
	CreatedAt    time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (CreditBalance) TableName() string { return "credit_balances" }

// Remaining returns the credits still available in the period.
func (b CreditBalance) Remaining() int64 {
	remaining := b.TotalCredits - b.UsedCredits
	if remaining < 0 {
		return 0
	}
	return remaining
}

// CreditLogEntry is the append-only audit trail of credit-affecting actions.
// It is never read back to recompute a balance.
type CreditLogEntry struct {
	ID          snowflake.ID `json:"-" gorm:"primaryKey"`
	UserID      string       `json:"user_id" gorm:"type:text;not null;index"`
	ActionType  ActionType   `json:"action_type" gorm:"type:text;not null"`
	CreditsUsed int64        `json:"credits_used" gorm:"not null"`
	Description string       `json:"description" gorm:"type:text"`
	CreatedAt   time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (CreditLogEntry) TableName() string { return "credit_log_entries" }
