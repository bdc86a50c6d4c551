package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BudgetPeriod is the length of a budget cycle.
type BudgetPeriod string

const (
	BudgetPeriodDaily   BudgetPeriod = "daily"
	BudgetPeriodWeekly  BudgetPeriod = "weekly"
	BudgetPeriodMonthly BudgetPeriod = "monthly"
)

// IsValid reports whether p is one of the recognized periods.
func (p BudgetPeriod) IsValid() bool {
	switch p {
	case BudgetPeriodDaily, BudgetPeriodWeekly, BudgetPeriodMonthly:
		return true
	}
	return false
}

// BudgetCycle is one instance of a user's budget: a spending limit over a single period.
//
// At most one cycle per user is unarchived. StartedAt is set at creation and never changes;
// Archived flips to true exactly once, when the cycle is closed and its remainder rolled over.
type BudgetCycle struct {
	Base
	UserID     string              `gorm:"type:uuid;not null;uniqueIndex:idx_budget_cycles_one_active,where:archived = false" json:"user_id"`
	Amount     decimal.Decimal     `gorm:"type:decimal(20,2);not null" json:"amount"`
	Period     BudgetPeriod        `gorm:"not null" json:"period"`
	StartedAt  time.Time           `gorm:"not null;index" json:"started_at"`
	Archived   bool                `gorm:"not null;default:false" json:"archived"`
	ArchivedAt *time.Time          `json:"archived_at,omitempty"`
	Spent      decimal.NullDecimal `gorm:"type:decimal(20,2)" json:"spent"`
	Credited   decimal.NullDecimal `gorm:"type:decimal(20,2)" json:"credited"`
}
