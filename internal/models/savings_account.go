package models

import "github.com/shopspring/decimal"

// SavingsAccount holds the single savings balance of a user. Budget rollovers only ever add to it.
type SavingsAccount struct {
	Base
	UserID  string          `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	Balance decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"balance"`
}
