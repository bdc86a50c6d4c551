package store

import (
	"fmt"

	"spendwise/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type savingsStore struct{}

// NewSavingsStore creates a GORM-backed SavingsStore.
func NewSavingsStore() SavingsStore {
	return &savingsStore{}
}

func (s *savingsStore) CreditSavings(db *gorm.DB, userID string, amount decimal.Decimal) error {
	account := &models.SavingsAccount{UserID: userID, Balance: amount}
	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"balance":    gorm.Expr("savings_accounts.balance + ?", amount),
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		}),
	}).Create(account).Error
	if err != nil {
		return fmt.Errorf("credit savings for user %s: %w", userID, err)
	}
	return nil
}

func (s *savingsStore) GetSavingsBalance(db *gorm.DB, userID string) (decimal.Decimal, error) {
	var accounts []models.SavingsAccount
	if err := db.Where("user_id = ?", userID).Limit(1).Find(&accounts).Error; err != nil {
		return decimal.Zero, fmt.Errorf("get savings balance: %w", err)
	}
	if len(accounts) == 0 {
		return decimal.Zero, nil
	}
	return accounts[0].Balance, nil
}

func (s *savingsStore) EnsureAccount(db *gorm.DB, userID string) error {
	account := &models.SavingsAccount{UserID: userID, Balance: decimal.Zero}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(account).Error
	if err != nil {
		return fmt.Errorf("ensure savings account: %w", err)
	}
	return nil
}
