package services

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "spendwise/internal/errors"
	"spendwise/internal/store"
)

// savingsService reads savings balances. Only budget rollovers write to them.
type savingsService struct {
	db      *gorm.DB
	savings store.SavingsStore
}

// NewSavingsService creates a new SavingsServicer.
func NewSavingsService(db *gorm.DB, savings store.SavingsStore) SavingsServicer {
	return &savingsService{db: db, savings: savings}
}

// GetBalance returns the user's savings balance, zero if nothing was ever credited.
func (s *savingsService) GetBalance(userID string) (decimal.Decimal, error) {
	balance, err := s.savings.GetSavingsBalance(s.db, userID)
	if err != nil {
		return decimal.Zero, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return balance, nil
}
