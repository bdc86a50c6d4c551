package store

import (
	"fmt"
	"time"

	"spendwise/internal/models"
	"spendwise/internal/pagination"

	"gorm.io/gorm"
)

type expenseLedger struct{}

// NewExpenseLedger creates a GORM-backed ExpenseLedger.
func NewExpenseLedger() ExpenseLedger {
	return &expenseLedger{}
}

func (l *expenseLedger) ListExpenses(db *gorm.DB, userID string, start, end time.Time) ([]models.Expense, error) {
	var expenses []models.Expense
	err := db.Where("user_id = ? AND date >= ? AND date < ?", userID, start.UTC(), end.UTC()).
		Order("date ASC").
		Find(&expenses).Error
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return expenses, nil
}

func (l *expenseLedger) AppendExpense(db *gorm.DB, expense *models.Expense) error {
	expense.Date = expense.Date.UTC()
	if err := db.Create(expense).Error; err != nil {
		return fmt.Errorf("append expense: %w", err)
	}
	return nil
}

func (l *expenseLedger) ListUserExpenses(db *gorm.DB, userID string, filter ExpenseFilter, page pagination.PageRequest) (*pagination.PageResponse[models.Expense], error) {
	query := db.Model(&models.Expense{}).Where("user_id = ?", userID)
	if filter.From != nil {
		query = query.Where("date >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		query = query.Where("date < ?", filter.To.UTC())
	}
	preload := func(db *gorm.DB) *gorm.DB { return db.Preload("Category") }

	result, err := pagination.Fetch[models.Expense](query, page, preload, pagination.OrderBy("date DESC"))
	if err != nil {
		return nil, fmt.Errorf("list user expenses: %w", err)
	}
	return result, nil
}
