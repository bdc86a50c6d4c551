package services

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "spendwise/internal/errors"
	"spendwise/internal/models"
	"spendwise/internal/pagination"
	"spendwise/internal/store"
)

// expenseService appends to and reads from the expense ledger.
type expenseService struct {
	db         *gorm.DB
	ledger     store.ExpenseLedger
	categories store.CategoryStore
}

// NewExpenseService creates a new ExpenseServicer.
func NewExpenseService(db *gorm.DB, ledger store.ExpenseLedger, categories store.CategoryStore) ExpenseServicer {
	return &expenseService{db: db, ledger: ledger, categories: categories}
}

// CreateExpense records a spend against one of the user's categories, looked up by name.
func (s *expenseService) CreateExpense(
	userID string,
	amount decimal.Decimal,
	categoryName, description string,
	date time.Time,
) (*models.Expense, error) {
	if !amount.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}
	if !amount.Equal(amount.Round(2)) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount can have at most two decimal places")
	}
	if date.IsZero() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "date is required")
	}

	categoryID, err := s.categories.ResolveCategoryID(s.db, userID, categoryName)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if categoryID == "" {
		return nil, apperrors.ErrCategoryNotFound
	}

	expense := &models.Expense{
		UserID:      userID,
		CategoryID:  categoryID,
		Amount:      amount,
		Description: description,
		Date:        date,
	}
	if err := s.ledger.AppendExpense(s.db, expense); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return expense, nil
}

// GetUserExpenses returns a paginated list of the user's expenses, newest first.
func (s *expenseService) GetUserExpenses(
	userID string,
	page pagination.PageRequest,
	filter ExpenseFilter,
) (*pagination.PageResponse[models.Expense], error) {
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "to must not be before from")
	}

	result, err := s.ledger.ListUserExpenses(s.db, userID, filter, page)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return result, nil
}
