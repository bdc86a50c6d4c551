// Package store holds the persistence contracts the budget engine depends on.
//
// Every method takes the *gorm.DB handle to run against. Callers pass the root
// handle for standalone reads and the transaction handle when the call must be
// part of a larger atomic unit.
package store

import (
	"time"

	"spendwise/internal/models"
	"spendwise/internal/pagination"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BudgetCycleStore persists budget cycles.
type BudgetCycleStore interface {
	// FindActiveCycle returns the user's unarchived cycle, or nil when there is none.
	FindActiveCycle(db *gorm.DB, userID string) (*models.BudgetCycle, error)
	// ClaimArchive flips an unarchived cycle to archived. It reports false when the
	// cycle was already archived, i.e. another evaluator won the claim.
	ClaimArchive(db *gorm.DB, cycleID string, at time.Time) (bool, error)
	// RecordRollover stores the outcome of closing an archived cycle.
	RecordRollover(db *gorm.DB, cycleID string, spent, credited decimal.Decimal) error
	CreateCycle(db *gorm.DB, cycle *models.BudgetCycle) error
	// UpdateCycle changes amount and period of an unarchived cycle that started after
	// editableSince. It reports false when no such cycle matched.
	UpdateCycle(db *gorm.DB, cycleID string, amount decimal.Decimal, period models.BudgetPeriod, editableSince time.Time) (bool, error)
	ListArchivedCycles(db *gorm.DB, userID string, page pagination.PageRequest) (*pagination.PageResponse[models.BudgetCycle], error)
}

// ExpenseFilter holds optional filter parameters for listing expenses.
type ExpenseFilter struct {
	From *time.Time
	To   *time.Time
}

// ExpenseLedger is the append-only record of user spending.
type ExpenseLedger interface {
	// ListExpenses returns the user's expenses dated in [start, end).
	ListExpenses(db *gorm.DB, userID string, start, end time.Time) ([]models.Expense, error)
	AppendExpense(db *gorm.DB, expense *models.Expense) error
	ListUserExpenses(db *gorm.DB, userID string, filter ExpenseFilter, page pagination.PageRequest) (*pagination.PageResponse[models.Expense], error)
}

// SavingsStore holds each user's single savings balance.
type SavingsStore interface {
	// CreditSavings atomically adds amount to the balance, creating the account if needed.
	CreditSavings(db *gorm.DB, userID string, amount decimal.Decimal) error
	// GetSavingsBalance returns zero for users without an account.
	GetSavingsBalance(db *gorm.DB, userID string) (decimal.Decimal, error)
	EnsureAccount(db *gorm.DB, userID string) error
}
