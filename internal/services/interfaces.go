package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"spendwise/internal/models"
	"spendwise/internal/pagination"
	"spendwise/internal/store"
)

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(email, password, firstName, lastName, currency string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id string) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
	AttemptLogin(email, password string) (*models.User, error)
}

// CategoryServicer defines the contract for category-related business logic.
type CategoryServicer interface {
	CreateCategory(userID, name, icon string) (*models.Category, error)
	GetUserCategories(userID string) ([]models.Category, error)
}

// ExpenseFilter holds optional filter parameters for listing expenses.
type ExpenseFilter = store.ExpenseFilter

// ExpenseServicer defines the contract for the expense ledger.
type ExpenseServicer interface {
	CreateExpense(userID string, amount decimal.Decimal, categoryName, description string, date time.Time) (*models.Expense, error)
	GetUserExpenses(userID string, page pagination.PageRequest, filter ExpenseFilter) (*pagination.PageResponse[models.Expense], error)
}

// SavingsServicer defines the contract for reading savings balances.
type SavingsServicer interface {
	GetBalance(userID string) (decimal.Decimal, error)
}

// CycleWriteResult is the outcome of a successful SetOrUpdateCycle.
type CycleWriteResult struct {
	Cycle   *models.BudgetCycle `json:"budget"`
	Created bool                `json:"created"`
	Message string              `json:"message"`
}

// BudgetView is everything the budget page shows for the active cycle.
// Budget and EndsAt are nil when the user has no active budget.
type BudgetView struct {
	Budget         *models.BudgetCycle `json:"budget"`
	IsEditable     bool                `json:"is_editable"`
	EndsAt         *time.Time          `json:"ends_at"`
	SpentSoFar     decimal.Decimal     `json:"spent_so_far"`
	Remaining      decimal.Decimal     `json:"remaining"`
	SavingsBalance decimal.Decimal     `json:"savings_balance"`
}

// BudgetCycleServicer defines the contract for the budget cycle engine.
type BudgetCycleServicer interface {
	// EvaluateAndGetActiveCycle returns the user's active cycle, closing and rolling
	// over an elapsed one first. It returns nil when there is no active budget.
	EvaluateAndGetActiveCycle(ctx context.Context, userID string) (*models.BudgetCycle, error)
	IsEditable(cycle *models.BudgetCycle) bool
	SetOrUpdateCycle(ctx context.Context, userID string, amount decimal.Decimal, period models.BudgetPeriod) (*CycleWriteResult, error)
	GetBudgetView(ctx context.Context, userID string) (*BudgetView, error)
	GetCycleHistory(ctx context.Context, userID string, page pagination.PageRequest) (*pagination.PageResponse[models.BudgetCycle], error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(userID, action, resourceType, resourceID, ipAddress string, changes map[string]interface{})
}
