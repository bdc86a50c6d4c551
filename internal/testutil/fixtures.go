package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"spendwise/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates a user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return CreateTestUserWithEmail(t, db, email)
}

// CreateTestUserWithEmail creates a user with the given email.
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:    email,
		Password: string(hash),
		Currency: "USD",
		IsActive: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestCategory creates a category with the given name.
func CreateTestCategory(t *testing.T, db *gorm.DB, userID, name string) *models.Category {
	t.Helper()

	category := &models.Category{
		UserID: userID,
		Name:   name,
	}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to create test category: %v", err)
	}
	return category
}

// CreateTestExpense creates an expense of the given decimal amount (e.g. "12.50") at date.
func CreateTestExpense(t *testing.T, db *gorm.DB, userID, categoryID, amount string, date time.Time) *models.Expense {
	t.Helper()

	expense := &models.Expense{
		UserID:      userID,
		CategoryID:  categoryID,
		Amount:      decimal.RequireFromString(amount),
		Description: fmt.Sprintf("Test Expense %d", nextID()),
		Date:        date.UTC(),
	}
	if err := db.Create(expense).Error; err != nil {
		t.Fatalf("failed to create test expense: %v", err)
	}
	return expense
}

// CreateTestBudgetCycle creates an unarchived cycle that started at startedAt.
func CreateTestBudgetCycle(t *testing.T, db *gorm.DB, userID, amount string, period models.BudgetPeriod, startedAt time.Time) *models.BudgetCycle {
	t.Helper()

	cycle := &models.BudgetCycle{
		UserID:    userID,
		Amount:    decimal.RequireFromString(amount),
		Period:    period,
		StartedAt: startedAt.UTC(),
	}
	if err := db.Create(cycle).Error; err != nil {
		t.Fatalf("failed to create test budget cycle: %v", err)
	}
	return cycle
}

// CreateTestSavingsAccount creates a savings account holding balance.
func CreateTestSavingsAccount(t *testing.T, db *gorm.DB, userID, balance string) *models.SavingsAccount {
	t.Helper()

	account := &models.SavingsAccount{
		UserID:  userID,
		Balance: decimal.RequireFromString(balance),
	}
	if err := db.Create(account).Error; err != nil {
		t.Fatalf("failed to create test savings account: %v", err)
	}
	return account
}

// GetSavingsBalance reads the user's savings balance straight from the table, zero if none.
func GetSavingsBalance(t *testing.T, db *gorm.DB, userID string) decimal.Decimal {
	t.Helper()

	var account models.SavingsAccount
	err := db.Where("user_id = ?", userID).Limit(1).Find(&account).Error
	if err != nil {
		t.Fatalf("failed to read savings balance: %v", err)
	}
	return account.Balance
}

// ReloadBudgetCycle re-reads a cycle by id.
func ReloadBudgetCycle(t *testing.T, db *gorm.DB, id string) *models.BudgetCycle {
	t.Helper()

	var cycle models.BudgetCycle
	if err := db.First(&cycle, "id = ?", id).Error; err != nil {
		t.Fatalf("failed to reload budget cycle: %v", err)
	}
	return &cycle
}
