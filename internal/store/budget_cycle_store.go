package store

import (
	"fmt"
	"time"

	"spendwise/internal/models"
	"spendwise/internal/pagination"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type budgetCycleStore struct{}

// NewBudgetCycleStore creates a GORM-backed BudgetCycleStore.
func NewBudgetCycleStore() BudgetCycleStore {
	return &budgetCycleStore{}
}

func (s *budgetCycleStore) FindActiveCycle(db *gorm.DB, userID string) (*models.BudgetCycle, error) {
	var cycles []models.BudgetCycle
	err := db.Where("user_id = ? AND archived = ?", userID, false).
		Order("started_at DESC").
		Limit(1).
		Find(&cycles).Error
	if err != nil {
		return nil, fmt.Errorf("find active cycle: %w", err)
	}
	if len(cycles) == 0 {
		return nil, nil
	}
	return &cycles[0], nil
}

func (s *budgetCycleStore) ClaimArchive(db *gorm.DB, cycleID string, at time.Time) (bool, error) {
	result := db.Model(&models.BudgetCycle{}).
		Where("id = ? AND archived = ?", cycleID, false).
		Updates(map[string]interface{}{
			"archived":    true,
			"archived_at": at.UTC(),
		})
	if result.Error != nil {
		return false, fmt.Errorf("claim cycle %s: %w", cycleID, result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (s *budgetCycleStore) RecordRollover(db *gorm.DB, cycleID string, spent, credited decimal.Decimal) error {
	result := db.Model(&models.BudgetCycle{}).
		Where("id = ? AND archived = ?", cycleID, true).
		Updates(map[string]interface{}{
			"spent":    spent,
			"credited": credited,
		})
	if result.Error != nil {
		return fmt.Errorf("record rollover for cycle %s: %w", cycleID, result.Error)
	}
	if result.RowsAffected != 1 {
		return fmt.Errorf("record rollover for cycle %s: cycle is not archived", cycleID)
	}
	return nil
}

func (s *budgetCycleStore) CreateCycle(db *gorm.DB, cycle *models.BudgetCycle) error {
	if err := db.Create(cycle).Error; err != nil {
		return fmt.Errorf("create cycle: %w", err)
	}
	return nil
}

func (s *budgetCycleStore) UpdateCycle(db *gorm.DB, cycleID string, amount decimal.Decimal, period models.BudgetPeriod, editableSince time.Time) (bool, error) {
	result := db.Model(&models.BudgetCycle{}).
		Where("id = ? AND archived = ? AND started_at > ?", cycleID, false, editableSince.UTC()).
		Updates(map[string]interface{}{
			"amount": amount,
			"period": period,
		})
	if result.Error != nil {
		return false, fmt.Errorf("update cycle %s: %w", cycleID, result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (s *budgetCycleStore) ListArchivedCycles(db *gorm.DB, userID string, page pagination.PageRequest) (*pagination.PageResponse[models.BudgetCycle], error) {
	query := db.Model(&models.BudgetCycle{}).
		Where("user_id = ? AND archived = ?", userID, true)

	result, err := pagination.Fetch[models.BudgetCycle](query, page, pagination.OrderBy("started_at DESC"))
	if err != nil {
		return nil, fmt.Errorf("list archived cycles: %w", err)
	}
	return result, nil
}
