package services

import (
	"testing"

	"gorm.io/gorm"

	"spendwise/internal/store"
)

func newTestCategoryStore(t *testing.T) store.CategoryStore {
	t.Helper()
	categories, err := store.NewCategoryStore(100)
	if err != nil {
		t.Fatalf("failed to create category store: %v", err)
	}
	t.Cleanup(categories.Close)
	return categories
}

func newTestUserService(t *testing.T, db *gorm.DB) UserServicer {
	t.Helper()
	return NewUserService(db, newTestCategoryStore(t), store.NewSavingsStore())
}
