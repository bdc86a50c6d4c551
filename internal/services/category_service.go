package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	apperrors "spendwise/internal/errors"
	"spendwise/internal/models"
	"spendwise/internal/store"
)

// categoryService handles category-related business logic.
type categoryService struct {
	db         *gorm.DB
	categories store.CategoryStore
}

// NewCategoryService creates a new CategoryServicer.
func NewCategoryService(db *gorm.DB, categories store.CategoryStore) CategoryServicer {
	return &categoryService{db: db, categories: categories}
}

// CreateCategory creates a category. Names are unique per user, ignoring case.
func (s *categoryService) CreateCategory(userID, name, icon string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category name is required")
	}

	existing, err := s.categories.ResolveCategoryID(s.db, userID, name)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if existing != "" {
		return nil, apperrors.ErrDuplicateCategory
	}

	created := []models.Category{{Name: name, Icon: icon}}
	if err := s.categories.CreateCategories(s.db, userID, created); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.ErrDuplicateCategory
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return &created[0], nil
}

// GetUserCategories returns all categories of the user, sorted by name.
func (s *categoryService) GetUserCategories(userID string) ([]models.Category, error) {
	categories, err := s.categories.ListCategories(s.db, userID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return categories, nil
}
