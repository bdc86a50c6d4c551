package store

import (
	"fmt"
	"strings"

	"spendwise/internal/models"

	"github.com/dgraph-io/ristretto/v2"
	"gorm.io/gorm"
)

// CategoryStore persists categories and resolves category names to ids.
type CategoryStore interface {
	ListCategories(db *gorm.DB, userID string) ([]models.Category, error)
	CreateCategories(db *gorm.DB, userID string, categories []models.Category) error
	// ResolveCategoryID returns the id of the user's category with the given name
	// (case-insensitive), or "" when the user has no such category.
	ResolveCategoryID(db *gorm.DB, userID, name string) (string, error)
	Close()
}

type categoryStore struct {
	cache *ristretto.Cache[string, map[string]string]
}

// NewCategoryStore creates a CategoryStore that caches each user's name→id map.
// cacheSize bounds the number of cached users.
func NewCategoryStore(cacheSize int64) (CategoryStore, error) {
	cache, err := ristretto.NewCache(&ristretto.Config[string, map[string]string]{
		NumCounters: cacheSize * 10, // number of keys to track frequency of
		MaxCost:     cacheSize,
		BufferItems: 64, // number of keys per Get buffer
	})
	if err != nil {
		return nil, fmt.Errorf("create category cache: %w", err)
	}
	return &categoryStore{cache: cache}, nil
}

func (s *categoryStore) ListCategories(db *gorm.DB, userID string) ([]models.Category, error) {
	var categories []models.Category
	if err := db.Where("user_id = ?", userID).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

func (s *categoryStore) CreateCategories(db *gorm.DB, userID string, categories []models.Category) error {
	for i := range categories {
		categories[i].UserID = userID
	}
	if err := db.Create(&categories).Error; err != nil {
		return fmt.Errorf("create categories: %w", err)
	}
	s.cache.Del(userID)
	return nil
}

func (s *categoryStore) ResolveCategoryID(db *gorm.DB, userID, name string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(name))

	if ids, ok := s.cache.Get(userID); ok {
		if id, ok := ids[key]; ok {
			return id, nil
		}
	}

	categories, err := s.ListCategories(db, userID)
	if err != nil {
		return "", err
	}

	ids := make(map[string]string, len(categories))
	for _, c := range categories {
		ids[strings.ToLower(c.Name)] = c.ID
	}
	s.cache.Set(userID, ids, 1)
	s.cache.Wait()

	return ids[key], nil
}

func (s *categoryStore) Close() {
	s.cache.Close()
}
