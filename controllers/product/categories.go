package productcontroller

import (
	"context"
	"errors"
	"fmt"
	"strings"

	counterControllers "github.com/junaidrashid-git/bookstore-api/controllers/counter"
	"github.com/junaidrashid-git/bookstore-api/models"
	"gorm.io/gorm"
)

// CreateCategory stores a category under the next "categories" id.
func CreateCategory(ctx context.Context, db *gorm.DB, cat *models.Category) error {
	cat.Name = strings.TrimSpace(cat.Name)
	if cat.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidBook)
	}

	var count int64
	if err := db.WithContext(ctx).Model(&models.Category{}).
		Where("name = ?", cat.Name).Count(&count).Error; err != nil {
		return fmt.Errorf("check category name: %w", err)
	}
	if count > 0 {
		return ErrDuplicateName
	}

	id, err := counterControllers.NextValue(ctx, db, counterControllers.Categories)
	if err != nil {
		return err
	}
	cat.ID = uint(id)
	if err := db.WithContext(ctx).Create(cat).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateName
		}
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

func ListCategories(ctx context.Context, db *gorm.DB) ([]models.Category, error) {
	var cats []models.Category
	if err := db.WithContext(ctx).Order("id").Find(&cats).Error; err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

func GetCategory(ctx context.Context, db *gorm.DB, id uint) (*models.Category, error) {
	var cat models.Category
	if err := db.WithContext(ctx).First(&cat, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("find category: %w", err)
	}
	return &cat, nil
}

func UpdateCategory(ctx context.Context, db *gorm.DB, id uint, name, description string) (*models.Category, error) {
	cat, err := GetCategory(ctx, db, id)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidBook)
	}
	cat.Name = name
	cat.Description = description
	if err := db.WithContext(ctx).Save(cat).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateName
		}
		return nil, fmt.Errorf("update category: %w", err)
	}
	return cat, nil
}

// DeleteCategory detaches the category's books before removing it.
func DeleteCategory(ctx context.Context, db *gorm.DB, id uint) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Book{}).Where("category_id = ?", id).
			Update("category_id", 0).Error; err != nil {
			return fmt.Errorf("detach books: %w", err)
		}
		res := tx.Delete(&models.Category{}, "id = ?", id)
		if res.Error != nil {
			return fmt.Errorf("delete category: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrCategoryNotFound
		}
		return nil
	})
}
