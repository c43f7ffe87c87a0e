package productcontroller

import (
	"context"
	"errors"
	"fmt"
	"strings"

	counterControllers "github.com/junaidrashid-git/bookstore-api/controllers/counter"
	"github.com/junaidrashid-git/bookstore-api/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrBookNotFound     = errors.New("book not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrDuplicateName    = errors.New("category name already exists")
	ErrInvalidBook      = errors.New("invalid book")
)

// BookFilter narrows ListBooks. Zero values mean no filter.
type BookFilter struct {
	Search     string
	CategoryID uint
	MinPrice   decimal.NullDecimal
	MaxPrice   decimal.NullDecimal
	SortBy     string
	Desc       bool
}

var sortColumns = map[string]string{
	"created_at": "created_at",
	"price":      "price",
	"title":      "title",
	"stock":      "stock",
	"id":         "id",
}

func checkBook(b *models.Book) error {
	b.Title = strings.TrimSpace(b.Title)
	switch {
	case b.Title == "":
		return fmt.Errorf("%w: title is required", ErrInvalidBook)
	case b.Price.IsNegative():
		return fmt.Errorf("%w: price must not be negative", ErrInvalidBook)
	case b.Stock < 0:
		return fmt.Errorf("%w: stock must not be negative", ErrInvalidBook)
	}
	return nil
}

// CreateBook stores a book under the next id of the "books" counter.
func CreateBook(ctx context.Context, db *gorm.DB, b *models.Book) error {
	if err := checkBook(b); err != nil {
		return err
	}
	id, err := counterControllers.NextValue(ctx, db, counterControllers.Books)
	if err != nil {
		return err
	}
	b.ID = uint(id)
	if err := db.WithContext(ctx).Create(b).Error; err != nil {
		return fmt.Errorf("create book: %w", err)
	}
	return nil
}

func GetBook(ctx context.Context, db *gorm.DB, id uint) (*models.Book, error) {
	var b models.Book
	if err := db.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, fmt.Errorf("find book: %w", err)
	}
	return &b, nil
}

// UpdateBook replaces the editable fields of a book. Carts and orders keep
// the price they captured.
func UpdateBook(ctx context.Context, db *gorm.DB, id uint, in *models.Book) (*models.Book, error) {
	b, err := GetBook(ctx, db, id)
	if err != nil {
		return nil, err
	}
	b.Title = in.Title
	b.Author = in.Author
	b.Description = in.Description
	b.Price = in.Price
	b.Stock = in.Stock
	b.CategoryID = in.CategoryID
	b.ImageURL = in.ImageURL
	if err := checkBook(b); err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Save(b).Error; err != nil {
		return nil, fmt.Errorf("update book: %w", err)
	}
	return b, nil
}

func DeleteBook(ctx context.Context, db *gorm.DB, id uint) error {
	res := db.WithContext(ctx).Delete(&models.Book{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("delete book: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrBookNotFound
	}
	return nil
}

func ListBooks(ctx context.Context, db *gorm.DB, f BookFilter) ([]models.Book, error) {
	q := db.WithContext(ctx).Model(&models.Book{})
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(title) LIKE ? OR LOWER(author) LIKE ? OR LOWER(description) LIKE ?", like, like, like)
	}
	if f.CategoryID != 0 {
		q = q.Where("category_id = ?", f.CategoryID)
	}
	if f.MinPrice.Valid {
		q = q.Where("price >= ?", f.MinPrice.Decimal)
	}
	if f.MaxPrice.Valid {
		q = q.Where("price <= ?", f.MaxPrice.Decimal)
	}

	column, ok := sortColumns[f.SortBy]
	if !ok {
		column = "created_at"
	}
	order := column + " ASC"
	if f.Desc {
		order = column + " DESC"
	}

	var books []models.Book
	if err := q.Order(order).Order("id").Find(&books).Error; err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return books, nil
}
