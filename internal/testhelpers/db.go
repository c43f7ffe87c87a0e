// Package testhelpers provides a throwaway gorm database for package tests.
package testhelpers

import (
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/junaidrashid-git/bookstore-api/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a file-backed sqlite database under t.TempDir() with every
// model migrated. A single connection serialises writers so concurrent tests
// see the same locking behaviour a row lock would give on postgres.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "bookstore.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// SeedBook inserts a book with the given id, price and stock.
func SeedBook(t *testing.T, db *gorm.DB, id uint, title string, price int64, stock int) models.Book {
	t.Helper()

	book := models.Book{
		ID:     id,
		Title:  title,
		Author: "Author " + title,
		Price:  decimal.NewFromInt(price),
		Stock:  stock,
	}
	if err := db.Create(&book).Error; err != nil {
		t.Fatalf("seed book: %v", err)
	}
	return book
}
