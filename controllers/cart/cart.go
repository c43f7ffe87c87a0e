package cartControllers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/junaidrashid-git/bookstore-api/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrBookNotFound      = errors.New("book not found")
	ErrInvalidQuantity   = errors.New("quantity must be at least 1")
)

func loadCart(tx *gorm.DB, userID string) (*models.Cart, error) {
	var cart models.Cart
	err := tx.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("id")
	}).Where("user_id = ?", userID).First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// GetCart returns the user's cart, creating an empty one on first access.
func GetCart(ctx context.Context, db *gorm.DB, userID string) (*models.Cart, error) {
	tx := db.WithContext(ctx)
	cart, err := loadCart(tx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("load cart: %w", err)
	}

	// Two first requests may race here; the unique user_id index keeps one.
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&models.Cart{UserID: userID}).Error; err != nil {
		return nil, fmt.Errorf("create cart: %w", err)
	}

	cart, err = loadCart(tx, userID)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	return cart, nil
}

func findBook(tx *gorm.DB, bookID uint) (*models.Book, error) {
	var book models.Book
	if err := tx.First(&book, "id = ?", bookID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, fmt.Errorf("find book: %w", err)
	}
	return &book, nil
}

func findLine(cart *models.Cart, bookID uint) *models.CartItem {
	for i := range cart.Items {
		if cart.Items[i].BookID == bookID {
			return &cart.Items[i]
		}
	}
	return nil
}

func checkStock(book *models.Book, qty int) error {
	if book.Stock < qty {
		return fmt.Errorf("%w: %q has %d left, %d requested", ErrInsufficientStock, book.Title, book.Stock, qty)
	}
	return nil
}

// AddItem puts qty copies of a book in the cart. An existing line for the
// same book is merged and keeps the price it was first added at. Stock is
// checked against the merged quantity; it is not reserved.
func AddItem(ctx context.Context, db *gorm.DB, userID string, bookID uint, qty int) (*models.Cart, error) {
	if qty < 1 {
		return nil, ErrInvalidQuantity
	}
	cart, err := GetCart(ctx, db, userID)
	if err != nil {
		return nil, err
	}
	tx := db.WithContext(ctx)
	book, err := findBook(tx, bookID)
	if err != nil {
		return nil, err
	}

	if line := findLine(cart, bookID); line != nil {
		merged := line.Quantity + qty
		if err := checkStock(book, merged); err != nil {
			return nil, err
		}
		if err := tx.Model(line).Updates(map[string]interface{}{
			"quantity": merged,
			"added_at": time.Now(),
		}).Error; err != nil {
			return nil, fmt.Errorf("update cart item: %w", err)
		}
	} else {
		if err := checkStock(book, qty); err != nil {
			return nil, err
		}
		item := models.CartItem{
			CartID:   cart.ID,
			BookID:   book.ID,
			Title:    book.Title,
			Author:   book.Author,
			ImageURL: book.ImageURL,
			Price:    book.Price,
			Quantity: qty,
			AddedAt:  time.Now(),
		}
		if err := tx.Create(&item).Error; err != nil {
			return nil, fmt.Errorf("add cart item: %w", err)
		}
	}
	return GetCart(ctx, db, userID)
}

// UpdateQuantity sets a line's quantity. A quantity of zero or less removes
// the line; updating a book that is not in the cart is a no-op.
func UpdateQuantity(ctx context.Context, db *gorm.DB, userID string, bookID uint, qty int) (*models.Cart, error) {
	if qty <= 0 {
		return RemoveItem(ctx, db, userID, bookID)
	}
	cart, err := GetCart(ctx, db, userID)
	if err != nil {
		return nil, err
	}
	line := findLine(cart, bookID)
	if line == nil {
		return cart, nil
	}

	tx := db.WithContext(ctx)
	book, err := findBook(tx, bookID)
	if err != nil {
		return nil, err
	}
	if err := checkStock(book, qty); err != nil {
		return nil, err
	}
	if err := tx.Model(line).Update("quantity", qty).Error; err != nil {
		return nil, fmt.Errorf("update cart item: %w", err)
	}
	return GetCart(ctx, db, userID)
}

func RemoveItem(ctx context.Context, db *gorm.DB, userID string, bookID uint) (*models.Cart, error) {
	cart, err := GetCart(ctx, db, userID)
	if err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).
		Where("cart_id = ? AND book_id = ?", cart.ID, bookID).
		Delete(&models.CartItem{}).Error; err != nil {
		return nil, fmt.Errorf("remove cart item: %w", err)
	}
	return GetCart(ctx, db, userID)
}

// Clear empties the cart but keeps the cart row.
func Clear(ctx context.Context, db *gorm.DB, userID string) error {
	sub := db.Model(&models.Cart{}).Select("id").Where("user_id = ?", userID)
	if err := db.WithContext(ctx).
		Where("cart_id IN (?)", sub).
		Delete(&models.CartItem{}).Error; err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

// ClearAddedUpTo removes the lines last added at or before cutoff and keeps
// anything the user put in the cart afterwards.
func ClearAddedUpTo(ctx context.Context, db *gorm.DB, userID string, cutoff time.Time) error {
	cart, err := GetCart(ctx, db, userID)
	if err != nil {
		return err
	}
	var ids []uint
	for _, item := range cart.Items {
		if !item.AddedAt.After(cutoff) {
			ids = append(ids, item.ID)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	if err := db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.CartItem{}).Error; err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

func TotalAmount(ctx context.Context, db *gorm.DB, userID string) (decimal.Decimal, error) {
	cart, err := GetCart(ctx, db, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return cart.TotalAmount(), nil
}

func ItemCount(ctx context.Context, db *gorm.DB, userID string) (int, error) {
	cart, err := GetCart(ctx, db, userID)
	if err != nil {
		return 0, err
	}
	return cart.ItemCount(), nil
}
