package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Cart struct {
	ID        string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID    string     `gorm:"uniqueIndex;not null" json:"user_id"` // Enforces ONE cart per user
	Items     []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (c *Cart) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// CartItem keeps the book price as it was when the line was added.
type CartItem struct {
	ID       uint            `gorm:"primaryKey" json:"-"`
	CartID   string          `gorm:"type:varchar(36);uniqueIndex:idx_cart_book;not null" json:"-"`
	BookID   uint            `gorm:"uniqueIndex:idx_cart_book;not null" json:"book_id"`
	Title    string          `json:"title"`
	Author   string          `json:"author"`
	ImageURL string          `json:"image_url"`
	Price    decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"price"`
	Quantity int             `gorm:"not null" json:"quantity"`
	AddedAt  time.Time       `json:"added_at"`
}

func (i CartItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

func (c *Cart) TotalAmount() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// ItemCount is the number of copies in the cart, not the number of lines.
func (c *Cart) ItemCount() int {
	n := 0
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}
