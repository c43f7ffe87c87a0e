package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Voucher struct {
	ID                string              `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Code              string              `gorm:"uniqueIndex;size:50;not null" json:"code" validate:"required,min=3,max=50"`
	Description       string              `json:"description"`
	DiscountPercent   decimal.Decimal     `gorm:"type:decimal(5,2);not null" json:"discount_percent"`
	MaxDiscountAmount decimal.NullDecimal `gorm:"type:decimal(15,2)" json:"max_discount_amount"`
	MinOrderAmount    decimal.NullDecimal `gorm:"type:decimal(15,2)" json:"min_order_amount"`
	MaxUsage          int                 `gorm:"not null" json:"max_usage" validate:"min=1"`
	CurrentUsage      int                 `gorm:"not null;default:0" json:"current_usage" validate:"min=0"`
	ValidFrom         time.Time           `gorm:"not null" json:"valid_from" validate:"required"`
	ValidTo           time.Time           `gorm:"not null" json:"valid_to" validate:"required,gtefield=ValidFrom"`
	IsActive          bool                `gorm:"not null" json:"is_active"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
}

func (v *Voucher) BeforeCreate(tx *gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	return nil
}

// IsUsableAt reports whether the voucher is active, not exhausted and inside
// its validity window (both ends inclusive).
func (v *Voucher) IsUsableAt(t time.Time) bool {
	return v.IsActive &&
		v.CurrentUsage < v.MaxUsage &&
		!t.Before(v.ValidFrom) &&
		!t.After(v.ValidTo)
}
