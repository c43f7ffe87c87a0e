package voucherControllers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/junaidrashid-git/bookstore-api/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrDuplicateCode    = errors.New("voucher code already exists")
	ErrVoucherNotFound  = errors.New("voucher not found")
	ErrVoucherExhausted = errors.New("voucher usage limit reached")
)

var (
	validate   = validator.New()
	hundred    = decimal.NewFromInt(100)
	maxPercent = hundred
)

// InvalidVoucherError describes a voucher rejected on create or update.
type InvalidVoucherError struct {
	Reason string
}

func (e *InvalidVoucherError) Error() string {
	return "invalid voucher: " + e.Reason
}

// NormalizeCode trims and upper-cases a voucher code. Codes are stored and
// looked up in this form.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func checkVoucher(v *models.Voucher) error {
	if err := validate.Struct(v); err != nil {
		return &InvalidVoucherError{Reason: err.Error()}
	}
	if !v.DiscountPercent.IsPositive() || v.DiscountPercent.GreaterThanOrEqual(maxPercent) {
		return &InvalidVoucherError{Reason: "discount percent must be between 0 and 100 exclusive"}
	}
	if v.MaxDiscountAmount.Valid && v.MaxDiscountAmount.Decimal.IsNegative() {
		return &InvalidVoucherError{Reason: "max discount amount must not be negative"}
	}
	if v.MinOrderAmount.Valid && v.MinOrderAmount.Decimal.IsNegative() {
		return &InvalidVoucherError{Reason: "min order amount must not be negative"}
	}
	return nil
}

func codeTaken(tx *gorm.DB, code, exceptID string) (bool, error) {
	q := tx.Model(&models.Voucher{}).Where("code = ?", code)
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Create stores a new voucher with its usage counter at zero.
func Create(ctx context.Context, db *gorm.DB, v *models.Voucher) error {
	v.Code = NormalizeCode(v.Code)
	v.CurrentUsage = 0
	if err := checkVoucher(v); err != nil {
		return err
	}

	taken, err := codeTaken(db.WithContext(ctx), v.Code, "")
	if err != nil {
		return fmt.Errorf("check voucher code: %w", err)
	}
	if taken {
		return ErrDuplicateCode
	}

	if err := db.WithContext(ctx).Create(v).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateCode
		}
		return fmt.Errorf("create voucher: %w", err)
	}
	return nil
}

// Update replaces the editable fields of an existing voucher. Usage is kept.
func Update(ctx context.Context, db *gorm.DB, id string, in *models.Voucher) (*models.Voucher, error) {
	existing, err := FindByID(ctx, db, id)
	if err != nil {
		return nil, err
	}

	existing.Code = NormalizeCode(in.Code)
	existing.Description = in.Description
	existing.DiscountPercent = in.DiscountPercent
	existing.MaxDiscountAmount = in.MaxDiscountAmount
	existing.MinOrderAmount = in.MinOrderAmount
	existing.MaxUsage = in.MaxUsage
	existing.ValidFrom = in.ValidFrom
	existing.ValidTo = in.ValidTo
	existing.IsActive = in.IsActive
	if err := checkVoucher(existing); err != nil {
		return nil, err
	}
	if existing.MaxUsage < existing.CurrentUsage {
		return nil, &InvalidVoucherError{Reason: "max usage is below current usage"}
	}

	taken, err := codeTaken(db.WithContext(ctx), existing.Code, existing.ID)
	if err != nil {
		return nil, fmt.Errorf("check voucher code: %w", err)
	}
	if taken {
		return nil, ErrDuplicateCode
	}

	if err := db.WithContext(ctx).Save(existing).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateCode
		}
		return nil, fmt.Errorf("update voucher: %w", err)
	}
	return existing, nil
}

func Delete(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).Delete(&models.Voucher{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("delete voucher: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrVoucherNotFound
	}
	return nil
}

// Toggle flips the active flag and returns the updated voucher.
func Toggle(ctx context.Context, db *gorm.DB, id string) (*models.Voucher, error) {
	res := db.WithContext(ctx).Model(&models.Voucher{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_active":  gorm.Expr("NOT is_active"),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return nil, fmt.Errorf("toggle voucher: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrVoucherNotFound
	}
	return FindByID(ctx, db, id)
}

func List(ctx context.Context, db *gorm.DB) ([]models.Voucher, error) {
	var vouchers []models.Voucher
	if err := db.WithContext(ctx).Order("created_at DESC").Find(&vouchers).Error; err != nil {
		return nil, fmt.Errorf("list vouchers: %w", err)
	}
	return vouchers, nil
}

func ListActive(ctx context.Context, db *gorm.DB) ([]models.Voucher, error) {
	var vouchers []models.Voucher
	if err := db.WithContext(ctx).Where("is_active = ?", true).
		Order("created_at DESC").Find(&vouchers).Error; err != nil {
		return nil, fmt.Errorf("list active vouchers: %w", err)
	}
	return vouchers, nil
}

func FindByID(ctx context.Context, db *gorm.DB, id string) (*models.Voucher, error) {
	var v models.Voucher
	if err := db.WithContext(ctx).First(&v, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVoucherNotFound
		}
		return nil, fmt.Errorf("find voucher: %w", err)
	}
	return &v, nil
}

func FindByCode(ctx context.Context, db *gorm.DB, code string) (*models.Voucher, error) {
	var v models.Voucher
	if err := db.WithContext(ctx).First(&v, "code = ?", NormalizeCode(code)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVoucherNotFound
		}
		return nil, fmt.Errorf("find voucher: %w", err)
	}
	return &v, nil
}

// Validate returns the voucher only if it can be applied to orderAmount at
// the given time. Every failing rule yields ErrVoucherNotFound.
func Validate(ctx context.Context, db *gorm.DB, code string, orderAmount decimal.Decimal, at time.Time) (*models.Voucher, error) {
	v, err := FindByCode(ctx, db, code)
	if err != nil {
		return nil, err
	}
	if !v.IsUsableAt(at) {
		return nil, ErrVoucherNotFound
	}
	if v.MinOrderAmount.Valid && orderAmount.LessThan(v.MinOrderAmount.Decimal) {
		return nil, ErrVoucherNotFound
	}
	return v, nil
}

// CalculateDiscount returns orderAmount * percent / 100, capped at the
// voucher's max discount when one is set. A nil voucher gives zero.
func CalculateDiscount(v *models.Voucher, orderAmount decimal.Decimal) decimal.Decimal {
	if v == nil || !orderAmount.IsPositive() {
		return decimal.Zero
	}
	discount := orderAmount.Mul(v.DiscountPercent).Div(hundred)
	if v.MaxDiscountAmount.Valid && discount.GreaterThan(v.MaxDiscountAmount.Decimal) {
		discount = v.MaxDiscountAmount.Decimal
	}
	return discount.Round(2)
}

// IncrementUsage consumes one redemption. The update only matches while
// current_usage < max_usage, so concurrent redemptions can never push the
// counter past the cap. Pass the checkout transaction as db to tie the
// redemption to the order it pays for.
func IncrementUsage(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).Model(&models.Voucher{}).
		Where("id = ? AND current_usage < max_usage", id).
		Updates(map[string]interface{}{
			"current_usage": gorm.Expr("current_usage + 1"),
			"updated_at":    time.Now(),
		})
	if res.Error != nil {
		return fmt.Errorf("increment voucher usage: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrVoucherExhausted
	}
	return nil
}
