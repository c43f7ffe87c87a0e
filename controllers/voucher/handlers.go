package voucherControllers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/junaidrashid-git/bookstore-api/models"
	"github.com/junaidrashid-git/bookstore-api/pkg/ctxmanage"
	"github.com/junaidrashid-git/bookstore-api/pkg/logkey"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type VoucherInput struct {
	Code              string              `json:"code" binding:"required"`
	Description       string              `json:"description"`
	DiscountPercent   decimal.Decimal     `json:"discount_percent"`
	MaxDiscountAmount decimal.NullDecimal `json:"max_discount_amount"`
	MinOrderAmount    decimal.NullDecimal `json:"min_order_amount"`
	MaxUsage          int                 `json:"max_usage" binding:"required"`
	ValidFrom         time.Time           `json:"valid_from"`
	ValidTo           time.Time           `json:"valid_to"`
	IsActive          *bool               `json:"is_active"`
}

func (in VoucherInput) toModel() *models.Voucher {
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	return &models.Voucher{
		Code:              in.Code,
		Description:       in.Description,
		DiscountPercent:   in.DiscountPercent,
		MaxDiscountAmount: in.MaxDiscountAmount,
		MinOrderAmount:    in.MinOrderAmount,
		MaxUsage:          in.MaxUsage,
		ValidFrom:         in.ValidFrom,
		ValidTo:           in.ValidTo,
		IsActive:          active,
	}
}

func writeError(c *gin.Context, err error) {
	var invalid *InvalidVoucherError
	switch {
	case errors.As(err, &invalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": invalid.Error()})
	case errors.Is(err, ErrDuplicateCode):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, ErrVoucherNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		slog.Error("voucher request failed",
			slog.String(logkey.TraceID, ctxmanage.GetTraceIdOfRequest(c)),
			slog.String(logkey.ERROR, err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// POST /admin/vouchers
func CreateVoucher(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input VoucherInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}

		v := input.toModel()
		if err := Create(c.Request.Context(), db, v); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, v)
	}
}

// PUT /admin/vouchers/:id
func UpdateVoucher(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input VoucherInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}

		v, err := Update(c.Request.Context(), db, c.Param("id"), input.toModel())
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, v)
	}
}

// DELETE /admin/vouchers/:id
func DeleteVoucher(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := Delete(c.Request.Context(), db, c.Param("id")); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Voucher deleted"})
	}
}

// PATCH /admin/vouchers/:id/toggle
func ToggleVoucher(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, err := Toggle(c.Request.Context(), db, c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, v)
	}
}

// GET /admin/vouchers
func ListVouchers(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		vouchers, err := List(c.Request.Context(), db)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, vouchers)
	}
}

// GET /admin/vouchers/active
func ListActiveVouchers(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		vouchers, err := ListActive(c.Request.Context(), db)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, vouchers)
	}
}

// GET /admin/vouchers/:id
func GetVoucher(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, err := FindByID(c.Request.Context(), db, c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, v)
	}
}

// GET /admin/vouchers/code/:code
func GetVoucherByCode(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, err := FindByCode(c.Request.Context(), db, c.Param("code"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, v)
	}
}

type validateRequest struct {
	Code        string          `json:"code" binding:"required"`
	OrderAmount decimal.Decimal `json:"order_amount"`
}

// POST /user/vouchers/validate
//
// Preview used by the checkout page before the order is submitted.
func ValidateVoucher(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req validateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}

		v, err := Validate(c.Request.Context(), db, req.Code, req.OrderAmount, time.Now())
		if errors.Is(err, ErrVoucherNotFound) {
			c.JSON(http.StatusOK, gin.H{
				"valid":   false,
				"message": "Voucher is invalid or has expired",
			})
			return
		}
		if err != nil {
			writeError(c, err)
			return
		}

		discount := CalculateDiscount(v, req.OrderAmount)
		c.JSON(http.StatusOK, gin.H{
			"valid":            true,
			"code":             v.Code,
			"discount_percent": v.DiscountPercent,
			"discount_amount":  discount,
			"final_amount":     req.OrderAmount.Sub(discount),
		})
	}
}
