package orderControllers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/junaidrashid-git/bookstore-api/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrInvalidStatus = errors.New("invalid order status")
	ErrNotTerminal   = errors.New("payment outcome must be SUCCESS or FAILED")
)

// NewOrder carries everything checkout has decided before the order row is
// written.
type NewOrder struct {
	UserID          string
	Username        string
	Items           []models.CartItem
	TotalAmount     decimal.Decimal
	VoucherID       string
	VoucherCode     string
	DiscountAmount  decimal.Decimal
	FinalAmount     decimal.Decimal
	ReceiverName    string
	ReceiverPhone   string
	ReceiverAddress string
	PaymentMethod   string
}

// ParseOrderStatus maps user input to an order status, case-insensitively.
func ParseOrderStatus(status string) (models.OrderStatus, error) {
	switch models.OrderStatus(strings.ToUpper(strings.TrimSpace(status))) {
	case models.OrderStatusPending:
		return models.OrderStatusPending, nil
	case models.OrderStatusProcessing:
		return models.OrderStatusProcessing, nil
	case models.OrderStatusShipped:
		return models.OrderStatusShipped, nil
	case models.OrderStatusCompleted:
		return models.OrderStatusCompleted, nil
	case models.OrderStatusCancelled:
		return models.OrderStatusCancelled, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
}

// CreateOrder writes a PENDING order with a frozen copy of the given cart
// lines. Pass a transaction as db to create it atomically with other writes.
func CreateOrder(ctx context.Context, db *gorm.DB, in NewOrder) (*models.Order, error) {
	items := make([]models.OrderItem, 0, len(in.Items))
	for _, it := range in.Items {
		items = append(items, models.OrderItem{
			BookID:   it.BookID,
			Title:    it.Title,
			Author:   it.Author,
			ImageURL: it.ImageURL,
			Price:    it.Price,
			Quantity: it.Quantity,
		})
	}

	order := models.Order{
		UserID:          in.UserID,
		Username:        in.Username,
		Items:           items,
		TotalAmount:     in.TotalAmount,
		VoucherID:       in.VoucherID,
		VoucherCode:     in.VoucherCode,
		DiscountAmount:  in.DiscountAmount,
		FinalAmount:     in.FinalAmount,
		ReceiverName:    in.ReceiverName,
		ReceiverPhone:   in.ReceiverPhone,
		ReceiverAddress: in.ReceiverAddress,
		PaymentMethod:   in.PaymentMethod,
		PaymentStatus:   models.PaymentStatusPending,
		OrderStatus:     models.OrderStatusPending,
		CreatedAt:       time.Now(),
	}
	if err := db.WithContext(ctx).Create(&order).Error; err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	return &order, nil
}

func FindOrder(ctx context.Context, db *gorm.DB, id string) (*models.Order, error) {
	var order models.Order
	err := db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		First(&order, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("find order: %w", err)
	}
	return &order, nil
}

// FindUserOrder returns the order only when userID owns it. Someone else's
// order is reported as not found.
func FindUserOrder(ctx context.Context, db *gorm.DB, id, userID string) (*models.Order, error) {
	order, err := FindOrder(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// RecordPaymentRequest stores the gateway request id and order info of the
// latest payment attempt. Settled orders are left alone.
func RecordPaymentRequest(ctx context.Context, db *gorm.DB, id, requestID, orderInfo string) error {
	res := db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND payment_status = ?", id, models.PaymentStatusPending).
		Updates(map[string]interface{}{
			"gateway_request_id": requestID,
			"order_info":         orderInfo,
			"updated_at":         time.Now(),
		})
	if res.Error != nil {
		return fmt.Errorf("record payment request: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := FindOrder(ctx, db, id); err != nil {
			return err
		}
		return fmt.Errorf("order %s is already settled", id)
	}
	return nil
}

// TransitionPayment moves a PENDING order to a terminal payment status. The
// update matches only while the order is still PENDING, so of several
// concurrent or repeated outcomes exactly one wins. The returned order is the
// stored state after the call; transitioned reports whether this call won.
func TransitionPayment(ctx context.Context, db *gorm.DB, id string, status models.PaymentStatus, transID string, paidAt time.Time) (order *models.Order, transitioned bool, err error) {
	if !status.Terminal() {
		return nil, false, ErrNotTerminal
	}

	updates := map[string]interface{}{
		"payment_status": status,
		"updated_at":     time.Now(),
	}
	if transID != "" {
		updates["gateway_trans_id"] = transID
	}
	if status == models.PaymentStatusSuccess {
		updates["paid_at"] = paidAt
	}

	res := db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND payment_status = ?", id, models.PaymentStatusPending).
		Updates(updates)
	if res.Error != nil {
		return nil, false, fmt.Errorf("update payment outcome: %w", res.Error)
	}

	order, err = FindOrder(ctx, db, id)
	if err != nil {
		return nil, false, err
	}
	return order, res.RowsAffected > 0, nil
}

// UpdateOrderStatus is the admin-side fulfilment status change. It never
// touches the payment status.
func UpdateOrderStatus(ctx context.Context, db *gorm.DB, id string, status models.OrderStatus) (*models.Order, error) {
	if _, err := ParseOrderStatus(string(status)); err != nil {
		return nil, err
	}
	res := db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"order_status": status,
			"updated_at":   time.Now(),
		})
	if res.Error != nil {
		return nil, fmt.Errorf("update order status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrOrderNotFound
	}
	return FindOrder(ctx, db, id)
}

// ListUserOrders returns the user's orders, newest first.
func ListUserOrders(ctx context.Context, db *gorm.DB, userID string) ([]models.Order, error) {
	var orders []models.Order
	if err := db.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("list user orders: %w", err)
	}
	return orders, nil
}

// ListAllOrders returns every order, newest first. A non-empty paymentStatus
// filters on it.
func ListAllOrders(ctx context.Context, db *gorm.DB, paymentStatus models.PaymentStatus) ([]models.Order, error) {
	q := db.WithContext(ctx).Preload("Items").Order("created_at DESC")
	if paymentStatus != "" {
		q = q.Where("payment_status = ?", paymentStatus)
	}
	var orders []models.Order
	if err := q.Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}
