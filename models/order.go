package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type OrderStatus string
type PaymentStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"    // Order placed, awaiting processing
	OrderStatusProcessing OrderStatus = "PROCESSING" // Being packed
	OrderStatusShipped    OrderStatus = "SHIPPED"    // Out for delivery
	OrderStatusCompleted  OrderStatus = "COMPLETED"  // Customer received the books
	OrderStatusCancelled  OrderStatus = "CANCELLED"

	PaymentStatusPending PaymentStatus = "PENDING" // Waiting for the gateway
	PaymentStatusSuccess PaymentStatus = "SUCCESS"
	PaymentStatusFailed  PaymentStatus = "FAILED"
)

const PaymentMethodMomo = "MOMO"

// Terminal reports whether the payment has been settled one way or the other.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentStatusSuccess || s == PaymentStatusFailed
}

type Order struct {
	ID               string          `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID           string          `gorm:"index;not null" json:"user_id"`
	Username         string          `json:"username"`
	Items            []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	TotalAmount      decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"total_amount"`
	VoucherID        string          `gorm:"type:varchar(36)" json:"voucher_id,omitempty"`
	VoucherCode      string          `json:"voucher_code,omitempty"`
	DiscountAmount   decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"discount_amount"`
	FinalAmount      decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"final_amount"`
	ReceiverName     string          `json:"receiver_name"`
	ReceiverPhone    string          `json:"receiver_phone"`
	ReceiverAddress  string          `json:"receiver_address"`
	PaymentMethod    string          `json:"payment_method"`
	PaymentStatus    PaymentStatus   `gorm:"type:VARCHAR(20);not null;index" json:"payment_status"`
	OrderStatus      OrderStatus     `gorm:"type:VARCHAR(20);not null" json:"order_status"`
	GatewayTransID   string          `json:"gateway_trans_id,omitempty"`
	GatewayRequestID string          `gorm:"index" json:"gateway_request_id,omitempty"`
	OrderInfo        string          `json:"order_info,omitempty"`
	CreatedAt        time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	PaidAt           *time.Time      `json:"paid_at,omitempty"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}

// OrderItem is a frozen copy of a cart line taken when the order is created.
type OrderItem struct {
	ID       uint            `gorm:"primaryKey" json:"-"`
	OrderID  string          `gorm:"type:varchar(36);index;not null" json:"-"`
	BookID   uint            `json:"book_id"`
	Title    string          `json:"title"`
	Author   string          `json:"author"`
	ImageURL string          `json:"image_url"`
	Price    decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"price"`
	Quantity int             `json:"quantity"`
}

func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// AllModels lists every table AutoMigrate has to create.
func AllModels() []interface{} {
	return []interface{}{
		&Counter{},
		&Category{},
		&Book{},
		&Voucher{},
		&Cart{},
		&CartItem{},
		&Order{},
		&OrderItem{},
		&GuestUser{},
	}
}
