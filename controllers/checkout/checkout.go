package checkoutControllers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	cartControllers "github.com/junaidrashid-git/bookstore-api/controllers/cart"
	momoControllers "github.com/junaidrashid-git/bookstore-api/controllers/momo"
	orderControllers "github.com/junaidrashid-git/bookstore-api/controllers/order"
	voucherControllers "github.com/junaidrashid-git/bookstore-api/controllers/voucher"
	"github.com/junaidrashid-git/bookstore-api/events"
	"github.com/junaidrashid-git/bookstore-api/models"
	"github.com/junaidrashid-git/bookstore-api/pkg/logkey"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrEmptyCart       = errors.New("cart is empty")
	ErrInvalidVoucher  = errors.New("voucher is invalid or has expired")
	ErrOrderNotPayable = errors.New("order is no longer awaiting payment")
)

// ValidationError is bad receiver input. Nothing is written when it is
// returned.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// Gateway is the payment provider as checkout uses it.
type Gateway interface {
	CreatePayment(ctx context.Context, order *models.Order) (*momoControllers.Payment, error)
	VerifySignature(n momoControllers.Notification, signature string) bool
	Reconcile(ctx context.Context, merchantOrderID, requestID string, resultCode int, transID string) (*momoControllers.Settlement, error)
}

type Receiver struct {
	Name    string `json:"receiver_name"`
	Phone   string `json:"receiver_phone"`
	Address string `json:"receiver_address"`
}

func (r *Receiver) normalize() error {
	r.Name = strings.TrimSpace(r.Name)
	r.Phone = strings.TrimSpace(r.Phone)
	r.Address = strings.TrimSpace(r.Address)
	switch {
	case r.Name == "":
		return &ValidationError{Field: "receiver_name", Message: "receiver name is required"}
	case r.Phone == "":
		return &ValidationError{Field: "receiver_phone", Message: "receiver phone is required"}
	case r.Address == "":
		return &ValidationError{Field: "receiver_address", Message: "receiver address is required"}
	}
	return nil
}

// Result is a created order and, when the gateway accepted it, the payment
// page to send the user to.
type Result struct {
	Order   *models.Order
	Payment *momoControllers.Payment
}

type Service struct {
	db        *gorm.DB
	gateway   Gateway
	publisher events.Publisher
	now       func() time.Time
}

func NewService(db *gorm.DB, gateway Gateway, publisher events.Publisher) *Service {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Service{db: db, gateway: gateway, publisher: publisher, now: time.Now}
}

// Submit turns the user's cart into a PENDING order and starts a payment for
// it. Voucher redemption and order creation commit together: if the voucher
// ran out in the meantime no order is written. A *momoControllers.GatewayError
// comes back with the Result still set; that order stays PENDING and can be
// paid later through Retry.
func (s *Service) Submit(ctx context.Context, userID, username string, receiver Receiver, voucherCode string) (*Result, error) {
	cart, err := cartControllers.GetCart(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	if len(cart.Items) == 0 {
		return nil, ErrEmptyCart
	}
	if err := receiver.normalize(); err != nil {
		return nil, err
	}

	total := cart.TotalAmount()
	discount := decimal.Zero
	var voucher *models.Voucher
	if code := strings.TrimSpace(voucherCode); code != "" {
		voucher, err = voucherControllers.Validate(ctx, s.db, code, total, s.now())
		if errors.Is(err, voucherControllers.ErrVoucherNotFound) {
			return nil, ErrInvalidVoucher
		}
		if err != nil {
			return nil, err
		}
		discount = voucherControllers.CalculateDiscount(voucher, total)
	}

	in := orderControllers.NewOrder{
		UserID:          userID,
		Username:        username,
		Items:           cart.Items,
		TotalAmount:     total,
		DiscountAmount:  discount,
		FinalAmount:     total.Sub(discount),
		ReceiverName:    receiver.Name,
		ReceiverPhone:   receiver.Phone,
		ReceiverAddress: receiver.Address,
		PaymentMethod:   models.PaymentMethodMomo,
	}
	if voucher != nil {
		in.VoucherID = voucher.ID
		in.VoucherCode = voucher.Code
	}

	var order *models.Order
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		created, err := orderControllers.CreateOrder(ctx, tx, in)
		if err != nil {
			return err
		}
		if voucher != nil {
			if err := voucherControllers.IncrementUsage(ctx, tx, voucher.ID); err != nil {
				return err
			}
		}
		order = created
		return nil
	})
	if errors.Is(err, voucherControllers.ErrVoucherExhausted) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidVoucher, err)
	}
	if err != nil {
		return nil, fmt.Errorf("place order: %w", err)
	}

	slog.Info("order created",
		slog.String(logkey.OrderID, order.ID),
		slog.String(logkey.UserID, userID),
		slog.String("total", total.String()),
		slog.String("discount", discount.String()),
		slog.String("final", order.FinalAmount.String()))
	events.Emit(ctx, s.publisher, s.event(events.TypeOrderCreated, order))

	return s.pay(ctx, order)
}

// Retry starts a new payment attempt for an order that is still PENDING.
func (s *Service) Retry(ctx context.Context, userID, orderID string) (*Result, error) {
	order, err := orderControllers.FindUserOrder(ctx, s.db, orderID, userID)
	if err != nil {
		return nil, err
	}
	if order.PaymentStatus != models.PaymentStatusPending {
		return nil, ErrOrderNotPayable
	}
	return s.pay(ctx, order)
}

func (s *Service) pay(ctx context.Context, order *models.Order) (*Result, error) {
	payment, err := s.gateway.CreatePayment(ctx, order)
	if err != nil {
		slog.Warn("payment creation failed",
			slog.String(logkey.OrderID, order.ID),
			slog.String(logkey.ERROR, err.Error()))
		return &Result{Order: order}, err
	}
	return &Result{Order: order, Payment: payment}, nil
}

// Settle applies a verified gateway outcome. The order's owner gets an empty
// cart when this call is the one that marks the order paid.
func (s *Service) Settle(ctx context.Context, n momoControllers.Notification) (*momoControllers.Settlement, error) {
	settlement, err := s.gateway.Reconcile(ctx, n.OrderID, n.RequestID, n.ResultCode, n.TransIDString())
	if err != nil {
		return nil, err
	}
	if !settlement.Transitioned {
		return settlement, nil
	}

	order := settlement.Order
	if settlement.Success {
		if err := cartControllers.Clear(ctx, s.db, order.UserID); err != nil {
			slog.Error("clear cart after payment failed",
				slog.String(logkey.OrderID, order.ID),
				slog.String(logkey.UserID, order.UserID),
				slog.String(logkey.ERROR, err.Error()))
		}
		events.Emit(ctx, s.publisher, s.event(events.TypeOrderPaid, order))
	} else {
		events.Emit(ctx, s.publisher, s.event(events.TypeOrderPaymentFailed, order))
	}
	return settlement, nil
}

// Status reports the recorded payment outcome without changing anything.
func (s *Service) Status(ctx context.Context, merchantOrderID string) (*momoControllers.Settlement, error) {
	order, err := orderControllers.FindOrder(ctx, s.db, momoControllers.ParseMerchantOrderID(merchantOrderID))
	if err != nil {
		return nil, err
	}
	return &momoControllers.Settlement{
		Order:   order,
		Success: order.PaymentStatus == models.PaymentStatusSuccess,
	}, nil
}

func (s *Service) event(kind string, order *models.Order) events.Event {
	return events.Event{
		Type:          kind,
		OrderID:       order.ID,
		UserID:        order.UserID,
		PaymentStatus: string(order.PaymentStatus),
		FinalAmount:   order.FinalAmount,
		TransID:       order.GatewayTransID,
		OccurredAt:    s.now(),
	}
}
