// Package events publishes order lifecycle notifications to brokers and the
// admin live feed.
package events

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/junaidrashid-git/bookstore-api/pkg/logkey"
	"github.com/shopspring/decimal"
)

const (
	TypeOrderCreated       = "order.created"
	TypeOrderPaid          = "order.paid"
	TypeOrderPaymentFailed = "order.payment_failed"
)

type Event struct {
	Type          string          `json:"type"`
	OrderID       string          `json:"order_id"`
	UserID        string          `json:"user_id"`
	PaymentStatus string          `json:"payment_status"`
	FinalAmount   decimal.Decimal `json:"final_amount"`
	TransID       string          `json:"trans_id,omitempty"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Multi delivers each event to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Emit publishes e and logs a failure instead of returning it. Order state
// never depends on delivery.
func Emit(ctx context.Context, p Publisher, e Event) {
	if p == nil {
		return
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now()
	}
	if err := p.Publish(ctx, e); err != nil {
		slog.Error("publish event failed",
			slog.String("event", e.Type),
			slog.String(logkey.OrderID, e.OrderID),
			slog.String(logkey.ERROR, err.Error()))
	}
}
