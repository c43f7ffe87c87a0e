package checkoutControllers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	cartControllers "github.com/junaidrashid-git/bookstore-api/controllers/cart"
	momoControllers "github.com/junaidrashid-git/bookstore-api/controllers/momo"
	orderControllers "github.com/junaidrashid-git/bookstore-api/controllers/order"
	"github.com/junaidrashid-git/bookstore-api/pkg/ctxmanage"
	"github.com/junaidrashid-git/bookstore-api/pkg/logkey"
)

type CheckoutRequest struct {
	Receiver
	VoucherCode string `json:"voucher_code"`
}

func writeError(c *gin.Context, err error) {
	var (
		validation *ValidationError
		gateway    *momoControllers.GatewayError
	)
	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": validation.Message, "field": validation.Field})
	case errors.Is(err, ErrEmptyCart), errors.Is(err, ErrInvalidVoucher):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, cartControllers.ErrInsufficientStock), errors.Is(err, ErrOrderNotPayable):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, orderControllers.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
	case errors.As(err, &gateway):
		c.JSON(http.StatusBadGateway, gin.H{"error": "Payment gateway error: " + gateway.Message})
	default:
		slog.Error("checkout request failed",
			slog.String(logkey.TraceID, ctxmanage.GetTraceIdOfRequest(c)),
			slog.String(logkey.ERROR, err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func paymentResponse(res *Result) gin.H {
	body := gin.H{
		"order_id":        res.Order.ID,
		"payment_status":  res.Order.PaymentStatus,
		"total_amount":    res.Order.TotalAmount,
		"discount_amount": res.Order.DiscountAmount,
		"final_amount":    res.Order.FinalAmount,
	}
	if res.Payment != nil {
		body["pay_url"] = res.Payment.PayURL
		body["request_id"] = res.Payment.RequestID
	}
	return body
}

// POST /user/checkout
func CheckoutHandler(s *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		var req CheckoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}

		// Once the order exists the payment request must go out even if the
		// client disconnects.
		ctx := context.WithoutCancel(c.Request.Context())
		res, err := s.Submit(ctx, userID, c.GetString("username"), req.Receiver, req.VoucherCode)
		if err != nil {
			var gateway *momoControllers.GatewayError
			if errors.As(err, &gateway) && res != nil {
				body := paymentResponse(res)
				body["error"] = "Payment gateway error: " + gateway.Message
				c.JSON(http.StatusBadGateway, body)
				return
			}
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, paymentResponse(res))
	}
}

// POST /user/orders/:id/pay
func RetryPaymentHandler(s *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		res, err := s.Retry(context.WithoutCancel(c.Request.Context()), userID, c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, paymentResponse(res))
	}
}

// GET /payment/momo/callback
//
// The browser lands here after paying. A redirect whose signature checks out
// is settled like the IPN; anything else only reports the recorded state.
func MomoCallbackHandler(s *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var n momoControllers.Notification
		if err := c.ShouldBindQuery(&n); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid callback: " + err.Error()})
			return
		}
		if err := n.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx := c.Request.Context()
		var (
			settlement *momoControllers.Settlement
			err        error
		)
		if n.Signature != "" && s.gateway.VerifySignature(n, n.Signature) {
			settlement, err = s.Settle(ctx, n)
		} else {
			if n.Signature != "" {
				slog.Warn("momo redirect with bad signature",
					slog.String(logkey.TraceID, ctxmanage.GetTraceIdOfRequest(c)),
					slog.String("merchant_order_id", n.OrderID))
			}
			settlement, err = s.Status(ctx, n.OrderID)
		}
		if err != nil {
			writeError(c, err)
			return
		}

		// Settle already emptied the cart when this visit paid the order. An
		// owner coming back to an order paid earlier only loses the lines that
		// were in the cart at payment time.
		order := settlement.Order
		if settlement.Success && !settlement.Transitioned && order.PaidAt != nil &&
			c.GetString("user_id") == order.UserID {
			if err := cartControllers.ClearAddedUpTo(ctx, s.db, order.UserID, *order.PaidAt); err != nil {
				writeError(c, err)
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"order_id":       order.ID,
			"payment_status": order.PaymentStatus,
			"success":        settlement.Success,
			"result_code":    n.ResultCode,
			"message":        n.Message,
		})
	}
}

// POST /payment/momo/notify
//
// Server-to-server notification. It is the only unconditional source of
// truth for a payment outcome, and only after its signature verifies.
func MomoNotifyHandler(s *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var n momoControllers.Notification
		if err := c.ShouldBindJSON(&n); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"resultCode": 1, "message": "malformed notification"})
			return
		}
		if err := n.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"resultCode": 1, "message": err.Error()})
			return
		}
		if !s.gateway.VerifySignature(n, n.Signature) {
			slog.Warn("momo IPN with bad signature",
				slog.String(logkey.TraceID, ctxmanage.GetTraceIdOfRequest(c)),
				slog.String("merchant_order_id", n.OrderID))
			c.JSON(http.StatusBadRequest, gin.H{"resultCode": 1, "message": "invalid signature"})
			return
		}

		if _, err := s.Settle(c.Request.Context(), n); err != nil {
			if errors.Is(err, orderControllers.ErrOrderNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"resultCode": 1, "message": "order not found"})
				return
			}
			slog.Error("momo IPN settlement failed",
				slog.String(logkey.TraceID, ctxmanage.GetTraceIdOfRequest(c)),
				slog.String("merchant_order_id", n.OrderID),
				slog.String(logkey.ERROR, err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"resultCode": 1, "message": "internal error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"resultCode": 0, "message": "OK"})
	}
}
