package momoControllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/junaidrashid-git/bookstore-api/config"
	orderControllers "github.com/junaidrashid-git/bookstore-api/controllers/order"
	"github.com/junaidrashid-git/bookstore-api/internal/testhelpers"
	"github.com/junaidrashid-git/bookstore-api/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func testConfig(endpoint string) config.Momo {
	return config.Momo{
		PartnerCode: "MOMOTEST",
		AccessKey:   "access",
		SecretKey:   "secret",
		Endpoint:    endpoint,
		RedirectURL: "http://shop.local/payment/momo/callback",
		IPNURL:      "http://shop.local/payment/momo/notify",
		Timeout:     2 * time.Second,
	}
}

func pendingOrder(t *testing.T, db *gorm.DB) *models.Order {
	t.Helper()
	order, err := orderControllers.CreateOrder(context.Background(), db, orderControllers.NewOrder{
		UserID:         "u1",
		Username:       "reader",
		Items:          []models.CartItem{{BookID: 1, Title: "Dune", Price: decimal.NewFromInt(300000), Quantity: 1}},
		TotalAmount:    decimal.NewFromInt(300000),
		DiscountAmount: decimal.NewFromInt(50000),
		FinalAmount:    decimal.NewFromInt(250000),
		PaymentMethod:  models.PaymentMethodMomo,
	})
	require.NoError(t, err)
	return order
}

type fakeGateway struct {
	mu       sync.Mutex
	requests []createRequest
	reply    createResponse
	delay    time.Duration
}

func (f *fakeGateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	f.mu.Lock()
	f.requests = append(f.requests, req)
	reply := f.reply
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(reply)
}

func (f *fakeGateway) sent() []createRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]createRequest(nil), f.requests...)
}

func TestSign_KnownVector(t *testing.T) {
	c := NewClient(config.Momo{SecretKey: "key"}, nil)
	// HMAC-SHA256("key", "The quick brown fox jumps over the lazy dog")
	assert.Equal(t,
		"f7bc83f430538424b13298e6aa6fb143ef4d59a14946175997479dbc2d1a3cd8",
		c.sign("The quick brown fox jumps over the lazy dog"))
}

func TestMerchantOrderID_RoundTrip(t *testing.T) {
	at := time.UnixMilli(1717000000123)
	id := MerchantOrderID("7f1c_a", at)

	assert.Equal(t, "7f1c_a_1717000000123", id)
	assert.Equal(t, "7f1c_a", ParseMerchantOrderID(id))
	assert.Equal(t, "plain", ParseMerchantOrderID("plain"))
}

func TestVerifySignature(t *testing.T) {
	c := NewClient(testConfig(""), nil)
	n := Notification{
		PartnerCode:  "MOMOTEST",
		OrderID:      "o1_1",
		RequestID:    "r1",
		Amount:       250000,
		OrderInfo:    "Bookstore order #o1",
		OrderType:    "momo_wallet",
		TransID:      4088878653,
		ResultCode:   0,
		Message:      "Successful.",
		PayType:      "qr",
		ResponseTime: 1717000000999,
	}
	sig := c.NotificationSignature(n)

	assert.True(t, c.VerifySignature(n, sig))
	assert.True(t, c.VerifySignature(n, strings.ToUpper(sig)))
	assert.False(t, c.VerifySignature(n, ""))
	assert.False(t, c.VerifySignature(n, "zz"))

	tampered := n
	tampered.ResultCode = 1006
	assert.False(t, c.VerifySignature(tampered, sig))

	tampered = n
	tampered.Amount = 1
	assert.False(t, c.VerifySignature(tampered, sig))

	other := n
	other.PartnerCode = "SOMEONE"
	assert.False(t, c.VerifySignature(other, c.NotificationSignature(other)))

	wrongKey := NewClient(config.Momo{PartnerCode: "MOMOTEST", AccessKey: "access", SecretKey: "other"}, nil)
	assert.False(t, wrongKey.VerifySignature(n, sig))
}

func TestCreatePayment_SendsSignedFinalAmount(t *testing.T) {
	db := testhelpers.NewDB(t)
	gw := &fakeGateway{reply: createResponse{ResultCode: 0, Message: "Successful.", PayURL: "https://pay.example/abc"}}
	srv := httptest.NewServer(gw)
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), db)
	order := pendingOrder(t, db)

	payment, err := c.CreatePayment(context.Background(), order)
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/abc", payment.PayURL)

	require.Len(t, gw.sent(), 1)
	sent := gw.sent()[0]
	assert.Equal(t, int64(250000), sent.Amount)
	assert.Equal(t, "MOMOTEST", sent.PartnerCode)
	assert.Equal(t, requestType, sent.RequestType)
	assert.True(t, sent.AutoCapture)
	assert.Equal(t, "vi", sent.Lang)
	assert.Equal(t, order.ID, ParseMerchantOrderID(sent.OrderID))
	assert.Equal(t, payment.MerchantOrderID, sent.OrderID)
	assert.Equal(t, payment.RequestID, sent.RequestID)
	assert.Equal(t, c.createSignature(sent), sent.Signature)

	stored, err := orderControllers.FindOrder(context.Background(), db, order.ID)
	require.NoError(t, err)
	assert.Equal(t, sent.RequestID, stored.GatewayRequestID)
	assert.Equal(t, sent.OrderInfo, stored.OrderInfo)
	assert.Equal(t, models.PaymentStatusPending, stored.PaymentStatus)
}

func TestCreatePayment_GatewayRejects(t *testing.T) {
	db := testhelpers.NewDB(t)
	gw := &fakeGateway{reply: createResponse{ResultCode: 41, Message: "Duplicate orderId"}}
	srv := httptest.NewServer(gw)
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), db)
	order := pendingOrder(t, db)

	_, err := c.CreatePayment(context.Background(), order)
	var gwErr *GatewayError
	require.True(t, errors.As(err, &gwErr), "got %v", err)
	assert.Equal(t, 41, gwErr.ResultCode)
	assert.Contains(t, gwErr.Error(), "Duplicate orderId")

	stored, err := orderControllers.FindOrder(context.Background(), db, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, stored.PaymentStatus)
	assert.Equal(t, gw.sent()[0].RequestID, stored.GatewayRequestID)
}

func TestCreatePayment_TimeoutIsGatewayError(t *testing.T) {
	db := testhelpers.NewDB(t)
	gw := &fakeGateway{delay: 300 * time.Millisecond, reply: createResponse{PayURL: "https://pay.example/late"}}
	srv := httptest.NewServer(gw)
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.Timeout = 50 * time.Millisecond
	c := NewClient(cfg, db)
	order := pendingOrder(t, db)

	_, err := c.CreatePayment(context.Background(), order)
	var gwErr *GatewayError
	require.True(t, errors.As(err, &gwErr), "got %v", err)

	stored, err := orderControllers.FindOrder(context.Background(), db, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, stored.PaymentStatus)
	assert.NotEmpty(t, stored.GatewayRequestID)
}

func TestCreatePayment_Unreachable(t *testing.T) {
	db := testhelpers.NewDB(t)
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(testConfig(url), db)
	_, err := c.CreatePayment(context.Background(), pendingOrder(t, db))
	var gwErr *GatewayError
	assert.True(t, errors.As(err, &gwErr), "got %v", err)
}

func TestReconcile_Idempotent(t *testing.T) {
	db := testhelpers.NewDB(t)
	ctx := context.Background()
	c := NewClient(testConfig(""), db)
	paidAt := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)
	c.now = func() time.Time { return paidAt }

	order := pendingOrder(t, db)
	merchantID := MerchantOrderID(order.ID, paidAt)

	first, err := c.Reconcile(ctx, merchantID, "req", 0, "TX1")
	require.NoError(t, err)
	assert.True(t, first.Success)
	assert.True(t, first.Transitioned)

	c.now = func() time.Time { return paidAt.Add(time.Hour) }
	second, err := c.Reconcile(ctx, merchantID, "req", 0, "TX1")
	require.NoError(t, err)
	assert.True(t, second.Success)
	assert.False(t, second.Transitioned)

	late, err := c.Reconcile(ctx, merchantID, "req", 1, "")
	require.NoError(t, err)
	assert.True(t, late.Success)
	assert.False(t, late.Transitioned)

	stored, err := orderControllers.FindOrder(ctx, db, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusSuccess, stored.PaymentStatus)
	assert.Equal(t, "TX1", stored.GatewayTransID)
	require.NotNil(t, stored.PaidAt)
	assert.True(t, stored.PaidAt.Equal(paidAt))
}

func TestReconcile_FailureFromEarlierAttemptIsIgnored(t *testing.T) {
	db := testhelpers.NewDB(t)
	ctx := context.Background()
	c := NewClient(testConfig(""), db)
	order := pendingOrder(t, db)

	require.NoError(t, orderControllers.RecordPaymentRequest(ctx, db, order.ID, "req-1", "first"))
	require.NoError(t, orderControllers.RecordPaymentRequest(ctx, db, order.ID, "req-2", "retry"))

	stale, err := c.Reconcile(ctx, order.ID+"_1", "req-1", 1005, "")
	require.NoError(t, err)
	assert.False(t, stale.Transitioned)
	assert.Equal(t, models.PaymentStatusPending, stale.Order.PaymentStatus)

	paid, err := c.Reconcile(ctx, order.ID+"_2", "req-2", 0, "TX2")
	require.NoError(t, err)
	assert.True(t, paid.Transitioned)
	assert.True(t, paid.Success)

	stored, err := orderControllers.FindOrder(ctx, db, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusSuccess, stored.PaymentStatus)
	assert.Equal(t, "TX2", stored.GatewayTransID)
}

func TestReconcile_SuccessFromEarlierAttemptCounts(t *testing.T) {
	db := testhelpers.NewDB(t)
	ctx := context.Background()
	c := NewClient(testConfig(""), db)
	order := pendingOrder(t, db)

	require.NoError(t, orderControllers.RecordPaymentRequest(ctx, db, order.ID, "req-1", "first"))
	require.NoError(t, orderControllers.RecordPaymentRequest(ctx, db, order.ID, "req-2", "retry"))

	res, err := c.Reconcile(ctx, order.ID+"_1", "req-1", 0, "TX1")
	require.NoError(t, err)
	assert.True(t, res.Transitioned)
	assert.Equal(t, models.PaymentStatusSuccess, res.Order.PaymentStatus)
	assert.Equal(t, "TX1", res.Order.GatewayTransID)
}

func TestReconcile_FailureIsTerminal(t *testing.T) {
	db := testhelpers.NewDB(t)
	ctx := context.Background()
	c := NewClient(testConfig(""), db)
	order := pendingOrder(t, db)

	res, err := c.Reconcile(ctx, order.ID+"_1", "req", 1006, "")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.True(t, res.Transitioned)
	assert.Nil(t, res.Order.PaidAt)

	res, err = c.Reconcile(ctx, order.ID+"_2", "req", 0, "TX9")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, models.PaymentStatusFailed, res.Order.PaymentStatus)

	_, err = c.Reconcile(ctx, "missing_1", "req", 0, "TX")
	assert.ErrorIs(t, err, orderControllers.ErrOrderNotFound)
}

func TestNotification_Validate(t *testing.T) {
	assert.ErrorIs(t, (&Notification{RequestID: "r"}).Validate(), ErrMalformedNotification)
	assert.ErrorIs(t, (&Notification{OrderID: "o"}).Validate(), ErrMalformedNotification)
	assert.NoError(t, (&Notification{OrderID: "o", RequestID: "r"}).Validate())
	assert.Equal(t, "", (&Notification{}).TransIDString())
	assert.Equal(t, "42", (&Notification{TransID: 42}).TransIDString())
}
