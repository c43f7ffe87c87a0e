package orderControllers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/junaidrashid-git/bookstore-api/events"
	"github.com/junaidrashid-git/bookstore-api/internal/testhelpers"
	"github.com/junaidrashid-git/bookstore-api/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx"
	"gorm.io/gorm"
)

func newOrder(t *testing.T, db *gorm.DB, userID string) *models.Order {
	t.Helper()
	order, err := CreateOrder(context.Background(), db, NewOrder{
		UserID:   userID,
		Username: "reader",
		Items: []models.CartItem{
			{BookID: 1, Title: "Dune", Price: decimal.NewFromInt(100000), Quantity: 2},
			{BookID: 2, Title: "Emma", Price: decimal.NewFromInt(100000), Quantity: 1},
		},
		TotalAmount:     decimal.NewFromInt(300000),
		DiscountAmount:  decimal.NewFromInt(50000),
		FinalAmount:     decimal.NewFromInt(250000),
		VoucherCode:     "SAVE20",
		ReceiverName:    "An",
		ReceiverPhone:   "0900000000",
		ReceiverAddress: "1 Le Loi",
		PaymentMethod:   models.PaymentMethodMomo,
	})
	require.NoError(t, err)
	return order
}

func TestCreateOrder_SnapshotsItems(t *testing.T) {
	db := testhelpers.NewDB(t)
	ctx := context.Background()
	order := newOrder(t, db, "u1")

	assert.Equal(t, models.PaymentStatusPending, order.PaymentStatus)
	assert.Equal(t, models.OrderStatusPending, order.OrderStatus)

	found, err := FindOrder(ctx, db, order.ID)
	require.NoError(t, err)
	require.Len(t, found.Items, 2)
	assert.Equal(t, "Dune", found.Items[0].Title)
	assert.Equal(t, 2, found.Items[0].Quantity)
	assert.True(t, found.FinalAmount.Equal(decimal.NewFromInt(250000)))
}

func TestFindUserOrder_HidesOtherUsersOrders(t *testing.T) {
	db := testhelpers.NewDB(t)
	ctx := context.Background()
	order := newOrder(t, db, "u1")

	_, err := FindUserOrder(ctx, db, order.ID, "u2")
	assert.ErrorIs(t, err, ErrOrderNotFound)

	_, err = FindUserOrder(ctx, db, order.ID, "u1")
	assert.NoError(t, err)

	_, err = FindOrder(ctx, db, "missing")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestListUserOrders_NewestFirst(t *testing.T) {
	db := testhelpers.NewDB(t)
	ctx := context.Background()

	first := newOrder(t, db, "u1")
	second := newOrder(t, db, "u1")
	newOrder(t, db, "u2")
	require.NoError(t, db.Model(&models.Order{}).Where("id = ?", first.ID).
		Update("created_at", time.Now().Add(-time.Hour)).Error)

	orders, err := ListUserOrders(ctx, db, "u1")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, second.ID, orders[0].ID)
	assert.Equal(t, first.ID, orders[1].ID)

	all, err := ListAllOrders(ctx, db, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestTransitionPayment_OnlyFirstOutcomeWins(t *testing.T) {
	db := testhelpers.NewDB(t)
	ctx := context.Background()
	order := newOrder(t, db, "u1")
	paidAt := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	got, won, err := TransitionPayment(ctx, db, order.ID, models.PaymentStatusSuccess, "TX1", paidAt)
	require.NoError(t, err)
	assert.True(t, won)
	assert.Equal(t, models.PaymentStatusSuccess, got.PaymentStatus)
	assert.Equal(t, "TX1", got.GatewayTransID)
	require.NotNil(t, got.PaidAt)

	got, won, err = TransitionPayment(ctx, db, order.ID, models.PaymentStatusFailed, "", time.Now())
	require.NoError(t, err)
	assert.False(t, won)
	assert.Equal(t, models.PaymentStatusSuccess, got.PaymentStatus)
	assert.True(t, got.PaidAt.Equal(paidAt))

	_, _, err = TransitionPayment(ctx, db, order.ID, models.PaymentStatusPending, "", time.Now())
	assert.ErrorIs(t, err, ErrNotTerminal)

	_, _, err = TransitionPayment(ctx, db, "missing", models.PaymentStatusFailed, "", time.Now())
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestTransitionPayment_ConcurrentOutcomes(t *testing.T) {
	db := testhelpers.NewDB(t)
	ctx := context.Background()
	order := newOrder(t, db, "u1")

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 8; i++ {
		status := models.PaymentStatusSuccess
		if i%2 == 1 {
			status = models.PaymentStatusFailed
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, won, err := TransitionPayment(ctx, db, order.ID, status, "TX", time.Now())
			if !assert.NoError(t, err) {
				return
			}
			if won {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestRecordPaymentRequest(t *testing.T) {
	db := testhelpers.NewDB(t)
	ctx := context.Background()
	order := newOrder(t, db, "u1")

	require.NoError(t, RecordPaymentRequest(ctx, db, order.ID, "req-1", "Pay order"))
	found, err := FindOrder(ctx, db, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "req-1", found.GatewayRequestID)

	_, _, err = TransitionPayment(ctx, db, order.ID, models.PaymentStatusFailed, "", time.Now())
	require.NoError(t, err)
	assert.Error(t, RecordPaymentRequest(ctx, db, order.ID, "req-2", "Pay order"))
	assert.ErrorIs(t, RecordPaymentRequest(ctx, db, "missing", "req-3", ""), ErrOrderNotFound)
}

func TestUpdateOrderStatus(t *testing.T) {
	db := testhelpers.NewDB(t)
	ctx := context.Background()
	order := newOrder(t, db, "u1")

	status, err := ParseOrderStatus(" shipped ")
	require.NoError(t, err)
	updated, err := UpdateOrderStatus(ctx, db, order.ID, status)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusShipped, updated.OrderStatus)
	assert.Equal(t, models.PaymentStatusPending, updated.PaymentStatus)

	_, err = ParseOrderStatus("LOST")
	assert.ErrorIs(t, err, ErrInvalidStatus)
	_, err = UpdateOrderStatus(ctx, db, "missing", models.OrderStatusCancelled)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestWriteOrdersExcel(t *testing.T) {
	db := testhelpers.NewDB(t)
	ctx := context.Background()
	order := newOrder(t, db, "u1")
	orders, err := ListAllOrders(ctx, db, "")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteOrdersExcel(&buf, orders))

	file, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, file.Sheets, 1)
	rows := file.Sheets[0].Rows
	require.Len(t, rows, 2)
	assert.Equal(t, "Order ID", rows[0].Cells[0].Value)
	assert.Equal(t, order.ID, rows[1].Cells[0].Value)
	assert.Equal(t, "Dune x2; Emma x1", rows[1].Cells[5].Value)
	assert.Equal(t, "PENDING", rows[1].Cells[7].Value)

	final, err := rows[1].Cells[11].Float()
	require.NoError(t, err)
	assert.Equal(t, 250000.0, final)
}

func TestOrderStatusHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := testhelpers.NewDB(t)
	order := newOrder(t, db, "u1")

	r := gin.New()
	r.PUT("/admin/orders/:id/status", UpdateOrderStatusHandler(db))

	req := httptest.NewRequest(http.MethodPut, "/admin/orders/"+order.ID+"/status", strings.NewReader(`{"status":"bogus"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req = httptest.NewRequest(http.MethodPut, "/admin/orders/"+order.ID+"/status", strings.NewReader(`{"status":"processing"}`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"order_status":"PROCESSING"`)
}

func TestHub_BroadcastsEvents(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := NewHub()
	r := gin.New()
	r.GET("/ws", hub.ServeWS)
	srv := httptest.NewServer(r)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	assert.Eventually(t, func() bool { return hub.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Publish(context.Background(), events.Event{Type: events.TypeOrderPaid, OrderID: "o1"}))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got events.Event
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, events.TypeOrderPaid, got.Type)
	assert.Equal(t, "o1", got.OrderID)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}
