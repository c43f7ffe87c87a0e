package momoControllers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/junaidrashid-git/bookstore-api/config"
	orderControllers "github.com/junaidrashid-git/bookstore-api/controllers/order"
	"github.com/junaidrashid-git/bookstore-api/models"
	"github.com/junaidrashid-git/bookstore-api/pkg/logkey"
	"gorm.io/gorm"
)

const (
	requestType = "payWithMethod"
	partnerName = "Bookstore"
	storeID     = "BookstoreStore"
)

var ErrMalformedNotification = errors.New("malformed gateway notification")

// GatewayError is a payment creation the gateway refused or never answered.
// The order stays PENDING and the payment can be retried.
type GatewayError struct {
	ResultCode int
	Message    string
	Err        error
}

func (e *GatewayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("momo: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("momo: result code %d: %s", e.ResultCode, e.Message)
}

func (e *GatewayError) Unwrap() error { return e.Err }

type createRequest struct {
	PartnerCode string `json:"partnerCode"`
	PartnerName string `json:"partnerName"`
	StoreID     string `json:"storeId"`
	RequestID   string `json:"requestId"`
	Amount      int64  `json:"amount"`
	OrderID     string `json:"orderId"`
	OrderInfo   string `json:"orderInfo"`
	RedirectURL string `json:"redirectUrl"`
	IpnURL      string `json:"ipnUrl"`
	Lang        string `json:"lang"`
	RequestType string `json:"requestType"`
	AutoCapture bool   `json:"autoCapture"`
	ExtraData   string `json:"extraData"`
	Signature   string `json:"signature"`
}

type createResponse struct {
	PartnerCode  string `json:"partnerCode"`
	RequestID    string `json:"requestId"`
	OrderID      string `json:"orderId"`
	Amount       int64  `json:"amount"`
	ResponseTime int64  `json:"responseTime"`
	Message      string `json:"message"`
	ResultCode   int    `json:"resultCode"`
	PayURL       string `json:"payUrl"`
	Deeplink     string `json:"deeplink"`
	QrCodeURL    string `json:"qrCodeUrl"`
}

// Payment is an accepted payment creation.
type Payment struct {
	PayURL          string `json:"pay_url"`
	RequestID       string `json:"request_id"`
	MerchantOrderID string `json:"merchant_order_id"`
}

// Notification is the outcome the gateway reports, either as the IPN body or
// as query parameters on the browser redirect.
type Notification struct {
	PartnerCode  string `json:"partnerCode" form:"partnerCode"`
	OrderID      string `json:"orderId" form:"orderId"`
	RequestID    string `json:"requestId" form:"requestId"`
	Amount       int64  `json:"amount" form:"amount"`
	OrderInfo    string `json:"orderInfo" form:"orderInfo"`
	OrderType    string `json:"orderType" form:"orderType"`
	TransID      int64  `json:"transId" form:"transId"`
	ResultCode   int    `json:"resultCode" form:"resultCode"`
	Message      string `json:"message" form:"message"`
	PayType      string `json:"payType" form:"payType"`
	ResponseTime int64  `json:"responseTime" form:"responseTime"`
	ExtraData    string `json:"extraData" form:"extraData"`
	Signature    string `json:"signature" form:"signature"`
}

// Validate rejects notifications that cannot be matched to an order.
func (n *Notification) Validate() error {
	if strings.TrimSpace(n.OrderID) == "" {
		return fmt.Errorf("%w: orderId is required", ErrMalformedNotification)
	}
	if strings.TrimSpace(n.RequestID) == "" {
		return fmt.Errorf("%w: requestId is required", ErrMalformedNotification)
	}
	return nil
}

// TransIDString is the gateway transaction id as stored on the order.
func (n *Notification) TransIDString() string {
	if n.TransID == 0 {
		return ""
	}
	return strconv.FormatInt(n.TransID, 10)
}

// Settlement is the result of applying a gateway outcome to an order.
type Settlement struct {
	Order        *models.Order
	Success      bool
	Transitioned bool
}

type Client struct {
	cfg        config.Momo
	httpClient *http.Client
	db         *gorm.DB
	now        func() time.Time
}

func NewClient(cfg config.Momo, db *gorm.DB) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if cfg.Lang == "" {
		cfg.Lang = "vi"
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		db:         db,
		now:        time.Now,
	}
}

// MerchantOrderID makes a fresh gateway order reference for each attempt;
// the gateway rejects a reused orderId.
func MerchantOrderID(orderID string, at time.Time) string {
	return orderID + "_" + strconv.FormatInt(at.UnixMilli(), 10)
}

// ParseMerchantOrderID strips the attempt suffix added by MerchantOrderID.
func ParseMerchantOrderID(merchantOrderID string) string {
	if i := strings.LastIndex(merchantOrderID, "_"); i > 0 {
		return merchantOrderID[:i]
	}
	return merchantOrderID
}

func (c *Client) sign(raw string) string {
	mac := hmac.New(sha256.New, []byte(c.cfg.SecretKey))
	mac.Write([]byte(raw))
	return hex.EncodeToString(mac.Sum(nil))
}

func (c *Client) createSignature(r createRequest) string {
	raw := "accessKey=" + c.cfg.AccessKey +
		"&amount=" + strconv.FormatInt(r.Amount, 10) +
		"&extraData=" + r.ExtraData +
		"&ipnUrl=" + r.IpnURL +
		"&orderId=" + r.OrderID +
		"&orderInfo=" + r.OrderInfo +
		"&partnerCode=" + r.PartnerCode +
		"&redirectUrl=" + r.RedirectURL +
		"&requestId=" + r.RequestID +
		"&requestType=" + r.RequestType
	return c.sign(raw)
}

// NotificationSignature computes the signature the gateway puts on a
// notification.
func (c *Client) NotificationSignature(n Notification) string {
	raw := "accessKey=" + c.cfg.AccessKey +
		"&amount=" + strconv.FormatInt(n.Amount, 10) +
		"&extraData=" + n.ExtraData +
		"&message=" + n.Message +
		"&orderId=" + n.OrderID +
		"&orderInfo=" + n.OrderInfo +
		"&orderType=" + n.OrderType +
		"&partnerCode=" + c.cfg.PartnerCode +
		"&payType=" + n.PayType +
		"&requestId=" + n.RequestID +
		"&responseTime=" + strconv.FormatInt(n.ResponseTime, 10) +
		"&resultCode=" + strconv.Itoa(n.ResultCode) +
		"&transId=" + strconv.FormatInt(n.TransID, 10)
	return c.sign(raw)
}

// VerifySignature reports whether signature authenticates n.
func (c *Client) VerifySignature(n Notification, signature string) bool {
	if signature == "" {
		return false
	}
	if n.PartnerCode != "" && n.PartnerCode != c.cfg.PartnerCode {
		return false
	}
	want, err := hex.DecodeString(c.NotificationSignature(n))
	if err != nil {
		return false
	}
	got, err := hex.DecodeString(strings.ToLower(signature))
	if err != nil {
		return false
	}
	return hmac.Equal(want, got)
}

// CreatePayment asks the gateway for a hosted payment page for the order's
// final amount. The request id is stored on the order before the call goes
// out, so a late notification can still be matched if the call fails.
func (c *Client) CreatePayment(ctx context.Context, order *models.Order) (*Payment, error) {
	merchantOrderID := MerchantOrderID(order.ID, c.now())
	req := createRequest{
		PartnerCode: c.cfg.PartnerCode,
		PartnerName: partnerName,
		StoreID:     storeID,
		RequestID:   uuid.NewString(),
		Amount:      order.FinalAmount.Round(0).IntPart(),
		OrderID:     merchantOrderID,
		OrderInfo:   "Bookstore order #" + order.ID,
		RedirectURL: c.cfg.RedirectURL,
		IpnURL:      c.cfg.IPNURL,
		Lang:        c.cfg.Lang,
		RequestType: requestType,
		AutoCapture: true,
		ExtraData:   "",
	}
	req.Signature = c.createSignature(req)

	if err := orderControllers.RecordPaymentRequest(ctx, c.db, order.ID, req.RequestID, req.OrderInfo); err != nil {
		return nil, err
	}
	order.GatewayRequestID = req.RequestID
	order.OrderInfo = req.OrderInfo

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode momo request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build momo request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	slog.Info("sending momo payment request",
		slog.String(logkey.OrderID, order.ID),
		slog.String("merchant_order_id", merchantOrderID),
		slog.String("request_id", req.RequestID),
		slog.Int64("amount", req.Amount))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &GatewayError{ResultCode: -1, Message: "failed to reach momo", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &GatewayError{ResultCode: -1, Message: "failed to read momo response", Err: err}
	}

	var out createResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &GatewayError{
			ResultCode: -1,
			Message:    fmt.Sprintf("unexpected momo response (%d)", resp.StatusCode),
			Err:        err,
		}
	}
	if out.ResultCode != 0 {
		return nil, &GatewayError{ResultCode: out.ResultCode, Message: out.Message}
	}
	if out.PayURL == "" {
		return nil, &GatewayError{ResultCode: -1, Message: "momo returned empty payUrl"}
	}

	return &Payment{
		PayURL:          out.PayURL,
		RequestID:       req.RequestID,
		MerchantOrderID: merchantOrderID,
	}, nil
}

// Reconcile applies a gateway outcome to the order behind merchantOrderID.
// Only the first outcome for a PENDING order changes anything; later ones,
// agreeing or not, get the recorded outcome back. Failures reported for a
// request id other than the latest one are ignored.
func (c *Client) Reconcile(ctx context.Context, merchantOrderID, requestID string, resultCode int, transID string) (*Settlement, error) {
	orderID := ParseMerchantOrderID(merchantOrderID)
	existing, err := orderControllers.FindOrder(ctx, c.db, orderID)
	if err != nil {
		return nil, err
	}
	superseded := requestID != "" && existing.GatewayRequestID != "" && requestID != existing.GatewayRequestID
	if superseded {
		slog.Warn("momo outcome for an earlier payment attempt",
			slog.String(logkey.OrderID, orderID),
			slog.String("request_id", requestID),
			slog.String("latest_request_id", existing.GatewayRequestID),
			slog.Int("result_code", resultCode))
	}
	// A failure from an abandoned attempt must not fail an order whose
	// latest attempt may still be paid. A success from any attempt counts.
	if existing.PaymentStatus.Terminal() || (superseded && resultCode != 0) {
		return &Settlement{
			Order:   existing,
			Success: existing.PaymentStatus == models.PaymentStatusSuccess,
		}, nil
	}

	status := models.PaymentStatusFailed
	if resultCode == 0 {
		status = models.PaymentStatusSuccess
	}
	order, transitioned, err := orderControllers.TransitionPayment(ctx, c.db, orderID, status, transID, c.now())
	if err != nil {
		return nil, err
	}
	if transitioned {
		slog.Info("order payment settled",
			slog.String(logkey.OrderID, orderID),
			slog.String("payment_status", string(order.PaymentStatus)),
			slog.Int("result_code", resultCode))
	}
	return &Settlement{
		Order:        order,
		Success:      order.PaymentStatus == models.PaymentStatusSuccess,
		Transitioned: transitioned,
	}, nil
}
