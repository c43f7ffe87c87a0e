package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/junaidrashid-git/bookstore-api/auth"
	"github.com/junaidrashid-git/bookstore-api/config"
	checkoutControllers "github.com/junaidrashid-git/bookstore-api/controllers/checkout"
	momoControllers "github.com/junaidrashid-git/bookstore-api/controllers/momo"
	orderControllers "github.com/junaidrashid-git/bookstore-api/controllers/order"
	"github.com/junaidrashid-git/bookstore-api/events"
	"github.com/junaidrashid-git/bookstore-api/internal/testhelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(t *testing.T) *gin.Engine {
	gin.SetMode(gin.TestMode)
	db := testhelpers.NewDB(t)
	gateway := momoControllers.NewClient(config.Momo{
		PartnerCode: "MOMO",
		AccessKey:   "access",
		SecretKey:   "secret",
		Endpoint:    "http://127.0.0.1:1/create",
	}, db)

	r := gin.New()
	SetupRoutes(r, Deps{
		DB:          db,
		Checkout:    checkoutControllers.NewService(db, gateway, events.Nop{}),
		Hub:         orderControllers.NewHub(),
		JWTSecret:   "jwt",
		AdminAPIKey: "admin",
	})
	return r
}

func TestRoutes_Guards(t *testing.T) {
	r := newRouter(t)
	token, err := auth.IssueToken("jwt", "u1", "alice", auth.RoleUser, time.Hour)
	require.NoError(t, err)

	cases := []struct {
		name   string
		method string
		path   string
		header map[string]string
		code   int
	}{
		{"ping", http.MethodGet, "/ping", nil, http.StatusOK},
		{"public catalog", http.MethodGet, "/books", nil, http.StatusOK},
		{"categories", http.MethodGet, "/categories", nil, http.StatusOK},
		{"cart needs token", http.MethodGet, "/user/cart", nil, http.StatusUnauthorized},
		{"cart with token", http.MethodGet, "/user/cart", map[string]string{"Authorization": "Bearer " + token}, http.StatusOK},
		{"admin needs key", http.MethodGet, "/admin/vouchers", nil, http.StatusUnauthorized},
		{"admin with key", http.MethodGet, "/admin/vouchers", map[string]string{"X-API-KEY": "admin"}, http.StatusOK},
		{"export with key", http.MethodGet, "/admin/orders/export", map[string]string{"X-API-KEY": "admin"}, http.StatusOK},
		{"unsigned callback", http.MethodGet, "/payment/momo/callback?orderId=x_1&requestId=r", nil, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			for k, v := range tc.header {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.code, w.Code)
		})
	}
}
