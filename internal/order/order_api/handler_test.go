package order_api_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ms-preorder/internal/auth"
	"ms-preorder/internal/catalog"
	"ms-preorder/internal/catalog/catalogtest"
	"ms-preorder/internal/config"
	"ms-preorder/internal/logger"
	"ms-preorder/internal/models"
	"ms-preorder/internal/order"
	"ms-preorder/internal/order/db"
	"ms-preorder/internal/order/order_api"
	"ms-preorder/internal/pickup"
	"ms-preorder/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

const (
	secret   = "api-test-secret"
	qrSecret = "qr"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func setupRouter(t *testing.T) http.Handler {
	sqldb, err := sql.Open(sqliteshim.ShimName, fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { bunDB.Close() })
	require.NoError(t, db.CreateSchema(context.Background(), bunDB))

	log := logger.NewConsoleLogger("test", io.Discard)
	lookup := catalogtest.NewStatic(
		catalog.Entry{ItemID: 1, Name: "Masala Dosa", UnitPrice: decimal.RequireFromString("50.00"), Available: true},
		catalog.Entry{ItemID: 2, Name: "Paneer Thali", UnitPrice: decimal.RequireFromString("120.00"), Available: true},
	)
	svc := order.NewOrderService(db.New(bunDB), lookup, config.EngineConfig{
		Timezone: utils.DefaultTimezone, RejectUnavailable: true, MaxRetries: 1, RetryBackoff: time.Millisecond, DefaultPayment: "UPI",
	}, log)

	h := order_api.NewHandler(svc, pickup.NewQRGenerator(qrSecret), log)
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Use(auth.Middleware(auth.HS256Verifier{Secret: secret}, "token", log))
		h.RegisterRoutes(r)
	})
	return r
}

func do(t *testing.T, h http.Handler, method, path string, id auth.Identity, body interface{}) (*httptest.ResponseRecorder, envelope) {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	token, err := auth.SignToken(id, secret, time.Hour)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: "token", Value: token})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

var (
	alice = auth.Identity{UserID: "alice", Role: auth.RoleCustomer}
	bob   = auth.Identity{UserID: "bob", Role: auth.RoleCustomer}
	staff = auth.Identity{UserID: "s1", Role: auth.RoleStaff}
)

func placeOrder(t *testing.T, h http.Handler) models.CreateOrderResponse {
	rec, env := do(t, h, "POST", "/api/orders", alice, map[string]interface{}{
		"items": []map[string]int{{"item_id": 1, "quantity": 2}, {"item_id": 2, "quantity": 1}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp models.CreateOrderResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	return resp
}

func TestCreateOrder_API(t *testing.T) {
	h := setupRouter(t)

	resp := placeOrder(t, h)
	assert.Equal(t, 1, resp.OrderNo)
	assert.Equal(t, "220.00", resp.Amount.String())

	// client supplied amounts are ignored
	rec, env := do(t, h, "POST", "/api/orders", alice, map[string]interface{}{
		"items":  []map[string]int{{"item_id": 1, "quantity": 1}},
		"amount": "0.01",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, string(env.Data), `"amount":"50.00"`)
}

func TestCreateOrder_API_Errors(t *testing.T) {
	h := setupRouter(t)

	rec, _ := do(t, h, "POST", "/api/orders", alice, map[string]interface{}{"items": []interface{}{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env := do(t, h, "POST", "/api/orders", alice, map[string]interface{}{
		"items": []map[string]int{{"item_id": 77, "quantity": 1}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, string(env.Data), `"unknown":[77]`)

	req := httptest.NewRequest("POST", "/api/orders", bytes.NewBufferString(`{}`))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOrderOwnership(t *testing.T) {
	h := setupRouter(t)
	resp := placeOrder(t, h)

	rec, _ := do(t, h, "GET", "/api/orders/"+resp.OrderID, alice, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(t, h, "GET", "/api/orders/"+resp.OrderID, bob, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = do(t, h, "PUT", "/api/orders/cancel/"+resp.OrderID, bob, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = do(t, h, "GET", "/api/orders/"+resp.OrderID, staff, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, env := do(t, h, "GET", "/api/orders/user", bob, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, string(env.Data))
}

func TestCancelFlow_API(t *testing.T) {
	h := setupRouter(t)
	resp := placeOrder(t, h)

	rec, _ := do(t, h, "PUT", "/api/orders/cancel/"+resp.OrderID, alice, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(t, h, "PUT", "/api/orders/cancel/"+resp.OrderID, alice, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestStaffRoutes_API(t *testing.T) {
	h := setupRouter(t)
	resp := placeOrder(t, h)

	rec, _ := do(t, h, "GET", "/api/admin-routes", alice, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = do(t, h, "PATCH", "/api/admin-routes/"+resp.OrderID, staff, map[string]string{"status": "completed"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(t, h, "PATCH", "/api/admin-routes/"+resp.OrderID, staff, map[string]string{"status": "ready"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, _ = do(t, h, "PATCH", "/api/admin-routes/"+resp.OrderID, staff, map[string]string{"status": "eaten"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, h, "PATCH", "/api/admin-routes/missing", staff, map[string]string{"status": "ready"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, env := do(t, h, "GET", "/api/admin-routes", staff, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var day models.DayOrders
	require.NoError(t, json.Unmarshal(env.Data, &day))
	assert.Equal(t, "220.00", day.TotalRevenue.String())
	require.Len(t, day.Orders, 1)

	rec, _ = do(t, h, "GET", "/api/admin-routes?date=yesterday", staff, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env = do(t, h, "GET", "/api/reports/user/alice/total", staff, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), `"total_spent":"220.00"`)

	rec, env = do(t, h, "GET", "/api/admin/stats", staff, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), `"total_orders":1`)
}

func TestPickupTicket_API(t *testing.T) {
	h := setupRouter(t)
	resp := placeOrder(t, h)

	rec, _ := do(t, h, "GET", "/api/orders/"+resp.OrderID+"/ticket", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))
}

func TestPickupTicket_SizeIsClamped(t *testing.T) {
	h := setupRouter(t)
	resp := placeOrder(t, h)

	for query, want := range map[string]int{
		"?size=100000": pickup.DefaultSize,
		"?size=-5":     pickup.DefaultSize,
		"?size=10":     pickup.DefaultSize,
		"?size=512":    512,
		"":             pickup.DefaultSize,
	} {
		rec, _ := do(t, h, "GET", "/api/orders/"+resp.OrderID+"/ticket"+query, alice, nil)
		require.Equal(t, http.StatusOK, rec.Code, query)

		cfg, err := png.DecodeConfig(bytes.NewReader(rec.Body.Bytes()))
		require.NoError(t, err, query)
		assert.Equal(t, want, cfg.Width, query)
		assert.Equal(t, want, cfg.Height, query)
	}
}

func TestVerifyPickup_API(t *testing.T) {
	h := setupRouter(t)
	resp := placeOrder(t, h)

	rec, env := do(t, h, "GET", "/api/orders/"+resp.OrderID, alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var placed models.OrderWithItems
	require.NoError(t, json.Unmarshal(env.Data, &placed))

	token, err := pickup.NewQRGenerator(qrSecret).Seal(pickup.Pass{OrderID: placed.ID, Day: placed.Day, OrderNo: placed.OrderNo})
	require.NoError(t, err)

	rec, env = do(t, h, "POST", "/api/admin-routes/pickup/verify", staff, map[string]string{"token": token})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var verified models.OrderWithItems
	require.NoError(t, json.Unmarshal(env.Data, &verified))
	assert.Equal(t, resp.OrderID, verified.ID)
	assert.Equal(t, resp.OrderNo, verified.OrderNo)

	// customers cannot verify passes
	rec, _ = do(t, h, "POST", "/api/admin-routes/pickup/verify", alice, map[string]string{"token": token})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	forged, err := pickup.NewQRGenerator("someone-else").Seal(pickup.Pass{OrderID: placed.ID, Day: placed.Day, OrderNo: placed.OrderNo})
	require.NoError(t, err)
	rec, _ = do(t, h, "POST", "/api/admin-routes/pickup/verify", staff, map[string]string{"token": forged})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, h, "POST", "/api/admin-routes/pickup/verify", staff, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// a genuine pass whose number no longer matches the order is refused
	stale, err := pickup.NewQRGenerator(qrSecret).Seal(pickup.Pass{OrderID: placed.ID, Day: placed.Day, OrderNo: placed.OrderNo + 1})
	require.NoError(t, err)
	rec, _ = do(t, h, "POST", "/api/admin-routes/pickup/verify", staff, map[string]string{"token": stale})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
