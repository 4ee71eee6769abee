package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	allocationservice "github.com/smallbiznis/stockroute/internal/allocation/service"
	businessrepository "github.com/smallbiznis/stockroute/internal/business/repository"
	businessservice "github.com/smallbiznis/stockroute/internal/business/service"
	catalogrepository "github.com/smallbiznis/stockroute/internal/catalog/repository"
	catalogservice "github.com/smallbiznis/stockroute/internal/catalog/service"
	"github.com/smallbiznis/stockroute/internal/clock"
	"github.com/smallbiznis/stockroute/internal/config"
	fulfillmentservice "github.com/smallbiznis/stockroute/internal/fulfillment/service"
	historyrepository "github.com/smallbiznis/stockroute/internal/history/repository"
	historyservice "github.com/smallbiznis/stockroute/internal/history/service"
	"github.com/smallbiznis/stockroute/internal/observability"
	orderrepository "github.com/smallbiznis/stockroute/internal/order/repository"
	orderservice "github.com/smallbiznis/stockroute/internal/order/service"
	stockservice "github.com/smallbiznis/stockroute/internal/stock/service"
	"github.com/smallbiznis/stockroute/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T) *gin.Engine {
	gin.SetMode(gin.TestMode)

	conn := testutil.OpenDB(t)
	log := zap.NewNop()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	engine := config.NewStaticEngineConfigHolder(config.DefaultEngineConfig())

	catalogRepo := catalogrepository.Provide()
	orderRepo := orderrepository.Provide()
	historyRepo := historyrepository.Provide()

	r := NewEngine(observability.Config{}, log, nil)
	NewServer(ServerParams{
		Gin:         r,
		BusinessSvc: businessservice.New(businessservice.Params{Log: log, Repo: businessrepository.Provide(conn)}),
		CatalogSvc:  catalogservice.New(catalogservice.Params{DB: conn, Log: log, Repo: catalogRepo}),
		OrderSvc: orderservice.New(orderservice.Params{
			DB: conn, Log: log, GenID: node, Clock: fake, Engine: engine,
			Repo: orderRepo, CatalogRepo: catalogRepo,
		}),
		HistorySvc: historyservice.New(historyservice.Params{DB: conn, Log: log, Repo: historyRepo, OrderRepo: orderRepo}),
		StockSvc:   stockservice.New(stockservice.Params{DB: conn, Log: log, CatalogRepo: catalogRepo, OrderRepo: orderRepo}),
		AllocationSvc: allocationservice.New(allocationservice.Params{
			DB: conn, Log: log, Engine: engine, CatalogRepo: catalogRepo, OrderRepo: orderRepo,
		}),
		FulfillmentSvc: fulfillmentservice.New(fulfillmentservice.Params{
			DB: conn, Log: log, Clock: fake, Engine: engine,
			OrderRepo: orderRepo, CatalogRepo: catalogRepo, HistoryRepo: historyRepo,
		}),
	})
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope), w.Body.String())
	require.NoError(t, json.Unmarshal(envelope.Data, out), w.Body.String())
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp.Error
}

func TestOrderLifecycleOverHTTP(t *testing.T) {
	r := newTestServer(t)

	for _, name := range []string{"Acme", "Bob"} {
		w := doJSON(t, r, http.MethodPost, "/businesses", gin.H{"name": name})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}
	w := doJSON(t, r, http.MethodPost, "/businesses", gin.H{"name": "Acme"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, msgDuplicateKey, decodeError(t, w).Message)

	for _, serial := range []string{"CBL-03", "CBL-01", "CBL-02"} {
		w := doJSON(t, r, http.MethodPost, "/businesses/Acme/products", gin.H{
			"serial_number": serial,
			"type_name":     "cable",
			"producent":     "Belden",
			"model":         "Cat6",
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodPost, "/orders", gin.H{
		"client_id":   "Bob",
		"supplier_id": "Acme",
		"items":       []gin.H{{"type_name": "cable", "quantity": 2}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		OrderID string `json:"order_id"`
	}
	decodeData(t, w, &created)
	require.NotEmpty(t, created.OrderID)
	base := "/orders/" + created.OrderID

	w = doJSON(t, r, http.MethodGet, base+"/plan", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var plan struct {
		Lines []struct {
			TypeName  string `json:"type_name"`
			Allocated int64  `json:"allocated"`
			Units     []struct {
				SerialNumber string `json:"serial_number"`
			} `json:"units"`
		} `json:"lines"`
	}
	decodeData(t, w, &plan)
	require.Len(t, plan.Lines, 1)
	assert.EqualValues(t, 2, plan.Lines[0].Allocated)
	require.Len(t, plan.Lines[0].Units, 2)
	assert.Equal(t, "CBL-01", plan.Lines[0].Units[0].SerialNumber)
	assert.Equal(t, "CBL-02", plan.Lines[0].Units[1].SerialNumber)

	w = doJSON(t, r, http.MethodPost, base+"/reservations", gin.H{"serial_numbers": []string{"CBL-01", "CBL-02"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, r, http.MethodPost, base+"/reservations", gin.H{"serial_numbers": []string{"CBL-03"}})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "reservation exceeds the ordered quantity", decodeError(t, w).Message)

	w = doJSON(t, r, http.MethodDelete, "/products/CBL-01", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, r, http.MethodDelete, "/businesses/Acme", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, msgForeignKeyConflict, decodeError(t, w).Message)

	w = doJSON(t, r, http.MethodGet, "/businesses/Acme/statistics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats []map[string]any
	decodeData(t, w, &stats)
	require.Len(t, stats, 1)
	assert.Equal(t, "cable", stats[0]["Type"])
	assert.EqualValues(t, 3, stats[0]["Count"])
	assert.EqualValues(t, 2, stats[0]["Reserved"])
	assert.EqualValues(t, 2, stats[0]["Ordered"])

	w = doJSON(t, r, http.MethodPost, base+"/complete", gin.H{
		"target_owner":   "Bob",
		"serial_numbers": []string{"CBL-01", "CBL-02"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var completed struct {
		Affected int64 `json:"affected"`
		Moved    int64 `json:"moved"`
	}
	decodeData(t, w, &completed)
	assert.EqualValues(t, 1, completed.Affected)
	assert.EqualValues(t, 2, completed.Moved)

	w = doJSON(t, r, http.MethodGet, base+"/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var history struct {
		Units []map[string]any `json:"units"`
		Stats []map[string]any `json:"stats"`
	}
	decodeData(t, w, &history)
	assert.Len(t, history.Units, 2)
	require.Len(t, history.Stats, 1)
	assert.Equal(t, "cable", history.Stats[0]["Type"])
	assert.EqualValues(t, 2, history.Stats[0]["Sold"])

	w = doJSON(t, r, http.MethodGet, "/orders?business=Bob&history=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var orders []map[string]any
	decodeData(t, w, &orders)
	assert.Len(t, orders, 1)

	w = doJSON(t, r, http.MethodPut, base+"/items", gin.H{"items": []gin.H{{"type_name": "cable", "quantity": 1}}})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRequestValidationOverHTTP(t *testing.T) {
	r := newTestServer(t)

	cases := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{name: "empty order", method: http.MethodPost, path: "/orders", body: gin.H{"client_id": "Bob", "supplier_id": "Acme"}, status: http.StatusBadRequest, code: "empty_order"},
		{name: "bad order id", method: http.MethodGet, path: "/orders/abc/plan", status: http.StatusBadRequest, code: "invalid_order_id"},
		{name: "missing condition flag", method: http.MethodPost, path: "/products/condition", body: gin.H{"serial_numbers": []string{"A"}}, status: http.StatusBadRequest, code: "invalid_functional"},
		{name: "blank target owner", method: http.MethodPost, path: "/orders/42/complete", body: gin.H{"serial_numbers": []string{"A"}}, status: http.StatusBadRequest, code: "invalid_target_owner"},
		{name: "bad history flag", method: http.MethodGet, path: "/orders?history=maybe", status: http.StatusBadRequest, code: "invalid_history"},
		{name: "negative critical level", method: http.MethodPut, path: "/critical-levels", body: gin.H{"business": "Acme", "type_name": "cable", "critical_amount": -1}, status: http.StatusBadRequest, code: "invalid_critical_amount"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(t, r, tc.method, tc.path, tc.body)
			assert.Equal(t, tc.status, w.Code, w.Body.String())
			payload := decodeError(t, w)
			if assert.NotEmpty(t, payload.Errors) {
				assert.Equal(t, tc.code, payload.Errors[0].Code)
			}
		})
	}
}

func TestNotFoundReadsAndWrites(t *testing.T) {
	r := newTestServer(t)

	w := doJSON(t, r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))

	w = doJSON(t, r, http.MethodGet, "/businesses/nobody", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":null}`, w.Body.String())

	w = doJSON(t, r, http.MethodGet, "/businesses/nobody/statistics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":[]}`, w.Body.String())

	w = doJSON(t, r, http.MethodPost, "/orders/999/complete", gin.H{"target_owner": "Bob"})
	assert.Equal(t, http.StatusOK, w.Code)
	var result struct {
		Affected int64 `json:"affected"`
	}
	decodeData(t, w, &result)
	assert.Zero(t, result.Affected)

	w = doJSON(t, r, http.MethodGet, "/nowhere", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", decodeError(t, w).Type)
}
