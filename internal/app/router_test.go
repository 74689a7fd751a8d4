package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-stock/internal/alerts"
	"github.com/odyssey-erp/odyssey-stock/internal/dashboard"
	"github.com/odyssey-erp/odyssey-stock/internal/importer"
	"github.com/odyssey-erp/odyssey-stock/internal/inventory"
	"github.com/odyssey-erp/odyssey-stock/internal/observability"
	"github.com/odyssey-erp/odyssey-stock/internal/profile"
	"github.com/odyssey-erp/odyssey-stock/internal/sales"
	"github.com/odyssey-erp/odyssey-stock/jobs"
)

func newTestApp(t *testing.T) (http.Handler, *Stores) {
	t.Helper()
	cfg := &Config{StoreDriver: StoreDriverMemory, DateISOFallback: true, ExpiryWindowDays: 15}
	stores, closeStores, err := OpenStores(context.Background(), cfg, nil, nil)
	require.NoError(t, err)
	t.Cleanup(closeStores)

	metrics := observability.NewMetrics()
	rules := cfg.DateRules()
	evaluator := alerts.NewEvaluator(rules)
	inv := inventory.NewService(stores.Products, inventory.NewEngine(rules), stores.Audit, nil)
	salesSvc := sales.NewService(stores.Sales, nil, nil)
	reconciler := importer.NewReconciler(stores.Products, rules, metrics, nil)

	router := NewRouter(RouterParams{
		Config:           cfg,
		InventoryHandler: inventory.NewHandler(nil, inv),
		AlertsHandler:    alerts.NewHandler(nil, alerts.NewService(inv, evaluator, nil)),
		SalesHandler:     sales.NewHandler(nil, salesSvc),
		DashboardHandler: dashboard.NewHandler(nil, dashboard.NewService(inv, evaluator, salesSvc), inv),
		ImportHandler:    importer.NewHandler(nil, reconciler, nil, stores.Idempotency, cfg.LinkPolicy()),
		ProfileHandler:   profile.NewHandler(nil, profile.NewService(stores.Profiles)),
		JobHandler:       jobs.NewHandler(nil, nil),
		Metrics:          metrics,
	})
	return router, stores
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouterHealthAndMetrics(t *testing.T) {
	router, _ := newTestApp(t)

	rec := do(t, router, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec = do(t, router, http.MethodGet, "/jobs/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `odyssey_http_requests_total{code="200",route="/healthz"}`)
}

func TestRouterImportThenViewAndAlerts(t *testing.T) {
	router, stores := newTestApp(t)

	payload := `[
		{"productCode":"A","name":"Soap","price":2,"quantity":0},
		{"productCode":"B","name":"Bad"},
		{"productCode":"C","name":"Rice","price":5,"quantity":40}
	]`
	rec := do(t, router, http.MethodPost, "/users/u1/imports", payload)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res struct {
		SuccessCount int `json:"successCount"`
		ErrorCount   int `json:"errorCount"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Equal(t, 2, res.SuccessCount)
	require.Equal(t, 1, res.ErrorCount)

	users, err := stores.Products.ListUsers(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"u1"}, users)

	rec = do(t, router, http.MethodGet, "/users/u1/inventory", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var view inventory.View
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.Equal(t, 1, view.GroupCount, "depleted stock is not grouped")

	rec = do(t, router, http.MethodGet, "/users/u1/inventory/alerts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "1 product out of stock")

	rec = do(t, router, http.MethodGet, "/users/u1/dashboard", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, http.MethodGet, "/users/u1/sales?window=week", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, http.MethodPatch, "/users/u1/profile", `{"fullName":"Ana"}`)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRouterRemoteImportWithoutQueue(t *testing.T) {
	router, _ := newTestApp(t)
	rec := do(t, router, http.MethodPost, "/users/u1/imports/remote", `{"url":"https://example.com/a.json"}`)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestOpenStoresRejectsUnknownDriver(t *testing.T) {
	_, _, err := OpenStores(context.Background(), &Config{StoreDriver: "sqlite"}, nil, nil)
	require.Error(t, err)
}
