package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-stock/internal/alerts"
	"github.com/odyssey-erp/odyssey-stock/internal/importer"
	"github.com/odyssey-erp/odyssey-stock/internal/inventory"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	return rr.Body.String()
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/test")

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx)
	req = req.WithContext(ctx)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusTeapot, rr.Code)

	body := scrape(t, metrics)
	require.Contains(t, body, `odyssey_http_requests_total{code="418",route="/test"} 1`)
	require.Contains(t, body, `odyssey_http_request_duration_seconds_bucket{route="/test"`)
}

func TestObserveImportCountsOutcomes(t *testing.T) {
	metrics := NewMetrics()
	metrics.ObserveImport(importer.Result{Outcomes: []importer.Outcome{
		{Kind: importer.OutcomeWritten, OK: true},
		{Kind: importer.OutcomeWritten, OK: true},
		{Kind: importer.OutcomeInvalid, Err: errors.New("bad")},
	}})

	body := scrape(t, metrics)
	require.Contains(t, body, `odyssey_import_entries_total{outcome="written"} 2`)
	require.Contains(t, body, `odyssey_import_entries_total{outcome="invalid"} 1`)
	require.Contains(t, body, "odyssey_import_runs_total 1")
}

func TestObserveAlerts(t *testing.T) {
	metrics := NewMetrics()
	metrics.ObserveAlerts(alerts.Set{
		LowStock: []inventory.Product{{ID: "a"}, {ID: "b"}},
		Expired:  []inventory.Product{{ID: "c"}},
	})

	body := scrape(t, metrics)
	require.Contains(t, body, `odyssey_alert_products_total{bucket="low_stock"} 2`)
	require.Contains(t, body, `odyssey_alert_products_total{bucket="expired"} 1`)
	require.True(t, strings.Contains(body, `bucket="out_of_stock"} 0`))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.ObserveImport(importer.Result{})
	m.ObserveAlerts(alerts.Set{})

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
