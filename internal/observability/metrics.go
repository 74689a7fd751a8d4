package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/odyssey-erp/odyssey-stock/internal/alerts"
	"github.com/odyssey-erp/odyssey-stock/internal/importer"
)

// Metrics mengumpulkan metrik Prometheus untuk aplikasi.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	importEntries   *prometheus.CounterVec
	importRuns      prometheus.Counter
	alertProducts   *prometheus.CounterVec
}

// NewMetrics menginisialisasi registry dan metrik dasar.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_http_requests_total",
		Help: "Jumlah permintaan HTTP berdasarkan route dan status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "odyssey_http_request_duration_seconds",
		Help:    "Durasi permintaan HTTP per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	importEntries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_import_entries_total",
		Help: "Entri impor produk berdasarkan hasil.",
	}, []string{"outcome"})
	importRuns := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "odyssey_import_runs_total",
		Help: "Jumlah proses impor produk yang selesai.",
	})
	alertProducts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_alert_products_total",
		Help: "Produk yang masuk ke bucket peringatan saat evaluasi.",
	}, []string{"bucket"})
	registry.MustRegister(requests, duration, importEntries, importRuns, alertProducts)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		importEntries:   importEntries,
		importRuns:      importRuns,
		alertProducts:   alertProducts,
	}
}

// ObserveImport mencatat hasil satu proses impor.
func (m *Metrics) ObserveImport(res importer.Result) {
	if m == nil {
		return
	}
	m.importRuns.Inc()
	for _, o := range res.Outcomes {
		m.importEntries.WithLabelValues(string(o.Kind)).Inc()
	}
}

// ObserveAlerts mencatat ukuran setiap bucket peringatan.
func (m *Metrics) ObserveAlerts(set alerts.Set) {
	if m == nil {
		return
	}
	m.alertProducts.WithLabelValues("low_stock").Add(float64(len(set.LowStock)))
	m.alertProducts.WithLabelValues("out_of_stock").Add(float64(len(set.OutOfStock)))
	m.alertProducts.WithLabelValues("expiring_soon").Add(float64(len(set.ExpiringSoon)))
	m.alertProducts.WithLabelValues("expired").Add(float64(len(set.Expired)))
}

// Handler mengembalikan http.Handler untuk endpoint /metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware mencatat metrik untuk setiap permintaan HTTP.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// Registerer mengekspos registry untuk pendaftaran metrik khusus.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Flush meneruskan flush agar respons streaming tetap berjalan.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
