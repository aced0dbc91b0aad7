package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/warp/billing-engine/billing"
)

// Metrics holds the server's Prometheus collectors. It implements
// billing.Recorder.
type Metrics struct {
	registry *prometheus.Registry

	previews         prometheus.Counter
	invoicesIssued   prometheus.Counter
	numberCollisions prometheus.Counter
	requestDuration  *prometheus.HistogramVec

	openInvoices    prometheus.Gauge
	overdueInvoices prometheus.Gauge
	overdueAmount   prometheus.Gauge
}

// NewMetrics registers all collectors on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.previews = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "billing",
		Name:      "invoice_previews_total",
		Help:      "Invoice previews built.",
	})
	m.invoicesIssued = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "billing",
		Name:      "invoices_issued_total",
		Help:      "Invoices persisted.",
	})
	m.numberCollisions = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "billing",
		Name:      "invoice_number_collisions_total",
		Help:      "Invoice saves rejected because the number was already taken.",
	})
	m.requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "billing",
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	m.openInvoices = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "billing",
		Name:      "invoices_open",
		Help:      "Issued invoices not yet paid, as of the last receivables check.",
	})
	m.overdueInvoices = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "billing",
		Name:      "invoices_overdue",
		Help:      "Unpaid invoices past their due date, as of the last receivables check.",
	})
	m.overdueAmount = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "billing",
		Name:      "receivables_overdue_amount",
		Help:      "Sum of overdue invoice totals.",
	})

	m.registry.MustRegister(m.previews, m.invoicesIssued, m.numberCollisions, m.requestDuration,
		m.openInvoices, m.overdueInvoices, m.overdueAmount)
	return m
}

func (m *Metrics) PreviewBuilt()    { m.previews.Inc() }
func (m *Metrics) InvoiceIssued()   { m.invoicesIssued.Inc() }
func (m *Metrics) NumberCollision() { m.numberCollisions.Inc() }

// ObserveReceivables sets the receivables gauges.
func (m *Metrics) ObserveReceivables(r billing.Receivables) {
	m.openInvoices.Set(float64(r.Open))
	m.overdueInvoices.Set(float64(r.Overdue))
	m.overdueAmount.Set(r.OverdueAmount.InexactFloat64())
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware observes request durations labelled by chi route pattern, so
// ids in paths don't blow up cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		m.requestDuration.
			WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).
			Observe(time.Since(start).Seconds())
	})
}
