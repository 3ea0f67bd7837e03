package observability

import (
	"strconv"
	"time"

	"github.com/jengatrack/jengatrack-api/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the API.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	httpDuration     *prometheus.HistogramVec
	operationLatency *prometheus.HistogramVec
	ledgerEvents     *prometheus.CounterVec
	supplierEvents   *prometheus.CounterVec
	storeErrors      *prometheus.CounterVec
	cacheHits        *prometheus.CounterVec
	cacheMisses      *prometheus.CounterVec
	ledgerCash       prometheus.Histogram
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. A private registry lets tests call NewMetrics
// repeatedly without "duplicate collector" panics.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "jengatrack_http_request_duration_seconds",
				Help:    "Duration of HTTP requests by method and status class.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "status"},
		),
		operationLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "jengatrack_operation_duration_seconds",
				Help:    "Duration of service operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		ledgerEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jengatrack_ledger_events_total",
				Help: "Daily ledger and cash deposit events.",
			},
			[]string{"event"},
		),
		supplierEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jengatrack_supplier_events_total",
				Help: "Supplier credit events.",
			},
			[]string{"event"},
		),
		storeErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jengatrack_store_errors_total",
				Help: "Errors returned by the persistence backend.",
			},
			[]string{"backend"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jengatrack_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jengatrack_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		ledgerCash: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "jengatrack_ledger_cash_spent_shillings",
				Help:    "Cash spent per daily ledger, in shillings.",
				Buckets: prometheus.ExponentialBuckets(10_000, 4, 8),
			},
		),
	}
}

// Ledger and supplier event names.
const (
	EventLedgerCreated     = "ledger_created"
	EventLedgerDuplicate   = "ledger_duplicate"
	EventLedgerOverdrawn   = "ledger_overdrawn"
	EventDepositRecorded   = "deposit_recorded"
	EventPurchaseRecorded  = "purchase_recorded"
	EventPurchaseRejected  = "purchase_rejected"
	EventCreditAdded       = "credit_added"
	EventLedgerSupplierUse = "ledger_supplier_draw"
)

// ObserveHTTP records the latency of one HTTP request.
func (m *Metrics) ObserveHTTP(method string, status int, d time.Duration) {
	class := strconv.Itoa(status/100) + "xx"
	m.httpDuration.WithLabelValues(method, class).Observe(d.Seconds())
}

// RecordOperationDuration records the duration of a service operation.
func (m *Metrics) RecordOperationDuration(operation string, d time.Duration) {
	m.operationLatency.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrLedgerEvent increments a daily-ledger/deposit event counter.
func (m *Metrics) IncrLedgerEvent(event string) {
	m.ledgerEvents.WithLabelValues(event).Inc()
}

// IncrSupplierEvent increments a supplier credit event counter.
func (m *Metrics) IncrSupplierEvent(event string) {
	m.supplierEvents.WithLabelValues(event).Inc()
}

// ObserveLedgerCash records how much cash a ledger consumed.
func (m *Metrics) ObserveLedgerCash(spent domain.Money) {
	f, _ := spent.Decimal().Float64()
	m.ledgerCash.Observe(f)
}

// IncrStoreError increments the persistence error counter.
func (m *Metrics) IncrStoreError(backend string) {
	m.storeErrors.WithLabelValues(backend).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// Snapshot returns current counter values for GET /api/metrics/summary.
func (m *Metrics) Snapshot() *domain.MetricsSummary {
	hits := getCounterValue(m.cacheHits, "project")
	misses := getCounterValue(m.cacheMisses, "project")
	hitRate := float64(0)
	if hits+misses > 0 {
		hitRate = hits / (hits + misses)
	}

	var storeErrors float64
	for _, backend := range []string{"memory", "supabase"} {
		storeErrors += getCounterValue(m.storeErrors, backend)
	}

	return &domain.MetricsSummary{
		LedgersCreated:     int64(getCounterValue(m.ledgerEvents, EventLedgerCreated)),
		DuplicateLedgers:   int64(getCounterValue(m.ledgerEvents, EventLedgerDuplicate)),
		DepositsRecorded:   int64(getCounterValue(m.ledgerEvents, EventDepositRecorded)),
		PurchasesRecorded:  int64(getCounterValue(m.supplierEvents, EventPurchaseRecorded)),
		PurchasesRejected:  int64(getCounterValue(m.supplierEvents, EventPurchaseRejected)),
		CreditsAdded:       int64(getCounterValue(m.supplierEvents, EventCreditAdded)),
		StoreErrors:        int64(storeErrors),
		ProjectCacheHitPct: hitRate,
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
