package observability_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jengatrack/jengatrack-api/internal/domain"
	"github.com/jengatrack/jengatrack-api/internal/infra/observability"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func TestMetrics_Snapshot(t *testing.T) {
	m := observability.NewMetrics()

	m.IncrLedgerEvent(observability.EventLedgerCreated)
	m.IncrLedgerEvent(observability.EventLedgerCreated)
	m.IncrLedgerEvent(observability.EventLedgerDuplicate)
	m.IncrLedgerEvent(observability.EventDepositRecorded)
	m.IncrSupplierEvent(observability.EventPurchaseRecorded)
	m.IncrSupplierEvent(observability.EventPurchaseRejected)
	m.IncrSupplierEvent(observability.EventCreditAdded)
	m.IncrStoreError("supabase")
	m.IncrCacheHit("project")
	m.IncrCacheHit("project")
	m.IncrCacheHit("project")
	m.IncrCacheMiss("project")
	m.ObserveLedgerCash(domain.Shillings(150_000))
	m.RecordOperationDuration("create_daily_ledger", 20*time.Millisecond)

	s := m.Snapshot()
	if s.LedgersCreated != 2 || s.DuplicateLedgers != 1 || s.DepositsRecorded != 1 {
		t.Errorf("unexpected ledger counters: %+v", s)
	}
	if s.PurchasesRecorded != 1 || s.PurchasesRejected != 1 || s.CreditsAdded != 1 {
		t.Errorf("unexpected supplier counters: %+v", s)
	}
	if s.StoreErrors != 1 {
		t.Errorf("expected 1 store error, got %d", s.StoreErrors)
	}
	if s.ProjectCacheHitPct != 0.75 {
		t.Errorf("expected hit rate 0.75, got %v", s.ProjectCacheHitPct)
	}
}

func TestMetrics_IndependentRegistries(t *testing.T) {
	a := observability.NewMetrics()
	b := observability.NewMetrics()
	a.IncrLedgerEvent(observability.EventLedgerCreated)

	if b.Snapshot().LedgersCreated != 0 {
		t.Error("registries should not share counters")
	}
}

func TestZapLoggerMiddleware_ObservesRequests(t *testing.T) {
	m := observability.NewMetrics()
	h := middleware.RequestID(observability.ZapLoggerMiddleware(zap.NewNop(), m)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}),
	))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/suppliers", nil))
	if rec.Code != http.StatusTeapot {
		t.Fatalf("expected 418, got %d", rec.Code)
	}

	scrape := httptest.NewRecorder()
	promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}).ServeHTTP(scrape, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := scrape.Body.String()
	if !strings.Contains(body, `jengatrack_http_request_duration_seconds_count{method="GET",status="4xx"} 1`) {
		t.Errorf("http histogram not exported:\n%s", body)
	}
}
