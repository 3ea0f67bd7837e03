package domain

// ============================================================
// Health & operational responses
// ============================================================

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded, unhealthy
	Backend  string          `json:"backend"`
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual dependency.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latencyMs"`
	LastChecked string `json:"lastChecked"`
}

// MetricsSummary is returned by GET /api/metrics/summary.
type MetricsSummary struct {
	LedgersCreated     int64   `json:"ledgersCreated"`
	DuplicateLedgers   int64   `json:"duplicateLedgers"`
	DepositsRecorded   int64   `json:"depositsRecorded"`
	PurchasesRecorded  int64   `json:"purchasesRecorded"`
	PurchasesRejected  int64   `json:"purchasesRejected"`
	CreditsAdded       int64   `json:"creditsAdded"`
	StoreErrors        int64   `json:"storeErrors"`
	ProjectCacheHitPct float64 `json:"projectCacheHitRate"`
}

// ListResponse wraps list results.
type ListResponse[T any] struct {
	Data  []T `json:"data"`
	Total int `json:"total"`
}

// NewListResponse never returns a nil Data slice so clients always see [].
func NewListResponse[T any](items []T) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{Data: items, Total: len(items)}
}
