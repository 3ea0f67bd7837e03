package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/jengatrack/jengatrack-api/internal/domain"
	"github.com/jengatrack/jengatrack-api/internal/infra/cache"
	"github.com/jengatrack/jengatrack-api/internal/infra/memstore"
	"github.com/jengatrack/jengatrack-api/internal/infra/observability"
	"github.com/jengatrack/jengatrack-api/internal/service"

	"go.uber.org/zap"
)

const (
	owner    = "acct-owner"
	intruder = "acct-other"
)

var fixedNow = time.Date(2024, 5, 10, 9, 30, 0, 0, time.UTC)

type fixture struct {
	store     *memstore.Store
	metrics   *observability.Metrics
	projects  *service.ProjectService
	ledgers   *service.LedgerService
	suppliers *service.SupplierService
	dashboard *service.DashboardService
	clock     func() time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memstore.New()
	metrics := observability.NewMetrics()
	logger := zap.NewNop()
	projectCache := cache.New[domain.Project](time.Minute)
	t.Cleanup(projectCache.Close)

	clock := func() time.Time { return fixedNow }
	projects := service.NewProjectService(store, projectCache, metrics, logger).WithClock(clock)

	return &fixture{
		store:     store,
		metrics:   metrics,
		projects:  projects,
		ledgers:   service.NewLedgerService(store, projects, metrics, logger).WithClock(clock),
		suppliers: service.NewSupplierService(store, projects, metrics, logger).WithClock(clock),
		dashboard: service.NewDashboardService(store, projects, metrics, logger).WithClock(clock),
		clock:     clock,
	}
}

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

func moneyPtr(m domain.Money) *domain.Money { return &m }

func (f *fixture) project(t *testing.T, budget domain.Money) *domain.Project {
	t.Helper()
	p, err := f.projects.CreateProject(context.Background(), owner, &domain.ProjectRequest{
		Name:   strPtr("Kilimani Apartments"),
		Budget: moneyPtr(budget),
	})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	return p
}

func (f *fixture) deposit(t *testing.T, projectID, date string, amount domain.Money) {
	t.Helper()
	_, err := f.ledgers.RecordCashDeposit(context.Background(), owner, &domain.CashDepositRequest{
		ProjectID: projectID,
		Amount:    amount,
		Date:      date,
		Method:    "mobile_money",
	})
	if err != nil {
		t.Fatalf("deposit on %s: %v", date, err)
	}
}

func ledgerRequest(projectID, date string, lines ...domain.LedgerLine) *domain.CreateDailyLedgerRequest {
	req := &domain.CreateDailyLedgerRequest{Lines: lines}
	req.Ledger.ProjectID = projectID
	req.Ledger.Date = date
	return req
}

func cashLine(item string, amount domain.Money) domain.LedgerLine {
	return domain.LedgerLine{Item: item, Category: domain.CategoryMaterials, Amount: amount, PaymentMethod: domain.PaymentCash}
}

func supplierLine(item, supplierID string, amount domain.Money) domain.LedgerLine {
	return domain.LedgerLine{Item: item, Category: domain.CategoryMaterials, Amount: amount, PaymentMethod: domain.PaymentSupplier, SupplierID: supplierID}
}
