package service

import (
	"context"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jengatrack/jengatrack-api/internal/accounting"
	"github.com/jengatrack/jengatrack-api/internal/domain"
	"github.com/jengatrack/jengatrack-api/internal/infra/observability"
	"github.com/jengatrack/jengatrack-api/internal/port"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var dashboardTracer = otel.Tracer("service/dashboard")

// DashboardService builds the per-project spending rollup.
type DashboardService struct {
	store    port.Store
	projects *ProjectService
	metrics  *observability.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

// NewDashboardService creates a new dashboard service.
func NewDashboardService(store port.Store, projects *ProjectService, metrics *observability.Metrics, logger *zap.Logger) *DashboardService {
	return &DashboardService{store: store, projects: projects, metrics: metrics, logger: logger, now: time.Now}
}

// WithClock replaces the time source. Used by tests.
func (s *DashboardService) WithClock(now func() time.Time) *DashboardService {
	s.now = now
	return s
}

// ProjectSummary loads ledgers, deposits and supplier draws in parallel and
// folds them into a budget view.
func (s *DashboardService) ProjectSummary(ctx context.Context, accountID, projectID string) (*domain.ProjectSummary, error) {
	ctx, span := dashboardTracer.Start(ctx, "DashboardService.ProjectSummary")
	defer span.End()
	span.SetAttributes(attribute.String("project.id", projectID))
	start := s.now()

	project, err := s.projects.Authorize(ctx, accountID, projectID)
	if err != nil {
		return nil, err
	}

	var (
		ledgers  []domain.DailyLedger
		deposits []domain.CashDeposit
		draws    []domain.SupplierEntry
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		ledgers, err = s.store.ListDailyLedgers(gctx, projectID)
		return err
	})
	g.Go(func() error {
		var err error
		deposits, err = s.store.ListCashDeposits(gctx, projectID, civil.Date{})
		return err
	})
	g.Go(func() error {
		var err error
		draws, err = s.store.ListProjectSupplierDraws(gctx, projectID)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("project summary load failed", zap.String("project_id", projectID), zap.Error(err))
		return nil, err
	}

	sum, err := buildSummary(project, ledgers, deposits, draws, civil.DateOf(s.now()))
	if err != nil {
		s.logger.Error("project summary out of range", zap.String("project_id", projectID), zap.Error(err))
		return nil, err
	}
	s.metrics.RecordOperationDuration("project_summary", s.now().Sub(start))
	return sum, nil
}

func buildSummary(p *domain.Project, ledgers []domain.DailyLedger, deposits []domain.CashDeposit, draws []domain.SupplierEntry, today civil.Date) (*domain.ProjectSummary, error) {
	sum := &domain.ProjectSummary{
		ProjectID:   p.ID,
		Budget:      p.Budget,
		LedgerCount: len(ledgers),
	}

	// add folds v into *total and remembers the first overflow.
	ok := true
	add := func(total *domain.Money, v domain.Money) {
		if !ok {
			return
		}
		*total, ok = total.Add(v)
	}

	var latest *domain.DailyLedger
	for i := range ledgers {
		l := &ledgers[i]
		add(&sum.TotalCashSpent, l.TotalCashSpent)
		add(&sum.TotalLedgerSupplier, l.TotalSupplierSpent)
		if l.Date == today {
			sum.HasTodaysLedger = true
		}
		if latest == nil || l.Date.After(latest.Date) {
			latest = l
		}
	}
	if latest != nil {
		closing := latest.ClosingCash
		date := latest.Date
		sum.LatestClosingCash = &closing
		sum.LatestLedgerDate = &date
	}

	for _, d := range deposits {
		add(&sum.TotalDeposits, d.Amount)
	}
	// Ledger draws are already counted through the ledgers' supplier totals.
	for _, e := range draws {
		if e.Source == domain.SourceDirectPurchase {
			add(&sum.TotalDirectPurchases, e.Amount)
		}
	}

	add(&sum.TotalSpent, sum.TotalCashSpent)
	add(&sum.TotalSpent, sum.TotalLedgerSupplier)
	add(&sum.TotalSpent, sum.TotalDirectPurchases)
	if ok {
		sum.RemainingBudget, ok = sum.Budget.Sub(sum.TotalSpent)
	}
	if !ok {
		return nil, &domain.ErrValidation{Field: "summary", Message: "project totals out of range"}
	}
	sum.BudgetUtilization = accounting.Utilization(sum.TotalSpent, sum.Budget)
	sum.DisplayUtilization = accounting.CapPercent(sum.BudgetUtilization)
	sum.IsOverBudget = sum.Budget > 0 && sum.TotalSpent > sum.Budget
	return sum, nil
}
