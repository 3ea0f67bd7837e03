package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/jengatrack/jengatrack-api/internal/accounting"
	"github.com/jengatrack/jengatrack-api/internal/domain"
	"github.com/jengatrack/jengatrack-api/internal/infra/observability"
	"github.com/jengatrack/jengatrack-api/internal/port"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var ledgerTracer = otel.Tracer("service/ledger")

// LedgerStore is what the ledger use cases need from persistence: the
// ledger/deposit tables and supplier lookups for supplier-paid lines.
type LedgerStore interface {
	port.LedgerStore
	GetSupplier(ctx context.Context, supplierID string) (*domain.Supplier, error)
}

// LedgerService handles the daily cash cycle of a project: opening balances,
// daily ledger submission and owner cash deposits.
type LedgerService struct {
	store    LedgerStore
	projects *ProjectService
	metrics  *observability.Metrics
	logger   *zap.Logger
	locks    *keyedMutex
	now      func() time.Time
}

// NewLedgerService creates a new ledger service.
func NewLedgerService(store LedgerStore, projects *ProjectService, metrics *observability.Metrics, logger *zap.Logger) *LedgerService {
	return &LedgerService{
		store:    store,
		projects: projects,
		metrics:  metrics,
		logger:   logger,
		locks:    newKeyedMutex(),
		now:      time.Now,
	}
}

// WithClock replaces the time source. Used by tests.
func (s *LedgerService) WithClock(now func() time.Time) *LedgerService {
	s.now = now
	return s
}

// Ledger submission and cash deposits of one project run under this key.
func projectLedgerKey(projectID string) string { return "ledger:" + projectID }

// ============================================================
// Opening balance
// ============================================================

// OpeningBalance resolves the cash on hand at the start of dateStr.
func (s *LedgerService) OpeningBalance(ctx context.Context, accountID, projectID, dateStr string) (*domain.OpeningBalance, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.OpeningBalance")
	defer span.End()
	span.SetAttributes(attribute.String("project.id", projectID))

	date, err := domain.ParseDate("date", dateStr)
	if err != nil {
		return nil, err
	}
	if _, err := s.projects.Authorize(ctx, accountID, projectID); err != nil {
		return nil, err
	}

	return s.resolve(ctx, projectID, date)
}

func (s *LedgerService) resolve(ctx context.Context, projectID string, date civil.Date) (*domain.OpeningBalance, error) {
	prev, err := s.store.LatestLedgerBefore(ctx, projectID, date)
	if err != nil {
		return nil, err
	}
	deposits, err := s.store.ListCashDeposits(ctx, projectID, date)
	if err != nil {
		return nil, err
	}
	ob, err := accounting.ResolveOpeningBalance(projectID, date, prev, deposits)
	if err != nil {
		return nil, err
	}
	return &ob, nil
}

// ============================================================
// Daily ledgers
// ============================================================

// CreateDailyLedger validates and stores a day's ledger. The opening balance
// is resolved here, not taken from the client, and at most one ledger per
// project and day is accepted.
func (s *LedgerService) CreateDailyLedger(ctx context.Context, accountID string, req *domain.CreateDailyLedgerRequest) (*domain.DailyLedger, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.CreateDailyLedger")
	defer span.End()
	start := s.now()

	projectID := strings.TrimSpace(req.Ledger.ProjectID)
	if projectID == "" {
		return nil, &domain.ErrValidation{Field: "ledger.projectId", Message: "required"}
	}
	date, err := domain.ParseDate("ledger.date", req.Ledger.Date)
	if err != nil {
		return nil, err
	}
	if err := accounting.ValidateLines(req.Lines); err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.String("project.id", projectID),
		attribute.String("ledger.date", date.String()),
		attribute.Int("ledger.lines", len(req.Lines)),
	)

	if _, err := s.projects.Authorize(ctx, accountID, projectID); err != nil {
		return nil, err
	}
	if err := s.checkSuppliers(ctx, accountID, req.Lines); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(projectLedgerKey(projectID))
	defer unlock()

	latest, err := s.store.LatestLedger(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if latest != nil {
		if latest.Date == date {
			s.metrics.IncrLedgerEvent(observability.EventLedgerDuplicate)
			return nil, &domain.ErrDuplicate{Key: projectID + "/" + date.String()}
		}
		if date.Before(latest.Date) {
			return nil, &domain.ErrValidation{
				Field:   "ledger.date",
				Message: "must not be before the latest ledger (" + latest.Date.String() + ")",
			}
		}
	}

	ob, err := s.resolve(ctx, projectID, date)
	if err != nil {
		return nil, err
	}
	totals, err := accounting.AggregateLedger(ob.OpeningBalance, req.Lines)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	lines := make([]domain.LedgerLine, len(req.Lines))
	copy(lines, req.Lines)
	ledger := &domain.DailyLedger{
		ID:                 uuid.New().String(),
		ProjectID:          projectID,
		Date:               date,
		OpeningCash:        ob.OpeningBalance,
		ClosingCash:        totals.ClosingCash,
		TotalCashSpent:     totals.TotalCashSpent,
		TotalSupplierSpent: totals.TotalSupplierSpent,
		Overdrawn:          totals.Overdrawn,
		Notes:              strings.TrimSpace(req.Ledger.Notes),
		SubmittedBy:        accountID,
		SubmittedAt:        now,
		Lines:              lines,
	}
	draws := ledgerDraws(ledger, accountID)

	if err := s.store.CreateDailyLedger(ctx, ledger, draws); err != nil {
		var dup *domain.ErrDuplicate
		if errors.As(err, &dup) {
			s.metrics.IncrLedgerEvent(observability.EventLedgerDuplicate)
		}
		return nil, err
	}

	s.metrics.IncrLedgerEvent(observability.EventLedgerCreated)
	s.metrics.ObserveLedgerCash(ledger.TotalCashSpent)
	for range draws {
		s.metrics.IncrSupplierEvent(observability.EventLedgerSupplierUse)
	}
	s.metrics.RecordOperationDuration("create_daily_ledger", s.now().Sub(start))

	fields := []zap.Field{
		zap.String("project_id", projectID),
		zap.String("ledger_id", ledger.ID),
		zap.String("date", date.String()),
		zap.String("opening_cash", ledger.OpeningCash.String()),
		zap.String("cash_spent", ledger.TotalCashSpent.String()),
		zap.String("supplier_spent", ledger.TotalSupplierSpent.String()),
		zap.String("closing_cash", ledger.ClosingCash.String()),
	}
	if ledger.Overdrawn {
		s.metrics.IncrLedgerEvent(observability.EventLedgerOverdrawn)
		s.logger.Warn("daily ledger overdrawn", fields...)
	} else {
		s.logger.Info("daily ledger created", fields...)
	}

	return ledger, nil
}

// checkSuppliers verifies every supplier referenced by a line belongs to the account.
func (s *LedgerService) checkSuppliers(ctx context.Context, accountID string, lines []domain.LedgerLine) error {
	seen := make(map[string]bool)
	for i, l := range lines {
		if l.SupplierID == "" || seen[l.SupplierID] {
			continue
		}
		sup, err := s.store.GetSupplier(ctx, l.SupplierID)
		if err != nil {
			if isNotFound(err) {
				return &domain.ErrValidation{Field: linesField(i, "supplierId"), Message: "unknown supplier"}
			}
			return err
		}
		if sup.OwnerID != accountID {
			return &domain.ErrForbidden{Action: "use supplier " + l.SupplierID}
		}
		seen[l.SupplierID] = true
	}
	return nil
}

// ledgerDraws turns supplier lines that name a supplier into credit-line draws.
func ledgerDraws(l *domain.DailyLedger, accountID string) []domain.SupplierEntry {
	var draws []domain.SupplierEntry
	for _, line := range l.Lines {
		if line.PaymentMethod != domain.PaymentSupplier || line.SupplierID == "" {
			continue
		}
		draws = append(draws, domain.SupplierEntry{
			ID:         uuid.New().String(),
			SupplierID: line.SupplierID,
			Kind:       domain.EntryDraw,
			Source:     domain.SourceDailyLedgerLine,
			ProjectID:  l.ProjectID,
			LedgerID:   l.ID,
			Item:       line.Item,
			Amount:     line.Amount,
			Date:       l.Date,
			Note:       line.Note,
			CreatedBy:  accountID,
			CreatedAt:  l.SubmittedAt,
		})
	}
	return draws
}

func (s *LedgerService) ListDailyLedgers(ctx context.Context, accountID, projectID string) ([]domain.DailyLedger, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.ListDailyLedgers")
	defer span.End()

	if _, err := s.projects.Authorize(ctx, accountID, projectID); err != nil {
		return nil, err
	}
	return s.store.ListDailyLedgers(ctx, projectID)
}

func (s *LedgerService) GetDailyLedger(ctx context.Context, accountID, projectID, dateStr string) (*domain.DailyLedger, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.GetDailyLedger")
	defer span.End()

	date, err := domain.ParseDate("date", dateStr)
	if err != nil {
		return nil, err
	}
	if _, err := s.projects.Authorize(ctx, accountID, projectID); err != nil {
		return nil, err
	}
	return s.store.GetDailyLedger(ctx, projectID, date)
}

// ============================================================
// Cash deposits
// ============================================================

// RecordCashDeposit stores an owner-to-site transfer. Deposits dated on or
// before the latest ledger are refused: no future opening balance would
// include them.
func (s *LedgerService) RecordCashDeposit(ctx context.Context, accountID string, req *domain.CashDepositRequest) (*domain.CashDeposit, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.RecordCashDeposit")
	defer span.End()

	projectID := strings.TrimSpace(req.ProjectID)
	if projectID == "" {
		return nil, &domain.ErrValidation{Field: "projectId", Message: "required"}
	}
	if !req.Amount.IsPositive() {
		return nil, &domain.ErrValidation{Field: "amount", Message: "must be positive"}
	}
	date, err := domain.ParseDate("date", req.Date)
	if err != nil {
		return nil, err
	}
	method, ok := domain.ParseTransferMethod(req.Method)
	if !ok {
		return nil, &domain.ErrValidation{Field: "method", Message: "must be mobile_money, bank_transfer or cash"}
	}

	if _, err := s.projects.Authorize(ctx, accountID, projectID); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(projectLedgerKey(projectID))
	defer unlock()

	latest, err := s.store.LatestLedger(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if latest != nil && !date.After(latest.Date) {
		return nil, &domain.ErrValidation{
			Field:   "date",
			Message: "must be after the latest ledger (" + latest.Date.String() + ")",
		}
	}

	dep := &domain.CashDeposit{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		Amount:    req.Amount,
		Date:      date,
		Method:    method,
		Reference: strings.TrimSpace(req.Reference),
		Note:      strings.TrimSpace(req.Note),
		CreatedBy: accountID,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.CreateCashDeposit(ctx, dep); err != nil {
		return nil, err
	}

	s.metrics.IncrLedgerEvent(observability.EventDepositRecorded)
	s.logger.Info("cash deposit recorded",
		zap.String("project_id", projectID),
		zap.String("deposit_id", dep.ID),
		zap.String("amount", dep.Amount.String()),
		zap.String("method", string(dep.Method)),
		zap.String("date", date.String()),
	)
	return dep, nil
}

func (s *LedgerService) ListCashDeposits(ctx context.Context, accountID, projectID string) ([]domain.CashDeposit, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.ListCashDeposits")
	defer span.End()

	if _, err := s.projects.Authorize(ctx, accountID, projectID); err != nil {
		return nil, err
	}
	return s.store.ListCashDeposits(ctx, projectID, civil.Date{})
}

func linesField(i int, name string) string {
	return fmt.Sprintf("lines[%d].%s", i, name)
}
