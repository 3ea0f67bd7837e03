package service

import (
	"context"
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
	"golang.org/x/sync/errgroup"
)

var supplierTracer = otel.Tracer("service/suppliers")

// maxBalanceLoads bounds the concurrent entry reads when listing suppliers.
const maxBalanceLoads = 8

// compensateTimeout bounds an undo write issued after a failed follow-up write.
const compensateTimeout = 5 * time.Second

// SupplierService manages supplier credit lines. Balances are always derived
// from the entry log; nothing here writes a balance.
type SupplierService struct {
	store    port.SupplierStore
	projects *ProjectService
	metrics  *observability.Metrics
	logger   *zap.Logger
	locks    *keyedMutex
	now      func() time.Time
}

// NewSupplierService creates a new supplier service.
func NewSupplierService(store port.SupplierStore, projects *ProjectService, metrics *observability.Metrics, logger *zap.Logger) *SupplierService {
	return &SupplierService{
		store:    store,
		projects: projects,
		metrics:  metrics,
		logger:   logger,
		locks:    newKeyedMutex(),
		now:      time.Now,
	}
}

// WithClock replaces the time source. Used by tests.
func (s *SupplierService) WithClock(now func() time.Time) *SupplierService {
	s.now = now
	return s
}

func supplierKey(supplierID string) string { return "supplier:" + supplierID }

func (s *SupplierService) today() civil.Date {
	return civil.DateOf(s.now())
}

// ============================================================
// Suppliers
// ============================================================

func (s *SupplierService) CreateSupplier(ctx context.Context, accountID string, req *domain.CreateSupplierRequest) (*domain.SupplierWithBalance, error) {
	ctx, span := supplierTracer.Start(ctx, "SupplierService.CreateSupplier")
	defer span.End()

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, &domain.ErrValidation{Field: "name", Message: "required"}
	}
	if req.InitialCredit.IsNegative() {
		return nil, &domain.ErrValidation{Field: "initialCredit", Message: "must not be negative"}
	}

	now := s.now().UTC()
	sup := &domain.Supplier{
		ID:           uuid.New().String(),
		OwnerID:      accountID,
		Name:         name,
		ContactPhone: strings.TrimSpace(req.ContactPhone),
		Notes:        req.Notes,
		CreatedAt:    now,
	}
	if err := s.store.CreateSupplier(ctx, sup); err != nil {
		return nil, err
	}

	var entries []domain.SupplierEntry
	if req.InitialCredit.IsPositive() {
		entry := s.creditEntry(sup.ID, accountID, req.InitialCredit, s.today(), "initial credit")
		if err := s.store.AppendSupplierEntries(ctx, []domain.SupplierEntry{entry}); err != nil {
			// A supplier without its opening credit must not be left behind.
			if rbErr := compensate(ctx, func(ctx context.Context) error {
				return s.store.DeleteSupplier(ctx, sup.ID)
			}); rbErr != nil {
				s.logger.Error("supplier rollback failed",
					zap.String("supplier_id", sup.ID),
					zap.Error(rbErr),
				)
			}
			return nil, err
		}
		entries = append(entries, entry)
		s.metrics.IncrSupplierEvent(observability.EventCreditAdded)
	}

	s.logger.Info("supplier created",
		zap.String("supplier_id", sup.ID),
		zap.String("owner_id", accountID),
		zap.String("initial_credit", req.InitialCredit.String()),
	)
	balance, err := accounting.SummarizeSupplier(entries)
	if err != nil {
		return nil, err
	}
	return &domain.SupplierWithBalance{Supplier: *sup, SupplierBalance: balance}, nil
}

// ListSuppliers returns the account's suppliers with their derived metrics.
func (s *SupplierService) ListSuppliers(ctx context.Context, accountID string) ([]domain.SupplierWithBalance, error) {
	ctx, span := supplierTracer.Start(ctx, "SupplierService.ListSuppliers")
	defer span.End()

	suppliers, err := s.store.ListSuppliers(ctx, accountID)
	if err != nil {
		return nil, err
	}

	out := make([]domain.SupplierWithBalance, len(suppliers))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxBalanceLoads)
	for i := range suppliers {
		i := i
		g.Go(func() error {
			entries, err := s.store.ListSupplierEntries(gctx, suppliers[i].ID)
			if err != nil {
				return err
			}
			balance, err := accounting.SummarizeSupplier(entries)
			if err != nil {
				return err
			}
			out[i] = domain.SupplierWithBalance{Supplier: suppliers[i], SupplierBalance: balance}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("suppliers.count", len(out)))
	return out, nil
}

func (s *SupplierService) GetSupplier(ctx context.Context, accountID, supplierID string) (*domain.SupplierWithBalance, error) {
	ctx, span := supplierTracer.Start(ctx, "SupplierService.GetSupplier")
	defer span.End()

	sup, err := s.authorize(ctx, accountID, supplierID)
	if err != nil {
		return nil, err
	}
	return s.withBalance(ctx, sup)
}

// UpdateSupplier edits the supplier's details and, when AddCredit is set,
// appends a credit entry in the same call. If the credit cannot be stored the
// previous details are put back.
func (s *SupplierService) UpdateSupplier(ctx context.Context, accountID, supplierID string, req *domain.UpdateSupplierRequest) (*domain.SupplierWithBalance, error) {
	ctx, span := supplierTracer.Start(ctx, "SupplierService.UpdateSupplier")
	defer span.End()

	sup, err := s.authorize(ctx, accountID, supplierID)
	if err != nil {
		return nil, err
	}
	if req.AddCredit != nil && !req.AddCredit.IsPositive() {
		return nil, &domain.ErrValidation{Field: "addCredit", Message: "must be positive"}
	}

	before := *sup
	changed := false
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, &domain.ErrValidation{Field: "name", Message: "must not be empty"}
		}
		sup.Name = name
		changed = true
	}
	if req.ContactPhone != nil {
		sup.ContactPhone = strings.TrimSpace(*req.ContactPhone)
		changed = true
	}
	if req.Notes != nil {
		sup.Notes = *req.Notes
		changed = true
	}
	if changed {
		if err := s.store.UpdateSupplier(ctx, sup); err != nil {
			return nil, err
		}
	}

	if req.AddCredit != nil {
		if err := s.appendCredit(ctx, accountID, supplierID, *req.AddCredit, s.today(), req.CreditNote); err != nil {
			if changed {
				s.restoreSupplier(ctx, &before)
			}
			return nil, err
		}
	}
	return s.withBalance(ctx, sup)
}

// ============================================================
// Credit line
// ============================================================

// AddCredit tops up a supplier's credit line.
func (s *SupplierService) AddCredit(ctx context.Context, accountID, supplierID string, req *domain.AddCreditRequest) (*domain.SupplierWithBalance, error) {
	ctx, span := supplierTracer.Start(ctx, "SupplierService.AddCredit")
	defer span.End()

	if !req.Amount.IsPositive() {
		return nil, &domain.ErrValidation{Field: "amount", Message: "must be positive"}
	}
	date := s.today()
	if strings.TrimSpace(req.Date) != "" {
		d, err := domain.ParseDate("date", req.Date)
		if err != nil {
			return nil, err
		}
		date = d
	}

	sup, err := s.authorize(ctx, accountID, supplierID)
	if err != nil {
		return nil, err
	}
	if err := s.appendCredit(ctx, accountID, supplierID, req.Amount, date, req.Note); err != nil {
		return nil, err
	}
	return s.withBalance(ctx, sup)
}

// appendCredit stores a credit entry unless it would push the supplier's
// totals out of the Money range.
func (s *SupplierService) appendCredit(ctx context.Context, accountID, supplierID string, amount domain.Money, date civil.Date, note string) error {
	unlock := s.locks.Lock(supplierKey(supplierID))
	defer unlock()

	entries, err := s.store.ListSupplierEntries(ctx, supplierID)
	if err != nil {
		return err
	}
	entry := s.creditEntry(supplierID, accountID, amount, date, note)
	if _, err := accounting.SummarizeSupplier(append(entries, entry)); err != nil {
		return &domain.ErrValidation{Field: "amount", Message: "credit would take the supplier total out of range"}
	}
	if err := s.store.AppendSupplierEntries(ctx, []domain.SupplierEntry{entry}); err != nil {
		return err
	}
	s.metrics.IncrSupplierEvent(observability.EventCreditAdded)
	s.logger.Info("supplier credit added",
		zap.String("supplier_id", supplierID),
		zap.String("amount", amount.String()),
	)
	return nil
}

func (s *SupplierService) creditEntry(supplierID, accountID string, amount domain.Money, date civil.Date, note string) domain.SupplierEntry {
	return domain.SupplierEntry{
		ID:         uuid.New().String(),
		SupplierID: supplierID,
		Kind:       domain.EntryCredit,
		Source:     domain.SourceCreditDeposit,
		Amount:     amount,
		Date:       date,
		Note:       strings.TrimSpace(note),
		CreatedBy:  accountID,
		CreatedAt:  s.now().UTC(),
	}
}

// RecordPurchase draws on a supplier's credit for a project. The purchase is
// rejected, and nothing is stored, when it exceeds the current balance.
func (s *SupplierService) RecordPurchase(ctx context.Context, accountID string, req *domain.SupplierPurchaseRequest) (*domain.SupplierEntry, error) {
	ctx, span := supplierTracer.Start(ctx, "SupplierService.RecordPurchase")
	defer span.End()
	start := s.now()

	supplierID := strings.TrimSpace(req.SupplierID)
	if supplierID == "" {
		return nil, &domain.ErrValidation{Field: "supplierId", Message: "required"}
	}
	if strings.TrimSpace(req.Item) == "" {
		return nil, &domain.ErrValidation{Field: "item", Message: "required"}
	}
	if !req.Amount.IsPositive() {
		return nil, &domain.ErrValidation{Field: "amount", Message: "must be positive"}
	}
	date, err := domain.ParseDate("date", req.Date)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.String("supplier.id", supplierID),
		attribute.String("project.id", req.ProjectID),
	)

	if _, err := s.projects.Authorize(ctx, accountID, req.ProjectID); err != nil {
		return nil, err
	}
	if _, err := s.authorize(ctx, accountID, supplierID); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(supplierKey(supplierID))
	defer unlock()

	entries, err := s.store.ListSupplierEntries(ctx, supplierID)
	if err != nil {
		return nil, err
	}
	balance, err := accounting.SummarizeSupplier(entries)
	if err != nil {
		return nil, err
	}
	if err := accounting.CheckPurchase(supplierID, balance, req.Amount); err != nil {
		s.metrics.IncrSupplierEvent(observability.EventPurchaseRejected)
		s.logger.Warn("supplier purchase rejected",
			zap.String("supplier_id", supplierID),
			zap.String("project_id", req.ProjectID),
			zap.String("amount", req.Amount.String()),
			zap.String("available", balance.CurrentBalance.String()),
		)
		return nil, err
	}

	entry := domain.SupplierEntry{
		ID:         uuid.New().String(),
		SupplierID: supplierID,
		Kind:       domain.EntryDraw,
		Source:     domain.SourceDirectPurchase,
		ProjectID:  req.ProjectID,
		Item:       strings.TrimSpace(req.Item),
		Amount:     req.Amount,
		Date:       date,
		CreatedBy:  accountID,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.store.AppendSupplierEntries(ctx, []domain.SupplierEntry{entry}); err != nil {
		return nil, err
	}

	s.metrics.IncrSupplierEvent(observability.EventPurchaseRecorded)
	s.metrics.RecordOperationDuration("record_supplier_purchase", s.now().Sub(start))
	s.logger.Info("supplier purchase recorded",
		zap.String("supplier_id", supplierID),
		zap.String("project_id", req.ProjectID),
		zap.String("amount", req.Amount.String()),
		zap.String("balance_after", (balance.CurrentBalance-req.Amount).String()),
	)
	return &entry, nil
}

// Transactions splits the supplier's log into purchases, ledger draws and
// credits. A non-empty projectID limits draws to that project.
func (s *SupplierService) Transactions(ctx context.Context, accountID, supplierID, projectID string) (*domain.SupplierTransactions, error) {
	ctx, span := supplierTracer.Start(ctx, "SupplierService.Transactions")
	defer span.End()

	if _, err := s.authorize(ctx, accountID, supplierID); err != nil {
		return nil, err
	}
	if projectID != "" {
		if _, err := s.projects.Authorize(ctx, accountID, projectID); err != nil {
			return nil, err
		}
	}

	entries, err := s.store.ListSupplierEntries(ctx, supplierID)
	if err != nil {
		return nil, err
	}
	tx := accounting.SplitTransactions(supplierID, entries, projectID)
	return &tx, nil
}

// ============================================================
// Helpers
// ============================================================

func (s *SupplierService) authorize(ctx context.Context, accountID, supplierID string) (*domain.Supplier, error) {
	sup, err := s.store.GetSupplier(ctx, supplierID)
	if err != nil {
		return nil, err
	}
	if sup.OwnerID != accountID {
		return nil, &domain.ErrForbidden{Action: "access supplier " + supplierID}
	}
	return sup, nil
}

// compensate runs an undo write that must go through even when the request
// context has been cancelled.
func compensate(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensateTimeout)
	defer cancel()
	return fn(ctx)
}

func (s *SupplierService) restoreSupplier(ctx context.Context, sup *domain.Supplier) {
	err := compensate(ctx, func(ctx context.Context) error {
		return s.store.UpdateSupplier(ctx, sup)
	})
	if err != nil {
		s.logger.Error("supplier restore failed",
			zap.String("supplier_id", sup.ID),
			zap.Error(err),
		)
	}
}

func (s *SupplierService) withBalance(ctx context.Context, sup *domain.Supplier) (*domain.SupplierWithBalance, error) {
	entries, err := s.store.ListSupplierEntries(ctx, sup.ID)
	if err != nil {
		return nil, err
	}
	balance, err := accounting.SummarizeSupplier(entries)
	if err != nil {
		return nil, err
	}
	return &domain.SupplierWithBalance{Supplier: *sup, SupplierBalance: balance}, nil
}
