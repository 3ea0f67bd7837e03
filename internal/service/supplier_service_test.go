package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/jengatrack/jengatrack-api/internal/domain"
	"github.com/jengatrack/jengatrack-api/internal/infra/memstore"
	"github.com/jengatrack/jengatrack-api/internal/service"

	"go.uber.org/zap"
)

// entryFailStore refuses every supplier entry write, optionally cancelling
// the caller's context first, and records the context seen by deletes.
type entryFailStore struct {
	*memstore.Store
	cancel func()

	deletes   int
	deleteErr error
}

func (s *entryFailStore) AppendSupplierEntries(context.Context, []domain.SupplierEntry) error {
	if s.cancel != nil {
		s.cancel()
	}
	return &domain.ErrExternalService{Service: "supabase", Err: errors.New("insert supplier_entries: 503")}
}

func (s *entryFailStore) DeleteSupplier(ctx context.Context, supplierID string) error {
	s.deletes++
	s.deleteErr = ctx.Err()
	return s.Store.DeleteSupplier(ctx, supplierID)
}

func failingSuppliers(f *fixture, cancel func()) (*service.SupplierService, *entryFailStore) {
	store := &entryFailStore{Store: f.store, cancel: cancel}
	svc := service.NewSupplierService(store, f.projects, f.metrics, zap.NewNop()).WithClock(f.clock)
	return svc, store
}

func TestSupplier_CreditThenPurchase(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.project(t, 0)

	sup, err := f.suppliers.CreateSupplier(ctx, owner, &domain.CreateSupplierRequest{Name: "Mabati Rolling Mills"})
	if err != nil {
		t.Fatal(err)
	}
	if sup.TotalDeposited != 0 || sup.ActualUtilization != 0 {
		t.Errorf("expected empty credit line, got %+v", sup.SupplierBalance)
	}

	if _, err := f.suppliers.AddCredit(ctx, owner, sup.ID, &domain.AddCreditRequest{Amount: domain.Shillings(500_000)}); err != nil {
		t.Fatal(err)
	}

	entry, err := f.suppliers.RecordPurchase(ctx, owner, &domain.SupplierPurchaseRequest{
		SupplierID: sup.ID, ProjectID: p.ID, Item: "Roofing sheets", Amount: domain.Shillings(200_000), Date: "2024-05-02",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.Source != domain.SourceDirectPurchase || entry.Kind != domain.EntryDraw {
		t.Errorf("unexpected entry: %+v", entry)
	}

	got, err := f.suppliers.GetSupplier(ctx, owner, sup.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.CurrentBalance != domain.Shillings(300_000) {
		t.Errorf("expected balance 300000.00, got %s", got.CurrentBalance)
	}
	if got.ActualUtilization != 40 || got.DisplayUtilization != 40 {
		t.Errorf("expected 40%% utilization, got %d/%d", got.ActualUtilization, got.DisplayUtilization)
	}
}

func TestSupplier_PurchaseInsufficientBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.project(t, 0)

	sup, err := f.suppliers.CreateSupplier(ctx, owner, &domain.CreateSupplierRequest{
		Name: "Hardware Depot", InitialCredit: domain.Shillings(300_000),
	})
	if err != nil {
		t.Fatal(err)
	}

	_, err = f.suppliers.RecordPurchase(ctx, owner, &domain.SupplierPurchaseRequest{
		SupplierID: sup.ID, ProjectID: p.ID, Item: "Timber", Amount: domain.Shillings(500_000), Date: "2024-05-02",
	})
	var ib *domain.ErrInsufficientBalance
	if !errors.As(err, &ib) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
	if ib.Shortfall() != domain.Shillings(200_000) {
		t.Errorf("expected shortfall 200000.00, got %s", ib.Shortfall())
	}

	got, _ := f.suppliers.GetSupplier(ctx, owner, sup.ID)
	if got.TotalSpent != 0 || got.CurrentBalance != domain.Shillings(300_000) {
		t.Errorf("rejected purchase must not change the balance: %+v", got.SupplierBalance)
	}
	if f.metrics.Snapshot().PurchasesRejected != 1 {
		t.Errorf("expected one rejected purchase counted")
	}
}

func TestSupplier_ConcurrentPurchasesNeverOverdraw(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.project(t, 0)

	sup, err := f.suppliers.CreateSupplier(ctx, owner, &domain.CreateSupplierRequest{
		Name: "Ballast Co", InitialCredit: domain.Shillings(1_000),
	})
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.suppliers.RecordPurchase(ctx, owner, &domain.SupplierPurchaseRequest{
				SupplierID: sup.ID, ProjectID: p.ID, Item: "Ballast", Amount: domain.Shillings(100), Date: "2024-05-02",
			})
		}()
	}
	wg.Wait()

	got, _ := f.suppliers.GetSupplier(ctx, owner, sup.ID)
	if got.TotalSpent != domain.Shillings(1_000) {
		t.Errorf("expected exactly the credit to be spent, got %s", got.TotalSpent)
	}
	if got.CurrentBalance != got.TotalDeposited-got.TotalSpent || got.IsOverspent {
		t.Errorf("inconsistent balance: %+v", got.SupplierBalance)
	}
}

func TestSupplier_OverspentThroughLedgerDraws(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.project(t, 0)

	sup, err := f.suppliers.CreateSupplier(ctx, owner, &domain.CreateSupplierRequest{
		Name: "Steel Works", InitialCredit: domain.Shillings(1_000_000),
	})
	if err != nil {
		t.Fatal(err)
	}
	_, err = f.ledgers.CreateDailyLedger(ctx, owner, ledgerRequest(p.ID, "2024-05-01",
		supplierLine("Rebar", sup.ID, domain.Shillings(1_200_000))))
	if err != nil {
		t.Fatalf("ledger draws are not balance-checked, got %v", err)
	}

	got, _ := f.suppliers.GetSupplier(ctx, owner, sup.ID)
	if got.ActualUtilization != 120 || got.DisplayUtilization != 100 {
		t.Errorf("expected 120/100 utilization, got %d/%d", got.ActualUtilization, got.DisplayUtilization)
	}
	if !got.IsOverspent || got.OverspendAmount != domain.Shillings(200_000) {
		t.Errorf("expected overspent by 200000.00, got %+v", got.SupplierBalance)
	}
	if got.CurrentBalance != domain.Shillings(-200_000) {
		t.Errorf("expected balance -200000.00, got %s", got.CurrentBalance)
	}
}

func TestSupplier_UpdateWithAddCredit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sup, err := f.suppliers.CreateSupplier(ctx, owner, &domain.CreateSupplierRequest{Name: "Old Name"})
	if err != nil {
		t.Fatal(err)
	}

	got, err := f.suppliers.UpdateSupplier(ctx, owner, sup.ID, &domain.UpdateSupplierRequest{
		Name:      strPtr("New Name"),
		AddCredit: moneyPtr(domain.Shillings(75_000)),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "New Name" {
		t.Errorf("expected renamed supplier, got %q", got.Name)
	}
	if got.TotalDeposited != domain.Shillings(75_000) || got.CurrentBalance != domain.Shillings(75_000) || got.TotalSpent != 0 {
		t.Errorf("unexpected balance after credit: %+v", got.SupplierBalance)
	}

	_, err = f.suppliers.UpdateSupplier(ctx, owner, sup.ID, &domain.UpdateSupplierRequest{AddCredit: moneyPtr(-1)})
	var ve *domain.ErrValidation
	if !errors.As(err, &ve) || ve.Field != "addCredit" {
		t.Errorf("expected addCredit validation error, got %v", err)
	}
}

func TestSupplier_CreateRemovesSupplierWhenCreditFails(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	suppliers, store := failingSuppliers(f, cancel)

	_, err := suppliers.CreateSupplier(ctx, owner, &domain.CreateSupplierRequest{
		Name: "Bamburi Cement", InitialCredit: domain.Shillings(250_000),
	})
	var ext *domain.ErrExternalService
	if !errors.As(err, &ext) {
		t.Fatalf("expected external service error, got %v", err)
	}

	if store.deletes != 1 {
		t.Fatalf("expected one compensating delete, got %d", store.deletes)
	}
	if store.deleteErr != nil {
		t.Errorf("delete ran on a cancelled context: %v", store.deleteErr)
	}
	list, err := f.suppliers.ListSuppliers(context.Background(), owner)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 0 {
		t.Errorf("expected no supplier to be left behind, got %+v", list)
	}
}

func TestSupplier_CreateWithoutCreditSkipsEntries(t *testing.T) {
	f := newFixture(t)
	suppliers, store := failingSuppliers(f, nil)

	sup, err := suppliers.CreateSupplier(context.Background(), owner, &domain.CreateSupplierRequest{Name: "Cash Only Hardware"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.deletes != 0 {
		t.Errorf("expected no delete, got %d", store.deletes)
	}
	if _, err := f.suppliers.GetSupplier(context.Background(), owner, sup.ID); err != nil {
		t.Errorf("expected supplier to be stored, got %v", err)
	}
}

func TestSupplier_UpdateRestoresDetailsWhenCreditFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sup, err := f.suppliers.CreateSupplier(ctx, owner, &domain.CreateSupplierRequest{
		Name: "Old Name", ContactPhone: "0700000000", InitialCredit: domain.Shillings(10_000),
	})
	if err != nil {
		t.Fatal(err)
	}

	suppliers, _ := failingSuppliers(f, nil)
	_, err = suppliers.UpdateSupplier(ctx, owner, sup.ID, &domain.UpdateSupplierRequest{
		Name:         strPtr("New Name"),
		ContactPhone: strPtr("0711111111"),
		AddCredit:    moneyPtr(domain.Shillings(75_000)),
	})
	if err == nil {
		t.Fatal("expected update to fail when the credit cannot be stored")
	}

	got, err := f.suppliers.GetSupplier(ctx, owner, sup.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "Old Name" || got.ContactPhone != "0700000000" {
		t.Errorf("expected details to be restored, got name=%q phone=%q", got.Name, got.ContactPhone)
	}
	if got.TotalDeposited != domain.Shillings(10_000) {
		t.Errorf("expected deposits unchanged at 10000.00, got %s", got.TotalDeposited)
	}
}

func TestSupplier_CreditOutOfRangeIsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sup, err := f.suppliers.CreateSupplier(ctx, owner, &domain.CreateSupplierRequest{
		Name: "Big Supplier", InitialCredit: domain.MaxMoney,
	})
	if err != nil {
		t.Fatal(err)
	}

	_, err = f.suppliers.AddCredit(ctx, owner, sup.ID, &domain.AddCreditRequest{Amount: domain.Shillings(1)})
	var ve *domain.ErrValidation
	if !errors.As(err, &ve) || ve.Field != "amount" {
		t.Fatalf("expected amount validation error, got %v", err)
	}

	got, err := f.suppliers.GetSupplier(ctx, owner, sup.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.TotalDeposited != domain.MaxMoney {
		t.Errorf("expected deposits to stay at the maximum, got %s", got.TotalDeposited)
	}
}

func TestSupplier_ListIsScopedAndCarriesMetrics(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, name := range []string{"B Supplier", "A Supplier"} {
		if _, err := f.suppliers.CreateSupplier(ctx, owner, &domain.CreateSupplierRequest{Name: name, InitialCredit: domain.Shillings(10)}); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := f.suppliers.CreateSupplier(ctx, intruder, &domain.CreateSupplierRequest{Name: "Not mine"}); err != nil {
		t.Fatal(err)
	}

	list, err := f.suppliers.ListSuppliers(ctx, owner)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 suppliers, got %d", len(list))
	}
	for _, s := range list {
		if s.TotalDeposited != domain.Shillings(10) {
			t.Errorf("%s: expected 10.00 deposited, got %s", s.Name, s.TotalDeposited)
		}
	}

	_, err = f.suppliers.GetSupplier(ctx, intruder, list[0].ID)
	var fe *domain.ErrForbidden
	if !errors.As(err, &fe) {
		t.Errorf("expected forbidden, got %v", err)
	}
}

func TestSupplier_TransactionsSplitByChannel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p1 := f.project(t, 0)
	p2 := f.project(t, 0)

	sup, err := f.suppliers.CreateSupplier(ctx, owner, &domain.CreateSupplierRequest{
		Name: "Cement Ltd", InitialCredit: domain.Shillings(100_000),
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, pid := range []string{p1.ID, p2.ID} {
		if _, err := f.suppliers.RecordPurchase(ctx, owner, &domain.SupplierPurchaseRequest{
			SupplierID: sup.ID, ProjectID: pid, Item: "Cement", Amount: domain.Shillings(1_000), Date: "2024-05-02",
		}); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := f.ledgers.CreateDailyLedger(ctx, owner, ledgerRequest(p1.ID, "2024-05-03",
		supplierLine("Cement", sup.ID, domain.Shillings(2_000)))); err != nil {
		t.Fatal(err)
	}

	all, err := f.suppliers.Transactions(ctx, owner, sup.ID, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(all.Purchases) != 2 || len(all.LedgerEntries) != 1 || len(all.Credits) != 1 {
		t.Errorf("unexpected split: %d purchases, %d ledger, %d credits",
			len(all.Purchases), len(all.LedgerEntries), len(all.Credits))
	}

	scoped, err := f.suppliers.Transactions(ctx, owner, sup.ID, p2.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(scoped.Purchases) != 1 || len(scoped.LedgerEntries) != 0 || len(scoped.Credits) != 1 {
		t.Errorf("unexpected project split: %d purchases, %d ledger, %d credits",
			len(scoped.Purchases), len(scoped.LedgerEntries), len(scoped.Credits))
	}
}
