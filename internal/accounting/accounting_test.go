package accounting_test

import (
	"errors"
	"math/rand"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/jengatrack/jengatrack-api/internal/accounting"
	"github.com/jengatrack/jengatrack-api/internal/domain"
)

func day(s string) civil.Date {
	d, err := civil.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func line(method domain.PaymentMethod, shillings int64) domain.LedgerLine {
	return domain.LedgerLine{
		Item:          "cement",
		Category:      domain.CategoryMaterials,
		Amount:        domain.Shillings(shillings),
		PaymentMethod: method,
	}
}

func aggregate(t *testing.T, opening domain.Money, lines []domain.LedgerLine) accounting.LedgerTotals {
	t.Helper()
	got, err := accounting.AggregateLedger(opening, lines)
	if err != nil {
		t.Fatalf("AggregateLedger: %v", err)
	}
	return got
}

func resolveOpening(t *testing.T, projectID string, date civil.Date, prev *domain.DailyLedger, deposits []domain.CashDeposit) domain.OpeningBalance {
	t.Helper()
	got, err := accounting.ResolveOpeningBalance(projectID, date, prev, deposits)
	if err != nil {
		t.Fatalf("ResolveOpeningBalance: %v", err)
	}
	return got
}

func summarize(t *testing.T, entries []domain.SupplierEntry) domain.SupplierBalance {
	t.Helper()
	got, err := accounting.SummarizeSupplier(entries)
	if err != nil {
		t.Fatalf("SummarizeSupplier: %v", err)
	}
	return got
}

func maxLines(n int, method domain.PaymentMethod) []domain.LedgerLine {
	lines := make([]domain.LedgerLine, n)
	for i := range lines {
		lines[i] = domain.LedgerLine{
			Item:          "steel",
			Category:      domain.CategoryMaterials,
			Amount:        domain.MaxMoney - 1,
			PaymentMethod: method,
		}
	}
	return lines
}

func assertValidationField(t *testing.T, err error, field string) {
	t.Helper()
	var v *domain.ErrValidation
	if !errors.As(err, &v) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if v.Field != field {
		t.Errorf("expected field %q, got %q", field, v.Field)
	}
}

// --- Aggregation ---

func TestAggregateLedger_ExampleScenario(t *testing.T) {
	lines := []domain.LedgerLine{
		line(domain.PaymentCash, 120_000),
		line(domain.PaymentSupplier, 80_000),
		line(domain.PaymentCash, 30_000),
	}

	got := aggregate(t, domain.Shillings(500_000), lines)

	if got.TotalCashSpent != domain.Shillings(150_000) {
		t.Errorf("expected cash spent 150000, got %s", got.TotalCashSpent)
	}
	if got.TotalSupplierSpent != domain.Shillings(80_000) {
		t.Errorf("expected supplier spent 80000, got %s", got.TotalSupplierSpent)
	}
	if got.ClosingCash != domain.Shillings(350_000) {
		t.Errorf("expected closing 350000, got %s", got.ClosingCash)
	}
	if got.Overdrawn {
		t.Error("did not expect overdrawn")
	}
}

func TestAggregateLedger_NegativeClosingIsFlagged(t *testing.T) {
	got := aggregate(t, domain.Shillings(10_000), []domain.LedgerLine{line(domain.PaymentCash, 25_000)})

	if got.ClosingCash != domain.Shillings(-15_000) {
		t.Errorf("expected closing -15000, got %s", got.ClosingCash)
	}
	if !got.Overdrawn {
		t.Error("expected overdrawn flag")
	}
}

func TestAggregateLedger_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 500; i++ {
		opening := domain.Money(rng.Int63n(1_000_000_000))
		n := 1 + rng.Intn(12)
		lines := make([]domain.LedgerLine, 0, n)
		var all, supplierOnly domain.Money
		for j := 0; j < n; j++ {
			method := domain.PaymentCash
			if rng.Intn(2) == 0 {
				method = domain.PaymentSupplier
			}
			l := line(method, 1+rng.Int63n(5_000_000))
			all += l.Amount
			if method == domain.PaymentSupplier {
				supplierOnly += l.Amount
			}
			lines = append(lines, l)
		}

		got := aggregate(t, opening, lines)

		if got.ClosingCash != opening-got.TotalCashSpent {
			t.Fatalf("closing %s != opening %s - cash %s", got.ClosingCash, opening, got.TotalCashSpent)
		}
		if got.TotalCashSpent+got.TotalSupplierSpent != all {
			t.Fatalf("cash+supplier %s != total %s", got.TotalCashSpent+got.TotalSupplierSpent, all)
		}
		if got.TotalSupplierSpent != supplierOnly {
			t.Fatalf("supplier spent %s != %s", got.TotalSupplierSpent, supplierOnly)
		}
	}
}

func TestAggregateLedger_OversizedTotalIsRejected(t *testing.T) {
	// 1100 near-maximum cash lines would wrap an int64 total negative.
	_, err := accounting.AggregateLedger(domain.Shillings(1_000), maxLines(1100, domain.PaymentCash))
	assertValidationField(t, err, "lines")

	_, err = accounting.AggregateLedger(domain.Shillings(1_000), maxLines(2, domain.PaymentSupplier))
	assertValidationField(t, err, "lines")
}

func TestAggregateLedger_ClosingOutOfRange(t *testing.T) {
	_, err := accounting.AggregateLedger(-domain.MaxMoney, []domain.LedgerLine{line(domain.PaymentCash, 1)})
	assertValidationField(t, err, "closingCash")
}

func TestValidateLines_TotalOutOfRange(t *testing.T) {
	assertValidationField(t, accounting.ValidateLines(maxLines(1100, domain.PaymentCash)), "lines")

	mixed := append(maxLines(1, domain.PaymentCash), maxLines(1, domain.PaymentSupplier)...)
	assertValidationField(t, accounting.ValidateLines(mixed), "lines")

	if err := accounting.ValidateLines(maxLines(1, domain.PaymentCash)); err != nil {
		t.Errorf("expected a single maximal line to be accepted, got %v", err)
	}
}

func TestValidateLines(t *testing.T) {
	valid := line(domain.PaymentCash, 1000)

	tests := []struct {
		name  string
		lines []domain.LedgerLine
		field string
	}{
		{"empty", nil, "lines"},
		{"blank item", []domain.LedgerLine{{Category: domain.CategoryFood, Amount: 100, PaymentMethod: domain.PaymentCash}}, "lines[0].item"},
		{"bad category", []domain.LedgerLine{valid, {Item: "x", Category: "Snacks", Amount: 100, PaymentMethod: domain.PaymentCash}}, "lines[1].category"},
		{"zero amount", []domain.LedgerLine{{Item: "x", Category: domain.CategoryLabor, PaymentMethod: domain.PaymentCash}}, "lines[0].amount"},
		{"bad method", []domain.LedgerLine{{Item: "x", Category: domain.CategoryLabor, Amount: 100, PaymentMethod: "card"}}, "lines[0].paymentMethod"},
		{"supplier on cash line", []domain.LedgerLine{{Item: "x", Category: domain.CategoryLabor, Amount: 100, PaymentMethod: domain.PaymentCash, SupplierID: "s1"}}, "lines[0].supplierId"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := accounting.ValidateLines(tt.lines)
			var v *domain.ErrValidation
			if !errors.As(err, &v) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if v.Field != tt.field {
				t.Errorf("expected field %q, got %q", tt.field, v.Field)
			}
		})
	}

	if err := accounting.ValidateLines([]domain.LedgerLine{valid}); err != nil {
		t.Errorf("expected valid lines, got %v", err)
	}
}

// --- Opening balance ---

func TestResolveOpeningBalance_FirstLedger(t *testing.T) {
	deposits := []domain.CashDeposit{
		{Amount: domain.Shillings(300_000), Date: day("2024-03-01")},
		{Amount: domain.Shillings(200_000), Date: day("2024-03-05")},
		{Amount: domain.Shillings(50_000), Date: day("2024-03-05")},
		{Amount: domain.Shillings(999_000), Date: day("2024-03-06")},
	}

	got := resolveOpening(t, "p1", day("2024-03-05"), nil, deposits)

	if got.LastClosingBalance != nil {
		t.Errorf("expected nil last closing, got %s", *got.LastClosingBalance)
	}
	if got.CashDepositsTotal != domain.Shillings(550_000) {
		t.Errorf("expected deposits 550000, got %s", got.CashDepositsTotal)
	}
	if got.OpeningBalance != domain.Shillings(550_000) {
		t.Errorf("expected opening 550000, got %s", got.OpeningBalance)
	}
}

func TestResolveOpeningBalance_WithPreviousLedger(t *testing.T) {
	prev := &domain.DailyLedger{Date: day("2024-03-05"), ClosingCash: domain.Shillings(350_000)}
	deposits := []domain.CashDeposit{
		{Amount: domain.Shillings(500_000), Date: day("2024-03-05")}, // already in prev
		{Amount: domain.Shillings(100_000), Date: day("2024-03-06")},
		{Amount: domain.Shillings(20_000), Date: day("2024-03-07")},
		{Amount: domain.Shillings(70_000), Date: day("2024-03-08")}, // after target
	}

	got := resolveOpening(t, "p1", day("2024-03-07"), prev, deposits)

	if got.LastClosingBalance == nil || *got.LastClosingBalance != domain.Shillings(350_000) {
		t.Fatalf("expected last closing 350000, got %v", got.LastClosingBalance)
	}
	if got.CashDepositsTotal != domain.Shillings(120_000) {
		t.Errorf("expected deposits 120000, got %s", got.CashDepositsTotal)
	}
	if got.OpeningBalance != domain.Shillings(470_000) {
		t.Errorf("expected opening 470000, got %s", got.OpeningBalance)
	}
	if got.LastLedgerDate == nil || *got.LastLedgerDate != day("2024-03-05") {
		t.Errorf("expected last ledger date 2024-03-05, got %v", got.LastLedgerDate)
	}
}

func TestResolveOpeningBalance_NegativePreviousClosing(t *testing.T) {
	prev := &domain.DailyLedger{Date: day("2024-03-05"), ClosingCash: domain.Shillings(-15_000)}

	got := resolveOpening(t, "p1", day("2024-03-06"), prev, nil)

	if got.OpeningBalance != domain.Shillings(-15_000) {
		t.Errorf("expected opening -15000, got %s", got.OpeningBalance)
	}
}

func TestResolveOpeningBalance_DepositTotalOutOfRange(t *testing.T) {
	deposits := make([]domain.CashDeposit, 3)
	for i := range deposits {
		deposits[i] = domain.CashDeposit{Amount: domain.MaxMoney / 2, Date: day("2024-03-01")}
	}
	_, err := accounting.ResolveOpeningBalance("p1", day("2024-03-05"), nil, deposits)
	assertValidationField(t, err, "cashDepositsTotal")
}

// --- Supplier credit ---

func entries(deposited, spent int64) []domain.SupplierEntry {
	var out []domain.SupplierEntry
	if deposited > 0 {
		out = append(out, domain.SupplierEntry{Kind: domain.EntryCredit, Source: domain.SourceCreditDeposit, Amount: domain.Shillings(deposited)})
	}
	if spent > 0 {
		out = append(out, domain.SupplierEntry{Kind: domain.EntryDraw, Source: domain.SourceDirectPurchase, Amount: domain.Shillings(spent)})
	}
	return out
}

func TestSummarizeSupplier_Overspent(t *testing.T) {
	b := summarize(t, entries(1_000_000, 1_200_000))

	if b.ActualUtilization != 120 {
		t.Errorf("expected utilization 120, got %d", b.ActualUtilization)
	}
	if b.DisplayUtilization != 100 {
		t.Errorf("expected display 100, got %d", b.DisplayUtilization)
	}
	if !b.IsOverspent {
		t.Error("expected overspent")
	}
	if b.OverspendAmount != domain.Shillings(200_000) {
		t.Errorf("expected overspend 200000, got %s", b.OverspendAmount)
	}
	if b.CurrentBalance != domain.Shillings(-200_000) {
		t.Errorf("expected balance -200000, got %s", b.CurrentBalance)
	}
}

func TestSummarizeSupplier_NoDeposits(t *testing.T) {
	b := summarize(t, nil)
	if b.ActualUtilization != 0 || b.DisplayUtilization != 0 {
		t.Errorf("expected zero utilization, got %d/%d", b.ActualUtilization, b.DisplayUtilization)
	}
	if b.IsOverspent {
		t.Error("did not expect overspent")
	}

	// Spend without any credit is still overspent but utilization stays 0.
	b = summarize(t, entries(0, 5_000))
	if b.ActualUtilization != 0 {
		t.Errorf("expected 0 utilization, got %d", b.ActualUtilization)
	}
	if !b.IsOverspent {
		t.Error("expected overspent with zero deposits")
	}
}

func TestSummarizeSupplier_OverspentIgnoresRounding(t *testing.T) {
	// 100.0004% rounds to 100 but is still an overspend.
	b := summarize(t, []domain.SupplierEntry{
		{Kind: domain.EntryCredit, Amount: 250_000_000},
		{Kind: domain.EntryDraw, Amount: 250_001_000},
	})
	if b.ActualUtilization != 100 {
		t.Errorf("expected 100, got %d", b.ActualUtilization)
	}
	if !b.IsOverspent {
		t.Error("expected overspent")
	}
}

func TestSummarizeSupplier_TotalOutOfRange(t *testing.T) {
	log := []domain.SupplierEntry{
		{Kind: domain.EntryDraw, Amount: domain.MaxMoney},
		{Kind: domain.EntryDraw, Amount: 1},
	}
	_, err := accounting.SummarizeSupplier(log)
	assertValidationField(t, err, "supplierTotal")
}

func TestUtilization_Rounding(t *testing.T) {
	tests := []struct {
		spent, deposited int64
		want             int64
	}{
		{1, 3, 33},
		{2, 3, 67},
		{1, 200, 1}, // 0.5 rounds up
		{0, 100, 0},
		{50, 0, 0},
	}
	for _, tt := range tests {
		got := accounting.Utilization(domain.Money(tt.spent), domain.Money(tt.deposited))
		if got != tt.want {
			t.Errorf("Utilization(%d, %d) = %d, want %d", tt.spent, tt.deposited, got, tt.want)
		}
	}
}

func TestCheckPurchase(t *testing.T) {
	b := summarize(t, entries(300_000, 0))

	err := accounting.CheckPurchase("s1", b, domain.Shillings(500_000))
	var insufficient *domain.ErrInsufficientBalance
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
	if insufficient.Shortfall() != domain.Shillings(200_000) {
		t.Errorf("expected shortfall 200000, got %s", insufficient.Shortfall())
	}

	if err := accounting.CheckPurchase("s1", b, domain.Shillings(300_000)); err != nil {
		t.Errorf("expected exact balance to be accepted, got %v", err)
	}
}

func TestSplitTransactions(t *testing.T) {
	log := []domain.SupplierEntry{
		{ID: "c1", Kind: domain.EntryCredit, Source: domain.SourceCreditDeposit},
		{ID: "p1", Kind: domain.EntryDraw, Source: domain.SourceDirectPurchase, ProjectID: "A"},
		{ID: "p2", Kind: domain.EntryDraw, Source: domain.SourceDirectPurchase, ProjectID: "B"},
		{ID: "l1", Kind: domain.EntryDraw, Source: domain.SourceDailyLedgerLine, ProjectID: "A"},
	}

	all := accounting.SplitTransactions("s1", log, "")
	if len(all.Purchases) != 2 || len(all.LedgerEntries) != 1 || len(all.Credits) != 1 {
		t.Fatalf("unexpected split: %+v", all)
	}

	onlyA := accounting.SplitTransactions("s1", log, "A")
	if len(onlyA.Purchases) != 1 || onlyA.Purchases[0].ID != "p1" {
		t.Errorf("expected only p1, got %+v", onlyA.Purchases)
	}
	if len(onlyA.Credits) != 1 {
		t.Errorf("credits must not be project filtered, got %d", len(onlyA.Credits))
	}
}
