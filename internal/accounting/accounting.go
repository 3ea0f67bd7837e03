// Package accounting holds the cash and supplier-credit rules of the site
// ledger. Everything here is pure: callers load the inputs from a store and
// persist the outputs.
package accounting

import (
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/jengatrack/jengatrack-api/internal/domain"
	"github.com/shopspring/decimal"
)

// ============================================================
// Opening balance
// ============================================================

// ResolveOpeningBalance computes the cash on hand at the start of date.
//
// prev is the latest ledger dated strictly before date (nil for the first
// ledger of a project). Deposits dated after prev.Date and on or before date
// are added to prev's closing balance; with no prev every deposit up to and
// including date counts.
func ResolveOpeningBalance(projectID string, date civil.Date, prev *domain.DailyLedger, deposits []domain.CashDeposit) (domain.OpeningBalance, error) {
	out := domain.OpeningBalance{ProjectID: projectID, Date: date}

	var base domain.Money
	if prev != nil {
		closing := prev.ClosingCash
		prevDate := prev.Date
		out.LastClosingBalance = &closing
		out.LastLedgerDate = &prevDate
		base = closing
	}

	var ok bool
	for _, d := range deposits {
		if d.Date.After(date) {
			continue
		}
		if prev != nil && !d.Date.After(prev.Date) {
			continue
		}
		if out.CashDepositsTotal, ok = out.CashDepositsTotal.Add(d.Amount); !ok {
			return out, outOfRange("cashDepositsTotal")
		}
	}

	if out.OpeningBalance, ok = base.Add(out.CashDepositsTotal); !ok {
		return out, outOfRange("openingBalance")
	}
	return out, nil
}

func outOfRange(field string) error {
	return &domain.ErrValidation{Field: field, Message: "total out of range"}
}

// ============================================================
// Daily ledger aggregation
// ============================================================

// LedgerTotals is the result of folding a day's lines into cash figures.
type LedgerTotals struct {
	TotalCashSpent     domain.Money
	TotalSupplierSpent domain.Money
	ClosingCash        domain.Money
	Overdrawn          bool
}

// AggregateLedger splits spend by payment method and derives closing cash.
// Only cash lines reduce cash; a negative closing balance is reported, not
// rejected. Totals that leave the Money range fail with ErrValidation.
func AggregateLedger(openingCash domain.Money, lines []domain.LedgerLine) (LedgerTotals, error) {
	var t LedgerTotals
	var ok bool
	for _, l := range lines {
		switch l.PaymentMethod {
		case domain.PaymentCash:
			t.TotalCashSpent, ok = t.TotalCashSpent.Add(l.Amount)
		case domain.PaymentSupplier:
			t.TotalSupplierSpent, ok = t.TotalSupplierSpent.Add(l.Amount)
		default:
			ok = true
		}
		if !ok {
			return LedgerTotals{}, outOfRange("lines")
		}
	}
	if t.ClosingCash, ok = openingCash.Sub(t.TotalCashSpent); !ok {
		return LedgerTotals{}, outOfRange("closingCash")
	}
	t.Overdrawn = t.ClosingCash.IsNegative()
	return t, nil
}

// ValidateLines checks the line rules for a new ledger.
func ValidateLines(lines []domain.LedgerLine) error {
	if len(lines) == 0 {
		return &domain.ErrValidation{Field: "lines", Message: "at least one line is required"}
	}
	var total domain.Money
	for i, l := range lines {
		field := func(name string) string { return fmt.Sprintf("lines[%d].%s", i, name) }
		if strings.TrimSpace(l.Item) == "" {
			return &domain.ErrValidation{Field: field("item"), Message: "required"}
		}
		if !l.Category.Valid() {
			return &domain.ErrValidation{Field: field("category"), Message: fmt.Sprintf("unknown category %q", l.Category)}
		}
		if !l.Amount.IsPositive() {
			return &domain.ErrValidation{Field: field("amount"), Message: "must be positive"}
		}
		if !l.PaymentMethod.Valid() {
			return &domain.ErrValidation{Field: field("paymentMethod"), Message: "must be cash or supplier"}
		}
		if l.SupplierID != "" && l.PaymentMethod != domain.PaymentSupplier {
			return &domain.ErrValidation{Field: field("supplierId"), Message: "only supplier-paid lines may reference a supplier"}
		}
		var ok bool
		if total, ok = total.Add(l.Amount); !ok {
			return &domain.ErrValidation{Field: "lines", Message: "total amount exceeds " + domain.MaxMoney.String()}
		}
	}
	return nil
}

// ============================================================
// Supplier credit
// ============================================================

// Utilization returns round(spent / deposited * 100), or 0 when nothing was deposited.
func Utilization(spent, deposited domain.Money) int64 {
	if deposited <= 0 {
		return 0
	}
	pct := decimal.NewFromInt(int64(spent)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(deposited)))
	return pct.Round(0).IntPart()
}

// CapPercent limits a percentage to 100 for progress-bar display.
func CapPercent(p int64) int64 {
	if p > 100 {
		return 100
	}
	return p
}

// SummarizeSupplier derives the balance view of a supplier from its entries.
func SummarizeSupplier(entries []domain.SupplierEntry) (domain.SupplierBalance, error) {
	var b domain.SupplierBalance
	var ok bool
	for _, e := range entries {
		switch e.Kind {
		case domain.EntryCredit:
			b.TotalDeposited, ok = b.TotalDeposited.Add(e.Amount)
		case domain.EntryDraw:
			b.TotalSpent, ok = b.TotalSpent.Add(e.Amount)
		default:
			ok = true
		}
		if !ok {
			return domain.SupplierBalance{}, outOfRange("supplierTotal")
		}
	}
	// Both totals are within ±MaxMoney, so the difference cannot wrap.
	b.CurrentBalance = b.TotalDeposited - b.TotalSpent
	b.ActualUtilization = Utilization(b.TotalSpent, b.TotalDeposited)
	b.DisplayUtilization = CapPercent(b.ActualUtilization)
	b.IsOverspent = b.TotalSpent > b.TotalDeposited
	if b.IsOverspent {
		b.OverspendAmount = b.TotalSpent - b.TotalDeposited
	}
	return b, nil
}

// CheckPurchase rejects a purchase that the supplier's current balance cannot cover.
func CheckPurchase(supplierID string, balance domain.SupplierBalance, amount domain.Money) error {
	if amount > balance.CurrentBalance {
		return &domain.ErrInsufficientBalance{
			SupplierID: supplierID,
			Available:  balance.CurrentBalance,
			Required:   amount,
		}
	}
	return nil
}

// SplitTransactions groups a supplier's entries by channel. A non-empty
// projectID filters draws; credits are account-wide and never filtered.
func SplitTransactions(supplierID string, entries []domain.SupplierEntry, projectID string) domain.SupplierTransactions {
	out := domain.SupplierTransactions{
		SupplierID:    supplierID,
		Purchases:     []domain.SupplierEntry{},
		LedgerEntries: []domain.SupplierEntry{},
		Credits:       []domain.SupplierEntry{},
	}
	for _, e := range entries {
		if e.Kind == domain.EntryCredit {
			out.Credits = append(out.Credits, e)
			continue
		}
		if projectID != "" && e.ProjectID != projectID {
			continue
		}
		switch e.Source {
		case domain.SourceDirectPurchase:
			out.Purchases = append(out.Purchases, e)
		case domain.SourceDailyLedgerLine:
			out.LedgerEntries = append(out.LedgerEntries, e)
		}
	}
	return out
}
