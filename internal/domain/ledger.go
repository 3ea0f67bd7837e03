package domain

import (
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// ============================================================
// Daily ledgers
// ============================================================

// Category classifies a ledger line.
type Category string

const (
	CategoryMaterials Category = "Materials"
	CategoryLabor     Category = "Labor"
	CategoryEquipment Category = "Equipment"
	CategoryTransport Category = "Transport"
	CategoryFood      Category = "Food"
	CategoryOther     Category = "Other"
)

// Categories lists the accepted ledger line categories.
var Categories = []Category{
	CategoryMaterials, CategoryLabor, CategoryEquipment,
	CategoryTransport, CategoryFood, CategoryOther,
}

func (c Category) Valid() bool {
	for _, v := range Categories {
		if c == v {
			return true
		}
	}
	return false
}

// PaymentMethod says which pot of money paid for a ledger line.
type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentSupplier PaymentMethod = "supplier"
)

func (p PaymentMethod) Valid() bool {
	return p == PaymentCash || p == PaymentSupplier
}

// LedgerLine is one itemized expense inside a daily ledger.
type LedgerLine struct {
	Item          string        `json:"item"`
	Category      Category      `json:"category"`
	Amount        Money         `json:"amount"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	SupplierID    string        `json:"supplierId,omitempty"`
	Note          string        `json:"note,omitempty"`
}

// DailyLedger is the cash record of one project for one calendar day.
// ClosingCash = OpeningCash - TotalCashSpent; supplier lines never touch cash.
type DailyLedger struct {
	ID                 string       `json:"id"`
	ProjectID          string       `json:"projectId"`
	Date               civil.Date   `json:"date"`
	OpeningCash        Money        `json:"openingCash"`
	ClosingCash        Money        `json:"closingCash"`
	TotalCashSpent     Money        `json:"totalCashSpent"`
	TotalSupplierSpent Money        `json:"totalSupplierSpent"`
	Overdrawn          bool         `json:"overdrawn"`
	Notes              string       `json:"notes,omitempty"`
	SubmittedBy        string       `json:"submittedBy,omitempty"`
	SubmittedAt        time.Time    `json:"submittedAt"`
	Lines              []LedgerLine `json:"lines"`
}

// CreateDailyLedgerRequest is the body of POST /api/daily-ledgers.
type CreateDailyLedgerRequest struct {
	Ledger struct {
		ProjectID string `json:"projectId"`
		Date      string `json:"date"`
		Notes     string `json:"notes"`
	} `json:"ledger"`
	Lines []LedgerLine `json:"lines"`
}

// OpeningBalance is the resolver output for a project and date.
type OpeningBalance struct {
	ProjectID          string      `json:"projectId"`
	Date               civil.Date  `json:"date"`
	OpeningBalance     Money       `json:"openingBalance"`
	LastClosingBalance *Money      `json:"lastClosingBalance"`
	LastLedgerDate     *civil.Date `json:"lastLedgerDate,omitempty"`
	CashDepositsTotal  Money       `json:"cashDepositsTotal"`
}

// ============================================================
// Cash deposits (owner → site manager transfers)
// ============================================================

// TransferMethod is how a cash deposit reached the site.
type TransferMethod string

const (
	TransferMobileMoney  TransferMethod = "mobile_money"
	TransferBank         TransferMethod = "bank_transfer"
	TransferCashHandover TransferMethod = "cash"
)

// ParseTransferMethod accepts the wire values and the labels shown in the UI.
func ParseTransferMethod(s string) (TransferMethod, bool) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer(" ", "_", "-", "_", "/", "_").Replace(key)
	switch key {
	case "mobile_money", "momo":
		return TransferMobileMoney, true
	case "bank_transfer", "bank":
		return TransferBank, true
	case "cash", "cash_handover", "cash_cash_handover":
		return TransferCashHandover, true
	}
	return "", false
}

// CashDeposit is money sent by the project owner to the site manager.
type CashDeposit struct {
	ID        string         `json:"id"`
	ProjectID string         `json:"projectId"`
	Amount    Money          `json:"amount"`
	Date      civil.Date     `json:"date"`
	Method    TransferMethod `json:"method"`
	Reference string         `json:"reference,omitempty"`
	Note      string         `json:"note,omitempty"`
	CreatedBy string         `json:"createdBy,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// CashDepositRequest is the body of POST /api/cash-deposits.
type CashDepositRequest struct {
	ProjectID string `json:"projectId"`
	Amount    Money  `json:"amount"`
	Date      string `json:"date"`
	Method    string `json:"method"`
	Reference string `json:"reference"`
	Note      string `json:"note"`
}
