package domain

import (
	"time"

	"cloud.google.com/go/civil"
)

// ============================================================
// Suppliers and the supplier credit log
// ============================================================

// Supplier is a vendor relationship scoped to an account. Balances are not
// stored on the supplier; they are derived from its entries.
type Supplier struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"ownerId"`
	Name         string    `json:"name"`
	ContactPhone string    `json:"contactPhone,omitempty"`
	Notes        string    `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// EntryKind is the direction of a supplier credit entry.
type EntryKind string

const (
	EntryCredit EntryKind = "credit"
	EntryDraw   EntryKind = "draw"
)

// EntrySource tells which channel produced a supplier entry.
type EntrySource string

const (
	SourceCreditDeposit   EntrySource = "credit_deposit"
	SourceDirectPurchase  EntrySource = "direct_purchase"
	SourceDailyLedgerLine EntrySource = "daily_ledger_line"
)

// SupplierEntry is one append-only movement on a supplier credit line.
type SupplierEntry struct {
	ID         string      `json:"id"`
	SupplierID string      `json:"supplierId"`
	Kind       EntryKind   `json:"kind"`
	Source     EntrySource `json:"source"`
	ProjectID  string      `json:"projectId,omitempty"`
	LedgerID   string      `json:"ledgerId,omitempty"`
	Item       string      `json:"item,omitempty"`
	Amount     Money       `json:"amount"`
	Date       civil.Date  `json:"date"`
	Note       string      `json:"note,omitempty"`
	CreatedBy  string      `json:"createdBy,omitempty"`
	CreatedAt  time.Time   `json:"createdAt"`
}

// SupplierBalance is derived from the entry log.
type SupplierBalance struct {
	TotalDeposited     Money `json:"totalDeposited"`
	TotalSpent         Money `json:"totalSpent"`
	CurrentBalance     Money `json:"currentBalance"`
	ActualUtilization  int64 `json:"actualUtilization"`
	DisplayUtilization int64 `json:"displayUtilization"`
	IsOverspent        bool  `json:"isOverspent"`
	OverspendAmount    Money `json:"overspendAmount"`
}

// SupplierWithBalance is the list/detail representation of a supplier.
type SupplierWithBalance struct {
	Supplier
	SupplierBalance
}

// SupplierTransactions splits the log by channel.
type SupplierTransactions struct {
	SupplierID    string          `json:"supplierId"`
	Purchases     []SupplierEntry `json:"purchases"`
	LedgerEntries []SupplierEntry `json:"ledgerEntries"`
	Credits       []SupplierEntry `json:"credits"`
}

// CreateSupplierRequest is the body of POST /api/suppliers.
type CreateSupplierRequest struct {
	Name          string `json:"name"`
	ContactPhone  string `json:"contactPhone"`
	Notes         string `json:"notes"`
	InitialCredit Money  `json:"initialCredit"`
}

// UpdateSupplierRequest is the body of PUT /api/suppliers/{id}.
type UpdateSupplierRequest struct {
	Name         *string `json:"name"`
	ContactPhone *string `json:"contactPhone"`
	Notes        *string `json:"notes"`
	AddCredit    *Money  `json:"addCredit"`
	CreditNote   string  `json:"creditNote"`
}

// AddCreditRequest is the body of POST /api/suppliers/{id}/credits.
type AddCreditRequest struct {
	Amount Money  `json:"amount"`
	Date   string `json:"date"`
	Note   string `json:"note"`
}

// SupplierPurchaseRequest is the body of POST /api/supplier-purchases.
type SupplierPurchaseRequest struct {
	SupplierID string `json:"supplierId"`
	ProjectID  string `json:"projectId"`
	Item       string `json:"item"`
	Amount     Money  `json:"amount"`
	Date       string `json:"date"`
}
