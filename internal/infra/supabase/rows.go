package supabase

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/jengatrack/jengatrack-api/internal/domain"
	"github.com/shopspring/decimal"
)

// ============================================================
// Table rows. Money columns hold minor units (bigint); dates are
// Postgres `date` columns serialized as YYYY-MM-DD.
// ============================================================

type projectRow struct {
	ID          string      `json:"id"`
	OwnerID     string      `json:"owner_id"`
	Name        string      `json:"name"`
	Location    string      `json:"location"`
	Description string      `json:"description"`
	BudgetMinor int64       `json:"budget_minor"`
	Progress    int         `json:"progress"`
	Status      string      `json:"status"`
	StartDate   *civil.Date `json:"start_date"`
	EndDate     *civil.Date `json:"end_date"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

func toProjectRow(p *domain.Project) projectRow {
	return projectRow{
		ID: p.ID, OwnerID: p.OwnerID, Name: p.Name, Location: p.Location,
		Description: p.Description, BudgetMinor: int64(p.Budget), Progress: p.Progress,
		Status: string(p.Status), StartDate: p.StartDate, EndDate: p.EndDate,
		CreatedAt: p.CreatedAt, UpdatedAt: p.UpdatedAt,
	}
}

func (r projectRow) toDomain() domain.Project {
	return domain.Project{
		ID: r.ID, OwnerID: r.OwnerID, Name: r.Name, Location: r.Location,
		Description: r.Description, Budget: domain.Money(r.BudgetMinor), Progress: r.Progress,
		Status: domain.ProjectStatus(r.Status), StartDate: r.StartDate, EndDate: r.EndDate,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

type taskRow struct {
	ID          string      `json:"id"`
	ProjectID   string      `json:"project_id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Assignee    string      `json:"assignee"`
	Status      string      `json:"status"`
	Progress    int         `json:"progress"`
	DueDate     *civil.Date `json:"due_date"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

func toTaskRow(t *domain.Task) taskRow {
	return taskRow{
		ID: t.ID, ProjectID: t.ProjectID, Title: t.Title, Description: t.Description,
		Assignee: t.Assignee, Status: string(t.Status), Progress: t.Progress,
		DueDate: t.DueDate, CreatedAt: t.CreatedAt, UpdatedAt: t.UpdatedAt,
	}
}

func (r taskRow) toDomain() domain.Task {
	return domain.Task{
		ID: r.ID, ProjectID: r.ProjectID, Title: r.Title, Description: r.Description,
		Assignee: r.Assignee, Status: domain.TaskStatus(r.Status), Progress: r.Progress,
		DueDate: r.DueDate, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

type milestoneRow struct {
	ID         string      `json:"id"`
	ProjectID  string      `json:"project_id"`
	Title      string      `json:"title"`
	TargetDate *civil.Date `json:"target_date"`
	Progress   int         `json:"progress"`
	Completed  bool        `json:"completed"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

func toMilestoneRow(m *domain.Milestone) milestoneRow {
	return milestoneRow{
		ID: m.ID, ProjectID: m.ProjectID, Title: m.Title, TargetDate: m.TargetDate,
		Progress: m.Progress, Completed: m.Completed, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt,
	}
}

func (r milestoneRow) toDomain() domain.Milestone {
	return domain.Milestone{
		ID: r.ID, ProjectID: r.ProjectID, Title: r.Title, TargetDate: r.TargetDate,
		Progress: r.Progress, Completed: r.Completed, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

type inventoryRow struct {
	ID            string          `json:"id"`
	ProjectID     string          `json:"project_id"`
	Name          string          `json:"name"`
	Unit          string          `json:"unit"`
	Quantity      decimal.Decimal `json:"quantity"`
	UnitCostMinor int64           `json:"unit_cost_minor"`
	ReorderLevel  decimal.Decimal `json:"reorder_level"`
	LowStock      bool            `json:"low_stock"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func toInventoryRow(i *domain.InventoryItem) inventoryRow {
	return inventoryRow{
		ID: i.ID, ProjectID: i.ProjectID, Name: i.Name, Unit: i.Unit, Quantity: i.Quantity,
		UnitCostMinor: int64(i.UnitCost), ReorderLevel: i.ReorderLevel, LowStock: i.LowStock,
		CreatedAt: i.CreatedAt, UpdatedAt: i.UpdatedAt,
	}
}

func (r inventoryRow) toDomain() domain.InventoryItem {
	return domain.InventoryItem{
		ID: r.ID, ProjectID: r.ProjectID, Name: r.Name, Unit: r.Unit, Quantity: r.Quantity,
		UnitCost: domain.Money(r.UnitCostMinor), ReorderLevel: r.ReorderLevel, LowStock: r.LowStock,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

// lineRow is one element of the daily_ledgers.lines jsonb column.
type lineRow struct {
	Item          string `json:"item"`
	Category      string `json:"category"`
	AmountMinor   int64  `json:"amount_minor"`
	PaymentMethod string `json:"payment_method"`
	SupplierID    string `json:"supplier_id,omitempty"`
	Note          string `json:"note,omitempty"`
}

type ledgerRow struct {
	ID                 string     `json:"id"`
	ProjectID          string     `json:"project_id"`
	LedgerDate         civil.Date `json:"ledger_date"`
	OpeningCashMinor   int64      `json:"opening_cash_minor"`
	ClosingCashMinor   int64      `json:"closing_cash_minor"`
	CashSpentMinor     int64      `json:"total_cash_spent_minor"`
	SupplierSpentMinor int64      `json:"total_supplier_spent_minor"`
	Overdrawn          bool       `json:"overdrawn"`
	Notes              string     `json:"notes"`
	SubmittedBy        string     `json:"submitted_by"`
	SubmittedAt        time.Time  `json:"submitted_at"`
	Lines              []lineRow  `json:"lines"`
}

func toLedgerRow(l *domain.DailyLedger) ledgerRow {
	lines := make([]lineRow, len(l.Lines))
	for i, ln := range l.Lines {
		lines[i] = lineRow{
			Item: ln.Item, Category: string(ln.Category), AmountMinor: int64(ln.Amount),
			PaymentMethod: string(ln.PaymentMethod), SupplierID: ln.SupplierID, Note: ln.Note,
		}
	}
	return ledgerRow{
		ID: l.ID, ProjectID: l.ProjectID, LedgerDate: l.Date,
		OpeningCashMinor: int64(l.OpeningCash), ClosingCashMinor: int64(l.ClosingCash),
		CashSpentMinor: int64(l.TotalCashSpent), SupplierSpentMinor: int64(l.TotalSupplierSpent),
		Overdrawn: l.Overdrawn, Notes: l.Notes, SubmittedBy: l.SubmittedBy, SubmittedAt: l.SubmittedAt,
		Lines: lines,
	}
}

func (r ledgerRow) toDomain() domain.DailyLedger {
	lines := make([]domain.LedgerLine, len(r.Lines))
	for i, ln := range r.Lines {
		lines[i] = domain.LedgerLine{
			Item: ln.Item, Category: domain.Category(ln.Category), Amount: domain.Money(ln.AmountMinor),
			PaymentMethod: domain.PaymentMethod(ln.PaymentMethod), SupplierID: ln.SupplierID, Note: ln.Note,
		}
	}
	return domain.DailyLedger{
		ID: r.ID, ProjectID: r.ProjectID, Date: r.LedgerDate,
		OpeningCash: domain.Money(r.OpeningCashMinor), ClosingCash: domain.Money(r.ClosingCashMinor),
		TotalCashSpent: domain.Money(r.CashSpentMinor), TotalSupplierSpent: domain.Money(r.SupplierSpentMinor),
		Overdrawn: r.Overdrawn, Notes: r.Notes, SubmittedBy: r.SubmittedBy, SubmittedAt: r.SubmittedAt,
		Lines: lines,
	}
}

type depositRow struct {
	ID          string     `json:"id"`
	ProjectID   string     `json:"project_id"`
	AmountMinor int64      `json:"amount_minor"`
	DepositDate civil.Date `json:"deposit_date"`
	Method      string     `json:"method"`
	Reference   string     `json:"reference"`
	Note        string     `json:"note"`
	CreatedBy   string     `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
}

func toDepositRow(d *domain.CashDeposit) depositRow {
	return depositRow{
		ID: d.ID, ProjectID: d.ProjectID, AmountMinor: int64(d.Amount), DepositDate: d.Date,
		Method: string(d.Method), Reference: d.Reference, Note: d.Note,
		CreatedBy: d.CreatedBy, CreatedAt: d.CreatedAt,
	}
}

func (r depositRow) toDomain() domain.CashDeposit {
	return domain.CashDeposit{
		ID: r.ID, ProjectID: r.ProjectID, Amount: domain.Money(r.AmountMinor), Date: r.DepositDate,
		Method: domain.TransferMethod(r.Method), Reference: r.Reference, Note: r.Note,
		CreatedBy: r.CreatedBy, CreatedAt: r.CreatedAt,
	}
}

type supplierRow struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"owner_id"`
	Name         string    `json:"name"`
	ContactPhone string    `json:"contact_phone"`
	Notes        string    `json:"notes"`
	CreatedAt    time.Time `json:"created_at"`
}

func toSupplierRow(s *domain.Supplier) supplierRow {
	return supplierRow{
		ID: s.ID, OwnerID: s.OwnerID, Name: s.Name, ContactPhone: s.ContactPhone,
		Notes: s.Notes, CreatedAt: s.CreatedAt,
	}
}

func (r supplierRow) toDomain() domain.Supplier {
	return domain.Supplier{
		ID: r.ID, OwnerID: r.OwnerID, Name: r.Name, ContactPhone: r.ContactPhone,
		Notes: r.Notes, CreatedAt: r.CreatedAt,
	}
}

type entryRow struct {
	ID          string     `json:"id"`
	SupplierID  string     `json:"supplier_id"`
	Kind        string     `json:"kind"`
	Source      string     `json:"source"`
	ProjectID   *string    `json:"project_id"`
	LedgerID    *string    `json:"ledger_id"`
	Item        string     `json:"item"`
	AmountMinor int64      `json:"amount_minor"`
	EntryDate   civil.Date `json:"entry_date"`
	Note        string     `json:"note"`
	CreatedBy   string     `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
}

// nullable maps "" to SQL NULL for foreign-key columns.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func toEntryRow(e *domain.SupplierEntry) entryRow {
	return entryRow{
		ID: e.ID, SupplierID: e.SupplierID, Kind: string(e.Kind), Source: string(e.Source),
		ProjectID: nullable(e.ProjectID), LedgerID: nullable(e.LedgerID), Item: e.Item,
		AmountMinor: int64(e.Amount), EntryDate: e.Date, Note: e.Note,
		CreatedBy: e.CreatedBy, CreatedAt: e.CreatedAt,
	}
}

func (r entryRow) toDomain() domain.SupplierEntry {
	return domain.SupplierEntry{
		ID: r.ID, SupplierID: r.SupplierID, Kind: domain.EntryKind(r.Kind), Source: domain.EntrySource(r.Source),
		ProjectID: deref(r.ProjectID), LedgerID: deref(r.LedgerID), Item: r.Item,
		Amount: domain.Money(r.AmountMinor), Date: r.EntryDate, Note: r.Note,
		CreatedBy: r.CreatedBy, CreatedAt: r.CreatedAt,
	}
}
