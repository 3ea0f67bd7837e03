package domain

import (
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// ============================================================
// Projects
// ============================================================

// ProjectStatus is the lifecycle state of a construction project.
type ProjectStatus string

const (
	ProjectPlanning   ProjectStatus = "planning"
	ProjectInProgress ProjectStatus = "in_progress"
	ProjectOnHold     ProjectStatus = "on_hold"
	ProjectCompleted  ProjectStatus = "completed"
)

func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectPlanning, ProjectInProgress, ProjectOnHold, ProjectCompleted:
		return true
	}
	return false
}

// Project is a construction site tracked by an account.
type Project struct {
	ID          string        `json:"id"`
	OwnerID     string        `json:"ownerId"`
	Name        string        `json:"name"`
	Location    string        `json:"location,omitempty"`
	Description string        `json:"description,omitempty"`
	Budget      Money         `json:"budget"`
	Progress    int           `json:"progress"`
	Status      ProjectStatus `json:"status"`
	StartDate   *civil.Date   `json:"startDate,omitempty"`
	EndDate     *civil.Date   `json:"endDate,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// ProjectRequest is used for both create (POST) and partial update (PUT).
type ProjectRequest struct {
	Name        *string `json:"name"`
	Location    *string `json:"location"`
	Description *string `json:"description"`
	Budget      *Money  `json:"budget"`
	Progress    *int    `json:"progress"`
	Status      *string `json:"status"`
	StartDate   *string `json:"startDate"`
	EndDate     *string `json:"endDate"`
}

// ProjectSummary is the dashboard rollup for a project.
type ProjectSummary struct {
	ProjectID            string      `json:"projectId"`
	Budget               Money       `json:"budget"`
	TotalCashSpent       Money       `json:"totalCashSpent"`
	TotalLedgerSupplier  Money       `json:"totalLedgerSupplierSpent"`
	TotalDirectPurchases Money       `json:"totalDirectPurchases"`
	TotalSpent           Money       `json:"totalSpent"`
	RemainingBudget      Money       `json:"remainingBudget"`
	BudgetUtilization    int64       `json:"budgetUtilization"`
	DisplayUtilization   int64       `json:"displayUtilization"`
	IsOverBudget         bool        `json:"isOverBudget"`
	TotalDeposits        Money       `json:"totalDeposits"`
	LatestClosingCash    *Money      `json:"latestClosingCash"`
	LatestLedgerDate     *civil.Date `json:"latestLedgerDate,omitempty"`
	LedgerCount          int         `json:"ledgerCount"`
	HasTodaysLedger      bool        `json:"hasTodaysLedger"`
}

// ============================================================
// Tasks, milestones, inventory
// ============================================================

// TaskStatus is the state of a site task.
type TaskStatus string

const (
	TaskTodo       TaskStatus = "todo"
	TaskInProgress TaskStatus = "in_progress"
	TaskDone       TaskStatus = "done"
)

func (s TaskStatus) Valid() bool {
	return s == TaskTodo || s == TaskInProgress || s == TaskDone
}

type Task struct {
	ID          string      `json:"id"`
	ProjectID   string      `json:"projectId"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Assignee    string      `json:"assignee,omitempty"`
	Status      TaskStatus  `json:"status"`
	Progress    int         `json:"progress"`
	DueDate     *civil.Date `json:"dueDate,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

type TaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Assignee    *string `json:"assignee"`
	Status      *string `json:"status"`
	Progress    *int    `json:"progress"`
	DueDate     *string `json:"dueDate"`
}

type Milestone struct {
	ID         string      `json:"id"`
	ProjectID  string      `json:"projectId"`
	Title      string      `json:"title"`
	TargetDate *civil.Date `json:"targetDate,omitempty"`
	Progress   int         `json:"progress"`
	Completed  bool        `json:"completed"`
	CreatedAt  time.Time   `json:"createdAt"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}

type MilestoneRequest struct {
	Title      *string `json:"title"`
	TargetDate *string `json:"targetDate"`
	Progress   *int    `json:"progress"`
	Completed  *bool   `json:"completed"`
}

// InventoryItem is stock held on site.
type InventoryItem struct {
	ID           string          `json:"id"`
	ProjectID    string          `json:"projectId"`
	Name         string          `json:"name"`
	Unit         string          `json:"unit,omitempty"`
	Quantity     decimal.Decimal `json:"quantity"`
	UnitCost     Money           `json:"unitCost"`
	ReorderLevel decimal.Decimal `json:"reorderLevel"`
	LowStock     bool            `json:"lowStock"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

type InventoryRequest struct {
	Name         *string          `json:"name"`
	Unit         *string          `json:"unit"`
	Quantity     *decimal.Decimal `json:"quantity"`
	UnitCost     *Money           `json:"unitCost"`
	ReorderLevel *decimal.Decimal `json:"reorderLevel"`
}

// ============================================================
// Helpers
// ============================================================

// ClampPercent forces a progress value into 0..100.
func ClampPercent(p int) int {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}

// ParseDate parses a YYYY-MM-DD calendar date, reporting failures against field.
func ParseDate(field, s string) (civil.Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return civil.Date{}, &ErrValidation{Field: field, Message: "required"}
	}
	// Accept full timestamps from clients that send ISO strings.
	if len(s) > 10 && s[10] == 'T' {
		s = s[:10]
	}
	d, err := civil.ParseDate(s)
	if err != nil || !d.IsValid() {
		return civil.Date{}, &ErrValidation{Field: field, Message: "invalid format, use YYYY-MM-DD"}
	}
	return d, nil
}

// ParseOptionalDate is ParseDate for nullable fields; an empty string clears the date.
func ParseOptionalDate(field string, s *string) (*civil.Date, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	d, err := ParseDate(field, *s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
