// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"cloud.google.com/go/civil"
	"github.com/jengatrack/jengatrack-api/internal/domain"
)

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}

// ProjectStore persists projects and their CRUD children.
type ProjectStore interface {
	CreateProject(ctx context.Context, p *domain.Project) error
	GetProject(ctx context.Context, projectID string) (*domain.Project, error)
	ListProjects(ctx context.Context, ownerID string) ([]domain.Project, error)
	UpdateProject(ctx context.Context, p *domain.Project) error

	CreateTask(ctx context.Context, t *domain.Task) error
	GetTask(ctx context.Context, taskID string) (*domain.Task, error)
	ListTasks(ctx context.Context, projectID string) ([]domain.Task, error)
	UpdateTask(ctx context.Context, t *domain.Task) error

	CreateMilestone(ctx context.Context, m *domain.Milestone) error
	GetMilestone(ctx context.Context, milestoneID string) (*domain.Milestone, error)
	ListMilestones(ctx context.Context, projectID string) ([]domain.Milestone, error)
	UpdateMilestone(ctx context.Context, m *domain.Milestone) error

	CreateInventoryItem(ctx context.Context, item *domain.InventoryItem) error
	GetInventoryItem(ctx context.Context, itemID string) (*domain.InventoryItem, error)
	ListInventory(ctx context.Context, projectID string) ([]domain.InventoryItem, error)
	UpdateInventoryItem(ctx context.Context, item *domain.InventoryItem) error
}

// LedgerStore persists daily ledgers and cash deposits.
type LedgerStore interface {
	// CreateDailyLedger must fail with *domain.ErrDuplicate when a ledger
	// already exists for (ProjectID, Date). draws are the supplier entries
	// produced by the ledger's supplier lines; they are stored with the ledger
	// or not at all.
	CreateDailyLedger(ctx context.Context, l *domain.DailyLedger, draws []domain.SupplierEntry) error
	GetDailyLedger(ctx context.Context, projectID string, date civil.Date) (*domain.DailyLedger, error)
	// LatestLedgerBefore returns the latest ledger dated strictly before date,
	// or nil when there is none.
	LatestLedgerBefore(ctx context.Context, projectID string, date civil.Date) (*domain.DailyLedger, error)
	// LatestLedger returns the most recent ledger of the project, or nil.
	LatestLedger(ctx context.Context, projectID string) (*domain.DailyLedger, error)
	ListDailyLedgers(ctx context.Context, projectID string) ([]domain.DailyLedger, error)

	CreateCashDeposit(ctx context.Context, d *domain.CashDeposit) error
	// ListCashDeposits returns deposits dated on or before upTo (all when upTo is zero).
	ListCashDeposits(ctx context.Context, projectID string, upTo civil.Date) ([]domain.CashDeposit, error)
}

// SupplierStore persists suppliers and the append-only supplier credit log.
type SupplierStore interface {
	CreateSupplier(ctx context.Context, s *domain.Supplier) error
	GetSupplier(ctx context.Context, supplierID string) (*domain.Supplier, error)
	ListSuppliers(ctx context.Context, ownerID string) ([]domain.Supplier, error)
	UpdateSupplier(ctx context.Context, s *domain.Supplier) error
	// DeleteSupplier removes a supplier that has no entries. Deleting a
	// missing supplier is not an error.
	DeleteSupplier(ctx context.Context, supplierID string) error

	AppendSupplierEntries(ctx context.Context, entries []domain.SupplierEntry) error
	ListSupplierEntries(ctx context.Context, supplierID string) ([]domain.SupplierEntry, error)
	ListProjectSupplierDraws(ctx context.Context, projectID string) ([]domain.SupplierEntry, error)
}

// Store is the full persistence surface used by the services.
type Store interface {
	ProjectStore
	LedgerStore
	SupplierStore
	Ping(ctx context.Context) error
}
