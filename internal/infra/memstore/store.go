// Package memstore is an in-memory implementation of port.Store.
// It is safe for concurrent use; data is lost on restart.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"cloud.google.com/go/civil"
	"github.com/jengatrack/jengatrack-api/internal/domain"
)

type ledgerKey struct {
	projectID string
	date      civil.Date
}

// Store keeps every table in maps guarded by one RWMutex.
type Store struct {
	mu sync.RWMutex

	projects   map[string]domain.Project
	tasks      map[string]domain.Task
	milestones map[string]domain.Milestone
	inventory  map[string]domain.InventoryItem

	ledgers     map[string]domain.DailyLedger
	ledgerIndex map[ledgerKey]string
	deposits    []domain.CashDeposit

	suppliers map[string]domain.Supplier
	entries   []domain.SupplierEntry
}

// New creates an empty store.
func New() *Store {
	return &Store{
		projects:    make(map[string]domain.Project),
		tasks:       make(map[string]domain.Task),
		milestones:  make(map[string]domain.Milestone),
		inventory:   make(map[string]domain.InventoryItem),
		ledgers:     make(map[string]domain.DailyLedger),
		ledgerIndex: make(map[ledgerKey]string),
		suppliers:   make(map[string]domain.Supplier),
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// ============================================================
// generic helpers
// ============================================================

func insert[T any](m map[string]T, id string, v T, resource string) error {
	if id == "" {
		return fmt.Errorf("%s id is required", resource)
	}
	if _, exists := m[id]; exists {
		return &domain.ErrDuplicate{Key: resource + ":" + id}
	}
	m[id] = v
	return nil
}

func replace[T any](m map[string]T, id string, v T, resource string) error {
	if _, exists := m[id]; !exists {
		return &domain.ErrNotFound{Resource: resource, ID: id}
	}
	m[id] = v
	return nil
}

func lookup[T any](m map[string]T, id string, resource string) (*T, error) {
	v, exists := m[id]
	if !exists {
		return nil, &domain.ErrNotFound{Resource: resource, ID: id}
	}
	return &v, nil
}

func filter[T any](m map[string]T, keep func(T) bool) []T {
	out := make([]T, 0)
	for _, v := range m {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}

// ============================================================
// Projects
// ============================================================

func (s *Store) CreateProject(_ context.Context, p *domain.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insert(s.projects, p.ID, *p, "project")
}

func (s *Store) GetProject(_ context.Context, projectID string) (*domain.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lookup(s.projects, projectID, "project")
}

func (s *Store) ListProjects(_ context.Context, ownerID string) ([]domain.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := filter(s.projects, func(p domain.Project) bool { return p.OwnerID == ownerID })
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) UpdateProject(_ context.Context, p *domain.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return replace(s.projects, p.ID, *p, "project")
}

// ============================================================
// Tasks / milestones / inventory
// ============================================================

func (s *Store) CreateTask(_ context.Context, t *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insert(s.tasks, t.ID, *t, "task")
}

func (s *Store) GetTask(_ context.Context, taskID string) (*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lookup(s.tasks, taskID, "task")
}

func (s *Store) ListTasks(_ context.Context, projectID string) ([]domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := filter(s.tasks, func(t domain.Task) bool { return t.ProjectID == projectID })
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) UpdateTask(_ context.Context, t *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return replace(s.tasks, t.ID, *t, "task")
}

func (s *Store) CreateMilestone(_ context.Context, m *domain.Milestone) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insert(s.milestones, m.ID, *m, "milestone")
}

func (s *Store) GetMilestone(_ context.Context, milestoneID string) (*domain.Milestone, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lookup(s.milestones, milestoneID, "milestone")
}

func (s *Store) ListMilestones(_ context.Context, projectID string) ([]domain.Milestone, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := filter(s.milestones, func(m domain.Milestone) bool { return m.ProjectID == projectID })
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) UpdateMilestone(_ context.Context, m *domain.Milestone) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return replace(s.milestones, m.ID, *m, "milestone")
}

func (s *Store) CreateInventoryItem(_ context.Context, item *domain.InventoryItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insert(s.inventory, item.ID, *item, "inventory_item")
}

func (s *Store) GetInventoryItem(_ context.Context, itemID string) (*domain.InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lookup(s.inventory, itemID, "inventory_item")
}

func (s *Store) ListInventory(_ context.Context, projectID string) ([]domain.InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := filter(s.inventory, func(i domain.InventoryItem) bool { return i.ProjectID == projectID })
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) UpdateInventoryItem(_ context.Context, item *domain.InventoryItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return replace(s.inventory, item.ID, *item, "inventory_item")
}

// ============================================================
// Daily ledgers & deposits
// ============================================================

func copyLedger(l domain.DailyLedger) domain.DailyLedger {
	l.Lines = append([]domain.LedgerLine(nil), l.Lines...)
	return l
}

func (s *Store) CreateDailyLedger(_ context.Context, l *domain.DailyLedger, draws []domain.SupplierEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := ledgerKey{projectID: l.ProjectID, date: l.Date}
	if _, exists := s.ledgerIndex[key]; exists {
		return &domain.ErrDuplicate{Key: fmt.Sprintf("daily_ledger:%s:%s", l.ProjectID, l.Date)}
	}
	for _, d := range draws {
		if _, ok := s.suppliers[d.SupplierID]; !ok {
			return &domain.ErrNotFound{Resource: "supplier", ID: d.SupplierID}
		}
	}
	if err := insert(s.ledgers, l.ID, copyLedger(*l), "daily_ledger"); err != nil {
		return err
	}
	s.ledgerIndex[key] = l.ID
	s.entries = append(s.entries, draws...)
	return nil
}

func (s *Store) GetDailyLedger(_ context.Context, projectID string, date civil.Date) (*domain.DailyLedger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.ledgerIndex[ledgerKey{projectID: projectID, date: date}]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "daily_ledger", ID: projectID + "/" + date.String()}
	}
	l := copyLedger(s.ledgers[id])
	return &l, nil
}

// latestWhere scans the project's ledgers; caller holds the lock.
func (s *Store) latestWhere(projectID string, keep func(civil.Date) bool) *domain.DailyLedger {
	var best *domain.DailyLedger
	for _, l := range s.ledgers {
		if l.ProjectID != projectID || !keep(l.Date) {
			continue
		}
		if best == nil || l.Date.After(best.Date) {
			c := copyLedger(l)
			best = &c
		}
	}
	return best
}

func (s *Store) LatestLedgerBefore(_ context.Context, projectID string, date civil.Date) (*domain.DailyLedger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latestWhere(projectID, func(d civil.Date) bool { return d.Before(date) }), nil
}

func (s *Store) LatestLedger(_ context.Context, projectID string) (*domain.DailyLedger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latestWhere(projectID, func(civil.Date) bool { return true }), nil
}

func (s *Store) ListDailyLedgers(_ context.Context, projectID string) ([]domain.DailyLedger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := filter(s.ledgers, func(l domain.DailyLedger) bool { return l.ProjectID == projectID })
	for i := range out {
		out[i] = copyLedger(out[i])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *Store) CreateCashDeposit(_ context.Context, d *domain.CashDeposit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.deposits {
		if existing.ID == d.ID {
			return &domain.ErrDuplicate{Key: "cash_deposit:" + d.ID}
		}
	}
	s.deposits = append(s.deposits, *d)
	return nil
}

func (s *Store) ListCashDeposits(_ context.Context, projectID string, upTo civil.Date) ([]domain.CashDeposit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.CashDeposit, 0)
	for _, d := range s.deposits {
		if d.ProjectID != projectID {
			continue
		}
		if upTo.IsValid() && d.Date.After(upTo) {
			continue
		}
		out = append(out, d)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// ============================================================
// Suppliers & credit log
// ============================================================

func (s *Store) CreateSupplier(_ context.Context, sup *domain.Supplier) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insert(s.suppliers, sup.ID, *sup, "supplier")
}

func (s *Store) GetSupplier(_ context.Context, supplierID string) (*domain.Supplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lookup(s.suppliers, supplierID, "supplier")
}

func (s *Store) ListSuppliers(_ context.Context, ownerID string) ([]domain.Supplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := filter(s.suppliers, func(sup domain.Supplier) bool { return sup.OwnerID == ownerID })
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) UpdateSupplier(_ context.Context, sup *domain.Supplier) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return replace(s.suppliers, sup.ID, *sup, "supplier")
}

func (s *Store) DeleteSupplier(_ context.Context, supplierID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.entries {
		if e.SupplierID == supplierID {
			return fmt.Errorf("supplier %s has entries", supplierID)
		}
	}
	delete(s.suppliers, supplierID)
	return nil
}

func (s *Store) AppendSupplierEntries(_ context.Context, entries []domain.SupplierEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range entries {
		if _, ok := s.suppliers[e.SupplierID]; !ok {
			return &domain.ErrNotFound{Resource: "supplier", ID: e.SupplierID}
		}
	}
	s.entries = append(s.entries, entries...)
	return nil
}

func (s *Store) ListSupplierEntries(_ context.Context, supplierID string) ([]domain.SupplierEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.SupplierEntry, 0)
	for _, e := range s.entries {
		if e.SupplierID == supplierID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store) ListProjectSupplierDraws(_ context.Context, projectID string) ([]domain.SupplierEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.SupplierEntry, 0)
	for _, e := range s.entries {
		if e.Kind == domain.EntryDraw && e.ProjectID == projectID {
			out = append(out, e)
		}
	}
	return out, nil
}
