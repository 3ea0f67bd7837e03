package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jengatrack/jengatrack-api/internal/domain"
	"github.com/jengatrack/jengatrack-api/internal/infra/observability"
	"github.com/jengatrack/jengatrack-api/internal/port"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var projectTracer = otel.Tracer("service/projects")

const projectCacheName = "project"

// ProjectService owns projects and their tasks, milestones and inventory.
// It is also the ownership gate the other services go through.
type ProjectService struct {
	store   port.ProjectStore
	cache   port.Cache[domain.Project]
	metrics *observability.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewProjectService creates a new project service.
func NewProjectService(store port.ProjectStore, cache port.Cache[domain.Project], metrics *observability.Metrics, logger *zap.Logger) *ProjectService {
	return &ProjectService{store: store, cache: cache, metrics: metrics, logger: logger, now: time.Now}
}

// WithClock replaces the time source. Used by tests.
func (s *ProjectService) WithClock(now func() time.Time) *ProjectService {
	s.now = now
	return s
}

func projectCacheKey(id string) string { return "project:" + id }

// ============================================================
// Ownership
// ============================================================

// Authorize loads a project and checks that accountID owns it.
func (s *ProjectService) Authorize(ctx context.Context, accountID, projectID string) (*domain.Project, error) {
	if strings.TrimSpace(projectID) == "" {
		return nil, &domain.ErrValidation{Field: "projectId", Message: "required"}
	}

	p, err := s.load(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if p.OwnerID != accountID {
		return nil, &domain.ErrForbidden{Action: "access project " + projectID}
	}
	return p, nil
}

func (s *ProjectService) load(ctx context.Context, projectID string) (*domain.Project, error) {
	if cached, ok := s.cache.Get(projectCacheKey(projectID)); ok {
		s.metrics.IncrCacheHit(projectCacheName)
		return &cached, nil
	}
	s.metrics.IncrCacheMiss(projectCacheName)

	p, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	s.cache.Set(projectCacheKey(projectID), *p)
	return p, nil
}

// ============================================================
// Projects
// ============================================================

func (s *ProjectService) CreateProject(ctx context.Context, accountID string, req *domain.ProjectRequest) (*domain.Project, error) {
	ctx, span := projectTracer.Start(ctx, "ProjectService.CreateProject")
	defer span.End()

	if req.Name == nil || strings.TrimSpace(*req.Name) == "" {
		return nil, &domain.ErrValidation{Field: "name", Message: "required"}
	}

	now := s.now().UTC()
	p := &domain.Project{
		ID:        uuid.New().String(),
		OwnerID:   accountID,
		Status:    domain.ProjectPlanning,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := applyProjectRequest(p, req); err != nil {
		return nil, err
	}

	if err := s.store.CreateProject(ctx, p); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("project.id", p.ID))

	s.logger.Info("project created",
		zap.String("project_id", p.ID),
		zap.String("owner_id", accountID),
		zap.String("budget", p.Budget.String()),
	)
	return p, nil
}

func (s *ProjectService) GetProject(ctx context.Context, accountID, projectID string) (*domain.Project, error) {
	ctx, span := projectTracer.Start(ctx, "ProjectService.GetProject")
	defer span.End()

	return s.Authorize(ctx, accountID, projectID)
}

func (s *ProjectService) ListProjects(ctx context.Context, accountID string) ([]domain.Project, error) {
	ctx, span := projectTracer.Start(ctx, "ProjectService.ListProjects")
	defer span.End()

	return s.store.ListProjects(ctx, accountID)
}

func (s *ProjectService) UpdateProject(ctx context.Context, accountID, projectID string, req *domain.ProjectRequest) (*domain.Project, error) {
	ctx, span := projectTracer.Start(ctx, "ProjectService.UpdateProject")
	defer span.End()

	p, err := s.Authorize(ctx, accountID, projectID)
	if err != nil {
		return nil, err
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return nil, &domain.ErrValidation{Field: "name", Message: "must not be empty"}
	}
	if err := applyProjectRequest(p, req); err != nil {
		return nil, err
	}
	p.UpdatedAt = s.now().UTC()

	if err := s.store.UpdateProject(ctx, p); err != nil {
		return nil, err
	}
	s.cache.Delete(projectCacheKey(projectID))
	return p, nil
}

func applyProjectRequest(p *domain.Project, req *domain.ProjectRequest) error {
	if req.Name != nil {
		p.Name = strings.TrimSpace(*req.Name)
	}
	if req.Location != nil {
		p.Location = *req.Location
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	if req.Budget != nil {
		if req.Budget.IsNegative() {
			return &domain.ErrValidation{Field: "budget", Message: "must not be negative"}
		}
		p.Budget = *req.Budget
	}
	if req.Progress != nil {
		p.Progress = domain.ClampPercent(*req.Progress)
	}
	if req.Status != nil {
		st := domain.ProjectStatus(strings.ToLower(strings.TrimSpace(*req.Status)))
		if !st.Valid() {
			return &domain.ErrValidation{Field: "status", Message: "must be planning, in_progress, on_hold or completed"}
		}
		p.Status = st
	}
	if req.StartDate != nil {
		d, err := domain.ParseOptionalDate("startDate", req.StartDate)
		if err != nil {
			return err
		}
		p.StartDate = d
	}
	if req.EndDate != nil {
		d, err := domain.ParseOptionalDate("endDate", req.EndDate)
		if err != nil {
			return err
		}
		p.EndDate = d
	}
	if p.StartDate != nil && p.EndDate != nil && p.EndDate.Before(*p.StartDate) {
		return &domain.ErrValidation{Field: "endDate", Message: "must not be before startDate"}
	}
	return nil
}

// ============================================================
// Tasks
// ============================================================

func (s *ProjectService) CreateTask(ctx context.Context, accountID, projectID string, req *domain.TaskRequest) (*domain.Task, error) {
	ctx, span := projectTracer.Start(ctx, "ProjectService.CreateTask")
	defer span.End()

	if _, err := s.Authorize(ctx, accountID, projectID); err != nil {
		return nil, err
	}
	if req.Title == nil || strings.TrimSpace(*req.Title) == "" {
		return nil, &domain.ErrValidation{Field: "title", Message: "required"}
	}

	now := s.now().UTC()
	t := &domain.Task{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		Status:    domain.TaskTodo,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := applyTaskRequest(t, req); err != nil {
		return nil, err
	}
	if err := s.store.CreateTask(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *ProjectService) ListTasks(ctx context.Context, accountID, projectID string) ([]domain.Task, error) {
	ctx, span := projectTracer.Start(ctx, "ProjectService.ListTasks")
	defer span.End()

	if _, err := s.Authorize(ctx, accountID, projectID); err != nil {
		return nil, err
	}
	return s.store.ListTasks(ctx, projectID)
}

func (s *ProjectService) UpdateTask(ctx context.Context, accountID, taskID string, req *domain.TaskRequest) (*domain.Task, error) {
	ctx, span := projectTracer.Start(ctx, "ProjectService.UpdateTask")
	defer span.End()

	t, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if _, err := s.Authorize(ctx, accountID, t.ProjectID); err != nil {
		return nil, err
	}
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		return nil, &domain.ErrValidation{Field: "title", Message: "must not be empty"}
	}
	if err := applyTaskRequest(t, req); err != nil {
		return nil, err
	}
	t.UpdatedAt = s.now().UTC()

	if err := s.store.UpdateTask(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func applyTaskRequest(t *domain.Task, req *domain.TaskRequest) error {
	if req.Title != nil {
		t.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		t.Description = *req.Description
	}
	if req.Assignee != nil {
		t.Assignee = *req.Assignee
	}
	if req.Status != nil {
		st := domain.TaskStatus(strings.ToLower(strings.TrimSpace(*req.Status)))
		if !st.Valid() {
			return &domain.ErrValidation{Field: "status", Message: "must be todo, in_progress or done"}
		}
		t.Status = st
	}
	if req.Progress != nil {
		t.Progress = domain.ClampPercent(*req.Progress)
	}
	if req.DueDate != nil {
		d, err := domain.ParseOptionalDate("dueDate", req.DueDate)
		if err != nil {
			return err
		}
		t.DueDate = d
	}
	return nil
}

// ============================================================
// Milestones
// ============================================================

func (s *ProjectService) CreateMilestone(ctx context.Context, accountID, projectID string, req *domain.MilestoneRequest) (*domain.Milestone, error) {
	ctx, span := projectTracer.Start(ctx, "ProjectService.CreateMilestone")
	defer span.End()

	if _, err := s.Authorize(ctx, accountID, projectID); err != nil {
		return nil, err
	}
	if req.Title == nil || strings.TrimSpace(*req.Title) == "" {
		return nil, &domain.ErrValidation{Field: "title", Message: "required"}
	}

	now := s.now().UTC()
	m := &domain.Milestone{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := applyMilestoneRequest(m, req); err != nil {
		return nil, err
	}
	if err := s.store.CreateMilestone(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *ProjectService) ListMilestones(ctx context.Context, accountID, projectID string) ([]domain.Milestone, error) {
	ctx, span := projectTracer.Start(ctx, "ProjectService.ListMilestones")
	defer span.End()

	if _, err := s.Authorize(ctx, accountID, projectID); err != nil {
		return nil, err
	}
	return s.store.ListMilestones(ctx, projectID)
}

func (s *ProjectService) UpdateMilestone(ctx context.Context, accountID, milestoneID string, req *domain.MilestoneRequest) (*domain.Milestone, error) {
	ctx, span := projectTracer.Start(ctx, "ProjectService.UpdateMilestone")
	defer span.End()

	m, err := s.store.GetMilestone(ctx, milestoneID)
	if err != nil {
		return nil, err
	}
	if _, err := s.Authorize(ctx, accountID, m.ProjectID); err != nil {
		return nil, err
	}
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		return nil, &domain.ErrValidation{Field: "title", Message: "must not be empty"}
	}
	if err := applyMilestoneRequest(m, req); err != nil {
		return nil, err
	}
	m.UpdatedAt = s.now().UTC()

	if err := s.store.UpdateMilestone(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// applyMilestoneRequest keeps Completed and Progress consistent: reaching 100
// completes the milestone, and marking it complete sets progress to 100.
func applyMilestoneRequest(m *domain.Milestone, req *domain.MilestoneRequest) error {
	if req.Title != nil {
		m.Title = strings.TrimSpace(*req.Title)
	}
	if req.TargetDate != nil {
		d, err := domain.ParseOptionalDate("targetDate", req.TargetDate)
		if err != nil {
			return err
		}
		m.TargetDate = d
	}
	if req.Progress != nil {
		m.Progress = domain.ClampPercent(*req.Progress)
		m.Completed = m.Progress == 100
	}
	if req.Completed != nil {
		m.Completed = *req.Completed
		if m.Completed {
			m.Progress = 100
		}
	}
	return nil
}

// ============================================================
// Inventory
// ============================================================

func (s *ProjectService) CreateInventoryItem(ctx context.Context, accountID, projectID string, req *domain.InventoryRequest) (*domain.InventoryItem, error) {
	ctx, span := projectTracer.Start(ctx, "ProjectService.CreateInventoryItem")
	defer span.End()

	if _, err := s.Authorize(ctx, accountID, projectID); err != nil {
		return nil, err
	}
	if req.Name == nil || strings.TrimSpace(*req.Name) == "" {
		return nil, &domain.ErrValidation{Field: "name", Message: "required"}
	}

	now := s.now().UTC()
	item := &domain.InventoryItem{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := applyInventoryRequest(item, req); err != nil {
		return nil, err
	}
	if err := s.store.CreateInventoryItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *ProjectService) ListInventory(ctx context.Context, accountID, projectID string) ([]domain.InventoryItem, error) {
	ctx, span := projectTracer.Start(ctx, "ProjectService.ListInventory")
	defer span.End()

	if _, err := s.Authorize(ctx, accountID, projectID); err != nil {
		return nil, err
	}
	return s.store.ListInventory(ctx, projectID)
}

func (s *ProjectService) UpdateInventoryItem(ctx context.Context, accountID, itemID string, req *domain.InventoryRequest) (*domain.InventoryItem, error) {
	ctx, span := projectTracer.Start(ctx, "ProjectService.UpdateInventoryItem")
	defer span.End()

	item, err := s.store.GetInventoryItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if _, err := s.Authorize(ctx, accountID, item.ProjectID); err != nil {
		return nil, err
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return nil, &domain.ErrValidation{Field: "name", Message: "must not be empty"}
	}
	if err := applyInventoryRequest(item, req); err != nil {
		return nil, err
	}
	item.UpdatedAt = s.now().UTC()

	if err := s.store.UpdateInventoryItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func applyInventoryRequest(item *domain.InventoryItem, req *domain.InventoryRequest) error {
	if req.Name != nil {
		item.Name = strings.TrimSpace(*req.Name)
	}
	if req.Unit != nil {
		item.Unit = *req.Unit
	}
	if req.Quantity != nil {
		if req.Quantity.IsNegative() {
			return &domain.ErrValidation{Field: "quantity", Message: "must not be negative"}
		}
		item.Quantity = *req.Quantity
	}
	if req.UnitCost != nil {
		if req.UnitCost.IsNegative() {
			return &domain.ErrValidation{Field: "unitCost", Message: "must not be negative"}
		}
		item.UnitCost = *req.UnitCost
	}
	if req.ReorderLevel != nil {
		if req.ReorderLevel.IsNegative() {
			return &domain.ErrValidation{Field: "reorderLevel", Message: "must not be negative"}
		}
		item.ReorderLevel = *req.ReorderLevel
	}
	item.LowStock = isLowStock(item.Quantity, item.ReorderLevel)
	return nil
}

// isLowStock reports whether quantity has fallen to the reorder level.
// A zero reorder level disables the alert.
func isLowStock(quantity, reorderLevel decimal.Decimal) bool {
	return reorderLevel.IsPositive() && quantity.LessThanOrEqual(reorderLevel)
}

// isNotFound reports whether err is a domain not-found error.
func isNotFound(err error) bool {
	var nf *domain.ErrNotFound
	return errors.As(err, &nf)
}
