package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jengatrack/jengatrack-api/internal/domain"
	"github.com/shopspring/decimal"
)

func TestCreateProject_DefaultsAndClamp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.projects.CreateProject(ctx, owner, &domain.ProjectRequest{
		Name:      strPtr("  Westlands Villa "),
		Progress:  intPtr(140),
		StartDate: strPtr("2024-01-15"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name != "Westlands Villa" {
		t.Errorf("expected trimmed name, got %q", p.Name)
	}
	if p.Progress != 100 {
		t.Errorf("expected progress clamped to 100, got %d", p.Progress)
	}
	if p.Status != domain.ProjectPlanning {
		t.Errorf("expected planning status, got %s", p.Status)
	}
	if p.OwnerID != owner || !p.CreatedAt.Equal(fixedNow) {
		t.Errorf("unexpected owner/time: %s %s", p.OwnerID, p.CreatedAt)
	}
}

func TestCreateProject_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		req   domain.ProjectRequest
		field string
	}{
		{"no name", domain.ProjectRequest{}, "name"},
		{"negative budget", domain.ProjectRequest{Name: strPtr("x"), Budget: moneyPtr(-1)}, "budget"},
		{"bad status", domain.ProjectRequest{Name: strPtr("x"), Status: strPtr("abandoned")}, "status"},
		{"end before start", domain.ProjectRequest{Name: strPtr("x"), StartDate: strPtr("2024-05-02"), EndDate: strPtr("2024-05-01")}, "endDate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.projects.CreateProject(ctx, owner, &tt.req)
			var ve *domain.ErrValidation
			if !errors.As(err, &ve) || ve.Field != tt.field {
				t.Fatalf("expected validation error on %q, got %v", tt.field, err)
			}
		})
	}
}

func TestUpdateProject_InvalidatesCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.project(t, domain.Shillings(100))

	// Warm the cache.
	if _, err := f.projects.GetProject(ctx, owner, p.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.projects.UpdateProject(ctx, owner, p.ID, &domain.ProjectRequest{Status: strPtr("in_progress")}); err != nil {
		t.Fatal(err)
	}

	got, err := f.projects.GetProject(ctx, owner, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.ProjectInProgress {
		t.Errorf("expected fresh status in_progress, got %s", got.Status)
	}
}

func TestProjects_ScopedToOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.project(t, 0)

	_, err := f.projects.GetProject(ctx, intruder, p.ID)
	var fe *domain.ErrForbidden
	if !errors.As(err, &fe) {
		t.Fatalf("expected forbidden, got %v", err)
	}

	list, err := f.projects.ListProjects(ctx, intruder)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 0 {
		t.Errorf("expected no projects for another account, got %d", len(list))
	}

	_, err = f.projects.GetProject(ctx, owner, "missing")
	var nf *domain.ErrNotFound
	if !errors.As(err, &nf) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestTasks_ClampAndStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.project(t, 0)

	task, err := f.projects.CreateTask(ctx, owner, p.ID, &domain.TaskRequest{Title: strPtr("Pour foundation"), Progress: intPtr(-20)})
	if err != nil {
		t.Fatal(err)
	}
	if task.Progress != 0 || task.Status != domain.TaskTodo {
		t.Errorf("unexpected task: %+v", task)
	}

	task, err = f.projects.UpdateTask(ctx, owner, task.ID, &domain.TaskRequest{Status: strPtr("done"), Progress: intPtr(250)})
	if err != nil {
		t.Fatal(err)
	}
	if task.Progress != 100 || task.Status != domain.TaskDone {
		t.Errorf("unexpected task after update: %+v", task)
	}

	_, err = f.projects.UpdateTask(ctx, intruder, task.ID, &domain.TaskRequest{Title: strPtr("hijack")})
	var fe *domain.ErrForbidden
	if !errors.As(err, &fe) {
		t.Errorf("expected forbidden, got %v", err)
	}

	tasks, err := f.projects.ListTasks(ctx, owner, p.ID)
	if err != nil || len(tasks) != 1 {
		t.Errorf("expected one task, got %d (%v)", len(tasks), err)
	}
}

func TestMilestones_CompleteAtHundred(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.project(t, 0)

	m, err := f.projects.CreateMilestone(ctx, owner, p.ID, &domain.MilestoneRequest{Title: strPtr("Roof on"), Progress: intPtr(60)})
	if err != nil {
		t.Fatal(err)
	}
	if m.Completed {
		t.Error("expected milestone not completed at 60")
	}

	m, err = f.projects.UpdateMilestone(ctx, owner, m.ID, &domain.MilestoneRequest{Progress: intPtr(120)})
	if err != nil {
		t.Fatal(err)
	}
	if m.Progress != 100 || !m.Completed {
		t.Errorf("expected completed at 100, got %+v", m)
	}
}

func TestInventory_LowStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.project(t, 0)

	qty := decimal.NewFromInt(40)
	reorder := decimal.NewFromInt(50)
	item, err := f.projects.CreateInventoryItem(ctx, owner, p.ID, &domain.InventoryRequest{
		Name: strPtr("Cement bags"), Unit: strPtr("bag"), Quantity: &qty, ReorderLevel: &reorder,
		UnitCost: moneyPtr(domain.Shillings(750)),
	})
	if err != nil {
		t.Fatal(err)
	}
	if !item.LowStock {
		t.Error("expected low stock at 40 of 50")
	}

	restocked := decimal.NewFromInt(200)
	item, err = f.projects.UpdateInventoryItem(ctx, owner, item.ID, &domain.InventoryRequest{Quantity: &restocked})
	if err != nil {
		t.Fatal(err)
	}
	if item.LowStock {
		t.Error("expected stock to be healthy after restock")
	}

	negative := decimal.NewFromInt(-1)
	_, err = f.projects.UpdateInventoryItem(ctx, owner, item.ID, &domain.InventoryRequest{Quantity: &negative})
	var ve *domain.ErrValidation
	if !errors.As(err, &ve) || ve.Field != "quantity" {
		t.Errorf("expected quantity validation error, got %v", err)
	}
}
