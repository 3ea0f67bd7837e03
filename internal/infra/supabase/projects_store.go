package supabase

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jengatrack/jengatrack-api/internal/domain"
)

// ============================================================
// Projects, tasks, milestones, inventory via PostgREST
// ============================================================

func (c *Client) CreateProject(ctx context.Context, p *domain.Project) error {
	return c.write(ctx, "CreateProject", func() error {
		_, err := c.doPost(ctx, "projects", toProjectRow(p))
		return err
	})
}

func (c *Client) GetProject(ctx context.Context, projectID string) (*domain.Project, error) {
	var rows []projectRow
	err := c.read(ctx, "GetProject", func() error {
		rows = nil
		return c.getRows(ctx, "projects?id="+eq(projectID)+"&limit=1", &rows)
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "project", ID: projectID}
	}
	p := rows[0].toDomain()
	return &p, nil
}

func (c *Client) ListProjects(ctx context.Context, ownerID string) ([]domain.Project, error) {
	var rows []projectRow
	err := c.read(ctx, "ListProjects", func() error {
		rows = nil
		return c.getRows(ctx, "projects?owner_id="+eq(ownerID)+"&order=created_at.asc", &rows)
	})
	if err != nil {
		return nil, err
	}
	out := make([]domain.Project, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}

func (c *Client) UpdateProject(ctx context.Context, p *domain.Project) error {
	return c.write(ctx, "UpdateProject", func() error {
		return c.patchOne(ctx, "projects", "project", p.ID, toProjectRow(p))
	})
}

func (c *Client) CreateTask(ctx context.Context, t *domain.Task) error {
	return c.write(ctx, "CreateTask", func() error {
		_, err := c.doPost(ctx, "tasks", toTaskRow(t))
		return err
	})
}

func (c *Client) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	var rows []taskRow
	err := c.read(ctx, "GetTask", func() error {
		rows = nil
		return c.getRows(ctx, "tasks?id="+eq(taskID)+"&limit=1", &rows)
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "task", ID: taskID}
	}
	t := rows[0].toDomain()
	return &t, nil
}

func (c *Client) ListTasks(ctx context.Context, projectID string) ([]domain.Task, error) {
	var rows []taskRow
	err := c.read(ctx, "ListTasks", func() error {
		rows = nil
		return c.getRows(ctx, "tasks?project_id="+eq(projectID)+"&order=created_at.asc", &rows)
	})
	if err != nil {
		return nil, err
	}
	out := make([]domain.Task, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}

func (c *Client) UpdateTask(ctx context.Context, t *domain.Task) error {
	return c.write(ctx, "UpdateTask", func() error {
		return c.patchOne(ctx, "tasks", "task", t.ID, toTaskRow(t))
	})
}

func (c *Client) CreateMilestone(ctx context.Context, m *domain.Milestone) error {
	return c.write(ctx, "CreateMilestone", func() error {
		_, err := c.doPost(ctx, "milestones", toMilestoneRow(m))
		return err
	})
}

func (c *Client) GetMilestone(ctx context.Context, milestoneID string) (*domain.Milestone, error) {
	var rows []milestoneRow
	err := c.read(ctx, "GetMilestone", func() error {
		rows = nil
		return c.getRows(ctx, "milestones?id="+eq(milestoneID)+"&limit=1", &rows)
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "milestone", ID: milestoneID}
	}
	m := rows[0].toDomain()
	return &m, nil
}

func (c *Client) ListMilestones(ctx context.Context, projectID string) ([]domain.Milestone, error) {
	var rows []milestoneRow
	err := c.read(ctx, "ListMilestones", func() error {
		rows = nil
		return c.getRows(ctx, "milestones?project_id="+eq(projectID)+"&order=target_date.asc.nullslast", &rows)
	})
	if err != nil {
		return nil, err
	}
	out := make([]domain.Milestone, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}

func (c *Client) UpdateMilestone(ctx context.Context, m *domain.Milestone) error {
	return c.write(ctx, "UpdateMilestone", func() error {
		return c.patchOne(ctx, "milestones", "milestone", m.ID, toMilestoneRow(m))
	})
}

func (c *Client) CreateInventoryItem(ctx context.Context, item *domain.InventoryItem) error {
	return c.write(ctx, "CreateInventoryItem", func() error {
		_, err := c.doPost(ctx, "inventory_items", toInventoryRow(item))
		return err
	})
}

func (c *Client) GetInventoryItem(ctx context.Context, itemID string) (*domain.InventoryItem, error) {
	var rows []inventoryRow
	err := c.read(ctx, "GetInventoryItem", func() error {
		rows = nil
		return c.getRows(ctx, "inventory_items?id="+eq(itemID)+"&limit=1", &rows)
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "inventory item", ID: itemID}
	}
	it := rows[0].toDomain()
	return &it, nil
}

func (c *Client) ListInventory(ctx context.Context, projectID string) ([]domain.InventoryItem, error) {
	var rows []inventoryRow
	err := c.read(ctx, "ListInventory", func() error {
		rows = nil
		return c.getRows(ctx, "inventory_items?project_id="+eq(projectID)+"&order=name.asc", &rows)
	})
	if err != nil {
		return nil, err
	}
	out := make([]domain.InventoryItem, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}

func (c *Client) UpdateInventoryItem(ctx context.Context, item *domain.InventoryItem) error {
	return c.write(ctx, "UpdateInventoryItem", func() error {
		return c.patchOne(ctx, "inventory_items", "inventory item", item.ID, toInventoryRow(item))
	})
}

// patchOne replaces the row with the given id. PostgREST answers an unmatched
// filter with an empty array, which is reported as not found.
func (c *Client) patchOne(ctx context.Context, table, resource, id string, row any) error {
	body, err := c.doPatch(ctx, table+"?id="+eq(id), row)
	if err != nil {
		return err
	}
	var updated []json.RawMessage
	if err := json.Unmarshal(body, &updated); err != nil {
		return fmt.Errorf("decode %s update: %w", table, err)
	}
	if len(updated) == 0 {
		return &domain.ErrNotFound{Resource: resource, ID: id}
	}
	return nil
}
