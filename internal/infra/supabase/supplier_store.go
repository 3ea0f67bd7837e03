package supabase

import (
	"context"

	"github.com/jengatrack/jengatrack-api/internal/domain"
)

// ============================================================
// Suppliers and the supplier_entries log via PostgREST
// ============================================================

func (c *Client) CreateSupplier(ctx context.Context, s *domain.Supplier) error {
	return c.write(ctx, "CreateSupplier", func() error {
		_, err := c.doPost(ctx, "suppliers", toSupplierRow(s))
		return err
	})
}

func (c *Client) GetSupplier(ctx context.Context, supplierID string) (*domain.Supplier, error) {
	var rows []supplierRow
	err := c.read(ctx, "GetSupplier", func() error {
		rows = nil
		return c.getRows(ctx, "suppliers?id="+eq(supplierID)+"&limit=1", &rows)
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "supplier", ID: supplierID}
	}
	s := rows[0].toDomain()
	return &s, nil
}

func (c *Client) ListSuppliers(ctx context.Context, ownerID string) ([]domain.Supplier, error) {
	var rows []supplierRow
	err := c.read(ctx, "ListSuppliers", func() error {
		rows = nil
		return c.getRows(ctx, "suppliers?owner_id="+eq(ownerID)+"&order=name.asc", &rows)
	})
	if err != nil {
		return nil, err
	}
	out := make([]domain.Supplier, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}

func (c *Client) UpdateSupplier(ctx context.Context, s *domain.Supplier) error {
	return c.write(ctx, "UpdateSupplier", func() error {
		return c.patchOne(ctx, "suppliers", "supplier", s.ID, toSupplierRow(s))
	})
}

// DeleteSupplier relies on the supplier_entries foreign key to refuse
// deleting a supplier that already has entries.
func (c *Client) DeleteSupplier(ctx context.Context, supplierID string) error {
	return c.write(ctx, "DeleteSupplier", func() error {
		return c.doDelete(ctx, "suppliers?id="+eq(supplierID))
	})
}

// AppendSupplierEntries inserts all entries in one bulk request, which
// PostgREST runs as a single statement.
func (c *Client) AppendSupplierEntries(ctx context.Context, entries []domain.SupplierEntry) error {
	if len(entries) == 0 {
		return nil
	}
	rows := make([]entryRow, len(entries))
	for i := range entries {
		rows[i] = toEntryRow(&entries[i])
	}
	return c.write(ctx, "AppendSupplierEntries", func() error {
		_, err := c.doPost(ctx, "supplier_entries", rows)
		return err
	})
}

func (c *Client) ListSupplierEntries(ctx context.Context, supplierID string) ([]domain.SupplierEntry, error) {
	return c.listEntries(ctx, "ListSupplierEntries",
		"supplier_entries?supplier_id="+eq(supplierID)+"&order=entry_date.asc,created_at.asc")
}

func (c *Client) ListProjectSupplierDraws(ctx context.Context, projectID string) ([]domain.SupplierEntry, error) {
	return c.listEntries(ctx, "ListProjectSupplierDraws",
		"supplier_entries?kind=eq.draw&project_id="+eq(projectID)+"&order=entry_date.asc,created_at.asc")
}

func (c *Client) listEntries(ctx context.Context, op, path string) ([]domain.SupplierEntry, error) {
	var rows []entryRow
	err := c.read(ctx, op, func() error {
		rows = nil
		return c.getRows(ctx, path, &rows)
	})
	if err != nil {
		return nil, err
	}
	out := make([]domain.SupplierEntry, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}
