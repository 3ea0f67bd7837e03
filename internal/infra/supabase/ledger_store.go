package supabase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jengatrack/jengatrack-api/internal/domain"

	"go.uber.org/zap"
)

// ============================================================
// Daily ledgers and cash deposits via PostgREST
//
// daily_ledgers carries a unique index on (project_id, ledger_date), so a
// second insert for the same day answers 409 and surfaces as ErrDuplicate.
// ============================================================

// rollbackTimeout bounds the compensating delete after a failed draw insert.
const rollbackTimeout = 5 * time.Second

func (c *Client) CreateDailyLedger(ctx context.Context, l *domain.DailyLedger, draws []domain.SupplierEntry) error {
	err := c.write(ctx, "CreateDailyLedger", func() error {
		_, err := c.doPost(ctx, "daily_ledgers", toLedgerRow(l))
		return err
	})
	if err != nil {
		var dup *domain.ErrDuplicate
		if errors.As(err, &dup) {
			return &domain.ErrDuplicate{Key: fmt.Sprintf("ledger %s/%s", l.ProjectID, l.Date)}
		}
		return err
	}
	if len(draws) == 0 {
		return nil
	}

	if err := c.AppendSupplierEntries(ctx, draws); err != nil {
		// Drop the ledger so it is stored with its draws or not at all. The
		// delete must still run when ctx was cancelled mid-request.
		rbCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rollbackTimeout)
		defer cancel()
		rbErr := c.write(rbCtx, "DeleteDailyLedger", func() error {
			return c.doDelete(rbCtx, "daily_ledgers?id="+eq(l.ID))
		})
		if rbErr != nil {
			c.logger.Error("supabase: ledger rollback failed",
				zap.String("ledger_id", l.ID),
				zap.String("project_id", l.ProjectID),
				zap.Error(rbErr),
			)
		}
		return err
	}
	return nil
}

func (c *Client) GetDailyLedger(ctx context.Context, projectID string, date civil.Date) (*domain.DailyLedger, error) {
	l, err := c.oneLedger(ctx, "GetDailyLedger",
		fmt.Sprintf("daily_ledgers?project_id=%s&ledger_date=eq.%s&limit=1", eq(projectID), date))
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, &domain.ErrNotFound{Resource: "daily ledger", ID: projectID + "/" + date.String()}
	}
	return l, nil
}

func (c *Client) LatestLedgerBefore(ctx context.Context, projectID string, date civil.Date) (*domain.DailyLedger, error) {
	return c.oneLedger(ctx, "LatestLedgerBefore",
		fmt.Sprintf("daily_ledgers?project_id=%s&ledger_date=lt.%s&order=ledger_date.desc&limit=1", eq(projectID), date))
}

func (c *Client) LatestLedger(ctx context.Context, projectID string) (*domain.DailyLedger, error) {
	return c.oneLedger(ctx, "LatestLedger",
		fmt.Sprintf("daily_ledgers?project_id=%s&order=ledger_date.desc&limit=1", eq(projectID)))
}

func (c *Client) ListDailyLedgers(ctx context.Context, projectID string) ([]domain.DailyLedger, error) {
	var rows []ledgerRow
	err := c.read(ctx, "ListDailyLedgers", func() error {
		rows = nil
		return c.getRows(ctx, "daily_ledgers?project_id="+eq(projectID)+"&order=ledger_date.asc", &rows)
	})
	if err != nil {
		return nil, err
	}
	out := make([]domain.DailyLedger, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}

// oneLedger returns the first ledger matched by path, or nil.
func (c *Client) oneLedger(ctx context.Context, op, path string) (*domain.DailyLedger, error) {
	var rows []ledgerRow
	err := c.read(ctx, op, func() error {
		rows = nil
		return c.getRows(ctx, path, &rows)
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	l := rows[0].toDomain()
	return &l, nil
}

func (c *Client) CreateCashDeposit(ctx context.Context, d *domain.CashDeposit) error {
	return c.write(ctx, "CreateCashDeposit", func() error {
		_, err := c.doPost(ctx, "cash_deposits", toDepositRow(d))
		return err
	})
}

func (c *Client) ListCashDeposits(ctx context.Context, projectID string, upTo civil.Date) ([]domain.CashDeposit, error) {
	path := "cash_deposits?project_id=" + eq(projectID)
	if upTo.IsValid() {
		path += "&deposit_date=lte." + upTo.String()
	}
	path += "&order=deposit_date.asc,created_at.asc"

	var rows []depositRow
	err := c.read(ctx, "ListCashDeposits", func() error {
		rows = nil
		return c.getRows(ctx, path, &rows)
	})
	if err != nil {
		return nil, err
	}
	out := make([]domain.CashDeposit, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}
