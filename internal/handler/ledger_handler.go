package handler

import (
	"net/http"

	"github.com/jengatrack/jengatrack-api/internal/domain"
	"github.com/jengatrack/jengatrack-api/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Daily Ledger Handlers
// ============================================================

// GET /api/projects/{projectId}/opening-balance/{date}
func openingBalanceHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /projects/{projectId}/opening-balance/{date}")
		defer span.End()

		projectID := chi.URLParam(r, "projectId")
		date := chi.URLParam(r, "date")
		span.SetAttributes(attribute.String("project.id", projectID), attribute.String("date", date))

		ob, err := svc.OpeningBalance(ctx, AccountIDFromContext(ctx), projectID, date)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, ob)
	}
}

// POST /api/daily-ledgers
func createDailyLedgerHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /daily-ledgers")
		defer span.End()

		var req domain.CreateDailyLedgerRequest
		if err := decodeJSON(w, r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		ledger, err := svc.CreateDailyLedger(ctx, AccountIDFromContext(ctx), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, ledger)
	}
}

func listDailyLedgersHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /projects/{projectId}/daily-ledgers")
		defer span.End()

		ledgers, err := svc.ListDailyLedgers(ctx, AccountIDFromContext(ctx), chi.URLParam(r, "projectId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.NewListResponse(ledgers))
	}
}

func getDailyLedgerHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /projects/{projectId}/daily-ledgers/{date}")
		defer span.End()

		ledger, err := svc.GetDailyLedger(ctx, AccountIDFromContext(ctx), chi.URLParam(r, "projectId"), chi.URLParam(r, "date"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, ledger)
	}
}

// ============================================================
// Cash Deposit Handlers
// ============================================================

// POST /api/cash-deposits
func createCashDepositHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /cash-deposits")
		defer span.End()

		var req domain.CashDepositRequest
		if err := decodeJSON(w, r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		dep, err := svc.RecordCashDeposit(ctx, AccountIDFromContext(ctx), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, dep)
	}
}

func listCashDepositsHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /projects/{projectId}/cash-deposits")
		defer span.End()

		deposits, err := svc.ListCashDeposits(ctx, AccountIDFromContext(ctx), chi.URLParam(r, "projectId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.NewListResponse(deposits))
	}
}
