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
// Supplier Handlers
// ============================================================

func listSuppliersHandler(svc *service.SupplierService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /suppliers")
		defer span.End()

		suppliers, err := svc.ListSuppliers(ctx, AccountIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.NewListResponse(suppliers))
	}
}

func createSupplierHandler(svc *service.SupplierService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /suppliers")
		defer span.End()

		var req domain.CreateSupplierRequest
		if err := decodeJSON(w, r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		sup, err := svc.CreateSupplier(ctx, AccountIDFromContext(ctx), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, sup)
	}
}

func getSupplierHandler(svc *service.SupplierService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /suppliers/{supplierId}")
		defer span.End()

		sup, err := svc.GetSupplier(ctx, AccountIDFromContext(ctx), chi.URLParam(r, "supplierId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, sup)
	}
}

// PUT /api/suppliers/{supplierId}: details and { "addCredit": "..." }
func updateSupplierHandler(svc *service.SupplierService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /suppliers/{supplierId}")
		defer span.End()

		var req domain.UpdateSupplierRequest
		if err := decodeJSON(w, r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		sup, err := svc.UpdateSupplier(ctx, AccountIDFromContext(ctx), chi.URLParam(r, "supplierId"), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, sup)
	}
}

func addSupplierCreditHandler(svc *service.SupplierService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /suppliers/{supplierId}/credits")
		defer span.End()

		var req domain.AddCreditRequest
		if err := decodeJSON(w, r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		sup, err := svc.AddCredit(ctx, AccountIDFromContext(ctx), chi.URLParam(r, "supplierId"), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, sup)
	}
}

// GET /api/suppliers/{supplierId}/transactions?projectId=
func supplierTransactionsHandler(svc *service.SupplierService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /suppliers/{supplierId}/transactions")
		defer span.End()

		supplierID := chi.URLParam(r, "supplierId")
		projectID := r.URL.Query().Get("projectId")
		span.SetAttributes(attribute.String("supplier.id", supplierID), attribute.String("project.id", projectID))

		tx, err := svc.Transactions(ctx, AccountIDFromContext(ctx), supplierID, projectID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, tx)
	}
}

// POST /api/supplier-purchases
func createSupplierPurchaseHandler(svc *service.SupplierService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /supplier-purchases")
		defer span.End()

		var req domain.SupplierPurchaseRequest
		if err := decodeJSON(w, r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		entry, err := svc.RecordPurchase(ctx, AccountIDFromContext(ctx), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, entry)
	}
}
