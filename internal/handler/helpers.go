package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/jengatrack/jengatrack-api/internal/domain"

	"go.uber.org/zap"
)

// ============================================================
// Shared helper functions
// ============================================================

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

type insufficientBalanceResponse struct {
	Error     string       `json:"error"`
	Available domain.Money `json:"available"`
	Required  domain.Money `json:"required"`
	Shortfall domain.Money `json:"shortfall"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// decodeJSON reads a JSON body into dst. Malformed bodies and bad field
// values come back as *domain.ErrValidation.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return nil
	}

	var ve *domain.ErrValidation
	if errors.As(err, &ve) {
		return ve
	}
	if errors.Is(err, io.EOF) {
		return &domain.ErrValidation{Field: "body", Message: "request body is empty"}
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return &domain.ErrValidation{Field: typeErr.Field, Message: "expected " + typeErr.Type.String()}
	}
	return &domain.ErrValidation{Field: "body", Message: "invalid JSON: " + err.Error()}
}

// handleServiceError maps domain errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var notFound *domain.ErrNotFound
	var circuitOpen *domain.ErrCircuitOpen
	var validation *domain.ErrValidation
	var insufficient *domain.ErrInsufficientBalance
	var duplicate *domain.ErrDuplicate
	var forbidden *domain.ErrForbidden
	var unauthorized *domain.ErrUnauthorized
	var external *domain.ErrExternalService

	switch {
	case errors.As(err, &notFound):
		logger.Debug("not found", zap.String("error", err.Error()))
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &circuitOpen):
		logger.Error("circuit breaker open", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &validation):
		logger.Debug("validation error", zap.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Field: validation.Field})
	case errors.As(err, &insufficient):
		logger.Warn("insufficient supplier balance",
			zap.String("supplier_id", insufficient.SupplierID),
			zap.String("available", insufficient.Available.String()),
			zap.String("required", insufficient.Required.String()),
		)
		writeJSON(w, http.StatusUnprocessableEntity, insufficientBalanceResponse{
			Error:     err.Error(),
			Available: insufficient.Available,
			Required:  insufficient.Required,
			Shortfall: insufficient.Shortfall(),
		})
	case errors.As(err, &duplicate):
		logger.Debug("duplicate resource", zap.String("error", err.Error()))
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &forbidden):
		logger.Warn("forbidden access", zap.String("error", err.Error()))
		writeError(w, http.StatusForbidden, err.Error())
	case errors.As(err, &unauthorized):
		logger.Warn("unauthorized", zap.String("error", err.Error()))
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.As(err, &external):
		logger.Error("store unavailable", zap.String("service", external.Service), zap.Error(err))
		writeError(w, http.StatusBadGateway, "upstream storage error")
	default:
		logger.Error("unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
