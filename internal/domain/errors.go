package domain

import "fmt"

// Error types for consistent error handling across the API.

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrExternalService indicates a failure in an external service call.
type ErrExternalService struct {
	Service string
	Err     error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error {
	return e.Err
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

// ErrValidation indicates a validation error (bad input).
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrInsufficientBalance is returned when a supplier purchase exceeds the
// supplier's current credit balance. Shortfall = Required - Available.
type ErrInsufficientBalance struct {
	SupplierID string
	Available  Money
	Required   Money
}

func (e *ErrInsufficientBalance) Shortfall() Money {
	return e.Required - e.Available
}

func (e *ErrInsufficientBalance) Error() string {
	return fmt.Sprintf("insufficient supplier balance: available=%s required=%s shortfall=%s",
		e.Available, e.Required, e.Shortfall())
}

// ErrDuplicate indicates a uniqueness violation (e.g. a second ledger for the same day).
type ErrDuplicate struct {
	Key string
}

func (e *ErrDuplicate) Error() string {
	return fmt.Sprintf("duplicate: %s", e.Key)
}

// ErrForbidden indicates the caller lacks permission for the operation.
type ErrForbidden struct {
	Action string
}

func (e *ErrForbidden) Error() string {
	return fmt.Sprintf("forbidden: %s", e.Action)
}

// ErrUnauthorized indicates an invalid or missing token.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}
