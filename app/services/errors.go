package services

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across services. Controllers translate these into
// HTTP statuses; raw gorm or driver errors never leave the service layer.
var (
	// ErrNotFound means the referenced record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrForbidden means the record exists but belongs to another user.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidCredentials covers both unknown email and wrong password,
	// so a login response never reveals which one failed.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrEmailTaken means the registration email is already in use.
	ErrEmailTaken = errors.New("email already registered")
)

// ValidationError carries field-level failures from request validation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %d field(s)", len(e.Fields))
}

// NewValidationError builds a ValidationError from a field error map.
func NewValidationError(fields map[string]string) *ValidationError {
	return &ValidationError{Fields: fields}
}

// InsufficientStockError names the product that could not be fulfilled so
// the shopper knows exactly which line to fix.
type InsufficientStockError struct {
	ProductID uint
	Product   string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q: requested %d, available %d",
		e.Product, e.Requested, e.Available)
}

// TransactionError wraps an unexpected database failure during order
// placement. The wrapped cause is logged, never shown to clients.
type TransactionError struct {
	Op  string
	Err error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("transaction failed during %s: %v", e.Op, e.Err)
}

func (e *TransactionError) Unwrap() error { return e.Err }
