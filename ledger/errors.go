/*
errors.go - Centralized error types for the ledger engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  The API layer maps these to HTTP statuses; nothing else should need
  to inspect error internals.

ERROR CATEGORIES:
  1. Validation errors - Rejected before any store access
  2. State errors      - Not found, insufficient funds (no write attempted)
  3. Store errors      - Document store failures, surfaced without retry

USAGE:
  if errors.Is(err, ledger.ErrInsufficientFunds) { ... }

  var nf *ledger.NotFoundError
  if errors.As(err, &nf) { ... }

SEE ALSO:
  - engine.go: Produces these errors
  - api/handlers.go: Maps them to HTTP statuses
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidArgument is returned for malformed ids and non-positive
	// amounts. Always rejected before any store access.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound is returned when a referenced account does not exist.
	ErrNotFound = errors.New("account not found")

	// ErrInsufficientFunds is returned when a withdrawal or transfer would
	// drive a balance negative. The source account is left untouched.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrStore is returned when the document store fails (network, timeout,
	// or an exhausted conflict retry). The engine does not retry these.
	ErrStore = errors.New("document store failure")

	// ErrNoDocument is returned by DocStore implementations when no current
	// document exists for an id.
	ErrNoDocument = errors.New("no such document")

	// ErrVersionConflict is returned by DocStore.Commit when a put's expected
	// version does not match the current head. Nothing is written.
	ErrVersionConflict = errors.New("document version conflict")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidArgumentError reports which input was rejected and why.
type InvalidArgumentError struct {
	Field  string
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *InvalidArgumentError) Unwrap() error { return ErrInvalidArgument }

// NotFoundError identifies the missing account.
type NotFoundError struct {
	AccountID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("account %s not found", e.AccountID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// InsufficientFundsError provides details about a balance shortage.
type InsufficientFundsError struct {
	AccountID string
	Balance   int64
	Requested int64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds on account %s: balance %d, requested %d",
		e.AccountID, e.Balance, e.Requested)
}

func (e *InsufficientFundsError) Unwrap() error { return ErrInsufficientFunds }

// StoreError wraps a document store failure with the operation that hit it.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return ErrStore }

// Cause returns the underlying store failure.
func (e *StoreError) Cause() error { return e.Err }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing account.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsClientError returns true if the error is due to invalid client input
// or a state the client can resolve.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidArgument) ||
		errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrNotFound)
}

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}
