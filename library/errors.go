/*
errors.go - Centralized error types for the library engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers classify failures with errors.Is and unwrap structured errors
  for detail.

ERROR CATEGORIES:
  1. Ledger errors - Copy reservation blocked (stock, condition)
  2. Lifecycle errors - Borrow/return rule violations
  3. Lookup errors - Referenced entity missing

NOT ERRORS:
  A soft-limit violation (NeedsConfirmation) is a normal return value of
  AttemptBorrow, never an error: the caller resolves it by invoking
  ConfirmBorrow. Bulk operations likewise never fail as a whole; per-item
  failures are itemized in the result.

USAGE:
  if errors.Is(err, library.ErrStudentBanned) {
      var ban *library.BanError
      errors.As(err, &ban)
      ...
  }
*/
package library

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned when a required field is missing or malformed.
	ErrValidation = errors.New("validation failed")

	// ErrOutOfStock is returned when a book has no copies on the shelf.
	ErrOutOfStock = errors.New("no copies available")

	// ErrNoHealthyCopy is returned when copies exist but none is healthy.
	ErrNoHealthyCopy = errors.New("no healthy copy available")

	// ErrDuplicateLoan is returned when a student already holds the book.
	ErrDuplicateLoan = errors.New("student already holds this book")

	// ErrStudentBanned is returned when the penalty threshold is reached.
	ErrStudentBanned = errors.New("student is banned from borrowing")

	// ErrLoanNotFound is returned when a return targets no open loan.
	ErrLoanNotFound = errors.New("active loan not found")

	// ErrNotFound is returned when a referenced book or student is missing.
	ErrNotFound = errors.New("entity not found")

	// ErrStaleState is returned per item when re-validation at confirm time
	// finds a previously eligible book no longer eligible.
	ErrStaleState = errors.New("state changed since confirmation was requested")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// BanError reports the penalty state that blocks a borrow.
type BanError struct {
	StudentKey    string
	PenaltyPoints int
	Threshold     int
}

func (e *BanError) Error() string {
	return fmt.Sprintf("student %s is banned: %d penalty points (threshold %d)",
		e.StudentKey, e.PenaltyPoints, e.Threshold)
}

func (e *BanError) Unwrap() error { return ErrStudentBanned }

// StaleStateError reports one item that failed confirm-time re-validation.
type StaleStateError struct {
	BookID BookID
	Cause  error // ErrOutOfStock, ErrNoHealthyCopy or ErrNotFound
}

func (e *StaleStateError) Error() string {
	return fmt.Sprintf("book %s no longer eligible: %v", e.BookID, e.Cause)
}

func (e *StaleStateError) Unwrap() error { return ErrStaleState }

// FieldError reports a missing or malformed field on one record.
type FieldError struct {
	Field  string
	Detail string
}

func (e *FieldError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("field %q is required", e.Field)
	}
	return fmt.Sprintf("field %q: %s", e.Field, e.Detail)
}

func (e *FieldError) Unwrap() error { return ErrValidation }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to the caller's request
// rather than an internal failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrOutOfStock) ||
		errors.Is(err, ErrNoHealthyCopy) ||
		errors.Is(err, ErrDuplicateLoan) ||
		errors.Is(err, ErrStudentBanned)
}

// IsNotFound returns true if the error indicates a missing entity or loan.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrLoanNotFound)
}
