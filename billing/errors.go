/*
errors.go - Centralized error types for the billing engine

PURPOSE:
  All error types in one place for consistency and discoverability.

  The pricing engine itself never fails on business data: missing projects,
  zero quantities and negative write-offs are clamped and flagged instead.
  The errors below come from the edges: entry validation, date parsing,
  invoice status changes and the persistence layer.

ERROR CATEGORIES:
  1. Validation errors - malformed entries or dates supplied by a caller
  2. Lifecycle errors - invoice status transitions
  3. Store errors - missing records, invoice number collisions

USAGE:
  if errors.Is(err, billing.ErrDuplicateInvoiceNumber) {
      // another invoice took this number; renumber and retry
  }

SEE ALSO:
  - validate.go: produces EntryError
  - service.go: handles ErrDuplicateInvoiceNumber
*/
package billing

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidEntry is returned when a ledger entry fails validation.
	ErrInvalidEntry = errors.New("invalid ledger entry")

	// ErrInvalidDate is returned for dates not in YYYY-MM-DD form.
	ErrInvalidDate = errors.New("invalid date")

	// ErrInvalidStatus is returned for an unknown invoice status.
	ErrInvalidStatus = errors.New("invalid invoice status")

	// ErrInvalidTransition is returned when an invoice status would move backwards.
	ErrInvalidTransition = errors.New("invalid invoice status transition")

	// ErrClientNotFound is returned when a referenced client doesn't exist.
	ErrClientNotFound = errors.New("client not found")

	// ErrProjectNotFound is returned when a referenced project doesn't exist.
	ErrProjectNotFound = errors.New("project not found")

	// ErrEntryNotFound is returned when a referenced ledger entry doesn't exist.
	ErrEntryNotFound = errors.New("ledger entry not found")

	// ErrInvoiceNotFound is returned when a referenced invoice doesn't exist.
	ErrInvoiceNotFound = errors.New("invoice not found")

	// ErrDuplicateInvoiceNumber is returned by a Store when an invoice number
	// is already taken. Numbering is only unique along a single, linear
	// generation path; concurrent issuers collide here.
	ErrDuplicateInvoiceNumber = errors.New("duplicate invoice number")

	// ErrDuplicateInvoiceID is returned by a Store when an invoice id is
	// already taken. Renumbering cannot fix it.
	ErrDuplicateInvoiceID = errors.New("duplicate invoice id")

	// ErrNoClient is returned when an invoice is issued without a client.
	ErrNoClient = errors.New("no client selected")

	// ErrNothingToInvoice is returned when the filtered ledger is empty.
	ErrNothingToInvoice = errors.New("no ledger entries to invoice")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// EntryError describes which field of which entry failed validation.
type EntryError struct {
	EntryID EntryID
	Field   string
	Reason  string
}

func (e *EntryError) Error() string {
	if e.EntryID == "" {
		return fmt.Sprintf("invalid ledger entry: %s %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid ledger entry %s: %s %s", e.EntryID, e.Field, e.Reason)
}

func (e *EntryError) Unwrap() error { return ErrInvalidEntry }

// StatusError describes a rejected invoice status change.
type StatusError struct {
	From InvoiceStatus
	To   InvoiceStatus
	Err  error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%v: %s -> %s", e.Err, e.From, e.To)
}

func (e *StatusError) Unwrap() error { return e.Err }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrClientNotFound) ||
		errors.Is(err, ErrProjectNotFound) ||
		errors.Is(err, ErrEntryNotFound) ||
		errors.Is(err, ErrInvoiceNotFound)
}

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidEntry) ||
		errors.Is(err, ErrInvalidDate) ||
		errors.Is(err, ErrInvalidStatus) ||
		errors.Is(err, ErrNoClient) ||
		errors.Is(err, ErrNothingToInvoice)
}

// IsConflict returns true if the error is a state conflict the caller may
// resolve by reloading and retrying.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateInvoiceNumber) ||
		errors.Is(err, ErrDuplicateInvoiceID) ||
		errors.Is(err, ErrInvalidTransition)
}
