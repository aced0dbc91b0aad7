/*
Package billing provides the billing aggregation and invoice-generation engine.

PURPOSE:
  Turns a heterogeneous ledger of billable events (hours, expenses, fixed
  fees, ad-spend management fees) into priced, ordered and numbered invoices,
  and reconciles them against partial or retainer payments.

  Every engine operation is a pure function of immutable snapshots: nothing
  in this package performs I/O, holds locks or keeps mutable shared state.
  Fetching and persisting records is the job of a Store (store.go) driven by
  the Service (service.go).

KEY CONCEPTS IN THIS FILE (types.go):
  - Client / Project: the directory an invoice is scoped by
  - LedgerEntry: one billable event, with a payload per entry type
  - InvoiceLineItem / Invoice: immutable value snapshots produced by Build

DESIGN PRINCIPLES:
  1. Precision: money is decimal.Decimal, never float64
  2. Tagged payloads: an entry's type is derived from its payload, so an
     entry can never carry fields of two types at once
  3. Absent is not zero: optional numeric fields are pointers
  4. Snapshots: line items copy values, they never reference live entries

USAGE:
  entry := billing.LedgerEntry{
      ID:        "e-1",
      ProjectID: "p-1",
      Date:      billing.MustParseDate("2024-05-02"),
      Payload:   billing.TimePayload{Hours: decimal.NewFromInt(8)},
  }
  res := billing.Resolve(entry, &project)

SEE ALSO:
  - rate.go: amount resolution per entry type
  - totals.go: subtotal / write-off arithmetic
  - invoice.go: end-to-end assembly
*/
package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ClientID string
type ProjectID string
type EntryID string
type InvoiceID string

// =============================================================================
// DIRECTORY - Clients own projects
// =============================================================================

type ClientStatus string

const (
	ClientActive   ClientStatus = "ACTIVE"
	ClientArchived ClientStatus = "ARCHIVED"
)

// Client is a billed customer. One client owns many projects.
type Client struct {
	ID            ClientID
	Name          string
	Address       string
	ContactPerson string
	Email         string
	Phone         string
	DefaultRate   decimal.Decimal
	Status        ClientStatus
	CreatedAt     time.Time
}

type ProjectStatus string

const (
	ProjectActive    ProjectStatus = "ACTIVE"
	ProjectCompleted ProjectStatus = "COMPLETED"
	ProjectArchived  ProjectStatus = "ARCHIVED"
)

// Project groups ledger entries for one client. HourlyRate is the fallback
// rate for TIME entries that carry no rate of their own.
type Project struct {
	ID         ProjectID
	Name       string
	ClientID   ClientID
	HourlyRate decimal.Decimal
	StartDate  Date
	Status     ProjectStatus
	CreatedAt  time.Time
}

// =============================================================================
// LEDGER ENTRY - One billable event
// =============================================================================

type EntryType string

const (
	EntryTime       EntryType = "TIME"
	EntryExpense    EntryType = "EXPENSE"
	EntryFixedFee   EntryType = "FIXED_FEE"
	EntryMediaSpend EntryType = "MEDIA_SPEND"
)

// Valid reports whether t is one of the four known entry types.
func (t EntryType) Valid() bool {
	switch t {
	case EntryTime, EntryExpense, EntryFixedFee, EntryMediaSpend:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentPaid    PaymentStatus = "PAID"
)

// LedgerEntry is the unit of billable work or spend.
type LedgerEntry struct {
	ID            EntryID
	ProjectID     ProjectID
	Date          Date
	Description   string
	Payload       Payload
	PaymentStatus PaymentStatus
	CreatedAt     time.Time
}

// Type returns the entry's type tag, derived from its payload.
// An entry without a payload has an empty type.
func (e LedgerEntry) Type() EntryType {
	if e.Payload == nil {
		return ""
	}
	return e.Payload.EntryType()
}

// IsPaid reports whether the entry has been marked as paid.
func (e LedgerEntry) IsPaid() bool { return e.PaymentStatus == PaymentPaid }

// Payload is the type-specific part of a ledger entry. The set of
// implementations is closed: TimePayload, ExpensePayload, FixedFeePayload
// and MediaSpendPayload.
type Payload interface {
	EntryType() EntryType
	sealed()
}

// TimePayload records hours worked. Rate overrides the project's hourly
// rate; RateMultiplier scales it (e.g. 1.5 for overtime).
type TimePayload struct {
	Hours          decimal.Decimal
	Rate           *decimal.Decimal
	RateMultiplier *decimal.Decimal
}

// ExpensePayload records a pass-through cost billed with a markup.
type ExpensePayload struct {
	Cost          decimal.Decimal
	MarkupPercent *decimal.Decimal
}

// FixedFeePayload records a flat fee entered directly.
type FixedFeePayload struct {
	Amount decimal.Decimal
}

// MediaSpendPayload records third-party ad spend for a billing month.
// The spend itself is never billed; only the fees levied on it are.
type MediaSpendPayload struct {
	GoogleSpend  *decimal.Decimal
	MetaSpend    *decimal.Decimal
	BillingMonth string // YYYY-MM
}

func (TimePayload) EntryType() EntryType       { return EntryTime }
func (ExpensePayload) EntryType() EntryType    { return EntryExpense }
func (FixedFeePayload) EntryType() EntryType   { return EntryFixedFee }
func (MediaSpendPayload) EntryType() EntryType { return EntryMediaSpend }

func (TimePayload) sealed()       {}
func (ExpensePayload) sealed()    {}
func (FixedFeePayload) sealed()   {}
func (MediaSpendPayload) sealed() {}

// Spend is the total ad spend; absent channels count as zero.
func (p MediaSpendPayload) Spend() decimal.Decimal {
	return valueOr(p.GoogleSpend, decimal.Zero).Add(valueOr(p.MetaSpend, decimal.Zero))
}

// =============================================================================
// INVOICE - Immutable snapshot produced by Build
// =============================================================================

// LineFlag marks a line item whose numbers were clamped or that could not
// be fully resolved. Flags never stop an invoice from being built.
type LineFlag string

const (
	// FlagZeroQuantity: unit rate back-computed from amount/quantity with
	// quantity zero; the rate was set to zero.
	FlagZeroQuantity LineFlag = "zero_quantity"
	// FlagUnassignedProject: the entry's project is not in the directory.
	FlagUnassignedProject LineFlag = "unassigned_project"
	// FlagMissingPayload: the entry carries no payload and resolves to zero.
	FlagMissingPayload LineFlag = "missing_payload"
)

// InvoiceLineItem is a flattened, priced copy of one ledger entry.
type InvoiceLineItem struct {
	Description string
	Quantity    decimal.Decimal
	Rate        decimal.Decimal
	Amount      decimal.Decimal
	Type        EntryType
	EntryID     EntryID
	Flags       []LineFlag
}

// HasFlag reports whether the line carries the given flag.
func (li InvoiceLineItem) HasFlag(f LineFlag) bool {
	for _, x := range li.Flags {
		if x == f {
			return true
		}
	}
	return false
}

type InvoiceStatus string

const (
	InvoiceDraft InvoiceStatus = "DRAFT"
	InvoiceSent  InvoiceStatus = "SENT"
	InvoicePaid  InvoiceStatus = "PAID"
)

// Valid reports whether s is a known invoice status.
func (s InvoiceStatus) Valid() bool {
	return s == InvoiceDraft || s == InvoiceSent || s == InvoicePaid
}

// Invoice is created once from a filtered ledger. Its line items never
// change afterwards; only Status moves.
type Invoice struct {
	ID        InvoiceID
	Number    string
	ClientID  ClientID
	IssueDate Date
	DueDate   Date
	Terms     Terms
	Items     []InvoiceLineItem
	Subtotal  decimal.Decimal
	Tax       decimal.Decimal
	Total     decimal.Decimal
	Status    InvoiceStatus
	CreatedAt time.Time
}

// WithStatus returns a copy of the invoice moved to the given status.
// Invoices move forward only: DRAFT -> SENT -> PAID (or DRAFT -> PAID).
func (inv Invoice) WithStatus(next InvoiceStatus) (Invoice, error) {
	if !next.Valid() {
		return inv, &StatusError{From: inv.Status, To: next, Err: ErrInvalidStatus}
	}
	if next == inv.Status {
		return inv, nil
	}
	if statusRank(next) < statusRank(inv.Status) {
		return inv, &StatusError{From: inv.Status, To: next, Err: ErrInvalidTransition}
	}
	inv.Status = next
	return inv, nil
}

func statusRank(s InvoiceStatus) int {
	switch s {
	case InvoiceDraft:
		return 0
	case InvoiceSent:
		return 1
	case InvoicePaid:
		return 2
	}
	return -1
}

// =============================================================================
// HELPERS
// =============================================================================

func valueOr(p *decimal.Decimal, def decimal.Decimal) decimal.Decimal {
	if p == nil {
		return def
	}
	return *p
}

// Dec returns a pointer to d, for optional payload fields.
func Dec(d decimal.Decimal) *decimal.Decimal { return &d }

// DecFloat returns a pointer to the decimal value of f.
func DecFloat(f float64) *decimal.Decimal {
	d := decimal.NewFromFloat(f)
	return &d
}
