package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultStatementMarkup is the markup applied to expenses imported from
// statements when the caller gives none.
var DefaultStatementMarkup = decimal.NewFromInt(20)

// Candidate is a ledger line proposed by the document-extraction service.
// Amount is the raw figure read off the statement.
type Candidate struct {
	Date        string
	Description string
	Amount      float64
}

// ExpenseFromCandidate turns an accepted candidate into an EXPENSE entry
// for projectID. The entry goes through the same validation as a manual
// one, so a malformed date or a non-finite or negative amount is refused.
func ExpenseFromCandidate(id EntryID, c Candidate, projectID ProjectID, markup *decimal.Decimal, now time.Time) (LedgerEntry, error) {
	cost, ok := DecimalFromFloat(c.Amount)
	if !ok {
		return LedgerEntry{}, &EntryError{EntryID: id, Field: "amount", Reason: "is not a finite number"}
	}
	if markup == nil {
		markup = Dec(DefaultStatementMarkup)
	}
	date, err := ParseDate(c.Date)
	if err != nil {
		return LedgerEntry{}, &EntryError{EntryID: id, Field: "date", Reason: "must be YYYY-MM-DD"}
	}
	e := LedgerEntry{
		ID:            id,
		ProjectID:     projectID,
		Date:          date,
		Description:   c.Description,
		Payload:       ExpensePayload{Cost: cost, MarkupPercent: markup},
		PaymentStatus: PaymentPending,
		CreatedAt:     now,
	}
	if err := ValidateEntry(e); err != nil {
		return LedgerEntry{}, err
	}
	return e, nil
}
