package billing

import "github.com/shopspring/decimal"

// ValidateEntry checks an entry before it is stored or priced. The resolver
// accepts any numbers; this is where negative quantities are refused.
func ValidateEntry(e LedgerEntry) error {
	if e.ID == "" {
		return &EntryError{Field: "id", Reason: "is required"}
	}
	if e.ProjectID == "" {
		return &EntryError{EntryID: e.ID, Field: "project_id", Reason: "is required"}
	}
	if !e.Date.Valid() {
		return &EntryError{EntryID: e.ID, Field: "date", Reason: "must be YYYY-MM-DD"}
	}
	if e.PaymentStatus != "" && e.PaymentStatus != PaymentPending && e.PaymentStatus != PaymentPaid {
		return &EntryError{EntryID: e.ID, Field: "payment_status", Reason: "must be PENDING or PAID"}
	}

	switch p := e.Payload.(type) {
	case TimePayload:
		if p.Hours.IsNegative() {
			return negative(e.ID, "hours")
		}
		if p.Rate != nil && p.Rate.IsNegative() {
			return negative(e.ID, "rate")
		}
		if p.RateMultiplier != nil && p.RateMultiplier.IsNegative() {
			return negative(e.ID, "rate_multiplier")
		}
	case ExpensePayload:
		if p.Cost.IsNegative() {
			return negative(e.ID, "cost")
		}
	case FixedFeePayload:
		if p.Amount.IsNegative() {
			return negative(e.ID, "amount")
		}
	case MediaSpendPayload:
		if isNegative(p.GoogleSpend) {
			return negative(e.ID, "google_spend")
		}
		if isNegative(p.MetaSpend) {
			return negative(e.ID, "meta_spend")
		}
	default:
		return &EntryError{EntryID: e.ID, Field: "type", Reason: "has no payload"}
	}
	return nil
}

func isNegative(d *decimal.Decimal) bool { return d != nil && d.IsNegative() }

func negative(id EntryID, field string) error {
	return &EntryError{EntryID: id, Field: field, Reason: "must not be negative"}
}
