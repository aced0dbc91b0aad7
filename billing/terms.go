package billing

import "time"

// Terms is a payment-terms selection.
type Terms string

const (
	TermsDueOnReceipt Terms = "DUE_ON_RECEIPT"
	TermsNet15        Terms = "NET_15"
	TermsNet30        Terms = "NET_30"
	TermsCustom       Terms = "CUSTOM"
)

// Valid reports whether t is a known terms code.
func (t Terms) Valid() bool {
	switch t {
	case TermsDueOnReceipt, TermsNet15, TermsNet30, TermsCustom:
		return true
	}
	return false
}

// DueDate maps terms to a due date for an invoice issued on issue.
// CUSTOM uses custom when given, else the issue date. Unknown terms are
// due on receipt.
func DueDate(terms Terms, issue Date, custom Date) Date {
	switch terms {
	case TermsNet15:
		return issue.AddDays(15)
	case TermsNet30:
		return issue.AddDays(30)
	case TermsCustom:
		if custom != "" {
			return custom
		}
	}
	return issue
}

// TermsLabel returns the human label printed on the invoice.
func TermsLabel(terms Terms, custom Date) string {
	switch terms {
	case TermsNet15:
		return "Net 15"
	case TermsNet30:
		return "Net 30"
	case TermsCustom:
		if t := custom.Time(); !t.IsZero() {
			return "Due by " + t.Format("1/2/2006")
		}
	}
	return "Due Upon Receipt"
}

// OverdueDays returns ceil((now - due) / 1 day), never negative. The due
// date is taken as midnight UTC. Excluding PAID invoices is up to the caller.
func OverdueDays(due Date, now time.Time) int {
	t := due.Time()
	if t.IsZero() {
		return 0
	}
	n := ceilDays(now.Sub(t))
	if n < 0 {
		return 0
	}
	return n
}
