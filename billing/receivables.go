package billing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Receivables summarizes what clients still owe on issued invoices.
// Amounts are invoice totals; payments are tracked per invoice only by
// status.
type Receivables struct {
	CheckedAt     time.Time
	Open          int
	OpenAmount    decimal.Decimal
	Overdue       int
	OverdueAmount decimal.Decimal
	// OldestOverdue is the largest OverdueDays among open invoices.
	OldestOverdue int
}

// SummarizeReceivables rolls up an invoice history. PAID invoices are
// settled and skipped.
func SummarizeReceivables(views []InvoiceView, now time.Time) Receivables {
	r := Receivables{CheckedAt: now, OpenAmount: decimal.Zero, OverdueAmount: decimal.Zero}
	for _, v := range views {
		if v.Invoice.Status == InvoicePaid {
			continue
		}
		r.Open++
		r.OpenAmount = r.OpenAmount.Add(v.Invoice.Total)
		if v.OverdueDays == 0 {
			continue
		}
		r.Overdue++
		r.OverdueAmount = r.OverdueAmount.Add(v.Invoice.Total)
		if v.OverdueDays > r.OldestOverdue {
			r.OldestOverdue = v.OverdueDays
		}
	}
	return r
}

// Receivables rolls up every client's invoice history as of now.
func (s *Service) Receivables(ctx context.Context) (Receivables, error) {
	views, err := s.History(ctx, "")
	if err != nil {
		return Receivables{}, err
	}
	return SummarizeReceivables(views, s.now()), nil
}
