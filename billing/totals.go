/*
totals.go - Totals and write-off arithmetic

PURPOSE:
  Aggregates resolved amounts into the figures printed at the foot of an
  invoice: services (time) subtotal, expenses & fees subtotal, subtotal,
  paid, discount and balance due. Tax is always zero.

WRITE-OFF POLICY:
  When writeOffExcess is set, a paid amount (typically a retainer) is taken
  to cover time charges first, while non-time charges stay fully due:

    currentBalance = subtotal − paid
    discount       = max(0, currentBalance − expenseTotal)
    balanceDue     = subtotal − paid − discount

  This is a business policy, not an accounting identity. Nothing in the
  ledger records which part of a payment went to which entry type. Keep the
  formula as written.

EXAMPLE:
  time 1200, expenses 120, subtotal 1320, paid 1250, write-off on:
    currentBalance = 70
    discount       = max(0, 70 − 120) = 0
    balanceDue     = 70
*/
package billing

import "github.com/shopspring/decimal"

// Totals is the rollup of an invoice's priced entries.
type Totals struct {
	TimeTotal    decimal.Decimal
	ExpenseTotal decimal.Decimal
	Subtotal     decimal.Decimal
	Tax          decimal.Decimal
	Total        decimal.Decimal
	PaidAmount   decimal.Decimal
	Discount     decimal.Decimal
	BalanceDue   decimal.Decimal
}

// ComputeTotals aggregates priced entries. TIME amounts go to TimeTotal;
// expenses, fixed fees and media fees all go to ExpenseTotal.
func ComputeTotals(priced []PricedEntry, paid decimal.Decimal, writeOffExcess bool) Totals {
	var (
		timeTotal    = decimal.Zero
		expenseTotal = decimal.Zero
	)
	for _, pe := range priced {
		if pe.Entry.Type() == EntryTime {
			timeTotal = timeTotal.Add(pe.Resolution.Amount)
		} else {
			expenseTotal = expenseTotal.Add(pe.Resolution.Amount)
		}
	}

	subtotal := timeTotal.Add(expenseTotal)

	discount := decimal.Zero
	if writeOffExcess {
		currentBalance := subtotal.Sub(paid)
		discount = decimal.Max(decimal.Zero, currentBalance.Sub(expenseTotal))
	}

	return Totals{
		TimeTotal:    timeTotal,
		ExpenseTotal: expenseTotal,
		Subtotal:     subtotal,
		Tax:          decimal.Zero,
		Total:        subtotal,
		PaidAmount:   paid,
		Discount:     discount,
		BalanceDue:   subtotal.Sub(paid).Sub(discount),
	}
}

// PaidFromLedger sums the resolved amounts of entries marked PAID. It is
// the paid amount used when the caller does not supply one.
func PaidFromLedger(priced []PricedEntry) decimal.Decimal {
	paid := decimal.Zero
	for _, pe := range priced {
		if pe.Entry.IsPaid() {
			paid = paid.Add(pe.Resolution.Amount)
		}
	}
	return paid
}
