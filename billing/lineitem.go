package billing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// LICENSE CATALOG - Known per-unit expense items
// =============================================================================

// LicenseFee is a catalog item billed per unit, such as a stock license.
type LicenseFee struct {
	Label string
	Cost  decimal.Decimal
}

// LicenseCatalog lets expense lines show a quantity: an expense whose
// description matches a label, and whose cost exceeds one unit, is printed
// as round(cost / unit cost) units.
type LicenseCatalog []LicenseFee

var licenseTolerance = decimal.RequireFromString("0.01")

// Lookup returns the catalog item whose label equals description.
func (c LicenseCatalog) Lookup(description string) (LicenseFee, bool) {
	for _, f := range c {
		if f.Label == description {
			return f, true
		}
	}
	return LicenseFee{}, false
}

// quantityFor returns the unit count of an expense, 1 when not catalogued.
func (c LicenseCatalog) quantityFor(e LedgerEntry) decimal.Decimal {
	one := decimal.NewFromInt(1)
	p, ok := e.Payload.(ExpensePayload)
	if !ok {
		return one
	}
	fee, ok := c.Lookup(e.Description)
	if !ok || !fee.Cost.IsPositive() {
		return one
	}
	if p.Cost.GreaterThan(fee.Cost.Add(licenseTolerance)) {
		return p.Cost.Div(fee.Cost).Round(0)
	}
	return one
}

// =============================================================================
// LINE ITEMS
// =============================================================================

// LineItemFor snapshots a priced entry as an invoice line.
func LineItemFor(pe PricedEntry, catalog LicenseCatalog) InvoiceLineItem {
	e := pe.Entry
	item := InvoiceLineItem{
		Description: lineDescription(pe),
		Amount:      pe.Resolution.Amount,
		Type:        e.Type(),
		EntryID:     e.ID,
	}
	item.Flags = append(item.Flags, pe.Resolution.Flags...)
	if pe.Project == nil && !item.HasFlag(FlagUnassignedProject) {
		item.Flags = append(item.Flags, FlagUnassignedProject)
	}

	if p, ok := e.Payload.(TimePayload); ok {
		rate, _ := effectiveRate(p, pe.Project)
		item.Quantity = p.Hours
		item.Rate = rate.Mul(valueOr(p.RateMultiplier, decimal.NewFromInt(1)))
		return item
	}

	item.Quantity = catalog.quantityFor(e)
	rate, ok := unitRate(item.Amount, item.Quantity)
	if !ok {
		item.Flags = append(item.Flags, FlagZeroQuantity)
	}
	item.Rate = rate
	return item
}

// LineItems snapshots every priced entry, keeping order.
func LineItems(priced []PricedEntry, catalog LicenseCatalog) []InvoiceLineItem {
	items := make([]InvoiceLineItem, len(priced))
	for i, pe := range priced {
		items[i] = LineItemFor(pe, catalog)
	}
	return items
}

// unitRate back-computes amount / quantity. A zero quantity yields a zero
// rate and ok=false instead of a division error.
func unitRate(amount, quantity decimal.Decimal) (decimal.Decimal, bool) {
	if quantity.IsZero() {
		return decimal.Zero, false
	}
	return amount.Div(quantity), true
}

func lineDescription(pe PricedEntry) string {
	name := UnassignedName
	if pe.Project != nil {
		name = pe.Project.Name
	}
	desc := pe.Entry.Description
	if p, ok := pe.Entry.Payload.(MediaSpendPayload); ok && p.BillingMonth != "" {
		desc = "Media Management Fees - " + p.BillingMonth
	}
	return strings.TrimSpace(name + " - " + desc)
}
