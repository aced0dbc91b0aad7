/*
invoice.go - Invoice assembly

PURPOSE:
  Runs the whole pipeline over one consistent snapshot:

    Filter -> Price (Resolve) -> OrderPriced -> GroupByProject
           -> ComputeTotals -> Numbering.Next + DueDate -> Invoice

  The result is a Preview: the invoice record ready to persist, plus the
  ordered entries, project groups, totals and warnings a caller shows
  before saving.

  Build is pure. The Service (service.go) loads the snapshot, assigns the
  invoice id and persists the result.
*/
package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// Snapshot is the consistent view of the books an invoice is built from.
type Snapshot struct {
	Clients  []Client
	Projects []Project
	Entries  []LedgerEntry
	Invoices []Invoice
}

// Directory indexes the snapshot's clients and projects.
func (s Snapshot) Directory() *Directory {
	return NewDirectory(s.Clients, s.Projects)
}

// Request holds the caller's choices for one invoice.
type Request struct {
	InvoiceID      InvoiceID
	ClientID       ClientID
	ProjectID      ProjectID
	Window         DateWindow
	Terms          Terms
	CustomDueDate  Date
	WriteOffExcess bool
	// PaidAmount overrides the paid amount. When not valid, entries marked
	// PAID are summed instead.
	PaidAmount decimal.NullDecimal
	Now        time.Time
}

// Warning reports a flagged line without failing the invoice.
type Warning struct {
	EntryID EntryID
	Flag    LineFlag
}

// Preview is an assembled, not yet persisted, invoice.
type Preview struct {
	Invoice    Invoice
	TermsLabel string
	Entries    []PricedEntry
	Groups     []ProjectGroup
	Totals     Totals
	Warnings   []Warning
}

// Engine carries the configuration invoice assembly depends on.
type Engine struct {
	Numbering Numbering
	Catalog   LicenseCatalog
}

// Build assembles an invoice for req from snap.
func (en Engine) Build(snap Snapshot, req Request) Preview {
	dir := snap.Directory()

	var selected []LedgerEntry
	if req.ClientID != "" {
		selected = Filter(snap.Entries, dir, req.ClientID, req.ProjectID, req.Window)
	}
	priced := OrderPriced(Price(selected, dir))

	paid := PaidFromLedger(priced)
	if req.PaidAmount.Valid {
		paid = req.PaidAmount.Decimal
	}
	totals := ComputeTotals(priced, paid, req.WriteOffExcess)

	number := en.Numbering.Draft()
	if req.ClientID != "" {
		number = en.Numbering.Next(dir.ClientName(req.ClientID), snap.Invoices, req.Now)
	}

	terms := req.Terms
	if !terms.Valid() {
		terms = TermsDueOnReceipt
	}
	issue := DateOf(req.Now)

	items := LineItems(priced, en.Catalog)

	return Preview{
		Invoice: Invoice{
			ID:        req.InvoiceID,
			Number:    number,
			ClientID:  req.ClientID,
			IssueDate: issue,
			DueDate:   DueDate(terms, issue, req.CustomDueDate),
			Terms:     terms,
			Items:     items,
			Subtotal:  totals.Subtotal,
			Tax:       totals.Tax,
			Total:     totals.Total,
			Status:    InvoiceSent,
			CreatedAt: req.Now,
		},
		TermsLabel: TermsLabel(terms, req.CustomDueDate),
		Entries:    priced,
		Groups:     GroupByProject(priced),
		Totals:     totals,
		Warnings:   collectWarnings(items),
	}
}

func collectWarnings(items []InvoiceLineItem) []Warning {
	var out []Warning
	for _, it := range items {
		for _, f := range it.Flags {
			out = append(out, Warning{EntryID: it.EntryID, Flag: f})
		}
	}
	return out
}
