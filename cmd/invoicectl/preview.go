package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/warp/billing-engine/api"
	"github.com/warp/billing-engine/billing"
)

type previewOptions struct {
	client   string
	project  string
	month    string
	start    string
	end      string
	terms    string
	dueDate  string
	writeOff bool
	paid     string
	format   string
}

func newPreviewCmd(global *globalOptions) *cobra.Command {
	opts := &previewOptions{}
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Build an invoice for a client and print it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPreview(cmd.OutOrStdout(), global, opts)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.client, "client", "c", "", "Client id (required)")
	f.StringVarP(&opts.project, "project", "p", "", "Project id, or \"all\"")
	f.StringVarP(&opts.month, "month", "m", "", "Billing month YYYY-MM")
	f.StringVar(&opts.start, "start", "", "Range start YYYY-MM-DD")
	f.StringVar(&opts.end, "end", "", "Range end YYYY-MM-DD")
	f.StringVarP(&opts.terms, "terms", "t", string(billing.TermsDueOnReceipt), "DUE_ON_RECEIPT, NET_15, NET_30 or CUSTOM")
	f.StringVar(&opts.dueDate, "due", "", "Due date for CUSTOM terms")
	f.BoolVar(&opts.writeOff, "write-off", false, "Write off billed time above the paid amount")
	f.StringVar(&opts.paid, "paid", "", "Amount already paid (default: sum of PAID entries)")
	f.StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	cmd.MarkFlagRequired("client")
	return cmd
}

func (o *previewOptions) request() (billing.Request, error) {
	terms := billing.Terms(o.terms)
	if !terms.Valid() {
		return billing.Request{}, fmt.Errorf("--terms: unknown terms %q", o.terms)
	}
	window := billing.AllTime()
	switch {
	case o.month != "":
		window = billing.InMonth(o.month)
	case o.start != "" || o.end != "":
		window = billing.Between(billing.Date(o.start), billing.Date(o.end))
	}
	req := billing.Request{
		InvoiceID:      "preview",
		ClientID:       billing.ClientID(o.client),
		ProjectID:      billing.ProjectID(o.project),
		Window:         window,
		Terms:          terms,
		CustomDueDate:  billing.Date(o.dueDate),
		WriteOffExcess: o.writeOff,
	}
	if o.paid != "" {
		paid, err := decimal.NewFromString(o.paid)
		if err != nil {
			return billing.Request{}, fmt.Errorf("--paid: %w", err)
		}
		req.PaidAmount = decimal.NewNullDecimal(paid)
	}
	return req, nil
}

func runPreview(w io.Writer, global *globalOptions, opts *previewOptions) error {
	req, err := opts.request()
	if err != nil {
		return err
	}
	b, err := global.load()
	if err != nil {
		return err
	}
	req.Now = b.now
	snap := b.snap

	engine := billing.Engine{Numbering: global.numbering(), Catalog: b.catalog}
	preview := engine.Build(snap, req)
	if len(preview.Entries) == 0 {
		return billing.ErrNothingToInvoice
	}

	switch opts.format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(api.PreviewFor(preview, snap))
	case "text":
		return printPreview(w, preview, snap.Directory())
	}
	return fmt.Errorf("--format: unknown format %q", opts.format)
}

func printPreview(w io.Writer, p billing.Preview, dir *billing.Directory) error {
	inv := p.Invoice
	fmt.Fprintf(w, "Invoice %s for %s\n", inv.Number, dir.ClientName(inv.ClientID))
	fmt.Fprintf(w, "Issued %s, due %s (%s)\n\n", inv.IssueDate, inv.DueDate, p.TermsLabel)

	items := make(map[billing.EntryID]billing.InvoiceLineItem, len(inv.Items))
	for _, item := range inv.Items {
		items[item.EntryID] = item
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, g := range p.Groups {
		fmt.Fprintf(tw, "%s\t\t\t\n", g.Name)
		for _, pe := range g.Entries {
			item := items[pe.Entry.ID]
			fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", item.Description, item.Quantity, item.Rate.StringFixed(2), item.Amount.StringFixed(2))
		}
		fmt.Fprintf(tw, "\t\tSubtotal\t%s\n", g.Subtotal.StringFixed(2))
	}
	t := p.Totals
	fmt.Fprintf(tw, "\t\t\t\n")
	fmt.Fprintf(tw, "\t\tTotal\t%s\n", t.Total.StringFixed(2))
	fmt.Fprintf(tw, "\t\tPaid\t%s\n", t.PaidAmount.StringFixed(2))
	if !t.Discount.IsZero() {
		fmt.Fprintf(tw, "\t\tWritten off\t%s\n", t.Discount.StringFixed(2))
	}
	fmt.Fprintf(tw, "\t\tBalance due\t%s\n", t.BalanceDue.StringFixed(2))
	if err := tw.Flush(); err != nil {
		return err
	}
	for _, warn := range p.Warnings {
		fmt.Fprintf(w, "warning: entry %s: %s\n", warn.EntryID, warn.Flag)
	}
	return nil
}
