package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/spf13/cobra"
	"github.com/warp/billing-engine/api"
	"github.com/warp/billing-engine/billing"
)

// globalOptions are shared by every subcommand.
type globalOptions struct {
	snapshotPath string
	prefix       string
	date         string
	licenses     []string
}

// loadedBooks is an export, ready for the engine.
type loadedBooks struct {
	snap    billing.Snapshot
	catalog billing.LicenseCatalog
	now     time.Time
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "invoicectl",
		Short: "Offline invoice preview and numbering",
		Long: `invoicectl reads a JSON export of clients, projects, ledger entries
and past invoices, and runs the billing engine over it without a server
or database.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&opts.snapshotPath, "snapshot", "s", "books.json", "Path to the JSON export")
	root.PersistentFlags().StringVar(&opts.prefix, "prefix", billing.DefaultInvoicePrefix, "Invoice number prefix")
	root.PersistentFlags().StringVar(&opts.date, "date", "", "Issue date YYYY-MM-DD (default: today)")
	root.PersistentFlags().StringArrayVar(&opts.licenses, "license", nil, "Per-unit license as LABEL=COST, repeatable; wins over the export's licenses")

	root.AddCommand(newPreviewCmd(opts))
	root.AddCommand(newNextNumberCmd(opts))
	return root
}

// load reads the export, resolves the issue time and builds the license
// catalog from --license flags followed by the export's own licenses.
func (o *globalOptions) load() (loadedBooks, error) {
	now := time.Now()
	if o.date != "" {
		d, err := billing.ParseDate(o.date)
		if err != nil {
			return loadedBooks{}, fmt.Errorf("--date: %w", err)
		}
		now = d.Time()
	}

	catalog, err := parseLicenses(o.licenses)
	if err != nil {
		return loadedBooks{}, err
	}

	data, err := os.ReadFile(o.snapshotPath)
	if err != nil {
		return loadedBooks{}, fmt.Errorf("read snapshot: %w", err)
	}
	var dto api.SnapshotDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return loadedBooks{}, fmt.Errorf("parse snapshot %s: %w", o.snapshotPath, err)
	}
	snap := dto.ToSnapshot(now)
	for _, e := range snap.Entries {
		if err := billing.ValidateEntry(e); err != nil {
			return loadedBooks{}, err
		}
	}
	return loadedBooks{snap: snap, catalog: append(catalog, dto.Catalog()...), now: now}, nil
}

func parseLicenses(flags []string) (billing.LicenseCatalog, error) {
	var catalog billing.LicenseCatalog
	for _, f := range flags {
		i := strings.LastIndex(f, "=")
		if i <= 0 {
			return nil, fmt.Errorf("--license %q: want LABEL=COST", f)
		}
		cost, err := decimal.NewFromString(strings.TrimSpace(f[i+1:]))
		if err != nil || !cost.IsPositive() {
			return nil, fmt.Errorf("--license %q: cost must be a positive number", f)
		}
		catalog = append(catalog, billing.LicenseFee{Label: strings.TrimSpace(f[:i]), Cost: cost})
	}
	return catalog, nil
}

func (o *globalOptions) numbering() billing.Numbering {
	return billing.Numbering{Prefix: o.prefix}
}
