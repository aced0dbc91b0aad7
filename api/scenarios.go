/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the books with realistic
	data for testing and demos. Each scenario creates clients, projects and
	ledger entries, and some issue invoices, to show specific features.

AVAILABLE SCENARIOS:

	agency:              Three clients with hours and a marked-up expense
	media-retainer:      Ad-spend fees, a paid retainer and meeting time
	overdue-receivables: Issued invoices, one overdue and one paid
	orphaned-entries:    Entries left behind by a deleted project

HOW SCENARIOS WORK:
 1. Reset the store (clear all data)
 2. Create clients and projects
 3. Add ledger entries, dated relative to now
 4. Optionally issue invoices through billing.Service

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "media-retainer"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx, svc, now)
 3. Register it in scenarioLoaders

NOTE:

	Scenarios reset the store. Only use in development/demo environments.

SEE ALSO:
  - demo.go: the agency scenario and shared seeding helpers
*/
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/billing-engine/billing"
)

// ErrUnknownScenario is returned for a scenario id that is not registered.
var ErrUnknownScenario = errors.New("unknown scenario")

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          DemoScenario,
		Name:        "Agency",
		Description: "Three clients with billable hours and a marked-up font license",
		Category:    "ledger",
	},
	{
		ID:          "media-retainer",
		Name:        "Media Retainer",
		Description: "Google and Meta spend fees, a paid monthly retainer and a weekly stand up",
		Category:    "ledger",
	},
	{
		ID:          "overdue-receivables",
		Name:        "Overdue Receivables",
		Description: "Invoices issued last month: one overdue, one paid, one recent",
		Category:    "invoicing",
	},
	{
		ID:          "orphaned-entries",
		Name:        "Orphaned Entries",
		Description: "A deleted project whose entries now show as Unassigned",
		Category:    "ledger",
	},
}

type scenarioLoader func(ctx context.Context, svc *billing.Service, now time.Time) error

var scenarioLoaders = map[string]scenarioLoader{
	DemoScenario:          loadAgencyScenario,
	"media-retainer":      loadMediaRetainerScenario,
	"overdue-receivables": loadOverdueReceivablesScenario,
	"orphaned-entries":    loadOrphanedEntriesScenario,
}

// LoadScenario resets the books behind svc and loads the scenario id,
// dated relative to now.
func LoadScenario(ctx context.Context, svc *billing.Service, id string, now time.Time) error {
	load, ok := scenarioLoaders[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownScenario, id)
	}
	rs, ok := svc.Store.(Resetter)
	if !ok {
		return errors.New("store does not support reset")
	}
	if err := rs.Reset(ctx); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	return load(ctx, svc, now)
}

// =============================================================================
// HANDLERS
// =============================================================================

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.scenarioMu.Lock()
	current := h.currentScenario
	h.scenarioMu.Unlock()

	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: current, Name: current})
}

// LoadScenario resets the books and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	h.setCurrentScenario("")
	if err := LoadScenario(r.Context(), h.Service, req.ScenarioID, h.now()); err != nil {
		if errors.Is(err, ErrUnknownScenario) {
			writeError(w, http.StatusBadRequest, "Unknown scenario", err)
			return
		}
		h.fail(w, "Failed to load scenario", err)
		return
	}
	h.setCurrentScenario(req.ScenarioID)

	h.Log.Info("scenario loaded")
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

func (h *Handler) setCurrentScenario(id string) {
	h.scenarioMu.Lock()
	h.currentScenario = id
	h.scenarioMu.Unlock()
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func loadMediaRetainerScenario(ctx context.Context, svc *billing.Service, now time.Time) error {
	today := billing.DateOf(now)

	if err := saveDirectory(ctx, svc.Store, now,
		[]billing.Client{{ID: "c1", Name: "Northwind Media", Email: "finance@northwind.example", DefaultRate: decimal.NewFromInt(160)}},
		[]billing.Project{{ID: "p1", Name: "Always-On Search", ClientID: "c1", HourlyRate: decimal.NewFromInt(160)}},
	); err != nil {
		return err
	}

	return saveEntries(ctx, svc.Store, now, []billing.LedgerEntry{
		{
			ID: "m1", ProjectID: "p1", Date: today, Description: "Ad spend",
			Payload: billing.MediaSpendPayload{
				GoogleSpend:  billing.Dec(decimal.NewFromInt(40000)),
				MetaSpend:    billing.Dec(decimal.NewFromInt(10000)),
				BillingMonth: today.MonthKey(),
			},
		},
		{
			ID: "f1", ProjectID: "p1", Date: today, Description: "Monthly Retainer",
			Payload:       billing.FixedFeePayload{Amount: decimal.NewFromInt(2500)},
			PaymentStatus: billing.PaymentPaid,
		},
		{
			ID: "t1", ProjectID: "p1", Date: today, Description: "Campaign optimisation",
			Payload: billing.TimePayload{Hours: decimal.NewFromInt(12)},
		},
		{
			ID: "t2", ProjectID: "p1", Date: today, Description: "Weekly stand up",
			Payload: billing.TimePayload{Hours: decimal.NewFromInt(1)},
		},
		{
			ID: "x1", ProjectID: "p1", Date: today, Description: "Ad creative licenses",
			Payload: billing.ExpensePayload{Cost: decimal.NewFromInt(300), MarkupPercent: billing.DecFloat(15)},
		},
	})
}

func loadOverdueReceivablesScenario(ctx context.Context, svc *billing.Service, now time.Time) error {
	daysAgo := func(n int) time.Time { return now.AddDate(0, 0, -n) }
	dateAgo := func(n int) billing.Date { return billing.DateOf(daysAgo(n)) }

	if err := saveDirectory(ctx, svc.Store, now,
		[]billing.Client{
			{ID: "c1", Name: "Acme Corp", Email: "billing@acme.example", DefaultRate: decimal.NewFromInt(150)},
			{ID: "c2", Name: "Blue Harbor", Email: "accounts@blueharbor.example", DefaultRate: decimal.NewFromInt(140)},
		},
		[]billing.Project{
			{ID: "p1", Name: "Website Rebuild", ClientID: "c1", HourlyRate: decimal.NewFromInt(150), StartDate: dateAgo(60)},
			{ID: "p2", Name: "Spring Catalogue", ClientID: "c2", HourlyRate: decimal.NewFromInt(140), StartDate: dateAgo(60)},
		},
	); err != nil {
		return err
	}

	if err := saveEntries(ctx, svc.Store, now, []billing.LedgerEntry{
		{ID: "l1", ProjectID: "p1", Date: dateAgo(45), Description: "Wireframes", Payload: billing.TimePayload{Hours: decimal.NewFromInt(10)}},
		{ID: "l2", ProjectID: "p1", Date: dateAgo(42), Description: "Content migration", Payload: billing.TimePayload{Hours: decimal.NewFromInt(6)}},
		{ID: "l3", ProjectID: "p2", Date: dateAgo(44), Description: "Catalogue layout", Payload: billing.TimePayload{Hours: decimal.NewFromInt(8)}},
		{
			ID: "l4", ProjectID: "p2", Date: dateAgo(43), Description: "Print proofs",
			Payload: billing.ExpensePayload{Cost: decimal.NewFromInt(400), MarkupPercent: billing.DecFloat(10)},
		},
		{ID: "l5", ProjectID: "p1", Date: dateAgo(6), Description: "Bug fixes", Payload: billing.TimePayload{Hours: decimal.NewFromInt(2)}},
	}); err != nil {
		return err
	}

	lastMonth := billing.Between(dateAgo(50), dateAgo(40))
	if _, err := svc.Issue(ctx, billing.Request{
		ClientID: "c1", Window: lastMonth, Terms: billing.TermsNet15, Now: daysAgo(40),
	}); err != nil {
		return err
	}
	paid, err := svc.Issue(ctx, billing.Request{
		ClientID: "c2", Window: lastMonth, Terms: billing.TermsNet30, Now: daysAgo(40),
	})
	if err != nil {
		return err
	}
	if _, err := svc.SetInvoiceStatus(ctx, paid.Invoice.ID, billing.InvoicePaid); err != nil {
		return err
	}
	_, err = svc.Issue(ctx, billing.Request{
		ClientID: "c1", Window: billing.Between(dateAgo(7), dateAgo(0)), Terms: billing.TermsNet30, Now: daysAgo(5),
	})
	return err
}

func loadOrphanedEntriesScenario(ctx context.Context, svc *billing.Service, now time.Time) error {
	today := billing.DateOf(now)

	if err := saveDirectory(ctx, svc.Store, now,
		[]billing.Client{{ID: "c1", Name: "StartupX", Email: "founders@startupx.example", DefaultRate: decimal.NewFromInt(125)}},
		[]billing.Project{
			{ID: "p1", Name: "Mobile App Design", ClientID: "c1", HourlyRate: decimal.NewFromInt(125)},
			{ID: "p2", Name: "Pitch Deck", ClientID: "c1", HourlyRate: decimal.NewFromInt(125)},
		},
	); err != nil {
		return err
	}

	if err := saveEntries(ctx, svc.Store, now, []billing.LedgerEntry{
		{ID: "l1", ProjectID: "p1", Date: today, Description: "Onboarding flow", Payload: billing.TimePayload{Hours: decimal.NewFromInt(5)}},
		{ID: "l2", ProjectID: "p2", Date: today, Description: "Investor deck", Payload: billing.TimePayload{Hours: decimal.NewFromInt(3)}},
		{
			ID: "l3", ProjectID: "p2", Date: today, Description: "Stock imagery",
			Payload: billing.ExpensePayload{Cost: decimal.NewFromInt(80)},
		},
	}); err != nil {
		return err
	}

	return svc.Store.DeleteProject(ctx, "p2")
}
