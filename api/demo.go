/*
demo.go - Demo data loader

PURPOSE:
  Seeds the books with a small, known set of clients, projects and ledger
  entries so the UI has something to show. Loading always resets first.

DATA:
  Clients:  Acme Corp, Global Tech, StartupX
  Projects: Brand Refresh (150/h), Q3 Campaign (175/h), Mobile App Design (125/h)
  Entries:  two TIME entries and one marked-up EXPENSE, dated this month

SEE ALSO:
  - scenarios.go: the other demo scenarios; this one is "agency"
  - cmd/server/main.go: -demo flag seeds at startup
*/
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/billing-engine/billing"
)

// DemoScenario is the scenario LoadDemo and SeedDemo load.
const DemoScenario = "agency"

// Resetter is implemented by stores that can wipe all their data.
type Resetter interface {
	Reset(ctx context.Context) error
}

// LoadDemo resets the books and loads the demo data.
func (h *Handler) LoadDemo(w http.ResponseWriter, r *http.Request) {
	if err := SeedDemo(r.Context(), h.Service, h.now()); err != nil {
		h.fail(w, "Failed to load demo data", err)
		return
	}
	h.setCurrentScenario(DemoScenario)
	h.Log.Info("demo data loaded")
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded"})
}

// SeedDemo wipes the books and writes the demo data, dated relative to now.
func SeedDemo(ctx context.Context, svc *billing.Service, now time.Time) error {
	return LoadScenario(ctx, svc, DemoScenario, now)
}

func loadAgencyScenario(ctx context.Context, svc *billing.Service, now time.Time) error {
	today := billing.DateOf(now)

	if err := saveDirectory(ctx, svc.Store, now,
		[]billing.Client{
			{ID: "c1", Name: "Acme Corp", ContactPerson: "Jane Doe", Email: "billing@acme.example", DefaultRate: decimal.NewFromInt(150)},
			{ID: "c2", Name: "Global Tech", Email: "ap@globaltech.example", DefaultRate: decimal.NewFromInt(175)},
			{ID: "c3", Name: "StartupX", Email: "founders@startupx.example", DefaultRate: decimal.NewFromInt(125)},
		},
		[]billing.Project{
			{ID: "p1", Name: "Brand Refresh", ClientID: "c1", HourlyRate: decimal.NewFromInt(150)},
			{ID: "p2", Name: "Q3 Campaign", ClientID: "c2", HourlyRate: decimal.NewFromInt(175)},
			{ID: "p3", Name: "Mobile App Design", ClientID: "c3", HourlyRate: decimal.NewFromInt(125)},
		},
	); err != nil {
		return err
	}

	return saveEntries(ctx, svc.Store, now, []billing.LedgerEntry{
		{
			ID: "l1", ProjectID: "p1", Date: today, Description: "Initial Moodboarding",
			Payload: billing.TimePayload{Hours: decimal.NewFromInt(4)},
		},
		{
			ID: "l2", ProjectID: "p1", Date: today, Description: "Font Licenses",
			Payload: billing.ExpensePayload{Cost: decimal.NewFromInt(200), MarkupPercent: billing.DecFloat(20)},
		},
		{
			ID: "l3", ProjectID: "p2", Date: today, Description: "Social Media Assets",
			Payload: billing.TimePayload{Hours: decimal.NewFromInt(6)},
		},
	})
}

// saveDirectory stores clients and projects as active, created at now.
// Projects start on the first of now's month.
func saveDirectory(ctx context.Context, store billing.Store, now time.Time, clients []billing.Client, projects []billing.Project) error {
	monthStart := billing.DateOf(time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC))
	for _, c := range clients {
		c.Status, c.CreatedAt = billing.ClientActive, now
		if err := store.SaveClient(ctx, c); err != nil {
			return err
		}
	}
	for _, p := range projects {
		if p.StartDate == "" {
			p.StartDate = monthStart
		}
		p.Status, p.CreatedAt = billing.ProjectActive, now
		if err := store.SaveProject(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// saveEntries stores entries in order. Entries without a payment status
// are PENDING.
func saveEntries(ctx context.Context, store billing.Store, now time.Time, entries []billing.LedgerEntry) error {
	for i, e := range entries {
		if e.PaymentStatus == "" {
			e.PaymentStatus = billing.PaymentPending
		}
		// Distinct creation times keep newest-first listings stable.
		e.CreatedAt = now.Add(time.Duration(i) * time.Second)
		if err := store.SaveEntry(ctx, e); err != nil {
			return err
		}
	}
	return nil
}
