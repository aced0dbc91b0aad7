package billing_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/warp/billing-engine/billing"
)

// =============================================================================
// FIXTURES - Acme Corp with one project, Global Tech with one project
// =============================================================================

var (
	acme = billing.Client{ID: "c-acme", Name: "Acme Corp", Status: billing.ClientActive}
	glob = billing.Client{ID: "c-glob", Name: "Global Tech", Status: billing.ClientActive}

	brand = billing.Project{ID: "p-brand", Name: "Brand Refresh", ClientID: "c-acme", HourlyRate: dec("150"), Status: billing.ProjectActive}
	ads   = billing.Project{ID: "p-ads", Name: "Q3 Campaign", ClientID: "c-glob", HourlyRate: dec("175"), Status: billing.ProjectActive}
)

var october = time.Date(2026, time.October, 15, 9, 30, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decp(s string) *decimal.Decimal { return billing.Dec(dec(s)) }

func directory() *billing.Directory {
	return billing.NewDirectory([]billing.Client{acme, glob}, []billing.Project{brand, ads})
}

func timeEntry(id, project, date string, hours string) billing.LedgerEntry {
	return billing.LedgerEntry{
		ID:          billing.EntryID(id),
		ProjectID:   billing.ProjectID(project),
		Date:        billing.Date(date),
		Description: "Design work",
		Payload:     billing.TimePayload{Hours: dec(hours)},
	}
}

func expenseEntry(id, project, date, cost, markup string) billing.LedgerEntry {
	p := billing.ExpensePayload{Cost: dec(cost)}
	if markup != "" {
		p.MarkupPercent = decp(markup)
	}
	return billing.LedgerEntry{
		ID:          billing.EntryID(id),
		ProjectID:   billing.ProjectID(project),
		Date:        billing.Date(date),
		Description: "Expense",
		Payload:     p,
	}
}

func assertDec(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), append([]any{"want %s, got %s", want, got.String()}, msgAndArgs...)...)
}

func ids(entries []billing.LedgerEntry) []billing.EntryID {
	out := make([]billing.EntryID, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}
