package billing_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/billing-engine/billing"
)

// =============================================================================
// ORDERING ENGINE
// =============================================================================

func TestWeight(t *testing.T) {
	tests := []struct {
		name  string
		entry billing.LedgerEntry
		want  int
	}{
		{"media spend", billing.LedgerEntry{Payload: billing.MediaSpendPayload{}}, billing.WeightMedia},
		{"fixed fee", billing.LedgerEntry{Payload: billing.FixedFeePayload{}}, billing.WeightRetainer},
		{"retainer in description", billing.LedgerEntry{Description: "Monthly Retainer", Payload: billing.TimePayload{}}, billing.WeightRetainer},
		{"meeting", billing.LedgerEntry{Description: "Client meeting", Payload: billing.TimePayload{}}, billing.WeightMeeting},
		{"stand up", billing.LedgerEntry{Description: "Daily Stand Up", Payload: billing.TimePayload{}}, billing.WeightMeeting},
		{"retainer beats meeting", billing.LedgerEntry{Description: "retainer meeting", Payload: billing.TimePayload{}}, billing.WeightRetainer},
		{"plain time", billing.LedgerEntry{Description: "Design", Payload: billing.TimePayload{}}, billing.WeightDefault},
		{"plain expense", billing.LedgerEntry{Description: "Fonts", Payload: billing.ExpensePayload{}}, billing.WeightDefault},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, billing.Weight(tt.entry))
		})
	}
}

func orderingFixture() []billing.LedgerEntry {
	meeting := timeEntry("t-meet", "p-brand", "2026-10-20", "1")
	meeting.Description = "Kickoff meeting"
	fee := billing.LedgerEntry{ID: "f1", ProjectID: "p-brand", Date: "2026-10-01", Payload: billing.FixedFeePayload{Amount: dec("500")}}
	media := billing.LedgerEntry{ID: "m1", ProjectID: "p-brand", Date: "2026-10-01", Payload: billing.MediaSpendPayload{GoogleSpend: decp("100")}}
	return []billing.LedgerEntry{
		meeting,
		timeEntry("t-b", "p-brand", "2026-10-05", "1"),
		fee,
		timeEntry("t-a", "p-brand", "2026-10-05", "1"),
		timeEntry("t-new", "p-brand", "2026-10-09", "1"),
		media,
	}
}

func TestOrder(t *testing.T) {
	// GIVEN: entries of every weight, two sharing weight and date
	entries := orderingFixture()

	// WHEN
	got := billing.Order(entries)

	// THEN: weight ascending, then newest first, then id
	assert.Equal(t, []billing.EntryID{"m1", "f1", "t-new", "t-a", "t-b", "t-meet"}, ids(got))
	// AND: the input is untouched
	assert.Equal(t, billing.EntryID("t-meet"), entries[0].ID)
}

func TestOrder_IdempotentAndInputOrderIndependent(t *testing.T) {
	entries := orderingFixture()
	want := ids(billing.Order(entries))

	// Idempotent
	assert.Equal(t, want, ids(billing.Order(billing.Order(entries))))

	// Same result from any permutation
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		shuffled := append([]billing.LedgerEntry(nil), entries...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		assert.Equal(t, want, ids(billing.Order(shuffled)))
	}
}

func TestGroupByProject(t *testing.T) {
	// GIVEN: entries on two projects and one on a deleted project
	entries := []billing.LedgerEntry{
		timeEntry("b1", "p-brand", "2026-10-01", "1"),
		timeEntry("x1", "p-deleted", "2026-10-02", "1"),
		timeEntry("a1", "p-ads", "2026-10-03", "2"),
		timeEntry("b2", "p-brand", "2026-10-04", "2"),
	}
	priced := billing.Price(entries, directory())

	// WHEN
	groups := billing.GroupByProject(priced)

	// THEN: first-appearance order, each group ordered, orphan bucket named
	require.Len(t, groups, 3)

	assert.Equal(t, "Brand Refresh", groups[0].Name)
	assert.Equal(t, []billing.EntryID{"b2", "b1"}, []billing.EntryID{groups[0].Entries[0].Entry.ID, groups[0].Entries[1].Entry.ID})
	assertDec(t, "450", groups[0].Subtotal)

	assert.Equal(t, billing.UnassignedName, groups[1].Name)
	assertDec(t, "0", groups[1].Subtotal)

	assert.Equal(t, "Q3 Campaign", groups[2].Name)
	assertDec(t, "350", groups[2].Subtotal)
}
