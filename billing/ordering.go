/*
ordering.go - Presentation order of invoice lines

PURPOSE:
  Produces a deterministic order for a filtered entry set, used both for the
  flat preview table and for grouped-by-project displays.

WEIGHTS (lower sorts first):
  MEDIA_SPEND                                   10
  FIXED_FEE, or description contains "retainer" 20
  description contains "stand up" or "meeting"  90
  everything else                               50

  Ties break on date, most recent first, then on entry id so that the order
  is total: sorting an already sorted slice leaves it unchanged.

GROUPING:
  GroupByProject partitions entries by project in order of first
  appearance, orders each group, and sums resolved amounts per group.
  Entries whose project is unknown land in an "Unassigned" group.
*/
package billing

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	WeightMedia    = 10
	WeightRetainer = 20
	WeightDefault  = 50
	WeightMeeting  = 90
)

// Weight returns the sort weight of an entry.
func Weight(e LedgerEntry) int {
	desc := strings.ToLower(e.Description)
	switch {
	case e.Type() == EntryMediaSpend:
		return WeightMedia
	case e.Type() == EntryFixedFee || strings.Contains(desc, "retainer"):
		return WeightRetainer
	case strings.Contains(desc, "stand up") || strings.Contains(desc, "meeting"):
		return WeightMeeting
	}
	return WeightDefault
}

// Less is the ordering relation: ascending weight, then descending date,
// then ascending id.
func Less(a, b LedgerEntry) bool {
	wa, wb := Weight(a), Weight(b)
	if wa != wb {
		return wa < wb
	}
	if a.Date != b.Date {
		return a.Date > b.Date
	}
	return a.ID < b.ID
}

// Order returns a sorted copy of entries. The input is not modified.
func Order(entries []LedgerEntry) []LedgerEntry {
	out := make([]LedgerEntry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool { return Less(out[i], out[j]) })
	return out
}

// =============================================================================
// PRICED ENTRIES
// =============================================================================

// PricedEntry pairs an entry with its project (nil when unknown) and its
// resolution.
type PricedEntry struct {
	Entry      LedgerEntry
	Project    *Project
	Resolution Resolution
}

// Price resolves every entry against the directory, keeping input order.
func Price(entries []LedgerEntry, dir *Directory) []PricedEntry {
	out := make([]PricedEntry, len(entries))
	for i, e := range entries {
		project := dir.Project(e.ProjectID)
		out[i] = PricedEntry{Entry: e, Project: project, Resolution: Resolve(e, project)}
	}
	return out
}

// OrderPriced sorts priced entries with the same relation as Order.
func OrderPriced(priced []PricedEntry) []PricedEntry {
	out := make([]PricedEntry, len(priced))
	copy(out, priced)
	sort.SliceStable(out, func(i, j int) bool { return Less(out[i].Entry, out[j].Entry) })
	return out
}

// =============================================================================
// GROUPING
// =============================================================================

// ProjectGroup is one project's slice of an invoice.
type ProjectGroup struct {
	ProjectID ProjectID
	Name      string
	Entries   []PricedEntry
	Subtotal  decimal.Decimal
}

// GroupByProject partitions priced entries by project, in order of first
// appearance, and orders each group.
func GroupByProject(priced []PricedEntry) []ProjectGroup {
	index := make(map[ProjectID]int)
	var groups []ProjectGroup
	for _, pe := range priced {
		i, ok := index[pe.Entry.ProjectID]
		if !ok {
			name := UnassignedName
			if pe.Project != nil {
				name = pe.Project.Name
			}
			i = len(groups)
			index[pe.Entry.ProjectID] = i
			groups = append(groups, ProjectGroup{ProjectID: pe.Entry.ProjectID, Name: name, Subtotal: decimal.Zero})
		}
		groups[i].Entries = append(groups[i].Entries, pe)
		groups[i].Subtotal = groups[i].Subtotal.Add(pe.Resolution.Amount)
	}
	for i := range groups {
		groups[i].Entries = OrderPriced(groups[i].Entries)
	}
	return groups
}
