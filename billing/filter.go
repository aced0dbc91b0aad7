package billing

import "strings"

// =============================================================================
// DATE WINDOW - Optional restriction on entry dates
// =============================================================================

type WindowKind string

const (
	WindowAll   WindowKind = "ALL"
	WindowMonth WindowKind = "MONTH"
	WindowRange WindowKind = "RANGE"
)

// DateWindow restricts entries by date. The zero value matches everything.
type DateWindow struct {
	Kind  WindowKind
	Month string // YYYY-MM, for WindowMonth
	Start Date   // inclusive, for WindowRange
	End   Date   // inclusive, for WindowRange
}

// AllTime matches every date.
func AllTime() DateWindow { return DateWindow{Kind: WindowAll} }

// InMonth matches dates starting with month ("YYYY-MM").
func InMonth(month string) DateWindow { return DateWindow{Kind: WindowMonth, Month: month} }

// Between matches dates in [start, end].
func Between(start, end Date) DateWindow {
	return DateWindow{Kind: WindowRange, Start: start, End: end}
}

// Contains reports whether d falls in the window. A month window without a
// month, or a range missing either bound, does not filter.
func (w DateWindow) Contains(d Date) bool {
	switch w.Kind {
	case WindowMonth:
		if w.Month == "" {
			return true
		}
		return strings.HasPrefix(string(d), w.Month)
	case WindowRange:
		if w.Start == "" || w.End == "" {
			return true
		}
		return d >= w.Start && d <= w.End
	}
	return true
}

// =============================================================================
// LEDGER FILTER
// =============================================================================

// AllProjects selects every project of the client.
const AllProjects ProjectID = "all"

// Filter returns the entries billable to clientID, optionally narrowed to
// one project and a date window. Entries whose project is not in the
// directory are dropped. Input order is preserved; ordering for display is
// Order's job.
func Filter(entries []LedgerEntry, dir *Directory, clientID ClientID, projectID ProjectID, window DateWindow) []LedgerEntry {
	allProjects := projectID == "" || strings.EqualFold(string(projectID), string(AllProjects))

	out := make([]LedgerEntry, 0, len(entries))
	for _, e := range entries {
		project := dir.Project(e.ProjectID)
		if project == nil || project.ClientID != clientID {
			continue
		}
		if !allProjects && e.ProjectID != projectID {
			continue
		}
		if !window.Contains(e.Date) {
			continue
		}
		out = append(out, e)
	}
	return out
}
