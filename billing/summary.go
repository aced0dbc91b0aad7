package billing

import "github.com/shopspring/decimal"

// ProjectRevenue is one bar of the revenue-by-project chart.
type ProjectRevenue struct {
	ProjectID ProjectID
	Name      string
	Revenue   decimal.Decimal
}

// Summary is the dashboard rollup across the whole ledger.
type Summary struct {
	TotalRevenue     decimal.Decimal
	TotalHours       decimal.Decimal
	ActiveProjects   int
	RevenueByProject []ProjectRevenue
}

// Summarize prices every entry and rolls revenue up per project, in order
// of first appearance. Entries with an unknown project count toward hours
// and total revenue under the Unassigned bucket.
func Summarize(entries []LedgerEntry, projects []Project) Summary {
	dir := NewDirectory(nil, projects)
	s := Summary{TotalRevenue: decimal.Zero, TotalHours: decimal.Zero}

	for _, p := range projects {
		if p.Status == "" || p.Status == ProjectActive {
			s.ActiveProjects++
		}
	}

	index := make(map[ProjectID]int)
	for _, pe := range Price(entries, dir) {
		if p, ok := pe.Entry.Payload.(TimePayload); ok {
			s.TotalHours = s.TotalHours.Add(p.Hours)
		}
		amount := pe.Resolution.Amount
		s.TotalRevenue = s.TotalRevenue.Add(amount)

		i, ok := index[pe.Entry.ProjectID]
		if !ok {
			i = len(s.RevenueByProject)
			index[pe.Entry.ProjectID] = i
			s.RevenueByProject = append(s.RevenueByProject, ProjectRevenue{
				ProjectID: pe.Entry.ProjectID,
				Name:      dir.ProjectName(pe.Entry.ProjectID),
				Revenue:   decimal.Zero,
			})
		}
		s.RevenueByProject[i].Revenue = s.RevenueByProject[i].Revenue.Add(amount)
	}
	return s
}
