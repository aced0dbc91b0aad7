/*
rate.go - Rate Resolver

PURPOSE:
  Determines the monetary amount and profit attributable to one ledger
  entry, given its parent project. Pure; no side effects.

RESOLUTION RULES:
  TIME:        amount = hours × (entry rate, else project rate) × multiplier
               profit is not tracked for labor
  EXPENSE:     amount = cost × (1 + markup%/100), profit = amount − cost
  FIXED_FEE:   amount = declared amount, profit = amount
  MEDIA_SPEND: spend = google + meta
               management 12.5% + operations 4.0% + performance 3.0%
               amount = sum of the three fees (19.5% of spend), profit = amount

  Negative hours, costs or spend are resolved as given. Rejecting them is
  ValidateEntry's job, before resolution.

SEE ALSO:
  - validate.go: caller-side validation
  - lineitem.go: turns a resolution into an invoice line
*/
package billing

import (
	"math"

	"github.com/shopspring/decimal"
)

// Media-spend fee tiers, as fractions of spend.
var (
	MediaManagementRate  = decimal.RequireFromString("0.125")
	MediaOperationsRate  = decimal.RequireFromString("0.040")
	MediaPerformanceRate = decimal.RequireFromString("0.030")
)

var hundred = decimal.NewFromInt(100)

// MediaFees are the three fee tiers levied on ad spend.
type MediaFees struct {
	Spend       decimal.Decimal
	Management  decimal.Decimal
	Operations  decimal.Decimal
	Performance decimal.Decimal
}

// Total is the sum of the three tiers.
func (f MediaFees) Total() decimal.Decimal {
	return f.Management.Add(f.Operations).Add(f.Performance)
}

// ComputeMediaFees applies the fee tiers to spend.
func ComputeMediaFees(spend decimal.Decimal) MediaFees {
	return MediaFees{
		Spend:       spend,
		Management:  spend.Mul(MediaManagementRate),
		Operations:  spend.Mul(MediaOperationsRate),
		Performance: spend.Mul(MediaPerformanceRate),
	}
}

// Resolution is the priced outcome of one ledger entry.
type Resolution struct {
	Amount decimal.Decimal
	// Profit is invalid (not tracked) for TIME entries.
	Profit decimal.NullDecimal
	// Fees is set for MEDIA_SPEND entries only.
	Fees  *MediaFees
	Flags []LineFlag
}

// Resolve prices a ledger entry. project may be nil when the entry's
// project is unknown; a TIME entry then falls back to its own rate, or to
// zero.
func Resolve(entry LedgerEntry, project *Project) Resolution {
	switch p := entry.Payload.(type) {
	case TimePayload:
		return resolveTime(p, project)

	case ExpensePayload:
		markup := valueOr(p.MarkupPercent, decimal.Zero)
		amount := p.Cost.Mul(decimal.NewFromInt(1).Add(markup.Div(hundred)))
		return Resolution{
			Amount: amount,
			Profit: decimal.NewNullDecimal(amount.Sub(p.Cost)),
		}

	case FixedFeePayload:
		return Resolution{
			Amount: p.Amount,
			Profit: decimal.NewNullDecimal(p.Amount),
		}

	case MediaSpendPayload:
		fees := ComputeMediaFees(p.Spend())
		amount := fees.Total()
		return Resolution{
			Amount: amount,
			Profit: decimal.NewNullDecimal(amount),
			Fees:   &fees,
		}
	}

	return Resolution{Amount: decimal.Zero, Flags: []LineFlag{FlagMissingPayload}}
}

func resolveTime(p TimePayload, project *Project) Resolution {
	var flags []LineFlag
	rate, ok := effectiveRate(p, project)
	if !ok {
		flags = append(flags, FlagUnassignedProject)
	}
	multiplier := valueOr(p.RateMultiplier, decimal.NewFromInt(1))
	return Resolution{
		Amount: p.Hours.Mul(rate).Mul(multiplier),
		Flags:  flags,
	}
}

// effectiveRate returns the entry's rate override, else the project's
// hourly rate. ok is false when neither is available.
func effectiveRate(p TimePayload, project *Project) (decimal.Decimal, bool) {
	if p.Rate != nil {
		return *p.Rate, true
	}
	if project != nil {
		return project.HourlyRate, true
	}
	return decimal.Zero, false
}

// AnnualMediaSpend returns the running annual ad spend for a project: the
// spend of every MEDIA_SPEND entry of the project dated in year, skipping
// excludeID (the entry being edited). Display only; never used for pricing.
func AnnualMediaSpend(entries []LedgerEntry, projectID ProjectID, year int, excludeID EntryID) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		if e.ID == excludeID || e.ProjectID != projectID || e.Date.Year() != year {
			continue
		}
		if p, ok := e.Payload.(MediaSpendPayload); ok {
			total = total.Add(p.Spend())
		}
	}
	return total
}

// DecimalFromFloat converts a boundary float into a decimal. NaN and
// infinities become zero with ok=false so callers can flag the value.
func DecimalFromFloat(f float64) (d decimal.Decimal, ok bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(f), true
}
