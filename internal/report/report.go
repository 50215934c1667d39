// Package report aggregates expenses into the summary consumed by the
// printable expense report.
package report

import "gastos/internal/core"

// DefaultPeriodDays is the reporting period used for the average.
const DefaultPeriodDays = 15

type Report struct {
	TotalSpent       float64              `json:"totalSpent"`
	AveragePerPeriod float64              `json:"averagePerPeriod"`
	PeriodDays       int                  `json:"periodDays"`
	AmountByCategory map[Category]float64 `json:"amountByCategory"`
	Expenses         []core.Expense       `json:"expenses"`
}

// CategoryTotal is one row of the category breakdown.
type CategoryTotal struct {
	Category Category `json:"category"`
	Label    string   `json:"label"`
	Color    string   `json:"color"`
	Amount   float64  `json:"amount"`
	Share    float64  `json:"share"` // percent of TotalSpent
}

// Build summarizes expenses over a period of periodDays days. The average is
// the total divided by the period length, or zero with no expenses.
func Build(expenses []core.Expense, periodDays int) Report {
	if periodDays <= 0 {
		periodDays = DefaultPeriodDays
	}
	r := Report{
		PeriodDays:       periodDays,
		AmountByCategory: make(map[Category]float64),
		Expenses:         expenses,
	}
	if r.Expenses == nil {
		r.Expenses = []core.Expense{}
	}
	for _, e := range expenses {
		r.TotalSpent += e.Amount
		r.AmountByCategory[Classify(e.Description)] += e.Amount
	}
	if len(expenses) > 0 {
		r.AveragePerPeriod = r.TotalSpent / float64(periodDays)
	}
	return r
}

// CategoryTotals returns the non-empty categories in display order.
func (r Report) CategoryTotals() []CategoryTotal {
	var out []CategoryTotal
	for _, c := range Categories {
		amount, ok := r.AmountByCategory[c]
		if !ok {
			continue
		}
		var share float64
		if r.TotalSpent > 0 {
			share = core.Round2(amount / r.TotalSpent * 100)
		}
		out = append(out, CategoryTotal{
			Category: c,
			Label:    c.Label(),
			Color:    c.Color(),
			Amount:   core.Round2(amount),
			Share:    share,
		})
	}
	return out
}
