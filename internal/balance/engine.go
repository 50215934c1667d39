// Package balance derives who owes whom from the expense list.
//
// The computation is pure: it never touches storage and never fails. The
// same expenses and settlements always produce the same debts in the same
// order, with ties broken by roster order.
package balance

import "gastos/internal/core"

// Threshold is the smallest balance treated as non-zero. Remainders below
// it are rounding noise and are never turned into debts.
const Threshold = 0.01

type Engine struct {
	roster core.Roster
}

func New(roster core.Roster) *Engine {
	return &Engine{roster: roster}
}

// Compute returns the total spent and the simplified debts between roster
// members, followed by the settled debts as historical records.
//
// Settled debts do not cancel live ones: a settled Juan->María 40 leaves
// the live Juan->María 40 in place until the expenses themselves change.
func (e *Engine) Compute(expenses []core.Expense, settled []core.Debt) core.BalanceState {
	net, total := e.accumulate(expenses)

	type entry struct {
		who    core.Participant
		amount float64
	}
	var creditors, debtors []entry
	for _, p := range e.roster {
		n := core.Round2(net[p])
		switch {
		case n > 0:
			creditors = append(creditors, entry{p, n})
		case n < 0:
			debtors = append(debtors, entry{p, -n})
		}
	}

	debts := make([]core.Debt, 0, len(creditors)+len(debtors)+len(settled))
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		transfer := min(debtors[i].amount, creditors[j].amount)
		if transfer > Threshold {
			debts = append(debts, core.Debt{
				From:   debtors[i].who,
				To:     creditors[j].who,
				Amount: core.Round2(transfer),
			})
		}
		debtors[i].amount -= transfer
		creditors[j].amount -= transfer
		if debtors[i].amount < Threshold {
			i++
		}
		if creditors[j].amount < Threshold {
			j++
		}
	}

	for _, d := range settled {
		d.IsSettled = true
		debts = append(debts, d)
	}

	return core.BalanceState{TotalSpent: total, Debts: debts}
}

// Nets returns every roster member's rounded net contribution in roster order.
func (e *Engine) Nets(expenses []core.Expense) []core.NetPosition {
	net, _ := e.accumulate(expenses)
	out := make([]core.NetPosition, len(e.roster))
	for i, p := range e.roster {
		out[i] = core.NetPosition{Participant: p, Net: core.Round2(net[p])}
	}
	return out
}

func (e *Engine) accumulate(expenses []core.Expense) (map[core.Participant]float64, float64) {
	net := make(map[core.Participant]float64, len(e.roster))
	for _, p := range e.roster {
		net[p] = 0
	}
	var total float64
	for _, exp := range expenses {
		total += exp.Amount
		net[exp.PaidBy] += exp.Amount
		if n := len(exp.Participants); n > 0 {
			share := exp.Amount / float64(n)
			for _, p := range exp.Participants {
				net[p] -= share
			}
		}
	}
	return net, total
}
