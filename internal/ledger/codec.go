package ledger

import (
	"encoding/json"
	"fmt"

	"gastos/internal/core"
)

// Store keys. The names follow the mobile client's storage keys; the
// record layout does not.
const (
	keyPrefix   = "@SharedExpensesApp:expenses"
	KeyExpenses = keyPrefix + "_expenses"
	KeySettled  = keyPrefix + "_settled"
)

func encodeExpenses(expenses []core.Expense) ([]byte, error) {
	if expenses == nil {
		expenses = []core.Expense{}
	}
	return json.Marshal(expenses)
}

func encodeDebts(debts []core.Debt) ([]byte, error) {
	if debts == nil {
		debts = []core.Debt{}
	}
	return json.Marshal(debts)
}

func decodeExpenses(b []byte) ([]core.Expense, error) {
	var out []core.Expense
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode expenses: %w", err)
	}
	return out, nil
}

func decodeDebts(b []byte) ([]core.Debt, error) {
	var out []core.Debt
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode settled debts: %w", err)
	}
	for i := range out {
		out[i].Amount = core.Round2(out[i].Amount)
		out[i].IsSettled = true
	}
	return out, nil
}
