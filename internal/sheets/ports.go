// Package sheets defines the spreadsheet mirror of the ledger.
package sheets

import (
	"context"
	"time"

	"gastos/internal/core"
)

// Mirror appends ledger activity to an external spreadsheet. Implementations
// return a reference to the written row range.
type Mirror interface {
	AppendExpense(ctx context.Context, e core.Expense) (rowRef string, err error)
	AppendSettlement(ctx context.Context, d core.Debt, settledAt time.Time) (rowRef string, err error)
}
