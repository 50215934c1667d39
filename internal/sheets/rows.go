package sheets

import (
	"strings"
	"time"

	"gastos/internal/core"
	"gastos/internal/report"
)

// ExpenseHeader names the columns written by ExpenseRow.
var ExpenseHeader = []any{"Fecha", "ID", "Descripción", "Categoría", "Monto", "Pagado por", "Participantes", "Recibo"}

// SettlementHeader names the columns written by SettlementRow.
var SettlementHeader = []any{"Fecha", "De", "Para", "Monto"}

func ExpenseRow(e core.Expense) []any {
	names := make([]string, len(e.Participants))
	for i, p := range e.Participants {
		names[i] = string(p)
	}
	return []any{
		e.Date.String(),
		e.ID,
		e.Description,
		report.Classify(e.Description).Label(),
		core.FormatAmount(e.Amount),
		string(e.PaidBy),
		strings.Join(names, ", "),
		e.ReceiptAttachment,
	}
}

func SettlementRow(d core.Debt, settledAt time.Time) []any {
	return []any{
		core.DateOf(settledAt).String(),
		string(d.From),
		string(d.To),
		core.FormatAmount(d.Amount),
	}
}
