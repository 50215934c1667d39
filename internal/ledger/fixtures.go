package ledger

import (
	"time"

	"gastos/internal/core"
)

// SampleExpenses returns a small demo ledger dated relative to today.
// It returns nil when the roster lacks any of the people it references.
func SampleExpenses(roster core.Roster, today time.Time) []core.Expense {
	day := func(offset int) core.Date { return core.DateOf(today.AddDate(0, 0, -offset)) }
	samples := []core.Expense{
		{
			ID:                "e1",
			Description:       "Cena Restaurante",
			Amount:            150,
			PaidBy:            "Juan",
			Participants:      []core.Participant{"Juan", "María", "Pedro"},
			Date:              day(0),
			ReceiptAttachment: "uri_restaurante.png",
		},
		{
			ID:                "e2",
			Description:       "Supermercado",
			Amount:            280,
			PaidBy:            "María",
			Participants:      []core.Participant{"Juan", "María"},
			Date:              day(1),
			ReceiptAttachment: "uri_supermercado.png",
		},
		{
			ID:                "e3",
			Description:       "Uber",
			Amount:            45,
			PaidBy:            "Pedro",
			Participants:      []core.Participant{"Juan", "María", "Pedro"},
			Date:              day(2),
			ReceiptAttachment: "uri_uber.png",
		},
		{
			ID:                "e4",
			Description:       "Café",
			Amount:            25,
			PaidBy:            "Juan",
			Participants:      []core.Participant{"Juan", "María"},
			Date:              day(3),
			ReceiptAttachment: "uri_cafe.png",
		},
	}
	for _, e := range samples {
		if err := e.Validate(roster); err != nil {
			return nil
		}
	}
	return samples
}
