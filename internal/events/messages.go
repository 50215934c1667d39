package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"gastos/internal/core"
)

type Type string

const (
	ExpenseAdded Type = "expense.added"
	DebtSettled  Type = "debt.settled"
)

var ErrMalformedEvent = errors.New("malformed event")

// Event announces a ledger mutation that has already been applied.
// Exactly one of Expense or Debt is set, matching Type.
type Event struct {
	ID         string        `json:"id"`
	Type       Type          `json:"type"`
	OccurredAt time.Time     `json:"occurredAt"`
	Expense    *core.Expense `json:"expense,omitempty"`
	Debt       *core.Debt    `json:"debt,omitempty"`
}

func NewExpenseAddedEvent(e core.Expense) *Event {
	e = e.Clone()
	return &Event{
		ID:         uuid.NewString(),
		Type:       ExpenseAdded,
		OccurredAt: time.Now().UTC(),
		Expense:    &e,
	}
}

func NewDebtSettledEvent(d core.Debt) *Event {
	return &Event{
		ID:         uuid.NewString(),
		Type:       DebtSettled,
		OccurredAt: time.Now().UTC(),
		Debt:       &d,
	}
}

// ToJSON converts the event to JSON bytes
func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// EventFromJSON decodes and checks an event body.
func EventFromJSON(data []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	if err := ev.validate(); err != nil {
		return nil, err
	}
	return &ev, nil
}

func (e *Event) validate() error {
	if e.ID == "" {
		return fmt.Errorf("%w: missing id", ErrMalformedEvent)
	}
	switch e.Type {
	case ExpenseAdded:
		if e.Expense == nil {
			return fmt.Errorf("%w: %s without expense", ErrMalformedEvent, e.Type)
		}
	case DebtSettled:
		if e.Debt == nil {
			return fmt.Errorf("%w: %s without debt", ErrMalformedEvent, e.Type)
		}
	default:
		return fmt.Errorf("%w: unknown type %q", ErrMalformedEvent, e.Type)
	}
	return nil
}
