package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gastos/internal/core"
	"gastos/internal/sheets"
)

// Mirror records rows in memory. Useful for local runs and tests.
type Mirror struct {
	mu          sync.Mutex
	expenses    [][]any
	settlements [][]any
}

func New() *Mirror {
	return &Mirror{}
}

func (m *Mirror) AppendExpense(_ context.Context, e core.Expense) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expenses = append(m.expenses, sheets.ExpenseRow(e))
	return fmt.Sprintf("mem:expenses:%d", len(m.expenses)), nil
}

func (m *Mirror) AppendSettlement(_ context.Context, d core.Debt, at time.Time) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settlements = append(m.settlements, sheets.SettlementRow(d, at))
	return fmt.Sprintf("mem:settlements:%d", len(m.settlements)), nil
}

// Expenses returns a copy of the recorded expense rows.
func (m *Mirror) Expenses() [][]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]any(nil), m.expenses...)
}

func (m *Mirror) Settlements() [][]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]any(nil), m.settlements...)
}

var _ sheets.Mirror = (*Mirror)(nil)
