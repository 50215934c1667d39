// Package ledger owns the authoritative expense and settlement lists.
//
// Every mutation is applied in memory first and then written to the store.
// Store failures are logged and counted but never undo or fail a mutation:
// the in-memory ledger stays authoritative for the running session.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"gastos/internal/balance"
	"gastos/internal/cache"
	"gastos/internal/core"
	"gastos/internal/metrics"
	"gastos/internal/store"
)

// Publisher announces applied mutations to downstream consumers.
type Publisher interface {
	PublishExpenseAdded(ctx context.Context, e core.Expense) error
	PublishDebtSettled(ctx context.Context, d core.Debt) error
}

// NewExpense holds the user-entered fields of an expense.
type NewExpense struct {
	Description       string
	Amount            float64
	PaidBy            core.Participant
	Participants      []core.Participant
	ReceiptAttachment string
}

type Service struct {
	mu       sync.Mutex
	roster   core.Roster
	engine   *balance.Engine
	store    store.Store
	expenses []core.Expense
	settled  []core.Debt
	version  uint64

	publisher Publisher
	metrics   *metrics.Ledger
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string
	seed      bool
	balances  *cache.LRU[uint64, core.BalanceState]
}

type Option func(*Service)

func WithPublisher(p Publisher) Option { return func(s *Service) { s.publisher = p } }

func WithMetrics(m *metrics.Ledger) Option { return func(s *Service) { s.metrics = m } }

func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.logger = l } }

// WithClock overrides the source of "today" for new expenses.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func WithIDGenerator(f func() string) Option { return func(s *Service) { s.newID = f } }

// WithSampleData seeds the demo expenses when the store holds no ledger yet.
func WithSampleData(enabled bool) Option { return func(s *Service) { s.seed = enabled } }

// WithBalanceCacheSize bounds how many ledger versions keep a memoized balance.
func WithBalanceCacheSize(n int) Option {
	return func(s *Service) { s.balances = cache.NewLRU[uint64, core.BalanceState](n, 0) }
}

func New(roster core.Roster, st store.Store, opts ...Option) *Service {
	s := &Service{
		roster: roster,
		engine: balance.New(roster),
		store:  st,
		logger: slog.Default(),
		now:    time.Now,
		newID:  newExpenseID,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.balances == nil {
		s.balances = cache.NewLRU[uint64, core.BalanceState](16, 0)
	}
	s.logger = s.logger.With("component", "ledger")
	return s
}

func newExpenseID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}

// Load reads both ledger keys from the store. A missing expense key starts
// an empty ledger (or the sample one). On read or decode failure the same
// fallback is applied and the *core.PersistenceError is returned so the
// caller can report it; the service remains usable either way.
func (s *Service) Load(ctx context.Context) error {
	var (
		expRaw, setRaw     []byte
		expFound, setFound bool
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, ok, err := s.store.Load(gctx, KeyExpenses)
		if err != nil {
			return &core.PersistenceError{Op: "load", Key: KeyExpenses, Err: err}
		}
		expRaw, expFound = v, ok
		return nil
	})
	g.Go(func() error {
		v, ok, err := s.store.Load(gctx, KeySettled)
		if err != nil {
			return &core.PersistenceError{Op: "load", Key: KeySettled, Err: err}
		}
		setRaw, setFound = v, ok
		return nil
	})
	err := g.Wait()

	var expenses []core.Expense
	var settled []core.Debt
	if err == nil && expFound {
		if expenses, err = decodeExpenses(expRaw); err != nil {
			err = &core.PersistenceError{Op: "decode", Key: KeyExpenses, Err: err}
		}
	}
	if err == nil && setFound {
		if settled, err = decodeDebts(setRaw); err != nil {
			err = &core.PersistenceError{Op: "decode", Key: KeySettled, Err: err}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to load ledger, starting from defaults", "error", err)
		s.countPersistenceFailure(err)
		s.expenses, s.settled = s.initialExpenses(), nil
		s.bump()
		return err
	}

	if !expFound {
		expenses = s.initialExpenses()
	}
	s.expenses, s.settled = expenses, settled
	s.bump()

	s.logger.InfoContext(ctx, "Ledger loaded",
		"expenses", len(s.expenses),
		"settled_debts", len(s.settled),
		"seeded", !expFound && len(expenses) > 0)
	return nil
}

func (s *Service) initialExpenses() []core.Expense {
	if !s.seed {
		return nil
	}
	return SampleExpenses(s.roster, s.now())
}

// AddExpense validates the input, records the expense at the head of the
// list and persists the ledger. A *core.ValidationError leaves the ledger
// untouched.
func (s *Service) AddExpense(ctx context.Context, in NewExpense) (core.Expense, error) {
	e := core.Expense{
		Description:       in.Description,
		Amount:            core.Round2(in.Amount),
		PaidBy:            in.PaidBy,
		Participants:      in.Participants,
		ReceiptAttachment: in.ReceiptAttachment,
	}
	if err := e.Validate(s.roster); err != nil {
		s.countRejection("add_expense")
		return core.Expense{}, err
	}

	s.mu.Lock()
	e.ID = s.newID()
	e.Date = core.DateOf(s.now())
	s.expenses = append([]core.Expense{e}, s.expenses...)
	s.bump()
	s.persistLocked(ctx)
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.ExpensesAdded.Inc()
	}
	s.logger.InfoContext(ctx, "Expense added",
		"expense_id", e.ID,
		"amount", e.Amount,
		"paid_by", e.PaidBy,
		"participants", len(e.Participants))

	s.publish(ctx, "expense.added", func(p Publisher) error { return p.PublishExpenseAdded(ctx, e) })
	return e.Clone(), nil
}

// SettleDebt records debt as settled. Recording the same (from, to, amount)
// twice is a no-op reported as recorded=false. The debt is not checked
// against the current balance.
func (s *Service) SettleDebt(ctx context.Context, debt core.Debt) (recorded bool, err error) {
	debt.Amount = core.Round2(debt.Amount)
	debt.IsSettled = true
	if err := debt.Validate(s.roster); err != nil {
		s.countRejection("settle_debt")
		return false, err
	}

	s.mu.Lock()
	for _, d := range s.settled {
		if d.Matches(debt) {
			s.mu.Unlock()
			if s.metrics != nil {
				s.metrics.DuplicateSettlements.Inc()
			}
			s.logger.DebugContext(ctx, "Debt already settled",
				"from", debt.From, "to", debt.To, "amount", debt.Amount)
			return false, nil
		}
	}
	s.settled = append(s.settled, debt)
	s.bump()
	s.persistLocked(ctx)
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.DebtsSettled.Inc()
	}
	s.logger.InfoContext(ctx, "Debt settled",
		"from", debt.From, "to", debt.To, "amount", debt.Amount)

	s.publish(ctx, "debt.settled", func(p Publisher) error { return p.PublishDebtSettled(ctx, debt) })
	return true, nil
}

// Expenses returns the expenses, most recent first.
func (s *Service) Expenses() []core.Expense {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Expense, len(s.expenses))
	for i, e := range s.expenses {
		out[i] = e.Clone()
	}
	return out
}

func (s *Service) SettledDebts() []core.Debt {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Debt(nil), s.settled...)
}

// Balance derives the current balance state. Results are memoized per
// ledger version.
func (s *Service) Balance() core.BalanceState {
	s.mu.Lock()
	v, expenses, settled := s.version, s.expenses, s.settled
	s.mu.Unlock()

	state := s.balances.GetOrCompute(v, func() core.BalanceState {
		return s.engine.Compute(expenses, settled)
	})
	state.Debts = append([]core.Debt(nil), state.Debts...)
	return state
}

// Nets returns each roster member's net position.
func (s *Service) Nets() []core.NetPosition {
	s.mu.Lock()
	expenses := s.expenses
	s.mu.Unlock()
	return s.engine.Nets(expenses)
}

func (s *Service) Roster() core.Roster {
	return append(core.Roster(nil), s.roster...)
}

// Close releases the store and, when it holds one, the publisher.
func (s *Service) Close() error {
	var errs []error
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}
	if c, ok := s.publisher.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("publisher: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close ledger: %w", errors.Join(errs...))
	}
	return nil
}

// bump marks a state change; callers hold s.mu.
func (s *Service) bump() {
	s.version++
	if s.metrics != nil {
		s.metrics.Expenses.Set(float64(len(s.expenses)))
	}
}

// persistLocked writes both keys. Callers hold s.mu so writes land in
// mutation order.
func (s *Service) persistLocked(ctx context.Context) {
	if b, err := encodeExpenses(s.expenses); err != nil {
		s.reportSaveFailure(ctx, KeyExpenses, err)
	} else if err := s.store.Save(ctx, KeyExpenses, b); err != nil {
		s.reportSaveFailure(ctx, KeyExpenses, err)
	}

	if b, err := encodeDebts(s.settled); err != nil {
		s.reportSaveFailure(ctx, KeySettled, err)
	} else if err := s.store.Save(ctx, KeySettled, b); err != nil {
		s.reportSaveFailure(ctx, KeySettled, err)
	}
}

func (s *Service) reportSaveFailure(ctx context.Context, key string, err error) {
	perr := &core.PersistenceError{Op: "save", Key: key, Err: err}
	s.logger.ErrorContext(ctx, "Failed to persist ledger, keeping in-memory state", "error", perr)
	s.countPersistenceFailure(perr)
}

func (s *Service) countPersistenceFailure(err error) {
	if s.metrics == nil {
		return
	}
	op := "load"
	var perr *core.PersistenceError
	if errors.As(err, &perr) {
		op = perr.Op
	}
	s.metrics.PersistenceFailures.WithLabelValues(op).Inc()
}

func (s *Service) countRejection(operation string) {
	if s.metrics != nil {
		s.metrics.ValidationRejections.WithLabelValues(operation).Inc()
	}
}

func (s *Service) publish(ctx context.Context, kind string, send func(Publisher) error) {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "No event publisher configured, skipping", "event", kind)
		return
	}
	if err := send(s.publisher); err != nil {
		// The mutation is already applied and stored.
		s.logger.ErrorContext(ctx, "Failed to publish ledger event", "event", kind, "error", err)
		if s.metrics != nil {
			s.metrics.PublishFailures.Inc()
		}
	}
}
