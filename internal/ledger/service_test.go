package ledger

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"gastos/internal/core"
	"gastos/internal/metrics"
	"gastos/internal/store/memory"
)

// fakeStore wraps the memory store with switchable failures.
type fakeStore struct {
	*memory.Store
	mu       sync.Mutex
	failLoad error
	failSave error
	saves    int
}

func newFakeStore() *fakeStore { return &fakeStore{Store: memory.New()} }

func (f *fakeStore) Load(ctx context.Context, key string) ([]byte, bool, error) {
	f.mu.Lock()
	err := f.failLoad
	f.mu.Unlock()
	if err != nil {
		return nil, false, err
	}
	return f.Store.Load(ctx, key)
}

func (f *fakeStore) Save(ctx context.Context, key string, value []byte) error {
	f.mu.Lock()
	f.saves++
	err := f.failSave
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.Store.Save(ctx, key, value)
}

type recordingPublisher struct {
	mu       sync.Mutex
	expenses []core.Expense
	debts    []core.Debt
	err      error
}

func (p *recordingPublisher) PublishExpenseAdded(_ context.Context, e core.Expense) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expenses = append(p.expenses, e)
	return p.err
}

func (p *recordingPublisher) PublishDebtSettled(_ context.Context, d core.Debt) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.debts = append(p.debts, d)
	return p.err
}

var fixedNow = time.Date(2025, 10, 15, 18, 30, 0, 0, time.UTC)

func newTestService(t *testing.T, st *fakeStore, opts ...Option) *Service {
	t.Helper()
	n := 0
	base := []Option{
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(func() string { n++; return fmt.Sprintf("id-%d", n) }),
	}
	s := New(core.DefaultRoster(), st, append(base, opts...)...)
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	return s
}

func TestAddExpense(t *testing.T) {
	ctx := context.Background()
	st := newFakeStore()
	pub := &recordingPublisher{}
	s := newTestService(t, st, WithPublisher(pub))

	first, err := s.AddExpense(ctx, NewExpense{
		Description:       "Cena",
		Amount:            150.004,
		PaidBy:            "Juan",
		Participants:      []core.Participant{"Juan", "María", "Pedro"},
		ReceiptAttachment: "cena.jpg",
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if first.ID != "id-1" || first.Amount != 150 || first.Date.String() != "2025-10-15" {
		t.Fatalf("unexpected expense %+v", first)
	}

	second, err := s.AddExpense(ctx, NewExpense{
		Description:       "Supermercado",
		Amount:            280,
		PaidBy:            "María",
		Participants:      []core.Participant{"Juan", "María", "Juan"},
		ReceiptAttachment: "super.jpg",
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !reflect.DeepEqual(second.Participants, []core.Participant{"Juan", "María", "Juan"}) {
		t.Fatalf("participants changed on add: %v", second.Participants)
	}

	list := s.Expenses()
	if len(list) != 2 || list[0].ID != second.ID || list[1].ID != first.ID {
		t.Fatalf("expected newest first, got %+v", list)
	}

	raw, found, err := st.Store.Load(ctx, KeyExpenses)
	if err != nil || !found {
		t.Fatalf("expenses not persisted: found=%v err=%v", found, err)
	}
	stored, err := decodeExpenses(raw)
	if err != nil || len(stored) != 2 {
		t.Fatalf("stored %d expenses, err=%v", len(stored), err)
	}
	if len(pub.expenses) != 2 {
		t.Fatalf("published %d events, want 2", len(pub.expenses))
	}
}

func TestAddExpenseValidation(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	st := newFakeStore()
	s := newTestService(t, st, WithMetrics(m))
	savesBefore := st.saves

	valid := NewExpense{
		Description:       "Café",
		Amount:            25,
		PaidBy:            "Juan",
		Participants:      []core.Participant{"Juan", "María"},
		ReceiptAttachment: "cafe.jpg",
	}
	cases := []struct {
		name   string
		mutate func(*NewExpense)
		want   error
	}{
		{"empty description", func(e *NewExpense) { e.Description = "" }, core.ErrEmptyDescription},
		{"zero amount", func(e *NewExpense) { e.Amount = 0 }, core.ErrInvalidAmount},
		{"rounds to zero", func(e *NewExpense) { e.Amount = 0.004 }, core.ErrInvalidAmount},
		{"payer outside roster", func(e *NewExpense) { e.PaidBy = "Lucía" }, core.ErrUnknownParticipant},
		{"participant outside roster", func(e *NewExpense) { e.Participants = []core.Participant{"Lucía"} }, core.ErrUnknownParticipant},
		{"no participants", func(e *NewExpense) { e.Participants = nil }, core.ErrNoParticipants},
		{"no receipt", func(e *NewExpense) { e.ReceiptAttachment = " " }, core.ErrMissingReceipt},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := valid
			tc.mutate(&in)
			_, err := s.AddExpense(ctx, in)
			var ve *core.ValidationError
			if !errors.As(err, &ve) || !errors.Is(err, tc.want) {
				t.Fatalf("expected validation error %v, got %v", tc.want, err)
			}
		})
	}

	if n := len(s.Expenses()); n != 0 {
		t.Fatalf("rejected input mutated the ledger: %d expenses", n)
	}
	if st.saves != savesBefore {
		t.Fatalf("rejected input reached the store")
	}
	if got := testutil.ToFloat64(m.ValidationRejections.WithLabelValues("add_expense")); got != float64(len(cases)) {
		t.Fatalf("rejections = %v, want %d", got, len(cases))
	}
}

func TestSettleDebtIsIdempotent(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	s := newTestService(t, newFakeStore(), WithPublisher(pub))

	debt := core.Debt{From: "Juan", To: "María", Amount: 40}
	recorded, err := s.SettleDebt(ctx, debt)
	if err != nil || !recorded {
		t.Fatalf("first settle: recorded=%v err=%v", recorded, err)
	}
	recorded, err = s.SettleDebt(ctx, debt)
	if err != nil || recorded {
		t.Fatalf("second settle: recorded=%v err=%v", recorded, err)
	}

	settled := s.SettledDebts()
	want := []core.Debt{{From: "Juan", To: "María", Amount: 40, IsSettled: true}}
	if !reflect.DeepEqual(settled, want) {
		t.Fatalf("got %+v, want %+v", settled, want)
	}
	if len(pub.debts) != 1 {
		t.Fatalf("published %d settlements, want 1", len(pub.debts))
	}

	// A different amount is a different record.
	if recorded, _ := s.SettleDebt(ctx, core.Debt{From: "Juan", To: "María", Amount: 10}); !recorded {
		t.Fatal("expected a distinct settlement to be recorded")
	}
}

func TestAddExpenseRepeatedParticipantPaysEachShare(t *testing.T) {
	s := newTestService(t, newFakeStore())
	if _, err := s.AddExpense(context.Background(), NewExpense{
		Description:       "Taxi",
		Amount:            30,
		PaidBy:            "María",
		Participants:      []core.Participant{"Juan", "Juan", "María"},
		ReceiptAttachment: "taxi.jpg",
	}); err != nil {
		t.Fatalf("add: %v", err)
	}
	want := []core.Debt{{From: "Juan", To: "María", Amount: 20}}
	if got := s.Balance().Debts; !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestSettleDebtIsIdempotentAcrossReload(t *testing.T) {
	ctx := context.Background()
	st := newFakeStore()
	// Written unrounded by an older writer.
	if err := st.Store.Save(ctx, KeySettled, []byte(`[{"from":"Juan","to":"María","amount":40.004}]`)); err != nil {
		t.Fatal(err)
	}
	s := newTestService(t, st)

	want := []core.Debt{{From: "Juan", To: "María", Amount: 40, IsSettled: true}}
	if got := s.SettledDebts(); !reflect.DeepEqual(got, want) {
		t.Fatalf("loaded %+v, want %+v", got, want)
	}
	recorded, err := s.SettleDebt(ctx, core.Debt{From: "Juan", To: "María", Amount: 40.004})
	if err != nil || recorded {
		t.Fatalf("resettle: recorded=%v err=%v", recorded, err)
	}
}

func TestSettleDebtValidation(t *testing.T) {
	s := newTestService(t, newFakeStore())
	bad := []core.Debt{
		{From: "Juan", To: "Juan", Amount: 5},
		{From: "Lucía", To: "Juan", Amount: 5},
		{From: "Juan", To: "María", Amount: -1},
	}
	for _, d := range bad {
		if _, err := s.SettleDebt(context.Background(), d); err == nil {
			t.Errorf("expected error for %+v", d)
		}
	}
	if len(s.SettledDebts()) != 0 {
		t.Fatal("invalid settlements were recorded")
	}
}

func TestScenarioBalanceAfterSettlement(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t, newFakeStore())

	mustAdd := func(in NewExpense) {
		t.Helper()
		if _, err := s.AddExpense(ctx, in); err != nil {
			t.Fatalf("add %q: %v", in.Description, err)
		}
	}
	mustAdd(NewExpense{Description: "A", Amount: 150, PaidBy: "Juan",
		Participants: []core.Participant{"Juan", "María", "Pedro"}, ReceiptAttachment: "a"})
	mustAdd(NewExpense{Description: "B", Amount: 280, PaidBy: "María",
		Participants: []core.Participant{"Juan", "María"}, ReceiptAttachment: "b"})

	state := s.Balance()
	want := core.BalanceState{
		TotalSpent: 430,
		Debts: []core.Debt{
			{From: "Juan", To: "María", Amount: 40},
			{From: "Pedro", To: "María", Amount: 50},
		},
	}
	if !reflect.DeepEqual(state, want) {
		t.Fatalf("got %+v\nwant %+v", state, want)
	}

	if _, err := s.SettleDebt(ctx, core.Debt{From: "Juan", To: "María", Amount: 40}); err != nil {
		t.Fatal(err)
	}
	state = s.Balance()
	want.Debts = append(want.Debts, core.Debt{From: "Juan", To: "María", Amount: 40, IsSettled: true})
	if !reflect.DeepEqual(state, want) {
		t.Fatalf("after settlement got %+v\nwant %+v", state, want)
	}
}

func TestBalanceIsMemoizedPerVersion(t *testing.T) {
	s := newTestService(t, newFakeStore())
	_ = s.Balance()
	st := s.Balance()
	st.Debts = append(st.Debts, core.Debt{From: "x", To: "y", Amount: 1})

	if got := s.Balance(); len(got.Debts) != 0 {
		t.Fatalf("caller mutation leaked into cache: %+v", got)
	}
	stats := s.balances.Stats()
	if stats.Misses != 1 || stats.Hits != 2 {
		t.Fatalf("unexpected cache stats %+v", stats)
	}

	if _, err := s.SettleDebt(context.Background(), core.Debt{From: "Pedro", To: "Juan", Amount: 5}); err != nil {
		t.Fatal(err)
	}
	if got := s.Balance(); len(got.Debts) != 1 {
		t.Fatalf("stale balance after mutation: %+v", got)
	}
}

func TestPersistenceFailureKeepsMemoryState(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	st := newFakeStore()
	s := newTestService(t, st, WithMetrics(m))
	st.failSave = errors.New("disk full")

	e, err := s.AddExpense(ctx, NewExpense{Description: "Uber", Amount: 45, PaidBy: "Pedro",
		Participants: []core.Participant{"Pedro", "Juan"}, ReceiptAttachment: "u"})
	if err != nil {
		t.Fatalf("persistence failure must not fail the mutation: %v", err)
	}
	if got := s.Expenses(); len(got) != 1 || got[0].ID != e.ID {
		t.Fatalf("in-memory state rolled back: %+v", got)
	}
	if got := testutil.ToFloat64(m.PersistenceFailures.WithLabelValues("save")); got != 2 {
		t.Fatalf("save failures = %v, want 2", got)
	}
}

func TestPublishFailureIsNotReturned(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	s := newTestService(t, newFakeStore(), WithPublisher(pub))
	if _, err := s.SettleDebt(context.Background(), core.Debt{From: "Juan", To: "Pedro", Amount: 3}); err != nil {
		t.Fatalf("publish failure leaked: %v", err)
	}
	if len(s.SettledDebts()) != 1 {
		t.Fatal("settlement not recorded")
	}
}

func TestLoadRestoresPersistedLedger(t *testing.T) {
	ctx := context.Background()
	st := newFakeStore()
	s := newTestService(t, st)
	if _, err := s.AddExpense(ctx, NewExpense{Description: "Cena", Amount: 90, PaidBy: "Juan",
		Participants: []core.Participant{"Juan", "Pedro"}, ReceiptAttachment: "c"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.SettleDebt(ctx, core.Debt{From: "Pedro", To: "Juan", Amount: 45}); err != nil {
		t.Fatal(err)
	}

	reloaded := newTestService(t, st)
	if !reflect.DeepEqual(reloaded.Expenses(), s.Expenses()) {
		t.Fatalf("expenses differ after reload:\n%+v\n%+v", reloaded.Expenses(), s.Expenses())
	}
	if !reflect.DeepEqual(reloaded.SettledDebts(), s.SettledDebts()) {
		t.Fatalf("settled debts differ after reload")
	}
	if !reflect.DeepEqual(reloaded.Balance(), s.Balance()) {
		t.Fatalf("balance differs after reload")
	}
}

func TestLoadFallbacks(t *testing.T) {
	ctx := context.Background()

	t.Run("empty store without samples", func(t *testing.T) {
		s := newTestService(t, newFakeStore())
		if len(s.Expenses()) != 0 || len(s.SettledDebts()) != 0 {
			t.Fatal("expected empty ledger")
		}
	})

	t.Run("empty store with samples", func(t *testing.T) {
		s := newTestService(t, newFakeStore(), WithSampleData(true))
		if got := len(s.Expenses()); got != 4 {
			t.Fatalf("expected 4 sample expenses, got %d", got)
		}
	})

	t.Run("samples skipped for other rosters", func(t *testing.T) {
		s := New(core.Roster{"Ana", "Bea"}, newFakeStore(), WithSampleData(true))
		if err := s.Load(ctx); err != nil {
			t.Fatal(err)
		}
		if len(s.Expenses()) != 0 {
			t.Fatal("samples must not reference people outside the roster")
		}
	})

	t.Run("read failure", func(t *testing.T) {
		st := newFakeStore()
		st.failLoad = errors.New("permission denied")
		s := New(core.DefaultRoster(), st)
		err := s.Load(ctx)
		var perr *core.PersistenceError
		if !errors.As(err, &perr) || perr.Op != "load" {
			t.Fatalf("expected load PersistenceError, got %v", err)
		}
		if len(s.Expenses()) != 0 {
			t.Fatal("expected empty ledger after failed load")
		}
		// Still usable.
		if _, err := s.SettleDebt(ctx, core.Debt{From: "Juan", To: "Pedro", Amount: 1}); err != nil {
			t.Fatal(err)
		}
	})

	t.Run("corrupt value", func(t *testing.T) {
		st := newFakeStore()
		_ = st.Store.Save(ctx, KeyExpenses, []byte(`{not json`))
		s := New(core.DefaultRoster(), st)
		err := s.Load(ctx)
		var perr *core.PersistenceError
		if !errors.As(err, &perr) || perr.Op != "decode" || perr.Key != KeyExpenses {
			t.Fatalf("expected decode PersistenceError, got %v", err)
		}
	})
}

func TestConcurrentMutations(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t, newFakeStore())
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.AddExpense(ctx, NewExpense{Description: "x", Amount: 3, PaidBy: "Juan",
				Participants: []core.Participant{"Juan", "María", "Pedro"}, ReceiptAttachment: "r"})
			_ = s.Balance()
		}()
	}
	wg.Wait()
	if got := s.Balance().TotalSpent; got != 60 {
		t.Fatalf("total = %v, want 60", got)
	}
}
