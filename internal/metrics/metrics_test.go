package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestLedgerCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ExpensesAdded.Inc()
	m.ExpensesAdded.Inc()
	m.PersistenceFailures.WithLabelValues("save").Inc()
	m.Expenses.Set(2)

	if got := testutil.ToFloat64(m.ExpensesAdded); got != 2 {
		t.Fatalf("expenses added = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.PersistenceFailures.WithLabelValues("save")); got != 1 {
		t.Fatalf("persistence failures = %v, want 1", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "gastos_expenses_added_total" {
			found = true
		}
	}
	if !found {
		t.Fatal("gastos_expenses_added_total not registered")
	}
}

func TestNewRegistryAcceptsLedger(t *testing.T) {
	reg := NewRegistry()
	New(reg) // must not panic on duplicate registration
	if _, err := reg.Gather(); err != nil {
		t.Fatalf("gather: %v", err)
	}
}

func TestHTTPMiddlewareUsesRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTP(reg)

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	for _, id := range []string{"1", "2"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/"+id, nil))
	}
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	if got := testutil.ToFloat64(m.Requests.WithLabelValues("GET", "/items/{id}", "202")); got != 2 {
		t.Errorf("route requests = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.Requests.WithLabelValues("GET", "unmatched", "404")); got != 1 {
		t.Errorf("unmatched requests = %v, want 1", got)
	}
}
