// Package metrics exposes ledger activity as Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gastos"

type Ledger struct {
	ExpensesAdded        prometheus.Counter
	DebtsSettled         prometheus.Counter
	DuplicateSettlements prometheus.Counter
	ValidationRejections *prometheus.CounterVec
	PersistenceFailures  *prometheus.CounterVec
	PublishFailures      prometheus.Counter
	Expenses             prometheus.Gauge
	MirroredEvents       *prometheus.CounterVec
}

// New registers the ledger collectors on reg. Passing a fresh
// prometheus.NewRegistry keeps tests independent of the global registry.
func New(reg prometheus.Registerer) *Ledger {
	f := promauto.With(reg)
	return &Ledger{
		ExpensesAdded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expenses_added_total",
			Help:      "Expenses accepted into the ledger.",
		}),
		DebtsSettled: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "debts_settled_total",
			Help:      "Settlement records appended to the ledger.",
		}),
		DuplicateSettlements: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settlements_duplicate_total",
			Help:      "Settlement requests ignored because the record already existed.",
		}),
		ValidationRejections: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_rejections_total",
			Help:      "Mutations rejected by validation.",
		}, []string{"operation"}),
		PersistenceFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persistence_failures_total",
			Help:      "Failed ledger store reads and writes.",
		}, []string{"op"}),
		PublishFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_publish_failures_total",
			Help:      "Ledger events that could not be published.",
		}),
		Expenses: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "expenses",
			Help:      "Expenses currently held in the ledger.",
		}),
		MirroredEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mirrored_events_total",
			Help:      "Ledger events processed by the spreadsheet mirror.",
		}, []string{"type", "result"}),
	}
}

// NewRegistry returns a registry with the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
