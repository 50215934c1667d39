// Package worker consumes ledger events and mirrors them to a spreadsheet.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"gastos/internal/cache"
	"gastos/internal/events"
	"gastos/internal/metrics"
	"gastos/internal/sheets"
)

// seenEvents bounds the redelivery guard.
const seenEvents = 1024

// MirrorWorker writes each ledger event to the spreadsheet mirror once.
type MirrorWorker struct {
	mirror  sheets.Mirror
	metrics *metrics.Ledger
	seen    *cache.LRU[string, string]
}

func NewMirrorWorker(mirror sheets.Mirror, m *metrics.Ledger) *MirrorWorker {
	return &MirrorWorker{
		mirror:  mirror,
		metrics: m,
		seen:    cache.NewLRU[string, string](seenEvents, 0),
	}
}

// HandleEvent processes a single ledger event from AMQP. Events already
// mirrored by this worker are acknowledged without writing again.
func (w *MirrorWorker) HandleEvent(ctx context.Context, ev *events.Event) error {
	if ref, ok := w.seen.Get(ev.ID); ok {
		slog.InfoContext(ctx, "Event already mirrored, skipping",
			"event_id", ev.ID, "row", ref)
		w.count(ev, "duplicate")
		return nil
	}

	var (
		ref string
		err error
	)
	switch ev.Type {
	case events.ExpenseAdded:
		ref, err = w.mirror.AppendExpense(ctx, *ev.Expense)
	case events.DebtSettled:
		ref, err = w.mirror.AppendSettlement(ctx, *ev.Debt, ev.OccurredAt)
	default:
		slog.WarnContext(ctx, "Ignoring unknown event type", "event_id", ev.ID, "type", ev.Type)
		w.count(ev, "ignored")
		return nil
	}
	if err != nil {
		w.count(ev, "error")
		return fmt.Errorf("mirror %s %s: %w", ev.Type, ev.ID, err)
	}

	w.seen.Set(ev.ID, ref)
	w.count(ev, "ok")
	slog.InfoContext(ctx, "Event mirrored",
		"event_id", ev.ID,
		"type", ev.Type,
		"row", ref)
	return nil
}

func (w *MirrorWorker) count(ev *events.Event, result string) {
	if w.metrics != nil {
		w.metrics.MirroredEvents.WithLabelValues(string(ev.Type), result).Inc()
	}
}
