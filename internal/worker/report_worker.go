// Package worker keeps the spreadsheet report in step with the ledger.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/metrics"
	"fintrack/internal/sheets"
	"fintrack/internal/storage"
)

// ReportWorker recomputes the aggregate report from the store and writes it
// through a sheets.ReportWriter.
type ReportWorker struct {
	store   storage.Store
	writer  sheets.ReportWriter
	metrics *metrics.Metrics
	now     func() time.Time

	mu           sync.Mutex
	lastRevision uint64
	lastSync     time.Time
}

func NewReportWorker(store storage.Store, writer sheets.ReportWriter, m *metrics.Metrics) *ReportWorker {
	return &ReportWorker{
		store:   store,
		writer:  writer,
		metrics: m,
		now:     time.Now,
	}
}

// HandleLedgerChanged processes a single ledger change event from AMQP.
// Changes that never reached storage are acknowledged without a write,
// since the store still holds the previous state.
func (w *ReportWorker) HandleLedgerChanged(ctx context.Context, msg *amqp.LedgerChangedMessage) error {
	slog.InfoContext(ctx, "Processing ledger change",
		"action", msg.Action,
		"revision", msg.Revision,
		"persisted", msg.Persisted)

	if !msg.Persisted {
		slog.WarnContext(ctx, "Skipping report for unsaved change", "revision", msg.Revision)
		return nil
	}

	if err := w.SyncNow(ctx); err != nil {
		return fmt.Errorf("sync report for revision %d: %w", msg.Revision, err)
	}

	w.mu.Lock()
	if msg.Revision > w.lastRevision {
		w.lastRevision = msg.Revision
	}
	w.mu.Unlock()
	return nil
}

// SyncNow loads the current snapshot and rewrites the report.
func (w *ReportWorker) SyncNow(ctx context.Context) error {
	snap, err := w.store.Load(ctx)
	if err != nil {
		w.observe("load_error")
		return fmt.Errorf("load ledger: %w", err)
	}

	report := core.ComputeReport(snap.Entries, snap.Thresholds)
	at := w.now().UTC()
	if err := w.writer.WriteReport(ctx, report, at); err != nil {
		w.observe("write_error")
		return fmt.Errorf("write report: %w", err)
	}
	w.observe("ok")

	w.mu.Lock()
	w.lastSync = at
	w.mu.Unlock()

	slog.InfoContext(ctx, "Report written",
		"categories", len(report.PerCategory),
		"entries", len(snap.Entries),
		"savings", core.FormatAmount(report.Savings),
		"status", report.Status.String())
	return nil
}

// LastSync returns the time of the last successful write and the highest
// revision seen on the queue.
func (w *ReportWorker) LastSync() (time.Time, uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastSync, w.lastRevision
}

func (w *ReportWorker) observe(outcome string) {
	if w.metrics != nil {
		w.metrics.ReportsWritten.WithLabelValues(outcome).Inc()
	}
}
