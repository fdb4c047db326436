package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/metrics"
	"fintrack/internal/storage"
	"fintrack/internal/storage/memory"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu      sync.Mutex
	reports []core.AggregateReport
	times   []time.Time
	err     error
}

func (f *fakeWriter) WriteReport(_ context.Context, r core.AggregateReport, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.reports = append(f.reports, r)
	f.times = append(f.times, at)
	return nil
}

func (f *fakeWriter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reports)
}

type failingStore struct{ err error }

func (s failingStore) Load(context.Context) (storage.Snapshot, error) { return storage.Snapshot{}, s.err }
func (s failingStore) Save(context.Context, storage.Snapshot) error    { return s.err }

func seeded() *memory.Store {
	return memory.NewWithSnapshot(storage.Snapshot{
		Entries: []core.Entry{
			{ID: "1", Type: core.Income, Category: "Salary", Amount: decimal.NewFromInt(1000), Date: core.NewDate(2025, 1, 1)},
			{ID: "2", Type: core.Expense, Category: "Rent", Amount: decimal.NewFromInt(400), Date: core.NewDate(2025, 1, 2)},
		},
	})
}

func TestReportWorker_HandleLedgerChanged(t *testing.T) {
	w := &fakeWriter{}
	m := metrics.New()
	rw := NewReportWorker(seeded(), w, m)
	fixed := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	rw.now = func() time.Time { return fixed }

	err := rw.HandleLedgerChanged(context.Background(), amqp.NewLedgerChangedMessage("add-entry", 7, 2, true))
	require.NoError(t, err)

	require.Equal(t, 1, w.count())
	assert.True(t, w.reports[0].Savings.Equal(decimal.NewFromInt(600)))
	assert.Equal(t, fixed, w.times[0])

	at, rev := rw.LastSync()
	assert.Equal(t, fixed, at)
	assert.Equal(t, uint64(7), rev)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReportsWritten.WithLabelValues("ok")))
}

func TestReportWorker_SkipsUnsavedChange(t *testing.T) {
	w := &fakeWriter{}
	rw := NewReportWorker(seeded(), w, nil)

	require.NoError(t, rw.HandleLedgerChanged(context.Background(), amqp.NewLedgerChangedMessage("clear", 3, 0, false)))
	assert.Zero(t, w.count())
}

func TestReportWorker_Errors(t *testing.T) {
	m := metrics.New()
	boom := errors.New("sheet locked")

	rw := NewReportWorker(seeded(), &fakeWriter{err: boom}, m)
	err := rw.HandleLedgerChanged(context.Background(), amqp.NewLedgerChangedMessage("add-entry", 1, 2, true))
	assert.ErrorIs(t, err, boom)
	_, rev := rw.LastSync()
	assert.Zero(t, rev, "failed syncs are retried by the broker")

	rw = NewReportWorker(failingStore{err: boom}, &fakeWriter{}, m)
	assert.ErrorIs(t, rw.SyncNow(context.Background()), boom)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReportsWritten.WithLabelValues("write_error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReportsWritten.WithLabelValues("load_error")))
}

type countingSyncer struct{ n atomic.Int32 }

func (c *countingSyncer) SyncNow(context.Context) error {
	c.n.Add(1)
	return errors.New("ignored")
}

func TestProcessor_Lifecycle(t *testing.T) {
	s := &countingSyncer{}
	p := NewProcessor(s, ProcessorConfig{Interval: 10 * time.Millisecond, SyncOnStart: true})
	ctx := context.Background()

	require.NoError(t, p.Start(ctx))
	assert.True(t, p.IsRunning())
	assert.Error(t, p.Start(ctx), "double start")

	assert.Eventually(t, func() bool { return s.n.Load() >= 3 }, time.Second, 5*time.Millisecond)

	require.NoError(t, p.Stop(ctx))
	assert.False(t, p.IsRunning())
	assert.NoError(t, p.Stop(ctx), "stop is idempotent")
}

func TestProcessor_DefaultInterval(t *testing.T) {
	p := NewProcessor(&countingSyncer{}, ProcessorConfig{})
	assert.Equal(t, 5*time.Minute, p.config.Interval)
}
