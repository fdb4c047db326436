package services

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"fintrack/internal/core"
	"fintrack/internal/metrics"
	"fintrack/internal/presentation"
	"fintrack/internal/storage/memory"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcher_Scenario(t *testing.T) {
	ctx := context.Background()
	m := metrics.New()
	d := NewDispatcher(openLedger(t, memory.New()), WithDispatchMetrics(m))

	for _, raw := range []core.RawEntry{
		salary(),
		{Type: "expense", Category: "Rent", Amount: "400", Date: "2025-02-01"},
		{Type: "expense", Category: "Food", Amount: "100", Date: "2025-02-02"},
	} {
		out, err := d.Dispatch(ctx, Command{Action: ActionAddEntry, Entry: raw})
		require.NoError(t, err)
		require.NotNil(t, out.Entry)
	}

	out, err := d.Dispatch(ctx, Command{Action: ActionRefresh})
	require.NoError(t, err)
	assert.Equal(t, "Savings: 500.00 USD", out.Dashboard.SavingsLine)
	assert.Equal(t, []string{"Salary", "Rent", "Food"}, out.Dashboard.Pie.Labels)
	assert.Equal(t, "Set your budget to see the status", out.Dashboard.BudgetMessage)

	out, err = d.Dispatch(ctx, Command{Action: ActionSetBudget, Budget: core.RawBudget{Income: "1000", Expense: "600"}})
	require.NoError(t, err)
	assert.Equal(t, "Overspent on income", out.Dashboard.BudgetMessage)

	out, err = d.Dispatch(ctx, Command{Action: ActionClear})
	require.NoError(t, err)
	assert.Equal(t, "Savings: 0.00 USD", out.Dashboard.SavingsLine)
	assert.Equal(t, "Set your budget to see the status", out.Dashboard.BudgetMessage)
	assert.Zero(t, out.Dashboard.EntryCount)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.Actions.WithLabelValues("add-entry", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Actions.WithLabelValues("clear", "ok")))
}

func TestDispatcher_ValidationError(t *testing.T) {
	m := metrics.New()
	d := NewDispatcher(openLedger(t, memory.New()), WithDispatchMetrics(m))

	out, err := d.Dispatch(context.Background(), Command{Action: ActionAddEntry, Entry: core.RawEntry{Type: "income"}})
	require.Error(t, err)
	var verr *core.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{"category", "amount", "date"}, verr.Missing)
	assert.Equal(t, ActionAddEntry, out.Action)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ValidationFailures.WithLabelValues("add-entry")))
}

func TestDispatcher_UnknownAction(t *testing.T) {
	d := NewDispatcher(openLedger(t, memory.New()))
	_, err := d.Dispatch(context.Background(), Command{Action: "explode"})
	assert.EqualError(t, err, `unknown action "explode"`)
}

func TestDispatcher_PersistWarning(t *testing.T) {
	store := memory.New()
	store.FailSave = errors.New("disk full")
	l := NewLedgerService(store, WithLogger(quietLogger(&bytes.Buffer{})))
	require.NoError(t, l.Open(context.Background()))
	d := NewDispatcher(l)

	out, err := d.Dispatch(context.Background(), Command{Action: ActionAddEntry, Entry: salary()})
	require.NoError(t, err)
	assert.Error(t, out.Change.PersistErr)
	assert.NotEmpty(t, out.Dashboard.Warning)
	assert.Equal(t, 1, out.Dashboard.EntryCount)
}

func TestDispatcher_Import(t *testing.T) {
	d := NewDispatcher(openLedger(t, memory.New()))
	entries := []core.Entry{
		{ID: "1", Type: core.Expense, Category: "Groceries", Amount: decimal.RequireFromString("45.10"), Date: core.NewDate(2025, 3, 1)},
		{ID: "2", Type: core.Income, Category: "Payroll", Amount: decimal.NewFromInt(2500), Date: core.NewDate(2025, 3, 2)},
	}
	out, err := d.Dispatch(context.Background(), Command{Action: ActionImport, Entries: entries})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), out.Change.Revision, "one save for the whole batch")
	assert.Equal(t, []string{"Payroll", "Groceries"}, out.Dashboard.Pie.Labels)

	out, err = d.Dispatch(context.Background(), Command{Action: ActionImport})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), out.Change.Revision)
}

func TestDispatcher_CustomRendererAndHandler(t *testing.T) {
	called := false
	d := NewDispatcher(openLedger(t, memory.New()),
		WithRenderer(func(v View) presentation.Dashboard {
			return presentation.Dashboard{SavingsLine: "custom", Revision: v.Revision}
		}),
		WithHandler("ping", func(_ context.Context, _ *LedgerService, _ Command) (Outcome, error) {
			called = true
			return Outcome{}, nil
		}),
	)
	out, err := d.Dispatch(context.Background(), Command{Action: "ping"})
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, "custom", out.Dashboard.SavingsLine)
	assert.Equal(t, Action("ping"), out.Action)
}
