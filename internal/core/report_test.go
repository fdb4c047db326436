package core

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(t EntryType, category string, amount string) Entry {
	return Entry{Type: t, Category: category, Amount: decimal.RequireFromString(amount), Date: NewDate(2025, 1, 1)}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestComputeCategoryTotalsEmpty(t *testing.T) {
	ct := ComputeCategoryTotals(nil)
	assert.Equal(t, 0, ct.Len())
	assert.Empty(t, ct.Map())
	assert.True(t, ct.Total().IsZero())
}

func TestComputeCategoryTotalsSingle(t *testing.T) {
	ct := ComputeCategoryTotals([]Entry{entry(Expense, "Food", "12.50")})
	require.Equal(t, 1, ct.Len())
	got, ok := ct.Amount("Food")
	require.True(t, ok)
	assert.True(t, got.Equal(dec("12.50")))
}

func TestComputeCategoryTotalsIgnoresType(t *testing.T) {
	ct := ComputeCategoryTotals([]Entry{
		entry(Expense, "Food", "10"),
		entry(Income, "Gift", "5"),
		entry(Income, "Food", "0.1"),
		entry(Expense, "food", "1"),
	})
	assert.Equal(t, []string{"Food", "Gift", "food"}, ct.Categories())
	food, _ := ct.Amount("Food")
	assert.True(t, food.Equal(dec("10.1")))
	_, ok := ct.Amount("Missing")
	assert.False(t, ok)
}

func TestComputeCategoryTotalsExactDecimal(t *testing.T) {
	ct := ComputeCategoryTotals([]Entry{entry(Expense, "A", "0.1"), entry(Expense, "A", "0.2")})
	got, _ := ct.Amount("A")
	assert.True(t, got.Equal(dec("0.3")), "got %s", got)
}

func TestComputeReportScenario(t *testing.T) {
	entries := []Entry{
		entry(Income, "Salary", "1000"),
		entry(Expense, "Rent", "400"),
		entry(Expense, "Food", "100"),
	}
	r := ComputeReport(entries, BudgetThresholds{})

	assert.True(t, r.TotalIncome.Equal(dec("1000")))
	assert.True(t, r.TotalExpense.Equal(dec("500")))
	assert.True(t, r.Savings.Equal(dec("500")))
	assert.Equal(t, Unset, r.Status)

	require.Len(t, r.PerCategory, 3)
	want := []struct{ cat, inc, exp string }{
		{"Salary", "1000", "0"},
		{"Rent", "0", "400"},
		{"Food", "0", "100"},
	}
	for i, w := range want {
		row := r.PerCategory[i]
		assert.Equal(t, w.cat, row.Category)
		assert.True(t, row.IncomeTotal.Equal(dec(w.inc)), "%s income %s", w.cat, row.IncomeTotal)
		assert.True(t, row.ExpenseTotal.Equal(dec(w.exp)), "%s expense %s", w.cat, row.ExpenseTotal)
	}
}

func TestComputeReportOrdering(t *testing.T) {
	entries := []Entry{
		entry(Expense, "Food", "20"),
		entry(Income, "Bonus", "50"),
		entry(Expense, "Bonus", "5"),
		entry(Income, "Salary", "900"),
		entry(Expense, "Travel", "300"),
		entry(Expense, "Food", "15"),
	}
	r := ComputeReport(entries, BudgetThresholds{})
	assert.Equal(t, []string{"Bonus", "Salary", "Food", "Travel"}, r.Categories())

	bonus := r.PerCategory[0]
	assert.True(t, bonus.IncomeTotal.Equal(dec("50")))
	assert.True(t, bonus.ExpenseTotal.Equal(dec("5")))
	assert.True(t, bonus.Combined().Equal(dec("55")))
	assert.True(t, r.Savings.Equal(dec("610")))
}

func TestComputeReportSumsMatchTotals(t *testing.T) {
	inputs := [][]Entry{
		nil,
		{entry(Income, "A", "1")},
		{entry(Expense, "A", "3.33"), entry(Expense, "B", "0"), entry(Income, "B", "7.01")},
		{entry(Income, "X", "10"), entry(Income, "X", "10"), entry(Expense, "Y", "25.5"), entry(Expense, "X", "1")},
	}
	for i, entries := range inputs {
		r := ComputeReport(entries, BudgetThresholds{})
		inc, exp := decimal.Zero, decimal.Zero
		for _, row := range r.PerCategory {
			inc = inc.Add(row.IncomeTotal)
			exp = exp.Add(row.ExpenseTotal)
		}
		assert.True(t, inc.Equal(r.TotalIncome), "case %d income", i)
		assert.True(t, exp.Equal(r.TotalExpense), "case %d expense", i)
		assert.True(t, r.Savings.Equal(r.TotalIncome.Sub(r.TotalExpense)), "case %d savings", i)
	}
}

func TestComputeReportIdempotentAndPure(t *testing.T) {
	entries := []Entry{entry(Income, "Salary", "1000"), entry(Expense, "Rent", "1200")}
	snapshot := append([]Entry(nil), entries...)
	thresholds := BudgetThresholds{IncomeBudget: dec("100"), ExpenseBudget: dec("60")}

	a := ComputeReport(entries, thresholds)
	b := ComputeReport(entries, thresholds)
	assert.Equal(t, a, b)
	assert.Equal(t, snapshot, entries)
	assert.True(t, a.Savings.Equal(dec("-200")))
	assert.Equal(t, OverBoth, a.Status)
}

func TestComputeReportEmpty(t *testing.T) {
	r := ComputeReport(nil, BudgetThresholds{})
	assert.Empty(t, r.PerCategory)
	assert.True(t, r.Savings.IsZero())
	assert.Equal(t, Unset, r.Status)
}
