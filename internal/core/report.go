package core

import "github.com/shopspring/decimal"

// CategoryTotals maps category to summed amount while remembering the order in
// which categories were first seen.
type CategoryTotals struct {
	order []string
	sums  map[string]decimal.Decimal
}

// CategoryReport is one row of the aggregate report.
type CategoryReport struct {
	Category     string
	IncomeTotal  decimal.Decimal
	ExpenseTotal decimal.Decimal
}

// Combined is the income plus expense total of the row.
func (c CategoryReport) Combined() decimal.Decimal {
	return c.IncomeTotal.Add(c.ExpenseTotal)
}

// AggregateReport is derived from the entries on every query and never stored.
type AggregateReport struct {
	PerCategory  []CategoryReport
	TotalIncome  decimal.Decimal
	TotalExpense decimal.Decimal
	Savings      decimal.Decimal // may be negative
	Status       BudgetStatus
}

// ComputeCategoryTotals sums Amount by Category. Entry type is not considered;
// callers partition first when they need per-type totals.
func ComputeCategoryTotals(entries []Entry) CategoryTotals {
	ct := CategoryTotals{sums: make(map[string]decimal.Decimal)}
	for _, e := range entries {
		cur, ok := ct.sums[e.Category]
		if !ok {
			ct.order = append(ct.order, e.Category)
			cur = decimal.Zero
		}
		ct.sums[e.Category] = cur.Add(e.Amount)
	}
	return ct
}

// Len returns the number of distinct categories.
func (ct CategoryTotals) Len() int { return len(ct.order) }

// Categories returns categories in first-appearance order.
func (ct CategoryTotals) Categories() []string {
	out := make([]string, len(ct.order))
	copy(out, ct.order)
	return out
}

// Amount returns the total for category, and whether it was present.
func (ct CategoryTotals) Amount(category string) (decimal.Decimal, bool) {
	d, ok := ct.sums[category]
	return d, ok
}

// Total sums every category.
func (ct CategoryTotals) Total() decimal.Decimal {
	total := decimal.Zero
	for _, c := range ct.order {
		total = total.Add(ct.sums[c])
	}
	return total
}

// Map returns a copy of the totals as a plain map.
func (ct CategoryTotals) Map() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(ct.sums))
	for k, v := range ct.sums {
		out[k] = v
	}
	return out
}

// ComputeReport groups entries by category and type. Rows are ordered by first
// appearance among income entries, then by first appearance among expense
// categories with no income. Missing sides are zero-filled. Status is
// classified against thresholds.
func ComputeReport(entries []Entry, thresholds BudgetThresholds) AggregateReport {
	var incomes, expenses []Entry
	for _, e := range entries {
		switch e.Type {
		case Income:
			incomes = append(incomes, e)
		case Expense:
			expenses = append(expenses, e)
		}
	}

	incomeTotals := ComputeCategoryTotals(incomes)
	expenseTotals := ComputeCategoryTotals(expenses)

	categories := incomeTotals.Categories()
	for _, c := range expenseTotals.order {
		if _, ok := incomeTotals.sums[c]; !ok {
			categories = append(categories, c)
		}
	}

	rows := make([]CategoryReport, 0, len(categories))
	for _, c := range categories {
		row := CategoryReport{Category: c, IncomeTotal: decimal.Zero, ExpenseTotal: decimal.Zero}
		if d, ok := incomeTotals.sums[c]; ok {
			row.IncomeTotal = d
		}
		if d, ok := expenseTotals.sums[c]; ok {
			row.ExpenseTotal = d
		}
		rows = append(rows, row)
	}

	totalIncome := incomeTotals.Total()
	totalExpense := expenseTotals.Total()
	return AggregateReport{
		PerCategory:  rows,
		TotalIncome:  totalIncome,
		TotalExpense: totalExpense,
		Savings:      totalIncome.Sub(totalExpense),
		Status:       ClassifyBudgetStatus(totalIncome, totalExpense, thresholds),
	}
}

// Categories lists the report rows' categories in order.
func (r AggregateReport) Categories() []string {
	out := make([]string, len(r.PerCategory))
	for i, row := range r.PerCategory {
		out[i] = row.Category
	}
	return out
}
